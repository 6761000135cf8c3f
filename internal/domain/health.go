package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Detail      string `json:"detail,omitempty"`
}

// ChatMetrics is returned by GET /v1/metrics/chat.
type ChatMetrics struct {
	TotalMessages   int64            `json:"totalMessages"`
	SessionsStarted int64            `json:"sessionsStarted"`
	ByIntent        map[string]int64 `json:"byIntent"`
	ByStage         map[string]int64 `json:"byStage"`
	UnknownRate     float64          `json:"unknownRate"`
	StoreErrors     int64            `json:"storeErrors"`
	Period          string           `json:"period"`
}
