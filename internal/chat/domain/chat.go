// Package domain defines the types exchanged by the site concierge chat:
// the static knowledge tables, the per-session conversation context and the
// response the router hands back to the UI.
//
// The flow of one chat turn:
//  1. The widget POSTs {"message": "...", "sessionToken": "..."} to the BFA
//  2. ChatService loads the ConversationContext for the session
//  3. Router.Route maps the utterance + context to exactly one Response
//  4. ChatService updates LastService when the response names a service
//  5. The widget renders Message / Options / Form
package domain

import "strings"

// ============================================================
// Knowledge base
// ============================================================

// ServiceKey identifies one marketed solution area.
type ServiceKey string

const (
	ServiceResearch     ServiceKey = "research"
	ServiceDueDiligence ServiceKey = "dueDiligence"
	ServicePortfolio    ServiceKey = "portfolio"
	ServiceMarketTrends ServiceKey = "marketTrends"
	ServiceRegulatory   ServiceKey = "regulatory"
)

// Depth selects which slice of a KnowledgeEntry gets rendered.
type Depth string

const (
	DepthOverview     Depth = "overview"
	DepthCapabilities Depth = "capabilities"
	DepthBenefits     Depth = "benefits"
	DepthFAQ          Depth = "faq"
)

// Valid reports whether d is one of the known depths. The empty string is
// accepted and means overview.
func (d Depth) Valid() bool {
	switch d {
	case "", DepthOverview, DepthCapabilities, DepthBenefits, DepthFAQ:
		return true
	}
	return false
}

// OrDefault returns overview for the zero value.
func (d Depth) OrDefault() Depth {
	if d == "" {
		return DepthOverview
	}
	return d
}

// FAQ is one question/answer pair of a service.
type FAQ struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// KnowledgeEntry is the marketing copy for one service.
type KnowledgeEntry struct {
	Key          ServiceKey `json:"key" yaml:"key"`
	Title        string     `json:"title" yaml:"title"`
	Description  string     `json:"description" yaml:"description"`
	Capabilities []string   `json:"capabilities" yaml:"capabilities"`
	Benefits     []string   `json:"benefits" yaml:"benefits"`
	FAQ          []FAQ      `json:"faq" yaml:"faq"`
}

// ============================================================
// Pattern table
// ============================================================

// ResponderKind tags the variant held by a Responder.
type ResponderKind string

const (
	// ResponderStatic replies with a fixed message, options and form.
	ResponderStatic ResponderKind = "static"
	// ResponderService renders a knowledge-base entry at a given depth.
	ResponderService ResponderKind = "service"
)

// Responder describes how a matched intent produces its Response.
// Only the fields of the active Kind are meaningful.
type Responder struct {
	Kind ResponderKind

	// static
	Message string
	Options []string
	Form    string

	// service
	Service ServiceKey
	Depth   Depth
}

// StaticResponder builds a static variant.
func StaticResponder(message string, options []string, form string) Responder {
	return Responder{Kind: ResponderStatic, Message: message, Options: options, Form: form}
}

// ServiceResponder builds a service-lookup variant.
func ServiceResponder(key ServiceKey, depth Depth) Responder {
	return Responder{Kind: ResponderService, Service: key, Depth: depth.OrDefault()}
}

// IntentRule is one row of the ordered pattern table.
type IntentRule struct {
	Intent    string
	Patterns  []string
	Responder Responder
}

// Intent names used outside the table itself.
const (
	IntentUnknown = "unknown"
)

// ============================================================
// Quick replies
// ============================================================

// QuickReply is a button label the UI may show. A label with Intent set is an
// exact-phrase shortcut; a label with only Depth set is a follow-up resolved
// against the session's LastService.
type QuickReply struct {
	Label  string `json:"label" yaml:"label"`
	Intent string `json:"intent,omitempty" yaml:"intent"`
	Depth  Depth  `json:"depth,omitempty" yaml:"depth"`
}

// Shortcut reports whether the reply bypasses scoring.
func (q QuickReply) Shortcut() bool {
	return q.Intent != ""
}

// Normalize is the single normalization applied to utterances and shortcut
// labels alike: trim surrounding whitespace, lowercase.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ============================================================
// Conversation
// ============================================================

// ConversationContext is the small piece of state threaded between turns.
// It is owned by the caller (ChatService); the router only reads it.
type ConversationContext struct {
	LastService ServiceKey `json:"lastService,omitempty"`
}

// Response is the router output.
type Response struct {
	// Intent is the rule that resolved the utterance ("unknown" for the fallback).
	Intent string `json:"intent"`

	// Service is set when the response describes a knowledge-base entry.
	// The caller stores it as the next LastService.
	Service ServiceKey `json:"service,omitempty"`

	// Message is markdown-flavoured: **bold**, \n newlines, "• " bullets.
	Message string `json:"message"`

	Options []string `json:"options,omitempty"`

	// Form names a structured input form the UI should display.
	Form string `json:"form,omitempty"`
}

// ============================================================
// Chat: request/response between the widget and the BFA
// ============================================================

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	Message      string `json:"message"`
	SessionToken string `json:"sessionToken,omitempty"`
}

// ChatReply is what the BFA returns for one chat turn.
type ChatReply struct {
	SessionToken string `json:"sessionToken"`
	Response
}
