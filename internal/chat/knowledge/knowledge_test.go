package knowledge_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/domain"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/knowledge"
	maindomain "github.com/boddenberg/alts-concierge-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalDoc = `
services:
  - key: research
    title: Research Enhancement
    description: Research copilots.
    capabilities: [Summaries]
    benefits: [Speed]
intents:
  - intent: research
    patterns: [research]
    responder:
      service: research
  - intent: demo
    patterns: [demo]
    responder:
      message: Let's book a demo.
      form: demo_request
fallback:
  message: Sorry?
  options: [Schedule a demo]
quickReplies:
  - {label: Schedule a demo, intent: demo}
  - {label: Benefits, depth: benefits}
  - {label: Capabilities, depth: capabilities}
  - {label: Common Questions, depth: faq}
`

func TestDefault_LoadsEmbeddedDocument(t *testing.T) {
	kb := knowledge.Default()

	assert.Equal(t, []domain.ServiceKey{
		domain.ServiceResearch,
		domain.ServiceDueDiligence,
		domain.ServicePortfolio,
		domain.ServiceMarketTrends,
		domain.ServiceRegulatory,
	}, kb.Services())

	for _, key := range kb.Services() {
		entry, ok := kb.Entry(key)
		require.True(t, ok, key)
		assert.NotEmpty(t, entry.Title)
		assert.NotEmpty(t, entry.Description)
		assert.NotEmpty(t, entry.Capabilities)
		assert.NotEmpty(t, entry.Benefits)
		assert.NotEmpty(t, entry.FAQ)
	}
}

func TestDefault_ServiceRulesReferenceExistingEntries(t *testing.T) {
	kb := knowledge.Default()

	seen := map[string]bool{}
	for _, rule := range kb.Rules() {
		assert.False(t, seen[rule.Intent], "duplicate intent %s", rule.Intent)
		seen[rule.Intent] = true
		assert.NotEmpty(t, rule.Patterns, rule.Intent)

		if rule.Responder.Kind == domain.ResponderService {
			_, ok := kb.Entry(rule.Responder.Service)
			assert.True(t, ok, "rule %s points at missing service %s", rule.Intent, rule.Responder.Service)
		}
	}

	for _, key := range kb.Services() {
		rule, ok := kb.Rule(string(key))
		require.True(t, ok, "service %s has no rule", key)
		assert.Equal(t, domain.ResponderService, rule.Responder.Kind)
	}
}

func TestDefault_ShortcutsComeFromQuickReplies(t *testing.T) {
	kb := knowledge.Default()

	for _, phrase := range []string{
		"tell me about your services",
		"how can ai help my firm",
		"schedule a demo",
		"book a demo",
	} {
		_, ok := kb.Shortcut(phrase)
		assert.True(t, ok, phrase)
	}

	intent, ok := kb.Shortcut("research enhancement")
	require.True(t, ok)
	assert.Equal(t, "research", intent)

	_, ok = kb.Shortcut("Schedule a demo")
	assert.False(t, ok, "shortcut keys are normalized")
}

func TestEntry_ReturnsCopy(t *testing.T) {
	kb := knowledge.Default()

	e, ok := kb.Entry(domain.ServicePortfolio)
	require.True(t, ok)
	e.Benefits[0] = "changed"

	again, _ := kb.Entry(domain.ServicePortfolio)
	assert.NotEqual(t, "changed", again.Benefits[0])
}

func TestParse_Minimal(t *testing.T) {
	kb, err := knowledge.Parse([]byte(minimalDoc))
	require.NoError(t, err)

	rule, ok := kb.Rule("demo")
	require.True(t, ok)
	assert.Equal(t, domain.ResponderStatic, rule.Responder.Kind)
	assert.Equal(t, "demo_request", rule.Responder.Form)

	rule, ok = kb.Rule("research")
	require.True(t, ok)
	assert.Equal(t, domain.DepthOverview, rule.Responder.Depth)

	assert.Len(t, kb.QuickReplies(), 4)
	assert.Equal(t, "Sorry?", kb.Fallback().Message)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		from  string
		to    string
		field string
	}{
		{
			name:  "duplicate intent",
			from:  "  - intent: demo\n",
			to:    "  - intent: research\n",
			field: "intents[1].intent",
		},
		{
			name:  "empty patterns",
			from:  "patterns: [demo]",
			to:    "patterns: []",
			field: "intents[1].patterns",
		},
		{
			name:  "uppercase pattern",
			from:  "patterns: [demo]",
			to:    "patterns: [Demo]",
			field: "intents[1].patterns[0]",
		},
		{
			name:  "dangling service",
			from:  "      service: research",
			to:    "      service: portfolio",
			field: "intents[0].responder.service",
		},
		{
			name:  "reserved intent",
			from:  "  - intent: demo\n",
			to:    "  - intent: unknown\n",
			field: "intents[1].intent",
		},
		{
			name:  "undeclared option",
			from:  "options: [Schedule a demo]",
			to:    "options: [Talk to a human]",
			field: "fallback.options",
		},
		{
			name:  "follow-up label without cue",
			from:  "{label: Benefits, depth: benefits}",
			to:    "{label: Why bother, depth: benefits}",
			field: "quickReplies[1].depth",
		},
		{
			name:  "detail follow-up not declared",
			from:  "  - {label: Common Questions, depth: faq}\n",
			to:    "",
			field: "quickReplies",
		},
		{
			name:  "detail follow-up declared as shortcut",
			from:  "{label: Capabilities, depth: capabilities}",
			to:    "{label: Capabilities, intent: research}",
			field: "quickReplies",
		},
		{
			name:  "shortcut to unknown intent",
			from:  "{label: Schedule a demo, intent: demo}",
			to:    "{label: Schedule a demo, intent: pricing}",
			field: "quickReplies[0].intent",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := strings.Replace(minimalDoc, tc.from, tc.to, 1)
			require.NotEqual(t, minimalDoc, doc, "replacement did not apply")

			_, err := knowledge.Parse([]byte(doc))
			require.Error(t, err)

			var verr *maindomain.ErrValidation
			require.True(t, errors.As(err, &verr), "expected ErrValidation, got %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestParse_DetailOptionsNeedQuickReplies(t *testing.T) {
	doc := minimalDoc[:strings.Index(minimalDoc, "quickReplies:")]
	doc = strings.Replace(doc, "options: [Schedule a demo]", "options: []", 1)

	_, err := knowledge.Parse([]byte(doc))
	var verr *maindomain.ErrValidation
	require.True(t, errors.As(err, &verr), "expected ErrValidation, got %v", err)
	assert.Equal(t, "quickReplies", verr.Field)
	assert.Contains(t, verr.Message, knowledge.OptionCapabilities)

	// Without services no detail view can be rendered, so no labels are needed.
	noServices := `
intents:
  - intent: hello
    patterns: [hello]
    responder:
      message: Hi.
fallback:
  message: Sorry?
`
	_, err = knowledge.Parse([]byte(noServices))
	assert.NoError(t, err)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := knowledge.Parse([]byte("services: [unterminated"))
	require.Error(t, err)
}

func TestLoad_PrefersDiskDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalDoc), 0o600))

	kb, err := knowledge.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []domain.ServiceKey{domain.ServiceResearch}, kb.Services())
}

func TestLoad_MissingFileFallsBackToEmbedded(t *testing.T) {
	kb, err := knowledge.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Len(t, kb.Services(), 5)
}

func TestLoad_InvalidDiskDocumentIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("intents:\n  - intent: x\n    patterns: []\n"), 0o600))

	_, err := knowledge.Load(path)
	require.Error(t, err)
}
