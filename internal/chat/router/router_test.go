package router_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/domain"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/knowledge"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (*router.Router, *knowledge.Base) {
	t.Helper()
	kb := knowledge.Default()
	return router.New(kb), kb
}

var noContext = domain.ConversationContext{}

func TestRoute_ExactPhraseShortcut(t *testing.T) {
	r, _ := newRouter(t)

	for _, cc := range []domain.ConversationContext{noContext, {LastService: domain.ServicePortfolio}} {
		resp, trace := r.RouteTrace("  Tell Me About Your Services ", cc)

		assert.Equal(t, router.StageShortcut, trace.Stage)
		assert.Equal(t, "capabilities", resp.Intent)
		assert.True(t, strings.HasPrefix(resp.Message, "We offer five AI solution areas"), resp.Message)
		for _, title := range []string{
			"Research Enhancement",
			"Due Diligence Automation",
			"Portfolio Management",
			"Market Trend Analysis",
			"Regulatory Compliance",
		} {
			assert.Contains(t, resp.Message, title)
		}
	}
}

func TestRoute_DemoShortcutsShowForm(t *testing.T) {
	r, _ := newRouter(t)

	for _, phrase := range []string{"schedule a demo", "Book a Demo"} {
		resp := r.Route(phrase, domain.ConversationContext{LastService: domain.ServiceResearch})
		assert.Equal(t, "demo", resp.Intent, phrase)
		assert.Equal(t, "demo_request", resp.Form, phrase)
		assert.Empty(t, resp.Service)
	}
}

func TestRoute_ContextOverrideBeatsScoring(t *testing.T) {
	r, kb := newRouter(t)

	resp, trace := r.RouteTrace("what are the benefits", domain.ConversationContext{LastService: domain.ServicePortfolio})

	assert.Equal(t, router.StageContext, trace.Stage)
	assert.Equal(t, "portfolio", resp.Intent)
	assert.Equal(t, domain.ServicePortfolio, resp.Service)
	assert.True(t, strings.HasPrefix(resp.Message, "**Portfolio Management Benefits**"), resp.Message)

	entry, _ := kb.Entry(domain.ServicePortfolio)
	for _, b := range entry.Benefits {
		assert.Contains(t, resp.Message, "• "+b)
	}

	// Without a prior service the same question is a generic one.
	resp = r.Route("what are the benefits", noContext)
	assert.Equal(t, "ai_benefits", resp.Intent)
}

func TestRoute_ContextCues(t *testing.T) {
	r, _ := newRouter(t)
	cc := domain.ConversationContext{LastService: domain.ServiceRegulatory}

	tests := []struct {
		input   string
		heading string
	}{
		{"Capabilities", "**Regulatory Compliance Capabilities**"},
		{"what can it do? list the capabilities", "**Regulatory Compliance Capabilities**"},
		{"Benefits", "**Regulatory Compliance Benefits**"},
		{"Common Questions", "**Regulatory Compliance FAQ**"},
		{"any faq?", "**Regulatory Compliance FAQ**"},
		// capabilit is checked before benefit
		{"capabilities and benefits", "**Regulatory Compliance Capabilities**"},
	}

	for _, tc := range tests {
		resp, trace := r.RouteTrace(tc.input, cc)
		assert.Equal(t, router.StageContext, trace.Stage, tc.input)
		assert.True(t, strings.HasPrefix(resp.Message, tc.heading), "%q -> %q", tc.input, resp.Message)
		assert.Equal(t, domain.ServiceRegulatory, resp.Service)
	}
}

func TestRoute_ScoringPrefersLongerPatterns(t *testing.T) {
	r, _ := newRouter(t)

	resp, trace := r.RouteTrace("Tell me about due diligence document extraction", noContext)

	assert.Equal(t, router.StageScored, trace.Stage)
	assert.Equal(t, "dueDiligence", resp.Intent)
	assert.Equal(t, domain.ServiceDueDiligence, resp.Service)
	assert.True(t, strings.HasPrefix(resp.Message, "**Due Diligence Automation**\n\n"), resp.Message)
	assert.Contains(t, resp.Message, "Key capabilities include: Document extraction from PPMs, LPAs and side letters, "+
		"DDQ auto-population from prior responses, Red-flag detection across legal and financial terms...")
	assert.Equal(t, []string{"Capabilities", "Benefits", "Common Questions", "Schedule a demo"}, resp.Options)
}

const tieDoc = `
intents:
  - intent: generic
    patterns: [data, room]
    responder:
      message: generic
  - intent: specific
    patterns: [data room]
    responder:
      message: specific
  - intent: first
    patterns: [alpha]
    responder:
      message: first
  - intent: second
    patterns: [gamma]
    responder:
      message: second
fallback:
  message: fallback
`

func TestRoute_ScoreAndTableOrderTieBreak(t *testing.T) {
	kb, err := knowledge.Parse([]byte(tieDoc))
	require.NoError(t, err)
	r := router.New(kb)

	// "data" + "room" = 8, "data room" = 9
	resp, trace := r.RouteTrace("open the data room", noContext)
	assert.Equal(t, "specific", resp.Intent)
	assert.Equal(t, 9, trace.Score)

	// Equal scores: the earlier rule wins.
	resp = r.Route("gamma alpha", noContext)
	assert.Equal(t, "first", resp.Intent)
}

func TestScore(t *testing.T) {
	rule := domain.IntentRule{Patterns: []string{"due diligence", "diligence", "ppm"}}

	assert.Equal(t, 22, router.Score(rule, "due diligence please"))
	assert.Equal(t, 0, router.Score(rule, "nothing here"))
}

func TestRoute_TokenScan(t *testing.T) {
	r, _ := newRouter(t)

	resp, trace := r.RouteTrace("diligen", noContext)
	assert.Equal(t, router.StageToken, trace.Stage)
	assert.Equal(t, "diligen", trace.Token)
	assert.Equal(t, "dueDiligence", resp.Intent)

	// No pattern contains the whole word, and no pattern is inside it.
	resp, trace = r.RouteTrace("compliancestuff", noContext)
	assert.Equal(t, router.StageUnknown, trace.Stage)
	assert.Equal(t, domain.IntentUnknown, resp.Intent)

	// Short tokens are skipped by the scan.
	_, trace = r.RouteTrace("zzz qq", noContext)
	assert.Equal(t, router.StageUnknown, trace.Stage)
}

func TestRoute_Totality(t *testing.T) {
	r, kb := newRouter(t)

	for _, input := range []string{"", "   ", "\n\t", "!!!", "12345", "🙂🙂", strings.Repeat("x", 5000)} {
		resp := r.Route(input, noContext)
		assert.NotEmpty(t, resp.Message, "%q", input)
		assert.Equal(t, domain.IntentUnknown, resp.Intent, "%q", input)
		assert.Equal(t, kb.Fallback().Message, resp.Message)
		assert.NotEmpty(t, resp.Options)
	}
}

func TestRoute_Deterministic(t *testing.T) {
	r, _ := newRouter(t)
	cc := domain.ConversationContext{LastService: domain.ServiceMarketTrends}

	for _, input := range []string{"hello", "what are the benefits", "pricing", "diligen", "??"} {
		assert.Equal(t, r.Route(input, cc), r.Route(input, cc), input)
	}
}

func TestRoute_ResponsesDoNotShareOptions(t *testing.T) {
	r, _ := newRouter(t)

	first := r.Route("hello", noContext)
	require.NotEmpty(t, first.Options)
	first.Options[0] = "mutated"

	assert.NotEqual(t, "mutated", r.Route("hello", noContext).Options[0])
}

func TestRoute_QuickRepliesRoundTrip(t *testing.T) {
	r, kb := newRouter(t)

	for _, q := range kb.QuickReplies() {
		if q.Shortcut() {
			resp, trace := r.RouteTrace(q.Label, noContext)
			assert.Equal(t, router.StageShortcut, trace.Stage, q.Label)
			assert.Equal(t, q.Intent, resp.Intent, q.Label)
			continue
		}
		for _, svc := range kb.Services() {
			resp, trace := r.RouteTrace(q.Label, domain.ConversationContext{LastService: svc})
			assert.Equal(t, router.StageContext, trace.Stage, q.Label)
			assert.Equal(t, svc, resp.Service, q.Label)
		}
	}

	resp := r.Route("Research Enhancement", noContext)
	assert.Equal(t, "research", resp.Intent)
	assert.True(t, strings.HasPrefix(resp.Message, "**Research Enhancement**\n\n"), resp.Message)
}

func TestRoute_EveryEmittedOptionResolves(t *testing.T) {
	r, kb := newRouter(t)

	declared := map[string]bool{}
	for _, q := range kb.QuickReplies() {
		declared[domain.Normalize(q.Label)] = true
	}

	var responses []domain.Response
	for _, rule := range kb.Rules() {
		responses = append(responses, r.Route(rule.Patterns[0], noContext))
	}
	for _, svc := range kb.Services() {
		for _, d := range []domain.Depth{domain.DepthOverview, domain.DepthCapabilities, domain.DepthBenefits, domain.DepthFAQ} {
			resp, found := r.Detail(svc, d)
			require.True(t, found)
			responses = append(responses, resp)
		}
	}
	responses = append(responses, r.Route("", noContext))

	for _, resp := range responses {
		// The caller threads the service forward, exactly as ChatService does.
		cc := domain.ConversationContext{LastService: resp.Service}
		for _, opt := range resp.Options {
			assert.True(t, declared[domain.Normalize(opt)], "option %q is not a declared quick reply", opt)
			next := r.Route(opt, cc)
			assert.NotEqual(t, domain.IntentUnknown, next.Intent, "option %q from %s", opt, resp.Intent)
		}
	}
}

func TestDetail_FAQFormat(t *testing.T) {
	r, kb := newRouter(t)
	entry, _ := kb.Entry(domain.ServiceResearch)

	resp, found := r.Detail(domain.ServiceResearch, domain.DepthFAQ)
	require.True(t, found)

	parts := strings.Split(resp.Message, "\n\n")
	require.Len(t, parts, 1+len(entry.FAQ))
	assert.Equal(t, "**Research Enhancement FAQ**", parts[0])
	for i, f := range entry.FAQ {
		assert.Equal(t, "**Q: "+f.Question+"**\n"+f.Answer, parts[i+1])
	}
}

func TestRoute_UnknownServiceDegradesToFallback(t *testing.T) {
	r, kb := newRouter(t)

	first := r.Route("research enhancement", noContext)
	require.Equal(t, domain.ServiceResearch, first.Service)

	corrupted := domain.ConversationContext{LastService: "hedgeFundMagic"}
	resp, trace := r.RouteTrace("what are the benefits", corrupted)

	assert.Equal(t, router.StageUnknown, trace.Stage)
	assert.Equal(t, domain.IntentUnknown, resp.Intent)
	assert.Equal(t, kb.Fallback().Message, resp.Message)
	assert.Empty(t, resp.Service)

	_, found := r.Detail("hedgeFundMagic", domain.DepthOverview)
	assert.False(t, found)
}

func TestRoute_ConcurrentUse(t *testing.T) {
	r, _ := newRouter(t)
	want := r.Route("portfolio benefits", noContext)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.Equal(t, want, r.Route("portfolio benefits", noContext))
			}
		}()
	}
	wg.Wait()
}
