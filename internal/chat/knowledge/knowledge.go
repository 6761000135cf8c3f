// Package knowledge loads the static tables behind the concierge chat: the
// service knowledge base, the ordered pattern table, the fallback reply and
// the quick-reply labels shared with the UI.
//
// The tables ship as an embedded YAML document. A document on disk can replace
// it (KNOWLEDGE_PATH) so marketing copy changes without a rebuild. Either way
// the result is validated once and never mutated afterwards.
package knowledge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/domain"
	maindomain "github.com/boddenberg/alts-concierge-bfa-go/internal/domain"

	"gopkg.in/yaml.v3"
)

// Quick-reply labels emitted by service detail views. A document that
// declares any service must declare these labels: the follow-ups with the
// depth they select and the demo label as a shortcut.
const (
	OptionCapabilities = "Capabilities"
	OptionBenefits     = "Benefits"
	OptionQuestions    = "Common Questions"
	OptionDemo         = "Schedule a demo"
)

var detailFollowUps = []struct {
	label string
	depth domain.Depth
}{
	{OptionCapabilities, domain.DepthCapabilities},
	{OptionBenefits, domain.DepthBenefits},
	{OptionQuestions, domain.DepthFAQ},
}

type document struct {
	Services     []domain.KnowledgeEntry `yaml:"services"`
	Intents      []ruleDoc               `yaml:"intents"`
	Fallback     responderDoc            `yaml:"fallback"`
	QuickReplies []domain.QuickReply     `yaml:"quickReplies"`
}

type ruleDoc struct {
	Intent    string       `yaml:"intent"`
	Patterns  []string     `yaml:"patterns"`
	Responder responderDoc `yaml:"responder"`
}

type responderDoc struct {
	Message string            `yaml:"message"`
	Options []string          `yaml:"options"`
	Form    string            `yaml:"form"`
	Service domain.ServiceKey `yaml:"service"`
	Depth   domain.Depth      `yaml:"depth"`
}

func (r responderDoc) toResponder() domain.Responder {
	if r.Service != "" {
		return domain.ServiceResponder(r.Service, r.Depth)
	}
	return domain.StaticResponder(r.Message, r.Options, r.Form)
}

// Base is the validated, read-only set of tables.
type Base struct {
	entries   map[domain.ServiceKey]domain.KnowledgeEntry
	order     []domain.ServiceKey
	rules     []domain.IntentRule
	byIntent  map[string]int
	replies   []domain.QuickReply
	shortcuts map[string]string
	fallback  domain.Responder
}

// Load reads the document at path, or the embedded one when path is empty or
// does not exist. A document that exists but fails validation is an error;
// it never falls back silently.
func Load(path string) (*Base, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			b, err := Parse(data)
			if err != nil {
				return nil, fmt.Errorf("knowledge document %s: %w", path, err)
			}
			return b, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("read knowledge document: %w", err)
		}
	}
	return Parse(embeddedDocument)
}

// Default returns the embedded tables. The embedded document is covered by
// tests, so a failure here is a build defect.
func Default() *Base {
	b, err := Parse(embeddedDocument)
	if err != nil {
		panic("embedded knowledge document: " + err.Error())
	}
	return b
}

// Parse decodes and validates a knowledge document.
func Parse(data []byte) (*Base, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode knowledge document: %w", err)
	}

	b := &Base{
		entries:   make(map[domain.ServiceKey]domain.KnowledgeEntry, len(doc.Services)),
		byIntent:  make(map[string]int, len(doc.Intents)),
		shortcuts: make(map[string]string),
		fallback:  doc.Fallback.toResponder(),
	}

	for i, s := range doc.Services {
		field := fmt.Sprintf("services[%d]", i)
		if s.Key == "" {
			return nil, invalid(field+".key", "service key is required")
		}
		if _, dup := b.entries[s.Key]; dup {
			return nil, invalid(field+".key", fmt.Sprintf("duplicate service key %q", s.Key))
		}
		if s.Title == "" {
			return nil, invalid(field+".title", "title is required")
		}
		b.entries[s.Key] = s
		b.order = append(b.order, s.Key)
	}

	for i, r := range doc.Intents {
		field := fmt.Sprintf("intents[%d]", i)
		if r.Intent == "" {
			return nil, invalid(field+".intent", "intent is required")
		}
		if r.Intent == domain.IntentUnknown {
			return nil, invalid(field+".intent", "intent name is reserved for the fallback")
		}
		if _, dup := b.byIntent[r.Intent]; dup {
			return nil, invalid(field+".intent", fmt.Sprintf("duplicate intent %q", r.Intent))
		}
		if len(r.Patterns) == 0 {
			return nil, invalid(field+".patterns", "at least one pattern is required")
		}
		for j, p := range r.Patterns {
			if p == "" || p != domain.Normalize(p) {
				return nil, invalid(fmt.Sprintf("%s.patterns[%d]", field, j),
					fmt.Sprintf("pattern %q must be non-empty, trimmed and lowercase", p))
			}
		}

		resp := r.Responder.toResponder()
		switch resp.Kind {
		case domain.ResponderService:
			if _, ok := b.entries[resp.Service]; !ok {
				return nil, invalid(field+".responder.service", fmt.Sprintf("unknown service %q", resp.Service))
			}
			if !resp.Depth.Valid() {
				return nil, invalid(field+".responder.depth", fmt.Sprintf("unknown depth %q", resp.Depth))
			}
		default:
			if resp.Message == "" {
				return nil, invalid(field+".responder.message", "static responder needs a message")
			}
		}

		b.byIntent[r.Intent] = len(b.rules)
		b.rules = append(b.rules, domain.IntentRule{
			Intent:    r.Intent,
			Patterns:  r.Patterns,
			Responder: resp,
		})
	}

	if b.fallback.Kind != domain.ResponderStatic || b.fallback.Message == "" {
		return nil, invalid("fallback", "fallback must be a static responder with a message")
	}

	labels := make(map[string]bool, len(doc.QuickReplies))
	declared := make(map[string]domain.QuickReply, len(doc.QuickReplies))
	for i, q := range doc.QuickReplies {
		field := fmt.Sprintf("quickReplies[%d]", i)
		key := domain.Normalize(q.Label)
		if key == "" {
			return nil, invalid(field+".label", "label is required")
		}
		if labels[key] {
			return nil, invalid(field+".label", fmt.Sprintf("duplicate label %q", q.Label))
		}
		labels[key] = true
		declared[key] = q

		switch {
		case q.Intent != "" && q.Depth != "":
			return nil, invalid(field, "a quick reply is either a shortcut (intent) or a follow-up (depth)")
		case q.Intent != "":
			if _, ok := b.byIntent[q.Intent]; !ok {
				return nil, invalid(field+".intent", fmt.Sprintf("unknown intent %q", q.Intent))
			}
			b.shortcuts[key] = q.Intent
		case q.Depth != "":
			// A follow-up only works if its own text carries the cue for its depth.
			if d, ok := domain.CueDepth(key); !ok || d != q.Depth {
				return nil, invalid(field+".depth",
					fmt.Sprintf("label %q does not select depth %q", q.Label, q.Depth))
			}
		default:
			return nil, invalid(field, "quick reply needs an intent or a depth")
		}
		b.replies = append(b.replies, q)
	}

	checkOptions := func(field string, options []string) error {
		for _, o := range options {
			if !labels[domain.Normalize(o)] {
				return invalid(field, fmt.Sprintf("option %q is not a declared quick reply", o))
			}
		}
		return nil
	}
	for i, r := range b.rules {
		if err := checkOptions(fmt.Sprintf("intents[%d].responder.options", i), r.Responder.Options); err != nil {
			return nil, err
		}
	}
	if err := checkOptions("fallback.options", b.fallback.Options); err != nil {
		return nil, err
	}
	if len(b.order) > 0 {
		if err := checkDetailOptions(declared); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// checkDetailOptions makes sure every label a detail view emits routes back
// into the conversation.
func checkDetailOptions(declared map[string]domain.QuickReply) error {
	for _, f := range detailFollowUps {
		q, ok := declared[domain.Normalize(f.label)]
		if !ok || q.Depth != f.depth {
			return invalid("quickReplies",
				fmt.Sprintf("detail option %q must be declared as a follow-up with depth %q", f.label, f.depth))
		}
	}
	if q, ok := declared[domain.Normalize(OptionDemo)]; !ok || q.Intent == "" {
		return invalid("quickReplies",
			fmt.Sprintf("detail option %q must be declared as a shortcut", OptionDemo))
	}
	return nil
}

func invalid(field, msg string) error {
	return &maindomain.ErrValidation{Field: field, Message: msg}
}

// Entry returns the knowledge entry for key.
func (b *Base) Entry(key domain.ServiceKey) (domain.KnowledgeEntry, bool) {
	e, ok := b.entries[key]
	if !ok {
		return domain.KnowledgeEntry{}, false
	}
	e.Capabilities = slices.Clone(e.Capabilities)
	e.Benefits = slices.Clone(e.Benefits)
	e.FAQ = slices.Clone(e.FAQ)
	return e, true
}

// Services returns the service keys in document order.
func (b *Base) Services() []domain.ServiceKey {
	return slices.Clone(b.order)
}

// Rules returns the pattern table in priority order. The returned rules share
// their pattern slices with the base; callers must not modify them.
func (b *Base) Rules() []domain.IntentRule {
	return b.rules
}

// Rule looks up a rule by intent name.
func (b *Base) Rule(intent string) (domain.IntentRule, bool) {
	i, ok := b.byIntent[intent]
	if !ok {
		return domain.IntentRule{}, false
	}
	return b.rules[i], true
}

// QuickReplies returns every declared quick-reply label.
func (b *Base) QuickReplies() []domain.QuickReply {
	return slices.Clone(b.replies)
}

// Shortcut returns the intent an exact normalized phrase routes to.
func (b *Base) Shortcut(normalized string) (string, bool) {
	intent, ok := b.shortcuts[normalized]
	return intent, ok
}

// Fallback returns the unknown-intent responder.
func (b *Base) Fallback() domain.Responder {
	return b.fallback
}
