// Package router maps a chat utterance plus the conversation context to
// exactly one Response.
//
// Resolution order:
//  1. exact-phrase shortcuts (quick-reply labels)
//  2. context follow-ups ("what are the benefits?" about LastService)
//  3. scored substring matching over the pattern table
//  4. word-level fallback scan
//  5. the unknown-intent reply
//
// The router holds no mutable state and performs no I/O, so one instance is
// shared by every request.
package router

import (
	"strings"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/domain"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/knowledge"
)

// Stage names the resolution step that produced a response.
type Stage string

const (
	StageShortcut Stage = "shortcut"
	StageContext  Stage = "context"
	StageScored   Stage = "scored"
	StageToken    Stage = "token"
	StageUnknown  Stage = "unknown"
)

// Tokens of this length or shorter are ignored by the fallback scan.
const minTokenLen = 3

// Trace explains how an utterance was resolved.
type Trace struct {
	Stage Stage
	// Score is the winning keyword score; only set for StageScored.
	Score int
	// Token is the word that matched; only set for StageToken.
	Token string
}

// Router resolves utterances against a knowledge base.
type Router struct {
	kb *knowledge.Base
}

// New creates a router over kb.
func New(kb *knowledge.Base) *Router {
	return &Router{kb: kb}
}

// Route resolves utterance in the given context. It never fails: anything
// unmatched resolves to the unknown-intent reply.
func (r *Router) Route(utterance string, cc domain.ConversationContext) domain.Response {
	resp, _ := r.RouteTrace(utterance, cc)
	return resp
}

// RouteTrace is Route plus the resolution trace, used for metrics and logs.
func (r *Router) RouteTrace(utterance string, cc domain.ConversationContext) (domain.Response, Trace) {
	input := domain.Normalize(utterance)

	if intent, ok := r.kb.Shortcut(input); ok {
		if rule, ok := r.kb.Rule(intent); ok {
			return r.respond(rule), Trace{Stage: StageShortcut}
		}
	}

	if cc.LastService != "" {
		if depth, ok := domain.CueDepth(input); ok {
			resp, found := r.Detail(cc.LastService, depth)
			if !found {
				return resp, Trace{Stage: StageUnknown}
			}
			return resp, Trace{Stage: StageContext}
		}
	}

	if rule, score, ok := r.bestScore(input); ok {
		return r.respond(rule), Trace{Stage: StageScored, Score: score}
	}

	if rule, token, ok := r.scanTokens(input); ok {
		return r.respond(rule), Trace{Stage: StageToken, Token: token}
	}

	return r.unknown(), Trace{Stage: StageUnknown}
}

// Score returns the keyword score of rule against a normalized input: the sum
// of the lengths of every pattern that occurs in the input.
func Score(rule domain.IntentRule, input string) int {
	score := 0
	for _, p := range rule.Patterns {
		if strings.Contains(input, p) {
			score += len(p)
		}
	}
	return score
}

// bestScore picks the rule with the strictly highest positive score.
// Equal scores keep the earlier rule.
func (r *Router) bestScore(input string) (domain.IntentRule, int, bool) {
	var (
		best      domain.IntentRule
		bestScore int
	)
	for _, rule := range r.kb.Rules() {
		if s := Score(rule, input); s > bestScore {
			best, bestScore = rule, s
		}
	}
	return best, bestScore, bestScore > 0
}

// scanTokens is the last resort before the unknown reply. Unlike bestScore,
// the token must be contained in a pattern (not the other way round), so a
// truncated word like "diligen" still finds "due diligence".
func (r *Router) scanTokens(input string) (domain.IntentRule, string, bool) {
	for _, token := range strings.Fields(input) {
		if len(token) <= minTokenLen {
			continue
		}
		for _, rule := range r.kb.Rules() {
			for _, p := range rule.Patterns {
				if strings.Contains(p, token) {
					return rule, token, true
				}
			}
		}
	}
	return domain.IntentRule{}, "", false
}

func (r *Router) respond(rule domain.IntentRule) domain.Response {
	switch rule.Responder.Kind {
	case domain.ResponderService:
		resp, found := r.Detail(rule.Responder.Service, rule.Responder.Depth)
		if found {
			resp.Intent = rule.Intent
		}
		return resp
	default:
		return domain.Response{
			Intent:  rule.Intent,
			Message: rule.Responder.Message,
			Options: cloneOptions(rule.Responder.Options),
			Form:    rule.Responder.Form,
		}
	}
}

func (r *Router) unknown() domain.Response {
	fb := r.kb.Fallback()
	return domain.Response{
		Intent:  domain.IntentUnknown,
		Message: fb.Message,
		Options: cloneOptions(fb.Options),
		Form:    fb.Form,
	}
}

func cloneOptions(opts []string) []string {
	if len(opts) == 0 {
		return nil
	}
	out := make([]string, len(opts))
	copy(out, opts)
	return out
}
