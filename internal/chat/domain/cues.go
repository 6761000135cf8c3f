package domain

import "strings"

// ContextCue maps a substring of a follow-up question to the depth it asks for.
type ContextCue struct {
	Cue   string
	Depth Depth
}

// ContextCues are checked in order against the normalized utterance when the
// session already has a LastService. The first cue contained in the input wins.
var ContextCues = []ContextCue{
	{Cue: "capabilit", Depth: DepthCapabilities},
	{Cue: "benefit", Depth: DepthBenefits},
	{Cue: "question", Depth: DepthFAQ},
	{Cue: "faq", Depth: DepthFAQ},
}

// CueDepth returns the depth selected by the first cue found in normalized.
func CueDepth(normalized string) (Depth, bool) {
	for _, c := range ContextCues {
		if strings.Contains(normalized, c.Cue) {
			return c.Depth, true
		}
	}
	return "", false
}
