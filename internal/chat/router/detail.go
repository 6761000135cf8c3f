package router

import (
	"fmt"
	"strings"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/domain"
	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/knowledge"
)

// overviewCapabilities is how many capabilities the overview teases.
const overviewCapabilities = 3

// Detail renders a knowledge-base entry at the requested depth. An unknown
// key yields the unknown-intent reply and found=false instead of failing.
func (r *Router) Detail(key domain.ServiceKey, depth domain.Depth) (resp domain.Response, found bool) {
	entry, ok := r.kb.Entry(key)
	if !ok {
		return r.unknown(), false
	}

	resp = domain.Response{Intent: string(key), Service: key}

	switch depth.OrDefault() {
	case domain.DepthCapabilities:
		resp.Message = fmt.Sprintf("**%s Capabilities**\n\n%s", entry.Title, bullets(entry.Capabilities))
		resp.Options = []string{knowledge.OptionBenefits, knowledge.OptionQuestions, knowledge.OptionDemo}
	case domain.DepthBenefits:
		resp.Message = fmt.Sprintf("**%s Benefits**\n\n%s", entry.Title, bullets(entry.Benefits))
		resp.Options = []string{knowledge.OptionCapabilities, knowledge.OptionQuestions, knowledge.OptionDemo}
	case domain.DepthFAQ:
		qa := make([]string, 0, len(entry.FAQ))
		for _, f := range entry.FAQ {
			qa = append(qa, fmt.Sprintf("**Q: %s**\n%s", f.Question, f.Answer))
		}
		resp.Message = fmt.Sprintf("**%s FAQ**\n\n%s", entry.Title, strings.Join(qa, "\n\n"))
		resp.Options = []string{knowledge.OptionCapabilities, knowledge.OptionBenefits, knowledge.OptionDemo}
	default:
		teaser := entry.Capabilities
		if len(teaser) > overviewCapabilities {
			teaser = teaser[:overviewCapabilities]
		}
		resp.Message = fmt.Sprintf("**%s**\n\n%s", entry.Title, entry.Description)
		if len(teaser) > 0 {
			resp.Message += fmt.Sprintf("\n\nKey capabilities include: %s...", strings.Join(teaser, ", "))
		}
		resp.Options = []string{knowledge.OptionCapabilities, knowledge.OptionBenefits, knowledge.OptionQuestions, knowledge.OptionDemo}
	}
	return resp, true
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "• " + it
	}
	return strings.Join(lines, "\n")
}
