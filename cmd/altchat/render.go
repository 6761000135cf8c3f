package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/boddenberg/alts-concierge-bfa-go/internal/chat/domain"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	optionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	indexStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	formStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("214")).Padding(0, 1)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var formTitles = map[string]string{
	"demo_request": "Demo request form: name, firm, email, preferred time",
	"contact":      "Contact form: name, firm, email, message",
}

type renderer struct {
	md *glamour.TermRenderer
}

func newRenderer(width int) *renderer {
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return &renderer{}
	}
	return &renderer{md: md}
}

// Reply renders a router response: markdown body, form notice, numbered
// options.
func (r *renderer) Reply(resp domain.Response) string {
	var b strings.Builder
	b.WriteString(r.markdown(resp.Message))

	if resp.Form != "" {
		title, ok := formTitles[resp.Form]
		if !ok {
			title = "Form: " + resp.Form
		}
		b.WriteString("\n")
		b.WriteString(formStyle.Render(title))
		b.WriteString("\n")
	}

	for i, opt := range resp.Options {
		b.WriteString("\n")
		b.WriteString(indexStyle.Render(fmt.Sprintf("  [%d] ", i+1)))
		b.WriteString(optionStyle.Render(opt))
	}
	if len(resp.Options) > 0 {
		b.WriteString("\n")
	}
	return b.String()
}

func (r *renderer) markdown(md string) string {
	if r.md == nil {
		return md
	}
	out, err := r.md.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n ")
}

func (r *renderer) Prompt() string {
	return promptStyle.Render("you › ")
}

func (r *renderer) Notice(msg string) string {
	return noticeStyle.Render(msg)
}

func (r *renderer) Error(err error) string {
	return errorStyle.Render("error: " + err.Error())
}

// pickOption maps "2" to the second offered option; anything else is sent
// verbatim.
func pickOption(line string, options []string) string {
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(options) {
		return line
	}
	return options[n-1]
}
