package tui

import (
	"fmt"
	"strings"

	"github.com/ashureev/japa-advisor/internal/advisor"
	"github.com/ashureev/japa-advisor/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	headingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	buttonStyle  = lipgloss.NewStyle().Padding(0, 2).Background(lipgloss.Color("#5B8DEF")).Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	disabledBtn  = lipgloss.NewStyle().Padding(0, 2).Background(lipgloss.Color("#444444")).Foreground(lipgloss.Color("#999999"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
)

// RenderState renders the outcome of a submission. Idle and pending states
// render nothing; the form shows those.
func RenderState(s advisor.State, width int) string {
	switch s.Phase {
	case advisor.PhaseFailed:
		return errorStyle.Render(s.Error)
	case advisor.PhaseSucceeded:
		sections := []string{renderRoadmap(s.Roadmap, width)}
		sections = append(sections, renderRequirements(s.Requirements, width))
		return strings.Join(sections, "\n\n")
	default:
		return ""
	}
}

func renderRoadmap(r *domain.RoadmapResult, width int) string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Your Relocation Roadmap"))
	b.WriteString("\n")
	b.WriteString(wrap(r.Roadmap, width))

	if len(r.Checklist) > 0 {
		b.WriteString("\n\n")
		b.WriteString(headingStyle.Render("Checklist"))
		for _, item := range r.Checklist {
			b.WriteString("\n")
			b.WriteString(wrap("[ ] "+item, width))
		}
	}

	if r.SOP != "" {
		b.WriteString("\n\n")
		b.WriteString(headingStyle.Render("Statement of Purpose"))
		b.WriteString("\n")
		b.WriteString(wrap(r.SOP, width))
	}

	if len(r.Opportunities) > 0 {
		b.WriteString("\n\n")
		b.WriteString(headingStyle.Render("Opportunities"))
		for _, o := range r.Opportunities {
			b.WriteString("\n")
			b.WriteString(fmt.Sprintf("%s %s %s",
				labelStyle.Render("["+string(o.Type)+"]"),
				o.Title,
				mutedStyle.Render(o.URL)))
		}
	}
	return b.String()
}

func renderRequirements(r *domain.VisaRequirements, width int) string {
	if r == nil {
		return mutedStyle.Render("Visa requirements are not available for this destination right now.")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Visa Requirements: " + r.Country))
	if r.UsedFallback {
		b.WriteString(" ")
		b.WriteString(mutedStyle.Render("(summary, official site unavailable)"))
	}

	field := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(label + ": "))
		b.WriteString(value)
	}
	field("Visa type", r.VisaType)
	field("Language", r.LanguageRequirements)
	field("Timeline", r.Timeline)
	field("Fees", r.Fees)
	if len(r.VisaTypes) > 0 {
		field("Other routes", strings.Join(r.VisaTypes, ", "))
	}

	list := func(heading string, items []string) {
		if len(items) == 0 {
			return
		}
		b.WriteString("\n")
		b.WriteString(headingStyle.Render(heading))
		for _, item := range items {
			b.WriteString("\n")
			b.WriteString(wrap("- "+item, width))
		}
	}
	list("Documents", r.Documents)
	list("Notes", r.SpecialNotes)
	list("Official links", r.OfficialLinks)

	if r.LastUpdated != "" {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("Last updated " + r.LastUpdated))
	}
	return b.String()
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(max(20, width)).Render(s)
}
