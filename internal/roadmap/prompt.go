package roadmap

import (
	"fmt"
	"strings"

	"github.com/ashureev/japa-advisor/internal/domain"
)

const systemPrompt = "You are an education and immigration advisor helping applicants plan study and work abroad."

// buildPrompt renders the user message for a profile.
func buildPrompt(p domain.ProfileInput) string {
	var b strings.Builder

	b.WriteString("An applicant wants to relocate abroad. Their profile:\n")
	fmt.Fprintf(&b, "- Name: %s\n", strings.TrimSpace(p.FullName))
	fmt.Fprintf(&b, "- Degree: %s\n", strings.TrimSpace(p.Degree))
	fmt.Fprintf(&b, "- Work experience: %s\n", strings.TrimSpace(p.WorkExperience))
	fmt.Fprintf(&b, "- Target country: %s\n", strings.TrimSpace(p.TargetCountry))
	fmt.Fprintf(&b, "- Goal: %s\n\n", strings.TrimSpace(p.Goal))

	b.WriteString("Produce:\n")
	b.WriteString("1. A step-by-step roadmap to reach the goal in the target country.\n")
	b.WriteString("2. A checklist of 5 to 7 documents to prepare.\n")
	b.WriteString("3. A short statement of purpose draft written in the applicant's voice.\n")
	b.WriteString("4. 3 to 5 real opportunities (scholarships, universities, visa programs) with working URLs.\n\n")

	b.WriteString("Respond with a single JSON object and nothing else, shaped exactly like:\n")
	b.WriteString(`{"roadmap": "...", "checklist": ["..."], "sop": "...", ` +
		`"opportunities": [{"title": "...", "url": "https://...", "type": "scholarship|university|visa|other"}]}`)
	b.WriteString("\n")

	return b.String()
}
