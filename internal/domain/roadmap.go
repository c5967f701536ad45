package domain

import "strings"

// OpportunityType classifies an opportunity link.
type OpportunityType string

// Opportunity types accepted from the generator.
const (
	OpportunityScholarship OpportunityType = "scholarship"
	OpportunityUniversity  OpportunityType = "university"
	OpportunityVisa        OpportunityType = "visa"
	OpportunityOther       OpportunityType = "other"
)

// ParseOpportunityType maps free text onto a known type, defaulting to other.
func ParseOpportunityType(s string) OpportunityType {
	switch t := OpportunityType(strings.ToLower(strings.TrimSpace(s))); t {
	case OpportunityScholarship, OpportunityUniversity, OpportunityVisa:
		return t
	default:
		return OpportunityOther
	}
}

// Opportunity is a single link suggested alongside the roadmap.
type Opportunity struct {
	Title string          `json:"title"`
	URL   string          `json:"url"`
	Type  OpportunityType `json:"type"`
}

// RoadmapResult is the generated relocation plan.
type RoadmapResult struct {
	Roadmap       string        `json:"roadmap"`
	Checklist     []string      `json:"checklist"`
	SOP           string        `json:"sop"`
	Opportunities []Opportunity `json:"opportunities,omitempty"`
}
