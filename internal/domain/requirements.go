package domain

import "time"

// DefaultNationality is the applicant nationality sent with requirement lookups.
const DefaultNationality = "Nigeria"

// VisaRequest asks for the study visa requirements of a destination.
type VisaRequest struct {
	Country     string `json:"country"`
	Nationality string `json:"nationality"`
}

// VisaRequirements describes what a destination asks of a student applicant.
type VisaRequirements struct {
	Country              string   `json:"country"`
	VisaType             string   `json:"visa_type"`
	LanguageRequirements string   `json:"language_requirements"`
	Timeline             string   `json:"timeline"`
	Documents            []string `json:"documents"`
	OfficialLinks        []string `json:"official_links"`

	VisaTypes    []string `json:"visa_types,omitempty"`
	Fees         string   `json:"fees,omitempty"`
	SpecialNotes []string `json:"special_notes,omitempty"`
	UsedFallback bool     `json:"used_fallback,omitempty"`
	LastUpdated  string   `json:"last_updated,omitempty"`
}

// CachedRequirements is a stored requirements lookup for one destination.
type CachedRequirements struct {
	Country      string
	Requirements VisaRequirements
	UsedFallback bool
	FetchedAt    time.Time
}

// Fresh reports whether the entry is younger than ttl at now.
func (c *CachedRequirements) Fresh(now time.Time, ttl time.Duration) bool {
	if c == nil {
		return false
	}
	return now.Sub(c.FetchedAt) < ttl
}
