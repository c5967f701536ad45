package requirements

import (
	_ "embed"
	"fmt"
	"slices"

	"github.com/ashureev/japa-advisor/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed fallbacks.yaml
var fallbacksYAML []byte

type fallbackEntry struct {
	Country              string   `yaml:"country"`
	VisaType             string   `yaml:"visa_type"`
	VisaTypes            []string `yaml:"visa_types"`
	LanguageRequirements string   `yaml:"language_requirements"`
	Timeline             string   `yaml:"timeline"`
	Fees                 string   `yaml:"fees"`
	Documents            []string `yaml:"documents"`
	OfficialLinks        []string `yaml:"official_links"`
	SpecialNotes         []string `yaml:"special_notes"`
}

// Fallbacks holds the requirements served when scraping fails, keyed by country key.
type Fallbacks map[string]domain.VisaRequirements

// LoadFallbacks parses the embedded fallback catalogue.
func LoadFallbacks() (Fallbacks, error) {
	return parseFallbacks(fallbacksYAML)
}

func parseFallbacks(data []byte) (Fallbacks, error) {
	var raw map[string]fallbackEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse fallbacks: %w", err)
	}

	out := make(Fallbacks, len(raw))
	for key, e := range raw {
		if e.Country == "" || len(e.Documents) == 0 {
			return nil, fmt.Errorf("fallback %q: country and documents are required", key)
		}
		out[key] = domain.VisaRequirements{
			Country:              e.Country,
			VisaType:             e.VisaType,
			VisaTypes:            e.VisaTypes,
			LanguageRequirements: e.LanguageRequirements,
			Timeline:             e.Timeline,
			Fees:                 e.Fees,
			Documents:            e.Documents,
			OfficialLinks:        e.OfficialLinks,
			SpecialNotes:         e.SpecialNotes,
		}
	}
	return out, nil
}

// Get returns a copy of the fallback for key that callers may modify.
func (f Fallbacks) Get(key string) (domain.VisaRequirements, bool) {
	r, ok := f[key]
	if !ok {
		return domain.VisaRequirements{}, false
	}
	return clone(r), true
}

func clone(r domain.VisaRequirements) domain.VisaRequirements {
	r.Documents = slices.Clone(r.Documents)
	r.OfficialLinks = slices.Clone(r.OfficialLinks)
	r.VisaTypes = slices.Clone(r.VisaTypes)
	r.SpecialNotes = slices.Clone(r.SpecialNotes)
	return r
}
