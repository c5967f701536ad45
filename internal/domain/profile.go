// Package domain defines the core types shared by the advisor client and server.
package domain

import (
	"fmt"
	"strings"
)

// Field names a single ProfileInput field by its JSON key.
type Field string

// Profile fields in form order.
const (
	FieldFullName       Field = "fullName"
	FieldDegree         Field = "degree"
	FieldWorkExperience Field = "workExperience"
	FieldTargetCountry  Field = "targetCountry"
	FieldGoal           Field = "goal"
)

// Fields lists every profile field in the order forms present them.
var Fields = []Field{
	FieldFullName,
	FieldDegree,
	FieldWorkExperience,
	FieldTargetCountry,
	FieldGoal,
}

// Label returns a human-readable label for the field.
func (f Field) Label() string {
	switch f {
	case FieldFullName:
		return "Full Name"
	case FieldDegree:
		return "Degree"
	case FieldWorkExperience:
		return "Work Experience"
	case FieldTargetCountry:
		return "Target Country"
	case FieldGoal:
		return "Goal"
	default:
		return string(f)
	}
}

// ProfileInput is the user profile submitted for roadmap generation.
// Values are kept as typed; completeness is judged on trimmed values.
type ProfileInput struct {
	FullName       string `json:"fullName"`
	Degree         string `json:"degree"`
	WorkExperience string `json:"workExperience"`
	TargetCountry  string `json:"targetCountry"`
	Goal           string `json:"goal"`
}

// Get returns the current value of a field.
func (p ProfileInput) Get(f Field) string {
	switch f {
	case FieldFullName:
		return p.FullName
	case FieldDegree:
		return p.Degree
	case FieldWorkExperience:
		return p.WorkExperience
	case FieldTargetCountry:
		return p.TargetCountry
	case FieldGoal:
		return p.Goal
	default:
		return ""
	}
}

// With returns a copy of p with field f replaced by value.
func (p ProfileInput) With(f Field, value string) (ProfileInput, error) {
	switch f {
	case FieldFullName:
		p.FullName = value
	case FieldDegree:
		p.Degree = value
	case FieldWorkExperience:
		p.WorkExperience = value
	case FieldTargetCountry:
		p.TargetCountry = value
	case FieldGoal:
		p.Goal = value
	default:
		return p, fmt.Errorf("unknown profile field %q", f)
	}
	return p, nil
}

// MissingFields returns the fields that are empty after trimming whitespace.
func (p ProfileInput) MissingFields() []Field {
	var missing []Field
	for _, f := range Fields {
		if strings.TrimSpace(p.Get(f)) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Complete reports whether every field is non-empty after trimming.
func (p ProfileInput) Complete() bool {
	return len(p.MissingFields()) == 0
}
