// Package advisor implements the submission orchestrator that turns a profile
// into a roadmap and, when available, the destination's visa requirements.
package advisor

import (
	"fmt"

	"github.com/ashureev/japa-advisor/internal/domain"
)

// FailureMessage is the only error text ever shown to users for a failed submission.
const FailureMessage = "Failed to generate roadmap. Please check your connection and try again."

// Phase is the lifecycle position of a submission.
type Phase int

// Submission phases.
const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseSucceeded
	PhaseFailed
)

var phaseNames = [...]string{"idle", "pending", "succeeded", "failed"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Terminal reports whether the phase ends a submission.
func (p Phase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// State is a snapshot of the orchestrator.
//
// Roadmap is set only in PhaseSucceeded. Requirements may be nil in
// PhaseSucceeded when the visa lookup failed. Error is set only in PhaseFailed.
type State struct {
	Phase        Phase                    `json:"phase"`
	SubmissionID string                   `json:"submission_id,omitempty"`
	Roadmap      *domain.RoadmapResult    `json:"result,omitempty"`
	Requirements *domain.VisaRequirements `json:"requirements,omitempty"`
	Error        string                   `json:"error,omitempty"`
}

// Pending reports whether a submission is in flight.
func (s State) Pending() bool {
	return s.Phase == PhasePending
}
