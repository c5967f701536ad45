package advisor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/japa-advisor/internal/domain"
	"github.com/google/uuid"
)

var (
	// ErrIncompleteProfile is returned when a profile field is empty after trimming.
	ErrIncompleteProfile = errors.New("profile incomplete")
	// ErrSubmissionInFlight is returned when Submit is called while another submission is pending.
	ErrSubmissionInFlight = errors.New("submission already in flight")

	errEmptyRoadmap = errors.New("backend returned no roadmap")
)

// Backend performs the two requests a submission is made of.
type Backend interface {
	GenerateRoadmap(ctx context.Context, profile domain.ProfileInput) (*domain.RoadmapResult, error)
	FetchRequirements(ctx context.Context, req domain.VisaRequest) (*domain.VisaRequirements, error)
}

// Observer receives every state transition, in order.
type Observer func(State)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNationality overrides the nationality sent with requirement lookups.
func WithNationality(nationality string) Option {
	return func(o *Orchestrator) {
		if nationality != "" {
			o.nationality = nationality
		}
	}
}

// WithObserver registers a callback for state transitions.
func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}

// Orchestrator coordinates a profile submission: the roadmap request first,
// then the visa requirements lookup once the roadmap has arrived.
// At most one submission runs at a time.
type Orchestrator struct {
	backend     Backend
	nationality string
	logger      *slog.Logger
	observers   []Observer
	newID       func() string

	mu    sync.Mutex
	state State
}

// New creates an orchestrator in the idle phase.
func New(backend Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:     backend,
		nationality: domain.DefaultNationality,
		logger:      slog.Default(),
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns a snapshot of the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// CanSubmit reports whether the submission trigger should be enabled for profile.
func (o *Orchestrator) CanSubmit(profile domain.ProfileInput) bool {
	return profile.Complete() && !o.State().Pending()
}

// Submit runs one submission to completion and returns the terminal state.
//
// An incomplete profile or a pending submission is rejected with an error and
// leaves the state untouched. Every accepted submission ends in PhaseSucceeded
// or PhaseFailed; request failures are reported through the state, not the error.
func (o *Orchestrator) Submit(ctx context.Context, profile domain.ProfileInput) (State, error) {
	if !profile.Complete() {
		return o.State(), ErrIncompleteProfile
	}

	o.mu.Lock()
	if o.state.Pending() {
		current := o.state
		o.mu.Unlock()
		return current, ErrSubmissionInFlight
	}
	id := o.newID()
	o.state = State{Phase: PhasePending, SubmissionID: id}
	pending := o.state
	o.mu.Unlock()
	o.notify(pending)

	logger := o.logger.With("submission_id", id, "target_country", profile.TargetCountry)
	start := time.Now()

	roadmap, err := o.backend.GenerateRoadmap(ctx, profile)
	if err == nil && roadmap == nil {
		err = errEmptyRoadmap
	}
	if err != nil {
		logger.Error("Roadmap generation failed", "error", err, "duration", time.Since(start))
		return o.transition(State{Phase: PhaseFailed, SubmissionID: id, Error: FailureMessage}), nil
	}

	final := State{Phase: PhaseSucceeded, SubmissionID: id, Roadmap: roadmap}

	req := domain.VisaRequest{Country: profile.TargetCountry, Nationality: o.nationality}
	requirements, err := o.backend.FetchRequirements(ctx, req)
	if err != nil {
		logger.Warn("Visa requirements unavailable", "error", err)
	} else {
		final.Requirements = requirements
	}

	logger.Info("Submission completed",
		"has_requirements", final.Requirements != nil,
		"duration", time.Since(start))
	return o.transition(final), nil
}

func (o *Orchestrator) transition(next State) State {
	o.mu.Lock()
	o.state = next
	o.mu.Unlock()

	o.notify(next)
	return next
}

func (o *Orchestrator) notify(s State) {
	for _, fn := range o.observers {
		fn(s)
	}
}
