package api

import (
	"context"
	"fmt"

	"github.com/ashureev/japa-advisor/internal/advisor"
	"github.com/ashureev/japa-advisor/internal/domain"
)

// LocalBackend serves orchestrator requests in-process through the same
// services as the HTTP handlers.
type LocalBackend struct {
	Roadmaps     RoadmapGenerator
	Requirements RequirementsService
}

// GenerateRoadmap rejects incomplete profiles, like POST /generate-roadmap,
// and otherwise calls the generator.
func (b LocalBackend) GenerateRoadmap(ctx context.Context, profile domain.ProfileInput) (*domain.RoadmapResult, error) {
	if missing := profile.MissingFields(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %v", advisor.ErrIncompleteProfile, missing)
	}
	return b.Roadmaps.Generate(ctx, profile)
}

// FetchRequirements calls the requirements service.
func (b LocalBackend) FetchRequirements(ctx context.Context, req domain.VisaRequest) (*domain.VisaRequirements, error) {
	return b.Requirements.Lookup(ctx, req)
}
