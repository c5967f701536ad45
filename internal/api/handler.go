// Package api provides HTTP handlers for the advisor API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ashureev/japa-advisor/internal/domain"
	"github.com/ashureev/japa-advisor/internal/requirements"
	"github.com/ashureev/japa-advisor/internal/store"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 64 << 10

// RoadmapGenerator produces a roadmap for a profile.
type RoadmapGenerator interface {
	Generate(ctx context.Context, profile domain.ProfileInput) (*domain.RoadmapResult, error)
}

// RequirementsService looks up visa requirements for supported destinations.
type RequirementsService interface {
	Lookup(ctx context.Context, req domain.VisaRequest) (*domain.VisaRequirements, error)
	Countries() []requirements.Country
}

// Handler serves the advisor endpoints.
type Handler struct {
	roadmaps     RoadmapGenerator
	requirements RequirementsService
	repo         store.Repository
	nationality  string
}

// NewHandler creates a new Handler. repo is only used for health checks and may be nil.
func NewHandler(roadmaps RoadmapGenerator, reqs RequirementsService, repo store.Repository, nationality string) *Handler {
	if nationality == "" {
		nationality = domain.DefaultNationality
	}
	return &Handler{
		roadmaps:     roadmaps,
		requirements: reqs,
		repo:         repo,
		nationality:  nationality,
	}
}

// RegisterRoutes mounts the advisor endpoints. roadmapLimit wraps the
// roadmap endpoint, which is the only one that spends LLM tokens.
func (h *Handler) RegisterRoutes(r chi.Router, roadmapLimit func(http.Handler) http.Handler) {
	r.With(roadmapLimit).Post("/generate-roadmap", h.GenerateRoadmap)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", h.Welcome)
		r.Get("/health", h.Health)
		r.Get("/countries", h.Countries)
		r.Post("/requirements", h.Requirements)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a single JSON object from a size-limited body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large")
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}
