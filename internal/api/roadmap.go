package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/japa-advisor/internal/domain"
	"github.com/ashureev/japa-advisor/internal/roadmap"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

type validationError struct {
	Error   string         `json:"error"`
	Missing []domain.Field `json:"missing,omitempty"`
}

// GenerateRoadmap handles POST /generate-roadmap.
func (h *Handler) GenerateRoadmap(w http.ResponseWriter, r *http.Request) {
	var profile domain.ProfileInput
	if err := decodeJSON(w, r, &profile); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if missing := profile.MissingFields(); len(missing) > 0 {
		JSON(w, http.StatusBadRequest, validationError{Error: "all profile fields are required", Missing: missing})
		return
	}

	requestID := chiMiddleware.GetReqID(r.Context())
	result, err := h.roadmaps.Generate(r.Context(), profile)
	if err != nil {
		slog.Error("Roadmap generation failed",
			"error", err,
			"request_id", requestID,
			"target_country", profile.TargetCountry)

		switch {
		case errors.Is(err, roadmap.ErrLLMTimeout):
			Error(w, http.StatusGatewayTimeout, "roadmap generation timed out")
		case errors.Is(err, roadmap.ErrMalformedOutput):
			Error(w, http.StatusBadGateway, "failed to parse roadmap response")
		default:
			Error(w, http.StatusBadGateway, "roadmap generation failed")
		}
		return
	}

	JSON(w, http.StatusOK, result)
}
