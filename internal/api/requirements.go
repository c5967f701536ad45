package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ashureev/japa-advisor/internal/domain"
	"github.com/ashureev/japa-advisor/internal/requirements"
)

// Requirements handles POST /api/requirements.
func (h *Handler) Requirements(w http.ResponseWriter, r *http.Request) {
	var req domain.VisaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Country = strings.TrimSpace(req.Country)
	if req.Country == "" {
		Error(w, http.StatusBadRequest, "country is required")
		return
	}
	if strings.TrimSpace(req.Nationality) == "" {
		req.Nationality = h.nationality
	}

	result, err := h.requirements.Lookup(r.Context(), req)
	if errors.Is(err, requirements.ErrUnsupportedCountry) {
		Error(w, http.StatusNotFound, fmt.Sprintf("Scraper not available for '%s' yet.", req.Country))
		return
	}
	if err != nil {
		slog.Error("Requirements lookup failed", "error", err, "country", req.Country)
		Error(w, http.StatusInternalServerError, "failed to look up requirements")
		return
	}

	JSON(w, http.StatusOK, result)
}

// Countries handles GET /api/countries.
func (h *Handler) Countries(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{"countries": h.requirements.Countries()})
}
