package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ashureev/japa-advisor/internal/domain"
)

// Endpoint paths served by the advisor API.
const (
	RoadmapPath      = "/generate-roadmap"
	RequirementsPath = "/api/requirements"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// ErrServiceError is returned when a 2xx response body carries an error field.
var ErrServiceError = errors.New("service reported an error")

// StatusError reports a non-2xx response from an endpoint.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// HTTPBackend calls the advisor API over HTTP against a fixed base URL.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

// NewHTTPBackend creates a backend for baseURL. A nil client uses a client
// without a timeout, leaving deadlines to the transport and the caller's context.
func NewHTTPBackend(baseURL string, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// GenerateRoadmap posts the profile to the roadmap endpoint.
func (b *HTTPBackend) GenerateRoadmap(ctx context.Context, profile domain.ProfileInput) (*domain.RoadmapResult, error) {
	var out struct {
		domain.RoadmapResult
		Error string `json:"error"`
	}
	if err := b.postJSON(ctx, RoadmapPath, profile, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%s: %w: %s", RoadmapPath, ErrServiceError, out.Error)
	}
	result := out.RoadmapResult
	return &result, nil
}

// FetchRequirements posts the visa request to the requirements endpoint.
func (b *HTTPBackend) FetchRequirements(ctx context.Context, req domain.VisaRequest) (*domain.VisaRequirements, error) {
	var out struct {
		domain.VisaRequirements
		Error string `json:"error"`
	}
	if err := b.postJSON(ctx, RequirementsPath, req, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%s: %w: %s", RequirementsPath, ErrServiceError, out.Error)
	}
	result := out.VisaRequirements
	return &result, nil
}

func (b *HTTPBackend) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	limited := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(limited, 512))
		return &StatusError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	return nil
}
