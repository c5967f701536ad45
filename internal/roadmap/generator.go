// Package roadmap generates relocation roadmaps with an OpenAI-compatible
// chat completion API.
package roadmap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/japa-advisor/internal/domain"
	"github.com/ashureev/japa-advisor/internal/metrics"
	"github.com/microcosm-cc/bluemonday"
)

var (
	// ErrLLMTimeout is returned when the completion does not arrive in time.
	ErrLLMTimeout = errors.New("llm request timed out")
	// ErrGenerationFailed is returned for transport failures and non-2xx responses.
	ErrGenerationFailed = errors.New("roadmap generation failed")
	// ErrMalformedOutput is returned when the model reply is not a valid roadmap.
	ErrMalformedOutput = errors.New("malformed model output")
)

// Config configures a Generator.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
}

// Generator turns a profile into a RoadmapResult.
type Generator struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewGenerator creates a Generator. The per-call deadline comes from
// cfg.Timeout; the HTTP client itself carries none.
func NewGenerator(cfg Config, client *http.Client, logger *slog.Logger) *Generator {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Generator{
		cfg:    cfg,
		client: client,
		logger: logger.With("component", "roadmap_generator", "model", cfg.Model),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate requests a roadmap for profile.
func (g *Generator) Generate(ctx context.Context, profile domain.ProfileInput) (*domain.RoadmapResult, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	content, err := g.complete(ctx, []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildPrompt(profile)},
	})
	metrics.LLMLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrLLMTimeout) {
			outcome = "timeout"
		}
		metrics.RoadmapGenerations.WithLabelValues(outcome).Inc()
		return nil, err
	}

	result, err := parseResult(content)
	if err != nil {
		metrics.RoadmapGenerations.WithLabelValues("malformed").Inc()
		g.logger.Warn("Model returned an unusable roadmap", "error", err, "raw_length", len(content))
		g.logger.Debug("Unusable model output", "raw", content)
		return nil, err
	}

	metrics.RoadmapGenerations.WithLabelValues("ok").Inc()
	g.logger.Info("Roadmap generated",
		"checklist_items", len(result.Checklist),
		"opportunities", len(result.Opportunities),
		"duration", time.Since(start))
	return result, nil
}

func (g *Generator) complete(ctx context.Context, messages []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:          g.cfg.Model,
		Messages:       messages,
		Temperature:    g.cfg.Temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrGenerationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrLLMTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrGenerationFailed, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&out); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrLLMTimeout
		}
		return "", fmt.Errorf("%w: decode completion: %v", ErrGenerationFailed, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: completion has no choices", ErrGenerationFailed)
	}
	return out.Choices[0].Message.Content, nil
}

// parseResult validates and cleans a model reply.
func parseResult(content string) (*domain.RoadmapResult, error) {
	raw := []byte(stripCodeFence(content))
	if err := validateResult(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	var result domain.RoadmapResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	result.Roadmap = sanitize(result.Roadmap)
	result.SOP = sanitize(result.SOP)
	checklist := result.Checklist[:0]
	for _, item := range result.Checklist {
		if item = sanitize(item); item != "" {
			checklist = append(checklist, item)
		}
	}
	result.Checklist = checklist

	opportunities := result.Opportunities[:0]
	for _, o := range result.Opportunities {
		o.Title = sanitize(o.Title)
		o.URL = strings.TrimSpace(o.URL)
		o.Type = domain.ParseOpportunityType(string(o.Type))
		if o.Title == "" || !strings.HasPrefix(o.URL, "http") {
			continue
		}
		opportunities = append(opportunities, o)
	}
	result.Opportunities = opportunities
	if len(result.Opportunities) == 0 {
		result.Opportunities = nil
	}

	return &result, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// sanitize strips markup from model text and returns plain text.
func sanitize(s string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}
