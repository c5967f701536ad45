package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/japa-advisor/internal/advisor"
	"github.com/ashureev/japa-advisor/internal/domain"
	"github.com/ashureev/japa-advisor/internal/identity"
	"github.com/ashureev/japa-advisor/internal/metrics"
	"github.com/ashureev/japa-advisor/internal/middleware"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 10 * time.Second

// Error codes sent in error frames.
const (
	ErrCodeInFlight   = "submission_in_flight"
	ErrCodeIncomplete = "profile_incomplete"
	ErrCodeBadMessage = "bad_message"
	ErrCodeRateLimit  = "rate_limited"
)

// Message is a frame exchanged over the live session.
//
// Clients send "submit" (with Profile), "state" and "ping". The server sends
// "state" (with State), "error" (with Error and, for incomplete profiles,
// Missing) and "pong".
type Message struct {
	Type    string               `json:"type"`
	Profile *domain.ProfileInput `json:"profile,omitempty"`
	State   *advisor.State       `json:"state,omitempty"`
	Error   string               `json:"error,omitempty"`
	Missing []domain.Field       `json:"missing,omitempty"`
}

// WebSocketHandler serves live submission sessions.
type WebSocketHandler struct {
	backend       advisor.Backend
	sm            *SessionManager
	limiter       *middleware.KeyLimiter
	nationality   string
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(backend advisor.Backend, sm *SessionManager, nationality, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		backend:       backend,
		sm:            sm,
		nationality:   nationality,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// SetLimiter bounds submissions per client IP. A nil limiter allows everything.
func (h *WebSocketHandler) SetLimiter(l *middleware.KeyLimiter) {
	h.limiter = l
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientID := identity.ClientIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	ip := identity.IPFromRequest(r)
	slog.Info("WebSocket connection request", "client_id", clientID, "session_id", sessionID, "ip", ip)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "client_id", clientID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "client_id", clientID)
		}
	}()

	h.sm.Register(clientID, sessionID, ws)
	defer h.sm.Unregister(clientID, sessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	logger := slog.Default().With("client_id", clientID, "session_id", sessionID)
	orch := advisor.New(h.backend,
		advisor.WithLogger(logger),
		advisor.WithNationality(h.nationality),
		advisor.WithObserver(func(s advisor.State) {
			state := s
			if err := h.writeJSON(ctx, ws, Message{Type: "state", State: &state}); err != nil {
				logger.Debug("Failed to send state", "error", err, "phase", s.Phase)
			}
		}),
	)

	initial := orch.State()
	if err := h.writeJSON(ctx, ws, Message{Type: "state", State: &initial}); err != nil {
		logger.Debug("Failed to send initial state", "error", err)
		return
	}

	var wg sync.WaitGroup
	h.readLoop(ctx, ws, orch, ip, &wg, logger)

	// Let an in-flight submission observe the cancellation before the socket closes.
	cancel()
	wg.Wait()
	logger.Info("Live session ended")
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, orch *advisor.Orchestrator, ip string, wg *sync.WaitGroup, logger *slog.Logger) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				logger.Debug("WebSocket closed by client")
			} else {
				logger.Warn("WebSocket read error", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(ctx, ws, Message{Type: "error", Error: ErrCodeBadMessage}, logger)
			continue
		}

		switch msg.Type {
		case "submit":
			h.submit(ctx, ws, orch, msg.Profile, ip, wg, logger)
		case "state":
			s := orch.State()
			if err := h.writeJSON(ctx, ws, Message{Type: "state", State: &s}); err != nil {
				logger.Debug("Failed to send state", "error", err)
			}
		case "ping":
			if err := h.writeJSON(ctx, ws, Message{Type: "pong"}); err != nil {
				logger.Debug("Failed to send pong", "error", err)
			}
		default:
			h.sendError(ctx, ws, Message{Type: "error", Error: ErrCodeBadMessage}, logger)
		}
	}
}

// submit starts a submission in the background so the read loop keeps
// serving frames, which lets a second submit be refused while one is pending.
func (h *WebSocketHandler) submit(ctx context.Context, ws *websocket.Conn, orch *advisor.Orchestrator, profile *domain.ProfileInput, ip string, wg *sync.WaitGroup, logger *slog.Logger) {
	var p domain.ProfileInput
	if profile != nil {
		p = *profile
	}
	if missing := p.MissingFields(); len(missing) > 0 {
		h.sendError(ctx, ws, Message{Type: "error", Error: ErrCodeIncomplete, Missing: missing}, logger)
		return
	}
	if orch.State().Pending() {
		h.sendError(ctx, ws, Message{Type: "error", Error: ErrCodeInFlight}, logger)
		return
	}
	if !h.limiter.Allow(ip, time.Now()) {
		logger.Warn("Rate limit exceeded", "client_ip", ip)
		h.sendError(ctx, ws, Message{Type: "error", Error: ErrCodeRateLimit}, logger)
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		final, err := orch.Submit(ctx, p)
		switch {
		case errors.Is(err, advisor.ErrSubmissionInFlight):
			h.sendError(ctx, ws, Message{Type: "error", Error: ErrCodeInFlight}, logger)
			return
		case err != nil:
			logger.Warn("Submission rejected", "error", err)
			return
		}
		metrics.Submissions.WithLabelValues(final.Phase.String()).Inc()
	}()
}

func (h *WebSocketHandler) sendError(ctx context.Context, ws *websocket.Conn, msg Message, logger *slog.Logger) {
	if err := h.writeJSON(ctx, ws, msg); err != nil {
		logger.Debug("Failed to send error frame", "error", err, "code", msg.Error)
	}
}

func (h *WebSocketHandler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, ws, v)
}
