package live

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/japa-advisor/internal/advisor"
	"github.com/ashureev/japa-advisor/internal/domain"
	"github.com/ashureev/japa-advisor/internal/identity"
	"github.com/ashureev/japa-advisor/internal/middleware"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/go-cmp/cmp"
)

type fakeBackend struct {
	mu          sync.Mutex
	roadmap     *domain.RoadmapResult
	roadmapErr  error
	reqs        *domain.VisaRequirements
	reqsErr     error
	release     chan struct{}
	visaQueries []domain.VisaRequest
}

func (f *fakeBackend) GenerateRoadmap(ctx context.Context, _ domain.ProfileInput) (*domain.RoadmapResult, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.roadmap, f.roadmapErr
}

func (f *fakeBackend) FetchRequirements(_ context.Context, req domain.VisaRequest) (*domain.VisaRequirements, error) {
	f.mu.Lock()
	f.visaQueries = append(f.visaQueries, req)
	f.mu.Unlock()
	return f.reqs, f.reqsErr
}

func adaProfile() *domain.ProfileInput {
	return &domain.ProfileInput{
		FullName:       "Ada O.",
		Degree:         "BSc CS",
		WorkExperience: "2 years",
		TargetCountry:  "Canada",
		Goal:           "MSc in AI",
	}
}

func startServer(t *testing.T, backend advisor.Backend) (*httptest.Server, *SessionManager) {
	t.Helper()
	sm := NewSessionManager()
	h := NewWebSocketHandler(backend, sm, "Nigeria", "*", true)
	srv := httptest.NewServer(identity.Middleware(true)(h))
	t.Cleanup(srv.Close)
	return srv, sm
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?session_id=" + sessionID
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var msg Message
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	return msg
}

func send(t *testing.T, conn *websocket.Conn, msg Message) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
}

func expectPhase(t *testing.T, msg Message, want advisor.Phase) advisor.State {
	t.Helper()
	if msg.Type != "state" || msg.State == nil {
		t.Fatalf("Expected state frame, got %+v", msg)
	}
	if msg.State.Phase != want {
		t.Fatalf("Expected phase %s, got %s", want, msg.State.Phase)
	}
	return *msg.State
}

func TestLiveSessionSubmitSuccess(t *testing.T) {
	backend := &fakeBackend{
		roadmap: &domain.RoadmapResult{Roadmap: "Month 1: IELTS", Checklist: []string{"Passport"}, SOP: "I am Ada"},
		reqs:    &domain.VisaRequirements{Country: "Canada", VisaType: "Study Permit"},
	}
	srv, _ := startServer(t, backend)
	conn := dial(t, srv, "tab-1")

	expectPhase(t, read(t, conn), advisor.PhaseIdle)

	send(t, conn, Message{Type: "submit", Profile: adaProfile()})
	pending := expectPhase(t, read(t, conn), advisor.PhasePending)
	final := expectPhase(t, read(t, conn), advisor.PhaseSucceeded)

	if final.SubmissionID != pending.SubmissionID {
		t.Errorf("Submission id changed: %s -> %s", pending.SubmissionID, final.SubmissionID)
	}
	if diff := cmp.Diff(backend.roadmap, final.Roadmap); diff != "" {
		t.Errorf("Roadmap mismatch (-want +got):\n%s", diff)
	}
	if final.Requirements == nil || final.Requirements.VisaType != "Study Permit" {
		t.Errorf("Expected requirements, got %+v", final.Requirements)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	want := []domain.VisaRequest{{Country: "Canada", Nationality: "Nigeria"}}
	if diff := cmp.Diff(want, backend.visaQueries); diff != "" {
		t.Errorf("Visa query mismatch (-want +got):\n%s", diff)
	}
}

func TestLiveSessionRoadmapFailure(t *testing.T) {
	srv, _ := startServer(t, &fakeBackend{roadmapErr: errors.New("status 500")})
	conn := dial(t, srv, "tab-1")
	expectPhase(t, read(t, conn), advisor.PhaseIdle)

	send(t, conn, Message{Type: "submit", Profile: adaProfile()})
	expectPhase(t, read(t, conn), advisor.PhasePending)
	final := expectPhase(t, read(t, conn), advisor.PhaseFailed)

	if final.Error != advisor.FailureMessage {
		t.Errorf("Expected failure message, got %q", final.Error)
	}
	if final.Roadmap != nil || final.Requirements != nil {
		t.Errorf("Failed state should carry no results: %+v", final)
	}
}

func TestLiveSessionRejectsIncompleteProfile(t *testing.T) {
	srv, _ := startServer(t, &fakeBackend{})
	conn := dial(t, srv, "tab-1")
	expectPhase(t, read(t, conn), advisor.PhaseIdle)

	p := adaProfile()
	p.Degree = ""
	send(t, conn, Message{Type: "submit", Profile: p})

	msg := read(t, conn)
	if msg.Type != "error" || msg.Error != ErrCodeIncomplete {
		t.Fatalf("Expected incomplete error, got %+v", msg)
	}
	if diff := cmp.Diff([]domain.Field{domain.FieldDegree}, msg.Missing); diff != "" {
		t.Errorf("Missing mismatch (-want +got):\n%s", diff)
	}
}

func TestLiveSessionRefusesSecondSubmit(t *testing.T) {
	backend := &fakeBackend{
		roadmap: &domain.RoadmapResult{Roadmap: "r"},
		release: make(chan struct{}),
	}
	srv, _ := startServer(t, backend)
	conn := dial(t, srv, "tab-1")
	expectPhase(t, read(t, conn), advisor.PhaseIdle)

	send(t, conn, Message{Type: "submit", Profile: adaProfile()})
	expectPhase(t, read(t, conn), advisor.PhasePending)

	send(t, conn, Message{Type: "submit", Profile: adaProfile()})
	msg := read(t, conn)
	if msg.Type != "error" || msg.Error != ErrCodeInFlight {
		t.Fatalf("Expected in-flight error, got %+v", msg)
	}

	close(backend.release)
	expectPhase(t, read(t, conn), advisor.PhaseSucceeded)
}

func TestLiveSessionPingAndBadFrames(t *testing.T) {
	srv, _ := startServer(t, &fakeBackend{})
	conn := dial(t, srv, "tab-1")
	expectPhase(t, read(t, conn), advisor.PhaseIdle)

	send(t, conn, Message{Type: "ping"})
	if msg := read(t, conn); msg.Type != "pong" {
		t.Errorf("Expected pong, got %+v", msg)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if msg := read(t, conn); msg.Error != ErrCodeBadMessage {
		t.Errorf("Expected bad_message, got %+v", msg)
	}

	send(t, conn, Message{Type: "state"})
	expectPhase(t, read(t, conn), advisor.PhaseIdle)
}

func TestLiveSessionRegistersWithManager(t *testing.T) {
	srv, sm := startServer(t, &fakeBackend{})
	conn := dial(t, srv, "tab-1")
	expectPhase(t, read(t, conn), advisor.PhaseIdle)

	if sm.Count() != 1 {
		t.Fatalf("Expected 1 session, got %d", sm.Count())
	}

	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	deadline := time.Now().Add(5 * time.Second)
	for sm.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Session was not unregistered, count=%d", sm.Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLiveSessionRejectsForeignOrigin(t *testing.T) {
	h := NewWebSocketHandler(&fakeBackend{}, NewSessionManager(), "Nigeria", "https://japa.example", false)
	req := httptest.NewRequest(http.MethodGet, "/ws/session", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", w.Code)
	}
}

func TestLiveSessionRateLimitsSubmits(t *testing.T) {
	sm := NewSessionManager()
	h := NewWebSocketHandler(&fakeBackend{roadmap: &domain.RoadmapResult{Roadmap: "r"}}, sm, "Nigeria", "*", true)
	h.SetLimiter(middleware.NewKeyLimiter(0.001, 1, time.Minute))
	srv := httptest.NewServer(identity.Middleware(true)(h))
	t.Cleanup(srv.Close)

	conn := dial(t, srv, "tab-1")
	expectPhase(t, read(t, conn), advisor.PhaseIdle)

	send(t, conn, Message{Type: "submit", Profile: adaProfile()})
	expectPhase(t, read(t, conn), advisor.PhasePending)
	expectPhase(t, read(t, conn), advisor.PhaseSucceeded)

	send(t, conn, Message{Type: "submit", Profile: adaProfile()})
	if msg := read(t, conn); msg.Type != "error" || msg.Error != ErrCodeRateLimit {
		t.Fatalf("Expected rate limit error, got %+v", msg)
	}
}
