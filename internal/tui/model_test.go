package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/japa-advisor/internal/advisor"
	"github.com/ashureev/japa-advisor/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

type fakeBackend struct {
	roadmap    *domain.RoadmapResult
	roadmapErr error
	reqs       *domain.VisaRequirements
	calls      int
}

func (f *fakeBackend) GenerateRoadmap(context.Context, domain.ProfileInput) (*domain.RoadmapResult, error) {
	f.calls++
	return f.roadmap, f.roadmapErr
}

func (f *fakeBackend) FetchRequirements(context.Context, domain.VisaRequest) (*domain.VisaRequirements, error) {
	if f.reqs == nil {
		return nil, errors.New("not found")
	}
	return f.reqs, nil
}

func fill(m *Model) {
	values := []string{"Ada O.", "BSc CS", "2 years", "Canada", "MSc in AI"}
	for i, v := range values {
		m.inputs[i].SetValue(v)
	}
}

func key(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

// drain feeds queued orchestrator transitions into the model until a terminal phase.
func drain(t *testing.T, m *Model) {
	t.Helper()
	for {
		select {
		case s := <-m.updates:
			m.Update(stateMsg(s))
			if s.Phase.Terminal() {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("no terminal state, last phase %s", m.state.Phase)
		}
	}
}

func TestSubmitDisabledUntilComplete(t *testing.T) {
	m := New(context.Background(), &fakeBackend{})
	if m.CanSubmit() {
		t.Fatal("empty form should not be submittable")
	}
	if !strings.Contains(m.View(), "Generate Roadmap") {
		t.Error("view should always show the submit button")
	}

	_, cmd := m.Update(key(tea.KeyCtrlS))
	if cmd != nil {
		t.Error("submit on incomplete form should not start a request")
	}
	if !strings.Contains(m.notice, "Full Name") {
		t.Errorf("expected missing-field notice, got %q", m.notice)
	}

	fill(m)
	if !m.CanSubmit() {
		t.Fatal("complete form should be submittable")
	}
}

func TestEnterAdvancesFocusThenSubmits(t *testing.T) {
	backend := &fakeBackend{roadmap: &domain.RoadmapResult{Roadmap: "Month 1"}}
	m := New(context.Background(), backend)
	fill(m)

	for i := 0; i < len(domain.Fields)-1; i++ {
		m.Update(key(tea.KeyEnter))
		if m.focus != i+1 {
			t.Fatalf("enter on field %d should move focus, got %d", i, m.focus)
		}
	}
	if m.focus != len(domain.Fields)-1 {
		t.Fatalf("expected focus on last field, got %d", m.focus)
	}

	_, cmd := m.Update(key(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("enter on last field should submit")
	}
	if !m.State().Pending() {
		t.Error("model should show pending immediately")
	}
	if !strings.Contains(m.View(), "Generating...") {
		t.Error("pending view should show progress")
	}

	// A second trigger while pending is ignored.
	if _, again := m.Update(key(tea.KeyCtrlS)); again != nil {
		t.Error("second submit while pending should be ignored")
	}

	if done, ok := cmd().(submitDoneMsg); !ok || done.err != nil {
		t.Fatalf("unexpected submit result %+v", done)
	}
	drain(t, m)

	if m.State().Phase != advisor.PhaseSucceeded {
		t.Fatalf("expected succeeded, got %s", m.State().Phase)
	}
	if backend.calls != 1 {
		t.Errorf("expected one roadmap call, got %d", backend.calls)
	}
	view := m.View()
	if !strings.Contains(view, "Month 1") {
		t.Error("view should show the roadmap")
	}
	if !strings.Contains(view, "not available") {
		t.Error("view should note missing visa requirements")
	}
}

func TestFailureShowsMessageAndAllowsRetry(t *testing.T) {
	m := New(context.Background(), &fakeBackend{roadmapErr: errors.New("status 500")})
	fill(m)

	_, cmd := m.Update(key(tea.KeyCtrlS))
	cmd()
	drain(t, m)

	if m.State().Phase != advisor.PhaseFailed {
		t.Fatalf("expected failed, got %s", m.State().Phase)
	}
	if !strings.Contains(m.View(), advisor.FailureMessage) {
		t.Error("view should show the failure message")
	}
	if !m.CanSubmit() {
		t.Error("failed submission should allow retry")
	}
}

func TestFocusWraps(t *testing.T) {
	m := New(context.Background(), &fakeBackend{})
	m.Update(key(tea.KeyShiftTab))
	if m.focus != len(domain.Fields)-1 {
		t.Errorf("shift+tab from first field should wrap to last, got %d", m.focus)
	}
	m.Update(key(tea.KeyTab))
	if m.focus != 0 {
		t.Errorf("tab from last field should wrap to first, got %d", m.focus)
	}
}

func TestRenderStateRequirements(t *testing.T) {
	s := advisor.State{
		Phase:   advisor.PhaseSucceeded,
		Roadmap: &domain.RoadmapResult{Roadmap: "Plan", Checklist: []string{"Passport"}, SOP: "I am Ada"},
		Requirements: &domain.VisaRequirements{
			Country:       "Canada",
			VisaType:      "Study Permit",
			Documents:     []string{"Letter of acceptance"},
			OfficialLinks: []string{"https://www.canada.ca"},
			UsedFallback:  true,
		},
	}
	out := RenderState(s, 80)
	for _, want := range []string{"Plan", "[ ] Passport", "I am Ada", "Visa Requirements: Canada", "Study Permit", "Letter of acceptance", "official site unavailable"} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q", want)
		}
	}

	if got := RenderState(advisor.State{Phase: advisor.PhaseIdle}, 80); got != "" {
		t.Errorf("idle state should render nothing, got %q", got)
	}
}
