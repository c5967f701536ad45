// Package tui is the interactive terminal front end for the advisor.
//
// It follows bubbletea's Elm-style loop: key presses and orchestrator state
// transitions arrive as messages, Update folds them into the Model and View
// renders the form plus whatever the latest submission produced.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/ashureev/japa-advisor/internal/advisor"
	"github.com/ashureev/japa-advisor/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

var placeholders = map[domain.Field]string{
	domain.FieldFullName:       "Ada Okafor",
	domain.FieldDegree:         "BSc Computer Science",
	domain.FieldWorkExperience: "2 years as a backend engineer",
	domain.FieldTargetCountry:  "Canada",
	domain.FieldGoal:           "MSc in Artificial Intelligence",
}

// stateMsg carries an orchestrator transition into the update loop.
type stateMsg advisor.State

// submitDoneMsg reports that Submit returned; err is set only for refused submissions.
type submitDoneMsg struct {
	err error
}

// Model is the form and result view.
type Model struct {
	ctx     context.Context
	orch    *advisor.Orchestrator
	updates chan advisor.State

	inputs  []textinput.Model
	focus   int
	spinner spinner.Model
	state   advisor.State
	notice  string

	width  int
	height int
}

// New creates a model that submits through backend.
func New(ctx context.Context, backend advisor.Backend, opts ...advisor.Option) *Model {
	m := &Model{
		ctx:     ctx,
		updates: make(chan advisor.State, 8),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}

	opts = append(opts, advisor.WithObserver(func(s advisor.State) {
		select {
		case m.updates <- s:
		case <-ctx.Done():
		}
	}))
	m.orch = advisor.New(backend, opts...)

	for i, f := range domain.Fields {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = placeholders[f]
		in.CharLimit = 200
		in.Width = 48
		if i == 0 {
			in.Focus()
		}
		m.inputs = append(m.inputs, in)
	}
	return m
}

// Profile returns the profile as currently typed.
func (m *Model) Profile() domain.ProfileInput {
	var p domain.ProfileInput
	for i, f := range domain.Fields {
		p, _ = p.With(f, m.inputs[i].Value())
	}
	return p
}

// State returns the latest orchestrator state the view has seen.
func (m *Model) State() advisor.State {
	return m.state
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForState(m.updates))
}

func waitForState(ch <-chan advisor.State) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ch)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "down":
			return m, m.setFocus(m.focus + 1)
		case "shift+tab", "up":
			return m, m.setFocus(m.focus - 1)
		case "enter":
			if m.focus < len(m.inputs)-1 {
				return m, m.setFocus(m.focus + 1)
			}
			return m, m.submit()
		case "ctrl+s":
			return m, m.submit()
		}

	case stateMsg:
		m.state = advisor.State(msg)
		if m.state.Pending() {
			m.notice = ""
		}
		return m, waitForState(m.updates)

	case submitDoneMsg:
		switch {
		case errors.Is(msg.err, advisor.ErrSubmissionInFlight):
			m.notice = "A roadmap is already being generated."
		case errors.Is(msg.err, advisor.ErrIncompleteProfile):
			m.notice = "Fill in every field first."
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// CanSubmit reports whether the submit action is enabled.
func (m *Model) CanSubmit() bool {
	return !m.state.Pending() && m.orch.CanSubmit(m.Profile())
}

func (m *Model) submit() tea.Cmd {
	if !m.CanSubmit() {
		if missing := m.Profile().MissingFields(); len(missing) > 0 {
			labels := make([]string, 0, len(missing))
			for _, f := range missing {
				labels = append(labels, f.Label())
			}
			m.notice = "Missing: " + strings.Join(labels, ", ")
		}
		return nil
	}

	profile := m.Profile()
	// Reflect the pending phase immediately so a second enter is ignored
	// before the orchestrator's own transition arrives.
	m.state = advisor.State{Phase: advisor.PhasePending}
	orch, ctx := m.orch, m.ctx
	return func() tea.Msg {
		_, err := orch.Submit(ctx, profile)
		return submitDoneMsg{err: err}
	}
}

func (m *Model) setFocus(i int) tea.Cmd {
	n := len(m.inputs)
	i = ((i % n) + n) % n
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[i].Focus()
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("JapaAdvisor"))
	b.WriteString(mutedStyle.Render("  plan your move abroad"))
	b.WriteString("\n\n")

	for i, f := range domain.Fields {
		marker := "  "
		if i == m.focus {
			marker = okStyle.Render("> ")
		}
		b.WriteString(marker)
		b.WriteString(labelStyle.Render(f.Label()))
		b.WriteString("\n  ")
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.state.Pending():
		b.WriteString(disabledBtn.Render(m.spinner.View() + " Generating..."))
	case m.CanSubmit():
		b.WriteString(buttonStyle.Render("Generate Roadmap"))
	default:
		b.WriteString(disabledBtn.Render("Generate Roadmap"))
	}
	if m.notice != "" {
		b.WriteString("  ")
		b.WriteString(errorStyle.Render(m.notice))
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("tab/shift+tab move  enter next/submit  ctrl+s submit  esc quit"))

	width := m.width - 4
	if result := RenderState(m.state, width); result != "" {
		b.WriteString("\n\n")
		b.WriteString(boxStyle.Render(result))
	}
	return b.String()
}
