// Package tui is the terminal presentation adapter for the attempt engine:
// it renders the active attempt, relays keystrokes into answer state and
// navigation, and surfaces warnings, blocking, and the final screens.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/proctorly/backend/internal/engine"
)

type screen int

const (
	screenActive screen = iota
	screenConfirm
	screenSubmitted
	screenTerminated
)

type (
	tickMsg   time.Time
	eventMsg  struct{ ev engine.Event }
	closedMsg struct{}

	finalizeMsg struct{ err error }
	advanceMsg  struct{ err error }
)

// Model is the bubbletea model driving one attempt session.
type Model struct {
	session *engine.Session
	source  *TerminalSignalSource

	screen  screen
	code    textarea.Model
	warning *engine.Event // pending warning overlay, ack with enter
	blocked bool
	timeUp  bool

	lastResult *engine.Event // last per-problem pass/fail signal
	submitErr  error
	advanceErr error

	width  int
	height int
}

// New creates the model for an acquired, content-loaded session.
func New(session *engine.Session, source *TerminalSignalSource) Model {
	ta := textarea.New()
	ta.Placeholder = "Write your solution here..."
	ta.CharLimit = 0

	m := Model{
		session: session,
		source:  source,
		screen:  screenActive,
		code:    ta,
	}
	m.loadCurrentCode()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listenEvents(), tickEvery(), textarea.Blink)
}

// listenEvents pumps engine events into the bubbletea loop.
func (m Model) listenEvents() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.session.Events()
		if !ok {
			return closedMsg{}
		}
		return eventMsg{ev: ev}
	}
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.code.SetWidth(min(msg.Width-4, 100))
		m.code.SetHeight(max(msg.Height-14, 5))
		return m, nil

	case tea.BlurMsg:
		// Terminal lost focus: the platform equivalent of a tab switch.
		m.source.Emit(engine.Signal{Type: engine.ViolationTabSwitch, At: time.Now()})
		return m, nil

	case tickMsg:
		return m, tickEvery()

	case eventMsg:
		return m.handleEvent(msg.ev)

	case closedMsg:
		return m, nil

	case finalizeMsg:
		m.submitErr = msg.err
		// Success arrives as EventSubmitted; a failure leaves the session
		// active for a manual retry.
		return m, nil

	case advanceMsg:
		m.advanceErr = msg.err
		if msg.err == nil {
			m.loadCurrentCode()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.screen == screenActive && m.isCoding() {
		var cmd tea.Cmd
		m.code, cmd = m.code.Update(msg)
		m.syncCode()
		return m, cmd
	}
	return m, nil
}

func (m Model) handleEvent(ev engine.Event) (tea.Model, tea.Cmd) {
	switch ev.Kind {
	case engine.EventWarning:
		w := ev
		m.warning = &w
	case engine.EventBlocked:
		m.blocked = ev.Blocked
	case engine.EventTimeUp:
		m.timeUp = true
	case engine.EventSubmitted:
		m.screen = screenSubmitted
	case engine.EventTerminated:
		m.screen = screenTerminated
	case engine.EventProblemResult:
		r := ev
		m.lastResult = &r
	}
	return m, m.listenEvents()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Final screens: any key exits.
	if m.screen == screenSubmitted || m.screen == screenTerminated {
		return m, tea.Quit
	}

	// A pending warning overlay swallows input until acknowledged.
	if m.warning != nil {
		if msg.Type == tea.KeyEnter {
			m.warning = nil
		}
		return m, nil
	}

	if m.screen == screenConfirm {
		switch msg.String() {
		case "y", "Y", "enter":
			m.screen = screenActive
			m.submitErr = nil
			return m, m.finalize()
		case "n", "N", "esc":
			m.screen = screenActive
			return m, nil
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+n", "right":
		if m.isCoding() && msg.String() == "right" {
			break // Arrow keys belong to the editor on coding tests
		}
		if m.isCoding() && m.session.IsLast() {
			m.screen = screenConfirm
			return m, nil
		}
		return m, m.advance(engine.Next)
	case "ctrl+p", "left":
		if m.isCoding() && msg.String() == "left" {
			break
		}
		return m, m.advance(engine.Previous)
	case "ctrl+l":
		if m.isCoding() {
			m.cycleLanguage()
			return m, nil
		}
	case "ctrl+d":
		m.screen = screenConfirm
		return m, nil
	}

	if m.isCoding() {
		var cmd tea.Cmd
		m.code, cmd = m.code.Update(msg)
		m.syncCode()
		return m, cmd
	}

	return m.handleMCQKey(msg)
}

func (m Model) handleMCQKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	q := m.currentQuestion()
	if q == nil {
		return m, nil
	}

	switch msg.String() {
	case "enter":
		if m.session.IsLast() {
			m.screen = screenConfirm
			return m, nil
		}
		return m, m.advance(engine.Next)
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(msg.String()[0] - '1')
		if idx < len(q.Options) {
			m.session.Answers().SetMCQSelection(q.ID, q.Options[idx].ID, q.Kind == engine.QuestionMultipleChoice)
		}
	}
	return m, nil
}

func (m Model) advance(dir engine.Direction) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return advanceMsg{err: s.Advance(ctx, dir)}
	}
}

func (m Model) finalize() tea.Cmd {
	s := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return finalizeMsg{err: s.Finalize(ctx)}
	}
}

func (m *Model) loadCurrentCode() {
	if p := m.currentProblem(); p != nil {
		m.code.SetValue(m.session.Answers().Code(p.ID))
		m.code.Focus()
	}
}

func (m *Model) syncCode() {
	if p := m.currentProblem(); p != nil {
		m.session.Answers().SetCode(p.ID, m.code.Value())
	}
}

func (m *Model) cycleLanguage() {
	langs := m.session.Languages()
	if len(langs) == 0 {
		return
	}
	current := m.session.Answers().Language()
	for i, l := range langs {
		if l.ID == current {
			m.session.Answers().SetLanguage(langs[(i+1)%len(langs)].ID)
			return
		}
	}
	m.session.Answers().SetLanguage(langs[0].ID)
}

func (m Model) isCoding() bool {
	c := m.session.Content()
	return c != nil && c.TestType == engine.TestTypeCoding
}

func (m Model) currentQuestion() *engine.Question {
	c := m.session.Content()
	if c == nil || c.TestType != engine.TestTypeMCQ {
		return nil
	}
	idx := m.session.Index()
	if idx >= len(c.Questions) {
		return nil
	}
	return &c.Questions[idx]
}

func (m Model) currentProblem() *engine.Problem {
	c := m.session.Content()
	if c == nil || c.TestType != engine.TestTypeCoding {
		return nil
	}
	idx := m.session.Index()
	if idx >= len(c.Problems) {
		return nil
	}
	return &c.Problems[idx]
}
