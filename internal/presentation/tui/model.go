package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/awaken/pkg/adapters/export"
	"github.com/aretw0/awaken/pkg/divination"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/flow"
	"github.com/aretw0/awaken/pkg/identity"
	"github.com/aretw0/awaken/pkg/quiz"
	"github.com/aretw0/awaken/pkg/ritual"
	"github.com/aretw0/awaken/pkg/runner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// FrameInterval is how often the model advances the timeline while a
// timed screen is running.
const FrameInterval = 50 * time.Millisecond

type screen int

const (
	screenQuiz screen = iota
	screenRitualSetup
	screenRitual
	screenDivinationSetup
	screenDivination
	screenRevealed
	screenReveal
)

type frameMsg time.Time

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#c084fc")).MarginBottom(1)
	hintStyle  = lipgloss.NewStyle().Faint(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171"))
	countStyle = lipgloss.NewStyle().Bold(true).Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#818cf8")).Padding(1, 6).Align(lipgloss.Center)
	glassStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
)

// Model is a bubbletea program for one flow. It drives the virtual clock
// itself on every frame.
type Model struct {
	ctx      context.Context
	driver   runner.Driver
	flowID   string
	speed    float64
	renderer func(string) (string, error)
	events   chan domain.PhaseEvent

	screen    screen
	input     string
	remaining int
	mark      string
	visuals   divination.Visuals
	last      time.Time
	status    string
	err       error

	view *flow.RevealView
	card string
}

// Option configures a Model.
type Option func(*Model)

// WithSpeed scales frame time. Values <= 0 mean 1.
func WithSpeed(speed float64) Option {
	return func(m *Model) {
		if speed > 0 {
			m.speed = speed
		}
	}
}

// WithRenderer renders the reveal card (glamour by default).
func WithRenderer(fn func(string) (string, error)) Option {
	return func(m *Model) {
		m.renderer = fn
	}
}

// WithCode prefills the quiz answer.
func WithCode(code string) Option {
	return func(m *Model) {
		m.input = code
	}
}

// NewModel creates a model for flowID. Give Hooks to the session manager,
// then Attach it before the program starts.
func NewModel(ctx context.Context, flowID string, opts ...Option) *Model {
	m := &Model{
		ctx:       ctx,
		flowID:    flowID,
		speed:     1,
		events:    make(chan domain.PhaseEvent, 256),
		remaining: ritual.DefaultCountdown,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.renderer == nil {
		m.renderer = NewRenderer(DefaultWordWrap)
	}
	return m
}

// Attach sets the driver the model walks.
func (m *Model) Attach(d runner.Driver) {
	m.driver = d
}

// Hooks feeds phase events to the model without blocking.
func (m *Model) Hooks() domain.LifecycleHooks {
	forward := func(_ context.Context, e *domain.PhaseEvent) {
		select {
		case m.events <- *e:
		default:
		}
	}
	return domain.LifecycleHooks{
		OnPhaseEnter: forward,
		OnTick:       forward,
		OnEffect:     forward,
		OnComplete:   forward,
	}
}

// Result returns the reveal view once the walk finished.
func (m *Model) Result() (flow.RevealView, error) {
	if m.err != nil {
		return flow.RevealView{}, m.err
	}
	if m.view == nil {
		return flow.RevealView{}, runner.ErrInterrupted
	}
	return *m.view, nil
}

func (m *Model) Init() tea.Cmd {
	return tea.SetWindowTitle("awaken")
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.key(msg)
	case frameMsg:
		return m.frame(time.Time(msg))
	case userMsg:
		m.relabel(string(msg))
	}
	return m, nil
}

// userMsg carries the display name after an identity change.
type userMsg string

// WatchIdentity forwards changes of p to the program through send, so a
// sign-in during the walk relabels the reveal card. Call stop when done.
func (m *Model) WatchIdentity(p identity.Provider, send func(tea.Msg)) (stop func()) {
	return p.OnChange(func(u *identity.User) {
		// send blocks until the program reads it; subscribers must not.
		go send(userMsg(identity.NameOf(u)))
	})
}

func (m *Model) relabel(name string) {
	if m.view == nil || m.view.DisplayName == name {
		return
	}
	m.view.DisplayName = name
	m.card = m.render(*m.view)
}

func (m *Model) render(view flow.RevealView) string {
	card := string(export.Card(view))
	if rendered, err := m.renderer(card); err == nil {
		card = rendered
	}
	return card
}

func (m *Model) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		if m.view == nil && m.screen != screenQuiz {
			_ = m.driver.Close(context.WithoutCancel(m.ctx), m.flowID)
		}
		return m, tea.Quit
	}

	switch m.screen {
	case screenQuiz:
		switch msg.Type {
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyBackspace:
			if n := len(m.input); n > 0 {
				m.input = m.input[:n-1]
			}
		case tea.KeyRunes, tea.KeySpace:
			m.input += string(msg.Runes)
		}
		return m, nil
	case screenRitualSetup:
		if msg.Type == tea.KeyEnter {
			return m.begin(m.driver.BeginRitual, screenRitual)
		}
	case screenDivinationSetup:
		if msg.Type == tea.KeyEnter {
			return m.begin(m.driver.BeginDivination, screenDivination)
		}
	case screenRevealed:
		if msg.Type == tea.KeyEnter {
			return m.reveal()
		}
	case screenReveal:
		if msg.Type == tea.KeyEnter || msg.String() == "q" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	payload := quiz.Encode(m.input)
	if strings.HasPrefix(strings.TrimSpace(m.input), "{") {
		payload = []byte(m.input)
	}
	rec, err := m.driver.SubmitQuiz(m.ctx, m.flowID, payload)
	if err != nil {
		var channelErr *quiz.ChannelError
		switch {
		case errors.As(err, &channelErr):
			m.status = fmt.Sprintf("%v. Edit and press Enter to retry, Esc to abandon.", channelErr.Cause)
			return m, nil
		case errors.Is(err, quiz.ErrIgnored):
			m.status = "That message is not a quiz result. Still waiting for one."
			return m, nil
		}
		m.err = err
		return m, tea.Quit
	}
	m.flowID = rec.ID
	m.status = ""
	m.screen = screenRitualSetup
	return m, nil
}

func (m *Model) begin(fn func(context.Context, string) (*domain.FlowRecord, error), next screen) (tea.Model, tea.Cmd) {
	if _, err := fn(m.ctx, m.flowID); err != nil {
		m.err = err
		return m, tea.Quit
	}
	m.screen = next
	m.last = time.Time{}
	m.drain()
	return m, nextFrame()
}

func (m *Model) reveal() (tea.Model, tea.Cmd) {
	view, err := m.driver.Continue(m.ctx, m.flowID)
	if err != nil {
		m.err = err
		return m, tea.Quit
	}
	m.view = &view
	m.card = m.render(view)
	m.screen = screenReveal
	return m, nil
}

func (m *Model) frame(now time.Time) (tea.Model, tea.Cmd) {
	if m.screen != screenRitual && m.screen != screenDivination {
		return m, nil
	}
	if !m.last.IsZero() {
		if elapsed := now.Sub(m.last); elapsed > 0 {
			m.driver.Advance(time.Duration(float64(elapsed) * m.speed))
		}
	}
	m.last = now
	m.drain()

	if m.screen == screenRitual || m.screen == screenDivination {
		return m, nextFrame()
	}
	return m, nil
}

// drain applies every buffered event of this flow.
func (m *Model) drain() {
	for {
		select {
		case e := <-m.events:
			if e.SessionID == m.flowID {
				m.apply(e)
			}
		default:
			return
		}
	}
}

func (m *Model) apply(e domain.PhaseEvent) {
	switch {
	case e.Stage == domain.StageRitual && (e.Type == domain.EventTick || e.Type == domain.EventPhaseEnter):
		m.remaining = e.Remaining
	case e.Stage == domain.StageRitual && e.Type == domain.EventComplete:
		m.screen = screenDivinationSetup
	case e.Stage == domain.StageDivination && e.Type == domain.EventEffect:
		m.mark = e.Effect
	case e.Stage == domain.StageDivination && e.Type == domain.EventComplete:
		m.mark = "revealed"
		m.screen = screenRevealed
	}
	if m.screen == screenDivination || m.screen == screenRevealed {
		if v, err := m.driver.Visuals(m.flowID); err == nil {
			m.visuals = v
		}
	}
}

func nextFrame() tea.Cmd {
	return tea.Tick(FrameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *Model) View() string {
	var b strings.Builder
	switch m.screen {
	case screenQuiz:
		b.WriteString(titleStyle.Render("Nen Quiz"))
		b.WriteString("\nYour four-letter personality code: ")
		b.WriteString(m.input)
		b.WriteString("█\n")
	case screenRitualSetup:
		b.WriteString(titleStyle.Render("Aura Awakening Ritual"))
		fmt.Fprintf(&b, "\nClose your eyes, breathe deeply and hold your focus for %d seconds.\n", ritual.DefaultCountdown)
		b.WriteString(hintStyle.Render("Press Enter to begin the ritual."))
	case screenRitual:
		b.WriteString(titleStyle.Render("Focus your aura..."))
		b.WriteString("\n")
		b.WriteString(countStyle.Render(fmt.Sprintf("%d", m.remaining)))
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("Breathe deeply and concentrate"))
	case screenDivinationSetup:
		b.WriteString(titleStyle.Render("Water Divination"))
		b.WriteString("\nPlace your hands around the glass and focus your aura into the water.\n")
		b.WriteString(hintStyle.Render("Press Enter to begin the divination."))
	case screenDivination, screenRevealed:
		b.WriteString(titleStyle.Render("Water Divination"))
		b.WriteString("\n")
		b.WriteString(glassStyle.Render(runner.Gauge(m.visuals)))
		b.WriteString("\n")
		if m.screen == screenRevealed {
			b.WriteString(hintStyle.Render("The water has answered. Press Enter to continue."))
		} else {
			b.WriteString(hintStyle.Render(m.mark))
		}
	case screenReveal:
		b.WriteString(m.card)
		b.WriteString(hintStyle.Render("Press Enter to exit."))
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(m.status))
	}
	b.WriteString("\n")
	return b.String()
}
