package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/awaken/internal/logging"
	"github.com/aretw0/awaken/pkg/adapters/export"
	"github.com/aretw0/awaken/pkg/clock"
	"github.com/aretw0/awaken/pkg/divination"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/flow"
	"github.com/aretw0/awaken/pkg/identity"
	"github.com/aretw0/awaken/pkg/quiz"
)

const (
	// DefaultInterval is how often the wall-clock pump advances the timeline.
	DefaultInterval = 50 * time.Millisecond
	// HeadlessStep is the logical time advanced per headless iteration.
	HeadlessStep = 100 * time.Millisecond

	eventBuffer    = 256
	headlessBudget = time.Minute
)

var (
	// ErrAbandoned is returned when the user gives up after a channel failure.
	ErrAbandoned = errors.New("quiz abandoned")
	// ErrInterrupted is returned when the run is cancelled mid-flow.
	ErrInterrupted = errors.New("interrupted")
)

// Driver is the part of session.Manager the runner needs.
type Driver interface {
	SubmitQuiz(ctx context.Context, flowID string, payload []byte) (*domain.FlowRecord, error)
	BeginRitual(ctx context.Context, flowID string) (*domain.FlowRecord, error)
	BeginDivination(ctx context.Context, flowID string) (*domain.FlowRecord, error)
	Continue(ctx context.Context, flowID string) (flow.RevealView, error)
	Visuals(flowID string) (divination.Visuals, error)
	Close(ctx context.Context, flowID string) error
	Advance(d time.Duration) int
}

// Runner walks one flow from the quiz to the reveal.
type Runner struct {
	Handler  IOHandler
	Logger   *slog.Logger
	Headless bool
	Speed    float64
	Interval time.Duration
	Code     string
	FlowID   string
	Identity identity.Provider

	events chan domain.PhaseEvent
}

// NewRunner creates a Runner on Stdin/Stdout.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger:   logging.NewNop(),
		Speed:    1,
		Interval: DefaultInterval,
		events:   make(chan domain.PhaseEvent, eventBuffer),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	return r
}

// Hooks feeds phase events to the runner. Register them on the Driver.
// They never block: a full buffer drops the event.
func (r *Runner) Hooks() domain.LifecycleHooks {
	forward := func(_ context.Context, e *domain.PhaseEvent) {
		select {
		case r.events <- *e:
		default:
			r.Logger.Warn("runner: event buffer full, dropping", "type", e.Type, "stage", e.Stage)
		}
	}
	return domain.LifecycleHooks{
		OnPhaseEnter: forward,
		OnTick:       forward,
		OnEffect:     forward,
		OnComplete:   forward,
		OnCancel:     forward,
	}
}

// Run executes the walk until the reveal, an error, or cancellation.
// A flow that does not reach the reveal is closed.
func (r *Runner) Run(ctx context.Context, d Driver) (flow.RevealView, error) {
	signals := NewSignalManager(ctx)
	defer signals.Stop()

	if err := r.greet(signals); err != nil {
		return flow.RevealView{}, err
	}

	rec, err := r.quiz(signals, d)
	if err != nil {
		return flow.RevealView{}, err
	}
	flowID := rec.ID
	r.Logger.Debug("runner: flow opened", "flow_id", flowID, "archetype", rec.Params.Archetype)

	stopPump := r.startPump(signals.Context(), d)
	view, err := r.walk(signals, d, flowID)
	stopPump()

	if err != nil {
		if cerr := d.Close(context.WithoutCancel(ctx), flowID); cerr != nil {
			r.Logger.Warn("runner: close flow failed", "flow_id", flowID, "err", cerr)
		}
		return flow.RevealView{}, err
	}
	return view, nil
}

// greet asks for a display name when the identity is a signed-out session.
func (r *Runner) greet(signals *SignalManager) error {
	s, ok := r.Identity.(*identity.Session)
	if !ok || s.CurrentUser() != nil || r.Headless {
		return nil
	}
	ctx := signals.Context()
	if err := r.Handler.Output(ctx, welcomeScreen()); err != nil {
		return fmt.Errorf("output error: %w", err)
	}
	name, err := r.input(signals)
	if err != nil {
		return err
	}
	if name = strings.TrimSpace(name); name != "" {
		s.SignIn(identity.User{UID: "local", DisplayName: name})
	}
	return nil
}

func (r *Runner) quiz(signals *SignalManager, d Driver) (*domain.FlowRecord, error) {
	ctx := signals.Context()
	scripted := r.Code != "" || r.Headless

	for {
		var payload []byte
		if scripted {
			payload = quiz.Encode(r.Code)
		} else {
			if err := r.Handler.Output(ctx, quizScreen()); err != nil {
				return nil, fmt.Errorf("output error: %w", err)
			}
			line, err := r.input(signals)
			if err != nil {
				return nil, err
			}
			if strings.HasPrefix(strings.TrimSpace(line), "{") {
				payload = []byte(line)
			} else {
				payload = quiz.Encode(line)
			}
		}

		rec, err := d.SubmitQuiz(ctx, r.FlowID, payload)
		if err == nil {
			return rec, nil
		}
		if scripted {
			return nil, err
		}

		var channelErr *quiz.ChannelError
		switch {
		case errors.As(err, &channelErr):
			if err := r.chooseRecovery(signals, channelErr); err != nil {
				return nil, err
			}
		case errors.Is(err, quiz.ErrIgnored):
			r.Handler.SystemOutput(ctx, "That message is not a quiz result. Still waiting for one.")
		default:
			return nil, err
		}
	}
}

// chooseRecovery offers the channel's recovery choices. A nil return means retry.
func (r *Runner) chooseRecovery(signals *SignalManager, channelErr *quiz.ChannelError) error {
	ctx := signals.Context()
	choices := channelErr.Choices()
	names := make([]string, len(choices))
	for i, c := range choices {
		names[i] = string(c)
	}
	msg := fmt.Sprintf("The questionnaire could not be read: %v\nType %s.", channelErr.Cause, strings.Join(names, " or "))

	for {
		r.Handler.SystemOutput(ctx, msg)
		answer, err := r.input(signals)
		if err != nil {
			return err
		}
		switch quiz.Choice(strings.ToLower(strings.TrimSpace(answer))) {
		case quiz.ChoiceRetry, "":
			return nil
		case quiz.ChoiceAbandon:
			return ErrAbandoned
		}
	}
}

func (r *Runner) walk(signals *SignalManager, d Driver, flowID string) (flow.RevealView, error) {
	ctx := signals.Context()

	if err := r.pause(signals, ritualScreen()); err != nil {
		return flow.RevealView{}, err
	}
	if _, err := d.BeginRitual(ctx, flowID); err != nil {
		return flow.RevealView{}, err
	}
	if err := r.await(ctx, d, flowID, domain.StageRitual); err != nil {
		return flow.RevealView{}, err
	}

	if err := r.pause(signals, divinationScreen()); err != nil {
		return flow.RevealView{}, err
	}
	if _, err := d.BeginDivination(ctx, flowID); err != nil {
		return flow.RevealView{}, err
	}
	if err := r.await(ctx, d, flowID, domain.StageDivination); err != nil {
		return flow.RevealView{}, err
	}

	if err := r.pause(signals, Screen{
		Stage:      domain.StageDivination,
		Phase:      string(domain.DivinationRevealed),
		Body:       "Press Enter to continue.",
		NeedsInput: true,
	}); err != nil {
		return flow.RevealView{}, err
	}

	view, err := d.Continue(ctx, flowID)
	if err != nil {
		return flow.RevealView{}, err
	}
	err = r.Handler.Output(ctx, Screen{
		Stage:  domain.StageReveal,
		Title:  fmt.Sprintf("You are a%s %s", article(string(view.Archetype)), view.Archetype),
		Body:   string(export.Card(view)),
		Reveal: &view,
	})
	if err != nil {
		return flow.RevealView{}, fmt.Errorf("output error: %w", err)
	}
	return view, nil
}

// pause shows s and, unless headless, waits for a line.
func (r *Runner) pause(signals *SignalManager, s Screen) error {
	if r.Headless {
		s.NeedsInput = false
	}
	if err := r.Handler.Output(signals.Context(), s); err != nil {
		return fmt.Errorf("output error: %w", err)
	}
	if r.Headless {
		return nil
	}
	_, err := r.input(signals)
	return err
}

// await renders events of flowID until stage completes.
func (r *Runner) await(ctx context.Context, d Driver, flowID string, stage domain.Stage) error {
	var spent time.Duration
	for {
		var e domain.PhaseEvent
		if r.Headless {
			select {
			case e = <-r.events:
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
			default:
				if spent >= headlessBudget {
					return fmt.Errorf("runner: %s did not complete within %s", stage, headlessBudget)
				}
				d.Advance(HeadlessStep)
				spent += HeadlessStep
				continue
			}
		} else {
			select {
			case e = <-r.events:
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
			}
		}

		if e.SessionID != flowID {
			continue
		}
		if err := r.show(ctx, d, e); err != nil {
			return err
		}
		if e.Stage == stage && e.Type == domain.EventComplete {
			return nil
		}
	}
}

func (r *Runner) show(ctx context.Context, d Driver, e domain.PhaseEvent) error {
	s, ok := eventScreen(e)
	if !ok {
		return nil
	}
	if s.Mark != "" {
		if v, err := d.Visuals(e.SessionID); err == nil {
			s.Visuals = &v
			s.Body = Gauge(v)
		}
	}
	if err := r.Handler.Output(ctx, s); err != nil {
		return fmt.Errorf("output error: %w", err)
	}
	return nil
}

// input reads a line, mapping exit words to io.EOF and cancellation to ErrInterrupted.
func (r *Runner) input(signals *SignalManager) (string, error) {
	ctx := signals.Context()
	val, err := r.Handler.Input(ctx)
	if err != nil {
		signals.CheckRace()
		if ctx.Err() != nil {
			r.Logger.Debug("Runner input: Context cancelled", "err", ctx.Err())
			return "", fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
		}
		if err == io.EOF {
			return "", err
		}
		return "", fmt.Errorf("input error: %w", err)
	}
	if val == "exit" || val == "quit" {
		return "", io.EOF
	}
	return val, nil
}

// startPump drives the timeline from wall time. Headless runs advance it themselves.
func (r *Runner) startPump(ctx context.Context, d Driver) (stop func()) {
	if r.Headless {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	pump := clock.NewPump(d, r.Interval, clock.WithSpeed(r.Speed))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := pump.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.Logger.Warn("runner: pump stopped", "err", err)
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func article(word string) string {
	if word != "" && strings.ContainsRune("AEIOU", rune(word[0])) {
		return "n"
	}
	return ""
}
