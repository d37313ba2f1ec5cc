package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/rothspit/diabro-web/internal/model"
)

const tracerName = "github.com/rothspit/diabro-web/internal/intake"

// Messages shown by the system outside the step prompts.
const (
	DefaultGreeting = "こんにちは！\n軽配送ドライバーの求人にご興味いただきありがとうございます。\nいくつかお聞きしてもよいですか？"
	FailureMessage  = "送信中にエラーが発生しました。\nお手数ですが、もう一度お試しください。"
)

// ThankYouMessage is the closing message after a successful submission.
func ThankYouMessage(name, contact string) string {
	return fmt.Sprintf("%sさん、ご回答ありがとうございました！\n\n担当者より「%s」にご連絡いたします。\nお気軽にお待ちください😊", name, contact)
}

var (
	ErrAlreadyStarted   = errors.New("conversation already started")
	ErrNotAccepting     = errors.New("conversation is not accepting answers")
	ErrAwaitingResponse = errors.New("a response is still pending")
	ErrEmptyAnswer      = errors.New("answer is empty")
	ErrInvalidChoice    = errors.New("answer is not one of the offered choices")
	ErrSubmissionFailed = errors.New("submission failed")
)

// Inserter writes the finished intake record. It is called at most once per
// conversation and is never retried.
type Inserter interface {
	InsertApplicant(ctx context.Context, a *model.Applicant) error
}

// Observer is notified of every transcript append and phase change, in order.
// Calls happen outside the controller's lock.
type Observer interface {
	EntryAppended(sessionID string, e Entry)
	PhaseChanged(sessionID string, p Phase, stepIndex int)
}

// Sleeper blocks for the given duration. It must not be cut short by request
// cancellation: a scheduled reveal always happens.
type Sleeper func(time.Duration)

// Option configures a Controller.
type Option func(*Controller)

// WithSessionID sets the identifier carried on the record and on notifications.
func WithSessionID(id string) Option {
	return func(c *Controller) { c.sessionID = id }
}

// WithPromptDelay sets the simulated typing delay before each system message.
func WithPromptDelay(d time.Duration) Option {
	return func(c *Controller) { c.promptDelay = d }
}

// WithSubmitDelay sets the pause between the last answer and the insert.
func WithSubmitDelay(d time.Duration) Option {
	return func(c *Controller) { c.submitDelay = d }
}

// WithSubmitTimeout bounds the insert call.
func WithSubmitTimeout(d time.Duration) Option {
	return func(c *Controller) { c.submitTimeout = d }
}

func WithSleeper(s Sleeper) Option {
	return func(c *Controller) { c.sleep = s }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(c *Controller) { c.newID = gen }
}

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

func WithGreeting(text string) Option {
	return func(c *Controller) { c.greeting = text }
}

// Controller walks one conversation through its steps:
// idle → greeting → step(0..N-1) → submitting → done | failed.
type Controller struct {
	steps    []Step
	inserter Inserter

	sessionID     string
	greeting      string
	promptDelay   time.Duration
	submitDelay   time.Duration
	submitTimeout time.Duration
	sleep         Sleeper
	now           func() time.Time
	newID         func() string
	observer      Observer

	mu         sync.Mutex
	phase      Phase
	index      int
	transcript []Entry
	answers    Answers
	awaiting   bool
	outbox     []func()

	// notifyMu keeps observer delivery in transition order.
	notifyMu sync.Mutex
}

// New creates a controller over a validated step list.
func New(steps []Step, inserter Inserter, opts ...Option) (*Controller, error) {
	if err := ValidateSteps(steps); err != nil {
		return nil, fmt.Errorf("invalid steps: %w", err)
	}
	if inserter == nil {
		return nil, errors.New("inserter is required")
	}

	c := &Controller{
		steps:         append([]Step(nil), steps...),
		inserter:      inserter,
		greeting:      DefaultGreeting,
		promptDelay:   900 * time.Millisecond,
		submitDelay:   1600 * time.Millisecond,
		submitTimeout: 10 * time.Second,
		sleep:         time.Sleep,
		now:           time.Now,
		newID:         uuid.NewString,
		phase:         PhaseIdle,
		answers:       make(Answers, len(steps)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sessionID == "" {
		c.sessionID = c.newID()
	}
	return c, nil
}

// SessionID returns the conversation identifier.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Start posts the greeting and then the first prompt, each after the prompt
// delay. It blocks until the first prompt is shown.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseIdle {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.awaiting = true
	c.setPhase(PhaseGreeting, 0)
	c.mu.Unlock()
	c.flush()

	c.pause(c.promptDelay)

	c.mu.Lock()
	c.appendEntry(SenderSystem, c.greeting)
	c.setPhase(PhaseStep, 0)
	c.mu.Unlock()
	c.flush()

	c.revealPrompt()
	return nil
}

// SubmitAnswer answers the current step. Rejected input leaves the
// conversation untouched. After the last step it performs the submission and
// returns an error wrapping ErrSubmissionFailed if the insert failed.
func (c *Controller) SubmitAnswer(ctx context.Context, raw string) error {
	c.mu.Lock()
	switch {
	case c.phase == PhaseGreeting || c.phase == PhaseSubmitting:
		c.mu.Unlock()
		return ErrAwaitingResponse
	case c.phase != PhaseStep:
		c.mu.Unlock()
		return ErrNotAccepting
	case c.awaiting:
		c.mu.Unlock()
		return ErrAwaitingResponse
	}

	step := c.steps[c.index]
	value := raw
	switch step.Kind {
	case KindFreeText:
		value = strings.TrimSpace(raw)
		if value == "" {
			c.mu.Unlock()
			return ErrEmptyAnswer
		}
	case KindChoice:
		if !step.offers(raw) {
			c.mu.Unlock()
			return ErrInvalidChoice
		}
	}

	c.appendEntry(SenderUser, step.display(value))
	c.answers[step.Key] = value
	c.awaiting = true

	if c.index+1 == len(c.steps) {
		c.setPhase(PhaseSubmitting, c.index)
		answers := c.answers.clone()
		c.mu.Unlock()
		c.flush()
		return c.submit(ctx, answers)
	}

	c.setPhase(PhaseStep, c.index+1)
	c.mu.Unlock()
	c.flush()

	c.revealPrompt()
	return nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Phase:      c.phase,
		StepIndex:  c.index,
		StepCount:  len(c.steps),
		Transcript: append([]Entry(nil), c.transcript...),
		Answers:    c.answers.clone(),
		Awaiting:   c.awaiting,
		Complete:   c.phase == PhaseDone,
	}

	if c.phase == PhaseStep && !c.awaiting {
		step := c.steps[c.index]
		switch step.Kind {
		case KindChoice:
			st.ActiveChoices = append([]Choice(nil), step.Choices...)
		case KindFreeText:
			st.InputOpen = true
			st.Placeholder = step.Placeholder
		}
	}
	return st
}

func (c *Controller) revealPrompt() {
	c.pause(c.promptDelay)

	c.mu.Lock()
	text := c.steps[c.index].Prompt(c.answers.clone())
	c.appendEntry(SenderSystem, text)
	c.awaiting = false
	c.mu.Unlock()
	c.flush()
}

func (c *Controller) submit(ctx context.Context, answers Answers) error {
	c.pause(c.submitDelay)

	rec := BuildApplicant(c.sessionID, answers)

	// The insert outlives the caller's request but never runs unbounded.
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.submitTimeout)
	defer cancel()

	sctx, span := otel.Tracer(tracerName).Start(sctx, "intake.submit")
	span.SetAttributes(attribute.String("intake.session_id", c.sessionID))
	err := c.inserter.InsertApplicant(sctx, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	span.End()

	c.mu.Lock()
	c.awaiting = false
	if err != nil {
		c.setPhase(PhaseFailed, c.index)
		c.appendEntry(SenderSystem, FailureMessage)
		c.mu.Unlock()
		c.flush()
		return fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	c.setPhase(PhaseDone, len(c.steps))
	c.appendEntry(SenderSystem, ThankYouMessage(answers[FieldName], answers[FieldContact]))
	c.mu.Unlock()
	c.flush()
	return nil
}

func (c *Controller) pause(d time.Duration) {
	if d > 0 {
		c.sleep(d)
	}
}

// appendEntry and setPhase require c.mu.

func (c *Controller) appendEntry(sender Sender, text string) {
	e := Entry{
		ID:        c.newID(),
		Sender:    sender,
		Text:      text,
		CreatedAt: c.now(),
	}
	c.transcript = append(c.transcript, e)
	if c.observer != nil {
		id := c.sessionID
		c.outbox = append(c.outbox, func() { c.observer.EntryAppended(id, e) })
	}
}

func (c *Controller) setPhase(p Phase, index int) {
	c.phase = p
	c.index = index
	if c.observer != nil {
		id := c.sessionID
		c.outbox = append(c.outbox, func() { c.observer.PhaseChanged(id, p, index) })
	}
}

func (c *Controller) flush() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	pending := c.outbox
	c.outbox = nil
	c.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}
