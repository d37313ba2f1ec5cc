// Package service provides business logic for the intake service.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rothspit/diabro-web/internal/intake"
	"github.com/rothspit/diabro-web/internal/model"
	"github.com/rothspit/diabro-web/pkg/logger"
	"github.com/rothspit/diabro-web/pkg/metrics"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// Publisher forwards intake activity to downstream consumers.
type Publisher interface {
	PublishEntry(ctx context.Context, sessionID string, e intake.Entry) (uint64, error)
	PublishEvent(ctx context.Context, event *model.SessionEvent) (uint64, error)
	PublishContact(ctx context.Context, c *model.ContactInquiry) (uint64, error)
}

// Session is the view of one conversation handed to clients.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	intake.State
}

// SessionOptions tunes the conversations a SessionService creates.
type SessionOptions struct {
	PromptDelay   time.Duration
	SubmitDelay   time.Duration
	SubmitTimeout time.Duration
	TTL           time.Duration

	// Sleeper overrides the delay primitive; nil uses time.Sleep.
	Sleeper intake.Sleeper
}

type sessionEntry struct {
	ctrl      *intake.Controller
	createdAt time.Time
	touchedAt time.Time
}

// SessionService holds the live conversations of this process.
type SessionService struct {
	steps     []intake.Step
	inserter  intake.Inserter
	publisher Publisher
	opts      SessionOptions
	logger    *logger.Logger
	now       func() time.Time

	// Conversations are not persisted across restarts.
	sessions map[string]*sessionEntry
	mu       sync.RWMutex
}

// NewSessionService creates a new session service. publisher may be nil.
func NewSessionService(
	steps []intake.Step,
	inserter intake.Inserter,
	publisher Publisher,
	opts SessionOptions,
	log *logger.Logger,
) (*SessionService, error) {
	if err := intake.ValidateSteps(steps); err != nil {
		return nil, fmt.Errorf("invalid step catalog: %w", err)
	}
	return &SessionService{
		steps:     steps,
		inserter:  inserter,
		publisher: publisher,
		opts:      opts,
		logger:    log,
		now:       time.Now,
		sessions:  make(map[string]*sessionEntry),
	}, nil
}

// Create starts a new conversation and returns it once the first prompt is
// shown.
func (s *SessionService) Create(ctx context.Context) (*Session, error) {
	s.Prune()

	id := uuid.Must(uuid.NewV7()).String()
	log := s.logger.WithSession(id, logger.CorrelationID(ctx))

	opts := []intake.Option{
		intake.WithSessionID(id),
		intake.WithPromptDelay(s.opts.PromptDelay),
		intake.WithSubmitDelay(s.opts.SubmitDelay),
		intake.WithObserver(&sessionObserver{publisher: s.publisher, logger: log, now: s.now}),
	}
	if s.opts.SubmitTimeout > 0 {
		opts = append(opts, intake.WithSubmitTimeout(s.opts.SubmitTimeout))
	}
	if s.opts.Sleeper != nil {
		opts = append(opts, intake.WithSleeper(s.opts.Sleeper))
	}

	ctrl, err := intake.New(s.steps, s.inserter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	now := s.now()
	entry := &sessionEntry{ctrl: ctrl, createdAt: now, touchedAt: now}

	s.mu.Lock()
	s.sessions[id] = entry
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	metrics.SessionsStarted.Inc()
	log.Info("intake session created")

	if err := ctrl.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start conversation: %w", err)
	}

	return view(id, entry), nil
}

// Get returns the current view of a conversation.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*Session, error) {
	entry, err := s.lookup(sessionID, false)
	if err != nil {
		return nil, err
	}
	return view(sessionID, entry), nil
}

// Answer submits one answer. The returned view reflects the conversation
// after the answer was handled, including on submission failure.
func (s *SessionService) Answer(ctx context.Context, sessionID, value string) (*Session, error) {
	entry, err := s.lookup(sessionID, true)
	if err != nil {
		return nil, err
	}

	before := entry.ctrl.Snapshot()
	field := "none"
	if before.StepIndex < len(s.steps) {
		field = string(s.steps[before.StepIndex].Key)
	}
	final := before.Phase == intake.PhaseStep && before.StepIndex == before.StepCount-1 && !before.Awaiting

	start := time.Now()
	err = entry.ctrl.SubmitAnswer(ctx, value)
	metrics.AnswersTotal.WithLabelValues(field, answerResult(err)).Inc()

	switch {
	case err == nil && final:
		metrics.RecordSubmission("success", time.Since(start).Seconds())
	case errors.Is(err, intake.ErrSubmissionFailed):
		metrics.RecordSubmission("failure", time.Since(start).Seconds())
		s.logger.WithSession(sessionID, logger.CorrelationID(ctx)).
			Error("intake submission failed", zap.Error(err))
		return view(sessionID, entry), err
	case err != nil:
		return nil, err
	}

	return view(sessionID, entry), nil
}

// Prune drops conversations idle for longer than the TTL and returns how many
// were removed.
func (s *SessionService) Prune() int {
	if s.opts.TTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.opts.TTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.sessions {
		if entry.touchedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	return removed
}

// RunJanitor prunes idle conversations until ctx is done.
func (s *SessionService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Prune(); n > 0 {
				s.logger.Debug("pruned idle sessions", zap.Int("count", n))
			}
		}
	}
}

func (s *SessionService) lookup(sessionID string, touch bool) (*sessionEntry, error) {
	if touch {
		s.mu.Lock()
		defer s.mu.Unlock()
	} else {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}

	entry, exists := s.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}
	if touch {
		entry.touchedAt = s.now()
	}
	return entry, nil
}

func view(id string, entry *sessionEntry) *Session {
	return &Session{
		ID:        id,
		CreatedAt: entry.createdAt,
		State:     entry.ctrl.Snapshot(),
	}
}

func answerResult(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, intake.ErrEmptyAnswer), errors.Is(err, intake.ErrInvalidChoice):
		return "invalid"
	case errors.Is(err, intake.ErrAwaitingResponse), errors.Is(err, intake.ErrNotAccepting):
		return "rejected"
	case errors.Is(err, intake.ErrSubmissionFailed):
		return "accepted"
	default:
		return "error"
	}
}

// sessionObserver relays controller activity to the publisher. Its logger
// already carries the session ID.
type sessionObserver struct {
	publisher Publisher
	logger    *logger.Logger
	now       func() time.Time
}

const publishTimeout = 5 * time.Second

func (o *sessionObserver) EntryAppended(sessionID string, e intake.Entry) {
	if o.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if _, err := o.publisher.PublishEntry(ctx, sessionID, e); err != nil {
		o.logger.Warn("failed to publish transcript entry",
			zap.String("entry_id", e.ID),
			zap.Error(err),
		)
	}
}

func (o *sessionObserver) PhaseChanged(sessionID string, p intake.Phase, stepIndex int) {
	if p.Terminal() {
		o.logger.Info("intake session finished",
			zap.String("phase", string(p)),
			zap.Int("step_index", stepIndex),
		)
	}
	if o.publisher == nil {
		return
	}

	event := &model.SessionEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		SessionID: sessionID,
		Type:      eventType(p),
		Metadata: map[string]any{
			"phase":      string(p),
			"step_index": stepIndex,
		},
		CreatedAt: o.now(),
	}
	if p == intake.PhaseFailed {
		event.Reason = "insert failed"
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if _, err := o.publisher.PublishEvent(ctx, event); err != nil {
		o.logger.Warn("failed to publish session event",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}

func eventType(p intake.Phase) model.EventType {
	switch p {
	case intake.PhaseGreeting:
		return model.EventTypeStarted
	case intake.PhaseDone:
		return model.EventTypeSubmitted
	case intake.PhaseFailed:
		return model.EventTypeFailed
	default:
		return model.EventTypePhase
	}
}
