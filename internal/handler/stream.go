package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rothspit/diabro-web/internal/intake"
	"github.com/rothspit/diabro-web/internal/middleware"
	"github.com/rothspit/diabro-web/internal/model"
	"github.com/rothspit/diabro-web/internal/service"
	"github.com/rothspit/diabro-web/pkg/logger"
	"github.com/rothspit/diabro-web/pkg/metrics"
)

const (
	defaultPollInterval      = 200 * time.Millisecond
	defaultHeartbeatInterval = 30 * time.Second
)

// StreamHandler handles SSE streaming of a session.
type StreamHandler struct {
	sessions          *service.SessionService
	logger            *logger.Logger
	pollInterval      time.Duration
	heartbeatInterval time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(sessions *service.SessionService, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		sessions:          sessions,
		logger:            log,
		pollInterval:      defaultPollInterval,
		heartbeatInterval: defaultHeartbeatInterval,
	}
}

// stateEvent is everything in a session view except the transcript, which is
// streamed entry by entry.
type stateEvent struct {
	Phase         intake.Phase    `json:"phase"`
	StepIndex     int             `json:"step_index"`
	StepCount     int             `json:"step_count"`
	Awaiting      bool            `json:"awaiting"`
	ActiveChoices []intake.Choice `json:"active_choices,omitempty"`
	InputOpen     bool            `json:"input_open"`
	Placeholder   string          `json:"placeholder,omitempty"`
	Complete      bool            `json:"complete"`
}

func stateOf(s intake.State) stateEvent {
	return stateEvent{
		Phase:         s.Phase,
		StepIndex:     s.StepIndex,
		StepCount:     s.StepCount,
		Awaiting:      s.Awaiting,
		ActiveChoices: s.ActiveChoices,
		InputOpen:     s.InputOpen,
		Placeholder:   s.Placeholder,
		Complete:      s.Complete,
	}
}

func (e stateEvent) same(o stateEvent) bool {
	return e.Phase == o.Phase &&
		e.StepIndex == o.StepIndex &&
		e.Awaiting == o.Awaiting &&
		e.InputOpen == o.InputOpen &&
		e.Complete == o.Complete &&
		e.Placeholder == o.Placeholder &&
		slices.Equal(e.ActiveChoices, o.ActiveChoices)
}

// Stream handles GET /api/v1/sessions/{id}/stream
// Supports ?after=N to skip the first N transcript entries on reconnect.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	sent := queryInt(r, "after", 0)
	if sent > len(sess.Transcript) {
		sent = len(sess.Transcript)
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	sendSSEEvent(w, flusher, "connected", "", map[string]string{
		"session_id": sessionID,
	})

	var last *stateEvent
	flush := func(s intake.State) {
		for ; sent < len(s.Transcript); sent++ {
			sendSSEEvent(w, flusher, "entry", fmt.Sprint(sent+1), s.Transcript[sent])
		}
		cur := stateOf(s)
		if last == nil || !last.same(cur) {
			sendSSEEvent(w, flusher, "state", "", cur)
			last = &cur
		}
	}

	flush(sess.State)

	poll := time.NewTicker(h.pollInterval)
	defer poll.Stop()
	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		if last.Phase.Terminal() {
			sendSSEEvent(w, flusher, "done", "", map[string]string{"phase": string(last.Phase)})
			return
		}

		select {
		case <-ctx.Done():
			h.logger.Debug("SSE client disconnected", zap.String("session_id", sessionID))
			return

		case <-poll.C:
			sess, err := h.sessions.Get(ctx, sessionID)
			if err != nil {
				sendSSEEvent(w, flusher, "error", "", &model.ErrorEvent{
					Code:    "session_expired",
					Message: "session no longer available",
				})
				return
			}
			flush(sess.State)

		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", "", &model.HeartbeatEvent{
				Timestamp: time.Now(),
			})
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event, id string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if id != "" {
		fmt.Fprintf(w, "id: %s\n", id)
	}
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
