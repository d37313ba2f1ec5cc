package model

import (
	"time"
)

// EventType represents the type of intake session event.
type EventType string

const (
	EventTypeStarted   EventType = "started"
	EventTypePhase     EventType = "phase"
	EventTypeSubmitted EventType = "submitted"
	EventTypeFailed    EventType = "failed"
)

// SessionEvent represents a lifecycle event of an intake session.
type SessionEvent struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Type      EventType      `json:"type"`
	Reason    string         `json:"reason,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Sequence  uint64         `json:"sequence,omitempty"`
}

// ErrorEvent represents an error event.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HeartbeatEvent represents a heartbeat event.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}
