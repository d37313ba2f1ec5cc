package intake

import (
	"time"
)

// Sender is the author of a transcript entry.
type Sender string

const (
	SenderSystem Sender = "system"
	SenderUser   Sender = "user"
)

// Entry is one transcript line. Entries are never edited once appended.
type Entry struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Answers maps each answered field to the raw value the user gave.
type Answers map[Field]string

func (a Answers) clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Phase is the controller's position in the script.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseGreeting   Phase = "greeting"
	PhaseStep       Phase = "step"
	PhaseSubmitting Phase = "submitting"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Terminal reports whether no further transition can happen.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// State is a point-in-time copy of a conversation, safe to hand to readers.
type State struct {
	Phase      Phase   `json:"phase"`
	StepIndex  int     `json:"step_index"`
	StepCount  int     `json:"step_count"`
	Transcript []Entry `json:"transcript"`
	Answers    Answers `json:"answers"`

	// Awaiting is set while a prompt reveal or the submission is pending;
	// no input is accepted until it clears.
	Awaiting bool `json:"awaiting"`

	ActiveChoices []Choice `json:"active_choices,omitempty"`
	InputOpen     bool     `json:"input_open"`
	Placeholder   string   `json:"placeholder,omitempty"`
	Complete      bool     `json:"complete"`
}
