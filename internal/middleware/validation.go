package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

const maxAnswerLength = 500

// ValidateSessionID validates a session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateAnswer checks the transport-level shape of an answer. Emptiness
// and choice membership are decided by the conversation itself.
func ValidateAnswer(value string) error {
	if !utf8.ValidString(value) {
		return errors.New("answer must be valid UTF-8")
	}
	if utf8.RuneCountInString(value) > maxAnswerLength {
		return errors.New("answer exceeds maximum length")
	}
	return nil
}
