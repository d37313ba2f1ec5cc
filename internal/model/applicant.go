// Package model defines the records the intake service persists and publishes.
package model

import (
	"time"
)

// Applicant is one completed chat intake, as written to applicants_delivery.
type Applicant struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	Name         string    `json:"name"`
	Age          *int      `json:"age"`
	Gender       string    `json:"gender"`
	HasLicense   string    `json:"has_license"`
	Area         string    `json:"area"`
	MoveInTiming string    `json:"move_in_timing"`
	Contact      string    `json:"contact"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListApplicantsResponse is the response for the staff listing.
type ListApplicantsResponse struct {
	Applicants []Applicant `json:"applicants"`
	HasMore    bool        `json:"has_more"`
}

// AnswerRequest carries one user answer to a running session.
type AnswerRequest struct {
	Value string `json:"value"`
}
