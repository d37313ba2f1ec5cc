package model

import (
	"time"
)

// ContactInquiry is a message from the plain contact form, as written to
// applicants_driver.
type ContactInquiry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactRequest is the request body of the contact form.
type ContactRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Message string `json:"message"`
}

// ContactResponse is returned once an inquiry is stored.
type ContactResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}
