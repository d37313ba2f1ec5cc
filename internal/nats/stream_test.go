package nats

import (
	"testing"

	"github.com/rothspit/diabro-web/internal/intake"
	"github.com/rothspit/diabro-web/internal/model"
)

func TestSubjects(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"system entry", EntrySubject("abc", intake.SenderSystem), "intake.session.abc.entry.system"},
		{"user entry", EntrySubject("abc", intake.SenderUser), "intake.session.abc.entry.user"},
		{"submitted event", EventSubject("abc", model.EventTypeSubmitted), "intake.session.abc.event.submitted"},
		{"contact", ContactSubject(), "intake.contact"},
		{"entry filter", EntryFilter("abc"), "intake.session.abc.entry.>"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, tt.got)
		}
	}
}
