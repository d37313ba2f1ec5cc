package store

import (
	"context"
	"sync"

	"github.com/rothspit/diabro-web/internal/model"
)

// Memory keeps records in process. It backs local development when no
// DATABASE_URL is configured, and the handler tests.
type Memory struct {
	mu         sync.RWMutex
	applicants []model.Applicant
	contacts   []model.ContactInquiry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

func (m *Memory) Close() {}

func (m *Memory) InsertApplicant(ctx context.Context, a *model.Applicant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stamp(&a.ID, &a.CreatedAt)

	m.mu.Lock()
	m.applicants = append(m.applicants, *a)
	m.mu.Unlock()
	return nil
}

func (m *Memory) InsertContact(ctx context.Context, c *model.ContactInquiry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stamp(&c.ID, &c.CreatedAt)

	m.mu.Lock()
	m.contacts = append(m.contacts, *c)
	m.mu.Unlock()
	return nil
}

// ListApplicants returns records newest first.
func (m *Memory) ListApplicants(ctx context.Context, limit, offset int) ([]model.Applicant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := len(m.applicants)
	var out []model.Applicant
	for i := total - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.applicants[i])
	}
	return out, nil
}

// Contacts returns a copy of the stored inquiries in insertion order.
func (m *Memory) Contacts() []model.ContactInquiry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.ContactInquiry(nil), m.contacts...)
}
