package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/rothspit/diabro-web/internal/model"
	"github.com/rothspit/diabro-web/pkg/logger"
	"github.com/rothspit/diabro-web/pkg/metrics"
)

var (
	// ErrInvalidContact is returned when a contact form field is missing or too long.
	ErrInvalidContact = errors.New("invalid contact inquiry")

	// ErrContactFailed is returned when the inquiry could not be stored.
	ErrContactFailed = errors.New("failed to store contact inquiry")
)

const (
	maxNameLength    = 100
	maxContactLength = 200
	maxMessageLength = 4000
)

// ContactInserter stores contact form inquiries.
type ContactInserter interface {
	InsertContact(ctx context.Context, c *model.ContactInquiry) error
}

// ContactService handles the plain contact form.
type ContactService struct {
	store     ContactInserter
	publisher Publisher
	timeout   time.Duration
	logger    *logger.Logger
}

// NewContactService creates a new contact service. publisher may be nil.
func NewContactService(store ContactInserter, publisher Publisher, timeout time.Duration, log *logger.Logger) *ContactService {
	return &ContactService{
		store:     store,
		publisher: publisher,
		timeout:   timeout,
		logger:    log,
	}
}

// Submit validates and stores one inquiry. Like the chat intake, a failed
// insert is reported once and not retried.
func (s *ContactService) Submit(ctx context.Context, req *model.ContactRequest) (*model.ContactInquiry, error) {
	inquiry := &model.ContactInquiry{
		Name:    strings.TrimSpace(req.Name),
		Contact: strings.TrimSpace(req.Contact),
		Message: strings.TrimSpace(req.Message),
	}
	if err := validateContact(inquiry); err != nil {
		metrics.ContactSubmissionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.store.InsertContact(insertCtx, inquiry); err != nil {
		metrics.ContactSubmissionsTotal.WithLabelValues("failure").Inc()
		s.logger.Error("failed to store contact inquiry", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrContactFailed, err)
	}
	metrics.ContactSubmissionsTotal.WithLabelValues("success").Inc()

	if s.publisher != nil {
		if _, err := s.publisher.PublishContact(insertCtx, inquiry); err != nil {
			s.logger.Warn("failed to publish contact inquiry",
				zap.String("inquiry_id", inquiry.ID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("contact inquiry stored", zap.String("inquiry_id", inquiry.ID))
	return inquiry, nil
}

func validateContact(c *model.ContactInquiry) error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidContact)
	case c.Contact == "":
		return fmt.Errorf("%w: contact is required", ErrInvalidContact)
	case c.Message == "":
		return fmt.Errorf("%w: message is required", ErrInvalidContact)
	case utf8.RuneCountInString(c.Name) > maxNameLength:
		return fmt.Errorf("%w: name exceeds maximum length", ErrInvalidContact)
	case utf8.RuneCountInString(c.Contact) > maxContactLength:
		return fmt.Errorf("%w: contact exceeds maximum length", ErrInvalidContact)
	case utf8.RuneCountInString(c.Message) > maxMessageLength:
		return fmt.Errorf("%w: message exceeds maximum length", ErrInvalidContact)
	}
	return nil
}
