package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rothspit/diabro-web/internal/intake"
	"github.com/rothspit/diabro-web/internal/model"
)

// ApplicantLister reads stored intake records.
type ApplicantLister interface {
	ListApplicants(ctx context.Context, limit, offset int) ([]model.Applicant, error)
}

// TranscriptReader replays published transcript entries.
type TranscriptReader interface {
	GetEntries(ctx context.Context, sessionID string, afterSequence uint64, limit int) ([]intake.Entry, uint64, error)
}

// AdminService serves the staff views.
type AdminService struct {
	applicants  ApplicantLister
	sessions    *SessionService
	transcripts TranscriptReader
}

// NewAdminService creates a new admin service. transcripts may be nil.
func NewAdminService(applicants ApplicantLister, sessions *SessionService, transcripts TranscriptReader) *AdminService {
	return &AdminService{
		applicants:  applicants,
		sessions:    sessions,
		transcripts: transcripts,
	}
}

// ListApplicants returns one page of intake records, newest first.
func (s *AdminService) ListApplicants(ctx context.Context, limit, offset int) (*model.ListApplicantsResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	// One extra row tells whether another page exists.
	rows, err := s.applicants.ListApplicants(ctx, limit+1, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list applicants: %w", err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []model.Applicant{}
	}
	return &model.ListApplicantsResponse{Applicants: rows, HasMore: hasMore}, nil
}

// Transcript returns a session's transcript: from memory while the session
// is live, otherwise replayed from the event stream.
func (s *AdminService) Transcript(ctx context.Context, sessionID string) ([]intake.Entry, error) {
	live, err := s.sessions.Get(ctx, sessionID)
	if err == nil {
		return live.Transcript, nil
	}
	if !errors.Is(err, ErrSessionNotFound) || s.transcripts == nil {
		return nil, err
	}

	var (
		out   []intake.Entry
		after uint64
	)
	for {
		batch, last, err := s.transcripts.GetEntries(ctx, sessionID, after, 100)
		if err != nil {
			return nil, fmt.Errorf("failed to replay transcript: %w", err)
		}
		out = append(out, batch...)
		if len(batch) < 100 || last == 0 {
			break
		}
		after = last
	}

	if len(out) == 0 {
		return nil, ErrSessionNotFound
	}
	return out, nil
}
