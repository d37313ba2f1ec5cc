// Package store persists intake records and contact inquiries.
package store

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rothspit/diabro-web/internal/model"
)

//go:embed schema.sql
var schema string

// Store is a Postgres-backed store. The tables match the hosted schema used by
// the landing page, so it can point at the same database.
type Store struct {
	pool *pgxpool.Pool
}

// New connects, pings and applies the schema.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InsertApplicant writes one intake record into applicants_delivery.
func (s *Store) InsertApplicant(ctx context.Context, a *model.Applicant) error {
	stamp(&a.ID, &a.CreatedAt)
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return fmt.Errorf("applicant id: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO applicants_delivery
			(id, session_id, name, age, gender, has_license, area, move_in_timing, contact, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, a.SessionID, a.Name, a.Age, a.Gender, a.HasLicense, a.Area, a.MoveInTiming, a.Contact, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert applicant: %w", err)
	}
	return nil
}

// InsertContact writes one contact form inquiry into applicants_driver.
func (s *Store) InsertContact(ctx context.Context, c *model.ContactInquiry) error {
	stamp(&c.ID, &c.CreatedAt)
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return fmt.Errorf("contact id: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO applicants_driver (id, name, contact, message, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id, c.Name, c.Contact, c.Message, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// ListApplicants returns intake records, newest first.
func (s *Store) ListApplicants(ctx context.Context, limit, offset int) ([]model.Applicant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, name, age, gender, has_license, area, move_in_timing, contact, created_at
		FROM applicants_delivery
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query applicants: %w", err)
	}
	defer rows.Close()

	var out []model.Applicant
	for rows.Next() {
		var (
			a  model.Applicant
			id uuid.UUID
		)
		if err := rows.Scan(&id, &a.SessionID, &a.Name, &a.Age, &a.Gender, &a.HasLicense,
			&a.Area, &a.MoveInTiming, &a.Contact, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan applicant: %w", err)
		}
		a.ID = id.String()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applicants: %w", err)
	}
	return out, nil
}

func stamp(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.Must(uuid.NewV7()).String()
	}
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
}
