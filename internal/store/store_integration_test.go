//go:build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/rothspit/diabro-web/internal/model"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	s, err := New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestIntegration_InsertAndListApplicant(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	age := 28
	a := &model.Applicant{
		SessionID:    "integration-test",
		Name:         "Kenji",
		Age:          &age,
		Gender:       "男性",
		HasLicense:   "あり",
		Area:         "西船橋",
		MoveInTiming: "今すぐ",
		Contact:      "090-1234-5678",
	}
	if err := s.InsertApplicant(ctx, a); err != nil {
		t.Fatalf("InsertApplicant failed: %v", err)
	}

	rows, err := s.ListApplicants(ctx, 50, 0)
	if err != nil {
		t.Fatalf("ListApplicants failed: %v", err)
	}
	var found *model.Applicant
	for i := range rows {
		if rows[i].ID == a.ID {
			found = &rows[i]
		}
	}
	if found == nil {
		t.Fatal("inserted applicant not listed")
	}
	if found.Age == nil || *found.Age != 28 {
		t.Errorf("expected age 28, got %v", found.Age)
	}
}

func TestIntegration_InsertApplicantWithoutAge(t *testing.T) {
	s := setupTestStore(t)

	a := &model.Applicant{Name: "NoAge", Contact: "line:noage"}
	if err := s.InsertApplicant(context.Background(), a); err != nil {
		t.Fatalf("InsertApplicant failed: %v", err)
	}
}

func TestIntegration_InsertContact(t *testing.T) {
	s := setupTestStore(t)

	c := &model.ContactInquiry{Name: "田中", Contact: "tanaka@example.com", Message: "寮について"}
	if err := s.InsertContact(context.Background(), c); err != nil {
		t.Fatalf("InsertContact failed: %v", err)
	}
	if c.ID == "" {
		t.Error("expected generated id")
	}
}
