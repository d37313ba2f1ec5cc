package intake

import (
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/rothspit/diabro-web/internal/model"
)

// ParseAge reads the leading decimal digits of an age answer. Full-width
// characters are folded first and a leading plus sign is skipped. A negative
// age is never a valid answer, so a leading minus yields nil like any other
// unreadable value.
func ParseAge(v string) *int {
	v = width.Fold.String(strings.TrimSpace(v))
	v = strings.TrimPrefix(v, "+")

	end := 0
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	if end == 0 {
		return nil
	}

	n, err := strconv.Atoi(v[:end])
	if err != nil {
		return nil
	}
	return &n
}

// BuildApplicant maps collected answers onto the persisted record.
func BuildApplicant(sessionID string, a Answers) *model.Applicant {
	return &model.Applicant{
		SessionID:    sessionID,
		Name:         a[FieldName],
		Age:          ParseAge(a[FieldAge]),
		Gender:       a[FieldGender],
		HasLicense:   a[FieldHasLicense],
		Area:         a[FieldArea],
		MoveInTiming: a[FieldMoveInTiming],
		Contact:      a[FieldContact],
	}
}
