package lifecycle

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mathla-go-api/internal/models"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Resolver computes the deadline that applies to one student.
type Resolver struct {
	logger zerolog.Logger
}

// NewResolver builds a resolver that reports unusable stored deadlines.
func NewResolver(logger zerolog.Logger) Resolver {
	return Resolver{logger: logger.With().Str("component", "deadline_resolver").Logger()}
}

// EffectiveDue returns the per-student override when present and valid,
// otherwise the assignment due date, otherwise nil. Invalid stored values
// are logged and skipped.
func (r Resolver) EffectiveDue(assignment models.Assignment, link *models.AssignmentStudent) *time.Time {
	if link != nil && link.DueAt != nil {
		if validInstant(*link.DueAt) {
			due := *link.DueAt
			return &due
		}
		r.logger.Warn().
			Uint("assignment_id", assignment.ID).
			Uint("student_id", link.StudentID).
			Time("due_at", *link.DueAt).
			Msg("ignoring invalid per-student due override")
	}

	if assignment.DueAt != nil {
		if validInstant(*assignment.DueAt) {
			due := *assignment.DueAt
			return &due
		}
		r.logger.Warn().
			Uint("assignment_id", assignment.ID).
			Time("due_at", *assignment.DueAt).
			Msg("ignoring invalid assignment due date")
	}

	return nil
}

// IsPast reports whether due is a valid instant strictly before now.
func IsPast(due *time.Time, now time.Time) bool {
	if due == nil || !validInstant(*due) {
		return false
	}
	return due.Before(now)
}

// ParseTimestamp parses a user supplied deadline. Empty input means no
// deadline. Timestamps without a zone are read as UTC.
func ParseTimestamp(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if !validInstant(parsed) {
			break
		}
		parsed = parsed.UTC()
		return &parsed, nil
	}
	return nil, Invalid(CodeInvalidTimestamp, "unrecognised timestamp "+raw)
}

func validInstant(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	year := t.Year()
	return year >= 1900 && year <= 9999
}
