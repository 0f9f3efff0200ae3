package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/mathla-go-api/internal/lifecycle"
	"github.com/noah-isme/mathla-go-api/internal/models"
	"github.com/noah-isme/mathla-go-api/internal/observability"
	"github.com/noah-isme/mathla-go-api/internal/repository"
)

// TransitionEntry captures one confirmed status change.
type TransitionEntry struct {
	Submission models.Submission
	From       *models.SubmissionStatus
	Action     lifecycle.Action
	Actor      lifecycle.Actor
	Metadata   map[string]interface{}
}

// TransitionRecorder persists the audit trail of submission transitions.
type TransitionRecorder interface {
	Record(ctx context.Context, entry TransitionEntry) error
	List(ctx context.Context, submissionID uint) ([]models.SubmissionTransition, error)
}

type transitionService struct {
	repo   repository.SubmissionTransitionRepository
	logger zerolog.Logger
}

// NewTransitionService constructs the transition recorder.
func NewTransitionService(repo repository.SubmissionTransitionRepository, logger zerolog.Logger) TransitionRecorder {
	return &transitionService{
		repo:   repo,
		logger: logger.With().Str("component", "transition_service").Logger(),
	}
}

func (s *transitionService) Record(ctx context.Context, entry TransitionEntry) error {
	model := models.SubmissionTransition{
		SubmissionID: entry.Submission.ID,
		FromStatus:   entry.From,
		ToStatus:     entry.Submission.Status,
		Action:       string(entry.Action),
		ActorID:      entry.Actor.ID,
		ActorRole:    normalizeRole(string(entry.Actor.Role)),
		Metadata:     sanitizeMetadata(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Uint("submission_id", entry.Submission.ID).Msg("failed to persist transition")
		return err
	}

	observability.TransitionsTotal().WithLabelValues(string(entry.Action), string(entry.Submission.Status)).Inc()
	return nil
}

func (s *transitionService) List(ctx context.Context, submissionID uint) ([]models.SubmissionTransition, error) {
	return s.repo.ListBySubmission(ctx, submissionID)
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func normalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return "system"
	}
	return r
}
