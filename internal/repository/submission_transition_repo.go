package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/mathla-go-api/internal/models"
)

// SubmissionTransitionRepository persists the status audit trail.
type SubmissionTransitionRepository interface {
	Create(ctx context.Context, entry *models.SubmissionTransition) error
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.SubmissionTransition, error)
}

type submissionTransitionRepository struct {
	db *gorm.DB
}

// NewSubmissionTransitionRepository constructs the transition repository.
func NewSubmissionTransitionRepository(db *gorm.DB) SubmissionTransitionRepository {
	return &submissionTransitionRepository{db: db}
}

func (r *submissionTransitionRepository) Create(ctx context.Context, entry *models.SubmissionTransition) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *submissionTransitionRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.SubmissionTransition, error) {
	var entries []models.SubmissionTransition
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}
