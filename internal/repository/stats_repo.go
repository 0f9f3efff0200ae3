package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/mathla-go-api/internal/models"
)

// StatusCount is one row of a GROUP BY status query.
type StatusCount struct {
	Status string
	Total  int64
}

// StatsRepository supplies counters for the stats endpoints.
type StatsRepository interface {
	CountUsersByRole(ctx context.Context) ([]StatusCount, error)
	CountAssignments(ctx context.Context, teacherID *uint) (int64, error)
	CountSubmissionsByStatus(ctx context.Context, studentID *uint) ([]StatusCount, error)
	CountGradedBy(ctx context.Context, teacherID uint) (int64, error)
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository constructs the stats repository.
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) CountUsersByRole(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("role AS status, COUNT(*) AS total").
		Group("role").
		Scan(&rows).Error
	return rows, err
}

func (r *statsRepository) CountAssignments(ctx context.Context, teacherID *uint) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{})
	if teacherID != nil {
		query = query.Where("teacher_id = ?", *teacherID)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (r *statsRepository) CountSubmissionsByStatus(ctx context.Context, studentID *uint) ([]StatusCount, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})
	if studentID != nil {
		query = query.Where("student_id = ?", *studentID)
	}

	var rows []StatusCount
	err := query.
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	return rows, err
}

func (r *statsRepository) CountGradedBy(ctx context.Context, teacherID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("graded_by = ?", teacherID).
		Where("status = ?", models.SubmissionStatusGraded).
		Count(&count).Error
	return count, err
}
