package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/mathla-go-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	AssignmentID  *uint
	AssignmentIDs []uint
	StudentID     *uint
	TeacherID     *uint
	Status        *models.SubmissionStatus
	// LatestOnly keeps the highest-ID row of every (assignment, student) pair.
	LatestOnly bool
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	Latest(ctx context.Context, assignmentID, studentID uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	Delete(ctx context.Context, id uint) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Assignment").
		Preload("Student")
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.AssignmentID != nil {
		query = query.Where("submissions.assignment_id = ?", *filter.AssignmentID)
	}

	if len(filter.AssignmentIDs) > 0 {
		query = query.Where("submissions.assignment_id IN ?", filter.AssignmentIDs)
	}

	if filter.StudentID != nil {
		query = query.Where("submissions.student_id = ?", *filter.StudentID)
	}

	if filter.TeacherID != nil {
		owned := r.db.WithContext(ctx).Model(&models.Assignment{}).Select("id").Where("teacher_id = ?", *filter.TeacherID)
		query = query.Where("submissions.assignment_id IN (?)", owned)
	}

	if filter.Status != nil {
		query = query.Where("submissions.status = ?", *filter.Status)
	}

	if filter.LatestOnly {
		latest := r.db.WithContext(ctx).Model(&models.Submission{}).
			Select("MAX(id)").
			Group("assignment_id, student_id")
		query = query.Where("submissions.id IN (?)", latest)
	}

	var submissions []models.Submission
	if err := query.Order("submissions.id DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// Latest returns the authoritative row of a pair: the one with the highest ID.
func (r *submissionRepository) Latest(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("student_id = ?", studentID).
		Order("id DESC").
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Omit("Assignment", "Student").Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Omit("Assignment", "Student").Save(submission).Error
}

// Delete removes the row and its transition history.
func (r *submissionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("submission_id = ?", id).Delete(&models.SubmissionTransition{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Submission{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
