package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/mathla-go-api/internal/models"
)

// AssignmentStudentRepository manages assignment-student links.
type AssignmentStudentRepository interface {
	Get(ctx context.Context, assignmentID, studentID uint) (models.AssignmentStudent, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.AssignmentStudent, error)
	ListByAssignments(ctx context.Context, assignmentIDs []uint) ([]models.AssignmentStudent, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.AssignmentStudent, error)
	CreateMany(ctx context.Context, links []models.AssignmentStudent) error
	SetDue(ctx context.Context, assignmentID, studentID uint, dueAt *time.Time) error
	Unassign(ctx context.Context, assignmentID, studentID uint) error
}

type assignmentStudentRepository struct {
	db *gorm.DB
}

// NewAssignmentStudentRepository constructs the link repository.
func NewAssignmentStudentRepository(db *gorm.DB) AssignmentStudentRepository {
	return &assignmentStudentRepository{db: db}
}

func (r *assignmentStudentRepository) Get(ctx context.Context, assignmentID, studentID uint) (models.AssignmentStudent, error) {
	var link models.AssignmentStudent
	err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&link).Error
	if err != nil {
		return models.AssignmentStudent{}, err
	}

	return link, nil
}

func (r *assignmentStudentRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.AssignmentStudent, error) {
	var links []models.AssignmentStudent
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("assignment_id = ?", assignmentID).
		Order("student_id ASC").
		Find(&links).Error
	return links, err
}

func (r *assignmentStudentRepository) ListByAssignments(ctx context.Context, assignmentIDs []uint) ([]models.AssignmentStudent, error) {
	if len(assignmentIDs) == 0 {
		return []models.AssignmentStudent{}, nil
	}

	var links []models.AssignmentStudent
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("assignment_id IN ?", assignmentIDs).
		Order("assignment_id ASC, student_id ASC").
		Find(&links).Error
	return links, err
}

func (r *assignmentStudentRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.AssignmentStudent, error) {
	var links []models.AssignmentStudent
	err := r.db.WithContext(ctx).
		Preload("Assignment").
		Where("student_id = ?", studentID).
		Order("assignment_id ASC").
		Find(&links).Error
	return links, err
}

func (r *assignmentStudentRepository) CreateMany(ctx context.Context, links []models.AssignmentStudent) error {
	if len(links) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Assignment", "Student").Create(&links).Error
}

func (r *assignmentStudentRepository) SetDue(ctx context.Context, assignmentID, studentID uint, dueAt *time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.AssignmentStudent{}).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Update("due_at", dueAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Unassign deletes the link and every non-graded submission of the pair.
// Graded rows are kept as history.
func (r *assignmentStudentRepository) Unassign(ctx context.Context, assignmentID, studentID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pair := tx.Model(&models.Submission{}).
			Select("id").
			Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
			Where("status <> ?", models.SubmissionStatusGraded)
		if err := tx.Where("submission_id IN (?)", pair).Delete(&models.SubmissionTransition{}).Error; err != nil {
			return err
		}
		if err := tx.
			Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
			Where("status <> ?", models.SubmissionStatusGraded).
			Delete(&models.Submission{}).Error; err != nil {
			return err
		}

		result := tx.Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).Delete(&models.AssignmentStudent{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
