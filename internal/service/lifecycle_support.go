package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/mathla-go-api/internal/dto"
	"github.com/noah-isme/mathla-go-api/internal/lifecycle"
	"github.com/noah-isme/mathla-go-api/internal/middleware"
	"github.com/noah-isme/mathla-go-api/internal/models"
	"github.com/noah-isme/mathla-go-api/internal/observability"
	"github.com/noah-isme/mathla-go-api/internal/repository"
)

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrSubmissionNotFound indicates the submission was not located.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrUserNotFound indicates the user was not located.
	ErrUserNotFound = errors.New("user not found")
	// ErrAssigneeNotFound indicates the student is not linked to the assignment.
	ErrAssigneeNotFound = errors.New("student is not assigned to this assignment")
)

// Steps reported by StepError.
const (
	StepMaterialize = "materialize"
	StepGrade       = "grade"
	StepDueOverride = "due_override"
	StepRetake      = "retake"
)

// StepError reports which step of a multi-step operation failed. When an
// earlier step already produced a row, SubmissionID names it so a retry only
// repeats the failed step.
type StepError struct {
	Step         string
	SubmissionID uint
	Err          error
}

func (e *StepError) Error() string {
	if e.SubmissionID != 0 {
		return fmt.Sprintf("%s failed for submission %d: %v", e.Step, e.SubmissionID, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// EventPublisher fans out submission events after a confirmed write.
type EventPublisher interface {
	Publish(ctx context.Context, event dto.SubmissionEvent)
}

// hooks runs the side effects shared by every confirmed transition.
type hooks struct {
	transitions TransitionRecorder
	events      EventPublisher
	logger      zerolog.Logger
	now         func() time.Time
}

func (h hooks) confirmed(ctx context.Context, entry TransitionEntry, teacherID uint) {
	submission := entry.Submission
	logger := middleware.LoggerWithCorrelation(ctx, h.logger)
	if h.transitions != nil {
		if err := h.transitions.Record(ctx, entry); err != nil {
			logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("transition audit not stored")
		}
	}

	from := "NONE"
	if entry.From != nil {
		from = string(*entry.From)
	}
	logger.Info().
		Uint("submission_id", submission.ID).
		Str("from", from).
		Str("to", string(submission.Status)).
		Str("action", string(entry.Action)).
		Uint("actor_id", entry.Actor.ID).
		Msg("submission transition")

	h.publish(ctx, "submission."+string(entry.Action), string(entry.Action), submission, teacherID)
}

func (h hooks) publish(ctx context.Context, eventType, action string, submission models.Submission, teacherID uint) {
	if h.events == nil {
		return
	}
	h.events.Publish(ctx, dto.SubmissionEvent{
		Type:         eventType,
		Action:       action,
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		TeacherID:    teacherID,
		Status:       string(submission.Status),
		OccurredAt:   h.now().UTC(),
	})
}

func rejected(action lifecycle.Action, err error) error {
	if code := lifecycle.CodeOf(err); code != "" {
		observability.TransitionRejections().WithLabelValues(string(action), code).Inc()
	}
	return err
}

// checkExpected rejects a mutation issued against a stale view.
func checkExpected(current models.SubmissionStatus, expected *string) error {
	if expected == nil || *expected == "" || *expected == string(current) {
		return nil
	}
	return lifecycle.Conflict(lifecycle.CodeStaleStatus,
		fmt.Sprintf("submission is %s, expected %s; reload and retry", current, *expected))
}

func requireTeacher(actor lifecycle.Actor) error {
	if !actor.IsTeacher() {
		return lifecycle.Permission(lifecycle.CodeRoleForbidden, "only teachers may do this")
	}
	return nil
}

func requireStudent(actor lifecycle.Actor) error {
	if !actor.IsStudent() {
		return lifecycle.Permission(lifecycle.CodeRoleForbidden, "only students may do this")
	}
	return nil
}

func requireOwner(assignment models.Assignment, actor lifecycle.Actor) error {
	if err := requireTeacher(actor); err != nil {
		return err
	}
	if !assignment.OwnedBy(actor.ID) {
		return lifecycle.Permission(lifecycle.CodeNotOwner, "assignment belongs to another teacher")
	}
	return nil
}

func loadAssignment(ctx context.Context, repo repository.AssignmentRepository, id uint) (models.Assignment, error) {
	assignment, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}

func loadSubmission(ctx context.Context, repo repository.SubmissionRepository, id uint) (models.Submission, error) {
	submission, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}

// loadLink returns the student's link, or a NOT_ASSIGNED permission error.
func loadLink(ctx context.Context, repo repository.AssignmentStudentRepository, assignmentID, studentID uint) (models.AssignmentStudent, error) {
	link, err := repo.Get(ctx, assignmentID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AssignmentStudent{}, lifecycle.Permission(lifecycle.CodeNotAssigned, "student is not assigned to this assignment")
		}
		return models.AssignmentStudent{}, err
	}
	return link, nil
}

// latestRow returns the authoritative row of a pair, or nil when none exists.
func latestRow(ctx context.Context, repo repository.SubmissionRepository, assignmentID, studentID uint) (*models.Submission, error) {
	submission, err := repo.Latest(ctx, assignmentID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &submission, nil
}

func statusOf(submission *models.Submission) *models.SubmissionStatus {
	if submission == nil {
		return nil
	}
	return lifecycle.StatusPtr(submission.Status)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
