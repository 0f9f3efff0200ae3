package dto

import (
	"time"

	"github.com/noah-isme/mathla-go-api/internal/lifecycle"
)

// GradeRequest confirms a grade. Status, when present, must be GRADED.
type GradeRequest struct {
	Score          *string `json:"score" validate:"omitempty,max=32"`
	Note           *string `json:"note" validate:"omitempty,max=1000"`
	Status         *string `json:"status" validate:"omitempty,eq=GRADED"`
	ExpectedStatus *string `json:"expected_status" validate:"omitempty,oneof=DRAFT SUBMITTED GRADED"`
}

// GradeMissingRequest grades a student who never produced a row.
// TeacherOverride must be true to confirm the administrative mark.
type GradeMissingRequest struct {
	AssignmentID    uint    `json:"assignment_id" validate:"required,gt=0"`
	StudentID       uint    `json:"student_id" validate:"required,gt=0"`
	Score           *string `json:"score" validate:"omitempty,max=32"`
	Note            *string `json:"note" validate:"omitempty,max=1000"`
	TeacherOverride *bool   `json:"teacher_override"`
}

// MaterializeRequest turns a virtual missing entry into a stored row.
type MaterializeRequest struct {
	AssignmentID uint `json:"assignment_id" validate:"required,gt=0"`
	StudentID    uint `json:"student_id" validate:"required,gt=0"`
}

// RetakeRequest sends a submission back to draft, optionally with a new deadline.
type RetakeRequest struct {
	DueAt          *string `json:"due_at"`
	ExpectedStatus *string `json:"expected_status" validate:"omitempty,oneof=DRAFT SUBMITTED GRADED"`
}

// ReopenRequest reopens a graded submission.
type ReopenRequest struct {
	ExpectedStatus *string `json:"expected_status" validate:"omitempty,oneof=DRAFT SUBMITTED GRADED"`
}

// GradingQueueRequest narrows the queue to one assignment.
type GradingQueueRequest struct {
	AssignmentID *uint `query:"assignment_id"`
}

// GradingQueueEntry is one (assignment, student) pair in the queue. Virtual
// entries have no submission id and are keyed "virtual-<assignment>-<student>".
type GradingQueueEntry struct {
	Key             string              `json:"key"`
	Virtual         bool                `json:"virtual"`
	SubmissionID    *uint               `json:"submission_id"`
	AssignmentID    uint                `json:"assignment_id"`
	AssignmentTitle string              `json:"assignment_title"`
	StudentID       uint                `json:"student_id"`
	StudentName     string              `json:"student_name"`
	Status          string              `json:"status"`
	State           string              `json:"state"`
	EffectiveDueAt  *time.Time          `json:"effective_due_at"`
	Score           *string             `json:"score"`
	ReviewNote      *string             `json:"review_note"`
	TeacherOverride bool                `json:"teacher_override"`
	SubmittedAt     *time.Time          `json:"submitted_at"`
	Examples        []lifecycle.Example `json:"examples"`
}

// GradingQueueResponse groups queue entries by what the teacher can do with them.
type GradingQueueResponse struct {
	Pending       []GradingQueueEntry `json:"pending"`
	OverdueDrafts []GradingQueueEntry `json:"overdue_drafts"`
	Graded        []GradingQueueEntry `json:"graded"`
}
