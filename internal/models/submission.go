package models

import "time"

// SubmissionStatus is the persisted lifecycle state of a submission row.
type SubmissionStatus string

const (
	// SubmissionStatusDraft is editable by the student.
	SubmissionStatusDraft SubmissionStatus = "DRAFT"
	// SubmissionStatusSubmitted waits in the teacher's grading queue.
	SubmissionStatusSubmitted SubmissionStatus = "SUBMITTED"
	// SubmissionStatusGraded carries a confirmed grade.
	SubmissionStatusGraded SubmissionStatus = "GRADED"
)

// Valid reports whether the status is one of the persisted states.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusDraft, SubmissionStatusSubmitted, SubmissionStatusGraded:
		return true
	default:
		return false
	}
}

// Submission is one student's evolving answer for one assignment. The row
// with the highest ID for a pair is authoritative.
type Submission struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	AssignmentID    uint             `gorm:"not null;index:idx_submission_pair" json:"assignment_id"`
	StudentID       uint             `gorm:"not null;index:idx_submission_pair;index" json:"student_id"`
	TextAnswer      string           `gorm:"type:text" json:"text_answer"`
	Status          SubmissionStatus `gorm:"size:16;not null;index" json:"status"`
	Score           *string          `gorm:"size:32" json:"score"`
	ReviewNote      *string          `gorm:"size:1000" json:"review_note"`
	TeacherOverride bool             `gorm:"not null;default:false" json:"teacher_override"`
	SubmittedAt     *time.Time       `json:"submitted_at"`
	GradedAt        *time.Time       `json:"graded_at"`
	GradedBy        *uint            `json:"graded_by"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	Assignment      Assignment       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student         User             `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsGraded reports whether the submission has a confirmed grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded
}
