package dto

import "time"

// SubmissionEvent announces a confirmed submission mutation. Receivers
// re-fetch; the event itself is never treated as state.
type SubmissionEvent struct {
	Type         string    `json:"type"`
	Action       string    `json:"action"`
	SubmissionID uint      `json:"submission_id"`
	AssignmentID uint      `json:"assignment_id"`
	StudentID    uint      `json:"student_id"`
	TeacherID    uint      `json:"teacher_id"`
	Status       string    `json:"status"`
	OccurredAt   time.Time `json:"occurred_at"`
}
