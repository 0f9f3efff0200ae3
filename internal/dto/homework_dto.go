package dto

import (
	"time"

	"github.com/noah-isme/mathla-go-api/internal/lifecycle"
)

// HomeworkResponse lists a student's assignments with derived states.
type HomeworkResponse struct {
	Summary     HomeworkSummary `json:"summary"`
	Items       []HomeworkItem  `json:"items"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// HomeworkSummary counts items per derived state.
type HomeworkSummary struct {
	Total      int `json:"total"`
	NotStarted int `json:"not_started"`
	Draft      int `json:"draft"`
	Submitted  int `json:"submitted"`
	Graded     int `json:"graded"`
	Overdue    int `json:"overdue"`
}

// HomeworkItem describes one assignment relative to the student.
type HomeworkItem struct {
	AssignmentID    uint                `json:"assignment_id"`
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	ProblemFormat   string              `json:"problem_format"`
	DueAt           *time.Time          `json:"due_at"`
	StudentDueAt    *time.Time          `json:"student_due_at"`
	EffectiveDueAt  *time.Time          `json:"effective_due_at"`
	State           string              `json:"state"`
	Virtual         bool                `json:"virtual"`
	Editable        bool                `json:"editable"`
	SubmissionID    *uint               `json:"submission_id"`
	Status          *string             `json:"status"`
	Score           *string             `json:"score"`
	ReviewNote      *string             `json:"review_note"`
	TeacherOverride bool                `json:"teacher_override"`
	Examples        []lifecycle.Example `json:"examples"`
}
