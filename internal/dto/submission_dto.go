package dto

import (
	"time"

	"github.com/noah-isme/mathla-go-api/internal/lifecycle"
	"github.com/noah-isme/mathla-go-api/internal/models"
)

// SubmissionStartRequest starts work on an assignment. Answers, when sent,
// take precedence over TextAnswer and are packed with the codec.
type SubmissionStartRequest struct {
	AssignmentID uint     `json:"assignment_id" validate:"required,gt=0"`
	TextAnswer   string   `json:"text_answer" validate:"max=100000"`
	Answers      []string `json:"answers"`
}

// SubmissionUpdateRequest is used for autosave and submit.
type SubmissionUpdateRequest struct {
	TextAnswer     *string  `json:"text_answer" validate:"omitempty,max=100000"`
	Answers        []string `json:"answers"`
	Status         *string  `json:"status" validate:"omitempty,oneof=DRAFT SUBMITTED GRADED"`
	ExpectedStatus *string  `json:"expected_status" validate:"omitempty,oneof=DRAFT SUBMITTED GRADED"`
}

// SubmissionListRequest describes query string filters for listing submissions.
type SubmissionListRequest struct {
	AssignmentID *uint   `query:"assignment_id"`
	StudentID    *uint   `query:"student_id"`
	TeacherID    *uint   `query:"teacher_id"`
	Status       *string `query:"status" validate:"omitempty,oneof=DRAFT SUBMITTED GRADED"`
	Latest       bool    `query:"latest"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID              uint                `json:"id"`
	AssignmentID    uint                `json:"assignment_id"`
	StudentID       uint                `json:"student_id"`
	TextAnswer      string              `json:"text_answer"`
	Examples        []lifecycle.Example `json:"examples,omitempty"`
	Status          string              `json:"status"`
	Score           *string             `json:"score"`
	ReviewNote      *string             `json:"review_note"`
	TeacherOverride bool                `json:"teacher_override"`
	SubmittedAt     *time.Time          `json:"submitted_at"`
	GradedAt        *time.Time          `json:"graded_at"`
	GradedBy        *uint               `json:"graded_by"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Assignment      *AssignmentLite     `json:"assignment,omitempty"`
	Student         *UserLite           `json:"student,omitempty"`
}

// AssignmentLite summarizes an assignment in submission responses.
type AssignmentLite struct {
	ID        uint       `json:"id"`
	TeacherID uint       `json:"teacher_id"`
	Title     string     `json:"title"`
	DueAt     *time.Time `json:"due_at"`
}

// UserLite summarizes a user without exposing full profile data.
type UserLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewSubmissionResponse converts a Submission model into a DTO. When the
// assignment is loaded, the answer is zipped with its statements.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:              model.ID,
		AssignmentID:    model.AssignmentID,
		StudentID:       model.StudentID,
		TextAnswer:      model.TextAnswer,
		Status:          string(model.Status),
		Score:           model.Score,
		ReviewNote:      model.ReviewNote,
		TeacherOverride: model.TeacherOverride,
		SubmittedAt:     model.SubmittedAt,
		GradedAt:        model.GradedAt,
		GradedBy:        model.GradedBy,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}

	if model.Assignment.ID != 0 {
		response.Assignment = &AssignmentLite{
			ID:        model.Assignment.ID,
			TeacherID: model.Assignment.TeacherID,
			Title:     model.Assignment.Title,
			DueAt:     model.Assignment.DueAt,
		}
		response.Examples = lifecycle.Zip(lifecycle.SplitStatements(model.Assignment.ProblemContent), model.TextAnswer)
	}

	if model.Student.ID != 0 {
		response.Student = &UserLite{
			ID:    model.Student.ID,
			Name:  model.Student.Name,
			Email: model.Student.Email,
		}
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}

// TransitionResponse is one entry of a submission's status history.
type TransitionResponse struct {
	ID         uint                   `json:"id"`
	FromStatus *string                `json:"from_status"`
	ToStatus   string                 `json:"to_status"`
	Action     string                 `json:"action"`
	ActorID    uint                   `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// NewTransitionResponse converts a transition model into a DTO.
func NewTransitionResponse(model models.SubmissionTransition) TransitionResponse {
	response := TransitionResponse{
		ID:        model.ID,
		ToStatus:  string(model.ToStatus),
		Action:    model.Action,
		ActorID:   model.ActorID,
		ActorRole: model.ActorRole,
		Metadata:  map[string]interface{}(model.Metadata),
		CreatedAt: model.CreatedAt,
	}
	if model.FromStatus != nil {
		from := string(*model.FromStatus)
		response.FromStatus = &from
	}
	if response.Metadata == nil {
		response.Metadata = map[string]interface{}{}
	}
	return response
}
