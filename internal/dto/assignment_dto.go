package dto

import (
	"time"

	"github.com/noah-isme/mathla-go-api/internal/lifecycle"
	"github.com/noah-isme/mathla-go-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// AssignmentCreateRequest describes the payload for creating a new assignment.
// Problems may be sent as one separator-joined content field or as a list.
type AssignmentCreateRequest struct {
	Title          string   `json:"title" validate:"required,min=1,max=255"`
	Description    string   `json:"description" validate:"max=10000"`
	DueAt          string   `json:"due_at"`
	ProblemContent string   `json:"problem_content"`
	Problems       []string `json:"problems" validate:"omitempty,dive,max=10000"`
	ProblemFormat  string   `json:"problem_format" validate:"omitempty,oneof=ASCII_MATH MARKDOWN_TEX"`
}

// AssignmentUpdateRequest describes a partial update. An empty due_at
// clears the deadline.
type AssignmentUpdateRequest struct {
	Title          *string  `json:"title" validate:"omitempty,min=1,max=255"`
	Description    *string  `json:"description" validate:"omitempty,max=10000"`
	DueAt          *string  `json:"due_at"`
	ProblemContent *string  `json:"problem_content"`
	Problems       []string `json:"problems" validate:"omitempty,dive,max=10000"`
	ProblemFormat  *string  `json:"problem_format" validate:"omitempty,oneof=ASCII_MATH MARKDOWN_TEX"`
}

// AssignmentListRequest holds listing options.
type AssignmentListRequest struct {
	Search   string `query:"search"`
	Sort     string `query:"sort"`
	Page     int    `query:"page" validate:"omitempty,gte=1"`
	PageSize int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID             uint       `json:"id"`
	TeacherID      uint       `json:"teacher_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	ProblemContent string     `json:"problem_content"`
	ProblemFormat  string     `json:"problem_format"`
	Problems       []string   `json:"problems"`
	DueAt          *time.Time `json:"due_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// AssignmentListResponse wraps a page of assignments.
type AssignmentListResponse struct {
	Items      []AssignmentResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// AssignedAssignmentResponse is an assignment as seen by one student.
type AssignedAssignmentResponse struct {
	AssignmentResponse
	StudentDueAt *time.Time `json:"student_due_at"`
}

// AssignStudentsRequest assigns students, optionally with a shared override.
type AssignStudentsRequest struct {
	StudentIDs []uint  `json:"student_ids" validate:"required,min=1,dive,gt=0"`
	DueAt      *string `json:"due_at"`
}

// AssignStudentsResponse reports what happened to every requested id.
type AssignStudentsResponse struct {
	Added      []uint `json:"added"`
	Missing    []uint `json:"missing"`
	WrongRole  []uint `json:"wrong_role"`
	Duplicates []uint `json:"duplicates"`
}

// DueOverrideRequest sets or clears (null/empty) a per-student deadline.
type DueOverrideRequest struct {
	DueAt *string `json:"due_at"`
}

// AssigneeResponse lists one assigned student with both deadlines.
type AssigneeResponse struct {
	StudentID      uint       `json:"student_id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	DueAt          *time.Time `json:"due_at"`
	EffectiveDueAt *time.Time `json:"effective_due_at"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:             model.ID,
		TeacherID:      model.TeacherID,
		Title:          model.Title,
		Description:    model.Description,
		ProblemContent: model.ProblemContent,
		ProblemFormat:  string(model.ProblemFormat),
		Problems:       lifecycle.SplitStatements(model.ProblemContent),
		DueAt:          model.DueAt,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
