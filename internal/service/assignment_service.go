package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/mathla-go-api/internal/dto"
	"github.com/noah-isme/mathla-go-api/internal/lifecycle"
	"github.com/noah-isme/mathla-go-api/internal/models"
	"github.com/noah-isme/mathla-go-api/internal/repository"
)

// ErrEmptyTitle indicates the title was blank after sanitising.
var ErrEmptyTitle = errors.New("title is empty after sanitization")

// AssignmentService exposes assignment management for teachers and the
// assigned-work listing for students.
type AssignmentService interface {
	List(ctx context.Context, actor lifecycle.Actor, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error)
	Get(ctx context.Context, actor lifecycle.Actor, id uint) (dto.AssignmentResponse, error)
	Create(ctx context.Context, actor lifecycle.Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Update(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, actor lifecycle.Actor, id uint) error
	AssignStudents(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.AssignStudentsRequest) (dto.AssignStudentsResponse, error)
	ListAssignees(ctx context.Context, actor lifecycle.Actor, id uint) ([]dto.AssigneeResponse, error)
	SetStudentDueOverride(ctx context.Context, actor lifecycle.Actor, id, studentID uint, payload dto.DueOverrideRequest) (dto.AssigneeResponse, error)
	Unassign(ctx context.Context, actor lifecycle.Actor, id, studentID uint) error
	ListAssignedTo(ctx context.Context, actor lifecycle.Actor, studentID uint) ([]dto.AssignedAssignmentResponse, error)
}

// AssignmentServiceConfig carries the explicit defaults of the service.
type AssignmentServiceConfig struct {
	DefaultFormat models.ProblemFormat
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	links       repository.AssignmentStudentRepository
	users       repository.UserRepository
	submissions repository.SubmissionRepository
	resolver    lifecycle.Resolver
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	hooks       hooks
	config      AssignmentServiceConfig
	logger      zerolog.Logger
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(
	assignments repository.AssignmentRepository,
	links repository.AssignmentStudentRepository,
	users repository.UserRepository,
	submissions repository.SubmissionRepository,
	events EventPublisher,
	validate *validator.Validate,
	cfg AssignmentServiceConfig,
	logger zerolog.Logger,
) AssignmentService {
	if !cfg.DefaultFormat.Valid() {
		cfg.DefaultFormat = models.ProblemFormatASCIIMath
	}
	componentLogger := logger.With().Str("component", "assignment_service").Logger()
	return &assignmentService{
		assignments: assignments,
		links:       links,
		users:       users,
		submissions: submissions,
		resolver:    lifecycle.NewResolver(logger),
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		hooks:       hooks{events: events, logger: componentLogger, now: time.Now},
		config:      cfg,
		logger:      componentLogger,
	}
}

func (s *assignmentService) List(ctx context.Context, actor lifecycle.Actor, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error) {
	if err := requireTeacher(actor); err != nil {
		return dto.AssignmentListResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.AssignmentListResponse{}, err
	}

	items, total, err := s.assignments.ListWithFilter(ctx, repository.AssignmentFilter{
		TeacherID: actor.ID,
		Search:    strings.TrimSpace(req.Search),
		Sort:      req.Sort,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	pagination := dto.PaginationMeta{Page: maxInt(req.Page, 1), PageSize: req.PageSize, TotalItems: total, TotalPages: 1}
	if req.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	}

	return dto.AssignmentListResponse{Items: dto.NewAssignmentResponseSlice(items), Pagination: pagination}, nil
}

func (s *assignmentService) Get(ctx context.Context, actor lifecycle.Actor, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.owned(ctx, actor, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Create(ctx context.Context, actor lifecycle.Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := requireTeacher(actor); err != nil {
		return dto.AssignmentResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	title := s.clean(payload.Title)
	if title == "" {
		return dto.AssignmentResponse{}, ErrEmptyTitle
	}

	dueAt, err := lifecycle.ParseTimestamp(payload.DueAt)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	format := s.config.DefaultFormat
	if payload.ProblemFormat != "" {
		format = models.ProblemFormat(payload.ProblemFormat)
	}

	assignment := models.Assignment{
		TeacherID:      actor.ID,
		Title:          title,
		Description:    s.clean(payload.Description),
		ProblemContent: problemContent(payload.ProblemContent, payload.Problems),
		ProblemFormat:  format,
		DueAt:          dueAt,
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("teacher_id", actor.ID).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Update(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.owned(ctx, actor, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	if payload.Title != nil {
		title := s.clean(*payload.Title)
		if title == "" {
			return dto.AssignmentResponse{}, ErrEmptyTitle
		}
		assignment.Title = title
	}

	if payload.Description != nil {
		assignment.Description = s.clean(*payload.Description)
	}

	if payload.DueAt != nil {
		dueAt, err := lifecycle.ParseTimestamp(*payload.DueAt)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		assignment.DueAt = dueAt
	}

	if payload.ProblemContent != nil || payload.Problems != nil {
		content := ""
		if payload.ProblemContent != nil {
			content = *payload.ProblemContent
		}
		assignment.ProblemContent = problemContent(content, payload.Problems)
	}

	if payload.ProblemFormat != nil {
		assignment.ProblemFormat = models.ProblemFormat(*payload.ProblemFormat)
	}

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	updated, err := loadAssignment(ctx, s.assignments, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", id).Msg("assignment updated")
	s.announce(ctx, "assignment.updated", updated)

	return dto.NewAssignmentResponse(updated), nil
}

func (s *assignmentService) Delete(ctx context.Context, actor lifecycle.Actor, id uint) error {
	assignment, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}

	links, err := s.links.ListByAssignment(ctx, id)
	if err != nil {
		return err
	}

	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	s.logger.Info().Uint("assignment_id", id).Int("assignees", len(links)).Msg("assignment deleted")
	for _, link := range links {
		s.hooks.publish(ctx, "assignment.deleted", "delete", models.Submission{AssignmentID: id, StudentID: link.StudentID}, assignment.TeacherID)
	}

	return nil
}

func (s *assignmentService) AssignStudents(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.AssignStudentsRequest) (dto.AssignStudentsResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignStudentsResponse{}, err
	}

	assignment, err := s.owned(ctx, actor, id)
	if err != nil {
		return dto.AssignStudentsResponse{}, err
	}

	var dueAt *time.Time
	if payload.DueAt != nil {
		dueAt, err = lifecycle.ParseTimestamp(*payload.DueAt)
		if err != nil {
			return dto.AssignStudentsResponse{}, err
		}
	}

	existing, err := s.links.ListByAssignment(ctx, id)
	if err != nil {
		return dto.AssignStudentsResponse{}, err
	}
	assigned := make(map[uint]struct{}, len(existing))
	for _, link := range existing {
		assigned[link.StudentID] = struct{}{}
	}

	users, err := s.users.ListByIDs(ctx, payload.StudentIDs)
	if err != nil {
		return dto.AssignStudentsResponse{}, err
	}
	byID := make(map[uint]models.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}

	result := dto.AssignStudentsResponse{Added: []uint{}, Missing: []uint{}, WrongRole: []uint{}, Duplicates: []uint{}}
	seen := make(map[uint]struct{}, len(payload.StudentIDs))
	links := make([]models.AssignmentStudent, 0, len(payload.StudentIDs))
	for _, studentID := range payload.StudentIDs {
		if _, dup := seen[studentID]; dup {
			result.Duplicates = append(result.Duplicates, studentID)
			continue
		}
		seen[studentID] = struct{}{}

		user, ok := byID[studentID]
		switch {
		case !ok:
			result.Missing = append(result.Missing, studentID)
		case user.Role != models.RoleStudent:
			result.WrongRole = append(result.WrongRole, studentID)
		default:
			if _, already := assigned[studentID]; already {
				result.Duplicates = append(result.Duplicates, studentID)
				continue
			}
			links = append(links, models.AssignmentStudent{AssignmentID: id, StudentID: studentID, DueAt: dueAt})
			result.Added = append(result.Added, studentID)
		}
	}

	if err := s.links.CreateMany(ctx, links); err != nil {
		return dto.AssignStudentsResponse{}, err
	}

	s.logger.Info().
		Uint("assignment_id", id).
		Int("added", len(result.Added)).
		Int("missing", len(result.Missing)).
		Int("wrong_role", len(result.WrongRole)).
		Int("duplicates", len(result.Duplicates)).
		Msg("students assigned")
	for _, studentID := range result.Added {
		s.hooks.publish(ctx, "assignment.assigned", "assign", models.Submission{AssignmentID: id, StudentID: studentID}, assignment.TeacherID)
	}

	return result, nil
}

func (s *assignmentService) ListAssignees(ctx context.Context, actor lifecycle.Actor, id uint) ([]dto.AssigneeResponse, error) {
	assignment, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	links, err := s.links.ListByAssignment(ctx, id)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AssigneeResponse, 0, len(links))
	for i := range links {
		responses = append(responses, s.assignee(assignment, links[i]))
	}
	return responses, nil
}

func (s *assignmentService) SetStudentDueOverride(ctx context.Context, actor lifecycle.Actor, id, studentID uint, payload dto.DueOverrideRequest) (dto.AssigneeResponse, error) {
	assignment, err := s.owned(ctx, actor, id)
	if err != nil {
		return dto.AssigneeResponse{}, err
	}

	var dueAt *time.Time
	if payload.DueAt != nil {
		dueAt, err = lifecycle.ParseTimestamp(*payload.DueAt)
		if err != nil {
			return dto.AssigneeResponse{}, err
		}
	}

	if err := s.links.SetDue(ctx, id, studentID, dueAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssigneeResponse{}, ErrAssigneeNotFound
		}
		return dto.AssigneeResponse{}, err
	}

	link, err := s.links.Get(ctx, id, studentID)
	if err != nil {
		return dto.AssigneeResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", id).Uint("student_id", studentID).Bool("cleared", dueAt == nil).Msg("due override changed")
	s.hooks.publish(ctx, "assignment.due_changed", "due_override", models.Submission{AssignmentID: id, StudentID: studentID}, assignment.TeacherID)

	return s.assignee(assignment, link), nil
}

func (s *assignmentService) Unassign(ctx context.Context, actor lifecycle.Actor, id, studentID uint) error {
	assignment, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}

	latest, err := latestRow(ctx, s.submissions, id, studentID)
	if err != nil {
		return err
	}
	if latest != nil && latest.IsGraded() {
		return lifecycle.Conflict(lifecycle.CodeUnassignLocked, "the student's latest submission is graded")
	}

	if err := s.links.Unassign(ctx, id, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssigneeNotFound
		}
		return err
	}

	s.logger.Info().Uint("assignment_id", id).Uint("student_id", studentID).Msg("student unassigned")
	s.hooks.publish(ctx, "assignment.unassigned", "unassign", models.Submission{AssignmentID: id, StudentID: studentID}, assignment.TeacherID)

	return nil
}

func (s *assignmentService) ListAssignedTo(ctx context.Context, actor lifecycle.Actor, studentID uint) ([]dto.AssignedAssignmentResponse, error) {
	if actor.IsStudent() && actor.ID != studentID {
		return nil, lifecycle.Permission(lifecycle.CodeNotYourSubmission, "students may only list their own assignments")
	}
	if !actor.IsStudent() && !actor.IsTeacher() {
		return nil, lifecycle.Permission(lifecycle.CodeRoleForbidden, "unknown role")
	}

	links, err := s.links.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AssignedAssignmentResponse, 0, len(links))
	for i := range links {
		link := links[i]
		if actor.IsTeacher() && !link.Assignment.OwnedBy(actor.ID) {
			continue
		}
		responses = append(responses, dto.AssignedAssignmentResponse{
			AssignmentResponse: dto.NewAssignmentResponse(link.Assignment),
			StudentDueAt:       s.resolver.EffectiveDue(link.Assignment, &link),
		})
	}
	return responses, nil
}

func (s *assignmentService) owned(ctx context.Context, actor lifecycle.Actor, id uint) (models.Assignment, error) {
	if err := requireTeacher(actor); err != nil {
		return models.Assignment{}, err
	}
	assignment, err := loadAssignment(ctx, s.assignments, id)
	if err != nil {
		return models.Assignment{}, err
	}
	if err := requireOwner(assignment, actor); err != nil {
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (s *assignmentService) assignee(assignment models.Assignment, link models.AssignmentStudent) dto.AssigneeResponse {
	return dto.AssigneeResponse{
		StudentID:      link.StudentID,
		Name:           link.Student.DisplayName(),
		Email:          link.Student.Email,
		DueAt:          link.DueAt,
		EffectiveDueAt: s.resolver.EffectiveDue(assignment, &link),
	}
}

func (s *assignmentService) announce(ctx context.Context, eventType string, assignment models.Assignment) {
	links, err := s.links.ListByAssignment(ctx, assignment.ID)
	if err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to list assignees for event")
		return
	}
	for _, link := range links {
		s.hooks.publish(ctx, eventType, "update", models.Submission{AssignmentID: assignment.ID, StudentID: link.StudentID}, assignment.TeacherID)
	}
}

func (s *assignmentService) clean(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(value))
}

// problemContent prefers an explicit statement list over the raw content.
func problemContent(content string, problems []string) string {
	if len(problems) > 0 {
		return lifecycle.JoinStatements(problems)
	}
	return lifecycle.JoinStatements(lifecycle.SplitStatements(content))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
