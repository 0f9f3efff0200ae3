package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/mathla-go-api/internal/dto"
	"github.com/noah-isme/mathla-go-api/internal/lifecycle"
	"github.com/noah-isme/mathla-go-api/internal/models"
	"github.com/noah-isme/mathla-go-api/internal/repository"
)

// SubmissionService orchestrates the student side of the lifecycle.
type SubmissionService interface {
	List(ctx context.Context, actor lifecycle.Actor, req dto.SubmissionListRequest) ([]dto.SubmissionResponse, error)
	Get(ctx context.Context, actor lifecycle.Actor, id uint) (dto.SubmissionResponse, error)
	History(ctx context.Context, actor lifecycle.Actor, id uint) ([]dto.TransitionResponse, error)
	Start(ctx context.Context, actor lifecycle.Actor, payload dto.SubmissionStartRequest) (dto.SubmissionResponse, error)
	Update(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.SubmissionUpdateRequest) (dto.SubmissionResponse, error)
	Discard(ctx context.Context, actor lifecycle.Actor, id uint, expectedStatus *string) error
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	links       repository.AssignmentStudentRepository
	transitions TransitionRecorder
	resolver    lifecycle.Resolver
	validator   *validator.Validate
	hooks       hooks
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	assignments repository.AssignmentRepository,
	links repository.AssignmentStudentRepository,
	transitions TransitionRecorder,
	events EventPublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) SubmissionService {
	svc := &submissionService{
		submissions: submissions,
		assignments: assignments,
		links:       links,
		transitions: transitions,
		resolver:    lifecycle.NewResolver(logger),
		validator:   validate,
		tracer:      otel.Tracer("github.com/noah-isme/mathla-go-api/internal/service/submission"),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
	svc.hooks = hooks{transitions: transitions, events: events, logger: svc.logger, now: svc.clock}
	return svc
}

func (s *submissionService) clock() time.Time { return s.now() }

func (s *submissionService) List(ctx context.Context, actor lifecycle.Actor, req dto.SubmissionListRequest) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	filter := repository.SubmissionFilter{
		AssignmentID: req.AssignmentID,
		StudentID:    req.StudentID,
		TeacherID:    req.TeacherID,
		LatestOnly:   req.Latest,
	}
	if req.Status != nil {
		status := models.SubmissionStatus(*req.Status)
		filter.Status = &status
	}

	switch {
	case actor.IsStudent():
		filter.StudentID = &actor.ID
	case actor.IsTeacher():
		filter.TeacherID = &actor.ID
	default:
		return nil, lifecycle.Permission(lifecycle.CodeRoleForbidden, "unknown role")
	}

	submissions, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Get(ctx context.Context, actor lifecycle.Actor, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.visible(ctx, actor, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) History(ctx context.Context, actor lifecycle.Actor, id uint) ([]dto.TransitionResponse, error) {
	if _, err := s.visible(ctx, actor, id); err != nil {
		return nil, err
	}

	entries, err := s.transitions.List(ctx, id)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.TransitionResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewTransitionResponse(entry))
	}
	return responses, nil
}

// Start returns the pair's existing row when there is one. Otherwise it
// creates a DRAFT, or an empty SUBMITTED row once the deadline has passed.
func (s *submissionService) Start(ctx context.Context, actor lifecycle.Actor, payload dto.SubmissionStartRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.start", trace.WithAttributes(
		attribute.Int64("submission.assignment_id", int64(payload.AssignmentID)),
		attribute.Int64("submission.actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := requireStudent(actor); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionStart, err)
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionStart, err)
	}

	assignment, err := loadAssignment(ctx, s.assignments, payload.AssignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionStart, err)
	}
	link, err := loadLink(ctx, s.links, assignment.ID, actor.ID)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionStart, err)
	}

	latest, err := latestRow(ctx, s.submissions, assignment.ID, actor.ID)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionStart, err)
	}
	if latest != nil {
		span.SetAttributes(attribute.Bool("submission.existing", true))
		return dto.NewSubmissionResponse(*latest), nil
	}

	now := s.now()
	due := s.resolver.EffectiveDue(assignment, &link)
	action := lifecycle.ActionStart
	if lifecycle.CheckDeadline(lifecycle.ActionStart, due, now) != nil {
		action = lifecycle.ActionSynthesize
	}

	to, err := lifecycle.Transition(actor, nil, action)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, action, err)
	}

	submission := models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    actor.ID,
		Status:       to,
	}
	metadata := map[string]interface{}{"assignment_id": assignment.ID}
	if action == lifecycle.ActionStart {
		submission.TextAnswer = answerText(payload.TextAnswer, payload.Answers)
	} else {
		metadata["synthesized"] = true
		metadata["effective_due"] = due.UTC().Format(time.RFC3339)
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, action, err)
	}

	stored, err := loadSubmission(ctx, s.submissions, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, action, err)
	}

	s.hooks.confirmed(ctx, TransitionEntry{Submission: stored, Action: action, Actor: actor, Metadata: metadata}, assignment.TeacherID)
	span.SetAttributes(attribute.String("submission.status", string(stored.Status)))

	return dto.NewSubmissionResponse(stored), nil
}

// Update autosaves a draft or submits it. After the deadline a draft is
// frozen: autosave is rejected and submit keeps the stored answer.
func (s *submissionService) Update(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.SubmissionUpdateRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.update", trace.WithAttributes(
		attribute.Int64("submission.id", int64(id)),
		attribute.Int64("submission.actor_id", int64(actor.ID)),
	))
	defer span.End()

	action := lifecycle.ActionAutosave
	if payload.Status != nil {
		switch models.SubmissionStatus(*payload.Status) {
		case models.SubmissionStatusSubmitted:
			action = lifecycle.ActionSubmit
		case models.SubmissionStatusGraded:
			action = lifecycle.ActionGrade
		}
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, action, err)
	}

	submission, err := loadSubmission(ctx, s.submissions, id)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, action, err)
	}

	if err := requireStudent(actor); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, action, err)
	}
	if submission.StudentID != actor.ID {
		return dto.SubmissionResponse{}, s.fail(span, action, lifecycle.Permission(lifecycle.CodeNotYourSubmission, "submission belongs to another student"))
	}

	from := submission.Status
	if err := checkExpected(from, payload.ExpectedStatus); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, action, err)
	}
	to, err := lifecycle.Transition(actor, &from, action)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, action, err)
	}

	link, err := loadLink(ctx, s.links, submission.AssignmentID, actor.ID)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, action, err)
	}

	now := s.now()
	due := s.resolver.EffectiveDue(submission.Assignment, &link)
	if err := lifecycle.CheckDeadline(action, due, now); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, action, err)
	}

	late := lifecycle.IsPast(due, now)
	metadata := map[string]interface{}{}
	if !late && (payload.TextAnswer != nil || payload.Answers != nil) {
		text := ""
		if payload.TextAnswer != nil {
			text = *payload.TextAnswer
		}
		submission.TextAnswer = answerText(text, payload.Answers)
	}
	if action == lifecycle.ActionSubmit {
		submission.SubmittedAt = timePtr(now)
		metadata["late"] = late
	}
	submission.Status = to

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, action, err)
	}

	stored, err := loadSubmission(ctx, s.submissions, id)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, action, err)
	}

	if action == lifecycle.ActionSubmit {
		s.hooks.confirmed(ctx, TransitionEntry{Submission: stored, From: &from, Action: action, Actor: actor, Metadata: metadata}, stored.Assignment.TeacherID)
	} else {
		// autosave keeps the status, so it is published but not audited
		s.hooks.publish(ctx, "submission.autosave", string(action), stored, stored.Assignment.TeacherID)
	}

	return dto.NewSubmissionResponse(stored), nil
}

// Discard deletes one of the student's own ungraded rows and its history.
func (s *submissionService) Discard(ctx context.Context, actor lifecycle.Actor, id uint, expectedStatus *string) error {
	if err := requireStudent(actor); err != nil {
		return err
	}

	submission, err := loadSubmission(ctx, s.submissions, id)
	if err != nil {
		return err
	}
	if submission.StudentID != actor.ID {
		return lifecycle.Permission(lifecycle.CodeNotYourSubmission, "submission belongs to another student")
	}
	if err := checkExpected(submission.Status, expectedStatus); err != nil {
		return err
	}
	if submission.IsGraded() {
		return lifecycle.Conflict(lifecycle.CodeAlreadyGraded, "graded submissions cannot be discarded")
	}

	if err := s.submissions.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}

	s.logger.Info().Uint("submission_id", id).Uint("student_id", actor.ID).Msg("submission discarded")
	s.hooks.publish(ctx, "submission.discarded", "discard", submission, submission.Assignment.TeacherID)

	return nil
}

// visible loads a submission the actor may read: the owning student or the
// teacher owning the assignment.
func (s *submissionService) visible(ctx context.Context, actor lifecycle.Actor, id uint) (models.Submission, error) {
	submission, err := loadSubmission(ctx, s.submissions, id)
	if err != nil {
		return models.Submission{}, err
	}

	switch {
	case actor.IsStudent() && submission.StudentID == actor.ID:
		return submission, nil
	case actor.IsTeacher() && submission.Assignment.OwnedBy(actor.ID):
		return submission, nil
	case actor.IsTeacher():
		return models.Submission{}, lifecycle.Permission(lifecycle.CodeNotOwner, "assignment belongs to another teacher")
	default:
		return models.Submission{}, lifecycle.Permission(lifecycle.CodeNotYourSubmission, "submission belongs to another student")
	}
}

func (s *submissionService) fail(span trace.Span, action lifecycle.Action, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(action)+"_failed")
	if code := lifecycle.CodeOf(err); code != "" {
		s.logger.Debug().Str("action", string(action)).Str("code", code).Msg("transition rejected")
	}
	return rejected(action, err)
}

// answerText packs the per-example answers when the client sent them.
func answerText(text string, answers []string) string {
	if answers != nil {
		return lifecycle.EncodeAnswers(answers)
	}
	return text
}
