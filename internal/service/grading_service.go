package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/mathla-go-api/internal/dto"
	"github.com/noah-isme/mathla-go-api/internal/lifecycle"
	"github.com/noah-isme/mathla-go-api/internal/models"
	"github.com/noah-isme/mathla-go-api/internal/repository"
)

// Stored when missing work is graded without a score or note.
const (
	DefaultMissingNote  = "No work submitted before the deadline."
	DefaultMissingScore = "1"
)

// GradingService encapsulates the teacher side of the lifecycle. Every
// operation is restricted to the teacher owning the assignment.
type GradingService interface {
	Queue(ctx context.Context, actor lifecycle.Actor, req dto.GradingQueueRequest) (dto.GradingQueueResponse, error)
	Materialize(ctx context.Context, actor lifecycle.Actor, payload dto.MaterializeRequest) (dto.SubmissionResponse, error)
	Grade(ctx context.Context, actor lifecycle.Actor, submissionID uint, payload dto.GradeRequest) (dto.SubmissionResponse, error)
	GradeMissing(ctx context.Context, actor lifecycle.Actor, payload dto.GradeMissingRequest) (dto.SubmissionResponse, error)
	Retake(ctx context.Context, actor lifecycle.Actor, submissionID uint, payload dto.RetakeRequest) (dto.SubmissionResponse, error)
	Reopen(ctx context.Context, actor lifecycle.Actor, submissionID uint, payload dto.ReopenRequest) (dto.SubmissionResponse, error)
}

type gradingService struct {
	submissions repository.SubmissionRepository
	assignments repository.AssignmentRepository
	links       repository.AssignmentStudentRepository
	resolver    lifecycle.Resolver
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	hooks       hooks
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewGradingService constructs the grading service.
func NewGradingService(
	submissions repository.SubmissionRepository,
	assignments repository.AssignmentRepository,
	links repository.AssignmentStudentRepository,
	transitions TransitionRecorder,
	events EventPublisher,
	validate *validator.Validate,
	logger zerolog.Logger,
) GradingService {
	svc := &gradingService{
		submissions: submissions,
		assignments: assignments,
		links:       links,
		resolver:    lifecycle.NewResolver(logger),
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		tracer:      otel.Tracer("github.com/noah-isme/mathla-go-api/internal/service/grading"),
		logger:      logger.With().Str("component", "grading_service").Logger(),
		now:         time.Now,
	}
	svc.hooks = hooks{transitions: transitions, events: events, logger: svc.logger, now: svc.clock}
	return svc
}

func (s *gradingService) clock() time.Time { return s.now() }

// Queue lists every assigned pair of the teacher's assignments: stored rows
// and virtual missing entries for students who never started.
func (s *gradingService) Queue(ctx context.Context, actor lifecycle.Actor, req dto.GradingQueueRequest) (dto.GradingQueueResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.queue")
	defer span.End()

	if err := requireTeacher(actor); err != nil {
		return dto.GradingQueueResponse{}, s.fail(span, "queue", err)
	}

	var assignments []models.Assignment
	if req.AssignmentID != nil {
		assignment, err := loadAssignment(ctx, s.assignments, *req.AssignmentID)
		if err != nil {
			return dto.GradingQueueResponse{}, s.fail(span, "queue", err)
		}
		if err := requireOwner(assignment, actor); err != nil {
			return dto.GradingQueueResponse{}, s.fail(span, "queue", err)
		}
		assignments = []models.Assignment{assignment}
	} else {
		owned, _, err := s.assignments.ListWithFilter(ctx, repository.AssignmentFilter{TeacherID: actor.ID, Sort: "due_at"})
		if err != nil {
			return dto.GradingQueueResponse{}, s.fail(span, "queue", err)
		}
		assignments = owned
	}

	response := dto.GradingQueueResponse{
		Pending:       []dto.GradingQueueEntry{},
		OverdueDrafts: []dto.GradingQueueEntry{},
		Graded:        []dto.GradingQueueEntry{},
	}
	if len(assignments) == 0 {
		return response, nil
	}

	ids := make([]uint, 0, len(assignments))
	byID := make(map[uint]models.Assignment, len(assignments))
	for _, assignment := range assignments {
		ids = append(ids, assignment.ID)
		byID[assignment.ID] = assignment
	}

	links, err := s.links.ListByAssignments(ctx, ids)
	if err != nil {
		return dto.GradingQueueResponse{}, s.fail(span, "queue", err)
	}
	latest, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentIDs: ids, LatestOnly: true})
	if err != nil {
		return dto.GradingQueueResponse{}, s.fail(span, "queue", err)
	}
	type pair struct{ assignmentID, studentID uint }
	rows := make(map[pair]models.Submission, len(latest))
	for _, submission := range latest {
		rows[pair{submission.AssignmentID, submission.StudentID}] = submission
	}

	now := s.now()
	for i := range links {
		link := links[i]
		assignment := byID[link.AssignmentID]
		due := s.resolver.EffectiveDue(assignment, &link)

		var row *models.Submission
		if submission, ok := rows[pair{link.AssignmentID, link.StudentID}]; ok {
			row = &submission
		}

		tracked, ok := lifecycle.Track(link.AssignmentID, link.StudentID, row, due, now)
		if !ok {
			continue
		}

		entry := queueEntry(assignment, link, tracked, due, now)
		switch {
		case entry.Virtual || entry.Status == string(models.SubmissionStatusSubmitted):
			response.Pending = append(response.Pending, entry)
		case entry.Status == string(models.SubmissionStatusGraded):
			response.Graded = append(response.Graded, entry)
		case entry.State == string(lifecycle.ViewOverdue):
			response.OverdueDrafts = append(response.OverdueDrafts, entry)
		}
	}

	span.SetAttributes(
		attribute.Int("grading.pending", len(response.Pending)),
		attribute.Int("grading.overdue_drafts", len(response.OverdueDrafts)),
		attribute.Int("grading.graded", len(response.Graded)),
	)
	return response, nil
}

// Materialize stores the empty SUBMITTED row of an overdue pair, or freezes
// an overdue draft into SUBMITTED. A pair that already has a non-draft row
// is returned unchanged.
func (s *gradingService) Materialize(ctx context.Context, actor lifecycle.Actor, payload dto.MaterializeRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.materialize", trace.WithAttributes(
		attribute.Int64("grading.assignment_id", int64(payload.AssignmentID)),
		attribute.Int64("grading.student_id", int64(payload.StudentID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionMaterialize, err)
	}

	assignment, link, err := s.ownedPair(ctx, actor, payload.AssignmentID, payload.StudentID)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionMaterialize, err)
	}

	latest, err := latestRow(ctx, s.submissions, assignment.ID, link.StudentID)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionMaterialize, err)
	}
	if latest != nil && latest.Status != models.SubmissionStatusDraft {
		return dto.NewSubmissionResponse(*latest), nil
	}

	submission, err := s.materialize(ctx, actor, assignment, link, latest, false)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionMaterialize, err)
	}

	return dto.NewSubmissionResponse(submission), nil
}

// Grade confirms a grade on a SUBMITTED row. An overdue draft is frozen
// first; if grading then fails the error names the stored row.
func (s *gradingService) Grade(ctx context.Context, actor lifecycle.Actor, submissionID uint, payload dto.GradeRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.grade", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGrade, err)
	}
	score, err := lifecycle.NormalizeScore(payload.Score)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGrade, err)
	}
	note := s.cleanNote(payload.Note)

	submission, err := loadSubmission(ctx, s.submissions, submissionID)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGrade, err)
	}
	if err := requireOwner(submission.Assignment, actor); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGrade, err)
	}
	if err := checkExpected(submission.Status, payload.ExpectedStatus); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGrade, err)
	}

	if submission.IsGraded() && sameString(submission.Score, score) && sameString(submission.ReviewNote, note) &&
		submission.GradedBy != nil && *submission.GradedBy == actor.ID {
		span.SetAttributes(attribute.Bool("grading.idempotent", true))
		return dto.NewSubmissionResponse(submission), nil
	}

	materialized := false
	if submission.Status == models.SubmissionStatusDraft {
		link, err := loadLink(ctx, s.links, submission.AssignmentID, submission.StudentID)
		if err != nil {
			return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGrade, err)
		}
		due := s.resolver.EffectiveDue(submission.Assignment, &link)
		if !lifecycle.IsPast(due, s.now()) {
			return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGrade,
				lifecycle.Conflict(lifecycle.CodeNeedsSubmitted, "the draft is still open; wait for the deadline or the student's submit"))
		}
		frozen, err := s.materialize(ctx, actor, submission.Assignment, link, &submission, false)
		if err != nil {
			return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionMaterialize, &StepError{Step: StepMaterialize, Err: err})
		}
		submission = frozen
		materialized = true
	}

	graded, err := s.grade(ctx, actor, submission, score, note, lifecycle.ActionGrade, nil)
	if err != nil {
		if materialized {
			err = &StepError{Step: StepGrade, SubmissionID: submission.ID, Err: err}
		}
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGrade, err)
	}

	return dto.NewSubmissionResponse(graded), nil
}

// GradeMissing grades a student who has no submitted work once the
// deadline has passed. The stored row is tagged teacher_override.
func (s *gradingService) GradeMissing(ctx context.Context, actor lifecycle.Actor, payload dto.GradeMissingRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.grade_missing", trace.WithAttributes(
		attribute.Int64("grading.assignment_id", int64(payload.AssignmentID)),
		attribute.Int64("grading.student_id", int64(payload.StudentID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGradeMissing, err)
	}
	if payload.TeacherOverride == nil || !*payload.TeacherOverride {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGradeMissing,
			lifecycle.DeadlinePolicy(lifecycle.CodeOverrideAfterDueRequired, "grading missing work requires teacher_override"))
	}
	score, err := lifecycle.NormalizeScore(payload.Score)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGradeMissing, err)
	}
	if score == nil {
		defaultScore := DefaultMissingScore
		score = &defaultScore
	}
	note := s.cleanNote(payload.Note)
	if note == nil {
		defaultNote := DefaultMissingNote
		note = &defaultNote
	}

	assignment, link, err := s.ownedPair(ctx, actor, payload.AssignmentID, payload.StudentID)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGradeMissing, err)
	}

	due := s.resolver.EffectiveDue(assignment, &link)
	if err := lifecycle.CheckDeadline(lifecycle.ActionGradeMissing, due, s.now()); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGradeMissing, err)
	}

	latest, err := latestRow(ctx, s.submissions, assignment.ID, link.StudentID)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGradeMissing, err)
	}

	var submission models.Submission
	switch {
	case latest == nil || latest.Status == models.SubmissionStatusDraft:
		submission, err = s.materialize(ctx, actor, assignment, link, latest, true)
		if err != nil {
			return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGradeMissing, &StepError{Step: StepMaterialize, Err: err})
		}
	case latest.Status == models.SubmissionStatusSubmitted && isMissingWork(*latest):
		// a previous attempt materialised the row but failed to grade it
		submission = *latest
	case latest.Status == models.SubmissionStatusSubmitted:
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGradeMissing,
			lifecycle.Conflict(lifecycle.CodeNeedsSubmitted, "the student submitted work; grade the submission instead"))
	default:
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGradeMissing,
			lifecycle.Conflict(lifecycle.CodeAlreadyGraded, "the student already has a graded submission"))
	}

	override := true
	graded, err := s.grade(ctx, actor, submission, score, note, lifecycle.ActionGradeMissing, &override)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionGradeMissing,
			&StepError{Step: StepGrade, SubmissionID: submission.ID, Err: err})
	}

	span.SetAttributes(attribute.Bool("grading.teacher_override", graded.TeacherOverride))
	return dto.NewSubmissionResponse(graded), nil
}

// Retake sends a SUBMITTED row back to DRAFT. A new per-student deadline,
// when given, is stored before the status changes.
func (s *gradingService) Retake(ctx context.Context, actor lifecycle.Actor, submissionID uint, payload dto.RetakeRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.retake", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionRetake, err)
	}
	var dueAt *time.Time
	if payload.DueAt != nil {
		parsed, err := lifecycle.ParseTimestamp(*payload.DueAt)
		if err != nil {
			return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionRetake, err)
		}
		dueAt = parsed
	}

	submission, err := s.ownedSubmission(ctx, actor, submissionID, payload.ExpectedStatus)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionRetake, err)
	}

	from := submission.Status
	to, err := lifecycle.Transition(actor, &from, lifecycle.ActionRetake)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionRetake, err)
	}

	metadata := map[string]interface{}{}
	if dueAt != nil {
		if err := s.links.SetDue(ctx, submission.AssignmentID, submission.StudentID, dueAt); err != nil {
			return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionRetake, &StepError{Step: StepDueOverride, SubmissionID: submission.ID, Err: err})
		}
		metadata["due_at"] = dueAt.UTC().Format(time.RFC3339)
	}

	submission.Status = to
	if err := s.submissions.Update(ctx, &submission); err != nil {
		if dueAt != nil {
			err = &StepError{Step: StepRetake, SubmissionID: submission.ID, Err: err}
		}
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionRetake, err)
	}

	stored, err := loadSubmission(ctx, s.submissions, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionRetake, err)
	}
	s.hooks.confirmed(ctx, TransitionEntry{Submission: stored, From: &from, Action: lifecycle.ActionRetake, Actor: actor, Metadata: metadata}, actor.ID)

	return dto.NewSubmissionResponse(stored), nil
}

// Reopen moves a GRADED row back to SUBMITTED keeping score and note.
func (s *gradingService) Reopen(ctx context.Context, actor lifecycle.Actor, submissionID uint, payload dto.ReopenRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading.reopen", trace.WithAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionReopen, err)
	}

	submission, err := s.ownedSubmission(ctx, actor, submissionID, payload.ExpectedStatus)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionReopen, err)
	}

	from := submission.Status
	to, err := lifecycle.Transition(actor, &from, lifecycle.ActionReopen)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionReopen, err)
	}

	submission.Status = to
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionReopen, err)
	}

	stored, err := loadSubmission(ctx, s.submissions, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, s.fail(span, lifecycle.ActionReopen, err)
	}
	s.hooks.confirmed(ctx, TransitionEntry{Submission: stored, From: &from, Action: lifecycle.ActionReopen, Actor: actor}, actor.ID)

	return dto.NewSubmissionResponse(stored), nil
}

// materialize stores a SUBMITTED row for the pair: a new empty one when
// there is no row, or the overdue draft frozen in place.
func (s *gradingService) materialize(ctx context.Context, actor lifecycle.Actor, assignment models.Assignment, link models.AssignmentStudent, draft *models.Submission, teacherOverride bool) (models.Submission, error) {
	now := s.now()
	due := s.resolver.EffectiveDue(assignment, &link)
	if err := lifecycle.CheckDeadline(lifecycle.ActionMaterialize, due, now); err != nil {
		return models.Submission{}, err
	}

	from := statusOf(draft)
	if _, err := lifecycle.Transition(actor, from, lifecycle.ActionMaterialize); err != nil {
		return models.Submission{}, err
	}

	var submission models.Submission
	if draft == nil {
		submission = lifecycle.Materialize(lifecycle.Virtual{AssignmentID: assignment.ID, StudentID: link.StudentID, EffectiveDue: *due}, teacherOverride)
		if err := s.submissions.Create(ctx, &submission); err != nil {
			return models.Submission{}, err
		}
	} else {
		submission = *draft
		submission.Status = models.SubmissionStatusSubmitted
		submission.TeacherOverride = submission.TeacherOverride || teacherOverride
		if err := s.submissions.Update(ctx, &submission); err != nil {
			return models.Submission{}, err
		}
	}

	stored, err := loadSubmission(ctx, s.submissions, submission.ID)
	if err != nil {
		return models.Submission{}, err
	}

	s.hooks.confirmed(ctx, TransitionEntry{
		Submission: stored,
		From:       from,
		Action:     lifecycle.ActionMaterialize,
		Actor:      actor,
		Metadata: map[string]interface{}{
			"teacher_override": teacherOverride,
			"effective_due":    due.UTC().Format(time.RFC3339),
		},
	}, assignment.TeacherID)

	return stored, nil
}

func (s *gradingService) grade(ctx context.Context, actor lifecycle.Actor, submission models.Submission, score, note *string, action lifecycle.Action, teacherOverride *bool) (models.Submission, error) {
	from := submission.Status
	to, err := lifecycle.Transition(actor, &from, action)
	if err != nil {
		return models.Submission{}, err
	}

	gradedAt := s.now()
	gradedBy := actor.ID
	submission.Status = to
	submission.Score = score
	submission.ReviewNote = note
	submission.GradedAt = &gradedAt
	submission.GradedBy = &gradedBy
	if teacherOverride != nil {
		submission.TeacherOverride = *teacherOverride
	}

	if err := s.submissions.Update(ctx, &submission); err != nil {
		return models.Submission{}, err
	}

	stored, err := loadSubmission(ctx, s.submissions, submission.ID)
	if err != nil {
		return models.Submission{}, err
	}

	metadata := map[string]interface{}{"teacher_override": stored.TeacherOverride}
	if score != nil {
		metadata["score"] = *score
	}
	s.hooks.confirmed(ctx, TransitionEntry{Submission: stored, From: &from, Action: action, Actor: actor, Metadata: metadata}, actor.ID)

	return stored, nil
}

func (s *gradingService) ownedPair(ctx context.Context, actor lifecycle.Actor, assignmentID, studentID uint) (models.Assignment, models.AssignmentStudent, error) {
	assignment, err := loadAssignment(ctx, s.assignments, assignmentID)
	if err != nil {
		return models.Assignment{}, models.AssignmentStudent{}, err
	}
	if err := requireOwner(assignment, actor); err != nil {
		return models.Assignment{}, models.AssignmentStudent{}, err
	}
	link, err := loadLink(ctx, s.links, assignmentID, studentID)
	if err != nil {
		return models.Assignment{}, models.AssignmentStudent{}, err
	}
	return assignment, link, nil
}

func (s *gradingService) ownedSubmission(ctx context.Context, actor lifecycle.Actor, submissionID uint, expected *string) (models.Submission, error) {
	submission, err := loadSubmission(ctx, s.submissions, submissionID)
	if err != nil {
		return models.Submission{}, err
	}
	if err := requireOwner(submission.Assignment, actor); err != nil {
		return models.Submission{}, err
	}
	if err := checkExpected(submission.Status, expected); err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (s *gradingService) cleanNote(note *string) *string {
	if note == nil {
		return nil
	}
	cleaned := strings.TrimSpace(s.sanitizer.Sanitize(*note))
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

func (s *gradingService) fail(span trace.Span, action lifecycle.Action, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, fmt.Sprintf("%s_failed", action))
	return rejected(action, err)
}

func queueEntry(assignment models.Assignment, link models.AssignmentStudent, tracked lifecycle.Tracked, due *time.Time, now time.Time) dto.GradingQueueEntry {
	statements := lifecycle.SplitStatements(assignment.ProblemContent)
	entry := dto.GradingQueueEntry{
		AssignmentID:    assignment.ID,
		AssignmentTitle: assignment.Title,
		StudentID:       link.StudentID,
		StudentName:     link.Student.DisplayName(),
		EffectiveDueAt:  due,
	}

	switch t := tracked.(type) {
	case lifecycle.Virtual:
		entry.Key = fmt.Sprintf("virtual-%d-%d", t.AssignmentID, t.StudentID)
		entry.Virtual = true
		entry.Status = string(t.Status())
		entry.State = string(lifecycle.ViewOverdue)
		entry.Examples = lifecycle.Zip(statements, "")
	case lifecycle.Persisted:
		submission := t.Submission
		id := submission.ID
		entry.Key = fmt.Sprintf("%d", id)
		entry.SubmissionID = &id
		entry.Status = string(submission.Status)
		entry.State = string(lifecycle.View(&submission.Status, due, now))
		entry.Score = submission.Score
		entry.ReviewNote = submission.ReviewNote
		entry.TeacherOverride = submission.TeacherOverride
		entry.SubmittedAt = submission.SubmittedAt
		entry.Examples = lifecycle.Zip(statements, submission.TextAnswer)
	}
	return entry
}

// isMissingWork reports whether a SUBMITTED row stands in for absent work:
// never submitted by the student, and either tagged by a teacher or empty.
func isMissingWork(submission models.Submission) bool {
	if submission.SubmittedAt != nil {
		return false
	}
	return submission.TeacherOverride || strings.TrimSpace(submission.TextAnswer) == ""
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
