package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mathla-go-api/internal/dto"
	"github.com/noah-isme/mathla-go-api/internal/lifecycle"
	"github.com/noah-isme/mathla-go-api/internal/models"
	"github.com/noah-isme/mathla-go-api/internal/repository"
)

func TestGradingQueueListsMissingStudentAsVirtual(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()
	env.clock = time.Date(2025, 1, 11, 8, 0, 0, 0, time.UTC)

	queue, err := env.grading.Queue(ctx, env.teacherActor(), dto.GradingQueueRequest{})
	require.NoError(t, err)
	require.Len(t, queue.Pending, 2)
	require.Empty(t, queue.Graded)

	var entry dto.GradingQueueEntry
	for _, candidate := range queue.Pending {
		if candidate.StudentID == env.student.ID {
			entry = candidate
		}
	}
	require.True(t, entry.Virtual)
	require.Nil(t, entry.SubmissionID)
	require.Equal(t, fmt.Sprintf("virtual-%d-%d", env.assignment.ID, env.student.ID), entry.Key)
	require.Equal(t, string(models.SubmissionStatusSubmitted), entry.Status)
	require.Len(t, entry.Examples, 2)
	require.Equal(t, "", entry.Examples[0].Answer)
	require.Equal(t, "Ada", entry.StudentName)
	require.Zero(t, env.countRows(t, env.student.ID))

	graded, err := env.grading.GradeMissing(ctx, env.teacherActor(), dto.GradeMissingRequest{
		AssignmentID: env.assignment.ID,
		StudentID:    env.student.ID,
		Score:           strPtr("1"),
		Note:            strPtr("no work submitted"),
		TeacherOverride: boolPtr(true),
	})
	require.NoError(t, err)
	require.Equal(t, string(models.SubmissionStatusGraded), graded.Status)
	require.Equal(t, "1", *graded.Score)
	require.Equal(t, "no work submitted", *graded.ReviewNote)
	require.True(t, graded.TeacherOverride)
	require.Equal(t, "", graded.TextAnswer)
	require.EqualValues(t, 1, env.countRows(t, env.student.ID))

	history, err := env.transitions.ListBySubmission(ctx, graded.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, string(lifecycle.ActionMaterialize), history[0].Action)
	require.Equal(t, string(lifecycle.ActionGradeMissing), history[1].Action)
	require.Equal(t, true, history[1].Metadata["teacher_override"])
}

func TestGradingGradeMissingRequiresExpiredDeadline(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()
	request := dto.GradeMissingRequest{AssignmentID: env.assignment.ID, StudentID: env.student.ID, Score: strPtr("0"), TeacherOverride: boolPtr(true)}

	_, err := env.grading.GradeMissing(ctx, env.teacherActor(), request)
	require.ErrorIs(t, err, lifecycle.ErrDeadlinePolicy)
	require.Equal(t, lifecycle.CodeOverrideAfterDueRequired, lifecycle.CodeOf(err))

	require.NoError(t, env.db.Model(&models.Assignment{}).Where("id = ?", env.assignment.ID).Update("due_at", nil).Error)
	env.clock = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = env.grading.GradeMissing(ctx, env.teacherActor(), request)
	require.ErrorIs(t, err, lifecycle.ErrDeadlinePolicy)
	require.Zero(t, env.countRows(t, env.student.ID))
}

func TestGradingGradeMissingAppliesDefaultScoreAndNote(t *testing.T) {
	env := newLifecycleEnv(t)
	env.clock = time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)

	graded, err := env.grading.GradeMissing(context.Background(), env.teacherActor(), dto.GradeMissingRequest{
		AssignmentID:    env.assignment.ID,
		StudentID:       env.student.ID,
		Score:           strPtr("  "),
		TeacherOverride: boolPtr(true),
	})
	require.NoError(t, err)
	require.Equal(t, DefaultMissingScore, *graded.Score)
	require.Equal(t, DefaultMissingNote, *graded.ReviewNote)
}

func TestGradingGradeMissingRequiresTeacherOverride(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()
	env.clock = time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)

	for _, override := range []*bool{nil, boolPtr(false)} {
		_, err := env.grading.GradeMissing(ctx, env.teacherActor(), dto.GradeMissingRequest{
			AssignmentID:    env.assignment.ID,
			StudentID:       env.student.ID,
			Score:           strPtr("1"),
			TeacherOverride: override,
		})
		require.ErrorIs(t, err, lifecycle.ErrDeadlinePolicy)
		require.Equal(t, lifecycle.CodeOverrideAfterDueRequired, lifecycle.CodeOf(err))
	}
	require.Zero(t, env.countRows(t, env.student.ID))
}

func TestGradingGradeMissingRefusesSubmittedWork(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()
	submitted := submitAnswer(t, env, "2/5+1/2")

	env.clock = time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
	_, err := env.grading.GradeMissing(ctx, env.teacherActor(), dto.GradeMissingRequest{
		AssignmentID:    env.assignment.ID,
		StudentID:       env.student.ID,
		Score:           strPtr("3"),
		TeacherOverride: boolPtr(true),
	})
	require.ErrorIs(t, err, lifecycle.ErrStateConflict)
	require.Equal(t, lifecycle.CodeNeedsSubmitted, lifecycle.CodeOf(err))

	stored := env.stored(t, submitted.ID)
	require.Equal(t, models.SubmissionStatusSubmitted, stored.Status)
	require.Equal(t, "2/5+1/2", stored.TextAnswer)
	require.False(t, stored.TeacherOverride)
	require.Nil(t, stored.ReviewNote)
}

func TestGradingGradeMissingGradesSynthesizedRow(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()
	env.clock = time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)

	synthesized, err := env.submissions.Start(ctx, env.studentActor(), dto.SubmissionStartRequest{AssignmentID: env.assignment.ID})
	require.NoError(t, err)
	require.Equal(t, string(models.SubmissionStatusSubmitted), synthesized.Status)

	graded, err := env.grading.GradeMissing(ctx, env.teacherActor(), dto.GradeMissingRequest{
		AssignmentID:    env.assignment.ID,
		StudentID:       env.student.ID,
		TeacherOverride: boolPtr(true),
	})
	require.NoError(t, err)
	require.Equal(t, synthesized.ID, graded.ID)
	require.True(t, graded.TeacherOverride)
}

func TestGradingRetakeRestoresDraftWithNewDeadline(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()

	started, err := env.submissions.Start(ctx, env.studentActor(), dto.SubmissionStartRequest{AssignmentID: env.assignment.ID})
	require.NoError(t, err)
	require.Equal(t, string(models.SubmissionStatusDraft), started.Status)

	saved, err := env.submissions.Update(ctx, env.studentActor(), started.ID, dto.SubmissionUpdateRequest{TextAnswer: strPtr("2/5+1/2")})
	require.NoError(t, err)
	require.Equal(t, string(models.SubmissionStatusDraft), saved.Status)

	submitted, err := env.submissions.Update(ctx, env.studentActor(), started.ID, dto.SubmissionUpdateRequest{Status: strPtr("SUBMITTED")})
	require.NoError(t, err)
	require.Equal(t, string(models.SubmissionStatusSubmitted), submitted.Status)

	retaken, err := env.grading.Retake(ctx, env.teacherActor(), started.ID, dto.RetakeRequest{DueAt: strPtr("2025-01-17T00:00:00Z")})
	require.NoError(t, err)
	require.Equal(t, string(models.SubmissionStatusDraft), retaken.Status)
	require.Equal(t, "2/5+1/2", retaken.TextAnswer)

	assignees, err := env.assignments.ListAssignees(ctx, env.teacherActor(), env.assignment.ID)
	require.NoError(t, err)
	newDue := time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC)
	for _, assignee := range assignees {
		switch assignee.StudentID {
		case env.student.ID:
			require.True(t, newDue.Equal(*assignee.EffectiveDueAt))
		case env.classmate.ID:
			require.True(t, env.assignment.DueAt.Equal(*assignee.EffectiveDueAt))
		}
	}

	// the student can keep working past the original deadline
	env.clock = time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
	_, err = env.submissions.Update(ctx, env.studentActor(), started.ID, dto.SubmissionUpdateRequest{TextAnswer: strPtr("9/10")})
	require.NoError(t, err)
}

func TestGradingReopenKeepsScoreAndNote(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()
	submission := submitAnswer(t, env, "1/2")

	graded, err := env.grading.Grade(ctx, env.teacherActor(), submission.ID, dto.GradeRequest{Score: strPtr("5"), Note: strPtr("good")})
	require.NoError(t, err)
	require.Equal(t, string(models.SubmissionStatusGraded), graded.Status)
	require.NotNil(t, graded.GradedAt)

	reopened, err := env.grading.Reopen(ctx, env.teacherActor(), submission.ID, dto.ReopenRequest{})
	require.NoError(t, err)
	require.Equal(t, string(models.SubmissionStatusSubmitted), reopened.Status)
	require.Equal(t, "5", *reopened.Score)
	require.Equal(t, "good", *reopened.ReviewNote)

	regraded, err := env.grading.Grade(ctx, env.teacherActor(), submission.ID, dto.GradeRequest{Score: strPtr("4,5")})
	require.NoError(t, err)
	require.Equal(t, "4.5", *regraded.Score)
	require.Nil(t, regraded.ReviewNote)
}

func TestGradingGradeIsIdempotentForIdenticalPayload(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()
	submission := submitAnswer(t, env, "1/2")
	request := dto.GradeRequest{Score: strPtr("5"), Note: strPtr("<b>good</b>")}

	first, err := env.grading.Grade(ctx, env.teacherActor(), submission.ID, request)
	require.NoError(t, err)
	require.Equal(t, "good", *first.ReviewNote)

	second, err := env.grading.Grade(ctx, env.teacherActor(), submission.ID, request)
	require.NoError(t, err)
	require.Equal(t, first.GradedAt, second.GradedAt)

	_, err = env.grading.Grade(ctx, env.teacherActor(), submission.ID, dto.GradeRequest{Score: strPtr("6")})
	require.ErrorIs(t, err, lifecycle.ErrStateConflict)
	require.Equal(t, lifecycle.CodeAlreadyGraded, lifecycle.CodeOf(err))
}

func TestGradingRejectsInvalidScoreBeforeMutating(t *testing.T) {
	env := newLifecycleEnv(t)
	submission := submitAnswer(t, env, "1/2")

	_, err := env.grading.Grade(context.Background(), env.teacherActor(), submission.ID, dto.GradeRequest{Score: strPtr("five")})
	require.ErrorIs(t, err, lifecycle.ErrValidation)
	require.Equal(t, lifecycle.CodeInvalidScore, lifecycle.CodeOf(err))
	require.Equal(t, models.SubmissionStatusSubmitted, env.stored(t, submission.ID).Status)
}

func TestGradingRejectsStaleView(t *testing.T) {
	env := newLifecycleEnv(t)
	submission := submitAnswer(t, env, "1/2")

	_, err := env.grading.Grade(context.Background(), env.teacherActor(), submission.ID, dto.GradeRequest{
		Score:          strPtr("5"),
		ExpectedStatus: strPtr("DRAFT"),
	})
	require.ErrorIs(t, err, lifecycle.ErrStateConflict)
	require.Equal(t, lifecycle.CodeStaleStatus, lifecycle.CodeOf(err))
	require.Equal(t, models.SubmissionStatusSubmitted, env.stored(t, submission.ID).Status)
}

func TestGradingEnforcesOwnershipAndRole(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()
	submission := submitAnswer(t, env, "1/2")

	_, err := env.grading.Grade(ctx, env.intruderActor(), submission.ID, dto.GradeRequest{Score: strPtr("5")})
	require.ErrorIs(t, err, lifecycle.ErrPermission)
	require.Equal(t, lifecycle.CodeNotOwner, lifecycle.CodeOf(err))

	_, err = env.grading.Grade(ctx, env.studentActor(), submission.ID, dto.GradeRequest{Score: strPtr("5")})
	require.ErrorIs(t, err, lifecycle.ErrPermission)
	require.Equal(t, lifecycle.CodeRoleForbidden, lifecycle.CodeOf(err))

	_, err = env.grading.Queue(ctx, env.studentActor(), dto.GradingQueueRequest{})
	require.ErrorIs(t, err, lifecycle.ErrPermission)

	_, err = env.grading.Reopen(ctx, env.teacherActor(), submission.ID, dto.ReopenRequest{})
	require.Equal(t, lifecycle.CodeNotGraded, lifecycle.CodeOf(err))
}

func TestGradingOverdueDraftIsMaterializedBeforeGrade(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()

	draft, err := env.submissions.Start(ctx, env.studentActor(), dto.SubmissionStartRequest{AssignmentID: env.assignment.ID, Answers: []string{"5/6", "9/10"}})
	require.NoError(t, err)

	_, err = env.grading.Grade(ctx, env.teacherActor(), draft.ID, dto.GradeRequest{Score: strPtr("2")})
	require.Equal(t, lifecycle.CodeNeedsSubmitted, lifecycle.CodeOf(err))

	env.clock = time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)
	queue, err := env.grading.Queue(ctx, env.teacherActor(), dto.GradingQueueRequest{AssignmentID: &env.assignment.ID})
	require.NoError(t, err)
	require.Len(t, queue.OverdueDrafts, 1)
	require.Equal(t, string(lifecycle.ViewOverdue), queue.OverdueDrafts[0].State)
	require.Equal(t, "9/10", queue.OverdueDrafts[0].Examples[1].Answer)
	require.Len(t, queue.Pending, 1)

	graded, err := env.grading.Grade(ctx, env.teacherActor(), draft.ID, dto.GradeRequest{Score: strPtr("2")})
	require.NoError(t, err)
	require.Equal(t, draft.ID, graded.ID)
	require.Equal(t, string(models.SubmissionStatusGraded), graded.Status)
	require.Equal(t, "5/6\n---\n9/10", graded.TextAnswer)

	history, err := env.transitions.ListBySubmission(ctx, draft.ID)
	require.NoError(t, err)
	actions := make([]string, 0, len(history))
	for _, entry := range history {
		actions = append(actions, entry.Action)
	}
	require.Equal(t, []string{"start", "materialize", "grade"}, actions)
}

func TestGradingMaterializeIsIdempotent(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()
	request := dto.MaterializeRequest{AssignmentID: env.assignment.ID, StudentID: env.classmate.ID}

	_, err := env.grading.Materialize(ctx, env.teacherActor(), request)
	require.Equal(t, lifecycle.CodeOverrideAfterDueRequired, lifecycle.CodeOf(err))

	env.clock = time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)
	first, err := env.grading.Materialize(ctx, env.teacherActor(), request)
	require.NoError(t, err)
	require.Equal(t, string(models.SubmissionStatusSubmitted), first.Status)
	require.False(t, first.TeacherOverride)

	second, err := env.grading.Materialize(ctx, env.teacherActor(), request)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.EqualValues(t, 1, env.countRows(t, env.classmate.ID))
}

type failingUpdateRepo struct {
	repository.SubmissionRepository
}

func (f failingUpdateRepo) Update(ctx context.Context, submission *models.Submission) error {
	return errors.New("connection reset")
}

func TestGradingReportsFailedStepAndRetriesOnlyGrade(t *testing.T) {
	env := newLifecycleEnv(t)
	ctx := context.Background()
	env.clock = time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)

	broken := NewGradingService(
		failingUpdateRepo{repository.NewSubmissionRepository(env.db)},
		repository.NewAssignmentRepository(env.db),
		repository.NewAssignmentStudentRepository(env.db),
		nil,
		nil,
		validator.New(validator.WithRequiredStructEnabled()),
		testLogger(),
	)
	broken.(*gradingService).now = func() time.Time { return env.clock }

	request := dto.GradeMissingRequest{AssignmentID: env.assignment.ID, StudentID: env.student.ID, Score: strPtr("0"), TeacherOverride: boolPtr(true)}
	_, err := broken.GradeMissing(ctx, env.teacherActor(), request)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, StepGrade, stepErr.Step)
	require.NotZero(t, stepErr.SubmissionID)
	require.Equal(t, models.SubmissionStatusSubmitted, env.stored(t, stepErr.SubmissionID).Status)

	graded, err := env.grading.GradeMissing(ctx, env.teacherActor(), request)
	require.NoError(t, err)
	require.Equal(t, stepErr.SubmissionID, graded.ID)
	require.EqualValues(t, 1, env.countRows(t, env.student.ID))

	_, err = env.grading.GradeMissing(ctx, env.teacherActor(), request)
	require.Equal(t, lifecycle.CodeAlreadyGraded, lifecycle.CodeOf(err))
}

func submitAnswer(t *testing.T, env *lifecycleEnv, answer string) dto.SubmissionResponse {
	t.Helper()
	ctx := context.Background()
	started, err := env.submissions.Start(ctx, env.studentActor(), dto.SubmissionStartRequest{AssignmentID: env.assignment.ID, TextAnswer: answer})
	require.NoError(t, err)
	submitted, err := env.submissions.Update(ctx, env.studentActor(), started.ID, dto.SubmissionUpdateRequest{Status: strPtr("SUBMITTED")})
	require.NoError(t, err)
	return submitted
}
