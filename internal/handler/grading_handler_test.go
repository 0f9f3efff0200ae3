package handler_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mathla-go-api/internal/dto"
)

func TestGradingHandlerMissingReopenRetake(t *testing.T) {
	env := setupApp(t)
	assignmentID := env.createAssignment(t, time.Now().Add(-2*time.Hour))

	status, resp := env.do(t, &env.teacher, http.MethodGet, fmt.Sprintf("/api/v1/grading/queue?assignment_id=%d", assignmentID), nil)
	require.Equal(t, http.StatusOK, status, resp.Message)
	var queue dto.GradingQueueResponse
	decodeData(t, resp, &queue)
	require.Len(t, queue.Pending, 1)
	require.True(t, queue.Pending[0].Virtual)
	require.Equal(t, fmt.Sprintf("virtual-%d-%d", assignmentID, env.student.ID), queue.Pending[0].Key)
	require.Nil(t, queue.Pending[0].SubmissionID)

	status, resp = env.do(t, &env.teacher, http.MethodPost, "/api/v1/grading/missing", map[string]interface{}{
		"assignment_id": assignmentID,
		"student_id":    env.student.ID,
		"score":         "0",
	})
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "OVERRIDE_AFTER_DUE_REQUIRED", resp.Code)

	status, resp = env.do(t, &env.teacher, http.MethodPost, "/api/v1/grading/missing", map[string]interface{}{
		"assignment_id":    assignmentID,
		"student_id":       env.student.ID,
		"score":            "0",
		"teacher_override": true,
	})
	require.Equal(t, http.StatusOK, status, resp.Message)
	var graded dto.SubmissionResponse
	decodeData(t, resp, &graded)
	require.Equal(t, "GRADED", graded.Status)
	require.True(t, graded.TeacherOverride)
	require.NotNil(t, graded.ReviewNote)
	require.Equal(t, "No work submitted before the deadline.", *graded.ReviewNote)

	status, resp = env.do(t, &env.teacher, http.MethodPost, "/api/v1/grading/missing", map[string]interface{}{
		"assignment_id":    assignmentID,
		"student_id":       env.student.ID,
		"teacher_override": true,
	})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "ALREADY_GRADED", resp.Code)

	base := fmt.Sprintf("/api/v1/grading/submissions/%d", graded.ID)
	status, resp = env.do(t, &env.teacher, http.MethodPost, base+"/retake", nil)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "ILLEGAL_TRANSITION", resp.Code)

	status, resp = env.do(t, &env.teacher, http.MethodPost, base+"/reopen", map[string]interface{}{"expected_status": "GRADED"})
	require.Equal(t, http.StatusOK, status, resp.Message)
	var reopened dto.SubmissionResponse
	decodeData(t, resp, &reopened)
	require.Equal(t, "SUBMITTED", reopened.Status)
	require.NotNil(t, reopened.Score)

	newDue := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	status, resp = env.do(t, &env.teacher, http.MethodPost, base+"/retake", map[string]interface{}{"due_at": newDue})
	require.Equal(t, http.StatusOK, status, resp.Message)
	var retaken dto.SubmissionResponse
	decodeData(t, resp, &retaken)
	require.Equal(t, "DRAFT", retaken.Status)

	// The new deadline lets the student edit again.
	status, resp = env.do(t, &env.student, http.MethodPatch, fmt.Sprintf("/api/v1/submissions/%d", graded.ID), map[string]interface{}{
		"answers": []string{"5/6", "9/10"},
	})
	require.Equal(t, http.StatusOK, status, resp.Message)
}

func TestGradingHandlerGradeSubmitted(t *testing.T) {
	env := setupApp(t)
	assignmentID := env.createAssignment(t, time.Now().Add(24*time.Hour))

	status, resp := env.do(t, &env.student, http.MethodPost, "/api/v1/submissions/start", map[string]interface{}{
		"assignment_id": assignmentID,
		"answers":       []string{"5/6", "9/10"},
	})
	require.Equal(t, http.StatusCreated, status)
	var draft dto.SubmissionResponse
	decodeData(t, resp, &draft)

	gradePath := fmt.Sprintf("/api/v1/grading/submissions/%d/grade", draft.ID)
	status, resp = env.do(t, &env.teacher, http.MethodPut, gradePath, map[string]interface{}{"score": "4.5"})
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "NEEDS_SUBMITTED", resp.Code)

	status, _ = env.do(t, &env.student, http.MethodPatch, fmt.Sprintf("/api/v1/submissions/%d", draft.ID), map[string]interface{}{"status": "SUBMITTED"})
	require.Equal(t, http.StatusOK, status)

	status, resp = env.do(t, &env.teacher, http.MethodPut, gradePath, map[string]interface{}{"score": "  ", "note": "<b>Nice</b> work"})
	require.Equal(t, http.StatusOK, status, resp.Message)
	var graded dto.SubmissionResponse
	decodeData(t, resp, &graded)
	require.Equal(t, "GRADED", graded.Status)
	require.Nil(t, graded.Score)
	require.Equal(t, "Nice work", *graded.ReviewNote)
	require.NotNil(t, graded.GradedBy)
	require.Equal(t, env.teacher.ID, *graded.GradedBy)

	status, resp = env.do(t, &env.teacher, http.MethodGet, "/api/v1/grading/queue", nil)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"pending":0,"overdue_drafts":0,"graded":1}`, string(resp.Meta))
}

func TestGradingHandlerRequiresTeacher(t *testing.T) {
	env := setupApp(t)

	status, resp := env.do(t, &env.student, http.MethodGet, "/api/v1/grading/queue", nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "ROLE_FORBIDDEN", resp.Code)

	status, _ = env.do(t, nil, http.MethodGet, "/api/v1/grading/queue", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestGradingHandlerMaterializeBeforeDeadline(t *testing.T) {
	env := setupApp(t)
	assignmentID := env.createAssignment(t, time.Now().Add(time.Hour))

	status, resp := env.do(t, &env.teacher, http.MethodPost, "/api/v1/grading/materialize", map[string]interface{}{
		"assignment_id": assignmentID,
		"student_id":    env.student.ID,
	})
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "OVERRIDE_AFTER_DUE_REQUIRED", resp.Code)
}
