package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mathla-go-api/internal/dto"
)

func TestHomeworkHandlerDerivesStates(t *testing.T) {
	env := setupApp(t)
	overdue := env.createAssignment(t, time.Now().Add(-time.Hour))
	open := env.createAssignment(t, time.Now().Add(time.Hour))

	status, resp := env.do(t, &env.student, http.MethodGet, "/api/v1/student/homework", nil)
	require.Equal(t, http.StatusOK, status, resp.Message)
	var overview dto.HomeworkResponse
	decodeData(t, resp, &overview)
	require.Equal(t, 2, overview.Summary.Total)
	require.Equal(t, 1, overview.Summary.Overdue)
	require.Equal(t, 1, overview.Summary.NotStarted)

	states := map[uint]dto.HomeworkItem{}
	for _, item := range overview.Items {
		states[item.AssignmentID] = item
	}
	require.Equal(t, "OVERDUE", states[overdue].State)
	require.True(t, states[overdue].Virtual)
	require.False(t, states[overdue].Editable)
	require.Equal(t, "NOT_STARTED", states[open].State)
	require.True(t, states[open].Editable)
}

func TestHomeworkHandlerIsStudentOnly(t *testing.T) {
	env := setupApp(t)

	status, resp := env.do(t, &env.teacher, http.MethodGet, "/api/v1/student/homework", nil)
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, "ROLE_FORBIDDEN", resp.Code)
}
