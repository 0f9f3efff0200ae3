package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/mathla-go-api/internal/config"
	"github.com/noah-isme/mathla-go-api/internal/database"
	"github.com/noah-isme/mathla-go-api/internal/handler"
	"github.com/noah-isme/mathla-go-api/internal/middleware"
	"github.com/noah-isme/mathla-go-api/internal/models"
	"github.com/noah-isme/mathla-go-api/internal/repository"
	"github.com/noah-isme/mathla-go-api/internal/router"
	"github.com/noah-isme/mathla-go-api/internal/service"
)

const testSecret = "handler-test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
	Meta    json.RawMessage `json:"meta"`
}

type testApp struct {
	app     *fiber.App
	db      *gorm.DB
	teacher models.User
	student models.User
	other   models.User
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	db, err := database.ConnectSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	env := &testApp{
		db:      db,
		teacher: models.User{Name: "Ms. Noether", Email: "noether@example.com", Role: models.RoleTeacher},
		student: models.User{Name: "Ada", Email: "ada@example.com", Role: models.RoleStudent},
		other:   models.User{Name: "Blaise", Email: "blaise@example.com", Role: models.RoleStudent},
	}
	require.NoError(t, db.Create(&env.teacher).Error)
	require.NoError(t, db.Create(&env.student).Error)
	require.NoError(t, db.Create(&env.other).Error)

	logger := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())

	users := repository.NewUserRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	links := repository.NewAssignmentStudentRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	transitions := service.NewTransitionService(repository.NewSubmissionTransitionRepository(db), logger)

	events := service.NewEventService(nil, "", nil, logger)
	assignmentService := service.NewAssignmentService(assignments, links, users, submissions, events, validate, service.AssignmentServiceConfig{}, logger)
	submissionService := service.NewSubmissionService(submissions, assignments, links, transitions, events, validate, logger)
	gradingService := service.NewGradingService(submissions, assignments, links, transitions, events, validate, logger)
	homeworkService := service.NewHomeworkService(links, submissions, nil, 0, logger)
	statsService := service.NewStatsService(repository.NewStatsRepository(db), users, logger)

	cfg := config.Config{AppName: "Mathla Test", AppEnv: "test", JWTSecret: testSecret}
	env.app = fiber.New()
	middleware.Register(env.app, middleware.Config{})
	router.Register(env.app, cfg, router.Dependencies{
		DB:                db,
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger, 100, time.Minute),
		GradingHandler:    handler.NewGradingHandler(gradingService, logger),
		HomeworkHandler:   handler.NewHomeworkHandler(homeworkService, logger),
		EventHandler:      handler.NewEventHandler(events, logger, time.Second),
		StatsHandler:      handler.NewStatsHandler(statsService, logger),
		JWTMiddleware:     middleware.JWTProtected(testSecret),
		Logger:            logger,
	})

	return env
}

func tokenFor(t *testing.T, user models.User) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", user.ID),
		"role": strings.ToUpper(string(user.Role)),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (e *testApp) do(t *testing.T, user *models.User, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, *user))
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var out envelope
	decodeResponse(t, resp, &out)
	return resp.StatusCode, out
}

// createAssignment creates an assignment as the teacher and assigns the student.
func (e *testApp) createAssignment(t *testing.T, dueAt time.Time) uint {
	t.Helper()

	status, resp := e.do(t, &e.teacher, http.MethodPost, "/api/v1/assignments", map[string]interface{}{
		"title":    "Fractions",
		"problems": []string{"1/2+1/3", "2/5+1/2"},
		"due_at":   dueAt.UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, status, resp.Message)

	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))

	status, resp = e.do(t, &e.teacher, http.MethodPost, fmt.Sprintf("/api/v1/assignments/%d/students", created.ID), map[string]interface{}{
		"student_ids": []uint{e.student.ID},
	})
	require.Equal(t, http.StatusOK, status, resp.Message)

	return created.ID
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func decodeData(t *testing.T, resp envelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, target))
}
