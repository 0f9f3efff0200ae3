package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/mathla-go-api/internal/dto"
	"github.com/noah-isme/mathla-go-api/internal/lifecycle"
	"github.com/noah-isme/mathla-go-api/internal/models"
	"github.com/noah-isme/mathla-go-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.SubmissionEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event dto.SubmissionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}

// lifecycleEnv wires the lifecycle services against an in-memory database
// with a controllable clock.
type lifecycleEnv struct {
	db          *gorm.DB
	clock       time.Time
	teacher     models.User
	intruder    models.User
	student     models.User
	classmate   models.User
	assignment  models.Assignment
	events      *recordingPublisher
	assignments AssignmentService
	submissions SubmissionService
	grading     GradingService
	transitions repository.SubmissionTransitionRepository
}

func newLifecycleEnv(t *testing.T) *lifecycleEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	env := &lifecycleEnv{
		db:        db,
		clock:     time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC),
		teacher:   models.User{Name: "Ms Rivera", Email: "rivera@example.com", Role: models.RoleTeacher},
		intruder:  models.User{Name: "Mr Hale", Email: "hale@example.com", Role: models.RoleTeacher},
		student:   models.User{Name: "Ada", Email: "ada@example.com", Role: models.RoleStudent},
		classmate: models.User{Name: "Bob", Email: "bob@example.com", Role: models.RoleStudent},
		events:    &recordingPublisher{},
	}
	for _, user := range []*models.User{&env.teacher, &env.intruder, &env.student, &env.classmate} {
		require.NoError(t, db.Create(user).Error)
	}

	due := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	env.assignment = models.Assignment{
		TeacherID:      env.teacher.ID,
		Title:          "Fractions",
		ProblemContent: "1/2+1/3\n---\n2/5+1/2",
		ProblemFormat:  models.ProblemFormatASCIIMath,
		DueAt:          &due,
	}
	require.NoError(t, db.Create(&env.assignment).Error)
	for _, student := range []models.User{env.student, env.classmate} {
		require.NoError(t, db.Create(&models.AssignmentStudent{AssignmentID: env.assignment.ID, StudentID: student.ID}).Error)
	}

	assignmentRepo := repository.NewAssignmentRepository(db)
	linkRepo := repository.NewAssignmentStudentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	env.transitions = repository.NewSubmissionTransitionRepository(db)
	recorder := NewTransitionService(env.transitions, testLogger())
	validate := validator.New(validator.WithRequiredStructEnabled())
	clock := func() time.Time { return env.clock }

	env.assignments = NewAssignmentService(assignmentRepo, linkRepo, repository.NewUserRepository(db), submissionRepo, env.events, validate, AssignmentServiceConfig{}, testLogger())

	submissions := NewSubmissionService(submissionRepo, assignmentRepo, linkRepo, recorder, env.events, validate, testLogger())
	submissions.(*submissionService).now = clock
	env.submissions = submissions

	grading := NewGradingService(submissionRepo, assignmentRepo, linkRepo, recorder, env.events, validate, testLogger())
	grading.(*gradingService).now = clock
	env.grading = grading

	return env
}

func (e *lifecycleEnv) teacherActor() lifecycle.Actor {
	return lifecycle.Actor{ID: e.teacher.ID, Role: models.RoleTeacher}
}

func (e *lifecycleEnv) studentActor() lifecycle.Actor {
	return lifecycle.Actor{ID: e.student.ID, Role: models.RoleStudent}
}

func (e *lifecycleEnv) classmateActor() lifecycle.Actor {
	return lifecycle.Actor{ID: e.classmate.ID, Role: models.RoleStudent}
}

func (e *lifecycleEnv) intruderActor() lifecycle.Actor {
	return lifecycle.Actor{ID: e.intruder.ID, Role: models.RoleTeacher}
}

func (e *lifecycleEnv) stored(t *testing.T, id uint) models.Submission {
	t.Helper()
	var submission models.Submission
	require.NoError(t, e.db.First(&submission, id).Error)
	return submission
}

func (e *lifecycleEnv) countRows(t *testing.T, studentID uint) int64 {
	t.Helper()
	var total int64
	require.NoError(t, e.db.Model(&models.Submission{}).Where("assignment_id = ? AND student_id = ?", e.assignment.ID, studentID).Count(&total).Error)
	return total
}

func strPtr(value string) *string {
	return &value
}

func boolPtr(value bool) *bool {
	return &value
}
