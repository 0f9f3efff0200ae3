package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mathla-go-api/internal/dto"
	"github.com/noah-isme/mathla-go-api/internal/lifecycle"
	"github.com/noah-isme/mathla-go-api/internal/models"
	"github.com/noah-isme/mathla-go-api/internal/observability"
	"github.com/noah-isme/mathla-go-api/internal/repository"
)

// HomeworkService produces the student's overview of assigned work.
type HomeworkService interface {
	Homework(ctx context.Context, actor lifecycle.Actor) (dto.HomeworkResponse, error)
	HandleSubmissionEvent(ctx context.Context, event dto.SubmissionEvent)
}

type homeworkService struct {
	links       repository.AssignmentStudentRepository
	submissions repository.SubmissionRepository
	resolver    lifecycle.Resolver
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewHomeworkService builds the overview aggregator. cache may be nil.
func NewHomeworkService(links repository.AssignmentStudentRepository, submissions repository.SubmissionRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) HomeworkService {
	return &homeworkService{
		links:       links,
		submissions: submissions,
		resolver:    lifecycle.NewResolver(logger),
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "homework_service").Logger(),
		now:         time.Now,
	}
}

func homeworkCacheKey(studentID uint) string {
	return fmt.Sprintf("homework:student:%d", studentID)
}

func (s *homeworkService) Homework(ctx context.Context, actor lifecycle.Actor) (dto.HomeworkResponse, error) {
	if err := requireStudent(actor); err != nil {
		return dto.HomeworkResponse{}, err
	}

	cacheKey := homeworkCacheKey(actor.ID)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.HomeworkResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				observability.HomeworkCacheLookups().WithLabelValues("hit").Inc()
				return s.refreshStates(response), nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read homework cache")
		}
		observability.HomeworkCacheLookups().WithLabelValues("miss").Inc()
	}

	links, err := s.links.ListByStudent(ctx, actor.ID)
	if err != nil {
		return dto.HomeworkResponse{}, err
	}

	studentID := actor.ID
	latest, err := s.submissions.List(ctx, repository.SubmissionFilter{StudentID: &studentID, LatestOnly: true})
	if err != nil {
		return dto.HomeworkResponse{}, err
	}

	response := s.buildResponse(links, latest)

	if s.cache != nil && s.cacheTTL > 0 {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store homework cache")
			}
		}
	}

	return response, nil
}

// HandleSubmissionEvent drops the cached overview of the affected student.
func (s *homeworkService) HandleSubmissionEvent(ctx context.Context, event dto.SubmissionEvent) {
	if s.cache == nil || event.StudentID == 0 {
		return
	}
	if err := s.cache.Del(ctx, homeworkCacheKey(event.StudentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", event.StudentID).Msg("failed to invalidate homework cache")
	}
}

func (s *homeworkService) buildResponse(links []models.AssignmentStudent, latest []models.Submission) dto.HomeworkResponse {
	now := s.now()
	byAssignment := make(map[uint]models.Submission, len(latest))
	for _, submission := range latest {
		byAssignment[submission.AssignmentID] = submission
	}

	items := make([]dto.HomeworkItem, 0, len(links))
	for i := range links {
		link := links[i]
		assignment := link.Assignment
		due := s.resolver.EffectiveDue(assignment, &link)
		statements := lifecycle.SplitStatements(assignment.ProblemContent)

		item := dto.HomeworkItem{
			AssignmentID:   assignment.ID,
			Title:          assignment.Title,
			Description:    assignment.Description,
			ProblemFormat:  string(assignment.ProblemFormat),
			DueAt:          assignment.DueAt,
			StudentDueAt:   link.DueAt,
			EffectiveDueAt: due,
		}

		var row *models.Submission
		if submission, ok := byAssignment[link.AssignmentID]; ok {
			row = &submission
		}

		tracked, ok := lifecycle.Track(link.AssignmentID, link.StudentID, row, due, now)
		switch t := tracked.(type) {
		case lifecycle.Persisted:
			submission := t.Submission
			id := submission.ID
			status := string(submission.Status)
			item.SubmissionID = &id
			item.Status = &status
			item.Score = submission.Score
			item.ReviewNote = submission.ReviewNote
			item.TeacherOverride = submission.TeacherOverride
			item.Examples = lifecycle.Zip(statements, submission.TextAnswer)
		case lifecycle.Virtual:
			status := string(t.Status())
			item.Virtual = true
			item.Status = &status
			item.Examples = lifecycle.Zip(statements, "")
		}
		if !ok {
			item.Examples = lifecycle.Zip(statements, "")
		}

		setState(&item, now)
		items = append(items, item)
	}

	response := dto.HomeworkResponse{Items: items, GeneratedAt: now.UTC()}
	response.Summary = summarize(items)
	return response
}

// refreshStates recomputes time-dependent fields of a cached overview so a
// deadline passing inside the cache TTL is still reflected.
func (s *homeworkService) refreshStates(response dto.HomeworkResponse) dto.HomeworkResponse {
	now := s.now()
	for i := range response.Items {
		item := &response.Items[i]
		if item.Status == nil && lifecycle.IsPast(item.EffectiveDueAt, now) {
			// the pair became virtual after the overview was cached
			status := string(models.SubmissionStatusSubmitted)
			item.Virtual = true
			item.Status = &status
		}
		setState(item, now)
	}
	response.Summary = summarize(response.Items)
	return response
}

func setState(item *dto.HomeworkItem, now time.Time) {
	var status *models.SubmissionStatus
	if item.Status != nil && !item.Virtual {
		status = lifecycle.StatusPtr(models.SubmissionStatus(*item.Status))
	}
	state := lifecycle.View(status, item.EffectiveDueAt, now)
	item.State = string(state)
	item.Editable = state == lifecycle.ViewNotStarted || state == lifecycle.ViewDraft
}

func summarize(items []dto.HomeworkItem) dto.HomeworkSummary {
	summary := dto.HomeworkSummary{Total: len(items)}
	for _, item := range items {
		switch lifecycle.ViewState(item.State) {
		case lifecycle.ViewNotStarted:
			summary.NotStarted++
		case lifecycle.ViewDraft:
			summary.Draft++
		case lifecycle.ViewSubmitted:
			summary.Submitted++
		case lifecycle.ViewGraded:
			summary.Graded++
		case lifecycle.ViewOverdue:
			summary.Overdue++
		}
	}
	return summary
}
