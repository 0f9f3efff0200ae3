package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/noah-isme/mathla-go-api/internal/dto"
	"github.com/noah-isme/mathla-go-api/internal/lifecycle"
	"github.com/noah-isme/mathla-go-api/internal/models"
	"github.com/noah-isme/mathla-go-api/internal/repository"
)

// StatsService aggregates counters for teachers and per-user summaries.
type StatsService interface {
	Overview(ctx context.Context, actor lifecycle.Actor) (dto.StatsOverviewResponse, error)
	ForUser(ctx context.Context, actor lifecycle.Actor, userID uint) (dto.UserStatsResponse, error)
}

type statsService struct {
	repo   repository.StatsRepository
	users  repository.UserRepository
	logger zerolog.Logger
}

// NewStatsService constructs the stats service.
func NewStatsService(repo repository.StatsRepository, users repository.UserRepository, logger zerolog.Logger) StatsService {
	return &statsService{
		repo:   repo,
		users:  users,
		logger: logger.With().Str("component", "stats_service").Logger(),
	}
}

func (s *statsService) Overview(ctx context.Context, actor lifecycle.Actor) (dto.StatsOverviewResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/mathla-go-api/internal/service/stats")
	ctx, span := tracer.Start(ctx, "stats.overview")
	defer span.End()

	if err := requireTeacher(actor); err != nil {
		return dto.StatsOverviewResponse{}, err
	}

	roles, err := s.repo.CountUsersByRole(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_users_failed")
		return dto.StatsOverviewResponse{}, err
	}
	assignments, err := s.repo.CountAssignments(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_assignments_failed")
		return dto.StatsOverviewResponse{}, err
	}
	statuses, err := s.repo.CountSubmissionsByStatus(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count_submissions_failed")
		return dto.StatsOverviewResponse{}, err
	}

	response := dto.StatsOverviewResponse{
		Users:       countMap(roles, string(models.RoleTeacher), string(models.RoleStudent)),
		Assignments: assignments,
		Submissions: countMap(statuses, string(models.SubmissionStatusDraft), string(models.SubmissionStatusSubmitted), string(models.SubmissionStatusGraded)),
	}
	span.SetAttributes(attribute.Int64("stats.assignments", assignments))
	return response, nil
}

// ForUser is visible to teachers and to the user themselves.
func (s *statsService) ForUser(ctx context.Context, actor lifecycle.Actor, userID uint) (dto.UserStatsResponse, error) {
	if !actor.IsTeacher() && actor.ID != userID {
		return dto.UserStatsResponse{}, lifecycle.Permission(lifecycle.CodeRoleForbidden, "students may only read their own stats")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserStatsResponse{}, ErrUserNotFound
		}
		return dto.UserStatsResponse{}, err
	}

	response := dto.UserStatsResponse{
		UserID:              user.ID,
		Role:                string(user.Role),
		SubmissionsByStatus: map[string]int64{},
	}

	switch user.Role {
	case models.RoleTeacher:
		authored, err := s.repo.CountAssignments(ctx, &user.ID)
		if err != nil {
			return dto.UserStatsResponse{}, err
		}
		graded, err := s.repo.CountGradedBy(ctx, user.ID)
		if err != nil {
			return dto.UserStatsResponse{}, err
		}
		response.AssignmentsAuthored = authored
		response.GradedCount = graded
	default:
		statuses, err := s.repo.CountSubmissionsByStatus(ctx, &user.ID)
		if err != nil {
			return dto.UserStatsResponse{}, err
		}
		response.SubmissionsByStatus = countMap(statuses, string(models.SubmissionStatusDraft), string(models.SubmissionStatusSubmitted), string(models.SubmissionStatusGraded))
		for _, total := range response.SubmissionsByStatus {
			response.SubmissionsMade += total
		}
		response.GradedCount = response.SubmissionsByStatus[string(models.SubmissionStatusGraded)]
	}

	return response, nil
}

// countMap turns grouped rows into a map that always carries the given keys.
func countMap(rows []repository.StatusCount, keys ...string) map[string]int64 {
	result := make(map[string]int64, len(keys))
	for _, key := range keys {
		result[key] = 0
	}
	for _, row := range rows {
		result[row.Status] = row.Total
	}
	return result
}
