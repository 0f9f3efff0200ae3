package dto

// StatsOverviewResponse counts users, assignments and submissions.
type StatsOverviewResponse struct {
	Users       map[string]int64 `json:"users"`
	Assignments int64            `json:"assignments"`
	Submissions map[string]int64 `json:"submissions"`
}

// UserStatsResponse summarizes one user's activity.
type UserStatsResponse struct {
	UserID              uint             `json:"user_id"`
	Role                string           `json:"role"`
	AssignmentsAuthored int64            `json:"assignments_authored"`
	SubmissionsMade     int64            `json:"submissions_made"`
	SubmissionsByStatus map[string]int64 `json:"submissions_by_status"`
	GradedCount         int64            `json:"graded_count"`
}
