package models

import (
	"time"

	"gorm.io/datatypes"
)

// SubmissionTransition records one confirmed status change of a submission.
type SubmissionTransition struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	SubmissionID uint              `gorm:"not null;index" json:"submission_id"`
	FromStatus   *SubmissionStatus `gorm:"size:16" json:"from_status"`
	ToStatus     SubmissionStatus  `gorm:"size:16;not null" json:"to_status"`
	Action       string            `gorm:"size:32;not null" json:"action"`
	ActorID      uint              `gorm:"not null" json:"actor_id"`
	ActorRole    string            `gorm:"size:16;not null" json:"actor_role"`
	Metadata     datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time         `json:"created_at"`
}

// AllModels lists every table the service migrates.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Assignment{},
		&AssignmentStudent{},
		&Submission{},
		&SubmissionTransition{},
	}
}
