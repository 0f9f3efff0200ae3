package models

import "time"

// UserRole distinguishes teachers from students.
type UserRole string

const (
	// RoleTeacher owns assignments and grades submissions.
	RoleTeacher UserRole = "teacher"
	// RoleStudent starts, drafts and submits work.
	RoleStudent UserRole = "student"
)

// User is the subset of an account the homework workflow reads.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      UserRole  `gorm:"size:16;not null;index" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName falls back to the email when no name is set.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
