package models

import "time"

// ProblemFormat tags the markup used by problem statements.
type ProblemFormat string

const (
	// ProblemFormatASCIIMath marks statements written in AsciiMath.
	ProblemFormatASCIIMath ProblemFormat = "ASCII_MATH"
	// ProblemFormatMarkdownTeX marks statements written in Markdown with TeX.
	ProblemFormatMarkdownTeX ProblemFormat = "MARKDOWN_TEX"
)

// Valid reports whether the format is one of the known tags.
func (f ProblemFormat) Valid() bool {
	return f == ProblemFormatASCIIMath || f == ProblemFormatMarkdownTeX
}

// Assignment is a unit of homework owned by a teacher.
type Assignment struct {
	ID             uint                `gorm:"primaryKey" json:"id"`
	TeacherID      uint                `gorm:"not null;index" json:"teacher_id"`
	Title          string              `gorm:"size:255;not null" json:"title"`
	Description    string              `gorm:"type:text" json:"description"`
	ProblemContent string              `gorm:"type:text" json:"problem_content"`
	ProblemFormat  ProblemFormat       `gorm:"size:16;not null" json:"problem_format"`
	DueAt          *time.Time          `json:"due_at"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Teacher        User                `gorm:"foreignKey:TeacherID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Students       []AssignmentStudent `json:"-"`
}

// OwnedBy reports whether the given teacher owns the assignment.
func (a Assignment) OwnedBy(teacherID uint) bool {
	return teacherID != 0 && a.TeacherID == teacherID
}
