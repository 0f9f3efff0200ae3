package lifecycle

import (
	"time"

	"github.com/noah-isme/mathla-go-api/internal/models"
)

// Tracked is either a Persisted submission row or a Virtual missing entry.
// Turning a Virtual into a row goes through Materialize.
type Tracked interface {
	Pair() (assignmentID, studentID uint)
	tracked()
}

// Persisted wraps a stored submission row.
type Persisted struct {
	Submission models.Submission
}

// Virtual is an overdue pair without any row. It is reported as an empty
// SUBMITTED entry but never stored until materialised.
type Virtual struct {
	AssignmentID uint
	StudentID    uint
	EffectiveDue time.Time
}

func (p Persisted) Pair() (uint, uint) { return p.Submission.AssignmentID, p.Submission.StudentID }
func (Persisted) tracked()             {}

func (v Virtual) Pair() (uint, uint) { return v.AssignmentID, v.StudentID }
func (Virtual) tracked()             {}

// Status of a virtual entry is always SUBMITTED.
func (Virtual) Status() models.SubmissionStatus { return models.SubmissionStatusSubmitted }

// Track resolves the tracked entry for a pair. latest is the highest-ID row,
// or nil. It returns false when there is no row and the deadline has not
// passed, i.e. the pair is simply not started.
func Track(assignmentID, studentID uint, latest *models.Submission, due *time.Time, now time.Time) (Tracked, bool) {
	if latest != nil {
		return Persisted{Submission: *latest}, true
	}
	if !IsPast(due, now) {
		return nil, false
	}
	return Virtual{AssignmentID: assignmentID, StudentID: studentID, EffectiveDue: *due}, true
}

// Materialize converts a virtual entry into the empty SUBMITTED row that
// must be stored before any further transition.
func Materialize(v Virtual, teacherOverride bool) models.Submission {
	return models.Submission{
		AssignmentID:    v.AssignmentID,
		StudentID:       v.StudentID,
		TextAnswer:      "",
		Status:          models.SubmissionStatusSubmitted,
		TeacherOverride: teacherOverride,
	}
}
