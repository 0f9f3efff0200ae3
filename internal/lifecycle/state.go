package lifecycle

import (
	"time"

	"github.com/noah-isme/mathla-go-api/internal/models"
)

// Actor is the authenticated caller of a transition.
type Actor struct {
	ID   uint
	Role models.UserRole
}

// IsTeacher reports whether the actor acts as a teacher.
func (a Actor) IsTeacher() bool { return a.Role == models.RoleTeacher }

// IsStudent reports whether the actor acts as a student.
func (a Actor) IsStudent() bool { return a.Role == models.RoleStudent }

// Action names a requested transition.
type Action string

const (
	ActionStart        Action = "start"
	ActionSynthesize   Action = "synthesize"
	ActionAutosave     Action = "autosave"
	ActionSubmit       Action = "submit"
	ActionMaterialize  Action = "materialize"
	ActionGrade        Action = "grade"
	ActionGradeMissing Action = "grade_missing"
	ActionRetake       Action = "retake"
	ActionReopen       Action = "reopen"
)

// ViewState is the status shown for a (assignment, student) pair. OVERDUE
// and NOT_STARTED are derived, never stored.
type ViewState string

const (
	ViewNotStarted ViewState = "NOT_STARTED"
	ViewDraft      ViewState = "DRAFT"
	ViewSubmitted  ViewState = "SUBMITTED"
	ViewGraded     ViewState = "GRADED"
	ViewOverdue    ViewState = "OVERDUE"
)

type rule struct {
	from []models.SubmissionStatus
	// fromNone allows the action when no row exists yet.
	fromNone bool
	to       models.SubmissionStatus
	role     models.UserRole
	// anyRole lets both roles trigger the action.
	anyRole bool
}

var rules = map[Action]rule{
	ActionStart:        {fromNone: true, to: models.SubmissionStatusDraft, role: models.RoleStudent},
	ActionSynthesize:   {fromNone: true, to: models.SubmissionStatusSubmitted, anyRole: true},
	ActionAutosave:     {from: []models.SubmissionStatus{models.SubmissionStatusDraft}, to: models.SubmissionStatusDraft, role: models.RoleStudent},
	ActionSubmit:       {from: []models.SubmissionStatus{models.SubmissionStatusDraft}, to: models.SubmissionStatusSubmitted, role: models.RoleStudent},
	ActionMaterialize:  {fromNone: true, from: []models.SubmissionStatus{models.SubmissionStatusDraft}, to: models.SubmissionStatusSubmitted, role: models.RoleTeacher},
	ActionGrade:        {from: []models.SubmissionStatus{models.SubmissionStatusSubmitted}, to: models.SubmissionStatusGraded, role: models.RoleTeacher},
	ActionGradeMissing: {from: []models.SubmissionStatus{models.SubmissionStatusSubmitted}, to: models.SubmissionStatusGraded, role: models.RoleTeacher},
	ActionRetake:       {from: []models.SubmissionStatus{models.SubmissionStatusSubmitted}, to: models.SubmissionStatusDraft, role: models.RoleTeacher},
	ActionReopen:       {from: []models.SubmissionStatus{models.SubmissionStatusGraded}, to: models.SubmissionStatusSubmitted, role: models.RoleTeacher},
}

// Transition validates that actor may apply action to a submission in
// status current (nil when no row exists) and returns the target status.
func Transition(actor Actor, current *models.SubmissionStatus, action Action) (models.SubmissionStatus, error) {
	r, ok := rules[action]
	if !ok {
		return "", Invalid(CodeIllegalTransition, "unknown action "+string(action))
	}
	if !r.anyRole && actor.Role != r.role {
		return "", Permission(CodeRoleForbidden, string(action)+" is reserved for "+string(r.role)+"s")
	}

	if current == nil {
		if r.fromNone {
			return r.to, nil
		}
		return "", Conflict(CodeIllegalTransition, string(action)+" requires an existing submission")
	}

	for _, from := range r.from {
		if *current == from {
			return r.to, nil
		}
	}
	return "", conflictFor(action, *current)
}

func conflictFor(action Action, current models.SubmissionStatus) *Error {
	message := "cannot " + string(action) + " a " + string(current) + " submission"
	switch action {
	case ActionAutosave, ActionSubmit:
		return Conflict(CodeNotDraft, message)
	case ActionGrade, ActionGradeMissing:
		if current == models.SubmissionStatusGraded {
			return Conflict(CodeAlreadyGraded, message)
		}
		return Conflict(CodeNeedsSubmitted, message)
	case ActionReopen:
		return Conflict(CodeNotGraded, message)
	default:
		return Conflict(CodeIllegalTransition, message)
	}
}

// CheckDeadline applies the deadline policy of an action given the
// effective due date of the pair.
func CheckDeadline(action Action, due *time.Time, now time.Time) error {
	past := IsPast(due, now)
	switch action {
	case ActionStart, ActionAutosave:
		if past {
			return DeadlinePolicy(CodeDeadlinePassed, "the deadline has passed")
		}
	case ActionSynthesize, ActionMaterialize, ActionGradeMissing:
		if !past {
			return DeadlinePolicy(CodeOverrideAfterDueRequired, "only allowed after the deadline")
		}
	}
	return nil
}

// View derives the displayed state from the stored status and deadline.
func View(status *models.SubmissionStatus, due *time.Time, now time.Time) ViewState {
	if status == nil {
		if IsPast(due, now) {
			return ViewOverdue
		}
		return ViewNotStarted
	}
	switch *status {
	case models.SubmissionStatusDraft:
		if IsPast(due, now) {
			return ViewOverdue
		}
		return ViewDraft
	case models.SubmissionStatusSubmitted:
		return ViewSubmitted
	default:
		return ViewGraded
	}
}

// StatusPtr returns a pointer to a copy of status.
func StatusPtr(status models.SubmissionStatus) *models.SubmissionStatus {
	return &status
}
