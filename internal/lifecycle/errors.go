package lifecycle

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected transition.
type Kind string

const (
	KindPermission     Kind = "permission"
	KindDeadlinePolicy Kind = "deadline_policy"
	KindStateConflict  Kind = "state_conflict"
	KindValidation     Kind = "validation"
)

// Machine-readable reason codes carried by Error.
const (
	CodeNotOwner                 = "NOT_OWNER"
	CodeNotAssigned              = "NOT_ASSIGNED"
	CodeNotYourSubmission        = "NOT_YOUR_SUBMISSION"
	CodeRoleForbidden            = "ROLE_FORBIDDEN"
	CodeDeadlinePassed           = "DEADLINE_PASSED"
	CodeOverrideAfterDueRequired = "OVERRIDE_AFTER_DUE_REQUIRED"
	CodeNeedsSubmitted           = "NEEDS_SUBMITTED"
	CodeNotDraft                 = "NOT_DRAFT"
	CodeNotGraded                = "NOT_GRADED"
	CodeStaleStatus              = "STALE_STATUS"
	CodeIllegalTransition        = "ILLEGAL_TRANSITION"
	CodeAlreadyGraded            = "ALREADY_GRADED"
	CodeUnassignLocked           = "UNASSIGN_LOCKED"
	CodeInvalidScore             = "INVALID_SCORE"
	CodeInvalidTimestamp         = "INVALID_TIMESTAMP"
)

// Error is a policy rejection. Callers match it with errors.Is against the
// kind sentinels below, or against another *Error carrying a code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

var (
	ErrPermission     = &Error{Kind: KindPermission}
	ErrDeadlinePolicy = &Error{Kind: KindDeadlinePolicy}
	ErrStateConflict  = &Error{Kind: KindStateConflict}
	ErrValidation     = &Error{Kind: KindValidation}
)

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches by kind, and by code too when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Permission builds a permission rejection.
func Permission(code, message string) *Error {
	return newError(KindPermission, code, message)
}

// DeadlinePolicy builds a deadline-policy rejection.
func DeadlinePolicy(code, message string) *Error {
	return newError(KindDeadlinePolicy, code, message)
}

// Conflict builds a state-conflict rejection.
func Conflict(code, message string) *Error {
	return newError(KindStateConflict, code, message)
}

// Invalid builds a validation rejection.
func Invalid(code, message string) *Error {
	return newError(KindValidation, code, message)
}

// CodeOf extracts the reason code of a wrapped *Error, or "".
func CodeOf(err error) string {
	var lifecycleErr *Error
	if errors.As(err, &lifecycleErr) {
		return lifecycleErr.Code
	}
	return ""
}
