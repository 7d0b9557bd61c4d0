// Package apperr defines the error taxonomy shared by the scheduling and
// queue services: validation failures carry a machine-readable reason code,
// conflicts signal a lost race the caller may retry after re-fetching, and
// not-found is a hard failure.
package apperr

import "fmt"

// Validation reason codes surfaced to API callers.
const (
	ReasonNoAvailability      = "no_availability"
	ReasonTooSoon             = "too_soon"
	ReasonOutsideClinicHours  = "outside_clinic_hours"
	ReasonSlotUnavailable     = "slot_unavailable"
	ReasonInvalidTransition   = "invalid_transition"
	ReasonBeyondBookingWindow = "beyond_booking_window"
	ReasonBadInput            = "bad_input"
)

// Conflict reason codes.
const (
	ReasonSlotTaken  = "slot_taken"
	ReasonTokenTaken = "token_taken"
	ReasonLocked     = "locked"
)

type ValidationError struct {
	Reason string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Reason, e.Detail)
}

func Validation(reason, detail string) *ValidationError {
	return &ValidationError{Reason: reason, Detail: detail}
}

func Validationf(reason, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

type ConflictError struct {
	Reason string
	Detail string
}

func (e *ConflictError) Error() string {
	if e.Detail == "" {
		return "conflict: " + e.Reason
	}
	return fmt.Sprintf("conflict: %s: %s", e.Reason, e.Detail)
}

func Conflict(reason, detail string) *ConflictError {
	return &ConflictError{Reason: reason, Detail: detail}
}

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func NotFound(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}
