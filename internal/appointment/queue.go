package appointment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/clinicstack/clinic-scheduling/internal/apperr"
	redisclient "github.com/clinicstack/clinic-scheduling/internal/redis"
)

// QueueService owns the per-clinic, per-day consultation queue: token
// assignment on check-in, call-in with at most one active consultation per
// doctor, completion and cancellation.
type QueueService struct {
	repo     Repository
	locker   redisclient.Locker
	billing  BillingCreator
	notifier Notifier
	now      func() time.Time
}

func NewQueueService(repo Repository, locker redisclient.Locker, billing BillingCreator, notifier Notifier) *QueueService {
	return &QueueService{
		repo:     repo,
		locker:   locker,
		billing:  billing,
		notifier: notifier,
		now:      time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *QueueService) WithClock(now func() time.Time) *QueueService {
	s.now = now
	return s
}

// CompleteResult carries the completed appointment plus the billing side
// effect's outcome; a billing failure is a warning, never a rollback.
type CompleteResult struct {
	Appointment *Appointment
	BillingErr  error
}

// CheckIn assigns the next token number for the clinic-day. Token
// assignment runs under the clinic-day lock; the day-token unique index
// catches anything that slips past it.
func (s *QueueService) CheckIn(ctx context.Context, appointmentID, clinicID uuid.UUID, preferredToken *int) (*Appointment, error) {
	if preferredToken != nil && *preferredToken < 1 {
		return nil, apperr.Validationf(apperr.ReasonBadInput, "token number must be positive, got %d", *preferredToken)
	}

	appt, err := s.loadForClinic(ctx, appointmentID, clinicID)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusScheduled {
		return nil, apperr.Validationf(apperr.ReasonInvalidTransition,
			"cannot check in an appointment with status %s", appt.Status)
	}
	if appt.CheckedIn() {
		return nil, apperr.Validation(apperr.ReasonInvalidTransition, "appointment is already checked in")
	}

	var updated *Appointment
	lockKey := redisclient.QueueLockKey(clinicID, appt.Date)

	err = s.locker.WithLock(ctx, lockKey, func(lockCtx context.Context) error {
		token := 0
		if preferredToken != nil {
			inUse, err := s.repo.TokenInUse(lockCtx, clinicID, appt.Date, *preferredToken, appt.ID)
			if err != nil {
				return err
			}
			if inUse {
				return ErrTokenTaken
			}
			token = *preferredToken
		} else {
			max, err := s.repo.MaxToken(lockCtx, clinicID, appt.Date)
			if err != nil {
				return err
			}
			token = max + 1
		}

		a, err := s.repo.AssignToken(lockCtx, appt.ID, token)
		if err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, s.queueErr(err)
	}

	publishChange(ctx, s.notifier, updated, EventCheckedIn)
	return updated, nil
}

// SetQueueNumber re-assigns the token of an already-checked-in appointment.
// The appointment's own current token is excluded from the conflict check.
func (s *QueueService) SetQueueNumber(ctx context.Context, appointmentID, clinicID uuid.UUID, newToken int) (*Appointment, error) {
	if newToken < 1 {
		return nil, apperr.Validationf(apperr.ReasonBadInput, "token number must be positive, got %d", newToken)
	}

	appt, err := s.loadForClinic(ctx, appointmentID, clinicID)
	if err != nil {
		return nil, err
	}
	if !appt.CheckedIn() {
		return nil, apperr.Validation(apperr.ReasonInvalidTransition, "appointment is not checked in")
	}

	var updated *Appointment
	lockKey := redisclient.QueueLockKey(clinicID, appt.Date)

	err = s.locker.WithLock(ctx, lockKey, func(lockCtx context.Context) error {
		inUse, err := s.repo.TokenInUse(lockCtx, clinicID, appt.Date, newToken, appt.ID)
		if err != nil {
			return err
		}
		if inUse {
			return ErrTokenTaken
		}

		a, err := s.repo.AssignToken(lockCtx, appt.ID, newToken)
		if err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, s.queueErr(err)
	}

	publishChange(ctx, s.notifier, updated, EventTokenChanged)
	return updated, nil
}

// CallIn summons a waiting patient. Any other with_doctor appointment of the
// same doctor-day is auto-completed first, in the same transaction, so the
// single-active-consultation invariant holds at every observable instant.
func (s *QueueService) CallIn(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, s.queueErr(err)
	}
	if appt.Status != StatusScheduled {
		return nil, apperr.Validationf(apperr.ReasonInvalidTransition,
			"cannot call in an appointment with status %s", appt.Status)
	}
	if !appt.CheckedIn() {
		return nil, apperr.Validation(apperr.ReasonInvalidTransition, "appointment has no token, check in first")
	}

	called, previous, err := s.repo.CallIn(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// The row existed a moment ago; its status changed under us.
			current, getErr := s.repo.GetAppointmentByID(ctx, appointmentID)
			if getErr != nil {
				return nil, s.queueErr(getErr)
			}
			return nil, apperr.Validationf(apperr.ReasonInvalidTransition,
				"cannot call in an appointment with status %s", current.Status)
		}
		return nil, s.queueErr(err)
	}

	if previous != nil {
		log.Printf("auto-completed appointment %s on call-in of %s", previous.ID, called.ID)
		publishChange(ctx, s.notifier, previous, EventCompleted)
	}
	publishChange(ctx, s.notifier, called, EventCalledIn)
	return called, nil
}

// Complete finishes the active consultation and fires the billing side
// effect. Queue progression is never blocked by an accounting failure.
func (s *QueueService) Complete(ctx context.Context, appointmentID uuid.UUID) (*CompleteResult, error) {
	appt, err := s.repo.UpdateStatus(ctx, appointmentID, StatusWithDoctor, StatusCompleted)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Either absent or not with_doctor; disambiguate for the caller.
			current, getErr := s.repo.GetAppointmentByID(ctx, appointmentID)
			if getErr != nil {
				return nil, s.queueErr(getErr)
			}
			return nil, apperr.Validationf(apperr.ReasonInvalidTransition,
				"cannot complete an appointment with status %s", current.Status)
		}
		return nil, fmt.Errorf("complete appointment: %w", err)
	}

	result := &CompleteResult{Appointment: appt}
	if s.billing != nil {
		if err := s.billing.CreateInvoice(ctx, appt.ID); err != nil {
			log.Printf("billing creation failed for appointment %s: %v", appt.ID, err)
			result.BillingErr = err
		}
	}

	publishChange(ctx, s.notifier, appt, EventCompleted)
	return result, nil
}

// Cancel is a terminal transition from scheduled or with_doctor.
func (s *QueueService) Cancel(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.UpdateStatus(ctx, appointmentID, StatusScheduled, StatusCancelled)
	if err == nil {
		publishChange(ctx, s.notifier, appt, EventCancelled)
		return appt, nil
	}
	if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	appt, err = s.repo.UpdateStatus(ctx, appointmentID, StatusWithDoctor, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			current, getErr := s.repo.GetAppointmentByID(ctx, appointmentID)
			if getErr != nil {
				return nil, s.queueErr(getErr)
			}
			return nil, apperr.Validationf(apperr.ReasonInvalidTransition,
				"cannot cancel an appointment with status %s", current.Status)
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	publishChange(ctx, s.notifier, appt, EventCancelled)
	return appt, nil
}

// ListToday is the live queue: today's scheduled, with_doctor and completed
// appointments of the clinic ordered by time slot, optionally narrowed to
// one doctor's personal queue.
func (s *QueueService) ListToday(ctx context.Context, clinicID uuid.UUID, doctorID *uuid.UUID) ([]Appointment, error) {
	return s.repo.ListForClinicDay(ctx, clinicID, s.now(), doctorID)
}

func (s *QueueService) loadForClinic(ctx context.Context, appointmentID, clinicID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, s.queueErr(err)
	}
	if appt.ClinicID != clinicID {
		return nil, apperr.NotFound("appointment")
	}
	return appt, nil
}

func (s *QueueService) queueErr(err error) error {
	switch {
	case errors.Is(err, ErrAppointmentNotFound):
		return apperr.NotFound("appointment")
	case errors.Is(err, ErrTokenTaken):
		return apperr.Conflict(apperr.ReasonTokenTaken, "token number already held for this clinic and date")
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		return apperr.Conflict(apperr.ReasonLocked, "queue is being updated, retry shortly")
	default:
		return err
	}
}
