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
	"github.com/clinicstack/clinic-scheduling/internal/schedule"
)

const (
	// DefaultLeadTime is the minimum gap between now and a same-day slot.
	DefaultLeadTime = 60 * time.Minute
	// DefaultBookingHorizonDays caps how far ahead a booking may be made.
	DefaultBookingHorizonDays = 7
)

type BookingRequest struct {
	ClinicID  uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      time.Time
	TimeSlot  schedule.TimeOfDay
	CreatedBy uuid.UUID
}

// BookingService validates a requested slot against availability and the
// same-day lead-time rule, then creates the appointment. The availability
// pre-check is a fast path; the active-slot unique index is the safety
// mechanism for racing front-ends.
type BookingService struct {
	repo         Repository
	availability *AvailabilityService
	locker       redisclient.Locker
	notifier     Notifier

	leadTime    time.Duration
	horizonDays int
	now         func() time.Time
}

func NewBookingService(repo Repository, availability *AvailabilityService, locker redisclient.Locker, notifier Notifier) *BookingService {
	return &BookingService{
		repo:         repo,
		availability: availability,
		locker:       locker,
		notifier:     notifier,
		leadTime:     DefaultLeadTime,
		horizonDays:  DefaultBookingHorizonDays,
		now:          time.Now,
	}
}

// WithLeadTime overrides the same-day lead-time cutoff.
func (s *BookingService) WithLeadTime(d time.Duration) *BookingService {
	s.leadTime = d
	return s
}

// WithHorizonDays overrides the booking horizon.
func (s *BookingService) WithHorizonDays(days int) *BookingService {
	s.horizonDays = days
	return s
}

// WithClock overrides the time source for tests.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

// Book creates a scheduled appointment for the requested slot.
func (s *BookingService) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	patient, err := s.repo.GetPatientByID(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if patient.ClinicID != req.ClinicID {
		return nil, ErrPatientNotFound
	}

	doctor, err := s.repo.GetDoctorByID(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if doctor.ClinicID != req.ClinicID {
		return nil, ErrDoctorNotFound
	}

	now := s.now()

	if schedule.DateString(req.Date) < schedule.DateString(now) {
		return nil, apperr.Validation(apperr.ReasonNoAvailability, "date is in the past")
	}
	horizon := now.AddDate(0, 0, s.horizonDays)
	if schedule.DateString(req.Date) > schedule.DateString(horizon) {
		return nil, apperr.Validationf(apperr.ReasonBeyondBookingWindow,
			"bookings accepted up to %d days ahead", s.horizonDays)
	}

	slots, err := s.availability.ComputeSlots(ctx, req.DoctorID, req.Date)
	if err != nil {
		return nil, err
	}

	found := false
	for _, slot := range slots {
		if slot.Time == req.TimeSlot {
			if !slot.Available {
				return nil, apperr.Validationf(apperr.ReasonNoAvailability,
					"slot %s is already booked", req.TimeSlot)
			}
			found = true
			break
		}
	}
	if !found {
		return nil, apperr.Validationf(apperr.ReasonNoAvailability,
			"slot %s is not offered on %s", req.TimeSlot, schedule.DateString(req.Date))
	}

	// Lead-time rule applies to same-day bookings only.
	if schedule.SameDate(req.Date, now) {
		cutoff := now.Add(s.leadTime)
		if req.TimeSlot.At(req.Date).Before(cutoff) {
			return nil, apperr.Validationf(apperr.ReasonTooSoon,
				"same-day bookings need at least %s notice", s.leadTime)
		}
	}

	var created *Appointment
	lockKey := redisclient.SlotLockKey(req.DoctorID, req.Date, req.TimeSlot)

	err = s.locker.WithLock(ctx, lockKey, func(lockCtx context.Context) error {
		appt, err := s.repo.CreateScheduled(lockCtx, Appointment{
			ClinicID:  req.ClinicID,
			PatientID: req.PatientID,
			DoctorID:  req.DoctorID,
			Date:      req.Date,
			TimeSlot:  req.TimeSlot,
			CreatedBy: req.CreatedBy,
		})
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, apperr.Conflict(apperr.ReasonLocked, "slot is being booked, retry shortly")
		}
		if errors.Is(err, ErrSlotTaken) {
			return nil, apperr.Conflict(apperr.ReasonSlotTaken, "slot was booked concurrently")
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.publish(ctx, created, EventBooked)
	return created, nil
}

func (s *BookingService) publish(ctx context.Context, a *Appointment, eventType string) {
	publishChange(ctx, s.notifier, a, eventType)
}

// publishChange is shared by all services; notification delivery is best
// effort and never fails the operation.
func publishChange(ctx context.Context, n Notifier, a *Appointment, eventType string) {
	if n == nil || a == nil {
		return
	}
	ev := redisclient.ChangeEvent{
		Type:          eventType,
		AppointmentID: a.ID.String(),
		ClinicID:      a.ClinicID.String(),
		DoctorID:      a.DoctorID.String(),
		Date:          schedule.DateString(a.Date),
		Status:        string(a.Status),
		TokenNumber:   a.TokenNumber,
	}
	if err := n.PublishChange(ctx, a.ClinicID, ev); err != nil {
		log.Printf("publish %s for appointment %s: %v", eventType, a.ID, err)
	}
}
