package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicstack/clinic-scheduling/internal/apperr"
	"github.com/clinicstack/clinic-scheduling/internal/schedule"
)

// ReassignService finds appointments stranded by doctor leave or clinic
// closure and moves them to another doctor after re-validating availability.
type ReassignService struct {
	repo         Repository
	schedules    schedule.Repository
	availability *AvailabilityService
	notifier     Notifier
	now          func() time.Time
}

func NewReassignService(repo Repository, schedules schedule.Repository, availability *AvailabilityService, notifier Notifier) *ReassignService {
	return &ReassignService{
		repo:         repo,
		schedules:    schedules,
		availability: availability,
		notifier:     notifier,
		now:          time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *ReassignService) WithClock(now func() time.Time) *ReassignService {
	s.now = now
	return s
}

// ListAffectedByLeave scans today-or-future scheduled appointments of the
// clinic and collects those whose doctor has a holiday on the appointment
// date or whose clinic is closed that date.
func (s *ReassignService) ListAffectedByLeave(ctx context.Context, clinicID uuid.UUID) ([]Appointment, error) {
	scheduled, err := s.repo.ListScheduledFrom(ctx, clinicID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list scheduled appointments: %w", err)
	}

	var affected []Appointment
	for _, a := range scheduled {
		onLeave, err := s.schedules.IsDoctorHoliday(ctx, a.DoctorID, a.Date)
		if err != nil {
			return nil, fmt.Errorf("check doctor holiday: %w", err)
		}
		if onLeave {
			affected = append(affected, a)
			continue
		}

		closed, err := s.clinicClosedOn(ctx, clinicID, a.Date)
		if err != nil {
			return nil, err
		}
		if closed {
			affected = append(affected, a)
		}
	}
	return affected, nil
}

// Reassign moves the appointment to the new doctor. When newTimeSlot is nil
// the original slot is kept, but it must still validate as available for the
// new doctor. Identity and token number are preserved.
func (s *ReassignService) Reassign(ctx context.Context, appointmentID, clinicID, newDoctorID uuid.UUID, newTimeSlot *schedule.TimeOfDay) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, apperr.NotFound("appointment")
		}
		return nil, err
	}
	if appt.ClinicID != clinicID {
		return nil, apperr.NotFound("appointment")
	}
	if appt.Status != StatusScheduled {
		return nil, apperr.Validationf(apperr.ReasonInvalidTransition,
			"cannot reassign an appointment with status %s", appt.Status)
	}

	doctor, err := s.repo.GetDoctorByID(ctx, newDoctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if doctor.ClinicID != clinicID {
		return nil, ErrDoctorNotFound
	}

	target := appt.TimeSlot
	if newTimeSlot != nil {
		target = *newTimeSlot
	}

	slots, err := s.availability.ComputeSlots(ctx, newDoctorID, appt.Date)
	if err != nil {
		return nil, err
	}
	ok := false
	for _, slot := range slots {
		if slot.Time == target {
			ok = slot.Available
			break
		}
	}
	if !ok {
		return nil, apperr.Validationf(apperr.ReasonSlotUnavailable,
			"slot %s on %s is not available for the new doctor", target, schedule.DateString(appt.Date))
	}

	updated, err := s.repo.Reassign(ctx, appt.ID, newDoctorID, target)
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return nil, apperr.Conflict(apperr.ReasonSlotTaken, "slot was booked concurrently")
		}
		return nil, fmt.Errorf("reassign appointment: %w", err)
	}

	publishChange(ctx, s.notifier, updated, EventReassigned)
	return updated, nil
}

func (s *ReassignService) clinicClosedOn(ctx context.Context, clinicID uuid.UUID, date time.Time) (bool, error) {
	holiday, err := s.schedules.IsClinicHoliday(ctx, clinicID, date)
	if err != nil {
		return false, fmt.Errorf("check clinic holiday: %w", err)
	}
	if holiday {
		return true, nil
	}

	cs, err := s.schedules.GetClinicSchedule(ctx, clinicID, int(date.Weekday()))
	if err != nil {
		if errors.Is(err, schedule.ErrClinicScheduleNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("load clinic schedule: %w", err)
	}
	return cs.IsClosed, nil
}
