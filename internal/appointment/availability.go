package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicstack/clinic-scheduling/internal/schedule"
)

const fallbackSlotMinutes = 30

// AvailabilityService turns weekly schedules, one-off holidays and existing
// bookings into the list of bookable slots for a doctor on a date.
type AvailabilityService struct {
	repo      Repository
	schedules schedule.Repository
}

func NewAvailabilityService(repo Repository, schedules schedule.Repository) *AvailabilityService {
	return &AvailabilityService{repo: repo, schedules: schedules}
}

// ComputeSlots returns the ascending slot list for the doctor on the date.
// Clinic closed, clinic holiday, doctor holiday and no-active-schedule days
// all yield an empty list, not an error. Booked slots stay in the list
// flagged unavailable.
func (s *AvailabilityService) ComputeSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	dow := int(date.Weekday())

	cs, err := s.schedules.GetClinicSchedule(ctx, doctor.ClinicID, dow)
	if err != nil {
		if errors.Is(err, schedule.ErrClinicScheduleNotFound) {
			return []Slot{}, nil
		}
		return nil, fmt.Errorf("load clinic schedule: %w", err)
	}
	if cs.IsClosed {
		return []Slot{}, nil
	}

	closed, err := s.schedules.IsClinicHoliday(ctx, doctor.ClinicID, date)
	if err != nil {
		return nil, fmt.Errorf("check clinic holiday: %w", err)
	}
	if closed {
		return []Slot{}, nil
	}

	onLeave, err := s.schedules.IsDoctorHoliday(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("check doctor holiday: %w", err)
	}
	if onLeave {
		return []Slot{}, nil
	}

	ds, err := s.schedules.GetDoctorSchedule(ctx, doctorID, dow)
	if err != nil {
		if errors.Is(err, schedule.ErrDoctorScheduleNotFound) {
			return []Slot{}, nil
		}
		return nil, fmt.Errorf("load doctor schedule: %w", err)
	}
	if !ds.IsActive {
		return []Slot{}, nil
	}

	// Clamp to clinic hours. The write validator should already guarantee
	// containment, so the intersection normally equals the doctor window,
	// but stale rows must not produce out-of-hours slots.
	start := ds.StartTime
	if start < cs.StartTime {
		start = cs.StartTime
	}
	end := ds.EndTime
	if end > cs.EndTime {
		end = cs.EndTime
	}
	if start >= end {
		return []Slot{}, nil
	}

	width := ds.SlotDurationMinutes
	if width <= 0 {
		width = fallbackSlotMinutes
		if settings, err := s.schedules.GetDoctorSettings(ctx, doctorID); err == nil && settings.DefaultAppointmentDuration > 0 {
			width = settings.DefaultAppointmentDuration
		} else if err != nil && !errors.Is(err, schedule.ErrDoctorSettingsNotFound) {
			return nil, fmt.Errorf("load doctor settings: %w", err)
		}
	}

	booked, err := s.repo.ListActiveForDoctorDay(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list booked slots: %w", err)
	}
	bookedAt := make(map[schedule.TimeOfDay]bool, len(booked))
	for _, a := range booked {
		bookedAt[a.TimeSlot] = true
	}

	// Half-open slots; the last slot must fit entirely before end.
	slots := []Slot{}
	for t := start; t+schedule.TimeOfDay(width) <= end; t += schedule.TimeOfDay(width) {
		slots = append(slots, Slot{Time: t, Available: !bookedAt[t]})
	}
	return slots, nil
}
