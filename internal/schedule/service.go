package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicstack/clinic-scheduling/internal/apperr"
)

var allowedSlotDurations = map[int]bool{15: true, 30: true, 60: true}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SaveDoctorSchedule persists a weekly schedule row after enforcing the
// containment invariant: an active doctor window must lie entirely within
// the clinic's operating window for the same day of week, and the clinic
// must not be closed that day.
func (s *Service) SaveDoctorSchedule(ctx context.Context, clinicID uuid.UUID, row DoctorSchedule) error {
	if row.DayOfWeek < 0 || row.DayOfWeek > 6 {
		return apperr.Validationf(apperr.ReasonBadInput, "day_of_week %d out of range", row.DayOfWeek)
	}

	if row.IsActive {
		if !row.StartTime.Valid() || !row.EndTime.Valid() || row.StartTime >= row.EndTime {
			return apperr.Validationf(apperr.ReasonBadInput,
				"start_time %s must be before end_time %s", row.StartTime, row.EndTime)
		}
		if !allowedSlotDurations[row.SlotDurationMinutes] {
			return apperr.Validationf(apperr.ReasonBadInput,
				"slot_duration_minutes must be 15, 30 or 60, got %d", row.SlotDurationMinutes)
		}

		cs, err := s.repo.GetClinicSchedule(ctx, clinicID, row.DayOfWeek)
		if err != nil {
			if errors.Is(err, ErrClinicScheduleNotFound) {
				return apperr.Validationf(apperr.ReasonOutsideClinicHours,
					"clinic has no hours on %s", WeekdayName(row.DayOfWeek))
			}
			return fmt.Errorf("load clinic schedule: %w", err)
		}
		if cs.IsClosed {
			return apperr.Validationf(apperr.ReasonOutsideClinicHours,
				"clinic is closed on %s", WeekdayName(row.DayOfWeek))
		}
		if row.StartTime < cs.StartTime || row.EndTime > cs.EndTime {
			return apperr.Validationf(apperr.ReasonOutsideClinicHours,
				"%s-%s is outside clinic hours %s-%s on %s",
				row.StartTime, row.EndTime, cs.StartTime, cs.EndTime, WeekdayName(row.DayOfWeek))
		}
	}

	if err := s.repo.UpsertDoctorSchedule(ctx, row); err != nil {
		return fmt.Errorf("save doctor schedule: %w", err)
	}
	return nil
}

// SaveClinicSchedule persists the clinic's weekly operating window.
func (s *Service) SaveClinicSchedule(ctx context.Context, row ClinicSchedule) error {
	if row.DayOfWeek < 0 || row.DayOfWeek > 6 {
		return apperr.Validationf(apperr.ReasonBadInput, "day_of_week %d out of range", row.DayOfWeek)
	}
	if !row.IsClosed {
		if !row.StartTime.Valid() || !row.EndTime.Valid() || row.StartTime >= row.EndTime {
			return apperr.Validationf(apperr.ReasonBadInput,
				"start_time %s must be before end_time %s", row.StartTime, row.EndTime)
		}
	}
	if err := s.repo.UpsertClinicSchedule(ctx, row); err != nil {
		return fmt.Errorf("save clinic schedule: %w", err)
	}
	return nil
}

func (s *Service) AddClinicHoliday(ctx context.Context, h ClinicHoliday) error {
	return s.repo.AddClinicHoliday(ctx, h)
}

func (s *Service) AddDoctorHoliday(ctx context.Context, h DoctorHoliday) error {
	return s.repo.AddDoctorHoliday(ctx, h)
}
