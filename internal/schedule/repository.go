package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrClinicScheduleNotFound = errors.New("clinic schedule not found")
	ErrDoctorScheduleNotFound = errors.New("doctor schedule not found")
	ErrDoctorSettingsNotFound = errors.New("doctor settings not found")
)

// Repository contains all DB interactions needed by the schedule service and
// the availability calculator.
type Repository interface {
	GetClinicSchedule(ctx context.Context, clinicID uuid.UUID, dayOfWeek int) (*ClinicSchedule, error)
	UpsertClinicSchedule(ctx context.Context, row ClinicSchedule) error

	IsClinicHoliday(ctx context.Context, clinicID uuid.UUID, date time.Time) (bool, error)
	AddClinicHoliday(ctx context.Context, h ClinicHoliday) error
	ListClinicHolidays(ctx context.Context, clinicID uuid.UUID, from time.Time) ([]ClinicHoliday, error)

	GetDoctorSchedule(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*DoctorSchedule, error)
	UpsertDoctorSchedule(ctx context.Context, row DoctorSchedule) error

	IsDoctorHoliday(ctx context.Context, doctorID uuid.UUID, date time.Time) (bool, error)
	AddDoctorHoliday(ctx context.Context, h DoctorHoliday) error
	ListDoctorHolidays(ctx context.Context, doctorID uuid.UUID, from time.Time) ([]DoctorHoliday, error)

	GetDoctorSettings(ctx context.Context, doctorID uuid.UUID) (*DoctorSettings, error)
}
