package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanClinicSchedule(row pgx.Row) (*ClinicSchedule, error) {
	var cs ClinicSchedule
	var start, end string

	err := row.Scan(&cs.ClinicID, &cs.DayOfWeek, &cs.IsClosed, &start, &end)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClinicScheduleNotFound
		}
		return nil, err
	}

	if cs.StartTime, err = ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("clinic schedule start_time: %w", err)
	}
	if cs.EndTime, err = ParseTimeOfDay(end); err != nil {
		return nil, fmt.Errorf("clinic schedule end_time: %w", err)
	}
	return &cs, nil
}

func scanDoctorSchedule(row pgx.Row) (*DoctorSchedule, error) {
	var ds DoctorSchedule
	var start, end string

	err := row.Scan(&ds.DoctorID, &ds.DayOfWeek, &ds.IsActive, &start, &end, &ds.SlotDurationMinutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorScheduleNotFound
		}
		return nil, err
	}

	if ds.StartTime, err = ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("doctor schedule start_time: %w", err)
	}
	if ds.EndTime, err = ParseTimeOfDay(end); err != nil {
		return nil, fmt.Errorf("doctor schedule end_time: %w", err)
	}
	return &ds, nil
}

func (r *PgRepository) GetClinicSchedule(ctx context.Context, clinicID uuid.UUID, dayOfWeek int) (*ClinicSchedule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT clinic_id, day_of_week, is_closed, start_time, end_time
		FROM clinic_schedules
		WHERE clinic_id = $1 AND day_of_week = $2
	`, clinicID, dayOfWeek)
	return scanClinicSchedule(row)
}

func (r *PgRepository) UpsertClinicSchedule(ctx context.Context, row ClinicSchedule) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO clinic_schedules (clinic_id, day_of_week, is_closed, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (clinic_id, day_of_week)
		DO UPDATE SET is_closed = $3, start_time = $4, end_time = $5
	`, row.ClinicID, row.DayOfWeek, row.IsClosed, row.StartTime.String(), row.EndTime.String())
	if err != nil {
		return fmt.Errorf("upsert clinic schedule: %w", err)
	}
	return nil
}

func (r *PgRepository) IsClinicHoliday(ctx context.Context, clinicID uuid.UUID, date time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM clinic_holidays WHERE clinic_id = $1 AND holiday_date = $2
		)
	`, clinicID, DateString(date)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check clinic holiday: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) AddClinicHoliday(ctx context.Context, h ClinicHoliday) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO clinic_holidays (clinic_id, holiday_date, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (clinic_id, holiday_date) DO UPDATE SET reason = $3
	`, h.ClinicID, DateString(h.Date), h.Reason)
	if err != nil {
		return fmt.Errorf("add clinic holiday: %w", err)
	}
	return nil
}

func (r *PgRepository) ListClinicHolidays(ctx context.Context, clinicID uuid.UUID, from time.Time) ([]ClinicHoliday, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT clinic_id, holiday_date, reason
		FROM clinic_holidays
		WHERE clinic_id = $1 AND holiday_date >= $2
		ORDER BY holiday_date
	`, clinicID, DateString(from))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ClinicHoliday
	for rows.Next() {
		var h ClinicHoliday
		if err := rows.Scan(&h.ClinicID, &h.Date, &h.Reason); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetDoctorSchedule(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*DoctorSchedule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT doctor_id, day_of_week, is_active, start_time, end_time, slot_duration_minutes
		FROM doctor_schedules
		WHERE doctor_id = $1 AND day_of_week = $2
	`, doctorID, dayOfWeek)
	return scanDoctorSchedule(row)
}

func (r *PgRepository) UpsertDoctorSchedule(ctx context.Context, row DoctorSchedule) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctor_schedules (doctor_id, day_of_week, is_active, start_time, end_time, slot_duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (doctor_id, day_of_week)
		DO UPDATE SET is_active = $3, start_time = $4, end_time = $5, slot_duration_minutes = $6
	`, row.DoctorID, row.DayOfWeek, row.IsActive, row.StartTime.String(), row.EndTime.String(), row.SlotDurationMinutes)
	if err != nil {
		return fmt.Errorf("upsert doctor schedule: %w", err)
	}
	return nil
}

func (r *PgRepository) IsDoctorHoliday(ctx context.Context, doctorID uuid.UUID, date time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM doctor_holidays WHERE doctor_id = $1 AND holiday_date = $2
		)
	`, doctorID, DateString(date)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check doctor holiday: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) AddDoctorHoliday(ctx context.Context, h DoctorHoliday) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctor_holidays (doctor_id, holiday_date, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (doctor_id, holiday_date) DO UPDATE SET reason = $3
	`, h.DoctorID, DateString(h.Date), h.Reason)
	if err != nil {
		return fmt.Errorf("add doctor holiday: %w", err)
	}
	return nil
}

func (r *PgRepository) ListDoctorHolidays(ctx context.Context, doctorID uuid.UUID, from time.Time) ([]DoctorHoliday, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doctor_id, holiday_date, reason
		FROM doctor_holidays
		WHERE doctor_id = $1 AND holiday_date >= $2
		ORDER BY holiday_date
	`, doctorID, DateString(from))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DoctorHoliday
	for rows.Next() {
		var h DoctorHoliday
		if err := rows.Scan(&h.DoctorID, &h.Date, &h.Reason); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetDoctorSettings(ctx context.Context, doctorID uuid.UUID) (*DoctorSettings, error) {
	var s DoctorSettings
	err := r.pool.QueryRow(ctx, `
		SELECT doctor_id, default_appointment_duration, allow_custom_duration
		FROM doctor_settings
		WHERE doctor_id = $1
	`, doctorID).Scan(&s.DoctorID, &s.DefaultAppointmentDuration, &s.AllowCustomDuration)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorSettingsNotFound
		}
		return nil, err
	}
	return &s, nil
}
