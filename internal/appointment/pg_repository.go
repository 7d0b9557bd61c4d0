package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicstack/clinic-scheduling/internal/schedule"
)

// Partial unique index names from migrations/0001_init.sql; violations are
// mapped to the typed conflict errors.
const (
	idxActiveSlot = "uq_appointments_active_slot"
	idxDayToken   = "uq_appointments_day_token"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const apptColumns = `id, clinic_id, patient_id, doctor_id, appointment_date, time_slot, token_number, status, created_by, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var slot string
	var token *int

	err := row.Scan(
		&a.ID,
		&a.ClinicID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&slot,
		&token,
		&a.Status,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if a.TimeSlot, err = schedule.ParseTimeOfDay(slot); err != nil {
		return nil, fmt.Errorf("appointment time_slot: %w", err)
	}
	a.TokenNumber = token
	return &a, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// conflictErr translates a unique-violation into the matching sentinel, or
// returns the original error untouched.
func conflictErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case idxActiveSlot:
			return ErrSlotTaken
		case idxDayToken:
			return ErrTokenTaken
		}
	}
	return err
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := r.pool.QueryRow(ctx, `
		SELECT id, clinic_id, name, phone, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id).Scan(&p.ID, &p.ClinicID, &p.Name, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	var d Doctor
	err := r.pool.QueryRow(ctx, `
		SELECT id, clinic_id, name, specialty, consultation_fee, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id).Scan(&d.ID, &d.ClinicID, &d.Name, &d.Specialty, &d.ConsultationFee, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListActiveForDoctorDay(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		  AND status IN ('scheduled', 'with_doctor')
		ORDER BY time_slot
	`, doctorID, schedule.DateString(date))
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (r *PgRepository) CreateScheduled(ctx context.Context, a Appointment) (*Appointment, error) {
	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, clinic_id, patient_id, doctor_id, appointment_date, time_slot, token_number, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, 'scheduled', $7, now(), now())
		RETURNING `+apptColumns+`
	`, id, a.ClinicID, a.PatientID, a.DoctorID, schedule.DateString(a.Date), a.TimeSlot.String(), a.CreatedBy)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, conflictErr(err)
	}
	return created, nil
}

func (r *PgRepository) MaxToken(ctx context.Context, clinicID uuid.UUID, date time.Time) (int, error) {
	var max int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(token_number), 0)
		FROM appointments
		WHERE clinic_id = $1 AND appointment_date = $2 AND token_number IS NOT NULL
	`, clinicID, schedule.DateString(date)).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max token: %w", err)
	}
	return max, nil
}

func (r *PgRepository) TokenInUse(ctx context.Context, clinicID uuid.UUID, date time.Time, token int, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE clinic_id = $1
			  AND appointment_date = $2
			  AND token_number = $3
			  AND status <> 'cancelled'
			  AND id <> $4
		)
	`, clinicID, schedule.DateString(date), token, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("token in use: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) AssignToken(ctx context.Context, id uuid.UUID, token int) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET token_number = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+apptColumns+`
	`, id, token)

	a, err := scanAppointment(row)
	if err != nil {
		return nil, conflictErr(err)
	}
	return a, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+apptColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

// CallIn runs in one transaction so no observer ever sees two with_doctor
// appointments for the same doctor, even transiently.
func (r *PgRepository) CallIn(ctx context.Context, id uuid.UUID) (*Appointment, *Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin call-in: %w", err)
	}
	defer tx.Rollback(ctx)

	target, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		return nil, nil, err
	}

	// Close out the previous consultation for this doctor, if any.
	var previous *Appointment
	prev, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'completed',
		    updated_at = now()
		WHERE clinic_id = $1
		  AND doctor_id = $2
		  AND appointment_date = $3
		  AND status = 'with_doctor'
		  AND id <> $4
		RETURNING `+apptColumns+`
	`, target.ClinicID, target.DoctorID, schedule.DateString(target.Date), target.ID))
	if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
		return nil, nil, fmt.Errorf("auto-complete previous: %w", err)
	}
	if err == nil {
		previous = prev
	}

	called, err := scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'with_doctor',
		    updated_at = now()
		WHERE id = $1
		  AND status = 'scheduled'
		RETURNING `+apptColumns+`
	`, target.ID))
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit call-in: %w", err)
	}
	return called, previous, nil
}

func (r *PgRepository) ListForClinicDay(ctx context.Context, clinicID uuid.UUID, date time.Time, doctorID *uuid.UUID) ([]Appointment, error) {
	query := `
		SELECT ` + apptColumns + `
		FROM appointments
		WHERE clinic_id = $1
		  AND appointment_date = $2
		  AND status IN ('scheduled', 'with_doctor', 'completed')
	`
	args := []any{clinicID, schedule.DateString(date)}
	if doctorID != nil {
		query += ` AND doctor_id = $3`
		args = append(args, *doctorID)
	}
	query += ` ORDER BY time_slot`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (r *PgRepository) ListScheduledFrom(ctx context.Context, clinicID uuid.UUID, from time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE clinic_id = $1
		  AND appointment_date >= $2
		  AND status = 'scheduled'
		ORDER BY appointment_date, time_slot
	`, clinicID, schedule.DateString(from))
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func (r *PgRepository) Reassign(ctx context.Context, id, newDoctorID uuid.UUID, newSlot schedule.TimeOfDay) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET doctor_id = $2,
		    time_slot = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'scheduled'
		RETURNING `+apptColumns+`
	`, id, newDoctorID, newSlot.String())

	a, err := scanAppointment(row)
	if err != nil {
		return nil, conflictErr(err)
	}
	return a, nil
}

func (r *PgRepository) CompletedByDoctor(ctx context.Context, clinicID uuid.UUID, date time.Time) ([]DoctorCollection, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.id, d.name, d.consultation_fee, COUNT(*) AS completed
		FROM appointments a
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.clinic_id = $1
		  AND a.appointment_date = $2
		  AND a.status = 'completed'
		GROUP BY d.id, d.name, d.consultation_fee
		ORDER BY d.name
	`, clinicID, schedule.DateString(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DoctorCollection
	for rows.Next() {
		var c DoctorCollection
		if err := rows.Scan(&c.DoctorID, &c.DoctorName, &c.Fee, &c.CompletedToday); err != nil {
			return nil, err
		}
		c.TotalToCollect = c.Fee * float64(c.CompletedToday)
		result = append(result, c)
	}
	return result, rows.Err()
}
