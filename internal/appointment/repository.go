package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/clinicstack/clinic-scheduling/internal/redis"
	"github.com/clinicstack/clinic-scheduling/internal/schedule"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// Unique-index violations surfaced by the pg layer. These are the
	// correctness backstop for the races in booking and check-in; the
	// pre-checks in the services are only a fast path.
	ErrSlotTaken  = errors.New("slot already held by an active appointment")
	ErrTokenTaken = errors.New("token number already in use for this clinic and date")
)

// Repository contains all DB interactions needed by the services.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ListActiveForDoctorDay returns scheduled/with_doctor appointments for
	// the doctor on the date; the availability calculator marks those slots
	// as booked.
	ListActiveForDoctorDay(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error)

	// CreateScheduled inserts a status=scheduled, token=nil appointment.
	// Returns ErrSlotTaken when the active-slot unique index fires.
	CreateScheduled(ctx context.Context, a Appointment) (*Appointment, error)

	// Token bookkeeping for the queue. MaxToken returns 0 when no
	// appointment of the clinic-day carries a token. AssignToken returns
	// ErrTokenTaken on a uniqueness violation.
	MaxToken(ctx context.Context, clinicID uuid.UUID, date time.Time) (int, error)
	TokenInUse(ctx context.Context, clinicID uuid.UUID, date time.Time, token int, excludeID uuid.UUID) (bool, error)
	AssignToken(ctx context.Context, id uuid.UUID, token int) (*Appointment, error)

	// UpdateStatus performs a compare-and-set transition; returns
	// ErrAppointmentNotFound when the row is absent or not in `from`.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// CallIn atomically completes any other with_doctor appointment of the
	// same clinic+doctor+date and moves this one scheduled -> with_doctor.
	// Returns the called-in appointment and the auto-completed one, if any.
	CallIn(ctx context.Context, id uuid.UUID) (*Appointment, *Appointment, error)

	// ListForClinicDay returns scheduled/with_doctor/completed appointments
	// for the clinic on the date ordered by time_slot, optionally narrowed
	// to one doctor.
	ListForClinicDay(ctx context.Context, clinicID uuid.UUID, date time.Time, doctorID *uuid.UUID) ([]Appointment, error)

	// ListScheduledFrom returns scheduled appointments of the clinic dated
	// on or after the given date, for the leave-impact scan.
	ListScheduledFrom(ctx context.Context, clinicID uuid.UUID, from time.Time) ([]Appointment, error)

	// Reassign moves an appointment to another doctor and slot in place,
	// preserving identity and token. Returns ErrSlotTaken on conflict.
	Reassign(ctx context.Context, id, newDoctorID uuid.UUID, newSlot schedule.TimeOfDay) (*Appointment, error)

	// CompletedByDoctor counts completed appointments of the clinic-day
	// grouped by doctor, joined with the doctor's name and fee.
	CompletedByDoctor(ctx context.Context, clinicID uuid.UUID, date time.Time) ([]DoctorCollection, error)
}

// Notifier publishes appointment change events to live queue viewers.
// Publishing is best effort; services log failures and move on.
type Notifier interface {
	PublishChange(ctx context.Context, clinicID uuid.UUID, ev redisclient.ChangeEvent) error
}

// BillingCreator produces an invoice for a completed appointment. Invoked as
// a fire-and-forget side effect of Complete; failure never rolls back the
// completion.
type BillingCreator interface {
	CreateInvoice(ctx context.Context, appointmentID uuid.UUID) error
}
