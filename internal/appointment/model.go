package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicstack/clinic-scheduling/internal/schedule"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusWithDoctor Status = "with_doctor"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Active reports whether the status still holds its time slot.
func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusWithDoctor
}

type Patient struct {
	ID        uuid.UUID
	ClinicID  uuid.UUID
	Name      string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Doctor struct {
	ID              uuid.UUID
	ClinicID        uuid.UUID
	Name            string
	Specialty       *string
	ConsultationFee float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Appointment is a booking for one slot. TokenNumber is nil until check-in;
// a non-nil token together with status "scheduled" means checked-in-waiting.
type Appointment struct {
	ID          uuid.UUID
	ClinicID    uuid.UUID
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	Date        time.Time // calendar date, time part is irrelevant
	TimeSlot    schedule.TimeOfDay
	TokenNumber *int
	Status      Status
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (a *Appointment) CheckedIn() bool { return a.TokenNumber != nil }

// Slot is one bookable interval for a doctor on a date. Booked slots stay in
// the list flagged unavailable so callers can render them.
type Slot struct {
	Time      schedule.TimeOfDay
	Available bool
}

// DoctorCollection is one row of the per-doctor daily collection report.
type DoctorCollection struct {
	DoctorID       uuid.UUID
	DoctorName     string
	Fee            float64
	CompletedToday int
	TotalToCollect float64
}

// Change event types published on the per-clinic feed.
const (
	EventBooked       = "APPOINTMENT_BOOKED"
	EventCheckedIn    = "APPOINTMENT_CHECKED_IN"
	EventTokenChanged = "APPOINTMENT_TOKEN_CHANGED"
	EventCalledIn     = "APPOINTMENT_CALLED_IN"
	EventCompleted    = "APPOINTMENT_COMPLETED"
	EventCancelled    = "APPOINTMENT_CANCELLED"
	EventReassigned   = "APPOINTMENT_REASSIGNED"
)
