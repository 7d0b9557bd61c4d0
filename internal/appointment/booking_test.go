package appointment_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicstack/clinic-scheduling/internal/apperr"
	"github.com/clinicstack/clinic-scheduling/internal/appointment"
	"github.com/clinicstack/clinic-scheduling/internal/schedule"
)

type bookingFixture struct {
	*availFixture
	patientID uuid.UUID
	notifier  *recordingNotifier
	booking   *appointment.BookingService
}

func newBookingFixture(t *testing.T, now time.Time) *bookingFixture {
	t.Helper()

	f := &bookingFixture{
		availFixture: newAvailFixture(t),
		patientID:    uuid.New(),
		notifier:     &recordingNotifier{},
	}
	f.repo.addPatient(appointment.Patient{ID: f.patientID, ClinicID: f.clinicID, Name: "Pat"})

	f.booking = appointment.NewBookingService(f.repo, f.svc, noopLocker{}, f.notifier).
		WithClock(func() time.Time { return now })
	return f
}

func (f *bookingFixture) request(date time.Time, slot schedule.TimeOfDay) appointment.BookingRequest {
	return appointment.BookingRequest{
		ClinicID:  f.clinicID,
		PatientID: f.patientID,
		DoctorID:  f.doctorID,
		Date:      date,
		TimeSlot:  slot,
		CreatedBy: uuid.New(),
	}
}

func TestBookFutureSlot(t *testing.T) {
	now := monday.Add(-3 * 24 * time.Hour) // previous Friday
	f := newBookingFixture(t, now)

	appt, err := f.booking.Book(context.Background(), f.request(monday, tod(10, 0)))
	require.NoError(t, err)

	assert.Equal(t, appointment.StatusScheduled, appt.Status)
	assert.Nil(t, appt.TokenNumber, "token is only assigned at check-in")
	assert.Equal(t, tod(10, 0), appt.TimeSlot)
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, appointment.EventBooked, f.notifier.events[0].Type)
}

func TestBookRejectsUnofferedSlot(t *testing.T) {
	f := newBookingFixture(t, monday.Add(-24*time.Hour))

	// 13:00 is outside the doctor's Monday window.
	_, err := f.booking.Book(context.Background(), f.request(monday, tod(13, 0)))

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, apperr.ReasonNoAvailability, ve.Reason)
}

func TestBookRejectsBookedSlot(t *testing.T) {
	f := newBookingFixture(t, monday.Add(-24*time.Hour))
	f.repo.addAppointment(appointment.Appointment{
		ClinicID: f.clinicID, DoctorID: f.doctorID, PatientID: uuid.New(),
		Date: monday, TimeSlot: tod(10, 0), Status: appointment.StatusScheduled,
	})

	_, err := f.booking.Book(context.Background(), f.request(monday, tod(10, 0)))

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, apperr.ReasonNoAvailability, ve.Reason)
}

func TestBookSameDayLeadTime(t *testing.T) {
	// Doctor works the whole Monday for this test.
	now := time.Date(2026, 8, 31, 9, 10, 0, 0, time.Local)
	f := newBookingFixture(t, now)
	f.sched.setDoctorHours(f.doctorID, 1, true, tod(9, 0), tod(18, 0), 30)

	// cutoff = 10:10; a 10:00 slot is too soon.
	_, err := f.booking.Book(context.Background(), f.request(monday, tod(10, 0)))
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, apperr.ReasonTooSoon, ve.Reason)

	// 10:30 clears the cutoff.
	appt, err := f.booking.Book(context.Background(), f.request(monday, tod(10, 30)))
	require.NoError(t, err)
	assert.Equal(t, tod(10, 30), appt.TimeSlot)
}

func TestBookSameDayExactCutoffAllowed(t *testing.T) {
	now := time.Date(2026, 8, 31, 14, 30, 0, 0, time.Local)
	f := newBookingFixture(t, now)
	f.sched.setDoctorHours(f.doctorID, 1, true, tod(9, 0), tod(18, 0), 30)

	// cutoff = 15:30 exactly; a slot at the cutoff is not "before" it.
	appt, err := f.booking.Book(context.Background(), f.request(monday, tod(15, 30)))
	require.NoError(t, err)
	assert.Equal(t, tod(15, 30), appt.TimeSlot)
}

func TestBookFutureDateSkipsLeadTime(t *testing.T) {
	// Late Sunday evening; every Monday slot is within 60 minutes on the
	// clock but the lead-time rule only applies same-day.
	now := time.Date(2026, 8, 30, 23, 50, 0, 0, time.Local)
	f := newBookingFixture(t, now)

	_, err := f.booking.Book(context.Background(), f.request(monday, tod(9, 0)))
	require.NoError(t, err)
}

func TestBookBeyondHorizon(t *testing.T) {
	f := newBookingFixture(t, monday)

	farOut := monday.AddDate(0, 0, 8)
	_, err := f.booking.Book(context.Background(), f.request(farOut, tod(10, 0)))

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, apperr.ReasonBeyondBookingWindow, ve.Reason)
}

func TestBookPastDate(t *testing.T) {
	f := newBookingFixture(t, tuesday)

	_, err := f.booking.Book(context.Background(), f.request(monday, tod(10, 0)))

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, apperr.ReasonNoAvailability, ve.Reason)
}

func TestBookDoctorFromAnotherClinic(t *testing.T) {
	f := newBookingFixture(t, monday.Add(-24*time.Hour))
	foreignDoctor := uuid.New()
	f.repo.addDoctor(appointment.Doctor{ID: foreignDoctor, ClinicID: uuid.New(), Name: "Dr. Z", ConsultationFee: 40})
	f.sched.setDoctorHours(foreignDoctor, 1, true, tod(9, 0), tod(12, 0), 30)

	req := f.request(monday, tod(10, 0))
	req.DoctorID = foreignDoctor
	_, err := f.booking.Book(context.Background(), req)
	assert.ErrorIs(t, err, appointment.ErrDoctorNotFound)
}

func TestBookUnknownPatient(t *testing.T) {
	f := newBookingFixture(t, monday.Add(-24*time.Hour))

	req := f.request(monday, tod(10, 0))
	req.PatientID = uuid.New()
	_, err := f.booking.Book(context.Background(), req)
	assert.ErrorIs(t, err, appointment.ErrPatientNotFound)
}

// racingRepo sneaks a conflicting booking in between the availability
// pre-check and the insert, as a second receptionist would.
type racingRepo struct {
	*fakeRepo
	raced bool
}

func (r *racingRepo) CreateScheduled(ctx context.Context, a appointment.Appointment) (*appointment.Appointment, error) {
	if !r.raced {
		r.raced = true
		r.fakeRepo.addAppointment(appointment.Appointment{
			ClinicID: a.ClinicID, DoctorID: a.DoctorID, PatientID: uuid.New(),
			Date: a.Date, TimeSlot: a.TimeSlot, Status: appointment.StatusScheduled,
		})
	}
	return r.fakeRepo.CreateScheduled(ctx, a)
}

func TestBookLostRaceIsConflict(t *testing.T) {
	f := newBookingFixture(t, monday.Add(-24*time.Hour))
	racing := &racingRepo{fakeRepo: f.repo}
	booking := appointment.NewBookingService(racing, f.svc, noopLocker{}, f.notifier).
		WithClock(func() time.Time { return monday.Add(-24 * time.Hour) })

	_, err := booking.Book(context.Background(), f.request(monday, tod(10, 0)))

	var ce *apperr.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, apperr.ReasonSlotTaken, ce.Reason)
}
