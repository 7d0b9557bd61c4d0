package appointment_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicstack/clinic-scheduling/internal/appointment"
	redisclient "github.com/clinicstack/clinic-scheduling/internal/redis"
	"github.com/clinicstack/clinic-scheduling/internal/schedule"
)

// fakeScheduleRepo is an in-memory schedule.Repository.
type fakeScheduleRepo struct {
	clinicSchedules map[string]schedule.ClinicSchedule
	clinicHolidays  map[string]bool
	doctorSchedules map[string]schedule.DoctorSchedule
	doctorHolidays  map[string]bool
	settings        map[uuid.UUID]schedule.DoctorSettings

	savedDoctorSchedules []schedule.DoctorSchedule
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{
		clinicSchedules: map[string]schedule.ClinicSchedule{},
		clinicHolidays:  map[string]bool{},
		doctorSchedules: map[string]schedule.DoctorSchedule{},
		doctorHolidays:  map[string]bool{},
		settings:        map[uuid.UUID]schedule.DoctorSettings{},
	}
}

func dayKey(id uuid.UUID, dow int) string { return fmt.Sprintf("%s|%d", id, dow) }

func dateKey(id uuid.UUID, date time.Time) string {
	return fmt.Sprintf("%s|%s", id, schedule.DateString(date))
}

func (f *fakeScheduleRepo) setClinicHours(clinicID uuid.UUID, dow int, closed bool, start, end schedule.TimeOfDay) {
	f.clinicSchedules[dayKey(clinicID, dow)] = schedule.ClinicSchedule{
		ClinicID: clinicID, DayOfWeek: dow, IsClosed: closed, StartTime: start, EndTime: end,
	}
}

func (f *fakeScheduleRepo) setDoctorHours(doctorID uuid.UUID, dow int, active bool, start, end schedule.TimeOfDay, width int) {
	f.doctorSchedules[dayKey(doctorID, dow)] = schedule.DoctorSchedule{
		DoctorID: doctorID, DayOfWeek: dow, IsActive: active,
		StartTime: start, EndTime: end, SlotDurationMinutes: width,
	}
}

func (f *fakeScheduleRepo) GetClinicSchedule(_ context.Context, clinicID uuid.UUID, dow int) (*schedule.ClinicSchedule, error) {
	cs, ok := f.clinicSchedules[dayKey(clinicID, dow)]
	if !ok {
		return nil, schedule.ErrClinicScheduleNotFound
	}
	return &cs, nil
}

func (f *fakeScheduleRepo) UpsertClinicSchedule(_ context.Context, row schedule.ClinicSchedule) error {
	f.clinicSchedules[dayKey(row.ClinicID, row.DayOfWeek)] = row
	return nil
}

func (f *fakeScheduleRepo) IsClinicHoliday(_ context.Context, clinicID uuid.UUID, date time.Time) (bool, error) {
	return f.clinicHolidays[dateKey(clinicID, date)], nil
}

func (f *fakeScheduleRepo) AddClinicHoliday(_ context.Context, h schedule.ClinicHoliday) error {
	f.clinicHolidays[dateKey(h.ClinicID, h.Date)] = true
	return nil
}

func (f *fakeScheduleRepo) ListClinicHolidays(_ context.Context, _ uuid.UUID, _ time.Time) ([]schedule.ClinicHoliday, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) GetDoctorSchedule(_ context.Context, doctorID uuid.UUID, dow int) (*schedule.DoctorSchedule, error) {
	ds, ok := f.doctorSchedules[dayKey(doctorID, dow)]
	if !ok {
		return nil, schedule.ErrDoctorScheduleNotFound
	}
	return &ds, nil
}

func (f *fakeScheduleRepo) UpsertDoctorSchedule(_ context.Context, row schedule.DoctorSchedule) error {
	f.doctorSchedules[dayKey(row.DoctorID, row.DayOfWeek)] = row
	f.savedDoctorSchedules = append(f.savedDoctorSchedules, row)
	return nil
}

func (f *fakeScheduleRepo) IsDoctorHoliday(_ context.Context, doctorID uuid.UUID, date time.Time) (bool, error) {
	return f.doctorHolidays[dateKey(doctorID, date)], nil
}

func (f *fakeScheduleRepo) AddDoctorHoliday(_ context.Context, h schedule.DoctorHoliday) error {
	f.doctorHolidays[dateKey(h.DoctorID, h.Date)] = true
	return nil
}

func (f *fakeScheduleRepo) ListDoctorHolidays(_ context.Context, _ uuid.UUID, _ time.Time) ([]schedule.DoctorHoliday, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) GetDoctorSettings(_ context.Context, doctorID uuid.UUID) (*schedule.DoctorSettings, error) {
	s, ok := f.settings[doctorID]
	if !ok {
		return nil, schedule.ErrDoctorSettingsNotFound
	}
	return &s, nil
}

// fakeRepo is an in-memory appointment.Repository enforcing the same
// uniqueness rules as the partial indexes in Postgres.
type fakeRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]appointment.Patient
	doctors  map[uuid.UUID]appointment.Doctor
	appts    map[uuid.UUID]*appointment.Appointment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		patients: map[uuid.UUID]appointment.Patient{},
		doctors:  map[uuid.UUID]appointment.Doctor{},
		appts:    map[uuid.UUID]*appointment.Appointment{},
	}
}

func (f *fakeRepo) addPatient(p appointment.Patient) { f.patients[p.ID] = p }
func (f *fakeRepo) addDoctor(d appointment.Doctor)   { f.doctors[d.ID] = d }

func (f *fakeRepo) addAppointment(a appointment.Appointment) *appointment.Appointment {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = appointment.StatusScheduled
	}
	cp := a
	f.appts[cp.ID] = &cp
	return &cp
}

func (f *fakeRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*appointment.Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, appointment.ErrPatientNotFound
	}
	return &p, nil
}

func (f *fakeRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*appointment.Doctor, error) {
	d, ok := f.doctors[id]
	if !ok {
		return nil, appointment.ErrDoctorNotFound
	}
	return &d, nil
}

func (f *fakeRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) ListActiveForDoctorDay(_ context.Context, doctorID uuid.UUID, date time.Time) ([]appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []appointment.Appointment
	for _, a := range f.appts {
		if a.DoctorID == doctorID && schedule.SameDate(a.Date, date) && a.Status.Active() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateScheduled(_ context.Context, a appointment.Appointment) (*appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.appts {
		if existing.DoctorID == a.DoctorID && schedule.SameDate(existing.Date, a.Date) &&
			existing.TimeSlot == a.TimeSlot && existing.Status.Active() {
			return nil, appointment.ErrSlotTaken
		}
	}
	a.ID = uuid.New()
	a.Status = appointment.StatusScheduled
	a.TokenNumber = nil
	cp := a
	f.appts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeRepo) MaxToken(_ context.Context, clinicID uuid.UUID, date time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	max := 0
	for _, a := range f.appts {
		if a.ClinicID == clinicID && schedule.SameDate(a.Date, date) && a.TokenNumber != nil && *a.TokenNumber > max {
			max = *a.TokenNumber
		}
	}
	return max, nil
}

func (f *fakeRepo) TokenInUse(_ context.Context, clinicID uuid.UUID, date time.Time, token int, excludeID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenInUseLocked(clinicID, date, token, excludeID), nil
}

func (f *fakeRepo) tokenInUseLocked(clinicID uuid.UUID, date time.Time, token int, excludeID uuid.UUID) bool {
	for _, a := range f.appts {
		if a.ID != excludeID && a.ClinicID == clinicID && schedule.SameDate(a.Date, date) &&
			a.Status != appointment.StatusCancelled && a.TokenNumber != nil && *a.TokenNumber == token {
			return true
		}
	}
	return false
}

func (f *fakeRepo) AssignToken(_ context.Context, id uuid.UUID, token int) (*appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	if f.tokenInUseLocked(a.ClinicID, a.Date, token, a.ID) {
		return nil, appointment.ErrTokenTaken
	}
	t := token
	a.TokenNumber = &t
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to appointment.Status) (*appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok || a.Status != from {
		return nil, appointment.ErrAppointmentNotFound
	}
	a.Status = to
	cp := *a
	return &cp, nil
}

func (f *fakeRepo) CallIn(_ context.Context, id uuid.UUID) (*appointment.Appointment, *appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.appts[id]
	if !ok {
		return nil, nil, appointment.ErrAppointmentNotFound
	}

	var previous *appointment.Appointment
	for _, a := range f.appts {
		if a.ID != target.ID && a.ClinicID == target.ClinicID && a.DoctorID == target.DoctorID &&
			schedule.SameDate(a.Date, target.Date) && a.Status == appointment.StatusWithDoctor {
			a.Status = appointment.StatusCompleted
			cp := *a
			previous = &cp
		}
	}

	if target.Status != appointment.StatusScheduled {
		return nil, nil, appointment.ErrAppointmentNotFound
	}
	target.Status = appointment.StatusWithDoctor
	cp := *target
	return &cp, previous, nil
}

func (f *fakeRepo) ListForClinicDay(_ context.Context, clinicID uuid.UUID, date time.Time, doctorID *uuid.UUID) ([]appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []appointment.Appointment
	for _, a := range f.appts {
		if a.ClinicID != clinicID || !schedule.SameDate(a.Date, date) || a.Status == appointment.StatusCancelled {
			continue
		}
		if doctorID != nil && a.DoctorID != *doctorID {
			continue
		}
		out = append(out, *a)
	}
	sortByTimeSlot(out)
	return out, nil
}

func (f *fakeRepo) ListScheduledFrom(_ context.Context, clinicID uuid.UUID, from time.Time) ([]appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []appointment.Appointment
	for _, a := range f.appts {
		if a.ClinicID == clinicID && a.Status == appointment.StatusScheduled &&
			schedule.DateString(a.Date) >= schedule.DateString(from) {
			out = append(out, *a)
		}
	}
	sortByTimeSlot(out)
	return out, nil
}

func (f *fakeRepo) Reassign(_ context.Context, id, newDoctorID uuid.UUID, newSlot schedule.TimeOfDay) (*appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.appts[id]
	if !ok || target.Status != appointment.StatusScheduled {
		return nil, appointment.ErrAppointmentNotFound
	}
	for _, a := range f.appts {
		if a.ID != id && a.DoctorID == newDoctorID && schedule.SameDate(a.Date, target.Date) &&
			a.TimeSlot == newSlot && a.Status.Active() {
			return nil, appointment.ErrSlotTaken
		}
	}
	target.DoctorID = newDoctorID
	target.TimeSlot = newSlot
	cp := *target
	return &cp, nil
}

func (f *fakeRepo) CompletedByDoctor(_ context.Context, clinicID uuid.UUID, date time.Time) ([]appointment.DoctorCollection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[uuid.UUID]int{}
	for _, a := range f.appts {
		if a.ClinicID == clinicID && schedule.SameDate(a.Date, date) && a.Status == appointment.StatusCompleted {
			counts[a.DoctorID]++
		}
	}
	var out []appointment.DoctorCollection
	for doctorID, n := range counts {
		d := f.doctors[doctorID]
		out = append(out, appointment.DoctorCollection{
			DoctorID:       doctorID,
			DoctorName:     d.Name,
			Fee:            d.ConsultationFee,
			CompletedToday: n,
			TotalToCollect: d.ConsultationFee * float64(n),
		})
	}
	return out, nil
}

func sortByTimeSlot(list []appointment.Appointment) {
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && list[j].TimeSlot < list[j-1].TimeSlot; j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
}

// noopLocker runs the critical section directly; lock contention paths are
// covered by the conflict errors the fake repo raises.
type noopLocker struct{}

func (noopLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// recordingNotifier captures published change events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []redisclient.ChangeEvent
}

func (n *recordingNotifier) PublishChange(_ context.Context, _ uuid.UUID, ev redisclient.ChangeEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

// failingBilling always errors, for the partial-failure policy tests.
type failingBilling struct{ calls int }

func (b *failingBilling) CreateInvoice(context.Context, uuid.UUID) error {
	b.calls++
	return errors.New("billing service unavailable")
}

type okBilling struct{ calls int }

func (b *okBilling) CreateInvoice(context.Context, uuid.UUID) error {
	b.calls++
	return nil
}
