package api

import (
	"github.com/google/uuid"

	"github.com/clinicstack/clinic-scheduling/internal/appointment"
	"github.com/clinicstack/clinic-scheduling/internal/schedule"
)

type BookAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`      // YYYY-MM-DD
	TimeSlot  string `json:"time_slot"` // HH:MM:SS
}

type CheckInRequest struct {
	PreferredToken *int `json:"preferred_token,omitempty"`
}

type SetQueueNumberRequest struct {
	TokenNumber int `json:"token_number"`
}

type ReassignRequest struct {
	NewDoctorID string  `json:"new_doctor_id"`
	NewTimeSlot *string `json:"new_time_slot,omitempty"` // HH:MM:SS; omit to keep original
}

type DoctorScheduleRequest struct {
	DayOfWeek           int    `json:"day_of_week"`
	IsActive            bool   `json:"is_active"`
	StartTime           string `json:"start_time"`
	EndTime             string `json:"end_time"`
	SlotDurationMinutes int    `json:"slot_duration_minutes"`
}

type ClinicScheduleRequest struct {
	DayOfWeek int    `json:"day_of_week"`
	IsClosed  bool   `json:"is_closed"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
}

type HolidayRequest struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Reason *string `json:"reason,omitempty"`
}

type SlotResponse struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	ClinicID    uuid.UUID `json:"clinic_id"`
	PatientID   uuid.UUID `json:"patient_id"`
	DoctorID    uuid.UUID `json:"doctor_id"`
	Date        string    `json:"appointment_date"`
	TimeSlot    string    `json:"time_slot"`
	TokenNumber *int      `json:"token_number,omitempty"`
	Status      string    `json:"status"`
}

type BookAppointmentResponse struct {
	AppointmentResponse
	CheckInWarning string `json:"check_in_warning,omitempty"`
}

type CompleteResponse struct {
	AppointmentResponse
	BillingWarning string `json:"billing_warning,omitempty"`
}

type CollectionRow struct {
	DoctorID       uuid.UUID `json:"doctor_id"`
	DoctorName     string    `json:"doctor_name"`
	Fee            float64   `json:"fee"`
	CompletedToday int       `json:"completed_today"`
	TotalToCollect float64   `json:"total_to_collect"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		ClinicID:    a.ClinicID,
		PatientID:   a.PatientID,
		DoctorID:    a.DoctorID,
		Date:        schedule.DateString(a.Date),
		TimeSlot:    a.TimeSlot.String(),
		TokenNumber: a.TokenNumber,
		Status:      string(a.Status),
	}
}

func toAppointmentResponses(list []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for i := range list {
		out = append(out, toAppointmentResponse(&list[i]))
	}
	return out
}
