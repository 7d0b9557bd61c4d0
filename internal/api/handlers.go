package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicstack/clinic-scheduling/internal/appointment"
	"github.com/clinicstack/clinic-scheduling/internal/schedule"
)

// Services bundles the domain services the handlers dispatch to.
type Services struct {
	Availability *appointment.AvailabilityService
	Booking      *appointment.BookingService
	Queue        *appointment.QueueService
	Reassign     *appointment.ReassignService
	Report       *appointment.ReportService
	Schedules    *schedule.Service
}

func parseDate(s string) (time.Time, bool) {
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func getSlotsHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		date, ok := parseDate(r.URL.Query().Get("date"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.Availability.ComputeSlots(r.Context(), doctorID, date)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, SlotResponse{Time: s.Time.String(), Available: s.Available})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func bookAppointmentHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := SessionFrom(r.Context())

		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		date, ok := parseDate(req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		slot, err := schedule.ParseTimeOfDay(req.TimeSlot)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time_slot", "time_slot must be HH:MM:SS")
			return
		}

		appt, err := svc.Booking.Book(r.Context(), appointment.BookingRequest{
			ClinicID:  session.ClinicID,
			PatientID: patientID,
			DoctorID:  doctorID,
			Date:      date,
			TimeSlot:  slot,
			CreatedBy: session.UserID,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		// Same-day bookings enter the queue immediately; future dates get a
		// token on the day of, via check-in. The booking stands either way,
		// so a check-in failure is reported as a warning, not an error.
		resp := BookAppointmentResponse{AppointmentResponse: toAppointmentResponse(appt)}
		if schedule.SameDate(date, time.Now()) {
			checked, err := svc.Queue.CheckIn(r.Context(), appt.ID, appt.ClinicID, nil)
			if err != nil {
				log.Printf("same-day check-in failed for appointment %s: %v", appt.ID, err)
				resp.CheckInWarning = "appointment booked but not checked in; retry check-in"
			} else {
				resp.AppointmentResponse = toAppointmentResponse(checked)
			}
		}

		writeJSON(w, http.StatusCreated, resp)
	}
}

func checkInHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := SessionFrom(r.Context())

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req CheckInRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		appt, err := svc.Queue.CheckIn(r.Context(), id, session.ClinicID, req.PreferredToken)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func setQueueNumberHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := SessionFrom(r.Context())

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req SetQueueNumberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Queue.SetQueueNumber(r.Context(), id, session.ClinicID, req.TokenNumber)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func callInHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Queue.CallIn(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func completeHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		result, err := svc.Queue.Complete(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := CompleteResponse{AppointmentResponse: toAppointmentResponse(result.Appointment)}
		if result.BillingErr != nil {
			resp.BillingWarning = "invoice creation failed; completion stands"
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func cancelHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Queue.Cancel(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listTodayHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := SessionFrom(r.Context())

		var doctorID *uuid.UUID
		if raw := r.URL.Query().Get("doctor_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			doctorID = &id
		}

		list, err := svc.Queue.ListToday(r.Context(), session.ClinicID, doctorID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(list))
	}
}

func affectedByLeaveHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := SessionFrom(r.Context())

		list, err := svc.Reassign.ListAffectedByLeave(r.Context(), session.ClinicID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(list))
	}
}

func reassignHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := SessionFrom(r.Context())

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req ReassignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		newDoctorID, err := uuid.Parse(req.NewDoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "new_doctor_id must be a valid UUID")
			return
		}

		var newSlot *schedule.TimeOfDay
		if req.NewTimeSlot != nil {
			t, err := schedule.ParseTimeOfDay(*req.NewTimeSlot)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_time_slot", "new_time_slot must be HH:MM:SS")
				return
			}
			newSlot = &t
		}

		appt, err := svc.Reassign.Reassign(r.Context(), id, session.ClinicID, newDoctorID, newSlot)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func collectionHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := SessionFrom(r.Context())

		rows, err := svc.Report.CollectionByDoctor(r.Context(), session.ClinicID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]CollectionRow, 0, len(rows))
		for _, row := range rows {
			resp = append(resp, CollectionRow{
				DoctorID:       row.DoctorID,
				DoctorName:     row.DoctorName,
				Fee:            row.Fee,
				CompletedToday: row.CompletedToday,
				TotalToCollect: row.TotalToCollect,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func putDoctorScheduleHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := SessionFrom(r.Context())

		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		var req DoctorScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		row := schedule.DoctorSchedule{
			DoctorID:            doctorID,
			DayOfWeek:           req.DayOfWeek,
			IsActive:            req.IsActive,
			SlotDurationMinutes: req.SlotDurationMinutes,
		}
		if req.IsActive {
			if row.StartTime, err = schedule.ParseTimeOfDay(req.StartTime); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be HH:MM:SS")
				return
			}
			if row.EndTime, err = schedule.ParseTimeOfDay(req.EndTime); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be HH:MM:SS")
				return
			}
		}

		if err := svc.Schedules.SaveDoctorSchedule(r.Context(), session.ClinicID, row); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	}
}

func putClinicScheduleHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := SessionFrom(r.Context())

		var req ClinicScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		row := schedule.ClinicSchedule{
			ClinicID:  session.ClinicID,
			DayOfWeek: req.DayOfWeek,
			IsClosed:  req.IsClosed,
		}
		if !req.IsClosed {
			var err error
			if row.StartTime, err = schedule.ParseTimeOfDay(req.StartTime); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be HH:MM:SS")
				return
			}
			if row.EndTime, err = schedule.ParseTimeOfDay(req.EndTime); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be HH:MM:SS")
				return
			}
		}

		if err := svc.Schedules.SaveClinicSchedule(r.Context(), row); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	}
}

func postClinicHolidayHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := SessionFrom(r.Context())

		var req HolidayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		date, ok := parseDate(req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		err := svc.Schedules.AddClinicHoliday(r.Context(), schedule.ClinicHoliday{
			ClinicID: session.ClinicID,
			Date:     date,
			Reason:   req.Reason,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "saved"})
	}
}

func postDoctorHolidayHandler(svc *Services) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		var req HolidayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		date, ok := parseDate(req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		err = svc.Schedules.AddDoctorHoliday(r.Context(), schedule.DoctorHoliday{
			DoctorID: doctorID,
			Date:     date,
			Reason:   req.Reason,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "saved"})
	}
}
