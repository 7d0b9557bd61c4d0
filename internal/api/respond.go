package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/clinicstack/clinic-scheduling/internal/apperr"
	"github.com/clinicstack/clinic-scheduling/internal/appointment"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeDomainError maps the shared error taxonomy onto HTTP statuses:
// validation -> 422 with the reason code, conflict -> 409 (caller re-fetches
// and retries), not found -> 404, anything else -> 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusUnprocessableEntity, ve.Reason, ve.Detail)
		return
	}

	var ce *apperr.ConflictError
	if errors.As(err, &ce) {
		writeError(w, http.StatusConflict, ce.Reason, ce.Detail)
		return
	}

	var nf *apperr.NotFoundError
	if errors.As(err, &nf) {
		writeError(w, http.StatusNotFound, nf.Resource+"_not_found", nf.Error())
		return
	}

	switch {
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
