package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-encounter-engine/internal/appointment"
	"github.com/hackgods/clinic-encounter-engine/internal/timeline"
)

func parseAppointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(w, r)
		if !ok {
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func beginAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(w, r)
		if !ok {
			return
		}

		var req BeginEncounterRequest
		if err := decodeOptional(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.BeginEncounter(r.Context(), id, req.KnownStatus)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, BeginResponse{
			ID:          id,
			Status:      string(appointment.StatusInProgress),
			Appointment: toAppointmentResponse(appt),
		})
	}
}

func cancelAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(w, r)
		if !ok {
			return
		}

		var req CancelAppointmentRequest
		if err := decodeOptional(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Cancel(r.Context(), id, req.Reason)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func completeAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseAppointmentID(w, r)
		if !ok {
			return
		}

		appt, err := svc.Complete(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func timelineHandler(svc AppointmentService, defaults timeline.Window, loc *time.Location, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var practitionerID *uuid.UUID
		if raw := q.Get("practitioner_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitioner_id must be a valid UUID")
				return
			}
			practitionerID = &id
		}

		day := now().In(loc)
		if raw := q.Get("date"); raw != "" {
			parsed, err := time.ParseInLocation(time.DateOnly, raw, loc)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			day = parsed
		}

		window, err := windowFromQuery(defaults, q.Get("start_hour"), q.Get("end_hour"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
			return
		}

		appts, err := svc.ListForDay(r.Context(), practitionerID, day)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		resp := TimelineResponse{
			Date:         day.Format(time.DateOnly),
			StartHour:    window.StartHour,
			EndHour:      window.EndHour,
			Span:         window.Span(),
			Blocks:       toTimelineBlocks(timeline.Layout(window, day, appts)),
			Appointments: make([]AppointmentResponse, 0, len(appts)),
		}
		for i := range appts {
			resp.Appointments = append(resp.Appointments, *toAppointmentResponse(&appts[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func windowFromQuery(defaults timeline.Window, startRaw, endRaw string) (timeline.Window, error) {
	w := defaults
	if startRaw != "" {
		v, err := strconv.Atoi(startRaw)
		if err != nil {
			return w, fmt.Errorf("start_hour must be an integer")
		}
		w.StartHour = v
	}
	if endRaw != "" {
		v, err := strconv.Atoi(endRaw)
		if err != nil {
			return w, fmt.Errorf("end_hour must be an integer")
		}
		w.EndHour = v
	}
	if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
		return w, fmt.Errorf("window %d-%d is not a valid range of hours", w.StartHour, w.EndHour)
	}
	return w, nil
}

func handleAppointmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointment.ErrRemoteMutationFailed):
		writeError(w, http.StatusBadGateway, "remote_mutation_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
