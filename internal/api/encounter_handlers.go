package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-encounter-engine/internal/encounter"
)

// SessionHeader identifies the workspace (browser tab) an encounter link belongs to.
const SessionHeader = "X-Workspace-Session"

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	session := strings.TrimSpace(r.Header.Get(SessionHeader))
	if session == "" {
		writeError(w, http.StatusBadRequest, "missing_session", SessionHeader+" header is required")
		return "", false
	}
	return session, true
}

func startEncounterHandler(svc EncounterService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionID(w, r)
		if !ok {
			return
		}

		var req StartEncounterRequest
		if err := decodeOptional(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		var appointmentID *uuid.UUID
		if req.AppointmentID != "" {
			id, err := uuid.Parse(req.AppointmentID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
				return
			}
			appointmentID = &id
		}

		res, err := svc.StartEncounter(r.Context(), session, patientID, appointmentID, req.KnownStatus)
		writeEncounterResult(w, res, err)
	}
}

func endEncounterHandler(svc EncounterService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionID(w, r)
		if !ok {
			return
		}

		if err := svc.EndEncounter(r.Context(), session); err != nil {
			writeEncounterResult(w, encounter.Result{Reason: encounter.ReasonLinkUnavailable}, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func completeEncounterHandler(svc EncounterService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionID(w, r)
		if !ok {
			return
		}

		res, err := svc.CompleteEncounter(r.Context(), session)
		writeEncounterResult(w, res, err)
	}
}

func currentEncounterHandler(svc EncounterService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionID(w, r)
		if !ok {
			return
		}

		link, err := svc.Current(r.Context(), session)
		if err != nil {
			writeEncounterResult(w, encounter.Result{Reason: encounter.ReasonLinkUnavailable}, err)
			return
		}

		writeJSON(w, http.StatusOK, EncounterResponse{OK: link != nil, Link: toLinkResponse(link)})
	}
}

// writeEncounterResult always answers with the result body so the UI can show the reason.
func writeEncounterResult(w http.ResponseWriter, res encounter.Result, err error) {
	resp := EncounterResponse{
		OK:          res.OK,
		Reason:      string(res.Reason),
		Retryable:   res.Retryable,
		Link:        toLinkResponse(res.Link),
		Appointment: toAppointmentResponse(res.Appointment),
	}
	if err == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.OK = false
	resp.Details = err.Error()

	status := http.StatusInternalServerError
	switch res.Reason {
	case encounter.ReasonTerminalState:
		status = http.StatusConflict
	case encounter.ReasonNotFound:
		status = http.StatusNotFound
	case encounter.ReasonInvalidRequest:
		status = http.StatusBadRequest
	case encounter.ReasonNoActive:
		status = http.StatusConflict
	case encounter.ReasonTransientFailure, encounter.ReasonLinkUnavailable:
		status = http.StatusBadGateway
	}
	if errors.Is(err, encounter.ErrInvalidRequest) {
		status = http.StatusBadRequest
	}

	writeJSON(w, status, resp)
}
