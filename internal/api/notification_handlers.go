package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-encounter-engine/internal/clinical"
	"github.com/hackgods/clinic-encounter-engine/internal/notification"
)

func viewerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.URL.Query().Get("viewer_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_viewer_id", "viewer_id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// feedHandler builds the viewer's feed; when a patient is open, that patient's record is loaded
// alongside the server notifications for clinical alerts.
func feedHandler(svc NotificationService, patients clinical.PatientLookup, loc *time.Location, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, ok := viewerID(w, r)
		if !ok {
			return
		}
		q := r.URL.Query()

		filter := notification.Filter{
			ViewerID:   viewer,
			Categories: notification.CategoriesForRole(q.Get("role")),
		}

		var alerts notification.AlertSource
		if raw := q.Get("patient_id"); raw != "" {
			patientID, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			if patients != nil {
				alerts = patientAlerts(patients, patientID)
			}
		}

		feed, err := svc.Feed(r.Context(), filter, alerts, now().In(loc))
		if err != nil {
			handleNotificationError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toFeedResponse(feed))
	}
}

func patientAlerts(patients clinical.PatientLookup, patientID uuid.UUID) notification.AlertSource {
	return func(ctx context.Context) ([]clinical.Alert, error) {
		p, err := patients.FetchPatient(ctx, patientID)
		if err != nil || p == nil {
			return nil, err
		}
		return clinical.Derive(*p), nil
	}
}

func markReadHandler(svc NotificationService) http.HandlerFunc {
	return notificationMutation(svc.MarkRead)
}

func archiveHandler(svc NotificationService) http.HandlerFunc {
	return notificationMutation(svc.Archive)
}

func notificationMutation(op func(ctx context.Context, viewerID uuid.UUID, id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, ok := viewerID(w, r)
		if !ok {
			return
		}

		if err := op(r.Context(), viewer, chi.URLParam(r, "id")); err != nil {
			handleNotificationError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func markAllReadHandler(svc NotificationService, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, ok := viewerID(w, r)
		if !ok {
			return
		}

		n, err := svc.MarkAllRead(r.Context(), viewer, now())
		if err != nil {
			handleNotificationError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, MarkAllReadResponse{Updated: n})
	}
}

func handleNotificationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notification.ErrNotificationNotFound):
		writeError(w, http.StatusNotFound, "notification_not_found", err.Error())
	case errors.Is(err, clinical.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, notification.ErrNotArchivable):
		writeError(w, http.StatusUnprocessableEntity, "not_archivable", err.Error())
	case errors.Is(err, notification.ErrRemoteMutationFailed):
		writeError(w, http.StatusBadGateway, "remote_mutation_failed", err.Error())
	default:
		writeError(w, http.StatusBadGateway, "notification_service_unavailable", err.Error())
	}
}
