package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-encounter-engine/internal/appointment"
	"github.com/hackgods/clinic-encounter-engine/internal/clinical"
	"github.com/hackgods/clinic-encounter-engine/internal/encounter"
	"github.com/hackgods/clinic-encounter-engine/internal/metrics"
	"github.com/hackgods/clinic-encounter-engine/internal/notification"
	"github.com/hackgods/clinic-encounter-engine/internal/timeline"
)

type AppointmentService interface {
	Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	BeginEncounter(ctx context.Context, id uuid.UUID, knownStatus string) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*appointment.Appointment, error)
	Complete(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	ListForDay(ctx context.Context, practitionerID *uuid.UUID, day time.Time) ([]appointment.Appointment, error)
}

type EncounterService interface {
	StartEncounter(ctx context.Context, sessionID string, patientID uuid.UUID, appointmentID *uuid.UUID, knownStatus string) (encounter.Result, error)
	EndEncounter(ctx context.Context, sessionID string) error
	CompleteEncounter(ctx context.Context, sessionID string) (encounter.Result, error)
	Current(ctx context.Context, sessionID string) (*encounter.Link, error)
}

type NotificationService interface {
	Feed(ctx context.Context, f notification.Filter, alerts notification.AlertSource, now time.Time) (*notification.Feed, error)
	MarkRead(ctx context.Context, viewerID uuid.UUID, id string) error
	MarkAllRead(ctx context.Context, viewerID uuid.UUID, now time.Time) (int64, error)
	Archive(ctx context.Context, viewerID uuid.UUID, id string) error
}

type RouterConfig struct {
	Appointments  AppointmentService
	Encounters    EncounterService
	Notifications NotificationService
	Patients      clinical.PatientLookup
	Checks        map[string]Pinger
	Logger        zerolog.Logger
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	Window        timeline.Window
	Location      *time.Location
	Env           string
	Version       string
	Now           func() time.Time
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger, cfg.Metrics))

	// Health endpoints
	health := NewHealthHandler(cfg.Checks, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	// Appointment endpoints
	r.Route("/appointments/{id}", func(r chi.Router) {
		r.Get("/", getAppointmentHandler(cfg.Appointments))
		r.Post("/begin", beginAppointmentHandler(cfg.Appointments))
		r.Post("/cancel", cancelAppointmentHandler(cfg.Appointments))
		r.Post("/complete", completeAppointmentHandler(cfg.Appointments))
	})
	r.Get("/timeline", timelineHandler(cfg.Appointments, cfg.Window, cfg.Location, cfg.Now))

	// Encounter endpoints, scoped by workspace session
	r.Route("/encounters", func(r chi.Router) {
		r.Post("/start", startEncounterHandler(cfg.Encounters))
		r.Post("/end", endEncounterHandler(cfg.Encounters))
		r.Post("/complete", completeEncounterHandler(cfg.Encounters))
		r.Get("/current", currentEncounterHandler(cfg.Encounters))
	})

	// Notification feed
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", feedHandler(cfg.Notifications, cfg.Patients, cfg.Location, cfg.Now))
		r.Post("/read-all", markAllReadHandler(cfg.Notifications, cfg.Now))
		r.Post("/{id}/read", markReadHandler(cfg.Notifications))
		r.Post("/{id}/archive", archiveHandler(cfg.Notifications))
	})

	return r
}
