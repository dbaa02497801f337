package encounter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-encounter-engine/internal/appointment"
	"github.com/hackgods/clinic-encounter-engine/internal/metrics"
)

var (
	ErrInvalidRequest    = errors.New("invalid encounter request")
	ErrNoActiveEncounter = errors.New("no active encounter for session")
)

// Reason tells the caller why an encounter did not start, so the UI can pick a message.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonTerminalState    Reason = "terminal_state"
	ReasonTransientFailure Reason = "transient_failure"
	ReasonNotFound         Reason = "not_found"
	ReasonInvalidRequest   Reason = "invalid_request"
	ReasonLinkUnavailable  Reason = "link_unavailable"
	ReasonNoActive         Reason = "no_active_encounter"
)

type Result struct {
	OK     bool   `json:"ok"`
	Reason Reason `json:"reason,omitempty"`
	// Retryable is set when calling StartEncounter again with the same input can succeed.
	Retryable   bool                     `json:"retryable,omitempty"`
	Link        *Link                    `json:"link,omitempty"`
	Appointment *appointment.Appointment `json:"appointment,omitempty"`
}

// Appointments is the part of the appointment service the orchestrator drives.
type Appointments interface {
	BeginEncounter(ctx context.Context, id uuid.UUID, knownStatus string) (*appointment.Appointment, error)
	Complete(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
}

type Orchestrator struct {
	appointments Appointments
	links        LinkStore
	logger       zerolog.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewOrchestrator(appointments Appointments, links LinkStore, logger zerolog.Logger, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		appointments: appointments,
		links:        links,
		logger:       logger.With().Str("component", "encounter").Logger(),
		metrics:      m,
		now:          time.Now,
	}
}

// StartEncounter begins the appointment (if any) and only then links it to the session.
// A failed transition never leaves a link behind. A session that already had a link gets the new one.
func (o *Orchestrator) StartEncounter(ctx context.Context, sessionID string, patientID uuid.UUID, appointmentID *uuid.UUID, knownStatus string) (Result, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || patientID == uuid.Nil {
		o.metrics.ObserveEncounterStart(string(ReasonInvalidRequest))
		return Result{Reason: ReasonInvalidRequest}, fmt.Errorf("%w: session and patient are required", ErrInvalidRequest)
	}

	var appt *appointment.Appointment
	if appointmentID != nil {
		begun, err := o.appointments.BeginEncounter(ctx, *appointmentID, knownStatus)
		if err != nil {
			reason := reasonFor(err)
			o.metrics.ObserveEncounterStart(string(reason))
			o.logger.Info().
				Err(err).
				Str("session_id", sessionID).
				Str("appointment_id", appointmentID.String()).
				Str("reason", string(reason)).
				Msg("encounter not started")
			return Result{Reason: reason, Retryable: reason == ReasonTransientFailure}, err
		}
		if begun != nil && begun.PatientID != uuid.Nil && begun.PatientID != patientID {
			o.logger.Warn().
				Str("appointment_id", appointmentID.String()).
				Str("appointment_patient_id", begun.PatientID.String()).
				Str("patient_id", patientID.String()).
				Msg("encounter patient differs from appointment patient")
		}
		appt = begun
	}

	link := Link{
		SessionID:     sessionID,
		PatientID:     patientID,
		AppointmentID: appointmentID,
		StartedAt:     o.now().UTC(),
	}
	if err := o.links.Set(ctx, link); err != nil {
		// The appointment has already moved to in_progress. Begin is idempotent, so a retry only
		// has to store the link.
		o.metrics.ObserveEncounterStart(string(ReasonLinkUnavailable))
		o.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to store encounter link")
		return Result{Reason: ReasonLinkUnavailable, Retryable: true, Appointment: appt}, err
	}

	o.metrics.ObserveEncounterStart("started")
	return Result{OK: true, Link: &link, Appointment: appt}, nil
}

// EndEncounter drops the session's link whatever it points at.
func (o *Orchestrator) EndEncounter(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return fmt.Errorf("%w: session is required", ErrInvalidRequest)
	}
	return o.links.Clear(ctx, sessionID)
}

// CompleteEncounter completes the linked appointment and frees the link if nobody replaced it meanwhile.
func (o *Orchestrator) CompleteEncounter(ctx context.Context, sessionID string) (Result, error) {
	link, err := o.Current(ctx, sessionID)
	if err != nil {
		return Result{Reason: reasonFor(err)}, err
	}
	if link == nil || link.AppointmentID == nil {
		return Result{Reason: ReasonNoActive, Link: link}, ErrNoActiveEncounter
	}

	appt, err := o.appointments.Complete(ctx, *link.AppointmentID)
	if err != nil {
		return Result{Reason: reasonFor(err), Link: link}, err
	}

	released, err := o.links.ClearIf(ctx, link.SessionID, *link.AppointmentID)
	if err != nil {
		// the appointment is completed; a stale link is only cosmetic and expires with its TTL
		o.logger.Warn().Err(err).Str("session_id", link.SessionID).Msg("failed to release encounter link")
	} else if !released {
		o.logger.Debug().Str("session_id", link.SessionID).Msg("encounter link replaced before completion")
	}

	return Result{OK: true, Appointment: appt}, nil
}

func (o *Orchestrator) Current(ctx context.Context, sessionID string) (*Link, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session is required", ErrInvalidRequest)
	}
	return o.links.Get(ctx, sessionID)
}

func reasonFor(err error) Reason {
	switch {
	case errors.Is(err, appointment.ErrInvalidTransition):
		return ReasonTerminalState
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrInvalidRequest):
		return ReasonInvalidRequest
	case errors.Is(err, ErrLinkUnavailable):
		return ReasonLinkUnavailable
	case errors.Is(err, ErrNoActiveEncounter):
		return ReasonNoActive
	default:
		return ReasonTransientFailure
	}
}
