package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-encounter-engine/internal/metrics"
)

const (
	EventAppointmentStarted   = "APPOINTMENT_STARTED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
)

var (
	// ErrInvalidTransition covers transitions out of a terminal state and status strings that cannot be normalized.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrRemoteMutationFailed means the store call failed; the remote state must be assumed unchanged.
	ErrRemoteMutationFailed = errors.New("remote mutation failed")
)

type Service struct {
	store   Store
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewService(store Store, logger zerolog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		logger:  logger.With().Str("component", "appointment").Logger(),
		metrics: m,
	}
}

// BeginEncounter moves a scheduled appointment to in progress.
//
// It is safe to call repeatedly from every entry point: an appointment already in progress is
// reported as success without a mutation, and terminal appointments are rejected without one.
// knownStatus, when non-empty, skips the initial fetch; the returned appointment is nil when
// that shortcut ends the call.
func (s *Service) BeginEncounter(ctx context.Context, id uuid.UUID, knownStatus string) (*Appointment, error) {
	var appt *Appointment
	var status Status

	if knownStatus != "" {
		normalized, err := NormalizeStatus(knownStatus)
		if err != nil {
			s.metrics.ObserveTransition(string(StatusInProgress), "invalid")
			return nil, err
		}
		status = normalized
	} else {
		fetched, err := s.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		appt, status = fetched, fetched.Status
	}

	switch {
	case status == StatusInProgress:
		s.metrics.ObserveTransition(string(StatusInProgress), "noop")
		return appt, nil
	case status.IsTerminal():
		s.metrics.ObserveTransition(string(StatusInProgress), "invalid")
		return nil, fmt.Errorf("%w: appointment %s is %s", ErrInvalidTransition, id, status)
	}

	updated, err := s.store.SetAppointmentStatus(ctx, id, status, StatusInProgress, nil)
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return s.resolveBeginConflict(ctx, id)
		}
		return nil, s.mutationFailed(id, StatusInProgress, err)
	}

	s.metrics.ObserveTransition(string(StatusInProgress), "mutated")
	s.logEvent(ctx, id, EventAppointmentStarted, map[string]any{"from": status})
	return updated, nil
}

// resolveBeginConflict handles a lost race: another entry point moved the appointment between our read and write.
func (s *Service) resolveBeginConflict(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	current, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusInProgress {
		s.metrics.ObserveTransition(string(StatusInProgress), "noop")
		return current, nil
	}
	s.metrics.ObserveTransition(string(StatusInProgress), "invalid")
	return nil, fmt.Errorf("%w: appointment %s is %s", ErrInvalidTransition, id, current.Status)
}

// Cancel is permitted from scheduled or in progress.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	var payload map[string]any
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
		payload = map[string]any{"reason": reason}
	}
	return s.transition(ctx, id, StatusCancelled, reasonPtr, EventAppointmentCancelled, payload)
}

// Complete is permitted from in progress only.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCompleted, nil, EventAppointmentCompleted, nil)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status, reason *string, event string, payload map[string]any) (*Appointment, error) {
	appt, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(appt.Status, to) {
		s.metrics.ObserveTransition(string(to), "invalid")
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, to)
	}

	updated, err := s.store.SetAppointmentStatus(ctx, id, appt.Status, to, reason)
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			s.metrics.ObserveTransition(string(to), "invalid")
			return nil, fmt.Errorf("%w: %w", ErrInvalidTransition, err)
		}
		return nil, s.mutationFailed(id, to, err)
	}

	if payload == nil {
		payload = map[string]any{}
	}
	payload["from"] = appt.Status

	s.metrics.ObserveTransition(string(to), "mutated")
	s.logEvent(ctx, id, event, payload)
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.fetch(ctx, id)
}

// ListForDay returns the appointments starting on day's calendar date in day's location.
func (s *Service) ListForDay(ctx context.Context, practitionerID *uuid.UUID, day time.Time) ([]Appointment, error) {
	y, m, d := day.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	appts, err := s.store.ListBetween(ctx, practitionerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments for day: %w", err)
	}
	SortByStart(appts)
	return appts, nil
}

func (s *Service) fetch(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.store.FetchAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load appointment: %w", ErrRemoteMutationFailed, err)
	}
	return appt, nil
}

func (s *Service) mutationFailed(id uuid.UUID, to Status, err error) error {
	s.metrics.ObserveTransition(string(to), "failed")
	s.logger.Warn().Err(err).Str("appointment_id", id.String()).Str("to", string(to)).Msg("status mutation failed")
	if errors.Is(err, ErrAppointmentNotFound) {
		return err
	}
	return fmt.Errorf("%w: set status %s: %w", ErrRemoteMutationFailed, to, err)
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.store.InsertEvent(ctx, ev); err != nil {
		s.logger.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to insert event log")
	}
}
