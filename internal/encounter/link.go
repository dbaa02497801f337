package encounter

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrLinkUnavailable = errors.New("encounter link store unavailable")

// Link ties the consultation draft of one workspace session to a patient and, optionally, an appointment.
type Link struct {
	SessionID     string     `json:"session_id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
}

// Links reports whether l points at appointmentID.
func (l *Link) Links(appointmentID uuid.UUID) bool {
	return l != nil && l.AppointmentID != nil && *l.AppointmentID == appointmentID
}

// LinkStore holds at most one link per session.
type LinkStore interface {
	// Get returns nil, nil when the session has no link.
	Get(ctx context.Context, sessionID string) (*Link, error)
	// Set replaces whatever link the session had.
	Set(ctx context.Context, link Link) error
	Clear(ctx context.Context, sessionID string) error
	// ClearIf removes the link only while it still points at appointmentID.
	ClearIf(ctx context.Context, sessionID string, appointmentID uuid.UUID) (bool, error)
}
