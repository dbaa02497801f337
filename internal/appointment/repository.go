package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrStatusConflict is returned by SetAppointmentStatus when the row exists but is no longer in the expected state.
	ErrStatusConflict = errors.New("appointment status changed concurrently")
)

// Store is the appointment service's only I/O.
type Store interface {
	FetchAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// SetAppointmentStatus moves id from -> to only if the stored status still equals from.
	SetAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status, reason *string) (*Appointment, error)

	// ListBetween returns appointments starting in [from, to). A nil practitioner lists every practitioner.
	ListBetween(ctx context.Context, practitionerID *uuid.UUID, from, to time.Time) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
