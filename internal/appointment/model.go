package appointment

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// DefaultDurationMinutes applies when an appointment carries no usable duration.
const DefaultDurationMinutes = 30

// statusSynonyms maps every status spelling callers are known to send onto the canonical four states.
var statusSynonyms = map[string]Status{
	"scheduled":   StatusScheduled,
	"pending":     StatusScheduled,
	"booked":      StatusScheduled,
	"proposed":    StatusScheduled,
	"in_progress": StatusInProgress,
	"inprogress":  StatusInProgress,
	"confirmed":   StatusInProgress,
	"arrived":     StatusInProgress,
	"checked_in":  StatusInProgress,
	"completed":   StatusCompleted,
	"complete":    StatusCompleted,
	"fulfilled":   StatusCompleted,
	"done":        StatusCompleted,
	"cancelled":   StatusCancelled,
	"canceled":    StatusCancelled,
	"no_show":     StatusCancelled,
	"noshow":      StatusCancelled,
}

var allowedTransitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// NormalizeStatus maps an externally supplied status onto the canonical vocabulary.
// Case, surrounding space and '-'/' ' separators are ignored.
func NormalizeStatus(raw string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if s, ok := statusSynonyms[key]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: unrecognized status %q", ErrInvalidTransition, raw)
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID              uuid.UUID
	PatientID       uuid.UUID
	PractitionerID  uuid.UUID
	StartTime       time.Time
	DurationMinutes int
	Status          Status
	CancelReason    *string
	Subject         string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a Appointment) Duration() time.Duration {
	minutes := a.DurationMinutes
	if minutes <= 0 {
		minutes = DefaultDurationMinutes
	}
	return time.Duration(minutes) * time.Minute
}

func (a Appointment) EndTime() time.Time {
	return a.StartTime.Add(a.Duration())
}

// SortByStart orders appointments ascending by start time, ties broken by id.
func SortByStart(appts []Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		if !appts[i].StartTime.Equal(appts[j].StartTime) {
			return appts[i].StartTime.Before(appts[j].StartTime)
		}
		return bytes.Compare(appts[i].ID[:], appts[j].ID[:]) < 0
	})
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
