package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-encounter-engine/internal/appointment"
	"github.com/hackgods/clinic-encounter-engine/internal/encounter"
	"github.com/hackgods/clinic-encounter-engine/internal/notification"
	"github.com/hackgods/clinic-encounter-engine/internal/timeline"
)

type BeginEncounterRequest struct {
	KnownStatus string `json:"known_status,omitempty"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

type StartEncounterRequest struct {
	PatientID     string `json:"patient_id"`
	AppointmentID string `json:"appointment_id,omitempty"`
	KnownStatus   string `json:"known_status,omitempty"`
}

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient_id"`
	PractitionerID  uuid.UUID `json:"practitioner_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	CancelReason    *string   `json:"cancel_reason,omitempty"`
	Subject         string    `json:"subject,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) *AppointmentResponse {
	if a == nil {
		return nil
	}
	return &AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		PractitionerID:  a.PractitionerID,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime(),
		DurationMinutes: int(a.Duration().Minutes()),
		Status:          string(a.Status),
		CancelReason:    a.CancelReason,
		Subject:         a.Subject,
	}
}

// BeginResponse reports the outcome of a begin call. Appointment is omitted when a known
// in-progress status short-circuited the fetch.
type BeginResponse struct {
	ID          uuid.UUID            `json:"id"`
	Status      string               `json:"status"`
	Appointment *AppointmentResponse `json:"appointment,omitempty"`
}

type TimelineBlockResponse struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Offset        float64   `json:"offset"`
	Height        float64   `json:"height"`
}

type TimelineResponse struct {
	Date         string                  `json:"date"`
	StartHour    int                     `json:"start_hour"`
	EndHour      int                     `json:"end_hour"`
	Span         float64                 `json:"span"`
	Blocks       []TimelineBlockResponse `json:"blocks"`
	Appointments []AppointmentResponse   `json:"appointments"`
}

func toTimelineBlocks(blocks []timeline.Block) []TimelineBlockResponse {
	out := make([]TimelineBlockResponse, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, TimelineBlockResponse{
			AppointmentID: b.AppointmentID,
			Start:         b.Start,
			End:           b.End,
			Offset:        b.Offset,
			Height:        b.Height,
		})
	}
	return out
}

type LinkResponse struct {
	SessionID     string     `json:"session_id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
}

func toLinkResponse(l *encounter.Link) *LinkResponse {
	if l == nil {
		return nil
	}
	return &LinkResponse{
		SessionID:     l.SessionID,
		PatientID:     l.PatientID,
		AppointmentID: l.AppointmentID,
		StartedAt:     l.StartedAt,
	}
}

type EncounterResponse struct {
	OK          bool                 `json:"ok"`
	Reason      string               `json:"reason,omitempty"`
	Retryable   bool                 `json:"retryable,omitempty"`
	Details     string               `json:"details,omitempty"`
	Link        *LinkResponse        `json:"link"`
	Appointment *AppointmentResponse `json:"appointment,omitempty"`
}

type NotificationResponse struct {
	ID           string            `json:"id"`
	Kind         string            `json:"kind,omitempty"`
	Source       string            `json:"source"`
	Severity     string            `json:"severity"`
	Category     string            `json:"category"`
	Title        string            `json:"title"`
	Message      string            `json:"message"`
	Read         bool              `json:"read"`
	Archivable   bool              `json:"archivable"`
	CreatedAt    time.Time         `json:"created_at"`
	RelativeTime string            `json:"relative_time"`
	TargetID     *string           `json:"target_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type NotificationGroupResponse struct {
	Bucket string                 `json:"bucket"`
	Items  []NotificationResponse `json:"items"`
}

type FeedResponse struct {
	Unread int                         `json:"unread"`
	Total  int                         `json:"total"`
	Groups []NotificationGroupResponse `json:"groups"`
}

func toFeedResponse(feed *notification.Feed) FeedResponse {
	resp := FeedResponse{
		Unread: feed.Unread,
		Total:  feed.Total,
		Groups: make([]NotificationGroupResponse, 0, len(feed.Groups)),
	}
	for _, g := range feed.Groups {
		group := NotificationGroupResponse{Bucket: string(g.Bucket), Items: make([]NotificationResponse, 0, len(g.Items))}
		for _, it := range g.Items {
			group.Items = append(group.Items, NotificationResponse{
				ID:           it.ID,
				Kind:         it.Kind,
				Source:       string(it.Source),
				Severity:     string(it.Severity),
				Category:     string(it.Category),
				Title:        it.Title,
				Message:      it.DisplayMessage,
				Read:         it.Read,
				Archivable:   it.Archivable,
				CreatedAt:    it.CreatedAt,
				RelativeTime: it.RelativeTime,
				TargetID:     it.TargetID,
				Metadata:     it.Metadata,
			})
		}
		resp.Groups = append(resp.Groups, group)
	}
	return resp
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
