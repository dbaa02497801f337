package reminder

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-encounter-engine/internal/appointment"
	"github.com/hackgods/clinic-encounter-engine/internal/notification"
)

const Kind = "appointment_reminder"

// Appointments lists appointments starting in [from, to).
type Appointments interface {
	ListBetween(ctx context.Context, practitionerID *uuid.UUID, from, to time.Time) ([]appointment.Appointment, error)
}

// Notifications is the insert side of the notification service.
type Notifications interface {
	Insert(ctx context.Context, n notification.Notification) (bool, error)
}

// Runner sends each practitioner one "upcoming appointment" notification per scheduled appointment.
type Runner struct {
	appointments  Appointments
	notifications Notifications
	lead          time.Duration
	location      *time.Location
	logger        zerolog.Logger
	now           func() time.Time
}

func NewRunner(appointments Appointments, notifications Notifications, lead time.Duration, loc *time.Location, logger zerolog.Logger) *Runner {
	if loc == nil {
		loc = time.Local
	}
	return &Runner{
		appointments:  appointments,
		notifications: notifications,
		lead:          lead,
		location:      loc,
		logger:        logger.With().Str("component", "reminder").Logger(),
		now:           time.Now,
	}
}

type Stats struct {
	Due      int
	Inserted int
	Skipped  int
	Failed   int
}

// RunOnce reminds about scheduled appointments starting within the lead time.
// Appointments already reminded about are skipped by the store, so overlapping runs are harmless.
func (r *Runner) RunOnce(ctx context.Context) (Stats, error) {
	var stats Stats
	now := r.now()

	appts, err := r.appointments.ListBetween(ctx, nil, now, now.Add(r.lead))
	if err != nil {
		return stats, fmt.Errorf("list upcoming appointments: %w", err)
	}
	appointment.SortByStart(appts)

	for _, appt := range appts {
		if appt.Status != appointment.StatusScheduled {
			continue
		}
		stats.Due++

		inserted, err := r.notifications.Insert(ctx, r.reminderFor(appt, now))
		if err != nil {
			stats.Failed++
			r.logger.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to insert reminder")
			continue
		}
		if inserted {
			stats.Inserted++
		} else {
			stats.Skipped++
		}
	}

	if ctx.Err() != nil {
		return stats, ctx.Err()
	}
	return stats, nil
}

func (r *Runner) reminderFor(appt appointment.Appointment, now time.Time) notification.Notification {
	target := appt.ID.String()
	start := appt.StartTime.In(r.location)
	minutes := int(appt.Duration().Minutes())

	msg := fmt.Sprintf("Appointment at %s (%d min)", start.Format("15:04"), minutes)
	if appt.Subject != "" {
		msg = fmt.Sprintf("%s: %s", msg, appt.Subject)
	}

	return notification.Notification{
		ViewerID:  appt.PractitionerID,
		Kind:      Kind,
		Severity:  notification.SeverityInfo,
		Category:  notification.CategoryAppointment,
		Title:     "Upcoming appointment",
		Message:   msg,
		CreatedAt: now,
		TargetID:  &target,
		Metadata: map[string]string{
			"appointment_id":   target,
			"patient_id":       appt.PatientID.String(),
			"starts_at":        appt.StartTime.UTC().Format(time.RFC3339),
			"minutes_until":    strconv.Itoa(int(appt.StartTime.Sub(now).Minutes())),
			"duration_minutes": strconv.Itoa(minutes),
		},
	}
}
