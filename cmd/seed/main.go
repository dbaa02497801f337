package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-encounter-engine/internal/appointment"
	"github.com/hackgods/clinic-encounter-engine/internal/config"
	"github.com/hackgods/clinic-encounter-engine/internal/db"
	"github.com/hackgods/clinic-encounter-engine/internal/logging"
	"github.com/hackgods/clinic-encounter-engine/internal/notification"
)

var (
	roles       = []string{"doctor", "doctor", "doctor", "nurse", "pharmacist", "receptionist"}
	specialties = []string{
		"General Practice",
		"Cardiology",
		"Dermatology",
		"Endocrinology",
		"Pediatrics",
		"Neurology",
	}
	allergens = []string{"Peanuts", "Penicillin", "Latex", "Shellfish", "Sulfa drugs", "Aspirin", "Eggs", "Pollen"}
	histories = []string{
		"",
		"Type 2 diabetes, managed with metformin",
		"Hypertension",
		"Childhood asthma",
		"Epilepsy, seizure free since 2019",
		"COPD; former smoker",
		"Seasonal allergies",
		"Chronic kidney disease stage 2",
	}
	subjects = []string{"Follow-up", "Annual checkup", "Lab review", "Vaccination", "Prescription renewal", "Consultation"}
)

type practitioner struct {
	id   uuid.UUID
	role string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.LogLevel, cfg.Env)
	logger.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	// 0 seeds from crypto/rand
	_ = gofakeit.Seed(0)
	seedCtx := context.Background()

	practitioners, err := seedPractitioners(seedCtx, pool, 12)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed practitioners")
	}
	logger.Info().Int("count", len(practitioners)).Msg("practitioners seeded")

	patients, err := seedPatients(seedCtx, pool, 300)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}
	logger.Info().Int("count", len(patients)).Msg("patients seeded")

	day := time.Now().In(cfg.ViewerLocation)
	appts, err := seedAppointments(seedCtx, pool, practitioners, patients, day, cfg.TimelineStartHour, cfg.TimelineEndHour)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed appointments")
	}
	logger.Info().Int("count", appts).Msg("appointments seeded")

	notes, err := seedNotifications(seedCtx, notification.NewPgStore(pool), practitioners, patients)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed notifications")
	}
	logger.Info().Int("count", notes).Msg("notifications seeded")

	logger.Info().Msg("seed complete")
}

func seedPractitioners(ctx context.Context, pool *pgxpool.Pool, count int) ([]practitioner, error) {
	out := make([]practitioner, 0, count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		p := practitioner{id: uuid.New(), role: roles[i%len(roles)]}
		_, err := tx.Exec(ctx, `
			INSERT INTO practitioners (id, name, role, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, p.id, "Dr. "+gofakeit.LastName(), p.role, specialties[gofakeit.Number(0, len(specialties)-1)])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, tx.Commit(ctx)
}

// randomAllergies returns the allergy column in one of the shapes found in real data.
func randomAllergies() *string {
	n := gofakeit.Number(0, 3)
	if n == 0 {
		return nil
	}
	first := gofakeit.Number(0, len(allergens)-1)
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		names = append(names, allergens[(first+i)%len(allergens)])
	}

	var raw []byte
	switch gofakeit.Number(0, 2) {
	case 0:
		// jsonb array
		raw, _ = json.Marshal(names)
	case 1:
		// jsonb string holding a comma separated list
		raw, _ = json.Marshal(strings.Join(names, ", "))
	default:
		// jsonb string holding an encoded array
		inner, _ := json.Marshal(names)
		raw, _ = json.Marshal(string(inner))
	}
	s := string(raw)
	return &s
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	const batchSize = 100
	out := make([]uuid.UUID, 0, count)

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		batch := &pgx.Batch{}
		for i := offset; i < end; i++ {
			id := uuid.New()
			batch.Queue(`
				INSERT INTO patients (id, name, email, allergies, medical_history, created_at, updated_at)
				VALUES ($1, $2, $3, $4::jsonb, $5, now(), now())
			`, id, gofakeit.Name(), gofakeit.Email(), randomAllergies(), histories[gofakeit.Number(0, len(histories)-1)])
			out = append(out, id)
		}

		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return nil, fmt.Errorf("patients %d-%d: %w", offset, end, err)
		}
	}

	return out, nil
}

// seedAppointments fills each doctor's day with back-to-back and overlapping appointments,
// with the statuses a clinic would have mid-day.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool, practitioners []practitioner, patients []uuid.UUID, day time.Time, startHour, endHour int) (int, error) {
	y, m, d := day.Date()
	durations := []int{15, 20, 30, 30, 45, 60}
	statuses := []appointment.Status{
		appointment.StatusScheduled,
		appointment.StatusScheduled,
		appointment.StatusScheduled,
		appointment.StatusInProgress,
		appointment.StatusCompleted,
		appointment.StatusCancelled,
	}

	batch := &pgx.Batch{}
	count := 0
	for _, p := range practitioners {
		if p.role != "doctor" {
			continue
		}
		// start a little before the visible window so clipping shows up on the timeline
		cursor := time.Date(y, m, d, startHour, 0, 0, 0, day.Location()).Add(-30 * time.Minute)
		closing := time.Date(y, m, d, endHour, 0, 0, 0, day.Location())

		for cursor.Before(closing) {
			duration := durations[gofakeit.Number(0, len(durations)-1)]
			status := statuses[gofakeit.Number(0, len(statuses)-1)]

			var reason *string
			if status == appointment.StatusCancelled {
				r := gofakeit.RandomString([]string{"Patient called", "No show", "Rescheduled"})
				reason = &r
			}

			batch.Queue(`
				INSERT INTO appointments (id, patient_id, practitioner_id, start_time, duration_minutes, status,
				                          cancel_reason, subject, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			`, uuid.New(), patients[gofakeit.Number(0, len(patients)-1)], p.id, cursor, duration, status,
				reason, subjects[gofakeit.Number(0, len(subjects)-1)])
			count++

			step := time.Duration(duration) * time.Minute
			if gofakeit.Bool() {
				// overlap the next one
				step = step / 2
			}
			cursor = cursor.Add(step)
		}
	}

	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return 0, err
	}
	return count, nil
}

func seedNotifications(ctx context.Context, store notification.Store, practitioners []practitioner, patients []uuid.UUID) (int, error) {
	type template struct {
		kind     string
		category notification.Category
		severity notification.Severity
		title    string
		message  func(patient string) string
	}
	templates := []template{
		{"lab_result", notification.CategoryClinical, notification.SeverityWarning, "Lab result ready",
			func(string) string { return "HbA1c result available for review" }},
		{"allergy_update", notification.CategoryClinical, notification.SeverityError, "Allergy record updated",
			func(string) string {
				return fmt.Sprintf(`Patient has allergies: ["%s"]`, allergens[gofakeit.Number(0, len(allergens)-1)])
			}},
		{"patient_registered", notification.CategoryPatient, notification.SeverityInfo, "New patient",
			func(p string) string { return "Registered " + p }},
		{"document_signed", notification.CategoryDocument, notification.SeveritySuccess, "Document signed",
			func(string) string { return "Referral letter signed" }},
		{"refill_request", notification.CategoryPharmacy, notification.SeverityWarning, "Refill request",
			func(string) string { return `Refill requested: ["Metformin", "Lisinopril"]` }},
		{"maintenance", notification.CategorySystem, notification.SeverityInfo, "Scheduled maintenance",
			func(string) string { return "System maintenance tonight at 23:00" }},
	}

	now := time.Now()
	count := 0
	for _, p := range practitioners {
		for i := 0; i < 8; i++ {
			tpl := templates[gofakeit.Number(0, len(templates)-1)]
			target := patients[gofakeit.Number(0, len(patients)-1)].String()
			n := notification.Notification{
				ViewerID:  p.id,
				Kind:      tpl.kind,
				Severity:  tpl.severity,
				Category:  tpl.category,
				Title:     tpl.title,
				Message:   tpl.message(gofakeit.Name()),
				CreatedAt: now.Add(-time.Duration(gofakeit.Number(1, 60*24*14)) * time.Minute),
				TargetID:  &target,
			}
			inserted, err := store.Insert(ctx, n)
			if err != nil {
				return count, err
			}
			if inserted {
				count++
			}
		}
	}
	return count, nil
}
