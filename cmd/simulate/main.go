package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hackgods/clinic-encounter-engine/internal/appointment"
	"github.com/hackgods/clinic-encounter-engine/internal/config"
	"github.com/hackgods/clinic-encounter-engine/internal/db"
	"github.com/hackgods/clinic-encounter-engine/internal/logging"
)

type SimConfig struct {
	APIBaseURL       string
	Appointments     int
	EntryPoints      int
	RequestsPerSec   float64
	Burst            int
	KnownStatusRatio float64
	PostgresDSN      string
}

// target is a scheduled appointment every entry point will try to begin at once.
type target struct {
	ID        uuid.UUID
	PatientID uuid.UUID
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	p50 = latencies[len(latencies)*50/100]
	p95 = latencies[min(len(latencies)*95/100, len(latencies)-1)]
	max = latencies[len(latencies)-1]
	return avg, p50, p95, max
}

type Metrics struct {
	Begin     OperationMetrics
	Encounter OperationMetrics
}

type Simulator struct {
	config  SimConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
	metrics Metrics
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load base config")
	}
	logger := logging.New(baseCfg.LogLevel, baseCfg.Env)

	cfg := SimConfig{
		APIBaseURL:       getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Appointments:     getInt("SIM_APPOINTMENTS", 50),
		EntryPoints:      getInt("SIM_ENTRY_POINTS", 3),
		RequestsPerSec:   getFloat("SIM_RPS", 200),
		Burst:            getInt("SIM_BURST", 20),
		KnownStatusRatio: getFloat("SIM_KNOWN_STATUS_RATIO", 0.5),
		PostgresDSN:      baseCfg.PostgresDSN,
	}
	if cfg.Appointments <= 0 || cfg.EntryPoints <= 0 || cfg.RequestsPerSec <= 0 {
		logger.Fatal().Msg("SIM_APPOINTMENTS, SIM_ENTRY_POINTS and SIM_RPS must be > 0")
	}

	logger.Info().
		Int("appointments", cfg.Appointments).
		Int("entry_points", cfg.EntryPoints).
		Float64("rps", cfg.RequestsPerSec).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	targets, err := loadTargets(ctx, pgPool, cfg.Appointments)
	if err != nil {
		logger.Fatal().Err(err).Msg("load scheduled appointments")
	}
	logger.Info().Int("count", len(targets)).Msg("loaded scheduled appointments")

	sim := &Simulator{
		config:  cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		logger:  logger,
	}

	sim.Run(context.Background(), targets)

	started, err := countStartedEvents(context.Background(), pgPool, targets)
	if err != nil {
		logger.Fatal().Err(err).Msg("count started events")
	}

	sim.PrintReport(targets, started)
}

func loadTargets(ctx context.Context, pool *pgxpool.Pool, limit int) ([]target, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, patient_id
		FROM appointments
		WHERE status = $1
		ORDER BY start_time
		LIMIT $2
	`, appointment.StatusScheduled, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []target
	for rows.Next() {
		var t target
		if err := rows.Scan(&t.ID, &t.PatientID); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no scheduled appointments, run the seed first")
	}
	return targets, nil
}

// countStartedEvents returns how many APPOINTMENT_STARTED events each target produced.
func countStartedEvents(ctx context.Context, pool *pgxpool.Pool, targets []target) (map[uuid.UUID]int, error) {
	ids := make([]uuid.UUID, 0, len(targets))
	for _, t := range targets {
		ids = append(ids, t.ID)
	}

	rows, err := pool.Query(ctx, `
		SELECT appointment_id, count(*)
		FROM event_logs
		WHERE event_type = $1 AND appointment_id = ANY($2)
		GROUP BY appointment_id
	`, appointment.EventAppointmentStarted, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int, len(targets))
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// Run fires every entry point at every target at the same moment: deep links and calendar
// tiles call begin directly, notification actions start a full encounter.
func (s *Simulator) Run(ctx context.Context, targets []target) {
	var wg sync.WaitGroup
	for i, t := range targets {
		gate := make(chan struct{})
		for entry := 0; entry < s.config.EntryPoints; entry++ {
			wg.Add(1)
			go func(entry int) {
				defer wg.Done()
				rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(i*31+entry)))
				<-gate
				if err := s.limiter.Wait(ctx); err != nil {
					return
				}
				if entry%2 == 0 {
					s.doBegin(ctx, rng, t)
				} else {
					s.doStartEncounter(ctx, t, fmt.Sprintf("sim-%d-%d", i, entry))
				}
			}(entry)
		}
		close(gate)
	}
	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) doBegin(ctx context.Context, rng *rand.Rand, t target) {
	var body []byte
	if rng.Float64() < s.config.KnownStatusRatio {
		// calendar tiles send the status they rendered
		body, _ = json.Marshal(map[string]string{"known_status": "pending"})
	}

	start := time.Now()
	resp, err := s.post(ctx, fmt.Sprintf("/appointments/%s/begin", t.ID), body, nil)
	latency := time.Since(start)

	success, conflict := false, false
	if err == nil {
		resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
		conflict = resp.StatusCode == http.StatusConflict
	}
	s.metrics.Begin.Record(latency, success, conflict)
}

func (s *Simulator) doStartEncounter(ctx context.Context, t target, session string) {
	body, _ := json.Marshal(map[string]string{
		"patient_id":     t.PatientID.String(),
		"appointment_id": t.ID.String(),
	})

	start := time.Now()
	resp, err := s.post(ctx, "/encounters/start", body, map[string]string{"X-Workspace-Session": session})
	latency := time.Since(start)

	success, conflict := false, false
	if err == nil {
		resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
		conflict = resp.StatusCode == http.StatusConflict
	}
	s.metrics.Encounter.Record(latency, success, conflict)

	// leave the workspace clean for the next run
	if success {
		if resp, err := s.post(ctx, "/encounters/end", nil, map[string]string{"X-Workspace-Session": session}); err == nil {
			resp.Body.Close()
		}
	}
}

func (s *Simulator) post(ctx context.Context, path string, body []byte, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return s.client.Do(req)
}

func (s *Simulator) PrintReport(targets []target, started map[uuid.UUID]int) {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Appointments: %d\n", len(targets))
	fmt.Printf("Entry points per appointment: %d\n", s.config.EntryPoints)
	fmt.Println()

	printOperationReport("Begin", &s.metrics.Begin)
	printOperationReport("Start encounter", &s.metrics.Encounter)

	var duplicated, missing int
	for _, t := range targets {
		switch n := started[t.ID]; {
		case n > 1:
			duplicated++
		case n == 0:
			missing++
		}
	}
	fmt.Printf("Started events: duplicated=%d missing=%d\n", duplicated, missing)
	if duplicated > 0 {
		fmt.Println("FAIL: some appointments were started more than once")
		os.Exit(1)
	}
	fmt.Println("OK: every appointment was started at most once")
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	errs := atomic.LoadInt64(&om.Error)
	avg, p50, p95, max := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if errs > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errs, float64(errs)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), max.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
