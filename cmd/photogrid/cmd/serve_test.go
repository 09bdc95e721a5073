package cmd

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/wesm/photogrid/internal/api"
	"github.com/wesm/photogrid/internal/config"
	"github.com/wesm/photogrid/internal/feed/feedtest"
	"github.com/wesm/photogrid/internal/grid"
	"github.com/wesm/photogrid/internal/testutil"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestServeConfigParsing(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "config.toml", []byte(`
[unsplash]
access_key = "k"

[server]
api_port = 9090
api_key = "test-key"
session_ttl = "10m"
sweep_schedule = "@every 1m"
`))
	c, err := config.Load(path, dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Server.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.Server.APIPort)
	}
	if c.Server.SessionTTL.Duration != 10*time.Minute {
		t.Errorf("SessionTTL = %v, want 10m", c.Server.SessionTTL.Duration)
	}
	if c.Server.SweepSchedule != "@every 1m" {
		t.Errorf("SweepSchedule = %q", c.Server.SweepSchedule)
	}
}

func TestNewSweepScheduler_EvictsIdleSessions(t *testing.T) {
	savedLogger := logger
	defer func() { logger = savedLogger }()
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	sessions := api.NewSessionStore(&feedtest.MockRepository{}, api.SessionStoreOptions{
		Grid:   grid.Config{ColumnWidth: 10, RowHeight: 2},
		Logger: logger,
		Now:    clock.Now,
	})
	defer sessions.Close()
	sessions.Create(40, 10)

	sched, err := newSweepScheduler(sessions, "@every 1h", 30*time.Minute)
	if err != nil {
		t.Fatalf("newSweepScheduler: %v", err)
	}
	defer sched.Stop()
	if !sched.IsScheduled(sweepJobName) {
		t.Fatalf("job %q not scheduled", sweepJobName)
	}

	clock.Advance(31 * time.Minute)
	if err := sched.TriggerJob(sweepJobName); err != nil {
		t.Fatalf("TriggerJob: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sessions.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("sessions.Len() = %d after sweep, want 0", sessions.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewSweepScheduler_EmptyScheduleDisables(t *testing.T) {
	savedLogger := logger
	defer func() { logger = savedLogger }()
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	sessions := api.NewSessionStore(&feedtest.MockRepository{}, api.SessionStoreOptions{Logger: logger})
	defer sessions.Close()

	sched, err := newSweepScheduler(sessions, "", time.Minute)
	if err != nil {
		t.Fatalf("newSweepScheduler: %v", err)
	}
	if len(sched.Status()) != 0 {
		t.Errorf("Status() = %v, want no jobs", sched.Status())
	}
}

func TestNewSweepScheduler_InvalidSchedule(t *testing.T) {
	savedLogger := logger
	defer func() { logger = savedLogger }()
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	sessions := api.NewSessionStore(&feedtest.MockRepository{}, api.SessionStoreOptions{Logger: logger})
	defer sessions.Close()

	if _, err := newSweepScheduler(sessions, "not a schedule", time.Minute); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestRunServe_RefusesUnauthenticatedPublicBind(t *testing.T) {
	savedCfg := cfg
	defer func() { cfg = savedCfg }()
	cfg = config.Defaults(t.TempDir())
	cfg.Server.BindAddr = "0.0.0.0"

	c, _ := newTestCommand()
	if err := runServe(c, nil); err == nil {
		t.Error("expected refusal without api_key")
	}
}
