package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/wesm/photogrid/internal/api"
	"github.com/wesm/photogrid/internal/feed"
	"github.com/wesm/photogrid/internal/grid"
	"github.com/wesm/photogrid/internal/scheduler"
)

// sweepJobName is the scheduler job that evicts idle grid sessions.
const sweepJobName = "sweep-sessions"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the photo grid over HTTP",
	Long: `Run the photo grid as an HTTP API for remote renderers.

Each client creates a session (one grid mount), reports its viewport and
visible rows, and reads row data back. Sessions idle for longer than
[server] session_ttl are swept on [server] sweep_schedule.

Configure in config.toml:
  [server]
  api_port = 8080
  bind_addr = "127.0.0.1"
  api_key = "..."            # required when binding beyond loopback
  session_ttl = "30m"
  sweep_schedule = "@every 5m"

Use Ctrl+C to stop the server gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Validate security posture before doing any work
	if err := cfg.Server.ValidateSecure(); err != nil {
		return err
	}

	client, err := newUnsplashClient(logger)
	if err != nil {
		return err
	}

	sessions := api.NewSessionStore(client, api.SessionStoreOptions{
		Feed: feed.Options{
			PerPage:      cfg.Unsplash.PerPage,
			FetchTimeout: cfg.Grid.FetchTimeout.Duration,
		},
		Grid: grid.Config{
			ColumnWidth: cfg.Grid.ColumnWidth,
			RowHeight:   cfg.Grid.RowHeight,
		},
		Logger: logger,
	})

	sched, err := newSweepScheduler(sessions, cfg.Server.SweepSchedule, cfg.Server.SessionTTL.Duration)
	if err != nil {
		sessions.Close()
		return err
	}
	sched.Start()

	apiServer := api.NewServer(cfg, sessions, client, sched, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	fmt.Printf("photogrid server started\n")
	fmt.Printf("  API server: http://%s\n", cfg.Server.Addr())
	fmt.Printf("  Session TTL: %s\n", cfg.Server.SessionTTL.Duration)
	for _, status := range sched.Status() {
		fmt.Printf("  %s: next run at %s\n", status.Name, status.NextRun.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")
	fmt.Println()

	var runErr error
	select {
	case <-cmd.Context().Done():
		logger.Info("shutdown requested")
		fmt.Println("\nShutting down...")
	case err := <-serverErr:
		logger.Error("API server error", "error", err)
		runErr = fmt.Errorf("api server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown error", "error", err)
	}

	select {
	case <-sched.Stop().Done():
		fmt.Println("Shutdown complete.")
	case <-time.After(30 * time.Second):
		fmt.Println("Shutdown timed out after 30 seconds.")
	}
	return runErr
}

// newSweepScheduler schedules the idle-session sweep. An empty schedule
// disables sweeping.
func newSweepScheduler(sessions *api.SessionStore, schedule string, ttl time.Duration) (*scheduler.Scheduler, error) {
	sched := scheduler.New().WithLogger(logger)
	if schedule == "" {
		return sched, nil
	}
	err := sched.AddJob(sweepJobName, schedule, func(ctx context.Context) error {
		sessions.Sweep(ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("schedule session sweep: %w", err)
	}
	return sched, nil
}
