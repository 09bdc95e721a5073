package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/wesm/photogrid/internal/feed"
	"github.com/wesm/photogrid/internal/grid"
	"github.com/wesm/photogrid/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive photo grid",
	Long: `Open the Unsplash editorial feed as an infinitely scrolling grid.

The next page is fetched when the last row scrolls into view.

Navigation:
  ←↑↓→ / hjkl  Move the cell cursor
  PgUp/PgDn    Page up/down
  g/G          First/last loaded photo
  /            Search (Enter to submit, Esc to cancel)
  Esc          Back to the editorial feed
  Enter        Photo details
  r            Retry after an error
  q            Quit

With --verbose, debug logs are written to photogrid.log in the home
directory.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return fmt.Errorf("the photo grid needs a terminal; use 'photogrid search' for scripted output")
	}

	// stderr belongs to the UI, so logs go to a file or nowhere.
	l, closeLog, err := tuiLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := newUnsplashClient(l)
	if err != nil {
		return err
	}

	f := feed.New(client, feed.Options{
		PerPage:      cfg.Unsplash.PerPage,
		FetchTimeout: cfg.Grid.FetchTimeout.Duration,
		Logger:       l,
	})
	win := grid.NewWindow(f, grid.Config{
		ColumnWidth: cfg.Grid.ColumnWidth,
		RowHeight:   cfg.Grid.RowHeight,
	})

	model := tui.New(f, win, client, tui.Options{Version: Version, Logger: l})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// tuiLogger returns the logger used while the grid owns the terminal.
func tuiLogger() (*slog.Logger, func(), error) {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	file, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	l := slog.New(slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return l, func() { _ = file.Close() }, nil
}
