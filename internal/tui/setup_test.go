package tui

import (
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/wesm/photogrid/internal/feed"
	"github.com/wesm/photogrid/internal/feed/feedtest"
	"github.com/wesm/photogrid/internal/grid"
)

// ansiStart is the escape sequence prefix found in styled terminal output.
const ansiStart = "\x1b["

// colorProfileMu serializes tests that mutate the global lipgloss color profile.
var colorProfileMu sync.Mutex

// forceColorProfile sets lipgloss to ANSI color output for tests that assert
// on styled output. It acquires colorProfileMu to prevent data races with
// parallel tests and restores the original profile via t.Cleanup.
func forceColorProfile(t *testing.T) {
	t.Helper()
	colorProfileMu.Lock()
	orig := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.ANSI)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(orig)
		colorProfileMu.Unlock()
	})
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// Test geometry: 3 columns of 30 cells, rows 3 lines high, 2 rows on screen,
// 9 photos (3 rows) per page.
const (
	testWidth   = 90
	testHeight  = chromeLines + 2*testRowH
	testColW    = 30
	testRowH    = 3
	testPerPage = 9
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRawModel builds a model without running Init or sizing it.
func newRawModel(repo *feedtest.MockRepository) Model {
	f := feed.New(repo, feed.Options{PerPage: testPerPage, Logger: discardLogger()})
	win := grid.NewWindow(f, grid.Config{ColumnWidth: testColW, RowHeight: testRowH})
	return New(f, win, repo, Options{Version: "test", Logger: discardLogger()})
}

// newTestModel builds a sized model and runs the initial load to completion.
func newTestModel(t *testing.T, repo *feedtest.MockRepository) Model {
	t.Helper()
	m := newRawModel(repo)
	initCmd := m.Init()
	m, sizeCmd := update(t, m, tea.WindowSizeMsg{Width: testWidth, Height: testHeight})
	if sizeCmd != nil {
		t.Fatal("resize during the initial load requested a page")
	}
	return drive(t, m, initCmd)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return nm, cmd
}

// collect runs cmd and returns every message it produces, flattening batches.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// drive runs cmd and feeds the resulting load messages back into the model
// until no more commands are produced. Spinner ticks are dropped.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for cmd != nil {
		var next []tea.Cmd
		for _, msg := range collect(cmd) {
			switch msg.(type) {
			case pageLoadedMsg, detailLoadedMsg:
				var c tea.Cmd
				m, c = update(t, m, msg)
				next = append(next, c)
			}
		}
		cmd = tea.Batch(next...)
	}
	return m
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyType(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

// press sends a key and returns the model and command it produced.
func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	return update(t, m, k)
}
