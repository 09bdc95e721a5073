// Package tui provides the interactive terminal photo grid.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wesm/photogrid/internal/feed"
	"github.com/wesm/photogrid/internal/grid"
	"github.com/wesm/photogrid/internal/photo"
)

// PhotoSource fetches the details shown in the detail view. A nil detail
// with a nil error means the photo does not exist.
type PhotoSource interface {
	GetPhoto(ctx context.Context, id string) (*photo.Detail, error)
}

// Options configures the TUI model.
type Options struct {
	Version string
	Logger  *slog.Logger
}

type viewLevel int

const (
	levelGrid viewLevel = iota
	levelDetail
)

// chromeLines is the number of lines around the grid: title bar, search
// line, error banner, status line and footer.
const chromeLines = 5

// Model is the bubbletea model for the photo grid.
type Model struct {
	feed    *feed.Feed
	window  *grid.Window
	photos  PhotoSource
	version string
	logger  *slog.Logger

	level viewLevel

	// Terminal dimensions
	width  int
	height int

	// Grid navigation: cursor is an index into the feed's photos, scroll is
	// the first visible row.
	cursor int
	scroll int

	// Search box
	searchInput textinput.Model
	searching   bool

	// Detail view
	detailPhoto     photo.Photo
	detail          *photo.Detail
	detailErr       error
	detailLoading   bool
	detailRequestID uint64 // Current request ID for photo detail

	spinnerFrame  int  // Current frame index into spinnerFrames
	spinnerActive bool // True when spinner tick is running

	quitting bool
}

// New creates a TUI model over f. The window must wrap the same feed.
func New(f *feed.Feed, win *grid.Window, photos PhotoSource, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "search photos"
	ti.CharLimit = 200
	ti.Width = 50

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return Model{
		feed:          f,
		window:        win,
		photos:        photos,
		version:       opts.Version,
		logger:        opts.Logger,
		level:         levelGrid,
		searchInput:   ti,
		spinnerActive: true,
	}
}

// pageLoadedMsg carries a fetched page back into the update loop.
type pageLoadedMsg struct {
	res feed.Result
}

// detailLoadedMsg is sent when a photo's details are fetched.
type detailLoadedMsg struct {
	detail    *photo.Detail
	err       error
	requestID uint64
}

type spinnerTickMsg struct{}

// spinnerFrames are the Braille dot animation frames for the loading spinner.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinnerInterval is how fast the spinner animates.
const spinnerInterval = 80 * time.Millisecond

// Init implements tea.Model. It starts loading the editorial feed.
func (m Model) Init() tea.Cmd {
	req, ok := m.feed.Begin("", false)
	if !ok {
		return spinnerTick()
	}
	return tea.Batch(m.fetchPage(req), spinnerTick())
}

// fetchPage runs req against the repository off the update loop. The feed
// is not touched until the result comes back as a pageLoadedMsg.
func (m Model) fetchPage(req feed.Request) tea.Cmd {
	f := m.feed
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = pageLoadedMsg{res: feed.Result{Request: req, Err: fmt.Errorf("internal error: %v", r)}}
			}
		}()
		return pageLoadedMsg{res: f.Fetch(context.Background(), req)}
	}
}

// loadDetail fetches a single photo's details.
func (m Model) loadDetail(id string) tea.Cmd {
	requestID := m.detailRequestID
	photos := m.photos
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = detailLoadedMsg{err: fmt.Errorf("photo detail panic: %v", r), requestID: requestID}
			}
		}()

		detail, err := photos.GetPhoto(context.Background(), id)
		return detailLoadedMsg{detail: detail, err: err, requestID: requestID}
	}
}

// spinnerTick returns a command that fires a spinnerTickMsg after the spinner interval.
func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

// startSpinner returns a spinnerTick command if the spinner isn't already active,
// and marks it as active. Call this when loading begins.
func (m *Model) startSpinner() tea.Cmd {
	if m.spinnerActive {
		return nil
	}
	m.spinnerActive = true
	m.spinnerFrame = 0
	return spinnerTick()
}

// requestPage fetches a page the feed has already claimed.
func (m *Model) requestPage(req feed.Request) tea.Cmd {
	return tea.Batch(m.startSpinner(), m.fetchPage(req))
}

// loading reports whether anything the user is waiting for is in flight.
func (m Model) loading() bool {
	return m.feed.Snapshot().Loading || m.detailLoading
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 0)
		m.height = max(msg.Height, 0)
		m.window.Resize(m.width, max(m.height-chromeLines, 0))
		m.ensureCursorVisible()
		return m, m.checkVisibleRange()

	case pageLoadedMsg:
		if !m.feed.Complete(msg.res) {
			// Superseded by a newer search
			return m, nil
		}
		if msg.res.Err != nil {
			m.clampCursor()
			return m, nil
		}
		if msg.res.Reset {
			m.cursor = 0
			m.scroll = 0
		}
		m.clampCursor()
		// A short page can leave the last row on screen. Failures wait for r.
		return m, m.checkVisibleRange()

	case detailLoadedMsg:
		if msg.requestID != m.detailRequestID {
			return m, nil
		}
		m.detailLoading = false
		m.detail = msg.detail
		m.detailErr = msg.err
		if msg.err != nil {
			m.logger.Warn("tui: photo detail failed", "id", m.detailPhoto.ID, "error", msg.err)
		}
		return m, nil

	case spinnerTickMsg:
		if m.loading() {
			m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
			return m, spinnerTick()
		}
		m.spinnerActive = false
		return m, nil
	}

	if m.searching {
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// visibleRange returns the rows currently on screen. The range is empty
// (Last < First) when there are no rows.
func (m Model) visibleRange() grid.Range {
	rows := m.window.RowCount()
	last := min(m.scroll+m.window.VisibleRows(), rows) - 1
	return grid.Range{First: m.scroll, Last: last}
}

// checkVisibleRange reports the visible rows to the window and starts the
// page fetch it asks for, if any.
func (m *Model) checkVisibleRange() tea.Cmd {
	r := m.visibleRange()
	if r.Last < r.First {
		return nil
	}
	req, ok := m.window.OnVisibleRangeChange(r)
	if !ok {
		return nil
	}
	return m.requestPage(req)
}

// clampCursor keeps the cursor on a loaded photo and visible.
func (m *Model) clampCursor() {
	n := len(m.feed.Snapshot().Photos)
	if m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.ensureCursorVisible()
}

// ensureCursorVisible scrolls so the cursor's row is on screen.
func (m *Model) ensureCursorVisible() {
	cols := m.window.Columns()
	if cols == 0 {
		m.scroll = 0
		return
	}
	row := m.cursor / cols
	vis := m.window.VisibleRows()
	if row < m.scroll {
		m.scroll = row
	}
	if row >= m.scroll+vis {
		m.scroll = row - vis + 1
	}
	m.scroll = max(min(m.scroll, m.window.RowCount()-vis), 0)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.width == 0 {
		return "Loading..."
	}

	return m.renderView()
}

// renderView renders the current view based on the active level.
func (m Model) renderView() string {
	switch m.level {
	case levelDetail:
		return fmt.Sprintf("%s\n%s\n%s\n%s",
			m.buildTitleBar(),
			m.detailView(),
			m.renderInfoLine("", m.detailLoading),
			m.footerView(),
		)
	default:
		return fmt.Sprintf("%s\n%s\n%s\n%s",
			m.headerView(),
			m.gridView(),
			m.statusLine(),
			m.footerView(),
		)
	}
}
