package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wesm/photogrid/internal/feed"
)

// handleKeyPress processes keyboard input.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKeys(msg)
	}
	switch m.level {
	case levelDetail:
		return m.handleDetailKeys(msg)
	default:
		return m.handleGridKeys(msg)
	}
}

// handleSearchKeys handles keys while the search box has focus. Typing only
// edits the query; nothing is fetched until Enter.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		query := feed.NormalizeQuery(m.searchInput.Value())
		m.searching = false
		m.searchInput.Blur()
		req, _ := m.feed.Begin(query, true)
		return m, m.requestPage(req)

	case "esc":
		m.searching = false
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		return m, nil

	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
}

func (m Model) handleGridKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cols := max(m.window.Columns(), 1)
	page := cols * m.window.VisibleRows()

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "/":
		m.searching = true
		m.searchInput.SetValue(m.feed.Snapshot().Query)
		m.searchInput.CursorEnd()
		return m, m.searchInput.Focus()

	case "esc":
		// Leave search results for the editorial feed
		if m.feed.Snapshot().Query == "" {
			return m, nil
		}
		req, _ := m.feed.Begin("", true)
		return m, m.requestPage(req)

	case "up", "k":
		return m.moveCursor(-cols)
	case "down", "j":
		return m.moveCursor(cols)
	case "left", "h":
		return m.moveCursor(-1)
	case "right", "l":
		return m.moveCursor(1)
	case "pgup", "ctrl+u":
		return m.moveCursor(-page)
	case "pgdown", "ctrl+d":
		return m.moveCursor(page)
	case "home", "g":
		return m.moveCursor(-m.cursor)
	case "end", "G":
		return m.moveCursor(len(m.feed.Snapshot().Photos))

	case "r":
		return m, m.retry()

	case "enter":
		return m.openDetail()
	}
	return m, nil
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc", "backspace", "left", "h":
		m.level = levelGrid
		m.detailRequestID++ // drop any in-flight response
		m.detailLoading = false
		m.detail = nil
		m.detailErr = nil
		return m, nil
	}
	return m, nil
}

// moveCursor moves the cursor by delta photos, scrolls it into view and
// checks whether the new visible range needs the next page.
func (m Model) moveCursor(delta int) (tea.Model, tea.Cmd) {
	n := len(m.feed.Snapshot().Photos)
	if n == 0 {
		return m, nil
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
	m.ensureCursorVisible()
	return m, m.checkVisibleRange()
}

// retry re-requests after a failed fetch: the same page, or the whole query
// when the failure was a reset. Without an error it re-runs the scroll check.
func (m *Model) retry() tea.Cmd {
	s := m.feed.Snapshot()
	if s.Loading {
		return nil
	}
	if !s.HasError() {
		return m.checkVisibleRange()
	}
	req, ok := m.feed.Begin(s.Query, false)
	if !ok {
		return nil
	}
	return m.requestPage(req)
}

// openDetail switches to the detail view for the photo under the cursor.
func (m Model) openDetail() (tea.Model, tea.Cmd) {
	photos := m.feed.Snapshot().Photos
	if m.photos == nil || m.cursor >= len(photos) {
		return m, nil
	}
	m.level = levelDetail
	m.detailPhoto = photos[m.cursor]
	m.detail = nil
	m.detailErr = nil
	m.detailLoading = true
	m.detailRequestID++
	return m, tea.Batch(m.startSpinner(), m.loadDetail(m.detailPhoto.ID))
}
