// Package grid windows the photo feed onto a viewport: it lays the photos out
// in rows, hands out only the rows a renderer asks for, and requests the next
// page when the last known row scrolls into view.
//
// There is no prefetch distance: a page is requested only once the last row
// is visible, so the user may briefly wait at the bottom of the grid.
package grid

import (
	"sync"

	"github.com/wesm/photogrid/internal/feed"
	"github.com/wesm/photogrid/internal/layout"
	"github.com/wesm/photogrid/internal/photo"
)

// Default cell geometry in terminal cells.
const (
	DefaultColumnWidth = 32
	DefaultRowHeight   = 4
)

// Pager is the part of feed.Feed the window needs.
type Pager interface {
	Snapshot() feed.State
	Begin(query string, reset bool) (feed.Request, bool)
}

// Range is an inclusive span of row indices reported by a renderer.
type Range struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

// Surface is what a renderer needs to lay out and scroll the grid.
type Surface struct {
	Columns   int `json:"columns"`
	RowCount  int `json:"row_count"`
	RowHeight int `json:"row_height"`
}

// Config sets the cell geometry of a Window.
type Config struct {
	ColumnWidth int // minimum column width
	RowHeight   int
}

// Window is the windowed view over a Pager. It is safe for concurrent use.
type Window struct {
	pager       Pager
	columnWidth int
	rowHeight   int

	mu     sync.Mutex
	width  int
	height int
}

// NewWindow creates a window over pager with zero viewport size.
func NewWindow(pager Pager, cfg Config) *Window {
	if cfg.ColumnWidth <= 0 {
		cfg.ColumnWidth = DefaultColumnWidth
	}
	if cfg.RowHeight <= 0 {
		cfg.RowHeight = DefaultRowHeight
	}
	return &Window{
		pager:       pager,
		columnWidth: cfg.ColumnWidth,
		rowHeight:   cfg.RowHeight,
	}
}

// Resize sets the viewport size. Negative sizes are treated as zero.
func (w *Window) Resize(width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.width = max(width, 0)
	w.height = max(height, 0)
}

// Size returns the viewport size.
func (w *Window) Size() (width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

// Columns returns the number of columns that fit the viewport.
func (w *Window) Columns() int {
	width, _ := w.Size()
	return layout.ColumnCount(width, w.columnWidth)
}

// CellWidth returns the width each column gets when the viewport is split
// evenly, or 0 when no column fits.
func (w *Window) CellWidth() int {
	width, _ := w.Size()
	cols := layout.ColumnCount(width, w.columnWidth)
	if cols == 0 {
		return 0
	}
	return width / cols
}

// RowHeight returns the height of one row.
func (w *Window) RowHeight() int {
	return w.rowHeight
}

// RowCount returns the number of rows the loaded photos occupy.
func (w *Window) RowCount() int {
	return layout.RowCount(len(w.pager.Snapshot().Photos), w.Columns())
}

// VisibleRows returns how many rows fit in the viewport height, at least 1.
func (w *Window) VisibleRows() int {
	_, height := w.Size()
	return max(height/w.rowHeight, 1)
}

// RowData returns the photos in row. Rows outside the loaded range are empty.
func (w *Window) RowData(row int) []photo.Photo {
	return layout.RowSlice(w.pager.Snapshot().Photos, row, w.Columns())
}

// Surface returns the current rendering surface.
func (w *Window) Surface() Surface {
	return Surface{
		Columns:   w.Columns(),
		RowCount:  w.RowCount(),
		RowHeight: w.rowHeight,
	}
}

// OnVisibleRangeChange requests the next page when the last loaded row is
// visible and the feed is neither loading nor exhausted. The returned request
// must be run by the caller; ok is false when nothing was requested.
func (w *Window) OnVisibleRangeChange(r Range) (req feed.Request, ok bool) {
	s := w.pager.Snapshot()
	rows := layout.RowCount(len(s.Photos), w.Columns())
	if rows == 0 || r.Last != rows-1 {
		return feed.Request{}, false
	}
	if s.Loading || !s.HasMore {
		return feed.Request{}, false
	}
	return w.pager.Begin(s.Query, false)
}
