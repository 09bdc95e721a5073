package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wesm/photogrid/internal/feed"
	"github.com/wesm/photogrid/internal/photo"
)

// Monochrome theme - adaptive for light and dark terminals
var (
	bgBase   = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#000000"}
	bgCursor = lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#282828"}

	// Title bar style - bold with visible background
	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}).
			Padding(0, 1)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	// Spinner style - NOT faint so it's visible
	spinnerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	// Cell under the cursor: subtle lighter background
	cursorCellStyle = lipgloss.NewStyle().
			Background(bgCursor)

	normalCellStyle = lipgloss.NewStyle().
			Background(bgBase)

	// Secondary cell lines (ID, URL)
	cellMetaStyle = lipgloss.NewStyle().
			Faint(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#aa0000", Dark: "#ff5f5f"}).
			Background(bgBase)

	loadingStyle = lipgloss.NewStyle().
			Italic(true).
			Background(bgBase)

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true)
)

// buildTitleBar builds the title bar line.
// Format: "photogrid [version] - Editorial feed"
func (m Model) buildTitleBar() string {
	titleText := "photogrid"
	if m.version != "" && m.version != "dev" && m.version != "unknown" {
		titleText = fmt.Sprintf("photogrid [%s]", m.version)
	}

	var where string
	switch {
	case m.level == levelDetail:
		where = "Photo: " + truncateRunes(m.detailPhoto.Label(), 50)
	case m.feed.Snapshot().Query != "":
		where = fmt.Sprintf("Search: %q", truncateRunes(m.feed.Snapshot().Query, 40))
	default:
		where = "Editorial feed"
	}
	return titleBarStyle.Render(padRight(titleText+" - "+where, m.width-2)) // -2 for padding
}

// searchLine renders the search box while editing, or the active query.
func (m Model) searchLine() string {
	contentWidth := max(m.width-2, 1)
	if m.searching {
		return statsStyle.Render(padRight("/"+m.searchInput.View(), contentWidth))
	}
	if q := m.feed.Snapshot().Query; q != "" {
		return statsStyle.Render(padRight(fmt.Sprintf("Results for %q (Esc: editorial feed)", q), contentWidth))
	}
	return statsStyle.Render(strings.Repeat(" ", contentWidth))
}

// bannerLine renders the fetch error, or a blank line.
func (m Model) bannerLine() string {
	if s := m.feed.Snapshot(); s.HasError() {
		return errorStyle.Render(padRight(" "+s.Err+"  (r: retry)", m.width))
	}
	return normalCellStyle.Render(strings.Repeat(" ", m.width))
}

// headerView renders the title bar, the search line and the error banner.
func (m Model) headerView() string {
	return m.buildTitleBar() + "\n" + m.searchLine() + "\n" + m.bannerLine()
}

// gridHeight is the number of lines available to the grid body.
func (m Model) gridHeight() int {
	return max(m.height-chromeLines, 0)
}

// gridView renders the visible rows, padded to the grid height.
func (m Model) gridView() string {
	height := m.gridHeight()
	s := m.feed.Snapshot()

	var lines []string
	switch {
	case m.window.Columns() == 0:
		lines = append(lines, loadingStyle.Render(padRight(" Window too narrow", m.width)))
	case len(s.Photos) == 0 && s.Loading:
		lines = append(lines, loadingStyle.Render(padRight(" Loading photos...", m.width)))
	case len(s.Photos) == 0 && s.IsExhausted():
		lines = append(lines, loadingStyle.Render(padRight(" No photos found", m.width)))
	default:
		r := m.visibleRange()
		for row := r.First; row <= r.Last; row++ {
			lines = append(lines, m.renderRow(row)...)
		}
	}
	return m.fillLines(lines, height)
}

// fillLines pads or cuts lines to exactly height lines of full width.
func (m Model) fillLines(lines []string, height int) string {
	if len(lines) > height {
		lines = lines[:height]
	}
	blank := normalCellStyle.Render(strings.Repeat(" ", m.width))
	for len(lines) < height {
		lines = append(lines, blank)
	}
	return strings.Join(lines, "\n")
}

// renderRow renders one grid row as RowHeight lines.
func (m Model) renderRow(row int) []string {
	cells := m.window.RowData(row)
	cols := m.window.Columns()
	cellWidth := m.window.CellWidth()
	lines := make([]string, m.window.RowHeight())

	for col, p := range cells {
		style := normalCellStyle
		if row*cols+col == m.cursor {
			style = cursorCellStyle
		}
		content := cellContent(p, cellWidth-2, len(lines))
		for i := range lines {
			// One column of gutter between cells
			lines[i] += style.Render(padRight(" "+content[i], cellWidth-1)) + " "
		}
	}
	for i := range lines {
		lines[i] = padRight(lines[i], m.width)
	}
	return lines
}

// cellContent returns the text lines of one photo cell: the label, then the
// photo ID and thumbnail URL as far as the cell height allows.
func cellContent(p photo.Photo, width, height int) []string {
	out := make([]string, height)
	if height == 0 {
		return out
	}
	out[0] = truncateRunes(p.Label(), width)
	if height > 1 {
		out[1] = cellMetaStyle.Render(truncateRunes(p.ID, width))
	}
	if height > 2 {
		out[2] = cellMetaStyle.Render(truncateRunes(p.URLs.Thumb, width))
	}
	return out
}

// statusLine shows the loading indicator or the end-of-feed marker.
func (m Model) statusLine() string {
	s := m.feed.Snapshot()
	var content string
	switch {
	case s.Loading && s.NextPage > 1 && len(s.Photos) > 0:
		content = fmt.Sprintf("Loading page %d...", s.NextPage)
	case s.Loading:
		content = "Loading..."
	case s.IsExhausted() && len(s.Photos) > 0:
		content = "End of results"
	}
	return m.renderInfoLine(content, s.Loading)
}

// spinnerIndicator returns the current spinner frame string.
func (m Model) spinnerIndicator() string {
	if m.spinnerFrame < len(spinnerFrames) {
		return spinnerFrames[m.spinnerFrame]
	}
	return spinnerFrames[0]
}

// renderInfoLine renders the info line with an optional right-aligned loading spinner.
func (m Model) renderInfoLine(content string, loading bool) string {
	// statsStyle has Padding(0, 1) which adds 2 characters, so content should be m.width-2
	contentWidth := max(m.width-2, 1)

	if content == "" && !loading {
		return statsStyle.Render(strings.Repeat(" ", contentWidth))
	}
	if loading {
		indicator := m.spinnerIndicator()
		gap := max(contentWidth-lipgloss.Width(content)-lipgloss.Width(indicator), 1)
		content += strings.Repeat(" ", gap) + spinnerStyle.Render(indicator)
	}
	return statsStyle.Render(padRight(content, contentWidth))
}

func (m Model) footerView() string {
	var keys []string
	var posStr string

	switch m.level {
	case levelDetail:
		keys = []string{"Esc back", "q quit"}
	default:
		if m.searching {
			keys = []string{"Enter search", "Esc cancel"}
			break
		}
		keys = []string{"←↑↓→/hjkl move", "Enter details", "/ search", "r retry", "q quit"}
		s := m.feed.Snapshot()
		posStr = " " + photoCount(s) + " "
	}

	keysStr := strings.Join(keys, " │ ")

	// Use lipgloss.Width for ANSI-aware width calculation (handles Unicode arrows correctly)
	gap := max(m.width-lipgloss.Width(keysStr)-lipgloss.Width(posStr)-2, 0)
	return footerStyle.Render(keysStr + strings.Repeat(" ", gap) + posStr)
}

// photoCount renders "N photos", with a "+" while more pages remain.
func photoCount(s feed.State) string {
	n := len(s.Photos)
	more := ""
	if s.HasMore && n > 0 {
		more = "+"
	}
	if n == 1 {
		return "1 photo" + more
	}
	return fmt.Sprintf("%d%s photos", n, more)
}

// detailView renders the photo detail body, padded to the available height.
func (m Model) detailView() string {
	height := max(m.height-3, 0)
	width := max(m.width-2, 1)

	var lines []string
	switch {
	case m.detailLoading:
		lines = append(lines, loadingStyle.Render(" Loading photo..."))
	case m.detailErr != nil:
		lines = append(lines, errorStyle.Render(" Error loading photo: "+m.detailErr.Error()))
	case m.detail == nil:
		lines = append(lines, " Photo not found")
	default:
		lines = m.buildDetailLines(width)
	}
	for i, l := range lines {
		lines[i] = padRight(l, m.width)
	}
	return m.fillLines(lines, height)
}

// buildDetailLines lays out the fields of the loaded detail.
func (m Model) buildDetailLines(width int) []string {
	d := m.detail
	field := func(name, value string) string {
		return " " + detailLabelStyle.Render(fmt.Sprintf("%-12s", name)) + truncateRunes(value, width-13)
	}

	lines := []string{
		" " + detailLabelStyle.Render(truncateRunes(d.Label(), width)),
		"",
	}
	description := d.Description
	if description == "" {
		description = "-"
	}
	for i, l := range wrapText(description, width-13) {
		name := ""
		if i == 0 {
			name = "Description"
		}
		lines = append(lines, field(name, l))
	}
	author := d.User.Name
	if author == "" {
		author = "-"
	}
	lines = append(lines,
		field("Author", author),
		field("Created", formatCreated(d.CreatedAt)),
		field("Image", d.URLs.Regular),
		field("ID", d.ID),
	)
	return lines
}
