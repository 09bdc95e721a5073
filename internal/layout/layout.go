// Package layout maps a viewport and an item count onto grid rows and columns.
// Every function is pure; callers recompute on each resize or data change.
package layout

// ColumnCount returns how many columns of at least minColumnWidth fit into
// viewportWidth. A viewport narrower than one column yields 0.
func ColumnCount(viewportWidth, minColumnWidth int) int {
	if viewportWidth <= 0 || minColumnWidth <= 0 {
		return 0
	}
	return viewportWidth / minColumnWidth
}

// RowCount returns the number of rows needed to show itemCount items in
// columnCount columns, or 0 when there are no columns.
func RowCount(itemCount, columnCount int) int {
	if itemCount <= 0 || columnCount <= 0 {
		return 0
	}
	return (itemCount + columnCount - 1) / columnCount
}

// RowBounds returns the half-open item index range [start, end) covered by
// rowIndex. The range is empty (start == end) when the row is out of range.
func RowBounds(rowIndex, columnCount, itemCount int) (start, end int) {
	if rowIndex < 0 || columnCount <= 0 || itemCount <= 0 {
		return 0, 0
	}
	start = rowIndex * columnCount
	if start >= itemCount {
		return itemCount, itemCount
	}
	end = start + columnCount
	if end > itemCount {
		end = itemCount
	}
	return start, end
}

// RowSlice returns the items shown in rowIndex, truncated at the end of items.
// Out-of-range rows return an empty slice.
func RowSlice[T any](items []T, rowIndex, columnCount int) []T {
	start, end := RowBounds(rowIndex, columnCount, len(items))
	if start == end {
		return []T{}
	}
	return items[start:end:end]
}
