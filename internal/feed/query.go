package feed

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeQuery trims surrounding whitespace and composes the query to NFC,
// so that visually identical queries typed on different keyboards compare
// equal. A query that is only whitespace becomes "", which lists the
// editorial feed.
func NormalizeQuery(q string) string {
	return norm.NFC.String(strings.TrimSpace(q))
}
