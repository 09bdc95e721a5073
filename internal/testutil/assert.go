package testutil

import (
	"strings"
	"testing"

	"github.com/wesm/photogrid/internal/photo"
)

// AssertEqualSlices fails the test unless got holds exactly want, in order.
func AssertEqualSlices[T comparable](t *testing.T, got []T, want ...T) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("got %d elements %v, want %d %v", len(got), got, len(want), want)
		return
	}
	for i, g := range got {
		if g != want[i] {
			t.Errorf("element %d = %v, want %v", i, g, want[i])
		}
	}
}

// AssertStrings is AssertEqualSlices with quoted output.
func AssertStrings(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("got %d strings %q, want %d %q", len(got), got, len(want), want)
		return
	}
	for i, g := range got {
		if g != want[i] {
			t.Errorf("string %d = %q, want %q", i, g, want[i])
		}
	}
}

// AssertPhotoIDs checks the IDs of photos, in order.
func AssertPhotoIDs(t *testing.T, photos []photo.Photo, want ...string) {
	t.Helper()
	ids := make([]string, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	AssertStrings(t, ids, want...)
}

// AssertContains reports every substring of subs that text lacks.
// Rendered output is easier to read with the full text, so it is
// printed once rather than per miss.
func AssertContains(t *testing.T, text string, subs ...string) {
	t.Helper()
	var missing []string
	for _, s := range subs {
		if !strings.Contains(text, s) {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		t.Errorf("missing %q in:\n%s", missing, text)
	}
}

// AssertNotContains reports every substring of subs that text has.
func AssertNotContains(t *testing.T, text string, subs ...string) {
	t.Helper()
	for _, s := range subs {
		if strings.Contains(text, s) {
			t.Errorf("unexpected %q in:\n%s", s, text)
		}
	}
}

// MustNoErr stops the test when a setup step fails.
func MustNoErr(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}
