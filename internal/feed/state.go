package feed

import "github.com/wesm/photogrid/internal/photo"

// State is the grid state for one mount.
type State struct {
	Photos   []photo.Photo // fetch arrival order, not de-duplicated
	Loading  bool
	Err      string // empty when the last fetch did not fail
	NextPage int    // page the next non-reset fetch requests, >= 1
	HasMore  bool   // false once the active query returned an empty page
	Query    string // active query; empty lists the editorial feed
}

// Status is a display label derived from State.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusError
	StatusExhausted
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "Loading"
	case StatusError:
		return "Error"
	case StatusExhausted:
		return "Exhausted"
	default:
		return "Idle"
	}
}

// Status returns the most prominent label for s. The underlying flags can
// overlap (an error on an exhausted feed, for instance); use HasError and
// IsExhausted to inspect them individually.
func (s State) Status() Status {
	switch {
	case s.Loading:
		return StatusLoading
	case s.HasError():
		return StatusError
	case s.IsExhausted():
		return StatusExhausted
	default:
		return StatusIdle
	}
}

// HasError reports whether the last fetch failed.
func (s State) HasError() bool { return s.Err != "" }

// IsExhausted reports whether the active query has no more pages.
func (s State) IsExhausted() bool { return !s.HasMore }
