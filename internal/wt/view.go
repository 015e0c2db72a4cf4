package wt

import (
	"sort"
	"time"
)

// DisplayState is the single display state of a screen. The states are
// mutually exclusive; a screen is never both empty and in error.
type DisplayState int

const (
	StateLoading DisplayState = iota
	StateError
	StateEmpty
	StateLoaded
)

func (s DisplayState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// MarshalText lets views encode their state by name in JSON responses.
func (s DisplayState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// sortAscending orders entries oldest first. The sort is stable so entries
// sharing an instant keep their listing order.
func sortAscending(entries []*MeasurementEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].sortKey().Before(entries[j].sortKey())
	})
}

// sortDescending orders entries newest first.
func sortDescending(entries []*MeasurementEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].sortKey().After(entries[j].sortKey())
	})
}

// location returns loc, defaulting to UTC.
func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
