package domain

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// AllCategories is the category selector that disables category filtering.
const AllCategories = "All"

// DefaultPageSize is used when a caller passes a non-positive page size.
const DefaultPageSize = 12

// MagnitudeRange names one of the magnitude selector intervals.
type MagnitudeRange string

const (
	MagnitudeAny    MagnitudeRange = ""
	MagnitudeAll    MagnitudeRange = "all"
	Magnitude4to5   MagnitudeRange = "4-4.9"
	Magnitude5to6   MagnitudeRange = "5-5.9"
	Magnitude6to7   MagnitudeRange = "6-6.9"
	Magnitude7Above MagnitudeRange = "7+"
)

// bounds returns the half-open interval [lo, hi) for a concrete range.
func (r MagnitudeRange) bounds() (lo, hi float64, ok bool) {
	switch r {
	case Magnitude4to5:
		return 4.0, 5.0, true
	case Magnitude5to6:
		return 5.0, 6.0, true
	case Magnitude6to7:
		return 6.0, 7.0, true
	case Magnitude7Above:
		return 7.0, math.Inf(1), true
	default:
		return 0, 0, false
	}
}

// ParseMagnitudeRange validates a selector string.
func ParseMagnitudeRange(s string) (MagnitudeRange, error) {
	r := MagnitudeRange(strings.TrimSpace(s))
	switch r {
	case MagnitudeAny, MagnitudeAll:
		return r, nil
	}
	if _, _, ok := r.bounds(); !ok {
		return "", fmt.Errorf("unknown magnitude range %q", s)
	}
	return r, nil
}

// ParseDateWindow parses a date window selector: "all" (or empty) disables
// the filter, otherwise a positive number of days.
func ParseDateWindow(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "all" {
		return 0, nil
	}
	days, err := strconv.Atoi(s)
	if err != nil || days <= 0 {
		return 0, fmt.Errorf("invalid date window %q", s)
	}
	return days, nil
}

// FilterSpec narrows an event set. The zero value matches everything except
// that Category must be AllCategories or empty to disable category filtering.
type FilterSpec struct {
	SearchTerm     string
	Category       string
	MagnitudeRange MagnitudeRange
	DateWindowDays int // 0 means all time
}

// Page is one page of a filtered, sorted event listing.
type Page struct {
	Items      []Event `json:"items"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalCount int     `json:"total_count"`
	TotalPages int     `json:"total_pages"`
}

// ApplyFilters filters events by spec, sorts them newest first and returns the
// requested page. Pages are numbered from 1; a page outside 1..TotalPages
// yields an empty item slice. The input slice is not modified.
func ApplyFilters(events []Event, spec FilterSpec, page, pageSize int, now time.Time) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	filtered := Filter(events, spec, now)
	SortByDateDesc(filtered)

	result := Page{
		Items:      []Event{},
		Page:       page,
		PageSize:   pageSize,
		TotalCount: len(filtered),
		TotalPages: (len(filtered) + pageSize - 1) / pageSize,
	}

	if page < 1 {
		return result
	}
	start := (page - 1) * pageSize
	if start >= len(filtered) {
		return result
	}
	end := min(start+pageSize, len(filtered))
	result.Items = filtered[start:end]
	return result
}

// Filter returns a new slice holding the events that pass every predicate of spec.
func Filter(events []Event, spec FilterSpec, now time.Time) []Event {
	m := newMatcher(spec, now)
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if m.match(e) {
			out = append(out, e)
		}
	}
	return out
}

// SortByDateDesc orders events most recent first. Ties keep their input order.
func SortByDateDesc(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		return b.Date.Compare(a.Date)
	})
}

// EventByID returns the first event with the given ID.
func EventByID(events []Event, id string) (Event, error) {
	for _, e := range events {
		if e.ID == id {
			return e, nil
		}
	}
	return Event{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
}

type matcher struct {
	term     string
	category string
	magRange MagnitudeRange
	cutoff   time.Time
	byDate   bool
}

func newMatcher(spec FilterSpec, now time.Time) matcher {
	m := matcher{
		term:     strings.ToLower(spec.SearchTerm),
		category: spec.Category,
		magRange: spec.MagnitudeRange,
	}
	if spec.DateWindowDays > 0 {
		m.byDate = true
		m.cutoff = now.Add(-time.Duration(spec.DateWindowDays) * 24 * time.Hour)
	}
	return m
}

func (m matcher) match(e Event) bool {
	return m.matchSearch(e) && m.matchCategory(e) && m.matchMagnitude(e) && m.matchDate(e)
}

func (m matcher) matchSearch(e Event) bool {
	if m.term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Title), m.term) ||
		strings.Contains(strings.ToLower(e.Description), m.term) ||
		(e.Place != "" && strings.Contains(strings.ToLower(e.Place), m.term))
}

func (m matcher) matchCategory(e Event) bool {
	if m.category == "" || m.category == AllCategories {
		return true
	}
	return e.HasCategory(m.category)
}

func (m matcher) matchMagnitude(e Event) bool {
	if m.magRange == MagnitudeAny || m.magRange == MagnitudeAll {
		return true
	}
	if e.Magnitude == nil {
		return false
	}
	lo, hi, ok := m.magRange.bounds()
	if !ok {
		// Unrecognized selectors only require a magnitude to be present.
		return true
	}
	mag := *e.Magnitude
	return mag >= lo && mag < hi
}

func (m matcher) matchDate(e Event) bool {
	if !m.byDate {
		return true
	}
	return !e.Date.Before(m.cutoff)
}
