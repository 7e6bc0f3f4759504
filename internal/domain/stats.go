package domain

import (
	"slices"
	"time"
)

// Magnitude histogram bucket labels.
const (
	Bucket4  = "4.0-4.9"
	Bucket5  = "5.0-5.9"
	Bucket6  = "6.0-6.9"
	Bucket7  = "7.0+"
	dayLabel = "2006-01-02"
)

const (
	// TimelineDays is the length of the trailing daily timeline, today included.
	TimelineDays = 30

	// RecentWindow bounds the "recent events" figures.
	RecentWindow = 7 * 24 * time.Hour

	highMagnitudeThreshold = 6.0
)

// magnitudeBuckets is ordered top-down; the first lower bound an earthquake
// reaches wins.
var magnitudeBuckets = []struct {
	label string
	lower float64
}{
	{Bucket7, 7.0},
	{Bucket6, 6.0},
	{Bucket5, 5.0},
	{Bucket4, 4.0},
}

// Statistics is an aggregate view over one dataset. It is recomputed from
// scratch on every call to ComputeStatistics.
type Statistics struct {
	CategoryCount    map[string]int `json:"category_count"`
	MagnitudeBuckets map[string]int `json:"magnitude_buckets"`
	DailyCount       map[string]int `json:"daily_count"`

	Total            int `json:"total"`
	TotalDisasters   int `json:"total_disasters"`
	TotalEarthquakes int `json:"total_earthquakes"`
	HighMagnitude    int `json:"high_magnitude"` // earthquakes >= 6.0
	RecentEvents     int `json:"recent_events"`  // all events in the last 7 days
}

// ComputeStatistics aggregates category counts, the magnitude histogram and the
// trailing 30-day timeline anchored at now.
func ComputeStatistics(disasters, earthquakes []Event, now time.Time) Statistics {
	s := Statistics{
		CategoryCount:    make(map[string]int),
		MagnitudeBuckets: make(map[string]int, len(magnitudeBuckets)),
		DailyCount:       make(map[string]int, TimelineDays),
		Total:            len(disasters) + len(earthquakes),
		TotalDisasters:   len(disasters),
		TotalEarthquakes: len(earthquakes),
	}

	for _, d := range disasters {
		for _, c := range d.Categories {
			s.CategoryCount[c.Title]++
		}
	}
	if len(earthquakes) > 0 {
		s.CategoryCount[EarthquakeCategory.Title] = len(earthquakes)
	}

	for _, b := range magnitudeBuckets {
		s.MagnitudeBuckets[b.label] = 0
	}
	for _, eq := range earthquakes {
		if label, ok := MagnitudeBucket(eq); ok {
			s.MagnitudeBuckets[label]++
		}
		if eq.Magnitude != nil && *eq.Magnitude >= highMagnitudeThreshold {
			s.HighMagnitude++
		}
	}

	today := now.UTC()
	for i := range TimelineDays {
		s.DailyCount[today.AddDate(0, 0, -i).Format(dayLabel)] = 0
	}
	windowStart := now.AddDate(0, 0, -TimelineDays)
	recentStart := now.Add(-RecentWindow)
	count := func(e Event) {
		if !e.Date.Before(recentStart) {
			s.RecentEvents++
		}
		if e.Date.Before(windowStart) {
			return
		}
		key := e.Date.UTC().Format(dayLabel)
		if _, ok := s.DailyCount[key]; ok {
			s.DailyCount[key]++
		}
	}
	for _, e := range disasters {
		count(e)
	}
	for _, e := range earthquakes {
		count(e)
	}

	return s
}

// MagnitudeBucket returns the histogram bucket for an earthquake, or false
// when the magnitude is absent or below 4.0.
func MagnitudeBucket(e Event) (string, bool) {
	if e.Magnitude == nil {
		return "", false
	}
	for _, b := range magnitudeBuckets {
		if *e.Magnitude >= b.lower {
			return b.label, true
		}
	}
	return "", false
}

// Percentage returns count as a percentage of all events. Zero totals yield 0.
func (s Statistics) Percentage(count int) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(count) / float64(s.Total) * 100
}

// DayCount is one point of the daily timeline.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Timeline returns DailyCount ordered oldest day first.
func (s Statistics) Timeline() []DayCount {
	days := make([]string, 0, len(s.DailyCount))
	for d := range s.DailyCount {
		days = append(days, d)
	}
	slices.Sort(days)

	out := make([]DayCount, len(days))
	for i, d := range days {
		out[i] = DayCount{Day: d, Count: s.DailyCount[d]}
	}
	return out
}
