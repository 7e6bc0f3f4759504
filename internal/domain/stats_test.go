package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStatistics_ScenarioA(t *testing.T) {
	d, q := scenarioA()

	stats := ComputeStatistics(d, q, testNow)

	wantCategories := map[string]int{"Wildfires": 2, "Floods": 1, "Earthquakes": 2}
	if diff := cmp.Diff(wantCategories, stats.CategoryCount); diff != "" {
		t.Fatalf("category count mismatch (-want +got):\n%s", diff)
	}

	wantBuckets := map[string]int{Bucket4: 0, Bucket5: 1, Bucket6: 0, Bucket7: 1}
	if diff := cmp.Diff(wantBuckets, stats.MagnitudeBuckets); diff != "" {
		t.Fatalf("magnitude buckets mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 3, stats.TotalDisasters)
	assert.Equal(t, 2, stats.TotalEarthquakes)
	assert.Equal(t, 1, stats.HighMagnitude)
	assert.Equal(t, 5, stats.RecentEvents)
	assert.Equal(t, 5, stats.DailyCount["2025-03-15"])
}

func TestComputeStatistics_MultiCategoryDisaster(t *testing.T) {
	multi := Event{ID: "m", Date: testNow, Categories: []Category{{Title: "Severe Storms"}, {Title: "Floods"}}}
	stats := ComputeStatistics([]Event{multi}, nil, testNow)

	assert.Equal(t, map[string]int{"Severe Storms": 1, "Floods": 1}, stats.CategoryCount)
	assert.NotContains(t, stats.CategoryCount, "Earthquakes", "no earthquakes means no bucket")
}

func TestComputeStatistics_BucketExclusivity(t *testing.T) {
	tests := []struct {
		mag    float64
		bucket string
	}{
		{4.0, Bucket4},
		{4.95, Bucket4},
		{5.0, Bucket5},
		{5.99, Bucket5},
		{6.0, Bucket6},
		{6.9, Bucket6},
		{7.0, Bucket7},
		{7.2, Bucket7},
		{9.1, Bucket7},
	}
	for _, tt := range tests {
		stats := ComputeStatistics(nil, []Event{earthquake("q", tt.mag, testNow)}, testNow)

		total := 0
		for label, n := range stats.MagnitudeBuckets {
			total += n
			if label == tt.bucket {
				assert.Equal(t, 1, n, "magnitude %.2f should count in %s", tt.mag, tt.bucket)
			}
		}
		assert.Equal(t, 1, total, "magnitude %.2f counted in more than one bucket", tt.mag)
	}
}

func TestComputeStatistics_ExcludesLowAndMissingMagnitude(t *testing.T) {
	low := earthquake("low", 3.5, testNow)
	missing := earthquake("missing", 0, testNow)
	missing.Magnitude = nil

	stats := ComputeStatistics(nil, []Event{low, missing}, testNow)

	for label, n := range stats.MagnitudeBuckets {
		assert.Zero(t, n, label)
	}
	assert.Len(t, stats.MagnitudeBuckets, 4)
	assert.Equal(t, 2, stats.CategoryCount["Earthquakes"])
}

func TestComputeStatistics_TimelineShape(t *testing.T) {
	stats := ComputeStatistics(nil, nil, testNow)

	require.Len(t, stats.DailyCount, TimelineDays)
	assert.Contains(t, stats.DailyCount, "2025-03-15", "today is included")
	assert.Contains(t, stats.DailyCount, "2025-02-14", "29 days ago is the oldest day")
	assert.NotContains(t, stats.DailyCount, "2025-02-13")

	timeline := stats.Timeline()
	require.Len(t, timeline, TimelineDays)
	assert.Equal(t, "2025-02-14", timeline[0].Day)
	assert.Equal(t, "2025-03-15", timeline[TimelineDays-1].Day)
}

func TestComputeStatistics_TimelineCounts(t *testing.T) {
	morning := time.Date(2025, time.March, 10, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2025, time.March, 10, 23, 30, 0, 0, time.UTC)

	events := []Event{
		disaster("a", "Floods", morning),
		disaster("b", "Floods", evening),
		disaster("too-old", "Floods", testNow.AddDate(0, 0, -45)),
		disaster("future", "Floods", testNow.AddDate(0, 0, 2)),
	}
	quakes := []Event{earthquake("q", 4.5, evening)}

	stats := ComputeStatistics(events, quakes, testNow)

	assert.Equal(t, 3, stats.DailyCount["2025-03-10"], "days are keyed by calendar date only")
	sum := 0
	for _, n := range stats.DailyCount {
		sum += n
	}
	assert.Equal(t, 3, sum, "events outside the window are ignored")
}

func TestComputeStatistics_TimelineUsesUTCDays(t *testing.T) {
	tz := time.FixedZone("UTC-5", -5*60*60)
	// 22:00 local on the 9th is 03:00 UTC on the 10th.
	local := time.Date(2025, time.March, 9, 22, 0, 0, 0, tz)

	stats := ComputeStatistics([]Event{disaster("tz", "Floods", local)}, nil, testNow)
	assert.Equal(t, 1, stats.DailyCount["2025-03-10"])
	assert.Equal(t, 0, stats.DailyCount["2025-03-09"])
}

func TestComputeStatistics_Idempotent(t *testing.T) {
	d, q := scenarioA()
	first := ComputeStatistics(d, q, testNow)
	second := ComputeStatistics(d, q, testNow)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated call differs (-first +second):\n%s", diff)
	}
}

func TestStatistics_Percentage(t *testing.T) {
	d, q := scenarioA()
	stats := ComputeStatistics(d, q, testNow)

	assert.InDelta(t, 40.0, stats.Percentage(stats.CategoryCount["Wildfires"]), 0.0001)
	assert.InDelta(t, 20.0, stats.Percentage(stats.CategoryCount["Floods"]), 0.0001)
	assert.Zero(t, Statistics{}.Percentage(3))
}

func TestMagnitudeBucket(t *testing.T) {
	label, ok := MagnitudeBucket(earthquake("q", 6.3, testNow))
	require.True(t, ok)
	assert.Equal(t, Bucket6, label)

	_, ok = MagnitudeBucket(disaster("d", "Floods", testNow))
	assert.False(t, ok)
}

func TestComputeHighlights(t *testing.T) {
	disasters := []Event{
		disaster("fire-1", "Wildfires", testNow.Add(-1*time.Hour)),
		disaster("fire-old", "Wildfires", testNow.AddDate(0, 0, -20)),
		disaster("flood", "Floods", testNow.Add(-2*time.Hour)),
	}
	earthquakes := []Event{
		earthquake("q1", 5.5, testNow.Add(-3*time.Hour)),
		earthquake("q2", 4.2, testNow.Add(-4*time.Hour)),
		earthquake("q3", 6.1, testNow.Add(-5*time.Hour)),
		earthquake("q4", 4.8, testNow.Add(-6*time.Hour)),
		earthquake("q5", 4.4, testNow.Add(-7*time.Hour)),
	}

	h := ComputeHighlights(disasters, earthquakes, testNow)

	assert.Equal(t, 8, h.TotalEvents)
	assert.Equal(t, 2, h.NotableEarthquakes)
	assert.Equal(t, 2, h.ActiveWildfires)
	assert.Equal(t, []string{"fire-1", "flood", "q1", "q2", "q3", "q4"}, ids(h.Recent))
}
