package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/disaster-feed-service/internal/adapter/filestore"
	"github.com/couchcryptid/disaster-feed-service/internal/domain"
	"github.com/couchcryptid/disaster-feed-service/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCache(t *testing.T, ds domain.Dataset) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	store, err := filestore.New(dir)
	require.NoError(t, err)
	entries, err := pipeline.EncodeDataset(ds)
	require.NoError(t, err)
	require.NoError(t, store.SetMulti(context.Background(), entries))
	return dir
}

func goodDataset(now time.Time) domain.Dataset {
	return domain.Dataset{
		Disasters: []domain.Event{{
			ID:          "EONET_1",
			Title:       "Ridge Fire",
			Description: "No description available",
			Date:        now.Add(-time.Hour),
			Coordinates: []float64{-120.5, 38.2},
			Categories:  []domain.Category{{ID: "wildfires", Title: "Wildfires"}},
			Type:        domain.TypeDisaster,
			Source:      domain.SourceEONET,
		}},
		Earthquakes: []domain.Event{{
			ID:          "us1",
			Title:       "M 5.5 - Offshore",
			Description: "Magnitude 5.5 earthquake",
			Date:        now.Add(-2 * time.Hour),
			Coordinates: []float64{142.1, 38.3, 10},
			Categories:  []domain.Category{domain.EarthquakeCategory},
			Magnitude:   domain.Float(5.5),
			Depth:       domain.Float(10),
			Type:        domain.TypeEarthquake,
			Source:      domain.SourceUSGS,
		}},
		FetchedAt: now.Add(-5 * time.Minute),
	}
}

func TestRun_OfflineSummaryAndValidation(t *testing.T) {
	dir := seedCache(t, goodDataset(time.Now()))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-offline", "-validate", "-cache-dir", dir}, &stdout, &stderr)

	require.Equal(t, 0, code, stderr.String())
	out := stdout.String()
	assert.Contains(t, out, "Total: 2 (1 disasters, 1 earthquakes)")
	assert.Contains(t, out, "Wildfires")
	assert.Contains(t, out, "Page 1 of 1 (2 matching events)")
	assert.Contains(t, out, "Ridge Fire")
	assert.Contains(t, out, "All validations passed.")
}

func TestRun_OfflineJSONFiltered(t *testing.T) {
	dir := seedCache(t, goodDataset(time.Now()))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-offline", "-json", "-magnitude", "5-5.9", "-cache-dir", dir}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var page domain.Page
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "us1", page.Items[0].ID)
}

func TestRun_ValidationFailureExitsNonZero(t *testing.T) {
	ds := goodDataset(time.Now())
	ds.Earthquakes = append(ds.Earthquakes, ds.Earthquakes[0])
	ds.Disasters[0].Coordinates = []float64{-200, 38.2}
	dir := seedCache(t, ds)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-offline", "-validate", "-cache-dir", dir}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "duplicate id us1")
	assert.Contains(t, stdout.String(), "outside lon/lat bounds")
	assert.Contains(t, stdout.String(), "Validation FAILED.")
}

func TestRun_OfflineWithoutCache(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-offline", "-cache-dir", dir}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "no cached dataset")
}

func TestRun_BadFlags(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := [][]string{
		{"-magnitude", "3-3.9"},
		{"-days", "0"},
		{"-refresh", "-offline"},
		{"-unknown"},
	}
	for _, args := range tests {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 2, run(args, &stdout, &stderr), "args %v", args)
	}
}

func TestValidateStatistics_BucketsMatchEarthquakes(t *testing.T) {
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	ds := goodDataset(now)
	ds.Earthquakes = append(ds.Earthquakes, domain.Event{
		ID: "us2", Categories: []domain.Category{domain.EarthquakeCategory},
		Magnitude: domain.Float(3.1), Date: now, Type: domain.TypeEarthquake, Source: domain.SourceUSGS,
	})

	p := validateStatistics(ds, now)
	assert.True(t, p.passed(), p.errors)
}

func TestValidateStatistics_EONETEarthquakeCategoryWithoutUSGS(t *testing.T) {
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	ds := goodDataset(now)
	ds.Earthquakes = nil
	ds.Disasters = append(ds.Disasters, domain.Event{
		ID: "EONET_9", Title: "Landslide after tremor", Date: now,
		Categories: []domain.Category{{ID: "earthquakes", Title: "Earthquakes"}},
		Type:       domain.TypeDisaster, Source: domain.SourceEONET,
	})

	p := validateStatistics(ds, now)
	assert.True(t, p.passed(), p.errors)
}
