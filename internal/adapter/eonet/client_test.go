package eonet

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/disaster-feed-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

const sampleResponse = `{
  "title": "EONET Events",
  "events": [
    {
      "id": "EONET_6801",
      "title": "Palisades Fire, Los Angeles, California",
      "description": null,
      "link": "https://eonet.gsfc.nasa.gov/api/v3/events/EONET_6801",
      "closed": null,
      "categories": [{"id": "wildfires", "title": "Wildfires"}],
      "sources": [{"id": "IRWIN", "url": "https://irwin.doi.gov/observer/incidents/abc"}],
      "geometry": [
        {"magnitudeValue": 23448.0, "magnitudeUnit": "acres", "date": "2025-01-07T18:30:00Z", "type": "Point", "coordinates": [-118.54, 34.07]},
        {"date": "2025-01-09T00:00:00Z", "type": "Point", "coordinates": [-118.55, 34.08]}
      ]
    },
    {
      "id": "EONET_6900",
      "title": "Iceberg A23A",
      "description": "Drifting iceberg",
      "link": "https://eonet.gsfc.nasa.gov/api/v3/events/EONET_6900",
      "categories": [{"id": 15, "title": "Sea and Lake Ice"}],
      "sources": [],
      "geometry": [
        {"date": "2025-02-01T00:00:00Z", "type": "Polygon", "coordinates": [[[-40.1, -54.2], [-40.0, -54.3], [-40.1, -54.2]]]}
      ]
    },
    {
      "id": "EONET_7000",
      "title": "Tropical Storm Without Geometry",
      "categories": [{"id": "severeStorms", "title": "Severe Storms"}],
      "geometry": []
    },
    {
      "id": "",
      "title": "Broken record"
    }
  ]
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string, timeout time.Duration) *Client {
	return NewClient(baseURL, 100, timeout, clockwork.NewFakeClockAt(fixedNow), discardLogger())
}

func TestClient_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "open", r.URL.Query().Get("status"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	events, err := testClient(srv.URL, 5*time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 3, "record without id is dropped")

	fire := events[0]
	assert.Equal(t, "EONET_6801", fire.ID)
	assert.Equal(t, domain.TypeDisaster, fire.Type)
	assert.Equal(t, domain.SourceEONET, fire.Source)
	assert.Equal(t, "No description available", fire.Description)
	assert.Equal(t, time.Date(2025, 1, 7, 18, 30, 0, 0, time.UTC), fire.Date, "date comes from the first geometry sample")
	assert.Equal(t, []float64{-118.54, 34.07}, fire.Coordinates)
	assert.Equal(t, []domain.Category{{ID: "wildfires", Title: "Wildfires"}}, fire.Categories)
	assert.Equal(t, []domain.SourceRef{{ID: "IRWIN", URL: "https://irwin.doi.gov/observer/incidents/abc"}}, fire.Sources)
	assert.Equal(t, "https://eonet.gsfc.nasa.gov/api/v3/events/EONET_6801", fire.Link)
	assert.Nil(t, fire.Magnitude)
	assert.Nil(t, fire.Depth)

	ice := events[1]
	assert.Equal(t, "Drifting iceberg", ice.Description)
	assert.Nil(t, ice.Coordinates, "polygon geometry is not flattened")
	assert.Equal(t, "15", ice.Categories[0].ID)

	storm := events[2]
	assert.Equal(t, fixedNow, storm.Date, "missing geometry falls back to now")
	assert.Nil(t, storm.Coordinates)
	assert.NotNil(t, storm.Categories)
}

func TestClient_Fetch_EmptyCategoriesNeverNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"events":[{"id":"EONET_1","title":"x"}]}`))
	}))
	defer srv.Close()

	events, err := testClient(srv.URL, 5*time.Second).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotNil(t, events[0].Categories)
	assert.Empty(t, events[0].Categories)
}

func TestClient_Fetch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 5*time.Second).Fetch(context.Background())
	require.Error(t, err)

	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, Name, fe.Provider)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_Fetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 50*time.Millisecond).Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetchTimeout)
}

func TestClient_Defaults(t *testing.T) {
	c := NewClient("", 0, 0, clockwork.NewRealClock(), discardLogger())
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultLimit, c.limit)
	assert.Equal(t, Name, c.Name())
}
