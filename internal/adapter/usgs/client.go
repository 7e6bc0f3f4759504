// Package usgs adapts the USGS FDSN earthquake catalog to domain events.
package usgs

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/disaster-feed-service/internal/adapter/feed"
	"github.com/couchcryptid/disaster-feed-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

const (
	// Name identifies this provider in errors, logs and metrics.
	Name = "usgs"

	DefaultBaseURL      = "https://earthquake.usgs.gov/fdsnws/event/1"
	DefaultLimit        = 100
	DefaultMinMagnitude = 4.0
	DefaultWindowDays   = 30

	dateParam = "2006-01-02"
)

// Config controls the catalog query.
type Config struct {
	BaseURL      string
	Limit        int
	MinMagnitude float64
	WindowDays   int
	Timeout      time.Duration
}

// Client fetches recent earthquakes above a magnitude floor.
type Client struct {
	httpClient *http.Client
	cfg        Config
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewClient creates a USGS client, filling zero Config fields with defaults.
func NewClient(cfg Config, clock clockwork.Clock, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.MinMagnitude <= 0 {
		cfg.MinMagnitude = DefaultMinMagnitude
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultWindowDays
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = feed.DefaultTimeout
	}
	return &Client{
		httpClient: feed.NewHTTPClient(cfg.Timeout),
		cfg:        cfg,
		clock:      clock,
		logger:     logger.With("provider", Name),
	}
}

// Name returns the provider name.
func (c *Client) Name() string { return Name }

// Fetch returns earthquakes from the trailing window normalized to domain events.
func (c *Client) Fetch(ctx context.Context) ([]domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	now := c.clock.Now().UTC()
	params := url.Values{
		"format":       {"geojson"},
		"starttime":    {now.AddDate(0, 0, -c.cfg.WindowDays).Format(dateParam)},
		"endtime":      {now.Format(dateParam)},
		"minmagnitude": {strconv.FormatFloat(c.cfg.MinMagnitude, 'f', -1, 64)},
		"limit":        {strconv.Itoa(c.cfg.Limit)},
		"orderby":      {"time"},
	}
	u := fmt.Sprintf("%s/query?%s", c.cfg.BaseURL, params.Encode())

	var resp response
	if err := feed.GetJSON(ctx, c.httpClient, Name, u, &resp); err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(resp.Features))
	for _, f := range resp.Features {
		e, ok := normalize(f, now)
		if !ok {
			c.logger.Warn("dropping feature without id", "title", f.Properties.Title)
			continue
		}
		events = append(events, e)
	}

	c.logger.Debug("fetched earthquakes", "received", len(resp.Features), "kept", len(events))
	return events, nil
}

func normalize(f feature, now time.Time) (domain.Event, bool) {
	if f.ID == "" {
		return domain.Event{}, false
	}

	p := f.Properties
	e := domain.Event{
		ID:          f.ID,
		Title:       p.Title,
		Description: describe(p.Mag),
		Date:        now,
		Place:       p.Place,
		Categories:  []domain.Category{domain.EarthquakeCategory},
		Magnitude:   p.Mag,
		Type:        domain.TypeEarthquake,
		Source:      domain.SourceUSGS,
		Link:        p.URL,
	}
	if p.URL != "" {
		e.Sources = []domain.SourceRef{{ID: Name, URL: p.URL}}
	}
	if p.Time != nil {
		e.Date = time.UnixMilli(*p.Time).UTC()
	}

	coords := f.Geometry.Coordinates
	if len(coords) >= 2 {
		e.Coordinates = coords
	}
	if len(coords) >= 3 {
		e.Depth = domain.Float(coords[2])
	}

	return e, true
}

func describe(mag *float64) string {
	if mag == nil {
		return "Magnitude unknown earthquake"
	}
	return fmt.Sprintf("Magnitude %s earthquake", strconv.FormatFloat(*mag, 'f', -1, 64))
}

// USGS GeoJSON response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID         string     `json:"id"`
	Properties properties `json:"properties"`
	Geometry   struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat, depth_km]
	} `json:"geometry"`
}

type properties struct {
	Mag   *float64 `json:"mag"`
	Place string   `json:"place"`
	Time  *int64   `json:"time"` // ms since epoch
	Title string   `json:"title"`
	URL   string   `json:"url"`
}
