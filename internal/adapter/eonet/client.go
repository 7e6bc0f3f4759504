// Package eonet adapts NASA's EONET v3 event catalog to domain events.
package eonet

import (
	"context"
	"encoding/json"
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
	Name = "eonet"

	DefaultBaseURL = "https://eonet.gsfc.nasa.gov/api/v3"
	DefaultLimit   = 100

	noDescription = "No description available"
)

// Client fetches currently open geophysical events.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limit      int
	timeout    time.Duration
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewClient creates an EONET client. A zero limit uses DefaultLimit.
func NewClient(baseURL string, limit int, timeout time.Duration, clock clockwork.Clock, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if timeout <= 0 {
		timeout = feed.DefaultTimeout
	}
	return &Client{
		httpClient: feed.NewHTTPClient(timeout),
		baseURL:    baseURL,
		limit:      limit,
		timeout:    timeout,
		clock:      clock,
		logger:     logger.With("provider", Name),
	}
}

// Name returns the provider name.
func (c *Client) Name() string { return Name }

// Fetch returns open events normalized to domain events of type disaster.
func (c *Client) Fetch(ctx context.Context) ([]domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{
		"limit":  {strconv.Itoa(c.limit)},
		"status": {"open"},
		"format": {"json"},
	}
	u := fmt.Sprintf("%s/events?%s", c.baseURL, params.Encode())

	var resp response
	if err := feed.GetJSON(ctx, c.httpClient, Name, u, &resp); err != nil {
		return nil, err
	}

	now := c.clock.Now().UTC()
	events := make([]domain.Event, 0, len(resp.Events))
	for _, raw := range resp.Events {
		e, ok := normalize(raw, now)
		if !ok {
			c.logger.Warn("dropping event without id", "title", raw.Title)
			continue
		}
		events = append(events, e)
	}

	c.logger.Debug("fetched events", "received", len(resp.Events), "kept", len(events))
	return events, nil
}

// normalize maps one EONET event; it reports false when the event has no ID.
func normalize(raw event, now time.Time) (domain.Event, bool) {
	if raw.ID == "" {
		return domain.Event{}, false
	}

	e := domain.Event{
		ID:          raw.ID,
		Title:       raw.Title,
		Description: raw.Description,
		Date:        now,
		Categories:  make([]domain.Category, 0, len(raw.Categories)),
		Type:        domain.TypeDisaster,
		Source:      domain.SourceEONET,
		Link:        raw.Link,
	}
	if e.Description == "" {
		e.Description = noDescription
	}

	for _, c := range raw.Categories {
		e.Categories = append(e.Categories, domain.Category{ID: string(c.ID), Title: c.Title})
	}
	for _, s := range raw.Sources {
		e.Sources = append(e.Sources, domain.SourceRef{ID: s.ID, URL: s.URL})
	}

	if len(raw.Geometry) > 0 {
		first := raw.Geometry[0]
		if t, err := time.Parse(time.RFC3339, first.Date); err == nil {
			e.Date = t.UTC()
		}
		e.Coordinates = pointCoordinates(first.Coordinates)
	}

	return e, true
}

// pointCoordinates returns the coordinates of a Point geometry. Polygon
// geometries nest arrays and yield nil.
func pointCoordinates(raw json.RawMessage) []float64 {
	if len(raw) == 0 {
		return nil
	}
	var coords []float64
	if err := json.Unmarshal(raw, &coords); err != nil || len(coords) < 2 {
		return nil
	}
	return coords
}

// EONET API response types.

type response struct {
	Events []event `json:"events"`
}

type event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Link        string     `json:"link"`
	Categories  []category `json:"categories"`
	Sources     []source   `json:"sources"`
	Geometry    []geometry `json:"geometry"`
}

type category struct {
	ID    flexibleID `json:"id"`
	Title string     `json:"title"`
}

type source struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type geometry struct {
	Date        string          `json:"date"`
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// flexibleID accepts both the string IDs of API v3 and the numeric IDs of v2.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("category id: %w", err)
	}
	*f = flexibleID(n.String())
	return nil
}
