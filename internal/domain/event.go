package domain

import "time"

// EventType discriminates the originating catalog of an Event.
type EventType string

const (
	TypeDisaster   EventType = "disaster"
	TypeEarthquake EventType = "earthquake"
)

// Provenance labels stored in Event.Source.
const (
	SourceEONET = "NASA EONET"
	SourceUSGS  = "USGS"
)

// EarthquakeCategory is the single synthetic category attached to every
// seismic event.
var EarthquakeCategory = Category{ID: "earthquakes", Title: "Earthquakes"}

// Category is a classification tag. The first category of an event drives
// grouping.
type Category struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SourceRef is an external reference link for an event.
type SourceRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Event is the unified record for both geophysical disasters and earthquakes.
type Event struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Date        time.Time   `json:"date"`
	Coordinates []float64   `json:"coordinates,omitempty"` // [lon, lat] or [lon, lat, depth]
	Place       string      `json:"place,omitempty"`
	Categories  []Category  `json:"categories"`
	Magnitude   *float64    `json:"magnitude,omitempty"`
	Depth       *float64    `json:"depth,omitempty"` // kilometers
	Type        EventType   `json:"type"`
	Source      string      `json:"source"`
	Sources     []SourceRef `json:"sources,omitempty"`
	Link        string      `json:"link,omitempty"`
}

// HasCategory reports whether any of the event's categories has the given title.
func (e Event) HasCategory(title string) bool {
	for _, c := range e.Categories {
		if c.Title == title {
			return true
		}
	}
	return false
}

// PrimaryCategory returns the first category title, or "" when there is none.
func (e Event) PrimaryCategory() string {
	if len(e.Categories) == 0 {
		return ""
	}
	return e.Categories[0].Title
}

// Dataset is the merged result of one refresh: the two source sets kept
// separate plus the time they were fetched.
type Dataset struct {
	Disasters   []Event   `json:"disasters"`
	Earthquakes []Event   `json:"earthquakes"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// All concatenates disasters and earthquakes, in that order, without
// deduplication.
func (d Dataset) All() []Event {
	all := make([]Event, 0, len(d.Disasters)+len(d.Earthquakes))
	all = append(all, d.Disasters...)
	all = append(all, d.Earthquakes...)
	return all
}

// Empty reports whether the dataset holds no events and was never fetched.
func (d Dataset) Empty() bool {
	return d.FetchedAt.IsZero() && len(d.Disasters) == 0 && len(d.Earthquakes) == 0
}

// Float returns a pointer to v, for optional magnitude and depth fields.
func Float(v float64) *float64 {
	return &v
}
