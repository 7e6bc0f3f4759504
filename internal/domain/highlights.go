package domain

import "time"

const (
	recentLimit      = 6
	notableMagnitude = 5.0
	wildfireCategory = "Wildfires"
)

// Highlights is the summary shown on a landing view.
type Highlights struct {
	TotalEvents        int     `json:"total_events"`
	NotableEarthquakes int     `json:"notable_earthquakes"` // magnitude >= 5.0
	ActiveWildfires    int     `json:"active_wildfires"`
	Recent             []Event `json:"recent"`
}

// ComputeHighlights returns the six most recent events of the last seven days
// together with a few headline counts.
func ComputeHighlights(disasters, earthquakes []Event, now time.Time) Highlights {
	all := Dataset{Disasters: disasters, Earthquakes: earthquakes}.All()

	recent := Filter(all, FilterSpec{DateWindowDays: int(RecentWindow / (24 * time.Hour))}, now)
	SortByDateDesc(recent)
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	h := Highlights{
		TotalEvents: len(all),
		Recent:      recent,
	}
	for _, eq := range earthquakes {
		if eq.Magnitude != nil && *eq.Magnitude >= notableMagnitude {
			h.NotableEarthquakes++
		}
	}
	for _, d := range disasters {
		if d.HasCategory(wildfireCategory) {
			h.ActiveWildfires++
		}
	}
	return h
}
