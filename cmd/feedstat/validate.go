package main

import (
	"fmt"
	"io"
	"time"

	"github.com/couchcryptid/disaster-feed-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func validateDataset(ds domain.Dataset, now time.Time) []*phase {
	return []*phase{
		validateIdentity(ds),
		validateDisasters(ds.Disasters),
		validateEarthquakes(ds.Earthquakes),
		validateCoordinates(ds.All()),
		validateStatistics(ds, now),
	}
}

func validateIdentity(ds domain.Dataset) *phase {
	p := &phase{name: "Event identity"}
	check := func(source string, events []domain.Event) {
		seen := make(map[string]bool, len(events))
		for i, e := range events {
			if e.ID == "" {
				p.errorf("%s[%d]: empty id", source, i)
				continue
			}
			if seen[e.ID] {
				p.errorf("%s: duplicate id %s", source, e.ID)
			}
			seen[e.ID] = true
		}
	}
	check("disasters", ds.Disasters)
	check("earthquakes", ds.Earthquakes)
	return p
}

func validateDisasters(events []domain.Event) *phase {
	p := &phase{name: "Disaster normalization"}
	for _, e := range events {
		if e.Type != domain.TypeDisaster {
			p.errorf("%s: type %q, want %q", e.ID, e.Type, domain.TypeDisaster)
		}
		if e.Source != domain.SourceEONET {
			p.errorf("%s: source %q, want %q", e.ID, e.Source, domain.SourceEONET)
		}
		if e.Description == "" {
			p.errorf("%s: empty description", e.ID)
		}
		if e.Categories == nil {
			p.errorf("%s: nil categories", e.ID)
		}
		if e.Magnitude != nil {
			p.errorf("%s: disaster carries a magnitude", e.ID)
		}
	}
	return p
}

func validateEarthquakes(events []domain.Event) *phase {
	p := &phase{name: "Earthquake normalization"}
	for _, e := range events {
		if e.Type != domain.TypeEarthquake {
			p.errorf("%s: type %q, want %q", e.ID, e.Type, domain.TypeEarthquake)
		}
		if e.Source != domain.SourceUSGS {
			p.errorf("%s: source %q, want %q", e.ID, e.Source, domain.SourceUSGS)
		}
		if len(e.Categories) != 1 || e.Categories[0] != domain.EarthquakeCategory {
			p.errorf("%s: categories %v, want only %v", e.ID, e.Categories, domain.EarthquakeCategory)
		}
		if len(e.Coordinates) >= 3 && e.Depth == nil {
			p.errorf("%s: depth missing although coordinates carry one", e.ID)
		}
	}
	return p
}

func validateCoordinates(events []domain.Event) *phase {
	p := &phase{name: "Coordinates"}
	for _, e := range events {
		if len(e.Coordinates) == 0 {
			continue
		}
		if len(e.Coordinates) < 2 {
			p.errorf("%s: %d coordinate values", e.ID, len(e.Coordinates))
			continue
		}
		lon, lat := e.Coordinates[0], e.Coordinates[1]
		if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
			p.errorf("%s: [%g, %g] outside lon/lat bounds", e.ID, lon, lat)
		}
	}
	return p
}

// validateStatistics cross-checks the aggregates against the raw events.
func validateStatistics(ds domain.Dataset, now time.Time) *phase {
	p := &phase{name: "Statistics consistency"}
	stats := domain.ComputeStatistics(ds.Disasters, ds.Earthquakes, now)

	bucketed, withMag4 := 0, 0
	for _, n := range stats.MagnitudeBuckets {
		bucketed += n
	}
	for _, e := range ds.Earthquakes {
		if e.Magnitude != nil && *e.Magnitude >= 4 {
			withMag4++
		}
	}
	if bucketed != withMag4 {
		p.errorf("magnitude buckets hold %d earthquakes, %d have M4+", bucketed, withMag4)
	}

	inTimeline := 0
	for _, day := range stats.Timeline() {
		inTimeline += day.Count
	}
	if inTimeline > stats.Total {
		p.errorf("timeline counts %d events, dataset holds %d", inTimeline, stats.Total)
	}
	if stats.RecentEvents > inTimeline {
		p.errorf("%d recent events but only %d in the 30-day timeline", stats.RecentEvents, inTimeline)
	}
	// With no USGS quakes the category only counts EONET events tagged Earthquakes.
	if len(ds.Earthquakes) > 0 {
		if got := stats.CategoryCount[domain.EarthquakeCategory.Title]; got != len(ds.Earthquakes) {
			p.errorf("earthquake category counts %d, dataset holds %d", got, len(ds.Earthquakes))
		}
	}
	return p
}

// printPhases reports each phase and its errors; it returns true when all pass.
func printPhases(w io.Writer, phases []*phase) bool {
	fmt.Fprintln(w, "\n=== Dataset Integrity Validation ===")
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-32s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Fprintf(w, "  ... and %d more\n", len(p.errors)-20)
				break
			}
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
	} else {
		fmt.Fprintln(w, "\nValidation FAILED.")
	}
	return allPassed
}
