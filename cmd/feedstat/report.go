package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/couchcryptid/disaster-feed-service/internal/domain"
)

var bucketOrder = []string{domain.Bucket4, domain.Bucket5, domain.Bucket6, domain.Bucket7}

func printSummary(w io.Writer, ds domain.Dataset, now time.Time) {
	stats := domain.ComputeStatistics(ds.Disasters, ds.Earthquakes, now)

	fmt.Fprintf(w, "=== Disaster feed (fetched %s, %s ago) ===\n",
		ds.FetchedAt.Format(time.RFC3339), now.Sub(ds.FetchedAt).Round(time.Second))
	fmt.Fprintf(w, "Total: %d (%d disasters, %d earthquakes), %d in the last 7 days, %d at M6+\n\n",
		stats.Total, stats.TotalDisasters, stats.TotalEarthquakes, stats.RecentEvents, stats.HighMagnitude)

	fmt.Fprintln(w, "By category:")
	titles := make([]string, 0, len(stats.CategoryCount))
	for title := range stats.CategoryCount {
		titles = append(titles, title)
	}
	sort.Slice(titles, func(i, j int) bool {
		ci, cj := stats.CategoryCount[titles[i]], stats.CategoryCount[titles[j]]
		if ci != cj {
			return ci > cj
		}
		return titles[i] < titles[j]
	})
	for _, title := range titles {
		n := stats.CategoryCount[title]
		fmt.Fprintf(w, "  %-24s %4d  %5.1f%%\n", title, n, stats.Percentage(n))
	}

	fmt.Fprintln(w, "\nBy magnitude:")
	for _, bucket := range bucketOrder {
		fmt.Fprintf(w, "  %-24s %4d\n", bucket, stats.MagnitudeBuckets[bucket])
	}

	fmt.Fprintln(w, "\nLast 30 days:")
	for _, day := range stats.Timeline() {
		if day.Count == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s %4d %s\n", day.Day, day.Count, strings.Repeat("#", min(day.Count, 60)))
	}
	fmt.Fprintln(w)
}

func printPage(w io.Writer, page domain.Page) {
	fmt.Fprintf(w, "Page %d of %d (%d matching events)\n", page.Page, page.TotalPages, page.TotalCount)
	if len(page.Items) == 0 {
		fmt.Fprintln(w, "  no events")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tCATEGORY\tMAG\tTITLE")
	for _, e := range page.Items {
		mag := "-"
		if e.Magnitude != nil {
			mag = fmt.Sprintf("%.1f", *e.Magnitude)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Date.UTC().Format("2006-01-02 15:04"), e.Type, e.PrimaryCategory(), mag, e.Title)
	}
	tw.Flush() //nolint:errcheck // stdout
}
