// Command feedstat loads the merged disaster dataset, from the on-disk cache or
// live from the providers, and prints statistics, a filtered listing and
// integrity checks. It uses the same pipeline and domain packages as the
// service so the output matches what the API serves.
//
// Usage:
//
//	go run ./cmd/feedstat -cache-dir data/cache -category Wildfires -days 7
//	go run ./cmd/feedstat -offline -validate
//	go run ./cmd/feedstat -refresh -magnitude 6-6.9 -json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/disaster-feed-service/internal/adapter/eonet"
	"github.com/couchcryptid/disaster-feed-service/internal/adapter/filestore"
	"github.com/couchcryptid/disaster-feed-service/internal/adapter/usgs"
	"github.com/couchcryptid/disaster-feed-service/internal/config"
	"github.com/couchcryptid/disaster-feed-service/internal/domain"
	"github.com/couchcryptid/disaster-feed-service/internal/observability"
	"github.com/couchcryptid/disaster-feed-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

type options struct {
	cacheDir string
	refresh  bool
	offline  bool
	validate bool
	asJSON   bool
	search   string
	category string
	mag      string
	days     string
	page     int
	pageSize int
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: load config: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("feedstat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.cacheDir, "cache-dir", cfg.CacheDir, "directory holding the cached dataset")
	fs.BoolVar(&opts.refresh, "refresh", false, "fetch from the providers even if the cache is fresh")
	fs.BoolVar(&opts.offline, "offline", false, "read the cache only, never touch the network")
	fs.BoolVar(&opts.validate, "validate", false, "run dataset integrity checks; exit 1 on failure")
	fs.BoolVar(&opts.asJSON, "json", false, "print the filtered page as JSON instead of a table")
	fs.StringVar(&opts.search, "search", "", "case-insensitive text match on title, description and place")
	fs.StringVar(&opts.category, "category", domain.AllCategories, "category title, or All")
	fs.StringVar(&opts.mag, "magnitude", "", "magnitude range: all, 4-4.9, 5-5.9, 6-6.9 or 7+")
	fs.StringVar(&opts.days, "days", "all", "only events from the last N days, or all")
	fs.IntVar(&opts.page, "page", 1, "page number, starting at 1")
	fs.IntVar(&opts.pageSize, "page-size", cfg.PageSize, "events per page")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.refresh && opts.offline {
		fmt.Fprintln(stderr, "FATAL: -refresh and -offline are mutually exclusive")
		return 2
	}

	spec, err := filterSpec(opts)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 2
	}

	// Pipeline logs go to stderr so stdout stays parseable with -json.
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	clock := clockwork.NewRealClock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.FetchTimeout+5*time.Second)
	defer cancel()

	ds, err := loadDataset(ctx, cfg, opts, clock, logger)
	if err != nil && ds.Empty() {
		fmt.Fprintf(stderr, "FATAL: load dataset: %v\n", err)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "WARNING: refresh failed, using cached data from %s: %v\n",
			ds.FetchedAt.Format(time.RFC3339), err)
	}

	now := clock.Now()
	page := domain.ApplyFilters(ds.All(), spec, opts.page, opts.pageSize, now)
	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(page); err != nil {
			fmt.Fprintf(stderr, "FATAL: encode page: %v\n", err)
			return 1
		}
	} else {
		printSummary(stdout, ds, now)
		printPage(stdout, page)
	}

	if opts.validate {
		phases := validateDataset(ds, now)
		if !printPhases(stdout, phases) {
			return 1
		}
	}
	return 0
}

func filterSpec(opts options) (domain.FilterSpec, error) {
	mag, err := domain.ParseMagnitudeRange(opts.mag)
	if err != nil {
		return domain.FilterSpec{}, err
	}
	days, err := domain.ParseDateWindow(opts.days)
	if err != nil {
		return domain.FilterSpec{}, err
	}
	return domain.FilterSpec{
		SearchTerm:     opts.search,
		Category:       opts.category,
		MagnitudeRange: mag,
		DateWindowDays: days,
	}, nil
}

func loadDataset(ctx context.Context, cfg *config.Config, opts options, clock clockwork.Clock, logger *slog.Logger) (domain.Dataset, error) {
	store, err := filestore.New(opts.cacheDir)
	if err != nil {
		return domain.Dataset{}, err
	}

	if opts.offline {
		entries, err := store.GetMulti(ctx, []string{pipeline.KeyDisasters, pipeline.KeyEarthquakes, pipeline.KeyLastFetch})
		if errors.Is(err, domain.ErrCacheMiss) {
			return domain.Dataset{}, fmt.Errorf("no cached dataset in %s", opts.cacheDir)
		}
		if err != nil {
			return domain.Dataset{}, err
		}
		return pipeline.DecodeDataset(entries)
	}

	p := pipeline.New(pipeline.Config{
		Disasters: eonet.NewClient(cfg.EONETBaseURL, cfg.EONETLimit, cfg.FetchTimeout, clock, logger),
		Earthquakes: usgs.NewClient(usgs.Config{
			BaseURL:      cfg.USGSBaseURL,
			Limit:        cfg.USGSLimit,
			MinMagnitude: cfg.USGSMinMagnitude,
			WindowDays:   cfg.USGSWindowDays,
			Timeout:      cfg.FetchTimeout,
		}, clock, logger),
		Store:     store,
		Clock:     clock,
		Freshness: cfg.CacheTTL,
	}, logger, observability.NewMetrics())
	return p.Load(ctx, opts.refresh)
}
