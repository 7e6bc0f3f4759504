package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/disaster-feed-service/internal/domain"
	"github.com/couchcryptid/disaster-feed-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultFreshness is how long a cached dataset is served without refetching.
const DefaultFreshness = time.Hour

// Source fetches and normalizes one provider's events.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Event, error)
}

// Store persists raw cache entries. GetMulti returns domain.ErrCacheMiss when
// any requested key is absent; SetMulti replaces the given keys.
type Store interface {
	GetMulti(ctx context.Context, keys []string) (map[string][]byte, error)
	SetMulti(ctx context.Context, entries map[string][]byte) error
}

// Publisher receives the events of every successful refresh.
type Publisher interface {
	Publish(ctx context.Context, events []domain.Event) error
}

// Config wires the pipeline's collaborators. Clock and Freshness default to the
// real clock and DefaultFreshness; Publisher is optional.
type Config struct {
	Disasters   Source
	Earthquakes Source
	Store       Store
	Publisher   Publisher
	Clock       clockwork.Clock
	Freshness   time.Duration
}

// Pipeline fetches both providers, merges the results and serves them from a
// single cache slot with time-based invalidation and failure fallback.
type Pipeline struct {
	disasters   Source
	earthquakes Source
	store       Store
	publisher   Publisher
	clock       clockwork.Clock
	freshness   time.Duration
	logger      *slog.Logger
	metrics     *observability.Metrics

	mu      sync.RWMutex
	current domain.Dataset

	// cacheMu keeps a slot read from interleaving with a slot write for
	// stores that cannot replace several keys atomically.
	cacheMu sync.RWMutex

	refreshes singleflight.Group
}

// New creates a Pipeline.
func New(cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Freshness <= 0 {
		cfg.Freshness = DefaultFreshness
	}
	return &Pipeline{
		disasters:   cfg.Disasters,
		earthquakes: cfg.Earthquakes,
		store:       cfg.Store,
		publisher:   cfg.Publisher,
		clock:       cfg.Clock,
		freshness:   cfg.Freshness,
		logger:      logger,
		metrics:     metrics,
	}
}

// Load returns the current dataset. Unless forceRefresh is set, a dataset
// younger than the freshness window is served without any network call.
// Otherwise both sources are fetched concurrently; if either fails the joined
// error is returned together with the last cached dataset, whatever its age.
func (p *Pipeline) Load(ctx context.Context, forceRefresh bool) (domain.Dataset, error) {
	if !forceRefresh {
		if ds, ok := p.cached(ctx); ok {
			return ds, nil
		}
	}

	// A refresh in flight is shared by every caller that arrives meanwhile;
	// concurrent refreshes would otherwise race on the cache slot.
	v, err, _ := p.refreshes.Do("refresh", func() (any, error) {
		return p.refresh(context.WithoutCancel(ctx))
	})
	return v.(domain.Dataset), err
}

// All returns disasters followed by earthquakes from the current dataset.
func (p *Pipeline) All() []domain.Event {
	return p.Current().All()
}

// Current returns the dataset held in memory without touching the store.
func (p *Pipeline) Current() domain.Dataset {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// CheckReadiness returns nil once a dataset, fresh or fallback, is held.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.Current().Empty() {
		return errors.New("no dataset loaded yet")
	}
	return nil
}

// cached serves a fresh dataset from memory, then from the store.
func (p *Pipeline) cached(ctx context.Context) (domain.Dataset, bool) {
	now := p.clock.Now()

	if ds := p.Current(); !ds.FetchedAt.IsZero() && p.isFresh(ds, now) {
		p.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return ds, true
	}

	ds, err := p.readCache(ctx)
	if err != nil {
		return domain.Dataset{}, false
	}
	if !p.isFresh(ds, now) {
		p.metrics.CacheLookups.WithLabelValues("stale").Inc()
		p.logger.Debug("cached dataset is stale", "fetched_at", ds.FetchedAt, "age", now.Sub(ds.FetchedAt))
		return domain.Dataset{}, false
	}

	p.metrics.CacheLookups.WithLabelValues("hit").Inc()
	p.setCurrent(ds)
	return ds, true
}

func (p *Pipeline) isFresh(ds domain.Dataset, now time.Time) bool {
	return now.Sub(ds.FetchedAt) < p.freshness
}

func (p *Pipeline) refresh(ctx context.Context) (domain.Dataset, error) {
	var (
		disasters, earthquakes []domain.Event
		disErr, eqErr          error
		g                      errgroup.Group
	)
	// Plain errgroup: one failing source does not cancel the other.
	g.Go(func() error {
		disasters, disErr = p.fetch(ctx, p.disasters)
		return disErr
	})
	g.Go(func() error {
		earthquakes, eqErr = p.fetch(ctx, p.earthquakes)
		return eqErr
	})

	if g.Wait() != nil {
		err := errors.Join(disErr, eqErr)
		p.metrics.Refreshes.WithLabelValues("failure").Inc()
		p.logger.Warn("refresh failed, falling back to cache", "error", err)
		return p.fallback(ctx), err
	}

	ds := domain.Dataset{
		Disasters:   disasters,
		Earthquakes: earthquakes,
		FetchedAt:   p.clock.Now().UTC(),
	}
	if err := p.writeCache(ctx, ds); err != nil {
		p.metrics.CacheWriteErrors.Inc()
		p.logger.Error("cache write failed", "error", err)
	}
	p.setCurrent(ds)
	p.metrics.Refreshes.WithLabelValues("success").Inc()
	p.logger.Info("refresh complete",
		"disasters", len(disasters),
		"earthquakes", len(earthquakes),
	)

	p.publish(ctx, ds)
	return ds, nil
}

func (p *Pipeline) fetch(ctx context.Context, src Source) ([]domain.Event, error) {
	start := p.clock.Now()
	events, err := src.Fetch(ctx)
	p.metrics.FetchDuration.WithLabelValues(src.Name()).Observe(p.clock.Since(start).Seconds())

	switch {
	case err == nil:
		p.metrics.FetchRequests.WithLabelValues(src.Name(), "success").Inc()
	case errors.Is(err, domain.ErrFetchTimeout):
		p.metrics.FetchRequests.WithLabelValues(src.Name(), "timeout").Inc()
		p.logger.Warn("fetch timed out", "provider", src.Name(), "error", err)
	default:
		p.metrics.FetchRequests.WithLabelValues(src.Name(), "error").Inc()
		p.logger.Warn("fetch failed", "provider", src.Name(), "error", err)
	}
	return events, err
}

// fallback returns the newer of the stored dataset, whatever its age, and the
// in-memory dataset. Memory can be ahead of the store when the last successful
// refresh failed to write the cache.
func (p *Pipeline) fallback(ctx context.Context) domain.Dataset {
	current := p.Current()
	ds, err := p.readCache(ctx)
	if err != nil {
		p.logger.Warn("no cached dataset to fall back to, keeping in-memory data",
			"disasters", len(current.Disasters),
			"earthquakes", len(current.Earthquakes),
		)
		return current
	}
	if !current.Empty() && current.FetchedAt.After(ds.FetchedAt) {
		p.logger.Warn("cached dataset is older than in-memory data, keeping in-memory data",
			"cached_fetched_at", ds.FetchedAt,
			"fetched_at", current.FetchedAt,
		)
		return current
	}

	p.metrics.CacheLookups.WithLabelValues("fallback").Inc()
	p.logger.Info("serving cached dataset after failed refresh",
		"fetched_at", ds.FetchedAt,
		"age", p.clock.Since(ds.FetchedAt),
	)
	p.setCurrent(ds)
	return ds
}

func (p *Pipeline) publish(ctx context.Context, ds domain.Dataset) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, ds.All()); err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Error("publish refreshed events failed", "error", err)
	}
}

func (p *Pipeline) setCurrent(ds domain.Dataset) {
	p.mu.Lock()
	p.current = ds
	p.mu.Unlock()

	p.metrics.EventsHeld.WithLabelValues(string(domain.TypeDisaster)).Set(float64(len(ds.Disasters)))
	p.metrics.EventsHeld.WithLabelValues(string(domain.TypeEarthquake)).Set(float64(len(ds.Earthquakes)))
	p.metrics.LastRefreshTime.Set(float64(ds.FetchedAt.Unix()))
}
