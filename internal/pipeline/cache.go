package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/disaster-feed-service/internal/domain"
)

// Cache slot keys. The three entries are always written together.
const (
	KeyDisasters   = "disasters"
	KeyEarthquakes = "earthquakes"
	KeyLastFetch   = "lastFetch"
)

var cacheKeys = []string{KeyDisasters, KeyEarthquakes, KeyLastFetch}

// EncodeDataset renders a dataset as the three cache entries: JSON event
// arrays plus an RFC 3339 fetch timestamp.
func EncodeDataset(ds domain.Dataset) (map[string][]byte, error) {
	disasters, err := json.Marshal(nonNil(ds.Disasters))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", KeyDisasters, err)
	}
	earthquakes, err := json.Marshal(nonNil(ds.Earthquakes))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", KeyEarthquakes, err)
	}
	return map[string][]byte{
		KeyDisasters:   disasters,
		KeyEarthquakes: earthquakes,
		KeyLastFetch:   []byte(ds.FetchedAt.UTC().Format(time.RFC3339Nano)),
	}, nil
}

// DecodeDataset is the inverse of EncodeDataset. Missing or malformed entries
// yield an error wrapping domain.ErrCacheCorrupt.
func DecodeDataset(entries map[string][]byte) (domain.Dataset, error) {
	var ds domain.Dataset

	raw, ok := entries[KeyLastFetch]
	if !ok {
		return ds, fmt.Errorf("%w: %s missing", domain.ErrCacheCorrupt, KeyLastFetch)
	}
	fetchedAt, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return ds, fmt.Errorf("%w: %s: %w", domain.ErrCacheCorrupt, KeyLastFetch, err)
	}

	disasters, err := decodeEvents(entries, KeyDisasters)
	if err != nil {
		return ds, err
	}
	earthquakes, err := decodeEvents(entries, KeyEarthquakes)
	if err != nil {
		return ds, err
	}

	return domain.Dataset{
		Disasters:   disasters,
		Earthquakes: earthquakes,
		FetchedAt:   fetchedAt,
	}, nil
}

func decodeEvents(entries map[string][]byte, key string) ([]domain.Event, error) {
	raw, ok := entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s missing", domain.ErrCacheCorrupt, key)
	}
	var events []domain.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrCacheCorrupt, key, err)
	}
	for i := range events {
		if events[i].Categories == nil {
			events[i].Categories = []domain.Category{}
		}
	}
	return nonNil(events), nil
}

func nonNil(events []domain.Event) []domain.Event {
	if events == nil {
		return []domain.Event{}
	}
	return events
}

// readCache loads the cache slot. Store failures other than a miss are logged
// and reported as a miss so a broken store never blocks a refresh.
func (p *Pipeline) readCache(ctx context.Context) (domain.Dataset, error) {
	p.cacheMu.RLock()
	entries, err := p.store.GetMulti(ctx, cacheKeys)
	p.cacheMu.RUnlock()
	if err != nil {
		p.metrics.CacheLookups.WithLabelValues("miss").Inc()
		if !errors.Is(err, domain.ErrCacheMiss) {
			p.logger.Error("cache read failed", "error", err)
			return domain.Dataset{}, fmt.Errorf("%w: %w", domain.ErrCacheMiss, err)
		}
		return domain.Dataset{}, err
	}

	ds, err := DecodeDataset(entries)
	if err != nil {
		p.metrics.CacheLookups.WithLabelValues("corrupt").Inc()
		p.logger.Warn("ignoring corrupt cache entry", "error", err)
		return domain.Dataset{}, err
	}
	return ds, nil
}

func (p *Pipeline) writeCache(ctx context.Context, ds domain.Dataset) error {
	entries, err := EncodeDataset(ds)
	if err != nil {
		return err
	}
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	return p.store.SetMulti(ctx, entries)
}
