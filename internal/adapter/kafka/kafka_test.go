package kafka

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/disaster-feed-service/internal/config"
	"github.com/couchcryptid/disaster-feed-service/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2025, time.March, 15, 7, 30, 0, 0, time.FixedZone("EST", -5*3600))
	event := domain.Event{
		ID:          "us7000abcd",
		Title:       "M 6.1 - Offshore",
		Date:        now,
		Coordinates: []float64{142.1, 38.3, 10},
		Categories:  []domain.Category{domain.EarthquakeCategory},
		Magnitude:   domain.Float(6.1),
		Type:        domain.TypeEarthquake,
		Source:      domain.SourceUSGS,
	}

	msg, err := serializeToMessage(event, now)
	require.NoError(t, err)

	assert.Equal(t, []byte("us7000abcd"), msg.Key)
	assert.Contains(t, string(msg.Value), `"magnitude":6.1`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("earthquake"), msg.Headers[0].Value)
	assert.Equal(t, "source", msg.Headers[1].Key)
	assert.Equal(t, []byte("USGS"), msg.Headers[1].Value)
	assert.Equal(t, "published_at", msg.Headers[2].Key)
	assert.Equal(t, []byte("2025-03-15T12:30:00Z"), msg.Headers[2].Value)
}

func TestPublisher_PublishEmptyIsNoop(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaTopic: "disaster-events"}
	p := NewPublisher(cfg, clockwork.NewFakeClock(), slog.Default())
	t.Cleanup(func() { _ = p.Close() })

	// No broker is reachable; an empty batch must not try to dial one.
	assert.NoError(t, p.Publish(context.Background(), nil))
}
