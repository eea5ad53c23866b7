package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/skyfinder/internal/models"
)

func sample(id string) models.Itinerary {
	return models.Itinerary{
		ID:    id,
		Price: models.Price{Amount: 199, Formatted: "$199"},
		Legs: []models.Leg{{
			ID:          id + "-leg",
			Origin:      models.Place{DisplayCode: "LHR", City: "London"},
			Destination: models.Place{DisplayCode: "JFK", City: "New York"},
			Departure:   time.Date(2026, 5, 1, 9, 45, 0, 0, time.UTC),
			Arrival:     time.Date(2026, 5, 1, 12, 40, 0, 0, time.UTC),
		}},
		Tags: []string{"cheapest"},
	}
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, time.Minute)
	t.Cleanup(func() { store.Close() })
	return mr, store
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr, store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, []models.Itinerary{sample("A"), sample("B")}))
	assert.True(t, mr.Exists("itinerary:A"))
	assert.Equal(t, time.Minute, mr.TTL("itinerary:B"))

	got, err := store.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, sample("A"), got)
}

func TestRedisStoreMissAndExpiry(t *testing.T) {
	mr, store := setupTestRedis(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, []models.Itinerary{sample("A")}))
	mr.FastForward(2 * time.Minute)

	_, err = store.Get(ctx, "A")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStorePutEmptyIsNoop(t *testing.T) {
	mr, store := setupTestRedis(t)
	require.NoError(t, store.Put(context.Background(), nil))
	assert.Empty(t, mr.Keys())
}

func TestNewRedisStorePingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port := mr.Host(), mr.Port()
	mr.Close()

	_, err := NewRedisStore(RedisConfig{Host: host, Port: port, TTL: time.Minute})
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, []models.Itinerary{sample("A")}))
	got, err := store.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "A", got.ID)

	_, err = store.Get(ctx, "B")
	assert.ErrorIs(t, err, ErrNotFound)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "A")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStorePutSweepsExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, []models.Itinerary{sample("A"), sample("B")}))
	now = now.Add(90 * time.Second)
	require.NoError(t, store.Put(ctx, []models.Itinerary{sample("C")}))

	assert.Equal(t, 1, store.Len())
	require.NoError(t, store.Close())
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreGetKeepsEntryRefreshedDuringExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	refresh := false
	store.now = func() time.Time {
		if refresh {
			// A search lands between Get's read and its eviction.
			refresh = false
			require.NoError(t, store.Put(ctx, []models.Itinerary{sample("A")}))
		}
		return now
	}

	require.NoError(t, store.Put(ctx, []models.Itinerary{sample("A")}))
	now = now.Add(2 * time.Minute)
	refresh = true

	got, err := store.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "A", got.ID)
	assert.Equal(t, 1, store.Len())

	_, err = store.Get(ctx, "A")
	assert.NoError(t, err)
}
