package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dharmasatrya/skyfinder/internal/models"
)

var ErrNotFound = errors.New("itinerary not found")

// Store keeps itineraries from recent searches addressable by their stable id so
// that a detail page can be rebuilt without the search that produced it.
type Store interface {
	Get(ctx context.Context, id string) (models.Itinerary, error)
	Put(ctx context.Context, itineraries []models.Itinerary) error
	Close() error
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     "localhost",
		Port:     "6379",
		Password: "",
		DB:       0,
		TTL:      30 * time.Minute,
	}
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewRedisStoreWithClient(client, cfg.TTL), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *RedisStore) Get(ctx context.Context, id string) (models.Itinerary, error) {
	data, err := s.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Itinerary{}, ErrNotFound
	}
	if err != nil {
		return models.Itinerary{}, err
	}

	var it models.Itinerary
	if err := json.Unmarshal(data, &it); err != nil {
		return models.Itinerary{}, err
	}
	return it, nil
}

func (s *RedisStore) Put(ctx context.Context, itineraries []models.Itinerary) error {
	if len(itineraries) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, it := range itineraries {
		data, err := json.Marshal(it)
		if err != nil {
			return err
		}
		pipe.Set(ctx, key(it.ID), data, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

type memoryEntry struct {
	itinerary models.Itinerary
	expires   time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore returns a process-local store. A non-positive ttl keeps entries
// until Close.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (models.Itinerary, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return models.Itinerary{}, ErrNotFound
	}
	now := s.now()
	if !e.expired(now) {
		return e.itinerary, nil
	}

	// The entry may have been refreshed since the read lock was released.
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok = s.entries[id]
	if !ok {
		return models.Itinerary{}, ErrNotFound
	}
	if e.expired(now) {
		delete(s.entries, id)
		return models.Itinerary{}, ErrNotFound
	}
	return e.itinerary, nil
}

func (s *MemoryStore) Put(ctx context.Context, itineraries []models.Itinerary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, id)
		}
	}

	var expires time.Time
	if s.ttl > 0 {
		expires = now.Add(s.ttl)
	}
	for _, it := range itineraries {
		s.entries[it.ID] = memoryEntry{itinerary: it, expires: expires}
	}
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.entries = make(map[string]memoryEntry)
	s.mu.Unlock()
	return nil
}

func key(id string) string {
	return "itinerary:" + id
}
