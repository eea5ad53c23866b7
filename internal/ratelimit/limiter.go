package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dharmasatrya/skyfinder/internal/logger"
)

// Endpoint names used by the upstream client.
const (
	EndpointAirports = "airports"
	EndpointFlights  = "flights"
)

// ErrDeadline is returned by Wait when the caller's deadline falls before the
// endpoint's next free slot.
var ErrDeadline = errors.New("rate limit wait exceeds context deadline")

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 5,
		BurstSize:         10,
	}
}

// endpointBucket pairs a token bucket with a count of the waits it delayed.
type endpointBucket struct {
	limiter   *rate.Limiter
	throttled uint64
}

// EndpointLimiter keeps one token bucket per upstream endpoint so that airport
// autocomplete traffic cannot starve flight searches of quota.
type EndpointLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*endpointBucket
	defaults RateLimitConfig
}

func NewEndpointLimiter(config RateLimitConfig) *EndpointLimiter {
	return &EndpointLimiter{
		buckets:  make(map[string]*endpointBucket),
		defaults: config,
	}
}

func NewEndpointLimiterWithDefaults() *EndpointLimiter {
	return NewEndpointLimiter(DefaultConfig())
}

func newBucket(rps float64, burst int) *endpointBucket {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &endpointBucket{limiter: rate.NewLimiter(limit, burst)}
}

func (p *EndpointLimiter) bucket(endpoint string) *endpointBucket {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.buckets[endpoint]
	if !ok {
		b = newBucket(p.defaults.RequestsPerSecond, p.defaults.BurstSize)
		p.buckets[endpoint] = b
	}
	return b
}

// GetLimiter returns the bucket for endpoint, creating it from the defaults.
func (p *EndpointLimiter) GetLimiter(endpoint string) *rate.Limiter {
	return p.bucket(endpoint).limiter
}

// SetEndpointLimit replaces the bucket for endpoint. A non-positive rps disables
// limiting for it.
func (p *EndpointLimiter) SetEndpointLimit(endpoint string, rps float64, burst int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buckets[endpoint] = newBucket(rps, burst)
}

// Wait blocks until endpoint has a free slot. It fails fast with ErrDeadline when
// the slot lies past ctx's deadline, and logs every wait that had to be delayed.
func (p *EndpointLimiter) Wait(ctx context.Context, endpoint string) error {
	b := p.bucket(endpoint)

	r := b.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("%s: burst exceeded", endpoint)
	}
	delay := r.Delay()
	if delay == 0 {
		return nil
	}

	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
		r.Cancel()
		return fmt.Errorf("%s: %w", endpoint, ErrDeadline)
	}

	p.mu.Lock()
	b.throttled++
	count := b.throttled
	p.mu.Unlock()
	logger.Debug("Upstream request throttled", "endpoint", endpoint, "delay", delay, "throttled_total", count)

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// Throttled reports how many waits on endpoint were delayed by its bucket.
func (p *EndpointLimiter) Throttled(endpoint string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.buckets[endpoint]; ok {
		return b.throttled
	}
	return 0
}
