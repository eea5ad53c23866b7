// Package session keeps one search form per browser: a controller plus the two
// airport inputs feeding it.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dharmasatrya/skyfinder/internal/autocomplete"
	"github.com/dharmasatrya/skyfinder/internal/cache"
	"github.com/dharmasatrya/skyfinder/internal/logger"
	"github.com/dharmasatrya/skyfinder/internal/models"
	"github.com/dharmasatrya/skyfinder/internal/search"
)

// AirportLookup never fails; an unreachable upstream yields no airports.
type AirportLookup interface {
	LookupAirports(ctx context.Context, query string) []models.Airport
}

type Config struct {
	TTL          time.Duration
	Autocomplete autocomplete.Config
}

type Session struct {
	ID          string
	Controller  *search.Controller
	Origin      *autocomplete.Widget[models.Airport]
	Destination *autocomplete.Widget[models.Airport]

	mu       sync.Mutex
	lastSeen time.Time
}

// Widget returns the airport input for role.
func (s *Session) Widget(role search.Role) (*autocomplete.Widget[models.Airport], error) {
	switch role {
	case search.RoleOrigin:
		return s.Origin, nil
	case search.RoleDestination:
		return s.Destination, nil
	}
	return nil, search.ErrUnknownRole
}

// SelectAirport records the airport on the controller and mirrors its label into
// the matching input.
func (s *Session) SelectAirport(role search.Role, airport models.Airport) error {
	if err := s.Controller.SelectAirport(role, airport); err != nil {
		return err
	}
	w, _ := s.Widget(role)
	w.SetText(airport.Label())
	return nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

func (s *Session) close() {
	s.Origin.Close()
	s.Destination.Close()
	s.Controller.Close()
}

type Manager struct {
	mu       sync.Mutex
	cfg      Config
	searcher search.FlightSearcher
	airports AirportLookup
	store    cache.Store
	sessions map[string]*Session
	now      func() time.Time
}

func NewManager(cfg Config, searcher search.FlightSearcher, airports AirportLookup, store cache.Store) *Manager {
	return &Manager{
		cfg:      cfg,
		searcher: searcher,
		airports: airports,
		store:    store,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Get returns a live session and refreshes its idle clock.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	if m.expired(s, now) {
		m.evictLocked(id, s)
		return nil, false
	}
	s.touch(now)
	return s, true
}

// GetOrCreate returns the session for id, starting a new one when id is unknown
// or has expired. created reports whether a new id was issued.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s, false
		}
	}
	return m.Create(), true
}

func (m *Manager) Create() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)

	s := m.newSession(uuid.New().String())
	s.lastSeen = now
	m.sessions[s.ID] = s
	logger.Debug("Session created", "session", s.ID, "active", len(m.sessions))
	return s
}

func (m *Manager) newSession(id string) *Session {
	s := &Session{
		ID:         id,
		Controller: search.NewController(m.searcher, m.store),
	}
	var source autocomplete.Source[models.Airport] = func(ctx context.Context, query string) ([]models.Airport, error) {
		return m.airports.LookupAirports(ctx, query), nil
	}
	s.Origin = autocomplete.New(id+"/origin", source, models.Airport.Label, func(a models.Airport) {
		if err := s.Controller.SelectAirport(search.RoleOrigin, a); err != nil {
			logger.Error(err, "Origin selection rejected", "session", id)
		}
	}, m.cfg.Autocomplete)
	s.Destination = autocomplete.New(id+"/destination", source, models.Airport.Label, func(a models.Airport) {
		if err := s.Controller.SelectAirport(search.RoleDestination, a); err != nil {
			logger.Error(err, "Destination selection rejected", "session", id)
		}
	}, m.cfg.Autocomplete)
	return s
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close tears down every session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		m.evictLocked(id, s)
	}
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return m.cfg.TTL > 0 && s.idleSince(now) > m.cfg.TTL
}

func (m *Manager) sweepLocked(now time.Time) {
	for id, s := range m.sessions {
		if m.expired(s, now) {
			m.evictLocked(id, s)
		}
	}
}

func (m *Manager) evictLocked(id string, s *Session) {
	delete(m.sessions, id)
	s.close()
	logger.Debug("Session closed", "session", id)
}
