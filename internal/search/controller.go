// Package search holds the state behind one search form: parameters, the active
// result set, the loading flag and the user-facing error message.
package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dharmasatrya/skyfinder/internal/cache"
	"github.com/dharmasatrya/skyfinder/internal/logger"
	"github.com/dharmasatrya/skyfinder/internal/models"
	"github.com/dharmasatrya/skyfinder/internal/skyscanner"
)

const (
	MsgMissingAirports = "Please select both origin and destination airports"
	MsgNoResults       = "No flights found for the selected criteria."
	msgFetchPrefix     = "Error fetching flights: "
)

type Role string

const (
	RoleOrigin      Role = "origin"
	RoleDestination Role = "destination"
)

var ErrUnknownRole = errors.New("role must be origin or destination")

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleOrigin, RoleDestination:
		return Role(s), nil
	}
	return "", ErrUnknownRole
}

type FlightSearcher interface {
	SearchFlights(ctx context.Context, params models.SearchParameters) (skyscanner.Result, error)
}

// Status is the terminal state of one SubmitSearch call.
type Status string

const (
	StatusInvalid    Status = "invalid"
	StatusSuccess    Status = "success"
	StatusEmpty      Status = "empty"
	StatusFailed     Status = "failed"
	StatusSuperseded Status = "superseded"
)

type Outcome struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
	Err    error  `json:"-"`
}

type State struct {
	Params             models.SearchParameters `json:"params"`
	Results            []models.Itinerary      `json:"results"`
	Loading            bool                    `json:"loading"`
	Error              string                  `json:"error,omitempty"`
	OriginDisplay      string                  `json:"originDisplay"`
	DestinationDisplay string                  `json:"destinationDisplay"`
}

type Controller struct {
	mu          sync.Mutex
	searcher    FlightSearcher
	store       cache.Store
	params      models.SearchParameters
	results     []models.Itinerary
	loading     bool
	errMsg      string
	originLabel string
	destLabel   string

	seq    uint64
	cancel context.CancelFunc
}

// NewController starts from the default parameters for today. store may be nil.
func NewController(searcher FlightSearcher, store cache.Store) *Controller {
	return &Controller{
		searcher: searcher,
		store:    store,
		params:   models.DefaultSearchParameters(time.Now()),
		results:  []models.Itinerary{},
	}
}

// SetField merges one parameter. Only type coercion is applied.
func (c *Controller) SetField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.params
	if err := next.Set(name, value); err != nil {
		return err
	}
	c.params = next
	return nil
}

// SelectAirport records the chosen airport's ids and its display label.
func (c *Controller) SelectAirport(role Role, airport models.Airport) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch role {
	case RoleOrigin:
		c.params.OriginSkyID = airport.SkyID
		c.params.OriginEntityID = airport.EntityID
		c.originLabel = airport.Label()
	case RoleDestination:
		c.params.DestinationSkyID = airport.SkyID
		c.params.DestinationEntityID = airport.EntityID
		c.destLabel = airport.Label()
	default:
		return ErrUnknownRole
	}
	return nil
}

// SubmitSearch runs a search with the current parameters. Without both airports
// it fails locally and never calls the searcher. A newer submission cancels
// this one; its result is then dropped and StatusSuperseded returned.
func (c *Controller) SubmitSearch(ctx context.Context) Outcome {
	c.mu.Lock()
	if !c.params.AirportsResolved() {
		c.errMsg = MsgMissingAirports
		c.mu.Unlock()
		return Outcome{Status: StatusInvalid}
	}

	if c.cancel != nil {
		c.cancel()
	}
	c.seq++
	seq := c.seq
	params := c.params
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.loading = true
	c.errMsg = ""
	c.mu.Unlock()

	defer cancel()

	log := logger.WithFields(map[string]any{
		"origin":      params.OriginSkyID,
		"destination": params.DestinationSkyID,
		"date":        params.Date,
		"seq":         seq,
	})

	result, err := c.searcher.SearchFlights(ctx, params)

	outcome, store := c.finish(seq, result, err, log)
	if store != nil {
		if err := store.Put(ctx, result.Itineraries); err != nil {
			log.Error(err, "Failed to store itineraries")
		}
	}
	return outcome
}

// finish applies a completed search to the state. It returns the store to write
// the itineraries to when the search succeeded and is still current.
func (c *Controller) finish(seq uint64, result skyscanner.Result, err error, log *logger.Logger) (Outcome, cache.Store) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		log.Debug("Discarding superseded search result")
		return Outcome{Status: StatusSuperseded, Err: err}, nil
	}
	c.cancel = nil
	c.loading = false

	switch {
	case err != nil:
		log.Error(err, "Flight search failed")
		c.results = []models.Itinerary{}
		c.errMsg = msgFetchPrefix + err.Error()
		return Outcome{Status: StatusFailed, Err: err}, nil
	case result.Outcome == skyscanner.OutcomeEmpty || len(result.Itineraries) == 0:
		log.Info("Flight search returned no itineraries")
		c.results = []models.Itinerary{}
		c.errMsg = MsgNoResults
		return Outcome{Status: StatusEmpty}, nil
	default:
		log.Info("Flight search completed", "results", len(result.Itineraries))
		c.results = result.Itineraries
		c.errMsg = ""
		return Outcome{Status: StatusSuccess, Count: len(result.Itineraries)}, c.store
	}
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	results := make([]models.Itinerary, len(c.results))
	copy(results, c.results)
	return State{
		Params:             c.params,
		Results:            results,
		Loading:            c.loading,
		Error:              c.errMsg,
		OriginDisplay:      c.originLabel,
		DestinationDisplay: c.destLabel,
	}
}

// Itinerary finds an itinerary by id in the active results, falling back to the
// shared store.
func (c *Controller) Itinerary(ctx context.Context, id string) (models.Itinerary, bool) {
	c.mu.Lock()
	for _, it := range c.results {
		if it.ID == id {
			c.mu.Unlock()
			return it, true
		}
	}
	store := c.store
	c.mu.Unlock()

	if store == nil {
		return models.Itinerary{}, false
	}
	it, err := store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			logger.Error(err, "Itinerary lookup failed", "id", id)
		}
		return models.Itinerary{}, false
	}
	return it, true
}

// Close cancels an in-flight search.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
