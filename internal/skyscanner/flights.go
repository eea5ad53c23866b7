package skyscanner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dharmasatrya/skyfinder/internal/logger"
	"github.com/dharmasatrya/skyfinder/internal/models"
	"github.com/dharmasatrya/skyfinder/internal/ratelimit"
)

type Outcome int

const (
	// OutcomeOK means at least one itinerary came back.
	OutcomeOK Outcome = iota
	// OutcomeEmpty means the response was well formed but carried no itineraries.
	OutcomeEmpty
)

func (o Outcome) String() string {
	if o == OutcomeEmpty {
		return "empty"
	}
	return "ok"
}

type Result struct {
	Outcome     Outcome
	Itineraries []models.Itinerary
}

type flightResponse struct {
	Data json.RawMessage `json:"data"`
}

type flightData struct {
	Itineraries json.RawMessage `json:"itineraries"`
}

type itineraryRecord struct {
	ID    string `json:"id"`
	Price struct {
		Raw       flexString `json:"raw"`
		Formatted string     `json:"formatted"`
	} `json:"price"`
	Legs       []legRecord       `json:"legs"`
	FarePolicy models.FarePolicy `json:"farePolicy"`
	Tags       []string          `json:"tags"`
}

type placeRecord struct {
	DisplayCode string `json:"displayCode"`
	City        string `json:"city"`
	Name        string `json:"name"`
}

type legRecord struct {
	ID                string      `json:"id"`
	Origin            placeRecord `json:"origin"`
	Destination       placeRecord `json:"destination"`
	DurationInMinutes int         `json:"durationInMinutes"`
	StopCount         int         `json:"stopCount"`
	Departure         string      `json:"departure"`
	Arrival           string      `json:"arrival"`
	Carriers          struct {
		Marketing []struct {
			Name    string `json:"name"`
			LogoURL string `json:"logoUrl"`
		} `json:"marketing"`
	} `json:"carriers"`
	Segments []segmentRecord `json:"segments"`
}

type segmentRecord struct {
	ID                string      `json:"id"`
	FlightNumber      string      `json:"flightNumber"`
	Origin            placeRecord `json:"origin"`
	Destination       placeRecord `json:"destination"`
	Departure         string      `json:"departure"`
	Arrival           string      `json:"arrival"`
	DurationInMinutes int         `json:"durationInMinutes"`
}

// SearchFlights runs one flight search. Transport failures, non-2xx statuses and
// bodies that do not match the expected shape are returned as *SearchError; a
// well-formed response without itineraries is OutcomeEmpty.
func (c *Client) SearchFlights(ctx context.Context, params models.SearchParameters) (Result, error) {
	body, err := c.get(ctx, ratelimit.EndpointFlights, flightsPath, params.Query())
	if err != nil {
		return Result{}, err
	}
	return ParseItineraries(body)
}

// ParseItineraries maps a flight search body. A missing or non-object data field,
// or an absent, null or empty itinerary list, is OutcomeEmpty. Records are kept
// in upstream order with unparseable leg times left zero; only a record with
// neither legs nor a price is dropped, and a list where every record is dropped
// is ErrMalformedResponse.
func ParseItineraries(body []byte) (Result, error) {
	var resp flightResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Result{}, malformed(err)
	}

	data := bytes.TrimSpace(resp.Data)
	if len(data) == 0 || data[0] != '{' {
		return Result{Outcome: OutcomeEmpty}, nil
	}
	var fd flightData
	if err := json.Unmarshal(data, &fd); err != nil {
		return Result{}, malformed(err)
	}

	raw := bytes.TrimSpace(fd.Itineraries)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Result{Outcome: OutcomeEmpty}, nil
	}
	if raw[0] != '[' {
		return Result{}, malformed(errors.New("data.itineraries is not a list"))
	}

	var records []itineraryRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return Result{}, malformed(err)
	}
	if len(records) == 0 {
		return Result{Outcome: OutcomeEmpty}, nil
	}

	itineraries := make([]models.Itinerary, 0, len(records))
	for i, r := range records {
		it, err := normalize(r)
		if err != nil {
			logger.Warn("Skipping unusable itinerary", "index", i, "id", r.ID, "error", err)
			continue
		}
		itineraries = append(itineraries, it)
	}

	if len(itineraries) == 0 {
		return Result{}, malformed(fmt.Errorf("none of %d itineraries is usable", len(records)))
	}
	return Result{Outcome: OutcomeOK, Itineraries: itineraries}, nil
}

func normalize(r itineraryRecord) (models.Itinerary, error) {
	if len(r.Legs) == 0 && r.Price.Raw == "" && r.Price.Formatted == "" {
		return models.Itinerary{}, errors.New("itinerary has no legs and no price")
	}

	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}

	legs := make([]models.Leg, len(r.Legs))
	for i, l := range r.Legs {
		legs[i] = normalizeLeg(id, l)
	}

	amount, _ := r.Price.Raw.Float()

	return models.Itinerary{
		ID:   id,
		Legs: legs,
		Price: models.Price{
			Amount:    amount,
			Formatted: r.Price.Formatted,
			Raw:       string(r.Price.Raw),
		},
		FarePolicy: r.FarePolicy,
		Tags:       r.Tags,
	}, nil
}

// normalizeLeg leaves a departure or arrival it cannot parse as the zero time,
// which renders as "N/A".
func normalizeLeg(itineraryID string, l legRecord) models.Leg {
	dep, err := parseTimestamp(l.Departure)
	if err != nil && l.Departure != "" {
		logger.Warn("Unparseable leg departure", "itinerary", itineraryID, "leg", l.ID, "value", l.Departure)
	}
	arr, err := parseTimestamp(l.Arrival)
	if err != nil && l.Arrival != "" {
		logger.Warn("Unparseable leg arrival", "itinerary", itineraryID, "leg", l.ID, "value", l.Arrival)
	}

	carriers := make([]models.Carrier, len(l.Carriers.Marketing))
	for i, c := range l.Carriers.Marketing {
		carriers[i] = models.Carrier{Name: c.Name, LogoURL: c.LogoURL}
	}

	segments := make([]models.Segment, 0, len(l.Segments))
	for _, s := range l.Segments {
		// Segment times are informational; a bad one does not invalidate the leg.
		sDep, _ := parseTimestamp(s.Departure)
		sArr, _ := parseTimestamp(s.Arrival)
		segments = append(segments, models.Segment{
			ID:                s.ID,
			FlightNumber:      s.FlightNumber,
			Origin:            place(s.Origin),
			Destination:       place(s.Destination),
			Departure:         sDep,
			Arrival:           sArr,
			DurationInMinutes: s.DurationInMinutes,
		})
	}

	return models.Leg{
		ID:                l.ID,
		Origin:            place(l.Origin),
		Destination:       place(l.Destination),
		Departure:         dep,
		Arrival:           arr,
		DurationInMinutes: l.DurationInMinutes,
		StopCount:         l.StopCount,
		Carriers:          models.Carriers{Marketing: carriers},
		Segments:          segments,
	}
}

func place(p placeRecord) models.Place {
	return models.Place{
		DisplayCode: p.DisplayCode,
		City:        firstNonEmpty(p.City, p.Name),
	}
}
