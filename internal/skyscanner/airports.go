package skyscanner

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"

	"github.com/dharmasatrya/skyfinder/internal/logger"
	"github.com/dharmasatrya/skyfinder/internal/models"
	"github.com/dharmasatrya/skyfinder/internal/ratelimit"
)

type airportResponse struct {
	Data json.RawMessage `json:"data"`
}

type airportRecord struct {
	SkyID        string     `json:"skyId"`
	EntityID     flexString `json:"entityId"`
	Name         string     `json:"name"`
	IATA         string     `json:"iata"`
	City         string     `json:"city"`
	Country      string     `json:"country"`
	Type         string     `json:"type"`
	Presentation struct {
		SuggestionTitle string `json:"suggestionTitle"`
		Subtitle        string `json:"subtitle"`
	} `json:"presentation"`
}

// LookupAirports returns the airports matching query. It never fails: any
// transport, status or decoding problem is logged and reported as no matches.
// Minimum query length is the caller's concern.
func (c *Client) LookupAirports(ctx context.Context, query string) []models.Airport {
	v := url.Values{}
	v.Set("query", query)
	v.Set("locale", c.locale)

	body, err := c.get(ctx, ratelimit.EndpointAirports, airportsPath, v)
	if err != nil {
		logger.Error(err, "Airport lookup failed", "query", query)
		return []models.Airport{}
	}

	airports, err := ParseAirports(body)
	if err != nil {
		logger.Error(err, "Airport lookup returned an unreadable body", "query", query)
		return []models.Airport{}
	}
	return airports
}

// ParseAirports maps an airport search body into Airports. A body whose data
// field is missing or not a list yields no airports; a body that is not JSON is
// ErrMalformedResponse.
func ParseAirports(body []byte) ([]models.Airport, error) {
	var resp airportResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, malformed(err)
	}

	data := bytes.TrimSpace(resp.Data)
	if len(data) == 0 || data[0] != '[' {
		return []models.Airport{}, nil
	}

	var records []airportRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, malformed(err)
	}

	airports := make([]models.Airport, 0, len(records))
	for _, r := range records {
		if r.SkyID == "" || r.EntityID == "" {
			logger.Debug("Skipping airport record without ids", "name", r.Name)
			continue
		}
		airports = append(airports, models.Airport{
			SkyID:    r.SkyID,
			EntityID: string(r.EntityID),
			Name:     firstNonEmpty(r.Presentation.SuggestionTitle, r.Name),
			IATA:     firstNonEmpty(r.IATA, r.SkyID),
			City:     firstNonEmpty(r.Presentation.Subtitle, r.City),
			Country:  r.Country,
			Type:     firstNonEmpty(r.Type, "airport"),
		})
	}
	return airports, nil
}
