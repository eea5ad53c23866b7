package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/skyfinder/internal/autocomplete"
	"github.com/dharmasatrya/skyfinder/internal/cache"
	"github.com/dharmasatrya/skyfinder/internal/models"
	"github.com/dharmasatrya/skyfinder/internal/session"
	"github.com/dharmasatrya/skyfinder/internal/skyscanner"
)

type fakeFlights struct {
	result skyscanner.Result
	err    error
}

func (f *fakeFlights) SearchFlights(ctx context.Context, params models.SearchParameters) (skyscanner.Result, error) {
	return f.result, f.err
}

type fakeAirports struct{}

func (fakeAirports) LookupAirports(ctx context.Context, query string) []models.Airport {
	return []models.Airport{
		{SkyID: "LHR", EntityID: "95565050", Name: "London Heathrow", IATA: "LHR", City: "London", Type: "airport"},
		{SkyID: "LGW", EntityID: "95565051", Name: "London Gatwick", IATA: "LGW", City: "London", Type: "airport"},
	}
}

func newTestServer(t *testing.T, flights *fakeFlights) *echo.Echo {
	t.Helper()
	store := cache.NewMemoryStore(time.Hour)
	sessions := session.NewManager(session.Config{
		TTL:          time.Hour,
		Autocomplete: autocomplete.Config{Debounce: time.Millisecond, BlurGrace: time.Millisecond, MinQueryLength: 2},
	}, flights, fakeAirports{}, store)
	t.Cleanup(sessions.Close)

	renderer, err := NewRenderer()
	require.NoError(t, err)

	e := echo.New()
	e.Renderer = renderer
	New(sessions, fakeAirports{}, 2).Register(e)
	return e
}

type client struct {
	t       *testing.T
	e       *echo.Echo
	cookies []*http.Cookie
}

func (c *client) do(method, target, contentType, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.e.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		c.cookies = cookies
	}
	return rec
}

func (c *client) json(method, target, body string) *httptest.ResponseRecorder {
	return c.do(method, target, echo.MIMEApplicationJSON, body)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func twoResults() skyscanner.Result {
	return skyscanner.Result{
		Outcome: skyscanner.OutcomeOK,
		Itineraries: []models.Itinerary{
			{
				ID:    "A",
				Price: models.Price{Amount: 412.5, Formatted: "$413"},
				Legs: []models.Leg{{
					Origin:            models.Place{DisplayCode: "LHR", City: "London"},
					Destination:       models.Place{DisplayCode: "JFK", City: "New York"},
					Departure:         time.Date(2026, 5, 1, 9, 45, 0, 0, time.UTC),
					Arrival:           time.Date(2026, 5, 1, 12, 40, 0, 0, time.UTC),
					DurationInMinutes: 475,
					Carriers:          models.Carriers{Marketing: []models.Carrier{{Name: "British Airways"}}},
					Segments:          []models.Segment{{FlightNumber: "117"}},
				}},
			},
			{ID: "B", Price: models.Price{Raw: "530"}, Legs: []models.Leg{{StopCount: 1}}},
		},
	}
}

func selectBothAirports(t *testing.T, c *client) {
	t.Helper()
	rec := c.json(http.MethodPost, "/api/v1/session/airports/origin", `{"skyId":"LHR","entityId":"95565050","name":"London Heathrow","iata":"LHR"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = c.json(http.MethodPost, "/api/v1/session/airports/destination", `{"skyId":"JFK","entityId":"95565058","name":"John F. Kennedy","iata":"JFK"}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	c := &client{t: t, e: newTestServer(t, &fakeFlights{})}
	rec := c.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestIndexIssuesSessionCookie(t *testing.T) {
	c := &client{t: t, e: newTestServer(t, &fakeFlights{})}
	rec := c.do(http.MethodGet, "/", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Search Flights")
	require.Len(t, c.cookies, 1)
	assert.Equal(t, SessionCookie, c.cookies[0].Name)

	first := c.cookies[0].Value
	rec = c.do(http.MethodGet, "/api/v1/session", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first, decode[sessionView](t, rec).ID)
}

func TestAirportsEnforcesMinimumLength(t *testing.T) {
	c := &client{t: t, e: newTestServer(t, &fakeFlights{})}

	rec := c.do(http.MethodGet, "/api/v1/airports?query=L", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = c.do(http.MethodGet, "/api/v1/airports?query="+url.QueryEscape("Lon"), "", "")
	assert.Len(t, decode[[]models.Airport](t, rec), 2)
}

func TestUpdateParamValidatesAtBoundary(t *testing.T) {
	c := &client{t: t, e: newTestServer(t, &fakeFlights{})}

	rec := c.json(http.MethodPatch, "/api/v1/session/params", `{"field":"adults","value":"12"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", decode[models.ErrorResponse](t, rec).Error)

	rec = c.json(http.MethodPatch, "/api/v1/session/params", `{"field":"seat","value":"12A"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.json(http.MethodPatch, "/api/v1/session/params", `{"field":"adults","value":"3"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[sessionView](t, rec)
	assert.Equal(t, 3, view.State.Params.Adults)

	rec = c.json(http.MethodPatch, "/api/v1/session/params", `{"field":"currency","value":"eur"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "EUR", decode[sessionView](t, rec).State.Params.Currency)
}

func TestSearchWithoutAirports(t *testing.T) {
	c := &client{t: t, e: newTestServer(t, &fakeFlights{result: twoResults()})}

	rec := c.json(http.MethodPost, "/api/v1/session/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[searchResponse](t, rec)
	assert.Equal(t, "invalid", string(resp.Status))
	assert.Equal(t, "Please select both origin and destination airports", resp.Error)
}

func TestSearchAndDetail(t *testing.T) {
	e := newTestServer(t, &fakeFlights{result: twoResults()})
	c := &client{t: t, e: e}
	selectBothAirports(t, c)

	rec := c.json(http.MethodPost, "/api/v1/session/search", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[searchResponse](t, rec)
	assert.Equal(t, "success", string(resp.Status))
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Session.Rows, 2)
	assert.Equal(t, "British Airways", resp.Session.Rows[0].Airline)
	assert.Equal(t, "LHR → JFK", resp.Session.Rows[0].Route)
	assert.Equal(t, "Airline", resp.Session.Rows[1].Airline)
	assert.Equal(t, "530", resp.Session.Rows[1].Price)
	assert.Equal(t, "London Heathrow (LHR)", resp.Session.State.OriginDisplay)

	rec = c.do(http.MethodGet, "/api/v1/flights/A", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	flight := decode[flightResponse](t, rec)
	assert.Equal(t, "A", flight.Itinerary.ID)
	assert.Equal(t, "117", flight.Detail.Legs[0].FlightNumber)

	rec = c.do(http.MethodGet, "/flights/A", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "British Airways")
	assert.Contains(t, rec.Body.String(), "Fare policy")

	// A fresh browser can still open a shared link through the store.
	other := &client{t: t, e: e}
	rec = other.do(http.MethodGet, "/flights/B", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDetailUnknownID(t *testing.T) {
	c := &client{t: t, e: newTestServer(t, &fakeFlights{})}

	rec := c.do(http.MethodGet, "/flights/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "No flight data available")

	rec = c.do(http.MethodGet, "/api/v1/flights/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No flight data available", decode[models.ErrorResponse](t, rec).Message)
}

func TestSearchFailureAndEmpty(t *testing.T) {
	flights := &fakeFlights{err: &skyscanner.SearchError{Kind: skyscanner.FailureStatus, StatusCode: http.StatusTooManyRequests}}
	c := &client{t: t, e: newTestServer(t, flights)}
	selectBothAirports(t, c)

	rec := c.json(http.MethodPost, "/api/v1/session/search", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decode[searchResponse](t, rec)
	assert.Equal(t, "failed", string(resp.Status))
	assert.True(t, strings.HasPrefix(resp.Error, "Error fetching flights: "))
	assert.Empty(t, resp.Session.Rows)

	flights.err = nil
	flights.result = skyscanner.Result{Outcome: skyscanner.OutcomeEmpty}
	rec = c.json(http.MethodPost, "/api/v1/session/search", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	resp = decode[searchResponse](t, rec)
	assert.Equal(t, "empty", string(resp.Status))
	assert.Equal(t, "No flights found for the selected criteria.", resp.Error)
}

func TestFormSubmit(t *testing.T) {
	c := &client{t: t, e: newTestServer(t, &fakeFlights{result: twoResults()})}
	selectBothAirports(t, c)

	form := url.Values{"date": {"2099-01-15"}, "adults": {"2"}, "cabinClass": {"business"}}
	rec := c.do(http.MethodPost, "/search", echo.MIMEApplicationForm, form.Encode())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/flights/A")

	state := decode[sessionView](t, c.do(http.MethodGet, "/api/v1/session", "", "")).State
	assert.Equal(t, "2099-01-15", state.Params.Date)
	assert.Equal(t, 2, state.Params.Adults)
	assert.Equal(t, "business", state.Params.CabinClass)

	form = url.Values{"date": {"2001-01-01"}}
	rec = c.do(http.MethodPost, "/search", echo.MIMEApplicationForm, form.Encode())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "date must not be in the past")
}

func TestAutocompleteFlow(t *testing.T) {
	c := &client{t: t, e: newTestServer(t, &fakeFlights{})}

	rec := c.json(http.MethodPost, "/api/v1/session/autocomplete/origin/input", `{"text":"Lon"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		rec := c.do(http.MethodGet, "/api/v1/session/autocomplete/origin", "", "")
		state := decode[autocomplete.State[models.Airport]](t, rec)
		return state.Visible && len(state.Suggestions) == 2
	}, time.Second, 5*time.Millisecond)

	rec = c.json(http.MethodPost, "/api/v1/session/autocomplete/origin/select", `{"index":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.json(http.MethodPost, "/api/v1/session/autocomplete/origin/select", `{"index":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[sessionView](t, rec)
	assert.Equal(t, "LGW", view.State.Params.OriginSkyID)
	assert.Equal(t, "London Gatwick (LGW)", view.Origin.Text)
	assert.False(t, view.Origin.Visible)

	rec = c.json(http.MethodPost, "/api/v1/session/autocomplete/layover/input", `{"text":"Lon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
