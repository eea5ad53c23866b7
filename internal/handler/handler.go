package handler

import (
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/skyfinder/internal/autocomplete"
	"github.com/dharmasatrya/skyfinder/internal/models"
	"github.com/dharmasatrya/skyfinder/internal/render"
	"github.com/dharmasatrya/skyfinder/internal/search"
	"github.com/dharmasatrya/skyfinder/internal/session"
)

const msgNoFlightData = "No flight data available"

type Handler struct {
	sessions *session.Manager
	airports session.AirportLookup
	minQuery int
	now      func() time.Time
}

func New(sessions *session.Manager, airports session.AirportLookup, minQueryLength int) *Handler {
	if minQueryLength < 1 {
		minQueryLength = 1
	}
	return &Handler{
		sessions: sessions,
		airports: airports,
		minQuery: minQueryLength,
		now:      time.Now,
	}
}

// Register mounts every page and API route on e.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", HealthHandler)

	pages := e.Group("", h.SessionMiddleware)
	pages.GET("/", h.Index)
	pages.POST("/search", h.Submit)
	pages.GET("/flights/:id", h.Detail)

	api := e.Group("/api/v1")
	api.GET("/airports", h.Airports)

	sess := api.Group("/session", h.SessionMiddleware)
	sess.GET("", h.Session)
	sess.PATCH("/params", h.UpdateParam)
	sess.POST("/airports/:role", h.SelectAirport)
	sess.POST("/search", h.Search)
	sess.GET("/autocomplete/:role", h.Suggestions)
	sess.POST("/autocomplete/:role/input", h.Input)
	sess.POST("/autocomplete/:role/focus", h.Focus)
	sess.POST("/autocomplete/:role/blur", h.Blur)
	sess.POST("/autocomplete/:role/select", h.Pick)

	api.GET("/flights/:id", h.Flight, h.SessionMiddleware)
}

type sessionView struct {
	ID          string                             `json:"id"`
	State       search.State                       `json:"state"`
	Rows        []render.Row                       `json:"rows"`
	Origin      autocomplete.State[models.Airport] `json:"origin"`
	Destination autocomplete.State[models.Airport] `json:"destination"`
}

func viewOf(s *session.Session) sessionView {
	state := s.Controller.Snapshot()
	return sessionView{
		ID:          s.ID,
		State:       state,
		Rows:        render.Rows(state.Results, state.Params.Currency),
		Origin:      s.Origin.Snapshot(),
		Destination: s.Destination.Snapshot(),
	}
}

type searchResponse struct {
	Status  search.Status `json:"status"`
	Count   int           `json:"count"`
	Error   string        `json:"error,omitempty"`
	Session sessionView   `json:"session"`
}

type flightResponse struct {
	Itinerary models.Itinerary  `json:"itinerary"`
	Detail    render.DetailView `json:"detail"`
}

func (h *Handler) Airports(c echo.Context) error {
	query := c.QueryParam("query")
	if utf8.RuneCountInString(query) < h.minQuery {
		return c.JSON(http.StatusOK, []models.Airport{})
	}
	return c.JSON(http.StatusOK, h.airports.LookupAirports(c.Request().Context(), query))
}

func (h *Handler) Session(c echo.Context) error {
	return c.JSON(http.StatusOK, viewOf(sessionFrom(c)))
}

func (h *Handler) UpdateParam(c echo.Context) error {
	var req models.FieldUpdate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_request", "Failed to parse request body: "+err.Error())
	}
	if err := models.ValidateField(req.Field, req.Value, h.now()); err != nil {
		return badRequest(c, "validation_error", err.Error())
	}

	s := sessionFrom(c)
	if err := s.Controller.SetField(req.Field, req.Value); err != nil {
		return badRequest(c, "validation_error", err.Error())
	}
	return c.JSON(http.StatusOK, viewOf(s))
}

func (h *Handler) SelectAirport(c echo.Context) error {
	role, err := search.ParseRole(c.Param("role"))
	if err != nil {
		return badRequest(c, "invalid_role", err.Error())
	}
	var airport models.Airport
	if err := c.Bind(&airport); err != nil {
		return badRequest(c, "invalid_request", "Failed to parse request body: "+err.Error())
	}
	if airport.SkyID == "" || airport.EntityID == "" {
		return badRequest(c, "validation_error", "skyId and entityId are required")
	}

	s := sessionFrom(c)
	if err := s.SelectAirport(role, airport); err != nil {
		return badRequest(c, "invalid_role", err.Error())
	}
	return c.JSON(http.StatusOK, viewOf(s))
}

func (h *Handler) Search(c echo.Context) error {
	s := sessionFrom(c)
	outcome := s.Controller.SubmitSearch(c.Request().Context())
	view := viewOf(s)

	code := http.StatusOK
	switch outcome.Status {
	case search.StatusInvalid:
		code = http.StatusBadRequest
	case search.StatusFailed:
		code = http.StatusBadGateway
	case search.StatusSuperseded:
		code = http.StatusConflict
	}
	return c.JSON(code, searchResponse{
		Status:  outcome.Status,
		Count:   outcome.Count,
		Error:   view.State.Error,
		Session: view,
	})
}

func (h *Handler) Suggestions(c echo.Context) error {
	w, err := widgetFor(c)
	if err != nil {
		return badRequest(c, "invalid_role", err.Error())
	}
	return c.JSON(http.StatusOK, w.Snapshot())
}

func (h *Handler) Input(c echo.Context) error {
	w, err := widgetFor(c)
	if err != nil {
		return badRequest(c, "invalid_role", err.Error())
	}
	var req models.AutocompleteInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_request", "Failed to parse request body: "+err.Error())
	}
	w.Input(req.Text)
	return c.JSON(http.StatusAccepted, w.Snapshot())
}

func (h *Handler) Focus(c echo.Context) error {
	w, err := widgetFor(c)
	if err != nil {
		return badRequest(c, "invalid_role", err.Error())
	}
	w.Focus()
	return c.JSON(http.StatusOK, w.Snapshot())
}

func (h *Handler) Blur(c echo.Context) error {
	w, err := widgetFor(c)
	if err != nil {
		return badRequest(c, "invalid_role", err.Error())
	}
	w.Blur()
	return c.JSON(http.StatusOK, w.Snapshot())
}

func (h *Handler) Pick(c echo.Context) error {
	w, err := widgetFor(c)
	if err != nil {
		return badRequest(c, "invalid_role", err.Error())
	}
	var req models.SuggestionPick
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid_request", "Failed to parse request body: "+err.Error())
	}
	if _, err := w.SelectIndex(req.Index); err != nil {
		if errors.Is(err, autocomplete.ErrNoSuchSuggestion) {
			return badRequest(c, "invalid_selection", err.Error())
		}
		return err
	}
	return c.JSON(http.StatusOK, viewOf(sessionFrom(c)))
}

func (h *Handler) Flight(c echo.Context) error {
	s := sessionFrom(c)
	it, ok := s.Controller.Itinerary(c.Request().Context(), c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: msgNoFlightData,
			Code:    http.StatusNotFound,
		})
	}
	return c.JSON(http.StatusOK, flightResponse{
		Itinerary: it,
		Detail:    render.Detail(it, s.Controller.Snapshot().Params.Currency),
	})
}

func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func widgetFor(c echo.Context) (*autocomplete.Widget[models.Airport], error) {
	role, err := search.ParseRole(c.Param("role"))
	if err != nil {
		return nil, err
	}
	return sessionFrom(c).Widget(role)
}

func badRequest(c echo.Context, kind, message string) error {
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   kind,
		Message: message,
		Code:    http.StatusBadRequest,
	})
}
