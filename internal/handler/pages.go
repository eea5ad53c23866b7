package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/skyfinder/internal/autocomplete"
	"github.com/dharmasatrya/skyfinder/internal/logger"
	"github.com/dharmasatrya/skyfinder/internal/models"
	"github.com/dharmasatrya/skyfinder/internal/render"
	"github.com/dharmasatrya/skyfinder/internal/search"
	"github.com/dharmasatrya/skyfinder/pkg/currency"
)

// formFields are the inputs the search page posts. Airport ids arrive through
// the autocomplete endpoints instead.
var formFields = []string{
	models.FieldDate,
	models.FieldCabinClass,
	models.FieldAdults,
	models.FieldSortBy,
	models.FieldCurrency,
	models.FieldMarket,
	models.FieldCountryCode,
}

type option struct {
	Value string
	Label string
}

type indexPage struct {
	State          search.State
	Rows           []render.Row
	Origin         autocomplete.State[models.Airport]
	Destination    autocomplete.State[models.Airport]
	CabinClasses   []string
	SortOrders     []string
	Currencies     []option
	Today          string
	MinQueryLength int
}

type detailPage struct {
	Found   bool
	Message string
	View    render.DetailView
}

func (h *Handler) Index(c echo.Context) error {
	return h.renderIndex(c, http.StatusOK, "")
}

// Submit applies the posted form and runs a search. A field failing validation
// is reported without searching.
func (h *Handler) Submit(c echo.Context) error {
	s := sessionFrom(c)
	today := h.now()

	for _, field := range formFields {
		value := c.FormValue(field)
		if value == "" {
			continue
		}
		if err := models.ValidateField(field, value, today); err != nil {
			return h.renderIndex(c, http.StatusBadRequest, err.Error())
		}
		if err := s.Controller.SetField(field, value); err != nil {
			return h.renderIndex(c, http.StatusBadRequest, err.Error())
		}
	}

	outcome := s.Controller.SubmitSearch(c.Request().Context())
	logger.Debug("Search submitted from form", "session", s.ID, "status", string(outcome.Status), "results", outcome.Count)

	code := http.StatusOK
	if outcome.Status == search.StatusInvalid {
		code = http.StatusBadRequest
	}
	return h.renderIndex(c, code, "")
}

func (h *Handler) Detail(c echo.Context) error {
	s := sessionFrom(c)
	it, ok := s.Controller.Itinerary(c.Request().Context(), c.Param("id"))
	if !ok {
		return c.Render(http.StatusNotFound, "detail.html", detailPage{Message: msgNoFlightData})
	}
	return c.Render(http.StatusOK, "detail.html", detailPage{
		Found: true,
		View:  render.Detail(it, s.Controller.Snapshot().Params.Currency),
	})
}

// renderIndex draws the search page. message overrides the controller's error
// when set.
func (h *Handler) renderIndex(c echo.Context, code int, message string) error {
	s := sessionFrom(c)
	state := s.Controller.Snapshot()
	if message != "" {
		state.Error = message
	}

	currencies := make([]option, 0, len(currency.Supported()))
	for _, cc := range currency.Supported() {
		currencies = append(currencies, option{Value: cc, Label: currency.Label(cc)})
	}

	return c.Render(code, "index.html", indexPage{
		State:          state,
		Rows:           render.Rows(state.Results, state.Params.Currency),
		Origin:         s.Origin.Snapshot(),
		Destination:    s.Destination.Snapshot(),
		CabinClasses:   models.CabinClasses,
		SortOrders:     models.SortOrders,
		Currencies:     currencies,
		Today:          h.now().Format(models.DateLayout),
		MinQueryLength: h.minQuery,
	})
}
