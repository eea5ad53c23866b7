package models

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/dharmasatrya/skyfinder/pkg/currency"
)

const DateLayout = "2006-01-02"

// Wire names of the SearchParameters fields. They double as the upstream query
// parameter names and as the names accepted by SetField.
const (
	FieldOriginSkyID         = "originSkyId"
	FieldDestinationSkyID    = "destinationSkyId"
	FieldOriginEntityID      = "originEntityId"
	FieldDestinationEntityID = "destinationEntityId"
	FieldDate                = "date"
	FieldCabinClass          = "cabinClass"
	FieldAdults              = "adults"
	FieldSortBy              = "sortBy"
	FieldCurrency            = "currency"
	FieldMarket              = "market"
	FieldCountryCode         = "countryCode"
)

var Fields = []string{
	FieldOriginSkyID,
	FieldDestinationSkyID,
	FieldOriginEntityID,
	FieldDestinationEntityID,
	FieldDate,
	FieldCabinClass,
	FieldAdults,
	FieldSortBy,
	FieldCurrency,
	FieldMarket,
	FieldCountryCode,
}

var CabinClasses = []string{"economy", "premium_economy", "business", "first"}

var SortOrders = []string{"best", "price_high", "price_low", "duration"}

const (
	MinAdults = 1
	MaxAdults = 9
)

type SearchParameters struct {
	OriginSkyID         string `json:"originSkyId"`
	DestinationSkyID    string `json:"destinationSkyId"`
	OriginEntityID      string `json:"originEntityId"`
	DestinationEntityID string `json:"destinationEntityId"`
	Date                string `json:"date"`
	CabinClass          string `json:"cabinClass"`
	Adults              int    `json:"adults"`
	SortBy              string `json:"sortBy"`
	Currency            string `json:"currency"`
	Market              string `json:"market"`
	CountryCode         string `json:"countryCode"`
}

// DefaultSearchParameters returns the form's initial state for the given day.
func DefaultSearchParameters(today time.Time) SearchParameters {
	return SearchParameters{
		Date:        today.Format(DateLayout),
		CabinClass:  "economy",
		Adults:      1,
		SortBy:      "best",
		Currency:    "USD",
		Market:      "en-US",
		CountryCode: "US",
	}
}

// AirportsResolved reports whether both origin and destination carry a full id pair.
func (p SearchParameters) AirportsResolved() bool {
	return p.OriginSkyID != "" && p.OriginEntityID != "" &&
		p.DestinationSkyID != "" && p.DestinationEntityID != ""
}

// Set merges one field by wire name. Only type coercion happens here; range and
// allow-list checks belong to ValidateField at the input boundary.
func (p *SearchParameters) Set(field, value string) error {
	switch field {
	case FieldOriginSkyID:
		p.OriginSkyID = value
	case FieldDestinationSkyID:
		p.DestinationSkyID = value
	case FieldOriginEntityID:
		p.OriginEntityID = value
	case FieldDestinationEntityID:
		p.DestinationEntityID = value
	case FieldDate:
		p.Date = value
	case FieldCabinClass:
		p.CabinClass = value
	case FieldAdults:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %q", ErrAdultsNotInteger, value)
		}
		p.Adults = n
	case FieldSortBy:
		p.SortBy = value
	case FieldCurrency:
		p.Currency = strings.ToUpper(value)
	case FieldMarket:
		p.Market = value
	case FieldCountryCode:
		p.CountryCode = strings.ToUpper(value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// Query encodes every field as a flat query string for the flight search endpoint.
func (p SearchParameters) Query() url.Values {
	v := url.Values{}
	v.Set(FieldOriginSkyID, p.OriginSkyID)
	v.Set(FieldDestinationSkyID, p.DestinationSkyID)
	v.Set(FieldOriginEntityID, p.OriginEntityID)
	v.Set(FieldDestinationEntityID, p.DestinationEntityID)
	v.Set(FieldDate, p.Date)
	v.Set(FieldCabinClass, p.CabinClass)
	v.Set(FieldAdults, strconv.Itoa(p.Adults))
	v.Set(FieldSortBy, p.SortBy)
	v.Set(FieldCurrency, p.Currency)
	v.Set(FieldMarket, p.Market)
	v.Set(FieldCountryCode, p.CountryCode)
	return v
}

// ValidateField applies the constraints the form enforces on user input before a
// value reaches SearchParameters.Set.
func ValidateField(field, value string, today time.Time) error {
	switch field {
	case FieldDate:
		d, err := time.Parse(DateLayout, value)
		if err != nil {
			return ErrInvalidDate
		}
		day, _ := time.Parse(DateLayout, today.Format(DateLayout))
		if d.Before(day) {
			return ErrDateInPast
		}
	case FieldAdults:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < MinAdults || n > MaxAdults {
			return ErrInvalidAdults
		}
	case FieldCabinClass:
		if !slices.Contains(CabinClasses, value) {
			return ErrInvalidCabinClass
		}
	case FieldSortBy:
		if !slices.Contains(SortOrders, value) {
			return ErrInvalidSortBy
		}
	case FieldCurrency:
		if !currency.IsSupported(value) {
			return ErrInvalidCurrency
		}
	case FieldMarket:
		if _, err := language.Parse(value); err != nil {
			return ErrInvalidMarket
		}
	case FieldCountryCode:
		if _, err := language.ParseRegion(value); err != nil {
			return ErrInvalidCountryCode
		}
	case FieldOriginSkyID, FieldDestinationSkyID, FieldOriginEntityID, FieldDestinationEntityID:
	default:
		return ErrUnknownField
	}
	return nil
}

type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrUnknownField       ValidationError = "unknown search field"
	ErrAdultsNotInteger   ValidationError = "adults must be an integer"
	ErrInvalidAdults      ValidationError = "adults must be between 1 and 9"
	ErrInvalidDate        ValidationError = "date must be formatted as YYYY-MM-DD"
	ErrDateInPast         ValidationError = "date must not be in the past"
	ErrInvalidCabinClass  ValidationError = "cabinClass must be one of economy, premium_economy, business, first"
	ErrInvalidSortBy      ValidationError = "sortBy must be one of best, price_high, price_low, duration"
	ErrInvalidCurrency    ValidationError = "currency is not supported"
	ErrInvalidMarket      ValidationError = "market must be a valid locale tag"
	ErrInvalidCountryCode ValidationError = "countryCode must be a valid region code"
)
