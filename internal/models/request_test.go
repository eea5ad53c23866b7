package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)

func TestDefaultSearchParameters(t *testing.T) {
	p := DefaultSearchParameters(today)

	assert.Equal(t, "2026-03-14", p.Date)
	assert.Equal(t, "economy", p.CabinClass)
	assert.Equal(t, 1, p.Adults)
	assert.Equal(t, "best", p.SortBy)
	assert.Equal(t, "USD", p.Currency)
	assert.Equal(t, "en-US", p.Market)
	assert.Equal(t, "US", p.CountryCode)
	assert.False(t, p.AirportsResolved())
}

func TestSetCoercesAndMerges(t *testing.T) {
	p := DefaultSearchParameters(today)

	require.NoError(t, p.Set(FieldAdults, " 3 "))
	require.NoError(t, p.Set(FieldCurrency, "eur"))
	require.NoError(t, p.Set(FieldCabinClass, "business"))

	assert.Equal(t, 3, p.Adults)
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, "business", p.CabinClass)
	assert.Equal(t, "best", p.SortBy, "untouched fields keep their value")
}

func TestSetDoesNotRangeCheck(t *testing.T) {
	p := DefaultSearchParameters(today)
	require.NoError(t, p.Set(FieldAdults, "42"))
	assert.Equal(t, 42, p.Adults)
}

func TestSetErrors(t *testing.T) {
	p := DefaultSearchParameters(today)

	assert.ErrorIs(t, p.Set(FieldAdults, "two"), ErrAdultsNotInteger)
	assert.ErrorIs(t, p.Set("returnDate", "2026-04-01"), ErrUnknownField)
	assert.Equal(t, 1, p.Adults)
}

func TestAirportsResolvedNeedsBothPairs(t *testing.T) {
	p := DefaultSearchParameters(today)
	p.OriginSkyID, p.OriginEntityID = "LHR", "95565050"
	assert.False(t, p.AirportsResolved())

	p.DestinationSkyID = "JFK"
	assert.False(t, p.AirportsResolved())

	p.DestinationEntityID = "95565058"
	assert.True(t, p.AirportsResolved())
}

func TestQueryCarriesEveryField(t *testing.T) {
	p := DefaultSearchParameters(today)
	p.OriginSkyID, p.OriginEntityID = "LOND", "27544008"
	p.DestinationSkyID, p.DestinationEntityID = "NYCA", "27537542"
	p.Market = "en-GB"

	q := p.Query()
	for _, f := range Fields {
		assert.True(t, q.Has(f), "missing %s", f)
	}
	assert.Equal(t, "LOND", q.Get(FieldOriginSkyID))
	assert.Equal(t, "1", q.Get(FieldAdults))
	assert.Contains(t, q.Encode(), "market=en-GB")
}

func TestValidateField(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
		want  error
	}{
		{"today is allowed", FieldDate, "2026-03-14", nil},
		{"future date", FieldDate, "2026-12-01", nil},
		{"past date", FieldDate, "2026-03-13", ErrDateInPast},
		{"malformed date", FieldDate, "14/03/2026", ErrInvalidDate},
		{"one adult", FieldAdults, "1", nil},
		{"nine adults", FieldAdults, "9", nil},
		{"zero adults", FieldAdults, "0", ErrInvalidAdults},
		{"ten adults", FieldAdults, "10", ErrInvalidAdults},
		{"non numeric adults", FieldAdults, "x", ErrInvalidAdults},
		{"cabin", FieldCabinClass, "premium_economy", nil},
		{"bad cabin", FieldCabinClass, "coach", ErrInvalidCabinClass},
		{"sort", FieldSortBy, "price_low", nil},
		{"bad sort", FieldSortBy, "cheapest", ErrInvalidSortBy},
		{"currency", FieldCurrency, "GBP", nil},
		{"unsupported currency", FieldCurrency, "JPY", ErrInvalidCurrency},
		{"market", FieldMarket, "en-US", nil},
		{"bad market", FieldMarket, "not a tag", ErrInvalidMarket},
		{"country", FieldCountryCode, "GB", nil},
		{"bad country", FieldCountryCode, "U$", ErrInvalidCountryCode},
		{"ids are free text", FieldOriginSkyID, "LHR", nil},
		{"unknown", "returnDate", "2026-04-01", ErrUnknownField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateField(tt.field, tt.value, today)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAirportLabel(t *testing.T) {
	a := Airport{Name: "Heathrow", IATA: "LHR"}
	assert.Equal(t, "Heathrow (LHR)", a.Label())
}

func TestItineraryAccessors(t *testing.T) {
	var empty Itinerary
	_, ok := empty.FirstLeg()
	assert.False(t, ok)

	it := Itinerary{Legs: []Leg{{ID: "a", Carriers: Carriers{Marketing: []Carrier{{Name: "British Airways"}}}}}}
	leg, ok := it.FirstLeg()
	require.True(t, ok)
	c, ok := leg.PrimaryCarrier()
	require.True(t, ok)
	assert.Equal(t, "British Airways", c.Name)

	_, ok = Leg{}.PrimaryCarrier()
	assert.False(t, ok)
}
