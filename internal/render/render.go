// Package render maps itineraries to the rows shown on the results list and the
// detail page. Missing upstream data degrades to placeholders here, never to
// errors.
package render

import (
	"fmt"
	"time"

	"github.com/dharmasatrya/skyfinder/internal/models"
	"github.com/dharmasatrya/skyfinder/pkg/currency"
)

const notAvailable = "N/A"

type Row struct {
	ID            string `json:"id"`
	Airline       string `json:"airline"`
	Stops         string `json:"stops"`
	DepartureTime string `json:"departureTime"`
	DepartureDate string `json:"departureDate"`
	ArrivalTime   string `json:"arrivalTime"`
	ArrivalDate   string `json:"arrivalDate"`
	Duration      string `json:"duration"`
	Route         string `json:"route"`
	Price         string `json:"price"`
}

type LegView struct {
	Carrier         string `json:"carrier"`
	LogoURL         string `json:"logoUrl,omitempty"`
	OriginCode      string `json:"originCode"`
	DestinationCode string `json:"destinationCode"`
	OriginCity      string `json:"originCity"`
	DestinationCity string `json:"destinationCity"`
	Departure       string `json:"departure"`
	Arrival         string `json:"arrival"`
	Duration        string `json:"duration"`
	Stops           string `json:"stops"`
	FlightNumber    string `json:"flightNumber"`
}

type PolicyItem struct {
	Label   string `json:"label"`
	Allowed bool   `json:"allowed"`
}

func (p PolicyItem) Answer() string {
	if p.Allowed {
		return "Yes"
	}
	return "No"
}

type DetailView struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Price      string       `json:"price"`
	Tags       []string     `json:"tags,omitempty"`
	Legs       []LegView    `json:"legs"`
	FarePolicy []PolicyItem `json:"farePolicy"`
}

func Rows(itineraries []models.Itinerary, currencyCode string) []Row {
	rows := make([]Row, len(itineraries))
	for i, it := range itineraries {
		rows[i] = RowFor(it, currencyCode)
	}
	return rows
}

// RowFor summarises an itinerary by its first leg.
func RowFor(it models.Itinerary, currencyCode string) Row {
	row := Row{
		ID:            it.ID,
		Airline:       "Airline",
		Stops:         notAvailable,
		DepartureTime: notAvailable,
		ArrivalTime:   notAvailable,
		Duration:      notAvailable,
		Route:         notAvailable + " → " + notAvailable,
		Price:         Price(it.Price, currencyCode),
	}

	leg, ok := it.FirstLeg()
	if !ok {
		return row
	}
	if c, ok := leg.PrimaryCarrier(); ok && c.Name != "" {
		row.Airline = c.Name
	}
	row.Stops = Stops(leg.StopCount)
	if !leg.Departure.IsZero() {
		row.DepartureTime = leg.Departure.Format("15:04")
		row.DepartureDate = leg.Departure.Format("Jan 2")
	}
	if !leg.Arrival.IsZero() {
		row.ArrivalTime = leg.Arrival.Format("15:04")
		row.ArrivalDate = leg.Arrival.Format("Jan 2")
	}
	if leg.DurationInMinutes > 0 {
		row.Duration = Duration(leg.DurationInMinutes)
	}
	row.Route = orNA(leg.Origin.DisplayCode) + " → " + orNA(leg.Destination.DisplayCode)
	return row
}

func Detail(it models.Itinerary, currencyCode string) DetailView {
	legs := make([]LegView, len(it.Legs))
	for i, leg := range it.Legs {
		v := LegView{
			Carrier:         "Airline",
			OriginCode:      orNA(leg.Origin.DisplayCode),
			DestinationCode: orNA(leg.Destination.DisplayCode),
			OriginCity:      leg.Origin.City,
			DestinationCity: leg.Destination.City,
			Departure:       DateTime(leg.Departure),
			Arrival:         DateTime(leg.Arrival),
			Duration:        Duration(leg.DurationInMinutes),
			Stops:           Stops(leg.StopCount),
			FlightNumber:    notAvailable,
		}
		if c, ok := leg.PrimaryCarrier(); ok {
			if c.Name != "" {
				v.Carrier = c.Name
			}
			v.LogoURL = c.LogoURL
		}
		if len(leg.Segments) > 0 && leg.Segments[0].FlightNumber != "" {
			v.FlightNumber = leg.Segments[0].FlightNumber
		}
		legs[i] = v
	}

	fp := it.FarePolicy
	return DetailView{
		ID:    it.ID,
		Title: "Flight " + it.ID,
		Price: Price(it.Price, currencyCode),
		Tags:  it.Tags,
		Legs:  legs,
		FarePolicy: []PolicyItem{
			{Label: "Change Allowed", Allowed: fp.IsChangeAllowed},
			{Label: "Partially Changeable", Allowed: fp.IsPartiallyChangeable},
			{Label: "Cancellation Allowed", Allowed: fp.IsCancellationAllowed},
			{Label: "Partially Refundable", Allowed: fp.IsPartiallyRefundable},
		},
	}
}

// Price prefers the upstream's formatted string, then a locally formatted
// amount, then the raw text.
func Price(p models.Price, currencyCode string) string {
	switch {
	case p.Formatted != "":
		return p.Formatted
	case p.Raw != "" && p.Amount != 0 && currencyCode != "":
		return currency.Format(p.Amount, currencyCode)
	case p.Raw != "":
		return p.Raw
	default:
		return notAvailable
	}
}

func Duration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func Stops(n int) string {
	if n <= 0 {
		return "Direct"
	}
	return fmt.Sprintf("%d stop(s)", n)
}

func DateTime(t time.Time) string {
	if t.IsZero() {
		return notAvailable
	}
	return t.Format("Mon, Jan 2 15:04")
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
