package models

import "time"

type Itinerary struct {
	ID         string     `json:"id"`
	Legs       []Leg      `json:"legs"`
	Price      Price      `json:"price"`
	FarePolicy FarePolicy `json:"farePolicy"`
	Tags       []string   `json:"tags,omitempty"`
}

type Price struct {
	Amount    float64 `json:"amount"`
	Formatted string  `json:"formatted,omitempty"`
	Raw       string  `json:"raw,omitempty"`
}

type FarePolicy struct {
	IsChangeAllowed       bool `json:"isChangeAllowed"`
	IsPartiallyChangeable bool `json:"isPartiallyChangeable"`
	IsCancellationAllowed bool `json:"isCancellationAllowed"`
	IsPartiallyRefundable bool `json:"isPartiallyRefundable"`
}

type Leg struct {
	ID                string    `json:"id"`
	Origin            Place     `json:"origin"`
	Destination       Place     `json:"destination"`
	Departure         time.Time `json:"departure"`
	Arrival           time.Time `json:"arrival"`
	DurationInMinutes int       `json:"durationInMinutes"`
	StopCount         int       `json:"stopCount"`
	Carriers          Carriers  `json:"carriers"`
	Segments          []Segment `json:"segments"`
}

type Place struct {
	DisplayCode string `json:"displayCode"`
	City        string `json:"city"`
}

type Carriers struct {
	Marketing []Carrier `json:"marketing"`
}

type Carrier struct {
	Name    string `json:"name"`
	LogoURL string `json:"logoUrl,omitempty"`
}

type Segment struct {
	ID                string    `json:"id"`
	FlightNumber      string    `json:"flightNumber"`
	Origin            Place     `json:"origin"`
	Destination       Place     `json:"destination"`
	Departure         time.Time `json:"departure"`
	Arrival           time.Time `json:"arrival"`
	DurationInMinutes int       `json:"durationInMinutes"`
}

func (i Itinerary) FirstLeg() (Leg, bool) {
	if len(i.Legs) == 0 {
		return Leg{}, false
	}
	return i.Legs[0], true
}

func (l Leg) PrimaryCarrier() (Carrier, bool) {
	if len(l.Carriers.Marketing) == 0 {
		return Carrier{}, false
	}
	return l.Carriers.Marketing[0], true
}
