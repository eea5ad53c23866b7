package models

import "fmt"

type Airport struct {
	SkyID    string `json:"skyId"`
	EntityID string `json:"entityId"`
	Name     string `json:"name"`
	IATA     string `json:"iata"`
	City     string `json:"city"`
	Country  string `json:"country"`
	Type     string `json:"type"`
}

// Label is the text shown in the input once the airport is chosen.
func (a Airport) Label() string {
	return fmt.Sprintf("%s (%s)", a.Name, a.IATA)
}
