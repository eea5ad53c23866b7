package models

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type FieldUpdate struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type AutocompleteInput struct {
	Text string `json:"text"`
}

type SuggestionPick struct {
	Index int `json:"index"`
}
