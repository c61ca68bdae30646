package model

// ChatResponse is the success body of the chat endpoint.
// RemainingFreeQueries is only reported for unsubscribed accounts.
type ChatResponse struct {
	Response             string `json:"response"`
	RemainingFreeQueries *int   `json:"remaining_free_queries,omitempty"`
}

// QuotaExceededResponse is returned when the monthly free quota is used up.
type QuotaExceededResponse struct {
	Message              string `json:"message"`
	LimitReached         bool   `json:"limit_reached"`
	RemainingFreeQueries int    `json:"remaining_free_queries"`
}

// ErrorResponse is the generic error envelope.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
