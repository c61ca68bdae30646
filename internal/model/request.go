package model

// ChatRequest is the body of the chat endpoint.
// Emptiness after trimming is checked by the service, not the binding,
// so that a whitespace-only prompt gets the same validation error.
type ChatRequest struct {
	Prompt string `json:"prompt"`
}
