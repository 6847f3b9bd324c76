package server

import "encoding/json"

// HTTPError is a generic error envelope returned by the server.
type HTTPError struct {
	Error string `json:"error"`
}

// AuthSignupRequest represents the signup payload.
type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthLoginRequest represents the login payload.
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

// IDResponse is a generic id response wrapper.
type IDResponse struct {
	ID string `json:"id"`
}

// EntryRequest represents a knowledge-base entry payload.
type EntryRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SearchHitResponse is one full-text search result over the knowledge base.
type SearchHitResponse struct {
	EntryID  string  `json:"entry_id"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
}

// ResolveRequest asks for a batch of free-form questions to be answered.
type ResolveRequest struct {
	Questions   []string `json:"questions"`
	UserContext string   `json:"user_context,omitempty"`
}

// ProcessFormRequest asks for a live form to be fetched, parsed and answered.
type ProcessFormRequest struct {
	FormURL     string `json:"form_url"`
	UserContext string `json:"user_context,omitempty"`
}

// SaveSubmissionRequest records a client-side submission in the history.
type SaveSubmissionRequest struct {
	FormURL string          `json:"form_url,omitempty"`
	BatchID string          `json:"batch_id,omitempty"`
	Results json.RawMessage `json:"results"`
}

// ProcessFormResponse returns the parsed form alongside the resolved answers.
type ProcessFormResponse struct {
	SubmissionID string      `json:"submission_id"`
	BatchID      string      `json:"batch_id"`
	FormTitle    string      `json:"form_title"`
	Results      interface{} `json:"results"`
}
