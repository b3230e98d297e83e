package okta

import (
	"errors"
	"fmt"
	"time"
)

// ErrReadOnly is returned when a mutating call is attempted on a read-only
// client, which is how dry-run is enforced at the transport boundary.
var ErrReadOnly = errors.New("okta client is read-only")

// AuthError means the credentials were rejected (401/403). The client
// attempts exactly one re-authentication before surfacing it.
type AuthError struct {
	Status  int
	Code    string
	Summary string
}

func (e *AuthError) Error() string {
	if e.Summary != "" {
		return fmt.Sprintf("authentication failed (%d %s): %s", e.Status, e.Code, e.Summary)
	}
	return fmt.Sprintf("authentication failed (%d)", e.Status)
}

// RateLimitError is a 429 that survived the retry budget.
type RateLimitError struct {
	Reset     time.Time
	Remaining string
}

func (e *RateLimitError) Error() string {
	if !e.Reset.IsZero() {
		return fmt.Sprintf("rate limited by Okta, limit resets at %s", e.Reset.Format(time.RFC3339))
	}
	return "rate limited by Okta"
}

// APIError is a provider-side failure, carrying Okta's errorCode and
// errorSummary fields from the response body.
type APIError struct {
	Status  int
	Code    string
	Summary string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("okta API error (%d %s): %s", e.Status, e.Code, e.Summary)
}

// NetworkError is a transport-level failure (DNS, TLS, connection reset).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// okta error response body
type errorBody struct {
	ErrorCode    string `json:"errorCode"`
	ErrorSummary string `json:"errorSummary"`
}
