package prices

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInconsistent is returned when repeated reads of the same endpoint disagree.
var ErrInconsistent = errors.New("prices endpoint returned inconsistent payloads")

// TransportError wraps a failure to complete the round-trip (DNS, refused
// connection, timeout, cancelled context).
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch prices from %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError reports a non-2xx answer from the endpoint. Message is populated
// when the body is a JSON object with a "message" field.
type APIError struct {
	URL        string
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("prices endpoint %s returned status %d: %s", e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("prices endpoint %s returned status %d body: %s", e.URL, e.StatusCode, responseSnippet(e.Body))
}

func newAPIError(url string, status int, body []byte) *APIError {
	apiErr := &APIError{URL: url, StatusCode: status, Body: body}
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &msg); err == nil {
		apiErr.Message = strings.TrimSpace(msg.Message)
	}
	return apiErr
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
