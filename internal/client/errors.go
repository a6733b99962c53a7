package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrTimeout is returned when the backend does not answer within the request timeout
var ErrTimeout = errors.New("request timed out")

// maxErrorBody limits how much of a failed response is kept on the error
const maxErrorBody = 512

// HTTPError is returned for non-2xx backend responses
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Body       []byte
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
}

// FormatError is returned when a response body is not valid JSON or does not
// match the expected shape
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a request timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

func newHTTPError(method, path string, status int, body []byte) *HTTPError {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &HTTPError{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Message:    backendMessage(body),
		Body:       body,
	}
}

// backendMessage extracts the human readable reason from an error body.
// The backend answers {"success":false,"error":"...","message":"..."}.
func backendMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}
