package localities

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NetworkError is a transport or decoding failure: nothing usable came back.
type NetworkError struct {
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	return "localities: network error: " + e.Message
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response. Details holds the server's structured "details"
// payload when there was one.
type APIError struct {
	StatusCode int
	Details    json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("localities: api returned status %d", e.StatusCode)
}

// PrettyDetails returns the details payload indented with two spaces.
func (e *APIError) PrettyDetails() (string, bool) {
	trimmed := bytes.TrimSpace(e.Details)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return string(trimmed), true
	}
	return buf.String(), true
}

const (
	unknownAPIErrorMessage = "Unknown API error."
	networkErrorMessage    = "A network error occurred."
)

// ErrorReport is what gets surfaced to the user when a request asks for it.
type ErrorReport struct {
	Message string
	// Preformatted is set when Message is an indented JSON payload.
	Preformatted bool
	Err          error
}

// ReportFor builds the user-facing report for a failed request.
func ReportFor(err error) ErrorReport {
	switch e := err.(type) {
	case *APIError:
		if details, ok := e.PrettyDetails(); ok {
			return ErrorReport{Message: details, Preformatted: true, Err: err}
		}
		return ErrorReport{Message: unknownAPIErrorMessage, Err: err}
	case *NetworkError:
		if e.Message != "" {
			return ErrorReport{Message: e.Message, Err: err}
		}
		return ErrorReport{Message: networkErrorMessage, Err: err}
	case nil:
		return ErrorReport{}
	default:
		if msg := err.Error(); msg != "" {
			return ErrorReport{Message: msg, Err: err}
		}
		return ErrorReport{Message: networkErrorMessage, Err: err}
	}
}
