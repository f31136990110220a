package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/sells-group/localities-compare/pkg/localities"
)

// ShouldTrip decides whether a request outcome counts against an environment's
// breaker. Client mistakes (4xx other than 408/429) and caller cancellation do not;
// outages, gateway errors and transport failures do.
func ShouldTrip(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrOpen) {
		return false
	}

	var apiErr *localities.APIError
	if errors.As(err, &apiErr) {
		return IsTransientHTTPStatus(apiErr.StatusCode)
	}

	var netErr *localities.NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	return IsTransient(err)
}

// Outcome folds a client reply into the single error the breaker records: the
// transport error if there was one, else the API error of a non-2xx reply.
func Outcome(resp *localities.Response, err error) error {
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return resp.Err()
}

// IsTransient matches network-level failures: timeouts, resets, refused
// connections and DNS errors, including ones only recognizable by message.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"connection refused",
		"broken pipe",
		"no such host",
		"temporary failure in name resolution",
		"tls handshake timeout",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports statuses that indicate the environment itself is
// struggling.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
