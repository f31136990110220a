package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"

	"github.com/sells-group/localities-compare/pkg/localities"
)

func TestShouldTrip(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"breaker open", eris.Wrap(ErrOpen, "env dev"), false},
		{"network error", &localities.NetworkError{Message: "boom"}, true},
		{"bad request", &localities.APIError{StatusCode: 400}, false},
		{"forbidden", &localities.APIError{StatusCode: 403}, false},
		{"rate limited", &localities.APIError{StatusCode: 429}, true},
		{"bad gateway", &localities.APIError{StatusCode: 502}, true},
		{"plain error", errors.New("invalid input"), false},
		{"refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldTrip(tc.err); got != tc.want {
				t.Errorf("ShouldTrip(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestOutcome(t *testing.T) {
	netErr := &localities.NetworkError{Message: "x"}
	if Outcome(nil, netErr) != netErr {
		t.Error("expected transport error to win")
	}
	if Outcome(&localities.Response{StatusCode: 200}, nil) != nil {
		t.Error("expected nil for a 2xx reply")
	}

	var apiErr *localities.APIError
	if !errors.As(Outcome(&localities.Response{StatusCode: 500}, nil), &apiErr) {
		t.Error("expected an APIError for a 5xx reply")
	}
	if Outcome(nil, nil) != nil {
		t.Error("expected nil for no reply and no error")
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
	if !IsTransient(&net.DNSError{IsTimeout: true, Err: "timeout"}) {
		t.Error("network timeout should be transient")
	}
	if !IsTransient(fmt.Errorf("write tcp: %w", syscall.ECONNRESET)) {
		t.Error("ECONNRESET should be transient")
	}
	for _, msg := range []string{"broken pipe", "TLS handshake timeout", "no such host"} {
		if !IsTransient(errors.New(msg)) {
			t.Errorf("expected %q to be transient", msg)
		}
	}
	if IsTransient(errors.New("missing field")) {
		t.Error("plain error should not be transient")
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to be transient", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to NOT be transient", code)
		}
	}
}
