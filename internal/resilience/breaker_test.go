package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sells-group/localities-compare/pkg/localities"
)

var errOutage = &localities.NetworkError{Message: "connection refused"}

func TestBreaker_ClosedPassesThrough(t *testing.T) {
	b := NewBreaker("dev", DefaultBreakerConfig())

	if err := b.Allow(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.Record(nil)
	if b.State() != Closed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker("dev", BreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("attempt %d rejected: %v", i, err)
		}
		b.Record(errOutage)
	}

	if b.State() != Open {
		t.Fatalf("expected open after 3 failures, got %s", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
}

func TestBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	b := NewBreaker("dev", BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})

	b.Record(&localities.APIError{StatusCode: 400})
	if b.State() != Closed {
		t.Errorf("400 should not trip, got %s", b.State())
	}

	b.Record(&localities.APIError{StatusCode: 503})
	if b.State() != Open {
		t.Errorf("503 should trip, got %s", b.State())
	}
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := NewBreaker("dev", BreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})

	b.Record(errOutage)
	b.Record(errOutage)
	if b.Failures() != 2 {
		t.Fatalf("expected 2 failures, got %d", b.Failures())
	}
	b.Record(nil)
	if b.Failures() != 0 {
		t.Errorf("expected failures reset, got %d", b.Failures())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker("dev", BreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Second})
	b.now = func() time.Time { return now }

	b.Record(errOutage)
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}

	now = now.Add(11 * time.Second)
	if b.State() != HalfOpen {
		t.Fatalf("expected half-open, got %s", b.State())
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("probe should be admitted: %v", err)
	}

	b.Record(errOutage)
	if b.State() != Open {
		t.Fatalf("failed probe should reopen, got %s", b.State())
	}

	now = now.Add(11 * time.Second)
	_ = b.Allow()
	b.Record(nil)
	if b.State() != Closed {
		t.Errorf("successful probe should close, got %s", b.State())
	}
}

func TestBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	b := NewBreaker("prod", BreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		OnStateChange: func(env string, from, to State) {
			transitions = append(transitions, env+":"+from.String()+"->"+to.String())
		},
	})

	b.Record(errOutage)
	b.Reset()

	want := []string{"prod:closed->open", "prod:open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("expected %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}

func TestBreakers_IsolatedPerEnvironment(t *testing.T) {
	bs := NewBreakers(BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})

	bs.For("dev").Record(errOutage)

	if err := bs.For("dev").Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("dev should be open, got %v", err)
	}
	if err := bs.For("prod").Allow(); err != nil {
		t.Errorf("prod should be unaffected, got %v", err)
	}
	if bs.For("dev") != bs.For("dev") {
		t.Error("expected the same breaker for repeated lookups")
	}

	snap := bs.Snapshot()
	if len(snap) != 2 || snap[0].Env != "dev" || snap[0].State != "open" || snap[1].State != "closed" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestBreakers_Reset(t *testing.T) {
	bs := NewBreakers(BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})
	bs.For("pr").Record(errOutage)

	bs.Reset("pr")
	if err := bs.For("pr").Allow(); err != nil {
		t.Errorf("pr should be closed after reset, got %v", err)
	}

	bs.Reset("dev")
	if snap := bs.Snapshot(); len(snap) != 1 {
		t.Errorf("reset of an unused environment should not create a breaker: %+v", snap)
	}
}

func TestBreakers_ConcurrentAccess(t *testing.T) {
	bs := NewBreakers(DefaultBreakerConfig())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := bs.For([]string{"dev", "prod", "pr"}[i%3])
			if b.Allow() == nil {
				b.Record(nil)
			}
		}(i)
	}
	wg.Wait()

	if n := len(bs.Snapshot()); n != 3 {
		t.Errorf("expected 3 breakers, got %d", n)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(2, 7)
	if cfg.FailureThreshold != 2 || cfg.ResetTimeout != 7*time.Second {
		t.Errorf("unexpected config: %+v", cfg)
	}

	cfg = FromConfig(0, 0)
	if cfg.FailureThreshold != 5 || cfg.ResetTimeout != 30*time.Second {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{Closed: "closed", Open: "open", HalfOpen: "half-open", State(9): "unknown"}
	for s, want := range cases {
		if s.String() != want {
			t.Errorf("expected %s, got %s", want, s.String())
		}
	}
}
