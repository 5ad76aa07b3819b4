package resilience

import (
	"errors"
	"testing"
	"time"
)

var (
	errOutage   = errors.New("backend unavailable")
	errRejected = errors.New("validation failed")
)

func isOutage(err error) bool { return errors.Is(err, errOutage) }

func tripped(t *testing.T, maxFailures int) (*Breaker, *time.Time) {
	t.Helper()
	now := time.Now()
	b := NewBreaker(maxFailures, time.Second, isOutage)
	b.now = func() time.Time { return now }
	for i := 0; i < maxFailures; i++ {
		_ = b.Execute(func() error { return errOutage })
	}
	return b, &now
}

func TestClosedStateAllowsCalls(t *testing.T) {
	b := NewBreaker(3, time.Second, isOutage)
	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	b, _ := tripped(t, 3)

	err := b.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if b.State() != "open" {
		t.Errorf("expected open, got %s", b.State())
	}
}

func TestRejectedCallsDoNotTrip(t *testing.T) {
	b := NewBreaker(2, time.Second, isOutage)
	for i := 0; i < 5; i++ {
		if err := b.Execute(func() error { return errRejected }); !errors.Is(err, errRejected) {
			t.Fatalf("expected the call's own error, got %v", err)
		}
	}
	if b.State() != "closed" {
		t.Fatalf("non-outage errors must not open the circuit, got %s", b.State())
	}
}

func TestNilTripOnCountsEveryError(t *testing.T) {
	b := NewBreaker(1, time.Second, nil)
	_ = b.Execute(func() error { return errRejected })
	if b.State() != "open" {
		t.Fatalf("expected open, got %s", b.State())
	}
}

func TestTransitionsToHalfOpenAfterTimeout(t *testing.T) {
	b, now := tripped(t, 2)

	// Still open
	err := b.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	*now = now.Add(2 * time.Second)
	if b.State() != "half-open" {
		t.Fatalf("expected half-open, got %s", b.State())
	}

	called := false
	err = b.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error in half-open, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called in half-open")
	}

	b.mu.Lock()
	if b.state != stateClosed {
		t.Fatalf("expected state closed after half-open success, got %d", b.state)
	}
	b.mu.Unlock()
}

func TestHalfOpenAllowsSingleProbe(t *testing.T) {
	b, now := tripped(t, 1)
	*now = now.Add(2 * time.Second)

	err := b.Execute(func() error {
		// A concurrent call while the probe is in flight is rejected.
		if inner := b.Execute(func() error { return nil }); !errors.Is(inner, ErrCircuitOpen) {
			t.Errorf("expected second call rejected during probe, got %v", inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if b.State() != "closed" {
		t.Fatalf("expected closed after probe success, got %s", b.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, now := tripped(t, 2)
	*now = now.Add(2 * time.Second)

	_ = b.Execute(func() error { return errOutage })

	b.mu.Lock()
	if b.state != stateOpen {
		t.Fatalf("expected state open after half-open failure, got %d", b.state)
	}
	b.mu.Unlock()

	err := b.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen after reopen, got %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Second, isOutage)

	_ = b.Execute(func() error { return errOutage })
	_ = b.Execute(func() error { return errOutage })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errOutage })
	_ = b.Execute(func() error { return errOutage })

	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
}

func TestNilBreakerPassesThrough(t *testing.T) {
	var b *Breaker
	if err := b.Execute(func() error { return errOutage }); !errors.Is(err, errOutage) {
		t.Fatalf("expected passthrough, got %v", err)
	}
	if b.State() != "closed" {
		t.Errorf("nil breaker should report closed")
	}
}
