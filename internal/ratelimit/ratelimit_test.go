package ratelimit

import (
	"log/slog"
	"testing"
	"time"
)

func TestLimiter_AllowsUpToLimit(t *testing.T) {
	t.Parallel()

	l := New(5, time.Minute, slog.Default())
	defer l.Close()

	for i := range 5 {
		if !l.Allow("10.0.0.1") {
			t.Errorf("request %d: want allowed within limit", i+1)
		}
	}
}

func TestLimiter_RejectsOverLimit(t *testing.T) {
	t.Parallel()

	l := New(5, time.Minute, slog.Default())
	defer l.Close()

	for range 5 {
		l.Allow("10.0.0.2")
	}
	if l.Allow("10.0.0.2") {
		t.Error("sixth request within the window must be rejected")
	}
}

func TestLimiter_PerClientIsolation(t *testing.T) {
	t.Parallel()

	l := New(1, time.Minute, slog.Default())
	defer l.Close()

	// Exhaust client A.
	l.Allow("192.168.1.1")
	if l.Allow("192.168.1.1") {
		t.Error("client A: second request must be rejected")
	}

	// Client B has its own bucket.
	if !l.Allow("192.168.1.2") {
		t.Error("client B must be independent of client A")
	}
}

func TestLimiter_WindowRollover(t *testing.T) {
	t.Parallel()

	l := New(2, 50*time.Millisecond, slog.Default())
	defer l.Close()

	l.Allow("10.0.0.3")
	l.Allow("10.0.0.3")
	if l.Allow("10.0.0.3") {
		t.Fatal("third request must be rejected before the window rolls over")
	}

	// After a full window the allowance has refilled.
	time.Sleep(120 * time.Millisecond)
	if !l.Allow("10.0.0.3") {
		t.Error("request after window rollover must be allowed")
	}
}

func TestLimiter_Defaults(t *testing.T) {
	t.Parallel()

	l := New(0, 0, nil)
	defer l.Close()

	if l.Window() != DefaultWindow {
		t.Errorf("want default window %v, got %v", DefaultWindow, l.Window())
	}
	for i := range DefaultLimit {
		if !l.Allow("defaulted") {
			t.Errorf("request %d: want allowed within default limit", i+1)
		}
	}
	if l.Allow("defaulted") {
		t.Error("request over the default limit must be rejected")
	}
}

func TestLimiter_CloseTwice(t *testing.T) {
	t.Parallel()

	l := New(1, time.Minute, slog.Default())
	l.Close()
	l.Close() // must not panic
}
