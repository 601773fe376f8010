package ratelimit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestAllow_UnconfiguredTopicNeverThrottled(t *testing.T) {
	l := New(clockwork.NewFakeClock())

	for i := 0; i < 10; i++ {
		if !l.Allow("unconfigured") {
			t.Fatalf("call %d rejected for unconfigured topic", i)
		}
	}
}

func TestAllow_OnePerWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock)
	l.SetWindow("metrics", 2*time.Second)

	if !l.Allow("metrics") {
		t.Fatal("first call should pass")
	}

	// Burst inside the window is dropped.
	for i := 0; i < 9; i++ {
		clock.Advance(100 * time.Millisecond)
		if l.Allow("metrics") {
			t.Fatalf("call inside 2s window passed after %dms", (i+1)*100)
		}
	}

	clock.Advance(1100 * time.Millisecond) // past the 2s boundary
	if !l.Allow("metrics") {
		t.Fatal("call after window elapsed should pass")
	}
}

func TestAllow_TopicsAreIndependent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock)
	l.SetWindow("metrics", 2*time.Second)
	l.SetWindow("odds", 1*time.Second)

	if !l.Allow("metrics") || !l.Allow("odds") {
		t.Fatal("first calls should pass for both topics")
	}

	clock.Advance(1 * time.Second)

	if l.Allow("metrics") {
		t.Error("metrics should still be throttled at 1s")
	}
	if !l.Allow("odds") {
		t.Error("odds window is 1s and should admit again")
	}
}

func TestSetWindow_NonPositiveDisablesThrottling(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock)
	l.SetWindow("odds", 1*time.Second)

	if !l.Allow("odds") {
		t.Fatal("first call should pass")
	}
	if l.Allow("odds") {
		t.Fatal("second call inside window should be dropped")
	}

	l.SetWindow("odds", 0)
	if !l.Allow("odds") {
		t.Error("topic with removed window should not throttle")
	}
}
