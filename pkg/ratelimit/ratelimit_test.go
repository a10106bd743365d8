package ratelimit

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestPer(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	k := Per(3, 5*time.Minute, WithClock(clk.now))

	for i := 0; i < 3; i++ {
		if !k.Allow("a@b.c") {
			t.Fatalf("attempt %d denied", i+1)
		}
	}
	if k.Allow("a@b.c") {
		t.Error("fourth attempt within the window allowed")
	}
	if !k.Allow("other@b.c") {
		t.Error("keys share a bucket")
	}

	clk.advance(100 * time.Second)
	if !k.Allow("a@b.c") {
		t.Error("token not refilled after window/3")
	}
	if k.Allow("a@b.c") {
		t.Error("more than one token refilled")
	}
}

func TestEviction(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	k := New(1, 1, WithClock(clk.now), WithMaxKeys(2))

	k.Allow("a")
	k.Allow("b")
	k.Allow("a") // a becomes most recent
	k.Allow("c") // evicts b

	if k.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", k.Len())
	}
	if k.Allow("a") {
		t.Error("a lost its state")
	}
	if !k.Allow("b") {
		t.Error("evicted key b should start with a fresh bucket")
	}
}

func TestSweep(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	k := New(1, 1, WithClock(clk.now))
	k.Allow("old")
	clk.advance(time.Hour)
	k.Allow("new")

	if n := k.Sweep(10 * time.Minute); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if k.Len() != 1 {
		t.Errorf("Len() = %d, want 1", k.Len())
	}
}

func TestJanitorStops(t *testing.T) {
	k := New(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := k.Janitor(ctx, time.Millisecond, time.Minute)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
