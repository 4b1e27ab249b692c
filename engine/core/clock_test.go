package core

import (
	"testing"
	"time"
)

func TestClockTicks(t *testing.T) {
	base := time.Unix(1000, 0)
	now := base
	c := &Clock{now: func() time.Time { return now }}

	if c.Tick() != 0 {
		t.Fatal("a stopped clock must not tick")
	}
	c.Start()
	now = base.Add(250 * time.Millisecond)
	if d := c.Tick(); d != 0.25 {
		t.Fatalf("expected 0.25s, got %v", d)
	}
	now = base.Add(time.Second)
	if d := c.Tick(); d != 0.75 {
		t.Fatalf("expected 0.75s, got %v", d)
	}
	if c.Elapsed() != 1 {
		t.Fatalf("expected 1s elapsed, got %v", c.Elapsed())
	}
	c.Stop()
	if c.Elapsed() != 0 || c.Tick() != 0 {
		t.Fatal("Stop should reset the clock")
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ v, lo, hi, want int }{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
	}
	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", c.v, c.lo, c.hi, got, c.want)
		}
	}
}
