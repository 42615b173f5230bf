package dashboard

import (
	"sync"
	"testing"
	"time"
)

type fakeTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeTicker) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) created() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *fakeClock) live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

func (c *fakeClock) latest(t *testing.T) *fakeTicker {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		t.Fatalf("no ticker created")
	}
	return c.tickers[len(c.tickers)-1]
}

// tick delivers one tick and waits until read reports a value above prev.
func tick(t *testing.T, ticker *fakeTicker, prev float64, read func() float64) float64 {
	t.Helper()
	select {
	case ticker.ch <- time.Now():
	case <-time.After(time.Second):
		t.Fatalf("ticker not consumed")
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if v := read(); v > prev || v == ProgressCap {
			return v
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("progress did not advance past %v", prev)
	return 0
}
