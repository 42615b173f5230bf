package dashboard

import (
	"sync"
	"time"
)

const (
	ProgressStart = 10.0
	ProgressCap   = 90.0
	// ProgressStep spreads the climb from 10 to 90 over roughly six seconds of ticks.
	ProgressStep        = 80.0 / 60.0
	DefaultProgressTick = 100 * time.Millisecond
)

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// SystemClock backs tickers with time.Ticker.
type SystemClock struct{}

func (SystemClock) NewTicker(d time.Duration) Ticker {
	return systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s systemTicker) C() <-chan time.Time { return s.t.C }
func (s systemTicker) Stop()               { s.t.Stop() }

// ProgressSimulator approximates job completion while a remote job is pending.
// At most one ticker is live at a time; Stop releases it and zeroes the value.
type ProgressSimulator struct {
	clock    Clock
	interval time.Duration

	lifecycle sync.Mutex
	ticker    Ticker
	stop      chan struct{}
	done      chan struct{}

	mu    sync.Mutex
	value float64
}

func NewProgressSimulator(clock Clock, interval time.Duration) *ProgressSimulator {
	if clock == nil {
		clock = SystemClock{}
	}
	if interval <= 0 {
		interval = DefaultProgressTick
	}
	return &ProgressSimulator{clock: clock, interval: interval}
}

// Start restarts the simulation from ProgressStart, replacing any running ticker.
func (p *ProgressSimulator) Start() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	p.halt()

	p.mu.Lock()
	p.value = ProgressStart
	p.mu.Unlock()

	ticker := p.clock.NewTicker(p.interval)
	stop := make(chan struct{})
	done := make(chan struct{})
	p.ticker, p.stop, p.done = ticker, stop, done
	go p.run(ticker, stop, done)
}

// Stop cancels the ticker and resets the value to zero. Safe to call when idle.
func (p *ProgressSimulator) Stop() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	p.halt()

	p.mu.Lock()
	p.value = 0
	p.mu.Unlock()
}

func (p *ProgressSimulator) Value() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

func (p *ProgressSimulator) Running() bool {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	return p.ticker != nil
}

// halt must be called with lifecycle held.
func (p *ProgressSimulator) halt() {
	if p.ticker == nil {
		return
	}
	close(p.stop)
	<-p.done
	p.ticker.Stop()
	p.ticker, p.stop, p.done = nil, nil, nil
}

func (p *ProgressSimulator) run(t Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			p.advance()
		}
	}
}

func (p *ProgressSimulator) advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.value + ProgressStep
	if next > ProgressCap {
		next = ProgressCap
	}
	p.value = next
}
