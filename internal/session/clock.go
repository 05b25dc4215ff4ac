package session

import "time"

// Clock abstracts ticker creation so the countdown can be driven by wall
// time in production and manually in tests.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock returns a Clock backed by time.NewTicker.
func RealClock() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// ManualClock hands out tickers that only fire when Fire is called.
// Deterministic tests drive the engine through Engine.Tick directly and use
// this clock to keep wall time out of the countdown entirely.
type ManualClock struct {
	ch chan time.Time
}

func NewManualClock() *ManualClock {
	return &ManualClock{ch: make(chan time.Time, 1)}
}

func (c *ManualClock) NewTicker(time.Duration) Ticker {
	return manualTicker{ch: c.ch}
}

// Fire delivers one tick to the most recently created ticker, dropping it
// if nothing is listening.
func (c *ManualClock) Fire() {
	select {
	case c.ch <- time.Now():
	default:
	}
}

type manualTicker struct {
	ch chan time.Time
}

func (m manualTicker) C() <-chan time.Time { return m.ch }
func (m manualTicker) Stop()               {}
