// Package simclock provides the simulated time source that drives the resource clock.
// Real time is scaled by a speed multiplier; a paused clock still ticks but reports Running=false.
package simclock

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const DefaultInterval = 100 * time.Millisecond

// Tick is emitted to subscribers every time real time advances.
type Tick struct {
	Elapsed    float64 // simulated seconds since the previous tick
	Running    bool
	Multiplier float64
}

// Clock is a simulated clock. The multiplier is reported as-is; consumers cap it themselves.
type Clock struct {
	interval time.Duration

	mu          sync.Mutex
	multiplier  float64
	running     bool
	simSeconds  float64
	nextID      int
	subscribers map[int]func(Tick)
}

// New creates a running clock. A non-positive interval falls back to DefaultInterval.
func New(multiplier float64, interval time.Duration) *Clock {
	if multiplier <= 0 {
		multiplier = 1
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Clock{
		interval:    interval,
		multiplier:  multiplier,
		running:     true,
		subscribers: make(map[int]func(Tick)),
	}
}

// Start advances the clock on a real-time ticker. Blocks until ctx is done.
func (c *Clock) Start(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	slog.Info("simulated clock started", "interval", c.interval, "multiplier", c.Multiplier())

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			slog.Info("simulated clock stopped", "simSeconds", c.Now())
			return nil
		case now := <-ticker.C:
			c.Advance(now.Sub(last))
			last = now
		}
	}
}

// Advance moves the clock forward by d of real time and notifies subscribers.
func (c *Clock) Advance(d time.Duration) Tick {
	c.mu.Lock()
	tick := Tick{Running: c.running, Multiplier: c.multiplier}
	if c.running && d > 0 {
		tick.Elapsed = d.Seconds() * c.multiplier
		c.simSeconds += tick.Elapsed
	}
	subs := make([]func(Tick), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(tick)
	}
	return tick
}

// Subscribe registers fn for every tick. The returned function unsubscribes.
func (c *Clock) Subscribe(fn func(Tick)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subscribers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
}

func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
}

// SetMultiplier changes the speed. Non-positive values are ignored.
func (c *Clock) SetMultiplier(m float64) {
	if m <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.multiplier = m
}

func (c *Clock) Multiplier() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.multiplier
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Now returns the total simulated seconds elapsed while running.
func (c *Clock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.simSeconds
}
