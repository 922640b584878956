package trajectory

import (
	"context"
	"sync"
	"time"

	"github.com/orbitview/orbitview/internal/monitoring"
	"github.com/orbitview/orbitview/internal/timeutil"
)

// BaseTickInterval is the fixed base animation period. The effective tick
// interval is BaseTickInterval divided by the speed multiplier.
const BaseTickInterval = 100 * time.Millisecond

// TickHandler is invoked after each index advance with the new index value.
type TickHandler func(index int)

// AnimationClock advances the shared playback index at a configurable rate.
// It is the sole driver of per-tick evaluation: the segment manager and the
// multi-object coordinator subscribe as tick handlers. The underlying
// ticker is armed once and re-armed only when the speed changes; pausing
// gates index advancement without touching the schedule or the position.
type AnimationClock struct {
	clock timeutil.Clock
	logf  func(format string, v ...interface{})

	mu       sync.Mutex
	speed    float64
	playing  bool
	index    int
	refLen   func() int // sample count of the reference trajectory
	handlers []TickHandler
	ticker   timeutil.Ticker
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewAnimationClock creates a paused clock at index 0. refLen reports the
// current sample count of the reference trajectory; the clock is inert
// whenever it returns zero.
func NewAnimationClock(clock timeutil.Clock, refLen func() int) *AnimationClock {
	if refLen == nil {
		refLen = func() int { return 0 }
	}
	return &AnimationClock{
		clock:  clock,
		logf:   monitoring.Component("AnimationClock"),
		speed:  1,
		refLen: refLen,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// AddTickHandler registers a handler called after every index advance.
// Handlers run on the clock goroutine, in registration order.
func (c *AnimationClock) AddTickHandler(h TickHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Run drives the tick loop until the context is cancelled or Stop is
// called. Returns nil on clean shutdown.
func (c *AnimationClock) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil // already running
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	c.ticker = c.clock.NewTicker(c.interval())
	ticker := c.ticker
	c.mu.Unlock()

	defer func() {
		ticker.Stop()
		close(c.doneCh)
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	c.logf("started: base interval %v", BaseTickInterval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.stopCh:
			return nil
		case <-ticker.C():
			c.Tick()
		}
	}
}

// Stop cancels the tick loop. Safe to call multiple times.
func (c *AnimationClock) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}
	doneCh := c.doneCh
	c.mu.Unlock()
	<-doneCh
}

// Tick advances the playback index by one, wrapping from the last sample
// back to 0 (loop semantics). A paused clock or an empty reference
// trajectory leaves the index untouched and fires no handlers.
func (c *AnimationClock) Tick() {
	c.mu.Lock()
	if !c.playing {
		c.mu.Unlock()
		return
	}
	n := c.refLen()
	if n <= 0 {
		c.mu.Unlock()
		return
	}
	if c.index >= n-1 {
		c.index = 0
	} else {
		c.index++
	}
	index := c.index
	handlers := c.handlers
	c.mu.Unlock()

	// Handlers run outside the lock so they may call back into the clock
	// (index compensation after eviction).
	for _, h := range handlers {
		h(index)
	}
}

// Play resumes index advancement from the current position.
func (c *AnimationClock) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = true
}

// Pause halts index advancement without resetting the position.
func (c *AnimationClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
}

// Playing reports whether the clock is advancing.
func (c *AnimationClock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// SetSpeed changes the speed multiplier and re-arms the tick interval
// without resetting the position. Non-positive multipliers are ignored.
func (c *AnimationClock) SetSpeed(speed float64) {
	if speed <= 0 {
		c.logf("ignoring non-positive speed multiplier %v", speed)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = speed
	if c.ticker != nil {
		c.ticker.Reset(c.intervalLocked())
	}
}

// Speed returns the current speed multiplier.
func (c *AnimationClock) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

// Interval returns the effective tick interval for the current speed.
func (c *AnimationClock) Interval() time.Duration {
	return c.interval()
}

func (c *AnimationClock) interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intervalLocked()
}

func (c *AnimationClock) intervalLocked() time.Duration {
	return time.Duration(float64(BaseTickInterval) / c.speed)
}

// Index returns the current playback index, clamped to the reference
// trajectory bounds. The stored position can briefly exceed the sample
// count when a replace shrinks the series; readers never see the
// out-of-range value, and the next tick wraps the stored position.
func (c *AnimationClock) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.refLen()
	if n <= 0 {
		return 0
	}
	if c.index > n-1 {
		return n - 1
	}
	return c.index
}

// Scrub moves the playback index to i, clamped to the valid range for the
// reference trajectory. With nothing loaded the index stays at 0.
func (c *AnimationClock) Scrub(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.refLen()
	if n <= 0 {
		c.index = 0
		return
	}
	if i < 0 {
		i = 0
	}
	if i > n-1 {
		i = n - 1
	}
	c.index = i
}

// AdjustIndex shifts the index by delta, floored at 0. The segment manager
// uses a negative delta equal to the eviction count so the displayed
// position does not jump when the window slides.
func (c *AnimationClock) AdjustIndex(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index += delta
	if c.index < 0 {
		c.index = 0
	}
}
