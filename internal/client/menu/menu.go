// Package menu owns the slide-out menu state: an open/closed flag and a
// normalized [0,1] progress value that dependent views turn into a
// horizontal offset. It is purely client-local state.
package menu

import (
	"math"
	"sync"
	"time"
)

// DefaultDuration is how long a full open or close sweep takes.
const DefaultDuration = 300 * time.Millisecond

const frameInterval = 16 * time.Millisecond

// Controller animates the menu. A Toggle while an animation is in flight
// cancels and overrides it rather than queueing, so rapid double-toggles
// settle cleanly at the final endpoint.
type Controller struct {
	mu       sync.Mutex
	open     bool
	progress float64
	duration time.Duration
	cancel   chan struct{}
	subs     map[int]func(float64)
	nextSub  int
}

func NewController(duration time.Duration) *Controller {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Controller{
		duration: duration,
		subs:     make(map[int]func(float64)),
	}
}

// IsOpen reports the logical state; it flips immediately on Toggle, ahead
// of the animation settling.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Progress returns the current animation value in [0,1].
func (c *Controller) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Offset derives the horizontal shift of the main view for a panel of the
// given width.
func (c *Controller) Offset(panelWidth float64) float64 {
	return c.Progress() * panelWidth
}

// Subscribe registers a frame callback and returns its unsubscribe handle.
func (c *Controller) Subscribe(fn func(float64)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Toggle flips the open flag and animates progress from its current value
// to the opposite endpoint. There are no error conditions.
func (c *Controller) Toggle() {
	c.mu.Lock()
	c.open = !c.open
	target := 0.0
	if c.open {
		target = 1.0
	}
	from := c.progress

	// Override any in-flight animation.
	if c.cancel != nil {
		close(c.cancel)
	}
	cancel := make(chan struct{})
	c.cancel = cancel
	c.mu.Unlock()

	go c.animate(from, target, cancel)
}

// Close stops any in-flight animation goroutine. Progress stays where it
// is; this is for app teardown, not a state transition.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		close(c.cancel)
		c.cancel = nil
	}
}

func (c *Controller) animate(from, target float64, cancel chan struct{}) {
	// A partial sweep takes a proportional slice of the full duration.
	total := time.Duration(float64(c.duration) * math.Abs(target-from))
	if total == 0 {
		c.setProgress(target, cancel)
		return
	}

	start := time.Now()
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			elapsed := time.Since(start)
			if elapsed >= total {
				c.setProgress(target, cancel)
				return
			}
			fraction := float64(elapsed) / float64(total)
			c.setProgress(from+(target-from)*fraction, cancel)
		}
	}
}

// setProgress applies a frame unless this animation has been overridden.
func (c *Controller) setProgress(v float64, cancel chan struct{}) {
	c.mu.Lock()
	select {
	case <-cancel:
		c.mu.Unlock()
		return
	default:
	}
	c.progress = v
	fns := make([]func(float64), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
