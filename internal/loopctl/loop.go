// Package loopctl enforces an A/B practice loop on the session transport.
package loopctl

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ricky40043/vocaltune/internal/transport"
)

// Phase is the loop state machine position.
type Phase int

const (
	Idle   Phase = iota // no points set
	ArmedA              // point A set, waiting for B
	Active              // both points set, loop enforced
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case ArmedA:
		return "armed-a"
	case Active:
		return "active"
	}
	return "unknown"
}

// BoundsError reports a rejected loop point. It is a validation error: no
// loop state changed and playback is unaffected.
type BoundsError struct {
	PointA float64
	PointB float64
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("loop point B (%.3fs) must be after point A (%.3fs)", e.PointB, e.PointA)
}

// Controller owns the A/B region and forces the transport back inside it on
// each scheduling tick.
type Controller struct {
	mu     sync.Mutex
	tr     *transport.Transport
	pointA float64
	pointB float64
	phase  Phase
	onWrap func(from, to float64)
	log    *slog.Logger
}

func New(tr *transport.Transport, log *slog.Logger) *Controller {
	return &Controller{tr: tr, log: log}
}

// OnWrap installs a callback fired when the tick forces a jump back to point
// A. Used by the session to emit a loop event.
func (c *Controller) OnWrap(fn func(from, to float64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onWrap = fn
}

// SetPointA captures the current transport position as the loop start. If an
// existing point B is now at or before the new A, B is cleared and the loop
// deactivates rather than being left invalid.
func (c *Controller) SetPointA() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pointA = c.tr.Position()
	if c.phase == Active && c.pointB <= c.pointA {
		c.pointB = 0
		c.phase = ArmedA
		c.log.Debug("loop point B cleared by later point A", "point_a", c.pointA)
	} else if c.phase == Idle {
		c.phase = ArmedA
	}
	return c.pointA
}

// SetPointB captures the current transport position as the loop end and
// activates the loop. A candidate at or before point A is rejected with a
// *BoundsError and no state change.
func (c *Controller) SetPointB() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Idle {
		return 0, &BoundsError{PointA: 0, PointB: c.tr.Position()}
	}
	candidate := c.tr.Position()
	if candidate <= c.pointA {
		return 0, &BoundsError{PointA: c.pointA, PointB: candidate}
	}
	c.pointB = candidate
	c.phase = Active
	return c.pointB, nil
}

// Clear resets both points and deactivates unconditionally.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pointA = 0
	c.pointB = 0
	c.phase = Idle
}

// Points returns the current region and whether the loop is active.
func (c *Controller) Points() (a, b float64, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pointA, c.pointB, c.phase == Active
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Tick is called by the session scheduler every 100ms. While the loop is
// active and the transport is playing, a position at/past B or before A is
// forced back to A.
func (c *Controller) Tick() {
	c.mu.Lock()
	wrap := c.onWrap
	a, b, active := c.pointA, c.pointB, c.phase == Active
	c.mu.Unlock()

	if !active || c.tr.State() != transport.Playing {
		return
	}
	pos := c.tr.Position()
	if pos >= b || pos < a {
		c.tr.Seek(a)
		if wrap != nil {
			wrap(pos, a)
		}
	}
}
