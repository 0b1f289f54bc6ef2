// Package mediasync keeps a follower media element (an isolated stem) locked
// to a leader element (typically a video with embedded backing audio) that
// the user scrubs directly. Correction is periodic (drift tick) plus
// event-driven (play/pause/seek/rate events from the leader).
package mediasync

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

// MediaElement is the engine's view of a playable media surface. Live
// sessions back it with a real player; tests back it with fakes.
type MediaElement interface {
	Position() float64
	Seek(seconds float64) error
	Play() error
	Pause()
	Paused() bool
	Rate() float64
	SetRate(rate float64)
	SetMuted(muted bool)
}

// Event is a leader playback event forwarded to the controller.
type Event int

const (
	EventPlay Event = iota
	EventPause
	EventWaiting // leader stalled buffering
	EventSeeking // scrub drag began
	EventSeeked  // scrub drag ended
	EventRateChange
)

func (e Event) String() string {
	switch e {
	case EventPlay:
		return "play"
	case EventPause:
		return "pause"
	case EventWaiting:
		return "waiting"
	case EventSeeking:
		return "seeking"
	case EventSeeked:
		return "seeked"
	case EventRateChange:
		return "ratechange"
	}
	return "unknown"
}

// Controller replicates leader state onto the follower.
//
// Correction order is fixed: pause-on-seeking, reposition-on-seeked,
// resume-if-leader-playing. The follower is never resumed before it has been
// repositioned.
type Controller struct {
	mu       sync.Mutex
	leader   MediaElement
	follower MediaElement
	rate     float64

	threshold time.Duration
	log       *slog.Logger
}

func New(leader, follower MediaElement, threshold time.Duration, log *slog.Logger) *Controller {
	return &Controller{
		leader:    leader,
		follower:  follower,
		rate:      1.0,
		threshold: threshold,
		log:       log,
	}
}

// HandleLeaderEvent applies the event-driven correction rules.
func (c *Controller) HandleLeaderEvent(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch ev {
	case EventPlay:
		c.reposition()
		if err := c.follower.Play(); err != nil {
			c.log.Warn("follower play failed", "error", err)
		}
	case EventPause, EventWaiting:
		c.follower.Pause()
	case EventSeeking:
		// Pause immediately; rapid scrub events would otherwise stutter.
		c.follower.Pause()
	case EventSeeked:
		c.reposition()
		if !c.leader.Paused() {
			if err := c.follower.Play(); err != nil {
				c.log.Warn("follower resume failed", "error", err)
			}
		}
	case EventRateChange:
		// The leader is the source of truth: the user may change its rate
		// directly. Matched immediately, not deferred to the next drift tick.
		c.rate = c.leader.Rate()
		c.follower.SetRate(c.rate)
	}
}

// SetRate records the shared playback rate and pushes it to both elements.
func (c *Controller) SetRate(rate float64) {
	c.mu.Lock()
	c.rate = rate
	c.mu.Unlock()
	c.leader.SetRate(rate)
	c.HandleLeaderEvent(EventRateChange)
}

// SetNativeMuted mutes or unmutes both elements at the native level. The
// session flips this when a pitch shift swaps playback onto grain engines:
// the native path stays cheap for the unshifted common case.
func (c *Controller) SetNativeMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leader.SetMuted(muted)
	c.follower.SetMuted(muted)
}

// DriftTick compares follower to leader and hard-sets the follower position
// when the offset exceeds the threshold. A reposition failure is logged and
// retried on the next tick, never escalated.
func (c *Controller) DriftTick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	drift := math.Abs(c.follower.Position() - c.leader.Position())
	if drift <= c.threshold.Seconds() {
		return
	}
	if err := c.follower.Seek(c.leader.Position()); err != nil {
		c.log.Warn("drift correction failed, retrying next tick",
			"drift_seconds", drift, "error", err)
	}
}

// Drift returns the current absolute offset in seconds.
func (c *Controller) Drift() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return math.Abs(c.follower.Position() - c.leader.Position())
}

// reposition hard-sets the follower to the leader's position. Caller holds
// c.mu.
func (c *Controller) reposition() {
	if err := c.follower.Seek(c.leader.Position()); err != nil {
		c.log.Warn("follower reposition failed", "error", err)
	}
}
