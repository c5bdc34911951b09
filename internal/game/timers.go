// internal/game/timers.go
package game

import (
	"time"

	"github.com/benbjohnson/clock"
)

// timerHandle is one per-session, per-concern timer. Arming always cancels
// the previous timer first, and every arm bumps a generation so a callback
// that was already in flight when its timer got replaced or stopped can
// recognise itself as stale.
type timerHandle struct {
	timer *clock.Timer
	gen   uint64
}

// arm cancels any pending timer and schedules fire(gen) after d.
func (h *timerHandle) arm(c clock.Clock, d time.Duration, fire func(gen uint64)) {
	h.stop()
	gen := h.gen
	h.timer = c.AfterFunc(d, func() { fire(gen) })
}

// stop cancels the pending timer. Stopping an idle, fired or stopped handle is a no-op.
func (h *timerHandle) stop() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.gen++
}

// current reports whether a firing with gen still belongs to the armed timer.
func (h *timerHandle) current(gen uint64) bool {
	return h.timer != nil && h.gen == gen
}

// claim consumes a firing: it reports whether gen is current and, if so,
// marks the handle idle so the callback may re-arm it.
func (h *timerHandle) claim(gen uint64) bool {
	if !h.current(gen) {
		return false
	}
	h.timer = nil
	h.gen++
	return true
}

// armed reports whether a timer is pending.
func (h *timerHandle) armed() bool {
	return h.timer != nil
}
