package translate

import (
	"context"
	"sync/atomic"
	"time"
)

// State is the orchestrator lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCompleted
	StateStopped
	StateFailedFatal
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	case StateStopped:
		return "stopped"
	case StateFailedFatal:
		return "failed"
	default:
		return "idle"
	}
}

// Control is the cooperative pause/stop surface shared between the run loops
// and whoever drives them. Worker loops poll it between iterations; nothing
// ever interrupts an in-flight provider call.
type Control struct {
	paused       atomic.Bool
	stopped      atomic.Bool
	currentFile  atomic.Int64
	currentBatch atomic.Int64
}

// Pause suspends dispatch: no new batch or file begins until Resume.
func (c *Control) Pause() { c.paused.Store(true) }

// Resume clears a pause.
func (c *Control) Resume() { c.paused.Store(false) }

// Stop aborts the run after the current in-flight batches return.
func (c *Control) Stop() {
	c.stopped.Store(true)
	c.paused.Store(false)
}

// Paused reports whether dispatch is currently suspended.
func (c *Control) Paused() bool { return c.paused.Load() }

// Stopped reports whether the run has been asked to abort.
func (c *Control) Stopped() bool { return c.stopped.Load() }

// CurrentFile is the index of the most recently started file.
func (c *Control) CurrentFile() int { return int(c.currentFile.Load()) }

// CurrentBatch is the index of the most recently started batch.
func (c *Control) CurrentBatch() int { return int(c.currentBatch.Load()) }

// waitWhilePaused blocks in 100ms polls until the control is unpaused,
// stopped, or the context ends.
func (c *Control) waitWhilePaused(ctx context.Context) error {
	for c.Paused() && !c.Stopped() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return nil
}
