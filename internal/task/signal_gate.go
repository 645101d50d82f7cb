package task

import (
	"context"
	"errors"
	"sync"
)

// ErrGateNotArmed is returned by Wait when the waiter did not call Arm first.
var ErrGateNotArmed = errors.New("signal gate is not armed")

// GateState is the waiter's visible position in the arm/check/wait handshake.
type GateState int

// Possible gate states
const (
	// GateIdle means the waiter is running and not eligible for a wake.
	GateIdle GateState = iota
	// GateArmed means the waiter announced it may suspend; a Notify now is kept.
	GateArmed
	// GateWoken means a Notify arrived while armed and a wake token is pending.
	GateWoken
)

func (s GateState) String() string {
	switch s {
	case GateIdle:
		return "idle"
	case GateArmed:
		return "armed"
	case GateWoken:
		return "woken"
	default:
		return "unknown"
	}
}

// GateStats is a point-in-time snapshot of a SignalGate's counters.
type GateStats struct {
	State     string `json:"state"`
	Arms      uint64 `json:"arms"`
	Waits     uint64 `json:"waits"`
	Wakes     uint64 `json:"wakes"`
	Delivered uint64 `json:"notifies_delivered"`
	Coalesced uint64 `json:"notifies_coalesced"`
	Dropped   uint64 `json:"notifies_dropped"`
}

// SignalGate lets a single waiter check a condition and suspend without missing a
// wake that arrives between the check and the suspension.
//
// The waiter must follow Arm, check, then Wait (or Disarm when there is work).
// A Notify issued any time after Arm leaves a token that makes the following Wait
// return at once. A Notify issued while the waiter is not armed is dropped; the
// notifier is expected to notify again on its own schedule.
type SignalGate struct {
	mu    sync.Mutex
	state GateState
	token chan struct{}

	arms      uint64
	waits     uint64
	wakes     uint64
	delivered uint64
	coalesced uint64
	dropped   uint64
}

// NewSignalGate creates a gate in the idle state
func NewSignalGate() *SignalGate {
	return &SignalGate{
		token: make(chan struct{}, 1),
	}
}

// Arm marks the waiter as eligible for a wake. It must be called before the waiter
// inspects the condition it is about to wait on. Any token left over from an earlier
// iteration is discarded.
func (g *SignalGate) Arm() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.clearToken()
	g.state = GateArmed
	g.arms++
}

// Disarm returns the waiter to idle without suspending, discarding any pending token.
// Called when the check found work.
func (g *SignalGate) Disarm() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.clearToken()
	g.state = GateIdle
}

// Notify wakes the waiter if it is armed or already woken and reports whether the
// wake will be observed. A wake sent to an idle waiter is dropped.
func (g *SignalGate) Notify() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case GateArmed:
		g.state = GateWoken
		g.delivered++
		select {
		case g.token <- struct{}{}:
		default:
		}
		return true
	case GateWoken:
		g.coalesced++
		return true
	default:
		g.dropped++
		return false
	}
}

// Wait suspends until a Notify issued after the last Arm is observed or ctx is done.
// It returns immediately when that Notify already happened. The gate is idle again
// when Wait returns.
func (g *SignalGate) Wait(ctx context.Context) error {
	g.mu.Lock()
	if g.state == GateIdle {
		g.mu.Unlock()
		return ErrGateNotArmed
	}
	g.waits++
	g.mu.Unlock()

	select {
	case <-g.token:
		g.mu.Lock()
		g.state = GateIdle
		g.wakes++
		g.mu.Unlock()
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		g.clearToken()
		g.state = GateIdle
		g.mu.Unlock()
		return ctx.Err()
	}
}

// State returns the current gate state
func (g *SignalGate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Stats returns a snapshot of the gate counters
func (g *SignalGate) Stats() GateStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GateStats{
		State:     g.state.String(),
		Arms:      g.arms,
		Waits:     g.waits,
		Wakes:     g.wakes,
		Delivered: g.delivered,
		Coalesced: g.coalesced,
		Dropped:   g.dropped,
	}
}

// clearToken must be called with mu held.
func (g *SignalGate) clearToken() {
	select {
	case <-g.token:
	default:
	}
}
