package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Handle tracks one running loop. It is returned by Supervisor.Start and is the
// only way to stop that loop.
type Handle struct {
	name   string
	cancel context.CancelFunc
	wake   func()
	done   chan struct{}
	err    error
	logger *slog.Logger

	stopOnce sync.Once
}

// Name returns the loop name
func (h *Handle) Name() string {
	return h.name
}

// Done returns a channel closed once the loop has returned
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Running reports whether the loop has not yet returned
func (h *Handle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Err returns the loop's result once it has returned, nil before that.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Stop requests termination, issues the loop's wake so a suspended loop observes
// the request, and blocks until the loop returns or ctx is done.
// Calling Stop again, or on a loop that already returned, reports the same result
// without blocking.
func (h *Handle) Stop(ctx context.Context) error {
	h.stopOnce.Do(func() {
		h.logger.Debug("stop requested")
		h.cancel()
		if h.wake != nil {
			h.wake()
		}
	})

	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return fmt.Errorf("%s loop did not stop: %w", h.name, ctx.Err())
	}
}
