package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/phrazzld/handoff/internal/task"
)

// Common errors returned by the Supervisor
var (
	ErrSpawnFailed    = errors.New("failed to spawn loop")
	ErrAlreadyStarted = errors.New("supervisor already started")
	ErrNilHandle      = errors.New("nil loop handle")
	ErrLoopPanicked   = errors.New("loop panicked")
)

// Loop is a long-running body the supervisor can spawn.
type Loop interface {
	// Validate reports whether the loop can be started
	Validate() error

	// Run blocks until ctx is cancelled or the loop fails
	Run(ctx context.Context) error
}

// Supervisor starts the producer and consumer loops and coordinates their shutdown.
type Supervisor struct {
	producer Loop
	consumer Loop
	gate     *task.SignalGate
	logger   *slog.Logger

	mu             sync.Mutex
	started        bool
	producerHandle *Handle
	consumerHandle *Handle
}

// New creates a Supervisor. gate is the signal gate the consumer suspends on; when
// stopping the consumer the supervisor notifies it so a suspended consumer sees the
// request without waiting for the producer's next cycle.
func New(producer, consumer Loop, gate *task.SignalGate, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		producer: producer,
		consumer: consumer,
		gate:     gate,
		logger:   logger.With("component", "supervisor"),
	}
}

// Start spawns the producer and then the consumer. Both loops stop when ctx is
// cancelled or their handle is stopped. If either loop cannot be spawned, nothing is
// left running and the error wraps ErrSpawnFailed.
func (s *Supervisor) Start(ctx context.Context) (*Handle, *Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil, nil, fmt.Errorf("%w: %w", ErrSpawnFailed, ErrAlreadyStarted)
	}

	producer, err := s.spawn(ctx, "producer", s.producer, nil)
	if err != nil {
		return nil, nil, err
	}

	var wake func()
	if s.gate != nil {
		wake = func() { s.gate.Notify() }
	}

	consumer, err := s.spawn(ctx, "consumer", s.consumer, wake)
	if err != nil {
		if stopErr := producer.Stop(context.Background()); stopErr != nil {
			s.logger.Error("failed to stop producer after consumer spawn failure", "error", stopErr)
		}
		return nil, nil, err
	}

	s.started = true
	s.producerHandle = producer
	s.consumerHandle = consumer

	s.logger.Info("loops started")
	return producer, consumer, nil
}

// Stop requests termination of the loop behind h and blocks until it has returned
// or ctx is done. It is safe to call more than once.
func (s *Supervisor) Stop(ctx context.Context, h *Handle) error {
	if h == nil {
		return ErrNilHandle
	}
	return h.Stop(ctx)
}

// Shutdown stops the producer first and then the consumer, returning every error
// encountered. It is a no-op when Start never succeeded.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	producer, consumer := s.Handles()
	if producer == nil && consumer == nil {
		return nil
	}

	s.logger.Info("shutting down loops")

	var errs []error
	for _, h := range []*Handle{producer, consumer} {
		if h == nil {
			continue
		}
		if err := h.Stop(ctx); err != nil {
			s.logger.Error("loop stopped with error", "loop", h.Name(), "error", err)
			errs = append(errs, err)
			continue
		}
		s.logger.Info("loop stopped", "loop", h.Name())
	}

	return errors.Join(errs...)
}

// Handles returns the producer and consumer handles, nil before Start succeeds.
func (s *Supervisor) Handles() (*Handle, *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.producerHandle, s.consumerHandle
}

func (s *Supervisor) spawn(ctx context.Context, name string, loop Loop, wake func()) (*Handle, error) {
	if loop == nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSpawnFailed, name, task.ErrMissingDependency)
	}
	if err := loop.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSpawnFailed, name, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		name:   name,
		cancel: cancel,
		wake:   wake,
		done:   make(chan struct{}),
		logger: s.logger.With("loop", name),
	}

	go func() {
		defer close(h.done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("loop panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
				h.err = fmt.Errorf("%w: %s: %v", ErrLoopPanicked, name, r)
			}
		}()

		h.err = loop.Run(loopCtx)
		if h.err != nil {
			h.logger.Error("loop exited with error", "error", h.err)
		}
	}()

	return h, nil
}
