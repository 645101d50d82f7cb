package task

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync/atomic"

	"github.com/phrazzld/handoff/internal/events"
)

// Processor handles a single task after it has been drained from the queue.
type Processor interface {
	Process(ctx context.Context, task Task) error
}

// ProcessorFunc adapts a plain function to the Processor interface.
type ProcessorFunc func(ctx context.Context, task Task) error

// Process calls f(ctx, task).
func (f ProcessorFunc) Process(ctx context.Context, task Task) error {
	return f(ctx, task)
}

// NewLogProcessor returns a Processor that records each task by logging its name.
func NewLogProcessor(logger *slog.Logger) Processor {
	return ProcessorFunc(func(ctx context.Context, task Task) error {
		logger.InfoContext(ctx, "picked up task",
			"task_id", task.ID(),
			"task_name", task.Name(),
			"cycle", task.Cycle())
		return nil
	})
}

// ConsumerStats is a snapshot of the consumer's counters.
type ConsumerStats struct {
	Processed uint64 `json:"processed"`
	Failed    uint64 `json:"failed"`
	Suspends  uint64 `json:"suspends"`
}

// Consumer drains the queue whenever it holds tasks and suspends on the signal
// gate when it is empty.
type Consumer struct {
	queue     *TaskQueue
	gate      *SignalGate
	processor Processor
	emitter   events.EventEmitter
	logger    *slog.Logger

	// beforeSuspend runs after an empty check and before Wait; tests use it to
	// widen the window a lost wakeup would fall into.
	beforeSuspend func()

	processed atomic.Uint64
	failed    atomic.Uint64
	suspends  atomic.Uint64
}

// NewConsumer creates a Consumer. A nil processor logs task names; a nil emitter
// discards events.
func NewConsumer(
	queue *TaskQueue,
	gate *SignalGate,
	processor Processor,
	emitter events.EventEmitter,
	logger *slog.Logger,
) *Consumer {
	logger = logger.With("component", "consumer")
	if processor == nil {
		processor = NewLogProcessor(logger)
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}

	return &Consumer{
		queue:     queue,
		gate:      gate,
		processor: processor,
		emitter:   emitter,
		logger:    logger,
	}
}

// Validate reports whether the consumer is wired well enough to run.
func (c *Consumer) Validate() error {
	if c.queue == nil {
		return fmt.Errorf("%w: consumer has no task queue", ErrMissingDependency)
	}
	if c.gate == nil {
		return fmt.Errorf("%w: consumer has no signal gate", ErrMissingDependency)
	}
	return nil
}

// Gate returns the signal gate the consumer suspends on
func (c *Consumer) Gate() *SignalGate {
	return c.gate
}

// Run loops until ctx is cancelled. Each iteration arms the gate before looking at
// the queue, so a notify that lands between the emptiness check and the suspension
// makes the suspension return at once instead of being lost.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.Validate(); err != nil {
		return err
	}

	c.logger.Info("consumer started")
	defer c.logger.Info("consumer stopped")

	for {
		c.gate.Arm()

		if ctx.Err() != nil {
			c.gate.Disarm()
			return nil
		}

		if c.queue.IsEmpty() {
			if c.beforeSuspend != nil {
				c.beforeSuspend()
			}

			c.suspends.Add(1)
			if err := c.gate.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("consumer wait failed: %w", err)
			}
			continue
		}

		c.gate.Disarm()
		c.processBatch(ctx, c.queue.DrainAll())

		// Leftovers are legal here: the producer may have pushed during processing.
		if depth := c.queue.Len(); depth > 0 {
			c.logger.Debug("queue refilled during processing", "queue_len", depth)
		}

		runtime.Gosched()
	}
}

// processBatch handles every drained task in FIFO order. Tasks already drained are
// processed even if ctx is cancelled part way through, so none are dropped.
func (c *Consumer) processBatch(ctx context.Context, tasks []Task) {
	c.logger.Debug("processing drained tasks", "count", len(tasks))

	for _, t := range tasks {
		logger := c.logger.With(
			"task_id", t.ID(),
			"task_name", t.Name(),
			"cycle", t.Cycle(),
		)

		if err := c.processTask(ctx, t); err != nil {
			c.failed.Add(1)
			logger.Error("task processing failed", "error", err)

			event := events.NewTaskEvent(events.TypeTaskFailed, t.ID(), t.Name(), t.Cycle())
			event.Error = err.Error()
			c.emit(ctx, logger, event)
			continue
		}

		c.processed.Add(1)
		c.emit(ctx, logger, events.NewTaskEvent(events.TypeTaskProcessed, t.ID(), t.Name(), t.Cycle()))
	}
}

// processTask runs the processor, turning a panic into an error.
func (c *Consumer) processTask(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("processor panicked",
				"task_id", t.ID(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", ErrProcessorPanic, r)
		}
	}()

	return c.processor.Process(ctx, t)
}

func (c *Consumer) emit(ctx context.Context, logger *slog.Logger, event *events.TaskEvent) {
	if err := c.emitter.EmitEvent(ctx, event); err != nil {
		logger.Warn("failed to emit event", "error", err, "event_type", event.Type)
	}
}

// Stats returns a snapshot of the consumer counters
func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Processed: c.processed.Load(),
		Failed:    c.failed.Load(),
		Suspends:  c.suspends.Load(),
	}
}
