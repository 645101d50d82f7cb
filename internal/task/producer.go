package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/handoff/internal/events"
)

// DefaultBatch is the batch of task names produced every cycle unless configured.
var DefaultBatch = []string{"cleanroom", "washdish", "buyfood"}

// BatchGenerator returns the task names to produce for the given cycle.
// Cycles are numbered from 1.
type BatchGenerator func(cycle uint64) []string

// FixedBatch returns a BatchGenerator that yields the same names every cycle.
func FixedBatch(names ...string) BatchGenerator {
	fixed := make([]string, len(names))
	copy(fixed, names)
	return func(uint64) []string {
		out := make([]string, len(fixed))
		copy(out, fixed)
		return out
	}
}

// ProducerConfig holds configuration for the producer loop
type ProducerConfig struct {
	// Period is the sleep between the end of one cycle and the start of the next
	Period time.Duration

	// InitialDelay postpones the first cycle. Zero produces immediately.
	InitialDelay time.Duration

	// Batch generates the task names for each cycle
	Batch BatchGenerator

	// MaxNameLength bounds task names in bytes.
	// If zero, defaults to DefaultMaxNameLength
	MaxNameLength int
}

// DefaultProducerConfig returns a ProducerConfig with the stock period and batch
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Period:        30 * time.Second,
		Batch:         FixedBatch(DefaultBatch...),
		MaxNameLength: DefaultMaxNameLength,
	}
}

// ProducerStats is a snapshot of the producer's counters.
type ProducerStats struct {
	Cycles   uint64 `json:"cycles"`
	Produced uint64 `json:"produced"`
	Invalid  uint64 `json:"invalid"`
}

// Producer periodically pushes a batch of tasks onto the queue and wakes the consumer.
type Producer struct {
	queue   *TaskQueue
	gate    *SignalGate
	config  ProducerConfig
	emitter events.EventEmitter
	logger  *slog.Logger

	// mu serialises cycles so manual triggers and the loop never interleave
	mu       sync.Mutex
	cycle    uint64
	produced uint64
	invalid  uint64
}

// NewProducer creates a Producer. A nil emitter discards events.
func NewProducer(
	queue *TaskQueue,
	gate *SignalGate,
	config ProducerConfig,
	emitter events.EventEmitter,
	logger *slog.Logger,
) *Producer {
	if config.MaxNameLength <= 0 {
		config.MaxNameLength = DefaultMaxNameLength
	}
	if emitter == nil {
		emitter = events.NopEmitter{}
	}

	return &Producer{
		queue:   queue,
		gate:    gate,
		config:  config,
		emitter: emitter,
		logger:  logger.With("component", "producer"),
	}
}

// Validate reports whether the producer is wired well enough to run.
func (p *Producer) Validate() error {
	if p.queue == nil {
		return fmt.Errorf("%w: producer has no task queue", ErrMissingDependency)
	}
	if p.gate == nil {
		return fmt.Errorf("%w: producer has no signal gate", ErrMissingDependency)
	}
	if p.config.Batch == nil {
		return fmt.Errorf("%w: producer has no batch generator", ErrMissingDependency)
	}
	if p.config.Period <= 0 {
		return fmt.Errorf("%w: producer period must be positive, got %s", ErrInvalidConfig, p.config.Period)
	}
	if p.config.InitialDelay < 0 {
		return fmt.Errorf("%w: initial delay must not be negative, got %s", ErrInvalidConfig, p.config.InitialDelay)
	}
	return nil
}

// Run produces a batch, notifies the consumer and sleeps for the configured period
// until ctx is cancelled. Cancellation is observed at the top of each cycle and
// interrupts the sleep; a batch that has started is always pushed in full.
func (p *Producer) Run(ctx context.Context) error {
	if err := p.Validate(); err != nil {
		return err
	}

	p.logger.Info("producer started",
		"period", p.config.Period,
		"initial_delay", p.config.InitialDelay)
	defer p.logger.Info("producer stopped")

	if p.config.InitialDelay > 0 && !sleepContext(ctx, p.config.InitialDelay) {
		return nil
	}

	for ctx.Err() == nil {
		p.ProduceOnce(ctx)

		if !sleepContext(ctx, p.config.Period) {
			break
		}
	}

	return nil
}

// ProduceOnce runs a single producer cycle synchronously and returns the number of
// tasks pushed. Names rejected by the length limit are logged and skipped.
func (p *Producer) ProduceOnce(ctx context.Context) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cycle++
	cycle := p.cycle
	names := p.config.Batch(cycle)

	batch := make([]Task, 0, len(names))
	for _, name := range names {
		t, err := New(name, cycle, p.config.MaxNameLength)
		if err != nil {
			p.invalid++
			p.logger.Error("skipping invalid task", "error", err, "cycle", cycle)
			continue
		}
		batch = append(batch, t)
	}

	if len(batch) == 0 {
		p.logger.Warn("producer cycle had no valid tasks", "cycle", cycle)
		return 0
	}

	p.queue.PushBatch(batch...)
	p.produced += uint64(len(batch))

	delivered := p.gate.Notify()
	p.logger.Debug("producer cycle complete",
		"cycle", cycle,
		"count", len(batch),
		"wake_delivered", delivered)

	for _, t := range batch {
		event := events.NewTaskEvent(events.TypeTaskProduced, t.ID(), t.Name(), cycle)
		if err := p.emitter.EmitEvent(ctx, event); err != nil {
			p.logger.Warn("failed to emit produced event", "error", err, "task_id", t.ID())
		}
	}

	return len(batch)
}

// Stats returns a snapshot of the producer counters
func (p *Producer) Stats() ProducerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ProducerStats{
		Cycles:   p.cycle,
		Produced: p.produced,
		Invalid:  p.invalid,
	}
}

// sleepContext waits for d and reports false if ctx finished first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
