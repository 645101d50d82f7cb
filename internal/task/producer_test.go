package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/handoff/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureEmitter records every emitted event.
type captureEmitter struct {
	mu     sync.Mutex
	events []*events.TaskEvent
	err    error
}

func (c *captureEmitter) EmitEvent(_ context.Context, event *events.TaskEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return c.err
}

func (c *captureEmitter) ofType(eventType string) []*events.TaskEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*events.TaskEvent
	for _, e := range c.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newTestProducer(t *testing.T, config ProducerConfig, emitter events.EventEmitter) (*Producer, *TaskQueue, *SignalGate) {
	t.Helper()
	queue := NewTaskQueue(setupTestLogger())
	gate := NewSignalGate()
	return NewProducer(queue, gate, config, emitter, setupTestLogger()), queue, gate
}

func TestDefaultProducerConfig(t *testing.T) {
	config := DefaultProducerConfig()

	assert.Equal(t, 30*time.Second, config.Period)
	assert.Equal(t, time.Duration(0), config.InitialDelay)
	assert.Equal(t, DefaultMaxNameLength, config.MaxNameLength)
	assert.Equal(t, []string{"cleanroom", "washdish", "buyfood"}, config.Batch(1))
}

func TestFixedBatch_ReturnsCopies(t *testing.T) {
	names := []string{"a", "b"}
	gen := FixedBatch(names...)

	names[0] = "changed"
	first := gen(1)
	first[1] = "mutated"

	assert.Equal(t, []string{"a", "b"}, gen(2))
}

func TestProducer_ProduceOnce(t *testing.T) {
	emitter := &captureEmitter{}
	producer, queue, gate := newTestProducer(t, DefaultProducerConfig(), emitter)

	gate.Arm()
	count := producer.ProduceOnce(context.Background())

	assert.Equal(t, 3, count)
	assert.Equal(t, GateWoken, gate.State(), "an armed consumer must be woken")

	drained := queue.DrainAll()
	assert.Equal(t, DefaultBatch, taskNames(drained))
	for _, task := range drained {
		assert.Equal(t, uint64(1), task.Cycle())
	}

	produced := emitter.ofType(events.TypeTaskProduced)
	require.Len(t, produced, 3)
	for i, event := range produced {
		assert.Equal(t, drained[i].ID(), event.TaskID)
		assert.Equal(t, drained[i].Name(), event.TaskName)
	}

	assert.Equal(t, ProducerStats{Cycles: 1, Produced: 3}, producer.Stats())
}

func TestProducer_ProduceOnceNumbersCycles(t *testing.T) {
	var seen []uint64
	config := DefaultProducerConfig()
	config.Batch = func(cycle uint64) []string {
		seen = append(seen, cycle)
		return []string{"job"}
	}
	producer, queue, _ := newTestProducer(t, config, nil)

	producer.ProduceOnce(context.Background())
	producer.ProduceOnce(context.Background())

	assert.Equal(t, []uint64{1, 2}, seen)
	drained := queue.DrainAll()
	require.Len(t, drained, 2)
	assert.Equal(t, uint64(2), drained[1].Cycle())
}

func TestProducer_SkipsInvalidNames(t *testing.T) {
	config := DefaultProducerConfig()
	config.Batch = FixedBatch("cleanroom", "waytoolongname", "", "buyfood")
	producer, queue, _ := newTestProducer(t, config, nil)

	count := producer.ProduceOnce(context.Background())

	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"cleanroom", "buyfood"}, taskNames(queue.DrainAll()))
	assert.Equal(t, ProducerStats{Cycles: 1, Produced: 2, Invalid: 2}, producer.Stats())
}

func TestProducer_EmptyBatchDoesNotNotify(t *testing.T) {
	config := DefaultProducerConfig()
	config.Batch = FixedBatch("waytoolongname")
	producer, queue, gate := newTestProducer(t, config, nil)

	gate.Arm()
	count := producer.ProduceOnce(context.Background())

	assert.Equal(t, 0, count)
	assert.True(t, queue.IsEmpty())
	assert.Equal(t, GateArmed, gate.State(), "no tasks means no wake")
	assert.Equal(t, uint64(0), gate.Stats().Delivered)
}

func TestProducer_EmitErrorDoesNotAbortCycle(t *testing.T) {
	emitter := &captureEmitter{err: errors.New("handler down")}
	producer, queue, _ := newTestProducer(t, DefaultProducerConfig(), emitter)

	count := producer.ProduceOnce(context.Background())

	assert.Equal(t, 3, count)
	assert.Equal(t, 3, queue.Len())
	assert.Len(t, emitter.ofType(events.TypeTaskProduced), 3)
}

func TestProducer_Validate(t *testing.T) {
	queue := NewTaskQueue(setupTestLogger())
	gate := NewSignalGate()
	logger := setupTestLogger()

	withConfig := func(mutate func(*ProducerConfig)) ProducerConfig {
		config := DefaultProducerConfig()
		mutate(&config)
		return config
	}

	testCases := []struct {
		name     string
		producer *Producer
		wantErr  error
	}{
		{
			name:     "valid",
			producer: NewProducer(queue, gate, DefaultProducerConfig(), nil, logger),
		},
		{
			name:     "missing queue",
			producer: NewProducer(nil, gate, DefaultProducerConfig(), nil, logger),
			wantErr:  ErrMissingDependency,
		},
		{
			name:     "missing gate",
			producer: NewProducer(queue, nil, DefaultProducerConfig(), nil, logger),
			wantErr:  ErrMissingDependency,
		},
		{
			name:     "missing batch",
			producer: NewProducer(queue, gate, withConfig(func(c *ProducerConfig) { c.Batch = nil }), nil, logger),
			wantErr:  ErrMissingDependency,
		},
		{
			name:     "zero period",
			producer: NewProducer(queue, gate, withConfig(func(c *ProducerConfig) { c.Period = 0 }), nil, logger),
			wantErr:  ErrInvalidConfig,
		},
		{
			name:     "negative initial delay",
			producer: NewProducer(queue, gate, withConfig(func(c *ProducerConfig) { c.InitialDelay = -time.Second }), nil, logger),
			wantErr:  ErrInvalidConfig,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.producer.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
			assert.ErrorIs(t, tc.producer.Run(context.Background()), tc.wantErr, "Run must refuse an invalid producer")
		})
	}
}

func TestProducer_RunProducesPeriodically(t *testing.T) {
	config := DefaultProducerConfig()
	config.Period = 10 * time.Millisecond
	producer, queue, _ := newTestProducer(t, config, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- producer.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return producer.Stats().Cycles >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("producer did not stop")
	}

	stats := producer.Stats()
	assert.Equal(t, stats.Cycles*3, stats.Produced)
	assert.Equal(t, int(stats.Produced), queue.Len(), "each cycle pushes a full batch")
}

func TestProducer_RunStopsDuringSleep(t *testing.T) {
	producer, _, _ := newTestProducer(t, DefaultProducerConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- producer.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return producer.Stats().Cycles == 1
	}, time.Second, time.Millisecond)

	start := time.Now()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.Less(t, time.Since(start), 100*time.Millisecond, "a 30s sleep must not delay shutdown")
	case <-time.After(time.Second):
		t.Fatal("producer did not stop during sleep")
	}
	assert.Equal(t, uint64(1), producer.Stats().Cycles)
}

func TestProducer_RunInitialDelay(t *testing.T) {
	config := DefaultProducerConfig()
	config.InitialDelay = time.Hour
	producer, queue, _ := newTestProducer(t, config, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	require.NoError(t, producer.Run(ctx))
	assert.Equal(t, uint64(0), producer.Stats().Cycles)
	assert.True(t, queue.IsEmpty())
}

func TestProducer_RunCancelledBeforeStart(t *testing.T) {
	producer, queue, _ := newTestProducer(t, DefaultProducerConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, producer.Run(ctx))
	assert.True(t, queue.IsEmpty(), "no cycle starts after cancellation")
}
