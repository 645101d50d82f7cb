package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/handoff/internal/api"
	"github.com/phrazzld/handoff/internal/config"
	"github.com/phrazzld/handoff/internal/events"
	"github.com/phrazzld/handoff/internal/metrics"
	"github.com/phrazzld/handoff/internal/supervisor"
	"github.com/phrazzld/handoff/internal/task"
)

// application holds the shared state of the hand-off core and everything observing it.
// Queue and gate are created here and passed explicitly to both loops.
type application struct {
	config *config.Config
	logger *slog.Logger

	queue *task.TaskQueue
	gate  *task.SignalGate

	emitter  *events.InMemoryEventEmitter
	recorder *events.Recorder
	metrics  *metrics.Metrics

	producer   *task.Producer
	consumer   *task.Consumer
	supervisor *supervisor.Supervisor

	admin *api.AdminHandler
}

// newApplication wires the core from configuration. Nothing is started yet.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &application{
		config: cfg,
		logger: logger,
		queue:  task.NewTaskQueue(logger.With("component", "task_queue")),
		gate:   task.NewSignalGate(),
	}

	app.recorder = events.NewRecorder(cfg.Events.HistorySize)
	app.metrics = metrics.New(app.queue, app.gate)

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(app.metrics)
	app.emitter.RegisterHandler(app.recorder)

	app.producer = task.NewProducer(app.queue, app.gate, task.ProducerConfig{
		Period:        cfg.Producer.Period,
		InitialDelay:  cfg.Producer.InitialDelay,
		Batch:         task.FixedBatch(cfg.Producer.Batch...),
		MaxNameLength: cfg.Task.MaxNameLength,
	}, app.emitter, logger)

	app.consumer = task.NewConsumer(app.queue, app.gate, nil, app.emitter, logger)

	app.supervisor = supervisor.New(app.producer, app.consumer, app.gate, logger)

	app.admin = api.NewAdminHandler(
		app.queue,
		app.gate,
		app.producer,
		app.supervisor,
		app.recorder,
		logger,
	)

	logger.Info("application initialized",
		"batch_size", len(cfg.Producer.Batch),
		"max_name_length", cfg.Task.MaxNameLength,
		"history_size", cfg.Events.HistorySize)
	return app, nil
}
