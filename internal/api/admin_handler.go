package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/phrazzld/handoff/internal/api/shared"
	"github.com/phrazzld/handoff/internal/events"
	"github.com/phrazzld/handoff/internal/platform/logger"
	"github.com/phrazzld/handoff/internal/supervisor"
	"github.com/phrazzld/handoff/internal/task"
)

// ProducerTrigger runs a single producer cycle on demand.
type ProducerTrigger interface {
	ProduceOnce(ctx context.Context) int
}

// LoopHandles exposes the running loops; *supervisor.Supervisor satisfies it.
type LoopHandles interface {
	Handles() (producer *supervisor.Handle, consumer *supervisor.Handle)
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Queue           task.QueueStats `json:"queue"`
	Gate            task.GateStats  `json:"gate"`
	ProducerRunning bool            `json:"producer_running"`
	ConsumerRunning bool            `json:"consumer_running"`
	Processed       []string        `json:"processed"`
	ProcessedTotal  uint64          `json:"processed_total"`
}

// ProduceResponse is the body of a successful POST /produce.
type ProduceResponse struct {
	Produced int `json:"produced"`
}

// AdminHandler serves the admin endpoints.
type AdminHandler struct {
	queue    *task.TaskQueue
	gate     *task.SignalGate
	producer ProducerTrigger
	loops    LoopHandles
	recorder *events.Recorder
	logger   *slog.Logger

	shuttingDown atomic.Bool
}

// NewAdminHandler creates an AdminHandler. recorder may be nil, in which case the
// processed history is reported empty.
func NewAdminHandler(
	queue *task.TaskQueue,
	gate *task.SignalGate,
	producer ProducerTrigger,
	loops LoopHandles,
	recorder *events.Recorder,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		queue:    queue,
		gate:     gate,
		producer: producer,
		loops:    loops,
		recorder: recorder,
		logger:   logger.With("component", "admin_handler"),
	}
}

// BeginShutdown makes POST /produce refuse further cycles.
func (h *AdminHandler) BeginShutdown() {
	h.shuttingDown.Store(true)
}

// Health handles GET /health.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		h.logger.Error("failed to write health check response", "error", err)
	}
}

// Stats handles GET /stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	producer, consumer := h.loops.Handles()

	resp := StatsResponse{
		Queue:           h.queue.Stats(),
		Gate:            h.gate.Stats(),
		ProducerRunning: producer != nil && producer.Running(),
		ConsumerRunning: consumer != nil && consumer.Running(),
		Processed:       []string{},
	}
	if h.recorder != nil {
		resp.Processed = h.recorder.Names()
		resp.ProcessedTotal = h.recorder.Total()
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Produce handles POST /produce by running one producer cycle immediately.
func (h *AdminHandler) Produce(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	producer, _ := h.loops.Handles()
	if h.shuttingDown.Load() || producer == nil || !producer.Running() {
		log.Debug("manual produce refused", "shutting_down", h.shuttingDown.Load())
		shared.RespondWithError(w, r, http.StatusServiceUnavailable, "producer is not running")
		return
	}

	produced := h.producer.ProduceOnce(r.Context())
	log.Info("manual producer cycle", "produced", produced)

	shared.RespondWithJSON(w, r, http.StatusAccepted, ProduceResponse{Produced: produced})
}
