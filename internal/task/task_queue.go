package task

import (
	"log/slog"
	"sync"
)

// QueueStats is a point-in-time snapshot of a TaskQueue's counters.
type QueueStats struct {
	Depth   int    `json:"depth"`
	Pushed  uint64 `json:"pushed"`
	Drained uint64 `json:"drained"`
	Drains  uint64 `json:"drains"`
}

// TaskQueue is an unbounded FIFO of tasks guarded by a single mutex.
// It is the only state shared between the producer and the consumer.
//
// The lock is held only for the append or the slice swap; callers process
// drained tasks after DrainAll has returned.
type TaskQueue struct {
	mu     sync.Mutex
	tasks  []Task
	logger *slog.Logger

	pushed  uint64
	drained uint64
	drains  uint64
}

// NewTaskQueue creates an empty task queue
func NewTaskQueue(logger *slog.Logger) *TaskQueue {
	return &TaskQueue{
		logger: logger,
	}
}

// PushBack appends a task to the tail of the queue
func (q *TaskQueue) PushBack(task Task) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.pushed++
	depth := len(q.tasks)
	q.mu.Unlock()

	q.logger.Debug("task enqueued",
		"task_id", task.ID(),
		"task_name", task.Name(),
		"queue_len", depth)
}

// PushBatch appends tasks in order under a single lock acquisition, so a concurrent
// drain sees either none or all of them.
func (q *TaskQueue) PushBatch(tasks ...Task) {
	if len(tasks) == 0 {
		return
	}

	q.mu.Lock()
	q.tasks = append(q.tasks, tasks...)
	q.pushed += uint64(len(tasks))
	depth := len(q.tasks)
	q.mu.Unlock()

	q.logger.Debug("task batch enqueued",
		"count", len(tasks),
		"queue_len", depth)
}

// DrainAll atomically detaches every queued task and returns them in FIFO order,
// leaving the queue empty. It returns nil when the queue is already empty.
func (q *TaskQueue) DrainAll() []Task {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	if len(tasks) > 0 {
		q.drained += uint64(len(tasks))
		q.drains++
	}
	q.mu.Unlock()

	if len(tasks) > 0 {
		q.logger.Debug("queue drained", "count", len(tasks))
	}
	return tasks
}

// IsEmpty reports whether the queue held no tasks at the moment of the call.
// The answer may be stale as soon as it is returned.
func (q *TaskQueue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks) == 0
}

// Len returns the number of queued tasks
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Stats returns a snapshot of the queue counters
func (q *TaskQueue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Depth:   len(q.tasks),
		Pushed:  q.pushed,
		Drained: q.drained,
		Drains:  q.drains,
	}
}
