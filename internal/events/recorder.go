package events

import (
	"context"
	"sync"
)

// DefaultHistorySize is the number of processed task names a Recorder keeps
// when no capacity is given.
const DefaultHistorySize = 1024

// Recorder is an EventHandler that remembers the names of processed tasks in the
// order the consumer reported them. Only the most recent entries are kept.
type Recorder struct {
	mu       sync.Mutex
	names    []string
	capacity int
	total    uint64
	failed   uint64
	notify   chan struct{}
}

// NewRecorder creates a Recorder holding at most capacity names.
// A non-positive capacity falls back to DefaultHistorySize.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &Recorder{
		names:    make([]string, 0, capacity),
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// HandleEvent records task.processed and counts task.failed events; others are ignored.
func (r *Recorder) HandleEvent(_ context.Context, event *TaskEvent) error {
	switch event.Type {
	case TypeTaskProcessed:
		r.mu.Lock()
		if len(r.names) == r.capacity {
			copy(r.names, r.names[1:])
			r.names = r.names[:len(r.names)-1]
		}
		r.names = append(r.names, event.TaskName)
		r.total++
		r.mu.Unlock()
	case TypeTaskFailed:
		r.mu.Lock()
		r.failed++
		r.mu.Unlock()
	default:
		return nil
	}

	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

// Names returns a copy of the recorded names, oldest first.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Total returns how many processed events were seen, including evicted ones.
func (r *Recorder) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Failed returns how many failed events were seen.
func (r *Recorder) Failed() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// WaitForTotal blocks until at least n processed events were recorded or ctx is done.
func (r *Recorder) WaitForTotal(ctx context.Context, n uint64) error {
	for {
		if r.Total() >= n {
			return nil
		}
		select {
		case <-r.notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
