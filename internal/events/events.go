package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event type constants
const (
	// TypeTaskProduced is emitted when the producer pushes a task onto the queue
	TypeTaskProduced = "task.produced"

	// TypeTaskProcessed is emitted when the consumer finishes a task successfully
	TypeTaskProcessed = "task.processed"

	// TypeTaskFailed is emitted when the consumer's processor returns an error or panics
	TypeTaskFailed = "task.failed"
)

// TaskEvent describes something that happened to a single task.
// It carries the task's identity by value so that handlers never hold
// references into the queue.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// TaskID identifies the task the event refers to
	TaskID uuid.UUID `json:"task_id"`

	// TaskName is the task's name
	TaskName string `json:"task_name"`

	// Cycle is the producer cycle that created the task
	Cycle uint64 `json:"cycle"`

	// Error holds the processing error message for TypeTaskFailed events
	Error string `json:"error,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewTaskEvent creates a new TaskEvent with the specified type for the given task.
func NewTaskEvent(eventType string, taskID uuid.UUID, taskName string, cycle uint64) *TaskEvent {
	return &TaskEvent{
		ID:        uuid.New(),
		Type:      eventType,
		TaskID:    taskID,
		TaskName:  taskName,
		Cycle:     cycle,
		CreatedAt: time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventHandlerFunc adapts a plain function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f(ctx, event).
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows the loops to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *TaskEvent) error {
	return nil
}
