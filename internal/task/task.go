package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxNameLength is the longest task name accepted when no limit is configured.
const DefaultMaxNameLength = 9

// Common errors returned when constructing tasks
var (
	ErrInvalidTaskName = errors.New("invalid task name")
	ErrNameTooLong     = errors.New("task name too long")
)

// Task is a named unit of work handed from the producer to the consumer.
// A Task is immutable once created; copies share nothing mutable.
type Task struct {
	id        uuid.UUID
	name      string
	cycle     uint64
	createdAt time.Time
}

// New creates a Task with the given name, enforcing maxLen as the upper bound on the
// name's length in bytes. A non-positive maxLen falls back to DefaultMaxNameLength.
func New(name string, cycle uint64, maxLen int) (Task, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxNameLength
	}

	if name == "" {
		return Task{}, fmt.Errorf("%w: name must not be empty", ErrInvalidTaskName)
	}

	if len(name) > maxLen {
		return Task{}, fmt.Errorf("%w: %q is %d bytes, limit is %d", ErrNameTooLong, name, len(name), maxLen)
	}

	return Task{
		id:        uuid.New(),
		name:      name,
		cycle:     cycle,
		createdAt: time.Now().UTC(),
	}, nil
}

// ID returns the task's unique identifier
func (t Task) ID() uuid.UUID {
	return t.id
}

// Name returns the task name
func (t Task) Name() string {
	return t.name
}

// Cycle returns the producer cycle that created the task
func (t Task) Cycle() uint64 {
	return t.cycle
}

// CreatedAt returns the creation time in UTC
func (t Task) CreatedAt() time.Time {
	return t.createdAt
}

func (t Task) String() string {
	return t.name
}
