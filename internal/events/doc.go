// Package events provides types and interfaces for task lifecycle notifications.
//
// The producer and consumer loops emit events without knowing which handlers
// will process them, which keeps metrics and history out of the hand-off path.
//
// The primary components are:
// - TaskEvent: Describes a task being produced, processed or failing
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
// - Recorder: Handler keeping the ordered history of processed task names
package events
