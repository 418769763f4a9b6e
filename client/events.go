// Copyright 2026 The Go TaskRouter Authors
// SPDX-License-Identifier: Apache-2.0

package client

// EventType identifies a domain event emitted by a Task.
type EventType string

// Domain events emitted by a Task. Task-level events carry the Task;
// transfer events carry the affected Transfer.
const (
	EventCanceled              EventType = "canceled"
	EventCompleted             EventType = "completed"
	EventWrapup                EventType = "wrapup"
	EventUpdated               EventType = "updated"
	EventTransferInitiated     EventType = "transferInitiated"
	EventTransferAttemptFailed EventType = "transferAttemptFailed"
	EventTransferCanceled      EventType = "transferCanceled"
	EventTransferCompleted     EventType = "transferCompleted"
	EventTransferFailed        EventType = "transferFailed"
)

// Wire event types delivered by the event source.
const (
	wireTransferInitiated     = "transfer-initiated"
	wireTransferAttemptFailed = "transfer-attempt-failed"
	wireTransferCanceled      = "transfer-canceled"
	wireTransferCompleted     = "transfer-completed"
	wireTransferFailed        = "transfer-failed"
)

// transferEvents maps transfer-classified wire event types to the domain
// events they emit. Any wire type absent from this table is a task-level
// event and follows the generic emission path.
var transferEvents = map[string]EventType{
	wireTransferInitiated:     EventTransferInitiated,
	wireTransferAttemptFailed: EventTransferAttemptFailed,
	wireTransferCanceled:      EventTransferCanceled,
	wireTransferCompleted:     EventTransferCompleted,
	wireTransferFailed:        EventTransferFailed,
}

// isTransferEvent reports whether the wire event type is transfer-classified.
func isTransferEvent(eventType string) bool {
	_, ok := transferEvents[eventType]
	return ok
}

// Event is a domain event emitted by a Task.
type Event struct {
	// Type is the domain event type.
	Type EventType

	// Task is the task the event belongs to. Always set.
	Task *Task

	// Transfer is the affected transfer. Set only for transfer events.
	Transfer *Transfer
}

// Handler receives domain events emitted by a Task. Handlers run
// synchronously on the dispatching goroutine and must not block.
type Handler func(Event)
