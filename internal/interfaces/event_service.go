package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

// Job lifecycle events published by the scheduler
const (
	EventJobSubmitted EventType = "job_submitted"
	EventJobStarted   EventType = "job_started"
	EventJobCompleted EventType = "job_completed"
	EventJobFailed    EventType = "job_failed"
	EventJobCanceled  EventType = "job_canceled"
)

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages pub/sub event bus
type EventService interface {
	// Subscribe registers a handler for an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish sends an event to all subscribers asynchronously
	Publish(ctx context.Context, event Event) error

	// PublishSync sends an event to all subscribers synchronously
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
