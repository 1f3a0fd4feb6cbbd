package ports

import "github.com/osmanaliaydemir/getir-tracking/internal/core/domain"

// Subscriber is a live connection that can receive broadcast events. The
// transport layer owns the handle; Send failures are isolated per subscriber
// and never abort delivery to the rest of a topic.
type Subscriber interface {
	ID() string
	Send(event domain.Event) error
}

// SubscriptionRegistry tracks which connections belong to which topic. It is
// safe for concurrent join/leave while a broadcast is iterating members:
// Broadcast operates on a snapshot of the membership taken at call time.
type SubscriptionRegistry interface {
	// Join adds the subscriber to a topic. Duplicate joins are idempotent.
	Join(sub Subscriber, topic domain.Topic)
	Leave(connectionID string, topic domain.Topic)
	// LeaveAll removes the connection from every topic; called on disconnect.
	LeaveAll(connectionID string)
	// MembersOf returns a snapshot of the current members of a topic.
	MembersOf(topic domain.Topic) []Subscriber
	// Broadcast sends the event to every current member of the topic and
	// returns the number of successful deliveries.
	Broadcast(topic domain.Topic, event domain.Event) int
}
