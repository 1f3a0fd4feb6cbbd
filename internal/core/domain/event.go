package domain

import "time"

// Topic identifies a broadcast channel subscribers can join.
type Topic string

// AdminTopic receives every published update regardless of order.
const AdminTopic Topic = "admin:all"

// OrderTopic is the channel for a single order's updates.
func OrderTopic(orderID string) Topic { return Topic("order:" + orderID) }

// UserTopic is the channel for all updates relevant to one customer.
func UserTopic(userID string) Topic { return Topic("user:" + userID) }

// CourierTopic is the channel for all updates relevant to one courier.
func CourierTopic(courierID string) Topic { return Topic("courier:" + courierID) }

// EventKind discriminates broadcast event payloads.
type EventKind string

const (
	EventLocationChanged EventKind = "location_changed"
	EventStatusChanged   EventKind = "status_changed"
	EventNearDestination EventKind = "near_destination"
	EventCompleted       EventKind = "completed"
	EventCancelled       EventKind = "cancelled"
)

// Event is the unit of fan-out to subscribers. Every event carries the full
// session snapshot at publish time, so slow consumers that coalesce events
// still end up with the latest state.
type Event struct {
	Kind                EventKind        `json:"kind"`
	SessionID           string           `json:"session_id"`
	OrderID             string           `json:"order_id"`
	Status              TrackingStatus   `json:"status,omitempty"`
	StatusMessage       string           `json:"status_message,omitempty"`
	Location            *Location        `json:"location,omitempty"`
	DistanceRemainingKm *float64         `json:"distance_remaining_km,omitempty"`
	ETAMinutesRemaining *int             `json:"eta_minutes_remaining,omitempty"`
	Reason              string           `json:"reason,omitempty"`
	Snapshot            *TrackingSession `json:"snapshot"`
	OccurredAt          time.Time        `json:"occurred_at"`
}

// NotificationKind discriminates side-channel notification events handed to
// the external dispatcher.
type NotificationKind string

const (
	NotifyStatusChanged   NotificationKind = "status_changed"
	NotifyLocationChanged NotificationKind = "location_changed"
	NotifyNearDestination NotificationKind = "near_destination"
	NotifyDelayed         NotificationKind = "delayed"
	NotifyCompleted       NotificationKind = "completed"
)

// Urgent reports whether the notification should bypass batching in the
// downstream delivery pipeline.
func (k NotificationKind) Urgent() bool {
	switch k {
	case NotifyNearDestination, NotifyDelayed, NotifyCompleted:
		return true
	}
	return false
}

// NotificationEvent is a transient value emitted to the notification
// dispatcher. The dispatcher owns delivery and retry; this core never awaits
// confirmation.
type NotificationEvent struct {
	SessionID  string           `json:"session_id"`
	OrderID    string           `json:"order_id"`
	Kind       NotificationKind `json:"kind"`
	Payload    map[string]any   `json:"payload,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
