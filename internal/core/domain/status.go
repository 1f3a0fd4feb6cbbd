package domain

// TrackingStatus represents the lifecycle state of a delivery under tracking.
type TrackingStatus string

const (
	StatusOrderPlaced    TrackingStatus = "order_placed"
	StatusConfirmed      TrackingStatus = "confirmed"
	StatusPreparing      TrackingStatus = "preparing"
	StatusReadyForPickup TrackingStatus = "ready_for_pickup"
	StatusPickedUp       TrackingStatus = "picked_up"
	StatusOnTheWay       TrackingStatus = "on_the_way"
	StatusArrived        TrackingStatus = "arrived"
	StatusDelivered      TrackingStatus = "delivered"
	StatusCancelled      TrackingStatus = "cancelled"
)

// AllStatuses lists every status in happy-path order, terminals last.
var AllStatuses = []TrackingStatus{
	StatusOrderPlaced,
	StatusConfirmed,
	StatusPreparing,
	StatusReadyForPickup,
	StatusPickedUp,
	StatusOnTheWay,
	StatusArrived,
	StatusDelivered,
	StatusCancelled,
}

// validTransitions defines the allowed state machine transitions.
// Cancellation is reachable from every non-terminal state; the two terminal
// states (delivered, cancelled) have no outgoing edges.
var validTransitions = map[TrackingStatus][]TrackingStatus{
	StatusOrderPlaced:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusReadyForPickup, StatusCancelled},
	StatusReadyForPickup: {StatusPickedUp, StatusCancelled},
	StatusPickedUp:       {StatusOnTheWay, StatusCancelled},
	StatusOnTheWay:       {StatusArrived, StatusCancelled},
	StatusArrived:        {StatusDelivered, StatusCancelled},
}

// CanTransitionTo reports whether a transition from the current status to next is valid.
func (s TrackingStatus) CanTransitionTo(next TrackingStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AvailableTransitions returns the statuses reachable from s. Terminal
// states return an empty slice. The returned slice is a copy.
func (s TrackingStatus) AvailableTransitions() []TrackingStatus {
	allowed := validTransitions[s]
	out := make([]TrackingStatus, len(allowed))
	copy(out, allowed)
	return out
}

// IsTerminal reports whether s has no outgoing transitions.
func (s TrackingStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsValid reports whether s is a known tracking status.
func (s TrackingStatus) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// DisplayName returns the customer-facing label for s.
func (s TrackingStatus) DisplayName() string {
	switch s {
	case StatusOrderPlaced:
		return "Order Placed"
	case StatusConfirmed:
		return "Order Confirmed"
	case StatusPreparing:
		return "Preparing"
	case StatusReadyForPickup:
		return "Ready for Pickup"
	case StatusPickedUp:
		return "Picked Up"
	case StatusOnTheWay:
		return "On the Way"
	case StatusArrived:
		return "Arrived"
	case StatusDelivered:
		return "Delivered"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Description returns the default status message used when the caller
// supplies none.
func (s TrackingStatus) Description() string {
	switch s {
	case StatusOrderPlaced:
		return "Your order has been received and is being processed"
	case StatusConfirmed:
		return "Your order has been confirmed"
	case StatusPreparing:
		return "Your order is being prepared"
	case StatusReadyForPickup:
		return "Your order is ready for pickup"
	case StatusPickedUp:
		return "Your order has been picked up by the courier"
	case StatusOnTheWay:
		return "Your order is on its way"
	case StatusArrived:
		return "The courier has arrived at your address"
	case StatusDelivered:
		return "Your order has been delivered"
	case StatusCancelled:
		return "Your order has been cancelled"
	default:
		return "Status unknown"
	}
}
