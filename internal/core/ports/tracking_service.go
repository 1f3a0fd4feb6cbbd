package ports

import (
	"context"
	"time"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
)

// StartTrackingInput carries all data needed to begin tracking an order.
type StartTrackingInput struct {
	OrderID     string
	CourierID   string // optional, may be assigned later
	Destination CoordinatesInput
}

// CoordinatesInput holds geographic coordinates.
type CoordinatesInput struct {
	Lat float64
	Lng float64
}

// StartTrackingResult is returned by StartTracking.
type StartTrackingResult struct {
	SessionID string
	Status    domain.TrackingStatus
	CreatedAt time.Time
	// AlreadyExisted is true when an active session for the order was
	// found and returned instead of creating a new one.
	AlreadyExisted bool
}

// LocationUpdateInput is the DTO passed from the transport layer for a
// courier position fix.
type LocationUpdateInput struct {
	SessionID  string
	Lat        float64
	Lng        float64
	AccuracyM  float64
	SpeedKmh   *float64
	BearingDeg *float64
	AltitudeM  *float64
	Source     domain.LocationSource
	RecordedAt time.Time // zero means "now"
}

// LocationUpdateResult returns the recomputed distance/ETA to the caller.
type LocationUpdateResult struct {
	DistanceRemainingKm float64
	ETAMinutesRemaining int
	EstimatedArrivalAt  time.Time
}

// StatusUpdateInput carries a requested status transition.
type StatusUpdateInput struct {
	SessionID string
	Status    domain.TrackingStatus
	Message   string // optional, defaults to the status description
}

// StatusUpdateResult is returned by UpdateStatus.
type StatusUpdateResult struct {
	Accepted  bool
	Status    domain.TrackingStatus
	UpdatedAt time.Time
}

// TrackingService is the broadcast hub facade: it orchestrates the store,
// the transition policy, the ETA engine, and the notification triggers, and
// fans accepted updates out to subscribers. Each operation is atomic from
// the caller's perspective; two updates to the same session never interleave.
type TrackingService interface {
	StartTracking(ctx context.Context, in StartTrackingInput) (*StartTrackingResult, error)
	UpdateLocation(ctx context.Context, in LocationUpdateInput) (*LocationUpdateResult, error)
	UpdateStatus(ctx context.Context, in StatusUpdateInput) (*StatusUpdateResult, error)
	StopTracking(ctx context.Context, sessionID string) (bool, error)

	Snapshot(ctx context.Context, orderID string) (*domain.TrackingSession, error)
	Session(ctx context.Context, sessionID string) (*domain.TrackingSession, error)
	Trail(ctx context.Context, sessionID string, limit int) ([]domain.LocationRecord, error)
	AvailableTransitions(ctx context.Context, sessionID string) ([]domain.TrackingStatus, error)
	ActiveSessions(ctx context.Context) ([]*domain.TrackingSession, error)
	SessionsByCourier(ctx context.Context, courierID string) ([]*domain.TrackingSession, error)
	Statistics(ctx context.Context) (domain.Statistics, error)

	// Subscribe joins the connection to a topic and synchronously pushes the
	// current snapshot to the new subscriber when the topic maps to an order
	// with an active session (read-your-writes on join).
	Subscribe(ctx context.Context, sub Subscriber, topic domain.Topic) error
	Unsubscribe(connectionID string, topic domain.Topic)
	UnsubscribeAll(connectionID string)
}
