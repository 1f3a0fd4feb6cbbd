package ports

import (
	"context"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
)

// TrackingStore owns the authoritative per-session state and the append-only
// location trail. All mutating operations on the same session ID are
// serialized by the implementation; operations on different sessions proceed
// independently.
type TrackingStore interface {
	// Create starts a session for an order. If an active session already
	// exists for the same order, the existing session is returned and
	// created is false (idempotent create).
	Create(ctx context.Context, orderID, courierID string, destination domain.Coordinates) (session *domain.TrackingSession, created bool, err error)

	Get(ctx context.Context, sessionID string) (*domain.TrackingSession, error)
	GetByOrder(ctx context.Context, orderID string) (*domain.TrackingSession, error)

	// ApplyLocation records a location fix, appends it to the trail, and
	// recomputes remaining distance/ETA before returning the updated
	// session. Fails with ErrSessionNotFound or ErrSessionInactive.
	ApplyLocation(ctx context.Context, sessionID string, loc domain.Location) (*domain.TrackingSession, error)

	// ApplyStatus validates the transition against the state machine and
	// applies it. Validation precedes mutation: on a TransitionError the
	// session is untouched. A terminal status deactivates the session.
	ApplyStatus(ctx context.Context, sessionID string, status domain.TrackingStatus, message string) (*domain.TrackingSession, error)

	// Deactivate stops the session. Returns false when no such session exists.
	Deactivate(ctx context.Context, sessionID string) (bool, error)

	// Trail returns up to limit location records, most recent first.
	Trail(ctx context.Context, sessionID string, limit int) ([]domain.LocationRecord, error)

	ActiveSessions(ctx context.Context) ([]*domain.TrackingSession, error)
	SessionsByCourier(ctx context.Context, courierID string) ([]*domain.TrackingSession, error)
	Statistics(ctx context.Context) (domain.Statistics, error)
}
