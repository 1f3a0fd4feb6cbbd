package ports

import (
	"context"
	"time"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
)

// TrailArchive persists accepted updates to durable storage for audit and
// analytics. Archive failures are non-fatal: the in-memory store remains the
// authority and a failed append never fails the triggering update.
type TrailArchive interface {
	AppendLocation(ctx context.Context, record domain.LocationRecord) error
	AppendStatusChange(ctx context.Context, sessionID string, status domain.TrackingStatus, message string, at time.Time) error
}
