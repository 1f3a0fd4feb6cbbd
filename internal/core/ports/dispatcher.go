package ports

import (
	"context"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
)

// NotificationDispatcher hands notification events to the external delivery
// pipeline (push/SMS/email). Dispatch is fire-and-forget from the core's
// perspective: errors are logged by the caller, never retried here, and a
// failed dispatch never fails the triggering update.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, event domain.NotificationEvent) error
}
