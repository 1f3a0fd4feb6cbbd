package dispatch

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/osmanaliaydemir/getir-tracking/internal/api/metrics"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/ports"
)

// LogDispatcher writes notification events to the structured log. Used in
// development and as the fallback when no Kafka brokers are configured.
type LogDispatcher struct {
	log zerolog.Logger
}

var _ ports.NotificationDispatcher = (*LogDispatcher)(nil)

func NewLogDispatcher(log zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Dispatch(_ context.Context, event domain.NotificationEvent) error {
	d.log.Info().
		Str("session", event.SessionID).
		Str("order", event.OrderID).
		Str("kind", string(event.Kind)).
		Bool("urgent", event.Kind.Urgent()).
		Interface("payload", event.Payload).
		Msg("notification")
	metrics.NotificationsDispatchedTotal.WithLabelValues(string(event.Kind), "ok").Inc()
	return nil
}
