package service

import (
	"sync"
	"time"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
)

// TriggerConfig tunes the notification trigger rules.
type TriggerConfig struct {
	// NearDestinationMeters is the remaining straight-line distance below
	// which a near-destination alert fires. Defaults to 500.
	NearDestinationMeters float64
	// DelayThreshold is how far past the first promised arrival time a
	// delivery may run before a delay alert fires. Defaults to 15 minutes.
	DelayThreshold time.Duration
	// DisableNearAlerts and DisableDelayAlerts switch individual rules off.
	DisableNearAlerts  bool
	DisableDelayAlerts bool
}

const (
	defaultNearMeters     = 500.0
	defaultDelayThreshold = 15 * time.Minute
)

// Triggers evaluates per-session alert rules on each location and status
// update. Near-destination and delay alerts fire at most once per session.
type Triggers struct {
	cfg TriggerConfig
	now func() time.Time

	mu    sync.Mutex
	state map[string]*triggerState
}

type triggerState struct {
	nearFired  bool
	delayFired bool
	// promisedAt is the first arrival estimate produced for the session.
	// Later estimates do not move it, otherwise a slipping ETA would never
	// count as a delay.
	promisedAt time.Time
}

func NewTriggers(cfg TriggerConfig) *Triggers {
	if cfg.NearDestinationMeters <= 0 {
		cfg.NearDestinationMeters = defaultNearMeters
	}
	if cfg.DelayThreshold <= 0 {
		cfg.DelayThreshold = defaultDelayThreshold
	}
	return &Triggers{
		cfg:   cfg,
		now:   time.Now,
		state: make(map[string]*triggerState),
	}
}

// OnLocation evaluates the near-destination and delay rules against a fresh
// session snapshot and returns the notifications that should be dispatched.
func (t *Triggers) OnLocation(s *domain.TrackingSession) []domain.NotificationEvent {
	if s == nil || s.Status.IsTerminal() {
		return nil
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.state[s.ID]
	if !ok {
		st = &triggerState{}
		t.state[s.ID] = st
	}
	if st.promisedAt.IsZero() && s.EstimatedArrivalAt != nil {
		st.promisedAt = *s.EstimatedArrivalAt
	}

	var out []domain.NotificationEvent

	if !t.cfg.DisableNearAlerts && !st.nearFired && s.DistanceRemainingKm != nil {
		remainingM := *s.DistanceRemainingKm * 1000
		if remainingM <= t.cfg.NearDestinationMeters {
			st.nearFired = true
			out = append(out, domain.NotificationEvent{
				SessionID: s.ID,
				OrderID:   s.OrderID,
				Kind:      domain.NotifyNearDestination,
				Payload: map[string]any{
					"distance_remaining_m": remainingM,
				},
				OccurredAt: now,
			})
		}
	}

	if !t.cfg.DisableDelayAlerts && !st.delayFired && !st.promisedAt.IsZero() {
		if now.After(st.promisedAt.Add(t.cfg.DelayThreshold)) {
			st.delayFired = true
			out = append(out, domain.NotificationEvent{
				SessionID: s.ID,
				OrderID:   s.OrderID,
				Kind:      domain.NotifyDelayed,
				Payload: map[string]any{
					"promised_arrival_at": st.promisedAt,
					"delay_minutes":       int(now.Sub(st.promisedAt).Minutes()),
				},
				OccurredAt: now,
			})
		}
	}

	return out
}

// OnStatus returns the notifications for a completed status change.
func (t *Triggers) OnStatus(s *domain.TrackingSession) []domain.NotificationEvent {
	if s == nil {
		return nil
	}
	now := t.now()

	out := []domain.NotificationEvent{{
		SessionID: s.ID,
		OrderID:   s.OrderID,
		Kind:      domain.NotifyStatusChanged,
		Payload: map[string]any{
			"status":  string(s.Status),
			"message": s.StatusMessage,
		},
		OccurredAt: now,
	}}

	if s.Status == domain.StatusDelivered {
		out = append(out, domain.NotificationEvent{
			SessionID:  s.ID,
			OrderID:    s.OrderID,
			Kind:       domain.NotifyCompleted,
			Payload:    map[string]any{"delivered_at": now},
			OccurredAt: now,
		})
	}
	return out
}

// Forget drops the rule state for a finished session.
func (t *Triggers) Forget(sessionID string) {
	t.mu.Lock()
	delete(t.state, sessionID)
	t.mu.Unlock()
}
