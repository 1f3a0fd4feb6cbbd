package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/geo"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/ports"
)

// DedupChecker abstracts the idempotency store (Redis). A duplicate location
// fix is acknowledged but applied and broadcast only once.
type DedupChecker interface {
	IsDuplicate(ctx context.Context, sessionID, fingerprint string, ts time.Time) (bool, error)
	Mark(ctx context.Context, sessionID, fingerprint string, ts time.Time) error
}

// Deps bundles the collaborators of the tracking hub. Store, Registry,
// Estimator and Triggers are required; the rest may be nil and the matching
// feature is skipped.
type Deps struct {
	Store      ports.TrackingStore
	Registry   ports.SubscriptionRegistry
	Estimator  ports.Estimator
	Triggers   *Triggers
	Dispatcher ports.NotificationDispatcher
	Ownership  ports.OrderOwnership
	Archive    ports.TrailArchive
	Dedup      DedupChecker
	Log        zerolog.Logger
}

type trackingService struct {
	store      ports.TrackingStore
	registry   ports.SubscriptionRegistry
	estimator  ports.Estimator
	triggers   *Triggers
	dispatcher ports.NotificationDispatcher
	ownership  ports.OrderOwnership
	archive    ports.TrailArchive
	dedup      DedupChecker
	locks      *sessionLocks
	log        zerolog.Logger
}

// NewTrackingService returns the TrackingService implementation. It panics
// when a required collaborator is missing, since that is a wiring bug.
func NewTrackingService(d Deps) ports.TrackingService {
	if d.Store == nil || d.Registry == nil || d.Estimator == nil || d.Triggers == nil {
		panic("tracking service: missing required dependency")
	}
	return &trackingService{
		store:      d.Store,
		registry:   d.Registry,
		estimator:  d.Estimator,
		triggers:   d.Triggers,
		dispatcher: d.Dispatcher,
		ownership:  d.Ownership,
		archive:    d.Archive,
		dedup:      d.Dedup,
		locks:      newSessionLocks(),
		log:        d.Log,
	}
}

func (s *trackingService) StartTracking(ctx context.Context, in ports.StartTrackingInput) (*ports.StartTrackingResult, error) {
	if in.OrderID == "" {
		return nil, fmt.Errorf("start tracking: order id is required")
	}
	if !geo.ValidCoordinates(in.Destination.Lat, in.Destination.Lng) {
		return nil, fmt.Errorf("start tracking: destination: %w", domain.ErrInvalidCoordinates)
	}
	if !s.estimator.WithinServiceArea(in.Destination.Lat, in.Destination.Lng) {
		return nil, fmt.Errorf("start tracking: destination: %w", domain.ErrOutsideServiceArea)
	}

	session, created, err := s.store.Create(ctx, in.OrderID, in.CourierID, domain.Coordinates{
		Lat: in.Destination.Lat,
		Lng: in.Destination.Lng,
	})
	if err != nil {
		return nil, fmt.Errorf("start tracking: %w", err)
	}

	if created {
		s.log.Info().
			Str("session", session.ID).
			Str("order", in.OrderID).
			Str("courier", in.CourierID).
			Msg("tracking started")
	}

	return &ports.StartTrackingResult{
		SessionID:      session.ID,
		Status:         session.Status,
		CreatedAt:      session.CreatedAt,
		AlreadyExisted: !created,
	}, nil
}

func (s *trackingService) UpdateLocation(ctx context.Context, in ports.LocationUpdateInput) (*ports.LocationUpdateResult, error) {
	if !geo.ValidCoordinates(in.Lat, in.Lng) {
		return nil, fmt.Errorf("update location: %w", domain.ErrInvalidCoordinates)
	}
	if !s.estimator.WithinServiceArea(in.Lat, in.Lng) {
		return nil, fmt.Errorf("update location: %w", domain.ErrOutsideServiceArea)
	}
	source := in.Source
	if source == "" {
		source = domain.SourceGPS
	}
	if !source.IsValid() {
		return nil, fmt.Errorf("update location: unknown source %q", in.Source)
	}
	recordedAt := in.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	// Idempotency check before taking the session lock.
	fp := locationFingerprint(in.Lat, in.Lng, source)
	if s.dedup != nil {
		isDup, err := s.dedup.IsDuplicate(ctx, in.SessionID, fp, recordedAt)
		if err != nil {
			s.log.Warn().Err(err).Str("session", in.SessionID).Msg("dedup check failed, processing anyway")
		} else if isDup {
			s.log.Debug().Str("session", in.SessionID).Msg("duplicate location fix skipped")
			return s.currentEstimate(ctx, in.SessionID)
		}
	}

	if err := s.locks.acquire(ctx, in.SessionID); err != nil {
		return nil, fmt.Errorf("update location: %w", err)
	}
	defer s.locks.release(in.SessionID)

	loc := domain.Location{
		Lat:        in.Lat,
		Lng:        in.Lng,
		AccuracyM:  in.AccuracyM,
		SpeedKmh:   in.SpeedKmh,
		BearingDeg: in.BearingDeg,
		AltitudeM:  in.AltitudeM,
		Source:     source,
		RecordedAt: recordedAt,
	}
	session, err := s.store.ApplyLocation(ctx, in.SessionID, loc)
	if err != nil {
		return nil, fmt.Errorf("update location: %w", err)
	}

	if s.dedup != nil {
		if markErr := s.dedup.Mark(ctx, in.SessionID, fp, recordedAt); markErr != nil {
			s.log.Warn().Err(markErr).Str("session", in.SessionID).Msg("failed to set dedup key")
		}
	}

	if in.SpeedKmh != nil {
		if obs, ok := s.estimator.(interface {
			ObserveSpeed(domain.Coordinates, float64)
		}); ok {
			obs.ObserveSpeed(session.Destination, *in.SpeedKmh)
		}
	}

	if s.archive != nil {
		record := domain.LocationRecord{
			SessionID:  session.ID,
			OrderID:    session.OrderID,
			Lat:        loc.Lat,
			Lng:        loc.Lng,
			AccuracyM:  loc.AccuracyM,
			SpeedKmh:   loc.SpeedKmh,
			BearingDeg: loc.BearingDeg,
			AltitudeM:  loc.AltitudeM,
			Source:     loc.Source,
			RecordedAt: recordedAt,
		}
		if err := s.archive.AppendLocation(ctx, record); err != nil {
			s.log.Warn().Err(err).Str("session", session.ID).Msg("failed to archive location record")
		}
	}

	event := domain.Event{
		Kind:                domain.EventLocationChanged,
		SessionID:           session.ID,
		OrderID:             session.OrderID,
		Status:              session.Status,
		Location:            session.Location,
		DistanceRemainingKm: session.DistanceRemainingKm,
		ETAMinutesRemaining: session.ETAMinutesRemaining,
		Snapshot:            session,
		OccurredAt:          recordedAt,
	}
	s.publish(ctx, session, event)

	for _, n := range s.triggers.OnLocation(session) {
		if n.Kind == domain.NotifyNearDestination {
			near := event
			near.Kind = domain.EventNearDestination
			near.OccurredAt = n.OccurredAt
			s.publish(ctx, session, near)
		}
		s.notify(ctx, n)
	}

	result := &ports.LocationUpdateResult{}
	if session.DistanceRemainingKm != nil {
		result.DistanceRemainingKm = *session.DistanceRemainingKm
	}
	if session.ETAMinutesRemaining != nil {
		result.ETAMinutesRemaining = *session.ETAMinutesRemaining
	}
	if session.EstimatedArrivalAt != nil {
		result.EstimatedArrivalAt = *session.EstimatedArrivalAt
	}
	return result, nil
}

func (s *trackingService) UpdateStatus(ctx context.Context, in ports.StatusUpdateInput) (*ports.StatusUpdateResult, error) {
	if !in.Status.IsValid() {
		return nil, fmt.Errorf("update status: %w: %q", domain.ErrInvalidStatus, in.Status)
	}

	if err := s.locks.acquire(ctx, in.SessionID); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	defer s.locks.release(in.SessionID)

	session, err := s.store.ApplyStatus(ctx, in.SessionID, in.Status, in.Message)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	if s.archive != nil {
		if err := s.archive.AppendStatusChange(ctx, session.ID, session.Status, session.StatusMessage, session.LastUpdatedAt); err != nil {
			s.log.Warn().Err(err).Str("session", session.ID).Msg("failed to archive status change")
		}
	}

	event := domain.Event{
		Kind:          domain.EventStatusChanged,
		SessionID:     session.ID,
		OrderID:       session.OrderID,
		Status:        session.Status,
		StatusMessage: session.StatusMessage,
		Location:      session.Location,
		Snapshot:      session,
		OccurredAt:    session.LastUpdatedAt,
	}
	s.publish(ctx, session, event)

	switch session.Status {
	case domain.StatusDelivered:
		done := event
		done.Kind = domain.EventCompleted
		s.publish(ctx, session, done)
	case domain.StatusCancelled:
		cancelled := event
		cancelled.Kind = domain.EventCancelled
		cancelled.Reason = session.StatusMessage
		s.publish(ctx, session, cancelled)
	}

	for _, n := range s.triggers.OnStatus(session) {
		s.notify(ctx, n)
	}

	if session.Status.IsTerminal() {
		s.triggers.Forget(session.ID)
	}

	s.log.Info().
		Str("session", session.ID).
		Str("order", session.OrderID).
		Str("status", string(session.Status)).
		Msg("status updated")

	return &ports.StatusUpdateResult{
		Accepted:  true,
		Status:    session.Status,
		UpdatedAt: session.LastUpdatedAt,
	}, nil
}

func (s *trackingService) StopTracking(ctx context.Context, sessionID string) (bool, error) {
	if err := s.locks.acquire(ctx, sessionID); err != nil {
		return false, fmt.Errorf("stop tracking: %w", err)
	}
	existed, err := s.store.Deactivate(ctx, sessionID)
	s.locks.release(sessionID)
	if err != nil {
		return false, fmt.Errorf("stop tracking: %w", err)
	}
	if existed {
		s.triggers.Forget(sessionID)
		s.locks.forget(sessionID)
		s.log.Info().Str("session", sessionID).Msg("tracking stopped")
	}
	return existed, nil
}

func (s *trackingService) Snapshot(ctx context.Context, orderID string) (*domain.TrackingSession, error) {
	return s.store.GetByOrder(ctx, orderID)
}

func (s *trackingService) Session(ctx context.Context, sessionID string) (*domain.TrackingSession, error) {
	return s.store.Get(ctx, sessionID)
}

func (s *trackingService) Trail(ctx context.Context, sessionID string, limit int) ([]domain.LocationRecord, error) {
	return s.store.Trail(ctx, sessionID, limit)
}

func (s *trackingService) AvailableTransitions(ctx context.Context, sessionID string) ([]domain.TrackingStatus, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Status.AvailableTransitions(), nil
}

func (s *trackingService) ActiveSessions(ctx context.Context) ([]*domain.TrackingSession, error) {
	return s.store.ActiveSessions(ctx)
}

func (s *trackingService) SessionsByCourier(ctx context.Context, courierID string) ([]*domain.TrackingSession, error) {
	return s.store.SessionsByCourier(ctx, courierID)
}

func (s *trackingService) Statistics(ctx context.Context) (domain.Statistics, error) {
	return s.store.Statistics(ctx)
}

// Subscribe joins the topic and pushes the relevant current state to the new
// subscriber so a client reconnecting mid-delivery does not wait for the
// next update to learn where its order is.
func (s *trackingService) Subscribe(ctx context.Context, sub ports.Subscriber, topic domain.Topic) error {
	s.registry.Join(sub, topic)

	switch {
	case topic == domain.AdminTopic:
		sessions, err := s.store.ActiveSessions(ctx)
		if err != nil {
			return nil
		}
		for _, session := range sessions {
			s.pushSnapshot(sub, session)
		}
	case strings.HasPrefix(string(topic), "order:"):
		orderID := strings.TrimPrefix(string(topic), "order:")
		session, err := s.store.GetByOrder(ctx, orderID)
		if err != nil {
			return nil
		}
		s.pushSnapshot(sub, session)
	case strings.HasPrefix(string(topic), "courier:"):
		courierID := strings.TrimPrefix(string(topic), "courier:")
		sessions, err := s.store.SessionsByCourier(ctx, courierID)
		if err != nil {
			return nil
		}
		for _, session := range sessions {
			s.pushSnapshot(sub, session)
		}
	}
	return nil
}

func (s *trackingService) Unsubscribe(connectionID string, topic domain.Topic) {
	s.registry.Leave(connectionID, topic)
}

func (s *trackingService) UnsubscribeAll(connectionID string) {
	s.registry.LeaveAll(connectionID)
}

func (s *trackingService) pushSnapshot(sub ports.Subscriber, session *domain.TrackingSession) {
	err := sub.Send(domain.Event{
		Kind:                domain.EventStatusChanged,
		SessionID:           session.ID,
		OrderID:             session.OrderID,
		Status:              session.Status,
		StatusMessage:       session.StatusMessage,
		Location:            session.Location,
		DistanceRemainingKm: session.DistanceRemainingKm,
		ETAMinutesRemaining: session.ETAMinutesRemaining,
		Snapshot:            session,
		OccurredAt:          session.LastUpdatedAt,
	})
	if err != nil {
		s.log.Debug().Err(err).Str("connection", sub.ID()).Msg("snapshot push failed")
	}
}

// publish fans the event out to every topic interested in the session: the
// order channel, the customer and courier channels resolved via ownership,
// and the admin firehose.
func (s *trackingService) publish(ctx context.Context, session *domain.TrackingSession, event domain.Event) {
	delivered := s.registry.Broadcast(domain.OrderTopic(session.OrderID), event)
	delivered += s.registry.Broadcast(domain.AdminTopic, event)

	if session.CourierID != "" {
		delivered += s.registry.Broadcast(domain.CourierTopic(session.CourierID), event)
	}
	if s.ownership != nil {
		owner, err := s.ownership.Lookup(ctx, session.OrderID)
		if err != nil {
			s.log.Warn().Err(err).Str("order", session.OrderID).Msg("ownership lookup failed, skipping user topic")
		} else if owner.CustomerID != "" {
			delivered += s.registry.Broadcast(domain.UserTopic(owner.CustomerID), event)
		}
	}

	s.log.Debug().
		Str("session", session.ID).
		Str("kind", string(event.Kind)).
		Int("delivered", delivered).
		Msg("event broadcast")
}

// notify hands a notification to the external dispatcher; failures are
// logged and never surfaced to the caller.
func (s *trackingService) notify(ctx context.Context, n domain.NotificationEvent) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, n); err != nil {
		s.log.Warn().
			Err(err).
			Str("session", n.SessionID).
			Str("kind", string(n.Kind)).
			Msg("notification dispatch failed")
	}
}

// currentEstimate serves the response for an acknowledged duplicate without
// touching session state.
func (s *trackingService) currentEstimate(ctx context.Context, sessionID string) (*ports.LocationUpdateResult, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("update location: %w", err)
	}
	result := &ports.LocationUpdateResult{}
	if session.DistanceRemainingKm != nil {
		result.DistanceRemainingKm = *session.DistanceRemainingKm
	}
	if session.ETAMinutesRemaining != nil {
		result.ETAMinutesRemaining = *session.ETAMinutesRemaining
	}
	if session.EstimatedArrivalAt != nil {
		result.EstimatedArrivalAt = *session.EstimatedArrivalAt
	}
	return result, nil
}

// locationFingerprint identifies a fix for deduplication. Coordinates are
// rounded to ~1m so jitter below GPS precision still counts as a duplicate.
func locationFingerprint(lat, lng float64, source domain.LocationSource) string {
	return fmt.Sprintf("%.5f:%.5f:%s", lat, lng, source)
}
