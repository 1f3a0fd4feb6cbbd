// Package memory implements the authoritative tracking store as a concurrent
// map of independently lockable session slots with a secondary order index.
// Lookups are index hits, never scans, and contention is bounded to a single
// session: two updates to the same session serialize on the slot mutex while
// updates to different sessions run fully in parallel.
package memory

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/ports"
)

// Store implements ports.TrackingStore.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*slot
	byOrder  map[string]string // orderID → sessionID of the active session

	estimator ports.Estimator
}

type slot struct {
	mu      sync.Mutex
	session *domain.TrackingSession
	trail   []domain.LocationRecord
	// finalFlush permits one last location update after a terminal status
	// so the courier app can flush its final fix. Explicit stop clears it.
	finalFlush bool
}

// NewStore creates a Store that recomputes distance/ETA with the given
// estimator on every accepted location update.
func NewStore(estimator ports.Estimator) *Store {
	return &Store{
		sessions:  make(map[string]*slot),
		byOrder:   make(map[string]string),
		estimator: estimator,
	}
}

// Create starts tracking for an order. A second call while the order's
// session is still active returns that session unchanged, so duplicate
// "start tracking" calls are harmless.
func (s *Store) Create(_ context.Context, orderID, courierID string, destination domain.Coordinates) (*domain.TrackingSession, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID, ok := s.byOrder[orderID]; ok {
		if sl := s.sessions[sessionID]; sl != nil {
			sl.mu.Lock()
			existing := sl.session.Clone()
			sl.mu.Unlock()
			if existing.Active {
				return existing, false, nil
			}
		}
	}

	now := time.Now().UTC()
	session := &domain.TrackingSession{
		ID:            newSessionID(),
		OrderID:       orderID,
		CourierID:     courierID,
		Status:        domain.StatusOrderPlaced,
		StatusMessage: domain.StatusOrderPlaced.Description(),
		Destination:   destination,
		Active:        true,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	s.sessions[session.ID] = &slot{session: session}
	s.byOrder[orderID] = session.ID
	return session.Clone(), true, nil
}

func (s *Store) Get(_ context.Context, sessionID string) (*domain.TrackingSession, error) {
	sl, err := s.slot(sessionID)
	if err != nil {
		return nil, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.session.Clone(), nil
}

func (s *Store) GetByOrder(_ context.Context, orderID string) (*domain.TrackingSession, error) {
	s.mu.RLock()
	sessionID, ok := s.byOrder[orderID]
	sl := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok || sl == nil {
		return nil, domain.ErrSessionNotFound
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.session.Clone(), nil
}

// ApplyLocation appends the fix to the trail and recomputes remaining
// distance and ETA from the new position. The stale cached values are never
// reused.
func (s *Store) ApplyLocation(_ context.Context, sessionID string, loc domain.Location) (*domain.TrackingSession, error) {
	sl, err := s.slot(sessionID)
	if err != nil {
		return nil, err
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	session := sl.session
	if !session.Active {
		if !sl.finalFlush {
			return nil, domain.ErrSessionInactive
		}
		sl.finalFlush = false
	}

	now := time.Now().UTC()
	if loc.RecordedAt.IsZero() {
		loc.RecordedAt = now
	}

	est, err := s.estimator.Estimate(loc, session.Destination)
	if err != nil {
		return nil, err
	}

	sl.trail = append(sl.trail, domain.LocationRecord{
		SessionID:  sessionID,
		OrderID:    session.OrderID,
		Lat:        loc.Lat,
		Lng:        loc.Lng,
		AccuracyM:  loc.AccuracyM,
		SpeedKmh:   loc.SpeedKmh,
		BearingDeg: loc.BearingDeg,
		AltitudeM:  loc.AltitudeM,
		Source:     loc.Source,
		RecordedAt: loc.RecordedAt,
	})

	session.Location = &loc
	session.DistanceRemainingKm = &est.DistanceKm
	eta := est.ETAMinutes
	session.ETAMinutesRemaining = &eta
	arrival := now.Add(time.Duration(eta) * time.Minute)
	session.EstimatedArrivalAt = &arrival
	session.LastUpdatedAt = now

	return session.Clone(), nil
}

// ApplyStatus validates the transition before touching the session: an
// illegal edge returns a TransitionError and leaves the state unchanged.
func (s *Store) ApplyStatus(_ context.Context, sessionID string, status domain.TrackingStatus, message string) (*domain.TrackingSession, error) {
	sl, err := s.slot(sessionID)
	if err != nil {
		return nil, err
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	session := sl.session
	if !session.Active {
		return nil, domain.ErrSessionInactive
	}
	if !session.Status.CanTransitionTo(status) {
		return nil, domain.NewTransitionError(session.Status, status)
	}

	now := time.Now().UTC()
	session.Status = status
	if message == "" {
		message = status.Description()
	}
	session.StatusMessage = message
	session.LastUpdatedAt = now

	if status == domain.StatusArrived {
		session.ActualArrivalAt = &now
	}
	if status.IsTerminal() {
		session.Active = false
		sl.finalFlush = true
	}

	return session.Clone(), nil
}

// Deactivate stops the session explicitly. The session stays in the store;
// retention is an external concern.
func (s *Store) Deactivate(_ context.Context, sessionID string) (bool, error) {
	sl, err := s.slot(sessionID)
	if err != nil {
		return false, nil
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	sl.session.Active = false
	sl.finalFlush = false
	sl.session.LastUpdatedAt = time.Now().UTC()
	return true, nil
}

// Trail returns up to limit records, most recent first.
func (s *Store) Trail(_ context.Context, sessionID string, limit int) ([]domain.LocationRecord, error) {
	sl, err := s.slot(sessionID)
	if err != nil {
		return nil, err
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()

	n := len(sl.trail)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.LocationRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, sl.trail[i])
	}
	return out, nil
}

func (s *Store) ActiveSessions(_ context.Context) ([]*domain.TrackingSession, error) {
	return s.collect(func(session *domain.TrackingSession) bool {
		return session.Active
	}), nil
}

func (s *Store) SessionsByCourier(_ context.Context, courierID string) ([]*domain.TrackingSession, error) {
	return s.collect(func(session *domain.TrackingSession) bool {
		return session.CourierID == courierID
	}), nil
}

func (s *Store) Statistics(_ context.Context) (domain.Statistics, error) {
	var stats domain.Statistics
	for _, session := range s.collect(func(*domain.TrackingSession) bool { return true }) {
		stats.Total++
		switch {
		case session.Active:
			stats.Active++
		case session.Status == domain.StatusDelivered:
			stats.Completed++
		case session.Status == domain.StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

func (s *Store) collect(match func(*domain.TrackingSession) bool) []*domain.TrackingSession {
	s.mu.RLock()
	slots := make([]*slot, 0, len(s.sessions))
	for _, sl := range s.sessions {
		slots = append(slots, sl)
	}
	s.mu.RUnlock()

	out := make([]*domain.TrackingSession, 0, len(slots))
	for _, sl := range slots {
		sl.mu.Lock()
		if match(sl.session) {
			out = append(out, sl.session.Clone())
		}
		sl.mu.Unlock()
	}
	return out
}

func (s *Store) slot(sessionID string) (*slot, error) {
	s.mu.RLock()
	sl, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sl, nil
}

// newSessionID returns an identifier in the format TRK-XXXXXXXXXXXX.
func newSessionID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("TRK-%012X", time.Now().UnixNano()&0xFFFFFFFFFFFF)
	}
	return fmt.Sprintf("TRK-%X", b)
}
