package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/ports"
	"github.com/osmanaliaydemir/getir-tracking/internal/store/memory"
)

// ---------------------------------------------------------------------------
// stubs
// ---------------------------------------------------------------------------

type stubRegistry struct {
	mu     sync.Mutex
	events map[domain.Topic][]domain.Event
	joined []domain.Topic
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{events: make(map[domain.Topic][]domain.Event)}
}

func (r *stubRegistry) Join(_ ports.Subscriber, topic domain.Topic) {
	r.mu.Lock()
	r.joined = append(r.joined, topic)
	r.mu.Unlock()
}

func (r *stubRegistry) Leave(string, domain.Topic) {}
func (r *stubRegistry) LeaveAll(string)            {}

func (r *stubRegistry) MembersOf(domain.Topic) []ports.Subscriber { return nil }

func (r *stubRegistry) Broadcast(topic domain.Topic, event domain.Event) int {
	r.mu.Lock()
	r.events[topic] = append(r.events[topic], event)
	r.mu.Unlock()
	return 1
}

func (r *stubRegistry) on(topic domain.Topic) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events[topic]...)
}

func (r *stubRegistry) reset() {
	r.mu.Lock()
	r.events = make(map[domain.Topic][]domain.Event)
	r.mu.Unlock()
}

type stubDispatcher struct {
	mu   sync.Mutex
	sent []domain.NotificationEvent
	err  error
}

func (d *stubDispatcher) Dispatch(_ context.Context, n domain.NotificationEvent) error {
	d.mu.Lock()
	d.sent = append(d.sent, n)
	d.mu.Unlock()
	return d.err
}

func (d *stubDispatcher) byKind(kind domain.NotificationKind) []domain.NotificationEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []domain.NotificationEvent
	for _, n := range d.sent {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

type stubOwnership struct {
	owner ports.Ownership
	err   error
}

func (o *stubOwnership) Lookup(context.Context, string) (ports.Ownership, error) {
	return o.owner, o.err
}

type stubArchive struct {
	mu        sync.Mutex
	locations []domain.LocationRecord
	statuses  []domain.TrackingStatus
	err       error
}

func (a *stubArchive) AppendLocation(_ context.Context, r domain.LocationRecord) error {
	a.mu.Lock()
	a.locations = append(a.locations, r)
	a.mu.Unlock()
	return a.err
}

func (a *stubArchive) AppendStatusChange(_ context.Context, _ string, status domain.TrackingStatus, _ string, _ time.Time) error {
	a.mu.Lock()
	a.statuses = append(a.statuses, status)
	a.mu.Unlock()
	return a.err
}

type stubDedup struct {
	mu     sync.Mutex
	dup    bool
	marked int
}

func (d *stubDedup) IsDuplicate(context.Context, string, string, time.Time) (bool, error) {
	return d.dup, nil
}

func (d *stubDedup) Mark(context.Context, string, string, time.Time) error {
	d.mu.Lock()
	d.marked++
	d.mu.Unlock()
	return nil
}

type stubSub struct {
	id string

	mu       sync.Mutex
	received []domain.Event
}

func (s *stubSub) ID() string { return s.id }

func (s *stubSub) Send(event domain.Event) error {
	s.mu.Lock()
	s.received = append(s.received, event)
	s.mu.Unlock()
	return nil
}

// ---------------------------------------------------------------------------
// fixture
// ---------------------------------------------------------------------------

type fixture struct {
	svc        ports.TrackingService
	registry   *stubRegistry
	dispatcher *stubDispatcher
	ownership  *stubOwnership
	archive    *stubArchive
	dedup      *stubDedup
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	estimator := NewETAEngine(EstimatorConfig{})
	f := &fixture{
		registry:   newStubRegistry(),
		dispatcher: &stubDispatcher{},
		ownership:  &stubOwnership{owner: ports.Ownership{CustomerID: "user-7", CourierID: "courier-42"}},
		archive:    &stubArchive{},
		dedup:      &stubDedup{},
	}
	f.svc = NewTrackingService(Deps{
		Store:      memory.NewStore(estimator),
		Registry:   f.registry,
		Estimator:  estimator,
		Triggers:   NewTriggers(TriggerConfig{}),
		Dispatcher: f.dispatcher,
		Ownership:  f.ownership,
		Archive:    f.archive,
		Dedup:      f.dedup,
		Log:        zerolog.Nop(),
	})
	return f
}

func (f *fixture) start(t *testing.T, orderID string) string {
	t.Helper()
	res, err := f.svc.StartTracking(context.Background(), ports.StartTrackingInput{
		OrderID:     orderID,
		CourierID:   "courier-42",
		Destination: ports.CoordinatesInput{Lat: 41.0082, Lng: 28.9784},
	})
	if err != nil {
		t.Fatalf("StartTracking: %v", err)
	}
	return res.SessionID
}

// ---------------------------------------------------------------------------
// tests
// ---------------------------------------------------------------------------

func TestNewTrackingService_PanicsWithoutRequiredDeps(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on missing store")
		}
	}()
	NewTrackingService(Deps{
		Registry:  newStubRegistry(),
		Estimator: NewETAEngine(EstimatorConfig{}),
		Triggers:  NewTriggers(TriggerConfig{}),
	})
}

func TestStartTracking_CreatesThenReusesActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.StartTracking(ctx, ports.StartTrackingInput{
		OrderID:     "ORD-1",
		Destination: ports.CoordinatesInput{Lat: 41.0082, Lng: 28.9784},
	})
	if err != nil {
		t.Fatalf("StartTracking: %v", err)
	}
	if first.AlreadyExisted {
		t.Error("first start should create the session")
	}
	if first.Status != domain.StatusOrderPlaced {
		t.Errorf("new session status = %s, want order_placed", first.Status)
	}

	second, err := f.svc.StartTracking(ctx, ports.StartTrackingInput{
		OrderID:     "ORD-1",
		Destination: ports.CoordinatesInput{Lat: 41.0082, Lng: 28.9784},
	})
	if err != nil {
		t.Fatalf("second StartTracking: %v", err)
	}
	if !second.AlreadyExisted || second.SessionID != first.SessionID {
		t.Errorf("second start should return the existing session %s, got %s", first.SessionID, second.SessionID)
	}
}

func TestStartTracking_RejectsBadDestinations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.StartTracking(ctx, ports.StartTrackingInput{
		OrderID:     "ORD-2",
		Destination: ports.CoordinatesInput{Lat: 95, Lng: 29},
	})
	if !errors.Is(err, domain.ErrInvalidCoordinates) {
		t.Errorf("lat 95: got %v, want ErrInvalidCoordinates", err)
	}

	// Valid globe coordinates, but outside the operating bounds.
	_, err = f.svc.StartTracking(ctx, ports.StartTrackingInput{
		OrderID:     "ORD-3",
		Destination: ports.CoordinatesInput{Lat: 48.8566, Lng: 2.3522},
	})
	if !errors.Is(err, domain.ErrOutsideServiceArea) {
		t.Errorf("Paris: got %v, want ErrOutsideServiceArea", err)
	}
}

func TestUpdateLocation_FansOutToEveryInterestedTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "ORD-10")

	res, err := f.svc.UpdateLocation(ctx, ports.LocationUpdateInput{
		SessionID: id,
		Lat:       41.06, Lng: 29.0,
		Source: domain.SourceGPS,
	})
	if err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}
	if res.DistanceRemainingKm <= 0 || res.ETAMinutesRemaining <= 0 {
		t.Fatalf("expected distance and ETA, got %+v", res)
	}
	if res.EstimatedArrivalAt.IsZero() {
		t.Error("EstimatedArrivalAt should be set")
	}

	for _, topic := range []domain.Topic{
		domain.OrderTopic("ORD-10"),
		domain.AdminTopic,
		domain.CourierTopic("courier-42"),
		domain.UserTopic("user-7"),
	} {
		events := f.registry.on(topic)
		if len(events) != 1 {
			t.Fatalf("topic %s received %d events, want 1", topic, len(events))
		}
		e := events[0]
		if e.Kind != domain.EventLocationChanged {
			t.Errorf("topic %s: kind = %s", topic, e.Kind)
		}
		if e.Snapshot == nil || e.Snapshot.Location == nil {
			t.Errorf("topic %s: event should carry the full snapshot", topic)
		}
	}

	if len(f.archive.locations) != 1 {
		t.Fatalf("archived %d records, want 1", len(f.archive.locations))
	}
	if f.archive.locations[0].OrderID != "ORD-10" {
		t.Errorf("archived record order = %s", f.archive.locations[0].OrderID)
	}
	if f.dedup.marked != 1 {
		t.Errorf("dedup marked %d times, want 1", f.dedup.marked)
	}
}

func TestUpdateLocation_DuplicateIsAcknowledgedNotReapplied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "ORD-11")

	if _, err := f.svc.UpdateLocation(ctx, ports.LocationUpdateInput{
		SessionID: id, Lat: 41.06, Lng: 29.0, Source: domain.SourceGPS,
	}); err != nil {
		t.Fatalf("first fix: %v", err)
	}
	want, _ := f.svc.Snapshot(ctx, "ORD-11")
	f.registry.reset()

	f.dedup.dup = true
	res, err := f.svc.UpdateLocation(ctx, ports.LocationUpdateInput{
		SessionID: id, Lat: 41.06, Lng: 29.0, Source: domain.SourceGPS,
	})
	if err != nil {
		t.Fatalf("duplicate fix: %v", err)
	}

	// The caller still gets the current estimate.
	if res.DistanceRemainingKm != *want.DistanceRemainingKm {
		t.Errorf("duplicate response distance = %v, want %v", res.DistanceRemainingKm, *want.DistanceRemainingKm)
	}
	// But nothing is rebroadcast or re-marked.
	if got := f.registry.on(domain.OrderTopic("ORD-11")); len(got) != 0 {
		t.Errorf("duplicate fix broadcast %d events", len(got))
	}
	if f.dedup.marked != 1 {
		t.Errorf("dedup marked %d times, want 1", f.dedup.marked)
	}
}

func TestUpdateLocation_NearDestinationBroadcastAndNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "ORD-12")

	// ~30 m from the destination.
	if _, err := f.svc.UpdateLocation(ctx, ports.LocationUpdateInput{
		SessionID: id, Lat: 41.00847, Lng: 28.9784, Source: domain.SourceGPS,
	}); err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}

	var near bool
	for _, e := range f.registry.on(domain.OrderTopic("ORD-12")) {
		if e.Kind == domain.EventNearDestination {
			near = true
		}
	}
	if !near {
		t.Error("expected a near_destination event on the order topic")
	}

	alerts := f.dispatcher.byKind(domain.NotifyNearDestination)
	if len(alerts) != 1 {
		t.Fatalf("dispatched %d near alerts, want 1", len(alerts))
	}
	if !alerts[0].Kind.Urgent() {
		t.Error("near-destination alert should be urgent")
	}
}

func TestUpdateLocation_OwnershipFailureStillBroadcasts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "ORD-13")

	f.ownership.err = errors.New("redis: connection refused")

	if _, err := f.svc.UpdateLocation(ctx, ports.LocationUpdateInput{
		SessionID: id, Lat: 41.06, Lng: 29.0, Source: domain.SourceGPS,
	}); err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}

	if got := f.registry.on(domain.OrderTopic("ORD-13")); len(got) != 1 {
		t.Errorf("order topic got %d events, want 1", len(got))
	}
	if got := f.registry.on(domain.AdminTopic); len(got) != 1 {
		t.Errorf("admin topic got %d events, want 1", len(got))
	}
	if got := f.registry.on(domain.UserTopic("user-7")); len(got) != 0 {
		t.Errorf("user topic got %d events, want 0 when ownership is down", len(got))
	}
}

func TestUpdateLocation_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "ORD-14")

	if _, err := f.svc.UpdateLocation(ctx, ports.LocationUpdateInput{
		SessionID: id, Lat: 0, Lng: 200,
	}); !errors.Is(err, domain.ErrInvalidCoordinates) {
		t.Errorf("lng 200: got %v", err)
	}
	if _, err := f.svc.UpdateLocation(ctx, ports.LocationUpdateInput{
		SessionID: id, Lat: 48.8566, Lng: 2.3522,
	}); !errors.Is(err, domain.ErrOutsideServiceArea) {
		t.Errorf("outside bounds: got %v", err)
	}
	if _, err := f.svc.UpdateLocation(ctx, ports.LocationUpdateInput{
		SessionID: id, Lat: 41.06, Lng: 29.0, Source: "carrier_pigeon",
	}); err == nil {
		t.Error("unknown source should be rejected")
	}
	if _, err := f.svc.UpdateLocation(ctx, ports.LocationUpdateInput{
		SessionID: "TRK-DEADBEEF0000", Lat: 41.06, Lng: 29.0,
	}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("unknown session: got %v", err)
	}
}

func TestUpdateStatus_BroadcastsAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "ORD-20")
	f.registry.reset()

	res, err := f.svc.UpdateStatus(ctx, ports.StatusUpdateInput{
		SessionID: id,
		Status:    domain.StatusConfirmed,
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if !res.Accepted || res.Status != domain.StatusConfirmed {
		t.Fatalf("unexpected result %+v", res)
	}

	events := f.registry.on(domain.OrderTopic("ORD-20"))
	if len(events) != 1 || events[0].Kind != domain.EventStatusChanged {
		t.Fatalf("order topic events = %v", events)
	}
	if events[0].StatusMessage == "" {
		t.Error("status event should carry the default message")
	}

	if got := f.dispatcher.byKind(domain.NotifyStatusChanged); len(got) != 1 {
		t.Errorf("dispatched %d status notifications, want 1", len(got))
	}
	if len(f.archive.statuses) != 1 || f.archive.statuses[0] != domain.StatusConfirmed {
		t.Errorf("archived statuses = %v", f.archive.statuses)
	}
}

func TestUpdateStatus_DeliveredEmitsCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "ORD-21")

	chain := []domain.TrackingStatus{
		domain.StatusConfirmed, domain.StatusPreparing, domain.StatusReadyForPickup,
		domain.StatusPickedUp, domain.StatusOnTheWay, domain.StatusArrived,
		domain.StatusDelivered,
	}
	for _, next := range chain {
		if _, err := f.svc.UpdateStatus(ctx, ports.StatusUpdateInput{SessionID: id, Status: next}); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}

	var kinds []domain.EventKind
	for _, e := range f.registry.on(domain.OrderTopic("ORD-21")) {
		kinds = append(kinds, e.Kind)
	}
	var completed bool
	for _, k := range kinds {
		if k == domain.EventCompleted {
			completed = true
		}
	}
	if !completed {
		t.Errorf("no completed event in %v", kinds)
	}

	if got := f.dispatcher.byKind(domain.NotifyCompleted); len(got) != 1 {
		t.Errorf("dispatched %d completed notifications, want 1", len(got))
	}
}

func TestUpdateStatus_CancelledCarriesReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "ORD-22")
	f.registry.reset()

	if _, err := f.svc.UpdateStatus(ctx, ports.StatusUpdateInput{
		SessionID: id,
		Status:    domain.StatusCancelled,
		Message:   "customer cancelled the order",
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	var cancelled *domain.Event
	for _, e := range f.registry.on(domain.OrderTopic("ORD-22")) {
		if e.Kind == domain.EventCancelled {
			ev := e
			cancelled = &ev
		}
	}
	if cancelled == nil {
		t.Fatal("expected a cancelled event")
	}
	if cancelled.Reason != "customer cancelled the order" {
		t.Errorf("reason = %q", cancelled.Reason)
	}
}

func TestUpdateStatus_IllegalTransitionBroadcastsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "ORD-23")
	f.registry.reset()

	_, err := f.svc.UpdateStatus(ctx, ports.StatusUpdateInput{
		SessionID: id,
		Status:    domain.StatusPickedUp, // order_placed -> picked_up skips the kitchen
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("got %v, want ErrInvalidTransition", err)
	}
	var te *domain.TransitionError
	if !errors.As(err, &te) {
		t.Fatal("error should unwrap to *TransitionError")
	}
	if te.From != domain.StatusOrderPlaced || te.Attempted != domain.StatusPickedUp {
		t.Errorf("transition error = %+v", te)
	}

	if got := f.registry.on(domain.OrderTopic("ORD-23")); len(got) != 0 {
		t.Errorf("rejected transition broadcast %d events", len(got))
	}
	if len(f.dispatcher.sent) != 0 {
		t.Errorf("rejected transition dispatched %d notifications", len(f.dispatcher.sent))
	}
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, "ORD-24")

	_, err := f.svc.UpdateStatus(context.Background(), ports.StatusUpdateInput{
		SessionID: id,
		Status:    "teleported",
	})
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Errorf("got %v, want ErrInvalidStatus", err)
	}
}

func TestStopTracking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "ORD-30")

	existed, err := f.svc.StopTracking(ctx, id)
	if err != nil || !existed {
		t.Fatalf("StopTracking = (%v, %v), want (true, nil)", existed, err)
	}

	existed, err = f.svc.StopTracking(ctx, "TRK-DEADBEEF0000")
	if err != nil || existed {
		t.Fatalf("unknown session StopTracking = (%v, %v), want (false, nil)", existed, err)
	}

	if _, err := f.svc.UpdateLocation(ctx, ports.LocationUpdateInput{
		SessionID: id, Lat: 41.06, Lng: 29.0,
	}); !errors.Is(err, domain.ErrSessionInactive) {
		t.Errorf("update after stop: got %v, want ErrSessionInactive", err)
	}
}

func TestSubscribe_PushesSnapshotOnJoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.start(t, "ORD-40")
	if _, err := f.svc.UpdateLocation(ctx, ports.LocationUpdateInput{
		SessionID: id, Lat: 41.06, Lng: 29.0,
	}); err != nil {
		t.Fatalf("UpdateLocation: %v", err)
	}

	sub := &stubSub{id: "conn-1"}
	if err := f.svc.Subscribe(ctx, sub, domain.OrderTopic("ORD-40")); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if len(sub.received) != 1 {
		t.Fatalf("received %d snapshot events, want 1", len(sub.received))
	}
	snap := sub.received[0]
	if snap.OrderID != "ORD-40" || snap.Snapshot == nil || snap.Snapshot.Location == nil {
		t.Errorf("snapshot event incomplete: %+v", snap)
	}
	if len(f.registry.joined) != 1 || f.registry.joined[0] != domain.OrderTopic("ORD-40") {
		t.Errorf("joined topics = %v", f.registry.joined)
	}
}

func TestSubscribe_AdminTopicReceivesAllActiveSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.start(t, "ORD-41")
	f.start(t, "ORD-42")

	sub := &stubSub{id: "conn-admin"}
	if err := f.svc.Subscribe(ctx, sub, domain.AdminTopic); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if len(sub.received) != 2 {
		t.Errorf("admin received %d snapshots, want 2", len(sub.received))
	}
}

func TestSubscribe_UnknownOrderJoinsWithoutSnapshot(t *testing.T) {
	f := newFixture(t)

	sub := &stubSub{id: "conn-2"}
	if err := f.svc.Subscribe(context.Background(), sub, domain.OrderTopic("ORD-MISSING")); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if len(sub.received) != 0 {
		t.Errorf("received %d snapshots for an untracked order, want 0", len(sub.received))
	}
}

func TestAvailableTransitions(t *testing.T) {
	f := newFixture(t)
	id := f.start(t, "ORD-50")

	got, err := f.svc.AvailableTransitions(context.Background(), id)
	if err != nil {
		t.Fatalf("AvailableTransitions: %v", err)
	}
	want := map[domain.TrackingStatus]bool{domain.StatusConfirmed: true, domain.StatusCancelled: true}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v", got)
	}
	for _, s := range got {
		if !want[s] {
			t.Errorf("unexpected transition %s", s)
		}
	}
}
