package domain

import "time"

// LocationSource indicates how a location fix was obtained.
type LocationSource string

const (
	SourceGPS       LocationSource = "gps"
	SourceManual    LocationSource = "manual"
	SourceNetwork   LocationSource = "network"
	SourceEstimated LocationSource = "estimated"
)

// AccuracyRank orders sources from most (1) to least (4) accurate.
func (s LocationSource) AccuracyRank() int {
	switch s {
	case SourceGPS:
		return 1
	case SourceNetwork:
		return 2
	case SourceManual:
		return 3
	case SourceEstimated:
		return 4
	default:
		return 5
	}
}

// IsValid reports whether s is a known location source.
func (s LocationSource) IsValid() bool {
	switch s {
	case SourceGPS, SourceManual, SourceNetwork, SourceEstimated:
		return true
	}
	return false
}

// Coordinates represents a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Location is a courier position fix attached to a tracking session.
type Location struct {
	Lat        float64        `json:"lat" bson:"lat"`
	Lng        float64        `json:"lng" bson:"lng"`
	AccuracyM  float64        `json:"accuracy_m,omitempty" bson:"accuracy_m,omitempty"`
	SpeedKmh   *float64       `json:"speed_kmh,omitempty" bson:"speed_kmh,omitempty"`
	BearingDeg *float64       `json:"bearing_deg,omitempty" bson:"bearing_deg,omitempty"`
	AltitudeM  *float64       `json:"altitude_m,omitempty" bson:"altitude_m,omitempty"`
	Source     LocationSource `json:"source" bson:"source"`
	RecordedAt time.Time      `json:"recorded_at" bson:"recorded_at"`
}

// Coordinates returns the point of the fix.
func (l Location) Coordinates() Coordinates {
	return Coordinates{Lat: l.Lat, Lng: l.Lng}
}

// TrackingSession is the authoritative record for one order under active
// delivery. All mutation goes through the tracking store, which serializes
// writers per session.
type TrackingSession struct {
	ID                  string         `json:"id" bson:"_id,omitempty"`
	OrderID             string         `json:"order_id" bson:"order_id"`
	CourierID           string         `json:"courier_id,omitempty" bson:"courier_id,omitempty"`
	Status              TrackingStatus `json:"status" bson:"status"`
	StatusMessage       string         `json:"status_message,omitempty" bson:"status_message,omitempty"`
	Location            *Location      `json:"location,omitempty" bson:"location,omitempty"`
	Destination         Coordinates    `json:"destination" bson:"destination"`
	DistanceRemainingKm *float64       `json:"distance_remaining_km,omitempty" bson:"distance_remaining_km,omitempty"`
	ETAMinutesRemaining *int           `json:"eta_minutes_remaining,omitempty" bson:"eta_minutes_remaining,omitempty"`
	EstimatedArrivalAt  *time.Time     `json:"estimated_arrival_at,omitempty" bson:"estimated_arrival_at,omitempty"`
	ActualArrivalAt     *time.Time     `json:"actual_arrival_at,omitempty" bson:"actual_arrival_at,omitempty"`
	Active              bool           `json:"active" bson:"active"`
	CreatedAt           time.Time      `json:"created_at" bson:"created_at"`
	LastUpdatedAt       time.Time      `json:"last_updated_at" bson:"last_updated_at"`
}

// Clone returns a deep copy of the session, safe to hand to subscribers
// while the original keeps mutating under its lock.
func (s *TrackingSession) Clone() *TrackingSession {
	cp := *s
	if s.Location != nil {
		loc := *s.Location
		cp.Location = &loc
	}
	cp.DistanceRemainingKm = cloneFloat(s.DistanceRemainingKm)
	cp.ETAMinutesRemaining = cloneInt(s.ETAMinutesRemaining)
	cp.EstimatedArrivalAt = cloneTime(s.EstimatedArrivalAt)
	cp.ActualArrivalAt = cloneTime(s.ActualArrivalAt)
	return &cp
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}

// LocationRecord is one entry in a session's append-only location trail,
// ordered by RecordedAt. Records are never mutated after insertion.
type LocationRecord struct {
	SessionID  string         `json:"session_id" bson:"session_id"`
	OrderID    string         `json:"order_id" bson:"order_id"`
	Lat        float64        `json:"lat" bson:"lat"`
	Lng        float64        `json:"lng" bson:"lng"`
	AccuracyM  float64        `json:"accuracy_m,omitempty" bson:"accuracy_m,omitempty"`
	SpeedKmh   *float64       `json:"speed_kmh,omitempty" bson:"speed_kmh,omitempty"`
	BearingDeg *float64       `json:"bearing_deg,omitempty" bson:"bearing_deg,omitempty"`
	AltitudeM  *float64       `json:"altitude_m,omitempty" bson:"altitude_m,omitempty"`
	Source     LocationSource `json:"source" bson:"source"`
	RecordedAt time.Time      `json:"recorded_at" bson:"recorded_at"`
}

// Statistics is an aggregate view over all sessions in the store, served to
// the admin dashboard.
type Statistics struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}
