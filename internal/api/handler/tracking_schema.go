package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type coordinatesRequest struct {
	Lat float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

type startTrackingRequest struct {
	OrderID     string             `json:"order_id"    validate:"required"`
	CourierID   string             `json:"courier_id"`
	Destination coordinatesRequest `json:"destination" validate:"required"`
}

type locationUpdateRequest struct {
	Lat        float64  `json:"lat"         validate:"required,gte=-90,lte=90"`
	Lng        float64  `json:"lng"         validate:"required,gte=-180,lte=180"`
	AccuracyM  float64  `json:"accuracy_m"  validate:"gte=0"`
	SpeedKmh   *float64 `json:"speed_kmh,omitempty"   validate:"omitempty,gte=0"`
	BearingDeg *float64 `json:"bearing_deg,omitempty" validate:"omitempty,gte=0,lte=360"`
	AltitudeM  *float64 `json:"altitude_m,omitempty"`
	Source     string   `json:"source,omitempty" validate:"omitempty,oneof=gps manual network estimated"`
	RecordedAt string   `json:"recorded_at,omitempty"`
}

type batchLocationRequest struct {
	Fixes []locationUpdateRequest `json:"fixes" validate:"required,min=1,max=200,dive"`
}

type statusUpdateRequest struct {
	Status  string `json:"status" validate:"required,oneof=order_placed confirmed preparing ready_for_pickup picked_up on_the_way arrived delivered cancelled"`
	Message string `json:"message,omitempty"`
}

// --- Response types ---

type trackingLinks struct {
	Self  string `json:"self"`
	Trail string `json:"trail"`
}

type startTrackingResponse struct {
	SessionID      string        `json:"session_id"`
	OrderID        string        `json:"order_id"`
	Status         string        `json:"status"`
	CreatedAt      string        `json:"created_at"`
	AlreadyExisted bool          `json:"already_existed"`
	Links          trackingLinks `json:"_links"`
}

type locationUpdateResponse struct {
	DistanceRemainingKm float64 `json:"distance_remaining_km"`
	ETAMinutesRemaining int     `json:"eta_minutes_remaining"`
	EstimatedArrivalAt  string  `json:"estimated_arrival_at,omitempty"`
}

type statusUpdateResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	UpdatedAt string `json:"updated_at"`
}

type locationResponse struct {
	Lat        float64  `json:"lat"`
	Lng        float64  `json:"lng"`
	AccuracyM  float64  `json:"accuracy_m"`
	SpeedKmh   *float64 `json:"speed_kmh,omitempty"`
	BearingDeg *float64 `json:"bearing_deg,omitempty"`
	Source     string   `json:"source"`
	RecordedAt string   `json:"recorded_at"`
}

type sessionResponse struct {
	SessionID           string             `json:"session_id"`
	OrderID             string             `json:"order_id"`
	CourierID           string             `json:"courier_id,omitempty"`
	Status              string             `json:"status"`
	StatusMessage       string             `json:"status_message"`
	Active              bool               `json:"active"`
	Location            *locationResponse  `json:"location,omitempty"`
	Destination         coordinatesRequest `json:"destination"`
	DistanceRemainingKm *float64           `json:"distance_remaining_km,omitempty"`
	ETAMinutesRemaining *int               `json:"eta_minutes_remaining,omitempty"`
	EstimatedArrivalAt  string             `json:"estimated_arrival_at,omitempty"`
	ActualArrivalAt     string             `json:"actual_arrival_at,omitempty"`
	CreatedAt           string             `json:"created_at"`
	LastUpdatedAt       string             `json:"last_updated_at"`
}

type trailEntryResponse struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Source     string  `json:"source"`
	RecordedAt string  `json:"recorded_at"`
}

type trailResponse struct {
	SessionID string               `json:"session_id"`
	Count     int                  `json:"count"`
	Trail     []trailEntryResponse `json:"trail"`
}

type statusOption struct {
	Status      string `json:"status"`
	DisplayName string `json:"display_name"`
}

type transitionsResponse struct {
	CurrentStatus string         `json:"current_status"`
	Available     []statusOption `json:"available"`
}

type sessionListResponse struct {
	Count    int               `json:"count"`
	Sessions []sessionResponse `json:"sessions"`
}

type statisticsResponse struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

type acceptedResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

type stoppedResponse struct {
	SessionID string `json:"session_id"`
	Stopped   bool   `json:"stopped"`
}

const timeFormat = time.RFC3339
