package handler

import (
	"time"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/ports"
)

// --- Request → ports input ---

func toLocationInput(sessionID string, req locationUpdateRequest) ports.LocationUpdateInput {
	in := ports.LocationUpdateInput{
		SessionID:  sessionID,
		Lat:        req.Lat,
		Lng:        req.Lng,
		AccuracyM:  req.AccuracyM,
		SpeedKmh:   req.SpeedKmh,
		BearingDeg: req.BearingDeg,
		AltitudeM:  req.AltitudeM,
		Source:     domain.LocationSource(req.Source),
	}
	if req.RecordedAt != "" {
		if ts, err := time.Parse(timeFormat, req.RecordedAt); err == nil {
			in.RecordedAt = ts
		}
	}
	return in
}

// --- Domain → response ---

func toSessionResponse(s *domain.TrackingSession) sessionResponse {
	resp := sessionResponse{
		SessionID:     s.ID,
		OrderID:       s.OrderID,
		CourierID:     s.CourierID,
		Status:        string(s.Status),
		StatusMessage: s.StatusMessage,
		Active:        s.Active,
		Destination:   coordinatesRequest{Lat: s.Destination.Lat, Lng: s.Destination.Lng},
		CreatedAt:     s.CreatedAt.Format(timeFormat),
		LastUpdatedAt: s.LastUpdatedAt.Format(timeFormat),
	}
	if s.Location != nil {
		loc := toLocationResponse(*s.Location)
		resp.Location = &loc
	}
	resp.DistanceRemainingKm = s.DistanceRemainingKm
	resp.ETAMinutesRemaining = s.ETAMinutesRemaining
	if s.EstimatedArrivalAt != nil {
		resp.EstimatedArrivalAt = s.EstimatedArrivalAt.Format(timeFormat)
	}
	if s.ActualArrivalAt != nil {
		resp.ActualArrivalAt = s.ActualArrivalAt.Format(timeFormat)
	}
	return resp
}

func toLocationResponse(loc domain.Location) locationResponse {
	return locationResponse{
		Lat:        loc.Lat,
		Lng:        loc.Lng,
		AccuracyM:  loc.AccuracyM,
		SpeedKmh:   loc.SpeedKmh,
		BearingDeg: loc.BearingDeg,
		Source:     string(loc.Source),
		RecordedAt: loc.RecordedAt.Format(timeFormat),
	}
}

func toTrailResponse(sessionID string, records []domain.LocationRecord) trailResponse {
	trail := make([]trailEntryResponse, 0, len(records))
	for _, r := range records {
		trail = append(trail, trailEntryResponse{
			Lat:        r.Lat,
			Lng:        r.Lng,
			Source:     string(r.Source),
			RecordedAt: r.RecordedAt.Format(timeFormat),
		})
	}
	return trailResponse{SessionID: sessionID, Count: len(trail), Trail: trail}
}

func toTransitionsResponse(current domain.TrackingStatus, available []domain.TrackingStatus) transitionsResponse {
	options := make([]statusOption, 0, len(available))
	for _, s := range available {
		options = append(options, statusOption{
			Status:      string(s),
			DisplayName: s.DisplayName(),
		})
	}
	return transitionsResponse{
		CurrentStatus: string(current),
		Available:     options,
	}
}

func toSessionListResponse(sessions []*domain.TrackingSession) sessionListResponse {
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s))
	}
	return sessionListResponse{Count: len(out), Sessions: out}
}

func toStatisticsResponse(stats domain.Statistics) statisticsResponse {
	return statisticsResponse{
		Total:     stats.Total,
		Active:    stats.Active,
		Completed: stats.Completed,
		Cancelled: stats.Cancelled,
	}
}
