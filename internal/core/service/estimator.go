package service

import (
	"fmt"
	"math"
	"sync"

	"github.com/osmanaliaydemir/getir-tracking/internal/core/domain"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/geo"
	"github.com/osmanaliaydemir/getir-tracking/internal/core/ports"
)

// EstimatorConfig tunes the ETA engine. Zero values fall back to the
// defaults used in production (25 km/h average courier speed, Turkey
// service area).
type EstimatorConfig struct {
	Method          ports.ETAMethod
	DefaultSpeedKmh float64
	MinETAMinutes   int
	ServiceArea     geo.Bounds
}

const (
	defaultSpeedKmh = 25.0
	defaultMinETA   = 1
)

func defaultServiceArea() geo.Bounds {
	return geo.Bounds{MinLat: 35.0, MaxLat: 42.0, MinLng: 25.0, MaxLng: 45.0}
}

// ETAEngine computes remaining distance and arrival estimates. It supports
// two interchangeable methods: "live" derives speed from the courier's last
// reported speed, "historical" uses a running per-route average fed by
// ObserveSpeed. Both fall back to the configured default speed when no
// better signal exists.
type ETAEngine struct {
	method          ports.ETAMethod
	defaultSpeedKmh float64
	minETAMinutes   int
	bounds          geo.Bounds
	history         *routeHistory
}

var _ ports.Estimator = (*ETAEngine)(nil)

func NewETAEngine(cfg EstimatorConfig) *ETAEngine {
	if cfg.Method == "" {
		cfg.Method = ports.ETALive
	}
	if cfg.DefaultSpeedKmh <= 0 {
		cfg.DefaultSpeedKmh = defaultSpeedKmh
	}
	if cfg.MinETAMinutes <= 0 {
		cfg.MinETAMinutes = defaultMinETA
	}
	zero := geo.Bounds{}
	if cfg.ServiceArea == zero {
		cfg.ServiceArea = defaultServiceArea()
	}
	return &ETAEngine{
		method:          cfg.Method,
		defaultSpeedKmh: cfg.DefaultSpeedKmh,
		minETAMinutes:   cfg.MinETAMinutes,
		bounds:          cfg.ServiceArea,
		history:         newRouteHistory(),
	}
}

// Estimate implements ports.Estimator using the engine's configured method.
func (e *ETAEngine) Estimate(loc domain.Location, destination domain.Coordinates) (ports.Estimate, error) {
	return e.EstimateWith(e.method, loc, destination)
}

// EstimateWith computes an estimate using an explicit method, overriding the
// configured one for a single call.
func (e *ETAEngine) EstimateWith(method ports.ETAMethod, loc domain.Location, destination domain.Coordinates) (ports.Estimate, error) {
	if !geo.ValidCoordinates(loc.Lat, loc.Lng) || !geo.ValidCoordinates(destination.Lat, destination.Lng) {
		return ports.Estimate{}, domain.ErrInvalidCoordinates
	}

	dist := geo.DistanceKm(loc.Lat, loc.Lng, destination.Lat, destination.Lng)
	speed, confidence := e.speedFor(method, loc, destination)

	eta := 0
	if dist > 0 {
		eta = int(math.Round(dist / speed * 60))
		if eta < e.minETAMinutes {
			eta = e.minETAMinutes
		}
	}

	return ports.Estimate{
		DistanceKm: dist,
		ETAMinutes: eta,
		Confidence: confidence,
		Method:     method,
	}, nil
}

// WithinServiceArea reports whether a point lies inside the configured
// operating bounds.
func (e *ETAEngine) WithinServiceArea(lat, lng float64) bool {
	return e.bounds.Contains(lat, lng)
}

// ObserveSpeed records a courier speed sample for the route ending at the
// given destination. Samples feed the historical method's running average.
func (e *ETAEngine) ObserveSpeed(destination domain.Coordinates, speedKmh float64) {
	if speedKmh <= 0 || speedKmh > 150 {
		return
	}
	e.history.observe(routeKey(destination), speedKmh)
}

func (e *ETAEngine) speedFor(method ports.ETAMethod, loc domain.Location, destination domain.Coordinates) (speedKmh, confidence float64) {
	switch method {
	case ports.ETAHistorical:
		if avg, ok := e.history.lookup(routeKey(destination)); ok {
			return avg, 0.8
		}
		return e.defaultSpeedKmh, 0.4
	default:
		if loc.SpeedKmh != nil && *loc.SpeedKmh > 1 {
			return *loc.SpeedKmh, 0.9
		}
		return e.defaultSpeedKmh, 0.5
	}
}

// routeKey buckets destinations into ~100m cells so nearby drop-off points
// share a speed history.
func routeKey(c domain.Coordinates) string {
	return fmt.Sprintf("%.3f:%.3f", c.Lat, c.Lng)
}

// routeHistory keeps an exponentially weighted average speed per route cell.
type routeHistory struct {
	mu  sync.RWMutex
	avg map[string]float64
}

func newRouteHistory() *routeHistory {
	return &routeHistory{avg: make(map[string]float64)}
}

func (h *routeHistory) observe(key string, speedKmh float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if prev, ok := h.avg[key]; ok {
		h.avg[key] = prev*0.8 + speedKmh*0.2
		return
	}
	h.avg[key] = speedKmh
}

func (h *routeHistory) lookup(key string) (float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.avg[key]
	return v, ok
}
