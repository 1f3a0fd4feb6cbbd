package ports

import "github.com/osmanaliaydemir/getir-tracking/internal/core/domain"

// ETAMethod selects the estimation strategy.
type ETAMethod string

const (
	// ETALive derives speed from the latest fix, falling back to a
	// configured average when the fix carries none.
	ETALive ETAMethod = "live"
	// ETAHistorical uses stored per-route averages.
	ETAHistorical ETAMethod = "historical"
)

// Estimate is the result of one distance/ETA computation.
type Estimate struct {
	DistanceKm float64
	ETAMinutes int
	Confidence float64
	Method     ETAMethod
}

// Estimator computes remaining distance and arrival time for a session.
// Implementations are pure CPU-bound and never block.
type Estimator interface {
	Estimate(loc domain.Location, destination domain.Coordinates) (Estimate, error)
	// WithinServiceArea reports whether the point falls inside the
	// configured operating bounds. Callers apply it before accepting a fix.
	WithinServiceArea(lat, lng float64) bool
}
