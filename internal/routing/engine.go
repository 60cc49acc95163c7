package routing

import (
	"context"
	"errors"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
)

// ErrOptimizationUnsupported is returned by engines that cannot reorder waypoints.
var ErrOptimizationUnsupported = errors.New("waypoint optimization is not supported")

// Waypoint is an intermediate point on a route.
type Waypoint struct {
	Point ride.LatLng
	// Stopover makes the point the end of one leg and the start of the next.
	Stopover bool
}

// DirectionsRequest asks a routing engine for one route.
type DirectionsRequest struct {
	Origin            ride.LatLng
	Destination       ride.LatLng
	Waypoints         []Waypoint
	OptimizeWaypoints bool
}

// Leg is the part of a route between two consecutive stopovers.
type Leg struct {
	DistanceMeters  float64
	DurationSeconds float64
}

// Directions is a routing engine answer.
type Directions struct {
	Legs []Leg
	Path []ride.LatLng
}

// Engine is an external routing engine. A nil result with a nil error
// means no route exists between the points.
type Engine interface {
	Directions(ctx context.Context, req DirectionsRequest) (*Directions, error)
}
