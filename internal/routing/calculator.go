package routing

import (
	"context"
	"fmt"
	"math"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"go.uber.org/zap"
)

// Calculator turns pickup, ordered stops and drop into one aggregate route.
type Calculator struct {
	engine Engine
	logger *zap.Logger
}

// NewCalculator creates a new Calculator.
func NewCalculator(engine Engine, logger *zap.Logger) *Calculator {
	return &Calculator{engine: engine, logger: logger}
}

// CalculateRoute returns the route through waypoints in the given order.
// Waypoints without coordinates are skipped. A nil route with a nil error
// means no route was found; callers treat it like a failure.
func (c *Calculator) CalculateRoute(ctx context.Context, origin, destination ride.Location, waypoints []ride.Location) (*ride.Route, error) {
	req := DirectionsRequest{
		Origin:            origin.Point(),
		Destination:       destination.Point(),
		OptimizeWaypoints: false,
	}
	for _, w := range waypoints {
		if !w.HasCoordinates() {
			continue
		}
		req.Waypoints = append(req.Waypoints, Waypoint{Point: w.Point(), Stopover: true})
	}

	dir, err := c.engine.Directions(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate route: %w", err)
	}
	if dir == nil || len(dir.Legs) == 0 {
		return nil, nil
	}

	var route ride.Route
	for _, leg := range dir.Legs {
		route.DistanceMeters += leg.DistanceMeters
		route.DurationSeconds += leg.DurationSeconds
	}
	route.DistanceText = FormatDistance(route.DistanceMeters)
	route.DurationText = FormatDuration(route.DurationSeconds)
	route.Path = dir.Path

	c.logger.Debug("route calculated",
		zap.Int("legs", len(dir.Legs)),
		zap.Float64("distance_m", route.DistanceMeters),
		zap.Float64("duration_s", route.DurationSeconds),
	)
	return &route, nil
}

// FormatDistance renders meters as "9.0 km".
func FormatDistance(meters float64) string {
	return fmt.Sprintf("%.1f km", meters/1000)
}

// FormatDuration renders seconds as "15 mins" or "1 min".
func FormatDuration(seconds float64) string {
	mins := int(math.Round(seconds / 60))
	if mins <= 1 {
		return "1 min"
	}
	if mins < 60 {
		return fmt.Sprintf("%d mins", mins)
	}
	h, m := mins/60, mins%60
	hours := "hours"
	if h == 1 {
		hours = "hour"
	}
	if m == 0 {
		return fmt.Sprintf("%d %s", h, hours)
	}
	return fmt.Sprintf("%d %s %d mins", h, hours, m)
}
