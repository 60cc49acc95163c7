package ride

import "math"

// Route is the aggregate of every leg between pickup, stops and drop.
// It is derived from the routing engine and never edited by hand.
type Route struct {
	DistanceMeters  float64  `json:"distance_meters"`
	DurationSeconds float64  `json:"duration_seconds"`
	DistanceText    string   `json:"distance_text"`
	DurationText    string   `json:"duration_text"`
	Path            []LatLng `json:"path"`
}

// RideTimeMinutes is the route duration in whole minutes.
func (r Route) RideTimeMinutes() int {
	return int(math.Round(r.DurationSeconds / 60))
}

// RideDistanceKm is the route distance in km rounded to 2 decimals.
func (r Route) RideDistanceKm() float64 {
	return math.Round(r.DistanceMeters/1000*100) / 100
}
