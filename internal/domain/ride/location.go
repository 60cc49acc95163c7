package ride

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// MaxStops is the maximum number of intermediate stops on one booking.
const MaxStops = 3

// coordinateEpsilon treats two points closer than ~1 m as the same place.
const coordinateEpsilon = 1e-5

// LatLng is a bare WGS 84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is an immutable, geocoded point chosen by the rider.
type Location struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	PlaceID string  `json:"place_id,omitempty"`
}

// Point returns the location's coordinate.
func (l Location) Point() LatLng { return LatLng{Lat: l.Lat, Lng: l.Lng} }

// HasCoordinates reports whether the location resolved to a usable coordinate.
func (l Location) HasCoordinates() bool {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lng) {
		return false
	}
	if l.Lat == 0 && l.Lng == 0 {
		return false
	}
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// SamePlace reports whether two locations denote the same point.
func (l Location) SamePlace(other Location) bool {
	if l.PlaceID != "" && l.PlaceID == other.PlaceID {
		return true
	}
	return math.Abs(l.Lat-other.Lat) < coordinateEpsilon && math.Abs(l.Lng-other.Lng) < coordinateEpsilon
}

// Stop is an intermediate location. ID is stable across reorders; Order is
// always the 1-based position in the stop list.
type Stop struct {
	ID       string   `json:"id"`
	Order    int      `json:"order"`
	Location Location `json:"location"`
}

// NewStop creates a stop with a fresh id. Order is assigned on insert.
func NewStop(loc Location) Stop {
	return Stop{ID: uuid.NewString(), Location: loc}
}

// Stops is an ordered stop list.
type Stops []Stop

// Insert appends s and reindexes. It fails once MaxStops is reached.
func (s Stops) Insert(stop Stop) (Stops, error) {
	if len(s) >= MaxStops {
		return s, fmt.Errorf("at most %d stops are allowed", MaxStops)
	}
	out := make(Stops, 0, len(s)+1)
	out = append(out, s...)
	out = append(out, stop)
	return out.reindexed(), nil
}

// Remove drops the stop with id and reindexes.
func (s Stops) Remove(id string) (Stops, bool) {
	out := make(Stops, 0, len(s))
	found := false
	for _, st := range s {
		if st.ID == id {
			found = true
			continue
		}
		out = append(out, st)
	}
	return out.reindexed(), found
}

// Replace swaps the location of stop id, keeping its id and position.
func (s Stops) Replace(id string, loc Location) (Stops, bool) {
	out := s.clone()
	for i := range out {
		if out[i].ID == id {
			out[i].Location = loc
			return out, true
		}
	}
	return out, false
}

// Move relocates stop id to the 0-based index to and reindexes.
func (s Stops) Move(id string, to int) (Stops, bool) {
	from := s.IndexOf(id)
	if from < 0 {
		return s, false
	}
	if to < 0 {
		to = 0
	}
	if to >= len(s) {
		to = len(s) - 1
	}
	out := s.clone()
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append(Stops{moved}, out[to:]...)...)
	return out.reindexed(), true
}

// Find returns the stop with id.
func (s Stops) Find(id string) (Stop, bool) {
	if i := s.IndexOf(id); i >= 0 {
		return s[i], true
	}
	return Stop{}, false
}

// IndexOf returns the position of stop id, or -1.
func (s Stops) IndexOf(id string) int {
	for i, st := range s {
		if st.ID == id {
			return i
		}
	}
	return -1
}

// Resolved returns the stop locations that have coordinates, in order.
func (s Stops) Resolved() []Location {
	out := make([]Location, 0, len(s))
	for _, st := range s {
		if st.Location.HasCoordinates() {
			out = append(out, st.Location)
		}
	}
	return out
}

func (s Stops) clone() Stops {
	out := make(Stops, len(s))
	copy(out, s)
	return out
}

func (s Stops) reindexed() Stops {
	for i := range s {
		s[i].Order = i + 1
	}
	return s
}
