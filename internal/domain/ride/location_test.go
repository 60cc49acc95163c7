package ride

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loc(lat, lng float64) Location {
	return Location{Address: "somewhere", Lat: lat, Lng: lng}
}

func assertOrdered(t *testing.T, stops Stops) {
	t.Helper()
	for i, s := range stops {
		assert.Equal(t, i+1, s.Order, "stop %s at index %d", s.ID, i)
	}
}

func TestStops_InsertReindexesAndCaps(t *testing.T) {
	var stops Stops
	var err error
	for i := 0; i < MaxStops; i++ {
		stops, err = stops.Insert(NewStop(loc(40+float64(i)/10, -73.9)))
		require.NoError(t, err)
		assertOrdered(t, stops)
	}

	_, err = stops.Insert(NewStop(loc(41, -73)))
	assert.Error(t, err)
	assert.Len(t, stops, MaxStops)
}

func TestStops_RemoveKeepsIDsAndReindexes(t *testing.T) {
	var stops Stops
	for i := 0; i < 3; i++ {
		stops, _ = stops.Insert(NewStop(loc(40+float64(i)/10, -73.9)))
	}
	first, last := stops[0].ID, stops[2].ID

	out, ok := stops.Remove(stops[1].ID)
	require.True(t, ok)
	require.Len(t, out, 2)
	assert.Equal(t, first, out[0].ID)
	assert.Equal(t, last, out[1].ID)
	assertOrdered(t, out)

	_, ok = out.Remove("missing")
	assert.False(t, ok)
}

func TestStops_MoveKeepsIDsStable(t *testing.T) {
	var stops Stops
	for i := 0; i < 3; i++ {
		stops, _ = stops.Insert(NewStop(loc(40+float64(i)/10, -73.9)))
	}
	ids := []string{stops[0].ID, stops[1].ID, stops[2].ID}

	out, ok := stops.Move(ids[2], 0)
	require.True(t, ok)
	assert.Equal(t, []string{ids[2], ids[0], ids[1]}, []string{out[0].ID, out[1].ID, out[2].ID})
	assertOrdered(t, out)

	// original slice is untouched
	assert.Equal(t, ids[0], stops[0].ID)
}

func TestStops_ResolvedSkipsUnresolved(t *testing.T) {
	var stops Stops
	stops, _ = stops.Insert(NewStop(loc(40.05, -73.95)))
	stops, _ = stops.Insert(NewStop(Location{Address: "typed but not geocoded"}))

	resolved := stops.Resolved()
	require.Len(t, resolved, 1)
	assert.Equal(t, 40.05, resolved[0].Lat)
}

func TestLocation_SamePlace(t *testing.T) {
	a := loc(40.0, -73.9)
	assert.True(t, a.SamePlace(loc(40.000001, -73.900001)))
	assert.False(t, a.SamePlace(loc(40.1, -74.0)))
	assert.True(t, Location{PlaceID: "p1"}.SamePlace(Location{PlaceID: "p1", Lat: 1}))
}
