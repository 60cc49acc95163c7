package application

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/operator"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/apperror"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/kafka"
	"github.com/Kilat-Ride/service-ride-booking/internal/servicearea"
)

var (
	pickupLoc = ride.Location{Address: "Pickup", Lat: 40.0, Lng: -73.9}
	dropLoc   = ride.Location{Address: "Drop", Lat: 40.1, Lng: -74.0}
	cityRide  = ride.Service{ID: 1, Name: "City", Type: "city_ride", SupportedRideTypes: []int{1, 2}}
	airport   = ride.Service{ID: 2, Name: "Airport", Type: ride.ServiceTypeAirport}
	vehicles  = []ride.VehicleRegion{
		{RegionID: 10, RegionName: "Sedan", RideType: 1},
		{RegionID: 20, RegionName: "SUV", RideType: 2},
		{RegionID: 30, RegionName: "Limo", RideType: 9},
	}
)

type memDrafts struct {
	mu     sync.Mutex
	drafts map[string]ride.Draft
	saves  int
}

func newMemDrafts() *memDrafts { return &memDrafts{drafts: make(map[string]ride.Draft)} }

func (m *memDrafts) Load(_ context.Context, deviceID string) (ride.Draft, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[deviceID]
	return d, ok, nil
}

func (m *memDrafts) Save(_ context.Context, deviceID string, d ride.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[deviceID] = d
	m.saves++
	return nil
}

func (m *memDrafts) Delete(_ context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, deviceID)
	return nil
}

type fakeArea struct {
	mu      sync.Mutex
	outside map[ride.LatLng]bool
	calls   int
}

func (f *fakeArea) ValidateAll(_ context.Context, points ...servicearea.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, p := range points {
		if f.outside[p.LatLng] {
			return apperror.NewOutOfServiceAreaError(p.Label + " is outside the service area")
		}
	}
	return nil
}

type fakeRoutes struct {
	calls atomic.Int32
	route *ride.Route
	err   error
}

func (f *fakeRoutes) CalculateRoute(_ context.Context, _, _ ride.Location, _ []ride.Location) (*ride.Route, error) {
	f.calls.Add(1)
	if f.route == nil {
		return nil, f.err
	}
	r := *f.route
	return &r, f.err
}

type fakeFinder struct {
	mu      sync.Mutex
	calls   int
	last    operator.VehicleRequest
	regions []ride.VehicleRegion
	err     error

	// release blocks every call until closed.
	release chan struct{}
	// byPickup prices one vehicle whose RegionID encodes the pickup latitude.
	byPickup bool
}

func (f *fakeFinder) FindVehicles(_ context.Context, req operator.VehicleRequest) ([]ride.VehicleRegion, error) {
	f.mu.Lock()
	f.calls++
	f.last = req
	release := f.release
	regions, err := f.regions, f.err
	if f.byPickup {
		regions = []ride.VehicleRegion{{RegionID: int(math.Round(req.Pickup.Lat * 1000)), RegionName: "Sedan", RideType: 1}}
	}
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	return regions, err
}

func (f *fakeFinder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAuth struct{ authenticated atomic.Bool }

func (f *fakeAuth) Authenticated() bool { return f.authenticated.Load() }

type fakeSubmitter struct {
	calls   int
	receipt operator.RideReceipt
	err     error
	last    operator.RideRequest
}

func (f *fakeSubmitter) SubmitRide(_ context.Context, req operator.RideRequest) (operator.RideReceipt, error) {
	f.calls++
	f.last = req
	return f.receipt, f.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
}

func (f *fakePublisher) PublishEvent(_ context.Context, _ string, ce kafka.CloudEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ce)
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}
