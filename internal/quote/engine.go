package quote

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/operator"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/apperror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	quotesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ride_fare_quotes_total",
		Help: "Fare/vehicle discovery calls sent to the operator.",
	})
	quotesJoined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ride_fare_quotes_joined_total",
		Help: "Quote requests that waited on an outstanding call instead of issuing one.",
	})
)

// VehicleFinder performs remote fare/vehicle discovery.
type VehicleFinder interface {
	FindVehicles(ctx context.Context, req operator.VehicleRequest) ([]ride.VehicleRegion, error)
}

// RideTypePolicy decides what happens when the selected service declares no
// supported ride types.
type RideTypePolicy int

const (
	// FailOpen passes every vehicle through.
	FailOpen RideTypePolicy = iota
	// FailClosed passes nothing through.
	FailClosed
)

func (p RideTypePolicy) String() string {
	if p == FailClosed {
		return "fail_closed"
	}
	return "fail_open"
}

// ParseRideTypePolicy reads a policy name. Anything but "fail_closed" is
// treated as fail_open.
func ParseRideTypePolicy(s string) RideTypePolicy {
	if strings.EqualFold(strings.TrimSpace(s), FailClosed.String()) {
		return FailClosed
	}
	return FailOpen
}

// Options carries the non-route inputs of a quote.
type Options struct {
	Service           *ride.Service
	ScheduledFareFlow bool
	RideDateTime      *time.Time
	TimezoneOffset    int
	Stops             []ride.Location
}

// Quote is a filtered vehicle list together with the route it was priced on.
type Quote struct {
	Vehicles []ride.VehicleRegion
	Route    ride.Route
	// Stale is set when the caller joined an outstanding call that was
	// priced for different inputs. Vehicles then belong to that request.
	Stale bool
}

type pricedRegions struct {
	fingerprint string
	regions     []ride.VehicleRegion
}

// Engine is the FareQuoteEngine. At most one discovery call is outstanding
// at a time; concurrent callers wait for it and share its result.
type Engine struct {
	finder   VehicleFinder
	policy   RideTypePolicy
	group    singleflight.Group
	inFlight atomic.Bool
	logger   *zap.Logger
}

// NewEngine creates a new quote Engine.
func NewEngine(finder VehicleFinder, policy RideTypePolicy, logger *zap.Logger) *Engine {
	return &Engine{finder: finder, policy: policy, logger: logger}
}

// InFlight reports whether a discovery call is outstanding.
func (e *Engine) InFlight() bool { return e.inFlight.Load() }

// FindVehiclesAndFare prices route and filters the answer to the service's
// supported ride types. Pickup, drop and stops must already have passed the
// service-area check.
func (e *Engine) FindVehiclesAndFare(ctx context.Context, pickup, drop ride.Location, route *ride.Route, opts Options) (*Quote, error) {
	if route == nil {
		return nil, apperror.NewValidationError("a route is required before requesting a quote")
	}
	if opts.Service == nil {
		return nil, apperror.NewValidationError(ride.MsgServiceRequired)
	}

	req := operator.VehicleRequest{
		Pickup:            pickup,
		Drop:              drop,
		Stops:             opts.Stops,
		RideTime:          route.RideTimeMinutes(),
		RideDistance:      route.RideDistanceKm(),
		ServiceID:         opts.Service.ID,
		ScheduledFareFlow: opts.ScheduledFareFlow,
		RideDateTime:      opts.RideDateTime,
		TimezoneOffset:    opts.TimezoneOffset,
	}

	fp := fingerprint(req)

	// The outstanding call is not tied to any one caller.
	callCtx := context.WithoutCancel(ctx)
	v, err, shared := e.group.Do("quote", func() (interface{}, error) {
		e.inFlight.Store(true)
		defer e.inFlight.Store(false)
		quotesIssued.Inc()
		regions, err := e.finder.FindVehicles(callCtx, req)
		if err != nil {
			return nil, err
		}
		return pricedRegions{fingerprint: fp, regions: regions}, nil
	})
	if shared {
		quotesJoined.Inc()
	}
	if err != nil {
		e.logger.Warn("fare quote failed", zap.Int("service_id", req.ServiceID), zap.Error(err))
		return nil, err
	}

	priced := v.(pricedRegions)
	if priced.fingerprint != fp {
		e.logger.Info("joined fare quote was priced for other inputs", zap.Int("service_id", req.ServiceID))
		return &Quote{Route: *route, Stale: true}, nil
	}

	vehicles := Filter(priced.regions, *opts.Service, e.policy)
	e.logger.Debug("fare quote received",
		zap.Int("service_id", req.ServiceID),
		zap.Int("ride_time", req.RideTime),
		zap.Float64("ride_distance", req.RideDistance),
		zap.Int("vehicles", len(vehicles)),
	)
	return &Quote{Vehicles: vehicles, Route: *route}, nil
}

func fingerprint(req operator.VehicleRequest) string {
	b, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	return string(b)
}

// Filter keeps the vehicles whose ride type the service supports. When the
// service declares no ride types the policy decides.
func Filter(vehicles []ride.VehicleRegion, service ride.Service, policy RideTypePolicy) []ride.VehicleRegion {
	if len(service.SupportedRideTypes) == 0 {
		if policy == FailClosed {
			return []ride.VehicleRegion{}
		}
		return append([]ride.VehicleRegion{}, vehicles...)
	}
	out := make([]ride.VehicleRegion, 0, len(vehicles))
	for _, v := range vehicles {
		if service.Supports(v.RideType) {
			out = append(out, v)
		}
	}
	return out
}
