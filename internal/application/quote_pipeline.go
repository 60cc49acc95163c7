package application

import (
	"context"
	"fmt"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/apperror"
	"github.com/Kilat-Ride/service-ride-booking/internal/quote"
	"github.com/Kilat-Ride/service-ride-booking/internal/servicearea"
	"go.uber.org/zap"
)

// AreaValidator checks points against the service boundary.
type AreaValidator interface {
	ValidateAll(ctx context.Context, points ...servicearea.Point) error
}

// RouteCalculator aggregates a route through ordered waypoints.
type RouteCalculator interface {
	CalculateRoute(ctx context.Context, origin, destination ride.Location, waypoints []ride.Location) (*ride.Route, error)
}

// FareQuoter prices a route.
type FareQuoter interface {
	FindVehiclesAndFare(ctx context.Context, pickup, drop ride.Location, route *ride.Route, opts quote.Options) (*quote.Quote, error)
}

// QuotePipeline runs location → service area → route → fare for one device.
// A point is written into the booking only after it passed the service-area
// check, so a rejected point leaves the last accepted value in place.
type QuotePipeline struct {
	store     *BookingStore
	validator AreaValidator
	routes    RouteCalculator
	quotes    FareQuoter
	logger    *zap.Logger
}

// NewQuotePipeline creates a new QuotePipeline.
func NewQuotePipeline(
	store *BookingStore,
	validator AreaValidator,
	routes RouteCalculator,
	quotes FareQuoter,
	logger *zap.Logger,
) *QuotePipeline {
	return &QuotePipeline{
		store:     store,
		validator: validator,
		routes:    routes,
		quotes:    quotes,
		logger:    logger,
	}
}

// SetPickup validates loc and stores it as the pickup.
func (p *QuotePipeline) SetPickup(ctx context.Context, loc ride.Location) error {
	if err := p.accept(ctx, "Pickup location", ride.MsgPickupRequired, loc); err != nil {
		return err
	}
	p.store.SetPickup(ctx, loc)
	return nil
}

// SetDropoff validates loc and stores it as the drop.
func (p *QuotePipeline) SetDropoff(ctx context.Context, loc ride.Location) error {
	if err := p.accept(ctx, "Drop location", ride.MsgDropoffRequired, loc); err != nil {
		return err
	}
	p.store.SetDropoff(ctx, loc)
	return nil
}

// AddStop validates loc and appends it as a stop.
func (p *QuotePipeline) AddStop(ctx context.Context, loc ride.Location) (ride.Stop, error) {
	if n := len(p.store.Snapshot().Stops); n >= ride.MaxStops {
		return ride.Stop{}, apperror.NewValidationError(fmt.Sprintf("at most %d stops are allowed", ride.MaxStops))
	}
	if err := p.accept(ctx, "Stop", "Stop location is required", loc); err != nil {
		return ride.Stop{}, err
	}
	return p.store.AddStop(ctx, loc)
}

// UpdateStop validates loc again and replaces the stop's location.
func (p *QuotePipeline) UpdateStop(ctx context.Context, id string, loc ride.Location) error {
	if _, ok := p.store.Snapshot().Stops.Find(id); !ok {
		return apperror.NewNotFoundError("stop", id)
	}
	if err := p.accept(ctx, "Stop", "Stop location is required", loc); err != nil {
		return err
	}
	return p.store.UpdateStop(ctx, id, loc)
}

func (p *QuotePipeline) accept(ctx context.Context, label, missing string, loc ride.Location) error {
	if !loc.HasCoordinates() {
		return apperror.NewValidationError(missing)
	}
	return p.validator.ValidateAll(ctx, servicearea.Point{Label: label, LatLng: loc.Point()})
}

// Quote validates every point, computes the route and prices it. The result
// is applied only if the booking inputs did not change in the meantime.
func (p *QuotePipeline) Quote(ctx context.Context) (ride.State, error) {
	st, epoch := p.store.QuoteInputs()

	if err := ride.ValidateLocations(st); err != nil {
		return st, err
	}
	if st.SelectedService == nil {
		return st, apperror.NewValidationError(ride.MsgServiceRequired)
	}

	points := []servicearea.Point{
		{Label: "Pickup location", LatLng: st.Pickup.Point()},
		{Label: "Drop location", LatLng: st.Dropoff.Point()},
	}
	stops := st.Stops.Resolved()
	for i, s := range stops {
		points = append(points, servicearea.Point{Label: fmt.Sprintf("Stop %d", i+1), LatLng: s.Point()})
	}
	if err := p.validator.ValidateAll(ctx, points...); err != nil {
		return st, err
	}

	route, err := p.routes.CalculateRoute(ctx, *st.Pickup, *st.Dropoff, stops)
	if err != nil {
		return st, apperror.NewUnavailableError("route unavailable", err)
	}
	if route == nil {
		return st, apperror.NewUpstreamError(ride.MsgNoRoute, nil)
	}

	q, err := p.quotes.FindVehiclesAndFare(ctx, *st.Pickup, *st.Dropoff, route, quote.Options{
		Service:           st.SelectedService,
		ScheduledFareFlow: st.IsScheduled(),
		RideDateTime:      st.ScheduledDateTime,
		TimezoneOffset:    st.TimezoneOffset,
		Stops:             stops,
	})
	if err != nil {
		if !apperror.Is(err, apperror.KindSessionExpired) {
			p.store.RecordQuoteError(ctx, epoch, err.Error())
		}
		return p.store.Snapshot(), err
	}

	if q.Stale || !p.store.ApplyQuote(ctx, epoch, q.Vehicles, q.Route) {
		p.logger.Info("discarding quote computed from outdated inputs",
			zap.Uint64("epoch", epoch),
		)
		p.store.ScheduleRequote()
		return p.store.Snapshot(), apperror.NewConflictError("booking changed while quoting, a new quote is on its way")
	}

	p.logger.Info("fare quote applied",
		zap.Int("vehicles", len(q.Vehicles)),
		zap.Float64("distance_m", q.Route.DistanceMeters),
	)
	return p.store.Snapshot(), nil
}

// Requote is the debounced re-quote run by the booking store.
func (p *QuotePipeline) Requote(ctx context.Context) {
	if _, err := p.Quote(ctx); err != nil {
		p.logger.Warn("debounced re-quote failed", zap.Error(err))
	}
}
