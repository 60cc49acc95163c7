package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/apperror"
	"github.com/Kilat-Ride/service-ride-booking/internal/quote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pipelineFixture struct {
	store    *BookingStore
	area     *fakeArea
	routes   *fakeRoutes
	finder   *fakeFinder
	engine   *quote.Engine
	pipeline *QuotePipeline
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		store:  newTestStore(t, nil),
		area:   &fakeArea{outside: map[ride.LatLng]bool{}},
		routes: &fakeRoutes{route: &ride.Route{DistanceMeters: 9000, DurationSeconds: 900}},
		finder: &fakeFinder{regions: vehicles},
	}
	f.engine = quote.NewEngine(f.finder, quote.FailOpen, zap.NewNop())
	f.pipeline = NewQuotePipeline(f.store, f.area, f.routes, f.engine, zap.NewNop())
	return f
}

func TestQuotePipeline_HappyPath(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	require.NoError(t, f.pipeline.SetPickup(ctx, pickupLoc))
	require.NoError(t, f.pipeline.SetDropoff(ctx, dropLoc))
	f.store.SetService(ctx, &cityRide)

	st, err := f.pipeline.Quote(ctx)
	require.NoError(t, err)

	assert.Equal(t, 15, f.finder.last.RideTime)
	assert.Equal(t, 9.0, f.finder.last.RideDistance)
	assert.Equal(t, cityRide.ID, f.finder.last.ServiceID)
	assert.False(t, f.finder.last.ScheduledFareFlow)

	require.Len(t, st.AvailableVehicles, 2, "filtered to the service's ride types")
	require.NotNil(t, st.Route)
	assert.Equal(t, 9000.0, st.Route.DistanceMeters)
	assert.Equal(t, ride.StepSelectVehicle, st.CurrentStepIndex)
	assert.Empty(t, st.FareQuoteError)
}

func TestQuotePipeline_OutOfAreaAbortsBeforeRouting(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	require.NoError(t, f.pipeline.SetPickup(ctx, pickupLoc))
	require.NoError(t, f.pipeline.SetDropoff(ctx, dropLoc))
	f.store.SetService(ctx, &cityRide)
	before := f.store.Snapshot()

	f.area.outside[dropLoc.Point()] = true
	_, err := f.pipeline.Quote(ctx)

	require.Error(t, err)
	assert.Equal(t, apperror.KindOutOfArea, apperror.KindOf(err))
	assert.Equal(t, int32(0), f.routes.calls.Load())
	assert.Equal(t, 0, f.finder.calls)
	assert.Equal(t, before, f.store.Snapshot())
}

func TestQuotePipeline_RejectedPointKeepsLastGoodValue(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	require.NoError(t, f.pipeline.SetDropoff(ctx, dropLoc))

	outside := ride.Location{Address: "Far away", Lat: 10, Lng: 10}
	f.area.outside[outside.Point()] = true

	err := f.pipeline.SetDropoff(ctx, outside)
	assert.Equal(t, apperror.KindOutOfArea, apperror.KindOf(err))
	assert.Equal(t, dropLoc, *f.store.Snapshot().Dropoff)

	err = f.pipeline.SetPickup(ctx, ride.Location{Address: "no coordinates"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Nil(t, f.store.Snapshot().Pickup)
}

func TestQuotePipeline_StopsValidatedOnAddAndEdit(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	stop, err := f.pipeline.AddStop(ctx, ride.Location{Address: "S1", Lat: 40.05, Lng: -73.95})
	require.NoError(t, err)

	bad := ride.Location{Address: "S1b", Lat: 12, Lng: 12}
	f.area.outside[bad.Point()] = true
	assert.Error(t, f.pipeline.UpdateStop(ctx, stop.ID, bad))
	got, _ := f.store.Snapshot().Stops.Find(stop.ID)
	assert.Equal(t, "S1", got.Location.Address)

	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(f.pipeline.UpdateStop(ctx, "missing", pickupLoc)))
}

func TestQuotePipeline_NoRoute(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.routes.route = nil
	require.NoError(t, f.pipeline.SetPickup(ctx, pickupLoc))
	require.NoError(t, f.pipeline.SetDropoff(ctx, dropLoc))
	f.store.SetService(ctx, &cityRide)

	_, err := f.pipeline.Quote(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, f.finder.calls)
	assert.Nil(t, f.store.Snapshot().Route)
}

func TestQuotePipeline_FailedRequoteKeepsPreviousQuote(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	require.NoError(t, f.pipeline.SetPickup(ctx, pickupLoc))
	require.NoError(t, f.pipeline.SetDropoff(ctx, dropLoc))
	f.store.SetService(ctx, &cityRide)
	_, err := f.pipeline.Quote(ctx)
	require.NoError(t, err)

	f.finder.err = errors.New("fare service down")
	st, err := f.pipeline.Quote(ctx)
	require.Error(t, err)
	assert.Len(t, st.AvailableVehicles, 2)
	assert.Equal(t, "fare service down", st.FareQuoteError)
}

func TestQuotePipeline_RequiresService(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	require.NoError(t, f.pipeline.SetPickup(ctx, pickupLoc))
	require.NoError(t, f.pipeline.SetDropoff(ctx, dropLoc))

	_, err := f.pipeline.Quote(ctx)
	assert.EqualError(t, err, ride.MsgServiceRequired)
	assert.Equal(t, int32(0), f.routes.calls.Load())
}

func TestQuotePipeline_JoinedQuoteForOldPickupIsDiscarded(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.finder.byPickup = true
	f.finder.release = make(chan struct{})
	require.NoError(t, f.pipeline.SetPickup(ctx, pickupLoc))
	require.NoError(t, f.pipeline.SetDropoff(ctx, dropLoc))
	f.store.SetService(ctx, &cityRide)

	errs := make(chan error, 2)
	go func() {
		_, err := f.pipeline.Quote(ctx)
		errs <- err
	}()
	require.Eventually(t, f.engine.InFlight, time.Second, 5*time.Millisecond)

	moved := ride.Location{Address: "Moved pickup", Lat: 40.2, Lng: -73.8}
	require.NoError(t, f.pipeline.SetPickup(ctx, moved))
	go func() {
		_, err := f.pipeline.Quote(ctx)
		errs <- err
	}()
	time.Sleep(50 * time.Millisecond)
	close(f.finder.release)

	for i := 0; i < 2; i++ {
		err := <-errs
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	}
	assert.Equal(t, 1, f.finder.callCount())
	st := f.store.Snapshot()
	assert.Empty(t, st.AvailableVehicles)
	assert.Nil(t, st.Route)

	st, err := f.pipeline.Quote(ctx)
	require.NoError(t, err)
	require.Len(t, st.AvailableVehicles, 1)
	assert.Equal(t, 40200, st.AvailableVehicles[0].RegionID)
	assert.Equal(t, moved, *st.Pickup)
}
