package servicearea

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/operator"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/apperror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Checker performs the remote service-area check.
type Checker interface {
	CheckServiceArea(ctx context.Context, p ride.LatLng) (*operator.Envelope, error)
}

// Result is the answer for one checked point.
type Result struct {
	Point             ride.LatLng
	InsideServiceArea bool
	Flag              int
	Message           string
}

// Point is a coordinate with the label used in rider-facing errors.
type Point struct {
	Label string
	ride.LatLng
}

// Validator checks coordinates against the operator's service boundary.
type Validator struct {
	checker Checker
	logger  *zap.Logger
}

// NewValidator creates a new Validator.
func NewValidator(checker Checker, logger *zap.Logger) *Validator {
	return &Validator{checker: checker, logger: logger}
}

// Validate checks a single point. Flag 144 means outside; any other flag is
// inside. A transport failure fails closed as an unavailable error.
func (v *Validator) Validate(ctx context.Context, p ride.LatLng) (Result, error) {
	env, err := v.checker.CheckServiceArea(ctx, p)
	if err != nil {
		if apperror.Is(err, apperror.KindSessionExpired) || errors.Is(err, context.Canceled) {
			return Result{}, err
		}
		v.logger.Warn("service area check failed",
			zap.Float64("lat", p.Lat),
			zap.Float64("lng", p.Lng),
			zap.Error(err),
		)
		return Result{}, apperror.NewUnavailableError("validation unavailable", err)
	}

	return Result{
		Point:             p,
		InsideServiceArea: env.Flag != ride.FlagOutOfServiceArea,
		Flag:              env.Flag,
		Message:           env.Message,
	}, nil
}

// Require validates p and turns an outside answer into an error.
func (v *Validator) Require(ctx context.Context, p Point) error {
	res, err := v.Validate(ctx, p.LatLng)
	if err != nil {
		return err
	}
	if !res.InsideServiceArea {
		return apperror.NewOutOfServiceAreaError(fmt.Sprintf("%s is outside the service area", p.Label))
	}
	return nil
}

// ValidateAll checks every point concurrently and returns the first failure.
// A single invalid point invalidates the whole set.
func (v *Validator) ValidateAll(ctx context.Context, points ...Point) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range points {
		g.Go(func() error {
			return v.Require(gctx, p)
		})
	}
	return g.Wait()
}
