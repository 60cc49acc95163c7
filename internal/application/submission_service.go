package application

import (
	"context"
	"time"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/operator"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/apperror"
	"go.uber.org/zap"
)

// RideSubmitter sends a ride request to the operator.
type RideSubmitter interface {
	SubmitRide(ctx context.Context, req operator.RideRequest) (operator.RideReceipt, error)
}

// SubmissionService submits the booking. Its outcome is always recorded and
// shown on the result panel, whether the operator accepted the ride or not.
type SubmissionService struct {
	deviceID  string
	store     *BookingStore
	steps     *StepController
	surface   *Surface
	submitter RideSubmitter
	producer  EventPublisher
	now       func() time.Time
	logger    *zap.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	deviceID string,
	store *BookingStore,
	steps *StepController,
	surface *Surface,
	submitter RideSubmitter,
	producer EventPublisher,
	logger *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		deviceID:  deviceID,
		store:     store,
		steps:     steps,
		surface:   surface,
		submitter: submitter,
		producer:  producer,
		now:       time.Now,
		logger:    logger,
	}
}

// Submit validates the booking and sends it. Validation errors block and
// return an error without a network call. A session expiry is left to the
// recovery path. Any other failure becomes an unsuccessful result.
func (s *SubmissionService) Submit(ctx context.Context) (*ride.BookingResult, error) {
	st := s.store.Snapshot()
	now := s.now()
	if st.CurrentStepIndex != ride.StepPayment {
		return nil, apperror.NewInvalidStateError(st.CurrentStepIndex.String(), "submitted")
	}
	if err := ride.ValidateForSubmission(st, now); err != nil {
		return nil, err
	}

	req := buildRideRequest(st)
	receipt, err := s.submitter.SubmitRide(ctx, req)
	if apperror.Is(err, apperror.KindSessionExpired) {
		return nil, err
	}

	result := ride.BookingResult{SubmittedAt: now.UTC(), UpdatedAt: now.UTC()}
	eventType := ride.EventRideRequested
	if err != nil {
		result.Message = err.Error()
		eventType = ride.EventRideRequestFailed
		s.logger.Warn("ride submission failed", zap.String("device_id", s.deviceID), zap.Error(err))
	} else {
		result.Success = true
		result.RideID = receipt.RideID
		result.Status = receipt.Status
		result.Message = "Your ride has been booked"
		s.logger.Info("ride submitted",
			zap.String("device_id", s.deviceID),
			zap.String("ride_id", receipt.RideID),
		)
	}

	s.store.SetResult(ctx, result)
	s.steps.ShowResult()
	s.surface.Navigate(RouteResult)

	publishEvent(ctx, s.producer, s.logger, eventType, s.deviceID, ride.RideRequestedEvent{
		DeviceID:    s.deviceID,
		RideID:      result.RideID,
		Status:      result.Status,
		Success:     result.Success,
		Message:     result.Message,
		RegionID:    req.RegionID,
		ServiceID:   req.ServiceID,
		Pickup:      req.Pickup,
		Dropoff:     req.Drop,
		StopCount:   len(req.Stops),
		ScheduledAt: req.ScheduledAt,
		OccurredAt:  now.UTC(),
	})
	return &result, nil
}

func buildRideRequest(st ride.State) operator.RideRequest {
	req := operator.RideRequest{
		Pickup:           *st.Pickup,
		Drop:             *st.Dropoff,
		Stops:            st.Stops.Resolved(),
		RegionID:         *st.SelectedRegion,
		ServiceID:        st.SelectedService.ID,
		SelectedServices: st.SelectedServices,
		ScheduledAt:      st.ScheduledDateTime,
		ReturnAt:         st.ReturnDateTime,
		TimezoneOffset:   st.TimezoneOffset,
		Customer:         st.Passenger.Customer,
		FlightNumber:     st.Passenger.FlightNumber,
		DriverNote:       st.Passenger.DriverNote,
		LuggageCount:     st.Passenger.LuggageCount,
		PaymentMethod:    st.Payment.Method,
		CardID:           st.Payment.CardID,
		SquareCardID:     st.Payment.SquareCardID,
	}
	if st.AppliedCoupon != nil {
		req.CouponCode = st.AppliedCoupon.Code
	}
	if st.Route != nil {
		req.RideTime = st.Route.RideTimeMinutes()
		req.RideDistance = st.Route.RideDistanceKm()
	}
	return req
}
