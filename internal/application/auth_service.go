package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/operator"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/apperror"
	"github.com/Kilat-Ride/service-ride-booking/internal/session"
	"go.uber.org/zap"
)

// OperatorAuth is the part of the operator API that deals with sessions.
type OperatorAuth interface {
	Authorize(ctx context.Context) (session.Pair, error)
	GenerateOTP(ctx context.Context, req operator.PhoneRequest) error
	VerifyOTP(ctx context.Context, req operator.VerifyOTPRequest) (operator.VerifyOTPResult, error)
	Profile(ctx context.Context) (ride.Customer, error)
	OperatorConfig(ctx context.Context) (map[string]interface{}, error)
}

// AuthService manages a device's system and user sessions.
type AuthService struct {
	deviceID string
	sessions *session.Store
	booking  *BookingStore
	steps    *StepController
	surface  *Surface
	operator OperatorAuth
	producer EventPublisher
	logger   *zap.Logger

	mu       sync.Mutex
	settings map[string]interface{}
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	sessions *session.Store,
	booking *BookingStore,
	steps *StepController,
	surface *Surface,
	op OperatorAuth,
	producer EventPublisher,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		deviceID: sessions.DeviceID(),
		sessions: sessions,
		booking:  booking,
		steps:    steps,
		surface:  surface,
		operator: op,
		producer: producer,
		logger:   logger,
	}
}

// EnsureSystemSession authorizes the device with the operator once and
// loads the operator's settings. The system pair then survives every login
// and logout.
func (s *AuthService) EnsureSystemSession(ctx context.Context) error {
	if _, ok := s.sessions.System(); !ok {
		pair, err := s.operator.Authorize(ctx)
		if err != nil {
			return fmt.Errorf("failed to authorize device: %w", err)
		}
		if err := s.sessions.SetSystem(ctx, pair); err != nil {
			return err
		}
		s.logger.Info("system session established", zap.String("device_id", s.deviceID))
	}

	if _, err := s.OperatorSettings(ctx); err != nil {
		s.logger.Warn("failed to load operator settings", zap.String("device_id", s.deviceID), zap.Error(err))
	}
	return nil
}

// OperatorSettings returns the operator's public settings, fetching them on
// first use.
func (s *AuthService) OperatorSettings(ctx context.Context) (map[string]interface{}, error) {
	s.mu.Lock()
	cached := s.settings
	s.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	settings, err := s.operator.OperatorConfig(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = map[string]interface{}{}
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return settings, nil
}

// RequestOTP sends a one-time code to the rider's phone.
func (s *AuthService) RequestOTP(ctx context.Context, phone, countryCode string) error {
	if phone == "" || countryCode == "" {
		return apperror.NewValidationError("phone and country code are required")
	}
	return s.operator.GenerateOTP(ctx, operator.PhoneRequest{Phone: phone, CountryCode: countryCode})
}

// VerifyOTP signs the rider in. A move to payment that waited for sign-in
// completes through the session store's authentication listeners.
func (s *AuthService) VerifyOTP(ctx context.Context, phone, countryCode, code string) (ride.Customer, error) {
	if code == "" {
		return ride.Customer{}, apperror.NewValidationError("verification code is required")
	}
	res, err := s.operator.VerifyOTP(ctx, operator.VerifyOTPRequest{
		PhoneRequest: operator.PhoneRequest{Phone: phone, CountryCode: countryCode},
		Code:         code,
	})
	if err != nil {
		return ride.Customer{}, err
	}
	if !res.Pair.Valid() {
		return ride.Customer{}, apperror.NewUpstreamError("operator returned an incomplete session", nil)
	}

	s.surface.DismissPrompt()
	if err := s.sessions.SetUser(ctx, res.Pair); err != nil {
		s.logger.Error("failed to persist user session", zap.String("device_id", s.deviceID), zap.Error(err))
	}

	cust := res.Customer
	if cust.Phone == "" {
		cust.Phone, cust.CountryCode = phone, countryCode
	}
	st := s.booking.Snapshot()
	if st.Passenger.Customer.Phone == "" {
		p := st.Passenger
		p.Customer = cust
		s.booking.SetPassenger(ctx, p)
	}

	s.logger.Info("rider signed in", zap.String("device_id", s.deviceID))
	return cust, nil
}

// Logout clears the user pair and the whole booking. The system pair stays.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.sessions.ClearUser(ctx); err != nil {
		return fmt.Errorf("failed to clear user session: %w", err)
	}
	if err := s.booking.Reset(ctx); err != nil {
		s.logger.Error("failed to delete booking draft", zap.String("device_id", s.deviceID), zap.Error(err))
	}
	s.steps.Reset()
	s.surface.DismissPrompt()
	s.surface.Navigate(RouteHome)

	publishEvent(ctx, s.producer, s.logger, ride.EventBookingReset, s.deviceID, ride.BookingResetEvent{
		DeviceID:   s.deviceID,
		Reason:     "logout",
		OccurredAt: time.Now().UTC(),
	})
	s.logger.Info("rider signed out", zap.String("device_id", s.deviceID))
	return nil
}

// Profile returns the signed-in rider's profile.
func (s *AuthService) Profile(ctx context.Context) (ride.Customer, error) {
	return s.operator.Profile(ctx)
}
