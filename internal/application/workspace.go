package application

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/operator"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/apperror"
	"github.com/Kilat-Ride/service-ride-booking/internal/quote"
	"github.com/Kilat-Ride/service-ride-booking/internal/servicearea"
	"github.com/Kilat-Ride/service-ride-booking/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// RegistryConfig tunes every workspace the registry creates.
type RegistryConfig struct {
	OperatorBaseURL    string
	OperatorClientKey  string
	OperatorTimeout    time.Duration
	SafeRoutes         []string
	ExpiryCooldown     time.Duration
	RequoteDebounce    time.Duration
	PersistenceTimeout time.Duration
	RideTypePolicy     quote.RideTypePolicy
}

// RegistryDeps are the collaborators shared by all workspaces.
type RegistryDeps struct {
	Drafts        ride.DraftRepository
	Credentials   session.CredentialRepository
	Cooldown      session.CooldownCache
	Routes        RouteCalculator
	Producer      EventPublisher
	BaseTransport http.RoundTripper
}

// Workspace is everything one device's booking session needs: its booking
// store, its credential pairs and an operator client that routes every call
// through the device's session transport.
type Workspace struct {
	DeviceID   string
	Sessions   *session.Store
	Recovery   *session.Recovery
	Surface    *Surface
	Booking    *BookingStore
	Pipeline   *QuotePipeline
	Steps      *StepController
	Submission *SubmissionService
	Auth       *AuthService
	Operator   *operator.Client
	Quotes     *quote.Engine

	producer EventPublisher
	logger   *zap.Logger
}

// BookingView is the booking state plus the wizard's presentation state.
type BookingView struct {
	State          ride.State  `json:"state"`
	Panel          ride.Panel  `json:"panel"`
	FormActive     bool        `json:"form_active"`
	PendingPayment bool        `json:"pending_payment"`
	Authenticated  bool        `json:"authenticated"`
	QuoteInFlight  bool        `json:"quote_in_flight"`
	Surface        SurfaceView `json:"surface"`
}

// View returns the current booking view.
func (w *Workspace) View() BookingView {
	return BookingView{
		State:          w.Booking.Snapshot(),
		Panel:          w.Steps.Panel(),
		FormActive:     w.Steps.FormActive(),
		PendingPayment: w.Steps.Pending(),
		Authenticated:  w.Sessions.Authenticated(),
		QuoteInFlight:  w.Quotes.InFlight(),
		Surface:        w.Surface.View(),
	}
}

// SelectService picks a service line by id from the operator's catalog.
func (w *Workspace) SelectService(ctx context.Context, serviceID int) (ride.Service, error) {
	services, err := w.Operator.Services(ctx)
	if err != nil {
		return ride.Service{}, err
	}
	for _, svc := range services {
		if svc.ID == serviceID {
			w.Booking.SetService(ctx, &svc)
			return svc, nil
		}
	}
	return ride.Service{}, apperror.NewNotFoundError("service", strconv.Itoa(serviceID))
}

// ApplyCoupon validates code with the operator and applies it. An empty
// code removes the coupon.
func (w *Workspace) ApplyCoupon(ctx context.Context, code string) (*ride.Coupon, error) {
	if code == "" {
		w.Booking.SetCoupon(ctx, nil)
		return nil, nil
	}
	st := w.Booking.Snapshot()
	if st.SelectedService == nil {
		return nil, apperror.NewValidationError(ride.MsgServiceRequired)
	}
	coupon, err := w.Operator.ValidateCoupon(ctx, code, st.SelectedService.ID)
	if err != nil {
		return nil, err
	}
	w.Booking.SetCoupon(ctx, &coupon)
	return &coupon, nil
}

// SetSchedule validates and stores the scheduled and return times.
func (w *Workspace) SetSchedule(ctx context.Context, at, returnAt *time.Time, timezoneOffset int) error {
	candidate := w.Booking.Snapshot()
	candidate.ScheduledDateTime = at
	candidate.ReturnDateTime = returnAt
	if err := ride.ValidateSchedule(candidate, time.Now()); err != nil {
		return err
	}
	w.Booking.SetSchedule(ctx, at, timezoneOffset)
	w.Booking.SetReturnTime(ctx, returnAt)
	return nil
}

// RefreshResult asks the operator for the current status of the submitted
// ride and applies it to the shown result.
func (w *Workspace) RefreshResult(ctx context.Context) (ride.BookingResult, error) {
	result := w.Booking.Snapshot().BookingResult
	if result == nil || result.RideID == "" {
		return ride.BookingResult{}, apperror.NewNotFoundError("ride", "current")
	}
	status, err := w.Operator.RideStatus(ctx, result.RideID)
	if err != nil {
		return *result, err
	}
	if w.Booking.UpdateResultStatus(result.RideID, status, "", time.Now().UTC()) {
		if updated := w.Booking.Snapshot().BookingResult; updated != nil {
			return *updated, nil
		}
	}
	return ride.BookingResult{}, apperror.NewNotFoundError("ride", result.RideID)
}

// ResetBooking clears the booking after a completed or abandoned ride.
func (w *Workspace) ResetBooking(ctx context.Context, reason string) error {
	if err := w.Booking.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset booking: %w", err)
	}
	w.Steps.Reset()
	w.Surface.Navigate(RouteBooking)
	publishEvent(ctx, w.producer, w.logger, ride.EventBookingReset, w.DeviceID, ride.BookingResetEvent{
		DeviceID:   w.DeviceID,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

// Close stops background work owned by the workspace.
func (w *Workspace) Close() {
	w.Booking.Close()
}

// Registry owns one Workspace per device.
type Registry struct {
	mu         sync.RWMutex
	workspaces map[string]*Workspace
	group      singleflight.Group

	cfg    RegistryConfig
	deps   RegistryDeps
	prefix string
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig, deps RegistryDeps, logger *zap.Logger) (*Registry, error) {
	u, err := url.Parse(cfg.OperatorBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid operator base url: %w", err)
	}
	if deps.Cooldown == nil {
		deps.Cooldown = session.NewMemoryCooldown()
	}
	return &Registry{
		workspaces: make(map[string]*Workspace),
		cfg:        cfg,
		deps:       deps,
		prefix:     u.Path,
		logger:     logger,
	}, nil
}

// Lookup returns the loaded workspace for deviceID without creating one.
func (r *Registry) Lookup(deviceID string) (*Workspace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ws, ok := r.workspaces[deviceID]
	return ws, ok
}

// Get returns the workspace for deviceID, creating and restoring it on
// first use. Credentials are restored before the draft and before any
// operator call.
func (r *Registry) Get(ctx context.Context, deviceID string) (*Workspace, error) {
	if ws, ok := r.Lookup(deviceID); ok {
		return ws, nil
	}

	v, err, _ := r.group.Do(deviceID, func() (interface{}, error) {
		if ws, ok := r.Lookup(deviceID); ok {
			return ws, nil
		}
		ws := r.build(deviceID)
		if err := ws.Sessions.Restore(ctx); err != nil {
			return nil, err
		}
		if err := ws.Booking.Restore(ctx); err != nil {
			r.logger.Error("failed to restore booking draft", zap.String("device_id", deviceID), zap.Error(err))
		}
		if err := ws.Auth.EnsureSystemSession(ctx); err != nil {
			r.logger.Warn("system session not established", zap.String("device_id", deviceID), zap.Error(err))
		}

		r.mu.Lock()
		r.workspaces[deviceID] = ws
		r.mu.Unlock()
		return ws, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Workspace), nil
}

// UpdateRideStatus applies a ride status change to the device's shown
// result. It reports false when the device is not loaded here or shows a
// different ride.
func (r *Registry) UpdateRideStatus(deviceID, rideID, status, message string, at time.Time) bool {
	ws, ok := r.Lookup(deviceID)
	if !ok {
		return false
	}
	return ws.Booking.UpdateResultStatus(rideID, status, message, at)
}

// Close stops every workspace.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ws := range r.workspaces {
		ws.Close()
		delete(r.workspaces, id)
	}
}

func (r *Registry) build(deviceID string) *Workspace {
	logger := r.logger.With(zap.String("device_id", deviceID))

	sessions := session.NewStore(deviceID, r.deps.Credentials)
	surface := NewSurface()
	recovery := session.NewRecovery(sessions, surface, surface, r.deps.Cooldown, session.RecoveryConfig{
		SafeRoutes: r.cfg.SafeRoutes,
		Cooldown:   r.cfg.ExpiryCooldown,
	}, logger)

	transport := session.NewTransport(r.deps.BaseTransport, r.prefix, sessions, recovery, logger)
	client := operator.NewClient(r.cfg.OperatorBaseURL, r.cfg.OperatorClientKey, &http.Client{
		Transport: transport,
		Timeout:   r.cfg.OperatorTimeout,
	}, logger)
	recovery.SetVerifier(client.VerifySession)

	booking := NewBookingStore(deviceID, r.deps.Drafts, BookingStoreConfig{
		RequoteDebounce:    r.cfg.RequoteDebounce,
		PersistenceTimeout: r.cfg.PersistenceTimeout,
	}, logger)
	engine := quote.NewEngine(client, r.cfg.RideTypePolicy, logger)
	pipeline := NewQuotePipeline(booking, servicearea.NewValidator(client, logger), r.deps.Routes, engine, logger)
	booking.OnRequote(pipeline.Requote)

	steps := NewStepController(booking, sessions, surface, logger)
	sessions.OnAuthenticated(steps.OnAuthenticated)

	ws := &Workspace{
		DeviceID:   deviceID,
		Sessions:   sessions,
		Recovery:   recovery,
		Surface:    surface,
		Booking:    booking,
		Pipeline:   pipeline,
		Steps:      steps,
		Submission: NewSubmissionService(deviceID, booking, steps, surface, client, r.deps.Producer, logger),
		Auth:       NewAuthService(sessions, booking, steps, surface, client, r.deps.Producer, logger),
		Operator:   client,
		Quotes:     engine,
		producer:   r.deps.Producer,
		logger:     logger,
	}

	recovery.OnExpired(func(ctx context.Context, deviceID, reason string) {
		publishEvent(ctx, r.deps.Producer, logger, ride.EventSessionExpired, deviceID, ride.SessionExpiredEvent{
			DeviceID:   deviceID,
			Reason:     reason,
			OccurredAt: time.Now().UTC(),
		})
	})
	return ws
}
