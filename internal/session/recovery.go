package session

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var sessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ride_session_expired_total",
	Help: "User sessions cleared after a server-signalled expiry.",
})

// Prompter raises the re-authentication UI.
type Prompter interface {
	PromptReauth(reason string)
}

// Navigator exposes the rider's current route.
type Navigator interface {
	CurrentRoute() string
	Navigate(route string)
}

// Verifier performs the expiry-triggered session validation call.
type Verifier func(ctx context.Context) error

// ExpiryListener is told about every handled expiry.
type ExpiryListener func(ctx context.Context, deviceID, reason string)

// RecoveryConfig tunes the expiry recovery path.
type RecoveryConfig struct {
	SafeRoutes []string
	Cooldown   time.Duration
}

// Recovery reacts to session expiry: it clears the user pair only, prompts
// for re-authentication, leaves unsafe routes and validates the remaining
// session at most once per cooldown window.
type Recovery struct {
	store     *Store
	prompter  Prompter
	navigator Navigator
	cooldown  CooldownCache
	cfg       RecoveryConfig
	verify    Verifier
	listeners []ExpiryListener
	logger    *zap.Logger
}

// NewRecovery wires the expiry recovery path for one device.
func NewRecovery(store *Store, prompter Prompter, navigator Navigator, cooldown CooldownCache, cfg RecoveryConfig, logger *zap.Logger) *Recovery {
	if len(cfg.SafeRoutes) == 0 {
		cfg.SafeRoutes = []string{"/"}
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Recovery{
		store:     store,
		prompter:  prompter,
		navigator: navigator,
		cooldown:  cooldown,
		cfg:       cfg,
		logger:    logger,
	}
}

// SetVerifier installs the session validation call. It is set after
// construction because the verifier itself dispatches through the router.
func (r *Recovery) SetVerifier(v Verifier) { r.verify = v }

// OnExpired registers a listener for handled expiries.
func (r *Recovery) OnExpired(l ExpiryListener) { r.listeners = append(r.listeners, l) }

// HandleExpiry runs the recovery path. It never touches booking data.
func (r *Recovery) HandleExpiry(ctx context.Context, reason string) {
	deviceID := r.store.DeviceID()
	hadUser := r.store.Authenticated()

	if err := r.store.ClearUser(ctx); err != nil {
		r.logger.Error("failed to clear user session", zap.String("device_id", deviceID), zap.Error(err))
	}
	if hadUser {
		sessionsExpired.Inc()
	}

	r.prompter.PromptReauth(reason)
	if !r.isSafe(r.navigator.CurrentRoute()) {
		r.navigator.Navigate(r.cfg.SafeRoutes[0])
	}

	for _, l := range r.listeners {
		l(ctx, deviceID, reason)
	}

	r.validateOnce(ctx, deviceID)
}

func (r *Recovery) validateOnce(ctx context.Context, deviceID string) {
	if r.verify == nil || r.cooldown == nil {
		return
	}
	acquired, err := r.cooldown.Acquire(ctx, "session-validate:"+deviceID, r.cfg.Cooldown)
	if err != nil {
		r.logger.Warn("cooldown cache unavailable, skipping session validation",
			zap.String("device_id", deviceID), zap.Error(err))
		return
	}
	if !acquired {
		r.logger.Debug("session validation suppressed by cooldown", zap.String("device_id", deviceID))
		return
	}
	if err := r.verify(ctx); err != nil {
		r.logger.Warn("expiry-triggered session validation failed",
			zap.String("device_id", deviceID), zap.Error(err))
	}
}

func (r *Recovery) isSafe(route string) bool {
	for _, s := range r.cfg.SafeRoutes {
		if s == route {
			return true
		}
	}
	return false
}
