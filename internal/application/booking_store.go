package application

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/apperror"
	"go.uber.org/zap"
)

// BookingStoreConfig tunes a BookingStore.
type BookingStoreConfig struct {
	RequoteDebounce    time.Duration
	PersistenceTimeout time.Duration
}

// BookingStore is the single mutable container of a device's in-progress
// booking. Every mutation goes through a named setter; inputs that affect the
// quote bump an epoch so that a quote computed from older inputs is rejected.
type BookingStore struct {
	mu       sync.Mutex
	deviceID string
	state    ride.State
	epoch    uint64
	armed    bool
	timer    *time.Timer
	requote  func(ctx context.Context)

	persistMu sync.Mutex
	repo      ride.DraftRepository
	cfg       BookingStoreConfig
	logger    *zap.Logger
}

// NewBookingStore creates an empty store. repo may be nil.
func NewBookingStore(deviceID string, repo ride.DraftRepository, cfg BookingStoreConfig, logger *zap.Logger) *BookingStore {
	if cfg.RequoteDebounce <= 0 {
		cfg.RequoteDebounce = 500 * time.Millisecond
	}
	if cfg.PersistenceTimeout <= 0 {
		cfg.PersistenceTimeout = 3 * time.Second
	}
	return &BookingStore{
		deviceID: deviceID,
		repo:     repo,
		cfg:      cfg,
		logger:   logger,
	}
}

// OnRequote installs the debounced re-quote action.
func (s *BookingStore) OnRequote(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requote = fn
}

// Restore replaces the state with the persisted draft, if any.
func (s *BookingStore) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	draft, found, err := s.repo.Load(ctx, s.deviceID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	s.mu.Lock()
	s.state = draft.Restore()
	s.epoch++
	s.mu.Unlock()

	s.logger.Info("booking draft restored")
	return nil
}

// Snapshot returns a copy of the current state.
func (s *BookingStore) Snapshot() ride.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.state)
}

// QuoteInputs returns the current state together with the epoch a quote
// computed from it must present to be applied.
func (s *BookingStore) QuoteInputs() (ride.State, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.state), s.epoch
}

// SetPickup replaces the pickup location.
func (s *BookingStore) SetPickup(ctx context.Context, loc ride.Location) {
	s.mutateInputs(ctx, func(st *ride.State) error {
		st.Pickup = &loc
		return nil
	})
}

// SetDropoff replaces the drop location.
func (s *BookingStore) SetDropoff(ctx context.Context, loc ride.Location) {
	s.mutateInputs(ctx, func(st *ride.State) error {
		st.Dropoff = &loc
		return nil
	})
}

// AddStop appends a stop. At most ride.MaxStops stops are kept.
func (s *BookingStore) AddStop(ctx context.Context, loc ride.Location) (ride.Stop, error) {
	stop := ride.NewStop(loc)
	err := s.mutateInputs(ctx, func(st *ride.State) error {
		stops, err := st.Stops.Insert(stop)
		if err != nil {
			return apperror.NewValidationError(err.Error())
		}
		st.Stops = stops
		stop = stops[len(stops)-1]
		return nil
	})
	return stop, err
}

// UpdateStop replaces the location of a stop, keeping its id and order.
func (s *BookingStore) UpdateStop(ctx context.Context, id string, loc ride.Location) error {
	return s.mutateInputs(ctx, func(st *ride.State) error {
		stops, ok := st.Stops.Replace(id, loc)
		if !ok {
			return apperror.NewNotFoundError("stop", id)
		}
		st.Stops = stops
		return nil
	})
}

// RemoveStop drops a stop and reindexes the rest.
func (s *BookingStore) RemoveStop(ctx context.Context, id string) error {
	return s.mutateInputs(ctx, func(st *ride.State) error {
		stops, ok := st.Stops.Remove(id)
		if !ok {
			return apperror.NewNotFoundError("stop", id)
		}
		st.Stops = stops
		return nil
	})
}

// MoveStop moves a stop to the 0-based position to.
func (s *BookingStore) MoveStop(ctx context.Context, id string, to int) error {
	return s.mutateInputs(ctx, func(st *ride.State) error {
		stops, ok := st.Stops.Move(id, to)
		if !ok {
			return apperror.NewNotFoundError("stop", id)
		}
		st.Stops = stops
		return nil
	})
}

// SetSchedule sets the scheduled pickup time (nil for an immediate ride)
// and the rider's timezone offset in minutes.
func (s *BookingStore) SetSchedule(ctx context.Context, at *time.Time, timezoneOffset int) {
	s.mutateInputs(ctx, func(st *ride.State) error {
		st.ScheduledDateTime = at
		st.TimezoneOffset = timezoneOffset
		return nil
	})
}

// SetReturnTime sets the return trip time (nil for a one-way ride).
func (s *BookingStore) SetReturnTime(ctx context.Context, at *time.Time) {
	s.mutate(ctx, func(st *ride.State) error {
		st.ReturnDateTime = at
		return nil
	})
}

// SetService selects the service line.
func (s *BookingStore) SetService(ctx context.Context, svc *ride.Service) {
	s.mutateInputs(ctx, func(st *ride.State) error {
		st.SelectedService = svc
		return nil
	})
}

// SetServiceOptions replaces the selected extras.
func (s *BookingStore) SetServiceOptions(ctx context.Context, opts []ride.ServiceOption) {
	s.mutate(ctx, func(st *ride.State) error {
		st.SelectedServices = append([]ride.ServiceOption(nil), opts...)
		return nil
	})
}

// SetCoupon applies (or with nil removes) a coupon.
func (s *BookingStore) SetCoupon(ctx context.Context, coupon *ride.Coupon) {
	s.mutateInputs(ctx, func(st *ride.State) error {
		st.AppliedCoupon = coupon
		return nil
	})
}

// SelectRegion picks one of the available vehicles. nil clears the choice.
func (s *BookingStore) SelectRegion(ctx context.Context, regionID *int) error {
	return s.mutate(ctx, func(st *ride.State) error {
		if regionID != nil {
			found := false
			for _, v := range st.AvailableVehicles {
				if v.RegionID == *regionID {
					found = true
					break
				}
			}
			if !found {
				return apperror.NewNotFoundError("vehicle region", strconv.Itoa(*regionID))
			}
			id := *regionID
			regionID = &id
		}
		st.SelectedRegion = regionID
		return nil
	})
}

// SetPassenger replaces the passenger extras.
func (s *BookingStore) SetPassenger(ctx context.Context, p ride.Passenger) {
	s.mutate(ctx, func(st *ride.State) error {
		st.Passenger = p
		return nil
	})
}

// SetPayment replaces the payment selection.
func (s *BookingStore) SetPayment(ctx context.Context, p ride.Payment) error {
	return s.mutate(ctx, func(st *ride.State) error {
		if p.Method != ride.PaymentNone && !p.Method.IsValid() {
			return apperror.NewValidationError("unknown payment method: " + string(p.Method))
		}
		st.Payment = p
		return nil
	})
}

// SetStep moves the wizard to step i, clamped to the valid range. Leaving
// vehicle selection for the details step drops the vehicle choice.
func (s *BookingStore) SetStep(ctx context.Context, i int) ride.Step {
	var step ride.Step
	s.mutate(ctx, func(st *ride.State) error {
		step = ride.ClampStep(i)
		if step == ride.StepEnterDetails && st.CurrentStepIndex != ride.StepEnterDetails {
			st.SelectedRegion = nil
		}
		st.CurrentStepIndex = step
		s.armLocked(step)
		return nil
	})
	return step
}

// ApplyQuote stores a successful quote if it was computed from the current
// inputs. An available vehicle list advances the wizard from step 0 to 1.
func (s *BookingStore) ApplyQuote(ctx context.Context, epoch uint64, vehicles []ride.VehicleRegion, route ride.Route) bool {
	applied := false
	s.mutate(ctx, func(st *ride.State) error {
		if epoch != s.epoch {
			return nil
		}
		applied = true
		st.AvailableVehicles = vehicles
		st.Route = &route
		st.FareQuoteError = ""
		st.Dirty = false
		if st.SelectedRegion != nil {
			if _, ok := st.SelectedVehicle(); !ok {
				st.SelectedRegion = nil
			}
		}
		if st.CurrentStepIndex == ride.StepEnterDetails && len(vehicles) > 0 {
			st.CurrentStepIndex = ride.StepSelectVehicle
			s.armLocked(st.CurrentStepIndex)
		}
		return nil
	})
	return applied
}

// RecordQuoteError keeps the previous vehicles and remembers the failure.
func (s *BookingStore) RecordQuoteError(ctx context.Context, epoch uint64, msg string) {
	s.mutate(ctx, func(st *ride.State) error {
		if epoch == s.epoch {
			st.FareQuoteError = msg
		}
		return nil
	})
}

// SetResult records the outcome of a submission.
func (s *BookingStore) SetResult(ctx context.Context, result ride.BookingResult) {
	s.mutate(ctx, func(st *ride.State) error {
		st.BookingResult = &result
		return nil
	})
}

// UpdateResultStatus applies a ride status update to the recorded result.
// It reports false when the result belongs to another ride.
func (s *BookingStore) UpdateResultStatus(rideID, status, message string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.state.BookingResult
	if r == nil || r.RideID != rideID {
		return false
	}
	updated := *r
	updated.Status = status
	if message != "" {
		updated.Message = message
	}
	updated.UpdatedAt = at
	s.state.BookingResult = &updated
	return true
}

// Reset clears every field and the persisted draft.
func (s *BookingStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.stopTimerLocked()
	s.state = ride.State{}
	s.epoch++
	s.armed = false
	s.mu.Unlock()

	if s.repo == nil {
		return nil
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PersistenceTimeout)
	defer cancel()
	return s.repo.Delete(pctx, s.deviceID)
}

// Close stops any pending re-quote.
func (s *BookingStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
}

// ScheduleRequote restarts the debounce timer if the state qualifies.
func (s *BookingStore) ScheduleRequote() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if qualifies(s.state) {
		s.scheduleLocked()
	}
}

// mutateInputs applies fn and, when it succeeds, treats the change as a
// quote input change.
func (s *BookingStore) mutateInputs(ctx context.Context, fn func(*ride.State) error) error {
	return s.mutate(ctx, func(st *ride.State) error {
		if err := fn(st); err != nil {
			return err
		}
		s.epoch++
		if s.armed {
			st.Dirty = true
			if qualifies(*st) {
				s.scheduleLocked()
			}
		}
		return nil
	})
}

// mutate applies fn under the lock and writes the draft through.
func (s *BookingStore) mutate(ctx context.Context, fn func(*ride.State) error) error {
	s.mu.Lock()
	next := copyState(s.state)
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.mu.Unlock()

	s.persist(ctx)
	return nil
}

func (s *BookingStore) persist(ctx context.Context) {
	if s.repo == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	draft := s.Snapshot().Draft()
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PersistenceTimeout)
	defer cancel()
	if err := s.repo.Save(pctx, s.deviceID, draft); err != nil {
		s.logger.Error("failed to persist booking draft", zap.Error(err))
	}
}

// armLocked enables dirty tracking once vehicle selection is reached and
// disables it on the details step.
func (s *BookingStore) armLocked(step ride.Step) {
	switch step {
	case ride.StepEnterDetails:
		s.armed = false
		s.stopTimerLocked()
	default:
		s.armed = true
	}
}

func (s *BookingStore) scheduleLocked() {
	s.stopTimerLocked()
	fn := s.requote
	if fn == nil {
		return
	}
	s.timer = time.AfterFunc(s.cfg.RequoteDebounce, func() {
		fn(context.Background())
	})
}

func (s *BookingStore) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func qualifies(st ride.State) bool {
	return st.Pickup != nil && st.Pickup.HasCoordinates() &&
		st.Dropoff != nil && st.Dropoff.HasCoordinates() &&
		st.SelectedService != nil
}

func copyState(st ride.State) ride.State {
	out := st
	out.Stops = append(ride.Stops(nil), st.Stops...)
	out.AvailableVehicles = append([]ride.VehicleRegion(nil), st.AvailableVehicles...)
	out.SelectedServices = append([]ride.ServiceOption(nil), st.SelectedServices...)
	return out
}
