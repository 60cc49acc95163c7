package application

import (
	"context"
	"sync"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/apperror"
	"go.uber.org/zap"
)

// AuthState reports whether the rider is signed in.
type AuthState interface {
	Authenticated() bool
}

// StepOutcome describes what a navigation action did.
type StepOutcome struct {
	Step  ride.Step  `json:"step"`
	Panel ride.Panel `json:"panel"`
	// Deferred is set when the move waits for the rider to sign in.
	Deferred bool `json:"deferred"`
	// LeftFlow is set when back navigation left the booking flow.
	LeftFlow bool `json:"left_flow"`
}

// StepController enforces the wizard's transition rules. Next, GoTo and the
// deferred retry after sign-in share the same gate.
type StepController struct {
	mu         sync.Mutex
	formActive bool
	showResult bool
	pending    bool

	store   *BookingStore
	auth    AuthState
	surface *Surface
	logger  *zap.Logger
}

// NewStepController creates a new StepController.
func NewStepController(store *BookingStore, auth AuthState, surface *Surface, logger *zap.Logger) *StepController {
	return &StepController{
		store:   store,
		auth:    auth,
		surface: surface,
		logger:  logger,
	}
}

// Panel returns the panel currently visible.
func (c *StepController) Panel() ride.Panel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.panelLocked(c.store.Snapshot())
}

// Pending reports whether a move to payment waits for sign-in.
func (c *StepController) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// FormActive reports whether the mobile location form overlay is shown.
func (c *StepController) FormActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.formActive
}

// SetFormActive shows or hides the mobile location form overlay.
func (c *StepController) SetFormActive(active bool) StepOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.formActive = active
	return c.outcomeLocked(c.store.Snapshot())
}

// Next advances one step.
func (c *StepController) Next(ctx context.Context) (StepOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.store.Snapshot()
	return c.advanceLocked(ctx, st, st.CurrentStepIndex+1)
}

// GoTo jumps to step index from the stepper. Forward jumps follow the same
// rules as Next and may only move one step at a time.
func (c *StepController) GoTo(ctx context.Context, index int) (StepOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.store.Snapshot()
	target := ride.ClampStep(index)

	switch {
	case target == st.CurrentStepIndex:
		return c.outcomeLocked(st), nil
	case st.CurrentStepIndex.IsBackward(target):
		c.pending = false
		c.showResult = false
		c.store.SetStep(ctx, int(target))
		return c.outcomeLocked(c.store.Snapshot()), nil
	case target == st.CurrentStepIndex+1:
		return c.advanceLocked(ctx, st, target)
	default:
		return c.outcomeLocked(st), apperror.NewInvalidStateError(st.CurrentStepIndex.String(), target.String())
	}
}

// Back goes back one step. On mobile, steps 0 and 1 first reveal the
// location form; only with the form already shown does back leave the flow.
func (c *StepController) Back(ctx context.Context, mobile bool) (StepOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.store.Snapshot()
	c.pending = false

	if c.showResult {
		c.showResult = false
		return c.outcomeLocked(st), nil
	}

	if mobile && st.CurrentStepIndex != ride.StepPayment {
		if !c.formActive {
			c.formActive = true
			return c.outcomeLocked(st), nil
		}
		return c.leaveLocked(st), nil
	}

	if st.CurrentStepIndex == ride.StepEnterDetails {
		return c.leaveLocked(st), nil
	}
	c.store.SetStep(ctx, int(st.CurrentStepIndex)-1)
	return c.outcomeLocked(c.store.Snapshot()), nil
}

// OnAuthenticated completes a move to payment that waited for sign-in.
// The gate already passed when the move was requested and is not run again.
func (c *StepController) OnAuthenticated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending {
		return
	}
	c.pending = false
	c.surface.DismissPrompt()

	if c.store.Snapshot().CurrentStepIndex != ride.StepSelectVehicle {
		return
	}
	c.store.SetStep(context.Background(), int(ride.StepPayment))
	c.logger.Info("deferred move to payment completed after sign-in")
}

// ShowResult switches to the submission result panel.
func (c *StepController) ShowResult() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showResult = true
	c.formActive = false
}

// Reset returns the controller to its initial sub-state.
func (c *StepController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.formActive = false
	c.showResult = false
	c.pending = false
}

func (c *StepController) advanceLocked(ctx context.Context, st ride.State, target ride.Step) (StepOutcome, error) {
	from := st.CurrentStepIndex
	if !from.CanTransitionTo(target) || target <= from {
		return c.outcomeLocked(st), apperror.NewInvalidStateError(from.String(), target.String())
	}

	switch target {
	case ride.StepSelectVehicle:
		if len(st.AvailableVehicles) == 0 {
			return c.outcomeLocked(st), apperror.NewValidationError(ride.MsgQuoteRequired)
		}
	case ride.StepPayment:
		if err := ride.ValidateAdvanceToPayment(st); err != nil {
			return c.outcomeLocked(st), err
		}
		if !c.auth.Authenticated() {
			c.pending = true
			c.surface.PromptReauth("sign in to continue to payment")
			out := c.outcomeLocked(st)
			out.Deferred = true
			return out, nil
		}
	}

	c.pending = false
	c.formActive = false
	c.store.SetStep(ctx, int(target))
	return c.outcomeLocked(c.store.Snapshot()), nil
}

func (c *StepController) leaveLocked(st ride.State) StepOutcome {
	c.formActive = false
	c.surface.Navigate(RouteHome)
	out := c.outcomeLocked(st)
	out.LeftFlow = true
	return out
}

func (c *StepController) outcomeLocked(st ride.State) StepOutcome {
	return StepOutcome{Step: st.CurrentStepIndex, Panel: c.panelLocked(st)}
}

func (c *StepController) panelLocked(st ride.State) ride.Panel {
	if c.showResult && st.BookingResult != nil {
		return ride.PanelResult
	}
	return ride.PanelFor(st.CurrentStepIndex, c.formActive)
}
