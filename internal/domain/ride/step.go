package ride

import "fmt"

// Step is the position of the booking wizard.
type Step int

const (
	StepEnterDetails  Step = 0
	StepSelectVehicle Step = 1
	StepPayment       Step = 2
)

// validTransitions defines the wizard's step machine.
var validTransitions = map[Step][]Step{
	StepEnterDetails:  {StepSelectVehicle},
	StepSelectVehicle: {StepPayment, StepEnterDetails},
	StepPayment:       {StepSelectVehicle},
}

// ClampStep forces i into the valid step range.
func ClampStep(i int) Step {
	switch {
	case i < int(StepEnterDetails):
		return StepEnterDetails
	case i > int(StepPayment):
		return StepPayment
	default:
		return Step(i)
	}
}

// IsValid returns true if the step is one of the wizard's steps.
func (s Step) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo reports whether a direct move from s to target is allowed.
func (s Step) CanTransitionTo(target Step) bool {
	if s == target {
		return true
	}
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsBackward reports whether target is an earlier step.
func (s Step) IsBackward(target Step) bool { return target < s }

func (s Step) String() string {
	switch s {
	case StepEnterDetails:
		return "enter_details"
	case StepSelectVehicle:
		return "select_vehicle"
	case StepPayment:
		return "payment"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Panel is the view the rider currently sees.
type Panel string

const (
	PanelLocationForm Panel = "location_form"
	PanelVehicleList  Panel = "vehicle_list"
	PanelPayment      Panel = "payment"
	PanelResult       Panel = "result"
)

// PanelFor returns the panel shown for step. formActive overlays the
// location form on small screens.
func PanelFor(step Step, formActive bool) Panel {
	if formActive && step != StepPayment {
		return PanelLocationForm
	}
	switch step {
	case StepSelectVehicle:
		return PanelVehicleList
	case StepPayment:
		return PanelPayment
	default:
		return PanelLocationForm
	}
}
