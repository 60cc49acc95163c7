package ride

import (
	"time"

	"github.com/Kilat-Ride/service-ride-booking/internal/platform/apperror"
)

// Validation messages shown to the rider.
const (
	MsgPickupRequired       = "Pickup location is required"
	MsgDropoffRequired      = "Drop location is required"
	MsgSameLocation         = "Pickup and drop locations cannot be the same"
	MsgFlightNumberRequired = "Flight number is required for airport rides"
	MsgVehicleRequired      = "Please select a vehicle"
	MsgServiceRequired      = "Please select a service"
	MsgReturnBeforePickup   = "Return time must be after the pickup time"
	MsgScheduleInPast       = "Scheduled time must be in the future"
	MsgPaymentRequired      = "Please select a payment method"
	MsgCardRequired         = "Please select a card"
	MsgCustomerRequired     = "Passenger name and phone are required"
	MsgQuoteRequired        = "Please search for available vehicles first"
	MsgNoRoute              = "No route found between the selected locations"
)

// ValidateLocations checks the pickup/drop pair before a quote.
func ValidateLocations(s State) error {
	if s.Pickup == nil || !s.Pickup.HasCoordinates() {
		return apperror.NewValidationError(MsgPickupRequired)
	}
	if s.Dropoff == nil || !s.Dropoff.HasCoordinates() {
		return apperror.NewValidationError(MsgDropoffRequired)
	}
	if s.Pickup.SamePlace(*s.Dropoff) {
		return apperror.NewValidationError(MsgSameLocation)
	}
	return nil
}

// ValidateSchedule checks the scheduled and return times against now.
func ValidateSchedule(s State, now time.Time) error {
	if s.ScheduledDateTime != nil && !s.ScheduledDateTime.After(now) {
		return apperror.NewValidationError(MsgScheduleInPast)
	}
	if s.ReturnDateTime != nil {
		start := now
		if s.ScheduledDateTime != nil {
			start = *s.ScheduledDateTime
		}
		if !s.ReturnDateTime.After(start) {
			return apperror.NewValidationError(MsgReturnBeforePickup)
		}
	}
	return nil
}

// ValidateAdvanceToPayment is the 1→2 gate shared by every UI affordance.
// Authentication is checked separately because it defers rather than blocks.
func ValidateAdvanceToPayment(s State) error {
	if s.SelectedRegion == nil {
		return apperror.NewValidationError(MsgVehicleRequired)
	}
	if s.SelectedService != nil && s.SelectedService.IsAirport() && s.Passenger.FlightNumber == "" {
		return apperror.NewValidationError(MsgFlightNumberRequired)
	}
	return nil
}

// ValidateForSubmission runs every blocking check before a ride request.
func ValidateForSubmission(s State, now time.Time) error {
	if err := ValidateLocations(s); err != nil {
		return err
	}
	if s.SelectedService == nil {
		return apperror.NewValidationError(MsgServiceRequired)
	}
	if err := ValidateSchedule(s, now); err != nil {
		return err
	}
	if err := ValidateAdvanceToPayment(s); err != nil {
		return err
	}
	if _, ok := s.SelectedVehicle(); !ok {
		return apperror.NewValidationError(MsgVehicleRequired)
	}
	if s.Passenger.Customer.Name == "" || s.Passenger.Customer.Phone == "" {
		return apperror.NewValidationError(MsgCustomerRequired)
	}
	switch s.Payment.Method {
	case PaymentNone:
		return apperror.NewValidationError(MsgPaymentRequired)
	case PaymentCard:
		if s.Payment.CardID == "" {
			return apperror.NewValidationError(MsgCardRequired)
		}
	case PaymentSquare:
		if s.Payment.SquareCardID == "" {
			return apperror.NewValidationError(MsgCardRequired)
		}
	}
	return nil
}
