package ride

import "time"

// PaymentMethod identifies how the rider pays.
type PaymentMethod string

const (
	PaymentNone   PaymentMethod = ""
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentSquare PaymentMethod = "square_card"
	PaymentWallet PaymentMethod = "wallet"
)

// IsValid returns true if the payment method is recognized.
func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentSquare, PaymentWallet:
		return true
	}
	return false
}

// Customer holds the passenger contact details.
type Customer struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	CountryCode string `json:"country_code"`
}

// Passenger groups the passenger extras kept with the draft.
type Passenger struct {
	Customer     Customer `json:"customer"`
	FlightNumber string   `json:"flight_number,omitempty"`
	DriverNote   string   `json:"driver_note,omitempty"`
	LuggageCount int      `json:"luggage_count"`
}

// Payment is the rider's payment selection.
type Payment struct {
	Method       PaymentMethod `json:"method"`
	CardID       string        `json:"card_id,omitempty"`
	SquareCardID string        `json:"square_card_id,omitempty"`
}

// BookingResult is the outcome of a ride submission. It is always recorded,
// whether the submission succeeded or not.
type BookingResult struct {
	Success     bool      `json:"success"`
	RideID      string    `json:"ride_id,omitempty"`
	Status      string    `json:"status,omitempty"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// State is a point-in-time copy of the whole in-progress booking.
type State struct {
	Pickup            *Location       `json:"pickup"`
	Dropoff           *Location       `json:"dropoff"`
	Stops             Stops           `json:"stops"`
	ScheduledDateTime *time.Time      `json:"scheduled_date_time,omitempty"`
	ReturnDateTime    *time.Time      `json:"return_date_time,omitempty"`
	TimezoneOffset    int             `json:"timezone_offset"`
	SelectedRegion    *int            `json:"selected_region,omitempty"`
	AvailableVehicles []VehicleRegion `json:"available_vehicles"`
	SelectedService   *Service        `json:"selected_service,omitempty"`
	SelectedServices  []ServiceOption `json:"selected_services"`
	AppliedCoupon     *Coupon         `json:"applied_coupon,omitempty"`
	Passenger         Passenger       `json:"passenger"`
	Payment           Payment         `json:"payment"`
	Route             *Route          `json:"route,omitempty"`
	BookingResult     *BookingResult  `json:"booking_result,omitempty"`
	FareQuoteError    string          `json:"fare_quote_error,omitempty"`
	CurrentStepIndex  Step            `json:"current_step_index"`
	Dirty             bool            `json:"dirty"`
}

// IsScheduled reports whether the ride is booked for a future time.
func (s State) IsScheduled() bool { return s.ScheduledDateTime != nil }

// SelectedVehicle returns the available vehicle matching SelectedRegion.
func (s State) SelectedVehicle() (VehicleRegion, bool) {
	if s.SelectedRegion == nil {
		return VehicleRegion{}, false
	}
	for _, v := range s.AvailableVehicles {
		if v.RegionID == *s.SelectedRegion {
			return v, true
		}
	}
	return VehicleRegion{}, false
}

// Draft is the subset of State that survives reloads.
type Draft struct {
	Pickup            *Location       `json:"pickup,omitempty"`
	Dropoff           *Location       `json:"dropoff,omitempty"`
	Stops             Stops           `json:"stops,omitempty"`
	ScheduledDateTime *time.Time      `json:"scheduled_date_time,omitempty"`
	ReturnDateTime    *time.Time      `json:"return_date_time,omitempty"`
	TimezoneOffset    int             `json:"timezone_offset"`
	SelectedRegion    *int            `json:"selected_region,omitempty"`
	SelectedService   *Service        `json:"selected_service,omitempty"`
	SelectedServices  []ServiceOption `json:"selected_services,omitempty"`
	AppliedCoupon     *Coupon         `json:"applied_coupon,omitempty"`
	Passenger         Passenger       `json:"passenger"`
	Payment           Payment         `json:"payment"`
}

// Draft extracts the persisted subset of s.
func (s State) Draft() Draft {
	return Draft{
		Pickup:            s.Pickup,
		Dropoff:           s.Dropoff,
		Stops:             s.Stops,
		ScheduledDateTime: s.ScheduledDateTime,
		ReturnDateTime:    s.ReturnDateTime,
		TimezoneOffset:    s.TimezoneOffset,
		SelectedRegion:    s.SelectedRegion,
		SelectedService:   s.SelectedService,
		SelectedServices:  s.SelectedServices,
		AppliedCoupon:     s.AppliedCoupon,
		Passenger:         s.Passenger,
		Payment:           s.Payment,
	}
}

// Restore builds a fresh State from a persisted draft. Derived fields
// (vehicles, route, result) are not persisted and start empty.
func (d Draft) Restore() State {
	return State{
		Pickup:            d.Pickup,
		Dropoff:           d.Dropoff,
		Stops:             d.Stops.reindexed(),
		ScheduledDateTime: d.ScheduledDateTime,
		ReturnDateTime:    d.ReturnDateTime,
		TimezoneOffset:    d.TimezoneOffset,
		SelectedRegion:    d.SelectedRegion,
		SelectedService:   d.SelectedService,
		SelectedServices:  d.SelectedServices,
		AppliedCoupon:     d.AppliedCoupon,
		Passenger:         d.Passenger,
		Payment:           d.Payment,
		CurrentStepIndex:  StepEnterDetails,
	}
}
