package operator

import (
	"context"
	"time"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/session"
)

type pairData struct {
	SessionID         string `json:"session_id"`
	SessionIdentifier string `json:"session_identifier"`
}

func (p pairData) pair() session.Pair {
	return session.Pair{SessionID: p.SessionID, SessionIdentifier: p.SessionIdentifier}
}

// Authorize obtains the system session pair.
func (c *Client) Authorize(ctx context.Context) (session.Pair, error) {
	var data pairData
	err := c.Call(ctx, session.EndpointAuthorization, map[string]string{"client_key": c.clientKey}, &data)
	return data.pair(), err
}

// VerifySession asks the operator whether the current session is still valid.
func (c *Client) VerifySession(ctx context.Context) error {
	return c.Call(ctx, session.EndpointVerifySession, struct{}{}, nil)
}

// OperatorConfig returns the operator's public settings.
func (c *Client) OperatorConfig(ctx context.Context) (map[string]interface{}, error) {
	var cfg map[string]interface{}
	err := c.Call(ctx, session.EndpointOperatorConfig, struct{}{}, &cfg)
	return cfg, err
}

// PhoneRequest identifies a rider's phone number.
type PhoneRequest struct {
	Phone       string `json:"phone"`
	CountryCode string `json:"country_code"`
}

// GenerateOTP sends a one-time code to the phone number.
func (c *Client) GenerateOTP(ctx context.Context, req PhoneRequest) error {
	return c.Call(ctx, session.EndpointGenerateOTP, req, nil)
}

// VerifyOTPRequest carries the code the rider typed.
type VerifyOTPRequest struct {
	PhoneRequest
	Code string `json:"otp"`
}

// VerifyOTPResult is the user session issued after phone verification.
type VerifyOTPResult struct {
	Pair     session.Pair
	Customer ride.Customer
}

// VerifyOTP exchanges a one-time code for a user session pair.
func (c *Client) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (VerifyOTPResult, error) {
	var data struct {
		pairData
		Customer ride.Customer `json:"customer"`
	}
	if err := c.Call(ctx, session.EndpointVerifyOTP, req, &data); err != nil {
		return VerifyOTPResult{}, err
	}
	return VerifyOTPResult{Pair: data.pair(), Customer: data.Customer}, nil
}

// Profile returns the signed-in rider.
func (c *Client) Profile(ctx context.Context) (ride.Customer, error) {
	var cust ride.Customer
	err := c.Call(ctx, session.EndpointProfile, struct{}{}, &cust)
	return cust, err
}

// Services lists the bookable services.
func (c *Client) Services(ctx context.Context) ([]ride.Service, error) {
	var services []ride.Service
	err := c.Call(ctx, session.EndpointServices, struct{}{}, &services)
	return services, err
}

// ValidateCoupon checks a coupon code for the service.
func (c *Client) ValidateCoupon(ctx context.Context, code string, serviceID int) (ride.Coupon, error) {
	coupon := ride.Coupon{Code: code}
	err := c.Call(ctx, session.EndpointCouponValidate, map[string]interface{}{
		"code":       code,
		"service_id": serviceID,
	}, &coupon)
	return coupon, err
}

// ServiceAreaRequest is one point to check against the service boundary.
type ServiceAreaRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CheckServiceArea returns the raw envelope; callers interpret the flag.
func (c *Client) CheckServiceArea(ctx context.Context, p ride.LatLng) (*Envelope, error) {
	return c.CallRaw(ctx, session.EndpointServiceArea, ServiceAreaRequest{Latitude: p.Lat, Longitude: p.Lng})
}

// VehicleRequest asks for priced vehicle regions on a route.
type VehicleRequest struct {
	Pickup            ride.Location   `json:"pickup"`
	Drop              ride.Location   `json:"drop"`
	Stops             []ride.Location `json:"stops,omitempty"`
	RideTime          int             `json:"rideTime"`
	RideDistance      float64         `json:"rideDistance"`
	ServiceID         int             `json:"serviceId"`
	ScheduledFareFlow bool            `json:"scheduledFareFlow"`
	RideDateTime      *time.Time      `json:"rideDateTime,omitempty"`
	TimezoneOffset    int             `json:"timezoneOffset"`
}

// FindVehicles requests priced vehicle regions.
func (c *Client) FindVehicles(ctx context.Context, req VehicleRequest) ([]ride.VehicleRegion, error) {
	var data struct {
		Regions []ride.VehicleRegion `json:"regions"`
	}
	if err := c.Call(ctx, session.EndpointFareVehicles, req, &data); err != nil {
		return nil, err
	}
	return data.Regions, nil
}

// RideRequest is the submitted booking.
type RideRequest struct {
	Pickup           ride.Location        `json:"pickup"`
	Drop             ride.Location        `json:"drop"`
	Stops            []ride.Location      `json:"stops,omitempty"`
	RegionID         int                  `json:"region_id"`
	ServiceID        int                  `json:"service_id"`
	SelectedServices []ride.ServiceOption `json:"selected_services,omitempty"`
	CouponCode       string               `json:"coupon_code,omitempty"`
	ScheduledAt      *time.Time           `json:"scheduled_at,omitempty"`
	ReturnAt         *time.Time           `json:"return_at,omitempty"`
	TimezoneOffset   int                  `json:"timezone_offset"`
	Customer         ride.Customer        `json:"customer"`
	FlightNumber     string               `json:"flight_number,omitempty"`
	DriverNote       string               `json:"driver_note,omitempty"`
	LuggageCount     int                  `json:"luggage_count"`
	PaymentMethod    ride.PaymentMethod   `json:"payment_method"`
	CardID           string               `json:"card_id,omitempty"`
	SquareCardID     string               `json:"square_card_id,omitempty"`
	RideTime         int                  `json:"ride_time"`
	RideDistance     float64              `json:"ride_distance"`
}

// RideReceipt is the operator's answer to a ride request.
type RideReceipt struct {
	RideID string `json:"ride_id"`
	Status string `json:"status"`
}

// SubmitRide books the ride. It requires a user session.
func (c *Client) SubmitRide(ctx context.Context, req RideRequest) (RideReceipt, error) {
	var receipt RideReceipt
	err := c.Call(ctx, session.EndpointRideRequest, req, &receipt)
	return receipt, err
}

// RideStatus returns the current status of a submitted ride.
func (c *Client) RideStatus(ctx context.Context, rideID string) (string, error) {
	var data struct {
		Status string `json:"status"`
	}
	err := c.Call(ctx, session.EndpointRideStatus, map[string]string{"ride_id": rideID}, &data)
	return data.Status, err
}
