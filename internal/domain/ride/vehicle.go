package ride

// ServiceTypeAirport marks services that require a flight number.
const ServiceTypeAirport = "airport_taxi"

// RegionFare is the price of a vehicle region for the quoted route.
type RegionFare struct {
	FareFloat         float64 `json:"fare_float"`
	OriginalFareFloat float64 `json:"original_fare_float"`
	CurrencySymbol    string  `json:"currency_symbol"`
}

// VehicleService is an add-on offered by a vehicle region.
type VehicleService struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// VehicleRegion is a priced vehicle class returned by fare discovery.
// It is a read-only snapshot of one quote.
type VehicleRegion struct {
	RegionID        int              `json:"region_id"`
	RegionName      string           `json:"region_name"`
	RideType        int              `json:"ride_type"`
	MaxPeople       int              `json:"max_people"`
	Images          []string         `json:"images"`
	RegionFare      RegionFare       `json:"region_fare"`
	VehicleServices []VehicleService `json:"vehicle_services"`
}

// Service is a bookable service line (city ride, airport transfer, ...).
type Service struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	Type               string `json:"type"`
	SupportedRideTypes []int  `json:"supported_ride_type"`
}

// IsAirport reports whether the service needs a flight number.
func (s Service) IsAirport() bool { return s.Type == ServiceTypeAirport }

// Supports reports whether rideType is in the supported set.
func (s Service) Supports(rideType int) bool {
	for _, t := range s.SupportedRideTypes {
		if t == rideType {
			return true
		}
	}
	return false
}

// ServiceOption is an extra the rider adds to the booking (child seat, ...).
type ServiceOption struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Coupon is a promotion applied to the booking.
type Coupon struct {
	Code        string  `json:"code"`
	Description string  `json:"description,omitempty"`
	Discount    float64 `json:"discount,omitempty"`
}
