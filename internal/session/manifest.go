package session

import "fmt"

// Class selects which credential pair a request carries.
type Class int

const (
	// ClassAuto attaches the user pair when present, else the system pair.
	ClassAuto Class = iota
	// ClassSystemOnly always attaches the system pair.
	ClassSystemOnly
	// ClassUserRequired attaches the user pair or refuses to dispatch.
	ClassUserRequired
)

func (c Class) String() string {
	switch c {
	case ClassAuto:
		return "auto"
	case ClassSystemOnly:
		return "system_only"
	case ClassUserRequired:
		return "user_required"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Endpoint is an operator API route together with its credential class.
// Declaring an endpoint without a class is not possible.
type Endpoint struct {
	Path  string
	Class Class
}

func (e Endpoint) String() string { return e.Path }

// Operator API endpoints.
var (
	EndpointAuthorization  = Endpoint{"/customer/authorization", ClassSystemOnly}
	EndpointVerifySession  = Endpoint{"/customer/verify_session", ClassSystemOnly}
	EndpointOperatorConfig = Endpoint{"/customer/operator_config", ClassSystemOnly}
	EndpointGenerateOTP    = Endpoint{"/customer/otp/generate", ClassSystemOnly}
	EndpointVerifyOTP      = Endpoint{"/customer/otp/verify", ClassSystemOnly}
	EndpointCardSetup      = Endpoint{"/customer/card/setup", ClassSystemOnly}
	EndpointCardConfirm    = Endpoint{"/customer/card/confirm", ClassSystemOnly}
	EndpointCardDelete     = Endpoint{"/customer/card/delete", ClassSystemOnly}

	EndpointProfile       = Endpoint{"/customer/profile", ClassUserRequired}
	EndpointProfileUpdate = Endpoint{"/customer/profile/update", ClassUserRequired}
	EndpointRideRequest   = Endpoint{"/customer/ride/request", ClassUserRequired}
	EndpointCardAdd       = Endpoint{"/customer/card/add", ClassUserRequired}
	EndpointWalletBalance = Endpoint{"/customer/wallet/balance", ClassUserRequired}

	EndpointServiceArea    = Endpoint{"/customer/service_area/check", ClassAuto}
	EndpointFareVehicles   = Endpoint{"/customer/fare/vehicles", ClassAuto}
	EndpointServices       = Endpoint{"/customer/services", ClassAuto}
	EndpointCouponValidate = Endpoint{"/customer/coupon/validate", ClassAuto}
	EndpointRideHistory    = Endpoint{"/customer/ride/history", ClassAuto}
	EndpointRideStatus     = Endpoint{"/customer/ride/status", ClassAuto}
)

// Manifest lists every endpoint the client may call.
var Manifest = []Endpoint{
	EndpointAuthorization,
	EndpointVerifySession,
	EndpointOperatorConfig,
	EndpointGenerateOTP,
	EndpointVerifyOTP,
	EndpointCardSetup,
	EndpointCardConfirm,
	EndpointCardDelete,
	EndpointProfile,
	EndpointProfileUpdate,
	EndpointRideRequest,
	EndpointCardAdd,
	EndpointWalletBalance,
	EndpointServiceArea,
	EndpointFareVehicles,
	EndpointServices,
	EndpointCouponValidate,
	EndpointRideHistory,
	EndpointRideStatus,
}

var byPath = indexManifest(Manifest)

func indexManifest(endpoints []Endpoint) map[string]Endpoint {
	idx := make(map[string]Endpoint, len(endpoints))
	for _, e := range endpoints {
		if _, dup := idx[e.Path]; dup {
			panic(fmt.Sprintf("session: endpoint %s declared twice", e.Path))
		}
		idx[e.Path] = e
	}
	return idx
}

// Lookup returns the declared endpoint for an exact path.
func Lookup(path string) (Endpoint, bool) {
	e, ok := byPath[path]
	return e, ok
}
