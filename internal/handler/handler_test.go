package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Kilat-Ride/service-ride-booking/internal/application"
	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/operator"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/auth"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/response"
	"github.com/Kilat-Ride/service-ride-booking/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var cityRide = ride.Service{ID: 1, Name: "City ride", SupportedRideTypes: []int{1}}

// operatorStub is a minimal operator API. Points with a latitude above 50
// are outside the service area.
type operatorStub struct {
	expired atomic.Bool
}

func (o *operatorStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flag := ride.FlagSuccess
	var data interface{}

	switch r.URL.Path {
	case "/api" + session.EndpointAuthorization.Path:
		data = session.Pair{SessionID: "sys", SessionIdentifier: "sys-ident"}
	case "/api" + session.EndpointVerifySession.Path, "/api" + session.EndpointGenerateOTP.Path:
	case "/api" + session.EndpointVerifyOTP.Path:
		data = map[string]interface{}{
			"session_id":         "usr",
			"session_identifier": "usr-ident",
			"customer":           ride.Customer{Name: "Ana", Phone: "5550100", CountryCode: "+1"},
		}
	case "/api" + session.EndpointProfile.Path:
		data = ride.Customer{Name: "Ana", Phone: "5550100", CountryCode: "+1"}
	case "/api" + session.EndpointOperatorConfig.Path:
		data = map[string]string{"currency": "USD"}
	case "/api" + session.EndpointServices.Path:
		data = []ride.Service{cityRide}
	case "/api" + session.EndpointServiceArea.Path:
		var req operator.ServiceAreaRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Latitude > 50 {
			flag = ride.FlagOutOfServiceArea
		}
	case "/api" + session.EndpointFareVehicles.Path:
		data = map[string]interface{}{"regions": []ride.VehicleRegion{
			{RegionID: 10, RegionName: "Sedan", RideType: 1},
		}}
	default:
		http.NotFound(w, r)
		return
	}
	if o.expired.Load() {
		flag = ride.FlagSessionExpired
	}

	raw, _ := json.Marshal(data)
	_ = json.NewEncoder(w).Encode(operator.Envelope{Flag: flag, Message: "stub", Data: raw})
}

type straightRoutes struct{}

func (straightRoutes) CalculateRoute(_ context.Context, _, _ ride.Location, _ []ride.Location) (*ride.Route, error) {
	return &ride.Route{DistanceMeters: 9000, DurationSeconds: 900}, nil
}

type testServer struct {
	router *gin.Engine
	op     *operatorStub
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	op := &operatorStub{}
	upstream := httptest.NewServer(op)
	t.Cleanup(upstream.Close)

	registry, err := application.NewRegistry(application.RegistryConfig{
		OperatorBaseURL: upstream.URL + "/api",
		OperatorTimeout: 5 * time.Second,
		SafeRoutes:      []string{application.RouteHome},
		ExpiryCooldown:  time.Minute,
		RequoteDebounce: time.Hour,
	}, application.RegistryDeps{
		Routes:        straightRoutes{},
		BaseTransport: upstream.Client().Transport,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(registry.Close)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	router := gin.New()
	NewDeviceHandler(registry, jwtManager, zap.NewNop()).RegisterRoutes(&router.RouterGroup)
	NewBookingHandler(registry).RegisterRoutes(&router.RouterGroup, jwtManager)
	NewAuthHandler(registry).RegisterRoutes(&router.RouterGroup, jwtManager)

	s := &testServer{router: router, op: op}
	rec := s.do(t, http.MethodPost, "/api/v1/devices", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var dev DeviceResponse
	decodeData(t, rec, &dev)
	require.NotEmpty(t, dev.Token)
	s.token = dev.Token
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var body struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(body.Data, out))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.Body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error, rec.Body.String())
	return body.Error.Code
}

func loc(address string, lat, lng float64) map[string]interface{} {
	return map[string]interface{}{"address": address, "lat": lat, "lng": lng}
}

func TestBookingRoutes_RequireDeviceToken(t *testing.T) {
	s := newTestServer(t)
	s.token = ""

	rec := s.do(t, http.MethodGet, "/api/v1/booking", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.token = "forged"
	rec = s.do(t, http.MethodGet, "/api/v1/booking", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookingFlow_QuoteSignInAndAdvance(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/v1/booking/pickup", loc("Main St", 40.0, -73.9))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPut, "/api/v1/booking/dropoff", loc("Harbor", 40.1, -74.0))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPut, "/api/v1/booking/service", map[string]int{"service_id": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/booking/quote", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view application.BookingView
	decodeData(t, rec, &view)
	assert.Equal(t, ride.StepSelectVehicle, view.State.CurrentStepIndex)
	require.Len(t, view.State.AvailableVehicles, 1)

	rec = s.do(t, http.MethodPut, "/api/v1/booking/region", map[string]int{"region_id": 10})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/booking/next", nil)
	require.Equal(t, http.StatusAccepted, rec.Code, "waits for sign-in")
	var step StepResponse
	decodeData(t, rec, &step)
	assert.True(t, step.Outcome.Deferred)
	assert.True(t, step.Booking.Surface.AuthRequired)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/verify", map[string]string{
		"phone": "5550100", "country_code": "+1", "otp": "1234",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var signIn SignInResponse
	decodeData(t, rec, &signIn)
	assert.Equal(t, ride.StepPayment, signIn.Booking.State.CurrentStepIndex)
	assert.False(t, signIn.Booking.Surface.AuthRequired)
	assert.Equal(t, "Ana", signIn.Booking.State.Passenger.Customer.Name)
}

func TestBookingRoutes_OutOfServiceArea(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/v1/booking/pickup", loc("Far away", 60.0, -73.9))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "out_of_service_area", errorCode(t, rec))

	rec = s.do(t, http.MethodGet, "/api/v1/booking", nil)
	var view application.BookingView
	decodeData(t, rec, &view)
	assert.Nil(t, view.State.Pickup)
}

func TestBookingRoutes_BadRequests(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/v1/booking/pickup", map[string]string{"address": "no coordinates"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/booking/step/two", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/booking/step/2", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "cannot skip steps")

	rec = s.do(t, http.MethodPost, "/api/v1/booking/next", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no vehicles yet")
}

func TestBookingRoutes_BackOnMobileLeavesFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/booking/back", map[string]bool{"mobile": true})
	require.Equal(t, http.StatusOK, rec.Code)
	var step StepResponse
	decodeData(t, rec, &step)
	assert.False(t, step.Outcome.LeftFlow)
	assert.True(t, step.Booking.FormActive)

	rec = s.do(t, http.MethodPost, "/api/v1/booking/back", map[string]bool{"mobile": true})
	decodeData(t, rec, &step)
	assert.True(t, step.Outcome.LeftFlow)
	assert.Equal(t, application.RouteHome, step.Booking.Surface.Route)
}

func TestAuthRoutes_ExpiryKeepsDraft(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/auth/verify", map[string]string{
		"phone": "5550100", "country_code": "+1", "otp": "1234",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPut, "/api/v1/booking/pickup", loc("Main St", 40.0, -73.9))
	require.Equal(t, http.StatusOK, rec.Code)

	s.op.expired.Store(true)
	rec = s.do(t, http.MethodGet, "/api/v1/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "session_expired", errorCode(t, rec))

	s.op.expired.Store(false)
	rec = s.do(t, http.MethodGet, "/api/v1/booking", nil)
	var view application.BookingView
	decodeData(t, rec, &view)
	assert.False(t, view.Authenticated)
	assert.True(t, view.Surface.AuthRequired)
	require.NotNil(t, view.State.Pickup)
	assert.Equal(t, "Main St", view.State.Pickup.Address)

	rec = s.do(t, http.MethodGet, "/api/v1/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "profile needs a user session")
}

func TestAuthRoutes_Logout(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/v1/booking/pickup", loc("Main St", 40.0, -73.9))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view application.BookingView
	decodeData(t, rec, &view)
	assert.Nil(t, view.State.Pickup)
	assert.Equal(t, application.RouteHome, view.Surface.Route)
}

func TestOperatorConfigRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/operator/config", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var settings map[string]string
	decodeData(t, rec, &settings)
	assert.Equal(t, "USD", settings["currency"])
}

func TestBookingRoutes_RefreshWithoutResult(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/booking/result/refresh", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthRoutes(t *testing.T) {
	router := gin.New()
	NewHealthHandler(nil, "service-ride-booking").RegisterRoutes(router)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
