package operator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"github.com/Kilat-Ride/service-ride-booking/internal/platform/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api", "key-1", srv.Client(), zap.NewNop())
}

func reply(w http.ResponseWriter, flag int, msg string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	raw, _ := json.Marshal(data)
	_ = json.NewEncoder(w).Encode(Envelope{Flag: flag, Message: msg, Data: raw})
}

func TestClient_FlagInterpretation(t *testing.T) {
	for _, tc := range []struct {
		name string
		flag int
		kind apperror.Kind
	}{
		{"session expired", ride.FlagSessionExpired, apperror.KindSessionExpired},
		{"out of service area", ride.FlagOutOfServiceArea, apperror.KindOutOfArea},
		{"unknown flag", 150, apperror.KindUpstream},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				reply(w, tc.flag, "", nil)
			})
			_, err := c.Services(context.Background())
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperror.KindOf(err))
		})
	}
}

func TestClient_FindVehicles(t *testing.T) {
	var got VehicleRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/customer/fare/vehicles", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		reply(w, ride.FlagSuccess, "ok", map[string]interface{}{
			"regions": []ride.VehicleRegion{{RegionID: 7, RegionName: "Sedan", RideType: 1}},
		})
	})

	regions, err := c.FindVehicles(context.Background(), VehicleRequest{
		RideTime:     15,
		RideDistance: 9.0,
		ServiceID:    3,
	})
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, 7, regions[0].RegionID)
	assert.Equal(t, 15, got.RideTime)
	assert.Equal(t, 9.0, got.RideDistance)
}

func TestClient_HTTPErrorIsUpstream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Profile(context.Background())
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))
}

func TestClient_TransportErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(srv.URL, "", http.DefaultClient, zap.NewNop())

	_, err := c.CheckServiceArea(context.Background(), ride.LatLng{Lat: 1, Lng: 1})
	assert.Equal(t, apperror.KindUnavailable, apperror.KindOf(err))
}

func TestClient_CheckServiceAreaReturnsRawFlag(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ServiceAreaRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, 40.1, req.Latitude)
		reply(w, ride.FlagOutOfServiceArea, "outside", nil)
	})
	env, err := c.CheckServiceArea(context.Background(), ride.LatLng{Lat: 40.1, Lng: -74.0})
	require.NoError(t, err)
	assert.Equal(t, ride.FlagOutOfServiceArea, env.Flag)
}
