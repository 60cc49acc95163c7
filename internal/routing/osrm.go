package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Kilat-Ride/service-ride-booking/internal/domain/ride"
	"go.uber.org/zap"
)

type osrmResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Legs     []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"legs"`
	Geometry struct {
		Coordinates [][2]float64 `json:"coordinates"`
	} `json:"geometry"`
}

// OSRMEngine talks to an OSRM server. The route service keeps waypoints in
// the order given, so it never reorders stops.
type OSRMEngine struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOSRMEngine creates an engine for the OSRM server at baseURL.
func NewOSRMEngine(baseURL string, httpClient *http.Client, logger *zap.Logger) *OSRMEngine {
	return &OSRMEngine{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Directions implements Engine.
func (e *OSRMEngine) Directions(ctx context.Context, req DirectionsRequest) (*Directions, error) {
	if req.OptimizeWaypoints {
		return nil, ErrOptimizationUnsupported
	}

	coords := make([]string, 0, len(req.Waypoints)+2)
	coords = append(coords, lngLat(req.Origin))
	for _, w := range req.Waypoints {
		coords = append(coords, lngLat(w.Point))
	}
	coords = append(coords, lngLat(req.Destination))

	url := fmt.Sprintf("%s/route/v1/driving/%s?overview=full&geometries=geojson&steps=false&alternatives=false",
		e.baseURL, strings.Join(coords, ";"))
	if len(req.Waypoints) > 0 {
		url += "&waypoints=" + stopoverIndexes(req.Waypoints)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call OSRM API: %w", err)
	}
	defer resp.Body.Close()

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode OSRM response: %w", err)
	}

	switch {
	case body.Code == "NoRoute" || (body.Code == "Ok" && len(body.Routes) == 0):
		e.logger.Info("no route found", zap.Int("points", len(coords)))
		return nil, nil
	case resp.StatusCode != http.StatusOK || body.Code != "Ok":
		return nil, fmt.Errorf("OSRM API returned status %d (%s)", resp.StatusCode, body.Code)
	}

	r := body.Routes[0]
	out := &Directions{
		Legs: make([]Leg, 0, len(r.Legs)),
		Path: make([]ride.LatLng, 0, len(r.Geometry.Coordinates)),
	}
	for _, l := range r.Legs {
		out.Legs = append(out.Legs, Leg{DistanceMeters: l.Distance, DurationSeconds: l.Duration})
	}
	for _, c := range r.Geometry.Coordinates {
		out.Path = append(out.Path, ride.LatLng{Lat: c[1], Lng: c[0]})
	}
	return out, nil
}

func lngLat(p ride.LatLng) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lng, p.Lat)
}

// stopoverIndexes lists the coordinate indexes that end a leg. Pass-through
// waypoints are left out so OSRM routes through them without splitting.
func stopoverIndexes(ws []Waypoint) string {
	idx := []string{"0"}
	for i, w := range ws {
		if w.Stopover {
			idx = append(idx, fmt.Sprint(i+1))
		}
	}
	idx = append(idx, fmt.Sprint(len(ws)+1))
	return strings.Join(idx, ";")
}
