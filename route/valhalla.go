package route

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/twpayne/go-polyline"

	"github.com/theoremus-urban-solutions/ridenav/geo"
)

// Valhalla encodes shapes with six decimal digits.
var shapeCodec = polyline.Codec{Dim: 2, Scale: 1e6}

// Profile names accepted by Plan.
const (
	ProfileSafest   = "safest"
	ProfileFastest  = "fastest"
	ProfileBalanced = "balanced"
	ProfileScenic   = "scenic"
)

// Request asks the routing engine for a route between two points.
type Request struct {
	Origin      geo.Coordinate `json:"origin"`
	Destination geo.Coordinate `json:"destination"`
	Profile     string         `json:"profile" validate:"omitempty,oneof=safest fastest balanced scenic"`
	VehicleType string         `json:"vehicleType" validate:"omitempty,oneof=scooter bike ebike"`
	AvoidHills  bool           `json:"avoidHills"`
}

// ValhallaClient plans routes against a Valhalla /route endpoint.
type ValhallaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewValhallaClient creates a client for the engine at baseURL.
func NewValhallaClient(baseURL string, timeout time.Duration) *ValhallaClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ValhallaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type valhallaLocation struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Type string  `json:"type"`
}

type valhallaRequest struct {
	Locations         []valhallaLocation        `json:"locations"`
	Costing           string                    `json:"costing"`
	CostingOptions    map[string]map[string]any `json:"costing_options"`
	DirectionsOptions map[string]string         `json:"directions_options"`
	Format            string                    `json:"format"`
}

type valhallaSummary struct {
	Length float64 `json:"length"`
	Time   float64 `json:"time"`
}

type valhallaManeuver struct {
	Type            int      `json:"type"`
	Instruction     string   `json:"instruction"`
	Length          float64  `json:"length"`
	StreetNames     []string `json:"street_names"`
	BeginShapeIndex int      `json:"begin_shape_index"`
}

type valhallaResponse struct {
	Trip struct {
		Summary valhallaSummary `json:"summary"`
		Legs    []struct {
			Shape     string             `json:"shape"`
			Maneuvers []valhallaManeuver `json:"maneuvers"`
		} `json:"legs"`
	} `json:"trip"`
}

type valhallaError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error"`
}

// costingOptions reproduces the bicycle preferences per profile. AvoidHills
// sets the baseline hill preference; the safest, fastest and scenic profiles
// then replace it with their own values.
func costingOptions(req Request) map[string]any {
	bicycleType := "Hybrid"
	if req.VehicleType == "bike" {
		bicycleType = "Road"
	}
	useRoads, useHills, badSurfaces := 0.5, 0.5, 0.5
	if req.AvoidHills {
		useHills = 0.1
	}
	switch req.Profile {
	case ProfileSafest:
		useRoads, useHills, badSurfaces = 0.2, 0.3, 0.8
	case ProfileFastest:
		useRoads, useHills, badSurfaces = 0.7, 0.7, 0.3
	case ProfileScenic:
		useRoads, useHills, badSurfaces = 0.3, 0.4, 0.6
	}
	return map[string]any{
		"bicycle_type":       bicycleType,
		"use_roads":          useRoads,
		"use_hills":          useHills,
		"avoid_bad_surfaces": badSurfaces,
	}
}

func buildRequest(req Request) valhallaRequest {
	return valhallaRequest{
		Locations: []valhallaLocation{
			{Lat: req.Origin.Latitude, Lon: req.Origin.Longitude, Type: "break"},
			{Lat: req.Destination.Latitude, Lon: req.Destination.Longitude, Type: "break"},
		},
		Costing:           "bicycle",
		CostingOptions:    map[string]map[string]any{"bicycle": costingOptions(req)},
		DirectionsOptions: map[string]string{"units": "kilometers", "language": "en-US"},
		Format:            "json",
	}
}

// Plan requests a route and converts the response.
func (c *ValhallaClient) Plan(ctx context.Context, req Request) (*Route, error) {
	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to encode routing request: %w", err)
	}
	url := c.baseURL + "/route"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		var verr valhallaError
		if json.Unmarshal(data, &verr) == nil && verr.Code == 442 {
			return nil, ErrNoRoute
		}
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	return parseValhalla(data)
}

func parseValhalla(data []byte) (*Route, error) {
	var vr valhallaResponse
	if err := json.Unmarshal(data, &vr); err != nil {
		return nil, fmt.Errorf("failed to decode routing response: %w", err)
	}
	if len(vr.Trip.Legs) == 0 {
		return nil, ErrNoRoute
	}

	r := &Route{
		ID: uuid.NewString(),
		Summary: Summary{
			DistanceMeters:  vr.Trip.Summary.Length * 1000,
			DurationSeconds: vr.Trip.Summary.Time,
		},
	}
	for i, leg := range vr.Trip.Legs {
		coords, _, err := shapeCodec.DecodeCoords([]byte(leg.Shape))
		if err != nil {
			return nil, fmt.Errorf("failed to decode shape of leg %d: %w", i, err)
		}
		offset := len(r.Polyline)
		for _, c := range coords {
			r.Polyline = append(r.Polyline, geo.Coordinate{Latitude: c[0], Longitude: c[1]})
		}
		for _, m := range leg.Maneuvers {
			idx := offset + m.BeginShapeIndex
			if idx >= len(r.Polyline) {
				idx = len(r.Polyline) - 1
			}
			var loc geo.Coordinate
			if idx >= 0 {
				loc = r.Polyline[idx]
			}
			var street string
			if len(m.StreetNames) > 0 {
				street = m.StreetNames[0]
			}
			r.Maneuvers = append(r.Maneuvers, Maneuver{
				Kind:           KindFromValhalla(m.Type),
				Location:       loc,
				DistanceMeters: m.Length * 1000,
				StreetName:     street,
				Instruction:    m.Instruction,
			})
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
