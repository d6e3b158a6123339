package route_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/theoremus-urban-solutions/ridenav/geo"
	"github.com/theoremus-urban-solutions/ridenav/route"
)

func TestParseManeuverKind(t *testing.T) {
	tests := []struct {
		input    string
		expected route.ManeuverKind
		wantErr  bool
	}{
		{"depart", route.Depart, false},
		{"TURN_LEFT", route.TurnLeft, false},
		{" roundabout ", route.Roundabout, false},
		{"u_turn", route.UTurn, false},
		{"teleport", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := route.ParseManeuverKind(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestKindFromValhalla(t *testing.T) {
	tests := []struct {
		code     int
		expected route.ManeuverKind
	}{
		{1, route.Depart},
		{5, route.TurnRight},
		{10, route.TurnLeft},
		{12, route.UTurn},
		{17, route.Merge},
		{23, route.Roundabout},
		{25, route.Fork},
		{27, route.Arrive},
		{99, route.Straight},
	}
	for _, tt := range tests {
		if got := route.KindFromValhalla(tt.code); got != tt.expected {
			t.Errorf("code %d: expected %s, got %s", tt.code, tt.expected, got)
		}
	}
}

func TestParseDocument(t *testing.T) {
	doc := `{
		"geometry": {"type": "LineString", "coordinates": [[-122.4194, 37.7749], [-122.4184, 37.7759], [-122.4174, 37.7769]]},
		"maneuvers": [
			{"type": "depart", "location": {"latitude": 37.7749, "longitude": -122.4194}, "distanceMeters": 140, "instruction": "Head north"},
			{"type": "arrive", "location": {"latitude": 37.7769, "longitude": -122.4174}, "distanceMeters": 0, "instruction": "Arrive"}
		]
	}`

	r, err := route.ParseDocument([]byte(doc))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	if len(r.Polyline) != 3 {
		t.Fatalf("expected 3 vertices, got %d", len(r.Polyline))
	}
	if r.Polyline[0].Latitude != 37.7749 || r.Polyline[0].Longitude != -122.4194 {
		t.Errorf("axis order not converted: %+v", r.Polyline[0])
	}
	if r.ID == "" {
		t.Error("expected generated route id")
	}
	if r.Summary.DistanceMeters <= 0 {
		t.Error("expected summary distance derived from polyline")
	}
	if r.Maneuvers[1].Kind != route.Arrive {
		t.Errorf("expected arrive, got %s", r.Maneuvers[1].Kind)
	}
}

func TestParseDocumentRejectsInvalidGeometry(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"single vertex", `{"geometry": {"type": "LineString", "coordinates": [[-122.4, 37.7]]}}`},
		{"point geometry", `{"geometry": {"type": "Point", "coordinates": [-122.4, 37.7]}}`},
		{"missing geometry", `{"maneuvers": []}`},
		{"unknown maneuver", `{"geometry": {"type": "LineString", "coordinates": [[-122.4, 37.7], [-122.5, 37.8]]}, "maneuvers": [{"type": "jump"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := route.ParseDocument([]byte(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	r, err := route.ParseDocument([]byte(`{"id": "r1", "geometry": {"type": "LineString", "coordinates": [[-122.4, 37.7], [-122.5, 37.8]]}, "summary": {"distanceMeters": 1200}}`))
	if err != nil {
		t.Fatalf("ParseDocument failed: %v", err)
	}
	b, err := json.Marshal(r.Document())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	again, err := route.ParseDocument(b)
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if again.ID != "r1" || again.Summary.DistanceMeters != 1200 || len(again.Polyline) != 2 {
		t.Errorf("unexpected route after round trip: %+v", again)
	}
}

func TestValhallaPlan(t *testing.T) {
	shape := polyline.Codec{Dim: 2, Scale: 1e6}.EncodeCoords(nil, [][]float64{
		{37.7749, -122.4194},
		{37.7759, -122.4184},
		{37.7769, -122.4174},
	})

	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/route" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"trip": map[string]any{
				"summary": map[string]any{"length": 0.28, "time": 62},
				"legs": []map[string]any{{
					"shape": string(shape),
					"maneuvers": []map[string]any{
						{"type": 1, "instruction": "Bike north on Market Street.", "length": 0.14, "street_names": []string{"Market Street"}, "begin_shape_index": 0},
						{"type": 10, "instruction": "Turn left.", "length": 0.14, "begin_shape_index": 1},
						{"type": 4, "instruction": "You have arrived.", "length": 0, "begin_shape_index": 2},
					},
				}},
			},
		})
	}))
	defer srv.Close()

	client := route.NewValhallaClient(srv.URL+"/", time.Second)
	r, err := client.Plan(context.Background(), route.Request{
		Origin:      geo.Coordinate{Latitude: 37.7749, Longitude: -122.4194},
		Destination: geo.Coordinate{Latitude: 37.7769, Longitude: -122.4174},
		Profile:     route.ProfileSafest,
	})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if len(r.Polyline) != 3 {
		t.Fatalf("expected 3 vertices, got %d", len(r.Polyline))
	}
	if math.Abs(r.Polyline[2].Latitude-37.7769) > 1e-9 || math.Abs(r.Polyline[2].Longitude+122.4174) > 1e-9 {
		t.Errorf("unexpected decoded vertex %+v", r.Polyline[2])
	}
	if math.Abs(r.Summary.DistanceMeters-280) > 1e-6 {
		t.Errorf("expected 280 m, got %f", r.Summary.DistanceMeters)
	}
	if r.Maneuvers[0].StreetName != "Market Street" || r.Maneuvers[0].Kind != route.Depart {
		t.Errorf("unexpected first maneuver %+v", r.Maneuvers[0])
	}
	if r.Maneuvers[1].Kind != route.TurnLeft || r.Maneuvers[1].Location != r.Polyline[1] {
		t.Errorf("unexpected second maneuver %+v", r.Maneuvers[1])
	}

	opts := gotBody["costing_options"].(map[string]any)["bicycle"].(map[string]any)
	if opts["use_roads"] != 0.2 || opts["use_hills"] != 0.3 || opts["avoid_bad_surfaces"] != 0.8 {
		t.Errorf("unexpected costing options %v", opts)
	}
}

func TestValhallaNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code": 442, "error": "No path could be found for input"}`))
	}))
	defer srv.Close()

	_, err := route.NewValhallaClient(srv.URL, time.Second).Plan(context.Background(), route.Request{})
	if !errors.Is(err, route.ErrNoRoute) {
		t.Errorf("expected ErrNoRoute, got %v", err)
	}
}
