package route

import (
	"errors"

	"github.com/theoremus-urban-solutions/ridenav/geo"
)

var (
	// ErrInvalidRoute is returned for routes with fewer than two vertices.
	ErrInvalidRoute = errors.New("route must have at least two vertices")
	// ErrNoRoute is returned when the routing engine finds no path.
	ErrNoRoute = errors.New("no route found")
)

// Maneuver is one turn-by-turn instruction.
type Maneuver struct {
	Kind           ManeuverKind   `json:"type"`
	Location       geo.Coordinate `json:"location"`
	DistanceMeters float64        `json:"distanceMeters"`
	StreetName     string         `json:"streetName,omitempty"`
	Instruction    string         `json:"instruction"`
}

// Summary holds the planner's totals for a route.
type Summary struct {
	DistanceMeters      float64 `json:"distanceMeters"`
	DurationSeconds     float64 `json:"durationSeconds"`
	ElevationGainMeters float64 `json:"elevationGainMeters"`
	ElevationLossMeters float64 `json:"elevationLossMeters"`
	MaxGradePercent     float64 `json:"maxGradePercent"`
	BikeLanePercentage  float64 `json:"bikeLanePercentage"`
	RiskScore           float64 `json:"riskScore"`
}

// Route is an immutable precomputed route.
type Route struct {
	ID        string           `json:"id"`
	Polyline  []geo.Coordinate `json:"polyline"`
	Maneuvers []Maneuver       `json:"maneuvers"`
	Summary   Summary          `json:"summary"`
}

// Validate checks the structural requirements of a route.
func (r *Route) Validate() error {
	if r == nil || len(r.Polyline) < 2 {
		return ErrInvalidRoute
	}
	for _, c := range r.Polyline {
		if !c.Valid() {
			return ErrInvalidRoute
		}
	}
	return nil
}

// Start returns the first polyline vertex.
func (r *Route) Start() geo.Coordinate {
	if r == nil || len(r.Polyline) == 0 {
		return geo.Coordinate{}
	}
	return r.Polyline[0]
}
