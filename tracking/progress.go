package tracking

import (
	"github.com/theoremus-urban-solutions/ridenav/geo"
	"github.com/theoremus-urban-solutions/ridenav/route"
)

const (
	// DefaultSpeedMps is assumed when no positive speed is known.
	DefaultSpeedMps = 4.5
	// ManeuverPassedMeters is how close a maneuver may be before it counts
	// as passed.
	ManeuverPassedMeters = 10.0
)

// Progress is the outcome of one estimation cycle.
type Progress struct {
	OnRoute                  bool
	ClosestIndex             int
	DistanceFromRouteMeters  float64
	DistanceRemainingMeters  float64
	DurationRemainingSeconds float64
	NextManeuver             *route.Maneuver
	DistanceToManeuverMeters float64
}

// EffectiveSpeed returns speed when positive and DefaultSpeedMps otherwise.
func EffectiveSpeed(speed *float64) float64 {
	if speed != nil && *speed > 0 {
		return *speed
	}
	return DefaultSpeedMps
}

// RemainingDistance sums the polyline from index to its end.
func RemainingDistance(polyline []geo.Coordinate, index int) float64 {
	if index < 0 || index >= len(polyline) {
		return 0
	}
	return geo.PathLengthMeters(polyline[index:])
}

// NextManeuver returns the first maneuver farther than ManeuverPassedMeters
// from pos, or the last maneuver when all are close. It returns nil when the
// route has no maneuvers.
func NextManeuver(pos geo.Coordinate, maneuvers []route.Maneuver) (*route.Maneuver, float64) {
	if len(maneuvers) == 0 {
		return nil, 0
	}
	for i := range maneuvers {
		d := geo.HaversineMeters(pos, maneuvers[i].Location)
		if d > ManeuverPassedMeters {
			m := maneuvers[i]
			return &m, d
		}
	}
	last := maneuvers[len(maneuvers)-1]
	return &last, geo.HaversineMeters(pos, last.Location)
}

// Estimate projects pos onto r and derives remaining distance, duration and
// the next maneuver. Off route, the remaining distance falls back to the
// planned total. A route with fewer than two vertices yields the summary
// totals and no maneuver.
func Estimate(pos geo.Coordinate, speed *float64, r *route.Route) Progress {
	if r == nil {
		return Progress{}
	}
	v := EffectiveSpeed(speed)
	if len(r.Polyline) < 2 {
		return Progress{
			DistanceRemainingMeters:  r.Summary.DistanceMeters,
			DurationRemainingSeconds: r.Summary.DistanceMeters / v,
		}
	}

	proj := Project(pos, r.Polyline)
	p := Progress{
		OnRoute:                 IsOnRoute(proj.DistanceMeters),
		ClosestIndex:            proj.ClosestIndex,
		DistanceFromRouteMeters: proj.DistanceMeters,
	}
	if p.OnRoute {
		p.DistanceRemainingMeters = RemainingDistance(r.Polyline, proj.ClosestIndex)
	} else {
		p.DistanceRemainingMeters = r.Summary.DistanceMeters
	}
	p.DurationRemainingSeconds = p.DistanceRemainingMeters / v
	p.NextManeuver, p.DistanceToManeuverMeters = NextManeuver(pos, r.Maneuvers)
	return p
}
