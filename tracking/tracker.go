package tracking

import "github.com/theoremus-urban-solutions/ridenav/geo"

// OffRouteThresholdMeters is the distance from the nearest vertex at which a
// rider counts as off route.
const OffRouteThresholdMeters = 30.0

// Projection is the nearest route vertex to a position.
type Projection struct {
	ClosestIndex   int
	DistanceMeters float64
	Point          geo.Coordinate
}

// Project returns the polyline vertex nearest to pos. Ties resolve to the
// lowest index. The position snaps to vertices only, so on sparse polylines
// a rider midway along a long straight segment can read as off route.
// An empty polyline yields ClosestIndex -1 with zero distance and point.
func Project(pos geo.Coordinate, polyline []geo.Coordinate) Projection {
	if len(polyline) == 0 {
		return Projection{ClosestIndex: -1}
	}
	best := Projection{
		ClosestIndex:   0,
		DistanceMeters: geo.HaversineMeters(pos, polyline[0]),
		Point:          polyline[0],
	}
	for i := 1; i < len(polyline); i++ {
		d := geo.HaversineMeters(pos, polyline[i])
		if d < best.DistanceMeters {
			best = Projection{ClosestIndex: i, DistanceMeters: d, Point: polyline[i]}
		}
	}
	return best
}

// IsOnRoute reports whether a projection distance is within the threshold.
func IsOnRoute(distanceMeters float64) bool {
	return distanceMeters < OffRouteThresholdMeters
}
