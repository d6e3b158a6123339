package geo

import "github.com/paulmach/orb"

// Region is the rectangular service area live fixes must fall into.
type Region struct {
	MinLatitude  float64 `yaml:"minLatitude" json:"minLatitude" validate:"gte=-90,lte=90"`
	MaxLatitude  float64 `yaml:"maxLatitude" json:"maxLatitude" validate:"gte=-90,lte=90,gtfield=MinLatitude"`
	MinLongitude float64 `yaml:"minLongitude" json:"minLongitude" validate:"gte=-180,lte=180"`
	MaxLongitude float64 `yaml:"maxLongitude" json:"maxLongitude" validate:"gte=-180,lte=180,gtfield=MinLongitude"`
}

// SanFrancisco is the default operating region.
var SanFrancisco = Region{
	MinLatitude:  37.70,
	MaxLatitude:  37.82,
	MinLongitude: -122.52,
	MaxLongitude: -122.35,
}

// IsZero reports whether no bounds were configured.
func (r Region) IsZero() bool {
	return r == Region{}
}

// Bound returns the region as an orb bound.
func (r Region) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{r.MinLongitude, r.MinLatitude},
		Max: orb.Point{r.MaxLongitude, r.MaxLatitude},
	}
}

// Contains reports whether c lies inside the region, edges included.
func (r Region) Contains(c Coordinate) bool {
	return r.Bound().Contains(c.Point())
}
