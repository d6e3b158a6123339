package route

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/theoremus-urban-solutions/ridenav/geo"
)

// Document is the wire form of a planned route. Geometry is a GeoJSON
// LineString, or a MultiLineString with one line per leg.
type Document struct {
	ID        string            `json:"id"`
	Geometry  *geojson.Geometry `json:"geometry" validate:"required"`
	Maneuvers []Maneuver        `json:"maneuvers" validate:"dive"`
	Summary   Summary           `json:"summary"`
}

// ParseDocument decodes and converts a JSON route document.
func ParseDocument(b []byte) (*Route, error) {
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode route document: %w", err)
	}
	return doc.Route()
}

// Route converts the document into a validated Route. A missing id gets a
// fresh one and a zero summary distance is replaced by the polyline length.
func (d *Document) Route() (*Route, error) {
	if d.Geometry == nil {
		return nil, fmt.Errorf("route document has no geometry: %w", ErrInvalidRoute)
	}
	var line orb.LineString
	switch g := d.Geometry.Geometry().(type) {
	case orb.LineString:
		line = g
	case orb.MultiLineString:
		for _, ls := range g {
			line = append(line, ls...)
		}
	default:
		return nil, fmt.Errorf("unsupported route geometry %q: %w", d.Geometry.Type, ErrInvalidRoute)
	}

	r := &Route{
		ID:        d.ID,
		Polyline:  make([]geo.Coordinate, 0, len(line)),
		Maneuvers: d.Maneuvers,
		Summary:   d.Summary,
	}
	for _, p := range line {
		r.Polyline = append(r.Polyline, geo.FromPoint(p))
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Summary.DistanceMeters <= 0 {
		r.Summary.DistanceMeters = geo.PathLengthMeters(r.Polyline)
	}
	return r, nil
}

// Document returns the wire form of the route.
func (r *Route) Document() Document {
	line := make(orb.LineString, 0, len(r.Polyline))
	for _, c := range r.Polyline {
		line = append(line, c.Point())
	}
	return Document{
		ID:        r.ID,
		Geometry:  geojson.NewGeometry(line),
		Maneuvers: r.Maneuvers,
		Summary:   r.Summary,
	}
}
