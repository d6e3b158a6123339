package hazard

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/serjvanilla/go-overpass"

	"github.com/theoremus-urban-solutions/ridenav/geo"
)

// osmAlertRadiusMeters is used for zones derived from OSM nodes, which carry
// no radius of their own.
const osmAlertRadiusMeters = 50.0

// OverpassStore derives hazard zones from OpenStreetMap nodes.
type OverpassStore struct {
	client *overpass.Client
}

// NewOverpassStore creates a store querying the Overpass API at endpoint.
func NewOverpassStore(endpoint string, timeout time.Duration) *OverpassStore {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &OverpassStore{client: &client}
}

func overpassBBox(b orb.Bound) string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon())
}

func (s *OverpassStore) ZonesIn(ctx context.Context, bound orb.Bound) ([]Zone, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bbox := overpassBBox(bound)
	query := fmt.Sprintf(`
		[out:json];
		(
			node["hazard"](%s);
			node["railway"~"^(level_crossing|tram_crossing|tram_level_crossing)$"](%s);
			node["traffic_calming"](%s);
			node["highway"="construction"](%s);
		);
		out body;
	`, bbox, bbox, bbox, bbox)

	result, err := s.client.Query(query)
	if err != nil {
		return nil, fmt.Errorf("overpass query failed: %w", err)
	}

	ids := make([]int64, 0, len(result.Nodes))
	for id := range result.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	zones := make([]Zone, 0, len(ids))
	for _, id := range ids {
		node := result.Nodes[id]
		if z, ok := zoneFromTags(node.ID, node.Lat, node.Lon, node.Tags); ok {
			zones = append(zones, z)
		}
	}
	return zones, nil
}

// zoneFromTags classifies an OSM node. Nodes without a recognised tag are
// skipped.
func zoneFromTags(id int64, lat, lon float64, tags map[string]string) (Zone, bool) {
	z := Zone{
		ID:                fmt.Sprintf("osm:node:%d", id),
		Location:          geo.Coordinate{Latitude: lat, Longitude: lon},
		AlertRadiusMeters: osmAlertRadiusMeters,
		Severity:          SeverityMedium,
	}

	switch {
	case tags["hazard"] != "":
		switch strings.ToLower(tags["hazard"]) {
		case "pothole", "potholes":
			z.Kind = KindPothole
		case "dangerous_junction", "junction":
			z.Kind, z.Severity = KindDangerousIntersection, SeverityHigh
		case "curve", "curves", "blind_spot":
			z.Kind = KindBlindTurn
		case "slippery", "damaged_road", "bumpy_road":
			z.Kind = KindPoorPavement
		case "road_works", "construction":
			z.Kind = KindConstruction
		case "cyclists", "pedestrians", "children":
			z.Kind = KindPedestrianHeavy
		default:
			z.Kind = KindOther
		}
	case strings.HasPrefix(tags["railway"], "tram"):
		z.Kind, z.Severity = KindTrolleyTracks, SeverityHigh
	case tags["railway"] == "level_crossing":
		z.Kind, z.Severity = KindOther, SeverityHigh
		z.Message = "Rail crossing ahead. Cross the tracks at a right angle."
	case tags["traffic_calming"] != "":
		z.Kind, z.Severity = KindPoorPavement, SeverityLow
	case tags["highway"] == "construction":
		z.Kind = KindConstruction
	default:
		return Zone{}, false
	}

	if note := tags["description"]; note != "" && z.Message == "" {
		z.Message = note
	}
	return z, true
}
