package hazard

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/paulmach/orb"

	"github.com/theoremus-urban-solutions/ridenav/geo"
)

const zonesInBoundQuery = `
	SELECT id::text AS id,
		ST_Y(ST_Centroid(geometry)) AS lat,
		ST_X(ST_Centroid(geometry)) AS lon,
		hazard_type::text AS hazard_type,
		severity::text AS severity,
		alert_radius_meters,
		alert_message
	FROM risk_zones
	WHERE is_active
		AND ST_Intersects(geometry, ST_MakeEnvelope($1, $2, $3, $4, 4326))`

type zoneRow struct {
	ID          string          `db:"id"`
	Lat         float64         `db:"lat"`
	Lon         float64         `db:"lon"`
	HazardType  string          `db:"hazard_type"`
	Severity    string          `db:"severity"`
	AlertRadius sql.NullFloat64 `db:"alert_radius_meters"`
	Message     sql.NullString  `db:"alert_message"`
}

// PostGISStore reads active zones from the risk_zones table. Zone geometry
// may be a point, line or polygon; its centroid is the zone location.
type PostGISStore struct {
	db *sqlx.DB
}

// NewPostGISStore uses an open database handle.
func NewPostGISStore(db *sqlx.DB) *PostGISStore {
	return &PostGISStore{db: db}
}

// OpenPostGIS connects to the database at dsn.
func OpenPostGIS(ctx context.Context, dsn string) (*PostGISStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to hazard database: %w", err)
	}
	return NewPostGISStore(db), nil
}

// Close releases the connection pool.
func (s *PostGISStore) Close() error {
	return s.db.Close()
}

func (s *PostGISStore) ZonesIn(ctx context.Context, bound orb.Bound) ([]Zone, error) {
	var rows []zoneRow
	err := s.db.SelectContext(ctx, &rows, zonesInBoundQuery,
		bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat())
	if err != nil {
		return nil, fmt.Errorf("failed to query risk zones: %w", err)
	}

	zones := make([]Zone, 0, len(rows))
	for _, r := range rows {
		zones = append(zones, r.zone())
	}
	return zones, nil
}

func (r zoneRow) zone() Zone {
	z := Zone{
		ID:                r.ID,
		Location:          geo.Coordinate{Latitude: r.Lat, Longitude: r.Lon},
		Kind:              ParseKind(r.HazardType),
		AlertRadiusMeters: DefaultAlertRadiusMeters,
		Message:           r.Message.String,
	}
	if sev, err := ParseSeverity(r.Severity); err == nil {
		z.Severity = sev
	} else {
		z.Severity = SeverityMedium
	}
	if r.AlertRadius.Valid && r.AlertRadius.Float64 > 0 {
		z.AlertRadiusMeters = r.AlertRadius.Float64
	}
	return z
}
