package hazard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/theoremus-urban-solutions/ridenav/geo"
)

const (
	// LookAheadMeters is the half-width of the query box around the rider.
	LookAheadMeters = 500.0
	// AwarenessMarginMeters extends each zone's radius for inclusion.
	AwarenessMarginMeters = 200.0
)

// Scanner finds approaching hazards around a position.
type Scanner struct {
	store    Store
	log      *slog.Logger
	validate *validator.Validate

	// QueryTimeout bounds one store query. Zero leaves it to the store.
	QueryTimeout time.Duration
}

// NewScanner creates a scanner over store.
func NewScanner(store Store, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		store:    store,
		log:      logger.With("component", "hazard_scanner"),
		validate: validator.New(),
	}
}

// Scan returns the zones whose distance from pos is below their alert radius
// plus the awareness margin, closest first. A failed store query is logged
// and yields an empty result together with the error, so callers can tell it
// apart from an empty neighbourhood.
func (s *Scanner) Scan(ctx context.Context, pos geo.Coordinate, speed *float64) ([]Approaching, error) {
	if s.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.QueryTimeout)
		defer cancel()
	}

	bound := geo.BoundAround(pos, LookAheadMeters)
	zones, err := s.store.ZonesIn(ctx, bound)
	if err != nil {
		s.log.Warn("hazard query failed", "error", err, "lat", pos.Latitude, "lon", pos.Longitude)
		return []Approaching{}, fmt.Errorf("hazard query: %w", err)
	}

	out := make([]Approaching, 0, len(zones))
	for _, z := range zones {
		if err := s.validate.Struct(z); err != nil {
			s.log.Debug("skipping malformed hazard zone", "id", z.ID, "error", err)
			continue
		}
		d := geo.HaversineMeters(pos, z.Location)
		if d >= z.AlertRadiusMeters+AwarenessMarginMeters {
			continue
		}
		a := Approaching{
			Zone:           z,
			DistanceMeters: d,
			AlertTriggered: d < z.AlertRadiusMeters,
		}
		if speed != nil && *speed > 0 {
			a.ETASeconds = d / *speed
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceMeters < out[j].DistanceMeters
	})
	return out, nil
}
