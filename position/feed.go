package position

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/theoremus-urban-solutions/ridenav/geo"
)

// FeedSource follows one vehicle in a GTFS-Realtime VehiclePositions feed,
// such as a shared scooter or bike fleet publishing its telemetry.
type FeedSource struct {
	url        string
	vehicleID  string
	interval   time.Duration
	httpClient *http.Client
	log        *slog.Logger
}

// NewFeedSource polls url every interval for vehicleID.
func NewFeedSource(url, vehicleID string, interval time.Duration, logger *slog.Logger) *FeedSource {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedSource{
		url:        url,
		vehicleID:  vehicleID,
		interval:   interval,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logger.With("component", "feed_source", "vehicle_id", vehicleID),
	}
}

func (s *FeedSource) fetch(ctx context.Context) (*gtfsrtpb.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", s.url, err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, s.url)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.url, err)
	}
	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(b, &fm); err != nil {
		return nil, fmt.Errorf("failed to decode feed from %s: %w", s.url, err)
	}
	return &fm, nil
}

// vehicleFix extracts the position of vehicleID from a feed message.
func vehicleFix(fm *gtfsrtpb.FeedMessage, vehicleID string) (Fix, bool) {
	for _, e := range fm.GetEntity() {
		vp := e.GetVehicle()
		if vp == nil || vp.GetVehicle().GetId() != vehicleID || vp.GetPosition() == nil {
			continue
		}
		pos := vp.GetPosition()
		f := Fix{
			Coordinate: geo.Coordinate{
				Latitude:  float64(pos.GetLatitude()),
				Longitude: float64(pos.GetLongitude()),
			},
		}
		if pos.Bearing != nil {
			h := float64(pos.GetBearing())
			f.Heading = &h
		}
		if pos.Speed != nil {
			v := float64(pos.GetSpeed())
			f.SpeedMps = &v
		}
		ts := vp.GetTimestamp()
		if ts == 0 {
			ts = fm.GetHeader().GetTimestamp()
		}
		if ts > 0 {
			f.Time = time.Unix(int64(ts), 0)
		}
		return f, true
	}
	return Fix{}, false
}

func (s *FeedSource) Watch(ctx context.Context) (<-chan Event, error) {
	if s.url == "" || s.vehicleID == "" {
		return nil, fmt.Errorf("%w: feed url and vehicle id are required", ErrUnavailable)
	}
	out := make(chan Event, 4)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		var last time.Time
		for {
			ev, ok := s.poll(ctx, &last)
			if ok {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// poll reports a fix only when the vehicle's timestamp moved forward.
func (s *FeedSource) poll(ctx context.Context, last *time.Time) (Event, bool) {
	fm, err := s.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Event{}, false
		}
		s.log.Warn("vehicle positions fetch failed", "error", err)
		return Event{Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}, true
	}
	f, ok := vehicleFix(fm, s.vehicleID)
	if !ok {
		return Event{}, false
	}
	if !f.Time.IsZero() && !f.Time.After(*last) {
		return Event{}, false
	}
	if f.Time.IsZero() {
		f.Time = time.Now()
	} else {
		*last = f.Time
	}
	return Event{Fix: f}, true
}
