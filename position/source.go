package position

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/theoremus-urban-solutions/ridenav/geo"
)

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrUnavailable      = errors.New("location unavailable")
	ErrTimeout          = errors.New("location request timed out")
)

// Fix is one device position report.
type Fix struct {
	Coordinate     geo.Coordinate `json:"coordinate"`
	AccuracyMeters float64        `json:"accuracyMeters,omitempty"`
	Heading        *float64       `json:"heading,omitempty"`
	SpeedMps       *float64       `json:"speed,omitempty"`
	Time           time.Time      `json:"time"`
}

// Event carries either a fix or an error signal.
type Event struct {
	Fix Fix
	Err error
}

// Source streams position events. The returned channel is closed once ctx is
// done or the source gives up.
type Source interface {
	Watch(ctx context.Context) (<-chan Event, error)
}

// PushSource relays fixes handed to Push to the current watcher.
type PushSource struct {
	mu  sync.Mutex
	out chan Event
}

// NewPushSource creates an idle push source.
func NewPushSource() *PushSource {
	return &PushSource{}
}

func (s *PushSource) Watch(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event, 16)
	s.mu.Lock()
	if s.out != nil {
		close(s.out)
	}
	s.out = out
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if s.out == out {
			close(out)
			s.out = nil
		}
		s.mu.Unlock()
	}()
	return out, nil
}

// Push delivers a fix. It reports false when nobody is watching or the
// watcher is not keeping up.
func (s *PushSource) Push(f Fix) bool {
	return s.send(Event{Fix: f})
}

// PushError delivers an error signal such as ErrPermissionDenied.
func (s *PushSource) PushError(err error) bool {
	return s.send(Event{Err: err})
}

func (s *PushSource) send(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out == nil {
		return false
	}
	select {
	case s.out <- ev:
		return true
	default:
		return false
	}
}
