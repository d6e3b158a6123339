package navigation

import (
	"errors"
	"sort"
	"time"

	"github.com/theoremus-urban-solutions/ridenav/geo"
	"github.com/theoremus-urban-solutions/ridenav/hazard"
	"github.com/theoremus-urban-solutions/ridenav/route"
	"github.com/theoremus-urban-solutions/ridenav/tracking"
)

var (
	ErrNoActiveSession = errors.New("no active navigation session")
	ErrSessionActive   = errors.New("a navigation session is already active")
)

// Session is the state of one navigation run. It is not safe for concurrent
// use; the Navigator serialises access.
type Session struct {
	id       string
	route    *route.Route
	location *geo.Coordinate
	heading  *float64
	speed    *float64

	onRoute            bool
	projected          bool
	distanceRemaining  float64
	durationRemaining  float64
	nextManeuver       *route.Maneuver
	distanceToManeuver float64

	approaching map[string]hazard.Approaching

	active        bool
	audioEnabled  bool
	rerouteCount  int
	state         State
	outsideRegion bool
	updatedAt     time.Time
}

// NewSession returns an inactive session with audio enabled.
func NewSession() *Session {
	return &Session{
		approaching:  map[string]hazard.Approaching{},
		audioEnabled: true,
	}
}

// Start activates the session on r and arms the first maneuver. The audio
// preference carries over from earlier sessions.
func (s *Session) Start(sessionID string, r *route.Route) {
	s.id = sessionID
	s.location, s.heading, s.speed = nil, nil, nil
	s.approaching = map[string]hazard.Approaching{}
	s.active = true
	s.rerouteCount = 0
	s.state = StateIdle
	s.outsideRegion = false
	s.setRoute(r)
}

func (s *Session) setRoute(r *route.Route) {
	s.route = r
	s.onRoute = true
	s.projected = false
	s.distanceRemaining = r.Summary.DistanceMeters
	s.durationRemaining = r.Summary.DurationSeconds
	s.nextManeuver = nil
	s.distanceToManeuver = 0
	if len(r.Maneuvers) > 0 {
		m := r.Maneuvers[0]
		s.nextManeuver = &m
		s.distanceToManeuver = m.DistanceMeters
	}
	s.touch()
}

// Reroute replaces the route after the rider left it.
func (s *Session) Reroute(r *route.Route) {
	s.setRoute(r)
	s.rerouteCount++
}

// UpdateLocation records the latest position.
func (s *Session) UpdateLocation(c geo.Coordinate, heading, speed *float64) {
	s.location = &c
	s.heading = heading
	s.speed = speed
	s.touch()
}

// ApplyProgress merges an estimate. On route, remaining distance never grows
// between two projections of the same route.
func (s *Session) ApplyProgress(p tracking.Progress) {
	remaining := p.DistanceRemainingMeters
	duration := p.DurationRemainingSeconds
	if p.OnRoute && s.onRoute && s.projected && remaining > s.distanceRemaining {
		remaining = s.distanceRemaining
		duration = remaining / tracking.EffectiveSpeed(s.speed)
	}
	s.onRoute = p.OnRoute
	s.projected = true
	s.distanceRemaining = remaining
	s.durationRemaining = duration
	s.nextManeuver = p.NextManeuver
	s.distanceToManeuver = p.DistanceToManeuverMeters
	s.touch()
}

// SetState records the position source state.
func (s *Session) SetState(st State, outsideRegion bool) {
	s.state = st
	s.outsideRegion = s.outsideRegion || outsideRegion
	s.touch()
}

// Approaching returns the tracked hazards, closest first.
func (s *Session) Approaching() []hazard.Approaching {
	out := make([]hazard.Approaching, 0, len(s.approaching))
	for _, a := range s.approaching {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		return out[i].Zone.ID < out[j].Zone.ID
	})
	return out
}

func (s *Session) UpsertApproaching(a hazard.Approaching) {
	s.approaching[a.Zone.ID] = a
}

func (s *Session) ClearApproaching(id string) {
	delete(s.approaching, id)
}

func (s *Session) AudioEnabled() bool { return s.audioEnabled }

// ToggleAudio flips the audio preference and returns the new value.
func (s *Session) ToggleAudio() bool {
	s.audioEnabled = !s.audioEnabled
	return s.audioEnabled
}

// Active reports whether the session is running.
func (s *Session) Active() bool { return s.active }

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Route returns the route being followed.
func (s *Session) Route() *route.Route { return s.route }

// End returns the session to its inactive baseline. Only the audio
// preference survives; the mode reads ended until the next Start.
func (s *Session) End() {
	audio := s.audioEnabled
	*s = Session{
		approaching:  map[string]hazard.Approaching{},
		audioEnabled: audio,
		state:        StateEnded,
	}
	s.touch()
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
}

// Snapshot is a consistent copy of a session for observers.
type Snapshot struct {
	SessionID                string               `json:"sessionId"`
	RouteID                  string               `json:"routeId,omitempty"`
	Active                   bool                 `json:"isActive"`
	Mode                     State                `json:"mode"`
	OutsideRegion            bool                 `json:"outsideRegion"`
	CurrentLocation          *geo.Coordinate      `json:"currentLocation,omitempty"`
	Heading                  *float64             `json:"heading,omitempty"`
	SpeedMps                 *float64             `json:"speed,omitempty"`
	OnRoute                  bool                 `json:"isOnRoute"`
	DistanceRemainingMeters  float64              `json:"distanceRemainingMeters"`
	DurationRemainingSeconds float64              `json:"durationRemainingSeconds"`
	NextManeuver             *route.Maneuver      `json:"nextManeuver,omitempty"`
	DistanceToManeuverMeters float64              `json:"distanceToManeuverMeters"`
	ApproachingHazards       []hazard.Approaching `json:"approachingHazards"`
	AudioEnabled             bool                 `json:"audioEnabled"`
	RerouteCount             int                  `json:"rerouteCount"`
	UpdatedAt                time.Time            `json:"updatedAt"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID:                s.id,
		Active:                   s.active,
		Mode:                     s.state,
		OutsideRegion:            s.outsideRegion,
		OnRoute:                  s.onRoute,
		DistanceRemainingMeters:  s.distanceRemaining,
		DurationRemainingSeconds: s.durationRemaining,
		DistanceToManeuverMeters: s.distanceToManeuver,
		ApproachingHazards:       s.Approaching(),
		AudioEnabled:             s.audioEnabled,
		RerouteCount:             s.rerouteCount,
		UpdatedAt:                s.updatedAt,
	}
	if s.route != nil {
		snap.RouteID = s.route.ID
	}
	if s.location != nil {
		c := *s.location
		snap.CurrentLocation = &c
	}
	if s.heading != nil {
		h := *s.heading
		snap.Heading = &h
	}
	if s.speed != nil {
		v := *s.speed
		snap.SpeedMps = &v
	}
	if s.nextManeuver != nil {
		m := *s.nextManeuver
		snap.NextManeuver = &m
	}
	return snap
}
