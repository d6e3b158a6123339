package navigation

import (
	"encoding/json"
	"fmt"

	"github.com/theoremus-urban-solutions/ridenav/geo"
	"github.com/theoremus-urban-solutions/ridenav/position"
	"github.com/theoremus-urban-solutions/ridenav/tracking"
)

// State is the position source state of a session.
type State int

const (
	StateIdle State = iota
	StateLiveTracking
	StateSimulatedTracking
	StateEnded
)

var stateNames = [...]string{"idle", "live_tracking", "simulated_tracking", "ended"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for i, n := range stateNames {
		if n == name {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown navigation state %q", name)
}

// EventKind enumerates arbiter inputs.
type EventKind int

const (
	FixReceived EventKind = iota
	TimeoutElapsed
	SessionEnded
)

// Timer names the timer behind a TimeoutElapsed event.
type Timer int

const (
	NoFixTimer Timer = iota
	SimulationStep
)

// Event is one arbiter input.
type Event struct {
	Kind  EventKind
	Fix   position.Fix
	Timer Timer
}

// Sample is a position forwarded to the session.
type Sample struct {
	Coordinate    geo.Coordinate
	Heading       *float64
	SpeedMps      *float64
	Simulated     bool
	OutsideRegion bool
}

// Decision tells the caller what to do after an event.
type Decision struct {
	Sample          *Sample
	StartLive       bool
	StopLive        bool
	StartSimulation bool
	StopSimulation  bool
}

// Arbiter chooses between live fixes and the simulated replay of the route.
// Switching to simulation is final for the session. It is not safe for
// concurrent use.
type Arbiter struct {
	state    State
	polyline []geo.Coordinate
	region   geo.Region
	simIndex int
	gotFix   bool
}

// NewArbiter creates an idle arbiter for a route. A zero region accepts every
// fix.
func NewArbiter(polyline []geo.Coordinate, region geo.Region) *Arbiter {
	return &Arbiter{state: StateIdle, polyline: polyline, region: region}
}

// State returns the current state.
func (a *Arbiter) State() State { return a.state }

// Begin moves an idle arbiter to live tracking.
func (a *Arbiter) Begin() Decision {
	if a.state != StateIdle {
		return Decision{}
	}
	a.state = StateLiveTracking
	return Decision{StartLive: true}
}

// Handle applies one event.
func (a *Arbiter) Handle(ev Event) Decision {
	switch ev.Kind {
	case SessionEnded:
		return a.end()
	case FixReceived:
		return a.fix(ev.Fix)
	case TimeoutElapsed:
		switch ev.Timer {
		case NoFixTimer:
			if a.state == StateLiveTracking && !a.gotFix {
				return a.simulate()
			}
		case SimulationStep:
			if a.state == StateSimulatedTracking {
				return Decision{Sample: a.step()}
			}
		}
	}
	return Decision{}
}

func (a *Arbiter) fix(f position.Fix) Decision {
	if a.state != StateLiveTracking {
		return Decision{}
	}
	a.gotFix = true
	if a.region.IsZero() || a.region.Contains(f.Coordinate) {
		return Decision{Sample: &Sample{
			Coordinate: f.Coordinate,
			Heading:    f.Heading,
			SpeedMps:   f.SpeedMps,
		}}
	}
	d := a.simulate()
	d.Sample = &Sample{
		Coordinate:    a.start(),
		Simulated:     true,
		OutsideRegion: true,
	}
	return d
}

func (a *Arbiter) simulate() Decision {
	a.state = StateSimulatedTracking
	a.simIndex = 0
	return Decision{StopLive: true, StartSimulation: true}
}

func (a *Arbiter) end() Decision {
	d := Decision{
		StopLive:       a.state == StateLiveTracking,
		StopSimulation: a.state == StateSimulatedTracking,
	}
	a.state = StateEnded
	return d
}

func (a *Arbiter) start() geo.Coordinate {
	if len(a.polyline) == 0 {
		return geo.Coordinate{}
	}
	return a.polyline[0]
}

// step emits the next route vertex, wrapping to the start after the last.
func (a *Arbiter) step() *Sample {
	n := len(a.polyline)
	if n == 0 {
		return nil
	}
	cur := a.polyline[a.simIndex%n]
	next := a.polyline[(a.simIndex+1)%n]
	a.simIndex = (a.simIndex + 1) % n

	heading := geo.BearingDegrees(cur, next)
	speed := tracking.DefaultSpeedMps
	return &Sample{
		Coordinate: cur,
		Heading:    &heading,
		SpeedMps:   &speed,
		Simulated:  true,
	}
}
