package navigation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/theoremus-urban-solutions/ridenav/alert"
	"github.com/theoremus-urban-solutions/ridenav/geo"
	"github.com/theoremus-urban-solutions/ridenav/hazard"
	"github.com/theoremus-urban-solutions/ridenav/position"
	"github.com/theoremus-urban-solutions/ridenav/route"
	"github.com/theoremus-urban-solutions/ridenav/tracking"
)

const (
	DefaultNoFixTimeout       = 3 * time.Second
	DefaultSimulationInterval = time.Second
	DefaultScanInterval       = 5 * time.Second
)

// Scanner looks up approaching hazards around a position. A non-nil error
// means the lookup failed and the result says nothing about the area.
type Scanner interface {
	Scan(ctx context.Context, pos geo.Coordinate, speed *float64) ([]hazard.Approaching, error)
}

// Observer receives a snapshot after every session change. Publish must not
// block.
type Observer interface {
	Publish(s Snapshot)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(s Snapshot)

func (f ObserverFunc) Publish(s Snapshot) { f(s) }

// Purger is a cache that is emptied when a session ends.
type Purger interface {
	Purge()
}

// Options tunes a Navigator. Zero durations take the defaults.
type Options struct {
	Region             geo.Region
	NoFixTimeout       time.Duration
	SimulationInterval time.Duration
	ScanInterval       time.Duration
	HazardCache        Purger
	Now                func() time.Time
	Logger             *slog.Logger
}

func (o *Options) setDefaults() {
	if o.NoFixTimeout <= 0 {
		o.NoFixTimeout = DefaultNoFixTimeout
	}
	if o.SimulationInterval <= 0 {
		o.SimulationInterval = DefaultSimulationInterval
	}
	if o.ScanInterval <= 0 {
		o.ScanInterval = DefaultScanInterval
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Navigator runs one navigation session at a time.
type Navigator struct {
	live       position.Source
	scanner    Scanner
	dispatcher *alert.Dispatcher
	observer   Observer
	opts       Options
	log        *slog.Logger

	mu         sync.Mutex
	session    *Session
	arbiter    *Arbiter
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

// New creates a navigator. live may be nil, in which case every session
// falls back to simulation after the no-fix timeout.
func New(live position.Source, scanner Scanner, dispatcher *alert.Dispatcher, observer Observer, opts Options) *Navigator {
	opts.setDefaults()
	if observer == nil {
		observer = ObserverFunc(func(Snapshot) {})
	}
	return &Navigator{
		live:       live,
		scanner:    scanner,
		dispatcher: dispatcher,
		observer:   observer,
		opts:       opts,
		log:        opts.Logger.With("component", "navigator"),
		session:    NewSession(),
	}
}

// Start begins a session on r. An empty sessionID gets a generated one.
func (n *Navigator) Start(sessionID string, r *route.Route) (Snapshot, error) {
	if err := r.Validate(); err != nil {
		return Snapshot{}, err
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	n.mu.Lock()
	if n.session.Active() {
		n.mu.Unlock()
		return Snapshot{}, ErrSessionActive
	}
	n.generation++
	gen := n.generation
	n.session.Start(sessionID, r)
	n.arbiter = NewArbiter(r.Polyline, n.opts.Region)
	n.arbiter.Begin()
	n.session.SetState(n.arbiter.State(), false)

	ctx, cancel := context.WithCancel(context.Background())
	liveCtx, stopLive := context.WithCancel(ctx)
	var liveCh <-chan position.Event
	if n.live != nil {
		ch, err := n.live.Watch(liveCtx)
		if err != nil {
			n.log.Warn("live position source unavailable", "session_id", sessionID, "error", err)
		} else {
			liveCh = ch
		}
	}
	done := make(chan struct{})
	n.cancel = cancel
	n.done = done
	snap := n.session.Snapshot()
	n.mu.Unlock()

	n.log.Info("navigation started", "session_id", sessionID, "route_id", r.ID, "vertices", len(r.Polyline))
	go n.run(ctx, gen, liveCh, stopLive, done)
	n.observer.Publish(snap)
	return snap, nil
}

// End stops the session. The live subscription and simulation timer are
// stopped before End returns, and scans still in flight are discarded.
func (n *Navigator) End() (Snapshot, error) {
	n.mu.Lock()
	if !n.session.Active() || n.cancel == nil {
		n.mu.Unlock()
		return Snapshot{}, ErrNoActiveSession
	}
	cancel, done := n.cancel, n.done
	n.cancel, n.done = nil, nil
	n.generation++
	n.arbiter.Handle(Event{Kind: SessionEnded})
	id := n.session.ID()
	n.mu.Unlock()

	cancel()
	<-done

	// the session stays active until this reset, so Start cannot interleave
	// with it
	n.mu.Lock()
	n.session.End()
	if n.dispatcher != nil {
		n.dispatcher.Reset()
	}
	if n.opts.HazardCache != nil {
		n.opts.HazardCache.Purge()
	}
	snap := n.session.Snapshot()
	n.mu.Unlock()

	n.log.Info("navigation ended", "session_id", id)
	n.observer.Publish(snap)
	return snap, nil
}

// ToggleAudio flips the audio preference of the active session.
func (n *Navigator) ToggleAudio() (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.session.Active() {
		return false, ErrNoActiveSession
	}
	return n.session.ToggleAudio(), nil
}

// Reroute replaces the route of the active session.
func (n *Navigator) Reroute(r *route.Route) (Snapshot, error) {
	if err := r.Validate(); err != nil {
		return Snapshot{}, err
	}
	n.mu.Lock()
	if !n.session.Active() {
		n.mu.Unlock()
		return Snapshot{}, ErrNoActiveSession
	}
	n.session.Reroute(r)
	snap := n.session.Snapshot()
	n.mu.Unlock()

	n.log.Info("route replaced", "session_id", snap.SessionID, "route_id", r.ID, "reroutes", snap.RerouteCount)
	n.observer.Publish(snap)
	return snap, nil
}

// Snapshot returns the current session state.
func (n *Navigator) Snapshot() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.session.Snapshot()
}

type loop struct {
	gen        uint64
	liveCh     <-chan position.Event
	stopLive   context.CancelFunc
	simTicker  *time.Ticker
	simTick    <-chan time.Time
	scanning   bool
	lastScanAt time.Time
	results    chan scanResult
}

type scanResult struct {
	hazards []hazard.Approaching
	err     error
}

func (n *Navigator) run(ctx context.Context, gen uint64, liveCh <-chan position.Event, stopLive context.CancelFunc, done chan struct{}) {
	defer close(done)
	l := &loop{
		gen:      gen,
		liveCh:   liveCh,
		stopLive: stopLive,
		results:  make(chan scanResult, 1),
	}
	noFix := time.NewTimer(n.opts.NoFixTimeout)
	defer func() {
		noFix.Stop()
		l.stopLive()
		if l.simTicker != nil {
			l.simTicker.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-l.liveCh:
			if !ok {
				l.liveCh = nil
				continue
			}
			if ev.Err != nil {
				n.log.Warn("live position error", "error", ev.Err)
				continue
			}
			n.apply(ctx, l, Event{Kind: FixReceived, Fix: ev.Fix})
		case <-noFix.C:
			n.apply(ctx, l, Event{Kind: TimeoutElapsed, Timer: NoFixTimer})
		case <-l.simTick:
			n.apply(ctx, l, Event{Kind: TimeoutElapsed, Timer: SimulationStep})
		case res := <-l.results:
			l.scanning = false
			n.mergeScan(l.gen, res)
		}
	}
}

func (n *Navigator) apply(ctx context.Context, l *loop, ev Event) {
	n.mu.Lock()
	if l.gen != n.generation {
		n.mu.Unlock()
		return
	}
	before := n.arbiter.State()
	d := n.arbiter.Handle(ev)
	after := n.arbiter.State()
	n.mu.Unlock()

	if d.StopLive {
		l.stopLive()
		l.liveCh = nil
	}
	if d.StartSimulation && l.simTicker == nil {
		l.simTicker = time.NewTicker(n.opts.SimulationInterval)
		l.simTick = l.simTicker.C
	}
	if before != after {
		n.log.Info("position source changed", "from", before.String(), "to", after.String())
	}
	if d.Sample == nil && before == after {
		return
	}
	n.process(ctx, l, d.Sample, after)
}

// process merges a sample into the session and starts a hazard scan when the
// throttle allows.
func (n *Navigator) process(ctx context.Context, l *loop, s *Sample, st State) {
	n.mu.Lock()
	if l.gen != n.generation || !n.session.Active() {
		n.mu.Unlock()
		return
	}
	n.session.SetState(st, s != nil && s.OutsideRegion)
	if s != nil {
		n.session.UpdateLocation(s.Coordinate, s.Heading, s.SpeedMps)
		n.session.ApplyProgress(tracking.Estimate(s.Coordinate, s.SpeedMps, n.session.Route()))
	}
	snap := n.session.Snapshot()
	n.mu.Unlock()
	n.observer.Publish(snap)

	if s == nil || n.scanner == nil || l.scanning {
		return
	}
	now := n.opts.Now()
	if !l.lastScanAt.IsZero() && now.Sub(l.lastScanAt) < n.opts.ScanInterval {
		return
	}
	l.scanning = true
	l.lastScanAt = now
	pos, speed := s.Coordinate, s.SpeedMps
	go func() {
		hazards, err := n.scanner.Scan(ctx, pos, speed)
		select {
		case l.results <- scanResult{hazards: hazards, err: err}:
		case <-ctx.Done():
		}
	}()
}

// mergeScan applies a scan result unless the session it belongs to is gone.
// A failed lookup empties the displayed hazards without resetting alert
// eligibility.
func (n *Navigator) mergeScan(gen uint64, res scanResult) {
	n.mu.Lock()
	if gen != n.generation || !n.session.Active() {
		n.mu.Unlock()
		n.log.Debug("discarding stale hazard scan")
		return
	}
	var al *alert.Alert
	switch {
	case res.err != nil && n.dispatcher != nil:
		n.dispatcher.QueryFailed(n.session)
	case res.err != nil:
		for _, a := range n.session.Approaching() {
			n.session.ClearApproaching(a.Zone.ID)
		}
	case n.dispatcher != nil:
		al = n.dispatcher.Update(n.session, res.hazards)
	}
	snap := n.session.Snapshot()
	n.mu.Unlock()

	if al != nil {
		n.log.Info("hazard warning issued", "session_id", snap.SessionID, "hazard_id", al.Hazard.Zone.ID)
	}
	n.observer.Publish(snap)
}
