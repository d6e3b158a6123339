package alert

import (
	"log/slog"
	"sync"
	"time"

	"github.com/theoremus-urban-solutions/ridenav/hazard"
)

const (
	// CloseRangeMeters is the distance below which a hazard alerted from
	// farther away is announced once more.
	CloseRangeMeters = 30.0
	// DefaultSpeechDelay separates the tone from the spoken message.
	DefaultSpeechDelay = 500 * time.Millisecond
)

// TonePlayer plays a tone pattern. Calls must not block.
type TonePlayer interface {
	PlayTones(p Pattern)
}

// Speaker speaks a message. Calls must not block.
type Speaker interface {
	Speak(text string)
}

// HazardSet is the session-side collection of approaching hazards.
type HazardSet interface {
	Approaching() []hazard.Approaching
	UpsertApproaching(a hazard.Approaching)
	ClearApproaching(id string)
	AudioEnabled() bool
}

// Alert describes a warning that was issued.
type Alert struct {
	Hazard  hazard.Approaching `json:"hazard"`
	Pattern Pattern            `json:"pattern"`
	Message string             `json:"message"`
}

// Dispatcher reconciles scan results into a HazardSet and decides when to
// warn. Update and Reset may be called from different goroutines.
type Dispatcher struct {
	tones  TonePlayer
	speech Speaker
	log    *slog.Logger

	// SpeechDelay is the pause between the tone and the spoken message.
	SpeechDelay time.Duration
	// After schedules f after d and returns a function cancelling it.
	After func(d time.Duration, f func()) (cancel func() bool)

	mu       sync.Mutex
	notified map[string]float64
	pending  map[uint64]func() bool
	seq      uint64
}

// NewDispatcher creates a dispatcher writing to the given sinks.
func NewDispatcher(tones TonePlayer, speech Speaker, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		tones:       tones,
		speech:      speech,
		log:         logger.With("component", "alert_dispatcher"),
		SpeechDelay: DefaultSpeechDelay,
		After: func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		},
		notified: map[string]float64{},
		pending:  map[uint64]func() bool{},
	}
}

// Update applies one scan result to set and issues at most one warning.
// Hazards missing from results leave the set and become eligible again when
// they return. AlertTriggered stays true for a hazard until it leaves.
func (d *Dispatcher) Update(set HazardSet, results []hazard.Approaching) *Alert {
	d.mu.Lock()
	defer d.mu.Unlock()

	current := map[string]hazard.Approaching{}
	for _, a := range set.Approaching() {
		current[a.Zone.ID] = a
	}
	present := make(map[string]bool, len(results))
	for _, r := range results {
		present[r.Zone.ID] = true
	}
	for id := range current {
		if !present[id] {
			set.ClearApproaching(id)
		}
	}
	for id := range d.notified {
		if !present[id] {
			delete(d.notified, id)
		}
	}

	var urgent *hazard.Approaching
	for i := range results {
		r := results[i]
		if prev, ok := current[r.Zone.ID]; ok && prev.AlertTriggered {
			r.AlertTriggered = true
		}
		set.UpsertApproaching(r)
		if urgent == nil && r.AlertTriggered {
			urgent = &r
		}
	}
	if urgent == nil {
		return nil
	}

	last, seen := d.notified[urgent.Zone.ID]
	if seen && !(last >= CloseRangeMeters && urgent.DistanceMeters < CloseRangeMeters) {
		return nil
	}
	if !set.AudioEnabled() {
		return nil
	}
	d.notified[urgent.Zone.ID] = urgent.DistanceMeters
	return d.dispatch(*urgent)
}

func (d *Dispatcher) dispatch(a hazard.Approaching) *Alert {
	al := &Alert{
		Hazard:  a,
		Pattern: PatternFor(a.Zone.Severity),
		Message: Message(a),
	}
	d.log.Info("hazard alert",
		"hazard_id", a.Zone.ID,
		"severity", a.Zone.Severity.String(),
		"distance_m", a.DistanceMeters,
	)
	if d.tones != nil {
		d.tones.PlayTones(al.Pattern)
	}
	if d.speech != nil {
		d.seq++
		id := d.seq
		d.pending[id] = d.After(d.SpeechDelay, func() {
			d.mu.Lock()
			_, live := d.pending[id]
			delete(d.pending, id)
			d.mu.Unlock()
			if live {
				d.speech.Speak(al.Message)
			}
		})
	}
	return al
}

// QueryFailed handles a cycle whose hazard lookup failed. The displayed set
// is emptied but the notification memory is kept, so a hazard that reappears
// once the lookup recovers does not alert a second time.
func (d *Dispatcher) QueryFailed(set HazardSet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range set.Approaching() {
		set.ClearApproaching(a.Zone.ID)
	}
}

// Reset forgets every notification and cancels pending speech.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, cancel := range d.pending {
		cancel()
		delete(d.pending, id)
	}
	d.notified = map[string]float64{}
}
