package alert_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/theoremus-urban-solutions/ridenav/alert"
	"github.com/theoremus-urban-solutions/ridenav/geo"
	"github.com/theoremus-urban-solutions/ridenav/hazard"
)

type memorySet struct {
	items map[string]hazard.Approaching
	audio bool
}

func newMemorySet() *memorySet {
	return &memorySet{items: map[string]hazard.Approaching{}, audio: true}
}

func (s *memorySet) Approaching() []hazard.Approaching {
	out := make([]hazard.Approaching, 0, len(s.items))
	for _, a := range s.items {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	return out
}

func (s *memorySet) UpsertApproaching(a hazard.Approaching) { s.items[a.Zone.ID] = a }
func (s *memorySet) ClearApproaching(id string)             { delete(s.items, id) }
func (s *memorySet) AudioEnabled() bool                     { return s.audio }

type recorder struct {
	tones  []alert.Pattern
	speech []string
}

func (r *recorder) PlayTones(p alert.Pattern) { r.tones = append(r.tones, p) }
func (r *recorder) Speak(text string)         { r.speech = append(r.speech, text) }

// manualClock runs scheduled speech only when flushed.
type manualClock struct {
	delays []time.Duration
	funcs  []func()
}

func (c *manualClock) after(d time.Duration, f func()) func() bool {
	c.delays = append(c.delays, d)
	c.funcs = append(c.funcs, f)
	return func() bool { return true }
}

func (c *manualClock) flush() {
	funcs := c.funcs
	c.funcs = nil
	for _, f := range funcs {
		f()
	}
}

func newDispatcher() (*alert.Dispatcher, *recorder, *manualClock) {
	rec := &recorder{}
	clock := &manualClock{}
	d := alert.NewDispatcher(rec, rec, nil)
	d.After = clock.after
	return d, rec, clock
}

func approaching(id string, dist, radius float64, sev hazard.Severity) hazard.Approaching {
	return hazard.Approaching{
		Zone: hazard.Zone{
			ID:                id,
			Kind:              hazard.KindPothole,
			Severity:          sev,
			AlertRadiusMeters: radius,
		},
		DistanceMeters: dist,
		AlertTriggered: dist < radius,
	}
}

func TestDispatcherAlertsOncePerApproach(t *testing.T) {
	d, rec, clock := newDispatcher()
	set := newMemorySet()

	if al := d.Update(set, []hazard.Approaching{approaching("h1", 100, 150, hazard.SeverityHigh)}); al == nil {
		t.Fatal("expected alert for a new triggered hazard")
	}
	clock.flush()
	if len(rec.tones) != 1 || len(rec.speech) != 1 {
		t.Fatalf("expected one tone and one speech, got %d/%d", len(rec.tones), len(rec.speech))
	}
	if rec.speech[0] != "Pothole ahead in 100 meters. Use caution." {
		t.Errorf("unexpected speech %q", rec.speech[0])
	}
	if clock.delays[0] != alert.DefaultSpeechDelay {
		t.Errorf("expected speech delay %v, got %v", alert.DefaultSpeechDelay, clock.delays[0])
	}

	for _, dist := range []float64{90, 70, 45, 31} {
		if al := d.Update(set, []hazard.Approaching{approaching("h1", dist, 150, hazard.SeverityHigh)}); al != nil {
			t.Errorf("unexpected repeat alert at %.0f m", dist)
		}
	}
	if len(rec.tones) != 1 {
		t.Errorf("expected a single tone, got %d", len(rec.tones))
	}
	if len(set.items) != 1 {
		t.Errorf("expected one entry for h1, got %d", len(set.items))
	}
}

func TestDispatcherCloseRangeRealert(t *testing.T) {
	d, rec, _ := newDispatcher()
	set := newMemorySet()

	steps := []struct {
		dist   float64
		alerts bool
	}{
		{120, true},
		{60, false},
		{29, true},
		{20, false},
		{35, false},
		{25, false},
	}
	for _, s := range steps {
		al := d.Update(set, []hazard.Approaching{approaching("h1", s.dist, 150, hazard.SeverityCritical)})
		if (al != nil) != s.alerts {
			t.Errorf("at %.0f m: expected alert %v, got %v", s.dist, s.alerts, al != nil)
		}
	}
	if len(rec.tones) != 2 {
		t.Errorf("expected 2 tones, got %d", len(rec.tones))
	}
}

func TestDispatcherFirstAlertInsideCloseRange(t *testing.T) {
	d, rec, _ := newDispatcher()
	set := newMemorySet()

	// first notified at 20 m: no second alert while it stays in range
	for _, dist := range []float64{20, 15, 10} {
		d.Update(set, []hazard.Approaching{approaching("h1", dist, 50, hazard.SeverityMedium)})
	}
	if len(rec.tones) != 1 {
		t.Errorf("expected 1 tone, got %d", len(rec.tones))
	}
}

func TestDispatcherReentryAlertsAgain(t *testing.T) {
	d, rec, _ := newDispatcher()
	set := newMemorySet()

	d.Update(set, []hazard.Approaching{approaching("h1", 40, 50, hazard.SeverityLow)})
	d.Update(set, nil)
	if len(set.items) != 0 {
		t.Fatalf("expected h1 removed, got %d entries", len(set.items))
	}
	d.Update(set, []hazard.Approaching{approaching("h1", 45, 50, hazard.SeverityLow)})
	if len(rec.tones) != 2 {
		t.Errorf("expected alert on re-entry, got %d tones", len(rec.tones))
	}
}

func TestDispatcherMostUrgentOnly(t *testing.T) {
	d, rec, _ := newDispatcher()
	set := newMemorySet()

	al := d.Update(set, []hazard.Approaching{
		approaching("margin", 60, 50, hazard.SeverityCritical),
		approaching("near", 80, 100, hazard.SeverityMedium),
		approaching("far", 120, 200, hazard.SeverityHigh),
	})
	if al == nil || al.Hazard.Zone.ID != "near" {
		t.Fatalf("expected the closest triggered hazard, got %+v", al)
	}
	if len(rec.tones) != 1 || rec.tones[0].Severity != hazard.SeverityMedium {
		t.Errorf("expected one medium tone, got %+v", rec.tones)
	}
	if len(set.items) != 3 {
		t.Errorf("expected all hazards tracked, got %d", len(set.items))
	}

	// the next most urgent hazard gets its turn once the first is gone
	al = d.Update(set, []hazard.Approaching{
		approaching("margin", 55, 50, hazard.SeverityCritical),
		approaching("far", 110, 200, hazard.SeverityHigh),
	})
	if al == nil || al.Hazard.Zone.ID != "far" {
		t.Fatalf("expected far to alert, got %+v", al)
	}
}

func TestDispatcherStickyTrigger(t *testing.T) {
	d, _, _ := newDispatcher()
	set := newMemorySet()

	d.Update(set, []hazard.Approaching{approaching("h1", 45, 50, hazard.SeverityHigh)})
	// drifting back out of the radius keeps the trigger
	d.Update(set, []hazard.Approaching{approaching("h1", 55, 50, hazard.SeverityHigh)})
	if !set.items["h1"].AlertTriggered {
		t.Error("alertTriggered should stay true while the hazard is tracked")
	}
	if set.items["h1"].DistanceMeters != 55 {
		t.Errorf("distance should still update, got %f", set.items["h1"].DistanceMeters)
	}
}

func TestDispatcherAudioDisabled(t *testing.T) {
	d, rec, clock := newDispatcher()
	set := newMemorySet()
	set.audio = false

	if al := d.Update(set, []hazard.Approaching{approaching("h1", 40, 50, hazard.SeverityCritical)}); al != nil {
		t.Error("expected no alert while muted")
	}
	clock.flush()
	if len(rec.tones) != 0 || len(rec.speech) != 0 {
		t.Errorf("expected silence, got %d/%d", len(rec.tones), len(rec.speech))
	}
	if len(set.items) != 1 {
		t.Error("hazards are tracked even while muted")
	}

	set.audio = true
	if al := d.Update(set, []hazard.Approaching{approaching("h1", 35, 50, hazard.SeverityCritical)}); al == nil {
		t.Error("expected alert once audio is back on")
	}
}

func TestDispatcherResetCancelsPendingSpeech(t *testing.T) {
	d, rec, clock := newDispatcher()
	set := newMemorySet()

	d.Update(set, []hazard.Approaching{approaching("h1", 40, 50, hazard.SeverityHigh)})
	d.Reset()
	clock.flush()
	if len(rec.speech) != 0 {
		t.Errorf("expected pending speech dropped, got %v", rec.speech)
	}

	fresh := newMemorySet()
	if al := d.Update(fresh, []hazard.Approaching{approaching("h1", 40, 50, hazard.SeverityHigh)}); al == nil {
		t.Error("expected reset to forget notifications")
	}
}

func TestDispatcherCustomMessage(t *testing.T) {
	d, rec, clock := newDispatcher()
	set := newMemorySet()
	a := approaching("h1", 40, 50, hazard.SeverityHigh)
	a.Zone.Message = "Cable car tracks. Cross at a right angle."
	d.Update(set, []hazard.Approaching{a})
	clock.flush()
	if len(rec.speech) != 1 || rec.speech[0] != a.Zone.Message {
		t.Errorf("expected zone message, got %v", rec.speech)
	}
}

func TestFanout(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	f := alert.Fanout{a, b}
	f.PlayTones(alert.PatternFor(hazard.SeverityLow))
	f.Speak("Gravel ahead")
	for i, r := range []*recorder{a, b} {
		if len(r.tones) != 1 || len(r.speech) != 1 || r.speech[0] != "Gravel ahead" {
			t.Errorf("sink %d got %d tones and %v", i, len(r.tones), r.speech)
		}
	}
}

func TestDispatcherQueryFailureKeepsNotifications(t *testing.T) {
	d, rec, _ := newDispatcher()
	set := newMemorySet()

	d.Update(set, []hazard.Approaching{approaching("h1", 80, 150, hazard.SeverityHigh)})
	d.QueryFailed(set)
	if len(set.items) != 0 {
		t.Fatalf("expected displayed hazards cleared, got %d", len(set.items))
	}
	if al := d.Update(set, []hazard.Approaching{approaching("h1", 80, 150, hazard.SeverityHigh)}); al != nil {
		t.Error("a hazard seen before the failed lookup should not alert again")
	}
	if len(rec.tones) != 1 {
		t.Errorf("expected 1 tone, got %d", len(rec.tones))
	}
	if len(set.items) != 1 {
		t.Errorf("expected h1 displayed again, got %d entries", len(set.items))
	}

	// leaving for real still resets eligibility
	d.Update(set, nil)
	d.Update(set, []hazard.Approaching{approaching("h1", 80, 150, hazard.SeverityHigh)})
	if len(rec.tones) != 2 {
		t.Errorf("expected alert after the hazard left and returned, got %d tones", len(rec.tones))
	}
}

func TestDispatcherStationaryRiderAcrossFlakyStore(t *testing.T) {
	rider := geo.Coordinate{Latitude: 37.7749, Longitude: -122.4194}
	zone := hazard.Zone{
		ID:                "pothole-7",
		Location:          geo.Coordinate{Latitude: 37.7753, Longitude: -122.4194},
		Kind:              hazard.KindPothole,
		Severity:          hazard.SeverityHigh,
		AlertRadiusMeters: 100,
	}
	calls := 0
	store := hazard.StoreFunc(func(ctx context.Context, b orb.Bound) ([]hazard.Zone, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("connection reset")
		}
		return []hazard.Zone{zone}, nil
	})
	scanner := hazard.NewScanner(store, nil)
	d, rec, _ := newDispatcher()
	set := newMemorySet()

	for i := 0; i < 3; i++ {
		res, err := scanner.Scan(context.Background(), rider, nil)
		if err != nil {
			d.QueryFailed(set)
			continue
		}
		d.Update(set, res)
	}
	if len(rec.tones) != 1 {
		t.Errorf("expected a single tone for a rider who never moved, got %d", len(rec.tones))
	}
}
