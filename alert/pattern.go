package alert

import (
	"encoding/json"
	"time"

	"github.com/theoremus-urban-solutions/ridenav/hazard"
)

const (
	highPitchHz = 880.0
	lowPitchHz  = 660.0
	softPitchHz = 520.0
)

// Tone is one beep followed by silence.
type Tone struct {
	FrequencyHz float64
	Duration    time.Duration
	Gap         time.Duration
}

// MarshalJSON writes durations in milliseconds for audio clients.
func (t Tone) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		FrequencyHz float64 `json:"frequencyHz"`
		DurationMs  int64   `json:"durationMs"`
		GapMs       int64   `json:"gapMs"`
	}{t.FrequencyHz, t.Duration.Milliseconds(), t.Gap.Milliseconds()})
}

// Pattern is the tone sequence played for a severity.
type Pattern struct {
	Severity hazard.Severity `json:"severity"`
	Tones    []Tone          `json:"tones"`
}

// Duration is the total playing time including gaps.
func (p Pattern) Duration() time.Duration {
	var total time.Duration
	for _, t := range p.Tones {
		total += t.Duration + t.Gap
	}
	return total
}

// PatternFor returns the tone pattern of a severity: critical alternates
// high and low pitch three times, high plays two descending tones, medium and
// low play a single tone.
func PatternFor(sev hazard.Severity) Pattern {
	p := Pattern{Severity: sev}
	switch sev {
	case hazard.SeverityCritical:
		for i := 0; i < 3; i++ {
			p.Tones = append(p.Tones,
				Tone{FrequencyHz: highPitchHz, Duration: 150 * time.Millisecond, Gap: 50 * time.Millisecond},
				Tone{FrequencyHz: lowPitchHz, Duration: 150 * time.Millisecond, Gap: 50 * time.Millisecond},
			)
		}
	case hazard.SeverityHigh:
		p.Tones = []Tone{
			{FrequencyHz: highPitchHz, Duration: 200 * time.Millisecond, Gap: 80 * time.Millisecond},
			{FrequencyHz: lowPitchHz, Duration: 200 * time.Millisecond},
		}
	case hazard.SeverityMedium:
		p.Tones = []Tone{{FrequencyHz: lowPitchHz, Duration: 300 * time.Millisecond}}
	case hazard.SeverityLow:
		p.Tones = []Tone{{FrequencyHz: softPitchHz, Duration: 300 * time.Millisecond}}
	default:
		p.Tones = []Tone{{FrequencyHz: softPitchHz, Duration: 300 * time.Millisecond}}
	}
	return p
}
