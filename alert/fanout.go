package alert

// Sink plays tones and speaks.
type Sink interface {
	TonePlayer
	Speaker
}

// Fanout forwards every cue to each of its sinks in order.
type Fanout []Sink

func (f Fanout) PlayTones(p Pattern) {
	for _, s := range f {
		s.PlayTones(p)
	}
}

func (f Fanout) Speak(text string) {
	for _, s := range f {
		s.Speak(text)
	}
}
