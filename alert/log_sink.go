package alert

import "log/slog"

// LogSink writes tones and speech to a logger. It serves headless runs where
// no audio client is connected.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

func (s LogSink) PlayTones(p Pattern) {
	s.logger().Info("tone", "severity", p.Severity.String(), "tones", len(p.Tones), "duration", p.Duration())
}

func (s LogSink) Speak(text string) {
	s.logger().Info("speech", "text", text)
}
