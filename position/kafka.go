package position

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/theoremus-urban-solutions/ridenav/geo"
)

// KafkaConfig selects the topic carrying device fixes.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// DeviceKey restricts the stream to messages with this key.
	DeviceKey string
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaSource consumes JSON fixes from Kafka.
type KafkaSource struct {
	cfg       KafkaConfig
	log       *slog.Logger
	newReader func() messageReader
}

// NewKafkaSource creates a source reading cfg.Topic.
func NewKafkaSource(cfg KafkaConfig, logger *slog.Logger) *KafkaSource {
	if logger == nil {
		logger = slog.Default()
	}
	s := &KafkaSource{cfg: cfg, log: logger.With("component", "kafka_source", "topic", cfg.Topic)}
	s.newReader = func() messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       cfg.Topic,
			GroupID:     cfg.GroupID,
			MinBytes:    1,
			MaxBytes:    1e6,
			StartOffset: kafka.LastOffset,
			MaxWait:     500 * time.Millisecond,
		})
	}
	return s
}

type fixMessage struct {
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Heading   *float64  `json:"heading"`
	Speed     *float64  `json:"speed"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
}

func decodeFixMessage(b []byte) (Event, error) {
	var m fixMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return Event{}, fmt.Errorf("failed to decode fix: %w", err)
	}
	switch m.Error {
	case "":
	case "permission_denied":
		return Event{Err: ErrPermissionDenied}, nil
	case "timeout":
		return Event{Err: ErrTimeout}, nil
	default:
		return Event{Err: fmt.Errorf("%w: %s", ErrUnavailable, m.Error)}, nil
	}
	if m.Latitude == nil || m.Longitude == nil {
		return Event{}, errors.New("fix without coordinates")
	}
	f := Fix{
		Coordinate:     geo.Coordinate{Latitude: *m.Latitude, Longitude: *m.Longitude},
		AccuracyMeters: m.Accuracy,
		Heading:        m.Heading,
		SpeedMps:       m.Speed,
		Time:           m.Timestamp,
	}
	if !f.Coordinate.Valid() {
		return Event{}, fmt.Errorf("fix out of range: %+v", f.Coordinate)
	}
	if f.Time.IsZero() {
		f.Time = time.Now()
	}
	return Event{Fix: f}, nil
}

func (s *KafkaSource) Watch(ctx context.Context) (<-chan Event, error) {
	if len(s.cfg.Brokers) == 0 || s.cfg.Topic == "" {
		return nil, fmt.Errorf("%w: kafka brokers and topic are required", ErrUnavailable)
	}
	r := s.newReader()
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		defer func() { _ = r.Close() }()
		for {
			msg, err := r.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.Warn("kafka read failed", "error", err)
				select {
				case out <- Event{Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}:
				case <-ctx.Done():
				}
				return
			}
			if s.cfg.DeviceKey != "" && string(msg.Key) != s.cfg.DeviceKey {
				continue
			}
			ev, err := decodeFixMessage(msg.Value)
			if err != nil {
				s.log.Debug("skipping kafka message", "offset", msg.Offset, "error", err)
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
