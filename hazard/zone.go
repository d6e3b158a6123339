package hazard

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/theoremus-urban-solutions/ridenav/geo"
)

// DefaultAlertRadiusMeters applies to zones stored without a radius.
const DefaultAlertRadiusMeters = 100.0

// Severity is the closed, ordered set of hazard severities.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = [...]string{"low", "medium", "high", "critical"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity parses a severity name case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range severityNames {
		if n == name {
			return Severity(i), nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Kind classifies what a zone warns about.
type Kind int

const (
	KindOther Kind = iota
	KindPothole
	KindDangerousIntersection
	KindBlindTurn
	KindPoorPavement
	KindConstruction
	KindHighTraffic
	KindSteepGrade
	KindNarrowPassage
	KindDoorZone
	KindTrolleyTracks
	KindCableCarTracks
	KindMuniConflict
	KindPedestrianHeavy
)

var kindNames = [...]string{
	KindOther:                 "other",
	KindPothole:               "pothole",
	KindDangerousIntersection: "dangerous_intersection",
	KindBlindTurn:             "blind_turn",
	KindPoorPavement:          "poor_pavement",
	KindConstruction:          "construction",
	KindHighTraffic:           "high_traffic",
	KindSteepGrade:            "steep_grade",
	KindNarrowPassage:         "narrow_passage",
	KindDoorZone:              "door_zone",
	KindTrolleyTracks:         "trolley_tracks",
	KindCableCarTracks:        "cable_car_tracks",
	KindMuniConflict:          "muni_conflict",
	KindPedestrianHeavy:       "pedestrian_heavy",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindOther]
	}
	return kindNames[k]
}

// ParseKind maps a stored hazard type to a Kind. Unknown names read as
// KindOther.
func ParseKind(s string) Kind {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == name {
			return Kind(i)
		}
	}
	return KindOther
}

// Label is the spoken name of the hazard kind.
func (k Kind) Label() string {
	switch k {
	case KindPothole:
		return "Pothole"
	case KindDangerousIntersection:
		return "Dangerous intersection"
	case KindBlindTurn:
		return "Blind turn"
	case KindPoorPavement:
		return "Poor pavement"
	case KindConstruction:
		return "Construction"
	case KindHighTraffic:
		return "Heavy traffic"
	case KindSteepGrade:
		return "Steep grade"
	case KindNarrowPassage:
		return "Narrow passage"
	case KindDoorZone:
		return "Door zone"
	case KindTrolleyTracks:
		return "Trolley tracks"
	case KindCableCarTracks:
		return "Cable car tracks"
	case KindMuniConflict:
		return "Muni conflict"
	case KindPedestrianHeavy:
		return "Heavy pedestrian traffic"
	default:
		return "Hazard"
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	*k = ParseKind(name)
	return nil
}

// Zone is a persisted hazard with an alert radius.
type Zone struct {
	ID                string         `json:"id" validate:"required"`
	Location          geo.Coordinate `json:"location"`
	Kind              Kind           `json:"hazardType"`
	Severity          Severity       `json:"severity"`
	AlertRadiusMeters float64        `json:"alertRadiusMeters" validate:"gte=0"`
	Message           string         `json:"message,omitempty"`
}

// Label returns the spoken name of the zone.
func (z Zone) Label() string {
	return z.Kind.Label()
}

// Approaching is a zone near the rider along with its proximity metrics.
type Approaching struct {
	Zone           Zone    `json:"zone"`
	DistanceMeters float64 `json:"distanceMeters"`
	ETASeconds     float64 `json:"etaSeconds"`
	AlertTriggered bool    `json:"alertTriggered"`
}
