package route

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ManeuverKind is the closed set of instruction types.
type ManeuverKind int

const (
	Depart ManeuverKind = iota
	Arrive
	TurnLeft
	TurnRight
	SlightLeft
	SlightRight
	Straight
	UTurn
	Merge
	Fork
	Roundabout
)

var maneuverNames = [...]string{
	Depart:      "depart",
	Arrive:      "arrive",
	TurnLeft:    "turn_left",
	TurnRight:   "turn_right",
	SlightLeft:  "slight_left",
	SlightRight: "slight_right",
	Straight:    "straight",
	UTurn:       "u_turn",
	Merge:       "merge",
	Fork:        "fork",
	Roundabout:  "roundabout",
}

func (k ManeuverKind) String() string {
	if k < 0 || int(k) >= len(maneuverNames) {
		return fmt.Sprintf("ManeuverKind(%d)", int(k))
	}
	return maneuverNames[k]
}

// ParseManeuverKind parses the wire name of a maneuver kind.
func ParseManeuverKind(s string) (ManeuverKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range maneuverNames {
		if n == name {
			return ManeuverKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown maneuver kind %q", s)
}

func (k ManeuverKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *ManeuverKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseManeuverKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// valhallaManeuverKinds maps Valhalla maneuver type codes onto our kinds.
// Sharp turns fold into plain turns, ramps and stay-instructions into the
// slight/straight kinds, exits into merges and ferries into forks.
var valhallaManeuverKinds = map[int]ManeuverKind{
	0: Depart, 1: Depart, 2: Straight,
	3: SlightRight, 4: TurnRight, 5: TurnRight,
	6: UTurn, 7: UTurn,
	8: SlightLeft, 9: TurnLeft, 10: TurnLeft,
	11: UTurn, 12: UTurn,
	13: Straight, 14: SlightRight, 15: SlightLeft,
	16: Merge, 17: Merge,
	18: Straight, 19: SlightRight, 20: SlightLeft,
	21: Merge, 22: Roundabout, 23: Roundabout,
	24: Fork, 25: Fork,
	26: Arrive, 27: Arrive,
}

// KindFromValhalla maps a Valhalla maneuver type code. Unknown codes read as
// straight.
func KindFromValhalla(code int) ManeuverKind {
	if k, ok := valhallaManeuverKinds[code]; ok {
		return k
	}
	return Straight
}
