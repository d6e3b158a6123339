package alert

import (
	"fmt"
	"math"

	"github.com/theoremus-urban-solutions/ridenav/hazard"
)

// Message is the spoken text for an approaching hazard. A zone's own message
// wins over the generated one.
func Message(a hazard.Approaching) string {
	if a.Zone.Message != "" {
		return a.Zone.Message
	}
	return fmt.Sprintf("%s ahead in %d meters. Use caution.", a.Zone.Label(), int(math.Round(a.DistanceMeters)))
}
