package hazard_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/theoremus-urban-solutions/ridenav/hazard"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input    string
		expected hazard.Severity
		wantErr  bool
	}{
		{"low", hazard.SeverityLow, false},
		{"MEDIUM", hazard.SeverityMedium, false},
		{"High", hazard.SeverityHigh, false},
		{"critical", hazard.SeverityCritical, false},
		{"extreme", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := hazard.ParseSeverity(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if err == nil && got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
	if !(hazard.SeverityLow < hazard.SeverityMedium && hazard.SeverityHigh < hazard.SeverityCritical) {
		t.Error("severities must be ordered")
	}
}

func TestKindLabels(t *testing.T) {
	if got := hazard.ParseKind("door_zone").Label(); got != "Door zone" {
		t.Errorf("unexpected label %q", got)
	}
	if got := hazard.ParseKind("meteor_strike"); got != hazard.KindOther {
		t.Errorf("unknown kinds should read as other, got %s", got)
	}
	if got := hazard.KindOther.Label(); got != "Hazard" {
		t.Errorf("unexpected label %q", got)
	}
}

func TestZoneJSON(t *testing.T) {
	var z hazard.Zone
	err := json.Unmarshal([]byte(`{"id":"z1","location":{"latitude":37.77,"longitude":-122.42},"hazardType":"pothole","severity":"high","alertRadiusMeters":40}`), &z)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if z.Kind != hazard.KindPothole || z.Severity != hazard.SeverityHigh || z.AlertRadiusMeters != 40 {
		t.Errorf("unexpected zone %+v", z)
	}
	b, _ := json.Marshal(z)
	if want := `"severity":"high"`; !strings.Contains(string(b), want) {
		t.Errorf("expected %s in %s", want, b)
	}
}
