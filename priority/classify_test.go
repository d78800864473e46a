package priority

import (
	"testing"

	"civiceye/models"
)

func TestClassifyBanding(t *testing.T) {
	testCases := []struct {
		name         string
		trustScore   int
		baseSeverity int
		want         string
	}{
		{"untrusted low severity", 10, 30, models.PriorityLow},
		{"untrusted high severity", 30, 95, models.PriorityLow},
		{"untrusted boundary", 39, 100, models.PriorityLow},
		{"medium trust low severity", 45, 30, models.PriorityLow},
		{"medium trust high severity", 45, 70, models.PriorityMedium},
		{"medium trust severity boundary", 59, 50, models.PriorityMedium},
		{"high trust low severity", 65, 40, models.PriorityMedium},
		{"high trust high severity", 70, 80, models.PriorityHigh},
		{"top trust moderate severity", 85, 70, models.PriorityHigh},
		{"top trust critical severity", 85, 80, models.PriorityCritical},
		{"top trust severity boundary", 100, 75, models.PriorityCritical},
		{"exact trust boundaries", 80, 74, models.PriorityHigh},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.trustScore, tc.baseSeverity)
			if got != tc.want {
				t.Errorf("Classify(%d, %d) = %q, want %q", tc.trustScore, tc.baseSeverity, got, tc.want)
			}
		})
	}
}

// Priority must never decrease when either trust or severity increases.
func TestClassifyMonotonic(t *testing.T) {
	for trust := 0; trust <= 100; trust++ {
		for sev := 0; sev <= 100; sev++ {
			here := Rank(Classify(trust, sev))
			if trust < 100 {
				if next := Rank(Classify(trust+1, sev)); next < here {
					t.Fatalf("priority decreased in trust at (%d,%d): %d -> %d", trust, sev, here, next)
				}
			}
			if sev < 100 {
				if next := Rank(Classify(trust, sev+1)); next < here {
					t.Fatalf("priority decreased in severity at (%d,%d): %d -> %d", trust, sev, here, next)
				}
			}
		}
	}
}

func TestClassifyNeverUnknown(t *testing.T) {
	for trust := 0; trust <= 100; trust += 5 {
		for sev := 0; sev <= 100; sev += 5 {
			if got := Classify(trust, sev); got == models.PriorityUnknown {
				t.Fatalf("Classify(%d, %d) returned UNKNOWN", trust, sev)
			}
		}
	}
}
