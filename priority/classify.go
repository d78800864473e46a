// Package priority derives a report's priority tier from its trust score
// and its issue-type base severity. All priority derivation in the service
// goes through Classify; thresholds live here and nowhere else.
package priority

import "civiceye/models"

// Trust score bands. A report's priority rewards severity but is capped by
// trust: untrusted evidence is deprioritized no matter how severe the issue
// claims to be.
const (
	trustLowCutoff      = 40
	trustMediumCutoff   = 60
	trustHighCutoff     = 80
	severityCutoff      = 50
	severityCriticalMin = 75
)

// Classify maps (trustScore, baseSeverity), both in [0,100], to a priority
// tier. It is monotonic non-decreasing in both arguments.
func Classify(trustScore, baseSeverity int) string {
	switch {
	case trustScore < trustLowCutoff:
		return models.PriorityLow
	case trustScore < trustMediumCutoff:
		if baseSeverity >= severityCutoff {
			return models.PriorityMedium
		}
		return models.PriorityLow
	case trustScore < trustHighCutoff:
		if baseSeverity >= severityCutoff {
			return models.PriorityHigh
		}
		return models.PriorityMedium
	default:
		if baseSeverity >= severityCriticalMin {
			return models.PriorityCritical
		}
		return models.PriorityHigh
	}
}

// Rank orders priority tiers for comparisons, UNKNOWN lowest.
func Rank(priority string) int {
	switch priority {
	case models.PriorityLow:
		return 1
	case models.PriorityMedium:
		return 2
	case models.PriorityHigh:
		return 3
	case models.PriorityCritical:
		return 4
	default:
		return 0
	}
}
