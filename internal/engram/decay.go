package engram

import (
	"math"
	"time"
)

const (
	// DecayRate is the exponential decay constant per day.
	DecayRate = 0.05

	// StrengthFloor keeps decayed strength above zero so an engram can
	// always resurface on a specific enough match.
	StrengthFloor = 0.05

	// DateLayout is the stored format of last_accessed.
	DateLayout = "2006-01-02"
)

// HealthState is an advisory classification of current strength.
type HealthState string

const (
	HealthActive              HealthState = "active"
	HealthFading              HealthState = "fading"
	HealthDormant             HealthState = "dormant"
	HealthRetirementCandidate HealthState = "retirement_candidate"
)

// DecayedStrength returns base decayed by the days elapsed between
// lastAccessed and now. Future or unparseable dates count as zero days.
func DecayedStrength(base float64, lastAccessed string, now time.Time) float64 {
	days := 0.0
	if last, ok := ParseDate(lastAccessed); ok {
		days = math.Max(0, now.Sub(last).Hours()/24)
	}
	return math.Max(base*math.Exp(-DecayRate*days), StrengthFloor)
}

// StateOf buckets a strength value. Lower bounds are inclusive.
func StateOf(strength float64) HealthState {
	switch {
	case strength >= 0.5:
		return HealthActive
	case strength >= 0.3:
		return HealthFading
	case strength >= 0.1:
		return HealthDormant
	default:
		return HealthRetirementCandidate
	}
}

// ParseDate accepts a YYYY-MM-DD date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// FormatDate renders t in the stored date format (UTC).
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
