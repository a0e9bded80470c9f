package engram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fixedNow = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

func daysAgo(n int) string {
	return FormatDate(fixedNow.AddDate(0, 0, -n))
}

func TestDecayedStrength(t *testing.T) {
	tests := []struct {
		name         string
		base         float64
		lastAccessed string
		want         float64
	}{
		{"zero days keeps base", 0.8, daysAgo(0), 0.8},
		{"ten days", 0.8, daysAgo(10), 0.8 * 0.60653066},
		{"sixty days hits floor", 0.8, daysAgo(60), StrengthFloor},
		{"future date counts as zero days", 0.8, FormatDate(fixedNow.AddDate(0, 0, 5)), 0.8},
		{"unparseable date counts as zero days", 0.6, "not-a-date", 0.6},
		{"low base floored", 0.01, daysAgo(0), StrengthFloor},
		{"rfc3339 timestamp", 0.5, fixedNow.Format(time.RFC3339), 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DecayedStrength(tt.base, tt.lastAccessed, fixedNow), 1e-6)
		})
	}
}

func TestDecayedStrength_MonotonicNonIncreasing(t *testing.T) {
	prev := DecayedStrength(1.0, daysAgo(0), fixedNow)
	for d := 1; d <= 120; d++ {
		cur := DecayedStrength(1.0, daysAgo(d), fixedNow)
		assert.LessOrEqual(t, cur, prev, "day %d", d)
		assert.GreaterOrEqual(t, cur, StrengthFloor, "day %d", d)
		prev = cur
	}
}

func TestStateOf(t *testing.T) {
	tests := []struct {
		strength float64
		want     HealthState
	}{
		{1.0, HealthActive},
		{0.5, HealthActive},
		{0.49, HealthFading},
		{0.3, HealthFading},
		{0.29, HealthDormant},
		{0.1, HealthDormant},
		{0.09, HealthRetirementCandidate},
		{0, HealthRetirementCandidate},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StateOf(tt.strength), "strength %v", tt.strength)
	}
}
