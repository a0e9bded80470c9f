package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatShare(t *testing.T) {
	tests := []struct {
		name     string
		part     int
		total    int
		expected string
	}{
		{"half", 5, 10, "5 (50.0%)"},
		{"all", 3, 3, "3 (100.0%)"},
		{"none", 0, 7, "0 (0.0%)"},
		{"empty total", 0, 0, "0 (0.0%)"},
		{"thirds", 1, 3, "1 (33.3%)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatShare(tt.part, tt.total))
		})
	}
}

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, "0.0%", FormatPercentage(0))
	assert.Equal(t, "45.7%", FormatPercentage(0.457))
	assert.Equal(t, "100.0%", FormatPercentage(1))
}

func TestFormatDelta(t *testing.T) {
	assert.Equal(t, "+3", FormatDelta(3))
	assert.Equal(t, "0", FormatDelta(0))
	assert.Equal(t, "-2", FormatDelta(-2))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds  int64
		expected string
	}{
		{0, "0m"},
		{59, "0m"},
		{60, "1m"},
		{3599, "59m"},
		{3600, "1h 0m"},
		{8100, "2h 15m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatDuration(tt.seconds))
	}
}
