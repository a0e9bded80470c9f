package engram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngram(t *testing.T) {
	t.Run("candidate by default", func(t *testing.T) {
		e, err := NewEngram("ENG-2026-1016-001", LearnInput{Statement: "  Always X  ", Tags: []string{"a"}}, false, fixedNow)
		require.NoError(t, err)

		assert.Equal(t, StatusCandidate, e.Status)
		assert.Equal(t, "Always X", e.Statement)
		assert.Equal(t, KindBehavioral, e.Type)
		assert.Equal(t, GlobalScope, e.Scope)
		assert.Equal(t, VisibilityPrivate, e.Visibility)
		assert.Equal(t, CandidateRetrieval, e.Activation.RetrievalStrength)
		assert.Equal(t, CandidateStorage, e.Activation.StorageStrength)
		assert.Equal(t, 0, e.Activation.Frequency)
		assert.Equal(t, "2026-10-16", e.Activation.LastAccessed)
		assert.True(t, e.IsPersonal())
	})

	t.Run("auto promote creates active", func(t *testing.T) {
		e, err := NewEngram("ENG-2026-1016-001", LearnInput{Statement: "Always X"}, true, fixedNow)
		require.NoError(t, err)

		assert.Equal(t, StatusActive, e.Status)
		assert.Equal(t, ActiveRetrieval, e.Activation.RetrievalStrength)
		assert.Equal(t, ActiveStorage, e.Activation.StorageStrength)
	})

	t.Run("empty statement", func(t *testing.T) {
		_, err := NewEngram("ENG-2026-1016-001", LearnInput{Statement: "  "}, false, fixedNow)
		assert.ErrorIs(t, err, ErrEmptyStatement)
	})

	t.Run("invalid type rejected", func(t *testing.T) {
		_, err := NewEngram("ENG-2026-1016-001", LearnInput{Statement: "x", Type: "musical"}, false, fixedNow)
		assert.Error(t, err)
	})
}

func TestPromote(t *testing.T) {
	tests := []struct {
		name    string
		status  Status
		wantErr error
		msg     string
	}{
		{"candidate", StatusCandidate, nil, ""},
		{"dormant", StatusDormant, nil, ""},
		{"active", StatusActive, ErrAlreadyActive, "already active"},
		{"retired", StatusRetired, ErrPromoteRetired, "cannot promote retired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := activeEngram("ENG-2026-1016-001", "x")
			e.Status = tt.status
			e.Activation.RetrievalStrength = 0.2
			e.Activation.LastAccessed = daysAgo(9)

			err := Promote(e, fixedNow)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.EqualError(t, err, tt.msg)
				assert.Equal(t, tt.status, e.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusActive, e.Status)
			assert.Equal(t, ActiveRetrieval, e.Activation.RetrievalStrength)
			assert.Equal(t, ActiveStorage, e.Activation.StorageStrength)
			assert.Equal(t, daysAgo(0), e.Activation.LastAccessed)
		})
	}
}

func TestRetire(t *testing.T) {
	e := activeEngram("ENG-2026-1016-001", "x")

	require.NoError(t, Retire(e))
	assert.Equal(t, StatusRetired, e.Status)
	assert.ErrorIs(t, Retire(e), ErrAlreadyRetired)
	assert.Equal(t, StatusRetired, e.Status)
}

func TestApplyFeedback(t *testing.T) {
	e := activeEngram("ENG-2026-1016-001", "x")
	e.Activation.LastAccessed = daysAgo(3)

	require.NoError(t, ApplyFeedback(e, SignalPositive, fixedNow))
	require.NoError(t, ApplyFeedback(e, SignalNegative, fixedNow))
	require.NoError(t, ApplyFeedback(e, SignalNeutral, fixedNow))
	require.NoError(t, ApplyFeedback(e, SignalPositive, fixedNow))

	assert.Equal(t, Feedback{Positive: 2, Negative: 1, Neutral: 1}, *e.Feedback)
	assert.Equal(t, daysAgo(0), e.Activation.LastAccessed)
	assert.Equal(t, StatusActive, e.Status)

	fresh := activeEngram("ENG-2026-1016-002", "y")
	assert.ErrorIs(t, ApplyFeedback(fresh, "meh", fixedNow), ErrInvalidSignal)
	assert.Nil(t, fresh.Feedback)
}

func TestParseSignal(t *testing.T) {
	s, err := ParseSignal("Positive")
	require.NoError(t, err)
	assert.Equal(t, SignalPositive, s)

	_, err = ParseSignal("great")
	assert.ErrorIs(t, err, ErrInvalidSignal)
}

func TestNextID(t *testing.T) {
	existing := []*Engram{
		{ID: "ENG-2026-1016-001"},
		{ID: "ENG-2026-1016-007"},
		{ID: "ENG-2026-1015-042"},
		{ID: "ENG-custom"},
	}

	assert.Equal(t, "ENG-2026-1016-008", NextID(existing, fixedNow))
	assert.Equal(t, "ENG-2026-1016-001", NextID(nil, fixedNow))
	assert.Equal(t, "ENG-2026-1016-1000", NextID([]*Engram{{ID: "ENG-2026-1016-999"}}, fixedNow))
}

func TestEngramValidate(t *testing.T) {
	e := activeEngram("ENG-2026-1016-001", "x")
	require.NoError(t, e.Validate())

	bad := activeEngram("bogus", "x")
	assert.Error(t, bad.Validate())

	strong := activeEngram("ENG-2026-1016-002", "x")
	strong.Activation.RetrievalStrength = 1.5
	assert.Error(t, strong.Validate())

	undated := activeEngram("ENG-2026-1016-003", "x")
	undated.Activation.LastAccessed = ""
	assert.Error(t, undated.Validate())
}
