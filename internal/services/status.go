package services

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/engramd/internal/engram"
	"github.com/fyrsmithlabs/engramd/internal/hints"
)

// ScalingThreshold is the personal engram count at which status suggests
// pruning the store.
const ScalingThreshold = 500

// Status summarizes a storage root.
type Status struct {
	Version        string         `json:"version"`
	Mode           string         `json:"mode"`
	Engrams        int            `json:"engrams"`
	ByStatus       map[string]int `json:"by_status"`
	ByHealth       map[string]int `json:"by_health"`
	Packs          int            `json:"packs"`
	PackEngrams    int            `json:"pack_engrams"`
	JournalEntries int            `json:"journal_entries"`
	KnowledgeNotes int            `json:"knowledge_notes"`
	Modules        int            `json:"modules,omitempty"`
	ScalingHint    string         `json:"scaling_hint,omitempty"`
	// Recommendations lists follow-ups derived from the counts.
	Recommendations []string `json:"recommendations"`
}

// GetStatus counts engrams, packs, notes and modules.
func GetStatus(ctx context.Context, reg Registry) (*Status, error) {
	stats, err := reg.Engrams().Stats(ctx)
	if err != nil {
		return nil, err
	}
	journal, knowledge := reg.Notes().Counts()

	st := &Status{
		Version:         reg.Version(),
		Mode:            string(reg.Layout().Mode),
		Engrams:         stats.Total,
		ByStatus:        make(map[string]int, len(stats.ByStatus)),
		ByHealth:        make(map[string]int, len(stats.ByHealth)),
		Packs:           stats.Packs,
		PackEngrams:     stats.PackEngrams,
		JournalEntries:  journal,
		KnowledgeNotes:  knowledge,
		Recommendations: []string{},
	}
	for s, n := range stats.ByStatus {
		st.ByStatus[string(s)] = n
	}
	for h, n := range stats.ByHealth {
		st.ByHealth[string(h)] = n
	}
	if mods := reg.Modules(); mods != nil && mods.Enabled() {
		st.Modules = len(mods.List())
	}

	if st.Engrams >= ScalingThreshold {
		st.ScalingHint = fmt.Sprintf(
			"You have %d engrams. Consider retiring stale ones or moving shared ones into a pack with %s.",
			st.Engrams, hints.ToolExport)
	}
	if n := stats.ByStatus[engram.StatusCandidate]; n > 0 {
		st.Recommendations = append(st.Recommendations, fmt.Sprintf(
			"%d candidate engram(s) awaiting review. Use %s to activate.", n, hints.ToolPromote))
	}
	if n := stats.ByHealth[engram.HealthRetirementCandidate]; n > 0 {
		st.Recommendations = append(st.Recommendations, fmt.Sprintf(
			"%d active engram(s) have decayed to retirement candidates. Review them with %s.", n, hints.ToolForget))
	}
	return st, nil
}
