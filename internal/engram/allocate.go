package engram

import (
	"sort"
)

const (
	// TokensPerEngram is the fixed per-item budget cost in compact format.
	TokensPerEngram = 40

	// MaxPerPack caps selected engrams from one pack. Personal engrams are exempt.
	MaxPerPack = 5

	// MaxPerDomain caps selected engrams sharing a top-level domain.
	MaxPerDomain = 10

	// DefaultMaxTokens is the injection budget when none is given.
	DefaultMaxTokens = 8000

	// DefaultMinRelevance is the score threshold when none is given.
	DefaultMinRelevance = 0.3

	personalKey = "__personal__"
	noDomainKey = "__none__"
)

// Scored is an engram paired with its relevance and source.
type Scored struct {
	Engram *Engram
	// Source is the pack ID, or "" for the personal store.
	Source string
	Score  float64
}

// Personal reports whether the scored engram came from the personal store.
func (s Scored) Personal() bool {
	return s.Source == ""
}

// Rank keeps candidates scoring at least minRelevance, sorted by descending
// score. Ties keep their encounter order.
func Rank(scored []Scored, minRelevance float64) []Scored {
	passing := make([]Scored, 0, len(scored))
	for _, s := range scored {
		if s.Score >= minRelevance {
			passing = append(passing, s)
		}
	}
	sort.SliceStable(passing, func(i, j int) bool {
		return passing[i].Score > passing[j].Score
	})
	return passing
}

// Allocate greedily fills maxTokens from ranked candidates while enforcing
// per-pack and per-domain caps. A capped candidate is skipped; the first
// candidate that would exceed the budget ends the walk.
func Allocate(ranked []Scored, maxTokens int) []Scored {
	selected := make([]Scored, 0)
	packCounts := make(map[string]int)
	domainCounts := make(map[string]int)
	used := 0

	for _, s := range ranked {
		if used+TokensPerEngram > maxTokens {
			break
		}

		pack := s.Source
		if pack == "" {
			pack = personalKey
		}
		if pack != personalKey && packCounts[pack] >= MaxPerPack {
			continue
		}

		domain := TopDomain(s.Engram.Domain)
		if domain == "" {
			domain = noDomainKey
		}
		if domainCounts[domain] >= MaxPerDomain {
			continue
		}

		selected = append(selected, s)
		used += TokensPerEngram
		packCounts[pack]++
		domainCounts[domain]++
	}
	return selected
}

// Split partitions a selection into directives (first ceil(2n/3)) and consider.
func Split(selected []Scored) (directives, consider []Scored) {
	at := (2*len(selected) + 2) / 3
	return selected[:at], selected[at:]
}
