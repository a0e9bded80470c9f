package engram

import (
	"math"
	"regexp"
	"strings"
	"time"
)

// GlobalScope always passes a scope filter.
const GlobalScope = "global"

var nonWord = regexp.MustCompile(`\W+`)

// Prompt is a pre-processed task description.
type Prompt struct {
	Lower string
	// Words holds unique words longer than two characters, in first-seen order.
	Words   []string
	wordSet map[string]struct{}
}

// NewPrompt lower-cases text and splits it into words on non-word characters.
func NewPrompt(text string) Prompt {
	lower := strings.ToLower(text)
	p := Prompt{Lower: lower, wordSet: make(map[string]struct{})}
	for _, w := range nonWord.Split(lower, -1) {
		if len(w) <= 2 {
			continue
		}
		if _, seen := p.wordSet[w]; seen {
			continue
		}
		p.wordSet[w] = struct{}{}
		p.Words = append(p.Words, w)
	}
	return p
}

// HasWord reports whether w (case-insensitive) is a prompt word.
func (p Prompt) HasWord(w string) bool {
	_, ok := p.wordSet[strings.ToLower(w)]
	return ok
}

// ScoreOptions carries the per-source context of a scoring call.
type ScoreOptions struct {
	// MatchTerms are the curated terms of the engram's pack, if any.
	MatchTerms []string
	// Scope restricts eligible engrams when non-empty.
	Scope string
	// Decay applies time decay to retrieval strength. Set for personal engrams.
	Decay bool
	Now   time.Time
}

// InScope reports whether an engram scope passes the filter.
func InScope(engramScope, filter string) bool {
	if filter == "" || engramScope == GlobalScope {
		return true
	}
	return strings.HasPrefix(engramScope, filter)
}

// TermHits counts prompt matches for e. Pack terms, tags and domain
// segments count 1 each; statement word matches count 0.5.
func TermHits(e *Engram, p Prompt, matchTerms []string) float64 {
	hits := 0.0
	for _, term := range matchTerms {
		if term != "" && strings.Contains(p.Lower, strings.ToLower(term)) {
			hits++
		}
	}
	for _, tag := range e.Tags {
		if p.HasWord(tag) {
			hits++
		}
	}
	for _, seg := range DomainSegments(e.Domain) {
		if p.HasWord(seg) {
			hits++
		}
	}
	statement := strings.ToLower(e.Statement)
	for _, w := range p.Words {
		if strings.Contains(statement, w) {
			hits += 0.5
		}
	}
	return hits
}

// FeedbackMultiplier maps net feedback to a score multiplier in [0.5, 1.3].
func FeedbackMultiplier(net int) float64 {
	switch {
	case net > 0:
		return 1 + math.Min(float64(net)*0.05, 0.3)
	case net < 0:
		return math.Max(1+float64(net)*0.1, 0.5)
	default:
		return 1
	}
}

// Score returns the relevance of e to the prompt, or 0 when it does not match.
func Score(e *Engram, p Prompt, opts ScoreOptions) float64 {
	if !InScope(e.Scope, opts.Scope) {
		return 0
	}
	hits := TermHits(e, p, opts.MatchTerms)
	if hits == 0 {
		return 0
	}

	strength := e.Activation.RetrievalStrength
	if opts.Decay {
		strength = DecayedStrength(strength, e.Activation.LastAccessed, opts.Now)
	}

	score := hits * strength * FeedbackMultiplier(e.Feedback.Net())
	if e.Consolidated {
		score *= 1.1
	}
	return score
}

// DomainSegments splits a domain on dots and slashes.
func DomainSegments(domain string) []string {
	if domain == "" {
		return nil
	}
	return strings.FieldsFunc(domain, func(r rune) bool {
		return r == '.' || r == '/'
	})
}

// TopDomain returns the first domain segment, or "" for no domain.
func TopDomain(domain string) string {
	segs := DomainSegments(domain)
	if len(segs) == 0 {
		return ""
	}
	return segs[0]
}
