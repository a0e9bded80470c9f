package secrets

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// Scrubber detects and redacts secrets from content.
type Scrubber interface {
	// Scrub redacts secrets from the content.
	Scrub(content string) *Result

	// Check detects secrets without redacting.
	Check(content string) *Result
}

// Result contains the scrubbing result. Secret values are never retained.
type Result struct {
	Scrubbed string         `json:"scrubbed"`
	Findings []Finding      `json:"findings,omitempty"`
	ByRule   map[string]int `json:"by_rule,omitempty"`
}

// Finding locates a detected secret.
type Finding struct {
	RuleID string `json:"rule_id"`
	Line   int    `json:"line"`
}

// HasFindings reports whether anything was redacted.
func (r *Result) HasFindings() bool {
	return len(r.Findings) > 0
}

type span struct {
	start, end int
}

type scrubber struct {
	enabled   bool
	redaction string
	rules     []compiledRule
	allow     []*regexp.Regexp

	// gitleaks detectors accumulate state per scan.
	detectorMu sync.Mutex
	detector   *detect.Detector
}

// New creates a Scrubber. A nil config uses DefaultConfig().
func New(cfg *Config) (Scrubber, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	rules, allow, err := cfg.compile()
	if err != nil {
		return nil, err
	}

	s := &scrubber{
		enabled:   cfg.Enabled,
		redaction: cfg.RedactionString,
		rules:     rules,
		allow:     allow,
	}
	if s.redaction == "" {
		s.redaction = DefaultRedaction
	}
	if cfg.Enabled && cfg.Detector {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return nil, err
		}
		s.detector = d
	}
	return s, nil
}

// MustNew creates a Scrubber, panicking on error.
func MustNew(cfg *Config) Scrubber {
	s, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *scrubber) Scrub(content string) *Result {
	result := &Result{Scrubbed: content, ByRule: make(map[string]int)}
	if !s.enabled || content == "" {
		return result
	}

	spans := s.matchRules(content, result)
	result.Scrubbed = redact(content, spans, s.redaction)

	if s.detector != nil {
		result.Scrubbed = s.detectorPass(result.Scrubbed, result)
	}
	return result
}

func (s *scrubber) Check(content string) *Result {
	result := s.Scrub(content)
	result.Scrubbed = content
	return result
}

func (s *scrubber) matchRules(content string, result *Result) []span {
	var spans []span
	for _, rule := range s.rules {
		if len(rule.keywords) > 0 && !anyMatch(rule.keywords, content) {
			continue
		}
		for _, m := range rule.pattern.FindAllStringIndex(content, -1) {
			if anyMatch(s.allow, content[m[0]:m[1]]) {
				continue
			}
			result.Findings = append(result.Findings, Finding{
				RuleID: rule.id,
				Line:   strings.Count(content[:m[0]], "\n") + 1,
			})
			result.ByRule[rule.id]++
			spans = append(spans, span{m[0], m[1]})
		}
	}
	return spans
}

func (s *scrubber) detectorPass(content string, result *Result) string {
	s.detectorMu.Lock()
	findings := s.detector.DetectString(content)
	s.detectorMu.Unlock()

	for _, f := range findings {
		if f.Secret == "" || anyMatch(s.allow, f.Secret) || !strings.Contains(content, f.Secret) {
			continue
		}
		content = strings.ReplaceAll(content, f.Secret, s.redaction)
		result.Findings = append(result.Findings, Finding{RuleID: f.RuleID, Line: f.StartLine})
		result.ByRule[f.RuleID]++
	}
	return content
}

func anyMatch(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// redact merges overlapping spans and replaces them back to front.
func redact(content string, spans []span, with string) string {
	if len(spans) == 0 {
		return content
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	merged := []span{spans[0]}
	for _, sp := range spans[1:] {
		last := &merged[len(merged)-1]
		if sp.start <= last.end {
			if sp.end > last.end {
				last.end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}

	for i := len(merged) - 1; i >= 0; i-- {
		sp := merged[i]
		content = content[:sp.start] + with + content[sp.end:]
	}
	return content
}

var _ Scrubber = (*scrubber)(nil)
