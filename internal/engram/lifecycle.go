package engram

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Activation values assigned at creation and promotion.
const (
	CandidateRetrieval = 0.5
	CandidateStorage   = 0.3
	ActiveRetrieval    = 0.7
	ActiveStorage      = 1.0

	// CurrentVersion is the record version written for new engrams.
	CurrentVersion = 2
)

// LearnInput describes a new engram.
type LearnInput struct {
	Statement  string
	Type       Kind
	Scope      string
	Tags       []string
	Domain     string
	Rationale  string
	Visibility Visibility
}

// NewEngram builds a personal engram. It starts as a candidate unless
// autoPromote is set.
func NewEngram(id string, in LearnInput, autoPromote bool, now time.Time) (*Engram, error) {
	statement := strings.TrimSpace(in.Statement)
	if statement == "" {
		return nil, ErrEmptyStatement
	}

	e := &Engram{
		ID:              id,
		Version:         CurrentVersion,
		Status:          StatusCandidate,
		Type:            in.Type,
		Scope:           in.Scope,
		Visibility:      in.Visibility,
		Statement:       statement,
		Rationale:       in.Rationale,
		DerivationCount: 1,
		Domain:          in.Domain,
		Tags:            in.Tags,
		Activation: Activation{
			RetrievalStrength: CandidateRetrieval,
			StorageStrength:   CandidateStorage,
			LastAccessed:      FormatDate(now),
		},
	}
	if e.Type == "" {
		e.Type = KindBehavioral
	}
	if e.Scope == "" {
		e.Scope = GlobalScope
	}
	if autoPromote {
		e.Status = StatusActive
		e.Activation.RetrievalStrength = ActiveRetrieval
		e.Activation.StorageStrength = ActiveStorage
	}
	e.Normalize()

	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Promote moves a candidate (or dormant) engram to active.
func Promote(e *Engram, now time.Time) error {
	switch e.Status {
	case StatusActive:
		return ErrAlreadyActive
	case StatusRetired:
		return ErrPromoteRetired
	}
	e.Status = StatusActive
	e.Activation.RetrievalStrength = ActiveRetrieval
	e.Activation.StorageStrength = ActiveStorage
	e.Activation.LastAccessed = FormatDate(now)
	return nil
}

// Retire moves an engram to the terminal retired status.
func Retire(e *Engram) error {
	if e.Status == StatusRetired {
		return ErrAlreadyRetired
	}
	e.Status = StatusRetired
	return nil
}

// ApplyFeedback increments the counter for signal and bumps last_accessed.
func ApplyFeedback(e *Engram, signal Signal, now time.Time) error {
	switch signal {
	case SignalPositive, SignalNegative, SignalNeutral:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSignal, signal)
	}
	if e.Feedback == nil {
		e.Feedback = &Feedback{}
	}
	switch signal {
	case SignalPositive:
		e.Feedback.Positive++
	case SignalNegative:
		e.Feedback.Negative++
	case SignalNeutral:
		e.Feedback.Neutral++
	}
	e.Activation.LastAccessed = FormatDate(now)
	return nil
}

// RecordUsage applies the injection side effect.
func RecordUsage(e *Engram, now time.Time) {
	e.Activation.Frequency++
	e.Activation.LastAccessed = FormatDate(now)
}

// ParseSignal validates a signal name.
func ParseSignal(s string) (Signal, error) {
	switch sig := Signal(strings.ToLower(s)); sig {
	case SignalPositive, SignalNegative, SignalNeutral:
		return sig, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSignal, s)
	}
}

// NextID returns the next ENG-YYYY-MMDD-NNN identifier for the day of now.
func NextID(existing []*Engram, now time.Time) string {
	date := now.UTC().Format("20060102")
	prefix := "ENG-" + date[:4] + "-" + date[4:] + "-"

	maxSeq := 0
	for _, e := range existing {
		if !strings.HasPrefix(e.ID, prefix) {
			continue
		}
		if seq, err := strconv.Atoi(e.ID[len(prefix):]); err == nil && seq > maxSeq {
			maxSeq = seq
		}
	}
	return fmt.Sprintf("%s%03d", prefix, maxSeq+1)
}
