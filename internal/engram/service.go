package engram

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/engramd/internal/logging"
)

const (
	// SourcePersonal labels results that came from the personal store.
	SourcePersonal = "personal"
	// SourcePack labels results that came from an installed pack.
	SourcePack = "pack"

	// MaxForgetMatches bounds the match list returned by a search-based forget.
	MaxForgetMatches = 100

	// DefaultRecallLimit is the recall result limit when none is given.
	DefaultRecallLimit = 10
)

// Config holds the engine settings. It is passed explicitly to the Service.
type Config struct {
	AutoPromote  bool
	MaxTokens    int
	MinRelevance float64
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		AutoPromote:  false,
		MaxTokens:    DefaultMaxTokens,
		MinRelevance: DefaultMinRelevance,
	}
}

// Service runs engram operations against a personal repository and a pack source.
type Service struct {
	personal Repository
	packs    PackSource
	logger   *zap.Logger
	now      func() time.Time

	mu  sync.RWMutex
	cfg Config
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service.
func NewService(personal Repository, packs PackSource, cfg Config, logger *zap.Logger, opts ...Option) (*Service, error) {
	if personal == nil {
		return nil, fmt.Errorf("personal repository cannot be nil")
	}
	if packs == nil {
		return nil, fmt.Errorf("pack source cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		personal: personal,
		packs:    packs,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the current settings.
func (s *Service) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// SetConfig replaces the settings used by subsequent operations.
func (s *Service) SetConfig(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Learn creates a new personal engram.
func (s *Service) Learn(ctx context.Context, in LearnInput) (*Engram, error) {
	engrams, err := s.personal.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading engrams: %w", err)
	}

	now := s.now()
	e, err := NewEngram(NextID(engrams, now), in, s.Config().AutoPromote, now)
	if err != nil {
		return nil, err
	}

	if err := s.personal.Save(ctx, append(engrams, e)); err != nil {
		return nil, fmt.Errorf("saving engrams: %w", err)
	}

	s.logger.Debug("engram learned",
		zap.String("id", e.ID),
		zap.String("status", string(e.Status)),
		logging.RedactedString("statement", e.Statement))
	return e, nil
}

// ItemError is a per-target failure in a batch operation.
type ItemError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// PromoteResult reports a batch promotion.
type PromoteResult struct {
	Promoted []*Engram
	Errors   []ItemError
}

// Promote activates candidate engrams. Failures are reported per ID and do
// not stop the batch. The store is written only if something was promoted.
func (s *Service) Promote(ctx context.Context, ids []string) (*PromoteResult, error) {
	if len(ids) == 0 {
		return nil, ErrNoTargets
	}

	engrams, err := s.personal.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading engrams: %w", err)
	}

	now := s.now()
	result := &PromoteResult{}
	for _, id := range ids {
		e := find(engrams, id)
		if e == nil {
			result.Errors = append(result.Errors, ItemError{ID: id, Error: ErrNotFound.Error()})
			continue
		}
		if err := Promote(e, now); err != nil {
			result.Errors = append(result.Errors, ItemError{ID: id, Error: err.Error()})
			continue
		}
		result.Promoted = append(result.Promoted, e)
	}

	if len(result.Promoted) > 0 {
		if err := s.personal.Save(ctx, engrams); err != nil {
			return nil, fmt.Errorf("saving engrams: %w", err)
		}
	}
	return result, nil
}

// Forget retires the engram with id.
func (s *Service) Forget(ctx context.Context, id string) (*Engram, error) {
	engrams, err := s.personal.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading engrams: %w", err)
	}

	e := find(engrams, id)
	if e == nil {
		return nil, fmt.Errorf("engram %s: %w", id, ErrNotFound)
	}
	if err := Retire(e); err != nil {
		return nil, fmt.Errorf("engram %s: %w", id, err)
	}

	if err := s.personal.Save(ctx, engrams); err != nil {
		return nil, fmt.Errorf("saving engrams: %w", err)
	}
	s.logger.Debug("engram retired", zap.String("id", id))
	return e, nil
}

// ForgetSearchResult reports a search-based forget.
type ForgetSearchResult struct {
	Retired      *Engram
	Matches      []*Engram
	TotalMatches int
}

// ForgetSearch retires the single non-retired engram whose statement, ID or
// tags contain query. Several matches return ErrAmbiguous with up to
// MaxForgetMatches of them listed.
func (s *Service) ForgetSearch(ctx context.Context, query string) (*ForgetSearchResult, error) {
	engrams, err := s.personal.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading engrams: %w", err)
	}

	q := strings.ToLower(query)
	var matches []*Engram
	for _, e := range engrams {
		if e.Status == StatusRetired {
			continue
		}
		if matchesQuery(e, q) {
			matches = append(matches, e)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no engrams matching %q: %w", query, ErrNotFound)
	case 1:
		_ = Retire(matches[0])
		if err := s.personal.Save(ctx, engrams); err != nil {
			return nil, fmt.Errorf("saving engrams: %w", err)
		}
		return &ForgetSearchResult{Retired: matches[0], Matches: matches, TotalMatches: 1}, nil
	}

	result := &ForgetSearchResult{TotalMatches: len(matches), Matches: matches}
	if len(matches) > MaxForgetMatches {
		result.Matches = matches[:MaxForgetMatches]
	}
	return result, fmt.Errorf("%d matches found: %w", len(matches), ErrAmbiguous)
}

func matchesQuery(e *Engram, q string) bool {
	if strings.Contains(strings.ToLower(e.Statement), q) || strings.Contains(strings.ToLower(e.ID), q) {
		return true
	}
	for _, t := range e.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// FeedbackSignal targets one engram with one signal.
type FeedbackSignal struct {
	EngramID string
	Signal   Signal
}

// FeedbackItem is the outcome of one feedback signal.
type FeedbackItem struct {
	EngramID string
	Signal   Signal
	Source   string
	Counts   Feedback
	Err      error
}

// FeedbackBatchResult reports a batch of feedback signals.
type FeedbackBatchResult struct {
	Results []FeedbackItem
	Summary Feedback
}

// Feedback records one signal against a personal or pack engram. Pack
// engram feedback is written to that pack's own store.
func (s *Service) Feedback(ctx context.Context, id string, signal Signal) (*FeedbackItem, error) {
	res, err := s.FeedbackBatch(ctx, []FeedbackSignal{{EngramID: id, Signal: signal}})
	if err != nil {
		return nil, err
	}
	item := res.Results[0]
	if item.Err != nil {
		return nil, item.Err
	}
	return &item, nil
}

// FeedbackBatch applies signals in order. Every source is loaded once and
// every modified store is written once.
func (s *Service) FeedbackBatch(ctx context.Context, signals []FeedbackSignal) (*FeedbackBatchResult, error) {
	if len(signals) == 0 {
		return nil, ErrNoTargets
	}

	personal, err := s.personal.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading engrams: %w", err)
	}
	var packs []*Pack
	packsLoaded := false

	now := s.now()
	result := &FeedbackBatchResult{}
	personalDirty := false
	dirtyPacks := make(map[string]*Pack)
	var dirtyOrder []*Pack

	for _, sig := range signals {
		item := FeedbackItem{EngramID: sig.EngramID, Signal: sig.Signal}

		target := find(personal, sig.EngramID)
		var owner *Pack
		if target == nil {
			if !packsLoaded {
				packs, err = s.packs.LoadPacks(ctx)
				if err != nil {
					return nil, fmt.Errorf("loading packs: %w", err)
				}
				packsLoaded = true
			}
			for _, p := range packs {
				if e := find(p.Engrams, sig.EngramID); e != nil {
					target, owner = e, p
					break
				}
			}
		}

		if target == nil {
			item.Err = fmt.Errorf("engram %s: %w", sig.EngramID, ErrNotFound)
			result.Results = append(result.Results, item)
			continue
		}
		if err := ApplyFeedback(target, sig.Signal, now); err != nil {
			item.Err = err
			result.Results = append(result.Results, item)
			continue
		}

		if owner == nil {
			item.Source = SourcePersonal
			personalDirty = true
		} else {
			item.Source = SourcePack
			if _, ok := dirtyPacks[owner.ID()]; !ok {
				dirtyPacks[owner.ID()] = owner
				dirtyOrder = append(dirtyOrder, owner)
			}
		}
		item.Counts = *target.Feedback
		result.Results = append(result.Results, item)

		switch sig.Signal {
		case SignalPositive:
			result.Summary.Positive++
		case SignalNegative:
			result.Summary.Negative++
		case SignalNeutral:
			result.Summary.Neutral++
		}
	}

	if personalDirty {
		if err := s.personal.Save(ctx, personal); err != nil {
			return nil, fmt.Errorf("saving engrams: %w", err)
		}
	}
	for _, p := range dirtyOrder {
		if p.Repo == nil {
			s.logger.Warn("pack has no writable store, feedback not persisted", zap.String("pack", p.ID()))
			continue
		}
		if err := p.Repo.Save(ctx, p.Engrams); err != nil {
			return nil, fmt.Errorf("saving pack %s: %w", p.ID(), err)
		}
	}
	return result, nil
}

// InjectRequest describes an injection.
type InjectRequest struct {
	Prompt string
	Scope  string
	// MaxTokens defaults to the configured budget when <= 0.
	MaxTokens int
	// MinRelevance defaults to the configured threshold when nil.
	MinRelevance *float64
}

// InjectResult is the selected, formatted set of engrams.
type InjectResult struct {
	Directives []Scored
	Consider   []Scored
	TokensUsed int
	Count      int
	Text       string
	// InjectedIDs lists the selected personal engrams.
	InjectedIDs []string
}

// Select scores and allocates without side effects.
func Select(req InjectRequest, cfg Config, personal []*Engram, packs []*Pack, now time.Time) (directives, consider []Scored) {
	prompt := NewPrompt(req.Prompt)
	var scored []Scored

	for _, e := range personal {
		if e.Status != StatusActive {
			continue
		}
		score := Score(e, prompt, ScoreOptions{Scope: req.Scope, Decay: true, Now: now})
		if score > 0 {
			scored = append(scored, Scored{Engram: e, Score: score})
		}
	}

	for _, p := range packs {
		if p.Manifest.Datacore.InjectionPolicy != PolicyOnMatch {
			continue
		}
		opts := ScoreOptions{MatchTerms: p.Manifest.Datacore.MatchTerms, Scope: req.Scope, Now: now}
		for _, e := range p.Engrams {
			if e.Status != StatusActive {
				continue
			}
			score := Score(e, prompt, opts)
			if score > 0 {
				scored = append(scored, Scored{Engram: e, Source: p.ID(), Score: score})
			}
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = cfg.MaxTokens
	}
	minRelevance := cfg.MinRelevance
	if req.MinRelevance != nil {
		minRelevance = *req.MinRelevance
	}

	return Split(Allocate(Rank(scored, minRelevance), maxTokens))
}

// Inject selects engrams for req, records usage on the selected personal
// engrams, and formats the result.
func (s *Service) Inject(ctx context.Context, req InjectRequest) (*InjectResult, error) {
	personal, err := s.personal.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading engrams: %w", err)
	}
	packs, err := s.packs.LoadPacks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading packs: %w", err)
	}

	now := s.now()
	cfg := s.Config()
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	directives, consider := Select(req, cfg, personal, packs, now)
	count := len(directives) + len(consider)
	result := &InjectResult{
		Directives: directives,
		Consider:   consider,
		Count:      count,
		TokensUsed: count * TokensPerEngram,
	}
	if count == 0 {
		return result, nil
	}
	result.Text = FormatInjection(directives, consider)

	for _, group := range [][]Scored{directives, consider} {
		for _, sc := range group {
			if !sc.Personal() {
				continue
			}
			RecordUsage(sc.Engram, now)
			result.InjectedIDs = append(result.InjectedIDs, sc.Engram.ID)
		}
	}
	if len(result.InjectedIDs) > 0 {
		if err := s.personal.Save(ctx, personal); err != nil {
			return nil, fmt.Errorf("saving usage: %w", err)
		}
	}

	s.logger.Debug("engrams injected",
		logging.RedactedString("prompt", req.Prompt),
		zap.Int("directives", len(directives)),
		zap.Int("consider", len(consider)),
		zap.Int("tokens_used", result.TokensUsed))
	return result, nil
}

// RecallHit is a keyword-overlap match on a personal engram.
type RecallHit struct {
	ID        string `json:"id"`
	Statement string `json:"statement"`
	Score     int    `json:"score"`
}

// Recall ranks non-retired personal engrams by how many topic words
// (longer than two characters) appear in their statement or tags.
func (s *Service) Recall(ctx context.Context, topic string, limit int) ([]RecallHit, error) {
	if limit <= 0 {
		limit = DefaultRecallLimit
	}
	engrams, err := s.personal.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading engrams: %w", err)
	}

	var words []string
	for _, w := range strings.Fields(strings.ToLower(topic)) {
		if len(w) > 2 {
			words = append(words, w)
		}
	}

	var hits []RecallHit
	for _, e := range engrams {
		if e.Status == StatusRetired {
			continue
		}
		text := strings.ToLower(e.Statement + " " + strings.Join(e.Tags, " "))
		score := 0
		for _, w := range words {
			if strings.Contains(text, w) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, RecallHit{ID: e.ID, Statement: e.Statement, Score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Stats summarizes the stores.
type Stats struct {
	Total    int
	ByStatus map[Status]int
	// ByHealth classifies active personal engrams by decayed strength.
	ByHealth    map[HealthState]int
	Packs       int
	PackEngrams int
}

// Stats counts engrams by status and health.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	engrams, err := s.personal.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading engrams: %w", err)
	}
	packs, err := s.packs.LoadPacks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading packs: %w", err)
	}

	now := s.now()
	st := &Stats{
		Total:    len(engrams),
		ByStatus: make(map[Status]int),
		ByHealth: make(map[HealthState]int),
		Packs:    len(packs),
	}
	for _, e := range engrams {
		st.ByStatus[e.Status]++
		if e.Status == StatusActive {
			strength := DecayedStrength(e.Activation.RetrievalStrength, e.Activation.LastAccessed, now)
			st.ByHealth[StateOf(strength)]++
		}
	}
	for _, p := range packs {
		st.PackEngrams += len(p.Engrams)
	}
	return st, nil
}

// Personal returns the current personal engrams.
func (s *Service) Personal(ctx context.Context) ([]*Engram, error) {
	return s.personal.Load(ctx)
}

// Today returns the current date in stored format.
func (s *Service) Today() string {
	return FormatDate(s.now())
}
