package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/engramd/internal/engram"
	"github.com/fyrsmithlabs/engramd/internal/hints"
	"github.com/fyrsmithlabs/engramd/internal/notes"
)

// ===== LEARN =====

type learnInput struct {
	Statement  string   `json:"statement" jsonschema:"The knowledge to remember, one sentence"`
	Type       string   `json:"type,omitempty" jsonschema:"behavioral, terminological, procedural or architectural (default behavioral)"`
	Scope      string   `json:"scope,omitempty" jsonschema:"Scope such as global or project:name (default global)"`
	Tags       []string `json:"tags,omitempty" jsonschema:"Tags matched against prompt words"`
	Domain     string   `json:"domain,omitempty" jsonschema:"Dotted domain such as software.go.testing"`
	Rationale  string   `json:"rationale,omitempty" jsonschema:"Why the statement holds"`
	Visibility string   `json:"visibility,omitempty" jsonschema:"private, public or template (default private)"`
}

type learnOutput struct {
	Engram engramView   `json:"engram"`
	Hints  *hints.Hints `json:"_hints,omitempty"`
}

func (s *Server) handleLearn(ctx context.Context, req *mcp.CallToolRequest, args learnInput) (*mcp.CallToolResult, learnOutput, error) {
	e, err := s.reg.Engrams().Learn(ctx, engram.LearnInput{
		Statement:  args.Statement,
		Type:       engram.Kind(args.Type),
		Scope:      args.Scope,
		Tags:       args.Tags,
		Domain:     args.Domain,
		Rationale:  args.Rationale,
		Visibility: engram.Visibility(args.Visibility),
	})
	if err != nil {
		return nil, learnOutput{}, fmt.Errorf("learn failed: %w", err)
	}
	s.value.RecordLifecycle(ctx, EventLearned, 1)

	active := e.Status == engram.StatusActive
	return textResult(fmt.Sprintf("Learned %s (%s)", e.ID, e.Status)), learnOutput{
		Engram: viewOf(e),
		Hints:  s.hints().Learn(active),
	}, nil
}

// ===== PROMOTE =====

type promoteInput struct {
	IDs []string `json:"ids" jsonschema:"Candidate engram IDs to activate"`
}

type promoteOutput struct {
	Promoted []engramView       `json:"promoted"`
	Count    int                `json:"count"`
	Errors   []engram.ItemError `json:"errors,omitempty"`
	Hints    *hints.Hints       `json:"_hints,omitempty"`
}

func (s *Server) handlePromote(ctx context.Context, req *mcp.CallToolRequest, args promoteInput) (*mcp.CallToolResult, promoteOutput, error) {
	res, err := s.reg.Engrams().Promote(ctx, args.IDs)
	if err != nil {
		return nil, promoteOutput{}, fmt.Errorf("promote failed: %w", err)
	}
	s.value.RecordLifecycle(ctx, EventPromoted, len(res.Promoted))

	return textResult(fmt.Sprintf("Promoted %d of %d engram(s)", len(res.Promoted), len(args.IDs))), promoteOutput{
		Promoted: viewsOf(res.Promoted),
		Count:    len(res.Promoted),
		Errors:   res.Errors,
		Hints:    s.hints().Promote(len(res.Promoted)),
	}, nil
}

// ===== FORGET =====

type forgetInput struct {
	ID     string `json:"id,omitempty" jsonschema:"Exact engram ID to retire"`
	Search string `json:"search,omitempty" jsonschema:"Text matched against statement, ID and tags when no ID is given"`
}

type forgetOutput struct {
	Retired      *engramView  `json:"retired,omitempty"`
	Matches      []engramView `json:"matches,omitempty"`
	TotalMatches int          `json:"total_matches,omitempty"`
	Error        string       `json:"error,omitempty"`
	Hints        *hints.Hints `json:"_hints,omitempty"`
}

func (s *Server) handleForget(ctx context.Context, req *mcp.CallToolRequest, args forgetInput) (*mcp.CallToolResult, forgetOutput, error) {
	id := strings.TrimSpace(args.ID)
	query := strings.TrimSpace(args.Search)

	switch {
	case id != "":
		e, err := s.reg.Engrams().Forget(ctx, id)
		if errors.Is(err, engram.ErrNotFound) {
			return errorResult(err.Error()), forgetOutput{Error: err.Error(), Hints: s.hints().NotFound()}, nil
		}
		if err != nil {
			return nil, forgetOutput{}, fmt.Errorf("forget failed: %w", err)
		}
		s.value.RecordLifecycle(ctx, EventRetired, 1)
		v := viewOf(e)
		return textResult("Retired " + e.ID), forgetOutput{Retired: &v}, nil

	case query != "":
		res, err := s.reg.Engrams().ForgetSearch(ctx, query)
		switch {
		case errors.Is(err, engram.ErrAmbiguous):
			return errorResult(err.Error()), forgetOutput{
				Matches:      viewsOf(res.Matches),
				TotalMatches: res.TotalMatches,
				Error:        err.Error(),
				Hints:        s.hints().Ambiguous(res.TotalMatches),
			}, nil
		case errors.Is(err, engram.ErrNotFound):
			return errorResult(err.Error()), forgetOutput{Error: err.Error(), Hints: s.hints().NotFound()}, nil
		case err != nil:
			return nil, forgetOutput{}, fmt.Errorf("forget failed: %w", err)
		}
		s.value.RecordLifecycle(ctx, EventRetired, 1)
		v := viewOf(res.Retired)
		return textResult("Retired " + res.Retired.ID), forgetOutput{Retired: &v, TotalMatches: 1}, nil
	}
	return nil, forgetOutput{}, fmt.Errorf("id or search is required")
}

// ===== FEEDBACK =====

type feedbackSignalInput struct {
	EngramID string `json:"engram_id" jsonschema:"Engram ID"`
	Signal   string `json:"signal" jsonschema:"positive, negative or neutral"`
}

type feedbackInput struct {
	EngramID string                `json:"engram_id,omitempty" jsonschema:"Engram ID for a single signal"`
	Signal   string                `json:"signal,omitempty" jsonschema:"positive, negative or neutral for a single signal"`
	Signals  []feedbackSignalInput `json:"signals,omitempty" jsonschema:"Batch of signals, applied in order"`
}

type feedbackResult struct {
	EngramID string `json:"engram_id"`
	Signal   string `json:"signal"`
	Source   string `json:"source,omitempty"`
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
	Neutral  int    `json:"neutral"`
	Error    string `json:"error,omitempty"`
}

type feedbackOutput struct {
	Results []feedbackResult `json:"results"`
	Summary engram.Feedback  `json:"summary"`
	Hints   *hints.Hints     `json:"_hints,omitempty"`
}

func (s *Server) handleFeedback(ctx context.Context, req *mcp.CallToolRequest, args feedbackInput) (*mcp.CallToolResult, feedbackOutput, error) {
	var signals []engram.FeedbackSignal
	if args.EngramID != "" || args.Signal != "" {
		signals = append(signals, engram.FeedbackSignal{EngramID: args.EngramID, Signal: engram.Signal(args.Signal)})
	}
	for _, sig := range args.Signals {
		signals = append(signals, engram.FeedbackSignal{EngramID: sig.EngramID, Signal: engram.Signal(sig.Signal)})
	}

	res, err := s.reg.Engrams().FeedbackBatch(ctx, signals)
	if err != nil {
		return nil, feedbackOutput{}, fmt.Errorf("feedback failed: %w", err)
	}
	s.value.RecordFeedback(ctx, engram.SignalPositive, res.Summary.Positive)
	s.value.RecordFeedback(ctx, engram.SignalNegative, res.Summary.Negative)
	s.value.RecordFeedback(ctx, engram.SignalNeutral, res.Summary.Neutral)

	out := feedbackOutput{
		Results: make([]feedbackResult, 0, len(res.Results)),
		Summary: res.Summary,
		Hints:   s.hints().FeedbackBatch(res.Summary.Positive, res.Summary.Negative, res.Summary.Neutral),
	}
	failed := 0
	for _, item := range res.Results {
		r := feedbackResult{
			EngramID: item.EngramID,
			Signal:   string(item.Signal),
			Source:   item.Source,
			Positive: item.Counts.Positive,
			Negative: item.Counts.Negative,
			Neutral:  item.Counts.Neutral,
		}
		if item.Err != nil {
			r.Error = item.Err.Error()
			failed++
		}
		out.Results = append(out.Results, r)
	}

	msg := fmt.Sprintf("Recorded %d of %d signal(s)", len(res.Results)-failed, len(res.Results))
	if failed == len(res.Results) {
		return errorResult(msg), out, nil
	}
	return textResult(msg), out, nil
}

// ===== INJECT =====

type injectInput struct {
	Prompt       string   `json:"prompt" jsonschema:"The prompt or task to select engrams for"`
	Scope        string   `json:"scope,omitempty" jsonschema:"Only engrams whose scope starts with this value (global always matches)"`
	MaxTokens    int      `json:"max_tokens,omitempty" jsonschema:"Token budget (default engrams.max_tokens)"`
	MinRelevance *float64 `json:"min_relevance,omitempty" jsonschema:"Minimum score (default engrams.min_relevance)"`
}

type scoredView struct {
	ID        string  `json:"id"`
	Statement string  `json:"statement"`
	Source    string  `json:"source"`
	Score     float64 `json:"score"`
}

type injectOutput struct {
	Text        string       `json:"text"`
	Count       int          `json:"count"`
	TokensUsed  int          `json:"tokens_used"`
	Directives  []scoredView `json:"directives"`
	Consider    []scoredView `json:"consider"`
	InjectedIDs []string     `json:"injected_ids,omitempty"`
	Hints       *hints.Hints `json:"_hints,omitempty"`
}

func scoredViews(in []engram.Scored) []scoredView {
	out := make([]scoredView, 0, len(in))
	for _, sc := range in {
		source := sc.Source
		if sc.Personal() {
			source = engram.SourcePersonal
		}
		out = append(out, scoredView{ID: sc.Engram.ID, Statement: sc.Engram.Statement, Source: source, Score: sc.Score})
	}
	return out
}

func (s *Server) handleInject(ctx context.Context, req *mcp.CallToolRequest, args injectInput) (*mcp.CallToolResult, injectOutput, error) {
	if strings.TrimSpace(args.Prompt) == "" {
		return nil, injectOutput{}, fmt.Errorf("prompt is required")
	}
	res, err := s.reg.Engrams().Inject(ctx, engram.InjectRequest{
		Prompt:       args.Prompt,
		Scope:        args.Scope,
		MaxTokens:    args.MaxTokens,
		MinRelevance: args.MinRelevance,
	})
	if err != nil {
		return nil, injectOutput{}, fmt.Errorf("inject failed: %w", err)
	}
	s.value.RecordInjection(ctx, res)

	out := injectOutput{
		Text:        res.Text,
		Count:       res.Count,
		TokensUsed:  res.TokensUsed,
		Directives:  scoredViews(res.Directives),
		Consider:    scoredViews(res.Consider),
		InjectedIDs: res.InjectedIDs,
		Hints:       s.hints().Inject(res.InjectedIDs),
	}
	if res.Count == 0 {
		return textResult("No relevant engrams."), out, nil
	}
	return textResult(res.Text), out, nil
}

// ===== RECALL =====

// Recall sources.
const (
	sourceEngrams   = "engrams"
	sourceJournal   = "journal"
	sourceKnowledge = "knowledge"
)

type recallInput struct {
	Topic   string   `json:"topic" jsonschema:"Topic to recall"`
	Limit   int      `json:"limit,omitempty" jsonschema:"Maximum results per source (default 10)"`
	Sources []string `json:"sources,omitempty" jsonschema:"Any of engrams, journal, knowledge (default all)"`
}

type recallOutput struct {
	Engrams   []engram.RecallHit `json:"engrams"`
	Journal   []notes.Hit        `json:"journal"`
	Knowledge []notes.Hit        `json:"knowledge"`
	Hints     *hints.Hints       `json:"_hints,omitempty"`
}

func (s *Server) handleRecall(ctx context.Context, req *mcp.CallToolRequest, args recallInput) (*mcp.CallToolResult, recallOutput, error) {
	if strings.TrimSpace(args.Topic) == "" {
		return nil, recallOutput{}, fmt.Errorf("topic is required")
	}
	limit := args.Limit
	if limit <= 0 {
		limit = engram.DefaultRecallLimit
	}
	want := map[string]bool{sourceEngrams: true, sourceJournal: true, sourceKnowledge: true}
	if len(args.Sources) > 0 {
		want = make(map[string]bool, len(args.Sources))
		for _, src := range args.Sources {
			switch src {
			case sourceEngrams, sourceJournal, sourceKnowledge:
				want[src] = true
			default:
				return nil, recallOutput{}, fmt.Errorf("invalid source %q: want engrams, journal or knowledge", src)
			}
		}
	}

	out := recallOutput{Engrams: []engram.RecallHit{}, Journal: []notes.Hit{}, Knowledge: []notes.Hit{}}
	if want[sourceEngrams] {
		hits, err := s.reg.Engrams().Recall(ctx, args.Topic, limit)
		if err != nil {
			return nil, recallOutput{}, fmt.Errorf("recall failed: %w", err)
		}
		if hits != nil {
			out.Engrams = hits
		}
	}
	snippetLength := s.reg.Config().Search.SnippetLength
	for src, scope := range map[string]notes.Scope{sourceJournal: notes.ScopeJournal, sourceKnowledge: notes.ScopeKnowledge} {
		if !want[src] {
			continue
		}
		hits, err := s.reg.Notes().Search(args.Topic, notes.SearchOptions{Scope: scope, Limit: limit, SnippetLength: snippetLength})
		if err != nil {
			return nil, recallOutput{}, fmt.Errorf("recall failed: %w", err)
		}
		if hits == nil {
			continue
		}
		if src == sourceJournal {
			out.Journal = hits
		} else {
			out.Knowledge = hits
		}
	}
	out.Hints = s.hints().Recall()

	return textResult(fmt.Sprintf("Recalled %d engram(s), %d journal and %d knowledge match(es)",
		len(out.Engrams), len(out.Journal), len(out.Knowledge))), out, nil
}

func (s *Server) registerEngramTools() {
	addTool(s, hints.ToolLearn,
		"Record a new engram. It starts as a candidate unless engrams.auto_promote is set.",
		s.handleLearn)
	addTool(s, hints.ToolPromote,
		"Activate candidate engrams so they take part in injection.",
		s.handlePromote)
	addTool(s, hints.ToolForget,
		"Retire an engram by exact ID, or by search when exactly one engram matches.",
		s.handleForget)
	addTool(s, hints.ToolFeedback,
		"Rate engrams positive, negative or neutral, singly or in a batch. Feedback shifts future relevance.",
		s.handleFeedback)
	addTool(s, hints.ToolInject,
		"Select the engrams relevant to a prompt within a token budget and format them for context.",
		s.handleInject)
	addTool(s, hints.ToolRecall,
		"Search engrams, journal entries and knowledge notes for a topic.",
		s.handleRecall)
}
