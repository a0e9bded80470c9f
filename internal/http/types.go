package http

import (
	"github.com/fyrsmithlabs/engramd/internal/engram"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// InjectRequest is the request body for POST /api/v1/inject.
type InjectRequest struct {
	Prompt       string   `json:"prompt"`
	Scope        string   `json:"scope,omitempty"`
	MaxTokens    int      `json:"max_tokens,omitempty"`
	MinRelevance *float64 `json:"min_relevance,omitempty"`
}

// ScoredEngram is one selected engram with its score and source.
type ScoredEngram struct {
	ID        string  `json:"id"`
	Statement string  `json:"statement"`
	Type      string  `json:"type"`
	Score     float64 `json:"score"`
	Source    string  `json:"source"`
	Pack      string  `json:"pack,omitempty"`
}

// InjectResponse is the response body for POST /api/v1/inject.
type InjectResponse struct {
	Text       string         `json:"text"`
	Directives []ScoredEngram `json:"directives"`
	Consider   []ScoredEngram `json:"consider"`
	Count      int            `json:"count"`
	TokensUsed int            `json:"tokens_used"`
}

// LearnRequest is the request body for POST /api/v1/learn.
type LearnRequest struct {
	Statement  string   `json:"statement"`
	Type       string   `json:"type,omitempty"`
	Scope      string   `json:"scope,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Domain     string   `json:"domain,omitempty"`
	Rationale  string   `json:"rationale,omitempty"`
	Visibility string   `json:"visibility,omitempty"`
}

// IDsRequest is the request body for POST /api/v1/promote.
type IDsRequest struct {
	IDs []string `json:"ids"`
}

// PromoteResponse is the response body for POST /api/v1/promote.
type PromoteResponse struct {
	Promoted []*engram.Engram   `json:"promoted"`
	Errors   []engram.ItemError `json:"errors"`
}

// ForgetRequest is the request body for POST /api/v1/forget. Exactly one
// of ID and Search must be set.
type ForgetRequest struct {
	ID     string `json:"id,omitempty"`
	Search string `json:"search,omitempty"`
}

// ForgetResponse is the response body for POST /api/v1/forget.
type ForgetResponse struct {
	Retired      *engram.Engram   `json:"retired,omitempty"`
	Matches      []*engram.Engram `json:"matches,omitempty"`
	TotalMatches int              `json:"total_matches,omitempty"`
}

// FeedbackRequest is the request body for POST /api/v1/feedback.
type FeedbackRequest struct {
	Signals []FeedbackSignal `json:"signals"`
}

// FeedbackSignal is one signal in a feedback request.
type FeedbackSignal struct {
	EngramID string `json:"engram_id"`
	Signal   string `json:"signal"`
}

// FeedbackResult is the outcome of one feedback signal.
type FeedbackResult struct {
	EngramID string           `json:"engram_id"`
	Signal   string           `json:"signal,omitempty"`
	Source   string           `json:"source,omitempty"`
	Counts   *engram.Feedback `json:"counts,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// FeedbackResponse is the response body for POST /api/v1/feedback.
type FeedbackResponse struct {
	Results []FeedbackResult `json:"results"`
	Summary engram.Feedback  `json:"summary"`
}

// RecallRequest is the request body for POST /api/v1/recall.
type RecallRequest struct {
	Topic string `json:"topic"`
	Limit int    `json:"limit,omitempty"`
}

// RecallResponse is the response body for POST /api/v1/recall.
type RecallResponse struct {
	Hits []engram.RecallHit `json:"hits"`
}

// ScrubRequest is the request body for POST /api/v1/scrub.
type ScrubRequest struct {
	Content string `json:"content"`
}

// ScrubResponse is the response body for POST /api/v1/scrub.
type ScrubResponse struct {
	Content       string         `json:"content"`
	FindingsCount int            `json:"findings_count"`
	ByRule        map[string]int `json:"by_rule,omitempty"`
}
