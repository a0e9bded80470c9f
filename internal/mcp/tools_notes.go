package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/engramd/internal/hints"
	"github.com/fyrsmithlabs/engramd/internal/notes"
)

// ===== SEARCH =====

type searchInput struct {
	Query string `json:"query" jsonschema:"Case-insensitive text to find"`
	Scope string `json:"scope,omitempty" jsonschema:"journal, knowledge or all (default all)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum results (default search.max_results)"`
}

type searchOutput struct {
	Results []notes.Hit  `json:"results"`
	Count   int          `json:"count"`
	Hints   *hints.Hints `json:"_hints,omitempty"`
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, args searchInput) (*mcp.CallToolResult, searchOutput, error) {
	if strings.TrimSpace(args.Query) == "" {
		return nil, searchOutput{}, fmt.Errorf("query is required")
	}
	scope, err := notes.ParseScope(args.Scope)
	if err != nil {
		return nil, searchOutput{}, err
	}
	cfg := s.reg.Config().Search
	limit := args.Limit
	if limit <= 0 {
		limit = cfg.MaxResults
	}

	hits, err := s.reg.Notes().Search(args.Query, notes.SearchOptions{
		Scope:         scope,
		Limit:         limit,
		SnippetLength: cfg.SnippetLength,
	})
	if err != nil {
		return nil, searchOutput{}, fmt.Errorf("search failed: %w", err)
	}
	if hits == nil {
		hits = []notes.Hit{}
	}

	out := searchOutput{Results: hits, Count: len(hits)}
	if len(hits) == 0 {
		out.Hints = s.hints().Build(hints.Hints{
			Next:    "No notes matched. Try " + hints.ToolRecall + " to include engrams.",
			Related: []string{hints.ToolRecall, hints.ToolCapture},
		})
	}
	return textResult(fmt.Sprintf("Found %d note(s)", len(hits))), out, nil
}

// ===== CAPTURE =====

type captureInput struct {
	Type    string   `json:"type" jsonschema:"journal or knowledge"`
	Content string   `json:"content" jsonschema:"Markdown content"`
	Title   string   `json:"title,omitempty" jsonschema:"Knowledge note title"`
	Tags    []string `json:"tags,omitempty" jsonschema:"Tags appended to knowledge notes"`
}

type captureOutput struct {
	Path  string       `json:"path"`
	Hints *hints.Hints `json:"_hints,omitempty"`
}

func (s *Server) handleCapture(ctx context.Context, req *mcp.CallToolRequest, args captureInput) (*mcp.CallToolResult, captureOutput, error) {
	if strings.TrimSpace(args.Content) == "" {
		return nil, captureOutput{}, fmt.Errorf("content is required")
	}
	path, err := s.reg.Notes().Capture(notes.CaptureInput{
		Type:    notes.Kind(args.Type),
		Content: args.Content,
		Title:   args.Title,
		Tags:    args.Tags,
	})
	if err != nil {
		return nil, captureOutput{}, fmt.Errorf("capture failed: %w", err)
	}

	return textResult("Captured to " + path), captureOutput{
		Path: path,
		Hints: s.hints().Build(hints.Hints{
			Next:    "If this holds a reusable rule, record it with " + hints.ToolLearn + ".",
			Related: []string{hints.ToolLearn, hints.ToolSearch},
		}),
	}, nil
}

// ===== INGEST =====

type ingestInput struct {
	Content string   `json:"content" jsonschema:"Text to store as a knowledge note"`
	Title   string   `json:"title,omitempty" jsonschema:"Note title (default Ingested Note)"`
	Tags    []string `json:"tags,omitempty" jsonschema:"Tags for the note"`
}

type ingestOutput struct {
	NotePath          string       `json:"note_path"`
	EngramSuggestions []string     `json:"engram_suggestions"`
	Hints             *hints.Hints `json:"_hints,omitempty"`
}

func (s *Server) handleIngest(ctx context.Context, req *mcp.CallToolRequest, args ingestInput) (*mcp.CallToolResult, ingestOutput, error) {
	if strings.TrimSpace(args.Content) == "" {
		return nil, ingestOutput{}, fmt.Errorf("content is required")
	}
	res, err := s.reg.Notes().Ingest(args.Content, args.Title, args.Tags)
	if err != nil {
		return nil, ingestOutput{}, fmt.Errorf("ingest failed: %w", err)
	}

	out := ingestOutput{NotePath: res.Path, EngramSuggestions: res.Suggestions}
	if out.EngramSuggestions == nil {
		out.EngramSuggestions = []string{}
	}
	if len(res.Suggestions) > 0 {
		out.Hints = s.hints().Build(hints.Hints{
			Next:    fmt.Sprintf("%d engram suggestion(s) found. Record the ones worth keeping with %s.", len(res.Suggestions), hints.ToolLearn),
			Related: []string{hints.ToolLearn},
		})
	}
	return textResult(fmt.Sprintf("Ingested to %s with %d suggestion(s)", res.Path, len(res.Suggestions))), out, nil
}

func (s *Server) registerNoteTools() {
	addTool(s, hints.ToolSearch,
		"Search journal entries and knowledge notes by text.",
		s.handleSearch)
	addTool(s, hints.ToolCapture,
		"Append to today's journal or write a knowledge note.",
		s.handleCapture)
	addTool(s, hints.ToolIngest,
		"Store text as a knowledge note and suggest engrams from its rules.",
		s.handleIngest)
}
