package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/engramd/internal/engram"
	"github.com/fyrsmithlabs/engramd/internal/hints"
	"github.com/fyrsmithlabs/engramd/internal/services"
)

// ===== SESSION START =====

type sessionStartInput struct {
	Task  string `json:"task,omitempty" jsonschema:"Task description used to inject relevant engrams"`
	Scope string `json:"scope,omitempty" jsonschema:"Scope of the current work, e.g. project:app"`
}

type sessionStartOutput struct {
	Session *services.SessionStart `json:"session"`
	Hints   *hints.Hints           `json:"_hints,omitempty"`
}

func (s *Server) handleSessionStart(ctx context.Context, req *mcp.CallToolRequest, args sessionStartInput) (*mcp.CallToolResult, sessionStartOutput, error) {
	start, err := services.StartSession(ctx, s.reg, services.SessionStartInput{
		Task:  args.Task,
		Scope: args.Scope,
	})
	if err != nil {
		return nil, sessionStartOutput{}, fmt.Errorf("session start failed: %w", err)
	}

	text := start.Guide
	if start.Engrams != nil {
		text = start.Engrams.Text + "\n\n" + text
	}
	return textResult(text), sessionStartOutput{
		Session: start,
		Hints:   s.hints().SessionStart(args.Task != ""),
	}, nil
}

// ===== SESSION END =====

type suggestionInput struct {
	Statement string `json:"statement" jsonschema:"Engram statement"`
	Type      string `json:"type,omitempty" jsonschema:"behavioral, terminological, procedural or architectural"`
}

type sessionEndInput struct {
	Summary     string            `json:"summary" jsonschema:"What was done this session"`
	Tags        []string          `json:"tags,omitempty" jsonschema:"Tags for the journal entry and suggested engrams"`
	Suggestions []suggestionInput `json:"engram_suggestions,omitempty" jsonschema:"Engrams to learn from this session"`
}

type sessionEndOutput struct {
	Session *services.SessionEnd `json:"session"`
	Hints   *hints.Hints         `json:"_hints,omitempty"`
}

func (s *Server) handleSessionEnd(ctx context.Context, req *mcp.CallToolRequest, args sessionEndInput) (*mcp.CallToolResult, sessionEndOutput, error) {
	in := services.SessionEndInput{Summary: args.Summary, Tags: args.Tags}
	for _, sg := range args.Suggestions {
		in.Suggestions = append(in.Suggestions, services.Suggestion{
			Statement: sg.Statement,
			Type:      engram.Kind(sg.Type),
		})
	}

	end, err := services.EndSession(ctx, s.reg, in)
	if err != nil {
		return nil, sessionEndOutput{}, fmt.Errorf("session end failed: %w", err)
	}
	s.value.RecordLifecycle(ctx, EventLearned, end.EngramsCreated)

	msg := fmt.Sprintf("Session captured to %s", end.JournalPath)
	if end.EngramsCreated > 0 {
		msg = fmt.Sprintf("%s. %d engram(s) created as %s.", msg, end.EngramsCreated, end.CreatedAs)
	}
	return textResult(msg), sessionEndOutput{
		Session: end,
		Hints:   s.hints().SessionEnd(end.EngramsCreated, end.CreatedAs),
	}, nil
}

// ===== STATUS =====

type statusInput struct{}

type statusOutput struct {
	Status *services.Status `json:"status"`
	Hints  *hints.Hints     `json:"_hints,omitempty"`
}

func (s *Server) handleStatus(ctx context.Context, req *mcp.CallToolRequest, args statusInput) (*mcp.CallToolResult, statusOutput, error) {
	st, err := services.GetStatus(ctx, s.reg)
	if err != nil {
		return nil, statusOutput{}, fmt.Errorf("status failed: %w", err)
	}

	out := statusOutput{Status: st}
	if st.ScalingHint != "" {
		out.Hints = s.hints().Build(hints.Hints{Warning: st.ScalingHint, Related: []string{hints.ToolForget, hints.ToolExport}})
	}
	msg := fmt.Sprintf("engrams: %d, packs: %d, journal entries: %d, knowledge notes: %d",
		st.Engrams, st.Packs, st.JournalEntries, st.KnowledgeNotes)
	return textResult(msg), out, nil
}

func (s *Server) registerSessionTools() {
	addTool(s, hints.ToolSessionStart,
		"Start a session: injects engrams for the task and returns today's journal and pending work.",
		s.handleSessionStart)
	addTool(s, hints.ToolSessionEnd,
		"End a session: journals the summary and learns the suggested engrams.",
		s.handleSessionEnd)
	addTool(s, hints.ToolStatus,
		"Report engram, pack, note and module counts with recommendations.",
		s.handleStatus)
}
