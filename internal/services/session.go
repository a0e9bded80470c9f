package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/engramd/internal/engram"
	"github.com/fyrsmithlabs/engramd/internal/hints"
	"github.com/fyrsmithlabs/engramd/internal/notes"
)

// ErrEmptySummary is returned when a session ends without a summary.
var ErrEmptySummary = errors.New("session summary cannot be empty")

// SessionStartInput opens a working session.
type SessionStartInput struct {
	// Task, when set, is used as the injection prompt.
	Task  string
	Scope string
}

// InjectedEngrams is the injection made for the session task.
type InjectedEngrams struct {
	Text  string   `json:"text"`
	Count int      `json:"count"`
	IDs   []string `json:"ids,omitempty"`
}

// SessionStart is the context handed to an agent at the start of a session.
type SessionStart struct {
	Engrams           *InjectedEngrams `json:"engrams"`
	JournalToday      string           `json:"journal_today,omitempty"`
	PendingCandidates int              `json:"pending_candidates"`
	Recommendations   []string         `json:"recommendations"`
	Guide             string           `json:"guide"`
}

// StartSession injects engrams for the task and gathers today's journal,
// pending candidates and recommendations. The full guide is returned while
// no engram is active.
func StartSession(ctx context.Context, reg Registry, in SessionStartInput) (*SessionStart, error) {
	out := &SessionStart{Recommendations: []string{}}

	if task := strings.TrimSpace(in.Task); task != "" {
		res, err := reg.Engrams().Inject(ctx, engram.InjectRequest{Prompt: task, Scope: in.Scope})
		if err != nil {
			return nil, fmt.Errorf("injecting for task: %w", err)
		}
		if res.Count > 0 {
			out.Engrams = &InjectedEngrams{Text: res.Text, Count: res.Count, IDs: res.InjectedIDs}
		}
	}

	journal, ok, err := reg.Notes().Journal(reg.Engrams().Today())
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	out.JournalToday = journal

	stats, err := reg.Engrams().Stats(ctx)
	if err != nil {
		return nil, err
	}
	out.PendingCandidates = stats.ByStatus[engram.StatusCandidate]

	if out.PendingCandidates > 0 {
		out.Recommendations = append(out.Recommendations, fmt.Sprintf(
			"%d candidate engram(s) awaiting review. Use %s to activate.", out.PendingCandidates, hints.ToolPromote))
	}
	if !ok {
		out.Recommendations = append(out.Recommendations,
			"No journal entry today. Use "+hints.ToolCapture+" to start one.")
	}

	out.Guide = guideShort
	if stats.ByStatus[engram.StatusActive] == 0 {
		out.Guide = Guide
	}
	return out, nil
}

// Suggestion is an engram proposed at the end of a session.
type Suggestion struct {
	Statement string      `json:"statement"`
	Type      engram.Kind `json:"type,omitempty"`
}

// SessionEndInput closes a working session.
type SessionEndInput struct {
	Summary     string
	Tags        []string
	Suggestions []Suggestion
}

// SessionEnd reports what a session end wrote.
type SessionEnd struct {
	JournalPath    string   `json:"journal_path"`
	EngramsCreated int      `json:"engrams_created"`
	CreatedIDs     []string `json:"created_ids,omitempty"`
	// CreatedAs is "active" with auto-promotion and "candidates" otherwise.
	CreatedAs string             `json:"created_as"`
	Errors    []engram.ItemError `json:"errors,omitempty"`
}

// EndSession appends the summary to today's journal and learns each
// suggestion. A failing suggestion is reported and does not stop the rest.
func EndSession(ctx context.Context, reg Registry, in SessionEndInput) (*SessionEnd, error) {
	if strings.TrimSpace(in.Summary) == "" {
		return nil, ErrEmptySummary
	}

	path, err := reg.Notes().Capture(notes.CaptureInput{
		Type:    notes.KindJournal,
		Content: in.Summary,
		Tags:    in.Tags,
	})
	if err != nil {
		return nil, fmt.Errorf("capturing summary: %w", err)
	}

	out := &SessionEnd{JournalPath: path, CreatedAs: "candidates"}
	if reg.Engrams().Config().AutoPromote {
		out.CreatedAs = "active"
	}

	for i, s := range in.Suggestions {
		e, err := reg.Engrams().Learn(ctx, engram.LearnInput{Statement: s.Statement, Type: s.Type, Tags: in.Tags})
		if err != nil {
			out.Errors = append(out.Errors, engram.ItemError{ID: fmt.Sprintf("suggestion[%d]", i), Error: err.Error()})
			continue
		}
		out.EngramsCreated++
		out.CreatedIDs = append(out.CreatedIDs, e.ID)
	}
	return out, nil
}

// Guide is the agent workflow guide returned by a session start while no
// engram is active.
const Guide = `## Datacore Quick Start

Engrams are short statements of knowledge that are injected into context when they are relevant to a prompt.

### Use Proactively
- **learn**: record a pattern, preference or insight as soon as you notice it
- **feedback**: rate the engrams injected for your task
- **session.end**: capture a summary and suggest new engrams before the conversation ends

### Session Workflow
1. **session.start** returns context for the task.
2. Work on the task. Use **recall** across engrams and notes, **search** for files.
3. **feedback** on the injected engrams that helped or misled.
4. **session.end** with a summary and engram suggestions.

### Other Tools
- **capture**: write a journal entry or a knowledge note
- **ingest**: import text and get engram suggestions
- **status**: counts, health and recommendations
- **forget**: retire an engram

### How Engrams Work
learn, then promote to active, then inject and feedback.
Positive feedback strengthens an engram. Unused engrams decay.`

const guideShort = `Session started. Workflow: work, feedback, session.end.`
