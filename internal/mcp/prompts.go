package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/engramd/internal/hints"
	"github.com/fyrsmithlabs/engramd/internal/services"
)

const (
	promptSession = "datacore-session"
	promptLearn   = "datacore-learn"
	promptGuide   = "datacore-guide"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(&mcp.Prompt{
		Name:        promptSession,
		Title:       "Start a Datacore session",
		Description: "Begin a working session: inject engrams for the task, read today's journal and follow the session workflow.",
		Arguments: []*mcp.PromptArgument{
			{Name: "task", Description: "What you are working on; used to inject relevant engrams"},
		},
	}, s.sessionPrompt)
	s.mcp.AddPrompt(&mcp.Prompt{
		Name:        promptLearn,
		Title:       "Teach Datacore something",
		Description: "Record a reusable learning as an engram and walk it through its lifecycle.",
		Arguments: []*mcp.PromptArgument{
			{Name: "statement", Description: `The knowledge to record, e.g. "Always run tests before deploying"`, Required: true},
		},
	}, s.learnPrompt)
	s.mcp.AddPrompt(&mcp.Prompt{
		Name:        promptGuide,
		Title:       "How to use Datacore",
		Description: "Tools, workflows and concepts of the engram store.",
	}, s.guidePrompt)
}

func (s *Server) sessionPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	task := strings.TrimSpace(req.Params.Arguments["task"])

	var b strings.Builder
	b.WriteString("Start a new Datacore session.")
	call := hints.ToolSessionStart
	if task != "" {
		fmt.Fprintf(&b, " Task: %s", task)
		call = fmt.Sprintf("%s with task: %q", hints.ToolSessionStart, task)
	}
	fmt.Fprintf(&b, `

Call %s to begin. It will:
- inject engrams relevant to the task
- show today's journal entry if one exists
- report candidate engrams awaiting review

Session workflow:
1. %s for context
2. Work on the task, using %s or %s as needed
3. %s on the engrams that helped or misled
4. %s with a summary and new engram suggestions`,
		call, hints.ToolSessionStart, hints.ToolRecall, hints.ToolSearch, hints.ToolFeedback, hints.ToolSessionEnd)

	return userPrompt("Begin a Datacore session", b.String()), nil
}

func (s *Server) learnPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	statement := strings.TrimSpace(req.Params.Arguments["statement"])
	if statement == "" {
		statement = "..."
	}

	created := fmt.Sprintf("This creates a candidate engram. Call %s to make it active.", hints.ToolPromote)
	if s.reg.Engrams().Config().AutoPromote {
		created = "Auto-promotion is on, so the engram is active immediately."
	}

	text := fmt.Sprintf(`Record this learning in Datacore: %q

Call %s with the statement. %s

Engram lifecycle:
1. %s creates the engram
2. %s activates a candidate
3. %s retrieves active engrams relevant to a task
4. %s strengthens or weakens an engram
5. %s retires it for good

Useful engrams are reinforced over time. Unused ones decay.`,
		statement, hints.ToolLearn, created,
		hints.ToolLearn, hints.ToolPromote, hints.ToolInject, hints.ToolFeedback, hints.ToolForget)

	return userPrompt("Record a learning as an engram", text), nil
}

func (s *Server) guidePrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Tools, workflows and concepts of the engram store.",
		Messages: []*mcp.PromptMessage{
			{Role: "assistant", Content: &mcp.TextContent{Text: services.Guide}},
		},
	}, nil
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: text}},
		},
	}
}
