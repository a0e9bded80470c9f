package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/engramd/internal/engram"
	"github.com/fyrsmithlabs/engramd/internal/hints"
	"github.com/fyrsmithlabs/engramd/internal/logging"
)

// addTool registers h under name with a span, invocation metrics and a
// tool-scoped logging context.
func addTool[In, Out any](s *Server, name, description string, h mcp.ToolHandlerFor[In, Out]) {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        name,
		Description: description,
	}, func(ctx context.Context, req *mcp.CallToolRequest, args In) (*mcp.CallToolResult, Out, error) {
		ctx = logging.WithTool(s.withSession(ctx), name)
		ctx, span := s.tracer.Start(ctx, name)
		defer span.End()
		span.SetAttributes(attribute.String("session.id", logging.SessionIDFromContext(ctx)))

		done := s.metrics.Begin(ctx, name)
		res, out, err := h(ctx, req, args)
		done(err)
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, categorizeError(err))
			s.logger.Debug(ctx, "tool failed", zap.Error(err))
		case res != nil && res.IsError:
			span.SetStatus(codes.Error, "tool error")
		}
		return res, out, err
	})
}

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	s.registerEngramTools()
	s.registerNoteTools()
	s.registerPackTools()
	s.registerSessionTools()
	s.registerModuleTools()
}

func (s *Server) hints() *hints.Builder {
	return s.reg.Hints()
}

// textResult returns a result whose text content is msg.
func textResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

// errorResult reports a tool-level failure that still carries structured output.
func errorResult(msg string) *mcp.CallToolResult {
	res := textResult(msg)
	res.IsError = true
	return res
}

// engramView is the tool representation of an engram.
type engramView struct {
	ID                string   `json:"id"`
	Status            string   `json:"status"`
	Type              string   `json:"type"`
	Scope             string   `json:"scope"`
	Visibility        string   `json:"visibility"`
	Statement         string   `json:"statement"`
	Rationale         string   `json:"rationale,omitempty"`
	Domain            string   `json:"domain,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	Pack              string   `json:"pack,omitempty"`
	RetrievalStrength float64  `json:"retrieval_strength"`
	Frequency         int      `json:"frequency"`
	LastAccessed      string   `json:"last_accessed"`
}

func viewOf(e *engram.Engram) engramView {
	return engramView{
		ID:                e.ID,
		Status:            string(e.Status),
		Type:              string(e.Type),
		Scope:             e.Scope,
		Visibility:        string(e.Visibility),
		Statement:         e.Statement,
		Rationale:         e.Rationale,
		Domain:            e.Domain,
		Tags:              e.Tags,
		Pack:              e.PackID(),
		RetrievalStrength: e.Activation.RetrievalStrength,
		Frequency:         e.Activation.Frequency,
		LastAccessed:      e.Activation.LastAccessed,
	}
}

func viewsOf(engrams []*engram.Engram) []engramView {
	out := make([]engramView, 0, len(engrams))
	for _, e := range engrams {
		out = append(out, viewOf(e))
	}
	return out
}
