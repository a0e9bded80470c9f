package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/fyrsmithlabs/engramd/internal/engram"
	"github.com/fyrsmithlabs/engramd/internal/services"
)

const (
	resourceStatus        = "datacore://status"
	resourceActiveEngrams = "datacore://engrams/active"
	resourceJournalToday  = "datacore://journal/today"
	resourceGuide         = "datacore://guide"

	templateJournal = "datacore://journal/{date}"
	templateEngram  = "datacore://engrams/{id}"

	journalPrefix = "datacore://journal/"
	engramPrefix  = "datacore://engrams/"

	mimeJSON     = "application/json"
	mimeMarkdown = "text/markdown"
)

// addResource registers h for a fixed URI with a span per read.
func (s *Server) addResource(r *mcp.Resource, h mcp.ResourceHandler) {
	s.mcp.AddResource(r, s.traceResource(r.URI, h))
}

// addResourceTemplate registers h for every URI matching t.
func (s *Server) addResourceTemplate(t *mcp.ResourceTemplate, h mcp.ResourceHandler) {
	s.mcp.AddResourceTemplate(t, s.traceResource(t.URITemplate, h))
}

func (s *Server) traceResource(name string, h mcp.ResourceHandler) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		ctx, span := s.tracer.Start(s.withSession(ctx), "resource "+name)
		defer span.End()
		span.SetAttributes(attribute.String("resource.uri", req.Params.URI))

		res, err := h(ctx, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "resource read failed")
		}
		return res, err
	}
}

func (s *Server) registerResources() {
	s.addResource(&mcp.Resource{
		URI:         resourceStatus,
		Name:        "status",
		Title:       "Datacore Status",
		Description: "Engram, pack and note counts with recommendations",
		MIMEType:    mimeJSON,
	}, s.readStatus)
	s.addResource(&mcp.Resource{
		URI:         resourceActiveEngrams,
		Name:        "engrams-active",
		Title:       "Active Engrams",
		Description: "All active personal engrams with their metadata",
		MIMEType:    mimeJSON,
	}, s.readActiveEngrams)
	s.addResource(&mcp.Resource{
		URI:         resourceJournalToday,
		Name:        "journal-today",
		Title:       "Today's Journal",
		Description: "Today's journal entry",
		MIMEType:    mimeMarkdown,
	}, s.readJournal)
	s.addResource(&mcp.Resource{
		URI:         resourceGuide,
		Name:        "guide",
		Title:       "Datacore Agent Guide",
		Description: "Session and engram workflow for agents",
		MIMEType:    mimeMarkdown,
	}, s.readGuide)

	s.addResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: templateJournal,
		Name:        "journal",
		Title:       "Journal Entry",
		Description: "Journal entry for a date (YYYY-MM-DD)",
		MIMEType:    mimeMarkdown,
	}, s.readJournal)
	s.addResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: templateEngram,
		Name:        "engram",
		Title:       "Engram",
		Description: "A personal engram by ID",
		MIMEType:    mimeJSON,
	}, s.readEngram)
}

func (s *Server) readStatus(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	st, err := services.GetStatus(ctx, s.reg)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, st)
}

func (s *Server) readActiveEngrams(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	all, err := s.reg.Engrams().Personal(ctx)
	if err != nil {
		return nil, err
	}
	active := []*engram.Engram{}
	for _, e := range all {
		if e.Status == engram.StatusActive {
			active = append(active, e)
		}
	}
	return jsonContents(req.Params.URI, active)
}

func (s *Server) readGuide(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return textContents(req.Params.URI, mimeMarkdown, services.Guide), nil
}

// readJournal serves both journal/today and journal/{date}. A date with no
// entry reads as a short notice rather than an error.
func (s *Server) readJournal(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	date := strings.TrimPrefix(uri, journalPrefix)
	if date == "today" {
		date = s.reg.Engrams().Today()
	}
	if _, err := time.Parse(engram.DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid journal date %q: want YYYY-MM-DD", date)
	}

	content, ok, err := s.reg.Notes().Journal(date)
	if err != nil {
		return nil, err
	}
	if !ok {
		content = "No journal entry for " + date
	}
	return textContents(uri, mimeMarkdown, content), nil
}

func (s *Server) readEngram(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	id := strings.TrimPrefix(req.Params.URI, engramPrefix)
	all, err := s.reg.Engrams().Personal(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range all {
		if e.ID == id {
			return jsonContents(req.Params.URI, e)
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

func jsonContents(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", uri, err)
	}
	return textContents(uri, mimeJSON, string(data)), nil
}

func textContents(uri, mime, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: mime, Text: text}},
	}
}
