package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	"github.com/fyrsmithlabs/engramd/internal/config"
	"github.com/fyrsmithlabs/engramd/internal/engram"
	"github.com/fyrsmithlabs/engramd/internal/hints"
	"github.com/fyrsmithlabs/engramd/internal/services"
	"github.com/fyrsmithlabs/engramd/internal/store"
	"github.com/fyrsmithlabs/engramd/internal/telemetry"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, services.Registry) {
	t.Helper()
	layout := store.CoreLayout(t.TempDir())
	_, err := layout.Init()
	require.NoError(t, err)

	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	reg, err := services.Build(layout, cfg, nil, "0.0.0-test")
	require.NoError(t, err)

	srv, err := NewServer(nil, reg)
	require.NoError(t, err)
	return srv, reg
}

// connect runs srv over an in-memory transport and returns a client session.
func connect(t *testing.T, srv *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	_, err := srv.MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestNewServer(t *testing.T) {
	t.Run("nil registry", func(t *testing.T) {
		_, err := NewServer(nil, nil)
		assert.ErrorContains(t, err, "registry is required")
	})

	t.Run("registry without services", func(t *testing.T) {
		_, err := NewServer(nil, services.NewRegistry(services.Options{}))
		assert.ErrorContains(t, err, "engram service is required")
	})

	t.Run("defaults", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		assert.NotNil(t, srv.MCP())
		assert.NotNil(t, srv.metrics)
		assert.NotNil(t, srv.value)
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "engramd", cfg.Name)
	assert.NotNil(t, cfg.Logger)
	assert.Nil(t, cfg.MeterProvider)
}

func TestServer_ListTools(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	session := connect(t, srv)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)

	want := []string{
		hints.ToolCapture, hints.ToolDiscover, hints.ToolExport, hints.ToolFeedback,
		hints.ToolForget, hints.ToolIngest, hints.ToolInject, hints.ToolInstall,
		hints.ToolLearn, hints.ToolModulesHealth, hints.ToolModulesInfo, hints.ToolModulesList, hints.ToolPromote,
		hints.ToolRecall, hints.ToolSearch, hints.ToolSessionEnd, hints.ToolSessionStart,
		hints.ToolStatus,
	}
	sort.Strings(want)
	assert.Equal(t, want, names)
}

func TestServer_CallToolRecordsTelemetry(t *testing.T) {
	layout := store.CoreLayout(t.TempDir())
	_, err := layout.Init()
	require.NoError(t, err)
	reg, err := services.Build(layout, config.Default(), nil, "0.0.0-test")
	require.NoError(t, err)

	tt := telemetry.NewTestTelemetry()
	cfg := DefaultConfig()
	cfg.MeterProvider = tt.MeterProvider()
	cfg.TracerProvider = tt.TracerProvider()
	srv, err := NewServer(cfg, reg)
	require.NoError(t, err)
	session := connect(t, srv)
	ctx := context.Background()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      hints.ToolLearn,
		Arguments: map[string]any{"statement": "Always wrap errors with context"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      hints.ToolLearn,
		Arguments: map[string]any{"statement": "   "},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	assert.Equal(t, int64(2), tt.CounterTotal(t, metricToolCalls,
		attribute.String("tool", hints.ToolLearn)))
	assert.Equal(t, int64(1), tt.CounterTotal(t, metricToolCalls,
		attribute.String("tool", hints.ToolLearn), attribute.String("outcome", "ok")))
	assert.Equal(t, int64(1), tt.CounterTotal(t, metricToolErrors,
		attribute.String("reason", "validation_error")))
	assert.Equal(t, int64(1), tt.CounterTotal(t, "engramd.engrams.lifecycle_total",
		attribute.String("event", EventLearned)))

	require.Len(t, tt.Spans(), 2)
	tt.AssertSpanExists(t, hints.ToolLearn)
	assert.Equal(t, otelcodes.Error, tt.Spans()[1].Status().Code)
}

func TestServer_LearnPromoteInjectFeedback(t *testing.T) {
	srv, reg := newTestServer(t, nil)
	ctx := context.Background()

	_, learned, err := srv.handleLearn(ctx, nil, learnInput{
		Statement: "Always check the error returned by Close",
		Tags:      []string{"golang", "errors"},
	})
	require.NoError(t, err)
	assert.Equal(t, string(engram.StatusCandidate), learned.Engram.Status)
	require.NotNil(t, learned.Hints)
	id := learned.Engram.ID

	res, injected, err := srv.handleInject(ctx, nil, injectInput{Prompt: "golang errors review"})
	require.NoError(t, err)
	assert.Zero(t, injected.Count, "candidates are not injected")
	assert.Equal(t, "No relevant engrams.", res.Content[0].(*mcp.TextContent).Text)

	_, promoted, err := srv.handlePromote(ctx, nil, promoteInput{IDs: []string{id, "ENG-2000-0101-999"}})
	require.NoError(t, err)
	assert.Equal(t, 1, promoted.Count)
	require.Len(t, promoted.Errors, 1)
	assert.Equal(t, "ENG-2000-0101-999", promoted.Errors[0].ID)

	_, injected, err = srv.handleInject(ctx, nil, injectInput{Prompt: "golang errors review"})
	require.NoError(t, err)
	require.Equal(t, 1, injected.Count)
	assert.Equal(t, []string{id}, injected.InjectedIDs)
	require.Len(t, injected.Directives, 1)
	assert.Equal(t, engram.SourcePersonal, injected.Directives[0].Source)
	assert.Contains(t, injected.Text, "Always check the error returned by Close")

	_, fb, err := srv.handleFeedback(ctx, nil, feedbackInput{EngramID: id, Signal: "positive"})
	require.NoError(t, err)
	require.Len(t, fb.Results, 1)
	assert.Equal(t, 1, fb.Results[0].Positive)
	assert.Equal(t, 1, fb.Summary.Positive)

	stored, err := reg.Engrams().Personal(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 1, stored[0].Feedback.Positive)
}

func TestServer_FeedbackAllFailed(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	res, out, err := srv.handleFeedback(context.Background(), nil, feedbackInput{
		Signals: []feedbackSignalInput{
			{EngramID: "ENG-2000-0101-001", Signal: "positive"},
			{EngramID: "ENG-2000-0101-002", Signal: "sideways"},
		},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	require.Len(t, out.Results, 2)
	for _, r := range out.Results {
		assert.NotEmpty(t, r.Error)
	}
}

func TestServer_Forget(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	ctx := context.Background()

	for _, s := range []string{"Prefer table driven tests", "Prefer small interfaces", "Run gofmt on save"} {
		_, _, err := srv.handleLearn(ctx, nil, learnInput{Statement: s})
		require.NoError(t, err)
	}

	t.Run("missing target", func(t *testing.T) {
		_, _, err := srv.handleForget(ctx, nil, forgetInput{})
		assert.ErrorContains(t, err, "id or search is required")
	})

	t.Run("unknown id", func(t *testing.T) {
		res, out, err := srv.handleForget(ctx, nil, forgetInput{ID: "ENG-2000-0101-001"})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.NotEmpty(t, out.Error)
	})

	t.Run("ambiguous search", func(t *testing.T) {
		res, out, err := srv.handleForget(ctx, nil, forgetInput{Search: "prefer"})
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Equal(t, 2, out.TotalMatches)
		assert.Len(t, out.Matches, 2)
		assert.Nil(t, out.Retired)
	})

	t.Run("unique search", func(t *testing.T) {
		res, out, err := srv.handleForget(ctx, nil, forgetInput{Search: "gofmt"})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		require.NotNil(t, out.Retired)
		assert.Equal(t, string(engram.StatusRetired), out.Retired.Status)
	})
}

func TestServer_NotesTools(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	ctx := context.Background()

	_, captured, err := srv.handleCapture(ctx, nil, captureInput{Type: "journal", Content: "Investigated the flaky watcher test"})
	require.NoError(t, err)
	assert.FileExists(t, captured.Path)

	_, ingested, err := srv.handleIngest(ctx, nil, ingestInput{
		Title:   "Review notes",
		Content: "Always run the race detector in CI. The rest is prose.",
	})
	require.NoError(t, err)
	assert.FileExists(t, ingested.NotePath)
	assert.Equal(t, []string{"Always run the race detector in CI"}, ingested.EngramSuggestions)

	_, found, err := srv.handleSearch(ctx, nil, searchInput{Query: "flaky watcher"})
	require.NoError(t, err)
	require.Equal(t, 1, found.Count)
	assert.Equal(t, captured.Path, found.Results[0].Path)

	_, found, err = srv.handleSearch(ctx, nil, searchInput{Query: "race detector", Scope: "journal"})
	require.NoError(t, err)
	assert.Zero(t, found.Count)
	assert.NotNil(t, found.Hints)

	_, _, err = srv.handleSearch(ctx, nil, searchInput{Query: "x", Scope: "everywhere"})
	assert.Error(t, err)

	_, recalled, err := srv.handleRecall(ctx, nil, recallInput{Topic: "race detector"})
	require.NoError(t, err)
	assert.Len(t, recalled.Knowledge, 1)
	assert.Empty(t, recalled.Journal)
}

func TestServer_SessionTools(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	ctx := context.Background()

	_, started, err := srv.handleSessionStart(ctx, nil, sessionStartInput{})
	require.NoError(t, err)
	require.NotNil(t, started.Session)
	assert.Contains(t, started.Session.Guide, "Quick Start")

	_, ended, err := srv.handleSessionEnd(ctx, nil, sessionEndInput{
		Summary: "Wired the config watcher",
		Tags:    []string{"config"},
		Suggestions: []suggestionInput{
			{Statement: "Reload config on write events only"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ended.Session.EngramsCreated)
	assert.Equal(t, "candidates", ended.Session.CreatedAs)
	assert.FileExists(t, ended.Session.JournalPath)

	_, _, err = srv.handleSessionEnd(ctx, nil, sessionEndInput{Summary: " "})
	assert.ErrorIs(t, err, services.ErrEmptySummary)

	_, status, err := srv.handleStatus(ctx, nil, statusInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, status.Status.Engrams)
	assert.Equal(t, 1, status.Status.ByStatus[string(engram.StatusCandidate)])
	assert.Equal(t, 1, status.Status.JournalEntries)
	assert.Equal(t, "0.0.0-test", status.Status.Version)
}

func TestServer_PackTools(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	ctx := context.Background()

	_, learned, err := srv.handleLearn(ctx, nil, learnInput{
		Statement:  "Prefer errors.Is over string comparison",
		Visibility: "public",
	})
	require.NoError(t, err)
	_, _, err = srv.handlePromote(ctx, nil, promoteInput{IDs: []string{learned.Engram.ID}})
	require.NoError(t, err)

	_, preview, err := srv.handleExport(ctx, nil, exportInput{Name: "Go Errors"})
	require.NoError(t, err)
	require.NotNil(t, preview.Result.Preview)
	assert.Equal(t, 1, preview.Result.Preview.Count)
	assert.NoDirExists(t, preview.Result.Preview.PackPath)

	_, exported, err := srv.handleExport(ctx, nil, exportInput{Name: "Go Errors", Confirm: true})
	require.NoError(t, err)
	assert.Nil(t, exported.Result.Preview)
	assert.DirExists(t, exported.Result.PackPath)

	_, discovered, err := srv.handleDiscover(ctx, nil, discoverInput{})
	require.NoError(t, err)
	assert.Zero(t, discovered.Count)

	_, _, err = srv.handleInstall(ctx, nil, installInput{Source: ""})
	assert.ErrorContains(t, err, "source is required")

	_, _, err = srv.handleInstall(ctx, nil, installInput{Source: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestServer_ModuleTools(t *testing.T) {
	t.Run("core mode", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		ctx := context.Background()

		_, list, err := srv.handleModulesList(ctx, nil, modulesListInput{})
		require.NoError(t, err)
		assert.Empty(t, list.Modules)

		_, _, err = srv.handleModulesInfo(ctx, nil, modulesInfoInput{Name: "gtd"})
		assert.ErrorContains(t, err, "full mode")

		_, _, err = srv.handleModulesHealth(ctx, nil, modulesHealthInput{})
		assert.ErrorContains(t, err, "full mode")
	})

	t.Run("full mode", func(t *testing.T) {
		base := t.TempDir()
		layout := store.FullLayout(base)
		_, err := layout.Init()
		require.NoError(t, err)

		dir := filepath.Join(base, ".datacore", "modules", "gtd")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "module.yaml"),
			[]byte("name: gtd\nversion: 1.0.0\ndescription: Getting things done\n"), 0o644))

		reg, err := services.Build(layout, config.Default(), nil, "0.0.0-test")
		require.NoError(t, err)
		srv, err := NewServer(nil, reg)
		require.NoError(t, err)
		ctx := context.Background()

		_, list, err := srv.handleModulesList(ctx, nil, modulesListInput{})
		require.NoError(t, err)
		require.Equal(t, 1, list.Count)
		assert.Equal(t, "gtd", list.Modules[0].Name)

		_, info, err := srv.handleModulesInfo(ctx, nil, modulesInfoInput{Name: "gtd"})
		require.NoError(t, err)
		require.NotNil(t, info.Module)
		assert.Equal(t, "1.0.0", info.Module.Version)

		res, _, err := srv.handleModulesInfo(ctx, nil, modulesInfoInput{Name: "nope"})
		require.NoError(t, err)
		assert.True(t, res.IsError)

		_, health, err := srv.handleModulesHealth(ctx, nil, modulesHealthInput{})
		require.NoError(t, err)
		assert.Equal(t, 1, health.Summary.Total)
		assert.Equal(t, 1, health.Summary.Warnings)
		require.Len(t, health.Modules, 1)
		assert.Contains(t, health.Modules[0].Issues, "Missing SKILL.md (ecosystem entry point)")

		res, _, err = srv.handleModulesHealth(ctx, nil, modulesHealthInput{Module: "nope"})
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}

func TestServer_Resources(t *testing.T) {
	srv, reg := newTestServer(t, func(c *config.Config) { c.Engrams.AutoPromote = true })
	ctx := context.Background()

	active, err := reg.Engrams().Learn(ctx, engram.LearnInput{Statement: "Keep handlers thin"})
	require.NoError(t, err)
	retired, err := reg.Engrams().Learn(ctx, engram.LearnInput{Statement: "Log at info by default"})
	require.NoError(t, err)
	_, err = reg.Engrams().Forget(ctx, retired.ID)
	require.NoError(t, err)
	_, err = services.EndSession(ctx, reg, services.SessionEndInput{Summary: "Split the router"})
	require.NoError(t, err)

	session := connect(t, srv)

	listed, err := session.ListResources(ctx, nil)
	require.NoError(t, err)
	var uris []string
	for _, r := range listed.Resources {
		uris = append(uris, r.URI)
	}
	assert.ElementsMatch(t, []string{resourceStatus, resourceActiveEngrams, resourceJournalToday, resourceGuide}, uris)

	templates, err := session.ListResourceTemplates(ctx, nil)
	require.NoError(t, err)
	var patterns []string
	for _, rt := range templates.ResourceTemplates {
		patterns = append(patterns, rt.URITemplate)
	}
	assert.ElementsMatch(t, []string{templateJournal, templateEngram}, patterns)

	read := func(t *testing.T, uri string) *mcp.ResourceContents {
		t.Helper()
		res, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		assert.Equal(t, uri, res.Contents[0].URI)
		return res.Contents[0]
	}

	t.Run("status", func(t *testing.T) {
		c := read(t, resourceStatus)
		assert.Equal(t, mimeJSON, c.MIMEType)
		var st services.Status
		require.NoError(t, json.Unmarshal([]byte(c.Text), &st))
		assert.Equal(t, 2, st.Engrams)
		assert.Equal(t, 1, st.ByStatus[string(engram.StatusActive)])
		assert.Equal(t, "core", st.Mode)
	})

	t.Run("active engrams", func(t *testing.T) {
		var got []engram.Engram
		require.NoError(t, json.Unmarshal([]byte(read(t, resourceActiveEngrams).Text), &got))
		require.Len(t, got, 1)
		assert.Equal(t, active.ID, got[0].ID)
	})

	t.Run("journal today", func(t *testing.T) {
		c := read(t, resourceJournalToday)
		assert.Equal(t, mimeMarkdown, c.MIMEType)
		assert.Contains(t, c.Text, "Split the router")
	})

	t.Run("journal by date", func(t *testing.T) {
		assert.Contains(t, read(t, journalPrefix+reg.Engrams().Today()).Text, "Split the router")
		assert.Equal(t, "No journal entry for 2020-01-01", read(t, "datacore://journal/2020-01-01").Text)

		_, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: "datacore://journal/last-week"})
		assert.Error(t, err)
	})

	t.Run("guide", func(t *testing.T) {
		assert.Equal(t, services.Guide, read(t, resourceGuide).Text)
	})

	t.Run("engram by id", func(t *testing.T) {
		var got engram.Engram
		require.NoError(t, json.Unmarshal([]byte(read(t, engramPrefix+retired.ID).Text), &got))
		assert.Equal(t, engram.StatusRetired, got.Status)

		_, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: engramPrefix + "ENG-0000-0000-000"})
		assert.Error(t, err)
	})
}

func TestServer_Prompts(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	session := connect(t, srv)
	ctx := context.Background()

	listed, err := session.ListPrompts(ctx, nil)
	require.NoError(t, err)
	byName := map[string]*mcp.Prompt{}
	for _, p := range listed.Prompts {
		byName[p.Name] = p
	}
	require.Len(t, byName, 3)
	require.Contains(t, byName, promptLearn)
	require.Len(t, byName[promptLearn].Arguments, 1)
	assert.True(t, byName[promptLearn].Arguments[0].Required)
	require.Len(t, byName[promptSession].Arguments, 1)
	assert.False(t, byName[promptSession].Arguments[0].Required)
	assert.Empty(t, byName[promptGuide].Arguments)

	text := func(t *testing.T, res *mcp.GetPromptResult) string {
		t.Helper()
		require.Len(t, res.Messages, 1)
		content, ok := res.Messages[0].Content.(*mcp.TextContent)
		require.True(t, ok)
		return content.Text
	}

	t.Run("session with task", func(t *testing.T) {
		res, err := session.GetPrompt(ctx, &mcp.GetPromptParams{
			Name:      promptSession,
			Arguments: map[string]string{"task": "fix flaky tests"},
		})
		require.NoError(t, err)
		body := text(t, res)
		assert.Equal(t, mcp.Role("user"), res.Messages[0].Role)
		assert.Contains(t, body, "Task: fix flaky tests")
		assert.Contains(t, body, hints.ToolSessionStart+` with task: "fix flaky tests"`)
		assert.Contains(t, body, hints.ToolSessionEnd)
	})

	t.Run("session without task", func(t *testing.T) {
		res, err := session.GetPrompt(ctx, &mcp.GetPromptParams{Name: promptSession})
		require.NoError(t, err)
		assert.NotContains(t, text(t, res), "Task:")
	})

	t.Run("learn", func(t *testing.T) {
		res, err := session.GetPrompt(ctx, &mcp.GetPromptParams{
			Name:      promptLearn,
			Arguments: map[string]string{"statement": "Always run tests before deploying"},
		})
		require.NoError(t, err)
		body := text(t, res)
		assert.Contains(t, body, `"Always run tests before deploying"`)
		assert.Contains(t, body, "creates a candidate engram")
		assert.Contains(t, body, hints.ToolPromote)
	})

	t.Run("guide", func(t *testing.T) {
		res, err := session.GetPrompt(ctx, &mcp.GetPromptParams{Name: promptGuide})
		require.NoError(t, err)
		assert.Equal(t, services.Guide, text(t, res))
		assert.Equal(t, mcp.Role("assistant"), res.Messages[0].Role)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := session.GetPrompt(ctx, &mcp.GetPromptParams{Name: "datacore-nope"})
		assert.Error(t, err)
	})
}

func TestServer_LearnPromptAutoPromote(t *testing.T) {
	srv, _ := newTestServer(t, func(c *config.Config) { c.Engrams.AutoPromote = true })
	res, err := srv.learnPrompt(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Name: promptLearn, Arguments: map[string]string{"statement": "Pin tool versions"}},
	})
	require.NoError(t, err)
	content, ok := res.Messages[0].Content.(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, content.Text, "active immediately")
}
