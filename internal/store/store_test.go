package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/engramd/internal/engram"
)

const validEngram = `  - id: ENG-2026-1016-001
    version: 2
    status: active
    consolidated: false
    type: behavioral
    scope: global
    visibility: private
    statement: Always wrap errors with context
    derivation_count: 1
    activation:
      retrieval_strength: 0.7
      storage_strength: 1
      frequency: 3
      last_accessed: 2026-10-16
    tags: [errors, go]
    pack: null
    abstract: null
    derived_from: null
`

func fixedTime() time.Time {
	return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestEngramFile_LoadMissing(t *testing.T) {
	f := NewEngramFile("personal", filepath.Join(t.TempDir(), "engrams.yaml"), nil)
	engrams, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, engrams)
}

func TestEngramFile_LoadSkipsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engrams.yaml")
	writeFile(t, path, "engrams:\n"+validEngram+`  - id: not-an-id
    statement: broken
`)

	core, logs := observer.New(zapcore.WarnLevel)
	f := NewEngramFile("personal", path, zap.New(core))

	engrams, err := f.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, engrams, 1)

	e := engrams[0]
	assert.Equal(t, "ENG-2026-1016-001", e.ID)
	assert.Equal(t, "2026-10-16", e.Activation.LastAccessed)
	assert.Equal(t, 3, e.Activation.Frequency)
	assert.Equal(t, []string{"errors", "go"}, e.Tags)
	assert.True(t, e.IsPersonal())

	assert.Equal(t, 1, logs.FilterMessage("skipping invalid engram").Len())
}

func TestEngramFile_LoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engrams.yaml")
	writeFile(t, path, `engrams:
  - id: ENG-2026-1016-002
    version: 1
    status: candidate
    type: procedural
    scope: global
    statement: Run the linter before pushing
    activation:
      retrieval_strength: 0.5
      storage_strength: 0.3
      frequency: 0
      last_accessed: ""
  - id: ENG-2026-1016-003
    version: 1
    status: active
    type: procedural
    scope: global
    statement: Squash fixup commits
    derivation_count: 0
    activation:
      retrieval_strength: 0.7
      storage_strength: 1
      frequency: 0
      last_accessed: 2026-10-16
`)

	engrams, err := NewEngramFile("personal", path, nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, engrams, 2)

	assert.Equal(t, 1, engrams[0].DerivationCount, "missing derivation_count defaults to 1")
	assert.Empty(t, engrams[0].Activation.LastAccessed)
	assert.Equal(t, engram.VisibilityPrivate, engrams[0].Visibility)
	assert.Equal(t, []string{}, engrams[0].Tags)

	assert.Equal(t, 0, engrams[1].DerivationCount, "an explicit 0 is kept")
}

func TestEngramFile_LoadUnparseable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engrams.yaml")
	writeFile(t, path, "engrams: [\n  - : :\n")

	core, logs := observer.New(zapcore.ErrorLevel)
	f := NewEngramFile("personal", path, zap.New(core))

	engrams, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, engrams)
	assert.Equal(t, 1, logs.Len())
}

func TestEngramFile_SaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "engrams.yaml")
	f := NewEngramFile("personal", path, nil)

	e, err := engram.NewEngram("ENG-2026-1016-001", engram.LearnInput{
		Statement: "Prefer table-driven tests",
		Tags:      []string{"testing"},
		Domain:    "software.testing",
	}, true, fixedTime())
	require.NoError(t, err)
	e.Feedback = &engram.Feedback{Positive: 2}

	require.NoError(t, f.Save(ctx, []*engram.Engram{e}))
	assert.NoFileExists(t, path+".tmp")

	loaded, err := f.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, e.Statement, loaded[0].Statement)
	assert.Equal(t, e.Activation, loaded[0].Activation)
	assert.Equal(t, 2, loaded[0].Feedback.Positive)
	assert.Equal(t, "software.testing", loaded[0].Domain)
}

func TestEngramFile_SaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engrams.yaml")
	f := NewEngramFile("personal", path, nil)
	require.NoError(t, f.Save(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "engrams: []\n", string(data))
}

const skillMD = `---
name: Go Practices
description: Idioms for Go services
version: 1.2.0
creator: fyrsmith
tags: [go]
x-datacore:
  id: go-practices
  injection_policy: on_match
  match_terms: [golang, goroutine]
  engram_count: 1
---

# Go Practices
`

func writePack(t *testing.T, dir, manifest string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, ManifestFile), manifest)
	writeFile(t, filepath.Join(dir, EngramsFile), "engrams:\n"+validEngram)
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	writePack(t, dir, skillMD)

	m, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "Go Practices", m.Name)
	assert.Equal(t, "go-practices", m.Datacore.ID)
	assert.Equal(t, engram.PolicyOnMatch, m.Datacore.InjectionPolicy)
	assert.Equal(t, []string{"golang", "goroutine"}, m.Datacore.MatchTerms)
}

func TestReadManifest_Errors(t *testing.T) {
	_, err := ReadManifest(t.TempDir())
	assert.ErrorIs(t, err, ErrNoManifest)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ManifestFile), "# no frontmatter\n")
	_, err = ReadManifest(dir)
	assert.ErrorIs(t, err, ErrNoFrontmatter)

	dir = t.TempDir()
	writeFile(t, filepath.Join(dir, ManifestFile), "---\nname: x\nversion: 1\n---\n")
	_, err = ReadManifest(dir)
	assert.Error(t, err)
}

func TestPackDir_LoadPacks(t *testing.T) {
	root := t.TempDir()
	writePack(t, filepath.Join(root, "go-practices"), skillMD)
	writeFile(t, filepath.Join(root, "broken", ManifestFile), "nothing here")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	writeFile(t, filepath.Join(root, "README.md"), "not a pack")

	core, logs := observer.New(zapcore.WarnLevel)
	d := NewPackDir(root, zap.New(core))

	packs, err := d.LoadPacks(context.Background())
	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, "go-practices", packs[0].ID())
	require.Len(t, packs[0].Engrams, 1)
	assert.Equal(t, "go-practices", packs[0].Repo.Name())
	assert.Equal(t, 1, logs.FilterMessage("failed to load pack").Len())
}

func TestPackDir_LoadPacksMissingRoot(t *testing.T) {
	d := NewPackDir(filepath.Join(t.TempDir(), "absent"), nil)
	packs, err := d.LoadPacks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, packs)
}

func TestPackDir_FeedbackPersistsToPackFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writePack(t, filepath.Join(root, "go-practices"), skillMD)
	d := NewPackDir(root, nil)

	packs, err := d.LoadPacks(ctx)
	require.NoError(t, err)
	p := packs[0]
	require.NoError(t, engram.ApplyFeedback(p.Engrams[0], engram.SignalPositive, fixedTime()))
	require.NoError(t, p.Repo.Save(ctx, p.Engrams))

	again, err := d.LoadPacks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, again[0].Engrams[0].Feedback.Positive)
}

func TestChecksum(t *testing.T) {
	dir := t.TempDir()
	sum, err := Checksum(dir)
	require.NoError(t, err)
	assert.Empty(t, sum)

	writePack(t, dir, skillMD)
	first, err := Checksum(dir)
	require.NoError(t, err)
	assert.Len(t, first, 64)

	second, err := Checksum(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	writeFile(t, filepath.Join(dir, EngramsFile), "engrams: []\n")
	changed, err := Checksum(dir)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)
}
