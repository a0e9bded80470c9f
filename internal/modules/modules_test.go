package modules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModule(t *testing.T, root, dir, manifest string) {
	t.Helper()
	path := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(path, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(path, ManifestFile), []byte(manifest), 0644))
}

func TestCatalog_List(t *testing.T) {
	base := t.TempDir()
	global := filepath.Join(base, ".datacore", "modules")
	space := filepath.Join(base, "1-work", ".datacore", "modules")

	writeModule(t, global, "gtd", `name: gtd
version: 1.2.0
description: Getting things done
builtin: true
manifest_version: 2
provides:
  tools:
    - name: inbox_count
      description: Count inbox items
      handler: tools/index.js
  skills: [a, b]
context:
  priority: always
engrams:
  namespace: gtd
  starter_pack: gtd-starter
  injection_policy: on_match
requires:
  env_vars:
    required: [GTD_HOME]
`)
	writeModule(t, global, "broken", "name: [unclosed\n")
	writeModule(t, global, "nameless", "version: 1.0.0\n")
	require.NoError(t, os.MkdirAll(filepath.Join(global, "empty"), 0755))
	writeModule(t, space, "crm", "name: crm\n")

	c := NewCatalog(base, []string{global, space}, nil)
	require.True(t, c.Enabled())

	mods := c.List()
	require.Len(t, mods, 2)

	gtd := mods[0]
	assert.Equal(t, "gtd", gtd.Name)
	assert.Equal(t, ScopeGlobal, gtd.Scope)
	assert.True(t, gtd.Builtin)
	assert.Equal(t, 2, gtd.ManifestVersion)
	assert.Equal(t, Provides{Tools: 1, Skills: 2}, gtd.Provides)
	assert.Equal(t, "always", gtd.ContextPriority)
	require.NotNil(t, gtd.Engrams)
	assert.True(t, gtd.Engrams.HasStarterPack)
	require.NotNil(t, gtd.Requires)
	assert.Equal(t, []string{"GTD_HOME"}, gtd.Requires.EnvRequired)
	assert.Equal(t, []string{}, gtd.Requires.EnvOptional)

	crm := mods[1]
	assert.Equal(t, ScopeSpace, crm.Scope)
	assert.Equal(t, "1-work", crm.Space)
	assert.Equal(t, "0.0.0", crm.Version)
	assert.Equal(t, 1, crm.ManifestVersion)
	assert.Equal(t, "minimal", crm.ContextPriority)
	assert.Nil(t, crm.Engrams)
	assert.Nil(t, crm.Requires)
}

func TestCatalog_Info(t *testing.T) {
	base := t.TempDir()
	global := filepath.Join(base, ".datacore", "modules")
	writeModule(t, global, "gtd", "name: gtd\n")

	c := NewCatalog(base, []string{global}, nil)
	m, err := c.Info("gtd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(global, "gtd"), m.Path)

	_, err = c.Info("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_NoRoots(t *testing.T) {
	c := NewCatalog(t.TempDir(), nil, nil)
	assert.False(t, c.Enabled())
	assert.Empty(t, c.List())
}

func TestCatalog_Health(t *testing.T) {
	base := t.TempDir()
	global := filepath.Join(base, ".datacore", "modules")

	writeModule(t, global, "clean", "name: clean\nmanifest_version: 2\n")
	for _, f := range []string{"SKILL.md", "CLAUDE.base.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(global, "clean", f), []byte("# clean\n"), 0644))
	}

	writeModule(t, global, "legacy", `name: legacy
provides:
  tools:
    - name: sync
      handler: tools/index.js
`)
	require.NoError(t, os.MkdirAll(filepath.Join(global, "legacy", "data"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(global, "legacy", "cache.sqlite"), nil, 0644))

	writeModule(t, global, "needs-env", `name: needs-env
manifest_version: 2
requires:
  env_vars:
    required: [ENGRAMD_TEST_MODULE_TOKEN]
`)
	t.Setenv("ENGRAMD_TEST_MODULE_TOKEN", "")

	c := NewCatalog(base, []string{global}, nil)

	t.Run("all modules", func(t *testing.T) {
		report, err := c.Health("")
		require.NoError(t, err)
		assert.Equal(t, HealthSummary{Total: 3, OK: 1, Warnings: 1, Errors: 1}, report.Summary)

		byName := map[string]Check{}
		for _, check := range report.Modules {
			byName[check.Name] = check
		}

		assert.Equal(t, HealthOK, byName["clean"].Status)
		assert.Empty(t, byName["clean"].Issues)

		legacy := byName["legacy"]
		assert.Equal(t, HealthWarning, legacy.Status)
		assert.Contains(t, legacy.Issues, "Missing SKILL.md (ecosystem entry point)")
		assert.Contains(t, legacy.Issues, "Missing CLAUDE.base.md (AI context)")
		assert.Contains(t, legacy.Issues, "module.yaml uses v1 format (missing manifest_version: 2)")
		assert.Contains(t, legacy.Issues, "Declares 1 tools but tools/index.js not found")
		assert.Contains(t, legacy.Issues, "Data dir 'data/' found in module code (should be in space data path)")
		assert.Contains(t, legacy.Issues, "Data file 'cache.sqlite' found in module code dir")

		assert.Equal(t, HealthError, byName["needs-env"].Status)
		assert.Contains(t, byName["needs-env"].Issues, "Missing required env var: ENGRAMD_TEST_MODULE_TOKEN")
	})

	t.Run("env var set", func(t *testing.T) {
		t.Setenv("ENGRAMD_TEST_MODULE_TOKEN", "x")
		report, err := c.Health("needs-env")
		require.NoError(t, err)
		require.Len(t, report.Modules, 1)
		assert.Equal(t, HealthWarning, report.Modules[0].Status, "missing SKILL.md remains a warning")
		assert.Equal(t, HealthSummary{Total: 1, Warnings: 1}, report.Summary)
	})

	t.Run("unknown module", func(t *testing.T) {
		_, err := c.Health("nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
