// Package modules lists the module manifests of a full installation.
//
// Modules are discovered, never executed: each module.yaml is read for its
// metadata and the counts of what it provides.
package modules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the module descriptor inside each module directory.
const ManifestFile = "module.yaml"

// ErrNotFound is returned by Catalog.Info for an unknown module.
var ErrNotFound = errors.New("module not found")

// Manifest is the subset of module.yaml that is reported.
type Manifest struct {
	ManifestVersion int    `yaml:"manifest_version"`
	Name            string `yaml:"name"`
	Version         string `yaml:"version"`
	Description     string `yaml:"description"`
	Builtin         bool   `yaml:"builtin"`
	Provides        struct {
		Tools     []yaml.Node `yaml:"tools"`
		Skills    []yaml.Node `yaml:"skills"`
		Agents    []yaml.Node `yaml:"agents"`
		Commands  []yaml.Node `yaml:"commands"`
		Workflows []yaml.Node `yaml:"workflows"`
	} `yaml:"provides"`
	Context struct {
		Priority string `yaml:"priority"`
	} `yaml:"context"`
	Engrams *struct {
		Namespace       string   `yaml:"namespace"`
		StarterPack     string   `yaml:"starter_pack"`
		InjectionPolicy string   `yaml:"injection_policy"`
		MatchTerms      []string `yaml:"match_terms"`
	} `yaml:"engrams"`
	Requires struct {
		EnvVars *struct {
			Required []string `yaml:"required"`
			Optional []string `yaml:"optional"`
		} `yaml:"env_vars"`
	} `yaml:"requires"`
}

// Provides counts the declared capabilities of a module.
type Provides struct {
	Tools     int `json:"tools"`
	Skills    int `json:"skills"`
	Agents    int `json:"agents"`
	Commands  int `json:"commands"`
	Workflows int `json:"workflows"`
}

// EngramInfo summarizes the engram settings of a module.
type EngramInfo struct {
	Namespace       string `json:"namespace,omitempty"`
	InjectionPolicy string `json:"injection_policy,omitempty"`
	HasStarterPack  bool   `json:"has_starter_pack"`
}

// Requirements lists environment variables a module reads.
type Requirements struct {
	EnvRequired []string `json:"env_required"`
	EnvOptional []string `json:"env_optional"`
}

// Module is a discovered module.
type Module struct {
	Name            string        `json:"name"`
	Version         string        `json:"version"`
	Description     string        `json:"description"`
	Scope           string        `json:"scope"`
	Space           string        `json:"space,omitempty"`
	Builtin         bool          `json:"builtin"`
	ManifestVersion int           `json:"manifest_version"`
	Provides        Provides      `json:"provides"`
	ContextPriority string        `json:"context_priority"`
	Engrams         *EngramInfo   `json:"engrams,omitempty"`
	Requires        *Requirements `json:"requires,omitempty"`
	Path            string        `json:"path"`
}

const (
	ScopeGlobal = "global"
	ScopeSpace  = "space"
)

// Catalog scans module roots under a base path.
type Catalog struct {
	base   string
	roots  []string
	logger *zap.Logger
}

// NewCatalog returns a catalog over roots. Roots other than
// <base>/.datacore/modules are space-scoped; the space is the first path
// segment below base.
func NewCatalog(base string, roots []string, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{base: base, roots: roots, logger: logger}
}

// Enabled reports whether any roots were configured.
func (c *Catalog) Enabled() bool {
	return len(c.roots) > 0
}

// List returns every module with a readable, named manifest.
func (c *Catalog) List() []Module {
	var out []Module
	for _, root := range c.roots {
		scope, space := c.scopeOf(root)
		entries, err := os.ReadDir(root)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				c.logger.Warn("failed to read modules directory", zap.String("dir", root), zap.Error(err))
			}
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dir := filepath.Join(root, entry.Name())
			m, err := readManifest(dir)
			if err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					c.logger.Warn("skipping module", zap.String("dir", dir), zap.Error(err))
				}
				continue
			}
			out = append(out, describe(m, dir, scope, space))
		}
	}
	return out
}

// Info returns the named module.
func (c *Catalog) Info(name string) (*Module, error) {
	for _, m := range c.List() {
		if m.Name == name {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

func (c *Catalog) scopeOf(root string) (scope, space string) {
	rel, err := filepath.Rel(c.base, root)
	if err != nil || strings.HasPrefix(rel, ".datacore") {
		return ScopeGlobal, ""
	}
	return ScopeSpace, strings.Split(filepath.ToSlash(rel), "/")[0]
}

func readManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", ManifestFile, err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("%s has no name", ManifestFile)
	}
	return &m, nil
}

func describe(m *Manifest, dir, scope, space string) Module {
	mod := Module{
		Name:            m.Name,
		Version:         orDefault(m.Version, "0.0.0"),
		Description:     m.Description,
		Scope:           scope,
		Space:           space,
		Builtin:         m.Builtin,
		ManifestVersion: m.ManifestVersion,
		Provides: Provides{
			Tools:     len(m.Provides.Tools),
			Skills:    len(m.Provides.Skills),
			Agents:    len(m.Provides.Agents),
			Commands:  len(m.Provides.Commands),
			Workflows: len(m.Provides.Workflows),
		},
		ContextPriority: orDefault(m.Context.Priority, "minimal"),
		Path:            dir,
	}
	if mod.ManifestVersion == 0 {
		mod.ManifestVersion = 1
	}
	if m.Engrams != nil {
		mod.Engrams = &EngramInfo{
			Namespace:       m.Engrams.Namespace,
			InjectionPolicy: m.Engrams.InjectionPolicy,
			HasStarterPack:  m.Engrams.StarterPack != "",
		}
	}
	if env := m.Requires.EnvVars; env != nil {
		mod.Requires = &Requirements{EnvRequired: env.Required, EnvOptional: env.Optional}
		if mod.Requires.EnvRequired == nil {
			mod.Requires.EnvRequired = []string{}
		}
		if mod.Requires.EnvOptional == nil {
			mod.Requires.EnvOptional = []string{}
		}
	}
	return mod
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
