// Package store persists engrams and packs as YAML files on the local disk.
//
// Two layouts are supported:
//
//	full (DATACORE_PATH or ~/Data with a .datacore directory)
//	├── .datacore/
//	│   ├── config.yaml
//	│   ├── learning/engrams.yaml
//	│   ├── learning/packs/{pack-id}/
//	│   └── modules/{module}/module.yaml
//	└── 0-personal/
//	    ├── journal/YYYY-MM-DD.md
//	    └── 3-knowledge/*.md
//
//	core (DATACORE_CORE_PATH or ~/Datacore)
//	├── config.yaml
//	├── engrams.yaml
//	├── journal/
//	├── knowledge/
//	└── packs/{pack-id}/
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Mode identifies the detected storage layout.
type Mode string

const (
	ModeFull Mode = "full"
	ModeCore Mode = "core"
)

// Environment variables that select the storage root.
const (
	EnvPath     = "DATACORE_PATH"
	EnvCorePath = "DATACORE_CORE_PATH"
)

// Layout holds the resolved paths of a storage root.
type Layout struct {
	Mode          Mode
	BasePath      string
	EngramsPath   string
	JournalPath   string
	KnowledgePath string
	PacksPath     string
	ConfigPath    string
}

// Detect resolves the storage layout. Explicit paths take precedence over
// the environment, which takes precedence over the home directory defaults.
func Detect(fullPath, corePath string) (*Layout, error) {
	if fullPath == "" {
		fullPath = os.Getenv(EnvPath)
	}
	if fullPath != "" && exists(filepath.Join(fullPath, ".datacore")) {
		return FullLayout(fullPath), nil
	}

	if corePath == "" {
		corePath = os.Getenv(EnvCorePath)
	}
	if corePath != "" && exists(corePath) {
		return CoreLayout(corePath), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultFull := filepath.Join(home, "Data")
	if exists(filepath.Join(defaultFull, ".datacore")) {
		return FullLayout(defaultFull), nil
	}
	if corePath != "" {
		return CoreLayout(corePath), nil
	}
	return CoreLayout(filepath.Join(home, "Datacore")), nil
}

// FullLayout returns the paths of a full installation rooted at base.
func FullLayout(base string) *Layout {
	base = absPath(base)
	return &Layout{
		Mode:          ModeFull,
		BasePath:      base,
		EngramsPath:   filepath.Join(base, ".datacore", "learning", "engrams.yaml"),
		JournalPath:   filepath.Join(base, "0-personal", "journal"),
		KnowledgePath: filepath.Join(base, "0-personal", "3-knowledge"),
		PacksPath:     filepath.Join(base, ".datacore", "learning", "packs"),
		ConfigPath:    filepath.Join(base, ".datacore", "config.yaml"),
	}
}

// CoreLayout returns the paths of a standalone installation rooted at base.
func CoreLayout(base string) *Layout {
	base = absPath(base)
	return &Layout{
		Mode:          ModeCore,
		BasePath:      base,
		EngramsPath:   filepath.Join(base, "engrams.yaml"),
		JournalPath:   filepath.Join(base, "journal"),
		KnowledgePath: filepath.Join(base, "knowledge"),
		PacksPath:     filepath.Join(base, "packs"),
		ConfigPath:    filepath.Join(base, "config.yaml"),
	}
}

// absPath resolves base against the working directory so that paths derived
// from it can be checked against their roots.
func absPath(base string) string {
	if abs, err := filepath.Abs(base); err == nil {
		return abs
	}
	return base
}

const defaultConfigFile = `# engramd configuration
version: 2
# engrams:
#   auto_promote: false
#   max_tokens: 8000
#   min_relevance: 0.3
# packs:
#   trusted_publishers: []
# search:
#   max_results: 20
#   snippet_length: 500
# hints:
#   enabled: true
`

// Init creates the directories and empty files of the layout. It never
// overwrites existing files and reports whether the engram store was absent.
func (l *Layout) Init() (firstRun bool, err error) {
	firstRun = !exists(l.EngramsPath)

	for _, dir := range []string{l.JournalPath, l.KnowledgePath, l.PacksPath, filepath.Dir(l.EngramsPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if firstRun {
		if err := writeFileAtomic(l.EngramsPath, []byte("engrams: []\n"), 0o644); err != nil {
			return false, err
		}
	}
	if !exists(l.ConfigPath) {
		if err := writeFileAtomic(l.ConfigPath, []byte(defaultConfigFile), 0o644); err != nil {
			return false, err
		}
	}
	return firstRun, nil
}

// ModuleRoots returns the directories scanned for module manifests. Only
// full installations carry modules.
func (l *Layout) ModuleRoots() []string {
	if l.Mode != ModeFull {
		return nil
	}
	roots := []string{filepath.Join(l.BasePath, ".datacore", "modules")}
	spaces, _ := filepath.Glob(filepath.Join(l.BasePath, "[0-9]-*", ".datacore", "modules"))
	return append(roots, spaces...)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeFileAtomic writes data to a temporary sibling and renames it over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s: %w", path, err)
	}
	return nil
}
