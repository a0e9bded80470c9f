package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/engramd/internal/engram"
)

// Pack file names.
const (
	ManifestFile = "SKILL.md"
	EngramsFile  = "engrams.yaml"
)

// Errors for pack operations.
var (
	ErrNoManifest    = errors.New("no SKILL.md found")
	ErrNoFrontmatter = errors.New("no YAML frontmatter in SKILL.md")
)

var frontmatterPattern = regexp.MustCompile(`(?s)\A---\r?\n(.*?)\r?\n---`)

// ParseFrontmatter decodes the leading YAML block of a markdown document into out.
func ParseFrontmatter(content []byte, out any) error {
	m := frontmatterPattern.FindSubmatch(content)
	if m == nil {
		return ErrNoFrontmatter
	}
	if err := yaml.Unmarshal(m[1], out); err != nil {
		return fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	return nil
}

// ReadManifest parses and validates the SKILL.md of a pack directory.
func ReadManifest(dir string) (*engram.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoManifest)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m engram.Manifest
	if err := ParseFrontmatter(data, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	return &m, nil
}

// Checksum returns the sha256 over SKILL.md then engrams.yaml, or "" when
// neither file exists.
func Checksum(dir string) (string, error) {
	h := sha256.New()
	found := false
	for _, name := range []string{ManifestFile, EngramsFile} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", name, err)
		}
		h.Write(data)
		found = true
	}
	if !found {
		return "", nil
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// PackDir loads every pack installed under a directory. It implements
// engram.PackSource.
type PackDir struct {
	path   string
	logger *zap.Logger
}

var _ engram.PackSource = (*PackDir)(nil)

// NewPackDir returns a pack source rooted at path.
func NewPackDir(path string, logger *zap.Logger) *PackDir {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PackDir{path: path, logger: logger}
}

// Path returns the packs root.
func (d *PackDir) Path() string { return d.path }

// LoadPack reads one pack directory.
func (d *PackDir) LoadPack(ctx context.Context, dir string) (*engram.Pack, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	repo := NewEngramFile(m.Datacore.ID, filepath.Join(dir, EngramsFile), d.logger)
	engrams, err := repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &engram.Pack{Manifest: *m, Engrams: engrams, Repo: repo}, nil
}

// LoadPacks reads all subdirectories holding a SKILL.md, sorted by name.
// Packs that fail to load are skipped with a warning.
func (d *PackDir) LoadPacks(ctx context.Context) ([]*engram.Pack, error) {
	entries, err := os.ReadDir(d.path)
	if errors.Is(err, os.ErrNotExist) {
		return []*engram.Pack{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list packs: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	packs := make([]*engram.Pack, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(d.path, entry.Name())
		if !exists(filepath.Join(dir, ManifestFile)) {
			continue
		}
		p, err := d.LoadPack(ctx, dir)
		if err != nil {
			d.logger.Warn("failed to load pack",
				zap.String("pack", entry.Name()),
				zap.Error(err))
			continue
		}
		packs = append(packs, p)
	}
	return packs, nil
}

// Installed returns the manifests of installed packs keyed by pack ID.
func (d *PackDir) Installed(ctx context.Context) (map[string]*engram.Manifest, error) {
	packs, err := d.LoadPacks(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*engram.Manifest, len(packs))
	for _, p := range packs {
		m := p.Manifest
		out[p.ID()] = &m
	}
	return out, nil
}
