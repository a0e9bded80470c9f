package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/engramd/internal/engram"
)

// EngramFile is a YAML engram list on disk. It implements engram.Repository.
type EngramFile struct {
	mu     sync.Mutex
	name   string
	path   string
	logger *zap.Logger
}

var _ engram.Repository = (*EngramFile)(nil)

// NewEngramFile returns a repository backed by the file at path.
func NewEngramFile(name, path string, logger *zap.Logger) *EngramFile {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EngramFile{name: name, path: path, logger: logger}
}

// Name identifies the repository in logs and results.
func (f *EngramFile) Name() string { return f.name }

// Path returns the backing file path.
func (f *EngramFile) Path() string { return f.path }

type engramDocument struct {
	Engrams []yaml.Node `yaml:"engrams"`
}

type engramList struct {
	Engrams []*engram.Engram `yaml:"engrams"`
}

// Load reads the file. A missing file yields an empty list. Records that
// fail validation are skipped with a warning; an unparseable file yields an
// empty list and an error log.
func (f *EngramFile) Load(ctx context.Context) ([]*engram.Engram, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return []*engram.Engram{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	var doc engramDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		f.logger.Error("failed to parse engrams file",
			zap.String("path", f.path),
			zap.Error(err))
		return []*engram.Engram{}, nil
	}

	engrams := make([]*engram.Engram, 0, len(doc.Engrams))
	for i := range doc.Engrams {
		var e engram.Engram
		if err := doc.Engrams[i].Decode(&e); err != nil {
			f.logger.Warn("skipping invalid engram",
				zap.String("path", f.path),
				zap.Int("line", doc.Engrams[i].Line),
				zap.Error(err))
			continue
		}
		e.Normalize()
		if err := e.Validate(); err != nil {
			f.logger.Warn("skipping invalid engram",
				zap.String("path", f.path),
				zap.String("id", e.ID),
				zap.Error(err))
			continue
		}
		engrams = append(engrams, &e)
	}
	return engrams, nil
}

// Save replaces the file contents atomically.
func (f *EngramFile) Save(ctx context.Context, engrams []*engram.Engram) error {
	if engrams == nil {
		engrams = []*engram.Engram{}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(engramList{Engrams: engrams}); err != nil {
		return fmt.Errorf("failed to marshal engrams: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to marshal engrams: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return writeFileAtomic(f.path, buf.Bytes(), 0o644)
}
