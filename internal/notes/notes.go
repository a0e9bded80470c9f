// Package notes reads and writes the markdown journal and knowledge notes
// kept alongside the engram store.
package notes

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/engramd/internal/sanitize"
)

// Scope selects which note directories a search covers.
type Scope string

const (
	ScopeJournal   Scope = "journal"
	ScopeKnowledge Scope = "knowledge"
	ScopeAll       Scope = "all"
)

// ParseScope maps "" to ScopeAll and rejects unknown values.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "":
		return ScopeAll, nil
	case ScopeJournal, ScopeKnowledge, ScopeAll:
		return Scope(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
}

var (
	ErrInvalidScope = errors.New("scope must be journal, knowledge or all")
	ErrInvalidType  = errors.New("capture type must be journal or knowledge")
	ErrEmptyQuery   = errors.New("query cannot be empty")
)

// Store is a journal directory plus a knowledge directory.
type Store struct {
	journalPath   string
	knowledgePath string
	logger        *zap.Logger
	now           func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Store over the given directories.
func NewStore(journalPath, knowledgePath string, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		journalPath:   journalPath,
		knowledgePath: knowledgePath,
		logger:        logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) JournalPath() string   { return s.journalPath }
func (s *Store) KnowledgePath() string { return s.knowledgePath }

// Journal returns the journal entry for date (YYYY-MM-DD). ok is false when
// no entry exists.
func (s *Store) Journal(date string) (content string, ok bool, err error) {
	path, err := sanitize.ValidatePath(filepath.Join(s.journalPath, date+".md"), s.journalPath)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading journal: %w", err)
	}
	return string(data), true, nil
}

// Counts returns the number of markdown files in each directory.
func (s *Store) Counts() (journal, knowledge int) {
	return len(markdownFiles(s.journalPath, s.logger)), len(markdownFiles(s.knowledgePath, s.logger))
}

// markdownFiles lists .md files under dir in lexical order. A missing
// directory yields nothing.
func markdownFiles(dir string, logger *zap.Logger) []string {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".md") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		logger.Warn("failed to walk notes directory", zap.String("dir", dir), zap.Error(err))
	}
	return files
}
