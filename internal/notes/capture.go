package notes

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/engramd/internal/sanitize"
)

// Kind is the destination of a captured note.
type Kind string

const (
	KindJournal   Kind = "journal"
	KindKnowledge Kind = "knowledge"
)

const (
	journalDateLayout = "2006-01-02"
	journalTimeLayout = "15:04"
	noteStampLayout   = "2006-01-02T15-04-05"
)

// CaptureInput is a note to write.
type CaptureInput struct {
	Type    Kind
	Content string
	Title   string
	Tags    []string
}

type frontmatter struct {
	Title   string `yaml:"title"`
	Created string `yaml:"created"`
	Type    string `yaml:"type,omitempty"`
}

// Capture appends to today's journal or writes a new knowledge note, and
// returns the file path.
func (s *Store) Capture(in CaptureInput) (string, error) {
	if err := sanitize.ValidateContent(in.Content); err != nil {
		return "", err
	}
	if err := sanitize.ValidateTitle(in.Title); err != nil {
		return "", err
	}

	switch in.Type {
	case KindJournal:
		return s.appendJournal(in.Content)
	case KindKnowledge:
		return s.writeKnowledge(in.Content, in.Title, "Untitled", "note", "", in.Tags)
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, in.Type)
}

// appendJournal adds a timestamped section to journal/YYYY-MM-DD.md,
// creating the file with a date header when needed.
func (s *Store) appendJournal(content string) (string, error) {
	now := s.now().UTC()
	date := now.Format(journalDateLayout)
	path := filepath.Join(s.journalPath, date+".md")

	existing, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		existing = []byte("# " + date + "\n")
	case err != nil:
		return "", fmt.Errorf("reading journal: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(existing)
	fmt.Fprintf(&buf, "\n## %s\n\n%s\n", now.Format(journalTimeLayout), content)

	if err := os.MkdirAll(s.journalPath, 0755); err != nil {
		return "", fmt.Errorf("creating journal directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("writing journal: %w", err)
	}
	s.logger.Debug("journal entry captured", zap.String("path", path))
	return path, nil
}

// writeKnowledge writes knowledge/<timestamp>-<slug>.md with YAML
// frontmatter and an optional trailing #tag line.
func (s *Store) writeKnowledge(content, title, defaultTitle, defaultSlug, noteType string, tags []string) (string, error) {
	now := s.now().UTC()
	if title == "" {
		title = defaultTitle
	}
	name := now.Format(noteStampLayout) + "-" + sanitize.Slug(title, defaultSlug) + ".md"
	path, err := sanitize.ValidatePath(filepath.Join(s.knowledgePath, name), s.knowledgePath)
	if err != nil {
		return "", err
	}

	fm, err := yaml.Marshal(frontmatter{
		Title:   title,
		Created: now.Format(time.RFC3339),
		Type:    noteType,
	})
	if err != nil {
		return "", fmt.Errorf("encoding frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n\n")
	buf.WriteString(content)
	buf.WriteString("\n")
	if line := tagLine(tags); line != "" {
		buf.WriteString("\n" + line + "\n")
	}

	if err := os.MkdirAll(s.knowledgePath, 0755); err != nil {
		return "", fmt.Errorf("creating knowledge directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("writing note: %w", err)
	}
	s.logger.Debug("knowledge note captured", zap.String("path", path))
	return path, nil
}

func tagLine(tags []string) string {
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, "#"+t)
		}
	}
	return strings.Join(parts, " ")
}

var suggestionPatterns = func() []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, verb := range []string{"always", "never", "prefer", "avoid", "ensure"} {
		out = append(out, regexp.MustCompile(`(?i)\b(`+verb+`\s+\w[\w\s]*?)(?:\.|$)`))
	}
	return out
}()

// IngestResult is a stored note plus candidate engram statements found in it.
type IngestResult struct {
	Path        string   `json:"note_path"`
	Suggestions []string `json:"engram_suggestions,omitempty"`
}

// Ingest stores content as a knowledge note marked "type: ingested" and
// extracts always/never/prefer/avoid/ensure sentences as engram suggestions.
func (s *Store) Ingest(content, title string, tags []string) (*IngestResult, error) {
	if err := sanitize.ValidateContent(content); err != nil {
		return nil, err
	}
	if err := sanitize.ValidateTitle(title); err != nil {
		return nil, err
	}
	path, err := s.writeKnowledge(content, title, "Ingested Note", "ingested", "ingested", tags)
	if err != nil {
		return nil, err
	}
	return &IngestResult{Path: path, Suggestions: Suggestions(content)}, nil
}

// Suggestions returns directive-like phrases of 11 to 199 characters,
// grouped by leading verb.
func Suggestions(content string) []string {
	var out []string
	for _, re := range suggestionPatterns {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			s := strings.TrimSpace(m[1])
			if len(s) > 10 && len(s) < 200 {
				out = append(out, s)
			}
		}
	}
	return out
}
