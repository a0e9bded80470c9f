package notes

import (
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const snippetContext = 50

// Hit is one matching note.
type Hit struct {
	Path    string `json:"path"`
	Snippet string `json:"snippet"`
	Score   int    `json:"score"`
}

// SearchOptions bounds a search.
type SearchOptions struct {
	Scope Scope
	Limit int
	// SnippetLength caps the snippet in bytes; 0 disables the cap.
	SnippetLength int
}

// Search scores every note by case-insensitive occurrences of query and
// returns the best first.
func (s *Store) Search(query string, opts SearchOptions) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if opts.Scope == "" {
		opts.Scope = ScopeAll
	}

	var hits []Hit
	if opts.Scope == ScopeJournal || opts.Scope == ScopeAll {
		hits = append(hits, s.searchDir(s.journalPath, query, opts.SnippetLength)...)
	}
	if opts.Scope == ScopeKnowledge || opts.Scope == ScopeAll {
		hits = append(hits, s.searchDir(s.knowledgePath, query, opts.SnippetLength)...)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if opts.Limit > 0 && len(hits) > opts.Limit {
		hits = hits[:opts.Limit]
	}
	return hits, nil
}

func (s *Store) searchDir(dir, query string, maxSnippet int) []Hit {
	q := strings.ToLower(query)
	var hits []Hit
	for _, path := range markdownFiles(dir, s.logger) {
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("failed to read note", zap.String("path", path), zap.Error(err))
			continue
		}
		content := string(data)
		n := strings.Count(strings.ToLower(content), q)
		if n == 0 {
			continue
		}
		hits = append(hits, Hit{Path: path, Snippet: snippet(content, q, maxSnippet), Score: n})
	}
	return hits
}

// snippet returns the text around the first match of q, with ellipses where
// content was cut.
func snippet(content, q string, maxLen int) string {
	lower := strings.ToLower(content)
	idx := strings.Index(lower, q)
	if idx < 0 || len(lower) != len(content) {
		return truncate(content, 100)
	}
	start := max(0, idx-snippetContext)
	end := min(len(content), idx+len(q)+snippetContext)
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}

	out := content[start:end]
	if maxLen > 0 {
		out = truncate(out, maxLen)
	}
	if start > 0 {
		out = "..." + out
	}
	if end < len(content) {
		out += "..."
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
