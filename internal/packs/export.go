package packs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/engramd/internal/engram"
	"github.com/fyrsmithlabs/engramd/internal/sanitize"
	"github.com/fyrsmithlabs/engramd/internal/store"
)

const (
	exportVersion     = "1.0.0"
	previewStatements = 10
	defaultExportSlug = "pack"
)

// ExportRequest selects personal engrams to publish as a pack.
type ExportRequest struct {
	Name         string
	Description  string
	IDs          []string
	FilterTags   []string
	FilterDomain string
	// Confirm writes the pack; otherwise only a preview is returned.
	Confirm bool
}

// Preview describes what a confirmed export would write.
type Preview struct {
	Count      int      `json:"count"`
	Statements []string `json:"statements"`
	PackPath   string   `json:"pack_path"`
}

// ExportResult reports an export.
type ExportResult struct {
	PackID     string   `json:"pack_id"`
	PackPath   string   `json:"pack_path"`
	Preview    *Preview `json:"preview,omitempty"`
	Count      int      `json:"count"`
	Redactions int      `json:"redactions"`
}

// Export selects active public/template engrams, scrubs secrets from their
// text and, when confirmed, writes them as a new pack. Activation is reset
// and feedback zeroed in the exported copies.
func (m *Manager) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("pack name is required")
	}
	if err := sanitize.ValidateTitle(req.Name); err != nil {
		return nil, err
	}
	if err := sanitize.ValidateContent(req.Description); err != nil {
		return nil, err
	}

	all, err := m.personal.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading engrams: %w", err)
	}
	selected, err := selectExportable(all, req)
	if err != nil {
		return nil, err
	}

	id := sanitize.Slug(req.Name, defaultExportSlug)
	if err := sanitize.ValidatePackID(id); err != nil {
		return nil, err
	}
	dir := filepath.Join(m.packs.Path(), id)

	today := engram.FormatDate(m.now())
	exported := make([]*engram.Engram, 0, len(selected))
	redactions := 0
	for _, e := range selected {
		c, n := m.exportCopy(e, id, today)
		exported = append(exported, c)
		redactions += n
	}

	result := &ExportResult{PackID: id, PackPath: dir, Count: len(exported), Redactions: redactions}
	if !req.Confirm {
		statements := make([]string, 0, min(len(exported), previewStatements))
		for _, e := range exported[:min(len(exported), previewStatements)] {
			statements = append(statements, e.Statement)
		}
		result.Preview = &Preview{Count: len(exported), Statements: statements, PackPath: dir}
		return result, nil
	}

	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w at %s: remove it first or use a different name", ErrPackExists, dir)
	}
	if err := m.writePack(ctx, dir, id, req, exported); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	m.logger.Info("pack exported",
		zap.String("pack", id),
		zap.Int("count", len(exported)),
		zap.Int("redactions", redactions))
	return result, nil
}

func selectExportable(all []*engram.Engram, req ExportRequest) ([]*engram.Engram, error) {
	exportable := func(e *engram.Engram) bool {
		return e.IsPersonal() && e.Status == engram.StatusActive && e.Visibility.Exportable()
	}

	var selected []*engram.Engram
	if len(req.IDs) == 0 {
		for _, e := range all {
			if exportable(e) {
				selected = append(selected, e)
			}
		}
		if len(selected) == 0 {
			return nil, ErrNoExportable
		}
	} else {
		want := make(map[string]bool, len(req.IDs))
		for _, id := range req.IDs {
			want[id] = true
		}
		var private []string
		for _, e := range all {
			if !want[e.ID] {
				continue
			}
			if e.Visibility == engram.VisibilityPrivate {
				private = append(private, e.ID)
				continue
			}
			if exportable(e) {
				selected = append(selected, e)
			}
		}
		if len(private) > 0 {
			return nil, fmt.Errorf("%w: %s; set visibility to public or template first",
				ErrPrivateEngrams, strings.Join(private, ", "))
		}
	}

	if len(req.FilterTags) > 0 {
		tags := make(map[string]bool, len(req.FilterTags))
		for _, t := range req.FilterTags {
			tags[strings.ToLower(t)] = true
		}
		selected = filter(selected, func(e *engram.Engram) bool { return anyTag(e.Tags, tags) })
	}
	if req.FilterDomain != "" {
		selected = filter(selected, func(e *engram.Engram) bool {
			return e.Domain != "" && strings.HasPrefix(e.Domain, req.FilterDomain)
		})
	}
	if len(selected) == 0 {
		return nil, ErrNoFilterMatch
	}
	return selected, nil
}

func filter(in []*engram.Engram, keep func(*engram.Engram) bool) []*engram.Engram {
	out := in[:0:0]
	for _, e := range in {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// exportCopy strips personal state from e and scrubs its text. It returns
// the copy and the number of redactions made.
func (m *Manager) exportCopy(e *engram.Engram, packID, today string) (*engram.Engram, int) {
	statement := m.scrubber.Scrub(e.Statement)
	rationale := m.scrubber.Scrub(e.Rationale)
	redactions := len(statement.Findings) + len(rationale.Findings)

	var contraindications []string
	for _, c := range e.Contraindications {
		res := m.scrubber.Scrub(c)
		contraindications = append(contraindications, res.Scrubbed)
		redactions += len(res.Findings)
	}

	pack := packID
	return &engram.Engram{
		ID:                e.ID,
		Version:           e.Version,
		Status:            engram.StatusActive,
		Type:              e.Type,
		Scope:             e.Scope,
		Visibility:        e.Visibility,
		Statement:         statement.Scrubbed,
		Rationale:         rationale.Scrubbed,
		Contraindications: contraindications,
		DerivationCount:   e.DerivationCount,
		KnowledgeType:     e.KnowledgeType,
		Domain:            e.Domain,
		Tags:              e.Tags,
		Pack:              &pack,
		Activation: engram.Activation{
			RetrievalStrength: engram.ActiveRetrieval,
			StorageStrength:   engram.ActiveStorage,
			Frequency:         0,
			LastAccessed:      today,
		},
		Feedback: &engram.Feedback{},
	}, redactions
}

func (m *Manager) writePack(ctx context.Context, dir, id string, req ExportRequest, engrams []*engram.Engram) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create pack directory: %w", err)
	}

	manifest := engram.Manifest{
		Name:        req.Name,
		Description: req.Description,
		Version:     exportVersion,
		Tags:        []string{},
		Datacore: engram.Extension{
			ID:              id,
			InjectionPolicy: engram.PolicyOnMatch,
			MatchTerms:      []string{},
			Domain:          req.FilterDomain,
			EngramCount:     len(engrams),
		},
	}
	fm, err := yaml.Marshal(&manifest)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n\n")
	fmt.Fprintf(&buf, "# %s\n\n%s\n\nExported %d engrams.\n", req.Name, req.Description, len(engrams))
	if err := os.WriteFile(filepath.Join(dir, store.ManifestFile), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return store.NewEngramFile(id, filepath.Join(dir, store.EngramsFile), m.logger).Save(ctx, engrams)
}
