package packs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Entry is a pack offered by the registry.
type Entry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	Source      string   `json:"source"`
	Tags        []string `json:"tags"`
	Creator     string   `json:"creator,omitempty"`
	EngramCount int      `json:"engram_count,omitempty"`
}

// registryFile is the persisted packs.json structure.
type registryFile struct {
	Version int     `json:"version"`
	Packs   []Entry `json:"packs"`
}

// Registry is the catalog of installable packs.
type Registry struct {
	entries []Entry
}

// NewRegistry builds a registry from inline entries.
func NewRegistry(entries []Entry) *Registry {
	return &Registry{entries: entries}
}

// LoadRegistry reads a packs.json catalog and appends inline entries. Inline
// entries replace file entries with the same ID. An empty path uses only the
// inline entries.
func LoadRegistry(path string, inline []Entry) (*Registry, error) {
	var entries []Entry
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read registry: %w", err)
		}
		if err == nil {
			var f registryFile
			if err := json.Unmarshal(data, &f); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrRegistryCorrupt, err)
			}
			entries = f.Packs
		}
	}

	for _, e := range inline {
		replaced := false
		for i := range entries {
			if entries[i].ID == e.ID {
				entries[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			entries = append(entries, e)
		}
	}
	return &Registry{entries: entries}, nil
}

// Entries returns the catalog.
func (r *Registry) Entries() []Entry {
	return r.entries
}

// Discovered is a registry entry annotated with local install state.
type Discovered struct {
	Entry
	Installed        bool   `json:"installed"`
	InstalledVersion string `json:"installed_version,omitempty"`
	Upgradeable      bool   `json:"upgradeable"`
	Trusted          bool   `json:"trusted"`
}

// Discover lists registry packs matching query (name, description or tag
// substring) and any of tags, each annotated with its install state.
func (m *Manager) Discover(ctx context.Context, query string, tags []string) ([]Discovered, error) {
	installed, err := m.packs.Installed(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[strings.ToLower(t)] = true
	}

	out := []Discovered{}
	for _, e := range m.registry.Entries() {
		if q != "" && !entryMatches(e, q) {
			continue
		}
		if len(want) > 0 && !anyTag(e.Tags, want) {
			continue
		}
		d := Discovered{Entry: e, Trusted: m.Trusted(e.Creator)}
		if man, ok := installed[e.ID]; ok {
			d.Installed = true
			d.InstalledVersion = man.Version
			d.Upgradeable = man.Version != e.Version
		}
		out = append(out, d)
	}
	return out, nil
}

func entryMatches(e Entry, q string) bool {
	if strings.Contains(strings.ToLower(e.Name), q) || strings.Contains(strings.ToLower(e.Description), q) {
		return true
	}
	for _, t := range e.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

func anyTag(tags []string, want map[string]bool) bool {
	for _, t := range tags {
		if want[strings.ToLower(t)] {
			return true
		}
	}
	return false
}
