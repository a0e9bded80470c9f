package engram

import (
	"context"
)

// Repository loads and persists one engram list.
//
// Load must return fresh state on every call. Save replaces the whole list
// and must be atomic for a single writer.
type Repository interface {
	// Name identifies the repository in logs and results.
	Name() string
	Load(ctx context.Context) ([]*Engram, error)
	Save(ctx context.Context, engrams []*Engram) error
}

// PackSource loads all installed packs.
type PackSource interface {
	LoadPacks(ctx context.Context) ([]*Pack, error)
}

// find returns the engram with id, or nil.
func find(engrams []*Engram, id string) *Engram {
	for _, e := range engrams {
		if e.ID == id {
			return e
		}
	}
	return nil
}
