// Package packs installs, exports, discovers and verifies engram packs.
//
// A pack is a directory holding a SKILL.md manifest (YAML frontmatter with
// an x-datacore block) and an engrams.yaml store. Installed packs live
// under the packs root, one directory per pack ID:
//
//	packs/
//	├── go-practices/
//	│   ├── SKILL.md
//	│   ├── engrams.yaml
//	│   └── .checksum        recorded at install
//	└── my-exported-pack/
package packs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/engramd/internal/engram"
	"github.com/fyrsmithlabs/engramd/internal/secrets"
	"github.com/fyrsmithlabs/engramd/internal/store"
)

// ChecksumFile records the checksum computed at install time.
const ChecksumFile = ".checksum"

var (
	ErrPackExists      = errors.New("pack directory already exists")
	ErrNotInstalled    = errors.New("pack not installed")
	ErrNoExportable    = errors.New("no exportable engrams found (only active public/template engrams can be exported)")
	ErrNoFilterMatch   = errors.New("no engrams match the filter criteria")
	ErrPrivateEngrams  = errors.New("cannot export private engrams")
	ErrUnknownSource   = errors.New("source is neither a directory nor a git URL")
	ErrNoChecksum      = errors.New("no recorded checksum")
	ErrRegistryCorrupt = errors.New("registry file corrupted")
)

// FetchFunc materializes a remote pack source into dir.
type FetchFunc func(ctx context.Context, url, dir string) error

// Manager operates on the packs root and the personal engram store.
type Manager struct {
	packs    *store.PackDir
	personal engram.Repository
	scrubber secrets.Scrubber
	registry *Registry
	trusted  map[string]bool
	fetch    FetchFunc
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithFetcher replaces the git fetcher used for remote sources.
func WithFetcher(f FetchFunc) Option {
	return func(m *Manager) {
		m.fetch = f
	}
}

// WithTrustedPublishers marks creators whose packs are reported as trusted.
func WithTrustedPublishers(creators []string) Option {
	return func(m *Manager) {
		for _, c := range creators {
			if c != "" {
				m.trusted[c] = true
			}
		}
	}
}

// WithRegistry sets the registry used by Discover.
func WithRegistry(r *Registry) Option {
	return func(m *Manager) {
		m.registry = r
	}
}

// NewManager creates a Manager. A nil scrubber uses the default rules.
func NewManager(packs *store.PackDir, personal engram.Repository, scrubber secrets.Scrubber, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scrubber == nil {
		scrubber = secrets.MustNew(nil)
	}
	m := &Manager{
		packs:    packs,
		personal: personal,
		scrubber: scrubber,
		registry: &Registry{},
		trusted:  make(map[string]bool),
		fetch:    cloneShallow,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Trusted reports whether creator is a trusted publisher.
func (m *Manager) Trusted(creator string) bool {
	return m.trusted[creator]
}

// Installed returns the installed pack manifests keyed by pack ID.
func (m *Manager) Installed(ctx context.Context) (map[string]*engram.Manifest, error) {
	return m.packs.Installed(ctx)
}
