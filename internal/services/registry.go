package services

import (
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/engramd/internal/config"
	"github.com/fyrsmithlabs/engramd/internal/engram"
	"github.com/fyrsmithlabs/engramd/internal/hints"
	"github.com/fyrsmithlabs/engramd/internal/modules"
	"github.com/fyrsmithlabs/engramd/internal/notes"
	"github.com/fyrsmithlabs/engramd/internal/packs"
	"github.com/fyrsmithlabs/engramd/internal/secrets"
	"github.com/fyrsmithlabs/engramd/internal/store"
)

// Registry provides access to all engramd services.
// Use accessor methods to retrieve individual services.
type Registry interface {
	Engrams() *engram.Service
	Notes() *notes.Store
	Packs() *packs.Manager
	Modules() *modules.Catalog
	Scrubber() secrets.Scrubber
	Layout() *store.Layout
	Hints() *hints.Builder
	Config() *config.Config
	Version() string

	// UpdateConfig applies a reloaded configuration to the running services.
	UpdateConfig(cfg *config.Config)
}

// Options configures the registry with service instances.
type Options struct {
	Engrams  *engram.Service
	Notes    *notes.Store
	Packs    *packs.Manager
	Modules  *modules.Catalog
	Scrubber secrets.Scrubber
	Layout   *store.Layout
	Config   *config.Config
	Version  string
}

// registry is the concrete implementation of Registry.
type registry struct {
	engrams  *engram.Service
	notes    *notes.Store
	packs    *packs.Manager
	modules  *modules.Catalog
	scrubber secrets.Scrubber
	layout   *store.Layout
	version  string

	mu    sync.RWMutex
	cfg   *config.Config
	hints *hints.Builder
}

// NewRegistry creates a new service registry. A nil Config uses the defaults.
func NewRegistry(opts Options) Registry {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	return &registry{
		engrams:  opts.Engrams,
		notes:    opts.Notes,
		packs:    opts.Packs,
		modules:  opts.Modules,
		scrubber: opts.Scrubber,
		layout:   opts.Layout,
		version:  opts.Version,
		cfg:      cfg,
		hints:    hints.NewBuilder(cfg.Hints.Enabled),
	}
}

func (r *registry) Engrams() *engram.Service   { return r.engrams }
func (r *registry) Notes() *notes.Store        { return r.notes }
func (r *registry) Packs() *packs.Manager      { return r.packs }
func (r *registry) Modules() *modules.Catalog  { return r.modules }
func (r *registry) Scrubber() secrets.Scrubber { return r.scrubber }
func (r *registry) Layout() *store.Layout      { return r.layout }
func (r *registry) Version() string            { return r.version }

func (r *registry) Hints() *hints.Builder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hints
}

func (r *registry) Config() *config.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// UpdateConfig swaps the engine settings, search settings and hint gate.
// Storage paths and pack trust are fixed for the life of the registry.
func (r *registry) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	r.mu.Lock()
	r.cfg = cfg
	r.hints = hints.NewBuilder(cfg.Hints.Enabled)
	r.mu.Unlock()

	if r.engrams != nil {
		r.engrams.SetConfig(cfg.EngineConfig())
	}
}

// Build creates every service for layout and returns them as a Registry.
func Build(layout *store.Layout, cfg *config.Config, logger *zap.Logger, version string) (Registry, error) {
	if layout == nil {
		return nil, fmt.Errorf("storage layout cannot be nil")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	scrubCfg := cfg.ScrubberConfig()
	allow, err := secrets.LoadAllowlist(filepath.Dir(layout.ConfigPath))
	if err != nil {
		return nil, err
	}
	scrubCfg.AllowList = append(scrubCfg.AllowList, allow...)

	scrubber, err := secrets.New(scrubCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create secrets scrubber: %w", err)
	}

	personal := store.NewEngramFile(engram.SourcePersonal, layout.EngramsPath, logger.Named("store"))
	packDir := store.NewPackDir(layout.PacksPath, logger.Named("store"))

	engrams, err := engram.NewService(personal, packDir, cfg.EngineConfig(), logger.Named("engram"))
	if err != nil {
		return nil, fmt.Errorf("failed to create engram service: %w", err)
	}

	catalog, err := packs.LoadRegistry(cfg.Packs.RegistryPath, registryEntries(cfg))
	if err != nil {
		return nil, err
	}
	packManager := packs.NewManager(packDir, personal, scrubber, logger.Named("packs"),
		packs.WithRegistry(catalog),
		packs.WithTrustedPublishers(cfg.Packs.TrustedPublishers),
	)

	return NewRegistry(Options{
		Engrams:  engrams,
		Notes:    notes.NewStore(layout.JournalPath, layout.KnowledgePath, logger.Named("notes")),
		Packs:    packManager,
		Modules:  modules.NewCatalog(layout.BasePath, layout.ModuleRoots(), logger.Named("modules")),
		Scrubber: scrubber,
		Layout:   layout,
		Config:   cfg,
		Version:  version,
	}), nil
}

func registryEntries(cfg *config.Config) []packs.Entry {
	entries := make([]packs.Entry, 0, len(cfg.Packs.Registry))
	for _, e := range cfg.Packs.Registry {
		entries = append(entries, packs.Entry{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Version:     e.Version,
			Source:      e.Source,
			Tags:        e.Tags,
			Creator:     e.Creator,
		})
	}
	return entries
}
