package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/folio/internal/engine"
	"github.com/starford/folio/internal/listing"
	"github.com/starford/folio/internal/listingcache"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/project"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/storage"
)

// Runtime is an opened project ready to render.
type Runtime struct {
	Project  *project.Context
	Reader   listing.Reader
	Renderer *render.Service

	registry *listingcache.Registry
}

// Open builds the storage, listing cache, and render service described by
// cfg. The caller closes the runtime.
func Open(cfg *Config, logger *slog.Logger, opts ...render.Option) (*Runtime, error) {
	root, err := filepath.Abs(cfg.Project.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	store, err := storage.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	dbPath := cfg.Cache.DatabasePath(root)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := listingcache.OpenSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("init listing cache: %w", err)
	}
	registry, err := listingcache.NewRegistry(db, cfg.Cache.MaxProjects, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	p := project.New(store, registry.For(root), models.OutputFormat{
		Name:    cfg.Format.Name,
		Sidebar: cfg.Format.Sidebar,
		SiteURL: cfg.Format.SiteURL,
	})
	p.OutputDir = cfg.Project.OutputDir
	p.Extensions = cfg.Project.Extensions

	dispatcher, err := listing.NewDispatcher(store)
	if err != nil {
		_ = registry.Close()
		return nil, fmt.Errorf("init dispatcher: %w", err)
	}
	reader := listing.NewReader(p, logger)
	converter := engine.NewGoldmark(engine.Options{
		Extensions: cfg.Format.Markdown,
		HardWraps:  cfg.Format.HardWraps,
	})

	opts = append([]render.Option{render.WithLogger(logger)}, opts...)
	return &Runtime{
		Project:  p,
		Reader:   reader,
		Renderer: render.NewService(p, reader, dispatcher, converter, opts...),
		registry: registry,
	}, nil
}

// Close releases the listing cache database.
func (r *Runtime) Close() error {
	return r.registry.Close()
}
