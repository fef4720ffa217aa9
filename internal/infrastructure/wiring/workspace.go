package wiring

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/blotter/internal/infrastructure/config"
	"github.com/felixgeelhaar/blotter/pkg/application"
	"github.com/felixgeelhaar/blotter/pkg/domain/store"
	"github.com/felixgeelhaar/blotter/pkg/storage"
	"github.com/felixgeelhaar/blotter/pkg/storage/postgres"
	"github.com/felixgeelhaar/blotter/pkg/storage/sqlite"
)

// Workspace bundles the file-backed infrastructure under .blotter.
type Workspace struct {
	Root     string
	Repo     *storage.FilesystemRepository
	Config   *config.Config
	Location *time.Location
	Audit    *application.AuditService
}

// NewWorkspace loads config.yaml for root. The workspace need not be
// initialized yet; a missing config yields the defaults.
func NewWorkspace(root string) (*Workspace, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	repo := storage.NewFilesystemRepository(root)
	return &Workspace{
		Root:     root,
		Repo:     repo,
		Config:   cfg,
		Location: loc,
		Audit:    application.NewAuditService(repo),
	}, nil
}

// OpenStore opens the Data Store selected by store.driver.
func (w *Workspace) OpenStore(ctx context.Context) (store.Repository, error) {
	switch w.Config.Store.Driver {
	case "", config.DriverSQLite:
		return sqlite.Open(w.Config.DatabasePath(w.Root))
	case config.DriverPostgres:
		return postgres.Open(ctx, w.Config.Store.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", w.Config.Store.Driver)
	}
}
