package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"buildsim.ai/internal/persistence/indexdb"
	"buildsim.ai/internal/persistence/snapshot"
	"buildsim.ai/internal/sim/catalogs"
	"buildsim.ai/internal/sim/tuning"
	"buildsim.ai/internal/sim/world"
)

type runtimeIndex interface {
	world.AuditLogger
	Close() error
	UpsertCatalog(cat *catalogs.Catalog, tune tuning.Tuning) error
	RecordSave(path string, snap snapshot.SnapshotV1)
	Sync(ctx context.Context) error
	Stats() indexdb.Stats
	RecentAudits(ctx context.Context, n int) ([]world.AuditEntry, error)
}

func indexPath(dataDir string) string {
	return filepath.Join(dataDir, "index", "buildsim.sqlite")
}

func openRuntimeIndex(dataDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("BUILDSIM_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(indexPath(dataDir))
	default:
		return nil, fmt.Errorf("unsupported BUILDSIM_INDEX_BACKEND: %s", backend)
	}
}
