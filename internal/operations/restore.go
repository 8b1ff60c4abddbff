package operations

import (
	"context"
	"fmt"

	"github.com/kebairia/shelfsafe/internal/backup"
	"github.com/kebairia/shelfsafe/internal/database"
	"github.com/kebairia/shelfsafe/internal/restore"
)

// RestoreBackup validates artifactPath and restores it over targetPath, taking a safety
// backup of the live file set first.
func (om *OperationManager) RestoreBackup(
	ctx context.Context,
	artifactPath, targetPath string,
) (restore.Result, error) {
	return om.restorer.Restore(ctx, artifactPath, targetPath)
}

// RestoreDatabase restores artifactPath over one configured database.
func (om *OperationManager) RestoreDatabase(
	ctx context.Context,
	db database.Database,
	artifactPath string,
) (restore.Result, error) {
	return db.Restore(ctx, artifactPath)
}

// RestoreLatest restores the newest backup of the configured database called name.
func (om *OperationManager) RestoreLatest(ctx context.Context, name string) (restore.Result, error) {
	db, ok := om.databases.Lookup(name)
	if !ok {
		return restore.Result{}, fmt.Errorf("%w: no configured database named %q", database.ErrRestoreFailed, name)
	}

	art, found, err := om.catalog.Latest(om.cfg.Backup.OutputDirectory, db.GetName())
	if err != nil {
		return restore.Result{}, fmt.Errorf("%w: list backups: %v", database.ErrRestoreFailed, err)
	}
	if !found {
		return restore.Result{}, fmt.Errorf("%w: no backups of %q under %q",
			backup.ErrSourceNotFound, name, om.cfg.Backup.OutputDirectory)
	}

	om.log.Info("restoring latest backup", "database", name, "path", art.MainFilePath)
	return om.RestoreDatabase(ctx, db, art.MainFilePath)
}
