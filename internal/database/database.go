package database

import (
	"context"
	"errors"

	"github.com/kebairia/shelfsafe/internal/backup"
	"github.com/kebairia/shelfsafe/internal/restore"
)

var (
	ErrBackupFailed  = errors.New("backup failed")
	ErrRestoreFailed = errors.New("restore failed")
)

// Database is one backup-able database file.
type Database interface {
	GetName() string
	GetEngine() string
	// GetSourcePath is the live database file.
	GetSourcePath() string
	// GetPath is the backup root this database's artifacts are written under.
	GetPath() string
	Backup(ctx context.Context, timestamp string) backup.Result
	Restore(ctx context.Context, artifactPath string) (restore.Result, error)
}
