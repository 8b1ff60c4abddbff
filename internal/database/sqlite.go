package database

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kebairia/shelfsafe/internal/backup"
	"github.com/kebairia/shelfsafe/internal/config"
	"github.com/kebairia/shelfsafe/internal/logger"
	"github.com/kebairia/shelfsafe/internal/restore"
)

const EngineSQLite = "sqlite"

// SQLiteOption lets you override default settings on a SQLite.
type SQLiteOption func(*SQLite)

// SQLite holds configuration for backing up and restoring one SQLite database file.
type SQLite struct {
	Name                  string
	SourcePath            string
	OutputDir             string
	IncludeCompanionFiles bool
	Executor              *backup.Executor
	Restorer              *restore.Executor
	Logger                logger.Logger
}

// NewSQLite returns a SQLite configured from cfg's backup section plus any overrides.
func NewSQLite(cfg config.Config, opts ...SQLiteOption) (*SQLite, error) {
	s := &SQLite{
		OutputDir:             cfg.Backup.OutputDirectory,
		IncludeCompanionFiles: cfg.Backup.IncludeCompanionFiles,
		Logger:                logger.Global(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.SourcePath == "" {
		return nil, fmt.Errorf("sqlite database %q: no source path", s.Name)
	}
	if s.Name == "" {
		s.Name = filepath.Base(s.SourcePath)
	}
	if s.Executor == nil {
		s.Executor = backup.NewExecutor(backup.WithLogger(s.Logger))
	}
	if s.Restorer == nil {
		s.Restorer = restore.New(
			restore.WithLogger(s.Logger),
			restore.WithBackupExecutor(s.Executor),
			restore.WithSafetyRoot(cfg.Backup.SafetyDirectory),
		)
	}
	return s, nil
}

// WithSQLiteName overrides the logical name used in artifact file names.
func WithSQLiteName(name string) SQLiteOption {
	return func(s *SQLite) {
		if name != "" {
			s.Name = name
		}
	}
}

// WithSQLitePath sets the live database file.
func WithSQLitePath(path string) SQLiteOption {
	return func(s *SQLite) {
		if path != "" {
			s.SourcePath = path
		}
	}
}

// WithSQLiteOutputDir overrides where backups are written.
func WithSQLiteOutputDir(dir string) SQLiteOption {
	return func(s *SQLite) {
		if dir != "" {
			s.OutputDir = dir
		}
	}
}

// WithSQLiteCompanionFiles overrides whether -wal/-shm files are captured.
func WithSQLiteCompanionFiles(include bool) SQLiteOption {
	return func(s *SQLite) {
		s.IncludeCompanionFiles = include
	}
}

// WithSQLiteExecutor shares a backup executor (and so its clock) across databases.
func WithSQLiteExecutor(e *backup.Executor) SQLiteOption {
	return func(s *SQLite) {
		if e != nil {
			s.Executor = e
		}
	}
}

// WithSQLiteRestorer overrides the restore executor.
func WithSQLiteRestorer(r *restore.Executor) SQLiteOption {
	return func(s *SQLite) {
		if r != nil {
			s.Restorer = r
		}
	}
}

// WithSQLiteLogger overrides the logger.
func WithSQLiteLogger(l logger.Logger) SQLiteOption {
	return func(s *SQLite) {
		if l != nil {
			s.Logger = l
		}
	}
}

// Target describes this database to the backup executor.
func (s *SQLite) Target() backup.Target {
	return backup.Target{
		SourcePath:            s.SourcePath,
		LogicalName:           s.Name,
		IncludeCompanionFiles: s.IncludeCompanionFiles,
	}
}

// Backup copies the database file set under OutputDir. An empty timestamp is generated.
func (s *SQLite) Backup(ctx context.Context, timestamp string) backup.Result {
	return s.Executor.Backup(ctx, s.Target(), s.OutputDir, timestamp)
}

// Restore replaces the live database with the artifact at artifactPath.
func (s *SQLite) Restore(ctx context.Context, artifactPath string) (restore.Result, error) {
	res, err := s.Restorer.Restore(ctx, artifactPath, s.SourcePath)
	if err != nil {
		return res, fmt.Errorf("%w for %q: %w", ErrRestoreFailed, s.Name, err)
	}
	return res, nil
}

func (s *SQLite) GetName() string { return s.Name }

// GetEngine returns the engine name.
func (s *SQLite) GetEngine() string { return EngineSQLite }

// GetSourcePath returns the live database file.
func (s *SQLite) GetSourcePath() string { return s.SourcePath }

// GetPath returns the base backup path.
func (s *SQLite) GetPath() string { return s.OutputDir }
