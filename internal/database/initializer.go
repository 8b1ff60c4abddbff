package database

import (
	"fmt"

	"github.com/kebairia/shelfsafe/internal/backup"
	"github.com/kebairia/shelfsafe/internal/config"
	"github.com/kebairia/shelfsafe/internal/logger"
)

// Set is the configured databases in backup order. Secondary is nil when disabled.
type Set struct {
	Primary   Database
	Secondary Database
}

// All returns the configured databases, primary first.
func (s Set) All() []Database {
	dbs := []Database{s.Primary}
	if s.Secondary != nil {
		dbs = append(dbs, s.Secondary)
	}
	return dbs
}

// Lookup returns the configured database with the given logical name.
func (s Set) Lookup(name string) (Database, bool) {
	for _, db := range s.All() {
		if db.GetName() == name {
			return db, true
		}
	}
	return nil, false
}

// InitializeDatabases builds the primary database and, when enabled with a path, the
// secondary one. Both share executor so their timestamps come from one clock.
func InitializeDatabases(cfg config.Config, executor *backup.Executor, log logger.Logger) (Set, error) {
	primary, err := newFromConfig(cfg, cfg.Databases.Primary, executor, log)
	if err != nil {
		return Set{}, fmt.Errorf("initialize primary database: %w", err)
	}
	set := Set{Primary: primary}

	if !cfg.SecondaryEnabled() {
		return set, nil
	}
	secondary, err := newFromConfig(cfg, cfg.Databases.Secondary, executor, log)
	if err != nil {
		return Set{}, fmt.Errorf("initialize secondary database: %w", err)
	}
	set.Secondary = secondary
	return set, nil
}

func newFromConfig(
	cfg config.Config,
	db config.DatabaseConfig,
	executor *backup.Executor,
	log logger.Logger,
) (*SQLite, error) {
	opts := []SQLiteOption{
		WithSQLitePath(db.Path),
		WithSQLiteName(db.LogicalName()),
		WithSQLiteOutputDir(cfg.Backup.OutputDirectory),
		WithSQLiteCompanionFiles(cfg.Backup.IncludeCompanionFiles),
		WithSQLiteExecutor(executor),
		WithSQLiteLogger(log),
	}
	return NewSQLite(cfg, opts...)
}
