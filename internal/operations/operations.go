package operations

import (
	"context"
	"fmt"

	"github.com/kebairia/shelfsafe/internal/backup"
	"github.com/kebairia/shelfsafe/internal/catalog"
	"github.com/kebairia/shelfsafe/internal/config"
	"github.com/kebairia/shelfsafe/internal/database"
	"github.com/kebairia/shelfsafe/internal/integrity"
	"github.com/kebairia/shelfsafe/internal/logger"
	"github.com/kebairia/shelfsafe/internal/restore"
	"github.com/kebairia/shelfsafe/internal/retention"
)

// OperationManager is the entry point for backup, restore and maintenance operations.
// Calls are synchronous; callers serialize operations against the same files.
type OperationManager struct {
	cfg       config.Config
	clock     backup.Clock
	log       logger.Logger
	executor  *backup.Executor
	validator *integrity.Validator
	retention *retention.Manager
	catalog   *catalog.Catalog
	restorer  *restore.Executor
	databases database.Set
}

// Option lets you override default settings on an OperationManager.
type Option func(*OperationManager)

// WithClock overrides the time source for timestamps and date folders.
func WithClock(c backup.Clock) Option {
	return func(om *OperationManager) {
		if c != nil {
			om.clock = c
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l logger.Logger) Option {
	return func(om *OperationManager) {
		if l != nil {
			om.log = l
		}
	}
}

// NewOperationManager loads, parses, and validates the YAML config at configPath.
func NewOperationManager(configPath string, opts ...Option) (*OperationManager, error) {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// New builds an OperationManager around an already loaded configuration.
func New(cfg config.Config, opts ...Option) (*OperationManager, error) {
	om := &OperationManager{
		cfg:   cfg,
		clock: backup.SystemClock{},
		log:   logger.Global(),
	}
	for _, opt := range opts {
		opt(om)
	}

	om.executor = backup.NewExecutor(backup.WithClock(om.clock), backup.WithLogger(om.log))
	om.validator = integrity.New(om.log)
	om.retention = retention.New(om.log)
	om.catalog = catalog.New(om.log)
	om.restorer = restore.New(
		restore.WithLogger(om.log),
		restore.WithValidator(om.validator),
		restore.WithBackupExecutor(om.executor),
		restore.WithSafetyRoot(cfg.Backup.SafetyDirectory),
	)

	dbs, err := database.InitializeDatabases(cfg, om.executor, om.log)
	if err != nil {
		return nil, fmt.Errorf("initialize databases: %w", err)
	}
	om.databases = dbs
	return om, nil
}

// Config returns the configuration the manager was built with.
func (om *OperationManager) Config() config.Config { return om.cfg }

// Databases returns the configured databases.
func (om *OperationManager) Databases() database.Set { return om.databases }

// CleanupOldBackups keeps the newest maxFolders date folders under root.
func (om *OperationManager) CleanupOldBackups(root, logicalName string, maxFolders int) (int, error) {
	return om.retention.Cleanup(root, logicalName, maxFolders)
}

// ListBackups returns every artifact under root, newest first.
func (om *OperationManager) ListBackups(root string) ([]backup.Artifact, error) {
	return om.catalog.List(root)
}

// ValidateBackup returns nil if path is a sound database file.
func (om *OperationManager) ValidateBackup(ctx context.Context, path string) error {
	return om.validator.Validate(ctx, path)
}
