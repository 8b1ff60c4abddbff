// Package restore overwrites a live database file set with a validated backup, taking a
// safety backup of whatever is there first.
package restore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kebairia/shelfsafe/internal/backup"
	"github.com/kebairia/shelfsafe/internal/integrity"
	"github.com/kebairia/shelfsafe/internal/logger"
)

// DefaultSafetyDirName is created next to the restore target when no safety root is set.
const DefaultSafetyDirName = "safety-backups"

type kindError struct {
	msg  string
	kind string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Kind() string  { return e.kind }

// ErrSafetyBackupFailed means the live file could not be backed up, so it was left alone.
var ErrSafetyBackupFailed error = &kindError{msg: "safety backup failed", kind: "safety_backup_failed"}

// Result describes a completed restore.
type Result struct {
	RestoredPath      string `json:"restored_path"`
	RestoredSizeBytes uint64 `json:"restored_size_bytes"`
	// SafetyBackupPath is empty when nothing existed at the target before the restore.
	SafetyBackupPath string           `json:"safety_backup_path,omitempty"`
	SafetyBackup     *backup.Artifact `json:"safety_backup,omitempty"`
}

// Option lets you override default settings on an Executor.
type Option func(*Executor)

// Executor restores backup artifacts over live database files.
type Executor struct {
	Validator *integrity.Validator
	Backups   *backup.Executor
	// SafetyRoot is the backup root for pre-restore safety backups.
	// Empty means {dir(target)}/safety-backups.
	SafetyRoot string
	Logger     logger.Logger
}

// New returns an Executor with a default validator and backup executor, plus overrides.
func New(opts ...Option) *Executor {
	e := &Executor{Logger: logger.Global()}
	for _, opt := range opts {
		opt(e)
	}
	if e.Validator == nil {
		e.Validator = integrity.New(e.Logger)
	}
	if e.Backups == nil {
		e.Backups = backup.NewExecutor(backup.WithLogger(e.Logger))
	}
	return e
}

// WithSafetyRoot sends safety backups to root instead of next to the target.
func WithSafetyRoot(root string) Option {
	return func(e *Executor) {
		if root != "" {
			e.SafetyRoot = root
		}
	}
}

// WithBackupExecutor overrides the executor used for safety backups.
func WithBackupExecutor(b *backup.Executor) Option {
	return func(e *Executor) {
		if b != nil {
			e.Backups = b
		}
	}
}

// WithValidator overrides the integrity validator.
func WithValidator(v *integrity.Validator) Option {
	return func(e *Executor) {
		if v != nil {
			e.Validator = v
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.Logger = l
		}
	}
}

func (e *Executor) safetyRootFor(targetPath string) string {
	if e.SafetyRoot != "" {
		return e.SafetyRoot
	}
	return filepath.Join(filepath.Dir(targetPath), DefaultSafetyDirName)
}

// Restore validates the artifact at artifactPath, backs up any file already at
// targetPath (with its companions), then replaces the target's main file and mirrors the
// artifact's -wal/-shm companions: those it has are copied, stale ones it lacks are removed.
//
// Nothing at targetPath is touched unless validation and the safety backup both succeed.
// A failure during the overwrite itself is not rolled back; restore the safety backup.
func (e *Executor) Restore(ctx context.Context, artifactPath, targetPath string) (Result, error) {
	log := e.Logger

	if err := e.Validator.Validate(ctx, artifactPath); err != nil {
		log.Error("restore aborted: backup failed validation", "backup", artifactPath, "error", err.Error())
		return Result{}, fmt.Errorf("validate backup: %w", err)
	}

	var res Result
	info, err := os.Stat(targetPath)
	switch {
	case err == nil && info.IsDir():
		return Result{}, fmt.Errorf("%w: target %q is a directory", backup.ErrDestinationNotWritable, targetPath)
	case err == nil:
		safety, err := e.safetyBackup(ctx, targetPath)
		if err != nil {
			log.Error("restore aborted: safety backup failed", "target", targetPath, "error", err.Error())
			return Result{}, err
		}
		res.SafetyBackup = &safety
		res.SafetyBackupPath = safety.MainFilePath
	case errors.Is(err, fs.ErrNotExist):
		log.Info("restore: no live database at target, skipping safety backup", "target", targetPath)
	default:
		return Result{}, fmt.Errorf("%w: stat target %q: %v", ErrSafetyBackupFailed, targetPath, err)
	}

	log.Info("restore started",
		"backup", artifactPath,
		"target", targetPath,
		"safety_backup", res.SafetyBackupPath,
	)
	startTime := time.Now()

	size, err := overwrite(artifactPath, targetPath)
	if err != nil {
		log.Error("restore failed during overwrite",
			"backup", artifactPath,
			"target", targetPath,
			"safety_backup", res.SafetyBackupPath,
			"error", err.Error(),
		)
		return res, err
	}
	res.RestoredPath = targetPath
	res.RestoredSizeBytes = size

	log.Info("restore completed",
		"backup", artifactPath,
		"target", targetPath,
		"size_bytes", size,
		"duration", time.Since(startTime).String(),
	)
	return res, nil
}

// maxSafetyAttempts bounds how many later timestamps a safety backup tries when earlier
// ones are already taken.
const maxSafetyAttempts = 60

// safetyBackup never replaces an earlier safety backup: when the timestamp is taken (two
// restores in one second) it moves on to the next free second.
func (e *Executor) safetyBackup(ctx context.Context, targetPath string) (backup.Artifact, error) {
	target := backup.Target{
		SourcePath:            targetPath,
		LogicalName:           filepath.Base(targetPath),
		IncludeCompanionFiles: true,
	}
	root := e.safetyRootFor(targetPath)
	now := e.Backups.Clock.Now()

	var err error
	for i := 0; i < maxSafetyAttempts; i++ {
		timestamp := backup.FormatTimestamp(now.Add(time.Duration(i) * time.Second))
		var art backup.Artifact
		art, err = e.Backups.Backup(ctx, target, root, timestamp).Artifact()
		if err == nil {
			return art, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			break
		}
		e.Logger.Debug("safety backup name taken, trying next second", "target", targetPath, "timestamp", timestamp)
	}
	return backup.Artifact{}, fmt.Errorf("%w: %w", ErrSafetyBackupFailed, err)
}

// overwrite is the only destructive stage of a restore.
func overwrite(artifactPath, targetPath string) (uint64, error) {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return 0, fmt.Errorf("%w: create %q: %v", backup.ErrDestinationNotWritable, filepath.Dir(targetPath), err)
	}

	if err := replaceFile(artifactPath, targetPath); err != nil {
		return 0, err
	}

	for _, suffix := range []string{backup.WALSuffix, backup.SHMSuffix} {
		src, dst := artifactPath+suffix, targetPath+suffix
		if backup.FileExists(src) {
			if err := replaceFile(src, dst); err != nil {
				return 0, err
			}
			continue
		}
		if err := backup.RemoveIfExists(dst); err != nil {
			return 0, fmt.Errorf("%w: remove stale %q: %v", backup.ErrIOFailure, dst, err)
		}
	}

	info, err := os.Stat(targetPath)
	if err != nil {
		return 0, fmt.Errorf("%w: stat %q: %v", backup.ErrIOFailure, targetPath, err)
	}
	return uint64(info.Size()), nil
}

// replaceFile copies src beside dst and renames it into place, so dst is never left
// half-written.
func replaceFile(src, dst string) error {
	tmp := fmt.Sprintf("%s.restore-%s", dst, uuid.NewString()[:8])
	if _, err := backup.CopyFile(src, tmp); err != nil {
		_ = backup.RemoveIfExists(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = backup.RemoveIfExists(tmp)
		return fmt.Errorf("%w: replace %q: %v", backup.ErrIOFailure, dst, err)
	}
	return nil
}
