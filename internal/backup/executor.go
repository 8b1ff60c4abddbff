package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kebairia/shelfsafe/internal/logger"
)

// ExecutorOption lets you override default settings on an Executor.
type ExecutorOption func(*Executor)

// Executor copies one database's file set into a date folder under a backup root.
type Executor struct {
	Clock  Clock
	Logger logger.Logger
}

// NewExecutor returns an Executor using the system clock and the global logger,
// plus any overrides.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		Clock:  SystemClock{},
		Logger: logger.Global(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithClock overrides the time source used for timestamps and date folders.
func WithClock(c Clock) ExecutorOption {
	return func(e *Executor) {
		if c != nil {
			e.Clock = c
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l logger.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.Logger = l
		}
	}
}

// Backup copies target into {destinationRoot}/{YYYY-MM-DD}/{name}.backup-{timestamp},
// with -wal and -shm companions when requested and present. An empty timestamp is
// generated from the clock; a non-empty one is used verbatim. If the artifact already
// exists the backup fails with ErrDestinationNotWritable (wrapping fs.ErrExist) and the
// existing files are left alone.
//
// Source and destination checks all run before the first byte is written. The copy is
// not coordinated with a concurrently writing database engine, so a live WAL-mode
// database may be captured with its main file and WAL out of step.
func (e *Executor) Backup(ctx context.Context, target Target, destinationRoot, timestamp string) Result {
	log := e.Logger
	if err := ctx.Err(); err != nil {
		return Failed(fmt.Errorf("%w: %v", ErrIOFailure, err))
	}

	name := target.LogicalName
	if name == "" {
		name = filepath.Base(target.SourcePath)
	}

	if err := checkSource(target.SourcePath); err != nil {
		log.Error("backup failed", "database", name, "source", target.SourcePath, "error", err.Error())
		return Failed(err)
	}

	now := e.Clock.Now()
	if timestamp == "" {
		timestamp = FormatTimestamp(now)
	}
	folder := filepath.Join(destinationRoot, FormatDateFolder(now))
	if err := prepareFolder(folder); err != nil {
		log.Error("backup failed", "database", name, "folder", folder, "error", err.Error())
		return Failed(err)
	}

	mainPath := filepath.Join(folder, ArtifactName(name, timestamp))
	log.Info("backup started",
		"database", name,
		"source", target.SourcePath,
		"path", mainPath,
	)

	startTime := time.Now()
	// An artifact is never overwritten, even by a backup in the same second.
	if _, err := CopyFileExclusive(target.SourcePath, mainPath); err != nil {
		log.Error("backup failed", "database", name, "path", mainPath, "error", err.Error())
		return Failed(err)
	}

	artifact := Artifact{
		LogicalName:  name,
		Timestamp:    timestamp,
		Folder:       folder,
		MainFilePath: mainPath,
	}

	if target.IncludeCompanionFiles {
		var err error
		if artifact.HasWAL, err = copyCompanion(target.SourcePath+WALSuffix, artifact.WALPath()); err != nil {
			log.Error("backup failed", "database", name, "path", artifact.WALPath(), "error", err.Error())
			return Failed(err)
		}
		if artifact.HasSHM, err = copyCompanion(target.SourcePath+SHMSuffix, artifact.SHMPath()); err != nil {
			log.Error("backup failed", "database", name, "path", artifact.SHMPath(), "error", err.Error())
			return Failed(err)
		}
	}

	// Size of what was captured, not of the source at this moment.
	info, err := os.Stat(mainPath)
	if err != nil {
		return Failed(fmt.Errorf("%w: stat %q: %v", ErrIOFailure, mainPath, err))
	}
	artifact.SizeBytes = uint64(info.Size())

	log.Info("backup completed",
		"database", name,
		"path", mainPath,
		"wal", artifact.HasWAL,
		"shm", artifact.HasSHM,
		"size_bytes", artifact.SizeBytes,
		"duration", time.Since(startTime).String(),
	)
	return Succeeded(artifact)
}

func checkSource(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %q", ErrSourceNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("%w: stat %q: %v", ErrSourceUnreadable, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %q is a directory", ErrSourceUnreadable, path)
	}
	if err := checkReadable(path); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrSourceUnreadable, path, err)
	}
	return nil
}

func prepareFolder(folder string) error {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("%w: create %q: %v", ErrDestinationNotWritable, folder, err)
	}
	if err := checkWritable(folder); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrDestinationNotWritable, folder, err)
	}
	return nil
}

// copyCompanion copies src to dst if src exists. A companion that vanishes between the
// existence check and the copy (e.g. a checkpoint removed the WAL) counts as absent.
// An absent companion never leaves an older dst behind.
func copyCompanion(src, dst string) (bool, error) {
	if !FileExists(src) {
		if err := RemoveIfExists(dst); err != nil {
			return false, fmt.Errorf("%w: remove stale %q: %v", ErrIOFailure, dst, err)
		}
		return false, nil
	}
	if _, err := CopyFile(src, dst); err != nil {
		if !FileExists(src) {
			_ = RemoveIfExists(dst)
			return false, nil
		}
		return false, err
	}
	return true, nil
}
