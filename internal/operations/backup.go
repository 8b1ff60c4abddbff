package operations

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kebairia/shelfsafe/internal/backup"
	"github.com/kebairia/shelfsafe/internal/database"
)

// Outcome is the result of one coordinated backup run. Secondary is nil when the
// secondary database is disabled, unconfigured, or skipped after a primary failure.
type Outcome struct {
	Timestamp string
	Primary   backup.Result
	Secondary *backup.Result
	// Deleted counts the date folders removed by retention after the run.
	Deleted int
}

// CreateBackup backs up a single target under root. An empty timestamp is generated.
func (om *OperationManager) CreateBackup(
	ctx context.Context,
	target backup.Target,
	root, timestamp string,
) backup.Result {
	return om.executor.Backup(ctx, target, root, timestamp)
}

// CreateBackups runs BackupAll for the configured databases.
func (om *OperationManager) CreateBackups(ctx context.Context) Outcome {
	return om.BackupAll(ctx)
}

// BackupDatabase runs a single backup against one Database and returns both the result
// and the manifest record describing it.
func (om *OperationManager) BackupDatabase(
	ctx context.Context,
	db database.Database,
	timestamp string,
) (backup.Result, Record) {
	start := time.Now()
	record := Record{
		Database:   db.GetName(),
		Engine:     db.GetEngine(),
		SourcePath: db.GetSourcePath(),
		StartedAt:  start,
	}

	result := db.Backup(ctx, timestamp)
	record.CompletedAt = time.Now()
	record.Duration = record.CompletedAt.Sub(start)

	artifact, err := result.Artifact()
	if err != nil {
		record.Status = StatusFailed
		record.ErrorKind = backup.KindOf(err)
		record.Error = err.Error()
		return result, record
	}

	record.Status = StatusSuccess
	record.FilePath = artifact.MainFilePath
	record.SizeBytes = artifact.SizeBytes
	record.HasWAL = artifact.HasWAL
	record.HasSHM = artifact.HasSHM
	if sum, err := checksumFile(artifact.MainFilePath); err == nil {
		record.SHA256 = sum
	} else {
		om.log.Warn("checksum failed", "database", db.GetName(), "path", artifact.MainFilePath, "error", err.Error())
	}
	return result, record
}

// BackupAll backs up the primary database and then, best effort, the secondary one,
// both under one shared timestamp. A failed primary skips the secondary. Retention runs
// afterwards for every configured database, and a manifest of the run is written into
// the date folder.
func (om *OperationManager) BackupAll(ctx context.Context) Outcome {
	now := om.clock.Now()
	timestamp := backup.FormatTimestamp(now)
	out := Outcome{Timestamp: timestamp}
	manifest := Manifest{
		RunID:     uuid.NewString(),
		RunAt:     now,
		Timestamp: timestamp,
	}

	primary := om.databases.Primary
	result, record := om.BackupDatabase(ctx, primary, timestamp)
	out.Primary = result
	manifest.Backups = append(manifest.Backups, record)

	switch {
	case !result.Success():
		om.log.Error("primary backup failed, skipping secondary",
			"database", primary.GetName(),
			"error", result.Err().Error(),
		)
	case om.databases.Secondary == nil:
		om.log.Debug("secondary backup not configured")
	default:
		secondary := om.databases.Secondary
		secResult, secRecord := om.BackupDatabase(ctx, secondary, timestamp)
		out.Secondary = &secResult
		manifest.Backups = append(manifest.Backups, secRecord)
		if !secResult.Success() {
			om.log.Warn("secondary backup failed",
				"database", secondary.GetName(),
				"error", secResult.Err().Error(),
			)
		}
	}

	if artifact, err := result.Artifact(); err == nil {
		if err := manifest.Write(artifact.Folder); err != nil {
			om.log.Warn("write manifest failed", "folder", artifact.Folder, "error", err.Error())
		}
	}

	root := om.cfg.Backup.OutputDirectory
	for _, db := range om.databases.All() {
		deleted, err := om.retention.Cleanup(root, db.GetName(), om.cfg.Retention.KeepLast)
		if err != nil {
			om.log.Error("retention failed", "database", db.GetName(), "error", err.Error())
			continue
		}
		out.Deleted += deleted
	}

	return out
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %q: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
