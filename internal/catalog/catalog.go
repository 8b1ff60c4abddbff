// Package catalog enumerates the backups stored under a backup root.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/kebairia/shelfsafe/internal/backup"
	"github.com/kebairia/shelfsafe/internal/logger"
	"github.com/kebairia/shelfsafe/internal/retention"
)

// Catalog scans a backup root on every call; it keeps no state between calls.
type Catalog struct {
	Logger logger.Logger
}

// New returns a Catalog logging through log; a nil log uses the global logger.
func New(log logger.Logger) *Catalog {
	if log == nil {
		log = logger.Global()
	}
	return &Catalog{Logger: log}
}

// List returns every backup artifact under root, newest timestamp first across all
// date folders. Companion files are folded into their artifact, and names that do not
// parse and date folders that cannot be read are skipped. A missing or empty root yields
// an empty slice; only an unreadable root is an error.
func (c *Catalog) List(root string) ([]backup.Artifact, error) {
	folders, err := retention.DateFolders(root)
	if err != nil {
		return nil, err
	}

	artifacts := []backup.Artifact{}
	for _, name := range folders {
		folder := filepath.Join(root, name)
		found, err := c.scanFolder(folder)
		if err != nil {
			c.Logger.Warn("catalog: skipping unreadable folder", "folder", folder, "error", err.Error())
			continue
		}
		artifacts = append(artifacts, found...)
	}

	sort.SliceStable(artifacts, func(i, j int) bool {
		if artifacts[i].Timestamp != artifacts[j].Timestamp {
			return artifacts[i].Timestamp > artifacts[j].Timestamp
		}
		return artifacts[i].LogicalName < artifacts[j].LogicalName
	})
	return artifacts, nil
}

func (c *Catalog) scanFolder(folder string) ([]backup.Artifact, error) {
	entries, err := os.ReadDir(folder)
	if errors.Is(err, fs.ErrNotExist) {
		// Removed between listing the root and reading it.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup folder %q: %w", folder, err)
	}

	var artifacts []backup.Artifact
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name, ts, ok := backup.ParseArtifactName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			c.Logger.Debug("catalog: skipping unreadable entry", "path", filepath.Join(folder, entry.Name()), "error", err.Error())
			continue
		}
		a := backup.Artifact{
			LogicalName:  name,
			Timestamp:    ts,
			Folder:       folder,
			MainFilePath: filepath.Join(folder, entry.Name()),
			SizeBytes:    uint64(info.Size()),
		}
		a.HasWAL = backup.FileExists(a.WALPath())
		a.HasSHM = backup.FileExists(a.SHMPath())
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}

// Latest returns the newest artifact for logicalName under root.
func (c *Catalog) Latest(root, logicalName string) (backup.Artifact, bool, error) {
	all, err := c.List(root)
	if err != nil {
		return backup.Artifact{}, false, err
	}
	for _, a := range all {
		if a.LogicalName == logicalName {
			return a, true, nil
		}
	}
	return backup.Artifact{}, false, nil
}
