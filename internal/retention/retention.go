// Package retention removes whole date folders beyond a configured count.
package retention

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/kebairia/shelfsafe/internal/backup"
	"github.com/kebairia/shelfsafe/internal/logger"
)

// ErrInvalidRetention is returned when fewer than one folder would be kept.
var ErrInvalidRetention = errors.New("invalid retention count")

// Manager applies folder-granular retention to a backup root.
type Manager struct {
	Logger logger.Logger
}

// New returns a Manager logging through log; a nil log uses the global logger.
func New(log logger.Logger) *Manager {
	if log == nil {
		log = logger.Global()
	}
	return &Manager{Logger: log}
}

// DateFolders lists the YYYY-MM-DD directories directly under root, newest first.
// A missing root yields no folders.
func DateFolders(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup root %q: %w", root, err)
	}

	var folders []string
	for _, entry := range entries {
		if entry.IsDir() && backup.IsDateFolderName(entry.Name()) {
			folders = append(folders, entry.Name())
		}
	}
	// Zero-padded ISO dates sort chronologically as strings.
	sort.Sort(sort.Reverse(sort.StringSlice(folders)))
	return folders, nil
}

// Cleanup keeps the newest maxFolders date folders under root and recursively deletes
// the rest, with every database's backups and companions inside them. logicalName only
// labels the run in logs: retention is per folder, not per database.
//
// It returns how many folders were actually removed. A folder that fails to delete is
// logged and skipped.
func (m *Manager) Cleanup(root, logicalName string, maxFolders int) (int, error) {
	if maxFolders < 1 {
		return 0, fmt.Errorf("%w: must keep at least one folder, got %d", ErrInvalidRetention, maxFolders)
	}

	folders, err := DateFolders(root)
	if err != nil {
		return 0, err
	}
	if len(folders) <= maxFolders {
		m.Logger.Debug("retention: nothing to delete",
			"database", logicalName,
			"root", root,
			"folders", len(folders),
			"keep", maxFolders,
		)
		return 0, nil
	}

	deleted := 0
	for _, name := range folders[maxFolders:] {
		path := filepath.Join(root, name)
		if err := os.RemoveAll(path); err != nil {
			m.Logger.Warn("retention: failed to delete folder",
				"database", logicalName,
				"folder", path,
				"error", err.Error(),
			)
			continue
		}
		deleted++
		m.Logger.Info("retention: deleted folder", "database", logicalName, "folder", path)
	}

	m.Logger.Info("retention completed",
		"database", logicalName,
		"root", root,
		"deleted", deleted,
		"kept", maxFolders,
	)
	return deleted, nil
}
