package operations

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/kebairia/shelfsafe/internal/backup"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ManifestPrefix starts every run manifest's file name.
const ManifestPrefix = "manifest-"

// Record describes one database's part in a backup run.
type Record struct {
	Database    string        `json:"database"`
	Engine      string        `json:"engine"`
	SourcePath  string        `json:"source_path"`
	FilePath    string        `json:"file_path,omitempty"`
	Status      string        `json:"status"`
	ErrorKind   string        `json:"error_kind,omitempty"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration_ns"`
	SizeBytes   uint64        `json:"size_bytes"`
	HasWAL      bool          `json:"has_wal"`
	HasSHM      bool          `json:"has_shm"`
	SHA256      string        `json:"sha256,omitempty"`
}

// Manifest is the record of one coordinated backup run, stored next to its artifacts.
type Manifest struct {
	RunID     string    `json:"run_id"`
	RunAt     time.Time `json:"run_at"`
	Timestamp string    `json:"timestamp"`
	Backups   []Record  `json:"backups"`
}

// ManifestName returns the file name of the manifest for a run at timestamp.
func ManifestName(timestamp string) string {
	return ManifestPrefix + timestamp + ".json"
}

// Write stores the manifest as indented JSON in dirPath.
func (m *Manifest) Write(dirPath string) error {
	filePath := filepath.Join(dirPath, ManifestName(m.Timestamp))

	if err := backup.EnsureDirectoryExist(dirPath); err != nil {
		return fmt.Errorf("ensure manifest directory %q: %w", dirPath, err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest JSON: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("write manifest file %q: %w", filePath, err)
	}
	return nil
}

// LoadManifest reads a manifest written by Manifest.Write.
func LoadManifest(filePath string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filePath)
	if err != nil {
		return m, fmt.Errorf("couldn't open manifest file %q: %w", filePath, err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode manifest JSON: %w", err)
	}
	return m, nil
}
