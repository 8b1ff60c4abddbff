package backup

import (
	"fmt"
	"regexp"
	"time"
)

const (
	// TimestampLayout formats artifact timestamps, e.g. 20250424_210000.
	TimestampLayout = "20060102_150405"
	// DateFolderLayout formats the per-day folder under the backup root.
	DateFolderLayout = "2006-01-02"

	WALSuffix = "-wal"
	SHMSuffix = "-shm"

	artifactMarker = ".backup-"
)

var (
	dateFolderRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	artifactRe   = regexp.MustCompile(`^(.+)\.backup-(\d{8}_\d{6})$`)
)

// ArtifactName is the main file name for logicalName at timestamp.
func ArtifactName(logicalName, timestamp string) string {
	return fmt.Sprintf("%s%s%s", logicalName, artifactMarker, timestamp)
}

// ParseArtifactName splits a main artifact file name into its logical name and timestamp.
// Companion files and anything else that does not match return ok == false.
func ParseArtifactName(name string) (logicalName, timestamp string, ok bool) {
	m := artifactRe.FindStringSubmatch(name)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// IsDateFolderName reports whether name is exactly YYYY-MM-DD.
func IsDateFolderName(name string) bool {
	return dateFolderRe.MatchString(name)
}

// FormatTimestamp renders t as an artifact timestamp.
func FormatTimestamp(t time.Time) string { return t.Format(TimestampLayout) }

// FormatDateFolder renders t's local calendar date as a folder name.
func FormatDateFolder(t time.Time) string { return t.Format(DateFolderLayout) }
