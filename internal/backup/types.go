package backup

import (
	"errors"
	"time"
)

// Target identifies one database file to back up.
type Target struct {
	SourcePath            string
	LogicalName           string
	IncludeCompanionFiles bool
}

// Artifact is one completed backup on disk.
type Artifact struct {
	LogicalName  string `json:"logical_name"`
	Timestamp    string `json:"timestamp"`
	Folder       string `json:"folder"`
	MainFilePath string `json:"main_file_path"`
	HasWAL       bool   `json:"has_wal"`
	HasSHM       bool   `json:"has_shm"`
	SizeBytes    uint64 `json:"size_bytes"`
}

// WALPath is the path of the artifact's write-ahead-log companion, whether or not it exists.
func (a Artifact) WALPath() string { return a.MainFilePath + WALSuffix }

// SHMPath is the path of the artifact's shared-memory companion, whether or not it exists.
func (a Artifact) SHMPath() string { return a.MainFilePath + SHMSuffix }

// Files lists the main file followed by whichever companions the artifact has.
func (a Artifact) Files() []string {
	files := []string{a.MainFilePath}
	if a.HasWAL {
		files = append(files, a.WALPath())
	}
	if a.HasSHM {
		files = append(files, a.SHMPath())
	}
	return files
}

// errNoArtifact is returned by Result.Artifact on the zero Result.
var errNoArtifact = errors.New("backup result holds no artifact")

// Result is the outcome of one backup attempt: either an Artifact or an error, never both.
// Build it with Succeeded or Failed.
type Result struct {
	artifact *Artifact
	err      error
}

// Succeeded wraps a completed artifact.
func Succeeded(a Artifact) Result { return Result{artifact: &a} }

// Failed wraps a backup error. A nil err is recorded as ErrIOFailure.
func Failed(err error) Result {
	if err == nil {
		err = ErrIOFailure
	}
	return Result{err: err}
}

// Success reports whether the backup completed.
func (r Result) Success() bool { return r.artifact != nil }

// Artifact returns the completed artifact, or the failure.
func (r Result) Artifact() (Artifact, error) {
	if r.artifact == nil {
		if r.err == nil {
			return Artifact{}, errNoArtifact
		}
		return Artifact{}, r.err
	}
	return *r.artifact, nil
}

// Err returns the failure, or nil on success.
func (r Result) Err() error {
	if r.artifact != nil {
		return nil
	}
	if r.err == nil {
		return errNoArtifact
	}
	return r.err
}

// Clock supplies the current instant for timestamps and date folders.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the local wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }
