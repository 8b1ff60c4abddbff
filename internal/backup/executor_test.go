package backup

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kebairia/shelfsafe/internal/logger"
	"github.com/kebairia/shelfsafe/internal/testinfra"
)

var fixedNow = time.Date(2025, time.April, 24, 21, 5, 9, 0, time.Local)

func newTestExecutor() *Executor {
	return NewExecutor(WithClock(FixedClock(fixedNow)), WithLogger(logger.Nop()))
}

func TestBackup_CopiesMainFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "reading.db")
	testinfra.NewDatabase(t, src, 5)
	root := filepath.Join(dir, "backups")

	res := newTestExecutor().Backup(context.Background(), Target{
		SourcePath:  src,
		LogicalName: "reading.db",
	}, root, "")
	require.True(t, res.Success(), "backup failed: %v", res.Err())

	art, err := res.Artifact()
	require.NoError(t, err)
	assert.Equal(t, "20250424_210509", art.Timestamp)
	assert.Equal(t, filepath.Join(root, "2025-04-24"), art.Folder)
	assert.Equal(t, filepath.Join(root, "2025-04-24", "reading.db.backup-20250424_210509"), art.MainFilePath)
	assert.Equal(t, testinfra.ReadFile(t, src), testinfra.ReadFile(t, art.MainFilePath))

	info, err := os.Stat(art.MainFilePath)
	require.NoError(t, err)
	assert.Equal(t, uint64(info.Size()), art.SizeBytes)
	assert.False(t, art.HasWAL)
	assert.False(t, art.HasSHM)
}

func TestBackup_NeverOverwritesAnArtifact(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "reading.db")
	testinfra.NewDatabase(t, src, 3)
	root := filepath.Join(dir, "backups")
	target := Target{SourcePath: src, LogicalName: "reading.db"}

	first, err := newTestExecutor().Backup(context.Background(), target, root, "").Artifact()
	require.NoError(t, err)
	original := testinfra.ReadFile(t, first.MainFilePath)

	require.NoError(t, os.Remove(src))
	testinfra.NewDatabase(t, src, 40)

	// Same clock, same second: the second backup must not clobber the first.
	res := newTestExecutor().Backup(context.Background(), target, root, "")
	assert.False(t, res.Success())
	assert.ErrorIs(t, res.Err(), ErrDestinationNotWritable)
	assert.ErrorIs(t, res.Err(), fs.ErrExist)
	assert.Equal(t, original, testinfra.ReadFile(t, first.MainFilePath))
	assert.Equal(t, int64(3), testinfra.CountBooks(t, first.MainFilePath))
}

func TestBackup_UsesCallerTimestampVerbatim(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "reading.db")
	testinfra.NewDatabase(t, src, 1)

	res := newTestExecutor().Backup(context.Background(), Target{SourcePath: src}, dir, "20240101_000000")
	art, err := res.Artifact()
	require.NoError(t, err)
	assert.Equal(t, "20240101_000000", art.Timestamp)
	assert.Equal(t, "reading.db", art.LogicalName, "logical name defaults to the source base name")
	// The folder still follows the clock's date, not the supplied timestamp.
	assert.Equal(t, "2025-04-24", filepath.Base(art.Folder))
}

func TestBackup_CompanionFidelity(t *testing.T) {
	tests := []struct {
		name     string
		wal, shm bool
		include  bool
		wantWAL  bool
		wantSHM  bool
	}{
		{name: "wal only", wal: true, include: true, wantWAL: true},
		{name: "shm only", shm: true, include: true, wantSHM: true},
		{name: "both", wal: true, shm: true, include: true, wantWAL: true, wantSHM: true},
		{name: "neither", include: true},
		{name: "excluded", wal: true, shm: true, include: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "reading.db")
			testinfra.NewDatabase(t, src, 1)
			if tt.wal {
				testinfra.WriteFile(t, src+WALSuffix, []byte("wal-bytes"))
			}
			if tt.shm {
				testinfra.WriteFile(t, src+SHMSuffix, []byte("shm-bytes"))
			}

			res := newTestExecutor().Backup(context.Background(), Target{
				SourcePath:            src,
				LogicalName:           "reading.db",
				IncludeCompanionFiles: tt.include,
			}, filepath.Join(dir, "backups"), "")
			art, err := res.Artifact()
			require.NoError(t, err)

			assert.Equal(t, tt.wantWAL, art.HasWAL)
			assert.Equal(t, tt.wantSHM, art.HasSHM)
			assert.Equal(t, tt.wantWAL, FileExists(art.WALPath()))
			assert.Equal(t, tt.wantSHM, FileExists(art.SHMPath()))
			if tt.wantWAL {
				assert.Equal(t, []byte("wal-bytes"), testinfra.ReadFile(t, art.WALPath()))
			}
		})
	}
}

func TestBackup_SourceNotFound(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "backups")

	res := newTestExecutor().Backup(context.Background(), Target{
		SourcePath: filepath.Join(dir, "missing.db"),
	}, root, "")

	assert.False(t, res.Success())
	assert.ErrorIs(t, res.Err(), ErrSourceNotFound)
	assert.Equal(t, "source_not_found", KindOf(res.Err()))
	_, err := os.Stat(root)
	assert.True(t, os.IsNotExist(err), "no destination may be created on a pre-flight failure")
}

func TestBackup_SourceIsDirectory(t *testing.T) {
	dir := t.TempDir()
	res := newTestExecutor().Backup(context.Background(), Target{SourcePath: dir}, filepath.Join(dir, "out"), "")
	assert.ErrorIs(t, res.Err(), ErrSourceUnreadable)
}

func TestBackup_SourceUnreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "reading.db")
	testinfra.NewDatabase(t, src, 1)
	require.NoError(t, os.Chmod(src, 0o000))
	t.Cleanup(func() { _ = os.Chmod(src, 0o644) })

	res := newTestExecutor().Backup(context.Background(), Target{SourcePath: src}, filepath.Join(dir, "backups"), "")
	assert.ErrorIs(t, res.Err(), ErrSourceUnreadable)
}

func TestBackup_DestinationNotWritable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "reading.db")
	testinfra.NewDatabase(t, src, 1)

	root := filepath.Join(dir, "backups")
	folder := filepath.Join(root, "2025-04-24")
	require.NoError(t, os.MkdirAll(folder, 0o755))
	require.NoError(t, os.Chmod(folder, 0o555))
	t.Cleanup(func() { _ = os.Chmod(folder, 0o755) })

	res := newTestExecutor().Backup(context.Background(), Target{SourcePath: src}, root, "")
	assert.ErrorIs(t, res.Err(), ErrDestinationNotWritable)

	entries, err := os.ReadDir(folder)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBackup_RootIsAFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "reading.db")
	testinfra.NewDatabase(t, src, 1)
	root := filepath.Join(dir, "not-a-dir")
	testinfra.WriteFile(t, root, []byte("x"))

	res := newTestExecutor().Backup(context.Background(), Target{SourcePath: src}, root, "")
	assert.ErrorIs(t, res.Err(), ErrDestinationNotWritable)
}

func TestBackup_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "reading.db")
	testinfra.NewDatabase(t, src, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := newTestExecutor().Backup(ctx, Target{SourcePath: src}, dir, "")
	assert.ErrorIs(t, res.Err(), ErrIOFailure)
}

// A raw copy of a live WAL-mode database is not coordinated with the writer: the main
// file and WAL are copied one after the other, so under concurrent writes they can be
// captured out of step. With no writes in flight the copy matches byte for byte.
func TestBackup_LiveWALDatabaseCopyIsNotCoordinated(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "reading.db")
	testinfra.OpenWALDatabase(t, src, 20)
	require.FileExists(t, src+WALSuffix)

	res := newTestExecutor().Backup(context.Background(), Target{
		SourcePath:            src,
		LogicalName:           "reading.db",
		IncludeCompanionFiles: true,
	}, filepath.Join(dir, "backups"), "")
	art, err := res.Artifact()
	require.NoError(t, err)

	assert.True(t, art.HasWAL)
	assert.True(t, art.HasSHM)
	assert.Equal(t, testinfra.ReadFile(t, src), testinfra.ReadFile(t, art.MainFilePath))
	assert.Equal(t, testinfra.ReadFile(t, src+WALSuffix), testinfra.ReadFile(t, art.WALPath()))
}

func TestResult(t *testing.T) {
	ok := Succeeded(Artifact{LogicalName: "a"})
	assert.True(t, ok.Success())
	assert.NoError(t, ok.Err())

	failed := Failed(ErrSourceNotFound)
	assert.False(t, failed.Success())
	_, err := failed.Artifact()
	assert.ErrorIs(t, err, ErrSourceNotFound)

	var zero Result
	assert.False(t, zero.Success())
	assert.Error(t, zero.Err())
	assert.ErrorIs(t, Failed(nil).Err(), ErrIOFailure)
}
