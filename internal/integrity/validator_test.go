package integrity

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kebairia/shelfsafe/internal/backup"
	"github.com/kebairia/shelfsafe/internal/logger"
	"github.com/kebairia/shelfsafe/internal/testinfra"
)

func newValidator() *Validator { return New(logger.Nop()) }

func TestValidate_FreshDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reading.db")
	testinfra.NewDatabase(t, path, 10)

	require.NoError(t, newValidator().Validate(context.Background(), path))

	// Read-only scan leaves the file untouched.
	before := testinfra.ReadFile(t, path)
	require.NoError(t, newValidator().Validate(context.Background(), path))
	assert.Equal(t, before, testinfra.ReadFile(t, path))
	assert.NoFileExists(t, path+"-journal")
}

func TestValidate_LeavesWALSnapshotUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reading.db.backup-20250424_210509")
	testinfra.NewWALSnapshot(t, path, 25)
	mainBefore := testinfra.ReadFile(t, path)
	walBefore := testinfra.ReadFile(t, path+backup.WALSuffix)

	require.NoError(t, newValidator().Validate(context.Background(), path))

	assert.NoFileExists(t, path+backup.SHMSuffix)
	assert.Equal(t, mainBefore, testinfra.ReadFile(t, path))
	assert.Equal(t, walBefore, testinfra.ReadFile(t, path+backup.WALSuffix))
}

func TestValidate_WALModeMainFileGrowsNoCompanions(t *testing.T) {
	dir := t.TempDir()
	live := filepath.Join(dir, "live.db")
	testinfra.Close(t, testinfra.OpenWALDatabase(t, live, 5))

	path := filepath.Join(dir, "reading.db.backup-20250424_210509")
	testinfra.WriteFile(t, path, testinfra.ReadFile(t, live))

	require.NoError(t, newValidator().Validate(context.Background(), path))
	assert.NoFileExists(t, path+backup.WALSuffix)
	assert.NoFileExists(t, path+backup.SHMSuffix)
}

func TestValidate_Rejections(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.db")
	testinfra.WriteFile(t, empty, nil)

	text := filepath.Join(dir, "notes.txt")
	testinfra.WriteFile(t, text, []byte("these are my reading notes, not a database\n"))

	clobbered := filepath.Join(dir, "clobbered.db")
	testinfra.NewDatabase(t, clobbered, 3)
	data := testinfra.ReadFile(t, clobbered)
	copy(data[:16], []byte("XXXXXXXXXXXXXXXX"))
	testinfra.WriteFile(t, clobbered, data)

	headerOnly := filepath.Join(dir, "header-only.db")
	garbage := append([]byte("SQLite format 3\x00"), make([]byte, 200)...)
	for i := 16; i < len(garbage); i++ {
		garbage[i] = 0xFF
	}
	testinfra.WriteFile(t, headerOnly, garbage)

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing", filepath.Join(dir, "missing.db"), ErrNotFound},
		{"zero bytes", empty, ErrNotADatabase},
		{"text file", text, ErrNotADatabase},
		{"clobbered header", clobbered, ErrNotADatabase},
		{"directory", dir, ErrNotADatabase},
		{"garbage after header", headerOnly, ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newValidator().Validate(context.Background(), tt.path)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.NotEmpty(t, err.Error())
		})
	}
}

func TestValidate_CorruptPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reading.db")
	testinfra.NewDatabase(t, path, 50)

	data := testinfra.ReadFile(t, path)
	pageSize := int(binary.BigEndian.Uint16(data[16:18]))
	if pageSize == 1 {
		pageSize = 65536
	}
	require.GreaterOrEqual(t, len(data), 2*pageSize, "fixture needs a second page")
	for i := pageSize; i < 2*pageSize; i++ {
		data[i] = 0
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))

	err := newValidator().Validate(context.Background(), path)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestValidate_KindOf(t *testing.T) {
	err := newValidator().Validate(context.Background(), filepath.Join(t.TempDir(), "nope.db"))
	assert.Equal(t, "not_found", backup.KindOf(err))

	path := filepath.Join(t.TempDir(), "text.db")
	testinfra.WriteFile(t, path, []byte("hello"))
	assert.Equal(t, "not_a_database", backup.KindOf(newValidator().Validate(context.Background(), path)))
}
