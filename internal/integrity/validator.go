// Package integrity checks that a file is a structurally sound SQLite database.
package integrity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kebairia/shelfsafe/internal/backup"
	"github.com/kebairia/shelfsafe/internal/logger"
)

// sqliteMagic is the fixed 16-byte header every SQLite 3 database file starts with.
var sqliteMagic = []byte("SQLite format 3\x00")

// kindError is a sentinel that also carries a stable classification.
type kindError struct {
	msg  string
	kind string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Kind() string  { return e.kind }

var (
	ErrNotFound     error = &kindError{msg: "backup not found", kind: "not_found"}
	ErrNotADatabase error = &kindError{msg: "not a database", kind: "not_a_database"}
	ErrCorrupt      error = &kindError{msg: "database corrupt", kind: "corrupt"}
)

// Validator reads candidate database files without modifying them and runs a full
// integrity scan.
type Validator struct {
	Logger logger.Logger
}

// New returns a Validator logging through log; a nil log uses the global logger.
func New(log logger.Logger) *Validator {
	if log == nil {
		log = logger.Global()
	}
	return &Validator{Logger: log}
}

// Validate returns nil if path is a valid, non-corrupt SQLite database. Otherwise the
// error wraps ErrNotFound, ErrNotADatabase or ErrCorrupt. path and its companions are only
// ever opened for reading, and every handle is closed before Validate returns.
func (v *Validator) Validate(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("%w: stat %q: %v", ErrNotFound, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %q is a directory", ErrNotADatabase, path)
	}

	if err := checkHeader(path); err != nil {
		return err
	}

	if err := v.scan(ctx, path); err != nil {
		v.Logger.Warn("integrity check failed", "path", path, "error", err.Error())
		return err
	}

	v.Logger.Debug("integrity check passed", "path", path)
	return nil
}

func checkHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %q: %v", ErrNotADatabase, path, err)
	}
	defer f.Close()

	header := make([]byte, len(sqliteMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		return fmt.Errorf("%w: %q is shorter than a database header", ErrNotADatabase, path)
	}
	if !bytes.Equal(header, sqliteMagic) {
		return fmt.Errorf("%w: %q has no SQLite header", ErrNotADatabase, path)
	}
	return nil
}

// scan runs the structural checks on a private copy of path and its -wal, so SQLite never
// creates or rewrites -shm/-wal files next to the original. The -shm file is only an index
// of the WAL and is rebuilt from it.
func (v *Validator) scan(ctx context.Context, path string) error {
	scratchDir, err := os.MkdirTemp("", "shelfsafe-validate-*")
	if err != nil {
		return fmt.Errorf("validate %q: create scratch directory: %w", path, err)
	}
	defer os.RemoveAll(scratchDir)

	scratch := filepath.Join(scratchDir, filepath.Base(path))
	if _, err := backup.CopyFile(path, scratch); err != nil {
		return fmt.Errorf("validate %q: %w", path, err)
	}
	if backup.FileExists(path + backup.WALSuffix) {
		if _, err := backup.CopyFile(path+backup.WALSuffix, scratch+backup.WALSuffix); err != nil {
			return fmt.Errorf("validate %q: %w", path, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(scratch), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("%w: open %q: %v", ErrCorrupt, path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("%w: open %q: %v", ErrCorrupt, path, err)
	}
	defer sqlDB.Close()
	sqlDB.SetMaxOpenConns(1)

	db = db.WithContext(ctx)

	var pageCount int64
	if err := db.Raw("PRAGMA page_count").Scan(&pageCount).Error; err != nil {
		return fmt.Errorf("%w: page_count %q: %v", ErrCorrupt, path, err)
	}
	if pageCount < 1 {
		return fmt.Errorf("%w: %q has no pages", ErrCorrupt, path)
	}

	var objects int64
	if err := db.Raw("SELECT count(*) FROM sqlite_master").Scan(&objects).Error; err != nil {
		return fmt.Errorf("%w: read schema %q: %v", ErrCorrupt, path, err)
	}

	var problems []string
	if err := db.Raw("PRAGMA integrity_check").Scan(&problems).Error; err != nil {
		return fmt.Errorf("%w: integrity_check %q: %v", ErrCorrupt, path, err)
	}
	if len(problems) != 1 || problems[0] != "ok" {
		return fmt.Errorf("%w: %q: %s", ErrCorrupt, path, strings.Join(problems, "; "))
	}
	return nil
}
