// Package testinfra builds SQLite fixtures for tests.
package testinfra

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Book is the fixture table written into every test database.
type Book struct {
	ID     uint `gorm:"primaryKey"`
	Title  string
	Author string
}

func open(t testing.TB, path string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite %q: %v", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle %q: %v", path, err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Book{}); err != nil {
		t.Fatalf("migrate %q: %v", path, err)
	}
	return db
}

func insertBooks(t testing.TB, db *gorm.DB, from, rows int) {
	t.Helper()
	for i := from; i < from+rows; i++ {
		book := Book{Title: fmt.Sprintf("Book %d", i), Author: "Anon"}
		if err := db.Create(&book).Error; err != nil {
			t.Fatalf("insert book %d: %v", i, err)
		}
	}
}

// Close releases every connection held by db.
func Close(t testing.TB, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close sqlite: %v", err)
	}
}

// NewDatabase creates a rollback-journal SQLite database at path holding rows books,
// and closes it so only the main file remains.
func NewDatabase(t testing.TB, path string, rows int) {
	t.Helper()
	db := open(t, path)
	insertBooks(t, db, 0, rows)
	Close(t, db)
}

// OpenWALDatabase creates a WAL-mode SQLite database at path holding rows books and
// leaves the connection open, so the -wal and -shm files stay on disk. The connection is
// closed at test cleanup.
func OpenWALDatabase(t testing.TB, path string, rows int) *gorm.DB {
	t.Helper()
	db := open(t, path)
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		t.Fatalf("enable WAL on %q: %v", path, err)
	}
	if err := db.Exec("PRAGMA wal_autocheckpoint=0").Error; err != nil {
		t.Fatalf("disable autocheckpoint on %q: %v", path, err)
	}
	insertBooks(t, db, 0, rows)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewWALSnapshot writes a WAL-mode database holding rows books to dst as a main file plus
// an uncheckpointed dst-wal, with no -shm, the way a raw copy of a live database looks.
func NewWALSnapshot(t testing.TB, dst string, rows int) {
	t.Helper()
	src := filepath.Join(t.TempDir(), "live.db")
	OpenWALDatabase(t, src, rows)
	WriteFile(t, dst, ReadFile(t, src))
	WriteFile(t, dst+"-wal", ReadFile(t, src+"-wal"))
}

// CountBooks opens path and returns how many fixture rows it holds.
func CountBooks(t testing.TB, path string) int64 {
	t.Helper()
	db := open(t, path)
	defer Close(t, db)
	var n int64
	if err := db.Model(&Book{}).Count(&n).Error; err != nil {
		t.Fatalf("count books in %q: %v", path, err)
	}
	return n
}

// ReadFile returns path's contents or fails the test.
func ReadFile(t testing.TB, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %q: %v", path, err)
	}
	return data
}

// WriteFile writes data to path or fails the test.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
}
