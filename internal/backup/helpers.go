package backup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

func EnsureDirectoryExist(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory %q: %w", dirPath, err)
	}
	return nil
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// CopyFile copies src to dst byte for byte, creating or truncating dst.
// Failing to create dst wraps ErrDestinationNotWritable; every other failure wraps ErrIOFailure.
func CopyFile(src, dst string) (int64, error) {
	return copyFile(src, dst, os.O_TRUNC)
}

// CopyFileExclusive is CopyFile for a dst that must not exist yet. An existing dst is left
// untouched and the error wraps both ErrDestinationNotWritable and fs.ErrExist.
func CopyFileExclusive(src, dst string) (int64, error) {
	return copyFile(src, dst, os.O_EXCL)
}

func copyFile(src, dst string, flag int) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("%w: open %q: %v", ErrIOFailure, src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: stat %q: %v", ErrIOFailure, src, err)
	}

	// Owner write is always kept so retention and restores can replace the copy later.
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|flag, info.Mode().Perm()|0o200)
	if errors.Is(err, fs.ErrExist) {
		return 0, fmt.Errorf("%w: %w: %q", ErrDestinationNotWritable, fs.ErrExist, dst)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: create %q: %v", ErrDestinationNotWritable, dst, err)
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, fmt.Errorf("%w: copy %q to %q: %v", ErrIOFailure, src, dst, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return n, fmt.Errorf("%w: sync %q: %v", ErrIOFailure, dst, err)
	}
	if err := out.Close(); err != nil {
		return n, fmt.Errorf("%w: close %q: %v", ErrIOFailure, dst, err)
	}
	return n, nil
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
