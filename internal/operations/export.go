package operations

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/kebairia/shelfsafe/internal/backup"
)

// ExportSuffix is appended to the artifact path when no export path is given.
const ExportSuffix = ".tar.zst"

// ExportBackup validates the artifact at artifactPath and writes it, with any companion
// files, into a zstd-compressed tar at outPath. An empty outPath exports next to the
// artifact. It returns the written path.
func (om *OperationManager) ExportBackup(ctx context.Context, artifactPath, outPath string) (string, error) {
	if err := om.validator.Validate(ctx, artifactPath); err != nil {
		return "", fmt.Errorf("validate backup: %w", err)
	}
	if outPath == "" {
		outPath = artifactPath + ExportSuffix
	}

	files := []string{artifactPath}
	for _, suffix := range []string{backup.WALSuffix, backup.SHMSuffix} {
		if backup.FileExists(artifactPath + suffix) {
			files = append(files, artifactPath+suffix)
		}
	}

	startTime := time.Now()
	if err := writeArchive(outPath, files); err != nil {
		_ = backup.RemoveIfExists(outPath)
		om.log.Error("export failed", "path", artifactPath, "output", outPath, "error", err.Error())
		return "", err
	}

	om.log.Info("export completed",
		"path", artifactPath,
		"output", outPath,
		"files", len(files),
		"duration", time.Since(startTime).String(),
	)
	return outPath, nil
}

func writeArchive(outPath string, files []string) (err error) {
	if err := backup.EnsureDirectoryExist(filepath.Dir(outPath)); err != nil {
		return fmt.Errorf("%w: %v", backup.ErrDestinationNotWritable, err)
	}
	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("%w: create %q: %v", backup.ErrDestinationNotWritable, outPath, err)
	}
	defer func() {
		if cerr := outFile.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close %q: %v", backup.ErrIOFailure, outPath, cerr)
		}
	}()

	// Create a Zstandard writer
	zw, err := zstd.NewWriter(outFile)
	if err != nil {
		return fmt.Errorf("%w: create zstd writer: %v", backup.ErrIOFailure, err)
	}
	tw := tar.NewWriter(zw)

	for _, path := range files {
		if err := addFile(tw, path); err != nil {
			_ = tw.Close()
			_ = zw.Close()
			return err
		}
	}

	if err := tw.Close(); err != nil {
		_ = zw.Close()
		return fmt.Errorf("%w: finish tar stream: %v", backup.ErrIOFailure, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: finish zstd stream: %v", backup.ErrIOFailure, err)
	}
	if err := outFile.Sync(); err != nil {
		return fmt.Errorf("%w: sync %q: %v", backup.ErrIOFailure, outPath, err)
	}
	return nil
}

func addFile(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %q: %v", backup.ErrIOFailure, path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %q: %v", backup.ErrIOFailure, path, err)
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("%w: tar header for %q: %v", backup.ErrIOFailure, path, err)
	}
	hdr.Name = filepath.Base(path)

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("%w: write header for %q: %v", backup.ErrIOFailure, path, err)
	}
	// Copy the file into the tar stream
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("%w: archive %q: %v", backup.ErrIOFailure, path, err)
	}
	return nil
}
