// Package backup provides tar.gz-based backup and restore of the catalog
// file and the snapshot cache database.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver
)

var (
	// ErrUnsafePath is returned by Restore for archive entries that would be
	// written outside the target directory.
	ErrUnsafePath = errors.New("archive entry escapes target directory")
	// ErrExists is returned by Restore when a target file exists and force
	// is not set.
	ErrExists = errors.New("target file exists")
)

// Backup creates a tar.gz archive containing the catalog file and the
// snapshot cache database. Either path may be empty or point at a missing
// file, in which case it is skipped, but at least one must exist. The cache
// WAL is checkpointed before it is copied.
func Backup(ctx context.Context, catalogPath, cachePath, outputPath string) error {
	var files []string
	if exists(catalogPath) {
		files = append(files, catalogPath)
	}
	if exists(cachePath) {
		if err := checkpointWAL(ctx, cachePath); err != nil {
			return fmt.Errorf("WAL checkpoint failed: %w", err)
		}
		files = append(files, cachePath)
	}
	if len(files) == 0 {
		return fmt.Errorf("nothing to back up: neither %q nor %q exists", catalogPath, cachePath)
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer outFile.Close()

	gw := gzip.NewWriter(outFile)
	tw := tar.NewWriter(gw)

	for _, f := range files {
		if err := addFileToTar(tw, f, filepath.Base(f)); err != nil {
			return fmt.Errorf("adding %s to archive: %w", f, err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing tar writer: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}
	return outFile.Close()
}

// Restore extracts a Backup archive into dir and returns the restored file
// paths. Only regular files are extracted. Existing files are overwritten
// only when force is set.
func Restore(_ context.Context, archivePath, dir string, force bool) ([]string, error) {
	in, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer in.Close()

	gr, err := gzip.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("reading gzip header: %w", err)
	}
	defer gr.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating target directory: %w", err)
	}

	var restored []string
	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return restored, fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
		}
		if err != nil {
			return restored, fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		target, err := safeJoin(dir, hdr.Name)
		if err != nil {
			return restored, err
		}
		if !force && exists(target) {
			return restored, fmt.Errorf("%w: %s (use force to overwrite)", ErrExists, target)
		}
		if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
			return restored, fmt.Errorf("restoring %s: %w", hdr.Name, err)
		}
		restored = append(restored, target)
	}
	return restored, nil
}

func safeJoin(dir, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	target := filepath.Join(dir, name)
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

func writeFile(path string, r io.Reader, perm os.FileMode) error {
	if perm == 0 {
		perm = 0o644
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// checkpointWAL opens the database, runs a TRUNCATE checkpoint to flush the
// WAL, and closes the connection.
func checkpointWAL(ctx context.Context, dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// addFileToTar adds a single file to the tar archive under the given name.
func addFileToTar(tw *tar.Writer, filePath, archiveName string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = archiveName

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	_, err = io.Copy(tw, f)
	return err
}
