// SPDX-License-Identifier: MIT

// Package extract unpacks the original data archive into the build
// directory.
package extract

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/panelkit/harmon/internal/log"
)

// Result reports what an extraction produced.
type Result struct {
	Files []string // extracted file paths, relative to the target dir
	Bytes int64
}

// Unzip extracts the archive into targetDir. Entry names are confined to
// the target directory; absolute names, backslashes and traversal
// sequences are rejected.
func Unzip(ctx context.Context, zipPath, targetDir string) (*Result, error) {
	logger := log.WithComponentFromContext(ctx, "extract")

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("extract: open %s: %w", zipPath, err)
	}
	defer zr.Close()

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, fmt.Errorf("extract: create target dir: %w", err)
	}

	res := &Result{}
	for _, f := range zr.File {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rel, err := confineEntry(f.Name)
		if err != nil {
			return nil, fmt.Errorf("extract: entry %q: %w", f.Name, err)
		}
		dest := filepath.Join(targetDir, rel)

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return nil, fmt.Errorf("extract: create dir %s: %w", dest, err)
			}
			continue
		}

		n, err := writeEntry(f, dest)
		if err != nil {
			return nil, fmt.Errorf("extract: entry %q: %w", f.Name, err)
		}
		res.Files = append(res.Files, rel)
		res.Bytes += n
	}

	logger.Info().
		Str("event", "extract.done").
		Str("archive", zipPath).
		Int("files", len(res.Files)).
		Int64("bytes", res.Bytes).
		Msg("archive extracted")
	return res, nil
}

// confineEntry validates an archive entry name and returns it as a clean
// relative path.
func confineEntry(name string) (string, error) {
	if strings.Contains(name, "\\") {
		return "", fmt.Errorf("name contains backslash")
	}
	if strings.HasPrefix(name, "/") || filepath.IsAbs(name) {
		return "", fmt.Errorf("name is absolute")
	}
	clean := filepath.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("name escapes target directory")
	}
	return clean, nil
}

func writeEntry(f *zip.File, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create parent dir: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(out, rc)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write file: %w", err)
	}
	return n, nil
}
