// Package layout maps between a directory tree and DAT2 archive members.
package layout

import (
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"sort"
	"strings"
)

// ScannedFile is a regular file found under an input directory.
type ScannedFile struct {
	Name string // archive name, '\' separated
	Path string // path on disk
	Size uint32
}

// ScanFiles walks inputDir and returns its regular files sorted by archive name.
func ScanFiles(inputDir string) ([]ScannedFile, error) {
	var files []ScannedFile

	err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(inputDir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		size := info.Size()
		if size < 0 || size > math.MaxUint32 {
			return fmt.Errorf("file too large: %s (size %d exceeds %d bytes)", path, size, uint32(math.MaxUint32))
		}

		files = append(files, ScannedFile{
			Name: ArchiveName(relPath),
			Path: path,
			Size: uint32(size),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// ArchiveName converts a relative OS path into a DOS-style archive name.
func ArchiveName(relPath string) string {
	return strings.ReplaceAll(filepath.ToSlash(relPath), "/", `\`)
}
