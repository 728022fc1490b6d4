// Package scan discovers source images for the batch host.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/sizefit/sizefit/internal/imaging"
)

// Discover expands files and directories into the list of source images
// to process. Directories are walked recursively; unsupported files
// inside directories are skipped, but naming one explicitly is an
// error. The returned order is deterministic: explicit arguments keep
// their position, directory contents are sorted.
func Discover(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		if !info.IsDir() {
			if !imaging.SupportedExtension(path) {
				return nil, fmt.Errorf("scan: unsupported file type: %s", path)
			}
			files = append(files, path)
			continue
		}

		found, err := walkDir(path)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func walkDir(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if imaging.SupportedExtension(path) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	sort.Strings(found)
	return found, nil
}
