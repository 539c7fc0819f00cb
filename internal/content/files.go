package content

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// CollectFilesRecursive expands a directory into the full paths of every
// regular file beneath it, sorted lexicographically. Symlinks are not
// followed. Entries the walk cannot read are returned in skipped rather
// than aborting the collection; only an unreadable root is an error.
func CollectFilesRecursive(dir string) (files, skipped []string, err error) {
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			skipped = append(skipped, path)
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("walking %s: %w", dir, walkErr)
	}
	sort.Strings(files)
	return files, skipped, nil
}

// readMedia loads a media file and resolves its MIME type from the
// extension table.
func readMedia(path string) ([]byte, string, error) {
	mime, ok := MediaMIME(path)
	if !ok {
		return nil, "", fmt.Errorf("unsupported media extension: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading media file: %w", err)
	}
	return data, mime, nil
}
