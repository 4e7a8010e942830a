package playlist

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/llehouerou/wavesd/internal/tags"
)

// Collect lists the supported music files in dir, sorted by path.
// Subdirectories are walked only when recursive is set.
func Collect(dir string, recursive bool) ([]string, error) {
	var paths []string

	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Type().IsRegular() && tags.IsMusicFile(e.Name()) {
				paths = append(paths, filepath.Join(dir, e.Name()))
			}
		}
		sort.Strings(paths)
		return paths, nil
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && tags.IsMusicFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
