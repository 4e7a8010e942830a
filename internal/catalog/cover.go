package catalog

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/llehouerou/wavesd/internal/playlist"
)

// Folder image names, best first. Matched case-insensitively.
var folderImages = []string{"cover", "folder", "front", "album"}

var imageExts = []string{".jpg", ".jpeg", ".png"}

// Artwork returns the image to show for t: the extracted artwork when
// there is one, else an image next to the file, else "".
func Artwork(t playlist.Track) string {
	if t.HasArtwork() {
		return t.ArtworkPath
	}
	return folderImage(filepath.Dir(t.Path))
}

func folderImage(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	found := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		ext := filepath.Ext(name)
		if !isImageExt(ext) {
			continue
		}
		base := strings.TrimSuffix(name, ext)
		if _, ok := found[base]; !ok {
			found[base] = filepath.Join(dir, e.Name())
		}
	}
	for _, base := range folderImages {
		if p, ok := found[base]; ok {
			return p
		}
	}
	return ""
}

func isImageExt(ext string) bool {
	for _, e := range imageExts {
		if ext == e {
			return true
		}
	}
	return false
}
