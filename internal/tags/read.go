package tags

import (
	"os"

	"github.com/dhowden/tag"
	"go.senan.xyz/taglib"
)

// Read returns the metadata of a music file. dhowden/tag handles most
// files; when it fails MP3 files are retried with id3v2 and the other
// formats with TagLib.
func Read(path string) (*Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err == nil {
		return newTag(m.Title(), m.Artist(), m.AlbumArtist(), m.Album()), nil
	}
	switch Ext(path) {
	case ExtMP3:
		// Some UTF-16 ID3 frames trip dhowden/tag.
		return readID3v2(path)
	case ExtFLAC, ExtOGG, ExtOGA, ExtWAV:
		return readTaglib(path)
	}
	return nil, err
}

func readTaglib(path string) (*Tag, error) {
	raw, err := taglib.ReadTags(path)
	if err != nil {
		return nil, err
	}
	first := func(key string) string {
		if v := raw[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	return newTag(first(taglib.Title), first(taglib.Artist), first(taglib.AlbumArtist), first(taglib.Album)), nil
}
