package tags

import (
	"os"

	"github.com/dhowden/tag"
)

// Image MIME types.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
)

// Cover is an image embedded in a music file.
type Cover struct {
	Data     []byte
	MIMEType string
}

// ReadCover returns the picture embedded in a music file, or nil, nil when
// the file carries none.
func ReadCover(path string) (*Cover, error) {
	c, err := readEmbeddedCover(path)
	if err != nil && Ext(path) == ExtMP3 {
		return readID3v2Picture(path)
	}
	return c, err
}

func readEmbeddedCover(path string) (*Cover, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, err
	}
	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil, nil //nolint:nilnil // no cover
	}
	mime := pic.MIMEType
	if mime == "" {
		switch pic.Ext {
		case "png":
			mime = MIMEPNG
		default:
			mime = MIMEJPEG
		}
	}
	return &Cover{Data: pic.Data, MIMEType: mime}, nil
}
