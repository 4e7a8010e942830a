package tags

import (
	"github.com/bogem/id3v2/v2"
)

const (
	frameAlbumArtist = "TPE2"
	framePicture     = "Attached picture"
)

func readID3v2(path string) (*Tag, error) {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, err
	}
	defer t.Close()

	var albumArtist string
	if frames := t.GetFrames(frameAlbumArtist); len(frames) > 0 {
		if tf, ok := frames[0].(id3v2.TextFrame); ok {
			albumArtist = tf.Text
		}
	}
	return newTag(t.Title(), t.Artist(), albumArtist, t.Album()), nil
}

// readID3v2Picture returns the front cover, else the first picture of any
// type, else nil.
func readID3v2Picture(path string) (*Cover, error) {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true, ParseFrames: []string{framePicture}})
	if err != nil {
		return nil, err
	}
	defer t.Close()

	var found *Cover
	for _, f := range t.GetFrames(t.CommonID(framePicture)) {
		pic, ok := f.(id3v2.PictureFrame)
		if !ok || len(pic.Picture) == 0 {
			continue
		}
		c := &Cover{Data: pic.Picture, MIMEType: pic.MimeType}
		if pic.PictureType == id3v2.PTFrontCover {
			return c, nil
		}
		if found == nil {
			found = c
		}
	}
	return found, nil
}
