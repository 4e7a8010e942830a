package player

import (
	"fmt"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/llehouerou/wavesd/internal/tags"
)

// openStream opens path and returns a decoder for it. The returned file is
// owned by the caller and must be closed after the streamer.
func openStream(path string) (beep.StreamSeekCloser, beep.Format, *os.File, error) {
	ext := tags.Ext(path)
	if !tags.IsMusicFile(path) {
		return nil, beep.Format{}, nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, nil, err
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext {
	case tags.ExtMP3:
		streamer, format, err = decodeGoMP3(f)
	case tags.ExtFLAC:
		// Some taggers prepend an ID3v2 tag the FLAC decoder does not expect.
		if err = tags.SkipID3v2(f); err == nil {
			streamer, format, err = flac.Decode(f)
		}
	case tags.ExtOGG, tags.ExtOGA:
		streamer, format, err = vorbis.Decode(f)
	case tags.ExtWAV:
		streamer, format, err = wav.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return streamer, format, f, nil
}

// Probe decodes the header of path and returns the stream duration.
func Probe(path string) (time.Duration, error) {
	streamer, format, f, err := openStream(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	defer streamer.Close()
	return format.SampleRate.D(streamer.Len()), nil
}
