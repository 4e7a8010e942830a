package tags

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	goflac "github.com/go-flac/go-flac"
	"github.com/gopxl/beep/v2/flac"
	"github.com/llehouerou/go-mp3"
)

// ErrNoAudioInfo is returned for formats whose duration is not in the
// headers. Callers decode the stream instead.
var ErrNoAudioInfo = errors.New("no header audio info for format")

const (
	id3HeaderLen  = 10
	streamInfoLen = 18
)

// ReadAudioInfo reads the stream duration from the file headers without
// decoding audio.
func ReadAudioInfo(path string) (*AudioInfo, error) {
	switch Ext(path) {
	case ExtMP3:
		return readMP3Info(path)
	case ExtFLAC:
		return readFLACInfo(path)
	case ExtOGG, ExtOGA, ExtWAV:
		return nil, fmt.Errorf("%w: %s", ErrNoAudioInfo, Ext(path))
	}
	return nil, fmt.Errorf("unsupported format: %s", Ext(path))
}

func readMP3Info(path string) (*AudioInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	rate := d.SampleRate()
	if rate <= 0 {
		return nil, errors.New("mp3: invalid sample rate")
	}
	return &AudioInfo{Duration: samplesToDuration(int64(max(d.SampleCount(), 0)), rate), SampleRate: rate}, nil
}

func readFLACInfo(path string) (*AudioInfo, error) {
	file, err := goflac.ParseFile(path)
	if err != nil {
		// go-flac rejects files with a leading ID3 tag.
		return decodeFLACInfo(path)
	}
	for _, meta := range file.Meta {
		if meta.Type != goflac.StreamInfo {
			continue
		}
		if info, ok := parseStreamInfo(meta.Data); ok {
			return info, nil
		}
	}
	return decodeFLACInfo(path)
}

// parseStreamInfo reads the sample rate (20 bits from byte 10) and total
// sample count (36 bits ending at byte 17) of a STREAMINFO block.
func parseStreamInfo(data []byte) (*AudioInfo, bool) {
	if len(data) < streamInfoLen {
		return nil, false
	}
	rate := int(binary.BigEndian.Uint32(data[10:14]) >> 12)
	total := int64(binary.BigEndian.Uint64(data[10:18]) & (1<<36 - 1))
	if rate == 0 {
		return nil, false
	}
	return &AudioInfo{Duration: samplesToDuration(total, rate), SampleRate: rate}, true
}

func decodeFLACInfo(path string) (*AudioInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := SkipID3v2(f); err != nil {
		return nil, err
	}
	s, format, err := flac.Decode(f)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return &AudioInfo{Duration: format.SampleRate.D(s.Len()), SampleRate: int(format.SampleRate)}, nil
}

func samplesToDuration(samples int64, rate int) time.Duration {
	return time.Duration(samples) * time.Second / time.Duration(rate)
}

// SkipID3v2 positions r after a leading ID3v2 tag, or at the start when
// there is none.
func SkipID3v2(r io.ReadSeeker) error {
	header := make([]byte, id3HeaderLen)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return err
	}
	if n < id3HeaderLen || string(header[:3]) != "ID3" {
		_, err = r.Seek(0, io.SeekStart)
		return err
	}
	// Syncsafe size: 7 bits per byte.
	size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])
	_, err = r.Seek(id3HeaderLen+size, io.SeekStart)
	return err
}
