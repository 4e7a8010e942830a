package playlist

import "os"

// Readable reports whether the file backing a track exists, is a regular
// file and can be opened for reading.
func Readable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// Validate returns the number of tracks whose backing file is missing or
// unreadable. The playlist is not modified.
func (p *Playlist) Validate() int {
	invalid := 0
	for i := range p.tracks {
		if !Readable(p.tracks[i].Path) {
			invalid++
		}
	}
	return invalid
}

// CleanupInvalid removes tracks whose backing file is missing or
// unreadable and returns how many were removed. The cursor follows the
// RemoveAt rules, so a removed current track hands over to the next valid
// one.
func (p *Playlist) CleanupInvalid() int {
	removed := 0
	for i := len(p.tracks) - 1; i >= 0; i-- {
		if Readable(p.tracks[i].Path) {
			continue
		}
		p.RemoveAt(i)
		removed++
	}
	return removed
}
