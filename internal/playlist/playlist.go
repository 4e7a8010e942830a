package playlist

// Playlist holds an ordered collection of tracks with a playback cursor.
//
// The cursor is either -1 (no current track) or a valid index. An empty
// playlist always has a cursor of -1.
type Playlist struct {
	tracks  []Track
	current int
	loop    bool
}

// New creates a new empty playlist.
func New() *Playlist {
	return &Playlist{
		tracks:  make([]Track, 0),
		current: -1,
	}
}

// FromTracks builds a playlist from a track list, cursor and loop flag.
// An out-of-range cursor is reset to -1.
func FromTracks(tracks []Track, current int, loop bool) *Playlist {
	p := &Playlist{
		tracks:  make([]Track, len(tracks)),
		current: current,
		loop:    loop,
	}
	copy(p.tracks, tracks)
	if !p.validIndex(current) {
		p.current = -1
	}
	return p
}

// Clone returns a deep copy of the playlist.
func (p *Playlist) Clone() *Playlist {
	return FromTracks(p.tracks, p.current, p.loop)
}

// Add appends tracks to the playlist without moving the cursor.
func (p *Playlist) Add(tracks ...Track) {
	p.tracks = append(p.tracks, tracks...)
}

// RemoveAt removes the track at the given index and re-clamps the cursor.
// Removing the current track leaves the cursor on the track that followed
// it, or on -1 when it was the last one.
// Returns false if index is out of bounds.
func (p *Playlist) RemoveAt(index int) bool {
	if !p.validIndex(index) {
		return false
	}
	p.tracks = append(p.tracks[:index], p.tracks[index+1:]...)

	switch {
	case p.current > index:
		p.current--
	case p.current == index && p.current >= len(p.tracks):
		p.current = -1
	}
	return true
}

// Move moves the track at fromIndex to toIndex.
// The current track keeps being current; only its index changes.
// Returns false if either index is out of bounds.
func (p *Playlist) Move(fromIndex, toIndex int) bool {
	if !p.validIndex(fromIndex) || !p.validIndex(toIndex) {
		return false
	}
	if fromIndex == toIndex {
		return true
	}

	track := p.tracks[fromIndex]
	p.tracks = append(p.tracks[:fromIndex], p.tracks[fromIndex+1:]...)
	p.tracks = append(p.tracks[:toIndex], append([]Track{track}, p.tracks[toIndex:]...)...)

	switch {
	case p.current == fromIndex:
		p.current = toIndex
	case fromIndex < p.current && p.current <= toIndex:
		p.current--
	case toIndex <= p.current && p.current < fromIndex:
		p.current++
	}
	return true
}

// Clear removes all tracks and resets the cursor.
func (p *Playlist) Clear() {
	p.tracks = p.tracks[:0]
	p.current = -1
}

// JumpTo sets the cursor to index.
// Returns the track at that position, or nil if invalid.
func (p *Playlist) JumpTo(index int) *Track {
	if !p.validIndex(index) {
		return nil
	}
	p.current = index
	return p.Current()
}

// Unset clears the cursor without touching the tracks.
func (p *Playlist) Unset() {
	p.current = -1
}

// Current returns a copy of the current track, or nil if none.
func (p *Playlist) Current() *Track {
	if !p.validIndex(p.current) {
		return nil
	}
	t := p.tracks[p.current]
	return &t
}

// CurrentIndex returns the cursor (-1 if none).
func (p *Playlist) CurrentIndex() int {
	return p.current
}

// Track returns a copy of the track at index, or nil if out of bounds.
func (p *Playlist) Track(index int) *Track {
	if !p.validIndex(index) {
		return nil
	}
	t := p.tracks[index]
	return &t
}

// Tracks returns a copy of all tracks.
func (p *Playlist) Tracks() []Track {
	result := make([]Track, len(p.tracks))
	copy(result, p.tracks)
	return result
}

// IndexOf returns the index of the first track with the given path, or -1.
func (p *Playlist) IndexOf(path string) int {
	for i := range p.tracks {
		if p.tracks[i].Path == path {
			return i
		}
	}
	return -1
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.tracks)
}

// IsEmpty returns true if the playlist has no tracks.
func (p *Playlist) IsEmpty() bool {
	return len(p.tracks) == 0
}

// Loop reports whether the playlist wraps around at its ends.
func (p *Playlist) Loop() bool {
	return p.loop
}

// SetLoop enables or disables wraparound.
func (p *Playlist) SetLoop(enabled bool) {
	p.loop = enabled
}

// HasNext returns true if Next would land on a track.
func (p *Playlist) HasNext() bool {
	if len(p.tracks) == 0 {
		return false
	}
	return p.loop || p.current < len(p.tracks)-1
}

// HasPrevious returns true if Previous would land on a track.
func (p *Playlist) HasPrevious() bool {
	if len(p.tracks) == 0 {
		return false
	}
	return p.loop || p.current != 0
}

// Step returns the index reached by walking dir (+1 or -1) from the
// cursor, skipping tracks for which playable returns false. Without a
// cursor the walk starts before the first track (dir > 0) or after the
// last one (dir < 0). The walk wraps only when loop is enabled and visits
// each track at most once. Returns -1 when no track qualifies.
// The cursor itself is not moved.
func (p *Playlist) Step(dir int, playable func(Track) bool) int {
	n := len(p.tracks)
	if n == 0 {
		return -1
	}
	if dir >= 0 {
		dir = 1
	} else {
		dir = -1
	}

	idx := p.current
	if idx < 0 {
		if dir > 0 {
			idx = -1
		} else {
			idx = n
		}
	}

	for range n {
		idx += dir
		if idx < 0 || idx >= n {
			if !p.loop {
				return -1
			}
			idx = (idx + n) % n
		}
		if playable == nil || playable(p.tracks[idx]) {
			return idx
		}
	}
	return -1
}

func (p *Playlist) validIndex(index int) bool {
	return index >= 0 && index < len(p.tracks)
}
