package player

import (
	"math"

	"github.com/gopxl/beep/v2/speaker"
)

// SetVolume sets the volume level (0.0 to 1.0). The level is kept across
// tracks.
func (p *Player) SetVolume(level float64) {
	p.volumeLevel = ClampVolume(level)
	if p.volume == nil {
		return
	}
	if !p.playing {
		p.applyVolume()
		return
	}
	speaker.Lock()
	p.applyVolume()
	speaker.Unlock()
}

func (p *Player) applyVolume() {
	p.volume.Volume = levelToVolume(p.volumeLevel)
	p.volume.Silent = p.volumeLevel == 0
}

// Volume returns the current volume level (0.0 to 1.0).
func (p *Player) Volume() float64 {
	return p.volumeLevel
}

// ClampVolume limits level to [0,1]. NaN maps to 0.
func ClampVolume(level float64) float64 {
	if math.IsNaN(level) || level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}

// levelToVolume converts a 0.0-1.0 level to beep's base-2 Volume value.
// 1.0 -> 0, 0.5 -> -1, 0.25 -> -2, 0 -> -10 (essentially silent).
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}
