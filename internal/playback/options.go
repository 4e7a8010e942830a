package playback

import "time"

// Defaults for Options.
const (
	DefaultTickInterval = 100 * time.Millisecond
	DefaultQueueSize    = 64
	DefaultSaveDebounce = 500 * time.Millisecond
	DefaultVolume       = 0.7
)

// Options configures a Coordinator. Zero values select the defaults.
type Options struct {
	TickInterval     time.Duration
	QueueSize        int
	SubscriberBuffer int
	SaveDebounce     time.Duration
	// Volume is the initial volume level, clamped to [0,1]. Nil selects
	// DefaultVolume; a saved level of 0 starts muted.
	Volume *float64
	// CleanupOnLoad removes tracks whose file is missing after loading.
	CleanupOnLoad bool
	Policy        ErrorPolicy
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.SubscriberBuffer <= 0 {
		o.SubscriberBuffer = DefaultSubscriberBuffer
	}
	if o.SaveDebounce <= 0 {
		o.SaveDebounce = DefaultSaveDebounce
	}
	v := DefaultVolume
	if o.Volume != nil {
		v = min(max(*o.Volume, 0), 1)
	}
	o.Volume = &v
	return o
}
