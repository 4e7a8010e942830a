// Package notify sends freedesktop desktop notifications for playback
// events.
package notify

// Urgency is the freedesktop urgency hint.
type Urgency byte

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// Notification is one desktop notification.
type Notification struct {
	Title string
	Body  string
	// Icon is an image path or a themed icon name.
	Icon string
	// Timeout in milliseconds; -1 leaves it to the server.
	Timeout int32
	// ReplacesID updates an existing notification in place when non-zero.
	ReplacesID uint32
	Urgency    Urgency
}

// Notifier delivers notifications.
type Notifier interface {
	// Notify shows n and returns the id the server assigned to it.
	Notify(n Notification) (uint32, error)
	Close(id uint32) error
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(Notification) (uint32, error) { return 0, nil }
func (Nop) Close(uint32) error                  { return nil }
