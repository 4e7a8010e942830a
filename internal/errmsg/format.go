// Package errmsg builds the error text shown to users.
package errmsg

import "fmt"

// Op names the user action that failed, phrased to follow "Failed to".
type Op string

const (
	OpPlaylistLoad    Op = "load playlist"
	OpPlaylistSave    Op = "save playlist"
	OpPlaylistAdd     Op = "add track to playlist"
	OpPlaylistRemove  Op = "remove track from playlist"
	OpPlaylistBackup  Op = "back up playlist"
	OpPlaylistRestore Op = "restore playlist"
	OpPlaylistClean   Op = "clean playlist"

	OpTrackLoad   Op = "load track"
	OpTrackDecode Op = "decode track"
	OpControl     Op = "control playback"

	OpLastfmAuth   Op = "authenticate with Last.fm"
	OpServerListen Op = "start control server"
	OpMPRISStart   Op = "start MPRIS"
	OpRemoteSend   Op = "send remote command"
	OpInitialize   Op = "initialize application"
)

// Format returns "Failed to <op>: <err>", or "" for a nil err.
func Format(op Op, err error) string {
	return FormatWith(op, "", err)
}

// FormatWith is Format with the subject of the operation, usually a path
// or an action name, quoted after op.
func FormatWith(op Op, subject string, err error) string {
	if err == nil {
		return ""
	}
	if subject == "" {
		return fmt.Sprintf("Failed to %s: %v", op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, subject, err)
}

// Error carries the user-facing text while keeping the cause for
// errors.Is.
type Error struct {
	Op      Op
	Subject string
	Err     error
}

// Wrap returns err as an *Error for op, or nil for a nil err.
func Wrap(op Op, err error) error {
	return WrapWith(op, "", err)
}

// WrapWith is Wrap with a subject.
func WrapWith(op Op, subject string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Subject: subject, Err: err}
}

func (e *Error) Error() string { return FormatWith(e.Op, e.Subject, e.Err) }

func (e *Error) Unwrap() error { return e.Err }
