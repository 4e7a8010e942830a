// Package lastfm scrobbles played tracks to Last.fm.
package lastfm

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/shkh/lastfm-go/lastfm"
)

const authEndpoint = "https://www.last.fm/api/auth/"

// ErrNotAuthenticated is returned by API calls made without a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// Session is a linked Last.fm account.
type Session struct {
	Username string
	Key      string
}

// Client talks to the Last.fm API with one set of application credentials.
type Client struct {
	api    *lastfm.Api
	apiKey string
	authed bool
}

var (
	_ API        = (*Client)(nil)
	_ Authorizer = (*Client)(nil)
)

// New creates a client without a session.
func New(apiKey, apiSecret string) *Client {
	return &Client{api: lastfm.New(apiKey, apiSecret), apiKey: apiKey}
}

// UseSession authenticates later calls with a stored session key.
func (c *Client) UseSession(key string) {
	c.api.SetSession(key)
	c.authed = key != ""
}

// Token requests an unauthorized request token.
func (c *Client) Token() (string, error) {
	token, err := c.api.GetToken()
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	return token, nil
}

// AuthURL is the page where the user authorizes token. Last.fm redirects
// to callback afterwards when it is set.
func (c *Client) AuthURL(token, callback string) string {
	q := url.Values{"api_key": {c.apiKey}, "token": {token}}
	if callback != "" {
		q.Set("cb", callback)
	}
	return authEndpoint + "?" + q.Encode()
}

// Exchange trades an authorized token for a session and authenticates the
// client with it.
func (c *Client) Exchange(token string) (Session, error) {
	if err := c.api.LoginWithToken(token); err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	c.authed = true
	sess := Session{Key: c.api.GetSessionKey(), Username: "unknown"}

	// The profile is cosmetic; the session is valid without it.
	if info, err := c.api.User.GetInfo(nil); err == nil {
		sess.Username = info.Name
	}
	return sess, nil
}

// UpdateNowPlaying announces the track that just started.
func (c *Client) UpdateNowPlaying(track ScrobbleTrack) error {
	if !c.authed {
		return ErrNotAuthenticated
	}
	if _, err := c.api.Track.UpdateNowPlaying(track.params(false)); err != nil {
		return fmt.Errorf("update now playing: %w", err)
	}
	return nil
}

// Scrobble records a finished play.
func (c *Client) Scrobble(track ScrobbleTrack) error {
	if !c.authed {
		return ErrNotAuthenticated
	}
	if _, err := c.api.Track.Scrobble(track.params(true)); err != nil {
		return fmt.Errorf("scrobble: %w", err)
	}
	return nil
}

func (t ScrobbleTrack) params(withTimestamp bool) lastfm.P {
	p := lastfm.P{"artist": t.Artist, "track": t.Track}
	if withTimestamp {
		p["timestamp"] = t.Timestamp.Unix()
	}
	if t.Album != "" {
		p["album"] = t.Album
	}
	if t.Duration > 0 {
		p["duration"] = int(t.Duration.Seconds())
	}
	return p
}
