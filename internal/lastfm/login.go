package lastfm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"
)

// AuthTimeout bounds how long Login waits for the user to authorize.
const AuthTimeout = 5 * time.Minute

var (
	ErrAuthTimeout = errors.New("authorization timed out")
	ErrNoToken     = errors.New("no token received")
)

// Authorizer is the part of the API used by the desktop auth flow.
type Authorizer interface {
	Token() (string, error)
	AuthURL(token, callback string) string
	Exchange(token string) (Session, error)
}

const callbackPage = `<!DOCTYPE html>
<html><head><title>wavesd</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 50px;">
<h1>%s</h1><p>%s</p></body></html>`

// openBrowser is replaced in tests.
var openBrowser = func(u string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", u)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", u)
	default:
		cmd = exec.Command("xdg-open", u)
	}
	return cmd.Start()
}

// Login runs the desktop authorization flow. It shows the authorization
// page through prompt (and tries a browser), waits for Last.fm to redirect
// to a callback server on the loopback interface, then exchanges the
// token for a session.
func Login(ctx context.Context, a Authorizer, prompt func(authURL string)) (Session, error) {
	token, err := a.Token()
	if err != nil {
		return Session{}, err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return Session{}, fmt.Errorf("listen for callback: %w", err)
	}
	tokens := make(chan string, 1)
	srv := &http.Server{
		Handler:           callbackHandler(tokens),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	authURL := a.AuthURL(token, "http://"+ln.Addr().String()+"/callback")
	prompt(authURL)
	_ = openBrowser(authURL)

	token, err = WaitForToken(ctx, tokens, AuthTimeout)
	if err != nil {
		return Session{}, err
	}
	return a.Exchange(token)
}

func callbackHandler(tokens chan<- string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		w.Header().Set("Content-Type", "text/html")
		if token != "" {
			fmt.Fprintf(w, callbackPage, "Authorized", "You can close this window.")
		} else {
			fmt.Fprintf(w, callbackPage, "Authorization failed", "No token received.")
		}
		select {
		case tokens <- token:
		default:
		}
	})
	return mux
}

// WaitForToken waits for the callback to deliver a token.
func WaitForToken(ctx context.Context, tokens <-chan string, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case token := <-tokens:
		if token == "" {
			return "", ErrNoToken
		}
		return token, nil
	case <-timer.C:
		return "", ErrAuthTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
