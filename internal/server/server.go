// Package server pushes coordinator events to WebSocket clients and accepts
// commands from them.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/llehouerou/wavesd/internal/playback"
)

const (
	writeTimeout   = 5 * time.Second
	commandTimeout = 10 * time.Second
	maxFrameSize   = 64 << 10
)

// Controller is the coordinator surface used by the server.
type Controller interface {
	Subscribe(name string) *playback.Subscription
	Unsubscribe(sub *playback.Subscription)
	Snapshot() playback.Snapshot
	Submit(ctx context.Context, cmd playback.Command) error
}

// Server serves the event stream on /ws and the current state on
// /api/state.
type Server struct {
	ctrl   Controller
	logger zerolog.Logger
	mux    *http.ServeMux
}

// New creates a server for ctrl.
func New(ctrl Controller, logger zerolog.Logger) *Server {
	s := &Server{
		ctrl:   ctrl,
		logger: logger.With().Str("component", "server").Logger(),
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /ws", s.handleWS)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("shutdown")
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.ctrl.Snapshot()); err != nil {
		s.logger.Warn().Err(err).Msg("encode state")
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("ws accept failed")
		return
	}
	conn.SetReadLimit(maxFrameSize)

	id := uuid.NewString()
	logger := s.logger.With().Str("conn", id).Str("remote", r.RemoteAddr).Logger()
	sub := s.ctrl.Subscribe("ws-" + id)
	defer s.ctrl.Unsubscribe(sub)
	logger.Info().Msg("client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		s.readLoop(ctx, conn, logger)
	}()

	status, reason := s.writeLoop(ctx, conn, sub, logger)
	if sub.Dropped() > 0 {
		logger.Info().Uint64("dropped", sub.Dropped()).Msg("client was slow")
	}
	logger.Info().Msg("client disconnected")
	_ = conn.Close(status, reason)
}

// writeLoop forwards events until the subscription ends or the client
// goes away.
func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, sub *playback.Subscription, logger zerolog.Logger) (websocket.StatusCode, string) {
	for {
		select {
		case <-ctx.Done():
			return websocket.StatusNormalClosure, "done"
		case ev, ok := <-sub.Events():
			if !ok {
				return websocket.StatusGoingAway, "shutting down"
			}
			frame, err := EncodeEvent(ev)
			if err != nil {
				logger.Error().Err(err).Msg("encode event")
				continue
			}
			if err := write(ctx, conn, frame); err != nil {
				logger.Debug().Err(err).Msg("ws write")
				return websocket.StatusInternalError, "write failed"
			}
		}
	}
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, logger zerolog.Logger) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				logger.Debug().Err(err).Msg("ws read")
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		reply := s.dispatch(ctx, data, logger)
		frame, err := json.Marshal(reply)
		if err != nil {
			logger.Error().Err(err).Msg("encode reply")
			continue
		}
		if err := write(ctx, conn, frame); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, data []byte, logger zerolog.Logger) Reply {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Reply{Type: TypeReply, Error: "invalid request: " + err.Error()}
	}
	reply := Reply{Type: TypeReply, ID: req.ID, Action: req.Action}

	cmd, err := req.Command()
	if err != nil {
		reply.Error = err.Error()
		return reply
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := s.ctrl.Submit(ctx, cmd); err != nil {
		logger.Debug().Err(err).Stringer("cmd", cmd).Msg("command failed")
		reply.Error = err.Error()
		return reply
	}
	reply.OK = true
	return reply
}

func write(ctx context.Context, conn *websocket.Conn, frame []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, frame)
}
