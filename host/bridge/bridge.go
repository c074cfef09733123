// Package bridge exposes the line protocol over WebSocket. Each text message
// from a client is one command line; the bridge answers with one text
// message per reply line, informational lines first.
package bridge

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"monoctl/host/mono"
)

// Commander runs one command line to completion
type Commander interface {
	Command(ctx context.Context, line string) (mono.Reply, error)
}

// Server is an http.Handler that upgrades to WebSocket
type Server struct {
	device     Commander
	upgrader   websocket.Upgrader
	log        zerolog.Logger
	timeout    time.Duration
	nextClient int64
}

// NewServer creates a bridge to device. timeout bounds each command.
func NewServer(device Commander, timeout time.Duration, log zerolog.Logger) *Server {
	return &Server{
		device:  device,
		timeout: timeout,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP handles one WebSocket client until it disconnects
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	id := atomic.AddInt64(&s.nextClient, 1)
	log := s.log.With().Int64("client", id).Str("remote", r.RemoteAddr).Logger()
	log.Info().Msg("client connected")
	defer log.Info().Msg("client disconnected")

	conn.SetReadLimit(4096)
	for {
		kind, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		for _, line := range strings.Split(string(message), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if err := s.relay(r.Context(), conn, line); err != nil {
				log.Warn().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

// relay runs one command and writes its reply lines back
func (s *Server) relay(ctx context.Context, conn *websocket.Conn, line string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	reply, err := s.device.Command(ctx, line)
	lines := append(reply.Info, reply.Status)
	if reply.Status == "" {
		// No terminal line arrived
		lines = append(reply.Info, "BRIDGE,"+errText(err))
	}

	for _, l := range lines {
		if werr := conn.WriteMessage(websocket.TextMessage, []byte(l)); werr != nil {
			return werr
		}
	}
	return nil
}

func errText(err error) string {
	switch {
	case err == nil:
		return "NO_REPLY"
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	case errors.Is(err, mono.ErrClosed):
		return "DISCONNECTED"
	}
	return "FAILED"
}
