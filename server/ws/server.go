package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hisui-dev/watchparty/server/logging"
)

// Server accepts websocket connections and hands each one to the handler.
type Server struct {
	addr     string
	handler  *Handler
	upgrader websocket.Upgrader
	logger   logging.Logger
}

func NewServer(addr string, allowedOrigins []string, handler *Handler, logger logging.Logger) *Server {
	return &Server{
		addr:    addr,
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger.With("module", "ws_server"),
	}
}

// Run serves until ctx is canceled, then shuts the listener down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)

	srv := &http.Server{Addr: s.addr, Handler: mux}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "stopping websocket server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "starting websocket server", "address", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	conn := newConn(sock, s.handler, s.logger)
	s.logger.Info(r.Context(), "connection opened", "conn", conn.ID(), "remote", r.RemoteAddr)

	go conn.writePump()
	go conn.readPump(context.Background())
}

// originChecker accepts the configured origins; "*" accepts everything. A
// request without an Origin header (non-browser client) is accepted.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}
