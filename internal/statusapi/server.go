// Package statusapi serves read-only health, stats and lobby documents on a
// side port.
package statusapi

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/chess-duel/internal/duel"
	"github.com/park285/chess-duel/internal/lobby"
	"github.com/park285/chess-duel/pkg/chessdto"
)

// Sessions is the registry view the server reads.
type Sessions interface {
	Stats() duel.Stats
	Waiting() []duel.Snapshot
}

// Connections counts open websocket connections.
type Connections interface {
	Connections() int
}

// Lobby lists open games across every instance sharing the directory.
type Lobby interface {
	ListWaiting(ctx context.Context) ([]lobby.Meta, error)
}

type Server struct {
	sessions Sessions
	conns    Connections
	lobby    Lobby
	log      *zap.Logger
	timeout  time.Duration
	srv      *fasthttp.Server
}

type Option func(*Server)

// WithLobby makes /lobby read the shared directory instead of the local registry.
func WithLobby(l Lobby) Option { return func(s *Server) { s.lobby = l } }

func WithConnections(c Connections) Option { return func(s *Server) { s.conns = c } }

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

func New(sessions Sessions, opts ...Option) *Server {
	s := &Server{sessions: sessions, log: zap.NewNop(), timeout: 3 * time.Second}
	for _, o := range opts {
		o(s)
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handle,
		Name:         "chess-duel-status",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// Handle routes one request.
func (s *Server) Handle(ctx *fasthttp.RequestCtx) {
	if !ctx.IsGet() && !ctx.IsHead() {
		s.writeJSON(ctx, fasthttp.StatusMethodNotAllowed, chessdto.DomainError{Code: "method_not_allowed", Message: "GET only"})
		return
	}
	switch string(ctx.Path()) {
	case "/healthz":
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("ok")
	case "/stats":
		s.handleStats(ctx)
	case "/lobby":
		s.handleLobby(ctx)
	default:
		s.writeJSON(ctx, fasthttp.StatusNotFound, chessdto.DomainError{Code: "not_found", Message: "unknown path"})
	}
}

func (s *Server) handleStats(ctx *fasthttp.RequestCtx) {
	st := s.sessions.Stats()
	out := chessdto.ServerStats{
		Sessions: st.Sessions,
		Waiting:  st.Waiting,
		Active:   st.Active,
		Finished: st.Finished,
	}
	if s.conns != nil {
		out.Connections = s.conns.Connections()
	}
	s.writeJSON(ctx, fasthttp.StatusOK, out)
}

func (s *Server) handleLobby(ctx *fasthttp.RequestCtx) {
	entries := []chessdto.LobbyEntry{}
	if s.lobby != nil {
		c, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		metas, err := s.lobby.ListWaiting(c)
		if err != nil {
			s.log.Error("status_lobby_error", zap.Error(err))
			s.writeJSON(ctx, fasthttp.StatusServiceUnavailable, chessdto.DomainError{Code: "internal", Message: "lobby unavailable", Retryable: true})
			return
		}
		for _, m := range metas {
			entries = append(entries, chessdto.LobbyEntry{Code: m.Code, CreatedAt: m.CreatedAt})
		}
	} else {
		for _, snap := range s.sessions.Waiting() {
			entries = append(entries, chessdto.LobbyEntry{Code: snap.Code, CreatedAt: snap.CreatedAt})
		}
	}
	s.writeJSON(ctx, fasthttp.StatusOK, entries)
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.log.Error("status_encode_error", zap.Error(err))
		ctx.Error("internal error", fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// Serve blocks serving ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("status_listen", zap.String("addr", ln.Addr().String()))
	return s.srv.Serve(ln)
}

// ListenAndServe blocks serving addr until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}
