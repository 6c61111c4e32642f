package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-duel/internal/duel"
	"github.com/park285/chess-duel/internal/msgcat"
	"github.com/park285/chess-duel/pkg/chessdto"
)

// Publisher delivers frames to connections and rooms.
type Publisher interface {
	Subscribe(code, connID string)
	DropRoom(code string)
	Unicast(connID, event string, payload any) bool
	Multicast(code, event string, payload any) int
}

// Archiver stores finished games.
type Archiver interface {
	Archive(ctx context.Context, snap duel.Snapshot) error
}

var errBadRequest = errors.New("bad request")

// Handler binds inbound events to the session registry. Every broadcast is
// issued from inside the registry's critical section for the session, so both
// players see events in commit order.
type Handler struct {
	reg     *duel.Registry
	pub     Publisher
	cat     *msgcat.Catalog
	arch    Archiver
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

type Option func(*Handler)

func WithCatalog(c *msgcat.Catalog) Option { return func(h *Handler) { h.cat = c } }

func WithArchiver(a Archiver) Option { return func(h *Handler) { h.arch = a } }

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithArchiveTimeout bounds a single archive write.
func WithArchiveTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func New(reg *duel.Registry, pub Publisher, opts ...Option) *Handler {
	h := &Handler{reg: reg, pub: pub, log: zap.NewNop(), timeout: 10 * time.Second}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Dispatch routes one inbound frame.
func (h *Handler) Dispatch(ctx context.Context, connID string, env chessdto.Envelope) {
	switch env.Event {
	case chessdto.EventCreateGame:
		h.CreateGame(ctx, connID)
	case chessdto.EventJoinGame:
		var req chessdto.CodeRequest
		if err := decode(env.Data, &req); err != nil || req.Validate() != nil {
			h.badRequest(connID, env.Event)
			return
		}
		h.JoinGame(ctx, connID, req.Code)
	case chessdto.EventMakeMove:
		var req chessdto.MoveRequest
		if err := decode(env.Data, &req); err != nil || req.Code == "" {
			h.badRequest(connID, env.Event)
			return
		}
		h.MakeMove(ctx, connID, req)
	case chessdto.EventRestartGame:
		var req chessdto.CodeRequest
		if err := decode(env.Data, &req); err != nil || req.Validate() != nil {
			return
		}
		h.RestartGame(ctx, connID, req.Code)
	default:
		h.badRequest(connID, env.Event)
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errBadRequest
	}
	return json.Unmarshal(raw, v)
}

// CreateGame opens a session with connID on white.
func (h *Handler) CreateGame(ctx context.Context, connID string) {
	_, err := h.reg.Create(ctx, connID, func(s *duel.Session) {
		h.pub.Subscribe(s.Code, connID)
		h.pub.Unicast(connID, chessdto.EventGameCreated, chessdto.Seat{Code: s.Code, Color: "white"})
	})
	if err != nil {
		h.log.Error("duel_create_error", zap.String("conn_id", connID), zap.Error(err))
		h.fail(connID, err)
	}
}

// JoinGame seats connID on black and starts the game for both seats.
func (h *Handler) JoinGame(ctx context.Context, connID, code string) {
	_, err := h.reg.Join(ctx, code, connID, func(s *duel.Session) {
		h.pub.Subscribe(s.Code, connID)
		h.pub.Unicast(connID, chessdto.EventGameJoined, chessdto.Seat{Code: s.Code, Color: "black"})
		h.pub.Multicast(s.Code, chessdto.EventGameStart, gameStart(s))
	})
	if err != nil {
		h.log.Debug("duel_join_rejected", zap.String("conn_id", connID), zap.String("code", code), zap.Error(err))
		h.fail(connID, err)
	}
}

// MakeMove validates and commits a move, then broadcasts move-made or game-over.
func (h *Handler) MakeMove(ctx context.Context, connID string, req chessdto.MoveRequest) {
	var finished *duel.Snapshot
	res, err := h.reg.Move(req.Code, connID, fromWireSquare(req.From), fromWireSquare(req.To), func(s *duel.Session, res *duel.MoveResult) {
		if res.Terminal() {
			h.pub.Multicast(s.Code, chessdto.EventGameOver, gameOver(res))
			snap := s.Snapshot()
			finished = &snap
			return
		}
		h.pub.Multicast(s.Code, chessdto.EventMoveMade, moveMade(res))
	})
	if err != nil {
		h.log.Debug("duel_move_rejected",
			zap.String("conn_id", connID),
			zap.String("code", req.Code),
			zap.String("from", fromWireSquare(req.From).Algebraic()),
			zap.String("to", fromWireSquare(req.To).Algebraic()),
			zap.Error(err))
		h.fail(connID, err)
		return
	}
	h.log.Debug("duel_move", zap.String("code", req.Code), zap.String("move", res.Move.UCI()))
	if finished != nil {
		h.log.Info("duel_game_over",
			zap.String("code", finished.Code),
			zap.String("winner", string(finished.Winner)),
			zap.String("reason", string(finished.Reason)),
			zap.Int("plies", len(finished.History)))
		h.archive(*finished)
	}
}

// RestartGame resets the session under code. Unknown codes are ignored.
func (h *Handler) RestartGame(ctx context.Context, connID, code string) {
	_, err := h.reg.Restart(code, func(s *duel.Session) {
		h.pub.Multicast(s.Code, chessdto.EventGameRestarted, gameRestarted(s))
	})
	if err != nil {
		h.log.Debug("duel_restart_ignored", zap.String("conn_id", connID), zap.String("code", code), zap.Error(err))
		return
	}
	h.log.Info("duel_restart", zap.String("code", duel.NormalizeCode(code)), zap.String("conn_id", connID))
}

// Disconnect tells each remaining opponent and removes every session connID
// was seated in.
func (h *Handler) Disconnect(ctx context.Context, connID string) {
	removed := h.reg.RemoveByConnection(ctx, connID, func(s *duel.Session) {
		if other := s.Opponent(connID); other != "" && other != connID {
			h.pub.Unicast(other, chessdto.EventPlayerDisconnected, chessdto.PlayerDisconnected{Code: s.Code})
		}
		h.pub.DropRoom(s.Code)
	})
	if len(removed) > 0 {
		h.log.Info("duel_player_disconnected", zap.String("conn_id", connID), zap.Int("sessions", len(removed)))
	}
}

// Wait blocks until pending archive writes finish or ctx ends.
func (h *Handler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (h *Handler) archive(snap duel.Snapshot) {
	if h.arch == nil {
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()
		if err := h.arch.Archive(ctx, snap); err != nil {
			h.log.Error("archive_persist_error", zap.String("code", snap.Code), zap.Error(err))
		}
	}()
}

func (h *Handler) fail(connID string, err error) {
	code := duel.Code(err)
	h.pub.Unicast(connID, chessdto.EventError, chessdto.DomainError{
		Code:      code,
		Message:   h.cat.Error(code, nil, err.Error()),
		Retryable: code == "internal",
	})
}

func (h *Handler) badRequest(connID, event string) {
	h.pub.Unicast(connID, chessdto.EventError, chessdto.DomainError{
		Code:    "bad_request",
		Message: h.cat.Error("bad_request", map[string]any{"Event": event}, "malformed request"),
	})
}
