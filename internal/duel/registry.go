package duel

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-duel/internal/board"
	"github.com/park285/chess-duel/internal/obslog"
)

// Hook runs inside a session's critical section, after the change and before
// the lock is released. Broadcasts issued from a hook are ordered the same way
// the changes were committed.
type Hook func(*Session)

// Registry owns every live session. Lock order: the registry lock may be taken
// while a session lock is held, never the other way round except on a session
// nobody else can reach yet.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	seats    map[string]map[string]struct{} // connection -> codes

	dir    Directory
	random io.Reader
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Registry)

// WithDirectory shares code ownership through d.
func WithDirectory(d Directory) Option {
	return func(r *Registry) {
		if d != nil {
			r.dir = d
		}
	}
}

// WithRandom replaces the code entropy source.
func WithRandom(src io.Reader) Option {
	return func(r *Registry) {
		if src != nil {
			r.random = src
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func WithLogger(l *zap.Logger) Option { return func(r *Registry) { r.logger = l } }

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		seats:    make(map[string]map[string]struct{}),
		dir:      localDirectory{},
		random:   rand.Reader,
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Registry) log() *zap.Logger {
	if r.logger != nil {
		return r.logger
	}
	return obslog.L()
}

func run(then Hook, s *Session) {
	if then != nil {
		then(s)
	}
}

// finish runs then on a locked session and releases it.
func (r *Registry) finish(s *Session, then Hook) Snapshot {
	defer s.mu.Unlock()
	run(then, s)
	return s.Snapshot()
}

// Create opens a WAITING session with creator on white and returns it under a
// fresh code.
func (r *Registry) Create(ctx context.Context, creator string, then Hook) (Snapshot, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}
		code, err := newCode(r.random)
		if err != nil {
			return Snapshot{}, err
		}
		ok, err := r.dir.Reserve(ctx, code, creator)
		if err != nil {
			return Snapshot{}, fmt.Errorf("reserve code: %w", err)
		}
		if !ok {
			continue
		}

		r.mu.Lock()
		if _, taken := r.sessions[code]; taken {
			r.mu.Unlock()
			continue
		}
		s := newSession(code, creator, r.now())
		// unreachable until the map insert below, so this never blocks
		s.mu.Lock()
		r.sessions[code] = s
		r.index(creator, code)
		r.mu.Unlock()

		snap := r.finish(s, then)
		r.log().Info("duel_create", zap.String("code", code), zap.String("white", creator))
		return snap, nil
	}
}

// Join seats requester on black and starts the game.
func (r *Registry) Join(ctx context.Context, code, requester string, then Hook) (Snapshot, error) {
	code = NormalizeCode(code)
	s := r.lookup(code)
	if s == nil {
		return Snapshot{}, ErrSessionNotFound
	}
	snap, err := func() (Snapshot, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.removed {
			return Snapshot{}, ErrSessionNotFound
		}
		if s.Black != "" {
			return Snapshot{}, ErrSessionFull
		}
		s.Black = requester
		s.Status = StatusActive
		s.StartedAt = r.now()
		s.UpdatedAt = s.StartedAt

		r.mu.Lock()
		r.index(requester, code)
		r.mu.Unlock()

		run(then, s)
		return s.Snapshot(), nil
	}()
	if err != nil {
		return Snapshot{}, err
	}

	if err := r.dir.MarkStarted(ctx, code); err != nil {
		r.log().Warn("duel_lobby_update_failed", zap.String("code", code), zap.Error(err))
	}
	r.log().Info("duel_join", zap.String("code", code), zap.String("black", requester))
	return snap, nil
}

// Do runs fn with exclusive access to the session under code.
func (r *Registry) Do(code string, fn func(*Session) error) error {
	s := r.lookup(NormalizeCode(code))
	if s == nil {
		return ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return ErrSessionNotFound
	}
	return fn(s)
}

// Move attempts a move for requester. then sees the committed session and the
// result; it is not called on rejection.
func (r *Registry) Move(code, requester string, from, to board.Square, then func(*Session, *MoveResult)) (*MoveResult, error) {
	var res *MoveResult
	err := r.Do(code, func(s *Session) error {
		var err error
		res, err = s.AttemptMove(requester, from, to, r.now())
		if err != nil {
			return err
		}
		if then != nil {
			then(s, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Restart resets the game under code.
func (r *Registry) Restart(code string, then Hook) (Snapshot, error) {
	var snap Snapshot
	err := r.Do(code, func(s *Session) error {
		s.Restart(r.now())
		run(then, s)
		snap = s.Snapshot()
		return nil
	})
	return snap, err
}

// Get returns a snapshot of the session under code.
func (r *Registry) Get(code string) (Snapshot, error) {
	var snap Snapshot
	err := r.Do(code, func(s *Session) error {
		snap = s.Snapshot()
		return nil
	})
	return snap, err
}

// Remove deletes the session under code. then runs once, before any later
// operation on the code can observe the removal.
func (r *Registry) Remove(ctx context.Context, code string, then Hook) (Snapshot, error) {
	code = NormalizeCode(code)
	r.mu.Lock()
	s, ok := r.sessions[code]
	if ok {
		delete(r.sessions, code)
	}
	r.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}

	snap, err := func() (Snapshot, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.removed {
			return Snapshot{}, ErrSessionNotFound
		}
		s.removed = true
		run(then, s)
		return s.Snapshot(), nil
	}()
	if err != nil {
		return Snapshot{}, err
	}

	r.mu.Lock()
	r.unindex(snap.White, code)
	r.unindex(snap.Black, code)
	r.mu.Unlock()

	if err := r.dir.Release(ctx, code); err != nil {
		r.log().Warn("duel_release_failed", zap.String("code", code), zap.Error(err))
	}
	r.log().Info("duel_remove", zap.String("code", code), zap.String("status", string(snap.Status)))
	return snap, nil
}

// RemoveByConnection removes every session conn is seated in.
func (r *Registry) RemoveByConnection(ctx context.Context, conn string, then Hook) []Snapshot {
	r.mu.RLock()
	codes := make([]string, 0, len(r.seats[conn]))
	for code := range r.seats[conn] {
		codes = append(codes, code)
	}
	r.mu.RUnlock()
	sort.Strings(codes)

	var out []Snapshot
	for _, code := range codes {
		snap, err := r.Remove(ctx, code, then)
		if err != nil {
			continue
		}
		out = append(out, snap)
	}
	return out
}

// Stats counts live sessions by status.
type Stats struct {
	Sessions int `json:"sessions"`
	Waiting  int `json:"waiting"`
	Active   int `json:"active"`
	Finished int `json:"finished"`
}

func (r *Registry) Stats() Stats {
	var st Stats
	for _, s := range r.all() {
		s.mu.Lock()
		if !s.removed {
			st.Sessions++
			switch s.Status {
			case StatusWaiting:
				st.Waiting++
			case StatusActive:
				st.Active++
			case StatusFinished:
				st.Finished++
			}
		}
		s.mu.Unlock()
	}
	return st
}

// Waiting lists sessions that still have an open black seat, oldest first.
func (r *Registry) Waiting() []Snapshot {
	var out []Snapshot
	for _, s := range r.all() {
		s.mu.Lock()
		if !s.removed && s.Black == "" {
			out = append(out, s.Snapshot())
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *Registry) lookup(code string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[code]
}

// all copies the session set so callers can lock sessions without holding r.mu.
func (r *Registry) all() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// caller holds r.mu
func (r *Registry) index(conn, code string) {
	if conn == "" {
		return
	}
	set, ok := r.seats[conn]
	if !ok {
		set = make(map[string]struct{})
		r.seats[conn] = set
	}
	set[code] = struct{}{}
}

// caller holds r.mu
func (r *Registry) unindex(conn, code string) {
	set, ok := r.seats[conn]
	if !ok {
		return
	}
	delete(set, code)
	if len(set) == 0 {
		delete(r.seats, conn)
	}
}
