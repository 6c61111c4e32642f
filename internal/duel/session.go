package duel

import (
	"sync"
	"time"

	"github.com/park285/chess-duel/internal/board"
	"github.com/park285/chess-duel/internal/rules"
)

// Status represents a session lifecycle state.
type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
)

// Captured lists removed pieces per owning color, in removal order.
type Captured struct {
	White []board.Kind
	Black []board.Kind
}

func (c Captured) clone() Captured {
	return Captured{
		White: append([]board.Kind{}, c.White...),
		Black: append([]board.Kind{}, c.Black...),
	}
}

func (c *Captured) add(p board.Piece) {
	if p.Color == board.White {
		c.White = append(c.White, p.Kind)
		return
	}
	c.Black = append(c.Black, p.Kind)
}

// Session is one game addressed by its join code. Fields are only touched while
// the owning Registry holds the session lock; code outside this package sees a
// *Session exclusively inside registry callbacks.
type Session struct {
	Code  string
	White string
	Black string

	Board    board.Board
	Turn     board.Color
	Status   Status
	Winner   rules.Winner
	Reason   rules.State
	History  []board.Move
	Captured Captured

	CreatedAt time.Time
	StartedAt time.Time // start of the current game; zero while WAITING
	UpdatedAt time.Time

	mu      sync.Mutex
	removed bool
}

func newSession(code, creator string, now time.Time) *Session {
	return &Session{
		Code:      code,
		White:     creator,
		Board:     board.Initial(),
		Turn:      board.White,
		Status:    StatusWaiting,
		Captured:  Captured{White: []board.Kind{}, Black: []board.Kind{}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Seat returns the color conn plays. A connection seated on both sides (it
// joined its own game) plays whichever side is on move.
func (s *Session) Seat(conn string) (board.Color, bool) {
	switch {
	case conn == "":
		return board.White, false
	case conn == s.White && conn == s.Black:
		return s.Turn, true
	case conn == s.White:
		return board.White, true
	case conn == s.Black:
		return board.Black, true
	}
	return board.White, false
}

// Opponent returns the other seat's connection, or "" when the seat is empty.
func (s *Session) Opponent(conn string) string {
	if conn == s.White {
		return s.Black
	}
	if conn == s.Black {
		return s.White
	}
	return ""
}

// MoveResult is what a committed move reports back to both players.
type MoveResult struct {
	Board       board.Board
	Turn        board.Color
	Move        board.Move
	InCheck     bool
	Captured    Captured
	WasCaptured bool
	Outcome     rules.Outcome
}

// Terminal reports whether the move ended the game.
func (r *MoveResult) Terminal() bool { return r.Outcome.State.Terminal() }

// AttemptMove validates the requested move on a candidate board and commits it
// only when every check passes. A rejected attempt leaves the session exactly as
// it was.
func (s *Session) AttemptMove(requester string, from, to board.Square, now time.Time) (*MoveResult, error) {
	color, seated := s.Seat(requester)
	if !seated || s.Status != StatusActive || color != s.Turn {
		return nil, ErrNotYourTurn
	}
	if !from.Valid() || !to.Valid() {
		return nil, ErrIllegalMove
	}
	piece := s.Board.At(from)
	if piece.Empty() || piece.Color != color {
		return nil, ErrIllegalMove
	}
	mv, ok := rules.Find(s.Board, from, to)
	if !ok {
		return nil, ErrIllegalMove
	}

	candidate := s.Board.Apply(mv)
	if rules.IsInCheck(candidate, color) {
		return nil, ErrSelfCheck
	}

	// commit
	victim := s.Board.At(to)
	s.Board = candidate
	s.History = append(s.History, mv)
	if !victim.Empty() {
		s.Captured.add(victim)
	}
	s.Turn = color.Opposite()
	s.UpdatedAt = now

	outcome := rules.Evaluate(s.Board, s.Turn)
	if outcome.State.Terminal() {
		s.Status = StatusFinished
		s.Winner = outcome.Winner
		s.Reason = outcome.State
	}

	return &MoveResult{
		Board:       s.Board,
		Turn:        s.Turn,
		Move:        mv,
		InCheck:     rules.IsInCheck(s.Board, s.Turn),
		Captured:    s.Captured.clone(),
		WasCaptured: !victim.Empty(),
		Outcome:     outcome,
	}, nil
}

// Restart puts the pieces back and clears the result. Seats are kept. A session
// whose black seat is still empty stays WAITING.
func (s *Session) Restart(now time.Time) {
	s.Board = board.Initial()
	s.Turn = board.White
	s.Status = StatusActive
	s.StartedAt = now
	if s.Black == "" {
		s.Status = StatusWaiting
		s.StartedAt = time.Time{}
	}
	s.Winner = rules.WinnerNone
	s.Reason = ""
	s.History = nil
	s.Captured = Captured{White: []board.Kind{}, Black: []board.Kind{}}
	s.UpdatedAt = now
}

// Snapshot is a detached copy of a session.
type Snapshot struct {
	Code      string
	White     string
	Black     string
	Board     board.Board
	Turn      board.Color
	Status    Status
	Winner    rules.Winner
	Reason    rules.State
	History   []board.Move
	Captured  Captured
	CreatedAt time.Time
	StartedAt time.Time
	UpdatedAt time.Time
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Code:      s.Code,
		White:     s.White,
		Black:     s.Black,
		Board:     s.Board,
		Turn:      s.Turn,
		Status:    s.Status,
		Winner:    s.Winner,
		Reason:    s.Reason,
		History:   append([]board.Move{}, s.History...),
		Captured:  s.Captured.clone(),
		CreatedAt: s.CreatedAt,
		StartedAt: s.StartedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
