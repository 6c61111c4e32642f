package duel

import "errors"

// Request rejections. All are recoverable and leave session state untouched.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionFull     = errors.New("session already has two players")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrIllegalMove     = errors.New("illegal move")
	ErrSelfCheck       = errors.New("move leaves own king in check")
)

// Code maps a rejection to its stable wire code. Unknown errors map to "internal".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrSessionFull):
		return "session_full"
	case errors.Is(err, ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, ErrIllegalMove):
		return "illegal_move"
	case errors.Is(err, ErrSelfCheck):
		return "self_check"
	}
	return "internal"
}
