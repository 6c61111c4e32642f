package rules

import "github.com/park285/chess-duel/internal/board"

// State is the game-end classification of a position for the side to move.
type State string

const (
	InProgress State = "in_progress"
	Checkmate  State = "checkmate"
	Stalemate  State = "stalemate"
)

func (s State) Terminal() bool { return s == Checkmate || s == Stalemate }

// Winner of a finished game. Empty while the game is running.
type Winner string

const (
	WinnerNone  Winner = ""
	WinnerWhite Winner = "white"
	WinnerBlack Winner = "black"
	WinnerDraw  Winner = "draw"
)

func WinnerOf(c board.Color) Winner {
	if c == board.Black {
		return WinnerBlack
	}
	return WinnerWhite
}

// Outcome pairs a State with its Winner.
type Outcome struct {
	State  State
	Winner Winner
}

// LeavesKingSafe reports whether playing m keeps the mover's king out of check.
func LeavesKingSafe(b board.Board, m board.Move) bool {
	mover := b.At(m.From).Color
	return !IsInCheck(b.Apply(m), mover)
}

// LegalMoves is PseudoLegalMoves minus self-check.
func LegalMoves(b board.Board, from board.Square) []board.Move {
	pseudo := PseudoLegalMoves(b, from)
	out := pseudo[:0]
	for _, m := range pseudo {
		if LeavesKingSafe(b, m) {
			out = append(out, m)
		}
	}
	return out
}

// HasLegalMove reports whether c has at least one move that does not leave its
// own king in check. It stops at the first one found.
func HasLegalMove(b board.Board, c board.Color) bool {
	for _, from := range b.Squares(c) {
		for _, m := range PseudoLegalMoves(b, from) {
			if LeavesKingSafe(b, m) {
				return true
			}
		}
	}
	return false
}

// Evaluate classifies the position with toMove on move.
func Evaluate(b board.Board, toMove board.Color) Outcome {
	if HasLegalMove(b, toMove) {
		return Outcome{State: InProgress}
	}
	if IsInCheck(b, toMove) {
		return Outcome{State: Checkmate, Winner: WinnerOf(toMove.Opposite())}
	}
	return Outcome{State: Stalemate, Winner: WinnerDraw}
}
