package rules

import (
	"fmt"

	"github.com/park285/chess-duel/internal/board"
)

// KingMissingError is raised (as a panic value) when a position has no king for
// the side being examined. Live sessions never reach such a position.
type KingMissingError struct{ Color board.Color }

func (e KingMissingError) Error() string {
	return fmt.Sprintf("rules: no %s king on board", e.Color)
}

// IsInCheck reports whether c's king is attacked by any opposing piece, using
// the opposing pieces' pseudo-legal moves.
func IsInCheck(b board.Board, c board.Color) bool {
	king, ok := b.Find(board.NewPiece(c, board.King))
	if !ok {
		panic(KingMissingError{Color: c})
	}
	return IsAttacked(b, king, c.Opposite())
}

// IsAttacked reports whether any piece of color by has a pseudo-legal move to sq.
func IsAttacked(b board.Board, sq board.Square, by board.Color) bool {
	for _, from := range b.Squares(by) {
		for _, m := range PseudoLegalMoves(b, from) {
			if m.To == sq {
				return true
			}
		}
	}
	return false
}
