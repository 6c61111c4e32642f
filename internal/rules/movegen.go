package rules

import "github.com/park285/chess-duel/internal/board"

type offset struct{ dr, dc int }

var (
	knightOffsets = []offset{{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2}, {1, -2}, {1, 2}, {2, -1}, {2, 1}}
	kingOffsets   = []offset{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	diagonalDirs  = []offset{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	straightDirs  = []offset{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	allDirs       = append(append([]offset{}, diagonalDirs...), straightDirs...)
)

// PseudoLegalMoves returns the moves the piece on from may make by its movement
// pattern and board occupancy alone. Whether a move exposes the mover's own king
// is not considered. An empty or off-board square yields nil.
func PseudoLegalMoves(b board.Board, from board.Square) []board.Move {
	p := b.At(from)
	if p.Empty() {
		return nil
	}
	switch p.Kind {
	case board.Pawn:
		return pawnMoves(b, from, p.Color)
	case board.Knight:
		return stepMoves(b, from, p.Color, knightOffsets)
	case board.Bishop:
		return rayMoves(b, from, p.Color, diagonalDirs)
	case board.Rook:
		return rayMoves(b, from, p.Color, straightDirs)
	case board.Queen:
		return rayMoves(b, from, p.Color, allDirs)
	case board.King:
		return stepMoves(b, from, p.Color, kingOffsets)
	}
	return nil
}

func pawnMoves(b board.Board, from board.Square, c board.Color) []board.Move {
	moves := make([]board.Move, 0, 4)
	dir := board.Forward(c)

	one := from.Offset(dir, 0)
	if one.Valid() && b.At(one).Empty() {
		moves = append(moves, pawnMove(from, one, c, false))
		two := from.Offset(2*dir, 0)
		if from.Row == board.PawnStartRow(c) && two.Valid() && b.At(two).Empty() {
			moves = append(moves, pawnMove(from, two, c, false))
		}
	}
	for _, dc := range []int{-1, 1} {
		to := from.Offset(dir, dc)
		if !to.Valid() {
			continue
		}
		if t := b.At(to); !t.Empty() && t.Color != c {
			moves = append(moves, pawnMove(from, to, c, true))
		}
	}
	return moves
}

func pawnMove(from, to board.Square, c board.Color, capture bool) board.Move {
	m := board.Move{From: from, To: to, Capture: capture}
	if to.Row == board.PromotionRow(c) {
		m.Promotion = board.Queen
	}
	return m
}

func stepMoves(b board.Board, from board.Square, c board.Color, offsets []offset) []board.Move {
	moves := make([]board.Move, 0, len(offsets))
	for _, o := range offsets {
		to := from.Offset(o.dr, o.dc)
		if !to.Valid() {
			continue
		}
		t := b.At(to)
		if t.Empty() {
			moves = append(moves, board.Move{From: from, To: to})
		} else if t.Color != c {
			moves = append(moves, board.Move{From: from, To: to, Capture: true})
		}
	}
	return moves
}

func rayMoves(b board.Board, from board.Square, c board.Color, dirs []offset) []board.Move {
	moves := make([]board.Move, 0, 14)
	for _, d := range dirs {
		for to := from.Offset(d.dr, d.dc); to.Valid(); to = to.Offset(d.dr, d.dc) {
			t := b.At(to)
			if t.Empty() {
				moves = append(moves, board.Move{From: from, To: to})
				continue
			}
			if t.Color != c {
				moves = append(moves, board.Move{From: from, To: to, Capture: true})
			}
			break
		}
	}
	return moves
}

// Find returns the pseudo-legal move from -> to, if there is one.
func Find(b board.Board, from, to board.Square) (board.Move, bool) {
	for _, m := range PseudoLegalMoves(b, from) {
		if m.To == to {
			return m, true
		}
	}
	return board.Move{}, false
}
