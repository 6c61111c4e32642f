package board

import (
	"fmt"
	"strings"
)

// Board is a value type: assigning or passing a Board copies all 64 cells,
// so mutating a copy never affects the original.
type Board [Size][Size]Piece

var backRank = [Size]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Initial returns the standard starting position.
func Initial() Board {
	var b Board
	for c := 0; c < Size; c++ {
		b[0][c] = Piece{Color: Black, Kind: backRank[c]}
		b[1][c] = Piece{Color: Black, Kind: Pawn}
		b[6][c] = Piece{Color: White, Kind: Pawn}
		b[7][c] = Piece{Color: White, Kind: backRank[c]}
	}
	return b
}

// At returns the piece on sq, or the empty piece when sq is off-board.
func (b Board) At(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	return b[sq.Row][sq.Col]
}

// Set places p on sq. Used to build positions; game code goes through Apply.
func (b *Board) Set(sq Square, p Piece) {
	if sq.Valid() {
		b[sq.Row][sq.Col] = p
	}
}

// Apply returns the position after moving the piece on m.From to m.To.
// A pawn reaching the farthest rank becomes a queen. The receiver is untouched.
func (b Board) Apply(m Move) Board {
	next := b
	p := next.At(m.From)
	next[m.From.Row][m.From.Col] = Piece{}
	if p.Kind == Pawn && m.To.Row == PromotionRow(p.Color) {
		p.Kind = Queen
	}
	next[m.To.Row][m.To.Col] = p
	return next
}

// PromotionRow is the farthest rank for c's pawns.
func PromotionRow(c Color) int {
	if c == White {
		return 0
	}
	return Size - 1
}

// PawnStartRow is the rank c's pawns start on.
func PawnStartRow(c Color) int {
	if c == White {
		return 6
	}
	return 1
}

// Forward is the row delta of c's pawn advances.
func Forward(c Color) int {
	if c == White {
		return -1
	}
	return 1
}

// Find returns the first square holding p, scanning row-major.
func (b Board) Find(p Piece) (Square, bool) {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b[r][c] == p {
				return Square{Row: r, Col: c}, true
			}
		}
	}
	return Square{}, false
}

// Squares returns every square occupied by color c, row-major.
func (b Board) Squares(c Color) []Square {
	out := make([]Square, 0, 16)
	for r := 0; r < Size; r++ {
		for col := 0; col < Size; col++ {
			if p := b[r][col]; !p.Empty() && p.Color == c {
				out = append(out, Square{Row: r, Col: col})
			}
		}
	}
	return out
}

// Count returns the number of pieces on the board.
func (b Board) Count() int {
	n := 0
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if !b[r][c].Empty() {
				n++
			}
		}
	}
	return n
}

// Parse builds a board from eight rows of wire letters, row 0 first.
// '.' marks an empty square.
func Parse(rows ...string) (Board, error) {
	var b Board
	if len(rows) != Size {
		return b, fmt.Errorf("want %d rows, got %d", Size, len(rows))
	}
	for r, line := range rows {
		if len(line) != Size {
			return b, fmt.Errorf("row %d: want %d cells, got %d", r, Size, len(line))
		}
		for c := 0; c < Size; c++ {
			p, err := ParsePiece(line[c])
			if err != nil {
				return b, fmt.Errorf("row %d col %d: %w", r, c, err)
			}
			b[r][c] = p
		}
	}
	return b, nil
}

// MustParse is Parse for fixtures.
func MustParse(rows ...string) Board {
	b, err := Parse(rows...)
	if err != nil {
		panic(err)
	}
	return b
}

// Rows returns the inverse of Parse.
func (b Board) Rows() []string {
	out := make([]string, Size)
	for r := 0; r < Size; r++ {
		var sb strings.Builder
		for c := 0; c < Size; c++ {
			sb.WriteByte(b[r][c].Code())
		}
		out[r] = sb.String()
	}
	return out
}

func (b Board) String() string { return strings.Join(b.Rows(), "\n") }
