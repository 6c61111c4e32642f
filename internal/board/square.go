package board

import "fmt"

// Size is the edge length of the board.
const Size = 8

// Square addresses a cell. Row 0 is black's back rank, row 7 is white's.
type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func Sq(row, col int) Square { return Square{Row: row, Col: col} }

func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < Size && s.Col >= 0 && s.Col < Size
}

// Offset returns the square shifted by (dr, dc); the result may be off-board.
func (s Square) Offset(dr, dc int) Square { return Square{Row: s.Row + dr, Col: s.Col + dc} }

// Algebraic returns coordinates like "e2". Row 7 is rank 1.
func (s Square) Algebraic() string {
	if !s.Valid() {
		return "??"
	}
	return fmt.Sprintf("%c%d", 'a'+s.Col, Size-s.Row)
}

func (s Square) String() string { return s.Algebraic() }

// ParseAlgebraic is the inverse of Algebraic.
func ParseAlgebraic(v string) (Square, error) {
	if len(v) != 2 {
		return Square{}, fmt.Errorf("bad square %q", v)
	}
	sq := Square{Row: Size - int(v[1]-'0'), Col: int(v[0] - 'a')}
	if !sq.Valid() {
		return Square{}, fmt.Errorf("bad square %q", v)
	}
	return sq, nil
}
