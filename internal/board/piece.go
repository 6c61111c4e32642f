package board

import (
	"fmt"
	"strings"
)

// Color identifies a side.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseColor accepts "white"/"black" and their one-letter forms.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return White, fmt.Errorf("unknown color %q", s)
}

// Kind is a piece type. NoKind marks an empty square.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindLetters = [...]byte{NoKind: '.', Pawn: 'P', Knight: 'N', Bishop: 'B', Rook: 'R', Queen: 'Q', King: 'K'}

func (k Kind) String() string {
	switch k {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	}
	return "none"
}

// Piece is an immutable {Color, Kind} pair. The zero value is "no piece".
type Piece struct {
	Color Color
	Kind  Kind
}

func NewPiece(c Color, k Kind) Piece { return Piece{Color: c, Kind: k} }

// Empty reports whether p denotes an empty square.
func (p Piece) Empty() bool { return p.Kind == NoKind }

// Code returns the wire letter: uppercase for white, lowercase for black, '.' when empty.
func (p Piece) Code() byte {
	if p.Empty() || int(p.Kind) >= len(kindLetters) {
		return '.'
	}
	l := kindLetters[p.Kind]
	if p.Color == Black {
		return l + ('a' - 'A')
	}
	return l
}

func (p Piece) String() string { return string(p.Code()) }

// ParsePiece decodes a wire letter. '.' and ' ' decode to the empty piece.
func ParsePiece(b byte) (Piece, error) {
	if b == '.' || b == ' ' {
		return Piece{}, nil
	}
	color := White
	upper := b
	if b >= 'a' && b <= 'z' {
		color = Black
		upper = b - ('a' - 'A')
	}
	for k := Pawn; k <= King; k++ {
		if kindLetters[k] == upper {
			return Piece{Color: color, Kind: k}, nil
		}
	}
	return Piece{}, fmt.Errorf("unknown piece code %q", b)
}
