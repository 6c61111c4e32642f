package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitialLayout(t *testing.T) {
	b := Initial()
	require.Equal(t, 32, b.Count())
	require.Equal(t, []string{
		"rnbqkbnr",
		"pppppppp",
		"........",
		"........",
		"........",
		"........",
		"PPPPPPPP",
		"RNBQKBNR",
	}, b.Rows())

	wk, ok := b.Find(NewPiece(White, King))
	require.True(t, ok)
	require.Equal(t, Sq(7, 4), wk)
	bk, ok := b.Find(NewPiece(Black, King))
	require.True(t, ok)
	require.Equal(t, Sq(0, 4), bk)
	require.Len(t, b.Squares(White), 16)
	require.Len(t, b.Squares(Black), 16)
}

func TestApplyIsCopyOnWrite(t *testing.T) {
	before := Initial()
	after := before.Apply(Move{From: Sq(6, 4), To: Sq(4, 4)})

	require.Equal(t, NewPiece(White, Pawn), before.At(Sq(6, 4)))
	require.True(t, before.At(Sq(4, 4)).Empty())
	require.True(t, after.At(Sq(6, 4)).Empty())
	require.Equal(t, NewPiece(White, Pawn), after.At(Sq(4, 4)))
	require.Equal(t, Initial(), before)
}

func TestApplyPromotesPawnToQueen(t *testing.T) {
	b := MustParse(
		"....k...",
		"P.......",
		"........",
		"........",
		"........",
		"........",
		".......p",
		"....K...",
	)
	w := b.Apply(Move{From: Sq(1, 0), To: Sq(0, 0), Promotion: Queen})
	require.Equal(t, NewPiece(White, Queen), w.At(Sq(0, 0)))

	bl := w.Apply(Move{From: Sq(6, 7), To: Sq(7, 7), Promotion: Queen})
	require.Equal(t, NewPiece(Black, Queen), bl.At(Sq(7, 7)))
}

func TestPieceCodes(t *testing.T) {
	for _, code := range []byte("PNBRQKpnbrqk") {
		p, err := ParsePiece(code)
		require.NoError(t, err)
		require.Equal(t, code, p.Code())
	}
	p, err := ParsePiece('.')
	require.NoError(t, err)
	require.True(t, p.Empty())

	_, err = ParsePiece('x')
	require.Error(t, err)
}

func TestParseRejectsBadShape(t *testing.T) {
	_, err := Parse("........")
	require.Error(t, err)

	_, err = Parse("........", "........", "........", "........", "........", "........", "........", ".......")
	require.Error(t, err)
}

func TestSquareAlgebraic(t *testing.T) {
	require.Equal(t, "e2", Sq(6, 4).Algebraic())
	require.Equal(t, "a8", Sq(0, 0).Algebraic())
	require.Equal(t, "h1", Sq(7, 7).Algebraic())

	sq, err := ParseAlgebraic("e4")
	require.NoError(t, err)
	require.Equal(t, Sq(4, 4), sq)

	_, err = ParseAlgebraic("i9")
	require.Error(t, err)

	require.Equal(t, "a7a8q", Move{From: Sq(1, 0), To: Sq(0, 0), Promotion: Queen}.UCI())
}

func TestColorText(t *testing.T) {
	var c Color
	require.NoError(t, c.UnmarshalText([]byte("black")))
	require.Equal(t, Black, c)
	require.Equal(t, White, c.Opposite())
	out, err := Black.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "black", string(out))
	require.Error(t, c.UnmarshalText([]byte("green")))
}
