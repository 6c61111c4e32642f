package gameserver

import (
	"github.com/park285/chess-duel/internal/board"
	"github.com/park285/chess-duel/internal/duel"
	"github.com/park285/chess-duel/pkg/chessdto"
)

// toWireBoard renders pieces as their one-letter codes; empty cells stay nil.
func toWireBoard(b board.Board) chessdto.Board {
	var out chessdto.Board
	for r := 0; r < board.Size; r++ {
		for c := 0; c < board.Size; c++ {
			p := b[r][c]
			if p.Empty() {
				continue
			}
			code := p.String()
			out[r][c] = &code
		}
	}
	return out
}

func toWireCaptured(c duel.Captured) chessdto.CapturedPieces {
	out := chessdto.CapturedPieces{
		White: make([]string, 0, len(c.White)),
		Black: make([]string, 0, len(c.Black)),
	}
	for _, k := range c.White {
		out.White = append(out.White, board.NewPiece(board.White, k).String())
	}
	for _, k := range c.Black {
		out.Black = append(out.Black, board.NewPiece(board.Black, k).String())
	}
	return out
}

func toWireSquare(sq board.Square) chessdto.Square {
	return chessdto.Square{Row: sq.Row, Col: sq.Col}
}

func fromWireSquare(sq chessdto.Square) board.Square { return board.Sq(sq.Row, sq.Col) }

func toWireMove(m board.Move) chessdto.MoveRef {
	ref := chessdto.MoveRef{From: toWireSquare(m.From), To: toWireSquare(m.To)}
	if m.Promotion != board.NoKind {
		ref.Promotion = "q"
	}
	return ref
}

func moveMade(res *duel.MoveResult) chessdto.MoveMade {
	return chessdto.MoveMade{
		Board:          toWireBoard(res.Board),
		CurrentTurn:    res.Turn.String(),
		LastMove:       toWireMove(res.Move),
		InCheck:        res.InCheck,
		CapturedPieces: toWireCaptured(res.Captured),
		WasCaptured:    res.WasCaptured,
	}
}

func gameOver(res *duel.MoveResult) chessdto.GameOver {
	return chessdto.GameOver{
		Board:  toWireBoard(res.Board),
		Winner: string(res.Outcome.Winner),
		Reason: string(res.Outcome.State),
	}
}

func gameStart(s *duel.Session) chessdto.GameStart {
	return chessdto.GameStart{Board: toWireBoard(s.Board), CurrentTurn: s.Turn.String()}
}

func gameRestarted(s *duel.Session) chessdto.GameRestarted {
	return chessdto.GameRestarted{
		Board:          toWireBoard(s.Board),
		CurrentTurn:    s.Turn.String(),
		CapturedPieces: toWireCaptured(s.Captured),
	}
}
