package archive

import (
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chess-duel/internal/duel"
	"github.com/park285/chess-duel/internal/rules"
	"github.com/park285/chess-duel/pkg/chessdto"
)

// Notate replays UCI moves from the standard start and returns SAN for each
// one plus the final FEN. Replay stops at the first move the notation library
// refuses; the remaining entries keep their UCI text and err reports where.
func Notate(moves []string) (san []string, fen string, err error) {
	game := nchess.NewGame()
	san = make([]string, 0, len(moves))
	for i, uci := range moves {
		uci = strings.ToLower(strings.TrimSpace(uci))
		pos := game.Position()
		mv, derr := nchess.UCINotation{}.Decode(pos, uci)
		if derr == nil {
			text := nchess.AlgebraicNotation{}.Encode(pos, mv)
			derr = game.Move(mv, nil)
			if derr == nil {
				san = append(san, text)
				continue
			}
		}
		san = append(san, moves[i:]...)
		return san, game.FEN(), fmt.Errorf("replay move %d (%s): %w", i+1, uci, derr)
	}
	return san, game.FEN(), nil
}

// Build converts a finished session into its archived form.
func Build(snap duel.Snapshot) (*chessdto.ArchivedGame, error) {
	uci := make([]string, 0, len(snap.History))
	for _, m := range snap.History {
		uci = append(uci, m.UCI())
	}
	san, fen, err := Notate(uci)

	started := snap.StartedAt
	if started.IsZero() {
		started = snap.CreatedAt
	}
	ended := snap.UpdatedAt
	g := &chessdto.ArchivedGame{
		Code:      snap.Code,
		WhiteConn: snap.White,
		BlackConn: snap.Black,
		Result:    string(snap.Winner),
		Reason:    string(snap.Reason),
		MovesUCI:  uci,
		MovesSAN:  san,
		FinalFEN:  fen,
		StartedAt: started,
		EndedAt:   ended,
		Duration:  ended.Sub(started),
	}
	if g.Duration < 0 {
		g.Duration = 0
	}
	g.PGN = BuildPGN(g)
	return g, err
}

func mapResultToPGN(result string) string {
	switch rules.Winner(strings.ToLower(strings.TrimSpace(result))) {
	case rules.WinnerWhite:
		return "1-0"
	case rules.WinnerBlack:
		return "0-1"
	case rules.WinnerDraw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

// BuildPGN renders headers and numbered SAN movetext.
func BuildPGN(g *chessdto.ArchivedGame) string {
	if g == nil {
		return ""
	}
	pgnResult := mapResultToPGN(g.Result)
	var b strings.Builder
	date := g.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString("[Event \"Chess Duel\"]\n")
	b.WriteString(fmt.Sprintf("[Site \"%s\"]\n", sanitizePGN(g.Code)))
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString("[White \"white\"]\n")
	b.WriteString("[Black \"black\"]\n")
	if strings.TrimSpace(g.Reason) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(g.Reason))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(g.MovesSAN); i += 2 {
		turn := (i / 2) + 1
		b.WriteString(fmt.Sprintf("%d. %s", turn, strings.TrimSpace(g.MovesSAN[i])))
		if i+1 < len(g.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(g.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
