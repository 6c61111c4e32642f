package chessdto

import "time"

// ArchivedGame is a finished game as stored in the archive.
type ArchivedGame struct {
	ID        int64
	Code      string
	WhiteConn string
	BlackConn string
	Result    string
	Reason    string
	MovesUCI  []string
	MovesSAN  []string
	FinalFEN  string
	PGN       string
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
}
