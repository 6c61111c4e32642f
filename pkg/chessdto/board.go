package chessdto

// Board is the row-major wire board. Row 0 is black's back rank. A cell is
// null or a one-letter piece code, uppercase for white.
type Board [8][8]*string

type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// MoveRef identifies the last committed move.
type MoveRef struct {
	From      Square `json:"from"`
	To        Square `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// CapturedPieces lists removed piece codes by the color of the removed piece.
type CapturedPieces struct {
	White []string `json:"white"`
	Black []string `json:"black"`
}
