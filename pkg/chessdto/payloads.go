package chessdto

import (
	"encoding/json"
	"errors"
	"strings"
)

// Seat answers create-game and join-game.
type Seat struct {
	Code  string `json:"code"`
	Color string `json:"color"`
}

type GameStart struct {
	Board       Board  `json:"board"`
	CurrentTurn string `json:"currentTurn"`
}

type MoveMade struct {
	Board          Board          `json:"board"`
	CurrentTurn    string         `json:"currentTurn"`
	LastMove       MoveRef        `json:"lastMove"`
	InCheck        bool           `json:"inCheck"`
	CapturedPieces CapturedPieces `json:"capturedPieces"`
	WasCaptured    bool           `json:"wasCaptured"`
}

type GameOver struct {
	Board  Board  `json:"board"`
	Winner string `json:"winner"`
	Reason string `json:"reason"`
}

type GameRestarted struct {
	Board          Board          `json:"board"`
	CurrentTurn    string         `json:"currentTurn"`
	CapturedPieces CapturedPieces `json:"capturedPieces"`
}

type PlayerDisconnected struct {
	Code string `json:"code,omitempty"`
}

// MoveRequest is the make-move payload.
type MoveRequest struct {
	Code string `json:"code"`
	From Square `json:"from"`
	To   Square `json:"to"`
}

var ErrEmptyCode = errors.New("empty join code")

// CodeRequest is the join-game and restart-game payload. Browsers send either
// the bare code string or {"code": "..."}.
type CodeRequest struct {
	Code string `json:"code"`
}

func (r *CodeRequest) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		r.Code = strings.TrimSpace(s)
		return nil
	}
	var obj struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	r.Code = strings.TrimSpace(obj.Code)
	return nil
}

// Validate reports ErrEmptyCode for a blank code.
func (r CodeRequest) Validate() error {
	if r.Code == "" {
		return ErrEmptyCode
	}
	return nil
}
