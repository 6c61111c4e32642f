package chessdto

import "encoding/json"

// Inbound events.
const (
	EventCreateGame  = "create-game"
	EventJoinGame    = "join-game"
	EventMakeMove    = "make-move"
	EventRestartGame = "restart-game"
)

// Outbound events.
const (
	EventGameCreated        = "game-created"
	EventGameJoined         = "game-joined"
	EventGameStart          = "game-start"
	EventMoveMade           = "move-made"
	EventGameOver           = "game-over"
	EventGameRestarted      = "game-restarted"
	EventPlayerDisconnected = "player-disconnected"
	EventError              = "error"
)

// Envelope is one inbound websocket frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is one outbound websocket frame.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}
