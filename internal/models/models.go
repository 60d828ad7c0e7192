package models

import (
	"encoding/json"
	"time"
)

// Inbound is what a connected view sends over the websocket: an event to
// publish on the room bus. Data stays raw JSON; the simulation's handlers
// decode it and fail closed on garbage.
type Inbound struct {
	Topic string          `json:"topic"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Outbound is what the relay pushes back to a view.
type Outbound struct {
	Type   string    `json:"type"`
	RoomID string    `json:"room_id,omitempty"`
	Data   any       `json:"data,omitempty"`
	Time   time.Time `json:"timestamp"`
}

const (
	OutState    = "room_state"
	OutChat     = "chat_message"
	OutRoomFull = "room_full"
	OutError    = "error"
)

// CreateRoomRequest is the body of POST /api/create-room.
type CreateRoomRequest struct {
	Theme           string `json:"theme"`
	SentenceLength  int    `json:"sentenceLength"`
	TimeLimit       int    `json:"timeLimit"`
	MaxPlayers      int    `json:"maxPlayers"`
	EnableBetting   bool   `json:"enableBetting"`
	BetAmount       string `json:"betAmount,omitempty"`
	ContractAddress string `json:"contractAddress,omitempty"`
}
