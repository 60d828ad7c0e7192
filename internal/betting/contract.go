// Package betting is the boundary to the on-chain wager collaborator. The
// simulation core never calls the contract; it publishes settlement signals
// and this package turns them into contract calls. The core must stay
// correct when those calls fail or never happen, so everything here is
// fire-and-forget from the room's point of view.
package betting

import "context"

// RoomInfo is the read-only view of an on-chain betting room.
type RoomInfo struct {
	RoomID      string
	Host        string
	BetAmount   string
	PlayerCount int
	TotalPot    string
	Started     bool
	Finished    bool
	Winner      string
}

// Contract is the on-chain surface the surrounding code consumes:
// single-transaction create/join/finish calls plus the read-only queries.
type Contract interface {
	CreateRoomAndBet(ctx context.Context, roomID string, timeLimitSec int, betAmount string) error
	JoinRoom(ctx context.Context, roomID string, amount string) error
	DeclareFinished(ctx context.Context, roomID string) error
	HandleTimeUp(ctx context.Context, roomID string) error
	DeclareGameResult(ctx context.Context, roomID string, players []string, scores []int) error

	GetRoomInfo(ctx context.Context, roomID string) (RoomInfo, error)
	HasJoined(ctx context.Context, roomID, player string) (bool, error)
	HasFinished(ctx context.Context, roomID, player string) (bool, error)
	CanStart(ctx context.Context, roomID string) (bool, error)
}
