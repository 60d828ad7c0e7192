package betting

import (
	"context"
	"log"
)

// LogClient is the in-repo Contract stand-in: it records every call and
// succeeds. Deployments wire a real chain client in its place; the rest of
// the server cannot tell the difference, which is the point.
type LogClient struct{}

var _ Contract = LogClient{}

func (LogClient) CreateRoomAndBet(_ context.Context, roomID string, timeLimitSec int, betAmount string) error {
	log.Printf("[betting] createRoomAndBet room=%s timeLimit=%ds bet=%s", roomID, timeLimitSec, betAmount)
	return nil
}

func (LogClient) JoinRoom(_ context.Context, roomID string, amount string) error {
	log.Printf("[betting] joinRoom room=%s amount=%s", roomID, amount)
	return nil
}

func (LogClient) DeclareFinished(_ context.Context, roomID string) error {
	log.Printf("[betting] declareFinished room=%s", roomID)
	return nil
}

func (LogClient) HandleTimeUp(_ context.Context, roomID string) error {
	log.Printf("[betting] handleTimeUp room=%s", roomID)
	return nil
}

func (LogClient) DeclareGameResult(_ context.Context, roomID string, players []string, scores []int) error {
	log.Printf("[betting] declareGameResult room=%s players=%v scores=%v", roomID, players, scores)
	return nil
}

func (LogClient) GetRoomInfo(context.Context, string) (RoomInfo, error) {
	return RoomInfo{}, nil
}

func (LogClient) HasJoined(context.Context, string, string) (bool, error)   { return false, nil }
func (LogClient) HasFinished(context.Context, string, string) (bool, error) { return false, nil }
func (LogClient) CanStart(context.Context, string) (bool, error)            { return true, nil }
