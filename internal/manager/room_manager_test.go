package manager

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p0isonxs/synqType/internal/sim"
)

func managerSettings() *sim.Settings {
	return &sim.Settings{
		Theme:          "tech",
		SentenceLength: 10,
		TimeLimit:      30,
		MaxPlayers:     4,
	}
}

func TestCreateAndGetRoom(t *testing.T) {
	rm := NewRoomManager(4, nil, nil)

	handle, err := rm.CreateRoom(managerSettings())
	require.NoError(t, err)
	defer rm.RemoveRoom(handle.ID)

	assert.True(t, strings.HasPrefix(handle.ID, "room_0x"))
	require.NotNil(t, handle.Session)
	require.NotNil(t, handle.Room)

	got, err := rm.GetRoom(handle.ID)
	require.NoError(t, err)
	assert.Same(t, handle, got)
}

func TestGetUnknownRoomFails(t *testing.T) {
	rm := NewRoomManager(4, nil, nil)
	_, err := rm.GetRoom("room_0xmissing")
	assert.Error(t, err)
}

func TestCreateRoomRespectsCapacity(t *testing.T) {
	rm := NewRoomManager(2, nil, nil)

	a, err := rm.CreateRoom(managerSettings())
	require.NoError(t, err)
	b, err := rm.CreateRoom(managerSettings())
	require.NoError(t, err)
	defer rm.RemoveRoom(a.ID)
	defer rm.RemoveRoom(b.ID)

	_, err = rm.CreateRoom(managerSettings())
	assert.Error(t, err)
}

func TestRemoveRoomReleasesTheSlot(t *testing.T) {
	rm := NewRoomManager(1, nil, nil)

	handle, err := rm.CreateRoom(managerSettings())
	require.NoError(t, err)
	rm.RemoveRoom(handle.ID)

	_, err = rm.GetRoom(handle.ID)
	assert.Error(t, err)

	again, err := rm.CreateRoom(managerSettings())
	require.NoError(t, err)
	rm.RemoveRoom(again.ID)

	// Removing twice is harmless.
	rm.RemoveRoom(again.ID)
}

func TestRoomIDsAreUnique(t *testing.T) {
	rm := NewRoomManager(16, nil, nil)
	seen := make(map[string]bool)
	for i := 0; i < 16; i++ {
		h, err := rm.CreateRoom(managerSettings())
		require.NoError(t, err)
		defer rm.RemoveRoom(h.ID)
		assert.False(t, seen[h.ID])
		seen[h.ID] = true
	}
}

func TestSnapshotReadsThroughTheEventLoop(t *testing.T) {
	rm := NewRoomManager(4, nil, nil)
	cfg := managerSettings()
	handle, err := rm.CreateRoom(cfg)
	require.NoError(t, err)
	defer rm.RemoveRoom(handle.ID)

	handle.Session.Publish("room", "view-join", "A")

	state := handle.Snapshot()
	assert.Equal(t, cfg.MaxPlayers, state.MaxPlayers)
	require.Len(t, state.Players, 1)
	assert.Equal(t, "A", state.Players[0].ViewID)
	assert.False(t, state.Started)
}

func TestConnectionCountingReportsEmpty(t *testing.T) {
	rm := NewRoomManager(4, nil, nil)
	handle, err := rm.CreateRoom(managerSettings())
	require.NoError(t, err)
	defer rm.RemoveRoom(handle.ID)

	handle.ConnectionOpened()
	handle.ConnectionOpened()
	assert.False(t, handle.ConnectionClosed())
	assert.True(t, handle.ConnectionClosed())
}
