package manager

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/p0isonxs/synqType/internal/betting"
	"github.com/p0isonxs/synqType/internal/bus"
	"github.com/p0isonxs/synqType/internal/sim"
)

// RoomHandle bundles everything one hosted room owns: its event-loop
// session, the simulation replica, and the optional collaborators.
type RoomHandle struct {
	ID       string
	Session  *bus.Session
	Room     *sim.Room
	bridge   *bus.Bridge
	listener *betting.Listener

	mu          sync.Mutex
	connections int
}

// RoomManager creates and tracks hosted rooms. Unlike the simulation itself
// this is plain shared state across connection goroutines, so it carries a
// lock.
type RoomManager struct {
	mu       sync.RWMutex
	rooms    map[string]*RoomHandle
	maxRooms int
	nc       *nats.Conn
	contract betting.Contract
}

// NewRoomManager creates a manager. nc may be nil to run standalone;
// contract may be nil to disable settlement calls.
func NewRoomManager(maxRooms int, nc *nats.Conn, contract betting.Contract) *RoomManager {
	log.Printf("room manager up, max rooms: %d", maxRooms)
	return &RoomManager{
		rooms:    make(map[string]*RoomHandle),
		maxRooms: maxRooms,
		nc:       nc,
		contract: contract,
	}
}

func generateRoomID() string {
	return "room_0x" + uuid.New().String()[:8]
}

// CreateRoom spins up a session and a creator-side simulation replica for
// the given settings.
func (rm *RoomManager) CreateRoom(cfg *sim.Settings) (*RoomHandle, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if len(rm.rooms) >= rm.maxRooms {
		return nil, fmt.Errorf("server at capacity of %d rooms", rm.maxRooms)
	}

	id := generateRoomID()
	session := bus.NewSession()
	handle := &RoomHandle{
		ID:      id,
		Session: session,
		Room:    sim.NewRoom(session, cfg),
	}

	if rm.nc != nil {
		bridge, err := bus.NewBridge(rm.nc, id, session, "room", "game", "chat")
		if err != nil {
			log.Printf("room %s: bridge unavailable, running local-only: %v", id, err)
		} else {
			handle.bridge = bridge
		}
	}
	if cfg != nil && cfg.EnableBetting {
		handle.listener = betting.NewListener(session, id, rm.contract)
	}

	rm.rooms[id] = handle
	log.Printf("room created: %s", id)
	return handle, nil
}

// GetRoom returns the handle for id.
func (rm *RoomManager) GetRoom(id string) (*RoomHandle, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	handle, ok := rm.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %s does not exist", id)
	}
	return handle, nil
}

// RemoveRoom tears a room down and releases its session.
func (rm *RoomManager) RemoveRoom(id string) {
	rm.mu.Lock()
	handle, ok := rm.rooms[id]
	delete(rm.rooms, id)
	rm.mu.Unlock()
	if !ok {
		return
	}
	if handle.listener != nil {
		handle.listener.Close()
	}
	if handle.bridge != nil {
		handle.bridge.Close()
	}
	handle.Room.Close()
	handle.Session.Close()
	log.Printf("room removed: %s", id)
}

// Snapshot reads the room's view state through the event loop, so callers
// outside it never touch the model concurrently with its handlers.
func (h *RoomHandle) Snapshot() sim.State {
	ch := make(chan sim.State, 1)
	h.Session.ScheduleAfter(0, func() { ch <- h.Room.GameState() })
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		return sim.State{}
	}
}

// ConnectionOpened counts a websocket attaching to the room.
func (h *RoomHandle) ConnectionOpened() {
	h.mu.Lock()
	h.connections++
	h.mu.Unlock()
}

// ConnectionClosed counts a detach and reports whether the room is now
// empty, so the caller can decide to remove it.
func (h *RoomHandle) ConnectionClosed() (empty bool) {
	h.mu.Lock()
	h.connections--
	empty = h.connections <= 0
	h.mu.Unlock()
	return empty
}
