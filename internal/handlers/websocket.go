package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/p0isonxs/synqType/internal/manager"
	"github.com/p0isonxs/synqType/internal/models"
)

// Configure WebSocket upgrader
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: In production, implement proper origin checking
		return true
	},
}

// Global room manager instance, wired up by the entrypoint.
var RoomManager *manager.RoomManager

func Init(rm *manager.RoomManager) {
	RoomManager = rm
}

// Per-connection input budget. Typing bursts are legitimate, so the limiter
// is generous; anything past it is a misbehaving client and gets dropped
// silently, the same fail-closed stance the simulation takes.
const (
	inboundRate  = 20
	inboundBurst = 40
)

// HandleWebSocket attaches a view to its room: every decoded client message
// becomes a published event on the room bus, and every view-update signal
// comes back as a state snapshot.
func HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room_id")
	viewID := r.URL.Query().Get("view_id")
	if roomID == "" || viewID == "" {
		http.Error(w, "Missing room_id or view_id", http.StatusBadRequest)
		return
	}

	handle, err := RoomManager.GetRoom(roomID)
	if err != nil {
		http.Error(w, "Room not found", http.StatusNotFound)
		return
	}

	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	handle.ConnectionOpened()

	// push may still be invoked by a dispatch that was already in flight when
	// this connection unsubscribed, so the closed flag has to be checked under
	// the same lock that teardown sets it under.
	send := make(chan models.Outbound, 32)
	var sendMu sync.Mutex
	sendClosed := false
	push := func(msg models.Outbound) {
		msg.RoomID = roomID
		msg.Time = time.Now()
		sendMu.Lock()
		defer sendMu.Unlock()
		if sendClosed {
			return
		}
		select {
		case send <- msg:
		default:
			// Slow consumer; the next snapshot supersedes this one anyway.
		}
	}

	// These handlers run on the room's event loop, so reading the model
	// inside them is serialized with all mutation.
	unsubs := []func(){
		handle.Session.Subscribe("view", "update", func(any) {
			push(models.Outbound{Type: models.OutState, Data: handle.Room.GameState()})
		}),
		handle.Session.Subscribe("chat", "message-received", func(payload any) {
			push(models.Outbound{Type: models.OutChat, Data: payload})
		}),
		handle.Session.Subscribe(viewID, "room-full", func(any) {
			push(models.Outbound{Type: models.OutRoomFull, Data: "room has reached maximum capacity"})
		}),
	}

	go writePump(conn, send)

	handle.Session.Publish("room", "view-join", viewID)
	// Refresh everyone so the newcomer gets an immediate snapshot.
	handle.Session.Publish("view", "update", nil)

	readPump(conn, handle, viewID)

	handle.Session.Publish("room", "view-exit", viewID)
	for _, u := range unsubs {
		u()
	}
	sendMu.Lock()
	sendClosed = true
	sendMu.Unlock()
	close(send)

	if handle.ConnectionClosed() {
		RoomManager.RemoveRoom(roomID)
	}
}

func writePump(conn *websocket.Conn, send chan models.Outbound) {
	for msg := range send {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
	conn.Close()
}

// readPump decodes client messages and publishes the permitted ones.
// Everything else is dropped: across the bus there is no caller to return an
// error to.
func readPump(conn *websocket.Conn, handle *manager.RoomHandle, viewID string) {
	defer conn.Close()

	limiter := rate.NewLimiter(rate.Limit(inboundRate), inboundBurst)

	for {
		var msg models.Inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for view %s: %v", viewID, err)
			}
			return
		}
		if !limiter.Allow() {
			continue
		}
		if !allowed(msg.Topic, msg.Event, viewID) {
			log.Printf("dropping unpermitted event %s/%s from %s", msg.Topic, msg.Event, viewID)
			continue
		}
		handle.Session.Publish(msg.Topic, msg.Event, msg.Data)
	}
}

// allowed whitelists what a client may publish: round control, chat, and its
// own player events. The peer-to-peer protocol topics belong to the model
// replicas, not to views.
func allowed(topic, event, viewID string) bool {
	switch topic {
	case "game":
		return event == "start" || event == "reset"
	case "chat":
		return event == "message"
	case viewID:
		switch event {
		case "set-initials", "set-avatar", "set-wallet", "typed-word":
			return true
		}
	}
	return false
}
