package bus

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// wireEvent is the envelope a bridge puts on the NATS subject. Origin lets a
// bridge drop its own messages when they come back around.
type wireEvent struct {
	Origin  string          `json:"origin"`
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Bridge connects a local Session to other nodes hosting replicas of the same
// room. Selected topics are forwarded to the subject synq.room.<id>.events
// and inbound events are republished locally. Payloads cross the bridge as
// raw JSON; the receiving side's handlers decode them the same way they
// decode client input.
type Bridge struct {
	nc      *nats.Conn
	session *Session
	origin  string
	sub     *nats.Subscription
	unsubs  []func()
}

// NewBridge starts forwarding the given topics between session and the NATS
// subject for roomID. Events that arrive from NATS are republished locally
// under their original topic/event, so the simulation cannot tell a remote
// peer from a local one.
func NewBridge(nc *nats.Conn, roomID string, session *Session, topics ...string) (*Bridge, error) {
	b := &Bridge{
		nc:      nc,
		session: session,
		origin:  uuid.New().String(),
	}
	subject := fmt.Sprintf("synq.room.%s.events", roomID)

	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		var ev wireEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Printf("[bridge %s] dropping undecodable event: %v", roomID, err)
			return
		}
		if ev.Origin == b.origin {
			return
		}
		session.Publish(ev.Topic, ev.Event, ev.Payload)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	b.sub = sub

	forward := func(topic, event string) Handler {
		return func(payload any) {
			// Raw JSON payloads are the ones this bridge just republished
			// from the wire; forwarding them again would echo.
			if _, fromRemote := payload.(json.RawMessage); fromRemote {
				return
			}
			raw, err := json.Marshal(payload)
			if err != nil {
				log.Printf("[bridge %s] cannot marshal %s/%s payload: %v", roomID, topic, event, err)
				return
			}
			out, err := json.Marshal(wireEvent{Origin: b.origin, Topic: topic, Event: event, Payload: raw})
			if err != nil {
				return
			}
			if err := nc.Publish(subject, out); err != nil {
				log.Printf("[bridge %s] publish failed: %v", roomID, err)
			}
		}
	}

	for _, t := range topics {
		topic := t
		// Wildcard per topic: the session keys subscriptions by exact event
		// name, so the bridge registers the event names the protocol uses.
		for _, event := range bridgedEvents(topic) {
			b.unsubs = append(b.unsubs, session.Subscribe(topic, event, forward(topic, event)))
		}
	}
	return b, nil
}

// bridgedEvents lists the cross-peer events per topic. Only inbound intent
// and the peer-to-peer protocol events cross; derived outputs (view updates,
// chat echoes, settlement signals) are recomputed by every replica.
func bridgedEvents(topic string) []string {
	switch topic {
	case "room":
		return []string{"broadcast-settings"}
	case "game":
		return []string{"start", "reset", "state-sync", "request-state"}
	case "chat":
		return []string{"message"}
	default:
		// Per-view topics carry the player input events.
		return []string{"set-initials", "set-avatar", "set-wallet", "typed-word"}
	}
}

// Close detaches the bridge from both sides.
func (b *Bridge) Close() {
	for _, u := range b.unsubs {
		u()
	}
	if b.sub != nil {
		b.sub.Unsubscribe()
	}
}

// ConnectNATS dials the relay with the retry options the deployment uses.
// An empty URL means the node runs standalone and the caller gets (nil, nil).
func ConnectNATS(url string) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
}
