package betting

import (
	"context"
	"log"
	"time"

	"github.com/p0isonxs/synqType/internal/bus"
	"github.com/p0isonxs/synqType/internal/sim"
)

// Listener bridges the room's settlement signals to a Contract. It
// subscribes on the room bus like any other peer; contract calls run off
// the event loop so a slow chain never stalls the simulation.
type Listener struct {
	roomID   string
	contract Contract
	timeout  time.Duration
	unsubs   []func()
}

// NewListener attaches to the bus. A nil contract is allowed and turns the
// listener into a log-only observer.
func NewListener(b bus.Bus, roomID string, contract Contract) *Listener {
	l := &Listener{
		roomID:   roomID,
		contract: contract,
		timeout:  30 * time.Second,
	}
	l.unsubs = append(l.unsubs,
		b.Subscribe("game", "betting-payout", l.handlePayout),
		b.Subscribe("game", "no-winner-refund", l.handleRefund),
	)
	return l
}

// Close detaches the listener.
func (l *Listener) Close() {
	for _, u := range l.unsubs {
		u()
	}
	l.unsubs = nil
}

func (l *Listener) handlePayout(payload any) {
	req, ok := payload.(sim.PayoutRequest)
	if !ok {
		return
	}
	log.Printf("[betting %s] payout requested for %v (%s each at %s)",
		l.roomID, req.Winners, req.BetAmount, req.ContractAddress)
	if l.contract == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()
		if err := l.contract.HandleTimeUp(ctx, l.roomID); err != nil {
			log.Printf("[betting %s] settlement failed: %v", l.roomID, err)
		}
	}()
}

func (l *Listener) handleRefund(payload any) {
	notice, ok := payload.(sim.RefundNotice)
	if !ok {
		return
	}
	log.Printf("[betting %s] refund requested: %s", l.roomID, notice.Reason)
	if l.contract == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()
		if err := l.contract.HandleTimeUp(ctx, l.roomID); err != nil {
			log.Printf("[betting %s] refund call failed: %v", l.roomID, err)
		}
	}()
}
