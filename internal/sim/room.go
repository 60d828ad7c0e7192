package sim

import (
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/p0isonxs/synqType/internal/bus"
	"github.com/p0isonxs/synqType/internal/constants"
)

// ChatMessage is one entry of the room's bounded chat log.
type ChatMessage struct {
	ID        string `json:"id"`
	ViewID    string `json:"viewId"`
	Initials  string `json:"initials"`
	AvatarURL string `json:"avatarUrl"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Room is the replicated game simulation. Every peer runs its own instance,
// kept convergent purely through the events on the bus: all external intent
// arrives as published events, all mutation happens inside the handlers
// below, serialized by the session's event loop. There is no other lock.
//
// The state machine is Idle -> Countdown -> Active -> Idle, restartable
// forever. Transitions are idempotent so duplicate or reordered start/reset
// events from racing peers cause no double effect.
type Room struct {
	bus bus.Bus

	// Configuration. Set once, then immutable except through the settings
	// propagation protocol.
	theme           string
	sentenceLength  int
	timeLimit       int
	maxPlayers      int
	words           []string
	enableBetting   bool
	betAmount       string
	contractAddress string

	// creatorCfg is non-nil only on the peer that created the room; it is
	// the single source of truth for the broadcast protocol.
	creatorCfg          *Settings
	settingsInitialized bool

	started  bool
	timeLeft int

	countdownActive        bool
	countdown              int
	countdownTickScheduled bool
	gameTickScheduled      bool

	players map[string]*Player
	order   []string // join order; order[0] is the implicit leader

	highscores   map[string]int
	chatMessages []ChatMessage

	viewUpdateGate   gate
	stateRequestGate perKeyGate
	lastSnapshot     int64

	rng *rand.Rand

	unsubs []func()
}

// NewRoom wires a simulation instance to its bus. cfg is non-nil only on the
// creator peer and is handed over here, at construction, instead of through
// any process-wide holder; guests pass nil and wait for the broadcast.
func NewRoom(b bus.Bus, cfg *Settings) *Room {
	r := &Room{
		bus:              b,
		creatorCfg:       cfg,
		players:          make(map[string]*Player),
		highscores:       make(map[string]int),
		countdown:        constants.CountdownFrom,
		viewUpdateGate:   newGate(constants.ViewUpdateThrottleMs),
		stateRequestGate: newPerKeyGate(constants.StateRequestThrottleMs),
		rng:              rand.New(rand.NewSource(b.Now() + 1)),
	}
	r.setDefaultSettings()
	r.timeLeft = r.timeLimit

	r.unsubs = append(r.unsubs,
		b.Subscribe("room", "initialize-settings", r.handleInitializeSettings),
		b.Subscribe("room", "broadcast-settings", r.handleBroadcastSettings),
		b.Subscribe("room", "view-join", r.handleViewJoin),
		b.Subscribe("room", "view-exit", r.handleViewExit),
		b.Subscribe("game", "start", func(any) { r.startGame() }),
		b.Subscribe("game", "reset", func(any) { r.resetGame() }),
		b.Subscribe("game", "state-sync", r.handleStateSync),
		b.Subscribe("game", "request-state", r.handleStateRequest),
		b.Subscribe("chat", "message", r.handleChatMessage),
	)

	b.ScheduleAfter(100, r.setupSettings)
	return r
}

// Close detaches the room and its players from the bus.
func (r *Room) Close() {
	for _, p := range r.players {
		p.destroy()
	}
	for _, u := range r.unsubs {
		u()
	}
	r.unsubs = nil
}

// Leader is the peer authoritative for state-recovery responses: the first
// entry of the join-ordered registry. Leadership silently moves to the next
// entry when the first player leaves; the periodic snapshots paper over the
// transfer window.
func (r *Room) Leader() string {
	if len(r.order) == 0 {
		return ""
	}
	return r.order[0]
}

func (r *Room) playersInOrder() []*Player {
	out := make([]*Player, 0, len(r.players))
	for _, id := range r.order {
		if p, ok := r.players[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Player returns the entity for a view id, or nil.
func (r *Room) Player(viewID string) *Player {
	return r.players[viewID]
}

// handleViewJoin registers a joining peer. A second join for a known view id
// is a reconnect and turns into a state request instead of a duplicate
// entity; a join beyond capacity is rejected with a targeted event, never an
// error, because there is no synchronous caller across the bus.
func (r *Room) handleViewJoin(payload any) {
	viewID, ok := decode[string](payload)
	if !ok || viewID == "" {
		return
	}
	if _, exists := r.players[viewID]; exists {
		r.bus.Publish("game", "request-state", viewID)
		// A reconnect counts as a join for the creator's rebroadcast too;
		// the rejoiner may have come back with placeholder settings.
		if r.creatorCfg != nil && len(r.players) > 1 {
			r.bus.ScheduleAfter(constants.SettingsRejoinDelayMs, r.broadcastSettings)
		}
		return
	}
	if len(r.players) >= r.maxPlayers {
		log.Printf("[room] join rejected, at capacity %d: %s", r.maxPlayers, viewID)
		r.bus.Publish(viewID, "room-full", nil)
		return
	}

	r.players[viewID] = newPlayer(r, viewID)
	r.order = append(r.order, viewID)

	if len(r.players) > 1 {
		r.bus.Publish("game", "request-state", viewID)
	}
	if len(r.players) == 1 {
		r.bus.ScheduleAfter(constants.SettingsCheckDelayMs, r.checkAndInitializeSettings)
	}
	// Late subscribers race the initial settings broadcast; the creator
	// answers every later join with a fresh one.
	if r.creatorCfg != nil && len(r.players) > 1 {
		r.bus.ScheduleAfter(constants.SettingsRejoinDelayMs, r.broadcastSettings)
	}

	r.throttledViewUpdate()
}

func (r *Room) handleViewExit(payload any) {
	viewID, ok := decode[string](payload)
	if !ok {
		return
	}
	p, exists := r.players[viewID]
	if !exists {
		return
	}
	p.destroy()
	delete(r.players, viewID)
	for i, id := range r.order {
		if id == viewID {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	r.throttledViewUpdate()
}

// throttledViewUpdate coalesces bursts of registry churn into at most one
// refresh signal per window.
func (r *Room) throttledViewUpdate() {
	if r.viewUpdateGate.ready(r.bus.Now()) {
		r.bus.Publish("view", "update", nil)
	}
}

// startGame moves Idle -> Countdown. Duplicate start events, including ones
// from a second would-be host, are ignored; exactly one countdown sequence
// runs.
func (r *Room) startGame() {
	if r.started || r.countdownActive {
		return
	}
	r.countdownActive = true
	r.countdown = constants.CountdownFrom
	r.countdownTickScheduled = false

	// Publish immediately so every peer renders "3" before the first tick.
	r.bus.Publish("view", "update", nil)

	r.bus.ScheduleAfter(constants.CountdownSettleMs, r.scheduleCountdownTick)
}

func (r *Room) scheduleCountdownTick() {
	if !r.countdownTickScheduled {
		r.countdownTickScheduled = true
		r.bus.ScheduleAfter(constants.CountdownTickMs, r.countdownTick)
	}
}

func (r *Room) countdownTick() {
	r.countdownTickScheduled = false
	if !r.countdownActive || r.countdown <= 0 {
		return
	}
	r.countdown--
	r.bus.Publish("view", "update", nil)

	if r.countdown > 0 {
		r.scheduleCountdownTick()
	} else {
		r.bus.ScheduleAfter(constants.CountdownGoDelayMs, r.finishCountdown)
	}
}

// finishCountdown moves Countdown -> Active: resets every player and starts
// the per-second tick loop.
func (r *Room) finishCountdown() {
	if !r.countdownActive {
		return
	}
	r.countdownActive = false
	r.started = true
	r.timeLeft = r.timeLimit
	for _, p := range r.playersInOrder() {
		p.reset()
	}
	r.scheduleNextTick()
	r.bus.Publish("view", "update", nil)
}

func (r *Room) scheduleNextTick() {
	if !r.gameTickScheduled {
		r.gameTickScheduled = true
		r.bus.ScheduleAfter(constants.GameTickMs, r.tick)
	}
}

// tick is one second of active round. Every tenth second it also emits a
// full snapshot as a drift-correction heartbeat. When time expires the round
// ends: scores are committed to the highscore table and settlement runs.
func (r *Room) tick() {
	r.gameTickScheduled = false
	if !r.started {
		return
	}

	r.timeLeft--

	if r.timeLeft > 0 && r.timeLeft%constants.StateSyncEverySec == 0 {
		r.saveGameState()
	}

	r.bus.Publish("view", "update", nil)

	if r.timeLeft > 0 {
		r.scheduleNextTick()
		return
	}

	r.started = false
	for _, p := range r.playersInOrder() {
		if p.Initials != "" {
			r.setHighscore(p.Initials, p.Score)
		}
	}
	r.bus.Publish("view", "update", nil)
	r.handleGameFinished()
}

// resetGame moves any state back to Idle. Stale scheduled ticks become
// no-ops behind the started/countdown guards rather than being cancelled.
func (r *Room) resetGame() {
	r.started = false
	r.timeLeft = r.timeLimit
	r.gameTickScheduled = false
	r.countdownActive = false
	r.countdown = constants.CountdownFrom
	r.countdownTickScheduled = false
	r.chatMessages = nil

	for _, p := range r.playersInOrder() {
		p.reset()
	}
	r.bus.Publish("view", "update", nil)
}

// GameResult is the end-of-round settlement summary published to the
// betting/UI collaborators.
type GameResult struct {
	Winners      []string `json:"winners"`
	HighestScore int      `json:"highestScore"`
	IsDraw       bool     `json:"isDraw"`
}

// PayoutRequest asks the betting collaborator to settle a decided round.
type PayoutRequest struct {
	Winners         []string `json:"winners"`
	ContractAddress string   `json:"contractAddress"`
	BetAmount       string   `json:"betAmount"`
}

// RefundNotice signals a round nobody scored in, where stakes go back.
type RefundNotice struct {
	Reason string `json:"reason"`
}

func (r *Room) highestScore() int {
	highest := 0
	for _, p := range r.players {
		if p.Score > highest {
			highest = p.Score
		}
	}
	return highest
}

// Winners returns every player holding the maximum score, empty when nobody
// scored. Two or more is a draw, however many ways.
func (r *Room) Winners() []*Player {
	highest := r.highestScore()
	if highest <= 0 {
		return nil
	}
	var winners []*Player
	for _, p := range r.playersInOrder() {
		if p.Score == highest {
			winners = append(winners, p)
		}
	}
	return winners
}

// handleGameFinished emits the settlement signals. The payout request fires
// only for a unique winner in a betting-enabled room; a draw keeps every
// stake where the contract put it and a scoreless round asks for a refund.
// The core stays correct if no collaborator ever acts on these.
func (r *Room) handleGameFinished() {
	winners := r.Winners()
	if len(winners) == 0 {
		r.bus.Publish("game", "no-winner-refund", RefundNotice{
			Reason: "No player scored any points.",
		})
		return
	}

	ids := make([]string, len(winners))
	for i, w := range winners {
		ids[i] = w.ViewID
	}
	r.bus.Publish("game", "game-finished", GameResult{
		Winners:      ids,
		HighestScore: winners[0].Score,
		IsDraw:       len(winners) > 1,
	})

	if len(winners) == 1 && r.enableBetting && r.contractAddress != "" {
		r.bus.Publish("game", "betting-payout", PayoutRequest{
			Winners:         ids,
			ContractAddress: r.contractAddress,
			BetAmount:       r.betAmount,
		})
	}
}

// setHighscore records a personal best for a display name, announcing new
// records separately from the plain refresh signal.
func (r *Room) setHighscore(initials string, score int) {
	if score <= r.highscores[initials] {
		return
	}
	r.highscores[initials] = score
	r.bus.Publish("view", "update", nil)
	r.bus.Publish("view", "new-highscore", map[string]any{
		"initials": initials,
		"score":    score,
	})
}

// handleChatMessage validates, logs and rebroadcasts a chat message. Every
// client's chat view derives from this echo, not its own optimistic one, so
// all peers see the same bounded log.
func (r *Room) handleChatMessage(payload any) {
	msg, ok := decode[ChatMessage](payload)
	if !ok {
		return
	}
	msg.Message = strings.TrimSpace(msg.Message)
	if msg.ViewID == "" || msg.Message == "" {
		return
	}
	if _, exists := r.players[msg.ViewID]; !exists {
		return
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = r.bus.Now()
	}
	if msg.ID == "" {
		msg.ID = fmt.Sprintf("%s-%d", msg.ViewID, msg.Timestamp)
	}

	r.chatMessages = append(r.chatMessages, msg)
	if len(r.chatMessages) > constants.MaxChatMessages {
		r.chatMessages = r.chatMessages[len(r.chatMessages)-constants.MaxChatMessages:]
	}

	r.bus.Publish("chat", "message-received", msg)
}

// PlayerState is the per-player slice of a view snapshot.
type PlayerState struct {
	ViewID        string  `json:"viewId"`
	Initials      string  `json:"initials"`
	AvatarURL     string  `json:"avatarUrl"`
	WalletAddress string  `json:"walletAddress,omitempty"`
	Score         int     `json:"score"`
	Index         int     `json:"index"`
	Progress      float64 `json:"progress"`
	WPM           int     `json:"wpm"`
	Rank          int     `json:"rank"`
	Completed     bool    `json:"completed"`
}

// State is the full view-facing snapshot the relay pushes on every update
// signal. It must only be built from inside a bus handler, where it is
// serialized with all mutation.
type State struct {
	Started             bool           `json:"started"`
	TimeLeft            int            `json:"timeLeft"`
	TimeLimit           int            `json:"timeLimit"`
	Theme               string         `json:"theme"`
	SentenceLength      int            `json:"sentenceLength"`
	MaxPlayers          int            `json:"maxPlayers"`
	CountdownActive     bool           `json:"countdownActive"`
	Countdown           int            `json:"countdown"`
	Words               []string       `json:"words"`
	Players             []PlayerState  `json:"players"`
	Highscores          map[string]int `json:"highscores"`
	ChatMessages        []ChatMessage  `json:"chatMessages"`
	SettingsInitialized bool           `json:"roomSettingsInitialized"`
	EnableBetting       bool           `json:"enableBetting"`
	BetAmount           string         `json:"betAmount,omitempty"`
}

// GameState builds the view snapshot.
func (r *Room) GameState() State {
	players := make([]PlayerState, 0, len(r.players))
	for _, p := range r.playersInOrder() {
		players = append(players, PlayerState{
			ViewID:        p.ViewID,
			Initials:      p.Initials,
			AvatarURL:     p.AvatarURL,
			WalletAddress: p.WalletAddress,
			Score:         p.Score,
			Index:         p.Index,
			Progress:      p.Progress,
			WPM:           p.WPM,
			Rank:          p.Rank(),
			Completed:     p.Completed(),
		})
	}
	highscores := make(map[string]int, len(r.highscores))
	for name, score := range r.highscores {
		highscores[name] = score
	}
	return State{
		Started:             r.started,
		TimeLeft:            r.timeLeft,
		TimeLimit:           r.timeLimit,
		Theme:               r.theme,
		SentenceLength:      r.sentenceLength,
		MaxPlayers:          r.maxPlayers,
		CountdownActive:     r.countdownActive,
		Countdown:           r.countdown,
		Words:               append([]string(nil), r.words...),
		Players:             players,
		Highscores:          highscores,
		ChatMessages:        append([]ChatMessage(nil), r.chatMessages...),
		SettingsInitialized: r.settingsInitialized,
		EnableBetting:       r.enableBetting,
		BetAmount:           r.betAmount,
	}
}
