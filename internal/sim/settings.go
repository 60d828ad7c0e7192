package sim

import (
	"fmt"

	"github.com/p0isonxs/synqType/internal/constants"
	"github.com/p0isonxs/synqType/internal/words"
)

// Settings is the room configuration the creator owns and every guest
// converges to before a round starts. Words is the exact sequence to type;
// it must match element for element across peers, so it travels inside the
// broadcast instead of being regenerated per peer.
type Settings struct {
	Theme          string   `json:"theme"`
	SentenceLength int      `json:"sentenceLength"`
	TimeLimit      int      `json:"timeLimit"`
	MaxPlayers     int      `json:"maxPlayers"`
	Words          []string `json:"words"`

	EnableBetting   bool   `json:"enableBetting"`
	BetAmount       string `json:"betAmount,omitempty"`
	ContractAddress string `json:"contractAddress,omitempty"`
}

// Validate enforces the room-creation bounds. The simulation itself never
// calls this; guards at the API edge do, so a malformed broadcast still
// degrades to a no-op inside the model rather than an error.
func (s *Settings) Validate() error {
	if s.SentenceLength < constants.MinSentenceLength || s.SentenceLength > constants.MaxSentenceLength {
		return fmt.Errorf("sentence length must be between %d and %d", constants.MinSentenceLength, constants.MaxSentenceLength)
	}
	if s.TimeLimit < constants.MinTimeLimit || s.TimeLimit > constants.MaxTimeLimit {
		return fmt.Errorf("time limit must be between %d and %d seconds", constants.MinTimeLimit, constants.MaxTimeLimit)
	}
	if s.MaxPlayers < constants.MinPlayers || s.MaxPlayers > constants.MaxPlayersLimit {
		return fmt.Errorf("max players must be between %d and %d", constants.MinPlayers, constants.MaxPlayersLimit)
	}
	return nil
}

// setDefaultSettings seeds the placeholder configuration every instance
// starts from. Guests stay on it until the creator's broadcast lands.
func (r *Room) setDefaultSettings() {
	r.theme = constants.DefaultTheme
	r.sentenceLength = constants.DefaultSentenceLength
	r.timeLimit = constants.DefaultTimeLimit
	r.maxPlayers = constants.DefaultMaxPlayers
	r.words = words.Generate(r.sentenceLength, r.theme)
}

// applySettings merges a partial configuration over the current one. A
// supplied word sequence is copied verbatim and left unshuffled; otherwise
// the room generates and shuffles its own, which only creators and
// placeholder setups ever do.
func (r *Room) applySettings(s Settings) {
	if s.Theme != "" {
		r.theme = s.Theme
	}
	if s.SentenceLength > 0 {
		r.sentenceLength = s.SentenceLength
	}
	if s.TimeLimit > 0 {
		r.timeLimit = s.TimeLimit
	}
	if s.MaxPlayers > 0 {
		r.maxPlayers = s.MaxPlayers
	}
	r.enableBetting = s.EnableBetting
	if s.BetAmount != "" {
		r.betAmount = s.BetAmount
	}
	if s.ContractAddress != "" {
		r.contractAddress = s.ContractAddress
	}

	if len(s.Words) > 0 {
		r.words = append([]string(nil), s.Words...)
	} else {
		if len(r.words) == 0 {
			r.words = words.Generate(r.sentenceLength, r.theme)
		}
		words.Shuffle(r.words, r.rng)
	}
}

// setupSettings runs once shortly after construction. The creator holds the
// authoritative configuration (a constructor parameter, never a process-wide
// holder), applies it locally and schedules the broadcast; guests apply
// placeholders and wait.
func (r *Room) setupSettings() {
	if r.settingsInitialized {
		return
	}
	if r.creatorCfg != nil {
		r.applySettings(*r.creatorCfg)
		r.timeLeft = r.timeLimit
		r.settingsInitialized = true
		r.bus.ScheduleAfter(constants.SettingsBroadcastDelayMs, r.broadcastSettings)
		return
	}
	r.applySettings(Settings{
		Theme:          "random",
		SentenceLength: constants.DefaultSentenceLength,
		TimeLimit:      constants.DefaultTimeLimit,
		MaxPlayers:     constants.DefaultMaxPlayers,
	})
}

// broadcastSettings publishes the full effective configuration. Only the
// creator ever calls this; a peer never re-broadcasts configuration it
// received, which keeps a single source of truth on the wire.
func (r *Room) broadcastSettings() {
	if r.creatorCfg == nil {
		return
	}
	r.bus.Publish("room", "broadcast-settings", Settings{
		Theme:           r.theme,
		SentenceLength:  r.sentenceLength,
		TimeLimit:       r.timeLimit,
		MaxPlayers:      r.maxPlayers,
		Words:           append([]string(nil), r.words...),
		EnableBetting:   r.enableBetting,
		BetAmount:       r.betAmount,
		ContractAddress: r.contractAddress,
	})
	r.bus.Publish("view", "update", nil)
}

// handleInitializeSettings applies a one-shot configuration event, used when
// room-creation code initializes the first instance through the bus instead
// of the constructor.
func (r *Room) handleInitializeSettings(payload any) {
	s, ok := decode[Settings](payload)
	if !ok || r.settingsInitialized {
		return
	}
	r.applySettings(s)
	r.timeLeft = r.timeLimit
	r.settingsInitialized = true
	r.throttledViewUpdate()
}

// handleBroadcastSettings is the guest side of the propagation protocol: the
// received configuration replaces the placeholders verbatim, word order
// included. The creator ignores its own broadcast.
func (r *Room) handleBroadcastSettings(payload any) {
	if r.creatorCfg != nil {
		return
	}
	s, ok := decode[Settings](payload)
	if !ok {
		return
	}
	r.theme = s.Theme
	r.sentenceLength = s.SentenceLength
	r.timeLimit = s.TimeLimit
	r.maxPlayers = s.MaxPlayers
	r.words = append([]string(nil), s.Words...)
	r.enableBetting = s.EnableBetting
	r.betAmount = s.BetAmount
	r.contractAddress = s.ContractAddress
	r.timeLeft = s.TimeLimit
	r.settingsInitialized = true
	r.bus.Publish("view", "update", nil)
}

// checkAndInitializeSettings fires 500ms after the first join, covering the
// window where the room came up before its configuration event arrived.
func (r *Room) checkAndInitializeSettings() {
	if r.settingsInitialized || r.creatorCfg == nil {
		return
	}
	r.bus.Publish("room", "initialize-settings", *r.creatorCfg)
}
