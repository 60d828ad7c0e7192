package sim

import (
	"github.com/p0isonxs/synqType/internal/constants"
)

// Snapshot is the full timer/configuration serialization used to catch up a
// lagging or newly-joined peer. Player progress is not in it; players
// re-announce themselves through their own events.
type Snapshot struct {
	Started             bool     `json:"started"`
	TimeLeft            int      `json:"timeLeft"`
	CountdownActive     bool     `json:"countdownActive"`
	Countdown           int      `json:"countdown"`
	Words               []string `json:"words"`
	Theme               string   `json:"theme"`
	SentenceLength      int      `json:"sentenceLength"`
	TimeLimit           int      `json:"timeLimit"`
	MaxPlayers          int      `json:"maxPlayers"`
	SettingsInitialized bool     `json:"roomSettingsInitialized"`
	Timestamp           int64    `json:"timestamp"`
}

// handleStateRequest answers a catch-up request. Only the implicit leader's
// request is off-limits (it has nobody ahead of it to learn from), and each
// requester is answered at most once per window so duplicate join events
// don't trigger snapshot bursts.
func (r *Room) handleStateRequest(payload any) {
	requesterID, ok := decode[string](payload)
	if !ok || requesterID == "" || len(r.players) == 0 {
		return
	}
	leader := r.Leader()
	if leader == "" || requesterID == leader {
		return
	}
	if !r.stateRequestGate.ready(requesterID, r.bus.Now()) {
		return
	}
	r.bus.ScheduleAfter(constants.StateResponseDelayMs, r.saveGameState)
}

// saveGameState publishes the current snapshot. Also called on every tenth
// active tick as the drift-correction heartbeat.
func (r *Room) saveGameState() {
	now := r.bus.Now()
	r.lastSnapshot = now
	r.bus.Publish("game", "state-sync", Snapshot{
		Started:             r.started,
		TimeLeft:            r.timeLeft,
		CountdownActive:     r.countdownActive,
		Countdown:           r.countdown,
		Words:               append([]string(nil), r.words...),
		Theme:               r.theme,
		SentenceLength:      r.sentenceLength,
		TimeLimit:           r.timeLimit,
		MaxPlayers:          r.maxPlayers,
		SettingsInitialized: r.settingsInitialized,
		Timestamp:           now,
	})
}

// handleStateSync applies a received snapshot, but only when it is
// materially different from local state. Without that gate two peers with
// slightly stale views of each other keep "correcting" back and forth;
// with it, an identical snapshot is a pure no-op and publishes nothing.
func (r *Room) handleStateSync(payload any) {
	snap, ok := decode[Snapshot](payload)
	if !ok {
		return
	}

	newTimeLeft := snap.TimeLeft
	if newTimeLeft == 0 {
		newTimeLeft = r.timeLimit
	}
	wordsLen := len(r.words)
	if len(snap.Words) > 0 {
		wordsLen = len(snap.Words)
	}

	significant := r.started != snap.Started ||
		abs(r.timeLeft-newTimeLeft) > 1 ||
		r.countdownActive != snap.CountdownActive ||
		len(r.words) != wordsLen
	if !significant {
		return
	}

	wasStarted := r.started
	wasCounting := r.countdownActive

	r.started = snap.Started
	r.timeLeft = newTimeLeft
	r.countdownActive = snap.CountdownActive
	if snap.Countdown > 0 {
		r.countdown = snap.Countdown
	} else {
		r.countdown = constants.CountdownFrom
	}

	if len(snap.Words) > 0 && len(snap.Words) != len(r.words) {
		r.words = append([]string(nil), snap.Words...)
	}
	if snap.Theme != "" {
		r.theme = snap.Theme
	}
	if snap.SentenceLength > 0 {
		r.sentenceLength = snap.SentenceLength
	}
	if snap.TimeLimit > 0 {
		r.timeLimit = snap.TimeLimit
	}
	if snap.MaxPlayers > 0 {
		r.maxPlayers = snap.MaxPlayers
	}
	if snap.SettingsInitialized {
		r.settingsInitialized = true
	}

	// Each peer runs its own tick loop; a snapshot that lands us mid-round
	// or mid-countdown has to start the local clock too.
	if r.started && !wasStarted {
		r.scheduleNextTick()
	}
	if r.countdownActive && !wasCounting {
		r.scheduleCountdownTick()
	}

	r.bus.Publish("view", "update", nil)
}
