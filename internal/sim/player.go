package sim

import (
	"math"
	"sort"

	"github.com/p0isonxs/synqType/internal/constants"
)

// Player is the per-participant state, owned exclusively by its Room. All
// mutation happens through the room's join/leave/reset paths and the
// player's own event handlers; nothing outside the event loop touches it.
//
// Every guard here fails closed. Player input is fire-and-forget over the
// bus, so a rejected update is simply superseded by the next keystroke.
type Player struct {
	room *Room

	ViewID        string
	Initials      string
	AvatarURL     string
	WalletAddress string

	Score    int
	Index    int
	Progress float64
	WPM      int

	updateGate   gate
	initialsGate gate
	avatarGate   gate
	walletGate   gate

	cachedRank int
	rankStamp  int64
	rankCached bool

	unsubs []func()
}

func newPlayer(room *Room, viewID string) *Player {
	p := &Player{
		room:         room,
		ViewID:       viewID,
		updateGate:   newGate(constants.ViewUpdateThrottleMs),
		initialsGate: newGate(constants.InitialsThrottleMs),
		avatarGate:   newGate(constants.AvatarThrottleMs),
		walletGate:   newGate(constants.WalletThrottleMs),
	}
	p.unsubs = append(p.unsubs,
		room.bus.Subscribe(viewID, "typed-word", p.handleTypedWord),
		room.bus.Subscribe(viewID, "set-initials", p.handleSetInitials),
		room.bus.Subscribe(viewID, "set-avatar", p.handleSetAvatar),
		room.bus.Subscribe(viewID, "set-wallet", p.handleSetWallet),
	)
	return p
}

// destroy detaches the player's event handlers. The room drops its registry
// entry separately; after both, nothing references the entity.
func (p *Player) destroy() {
	for _, u := range p.unsubs {
		u()
	}
	p.unsubs = nil
}

func (p *Player) handleTypedWord(payload any) {
	correct, ok := decode[bool](payload)
	if !ok {
		return
	}
	p.typedWord(correct)
}

// typedWord advances score, index, progress and wpm on a correct submission.
// Updates publish only when the change is significant, to bound notification
// volume under rapid typing.
func (p *Player) typedWord(correct bool) {
	if !p.room.started {
		return
	}

	oldScore := p.Score
	oldProgress := p.Progress
	oldWPM := p.WPM

	if correct {
		p.Score++
		p.Index++
		if p.Index >= len(p.room.words) {
			p.Progress = 100
		} else {
			p.Progress = math.Min(float64(p.Score)/float64(len(p.room.words))*100, 100)
		}
	}

	p.updateWPM()

	significant := p.Score != oldScore ||
		math.Abs(p.Progress-oldProgress) >= 1 ||
		abs(p.WPM-oldWPM) >= 2

	if significant {
		p.throttledPublish()
	}
}

// updateWPM derives words per minute from score and elapsed round time.
// Small fluctuations are ignored so the figure doesn't jitter every word.
func (p *Player) updateWPM() {
	elapsed := p.room.timeLimit - p.room.timeLeft
	if elapsed <= 0 {
		p.WPM = 0
		return
	}
	minutes := float64(elapsed) / 60
	newWPM := int(math.Round(float64(p.Score) / minutes))
	if abs(p.WPM-newWPM) >= 2 {
		p.WPM = newWPM
	}
}

func (p *Player) handleSetInitials(payload any) {
	initials, ok := decode[string](payload)
	if !ok {
		return
	}
	p.setInitials(initials)
}

// setInitials claims a display name. Names are unique among active players,
// enforced at write time: the second writer loses silently.
func (p *Player) setInitials(initials string) {
	if initials == "" || p.Initials == initials {
		return
	}
	now := p.room.bus.Now()
	if !p.initialsGate.open(now) {
		return
	}
	for _, other := range p.room.playersInOrder() {
		if other.Initials == initials && other.ViewID != p.ViewID {
			return
		}
	}
	p.initialsGate.ready(now)
	p.Initials = initials

	if p.Score > p.room.highscores[initials] {
		p.room.setHighscore(initials, p.Score)
	}
	p.throttledPublish()
}

func (p *Player) handleSetAvatar(payload any) {
	url, ok := decode[string](payload)
	if !ok {
		return
	}
	now := p.room.bus.Now()
	if p.AvatarURL == url || !p.avatarGate.ready(now) {
		return
	}
	p.AvatarURL = url
	p.throttledPublish()
}

func (p *Player) handleSetWallet(payload any) {
	wallet, ok := decode[string](payload)
	if !ok {
		return
	}
	now := p.room.bus.Now()
	if p.WalletAddress == wallet || !p.walletGate.ready(now) {
		return
	}
	p.WalletAddress = wallet
	p.throttledPublish()
}

// throttledPublish is the single point all player notifications go through:
// at most one view update per window, with a delayed retry instead of a
// dropped one.
func (p *Player) throttledPublish() {
	now := p.room.bus.Now()
	if !p.updateGate.ready(now) {
		p.room.bus.ScheduleAfter(constants.ViewUpdateThrottleMs, p.delayedPublish)
		return
	}
	p.room.bus.Publish("view", "update", nil)
}

func (p *Player) delayedPublish() {
	now := p.room.bus.Now()
	if p.updateGate.ready(now) {
		p.room.bus.Publish("view", "update", nil)
	}
}

// reset zeroes the round-scoped fields, publishing only when something
// actually changed.
func (p *Player) reset() {
	changed := p.Score != 0 || p.Progress != 0 || p.Index != 0 || p.WPM != 0
	p.Score = 0
	p.Progress = 0
	p.Index = 0
	p.WPM = 0
	p.rankCached = false
	if changed {
		p.throttledPublish()
	}
}

// Completed reports whether the player has typed the whole sequence.
func (p *Player) Completed() bool {
	return p.Index >= len(p.room.words)
}

// Rank returns the 1-based standing among all players: finishers first, then
// by descending score. The result is cached briefly so a burst of
// near-simultaneous finishes doesn't recompute it per keystroke.
func (p *Player) Rank() int {
	now := p.room.bus.Now()
	if p.rankCached && now-p.rankStamp < constants.RankCacheMs {
		return p.cachedRank
	}

	ranked := p.room.playersInOrder()
	sort.SliceStable(ranked, func(i, j int) bool {
		ci, cj := ranked[i].Progress >= 100, ranked[j].Progress >= 100
		if ci != cj {
			return ci
		}
		return ranked[i].Score > ranked[j].Score
	})
	for i, other := range ranked {
		if other.ViewID == p.ViewID {
			p.cachedRank = i + 1
			break
		}
	}
	p.rankStamp = now
	p.rankCached = true
	return p.cachedRank
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
