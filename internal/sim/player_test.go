package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedWordAdvancesScoreIndexProgress(t *testing.T) {
	t.Parallel()
	r, s, clk := newTestRoom(testSettings())
	join(s, "A")
	startRound(s, clk)
	clk.Advance(1000)

	a := r.Player("A")
	require.NotNil(t, a)

	s.Publish("A", "typed-word", true)
	assert.Equal(t, 1, a.Score)
	assert.Equal(t, 1, a.Index)
	assert.InDelta(t, 10.0, a.Progress, 0.001)

	// Incorrect submissions change nothing.
	s.Publish("A", "typed-word", false)
	assert.Equal(t, 1, a.Score)
	assert.Equal(t, 1, a.Index)
}

func TestTypedWordIgnoredWhileIdle(t *testing.T) {
	t.Parallel()
	r, s, _ := newTestRoom(testSettings())
	join(s, "A")

	s.Publish("A", "typed-word", true)
	a := r.Player("A")
	assert.Equal(t, 0, a.Score)
	assert.Equal(t, 0, a.Index)
}

func TestScoreAndIndexAreMonotonicThroughRound(t *testing.T) {
	t.Parallel()
	r, s, clk := newTestRoom(testSettings())
	join(s, "A")
	startRound(s, clk)

	a := r.Player("A")
	lastScore, lastIndex := a.Score, a.Index
	inputs := []bool{true, false, true, true, false, true}
	for _, correct := range inputs {
		s.Publish("A", "typed-word", correct)
		assert.GreaterOrEqual(t, a.Score, lastScore)
		assert.GreaterOrEqual(t, a.Index, lastIndex)
		lastScore, lastIndex = a.Score, a.Index
		clk.Advance(500)
	}
}

func TestProgressIsHundredExactlyAtCompletion(t *testing.T) {
	t.Parallel()
	r, s, clk := newTestRoom(testSettings())
	join(s, "A")
	startRound(s, clk)

	a := r.Player("A")
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Progress == 100, a.Index >= len(r.words))
		s.Publish("A", "typed-word", true)
	}
	assert.Equal(t, float64(100), a.Progress)
	assert.Equal(t, 10, a.Index)
	assert.True(t, a.Completed())
	_ = clk
}

func TestWPMDerivesFromScoreAndElapsedTime(t *testing.T) {
	t.Parallel()
	r, s, clk := newTestRoom(testSettings())
	join(s, "A")
	startRound(s, clk)

	a := r.Player("A")
	s.Publish("A", "typed-word", true)
	assert.Equal(t, 0, a.WPM, "no time elapsed yet")

	clk.Advance(1000) // one second into the round
	s.Publish("A", "typed-word", true)
	// 2 words in 1/60 min: 120 wpm.
	assert.Equal(t, 120, a.WPM)
}

func TestSetInitialsUniquenessFirstWriterWins(t *testing.T) {
	t.Parallel()
	r, s, _ := newTestRoom(testSettings())
	join(s, "A", "B")

	s.Publish("A", "set-initials", "ZZZ")
	s.Publish("B", "set-initials", "ZZZ")

	assert.Equal(t, "ZZZ", r.Player("A").Initials)
	assert.Equal(t, "", r.Player("B").Initials)
}

func TestSetInitialsCooldownAndEmptyGuard(t *testing.T) {
	t.Parallel()
	r, s, clk := newTestRoom(testSettings())
	join(s, "A")

	s.Publish("A", "set-initials", "")
	assert.Equal(t, "", r.Player("A").Initials)

	s.Publish("A", "set-initials", "AAA")
	require.Equal(t, "AAA", r.Player("A").Initials)

	// Inside the 2s window the rename is refused silently.
	clk.Advance(1000)
	s.Publish("A", "set-initials", "BBB")
	assert.Equal(t, "AAA", r.Player("A").Initials)

	clk.Advance(1000)
	s.Publish("A", "set-initials", "BBB")
	assert.Equal(t, "BBB", r.Player("A").Initials)
}

func TestSetInitialsPromotesHighscore(t *testing.T) {
	t.Parallel()
	r, s, clk := newTestRoom(testSettings())
	join(s, "A")
	startRound(s, clk)
	clk.Advance(1000)

	for i := 0; i < 4; i++ {
		s.Publish("A", "typed-word", true)
	}
	s.Publish("A", "set-initials", "ACE")
	assert.Equal(t, 4, r.highscores["ACE"])
}

func TestAvatarAndWalletCooldowns(t *testing.T) {
	t.Parallel()
	r, s, clk := newTestRoom(testSettings())
	join(s, "A")
	a := r.Player("A")

	s.Publish("A", "set-avatar", "https://img/1.png")
	require.Equal(t, "https://img/1.png", a.AvatarURL)

	clk.Advance(2000)
	s.Publish("A", "set-avatar", "https://img/2.png")
	assert.Equal(t, "https://img/1.png", a.AvatarURL, "3s avatar cooldown")
	clk.Advance(1000)
	s.Publish("A", "set-avatar", "https://img/2.png")
	assert.Equal(t, "https://img/2.png", a.AvatarURL)

	s.Publish("A", "set-wallet", "0x1111")
	require.Equal(t, "0x1111", a.WalletAddress)

	clk.Advance(4000)
	s.Publish("A", "set-wallet", "0x2222")
	assert.Equal(t, "0x1111", a.WalletAddress, "5s wallet cooldown")
	clk.Advance(1000)
	s.Publish("A", "set-wallet", "0x2222")
	assert.Equal(t, "0x2222", a.WalletAddress)
}

func TestResetPublishesOnlyOnActualChange(t *testing.T) {
	t.Parallel()
	r, s, clk := newTestRoom(testSettings())
	join(s, "A")
	startRound(s, clk)
	clk.Advance(1000)

	a := r.Player("A")
	updates := countEvents(s, "view", "update")

	a.reset() // nothing to clear yet
	assert.Equal(t, 0, *updates)

	s.Publish("A", "typed-word", true)
	before := *updates
	clk.Advance(200)
	a.reset()
	assert.Greater(t, *updates, before)
	assert.Zero(t, a.Score)
	assert.Zero(t, a.Index)
	assert.Zero(t, a.Progress)
	assert.Zero(t, a.WPM)
}

func TestThrottledPublishCoalescesBursts(t *testing.T) {
	t.Parallel()
	_, s, clk := newTestRoom(testSettings())
	join(s, "A")
	startRound(s, clk)
	clk.Advance(1000)

	updates := countEvents(s, "view", "update")

	s.Publish("A", "typed-word", true)
	s.Publish("A", "typed-word", true)
	assert.Equal(t, 1, *updates, "second publish inside the window is deferred")

	clk.Advance(100)
	assert.Equal(t, 2, *updates, "deferred publish fires after the window")
}

func TestRankOrdersFinishersFirstThenScore(t *testing.T) {
	t.Parallel()
	r, s, clk := newTestRoom(testSettings())
	join(s, "A", "B", "C")
	startRound(s, clk)
	clk.Advance(1000)

	// B finishes everything, A scores some, C none.
	for i := 0; i < 10; i++ {
		s.Publish("B", "typed-word", true)
	}
	for i := 0; i < 3; i++ {
		s.Publish("A", "typed-word", true)
	}

	clk.Advance(600) // past the rank cache window
	assert.Equal(t, 1, r.Player("B").Rank())
	assert.Equal(t, 2, r.Player("A").Rank())
	assert.Equal(t, 3, r.Player("C").Rank())
}

func TestRankIsCachedBriefly(t *testing.T) {
	t.Parallel()
	r, s, clk := newTestRoom(testSettings())
	join(s, "A", "B")
	startRound(s, clk)
	clk.Advance(1000)

	a := r.Player("A")
	require.Equal(t, 1, a.Rank()) // join order breaks the tie at 0-0

	for i := 0; i < 5; i++ {
		s.Publish("B", "typed-word", true)
	}
	assert.Equal(t, 1, a.Rank(), "cached standing still served")

	clk.Advance(500)
	assert.Equal(t, 2, a.Rank(), "cache expired, B leads")
}

func TestLeaveDetachesPlayerHandlers(t *testing.T) {
	t.Parallel()
	r, s, clk := newTestRoom(testSettings())
	join(s, "A", "B")
	startRound(s, clk)
	clk.Advance(1000)

	a := r.Player("A")
	s.Publish("room", "view-exit", "A")
	s.Publish("A", "typed-word", true)

	assert.Equal(t, 0, a.Score, "destroyed entity no longer handles events")
	assert.Nil(t, r.Player("A"))
}
