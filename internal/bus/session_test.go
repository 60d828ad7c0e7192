package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversInOrder(t *testing.T) {
	t.Parallel()
	s := NewSession()

	var got []int
	s.Subscribe("game", "num", func(payload any) {
		got = append(got, payload.(int))
	})

	for i := 0; i < 5; i++ {
		s.Publish("game", "num", i)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestPublishFromHandlerIsQueuedNotNested(t *testing.T) {
	t.Parallel()
	s := NewSession()

	var order []string
	s.Subscribe("a", "x", func(any) {
		order = append(order, "a-begin")
		s.Publish("b", "y", nil)
		order = append(order, "a-end")
	})
	s.Subscribe("b", "y", func(any) {
		order = append(order, "b")
	})

	s.Publish("a", "x", nil)

	// The nested publish must run after the outer handler returns.
	assert.Equal(t, []string{"a-begin", "a-end", "b"}, order)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()
	s := NewSession()

	count := 0
	unsub := s.Subscribe("room", "ping", func(any) { count++ })

	s.Publish("room", "ping", nil)
	unsub()
	s.Publish("room", "ping", nil)

	assert.Equal(t, 1, count)
}

func TestVirtualClockFiresTimersInDueOrder(t *testing.T) {
	t.Parallel()
	s, clk := NewVirtualSession()

	var fired []string
	s.ScheduleAfter(300, func() { fired = append(fired, "late") })
	s.ScheduleAfter(100, func() { fired = append(fired, "early") })
	s.ScheduleAfter(100, func() { fired = append(fired, "early2") })

	clk.Advance(99)
	assert.Empty(t, fired)

	clk.Advance(1)
	assert.Equal(t, []string{"early", "early2"}, fired)

	clk.Advance(500)
	assert.Equal(t, []string{"early", "early2", "late"}, fired)
}

func TestVirtualClockRunsNestedSchedules(t *testing.T) {
	t.Parallel()
	s, clk := NewVirtualSession()

	var at []int64
	s.ScheduleAfter(1000, func() {
		at = append(at, s.Now())
		s.ScheduleAfter(1000, func() {
			at = append(at, s.Now())
		})
	})

	clk.Advance(2500)
	require.Len(t, at, 2)
	assert.Equal(t, int64(1000), at[0])
	assert.Equal(t, int64(2000), at[1])
	assert.Equal(t, int64(2500), s.Now())
}

func TestTimerCallbackPublishesThroughLoop(t *testing.T) {
	t.Parallel()
	s, clk := NewVirtualSession()

	var got []string
	s.Subscribe("view", "update", func(any) { got = append(got, "update") })
	s.ScheduleAfter(50, func() {
		s.Publish("view", "update", nil)
	})

	clk.Advance(50)
	assert.Equal(t, []string{"update"}, got)
}

func TestNowAdvancesOnlyWithClock(t *testing.T) {
	t.Parallel()
	s, clk := NewVirtualSession()

	assert.Equal(t, int64(0), s.Now())
	clk.Advance(1234)
	assert.Equal(t, int64(1234), s.Now())
}
