package bus

import (
	"container/heap"
	"sync"
	"time"
)

// Handler receives the payload of a published event.
type Handler func(payload any)

// Bus is the publish/subscribe contract the simulation core is written
// against. Events published on the same Bus are delivered to subscribers in
// publish order. Now is a monotonic logical clock in milliseconds and
// ScheduleAfter defers a callback on that same clock.
type Bus interface {
	Publish(topic, event string, payload any)
	Subscribe(topic, event string, h Handler) (unsubscribe func())
	Now() int64
	ScheduleAfter(delayMs int64, fn func())
}

type subscriber struct {
	id int
	h  Handler
}

type pendingEvent struct {
	topic, event string
	payload      any
	fn           func() // timer callback queued behind an in-flight drain
}

type timerEntry struct {
	due int64
	seq int64
	fn  func()
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)        { *h = append(*h, x.(*timerEntry)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Session is a run-to-completion event loop. All handler execution is
// serialized: a Publish made while another handler is running is queued and
// drained after that handler returns, never nested. Deferred callbacks from
// ScheduleAfter fire through the same loop, so the simulation model is
// effectively single-threaded even when events arrive from many goroutines.
//
// A Session created with NewSession runs on the wall clock. One created with
// NewVirtualSession only moves when its VirtualClock is advanced, which is
// how the timing-sensitive tests stay deterministic.
type Session struct {
	mu          sync.Mutex
	subs        map[string][]subscriber
	nextSubID   int
	queue       []pendingEvent
	dispatching bool

	timers  timerHeap
	nextSeq int64
	virtual bool
	virtNow int64
	start   time.Time
	runner  *time.Timer
	closed  bool
}

// NewSession creates a wall-clock driven session. Logical time starts at zero.
func NewSession() *Session {
	return &Session{
		subs:  make(map[string][]subscriber),
		start: time.Now(),
	}
}

// NewVirtualSession creates a session whose clock only moves via the returned
// VirtualClock. Scheduled callbacks fire synchronously inside Advance.
func NewVirtualSession() (*Session, *VirtualClock) {
	s := &Session{
		subs:    make(map[string][]subscriber),
		virtual: true,
	}
	return s, &VirtualClock{s: s}
}

func key(topic, event string) string { return topic + "\x00" + event }

// Now returns logical milliseconds since the session started.
func (s *Session) Now() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nowLocked()
}

func (s *Session) nowLocked() int64 {
	if s.virtual {
		return s.virtNow
	}
	return time.Since(s.start).Milliseconds()
}

// Subscribe registers a handler for topic/event and returns a function that
// removes it again.
func (s *Session) Subscribe(topic, event string, h Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	k := key(topic, event)
	s.subs[k] = append(s.subs[k], subscriber{id: id, h: h})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.subs[k]
		for i, sub := range list {
			if sub.id == id {
				s.subs[k] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish enqueues the event and, unless a dispatch is already in progress on
// this goroutine's behalf, drains the queue. Handlers run with the session
// lock released so they may publish, subscribe and schedule freely.
func (s *Session) Publish(topic, event string, payload any) {
	s.mu.Lock()
	s.queue = append(s.queue, pendingEvent{topic: topic, event: event, payload: payload})
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true
	s.drainLocked()
}

// drainLocked is entered with the lock held and dispatching set; it returns
// with the lock released.
func (s *Session) drainLocked() {
	for len(s.queue) > 0 {
		ev := s.queue[0]
		s.queue = s.queue[1:]
		if ev.fn != nil {
			s.mu.Unlock()
			ev.fn()
			s.mu.Lock()
			continue
		}
		handlers := append([]subscriber(nil), s.subs[key(ev.topic, ev.event)]...)
		s.mu.Unlock()
		for _, sub := range handlers {
			sub.h(ev.payload)
		}
		s.mu.Lock()
	}
	s.dispatching = false
	s.mu.Unlock()
}

// ScheduleAfter defers fn by delayMs of logical time. The callback re-enters
// the event loop, so anything it publishes keeps FIFO ordering. Callbacks are
// never cancelled; stale ones are expected to no-op behind state guards.
func (s *Session) ScheduleAfter(delayMs int64, fn func()) {
	if delayMs < 0 {
		delayMs = 0
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.nextSeq++
	heap.Push(&s.timers, &timerEntry{due: s.nowLocked() + delayMs, seq: s.nextSeq, fn: fn})
	if !s.virtual {
		s.rearmLocked()
	}
	s.mu.Unlock()
}

// rearmLocked points the single wall-clock runner at the earliest due entry.
func (s *Session) rearmLocked() {
	if s.runner != nil {
		s.runner.Stop()
		s.runner = nil
	}
	if len(s.timers) == 0 {
		return
	}
	wait := time.Duration(s.timers[0].due-s.nowLocked()) * time.Millisecond
	if wait < 0 {
		wait = 0
	}
	s.runner = time.AfterFunc(wait, s.fireDue)
}

// fireDue runs every wall-clock-due timer through the event loop.
func (s *Session) fireDue() {
	for {
		s.mu.Lock()
		if s.closed || len(s.timers) == 0 || s.timers[0].due > s.nowLocked() {
			s.rearmLocked()
			s.mu.Unlock()
			return
		}
		e := heap.Pop(&s.timers).(*timerEntry)
		if s.dispatching {
			// A drain is in flight; queue the callback so it still executes
			// serialized with everything else.
			s.queue = append(s.queue, pendingEvent{fn: e.fn})
			s.mu.Unlock()
			continue
		}
		s.dispatching = true
		s.mu.Unlock()
		e.fn()
		s.mu.Lock()
		s.drainLocked()
	}
}

// Close stops the wall-clock runner. Pending callbacks are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.runner != nil {
		s.runner.Stop()
		s.runner = nil
	}
	s.timers = nil
}

// VirtualClock drives a virtual-time Session.
type VirtualClock struct {
	s *Session
}

// Advance moves logical time forward by ms, firing every scheduled callback
// that falls due, in due-time order, each through the event loop. Time moves
// to each callback's due instant before it runs, so nested ScheduleAfter
// calls land at the right logical time.
func (c *VirtualClock) Advance(ms int64) {
	s := c.s
	target := s.Now() + ms
	for {
		s.mu.Lock()
		if len(s.timers) == 0 || s.timers[0].due > target {
			s.virtNow = target
			s.mu.Unlock()
			return
		}
		e := heap.Pop(&s.timers).(*timerEntry)
		if e.due > s.virtNow {
			s.virtNow = e.due
		}
		s.dispatching = true
		s.mu.Unlock()
		e.fn()
		s.mu.Lock()
		s.drainLocked()
	}
}
