package sim

// gate is a minimum-interval guard on the logical clock: it fires at most
// once per interval and silently refuses in between. Every throttled
// operation in the simulation shares this one type instead of repeating the
// timestamp arithmetic inline.
type gate struct {
	intervalMs int64
	last       int64
}

func newGate(intervalMs int64) gate {
	// last starts one interval in the past so the first call always fires,
	// even at logical time zero.
	return gate{intervalMs: intervalMs, last: -intervalMs}
}

// ready reports whether the window has elapsed and, if so, stamps the gate.
func (g *gate) ready(now int64) bool {
	if now-g.last < g.intervalMs {
		return false
	}
	g.last = now
	return true
}

// open reports whether the gate would fire, without stamping it.
func (g *gate) open(now int64) bool {
	return now-g.last >= g.intervalMs
}

// perKeyGate throttles independently per key, for guards like "answer each
// requester at most once per window".
type perKeyGate struct {
	intervalMs int64
	last       map[string]int64
}

func newPerKeyGate(intervalMs int64) perKeyGate {
	return perKeyGate{intervalMs: intervalMs, last: make(map[string]int64)}
}

func (g *perKeyGate) ready(key string, now int64) bool {
	if last, ok := g.last[key]; ok && now-last < g.intervalMs {
		return false
	}
	g.last[key] = now
	return true
}
