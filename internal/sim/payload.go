package sim

import "encoding/json"

// decode narrows an event payload to T. Locally published events carry typed
// values; events that crossed a relay or bridge arrive as raw JSON. Anything
// else is malformed input and fails closed, per the guarded no-op policy.
func decode[T any](payload any) (T, bool) {
	if v, ok := payload.(T); ok {
		return v, true
	}
	var raw []byte
	switch v := payload.(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		var zero T
		return zero, false
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}
