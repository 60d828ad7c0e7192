// Package words holds the themed word library the racing rounds are typed
// against. The creator of a room generates the sequence once and ships it to
// every guest through the settings broadcast, so generation only has to be
// deterministic for a given rand source, not across processes.
package words

import "math/rand"

var library = map[string][]string{
	"tech": {
		"blockchain", "decentralized", "smart", "contract", "crypto",
		"wallet", "DAO", "NFT", "dApp", "token", "ledger", "protocol",
		"consensus", "mining", "staking",
	},
	"multisynq": {
		"multisynq", "sync", "real", "time", "multi", "player", "react",
		"model", "view", "event", "publish", "subscribe", "session",
		"client", "server", "network", "peer", "node", "distributed",
	},
	"monad": {
		"monad", "evm", "layer1", "block", "finality", "parallel", "tps",
		"transaction", "validator", "state", "consensus", "execution",
		"decentralized", "security", "ethereum", "storage",
	},
	"web3": {
		"web3", "wallet", "smart", "contract", "dapp", "eth", "crypto",
		"address", "gas", "token", "sign", "dao", "blockchain", "open",
		"ledger", "decentralized", "identity", "metamask", "key",
	},
	"general": {
		"quick", "brown", "fox", "jumps", "over", "lazy", "dog", "pack",
		"type", "fast", "speed", "word", "text", "key", "board", "finger",
	},
}

// Themes lists the known theme names.
func Themes() []string {
	names := make([]string, 0, len(library))
	for name := range library {
		names = append(names, name)
	}
	return names
}

// ForTheme returns the word pool for theme, falling back to the general pool
// for unknown themes.
func ForTheme(theme string) []string {
	if pool, ok := library[theme]; ok {
		return pool
	}
	return library["general"]
}

// Generate builds a sequence of length words by cycling through the theme's
// pool in order.
func Generate(length int, theme string) []string {
	pool := ForTheme(theme)
	out := make([]string, 0, length)
	for i := 0; i < length; i++ {
		out = append(out, pool[i%len(pool)])
	}
	return out
}

// Shuffle permutes the sequence in place with a Fisher-Yates walk over rng.
func Shuffle(seq []string, rng *rand.Rand) {
	for i := len(seq) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		seq[i], seq[j] = seq[j], seq[i]
	}
}

// GenerateShuffled is the creator-side path: a cyclic fill followed by a
// shuffle, matching what guests will receive verbatim in the broadcast.
func GenerateShuffled(length int, theme string, rng *rand.Rand) []string {
	seq := Generate(length, theme)
	Shuffle(seq, rng)
	return seq
}
