package constants

// Room lifecycle and timing constants. Durations are logical-clock
// milliseconds unless noted; the simulation never reads the wall clock
// directly.
const (
	CountdownFrom      = 3
	CountdownSettleMs  = 1500 // before the first countdown tick, lets peers navigate
	CountdownTickMs    = 1000
	CountdownGoDelayMs = 500 // "GO!" display before the round actually starts
	GameTickMs         = 1000

	StateSyncEverySec = 10 // periodic snapshot while a round is active

	ViewUpdateThrottleMs   = 100
	InitialsThrottleMs     = 2000
	AvatarThrottleMs       = 3000
	WalletThrottleMs       = 5000
	StateRequestThrottleMs = 5000
	RankCacheMs            = 500

	SettingsBroadcastDelayMs = 1000
	SettingsRejoinDelayMs    = 500
	SettingsCheckDelayMs     = 500
	StateResponseDelayMs     = 500

	MaxChatMessages = 50

	DefaultTheme          = "tech"
	DefaultSentenceLength = 30
	DefaultTimeLimit      = 60
	DefaultMaxPlayers     = 4

	MinSentenceLength = 10
	MaxSentenceLength = 40
	MinTimeLimit      = 30
	MaxTimeLimit      = 120
	MinPlayers        = 2
	MaxPlayersLimit   = 6

	MinBetAmount = 0.001
	MaxBetAmount = 10
)
