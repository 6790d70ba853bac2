package server

import "time"

const (
	ProtocolVersion   = 1
	writeWait         = 10 * time.Second
	defaultTickRate   = 30 // ticks per second
	heartbeatInterval = 2 * time.Second
	disconnectAfter   = 3 * heartbeatInterval

	defaultWorldWidth  = 800.0
	defaultWorldHeight = 600.0

	trailCapacity        = 24
	deliveredFadeSeconds = 0.45

	defaultMinSpacing        = 48.0
	defaultPlacementAttempts = 30

	// Autonomous unicast target selection.
	multiHopPreferenceChance = 0.8
	multiHopAttemptBudget    = 3
	shortChainAcceptChance   = 0.5
	longChainMinHops         = 3
)
