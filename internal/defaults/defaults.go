// Package defaults centralizes the numeric defaults named in the
// configuration schema so they are defined exactly once.
package defaults

import "time"

const (
	MaxBufferSize           = 10000
	MaxPersistenceQueueSize = 100000
	PersistenceRetentionDays = 3

	ReconnectInterval    = 3 * time.Second
	MaxReconnectInterval = 30 * time.Second
	MaxReconnectAttempts = 0 // unlimited

	HeartbeatInterval  = 15 * time.Second
	BatchSize          = 100
	FlushInterval      = 1 * time.Second
	RecoveryBatchSize  = 50
	RecoveryTickPeriod = 500 * time.Millisecond

	BreakpointTimeout = 30 * time.Second

	DBBusyTimeout    = 5 * time.Second
	DBQueryTimeout   = 10 * time.Second
	DBMaxPageSize    = 500
	DBMaxResultRows  = 1000
	DBMaxIdentLength = 128
)
