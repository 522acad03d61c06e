package bridge

import (
	"fmt"
	"net/http"
	"time"

	"github.com/debughub/probe/internal/defaults"
	"github.com/gorilla/websocket"
)

// Option configures a Client at construction. Omit an option to use the
// library default.
type Option func(*options) error

type options struct {
	header http.Header
	dialer *websocket.Dialer

	reconnectInterval    time.Duration
	maxReconnectInterval time.Duration
	maxReconnectAttempts int

	heartbeatInterval  time.Duration
	batchSize          int
	flushInterval      time.Duration
	recoveryBatchSize  int
	recoveryTickPeriod time.Duration
	breakpointTimeout  time.Duration

	enablePersistence bool
	persistencePath   string
	maxPersistenceSize int
	persistenceRetention time.Duration
}

func defaultOptions() options {
	return options{
		reconnectInterval:    defaults.ReconnectInterval,
		maxReconnectInterval: defaults.MaxReconnectInterval,
		maxReconnectAttempts: defaults.MaxReconnectAttempts,
		heartbeatInterval:    defaults.HeartbeatInterval,
		batchSize:            defaults.BatchSize,
		flushInterval:        defaults.FlushInterval,
		recoveryBatchSize:    defaults.RecoveryBatchSize,
		recoveryTickPeriod:   defaults.RecoveryTickPeriod,
		breakpointTimeout:    defaults.BreakpointTimeout,
		enablePersistence:    true,
		maxPersistenceSize:   defaults.MaxPersistenceQueueSize,
		persistenceRetention: defaults.PersistenceRetentionDays * 24 * time.Hour,
	}
}

func applyOptions(opts []Option) (options, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return options{}, err
		}
	}
	return cfg, nil
}

// WithHeader adds extra HTTP headers for the WebSocket handshake, beyond
// the Authorization bearer header the client always sends.
func WithHeader(h http.Header) Option {
	return func(cfg *options) error {
		cfg.header = h
		return nil
	}
}

// WithDialer sets a custom gorilla/websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(cfg *options) error {
		cfg.dialer = d
		return nil
	}
}

// WithReconnectInterval sets the initial reconnect backoff.
func WithReconnectInterval(d time.Duration) Option {
	return func(cfg *options) error {
		if d <= 0 {
			return fmt.Errorf("reconnect interval must be > 0")
		}
		cfg.reconnectInterval = d
		return nil
	}
}

// WithMaxReconnectInterval sets the backoff ceiling.
func WithMaxReconnectInterval(d time.Duration) Option {
	return func(cfg *options) error {
		if d <= 0 {
			return fmt.Errorf("max reconnect interval must be > 0")
		}
		cfg.maxReconnectInterval = d
		return nil
	}
}

// WithMaxReconnectAttempts bounds reconnect attempts; 0 means unlimited.
func WithMaxReconnectAttempts(n int) Option {
	return func(cfg *options) error {
		if n < 0 {
			return fmt.Errorf("max reconnect attempts must be >= 0")
		}
		cfg.maxReconnectAttempts = n
		return nil
	}
}

// WithHeartbeatInterval sets the heartbeat timer period.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(cfg *options) error {
		if d <= 0 {
			return fmt.Errorf("heartbeat interval must be > 0")
		}
		cfg.heartbeatInterval = d
		return nil
	}
}

// WithBatchSize sets the maximum number of events flushed per attempt.
func WithBatchSize(n int) Option {
	return func(cfg *options) error {
		if n <= 0 {
			return fmt.Errorf("batch size must be > 0")
		}
		cfg.batchSize = n
		return nil
	}
}

// WithFlushInterval sets the flush timer period.
func WithFlushInterval(d time.Duration) Option {
	return func(cfg *options) error {
		if d <= 0 {
			return fmt.Errorf("flush interval must be > 0")
		}
		cfg.flushInterval = d
		return nil
	}
}

// WithRecoveryBatchSize sets how many persisted events drain per recovery
// tick.
func WithRecoveryBatchSize(n int) Option {
	return func(cfg *options) error {
		if n <= 0 {
			return fmt.Errorf("recovery batch size must be > 0")
		}
		cfg.recoveryBatchSize = n
		return nil
	}
}

// WithBreakpointTimeout validates and records a breakpoint continuation
// timeout. The Client does not read it: the timeout that applies is the
// one passed to rules.NewBreakpointEngine for the engine in Deps.
func WithBreakpointTimeout(d time.Duration) Option {
	return func(cfg *options) error {
		if d <= 0 {
			return fmt.Errorf("breakpoint timeout must be > 0")
		}
		cfg.breakpointTimeout = d
		return nil
	}
}

// WithPersistence enables or disables spilling to the queue in
// Deps.Persistence. The path, size cap and retention are recorded but not
// read by the Client; the queue's own spillqueue.Config governs them.
func WithPersistence(enabled bool, path string, maxSize int, retention time.Duration) Option {
	return func(cfg *options) error {
		cfg.enablePersistence = enabled
		cfg.persistencePath = path
		if maxSize > 0 {
			cfg.maxPersistenceSize = maxSize
		}
		if retention > 0 {
			cfg.persistenceRetention = retention
		}
		return nil
	}
}
