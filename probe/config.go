// Package probe wires C2–C7 into the single embeddable library surface
// (C8): parses configuration, owns the lifecycle of the bus, rule
// engines, persistence queue, pipeline, and bridge client, and exposes
// the narrow capture API a host's instrumented HTTP/WebSocket/log call
// sites consume.
package probe

import (
	"fmt"
	"net/url"
	"time"

	"github.com/debughub/probe/internal/defaults"
	"github.com/debughub/probe/probeerr"
)

// CaptureMode selects whether network capture starts active or waits
// for a toggleCapture command from the hub.
type CaptureMode string

const (
	CaptureModeAutomatic CaptureMode = "automatic"
	CaptureModeManual    CaptureMode = "manual"
)

// CaptureScope selects which traffic kinds the pipeline instruments.
type CaptureScope string

const (
	CaptureScopeHTTP      CaptureScope = "http"
	CaptureScopeWebSocket CaptureScope = "websocket"
	CaptureScopeAll       CaptureScope = "all"
)

// BridgeConfig holds the bridge client's reconnect, heartbeat, and flush tuning.
type BridgeConfig struct {
	ReconnectInterval    time.Duration
	MaxReconnectInterval time.Duration
	MaxReconnectAttempts int
	HeartbeatInterval    time.Duration
	BatchSize            int
	FlushInterval        time.Duration
	RecoveryBatchSize    int
}

// Config is the probe's top-level configuration schema.
type Config struct {
	HubURL string
	Token  string

	EnableNetworkCapture bool
	EnableLogCapture     bool
	MaxBufferSize        int

	NetworkCaptureMode  CaptureMode
	NetworkCaptureScope CaptureScope

	EnablePersistence        bool
	MaxPersistenceQueueSize  int
	PersistenceRetentionDays int

	Bridge BridgeConfig
}

// Default returns the configuration schema's documented defaults, with
// HubURL and Token left empty (callers must set them).
func Default() Config {
	return Config{
		EnableNetworkCapture: true,
		EnableLogCapture:     true,
		MaxBufferSize:        defaults.MaxBufferSize,
		NetworkCaptureMode:   CaptureModeAutomatic,
		NetworkCaptureScope:  CaptureScopeAll,

		EnablePersistence:        true,
		MaxPersistenceQueueSize:  defaults.MaxPersistenceQueueSize,
		PersistenceRetentionDays: defaults.PersistenceRetentionDays,

		Bridge: BridgeConfig{
			ReconnectInterval:    defaults.ReconnectInterval,
			MaxReconnectInterval: defaults.MaxReconnectInterval,
			MaxReconnectAttempts: defaults.MaxReconnectAttempts,
			HeartbeatInterval:    defaults.HeartbeatInterval,
			BatchSize:            defaults.BatchSize,
			FlushInterval:        defaults.FlushInterval,
			RecoveryBatchSize:    defaults.RecoveryBatchSize,
		},
	}
}

// ParseSettingsURL parses a debughub://<host>:<port>?token=<token>
// settings URL into a Config seeded with the documented defaults.
func ParseSettingsURL(raw string) (Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Config{}, probeerr.New(probeerr.DomainConfig, probeerr.StageValidate, probeerr.CodeInvalid,
			fmt.Errorf("invalid settings url: %w", err))
	}
	if u.Scheme != "debughub" {
		return Config{}, probeerr.New(probeerr.DomainConfig, probeerr.StageValidate, probeerr.CodeInvalid,
			fmt.Errorf("unsupported settings url scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return Config{}, probeerr.New(probeerr.DomainConfig, probeerr.StageValidate, probeerr.CodeInvalid,
			fmt.Errorf("settings url missing host"))
	}

	cfg := Default()
	cfg.Token = u.Query().Get("token")
	cfg.HubURL = (&url.URL{Scheme: "wss", Host: u.Host, Path: "/"}).String()
	return cfg, nil
}

// SettingsURL renders cfg back into its debughub:// settings URL form.
// Round-tripping ParseSettingsURL(cfg.SettingsURL()) reproduces the same
// host and token.
func (c Config) SettingsURL() string {
	hostPort := c.HubURL
	if u, err := url.Parse(c.HubURL); err == nil && u.Host != "" {
		hostPort = u.Host
	}
	q := url.Values{}
	if c.Token != "" {
		q.Set("token", c.Token)
	}
	u := &url.URL{Scheme: "debughub", Host: hostPort, RawQuery: q.Encode()}
	return u.String()
}

// validate reports a non-nil error if cfg cannot be used to start a
// Controller.
func (c Config) validate() error {
	if c.HubURL == "" {
		return probeerr.New(probeerr.DomainConfig, probeerr.StageValidate, probeerr.CodeInvalid,
			fmt.Errorf("hub_url is required"))
	}
	if c.MaxBufferSize <= 0 {
		return probeerr.New(probeerr.DomainConfig, probeerr.StageValidate, probeerr.CodeInvalid,
			fmt.Errorf("max_buffer_size must be > 0"))
	}
	switch c.NetworkCaptureMode {
	case CaptureModeAutomatic, CaptureModeManual:
	default:
		return probeerr.New(probeerr.DomainConfig, probeerr.StageValidate, probeerr.CodeInvalid,
			fmt.Errorf("invalid network_capture_mode %q", c.NetworkCaptureMode))
	}
	switch c.NetworkCaptureScope {
	case CaptureScopeHTTP, CaptureScopeWebSocket, CaptureScopeAll:
	default:
		return probeerr.New(probeerr.DomainConfig, probeerr.StageValidate, probeerr.CodeInvalid,
			fmt.Errorf("invalid network_capture_scope %q", c.NetworkCaptureScope))
	}
	return nil
}

