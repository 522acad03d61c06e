package probe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	cfg.HubURL = "wss://hub.example.com/"
	require.NoError(t, cfg.validate())
	require.Equal(t, CaptureModeAutomatic, cfg.NetworkCaptureMode)
	require.Equal(t, CaptureScopeAll, cfg.NetworkCaptureScope)
}

func TestParseSettingsURLRoundTrip(t *testing.T) {
	cfg, err := ParseSettingsURL("debughub://192.168.1.10:9191?token=abc123")
	require.NoError(t, err)
	require.Equal(t, "abc123", cfg.Token)
	require.Equal(t, "wss://192.168.1.10:9191/", cfg.HubURL)

	round := cfg.SettingsURL()
	cfg2, err := ParseSettingsURL(round)
	require.NoError(t, err)
	require.Equal(t, cfg.Token, cfg2.Token)
	require.Equal(t, cfg.HubURL, cfg2.HubURL)
}

func TestParseSettingsURLRejectsWrongScheme(t *testing.T) {
	_, err := ParseSettingsURL("http://192.168.1.10:9191?token=abc123")
	require.Error(t, err)
}

func TestParseSettingsURLRejectsMissingHost(t *testing.T) {
	_, err := ParseSettingsURL("debughub://?token=abc123")
	require.Error(t, err)
}

func TestValidateRejectsBadEnums(t *testing.T) {
	cfg := Default()
	cfg.HubURL = "wss://hub.example.com/"

	bad := cfg
	bad.NetworkCaptureMode = "sometimes"
	require.Error(t, bad.validate())

	bad = cfg
	bad.NetworkCaptureScope = "everything"
	require.Error(t, bad.validate())

	bad = cfg
	bad.MaxBufferSize = 0
	require.Error(t, bad.validate())

	bad = cfg
	bad.HubURL = ""
	require.Error(t, bad.validate())
}
