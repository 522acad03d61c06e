package bridge

// ConnState is the bridge's connection state machine position:
// Disconnected -> Connecting -> Connected -> Registered. Registered is
// the only state in which uplink events flow.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
	StateRegistered   ConnState = "registered"
)
