package messages

import "encoding/json"

// Client message types
const (
	TypeControl = "control"
)

// Control actions
const (
	ActionStart = "start"
	ActionStop  = "stop"
	ActionPing  = "ping"
)

// ClientMessage represents a message from a HUD client
type ClientMessage struct {
	Type    string          `json:"type"` // "control"
	Payload json.RawMessage `json:"payload"`
}

// ControlPayload contains control commands
type ControlPayload struct {
	Action string `json:"action"` // "start", "stop", "ping"
}
