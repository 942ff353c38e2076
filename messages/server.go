package messages

// Error codes
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodeSessionActive  = "SESSION_ACTIVE"
	ErrCodeNotActive      = "NOT_ACTIVE"
	ErrCodeSessionFailed  = "SESSION_FAILED"
)

// Message types
const (
	TypeState   = "state"
	TypeStatus  = "status"
	TypeLog     = "log"
	TypeMetrics = "metrics"
	TypeFrame   = "frame"
	TypePong    = "pong"
	TypeError   = "error"
)

// ServerMessage represents a message sent to a HUD client
type ServerMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

// StatusPayload carries the assistant status and its HUD caption
type StatusPayload struct {
	Status string `json:"status"` // "IDLE", "LISTENING", "THINKING", "SPEAKING", "ERROR"
	Active bool   `json:"active"`
	Label  string `json:"label"`
}

// LogPayload is one terminal line
type LogPayload struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"` // local wall-clock time
	Source    string `json:"source"`    // "SYSTEM", "USER", "JARVIS"
	Message   string `json:"message"`
}

// StatePayload is the full HUD state sent on connect
type StatePayload struct {
	StatusPayload
	Logs []LogPayload `json:"logs"`
}

// MetricsPayload is the system readout
type MetricsPayload struct {
	Memory     float64 `json:"memory"`
	Goroutines int     `json:"goroutines"`
	Network    float64 `json:"network"`
	Uptime     string  `json:"uptime"`
}

// FramePayload carries a camera preview
type FramePayload struct {
	Data     string `json:"data"` // Base64-encoded JPEG
	MimeType string `json:"mimeType"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewStateMessage creates the initial state message
func NewStateMessage(sessionID string, state StatePayload) *ServerMessage {
	return &ServerMessage{Type: TypeState, SessionID: sessionID, Payload: state}
}

// NewStatusMessage creates a status message
func NewStatusMessage(sessionID string, status StatusPayload) *ServerMessage {
	return &ServerMessage{Type: TypeStatus, SessionID: sessionID, Payload: status}
}

// NewLogMessage creates a log line message
func NewLogMessage(sessionID string, entry LogPayload) *ServerMessage {
	return &ServerMessage{Type: TypeLog, SessionID: sessionID, Payload: entry}
}

// NewMetricsMessage creates a metrics message
func NewMetricsMessage(m MetricsPayload) *ServerMessage {
	return &ServerMessage{Type: TypeMetrics, Payload: m}
}

// NewFrameMessage creates a camera preview message
func NewFrameMessage(sessionID, data string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeFrame,
		SessionID: sessionID,
		Payload: FramePayload{
			Data:     data,
			MimeType: "image/jpeg",
		},
	}
}

// NewPongMessage answers a ping
func NewPongMessage() *ServerMessage {
	return &ServerMessage{Type: TypePong}
}

// NewErrorMessage creates an error message
func NewErrorMessage(sessionID, code, message string) *ServerMessage {
	return &ServerMessage{
		Type:      TypeError,
		SessionID: sessionID,
		Payload: ErrorPayload{
			Code:    code,
			Message: message,
		},
	}
}
