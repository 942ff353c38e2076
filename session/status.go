package session

// Status is the assistant's current activity.
type Status int

const (
	StatusIdle Status = iota
	StatusListening
	StatusThinking
	StatusSpeaking
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "IDLE"
	case StatusListening:
		return "LISTENING"
	case StatusThinking:
		return "THINKING"
	case StatusSpeaking:
		return "SPEAKING"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the wire name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Source identifies who produced a log entry.
type Source string

const (
	SourceSystem Source = "SYSTEM"
	SourceUser   Source = "USER"
	SourceJarvis Source = "JARVIS"
)
