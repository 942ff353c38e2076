package session

import (
	"time"

	"github.com/google/uuid"
)

// DefaultLogCapacity is how many entries the HUD keeps.
const DefaultLogCapacity = 50

// LogEntry is one line of the HUD terminal.
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    Source    `json:"source"`
	Message   string    `json:"message"`
}

// Clock renders the entry time as local wall-clock time.
func (e LogEntry) Clock() string {
	return e.Timestamp.Local().Format("15:04:05")
}

func newLogEntry(now time.Time, source Source, message string) LogEntry {
	return LogEntry{
		ID:        uuid.NewString()[:8],
		Timestamp: now,
		Source:    source,
		Message:   message,
	}
}

// Logbook is a bounded append-only log. Once full, each append evicts the
// oldest entry. It is not safe for concurrent use; State guards it.
type Logbook struct {
	capacity int
	entries  []LogEntry
}

// NewLogbook creates a logbook holding at most capacity entries.
func NewLogbook(capacity int) *Logbook {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &Logbook{
		capacity: capacity,
		entries:  make([]LogEntry, 0, capacity),
	}
}

// Append adds e, dropping the oldest entry if the logbook is full.
func (l *Logbook) Append(e LogEntry) {
	if len(l.entries) == l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, e)
}

// Entries returns a copy, oldest first.
func (l *Logbook) Entries() []LogEntry {
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries held.
func (l *Logbook) Len() int {
	return len(l.entries)
}
