package session

import (
	"sync"
	"time"
)

// EventKind tags an Event.
type EventKind int

const (
	EventStatus EventKind = iota
	EventActive
	EventLog
	EventFrame
)

// Event is a state change delivered to subscribers. Only the field
// matching Kind is meaningful.
type Event struct {
	Kind   EventKind
	Status Status
	Active bool
	Log    LogEntry
	Frame  []byte
}

// Snapshot is a consistent copy of State.
type Snapshot struct {
	Status Status     `json:"status"`
	Active bool       `json:"active"`
	Logs   []LogEntry `json:"logs"`
}

const defaultSubscriberBuffer = 64

// State holds the one authoritative status, the active flag and the
// rolling log, and fans changes out to subscribers. A subscriber that
// falls behind misses events rather than stalling the link.
type State struct {
	mu     sync.Mutex
	status Status
	active bool
	logs   *Logbook
	now    func() time.Time

	subs    map[int]chan Event
	nextSub int
}

// NewState creates an idle, inactive state with the given log capacity.
func NewState(logCapacity int) *State {
	return &State{
		logs: NewLogbook(logCapacity),
		now:  time.Now,
		subs: make(map[int]chan Event),
	}
}

// publish must be called with mu held.
func (s *State) publish(ev Event) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SetStatus replaces the status. Repeating the current status is a no-op.
func (s *State) SetStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == st {
		return
	}
	s.status = st
	s.publish(Event{Kind: EventStatus, Status: st})
}

// SetActive records whether a link is open.
func (s *State) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == active {
		return
	}
	s.active = active
	s.publish(Event{Kind: EventActive, Active: active})
}

// AddLog appends a timestamped entry.
func (s *State) AddLog(source Source, message string) LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := newLogEntry(s.now(), source, message)
	s.logs.Append(e)
	s.publish(Event{Kind: EventLog, Log: e})
	return e
}

// PublishFrame forwards a camera preview. Frames are not retained.
func (s *State) PublishFrame(jpeg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(Event{Kind: EventFrame, Frame: jpeg})
}

// Status returns the current status.
func (s *State) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Active reports whether a link is open.
func (s *State) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Status: s.status,
		Active: s.active,
		Logs:   s.logs.Entries(),
	}
}

// Subscribe returns a channel of future events and a cancel func that
// closes it. buffer <= 0 picks a default.
func (s *State) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}
