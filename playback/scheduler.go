// Package playback schedules model audio for gapless, in-order playback
// against a shared audio clock.
package playback

import (
	"sync"

	"github.com/jagan969646/My-Jarvis-Assistant/audio"
)

// Clock reports the position of the output device in seconds.
type Clock interface {
	CurrentTime() float64
}

// Source is one scheduled buffer.
type Source interface {
	// Stop silences the source immediately. Its end callback is not run.
	Stop()
}

// Sink plays buffers at absolute clock positions. onEnded runs once when a
// source finishes on its own.
type Sink interface {
	Start(buf *audio.Buffer, at float64, onEnded func()) Source
}

// Output is a sink that also provides its own clock.
type Output interface {
	Clock
	Sink
	Close() error
}

// Scheduler queues buffers back to back and tracks the active sources so
// they can be stopped together on barge-in.
type Scheduler struct {
	clock  Clock
	sink   Sink
	onIdle func()

	mu        sync.Mutex
	nextStart float64
	active    map[*entry]struct{}
}

type entry struct {
	src Source
}

// NewScheduler creates a scheduler. onIdle runs whenever the last active
// source ends naturally.
func NewScheduler(clock Clock, sink Sink, onIdle func()) *Scheduler {
	return &Scheduler{
		clock:  clock,
		sink:   sink,
		onIdle: onIdle,
		active: make(map[*entry]struct{}),
	}
}

// Schedule starts buf at max(next start, now) and returns the chosen start
// time. The next start advances by the buffer duration right away so that
// chunks arriving faster than real time still queue without gaps.
func (s *Scheduler) Schedule(buf *audio.Buffer) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.nextStart
	if now := s.clock.CurrentTime(); now > start {
		start = now
	}

	e := &entry{}
	s.active[e] = struct{}{}
	e.src = s.sink.Start(buf, start, func() { s.ended(e) })
	s.nextStart = start + buf.Duration()
	return start
}

func (s *Scheduler) ended(e *entry) {
	s.mu.Lock()
	if _, ok := s.active[e]; !ok {
		// already cleared by StopAll
		s.mu.Unlock()
		return
	}
	delete(s.active, e)
	idle := len(s.active) == 0
	s.mu.Unlock()

	if idle && s.onIdle != nil {
		s.onIdle()
	}
}

// StopAll stops every active source, clears the set and resets the next
// start time to zero.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	sources := make([]Source, 0, len(s.active))
	for e := range s.active {
		if e.src != nil {
			sources = append(sources, e.src)
		}
	}
	s.active = make(map[*entry]struct{})
	s.nextStart = 0
	s.mu.Unlock()

	for _, src := range sources {
		src.Stop()
	}
}

// Active returns the number of sources still scheduled or playing.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// NextStart returns the clock position at which the next buffer would be
// queued if the clock has not passed it.
func (s *Scheduler) NextStart() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}
