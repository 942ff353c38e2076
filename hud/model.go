package hud

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jagan969646/My-Jarvis-Assistant/metrics"
	"github.com/jagan969646/My-Jarvis-Assistant/session"
)

// Controller starts and stops links and publishes their state.
type Controller interface {
	Start(ctx context.Context) error
	Stop() error
	Snapshot() session.Snapshot
	Subscribe(buffer int) (<-chan session.Event, func())
}

// EventMsg wraps a session event for bubbletea.
type EventMsg session.Event

// TickMsg refreshes the metrics readout.
type TickMsg time.Time

// StartResultMsg reports the outcome of a start request.
type StartResultMsg struct{ Err error }

type keyMap struct {
	Start key.Binding
	Stop  key.Binding
	Quit  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Start: key.NewBinding(key.WithKeys("s", "enter"), key.WithHelp("s", "initialize link")),
		Stop:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "terminate link")),
		Quit:  key.NewBinding(key.WithKeys("ctrl+c", "q", "esc"), key.WithHelp("q", "quit")),
	}
}

// Model is the bubbletea model for the terminal HUD.
type Model struct {
	ctl     Controller
	metrics *metrics.Collector
	events  <-chan session.Event
	cancel  func()
	keys    keyMap
	spinner spinner.Model

	status     session.Status
	active     bool
	logs       []session.LogEntry
	sys        metrics.System
	cameraLive bool
	starting   bool
	logCap     int

	width  int
	height int
}

// NewModel subscribes to ctl and keeps at most logCapacity log lines, the
// same capacity the controller's state uses. Call Close when the program
// exits.
func NewModel(ctl Controller, m *metrics.Collector, logCapacity int) *Model {
	if logCapacity <= 0 {
		logCapacity = session.DefaultLogCapacity
	}
	// Subscribe before the snapshot so nothing published in between is lost.
	events, cancel := ctl.Subscribe(256)
	snap := ctl.Snapshot()
	return &Model{
		ctl:     ctl,
		metrics: m,
		events:  events,
		cancel:  cancel,
		keys:    defaultKeyMap(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		status:  snap.Status,
		active:  snap.Active,
		logs:    snap.Logs,
		logCap:  logCapacity,
		sys:     m.Snapshot(time.Now()),
	}
}

// Close drops the subscription.
func (m *Model) Close() {
	m.cancel()
}

// Init starts listening and ticking.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.listen(), tick())
}

func (m *Model) listen() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return EventMsg(ev)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m *Model) start() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return StartResultMsg{Err: ctl.Start(ctx)}
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Start):
			if m.active || m.starting {
				return m, nil
			}
			m.starting = true
			return m, tea.Batch(m.start(), m.spinner.Tick)
		case key.Matches(msg, m.keys.Stop):
			if !m.active {
				return m, nil
			}
			if err := m.ctl.Stop(); err != nil {
				log.Printf("⚠️ Stop failed: %v", err)
				if errors.Is(err, session.ErrNotActive) {
					// The link closed on its own; the close event may still be queued.
					m.active = false
				}
			}
			return m, nil
		}

	case spinner.TickMsg:
		if !m.starting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case StartResultMsg:
		m.starting = false
		if msg.Err != nil && !errors.Is(msg.Err, session.ErrSessionActive) {
			// The session already logged the failure.
			m.status = session.StatusError
		}

	case EventMsg:
		m.apply(session.Event(msg))
		return m, m.listen()

	case TickMsg:
		m.sys = m.metrics.Snapshot(time.Time(msg))
		return m, tick()
	}
	return m, nil
}

func (m *Model) apply(ev session.Event) {
	switch ev.Kind {
	case session.EventStatus:
		m.status = ev.Status
	case session.EventActive:
		m.active = ev.Active
		if !ev.Active {
			m.cameraLive = false
		}
	case session.EventLog:
		if m.hasLog(ev.Log.ID) {
			// already in the initial snapshot
			return
		}
		m.logs = append(m.logs, ev.Log)
		if len(m.logs) > m.logCap {
			m.logs = m.logs[len(m.logs)-m.logCap:]
		}
	case session.EventFrame:
		m.cameraLive = true
	}
}

func (m *Model) hasLog(id string) bool {
	if id == "" {
		return false
	}
	for i := len(m.logs) - 1; i >= 0; i-- {
		if m.logs[i].ID == id {
			return true
		}
	}
	return false
}

// View renders the HUD.
func (m *Model) View() string {
	var pending string
	if m.starting {
		pending = m.spinner.View()
	}
	return Render(Frame{
		Pending:    pending,
		Status:     m.status,
		Active:     m.active,
		Logs:       m.logs,
		Metrics:    m.sys,
		CameraLive: m.cameraLive,
		Width:      m.width,
		Height:     m.height,
	})
}
