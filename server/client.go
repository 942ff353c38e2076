package server

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/jagan969646/My-Jarvis-Assistant/audio"
	"github.com/jagan969646/My-Jarvis-Assistant/hud"
	"github.com/jagan969646/My-Jarvis-Assistant/messages"
	"github.com/jagan969646/My-Jarvis-Assistant/metrics"
	"github.com/jagan969646/My-Jarvis-Assistant/session"
)

const (
	writeBufferSize = 256
	writeTimeout    = 10 * time.Second
	readLimit       = 64 * 1024
	startTimeout    = 30 * time.Second
)

// client is one connected HUD.
type client struct {
	conn     *websocket.Conn
	manager  Controller
	metrics  *metrics.Collector
	interval time.Duration

	// Use channels for non-blocking writes
	writeChan chan any
	closeChan chan struct{}
	closeOnce sync.Once
	writeDone chan struct{}
}

func newClient(conn *websocket.Conn, manager Controller, m *metrics.Collector, interval time.Duration) *client {
	conn.SetReadLimit(readLimit)
	return &client{
		conn:      conn,
		manager:   manager,
		metrics:   m,
		interval:  interval,
		writeChan: make(chan any, writeBufferSize),
		closeChan: make(chan struct{}),
		writeDone: make(chan struct{}),
	}
}

// run serves the connection until the client goes away.
func (c *client) run() {
	events, cancel := c.manager.Subscribe(writeBufferSize)
	defer cancel()

	go c.writePump()

	snap := c.manager.Snapshot()
	c.queueMessage(messages.NewStateMessage(c.manager.SessionID(), statePayload(snap)))
	go c.eventPump(events, snap.Status, snap.Active)

	c.readPump()
	c.close()
}

func statusPayload(status session.Status, active bool) messages.StatusPayload {
	return messages.StatusPayload{
		Status: status.String(),
		Active: active,
		Label:  hud.Caption(status, active),
	}
}

func logPayload(e session.LogEntry) messages.LogPayload {
	return messages.LogPayload{
		ID:        e.ID,
		Timestamp: e.Clock(),
		Source:    string(e.Source),
		Message:   e.Message,
	}
}

func statePayload(snap session.Snapshot) messages.StatePayload {
	logs := make([]messages.LogPayload, 0, len(snap.Logs))
	for _, e := range snap.Logs {
		logs = append(logs, logPayload(e))
	}
	return messages.StatePayload{
		StatusPayload: statusPayload(snap.Status, snap.Active),
		Logs:          logs,
	}
}

func metricsPayload(sys metrics.System) messages.MetricsPayload {
	return messages.MetricsPayload{
		Memory:     sys.Memory,
		Goroutines: sys.Goroutines,
		Network:    sys.Network,
		Uptime:     sys.Uptime,
	}
}

// eventPump turns state events into feed messages and adds the periodic
// metrics readout.
func (c *client) eventPump(events <-chan session.Event, status session.Status, active bool) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeChan:
			return
		case now := <-ticker.C:
			c.queueMessage(messages.NewMetricsMessage(metricsPayload(c.metrics.Snapshot(now))))
		case ev, ok := <-events:
			if !ok {
				return
			}
			id := c.manager.SessionID()
			switch ev.Kind {
			case session.EventStatus:
				status = ev.Status
				c.queueMessage(messages.NewStatusMessage(id, statusPayload(status, active)))
			case session.EventActive:
				active = ev.Active
				c.queueMessage(messages.NewStatusMessage(id, statusPayload(status, active)))
			case session.EventLog:
				c.queueMessage(messages.NewLogMessage(id, logPayload(ev.Log)))
			case session.EventFrame:
				c.queueMessage(messages.NewFrameMessage(id, audio.EncodeText(ev.Frame)))
			}
		}
	}
}

func (c *client) readPump() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("❌ HUD client read error: %v", err)
			}
			return
		}

		var msg messages.ClientMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			c.queueMessage(messages.NewErrorMessage("", messages.ErrCodeInvalidMessage, "invalid JSON"))
			continue
		}
		if msg.Type != messages.TypeControl {
			c.queueMessage(messages.NewErrorMessage("", messages.ErrCodeInvalidMessage, "unknown message type: "+msg.Type))
			continue
		}

		var ctrl messages.ControlPayload
		if err := sonic.Unmarshal(msg.Payload, &ctrl); err != nil {
			c.queueMessage(messages.NewErrorMessage("", messages.ErrCodeInvalidMessage, "invalid control payload"))
			continue
		}
		c.handleControl(ctrl.Action)
	}
}

func (c *client) handleControl(action string) {
	switch action {
	case messages.ActionPing:
		c.queueMessage(messages.NewPongMessage())

	case messages.ActionStart:
		// Dialing blocks; keep reading meanwhile.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
			defer cancel()
			if err := c.manager.Start(ctx); err != nil {
				code := messages.ErrCodeSessionFailed
				if errors.Is(err, session.ErrSessionActive) {
					code = messages.ErrCodeSessionActive
				}
				c.queueMessage(messages.NewErrorMessage(c.manager.SessionID(), code, err.Error()))
			}
		}()

	case messages.ActionStop:
		if err := c.manager.Stop(); err != nil {
			code := messages.ErrCodeSessionFailed
			if errors.Is(err, session.ErrNotActive) {
				code = messages.ErrCodeNotActive
			}
			c.queueMessage(messages.NewErrorMessage(c.manager.SessionID(), code, err.Error()))
		}

	default:
		c.queueMessage(messages.NewErrorMessage("", messages.ErrCodeInvalidMessage, "unknown action: "+action))
	}
}

// writePump handles all outgoing messages in a single goroutine
func (c *client) writePump() {
	defer close(c.writeDone)
	defer func() {
		// Send close message before exiting
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		c.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
	}()

	for {
		select {
		case <-c.closeChan:
			return
		case msg := <-c.writeChan:
			data, err := sonic.Marshal(msg)
			if err != nil {
				log.Printf("⚠️ Failed to encode HUD message: %v", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// queueMessage adds a message to the write queue (non-blocking)
func (c *client) queueMessage(msg any) {
	select {
	case <-c.closeChan:
		return
	default:
	}
	select {
	case c.writeChan <- msg:
	default:
		// Queue full, drop message; the next status or metrics update catches up
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.closeChan)
		<-c.writeDone
		c.conn.Close()
	})
}
