// Package hud draws the assistant's terminal heads-up display.
package hud

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jagan969646/My-Jarvis-Assistant/metrics"
	"github.com/jagan969646/My-Jarvis-Assistant/session"
)

const defaultLogRows = 8

// Frame is everything one render needs.
type Frame struct {
	Status  session.Status
	Active  bool
	Logs    []session.LogEntry
	Metrics metrics.System
	// CameraLive is set once a preview frame has arrived.
	CameraLive bool
	// Pending, when set, is a spinner shown while a link is being opened.
	Pending string
	Width      int
	Height     int
}

// Caption is the line shown under the orb.
func Caption(status session.Status, active bool) string {
	switch {
	case status == session.StatusIdle && active:
		return "System Standing By..."
	case status == session.StatusListening:
		return "Voice Stream Processing..."
	case status == session.StatusThinking:
		return "Strategic Analysis..."
	case status == session.StatusSpeaking:
		return "Relaying Intelligence..."
	case status == session.StatusError:
		return "System Core Damaged"
	default:
		return "Protocols Offline"
	}
}

func orbColor(status session.Status) lipgloss.Color {
	switch status {
	case session.StatusListening:
		return Cyan
	case session.StatusThinking:
		return Blue
	case session.StatusSpeaking:
		return White
	case session.StatusError:
		return Danger
	default:
		return Dim
	}
}

func orbCore(status session.Status) string {
	switch status {
	case session.StatusListening:
		return " ◎ "
	case session.StatusThinking:
		return " ◍ "
	case session.StatusSpeaking:
		return "▂▅▇"
	case session.StatusError:
		return " ✕ "
	default:
		return " ○ "
	}
}

func renderOrb(status session.Status) string {
	style := lipgloss.NewStyle().Foreground(orbColor(status)).Bold(true)
	ring := lipgloss.NewStyle().Foreground(Dim)
	return lipgloss.JoinVertical(lipgloss.Center,
		ring.Render("╭─────╮"),
		ring.Render("│ ")+style.Render(orbCore(status))+ring.Render(" │"),
		ring.Render("╰─────╯"),
	)
}

func renderHeader(f Frame, width int) string {
	left := lipgloss.JoinVertical(lipgloss.Left,
		Title.Render("JARVIS_LINK"),
		Subtitle.Render("TACTICAL DEFENSE INTERFACE v8.4.1"),
	)
	conn := lipgloss.NewStyle().Foreground(Danger).Render("OFFLINE")
	if f.Active {
		conn = lipgloss.NewStyle().Foreground(Green).Render("ENCRYPTED")
	}
	right := lipgloss.JoinVertical(lipgloss.Right,
		Label.Render("MISSION CLOCK ")+Value.Render(f.Metrics.Uptime),
		Label.Render("CONNECTION ")+conn,
	)
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	return Header.Width(width).Render(
		lipgloss.JoinHorizontal(lipgloss.Top, left, strings.Repeat(" ", gap), right),
	)
}

// LogLine formats one terminal entry.
func LogLine(e session.LogEntry) string {
	return Label.Render("["+e.Clock()+"]") + " " +
		sourceStyle(string(e.Source)).Render(string(e.Source)+":") + " " +
		e.Message
}

func renderLogs(logs []session.LogEntry, rows, width int) string {
	if len(logs) > rows {
		logs = logs[len(logs)-rows:]
	}
	lines := make([]string, 0, rows+1)
	lines = append(lines, Subtitle.Render("SYSTEM_OUTPUT.LOG"))
	for _, e := range logs {
		lines = append(lines, LogLine(e))
	}
	return Panel.Width(width).Render(strings.Join(lines, "\n"))
}

func renderMetrics(f Frame) string {
	camera := lipgloss.NewStyle().Foreground(Muted).Render("○ STANDBY")
	if f.CameraLive && f.Active {
		camera = lipgloss.NewStyle().Foreground(Green).Render("● RECORDING_TACTICAL_FEED")
	}
	return strings.Join([]string{
		Label.Render("MEM ") + Value.Render(fmt.Sprintf("%.1f MiB", f.Metrics.Memory)),
		Label.Render("ROUTINES ") + Value.Render(fmt.Sprint(f.Metrics.Goroutines)),
		Label.Render("UPLINK ") + Value.Render(fmt.Sprintf("%.1f KiB/s", f.Metrics.Network)),
		Label.Render("CAMERA ") + camera,
	}, "   ")
}

func renderControls(active bool) string {
	if active {
		return Help.Render("[x] TERMINATE_LINK   [q] quit")
	}
	return Help.Render("[s] INITIALIZE_NEURAL_LINK   [q] quit")
}

// Render draws the full HUD. It has no side effects.
func Render(f Frame) string {
	width := f.Width
	if width <= 0 {
		width = 80
	}
	rows := defaultLogRows
	if f.Height > 0 {
		// header 3, orb 3, caption 1, metrics 1, controls 1, log chrome 3, spacing 3
		rows = f.Height - 15
		if rows < 3 {
			rows = 3
		}
	}

	dot := lipgloss.NewStyle().Foreground(Danger).Render("●")
	if f.Active {
		dot = lipgloss.NewStyle().Foreground(Green).Render("●")
	}
	caption := dot + " " + Value.Render(strings.ToUpper(Caption(f.Status, f.Active)))
	if f.Pending != "" {
		caption = f.Pending + " " + Value.Render("ESTABLISHING NEURAL LINK...")
	}

	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)
	return lipgloss.JoinVertical(lipgloss.Left,
		renderHeader(f, width),
		"",
		center.Render(renderOrb(f.Status)),
		center.Render(caption),
		"",
		renderLogs(f.Logs, rows, width-2),
		renderMetrics(f),
		renderControls(f.Active),
	)
}
