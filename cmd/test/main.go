package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/jagan969646/My-Jarvis-Assistant/audio"
	"github.com/jagan969646/My-Jarvis-Assistant/messages"
)

// ServerMessage is the envelope with the payload left raw
type ServerMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

func main() {
	// Flags
	serverURL := flag.String("server", "ws://localhost:8080/ws", "HUD feed URL")
	start := flag.Bool("start", false, "initialize the neural link after connecting")
	frameDir := flag.String("frames", "", "directory to save camera previews into")
	flag.Parse()

	log.Printf("🔌 Connecting to %s...", *serverURL)

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	log.Println("✅ Connected!")

	// Handle interrupt
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})

	go func() {
		defer close(done)
		frames := 0
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}

			var msg ServerMessage
			if err := sonic.Unmarshal(data, &msg); err != nil {
				log.Println("Parse error:", err)
				continue
			}

			switch msg.Type {
			case messages.TypeState:
				var payload messages.StatePayload
				sonic.Unmarshal(msg.Payload, &payload)
				log.Printf("📊 %s (%s), %d log lines", payload.Status, payload.Label, len(payload.Logs))
				for _, l := range payload.Logs {
					fmt.Printf("[%s] %s: %s\n", l.Timestamp, l.Source, l.Message)
				}

			case messages.TypeStatus:
				var payload messages.StatusPayload
				sonic.Unmarshal(msg.Payload, &payload)
				log.Printf("📊 %s active=%t (%s)", payload.Status, payload.Active, payload.Label)

			case messages.TypeLog:
				var l messages.LogPayload
				sonic.Unmarshal(msg.Payload, &l)
				fmt.Printf("[%s] %s: %s\n", l.Timestamp, l.Source, l.Message)

			case messages.TypeFrame:
				var payload messages.FramePayload
				sonic.Unmarshal(msg.Payload, &payload)
				jpeg, err := audio.DecodeText(payload.Data)
				if err != nil {
					log.Printf("Frame decode error: %v", err)
					continue
				}
				frames++
				if *frameDir == "" {
					continue
				}
				path := filepath.Join(*frameDir, fmt.Sprintf("frame-%05d.jpg", frames))
				if err := os.WriteFile(path, jpeg, 0o644); err != nil {
					log.Printf("Frame write error: %v", err)
				}

			case messages.TypeError:
				var payload messages.ErrorPayload
				sonic.Unmarshal(msg.Payload, &payload)
				log.Printf("❌ Error %s: %s", payload.Code, payload.Message)
			}
		}
	}()

	if *start {
		control, _ := sonic.Marshal(messages.ClientMessage{
			Type:    messages.TypeControl,
			Payload: json.RawMessage(`{"action":"start"}`),
		})
		if err := conn.WriteMessage(websocket.TextMessage, control); err != nil {
			log.Fatalf("Send error: %v", err)
		}
	}

	select {
	case <-done:
		log.Println("Connection closed")
	case <-interrupt:
		log.Println("\n👋 Interrupted, closing...")
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}
