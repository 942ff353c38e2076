package main

import (
	"context"
	"flag"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"

	"github.com/jagan969646/My-Jarvis-Assistant/functions"
	"github.com/jagan969646/My-Jarvis-Assistant/gemini"
	"github.com/jagan969646/My-Jarvis-Assistant/session"
)

func main() {
	prompt := flag.String("prompt", "Run a diagnostic on the thrusters, then report in one sentence.", "text turn to send")
	wait := flag.Duration("wait", 15*time.Second, "how long to listen for the reply")
	flag.Parse()

	_ = godotenv.Load()
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	proxy, err := gemini.Dial(ctx, gemini.Options{
		APIKey:       apiKey,
		Model:        os.Getenv("GEMINI_MODEL"),
		SystemPrompt: session.DefaultSystemPrompt,
		Tools:        functions.Tools(),
	})
	if err != nil {
		log.Fatalf("Failed to dial: %v", err)
	}
	defer proxy.Close()

	var audioBytes atomic.Int64
	done := make(chan struct{})
	proxy.Listen(gemini.Handlers{
		OnAudio: func(pcm []byte) {
			audioBytes.Add(int64(len(pcm)))
		},
		OnToolCall: func(calls []gemini.ToolCall) {
			for _, call := range calls {
				log.Printf("🔧 Tool call: %s %v", call.Name, call.Args)
				if err := proxy.SendToolResponse(call.ID, call.Name, functions.Execute(call.Name, call.Args)); err != nil {
					log.Printf("❌ Tool response failed: %v", err)
				}
			}
		},
		OnOutputTranscript: func(text string) {
			log.Printf("💬 JARVIS: %s", text)
		},
		OnError: func(err error) {
			log.Printf("❌ Error: %v", err)
		},
		OnClose: func() {
			close(done)
		},
	})

	if err := proxy.SendText(*prompt); err != nil {
		log.Fatalf("Failed to send text: %v", err)
	}

	log.Println("Waiting for response...")
	select {
	case <-done:
		log.Println("Link closed by server")
	case <-time.After(*wait):
	}
	log.Printf("Done, received %d bytes of audio", audioBytes.Load())
}
