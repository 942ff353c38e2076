// Package gemini wraps a Gemini Live session as a full-duplex link: media
// goes up as realtime input, and server messages come back as callbacks.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"
	"google.golang.org/genai"

	"github.com/jagan969646/My-Jarvis-Assistant/audio"
)

// DefaultModel is the native-audio Live model.
const DefaultModel = "models/gemini-2.5-flash-native-audio-preview-12-2025"

// ErrClosed is returned by sends after Close.
var ErrClosed = errors.New("link is closed")

// ToolCall is one function invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Handlers receive link events on the receive goroutine. Any may be nil.
// For a single server message they fire in this order: audio, tool calls,
// interruption, input transcript, output transcript.
type Handlers struct {
	OnAudio            func(pcm []byte)
	OnToolCall         func(calls []ToolCall)
	OnInterrupted      func()
	OnInputTranscript  func(text string)
	OnOutputTranscript func(text string)
	OnError            func(err error)
	// OnClose fires exactly once when the receive loop ends.
	OnClose func()
}

// Options configures Dial.
type Options struct {
	APIKey          string
	Model           string
	Voice           string
	SystemPrompt    string
	Tools           []*genai.Tool
	InputSampleRate int
}

// Proxy manages the connection to Gemini Live API using the official SDK
type Proxy struct {
	session   *genai.Session
	audioMIME string

	// The SDK writes straight to a websocket, which allows one writer.
	sendMu sync.Mutex

	mu     sync.RWMutex
	closed bool
}

// Dial creates a client and opens a Live session.
func Dial(ctx context.Context, opts Options) (*Proxy, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	session, err := client.Live.Connect(ctx, model, connectConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Live API: %w", err)
	}

	rate := opts.InputSampleRate
	if rate <= 0 {
		rate = audio.InputSampleRate
	}

	log.Printf("✅ Connected to Gemini Live via SDK (%s)", model)
	return &Proxy{
		session:   session,
		audioMIME: audio.PCMMimeType(rate),
	}, nil
}

func connectConfig(opts Options) *genai.LiveConnectConfig {
	voice := opts.Voice
	if voice == "" {
		voice = "Puck"
	}
	cfg := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		Tools:              opts.Tools,
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: voice,
				},
			},
		},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
	if opts.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: opts.SystemPrompt}},
		}
	}
	return cfg
}

// Listen starts the receive loop. It must be called at most once.
func (p *Proxy) Listen(h Handlers) {
	go func() {
		defer func() {
			if h.OnClose != nil {
				h.OnClose()
			}
		}()

		for {
			msg, err := p.session.Receive()
			if err != nil {
				if !p.isClosed() && !isNormalClose(err) {
					log.Printf("❌ Gemini receive error: %v", err)
					if h.OnError != nil {
						h.OnError(err)
					}
				}
				return
			}
			Dispatch(msg, h)
		}
	}()
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// Dispatch fans a server message out to h.
func Dispatch(msg *genai.LiveServerMessage, h Handlers) {
	if msg == nil {
		return
	}
	content := msg.ServerContent

	if content != nil && content.ModelTurn != nil && h.OnAudio != nil {
		for _, part := range content.ModelTurn.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				h.OnAudio(part.InlineData.Data)
			}
		}
	}

	if msg.ToolCall != nil && len(msg.ToolCall.FunctionCalls) > 0 && h.OnToolCall != nil {
		log.Printf("📥 Received from Gemini: %d function call(s)", len(msg.ToolCall.FunctionCalls))
		calls := make([]ToolCall, 0, len(msg.ToolCall.FunctionCalls))
		for _, fc := range msg.ToolCall.FunctionCalls {
			if fc == nil {
				continue
			}
			calls = append(calls, ToolCall{ID: fc.ID, Name: fc.Name, Args: fc.Args})
		}
		h.OnToolCall(calls)
	}

	if content == nil {
		return
	}
	if content.Interrupted && h.OnInterrupted != nil {
		h.OnInterrupted()
	}
	if t := content.InputTranscription; t != nil && t.Text != "" && h.OnInputTranscript != nil {
		h.OnInputTranscript(t.Text)
	}
	if t := content.OutputTranscription; t != nil && t.Text != "" && h.OnOutputTranscript != nil {
		h.OnOutputTranscript(t.Text)
	}
}

func (p *Proxy) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

func (p *Proxy) sendRealtime(blob *genai.Blob) error {
	if p.isClosed() {
		return ErrClosed
	}
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	return p.session.SendRealtimeInput(genai.LiveRealtimeInput{Media: blob})
}

// SendAudio forwards a PCM block.
func (p *Proxy) SendAudio(pcm []byte) error {
	if err := p.sendRealtime(&genai.Blob{MIMEType: p.audioMIME, Data: pcm}); err != nil {
		return fmt.Errorf("failed to send audio: %w", err)
	}
	return nil
}

// SendImage forwards a JPEG frame.
func (p *Proxy) SendImage(jpeg []byte) error {
	if err := p.sendRealtime(&genai.Blob{MIMEType: "image/jpeg", Data: jpeg}); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}
	return nil
}

// SendText sends a complete user turn as text.
func (p *Proxy) SendText(text string) error {
	if p.isClosed() {
		return ErrClosed
	}
	turnComplete := true
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	err := p.session.SendClientContent(genai.LiveSendClientContentParameters{
		Turns: []*genai.Content{
			{
				Role:  "user",
				Parts: []*genai.Part{{Text: text}},
			},
		},
		TurnComplete: &turnComplete,
	})
	if err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}
	log.Printf("📤 Sent text to Gemini: %s", text)
	return nil
}

// SendToolResponse answers one function call.
func (p *Proxy) SendToolResponse(id, name string, response map[string]any) error {
	if p.isClosed() {
		return ErrClosed
	}
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	err := p.session.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: []*genai.FunctionResponse{
			{ID: id, Name: name, Response: response},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send tool response: %w", err)
	}
	log.Printf("📤 Sent tool response for %s (%s)", name, id)
	return nil
}

// Close terminates the Gemini connection. The receive loop then ends
// without reporting an error.
func (p *Proxy) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	return p.session.Close()
}
