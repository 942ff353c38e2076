package gemini

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gorilla/websocket"
	"google.golang.org/genai"
)

func recordingHandlers(events *[]string) Handlers {
	return Handlers{
		OnAudio:            func(pcm []byte) { *events = append(*events, "audio") },
		OnToolCall:         func(calls []ToolCall) { *events = append(*events, "tool:"+calls[0].Name) },
		OnInterrupted:      func() { *events = append(*events, "interrupted") },
		OnInputTranscript:  func(text string) { *events = append(*events, "input:"+text) },
		OnOutputTranscript: func(text string) { *events = append(*events, "output:"+text) },
	}
}

func TestDispatchOrder(t *testing.T) {
	msg := &genai.LiveServerMessage{
		ServerContent: &genai.LiveServerContent{
			ModelTurn: &genai.Content{
				Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: "audio/pcm;rate=24000", Data: []byte{1, 2}}}},
			},
			Interrupted:         true,
			InputTranscription:  &genai.Transcription{Text: "status report"},
			OutputTranscription: &genai.Transcription{Text: "All green, Sir."},
		},
		ToolCall: &genai.LiveServerToolCall{
			FunctionCalls: []*genai.FunctionCall{{ID: "c1", Name: "controlSystem", Args: map[string]any{"system": "optics"}}},
		},
	}

	var events []string
	Dispatch(msg, recordingHandlers(&events))

	want := []string{"audio", "tool:controlSystem", "interrupted", "input:status report", "output:All green, Sir."}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v; want %v", events, want)
	}
}

func TestDispatchSkipsEmpty(t *testing.T) {
	tests := []struct {
		name string
		msg  *genai.LiveServerMessage
	}{
		{"nil message", nil},
		{"empty message", &genai.LiveServerMessage{}},
		{"turn complete only", &genai.LiveServerMessage{ServerContent: &genai.LiveServerContent{TurnComplete: true}}},
		{"text part", &genai.LiveServerMessage{ServerContent: &genai.LiveServerContent{
			ModelTurn: &genai.Content{Parts: []*genai.Part{{Text: "hi"}}},
		}}},
		{"empty transcripts", &genai.LiveServerMessage{ServerContent: &genai.LiveServerContent{
			InputTranscription:  &genai.Transcription{},
			OutputTranscription: &genai.Transcription{},
		}}},
		{"no function calls", &genai.LiveServerMessage{ToolCall: &genai.LiveServerToolCall{}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var events []string
			Dispatch(tc.msg, recordingHandlers(&events))
			if len(events) != 0 {
				t.Errorf("events = %v; want none", events)
			}
		})
	}
}

func TestDispatchToolCallFields(t *testing.T) {
	var got []ToolCall
	Dispatch(&genai.LiveServerMessage{
		ToolCall: &genai.LiveServerToolCall{FunctionCalls: []*genai.FunctionCall{
			{ID: "a", Name: "controlSystem", Args: map[string]any{"value": 42.0}},
			{ID: "b", Name: "controlSystem"},
		}},
	}, Handlers{OnToolCall: func(calls []ToolCall) { got = calls }})

	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("calls = %+v", got)
	}
	if got[0].Args["value"] != 42.0 {
		t.Errorf("args = %v", got[0].Args)
	}
}

func TestConnectConfig(t *testing.T) {
	cfg := connectConfig(Options{SystemPrompt: "You are JARVIS."})

	if got := cfg.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName; got != "Puck" {
		t.Errorf("voice = %q; want Puck", got)
	}
	if len(cfg.ResponseModalities) != 1 || cfg.ResponseModalities[0] != genai.ModalityAudio {
		t.Errorf("modalities = %v", cfg.ResponseModalities)
	}
	if cfg.InputAudioTranscription == nil || cfg.OutputAudioTranscription == nil {
		t.Error("transcription not enabled")
	}
	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != "You are JARVIS." {
		t.Errorf("system instruction = %+v", cfg.SystemInstruction)
	}

	if cfg := connectConfig(Options{Voice: "Kore"}); cfg.SystemInstruction != nil {
		t.Error("empty prompt produced a system instruction")
	} else if got := cfg.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName; got != "Kore" {
		t.Errorf("voice = %q; want Kore", got)
	}
}

func TestIsNormalClose(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&websocket.CloseError{Code: websocket.CloseNormalClosure}, true},
		{&websocket.CloseError{Code: websocket.CloseGoingAway}, true},
		{&websocket.CloseError{Code: websocket.CloseInternalServerErr}, false},
		{errors.New("connection reset"), false},
	}
	for _, tc := range tests {
		if got := isNormalClose(tc.err); got != tc.want {
			t.Errorf("isNormalClose(%v) = %v; want %v", tc.err, got, tc.want)
		}
	}
}
