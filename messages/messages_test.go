package messages

import (
	"strings"
	"testing"

	"github.com/bytedance/sonic"
)

func TestServerMessageJSON(t *testing.T) {
	tests := []struct {
		name string
		msg  *ServerMessage
		want []string
	}{
		{
			"status",
			NewStatusMessage("s1", StatusPayload{Status: "SPEAKING", Active: true, Label: "Relaying Intelligence..."}),
			[]string{`"type":"status"`, `"sessionId":"s1"`, `"status":"SPEAKING"`, `"active":true`},
		},
		{
			"state embeds status",
			NewStateMessage("s1", StatePayload{StatusPayload: StatusPayload{Status: "IDLE"}, Logs: []LogPayload{}}),
			[]string{`"type":"state"`, `"status":"IDLE"`, `"logs":[]`},
		},
		{
			"frame",
			NewFrameMessage("s1", "/9j/"),
			[]string{`"type":"frame"`, `"data":"/9j/"`, `"mimeType":"image/jpeg"`},
		},
		{
			"pong omits payload",
			NewPongMessage(),
			[]string{`{"type":"pong"}`},
		},
		{
			"error",
			NewErrorMessage("", ErrCodeSessionActive, "session already active"),
			[]string{`"code":"SESSION_ACTIVE"`},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := sonic.MarshalString(tc.msg)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			for _, w := range tc.want {
				if !strings.Contains(data, w) {
					t.Errorf("%s missing %s", data, w)
				}
			}
		})
	}
}

func TestClientControlDecode(t *testing.T) {
	var msg ClientMessage
	if err := sonic.UnmarshalString(`{"type":"control","payload":{"action":"start"}}`, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != TypeControl {
		t.Fatalf("type = %q", msg.Type)
	}
	var ctrl ControlPayload
	if err := sonic.Unmarshal(msg.Payload, &ctrl); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if ctrl.Action != ActionStart {
		t.Errorf("action = %q", ctrl.Action)
	}
}
