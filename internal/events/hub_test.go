package events

import (
	"encoding/json"
	"testing"

	"github.com/ent0n29/deskmate/internal/protocol"
)

func decode(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return out
}

func TestHubBroadcastReachesEveryClient(t *testing.T) {
	h := NewHub(nil)
	a := h.Register()
	b := h.Register()
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("client ids = %q, %q, want distinct non-empty", a.ID, b.ID)
	}

	h.Broadcast(protocol.NewAssistantResponse("Hello! How can I help you today?"))

	for _, c := range []*Client{a, b} {
		select {
		case raw := <-c.Messages():
			frame := decode(t, raw)
			if frame["event"] != "assistant_response" {
				t.Fatalf("event = %v, want assistant_response", frame["event"])
			}
		default:
			t.Fatalf("client %s got no message", c.ID)
		}
	}
}

func TestHubSendTargetsOneClient(t *testing.T) {
	h := NewHub(nil)
	a := h.Register()
	b := h.Register()

	if !h.Send(a, protocol.NewError("unsupported event")) {
		t.Fatalf("Send() = false, want true")
	}
	select {
	case <-a.Messages():
	default:
		t.Fatalf("target client got no message")
	}
	select {
	case raw := <-b.Messages():
		t.Fatalf("other client got %s", raw)
	default:
	}
}

func TestHubUnregisterClosesChannel(t *testing.T) {
	h := NewHub(nil)
	c := h.Register()
	h.Unregister(c)
	h.Unregister(c)

	if _, ok := <-c.Messages(); ok {
		t.Fatalf("channel still open after Unregister")
	}
	if h.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", h.Count())
	}
	if h.Send(c, protocol.NewAssistantDoneSpeaking()) {
		t.Fatalf("Send() to unregistered client = true")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	h := NewHub(nil)
	h.buffer = 1
	slow := h.Register()

	h.Broadcast(protocol.NewAssistantDoneSpeaking())
	h.Broadcast(protocol.NewAssistantDoneSpeaking())

	if h.Count() != 0 {
		t.Fatalf("Count() = %d, want slow client dropped", h.Count())
	}
	<-slow.Messages()
	if _, ok := <-slow.Messages(); ok {
		t.Fatalf("slow client channel still open")
	}
}
