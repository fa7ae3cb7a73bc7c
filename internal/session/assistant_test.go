package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ent0n29/deskmate/internal/intent"
	"github.com/ent0n29/deskmate/internal/protocol"
	"github.com/ent0n29/deskmate/internal/voice"
)

type scriptDispatcher struct {
	mu   sync.Mutex
	seen []string
	stop map[string]bool
}

func (d *scriptDispatcher) Dispatch(_ context.Context, text string) intent.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = append(d.seen, text)
	if d.stop[text] {
		return intent.Stop
	}
	return intent.Continue
}

func (d *scriptDispatcher) utterances() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.seen...)
}

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []protocol.ServerMessage
}

func (e *recordingEmitter) Broadcast(msg protocol.ServerMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *recordingEmitter) recognized() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, m := range e.msgs {
		if m.Event == protocol.EventRecognizedSpeech {
			out = append(out, m.Data.(protocol.RecognizedSpeech).Text)
		}
	}
	return out
}

var fastCfg = Config{ListenTimeout: 5 * time.Millisecond, PhraseTimeLimit: 5 * time.Millisecond}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestAssistantFarewellStopsLoop(t *testing.T) {
	input := voice.NewMockInput("hello", "goodbye", "never reached")
	d := &scriptDispatcher{stop: map[string]bool{"goodbye": true}}
	emitter := &recordingEmitter{}
	a := NewAssistant(fastCfg, input, d, emitter, nil)

	var states []bool
	var mu sync.Mutex
	a.SetStateHook(func(on bool) {
		mu.Lock()
		states = append(states, on)
		mu.Unlock()
	})

	if !a.Start(context.Background()) {
		t.Fatalf("Start() = false, want true")
	}
	a.Wait()

	if a.Listening() {
		t.Fatalf("Listening() = true after farewell")
	}
	got := d.utterances()
	if len(got) != 2 || got[0] != "hello" || got[1] != "goodbye" {
		t.Fatalf("dispatched = %v, want [hello goodbye]", got)
	}
	if rec := emitter.recognized(); len(rec) != 2 {
		t.Fatalf("recognized_speech events = %v, want 2", rec)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 || !states[0] || states[1] {
		t.Fatalf("state transitions = %v, want [true false]", states)
	}
}

func TestAssistantRejectsDoubleStart(t *testing.T) {
	a := NewAssistant(fastCfg, voice.NewMockInput(), &scriptDispatcher{}, nil, nil)
	ctx := context.Background()
	if !a.Start(ctx) {
		t.Fatalf("first Start() = false")
	}
	if a.Start(ctx) {
		t.Fatalf("second Start() = true, want false")
	}
	a.Stop()
	a.Wait()
}

func TestAssistantStopCancelsCapture(t *testing.T) {
	input := voice.NewMockInput()
	a := NewAssistant(Config{ListenTimeout: time.Hour, PhraseTimeLimit: time.Hour}, input, &scriptDispatcher{}, nil, nil)
	if !a.Start(context.Background()) {
		t.Fatalf("Start() = false")
	}
	waitFor(t, func() bool { return input.Calls() > 0 })

	a.Stop()
	done := make(chan struct{})
	go func() {
		a.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("loop did not exit after Stop()")
	}
	if a.Listening() {
		t.Fatalf("Listening() = true after Stop()")
	}
}

func TestAssistantRestartAfterStop(t *testing.T) {
	a := NewAssistant(fastCfg, voice.NewMockInput(), &scriptDispatcher{}, nil, nil)
	ctx := context.Background()
	a.Start(ctx)
	a.Stop()
	a.Wait()
	if !a.Start(ctx) {
		t.Fatalf("Start() after Stop() = false, want true")
	}
	if !a.Listening() {
		t.Fatalf("Listening() = false after restart")
	}
	a.Stop()
	a.Wait()
}

type flakyInput struct {
	mu    sync.Mutex
	calls int
}

func (f *flakyInput) Capture(ctx context.Context, _, _ time.Duration) (string, bool, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	switch n {
	case 1:
		return "", false, errors.New("microphone busy")
	case 2:
		return "", false, nil
	case 3:
		return "bye", true, nil
	}
	<-ctx.Done()
	return "", false, ctx.Err()
}

func TestAssistantSurvivesCaptureErrors(t *testing.T) {
	d := &scriptDispatcher{stop: map[string]bool{"bye": true}}
	a := NewAssistant(fastCfg, &flakyInput{}, d, nil, nil)
	a.Start(context.Background())
	a.Wait()

	if got := d.utterances(); len(got) != 1 || got[0] != "bye" {
		t.Fatalf("dispatched = %v, want [bye]", got)
	}
}

func TestAssistantParentCancelEndsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := NewAssistant(fastCfg, voice.NewMockInput(), &scriptDispatcher{}, nil, nil)
	a.Start(ctx)
	cancel()
	a.Wait()
	if a.Listening() {
		t.Fatalf("Listening() = true after parent cancel")
	}
}
