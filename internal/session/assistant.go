package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/deskmate/internal/intent"
	"github.com/ent0n29/deskmate/internal/logger"
	"github.com/ent0n29/deskmate/internal/observability"
	"github.com/ent0n29/deskmate/internal/policy"
	"github.com/ent0n29/deskmate/internal/protocol"
	"github.com/ent0n29/deskmate/internal/reliability"
	"github.com/ent0n29/deskmate/internal/voice"
)

var log = logger.New("session")

const (
	captureErrorBackoff    = 500 * time.Millisecond
	captureErrorBackoffCap = 8 * time.Second
)

type Dispatcher interface {
	Dispatch(ctx context.Context, utterance string) intent.Outcome
}

type Config struct {
	ListenTimeout   time.Duration
	PhraseTimeLimit time.Duration
}

// Assistant owns the listening loop. At most one loop runs at a time.
type Assistant struct {
	input      voice.Input
	dispatcher Dispatcher
	emitter    voice.Emitter
	metrics    *observability.Metrics
	cfg        Config

	mu        sync.Mutex
	listening bool
	runID     string
	cancel    context.CancelFunc
	done      chan struct{}
	onState   func(listening bool)
}

func NewAssistant(cfg Config, input voice.Input, dispatcher Dispatcher, emitter voice.Emitter, metrics *observability.Metrics) *Assistant {
	if cfg.ListenTimeout <= 0 {
		cfg.ListenTimeout = 5 * time.Second
	}
	if cfg.PhraseTimeLimit <= 0 {
		cfg.PhraseTimeLimit = 5 * time.Second
	}
	return &Assistant{
		input:      input,
		dispatcher: dispatcher,
		emitter:    emitter,
		metrics:    metrics,
		cfg:        cfg,
	}
}

// SetStateHook registers a callback invoked whenever listening flips.
func (a *Assistant) SetStateHook(hook func(listening bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onState = hook
}

// Start launches the listening loop. It returns false if a loop is
// already running.
func (a *Assistant) Start(ctx context.Context) bool {
	a.mu.Lock()
	if a.listening {
		runID := a.runID
		a.mu.Unlock()
		log.Warn().Str("run_id", runID).Msg("Start ignored, already listening")
		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	runID := uuid.NewString()
	done := make(chan struct{})
	a.listening = true
	a.runID = runID
	a.cancel = cancel
	a.done = done
	hook := a.onState
	a.mu.Unlock()

	log.Info().Str("run_id", runID).Msg("Listening started")
	a.metrics.SetListening(true)
	if hook != nil {
		hook(true)
	}

	go a.loop(ctx, loopCtx, runID, done)
	return true
}

// Stop clears the listening flag and interrupts any pending capture. A
// response already being spoken finishes first.
func (a *Assistant) Stop() {
	a.mu.Lock()
	runID := a.runID
	a.mu.Unlock()
	a.finish(runID, "stopped")
}

func (a *Assistant) Listening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listening
}

// Wait blocks until the most recent loop has exited.
func (a *Assistant) Wait() {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done != nil {
		<-done
	}
}

// finish ends run runID if it is still the current one.
func (a *Assistant) finish(runID, reason string) {
	a.mu.Lock()
	if !a.listening || a.runID != runID {
		a.mu.Unlock()
		return
	}
	a.listening = false
	cancel := a.cancel
	hook := a.onState
	a.mu.Unlock()

	cancel()
	log.Info().Str("run_id", runID).Str("reason", reason).Msg("Listening stopped")
	a.metrics.SetListening(false)
	if hook != nil {
		hook(false)
	}
}

func (a *Assistant) current(runID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listening && a.runID == runID
}

// loop captures with loopCtx so Stop interrupts listening, and dispatches
// with baseCtx so an answer in progress is not cut off.
func (a *Assistant) loop(baseCtx, loopCtx context.Context, runID string, done chan struct{}) {
	defer close(done)
	reason := "canceled"
	defer func() { a.finish(runID, reason) }()

	failures := 0
	for loopCtx.Err() == nil && a.current(runID) {
		text, ok, err := a.input.Capture(loopCtx, a.cfg.ListenTimeout, a.cfg.PhraseTimeLimit)
		if err != nil {
			if loopCtx.Err() != nil {
				return
			}
			a.metrics.ObserveSpeechError("capture")
			wait := reliability.ExponentialBackoff(failures, captureErrorBackoff, captureErrorBackoffCap)
			failures++
			log.Err(err).
				Str("run_id", runID).
				Int("failures", failures).
				Dur("backoff", wait).
				Msg("Speech capture failed")
			select {
			case <-loopCtx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		failures = 0
		if !ok {
			continue
		}
		if loopCtx.Err() != nil || !a.current(runID) {
			log.Debug().Str("run_id", runID).Str("text", policy.ForLog(text)).Msg("Dropping utterance captured after stop")
			return
		}

		log.Info().Str("run_id", runID).Str("text", policy.ForLog(text)).Msg("Recognized speech")
		if a.emitter != nil {
			a.emitter.Broadcast(protocol.NewRecognizedSpeech(text))
		}
		if a.dispatcher.Dispatch(baseCtx, text) == intent.Stop {
			reason = "farewell"
			return
		}
	}
}
