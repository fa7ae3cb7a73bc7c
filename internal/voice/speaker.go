package voice

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ent0n29/deskmate/internal/logger"
	"github.com/ent0n29/deskmate/internal/observability"
	"github.com/ent0n29/deskmate/internal/policy"
	"github.com/ent0n29/deskmate/internal/protocol"
)

var log = logger.New("voice")

// Speaker renders assistant text one utterance at a time and reports each
// utterance to the control surface.
type Speaker struct {
	mu       sync.Mutex
	renderer Renderer
	emitter  Emitter
	metrics  *observability.Metrics
}

func NewSpeaker(renderer Renderer, emitter Emitter, metrics *observability.Metrics) *Speaker {
	return &Speaker{
		renderer: renderer,
		emitter:  emitter,
		metrics:  metrics,
	}
}

// Speak emits assistant_response, renders the text, then emits
// assistant_done_speaking. A render failure emits error instead.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log.Info().Str("text", policy.ForLog(text)).Msg("Assistant speaking")
	s.emit(protocol.NewAssistantResponse(text))

	if err := s.renderer.Render(ctx, speakableText(text)); err != nil {
		s.metrics.ObserveSpeechError("render")
		s.emit(protocol.NewError(err.Error()))
		return fmt.Errorf("render speech: %w", err)
	}
	s.emit(protocol.NewAssistantDoneSpeaking())
	return nil
}

func (s *Speaker) emit(msg protocol.ServerMessage) {
	if s.emitter != nil {
		s.emitter.Broadcast(msg)
	}
}
