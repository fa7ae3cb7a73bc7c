package voice

import (
	"context"
	"fmt"
	"sync/atomic"
)

// FailoverRenderer prefers primary and switches to fallback once primary
// fails. Once fallback is active it stays active until fallback fails; then
// primary is retried.
type FailoverRenderer struct {
	primary        Renderer
	fallback       Renderer
	fallbackActive atomic.Bool
}

func NewFailoverRenderer(primary, fallback Renderer) *FailoverRenderer {
	return &FailoverRenderer{primary: primary, fallback: fallback}
}

func (f *FailoverRenderer) FallbackActive() bool {
	return f.fallbackActive.Load()
}

func (f *FailoverRenderer) Render(ctx context.Context, text string) error {
	if f.fallbackActive.Load() {
		fbErr := f.fallback.Render(ctx, text)
		if fbErr == nil {
			return nil
		}
		prErr := f.primary.Render(ctx, text)
		if prErr == nil {
			f.fallbackActive.Store(false)
			return nil
		}
		return fmt.Errorf("tts fallback failed: %v; tts primary failed: %w", fbErr, prErr)
	}

	prErr := f.primary.Render(ctx, text)
	if prErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return prErr
	}
	log.Warn().Err(prErr).Msg("Speech output failed, switching to fallback")
	if fbErr := f.fallback.Render(ctx, text); fbErr != nil {
		return fmt.Errorf("tts primary failed: %v; tts fallback failed: %w", prErr, fbErr)
	}
	f.fallbackActive.Store(true)
	return nil
}
