package voice

import (
	"context"
	"time"

	"github.com/ent0n29/deskmate/internal/protocol"
)

// Input captures one spoken phrase. ok is false when nothing intelligible
// was heard before the timeout, which is not an error.
type Input interface {
	Capture(ctx context.Context, timeout, phraseLimit time.Duration) (text string, ok bool, err error)
}

// Renderer plays text as audio and blocks until playback ends.
type Renderer interface {
	Render(ctx context.Context, text string) error
}

// Emitter publishes status events to connected clients.
type Emitter interface {
	Broadcast(msg protocol.ServerMessage)
}
