package voice

import (
	"context"
	"sync"
	"time"
)

// MockInput replays scripted phrases, one per capture, then behaves like
// silence.
type MockInput struct {
	mu      sync.Mutex
	phrases []string
	calls   int
}

func NewMockInput(phrases ...string) *MockInput {
	return &MockInput{phrases: phrases}
}

func (m *MockInput) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockInput) Capture(ctx context.Context, timeout, _ time.Duration) (string, bool, error) {
	m.mu.Lock()
	m.calls++
	if len(m.phrases) > 0 {
		next := m.phrases[0]
		m.phrases = m.phrases[1:]
		m.mu.Unlock()
		return next, next != "", nil
	}
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case <-timer.C:
		return "", false, nil
	}
}

// RecordingRenderer captures rendered text instead of playing it.
type RecordingRenderer struct {
	mu    sync.Mutex
	texts []string
	Err   error
}

func (r *RecordingRenderer) Render(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return r.Err
}

func (r *RecordingRenderer) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.texts))
	copy(out, r.texts)
	return out
}
