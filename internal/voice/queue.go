package voice

import (
	"context"
	"strings"
	"time"
)

const queueCapacity = 16

// QueueInput is fed with phrases recognized by the browser page.
type QueueInput struct {
	ch chan string
}

func NewQueueInput() *QueueInput {
	return &QueueInput{ch: make(chan string, queueCapacity)}
}

// Push queues text for the next capture. It reports false when the queue is
// full or text is blank.
func (q *QueueInput) Push(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	select {
	case q.ch <- text:
		return true
	default:
		return false
	}
}

// Drain discards queued phrases.
func (q *QueueInput) Drain() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}

func (q *QueueInput) Capture(ctx context.Context, timeout, _ time.Duration) (string, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case <-timer.C:
		return "", false, nil
	case text := <-q.ch:
		return text, true, nil
	}
}
