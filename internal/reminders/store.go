package reminders

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ent0n29/deskmate/internal/logger"
)

var log = logger.New("reminders")

const noRemindersText = "You have no active reminders."

// Store owns the active reminder set and its durable copy. Every mutation
// is persisted before the lock is released.
type Store struct {
	mu       sync.Mutex
	items    []Reminder
	backend  Backend
	now      func() time.Time
	onChange func(active int)
}

func NewStore(backend Backend) *Store {
	return &Store{
		backend: backend,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for due times.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetChangeHook registers a callback invoked with the active count after
// every mutation.
func (s *Store) SetChangeHook(hook func(active int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = hook
}

// Load replaces the active set with the backend contents. On any failure
// the set starts empty and the error is returned for the caller to report.
func (s *Store) Load(ctx context.Context) error {
	items, err := s.backend.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.items = nil
		s.changedLocked()
		return fmt.Errorf("load reminders from %s: %w", s.backend.Mode(), err)
	}
	s.items = items
	s.changedLocked()
	return nil
}

// Add schedules message at now+offset.
func (s *Store) Add(ctx context.Context, message string, offset time.Duration) (Reminder, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reminder{}, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := Reminder{
		ID:      s.nextIDLocked(),
		Message: message,
		DueAt:   s.now().Add(offset),
	}
	s.items = append(s.items, r)
	s.persistLocked(ctx)
	return r, nil
}

// Cancel removes the reminder with the given id and reports whether it existed.
func (s *Store) Cancel(ctx context.Context, id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.items {
		if r.ID != id {
			continue
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
		s.persistLocked(ctx)
		return true
	}
	return false
}

// List returns a copy of the active set in insertion order.
func (s *Store) List() []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reminder, len(s.items))
	copy(out, s.items)
	return out
}

// Describe renders the active set as speech, one reminder per line.
func (s *Store) Describe() string {
	items := s.List()
	if len(items) == 0 {
		return noRemindersText
	}
	lines := make([]string, 0, len(items))
	for _, r := range items {
		lines = append(lines, fmt.Sprintf("Reminder %d: %s at %s", r.ID, r.Message, SpokenTime(r.DueAt)))
	}
	return strings.Join(lines, "\n")
}

// TakeDue removes and returns every reminder due at or before now.
func (s *Store) TakeDue(ctx context.Context, now time.Time) []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Reminder
	kept := s.items[:0:0]
	for _, r := range s.items {
		if r.DueAt.After(now) {
			kept = append(kept, r)
			continue
		}
		due = append(due, r)
	}
	if len(due) == 0 {
		return nil
	}
	s.items = kept
	s.persistLocked(ctx)
	return due
}

func (s *Store) Mode() string {
	return s.backend.Mode()
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// nextIDLocked hands out count+1, moving past the highest active id when
// that value is still taken.
func (s *Store) nextIDLocked() int {
	id := len(s.items) + 1
	maxID := 0
	taken := false
	for _, r := range s.items {
		if r.ID == id {
			taken = true
		}
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	if taken {
		id = maxID + 1
	}
	return id
}

// persistLocked flushes the snapshot. Failures are logged and the in-memory
// set stays authoritative until the next successful write.
func (s *Store) persistLocked(ctx context.Context) {
	snapshot := make([]Reminder, len(s.items))
	copy(snapshot, s.items)
	if err := s.backend.Save(ctx, snapshot); err != nil {
		log.Err(err).
			Str("backend", s.backend.Mode()).
			Int("active", len(snapshot)).
			Msg("Failed to persist reminders")
	}
	s.changedLocked()
}

func (s *Store) changedLocked() {
	if s.onChange != nil {
		s.onChange(len(s.items))
	}
}
