package reminders

import (
	"context"
	"fmt"
	"time"
)

// Speaker is what the scheduler needs to deliver a reminder.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Scheduler periodically takes due reminders from the store and speaks them.
type Scheduler struct {
	store    *Store
	speaker  Speaker
	interval time.Duration
	now      func() time.Time
	onFire   func(Reminder)
}

func NewScheduler(store *Store, speaker Speaker, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{
		store:    store,
		speaker:  speaker,
		interval: interval,
		now:      time.Now,
	}
}

// SetFireHook registers a callback invoked after each delivered reminder.
func (s *Scheduler) SetFireHook(hook func(Reminder)) {
	s.onFire = hook
}

// SetClock replaces the time source used to judge due reminders.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Run polls once at start, then every interval until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.interval).Msg("Reminder scheduler started")
	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Reminder scheduler stopping")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one poll cycle and returns how many reminders fired.
func (s *Scheduler) Tick(ctx context.Context) int {
	due := s.store.TakeDue(ctx, s.now())
	for _, r := range due {
		log.Info().
			Int("id", r.ID).
			Time("due_at", r.DueAt).
			Msg("Reminder due")
		if err := s.speaker.Speak(ctx, fmt.Sprintf("Reminder: %s", r.Message)); err != nil {
			log.Err(err).
				Int("id", r.ID).
				Msg("Failed to speak reminder")
		}
		if s.onFire != nil {
			s.onFire(r)
		}
	}
	return len(due)
}
