package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type memoryBackend struct {
	mu      sync.Mutex
	saved   [][]Reminder
	loaded  []Reminder
	loadErr error
	saveErr error
}

func (b *memoryBackend) Load(context.Context) ([]Reminder, error) {
	return b.loaded, b.loadErr
}

func (b *memoryBackend) Save(_ context.Context, items []Reminder) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved = append(b.saved, items)
	return b.saveErr
}

func (b *memoryBackend) Mode() string { return "memory" }
func (b *memoryBackend) Close() error { return nil }

func (b *memoryBackend) saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.saved)
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestStoreAddAssignsSequentialIDs(t *testing.T) {
	t0 := time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)
	backend := &memoryBackend{}
	s := NewStore(backend)
	s.SetClock(fixedClock(t0))

	r, err := s.Add(context.Background(), "take medicine", 5*time.Minute)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if r.ID != 1 {
		t.Fatalf("ID = %d, want 1", r.ID)
	}
	if !r.DueAt.Equal(t0.Add(5 * time.Minute)) {
		t.Fatalf("DueAt = %v, want %v", r.DueAt, t0.Add(5*time.Minute))
	}

	r2, err := s.Add(context.Background(), "stretch", time.Hour)
	if err != nil {
		t.Fatalf("Add() second error = %v", err)
	}
	if r2.ID != 2 {
		t.Fatalf("second ID = %d, want 2", r2.ID)
	}
	if backend.saves() != 2 {
		t.Fatalf("saves = %d, want 2", backend.saves())
	}
}

func TestStoreAddRejectsBlankMessage(t *testing.T) {
	s := NewStore(&memoryBackend{})
	if _, err := s.Add(context.Background(), "   ", time.Minute); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("Add() error = %v, want ErrEmptyMessage", err)
	}
	if len(s.List()) != 0 {
		t.Fatalf("List() not empty after rejected add")
	}
}

func TestStoreIDsStayDistinctAfterCancel(t *testing.T) {
	s := NewStore(&memoryBackend{})
	ctx := context.Background()
	for _, m := range []string{"a", "b", "c"} {
		if _, err := s.Add(ctx, m, time.Minute); err != nil {
			t.Fatalf("Add(%q) error = %v", m, err)
		}
	}
	if !s.Cancel(ctx, 1) {
		t.Fatalf("Cancel(1) = false, want true")
	}

	r, err := s.Add(ctx, "d", time.Minute)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if r.ID != 4 {
		t.Fatalf("ID = %d, want 4 (3 is still active)", r.ID)
	}

	seen := map[int]bool{}
	for _, item := range s.List() {
		if seen[item.ID] {
			t.Fatalf("duplicate id %d in %+v", item.ID, s.List())
		}
		seen[item.ID] = true
	}
}

func TestStoreCancelUnknownLeavesSetUnchanged(t *testing.T) {
	backend := &memoryBackend{}
	s := NewStore(backend)
	ctx := context.Background()
	if _, err := s.Add(ctx, "a", time.Minute); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if s.Cancel(ctx, 7) {
		t.Fatalf("Cancel(7) = true, want false")
	}
	if len(s.List()) != 1 {
		t.Fatalf("List() len = %d, want 1", len(s.List()))
	}
	if backend.saves() != 1 {
		t.Fatalf("saves = %d, want 1 (no flush for a miss)", backend.saves())
	}
}

func TestStoreTakeDue(t *testing.T) {
	t0 := time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)
	backend := &memoryBackend{}
	s := NewStore(backend)
	s.SetClock(fixedClock(t0))
	ctx := context.Background()

	mustAdd(t, s, "later", time.Hour)
	mustAdd(t, s, "first", time.Minute)
	mustAdd(t, s, "second", 2*time.Minute)

	due := s.TakeDue(ctx, t0.Add(2*time.Minute))
	if len(due) != 2 {
		t.Fatalf("TakeDue() len = %d, want 2", len(due))
	}
	if due[0].Message != "first" || due[1].Message != "second" {
		t.Fatalf("TakeDue() order = %+v, want insertion order", due)
	}
	savesAfterBatch := backend.saves()

	if again := s.TakeDue(ctx, t0.Add(2*time.Minute)); len(again) != 0 {
		t.Fatalf("second TakeDue() = %+v, want none", again)
	}
	if backend.saves() != savesAfterBatch {
		t.Fatalf("empty TakeDue() flushed the store")
	}

	left := s.List()
	if len(left) != 1 || left[0].Message != "later" {
		t.Fatalf("List() = %+v, want only %q", left, "later")
	}
}

func TestStoreDescribe(t *testing.T) {
	s := NewStore(&memoryBackend{})
	if got := s.Describe(); got != "You have no active reminders." {
		t.Fatalf("Describe() = %q", got)
	}

	t0 := time.Date(2026, time.January, 10, 9, 0, 0, 0, time.Local)
	s.SetClock(fixedClock(t0))
	mustAdd(t, s, "take medicine", 5*time.Minute)
	mustAdd(t, s, "stretch", time.Hour)

	want := "Reminder 1: take medicine at 09:05 AM on January 10\nReminder 2: stretch at 10:00 AM on January 10"
	if got := s.Describe(); got != want {
		t.Fatalf("Describe() = %q, want %q", got, want)
	}
}

func TestStoreKeepsMemoryOnSaveFailure(t *testing.T) {
	backend := &memoryBackend{saveErr: errors.New("disk full")}
	s := NewStore(backend)
	if _, err := s.Add(context.Background(), "a", time.Minute); err != nil {
		t.Fatalf("Add() error = %v, want nil on persistence failure", err)
	}
	if len(s.List()) != 1 {
		t.Fatalf("List() len = %d, want 1", len(s.List()))
	}
}

func TestStoreLoadFailureStartsEmpty(t *testing.T) {
	backend := &memoryBackend{loadErr: ErrMalformedData}
	s := NewStore(backend)
	if err := s.Load(context.Background()); !errors.Is(err, ErrMalformedData) {
		t.Fatalf("Load() error = %v, want ErrMalformedData", err)
	}
	if len(s.List()) != 0 {
		t.Fatalf("List() len = %d, want 0", len(s.List()))
	}
}

func TestStoreChangeHook(t *testing.T) {
	s := NewStore(&memoryBackend{})
	var counts []int
	s.SetChangeHook(func(active int) { counts = append(counts, active) })

	ctx := context.Background()
	mustAdd(t, s, "a", time.Minute)
	mustAdd(t, s, "b", time.Minute)
	s.Cancel(ctx, 1)

	if len(counts) != 3 || counts[0] != 1 || counts[1] != 2 || counts[2] != 1 {
		t.Fatalf("change hook counts = %v, want [1 2 1]", counts)
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "reminders.json")
	ctx := context.Background()

	first := NewStore(NewFileBackend(path))
	if err := first.Load(ctx); err != nil {
		t.Fatalf("Load() on missing file error = %v", err)
	}
	a := mustAdd(t, first, "take medicine", 5*time.Minute)
	b := mustAdd(t, first, "call mom", 3*24*time.Hour)
	mustAdd(t, first, "cancel me", time.Hour)
	first.Cancel(ctx, 3)

	second := NewStore(NewFileBackend(path))
	if err := second.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got := second.List()
	if len(got) != 2 {
		t.Fatalf("reloaded len = %d, want 2", len(got))
	}
	for i, want := range []Reminder{a, b} {
		if got[i].ID != want.ID || got[i].Message != want.Message || !got[i].DueAt.Equal(want.DueAt) {
			t.Fatalf("reloaded[%d] = %+v, want %+v", i, got[i], want)
		}
	}
}

func TestFileBackendWritesJSONArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.json")
	s := NewStore(NewFileBackend(path))
	mustAdd(t, s, "a", time.Minute)
	s.Cancel(context.Background(), 1)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Fatalf("file = %q, want empty JSON array", string(data))
	}
}

func TestFileBackendMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.json")
	if err := os.WriteFile(path, []byte(`{"not":"an array"`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	s := NewStore(NewFileBackend(path))
	if err := s.Load(context.Background()); !errors.Is(err, ErrMalformedData) {
		t.Fatalf("Load() error = %v, want ErrMalformedData", err)
	}
	if len(s.List()) != 0 {
		t.Fatalf("List() len = %d, want 0", len(s.List()))
	}
}

func TestFileBackendReadsNaiveTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.json")
	raw := `[{"id": 1, "message": "water plants", "time": "2026-02-01T08:30:00.250000"}]`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	items, err := NewFileBackend(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := time.Date(2026, time.February, 1, 8, 30, 0, 250000000, time.Local)
	if len(items) != 1 || !items[0].DueAt.Equal(want) {
		t.Fatalf("Load() = %+v, want due %v", items, want)
	}
}

func TestStoreConcurrentAddAndTakeDue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.json")
	t0 := time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)
	s := NewStore(NewFileBackend(path))
	s.SetClock(fixedClock(t0))
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	var takenMu sync.Mutex
	taken := map[string]int{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			offset := time.Hour
			if i%2 == 0 {
				offset = time.Minute
			}
			if _, err := s.Add(ctx, fmt.Sprintf("task %d", i), offset); err != nil {
				errs <- err
				return
			}
			for _, r := range s.TakeDue(ctx, t0.Add(2*time.Minute)) {
				takenMu.Lock()
				taken[r.Message]++
				takenMu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Add() error = %v", err)
	}

	for msg, n := range taken {
		if n != 1 {
			t.Fatalf("reminder %q taken %d times, want once", msg, n)
		}
	}
	if len(taken) != workers/2 {
		t.Fatalf("taken %d due reminders, want %d", len(taken), workers/2)
	}
	left := s.List()
	if len(taken)+len(left) != workers {
		t.Fatalf("taken %d + active %d, want %d", len(taken), len(left), workers)
	}
	for _, r := range left {
		if !r.DueAt.Equal(t0.Add(time.Hour)) {
			t.Fatalf("due reminder %+v left in store", r)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var onDisk []Reminder
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(onDisk) != len(left) {
		t.Fatalf("snapshot has %d reminders, List() has %d", len(onDisk), len(left))
	}
	for i := range left {
		if onDisk[i].ID != left[i].ID || onDisk[i].Message != left[i].Message || !onDisk[i].DueAt.Equal(left[i].DueAt) {
			t.Fatalf("snapshot[%d] = %+v, List()[%d] = %+v", i, onDisk[i], i, left[i])
		}
	}
}

func mustAdd(t *testing.T, s *Store, message string, offset time.Duration) Reminder {
	t.Helper()
	r, err := s.Add(context.Background(), message, offset)
	if err != nil {
		t.Fatalf("Add(%q) error = %v", message, err)
	}
	return r
}
