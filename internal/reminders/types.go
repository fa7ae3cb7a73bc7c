package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrMalformedCommand = errors.New("malformed reminder command")
	ErrNoQuantity       = errors.New("no quantity in offset clause")
	ErrEmptyMessage     = errors.New("reminder message is empty")
	ErrMalformedData    = errors.New("malformed reminder data")
)

// Reminder is a single pending reminder. DueAt never changes after creation.
type Reminder struct {
	ID      int       `json:"id"`
	Message string    `json:"message"`
	DueAt   time.Time `json:"time"`
}

// Backend persists full snapshots of the active set.
type Backend interface {
	// Load returns the stored set in insertion order. Missing data is an empty set.
	Load(ctx context.Context) ([]Reminder, error)
	// Save replaces the stored set with items.
	Save(ctx context.Context, items []Reminder) error
	Mode() string
	Close() error
}

// legacyTimeLayout accepts naive ISO-8601 timestamps without a zone,
// which are read as local time.
const legacyTimeLayout = "2006-01-02T15:04:05.999999999"

type record struct {
	ID      int    `json:"id"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

func (r Reminder) MarshalJSON() ([]byte, error) {
	return json.Marshal(record{
		ID:      r.ID,
		Message: r.Message,
		Time:    r.DueAt.Format(time.RFC3339Nano),
	})
}

func (r *Reminder) UnmarshalJSON(data []byte) error {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	due, err := parseTimestamp(rec.Time)
	if err != nil {
		return fmt.Errorf("reminder %d: %w", rec.ID, err)
	}
	*r = Reminder{ID: rec.ID, Message: rec.Message, DueAt: due}
	return nil
}

func parseTimestamp(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(legacyTimeLayout, v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", v, err)
	}
	return t, nil
}
