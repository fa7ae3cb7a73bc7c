package reminders

import (
	"context"
	"strings"
)

// NewBackend creates a postgres-backed store when configured, otherwise a JSON file.
func NewBackend(ctx context.Context, databaseURL, path string) (Backend, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewFileBackend(path), nil
	}
	return NewPostgresBackend(ctx, databaseURL)
}
