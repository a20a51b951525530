// Package history is the optional persistence collaborator: it receives
// an immutable copy of each message for later history/replay. The engine
// never reads it back on the hot path and stays correct when recording
// fails or is disabled entirely.
package history

import (
	"context"

	"realtime-chat/internal/models"
)

type Recorder interface {
	Record(ctx context.Context, msg *models.Message) error
	Close()
}

// Nop discards everything. Used when no DATABASE_URL is configured.
type Nop struct{}

func (Nop) Record(context.Context, *models.Message) error { return nil }
func (Nop) Close()                                        {}
