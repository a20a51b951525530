package history

import (
	"context"
	"encoding/json"
	"fmt"

	"realtime-chat/internal/models"
	"realtime-chat/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         BIGINT PRIMARY KEY,
	scope_key  TEXT NOT NULL,
	sender_id  TEXT NOT NULL,
	sender     TEXT NOT NULL,
	body       JSONB NOT NULL,
	sent_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS messages_scope_idx ON messages (scope_key, id);`

// Postgres records messages into a single append-only table keyed by the
// in-process sequence ID.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	logger.Info("Connected to history database")
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Record(ctx context.Context, msg *models.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message %d: %w", msg.ID, err)
	}

	query := `
		INSERT INTO messages (id, scope_key, sender_id, sender, body, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	if _, err := p.pool.Exec(ctx, query, msg.ID, msg.Scope.Key(), msg.SenderID, msg.Sender, body, msg.Timestamp); err != nil {
		return fmt.Errorf("failed to record message %d: %w", msg.ID, err)
	}
	return nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}
