// Package worker relays audit events from the Postgres outbox to Kafka.
package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Publisher is the Kafka-facing side of the relay.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Worker polls the outbox table and publishes unpublished entries in order.
// Entries are marked published only after the broker acknowledges, so a crash
// between publish and mark can re-deliver; consumers must treat event IDs as
// the idempotency key.
type Worker struct {
	db        *sql.DB
	publisher Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func New(db *sql.DB, publisher Publisher, logger *slog.Logger, interval time.Duration, batchSize int) *Worker {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Worker{
		db:        db,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run drains the outbox until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := w.drainOnce(ctx); err != nil {
				w.logger.WarnContext(ctx, "outbox drain failed", "error", err)
			} else if n > 0 {
				w.logger.DebugContext(ctx, "outbox drained", "published", n)
			}
		}
	}
}

type outboxRow struct {
	id          string
	aggregateID string
	payload     []byte
}

// drainOnce publishes up to batchSize pending entries. SKIP LOCKED lets
// multiple relay instances run without stepping on each other.
func (w *Worker) drainOnce(ctx context.Context) (int, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const selectQuery = `
		SELECT id, aggregate_id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := tx.QueryContext(ctx, selectQuery, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("select outbox entries: %w", err)
	}

	var pending []outboxRow
	for rows.Next() {
		var row outboxRow
		if err := rows.Scan(&row.id, &row.aggregateID, &row.payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox entry: %w", err)
		}
		pending = append(pending, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox entries: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	published := 0
	for _, row := range pending {
		if err := w.publisher.Publish(ctx, row.aggregateID, row.payload); err != nil {
			// Stop at the first failure to preserve per-aggregate order.
			break
		}
		const markQuery = `UPDATE outbox SET published_at = $1 WHERE id = $2`
		if _, err := tx.ExecContext(ctx, markQuery, time.Now(), row.id); err != nil {
			return published, fmt.Errorf("mark outbox entry published: %w", err)
		}
		published++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox tx: %w", err)
	}
	return published, nil
}
