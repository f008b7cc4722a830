package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"mandate/internal/platform/postgres"
	txcontext "mandate/pkg/platform/tx"
)

// PostgresStore reads and writes the outbox table.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append writes an event. Called with a transaction in ctx it joins that
// transaction, so the event commits or rolls back with the caller's write.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := postgres.Conn(ctx, s.db).Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID,
		event.AggregateType,
		event.AggregateID,
		event.EventType,
		[]byte(event.Payload),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// PublishPending locks up to limit unpublished events, hands them to publish
// in creation order, and marks them published when publish succeeds. Rows
// locked by another relay are skipped. A publish error leaves every row
// unpublished.
func (s *PostgresStore) PublishPending(ctx context.Context, limit int, publish func(context.Context, []Event) error) (int, error) {
	var published int
	err := postgres.InTx(ctx, s.db, func(ctx context.Context) error {
		tx, _ := txcontext.From(ctx)
		rows, err := tx.Query(ctx, `
			SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
			FROM outbox
			WHERE published_at IS NULL
			ORDER BY created_at, id
			LIMIT $1
			FOR UPDATE SKIP LOCKED`, limit)
		if err != nil {
			return fmt.Errorf("select pending outbox: %w", err)
		}
		var events []Event
		for rows.Next() {
			var (
				e       Event
				payload []byte
			)
			if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &payload, &e.CreatedAt); err != nil {
				rows.Close()
				return fmt.Errorf("scan outbox entry: %w", err)
			}
			e.Payload = payload
			e.CreatedAt = e.CreatedAt.UTC()
			events = append(events, e)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate outbox: %w", err)
		}
		if len(events) == 0 {
			return nil
		}

		if err := publish(ctx, events); err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(events))
		for i, e := range events {
			ids[i] = e.ID
		}
		if _, err := tx.Exec(ctx,
			`UPDATE outbox SET published_at = $1 WHERE id = ANY($2)`,
			time.Now().UTC(), ids); err != nil {
			return fmt.Errorf("mark outbox published: %w", err)
		}
		published = len(events)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}

// Pending counts unpublished events.
func (s *PostgresStore) Pending(ctx context.Context) (int64, error) {
	var n int64
	err := postgres.Conn(ctx, s.db).QueryRow(ctx,
		`SELECT count(*) FROM outbox WHERE published_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending outbox: %w", err)
	}
	return n, nil
}
