package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	platform "github.com/polytrade/trading-backend/internal/platform/postgres"
	"github.com/polytrade/trading-backend/pkg/outbox"
)

// OutboxStore persists domain events next to the rows they describe and
// feeds the relay. Enqueue joins whatever transaction is ambient in the
// context, which is what makes the outbox transactional.
type OutboxStore struct {
	log *slog.Logger
	db  *platform.DB
}

func NewOutboxStore(log *slog.Logger, db *platform.DB) *OutboxStore {
	return &OutboxStore{log: log, db: db}
}

func (s *OutboxStore) Enqueue(ctx context.Context, aggregateType, aggregateID, eventType string, payload []byte) error {
	_, err := s.db.Querier(ctx).Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, status)
		VALUES ($1,$2,$3,$4,'pending')`,
		aggregateType, aggregateID, eventType, payload)
	return err
}

func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	var events []outbox.Event
	err := s.db.WithinTx(ctx, func(ctx context.Context) error {
		q := s.db.Querier(ctx)

		rows, err := q.Query(ctx, `
			SELECT id, aggregate_type, aggregate_id, type, payload, headers, traceparent, created_at
			FROM outbox
			WHERE status = 'pending'
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT $1`, batchSize)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var event outbox.Event
			var headers map[string]string
			var traceparent *string
			if err := rows.Scan(&event.ID, &event.AggregateType, &event.AggregateID,
				&event.Type, &event.Payload, &headers, &traceparent, &event.CreatedAt); err != nil {
				return err
			}
			event.Headers = headers
			if traceparent != nil {
				event.Traceparent = *traceparent
			}
			events = append(events, event)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(events))
		for _, ev := range events {
			ids = append(ids, ev.ID)
		}
		_, err = q.Exec(ctx, `
			UPDATE outbox
			SET status = 'in_progress', relay_id = $1, lease_until = now() + $2::interval
			WHERE id = ANY($3)`,
			relayID, lease.String(), ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	ct, err := s.db.Querier(ctx).Exec(ctx,
		`UPDATE outbox SET status = 'sent' WHERE id = ANY($1)`, ids)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("no outbox rows updated")
	}
	return nil
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.db.Querier(ctx).Exec(ctx, `
		UPDATE outbox
		SET status = 'failed', last_error = $2, retry_count = retry_count + 1
		WHERE id = $1`, id, errMsg)
	return err
}

func (s *OutboxStore) ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error {
	_, err := s.db.Querier(ctx).Exec(ctx, `
		UPDATE outbox SET lease_until = now() + $1::interval
		WHERE id = ANY($2) AND relay_id = $3`,
		lease.String(), ids, relayID)
	return err
}
