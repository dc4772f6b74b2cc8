package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"vaultpay/internal/domain/event"
	"vaultpay/internal/store/repositories"
)

type eventRepository struct {
	q Querier
}

func NewEventRepository(q Querier) repositories.EventRepository {
	return &eventRepository{q: q}
}

const eventColumns = `id, source, event_type, external_id, payload_json, received_at, processed_at, processing_status, outcome`

// Save inserts the event; ON CONFLICT DO NOTHING makes the provider event id
// the idempotency key for duplicate deliveries.
func (r *eventRepository) Save(ctx context.Context, e *event.Event) (bool, error) {
	err := r.q.QueryRow(ctx, `
		INSERT INTO webhook_events (source, event_type, external_id, payload_json, received_at, processing_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source, external_id) DO NOTHING
		RETURNING id`,
		e.Source, e.Type, e.ExternalID, e.PayloadJSON, e.ReceivedAt, string(e.ProcessingStatus),
	).Scan(&e.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil // duplicate delivery, row already stored
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *eventRepository) FindByID(ctx context.Context, id int64) (*event.Event, error) {
	row := r.q.QueryRow(ctx, `SELECT `+eventColumns+` FROM webhook_events WHERE id = $1`, id)
	return scanEvent(row)
}

func (r *eventRepository) FindUnprocessed(ctx context.Context, limit int) ([]*event.Event, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+eventColumns+`
		FROM webhook_events
		WHERE processing_status IN ('pending', 'queued')
		ORDER BY received_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (r *eventRepository) FindIDsByWindow(ctx context.Context, since, until *time.Time, limit int) ([]int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id FROM webhook_events
		WHERE ($1::timestamptz IS NULL OR received_at >= $1)
		  AND ($2::timestamptz IS NULL OR received_at <= $2)
		ORDER BY received_at ASC
		LIMIT $3`, since, until, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *eventRepository) MarkProcessed(ctx context.Context, id int64, status event.ProcessingStatus, outcome string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE webhook_events
		SET processing_status = $2, outcome = $3, processed_at = now(), updated_at = now()
		WHERE id = $1`, id, string(status), outcome)
	return err
}

func (r *eventRepository) MarkForReprocessing(ctx context.Context, id int64) error {
	_, err := r.q.Exec(ctx, `
		UPDATE webhook_events
		SET processing_status = 'queued', processed_at = NULL, updated_at = now()
		WHERE id = $1`, id)
	return err
}

func (r *eventRepository) List(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+eventColumns+`
		FROM webhook_events
		ORDER BY id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvent(row pgx.Row) (*event.Event, error) {
	var e event.Event
	var processedAt sql.NullTime
	var outcome sql.NullString

	err := row.Scan(&e.ID, &e.Source, &e.Type, &e.ExternalID, &e.PayloadJSON,
		&e.ReceivedAt, &processedAt, &e.ProcessingStatus, &outcome)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if processedAt.Valid {
		e.ProcessedAt = &processedAt.Time
	}
	if outcome.Valid {
		e.Outcome = outcome.String
	}
	return &e, nil
}

func scanEvents(rows pgx.Rows) ([]*event.Event, error) {
	var out []*event.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
