package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guest-inbox/internal/domain"
)

// EventRepository is the append-only ledger store.
type EventRepository interface {
	Append(ctx context.Context, event *domain.Event) error
	// List returns every event in append order.
	List(ctx context.Context) ([]domain.Event, error)
}

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository builds repository.
func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &eventRepository{pool: pool}
}

func (r *eventRepository) Append(ctx context.Context, event *domain.Event) error {
	const query = `
        INSERT INTO events (id, type, conversation_id, rule_id, payload, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.Type,
		event.ConversationID,
		event.RuleID,
		metadataOrEmpty(event.Payload),
		event.CreatedAt,
	)
	return err
}

func (r *eventRepository) List(ctx context.Context) ([]domain.Event, error) {
	const query = `
        SELECT id, type, conversation_id, rule_id, payload, created_at
        FROM events ORDER BY seq ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Event
	for rows.Next() {
		var event domain.Event
		if err := rows.Scan(
			&event.ID,
			&event.Type,
			&event.ConversationID,
			&event.RuleID,
			&event.Payload,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
