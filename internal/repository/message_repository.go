package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guest-inbox/internal/domain"
)

// MessageRepository manages conversation messages. Messages are immutable.
// Every listing is ordered by creation time, ties in insertion order.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
	// ListRecent returns at most limit of the latest messages, oldest first.
	ListRecent(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
	ListAll(ctx context.Context) ([]domain.Message, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

const messageColumns = `id, conversation_id, channel, direction, content, content_type, metadata, created_at`

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (id, conversation_id, channel, direction, content, content_type, metadata, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.Channel,
		msg.Direction,
		msg.Content,
		msg.ContentType,
		metadataOrEmpty(msg.Metadata),
		msg.CreatedAt,
	)
	return err
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id=$1`
	return scanMessage(r.pool.QueryRow(ctx, query, id))
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_id=$1 ORDER BY created_at ASC, seq ASC`
	return r.list(ctx, query, conversationID)
}

func (r *messageRepository) ListRecent(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	query := `
        SELECT ` + messageColumns + ` FROM (
            SELECT ` + messageColumns + `, seq FROM messages
            WHERE conversation_id=$1
            ORDER BY created_at DESC, seq DESC
            LIMIT $2
        ) recent
        ORDER BY created_at ASC, seq ASC`
	return r.list(ctx, query, conversationID, limit)
}

func (r *messageRepository) ListAll(ctx context.Context) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages ORDER BY created_at ASC, seq ASC`
	return r.list(ctx, query)
}

func (r *messageRepository) list(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *msg)
	}
	return result, rows.Err()
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var msg domain.Message
	if err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.Channel,
		&msg.Direction,
		&msg.Content,
		&msg.ContentType,
		&msg.Metadata,
		&msg.CreatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &msg, nil
}
