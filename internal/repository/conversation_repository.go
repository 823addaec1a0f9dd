package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guest-inbox/internal/domain"
)

// ConversationFilter narrows inbox listings.
type ConversationFilter struct {
	Statuses  []domain.ConversationStatus
	Channel   *domain.Channel
	ContactID *string
	Limit     int
	Offset    int
}

// ConversationRepository encapsulates conversation persistence.
type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	// FindActive returns the most recently updated OPEN or PENDING conversation
	// for the pair, or ErrNotFound.
	FindActive(ctx context.Context, contactID string, channel domain.Channel) (*domain.Conversation, error)
	List(ctx context.Context, filter ConversationFilter) ([]domain.Conversation, error)
	// Touch sets updatedAt to at unless it is already later.
	Touch(ctx context.Context, id string, at time.Time) error
	UpdateStatus(ctx context.Context, id string, status domain.ConversationStatus, at time.Time) error
	UpdateMetadata(ctx context.Context, id string, metadata map[string]any, at time.Time) error
}

type conversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository instantiates repository.
func NewConversationRepository(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepository{pool: pool}
}

const conversationColumns = `id, contact_id, channel, status, subject, metadata, created_at, updated_at`

func (r *conversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	const query = `
        INSERT INTO conversations (id, contact_id, channel, status, subject, metadata, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.pool.Exec(ctx, query,
		conv.ID,
		conv.ContactID,
		conv.Channel,
		conv.Status,
		conv.Subject,
		metadataOrEmpty(conv.Metadata),
		conv.CreatedAt,
		conv.UpdatedAt,
	)
	return err
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id=$1`
	return scanConversation(r.pool.QueryRow(ctx, query, id))
}

func (r *conversationRepository) FindActive(ctx context.Context, contactID string, channel domain.Channel) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + `
        FROM conversations
        WHERE contact_id=$1 AND channel=$2 AND status IN ('OPEN','PENDING')
        ORDER BY updated_at DESC, seq DESC
        LIMIT 1`
	return scanConversation(r.pool.QueryRow(ctx, query, contactID, channel))
}

func (r *conversationRepository) List(ctx context.Context, filter ConversationFilter) ([]domain.Conversation, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Channel != nil {
		args = append(args, *filter.Channel)
		clauses = append(clauses, fmt.Sprintf("channel=$%d", len(args)))
	}
	if filter.ContactID != nil {
		args = append(args, *filter.ContactID)
		clauses = append(clauses, fmt.Sprintf("contact_id=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM conversations WHERE %s ORDER BY updated_at DESC, seq DESC LIMIT %d OFFSET %d`,
		conversationColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *conv)
	}
	return result, rows.Err()
}

func (r *conversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE conversations SET updated_at=GREATEST(updated_at, $2) WHERE id=$1`
	return r.execOne(ctx, query, id, at)
}

func (r *conversationRepository) UpdateStatus(ctx context.Context, id string, status domain.ConversationStatus, at time.Time) error {
	const query = `UPDATE conversations SET status=$2, updated_at=GREATEST(updated_at, $3) WHERE id=$1`
	return r.execOne(ctx, query, id, status, at)
}

func (r *conversationRepository) UpdateMetadata(ctx context.Context, id string, metadata map[string]any, at time.Time) error {
	const query = `UPDATE conversations SET metadata=$2, updated_at=GREATEST(updated_at, $3) WHERE id=$1`
	return r.execOne(ctx, query, id, metadataOrEmpty(metadata), at)
}

func (r *conversationRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := row.Scan(
		&conv.ID,
		&conv.ContactID,
		&conv.Channel,
		&conv.Status,
		&conv.Subject,
		&conv.Metadata,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

func metadataOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
