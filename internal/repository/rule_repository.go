package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/guest-inbox/internal/domain"
)

// RuleRepository stores automation rules.
// Listings are ordered by priority descending, then newest first.
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.Rule) error
	Update(ctx context.Context, rule *domain.Rule) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Rule, error)
	List(ctx context.Context) ([]domain.Rule, error)
	ListActive(ctx context.Context) ([]domain.Rule, error)
	SetActive(ctx context.Context, id string, active bool, at time.Time) error
}

type ruleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository builds repository.
func NewRuleRepository(pool *pgxpool.Pool) RuleRepository {
	return &ruleRepository{pool: pool}
}

const ruleColumns = `id, name, description, conditions, actions, priority, active, created_at, updated_at`

func (r *ruleRepository) Create(ctx context.Context, rule *domain.Rule) error {
	conditions, actions, err := encodeRule(rule)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO rules (id, name, description, conditions, actions, priority, active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err = r.pool.Exec(ctx, query,
		rule.ID,
		rule.Name,
		rule.Description,
		conditions,
		actions,
		rule.Priority,
		rule.Active,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	return err
}

func (r *ruleRepository) Update(ctx context.Context, rule *domain.Rule) error {
	conditions, actions, err := encodeRule(rule)
	if err != nil {
		return err
	}
	const query = `
        UPDATE rules SET name=$1, description=$2, conditions=$3, actions=$4, priority=$5, active=$6, updated_at=$7
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		rule.Name,
		rule.Description,
		conditions,
		actions,
		rule.Priority,
		rule.Active,
		rule.UpdatedAt,
		rule.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ruleRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM rules WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ruleRepository) GetByID(ctx context.Context, id string) (*domain.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE id=$1`
	return scanRule(r.pool.QueryRow(ctx, query, id))
}

func (r *ruleRepository) List(ctx context.Context) ([]domain.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules ORDER BY priority DESC, created_at DESC, seq DESC`
	return r.list(ctx, query)
}

func (r *ruleRepository) ListActive(ctx context.Context) ([]domain.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE active ORDER BY priority DESC, created_at DESC, seq DESC`
	return r.list(ctx, query)
}

func (r *ruleRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE rules SET active=$2, updated_at=$3 WHERE id=$1`, id, active, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ruleRepository) list(ctx context.Context, query string) ([]domain.Rule, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	return result, rows.Err()
}

func encodeRule(rule *domain.Rule) ([]byte, []byte, error) {
	conditions, err := domain.MarshalConditions(rule.Conditions)
	if err != nil {
		return nil, nil, fmt.Errorf("encode conditions: %w", err)
	}
	actions, err := domain.MarshalActions(rule.Actions)
	if err != nil {
		return nil, nil, fmt.Errorf("encode actions: %w", err)
	}
	return conditions, actions, nil
}

func scanRule(row pgx.Row) (*domain.Rule, error) {
	var (
		rule       domain.Rule
		conditions []byte
		actions    []byte
	)
	if err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Description,
		&conditions,
		&actions,
		&rule.Priority,
		&rule.Active,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}

	var err error
	if rule.Conditions, err = domain.UnmarshalConditions(conditions); err != nil {
		return nil, fmt.Errorf("decode rule %s conditions: %w", rule.ID, err)
	}
	if rule.Actions, err = domain.UnmarshalActions(actions); err != nil {
		return nil, fmt.Errorf("decode rule %s actions: %w", rule.ID, err)
	}
	return &rule, nil
}
