package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/reactboard/internal/domain"
)

const (
	uniqueViolation           = "23505"
	referenceUniqueConstraint = "board_mappings_reference_id_key"
	counterUniqueConstraint   = "board_mappings_counter_id_key"
)

const (
	selectMappingColumns = `SELECT id, reference_id, counter_id, created_at FROM board_mappings`

	queryFindByReference = selectMappingColumns + ` WHERE reference_id = $1`
	queryFindByCounter   = selectMappingColumns + ` WHERE counter_id = $1`
	queryInsertMapping   = `INSERT INTO board_mappings (reference_id, counter_id) VALUES ($1, $2)
		RETURNING id, reference_id, counter_id, created_at`
	queryCountMappings = `SELECT count(*) FROM board_mappings`
)

// MappingRepo is the Postgres domain.MappingStore.
type MappingRepo struct {
	pool *pgxpool.Pool
}

func NewMappingRepo(pool *pgxpool.Pool) *MappingRepo {
	return &MappingRepo{pool: pool}
}

func (r *MappingRepo) FindByReference(ctx context.Context, referenceID string) (*domain.BoardMapping, error) {
	m, err := r.queryOne(ctx, queryFindByReference, referenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping by reference ID: %w", err)
	}
	return m, nil
}

func (r *MappingRepo) FindByCounter(ctx context.Context, counterID string) (*domain.BoardMapping, error) {
	m, err := r.queryOne(ctx, queryFindByCounter, counterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping by counter ID: %w", err)
	}
	return m, nil
}

func (r *MappingRepo) Insert(ctx context.Context, referenceID, counterID string) (*domain.BoardMapping, error) {
	m, err := r.queryOne(ctx, queryInsertMapping, referenceID, counterID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert mapping: %w", translateUniqueViolation(err))
	}
	return m, nil
}

func (r *MappingRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, queryCountMappings).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count mappings: %w", err)
	}
	return n, nil
}

// Ping reports whether the database is reachable.
func (r *MappingRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *MappingRepo) queryOne(ctx context.Context, sql string, args ...any) (*domain.BoardMapping, error) {
	var m domain.BoardMapping
	err := r.pool.QueryRow(ctx, sql, args...).Scan(&m.ID, &m.ReferenceID, &m.CounterID, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMappingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func translateUniqueViolation(err error) error {
	pgErr, ok := errors.AsType[*pgconn.PgError](err)
	if !ok || pgErr.Code != uniqueViolation {
		return err
	}

	switch pgErr.ConstraintName {
	case referenceUniqueConstraint:
		return fmt.Errorf("%w: %s", domain.ErrDuplicateReference, pgErr.Detail)
	case counterUniqueConstraint:
		return fmt.Errorf("%w: %s", domain.ErrDuplicateCounter, pgErr.Detail)
	default:
		return err
	}
}
