package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/reactboard/internal/domain"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	selectMappingColumns = `SELECT id, reference_id, counter_id, created_at FROM board_mappings`

	queryFindByReference = selectMappingColumns + ` WHERE reference_id = ?`
	queryFindByCounter   = selectMappingColumns + ` WHERE counter_id = ?`
	queryInsertMapping   = `INSERT INTO board_mappings (reference_id, counter_id, created_at) VALUES (?, ?, ?) RETURNING id`
	queryCountMappings   = `SELECT count(*) FROM board_mappings`
)

// MappingRepo is the SQLite domain.MappingStore.
type MappingRepo struct {
	db    *sql.DB
	clock clockwork.Clock
}

func NewMappingRepo(db *sql.DB, clock clockwork.Clock) *MappingRepo {
	return &MappingRepo{db: db, clock: clock}
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
	now := r.clock.Now().UTC()

	var id int64
	err := r.db.QueryRowContext(ctx, queryInsertMapping, referenceID, counterID, now.UnixMilli()).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert mapping: %w", translateUniqueViolation(err))
	}

	return &domain.BoardMapping{
		ID:          id,
		ReferenceID: referenceID,
		CounterID:   counterID,
		CreatedAt:   time.UnixMilli(now.UnixMilli()).UTC(),
	}, nil
}

func (r *MappingRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, queryCountMappings).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count mappings: %w", err)
	}
	return n, nil
}

// Ping reports whether the database is usable.
func (r *MappingRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *MappingRepo) queryOne(ctx context.Context, query string, args ...any) (*domain.BoardMapping, error) {
	var (
		m         domain.BoardMapping
		createdMs int64
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&m.ID, &m.ReferenceID, &m.CounterID, &createdMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMappingNotFound
	}
	if err != nil {
		return nil, err
	}
	m.CreatedAt = time.UnixMilli(createdMs).UTC()
	return &m, nil
}

// translateUniqueViolation maps SQLite's "UNIQUE constraint failed: board_mappings.<column>"
// onto the domain sentinels.
func translateUniqueViolation(err error) error {
	sqliteErr, ok := errors.AsType[*sqlite.Error](err)
	if !ok || sqliteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return err
	}

	msg := sqliteErr.Error()
	switch {
	case strings.Contains(msg, "board_mappings.reference_id"):
		return fmt.Errorf("%w: %s", domain.ErrDuplicateReference, msg)
	case strings.Contains(msg, "board_mappings.counter_id"):
		return fmt.Errorf("%w: %s", domain.ErrDuplicateCounter, msg)
	default:
		return err
	}
}
