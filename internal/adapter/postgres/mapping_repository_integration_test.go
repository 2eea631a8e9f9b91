package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/reactboard/internal/adapter/metrics"
	"github.com/pscheid92/reactboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMappingRepo_InsertAndFind(t *testing.T) {
	repo := NewMappingRepo(setupTestDB(t))
	ctx := context.Background()

	inserted, err := repo.Insert(ctx, "111", "entry-1")
	require.NoError(t, err)
	assert.NotZero(t, inserted.ID)
	assert.Equal(t, "111", inserted.ReferenceID)
	assert.Equal(t, "entry-1", inserted.CounterID)
	assert.False(t, inserted.CreatedAt.IsZero())

	byRef, err := repo.FindByReference(ctx, "111")
	require.NoError(t, err)
	assert.Equal(t, inserted.ID, byRef.ID)

	byCounter, err := repo.FindByCounter(ctx, "entry-1")
	require.NoError(t, err)
	assert.Equal(t, "111", byCounter.ReferenceID)
}

func TestMappingRepo_NotFound(t *testing.T) {
	repo := NewMappingRepo(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.FindByReference(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrMappingNotFound)

	_, err = repo.FindByCounter(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrMappingNotFound)
}

func TestMappingRepo_DuplicateReference(t *testing.T) {
	repo := NewMappingRepo(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.Insert(ctx, "111", "entry-1")
	require.NoError(t, err)

	_, err = repo.Insert(ctx, "111", "entry-2")
	assert.ErrorIs(t, err, domain.ErrDuplicateReference)
	assert.NotErrorIs(t, err, domain.ErrDuplicateCounter)

	m, err := repo.FindByReference(ctx, "111")
	require.NoError(t, err)
	assert.Equal(t, "entry-1", m.CounterID)
}

func TestMappingRepo_DuplicateCounter(t *testing.T) {
	repo := NewMappingRepo(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.Insert(ctx, "111", "entry-1")
	require.NoError(t, err)

	_, err = repo.Insert(ctx, "222", "entry-1")
	assert.ErrorIs(t, err, domain.ErrDuplicateCounter)

	_, err = repo.FindByReference(ctx, "222")
	assert.ErrorIs(t, err, domain.ErrMappingNotFound)
}

func TestMappingRepo_ConcurrentInsertSameReference(t *testing.T) {
	repo := NewMappingRepo(setupTestDB(t))
	ctx := context.Background()

	const n = 10
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)
	for i := range n {
		wg.Go(func() {
			_, err := repo.Insert(ctx, "111", fmt.Sprintf("entry-%d", i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, domain.ErrDuplicateReference):
				duplicates++
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, duplicates)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMappingRepo_Count(t *testing.T) {
	repo := NewMappingRepo(setupTestDB(t))
	ctx := context.Background()

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	for i := range 3 {
		_, err := repo.Insert(ctx, fmt.Sprintf("ref-%d", i), fmt.Sprintf("entry-%d", i))
		require.NoError(t, err)
	}

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestMetricsTracer_RecordsQueries(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	m := metrics.NewStoreMetrics(prometheus.NewRegistry())
	pool, err := Connect(ctx, testDatabaseURL, NewMetricsTracer(m))
	require.NoError(t, err)
	defer pool.Close()

	repo := NewMappingRepo(pool)
	_, err = repo.FindByReference(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrMappingNotFound)

	assert.GreaterOrEqual(t, testutil.CollectAndCount(m.QueryDuration, "reactboard_db_query_duration_seconds"), 1)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.QueryErrors.WithLabelValues("select board_mappings")))
}
