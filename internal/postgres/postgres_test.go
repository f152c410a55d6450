package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"roomreserve/internal/config"
	"roomreserve/internal/domain"
	"roomreserve/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	exclusion := fmt.Errorf("update: %w", &pgconn.PgError{Code: codeExclusionViolation})
	assert.ErrorIs(t, mapError(exclusion), domain.ErrInvalidState)

	serialization := &pgconn.PgError{Code: codeSerializationFailure}
	assert.ErrorIs(t, mapError(serialization), domain.ErrInvalidState)

	unique := &pgconn.PgError{Code: "23505"}
	assert.Same(t, error(unique), mapError(unique))

	plain := errors.New("boom")
	assert.Equal(t, plain, mapError(plain))
}

// setupStore connects to TEST_DATABASE_URL, applies migrations and truncates
// the reservations table.
func setupStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	require.NoError(t, Migrate("file://../../migrations/postgres", dsn))

	logger := zerolog.Nop()
	ctx := context.Background()
	store, err := Open(ctx, config.PostgresConfig{URL: dsn}, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.pool.Exec(ctx, `TRUNCATE reservations RESTART IDENTITY`)
	require.NoError(t, err)
	return store
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestStore_CRUD(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	r := &models.Reservation{
		UserID: 1, RoomID: 2,
		StartDate: mustDate(t, "2026-01-10"),
		EndDate:   mustDate(t, "2026-01-15"),
		Status:    models.StatusPending,
	}
	require.NoError(t, store.SaveReservation(ctx, r))
	require.NotZero(t, r.ID)

	got, err := store.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, got.StartDate.Equal(r.StartDate))
	assert.True(t, got.EndDate.Equal(r.EndDate))
	assert.Equal(t, models.StatusPending, got.Status)

	require.NoError(t, store.SetStatus(ctx, r.ID, models.StatusApproved))

	ids, err := store.FindConflictingApprovedIDs(ctx, 2, mustDate(t, "2026-01-14"), mustDate(t, "2026-01-20"), 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{r.ID}, ids)

	ids, err = store.FindConflictingApprovedIDs(ctx, 2, mustDate(t, "2026-01-15"), mustDate(t, "2026-01-20"), 0)
	require.NoError(t, err)
	assert.Empty(t, ids)

	list, err := store.ListReservations(ctx, models.SearchFilter{RoomID: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = store.GetReservation(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.SetStatus(ctx, 9999, models.StatusCancelled), domain.ErrNotFound)
}

func TestStore_ExclusionConstraint(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first := &models.Reservation{
		UserID: 1, RoomID: 1,
		StartDate: mustDate(t, "2026-01-10"), EndDate: mustDate(t, "2026-01-15"),
		Status: models.StatusApproved,
	}
	require.NoError(t, store.SaveReservation(ctx, first))

	second := &models.Reservation{
		UserID: 2, RoomID: 1,
		StartDate: mustDate(t, "2026-01-14"), EndDate: mustDate(t, "2026-01-20"),
		Status: models.StatusPending,
	}
	require.NoError(t, store.SaveReservation(ctx, second))

	err := store.SetStatus(ctx, second.ID, models.StatusApproved)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	adjacent := &models.Reservation{
		UserID: 3, RoomID: 1,
		StartDate: mustDate(t, "2026-01-15"), EndDate: mustDate(t, "2026-01-20"),
		Status: models.StatusApproved,
	}
	assert.NoError(t, store.SaveReservation(ctx, adjacent))
}

func TestStore_ConcurrentApproveInTx(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	const numGoroutines = 8
	ids := make([]int64, numGoroutines)
	for i := range ids {
		r := &models.Reservation{
			UserID: int64(i), RoomID: 1,
			StartDate: mustDate(t, "2026-06-01"), EndDate: mustDate(t, "2026-06-10"),
			Status: models.StatusPending,
		}
		require.NoError(t, store.SaveReservation(ctx, r))
		ids[i] = r.ID
	}

	results := make(chan error, numGoroutines)
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for _, id := range ids {
		go func(id int64) {
			defer wg.Done()
			results <- store.InTx(ctx, func(tx domain.ReservationStore) error {
				r, err := tx.GetReservation(ctx, id)
				if err != nil {
					return err
				}
				conflicts, err := tx.FindConflictingApprovedIDs(ctx, r.RoomID, r.StartDate, r.EndDate, r.ID)
				if err != nil {
					return err
				}
				if len(conflicts) > 0 {
					return domain.ErrInvalidState
				}
				return tx.SetStatus(ctx, id, models.StatusApproved)
			})
		}(id)
	}
	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
		}
	}
	// serialization failures may reject every writer but never admit two
	assert.LessOrEqual(t, successCount, 1)

	var approved int
	require.NoError(t, store.pool.QueryRow(ctx,
		`SELECT count(*) FROM reservations WHERE status = 'APPROVED'`).Scan(&approved))
	assert.Equal(t, successCount, approved)
}
