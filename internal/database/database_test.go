package database

import (
	"context"
	"path/filepath"
	"testing"

	"roomreserve/internal/domain"
	"roomreserve/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
}

func TestNewDB_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	logger := zerolog.Nop()
	ctx := context.Background()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	r := newReservation(1, 1, "2026-01-10", "2026-01-15", models.StatusPending)
	require.NoError(t, db.SaveReservation(ctx, r))
	require.NoError(t, db.Close())

	db, err = NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.RoomID, got.RoomID)
}

func TestDB_Ping(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.PingContext(context.Background()))
}

func TestDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on", dsn(":memory:"))
	assert.Equal(t, "file:x.db?cache=shared&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on", dsn("file:x.db?cache=shared"))
}

func TestInTx(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		var id int64
		err := db.InTx(ctx, func(tx domain.ReservationStore) error {
			r := newReservation(1, 1, "2026-02-01", "2026-02-03", models.StatusPending)
			if err := tx.SaveReservation(ctx, r); err != nil {
				return err
			}
			id = r.ID
			return nil
		})
		require.NoError(t, err)

		_, err = db.GetReservation(ctx, id)
		assert.NoError(t, err)
	})

	t.Run("RollbackOnError", func(t *testing.T) {
		var id int64
		err := db.InTx(ctx, func(tx domain.ReservationStore) error {
			r := newReservation(1, 2, "2026-02-01", "2026-02-03", models.StatusPending)
			if err := tx.SaveReservation(ctx, r); err != nil {
				return err
			}
			id = r.ID
			return domain.ErrInvalidState
		})
		require.ErrorIs(t, err, domain.ErrInvalidState)

		_, err = db.GetReservation(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("NestedReusesTransaction", func(t *testing.T) {
		err := db.InTx(ctx, func(tx domain.ReservationStore) error {
			return tx.InTx(ctx, func(inner domain.ReservationStore) error {
				assert.Same(t, tx, inner)
				return nil
			})
		})
		assert.NoError(t, err)
	})
}
