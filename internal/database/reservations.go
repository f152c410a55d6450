package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roomreserve/internal/domain"
	"roomreserve/internal/models"
)

const reservationColumns = `id, user_id, room_id, start_date, end_date, status, created_at, updated_at`

type reservations struct {
	q queryer
}

func (s reservations) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	r, err := scanReservation(s.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: reservation with id %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

func (s reservations) SaveReservation(ctx context.Context, r *models.Reservation) error {
	now := time.Now().UTC()
	if r.ID == 0 {
		query := `INSERT INTO reservations (user_id, room_id, start_date, end_date, status, created_at, updated_at)
                  VALUES (?, ?, ?, ?, ?, ?, ?)`
		result, err := s.q.ExecContext(ctx, query,
			r.UserID, r.RoomID,
			r.StartDate.Format(models.DateLayout), r.EndDate.Format(models.DateLayout),
			r.Status, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		r.ID = id
		r.CreatedAt = now
		r.UpdatedAt = now
		return nil
	}

	query := `UPDATE reservations
              SET user_id = ?, room_id = ?, start_date = ?, end_date = ?, status = ?, updated_at = ?
              WHERE id = ?`
	result, err := s.q.ExecContext(ctx, query,
		r.UserID, r.RoomID,
		r.StartDate.Format(models.DateLayout), r.EndDate.Format(models.DateLayout),
		r.Status, now, r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	if err := expectOneRow(result, r.ID); err != nil {
		return err
	}
	r.UpdatedAt = now
	return nil
}

func (s reservations) SetStatus(ctx context.Context, id int64, status models.Status) error {
	query := `UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?`
	result, err := s.q.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	return expectOneRow(result, id)
}

// FindConflictingApprovedIDs relies on idx_reservations_room_status_dates.
// Dates are stored as YYYY-MM-DD, so text comparison is date comparison.
func (s reservations) FindConflictingApprovedIDs(
	ctx context.Context, roomID int64, start, end time.Time, excludeID int64,
) ([]int64, error) {
	query := `SELECT id FROM reservations
              WHERE room_id = ? AND status = ? AND id <> ?
                AND start_date < ? AND end_date > ?
              ORDER BY id`
	rows, err := s.q.QueryContext(ctx, query,
		roomID, models.StatusApproved, excludeID,
		end.Format(models.DateLayout), start.Format(models.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find conflicting reservations: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan reservation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s reservations) ListReservations(ctx context.Context, filter models.SearchFilter) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE (? = 0 OR room_id = ?) AND (? = 0 OR user_id = ?)
              ORDER BY id
              LIMIT ? OFFSET ?`
	rows, err := s.q.QueryContext(ctx, query,
		filter.RoomID, filter.RoomID, filter.UserID, filter.UserID,
		filter.PageSize, filter.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return collect(rows)
}

// ListReservationsBetween returns reservations of any status that overlap
// [from, to); roomID 0 means every room.
func (s reservations) ListReservationsBetween(ctx context.Context, roomID int64, from, to time.Time) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE (? = 0 OR room_id = ?) AND start_date < ? AND end_date > ?
              ORDER BY room_id, start_date, id`
	rows, err := s.q.QueryContext(ctx, query,
		roomID, roomID, to.Format(models.DateLayout), from.Format(models.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations between dates: %w", err)
	}
	return collect(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var r models.Reservation
	var startStr, endStr, status string
	err := row.Scan(&r.ID, &r.UserID, &r.RoomID, &startStr, &endStr, &status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if r.StartDate, err = models.ParseDate(startStr); err != nil {
		return nil, fmt.Errorf("failed to parse start date %s: %w", startStr, err)
	}
	if r.EndDate, err = models.ParseDate(endStr); err != nil {
		return nil, fmt.Errorf("failed to parse end date %s: %w", endStr, err)
	}
	if r.Status, err = models.ParseStatus(status); err != nil {
		return nil, err
	}
	return &r, nil
}

func collect(rows *sql.Rows) ([]*models.Reservation, error) {
	defer rows.Close()

	result := make([]*models.Reservation, 0)
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func expectOneRow(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: reservation with id %d", domain.ErrNotFound, id)
	}
	return nil
}
