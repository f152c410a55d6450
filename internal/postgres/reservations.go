package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roomreserve/internal/domain"
	"roomreserve/internal/models"

	"github.com/jackc/pgx/v5"
)

const reservationColumns = `id, user_id, room_id, start_date, end_date, status, created_at, updated_at`

type reservations struct {
	q queryer
}

func (s reservations) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	row := s.q.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	r, err := scanReservation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: reservation with id %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

func (s reservations) SaveReservation(ctx context.Context, r *models.Reservation) error {
	if r.ID == 0 {
		err := s.q.QueryRow(ctx, `
			INSERT INTO reservations (user_id, room_id, start_date, end_date, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at`,
			r.UserID, r.RoomID, r.StartDate, r.EndDate, string(r.Status),
		).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return mapError(fmt.Errorf("create reservation: %w", err))
		}
		return nil
	}

	err := s.q.QueryRow(ctx, `
		UPDATE reservations
		SET user_id = $1, room_id = $2, start_date = $3, end_date = $4, status = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at`,
		r.UserID, r.RoomID, r.StartDate, r.EndDate, string(r.Status), r.ID,
	).Scan(&r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: reservation with id %d", domain.ErrNotFound, r.ID)
	}
	if err != nil {
		return mapError(fmt.Errorf("update reservation: %w", err))
	}
	return nil
}

func (s reservations) SetStatus(ctx context.Context, id int64, status models.Status) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE reservations SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return mapError(fmt.Errorf("update reservation status: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: reservation with id %d", domain.ErrNotFound, id)
	}
	return nil
}

func (s reservations) FindConflictingApprovedIDs(
	ctx context.Context, roomID int64, start, end time.Time, excludeID int64,
) ([]int64, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id FROM reservations
		WHERE room_id = $1 AND status = $2 AND id <> $3
		  AND start_date < $4 AND end_date > $5
		ORDER BY id`,
		roomID, string(models.StatusApproved), excludeID, end, start,
	)
	if err != nil {
		return nil, fmt.Errorf("find conflicting reservations: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan conflicting reservations: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}

func (s reservations) ListReservations(ctx context.Context, filter models.SearchFilter) ([]*models.Reservation, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE ($1::bigint = 0 OR room_id = $1) AND ($2::bigint = 0 OR user_id = $2)
		ORDER BY id
		LIMIT $3 OFFSET $4`,
		filter.RoomID, filter.UserID, filter.PageSize, filter.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return collect(rows)
}

func (s reservations) ListReservationsBetween(ctx context.Context, roomID int64, from, to time.Time) ([]*models.Reservation, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE ($1::bigint = 0 OR room_id = $1) AND start_date < $2 AND end_date > $3
		ORDER BY room_id, start_date, id`,
		roomID, to, from,
	)
	if err != nil {
		return nil, fmt.Errorf("list reservations between dates: %w", err)
	}
	return collect(rows)
}

func scanReservation(row pgx.Row) (*models.Reservation, error) {
	var r models.Reservation
	var status string
	if err := row.Scan(&r.ID, &r.UserID, &r.RoomID, &r.StartDate, &r.EndDate, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.StartDate = models.Date(r.StartDate)
	r.EndDate = models.Date(r.EndDate)

	var err error
	if r.Status, err = models.ParseStatus(status); err != nil {
		return nil, err
	}
	return &r, nil
}

func collect(rows pgx.Rows) ([]*models.Reservation, error) {
	defer rows.Close()

	result := make([]*models.Reservation, 0)
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
