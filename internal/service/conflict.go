package service

import (
	"context"
	"time"

	"roomreserve/internal/domain"

	"github.com/rs/zerolog"
)

// Overlaps reports whether [s1, e1) and [s2, e2) share at least one day.
// Ranges that only touch at the boundary do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// ConflictDetector looks for APPROVED reservations that overlap a range.
type ConflictDetector struct {
	store  domain.ReservationStore
	logger *zerolog.Logger
}

func NewConflictDetector(store domain.ReservationStore, logger *zerolog.Logger) *ConflictDetector {
	return &ConflictDetector{store: store, logger: logger}
}

// using returns a detector reading through the given (transactional) store.
func (d *ConflictDetector) using(store domain.ReservationStore) *ConflictDetector {
	return &ConflictDetector{store: store, logger: d.logger}
}

// ConflictingIDs returns the ids of other APPROVED reservations for the room
// that overlap [start, end).
func (d *ConflictDetector) ConflictingIDs(ctx context.Context, roomID int64, start, end time.Time, excludeID int64) ([]int64, error) {
	ids, err := d.store.FindConflictingApprovedIDs(ctx, roomID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		d.logger.Info().
			Int64("room_id", roomID).
			Int64("exclude_id", excludeID).
			Ints64("conflicting_ids", ids).
			Msg("reservation conflict detected")
	}
	return ids, nil
}

func (d *ConflictDetector) HasConflict(ctx context.Context, roomID int64, start, end time.Time, excludeID int64) (bool, error) {
	ids, err := d.ConflictingIDs(ctx, roomID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}
