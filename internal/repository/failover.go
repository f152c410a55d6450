package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"roomreserve/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverRoomLocker prefers the primary locker and falls back to the
// secondary one while the primary is failing.
type FailoverRoomLocker struct {
	primary   domain.RoomLocker
	fallback  domain.RoomLocker
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverRoomLocker(primary, fallback domain.RoomLocker, logger *zerolog.Logger) *FailoverRoomLocker {
	return &FailoverRoomLocker{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *FailoverRoomLocker) Lock(ctx context.Context, roomID int64) (func(), error) {
	if r.shouldTryPrimary() {
		unlock, err := r.primary.Lock(ctx, roomID)
		if err == nil {
			r.isDown.Store(false)
			return unlock, nil
		}
		// Contention and caller cancellation are not outages.
		if errors.Is(err, ErrLockTimeout) || ctx.Err() != nil {
			return nil, err
		}
		r.logger.Error().Err(err).Int64("room_id", roomID).Msg("primary room locker failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck.Store(r.now().UnixNano())
	}

	return r.fallback.Lock(ctx, roomID)
}

func (r *FailoverRoomLocker) shouldTryPrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	// Try to recover after recoveryInterval
	last := time.Unix(0, r.lastCheck.Load())
	if r.now().Sub(last) > recoveryInterval {
		r.lastCheck.Store(r.now().UnixNano())
		return true
	}
	return false
}
