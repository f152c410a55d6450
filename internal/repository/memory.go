package repository

import (
	"context"
	"sync"
)

// MemoryRoomLocker is an in-process keyed mutex. Waiting honours ctx.
type MemoryRoomLocker struct {
	mu    sync.Mutex
	rooms map[int64]*roomLock
}

type roomLock struct {
	ch   chan struct{}
	refs int
}

func NewMemoryRoomLocker() *MemoryRoomLocker {
	return &MemoryRoomLocker{rooms: make(map[int64]*roomLock)}
}

func (l *MemoryRoomLocker) Lock(ctx context.Context, roomID int64) (func(), error) {
	l.mu.Lock()
	rl, ok := l.rooms[roomID]
	if !ok {
		rl = &roomLock{ch: make(chan struct{}, 1)}
		l.rooms[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	select {
	case rl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(roomID, rl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-rl.ch
			l.release(roomID, rl)
		})
	}, nil
}

func (l *MemoryRoomLocker) release(roomID int64, rl *roomLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rl.refs--
	if rl.refs == 0 {
		delete(l.rooms, roomID)
	}
}

// size returns the number of rooms with holders or waiters.
func (l *MemoryRoomLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rooms)
}
