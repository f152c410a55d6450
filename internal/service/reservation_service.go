package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roomreserve/internal/domain"
	"roomreserve/internal/events"
	"roomreserve/internal/metrics"
	"roomreserve/internal/models"
	"roomreserve/internal/repository"

	"github.com/rs/zerolog"
)

// maxLockAttempts bounds how often Approve re-locks after the reservation
// moved to another room between the lookup and the transaction.
const maxLockAttempts = 3

var errRoomChanged = errors.New("reservation room changed while locking")

type ReservationService struct {
	store           domain.ReservationStore
	detector        *ConflictDetector
	locker          domain.RoomLocker
	eventBus        domain.EventPublisher
	defaultPageSize int
	maxPageSize     int
	logger          *zerolog.Logger
}

func NewReservationService(
	store domain.ReservationStore,
	locker domain.RoomLocker,
	eventBus domain.EventPublisher,
	defaultPageSize, maxPageSize int,
	logger *zerolog.Logger,
) *ReservationService {
	if locker == nil {
		locker = repository.NewMemoryRoomLocker()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ReservationService{
		store:           store,
		detector:        NewConflictDetector(store, logger),
		locker:          locker,
		eventBus:        eventBus,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		logger:          logger,
	}
}

func (s *ReservationService) Get(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.store.GetReservation(ctx, id)
}

func (s *ReservationService) List(ctx context.Context, filter models.SearchFilter) ([]*models.Reservation, error) {
	return s.store.ListReservations(ctx, filter.Normalize(s.defaultPageSize, s.maxPageSize))
}

func (s *ReservationService) Create(ctx context.Context, r *models.Reservation) (*models.Reservation, error) {
	if r.Status != "" {
		return nil, fmt.Errorf("%w: status should be empty", domain.ErrInvalidInput)
	}
	status, err := Transition("", OpCreate)
	if err != nil {
		return nil, err
	}

	toSave := &models.Reservation{
		UserID:    r.UserID,
		RoomID:    r.RoomID,
		StartDate: models.Date(r.StartDate),
		EndDate:   models.Date(r.EndDate),
		Status:    status,
	}
	if err := validateRange(toSave.StartDate, toSave.EndDate); err != nil {
		return nil, err
	}

	if err := s.store.SaveReservation(ctx, toSave); err != nil {
		metrics.IncTransition(string(OpCreate), metrics.ResultError)
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	metrics.IncTransition(string(OpCreate), metrics.ResultOK)
	s.publishEvent(events.EventReservationCreated, toSave)
	s.logger.Info().Int64("reservation_id", toSave.ID).Int64("room_id", toSave.RoomID).Msg("reservation created")
	return toSave, nil
}

func (s *ReservationService) Update(ctx context.Context, id int64, r *models.Reservation) (*models.Reservation, error) {
	start, end := models.Date(r.StartDate), models.Date(r.EndDate)

	var updated *models.Reservation
	err := s.store.InTx(ctx, func(tx domain.ReservationStore) error {
		current, err := tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		next, err := Transition(current.Status, OpUpdate)
		if err != nil {
			return err
		}
		if err := validateRange(start, end); err != nil {
			return err
		}

		current.UserID = r.UserID
		current.RoomID = r.RoomID
		current.StartDate = start
		current.EndDate = end
		current.Status = next
		if err := tx.SaveReservation(ctx, current); err != nil {
			return fmt.Errorf("update reservation %d: %w", id, err)
		}
		updated = current
		return nil
	})
	if err != nil {
		metrics.IncTransition(string(OpUpdate), resultOf(err))
		return nil, err
	}

	metrics.IncTransition(string(OpUpdate), metrics.ResultOK)
	s.publishEvent(events.EventReservationUpdated, updated)
	return updated, nil
}

func (s *ReservationService) Cancel(ctx context.Context, id int64) error {
	var cancelled *models.Reservation
	err := s.store.InTx(ctx, func(tx domain.ReservationStore) error {
		current, err := tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		next, err := Transition(current.Status, OpCancel)
		if err != nil {
			return err
		}
		if err := tx.SetStatus(ctx, id, next); err != nil {
			return fmt.Errorf("cancel reservation %d: %w", id, err)
		}
		current.Status = next
		cancelled = current
		return nil
	})
	if err != nil {
		metrics.IncTransition(string(OpCancel), resultOf(err))
		return err
	}

	metrics.IncTransition(string(OpCancel), metrics.ResultOK)
	s.publishEvent(events.EventReservationCancelled, cancelled)
	s.logger.Info().Int64("reservation_id", id).Msg("reservation cancelled")
	return nil
}

// Approve moves a PENDING reservation to APPROVED unless another APPROVED
// reservation for the same room overlaps it. The room lock and the store
// transaction both span the read, the conflict check and the write.
func (s *ReservationService) Approve(ctx context.Context, id int64) (*models.Reservation, error) {
	current, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	roomID := current.RoomID

	for attempt := 1; ; attempt++ {
		approved, err := s.approveLocked(ctx, id, roomID)
		var moved *roomMovedError
		if errors.As(err, &moved) && attempt < maxLockAttempts {
			roomID = moved.roomID
			continue
		}
		if err != nil {
			metrics.IncTransition(string(OpApprove), resultOf(err))
			return nil, err
		}

		metrics.IncTransition(string(OpApprove), metrics.ResultOK)
		s.publishEvent(events.EventReservationApproved, approved)
		s.logger.Info().Int64("reservation_id", id).Int64("room_id", approved.RoomID).Msg("reservation approved")
		return approved, nil
	}
}

type roomMovedError struct {
	roomID int64
}

func (e *roomMovedError) Error() string { return errRoomChanged.Error() }

func (e *roomMovedError) Unwrap() error { return errRoomChanged }

func (s *ReservationService) approveLocked(ctx context.Context, id, roomID int64) (*models.Reservation, error) {
	unlock, err := s.locker.Lock(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("lock room %d: %w", roomID, err)
	}
	defer unlock()

	var approved *models.Reservation
	err = s.store.InTx(ctx, func(tx domain.ReservationStore) error {
		r, err := tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if r.RoomID != roomID {
			return &roomMovedError{roomID: r.RoomID}
		}
		next, err := Transition(r.Status, OpApprove)
		if err != nil {
			return err
		}

		ids, err := s.detector.using(tx).ConflictingIDs(ctx, r.RoomID, r.StartDate, r.EndDate, r.ID)
		if err != nil {
			return fmt.Errorf("check conflicts for reservation %d: %w", id, err)
		}
		if len(ids) > 0 {
			metrics.IncConflict()
			return fmt.Errorf("%w: cannot approve reservation %d: conflict with %v", domain.ErrInvalidState, id, ids)
		}

		r.Status = next
		if err := tx.SaveReservation(ctx, r); err != nil {
			return fmt.Errorf("approve reservation %d: %w", id, err)
		}
		approved = r
		return nil
	})
	return approved, err
}

// CheckAvailability reports whether no APPROVED reservation occupies the room
// for any day of [start, end).
func (s *ReservationService) CheckAvailability(ctx context.Context, roomID int64, start, end time.Time) (bool, error) {
	start, end = models.Date(start), models.Date(end)
	if err := validateRange(start, end); err != nil {
		return false, err
	}
	conflict, err := s.detector.HasConflict(ctx, roomID, start, end, 0)
	if err != nil {
		return false, fmt.Errorf("check availability: %w", err)
	}
	return !conflict, nil
}

func (s *ReservationService) Schedule(ctx context.Context, roomID int64, from, to time.Time) ([]*models.Reservation, error) {
	from, to = models.Date(from), models.Date(to)
	if !to.After(from) {
		return nil, fmt.Errorf("%w: from date must be earlier than to date", domain.ErrInvalidInput)
	}
	list, err := s.store.ListReservationsBetween(ctx, roomID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	return list, nil
}

func validateRange(start, end time.Time) error {
	if !end.After(start) {
		return fmt.Errorf("%w: start date must be at least 1 day earlier than end date", domain.ErrInvalidInput)
	}
	return nil
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidState):
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}

func (s *ReservationService) publishEvent(eventType string, r *models.Reservation) {
	if s.eventBus == nil {
		return
	}

	payload := events.ReservationEventPayload{
		ReservationID: r.ID,
		UserID:        r.UserID,
		RoomID:        r.RoomID,
		StartDate:     r.StartDate.Format(models.DateLayout),
		EndDate:       r.EndDate.Format(models.DateLayout),
		Status:        string(r.Status),
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("reservation_id", r.ID).Msg("publish event error")
	}
}
