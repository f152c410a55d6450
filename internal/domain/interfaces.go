package domain

import (
	"context"
	"time"

	"roomreserve/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ReservationStore is the persistence boundary of the lifecycle manager.
type ReservationStore interface {
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	// SaveReservation inserts when ID is zero and assigns it, otherwise replaces the row.
	SaveReservation(ctx context.Context, r *models.Reservation) error
	SetStatus(ctx context.Context, id int64, status models.Status) error
	// FindConflictingApprovedIDs returns ids of APPROVED reservations in the room
	// whose [start, end) range overlaps the given one, excluding excludeID.
	FindConflictingApprovedIDs(ctx context.Context, roomID int64, start, end time.Time, excludeID int64) ([]int64, error)
	ListReservations(ctx context.Context, filter models.SearchFilter) ([]*models.Reservation, error)
	// ListReservationsBetween returns reservations of any status overlapping
	// [from, to); roomID 0 matches every room.
	ListReservationsBetween(ctx context.Context, roomID int64, from, to time.Time) ([]*models.Reservation, error)
	// InTx runs fn against a store bound to a single transaction.
	InTx(ctx context.Context, fn func(tx ReservationStore) error) error
}

// RoomLocker serializes check-then-act sections per room.
type RoomLocker interface {
	Lock(ctx context.Context, roomID int64) (unlock func(), err error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type ReservationService interface {
	Create(ctx context.Context, r *models.Reservation) (*models.Reservation, error)
	Update(ctx context.Context, id int64, r *models.Reservation) (*models.Reservation, error)
	Cancel(ctx context.Context, id int64) error
	Approve(ctx context.Context, id int64) (*models.Reservation, error)
	Get(ctx context.Context, id int64) (*models.Reservation, error)
	List(ctx context.Context, filter models.SearchFilter) ([]*models.Reservation, error)
	CheckAvailability(ctx context.Context, roomID int64, start, end time.Time) (bool, error)
	Schedule(ctx context.Context, roomID int64, from, to time.Time) ([]*models.Reservation, error)
}
