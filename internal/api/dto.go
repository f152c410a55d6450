package api

import (
	"fmt"
	"time"

	"roomreserve/internal/domain"
	"roomreserve/internal/models"
)

// ReservationDTO is the wire form of a reservation.
type ReservationDTO struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	RoomID    int64  `json:"roomId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Status    string `json:"status,omitempty"`
}

// ReservationRequest is the body of create and update calls. The id is
// assigned by the server and must be absent.
type ReservationRequest struct {
	ID        *int64 `json:"id" validate:"isdefault"`
	UserID    *int64 `json:"userId" validate:"required"`
	RoomID    *int64 `json:"roomId" validate:"required"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
	Status    string `json:"status"`
}

type AvailabilityRequest struct {
	RoomID    *int64 `json:"roomId" validate:"required"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

type AvailabilityResponse struct {
	RoomID    int64  `json:"roomId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Available bool   `json:"available"`
}

type ErrorResponse struct {
	Message         string    `json:"message"`
	DetailedMessage string    `json:"detailedMessage"`
	ErrorTime       time.Time `json:"errorTime"`
}

func toDTO(r *models.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:        r.ID,
		UserID:    r.UserID,
		RoomID:    r.RoomID,
		StartDate: r.StartDate.Format(models.DateLayout),
		EndDate:   r.EndDate.Format(models.DateLayout),
		Status:    string(r.Status),
	}
}

func toDTOs(list []*models.Reservation) []ReservationDTO {
	out := make([]ReservationDTO, 0, len(list))
	for _, r := range list {
		out = append(out, toDTO(r))
	}
	return out
}

// toModel expects a request that already passed validation.
func (req ReservationRequest) toModel() (*models.Reservation, error) {
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	r := &models.Reservation{
		UserID:    *req.UserID,
		RoomID:    *req.RoomID,
		StartDate: start,
		EndDate:   end,
	}
	if req.Status != "" {
		if r.Status, err = models.ParseStatus(req.Status); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}
	return r, nil
}

func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := models.ParseDate(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", domain.ErrInvalidInput, startStr)
	}
	end, err := models.ParseDate(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", domain.ErrInvalidInput, endStr)
	}
	return start, end, nil
}
