package models

import "time"

type Reservation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	RoomID    int64     `json:"roomId"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ValidRange reports whether the end date is strictly after the start date.
func (r *Reservation) ValidRange() bool {
	return r.EndDate.After(r.StartDate)
}

// SearchFilter narrows ListReservations. Zero RoomID/UserID means "any".
type SearchFilter struct {
	RoomID     int64
	UserID     int64
	PageSize   int
	PageNumber int
}

func (f SearchFilter) Offset() int {
	return f.PageSize * f.PageNumber
}

// Normalize applies page defaults and clamps the page size.
func (f SearchFilter) Normalize(defaultSize, maxSize int) SearchFilter {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if maxSize <= 0 {
		maxSize = MaxPageSize
	}
	if f.PageSize <= 0 {
		f.PageSize = defaultSize
	}
	if f.PageSize > maxSize {
		f.PageSize = maxSize
	}
	if f.PageNumber < 0 {
		f.PageNumber = 0
	}
	return f
}

// Date truncates t to a calendar date at UTC midnight.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
