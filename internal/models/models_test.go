package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservation_ValidRange(t *testing.T) {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("EndAfterStart", func(t *testing.T) {
		r := &Reservation{StartDate: start, EndDate: start.AddDate(0, 0, 1)}
		assert.True(t, r.ValidRange())
	})

	t.Run("EqualDates", func(t *testing.T) {
		r := &Reservation{StartDate: start, EndDate: start}
		assert.False(t, r.ValidRange())
	})

	t.Run("EndBeforeStart", func(t *testing.T) {
		r := &Reservation{StartDate: start, EndDate: start.AddDate(0, 0, -3)}
		assert.False(t, r.ValidRange())
	})
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"PENDING", "APPROVED", "CANCELLED"} {
		got, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, s, got.String())
	}

	_, err := ParseStatus("pending")
	assert.Error(t, err)
	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestSearchFilter_Normalize(t *testing.T) {
	f := SearchFilter{}.Normalize(0, 0)
	assert.Equal(t, DefaultPageSize, f.PageSize)
	assert.Equal(t, 0, f.PageNumber)
	assert.Equal(t, 0, f.Offset())

	f = SearchFilter{PageSize: 500, PageNumber: -2}.Normalize(10, 50)
	assert.Equal(t, 50, f.PageSize)
	assert.Equal(t, 0, f.PageNumber)

	f = SearchFilter{PageSize: 5, PageNumber: 3}.Normalize(10, 50)
	assert.Equal(t, 15, f.Offset())
}

func TestDate(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)
	in := time.Date(2026, 3, 5, 23, 30, 0, 0, msk)
	got := Date(in)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), got)

	parsed, err := ParseDate("2026-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), parsed)

	_, err = ParseDate("15.01.2026")
	assert.Error(t, err)
}
