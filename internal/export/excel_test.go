package export

import (
	"bytes"
	"testing"
	"time"

	"roomreserve/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func d(s string) time.Time {
	t, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func sample() []*models.Reservation {
	return []*models.Reservation{
		{ID: 1, UserID: 10, RoomID: 2, StartDate: d("2026-01-10"), EndDate: d("2026-01-12"), Status: models.StatusApproved},
		{ID: 2, UserID: 11, RoomID: 1, StartDate: d("2026-01-09"), EndDate: d("2026-01-11"), Status: models.StatusPending},
		{ID: 3, UserID: 12, RoomID: 2, StartDate: d("2026-01-11"), EndDate: d("2026-01-13"), Status: models.StatusCancelled},
	}
}

func TestSchedule(t *testing.T) {
	f, err := Schedule(sample(), d("2026-01-10"), d("2026-01-13"))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ScheduleSheet, ListSheet}, f.GetSheetList())

	// dates 10, 11, 12 in columns B..D
	v, err := f.GetCellValue(ScheduleSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "10.01", v)
	v, _ = f.GetCellValue(ScheduleSheet, "D2")
	assert.Equal(t, "12.01", v)
	v, _ = f.GetCellValue(ScheduleSheet, "E2")
	assert.Empty(t, v)

	// rooms sorted: room 1 on row 3, room 2 on row 4
	v, _ = f.GetCellValue(ScheduleSheet, "A3")
	assert.Equal(t, "Room 1", v)
	v, _ = f.GetCellValue(ScheduleSheet, "A4")
	assert.Equal(t, "Room 2", v)

	// reservation 2 starts before the window and ends on the 11th (exclusive)
	v, _ = f.GetCellValue(ScheduleSheet, "B3")
	assert.Equal(t, "#2 user 11 PENDING", v)
	v, _ = f.GetCellValue(ScheduleSheet, "C3")
	assert.Empty(t, v)

	// 11th in room 2 holds both the approved and the cancelled reservation
	v, _ = f.GetCellValue(ScheduleSheet, "C4")
	assert.Equal(t, "#1 user 10 APPROVED\n#3 user 12 CANCELLED", v)
	v, _ = f.GetCellValue(ScheduleSheet, "D4")
	assert.Equal(t, "#3 user 12 CANCELLED", v)

	rows, err := f.GetRows(ListSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"ID", "User", "Room", "Start", "End", "Status"}, rows[0])
	assert.Equal(t, []string{"1", "10", "2", "2026-01-10", "2026-01-12", "APPROVED"}, rows[1])
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sample(), d("2026-01-10"), d("2026-01-13")))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), ScheduleSheet)
}

func TestSchedule_Empty(t *testing.T) {
	f, err := Schedule(nil, d("2026-01-10"), d("2026-01-11"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ListSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDominantStatus(t *testing.T) {
	assert.Equal(t, models.StatusApproved, dominantStatus([]*models.Reservation{
		{Status: models.StatusCancelled}, {Status: models.StatusApproved}, {Status: models.StatusPending},
	}))
	assert.Equal(t, models.StatusPending, dominantStatus([]*models.Reservation{
		{Status: models.StatusCancelled}, {Status: models.StatusPending},
	}))
	assert.Equal(t, models.StatusCancelled, dominantStatus([]*models.Reservation{{Status: models.StatusCancelled}}))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "reservations_room_3_2026-01-10_to_2026-01-13.xlsx", FileName(3, d("2026-01-10"), d("2026-01-13")))
	assert.Equal(t, "reservations_all_2026-01-10_to_2026-01-13.xlsx", FileName(0, d("2026-01-10"), d("2026-01-13")))
}
