// Package export renders reservation schedules as XLSX workbooks.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"roomreserve/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	ScheduleSheet = "Schedule"
	ListSheet     = "Reservations"

	cellDateFormat = "02.01"
)

var statusFill = map[models.Status]string{
	models.StatusApproved:  "#C6EFCE",
	models.StatusPending:   "#FFEB9C",
	models.StatusCancelled: "#F2F2F2",
}

// Schedule builds a workbook with a room-by-day grid for [from, to) and a
// flat list of the given reservations.
func Schedule(reservations []*models.Reservation, from, to time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	grid, err := f.NewSheet(ScheduleSheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create sheet %s: %w", ScheduleSheet, err)
	}
	if _, err := f.NewSheet(ListSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create sheet %s: %w", ListSheet, err)
	}
	f.SetActiveSheet(grid)

	if err := writeGrid(f, reservations, from, to); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeList(f, reservations); err != nil {
		_ = f.Close()
		return nil, err
	}

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

// Write renders the schedule straight into w.
func Write(w io.Writer, reservations []*models.Reservation, from, to time.Time) error {
	f, err := Schedule(reservations, from, to)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// FileName returns the attachment name for a schedule export.
func FileName(roomID int64, from, to time.Time) string {
	scope := "all"
	if roomID != 0 {
		scope = fmt.Sprintf("room_%d", roomID)
	}
	return fmt.Sprintf("reservations_%s_%s_to_%s.xlsx",
		scope, from.Format(models.DateLayout), to.Format(models.DateLayout))
}

func writeGrid(f *excelize.File, reservations []*models.Reservation, from, to time.Time) error {
	_ = f.SetCellValue(ScheduleSheet, "A1", fmt.Sprintf("Period: %s - %s",
		from.Format(models.DateLayout), to.Format(models.DateLayout)))

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	// Заголовки - даты
	dateCols := make(map[string]int)
	col := 2
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(ScheduleSheet, cell, d.Format(cellDateFormat))
		_ = f.SetCellStyle(ScheduleSheet, cell, cell, headerStyle)
		dateCols[d.Format(models.DateLayout)] = col
		col++
	}

	rooms := roomIDs(reservations)
	roomRows := make(map[int64]int, len(rooms))
	for i, roomID := range rooms {
		row := 3 + i
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(ScheduleSheet, cell, fmt.Sprintf("Room %d", roomID))
		_ = f.SetCellStyle(ScheduleSheet, cell, cell, headerStyle)
		roomRows[roomID] = row
	}

	styles := make(map[models.Status]int, len(statusFill))
	for status, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true},
		})
		if err != nil {
			return fmt.Errorf("create %s style: %w", status, err)
		}
		styles[status] = id
	}

	cells := make(map[string][]*models.Reservation)
	for _, r := range reservations {
		for d := maxTime(r.StartDate, from); d.Before(r.EndDate) && d.Before(to); d = d.AddDate(0, 0, 1) {
			c, ok := dateCols[d.Format(models.DateLayout)]
			if !ok {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c, roomRows[r.RoomID])
			cells[cell] = append(cells[cell], r)
		}
	}

	for cell, list := range cells {
		lines := make([]string, 0, len(list))
		for _, r := range list {
			lines = append(lines, fmt.Sprintf("#%d user %d %s", r.ID, r.UserID, r.Status))
		}
		_ = f.SetCellValue(ScheduleSheet, cell, strings.Join(lines, "\n"))
		_ = f.SetCellStyle(ScheduleSheet, cell, cell, styles[dominantStatus(list)])
	}

	_ = f.SetColWidth(ScheduleSheet, "A", "A", 14)
	if col > 2 {
		last, _ := excelize.ColumnNumberToName(col - 1)
		_ = f.SetColWidth(ScheduleSheet, "B", last, 22)
		_ = f.MergeCell(ScheduleSheet, "A1", last+"1")
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err == nil {
		_ = f.SetCellStyle(ScheduleSheet, "A1", "A1", titleStyle)
	}
	return nil
}

func writeList(f *excelize.File, reservations []*models.Reservation) error {
	headers := []string{"ID", "User", "Room", "Start", "End", "Status"}
	if err := f.SetSheetRow(ListSheet, "A1", &headers); err != nil {
		return fmt.Errorf("write list header: %w", err)
	}
	for i, r := range reservations {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{
			r.ID, r.UserID, r.RoomID,
			r.StartDate.Format(models.DateLayout),
			r.EndDate.Format(models.DateLayout),
			string(r.Status),
		}
		if err := f.SetSheetRow(ListSheet, cell, &row); err != nil {
			return fmt.Errorf("write list row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(ListSheet, "A", "F", 14)
	return nil
}

func roomIDs(reservations []*models.Reservation) []int64 {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, r := range reservations {
		if _, ok := seen[r.RoomID]; ok {
			continue
		}
		seen[r.RoomID] = struct{}{}
		ids = append(ids, r.RoomID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// dominantStatus picks the fill for a cell: approved wins over pending,
// pending over cancelled.
func dominantStatus(list []*models.Reservation) models.Status {
	status := models.StatusCancelled
	for _, r := range list {
		switch r.Status {
		case models.StatusApproved:
			return models.StatusApproved
		case models.StatusPending:
			status = models.StatusPending
		}
	}
	return status
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
