// Package export renders the merged view as an end-of-day Excel sheet, used
// when the desk needs a printable fallback during long outages.
package export

import (
	"fmt"
	"io"

	"frontdesk/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

var headers = []string{"Guest", "Booking ID", "Room", "Status", "Pending sync", "Check-in", "Check-out"}

// WriteDaySheet writes the merged view for a scope as an .xlsx document.
func WriteDaySheet(w io.Writer, scope models.Scope, view []models.MergedBooking) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Hotel %s / %s", scope.HotelID, scope.Date))
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	_ = f.MergeCell(sheetName, "A1", "G1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, booking := range view {
		row := i + 3
		room := ""
		if booking.RoomNumber != nil {
			room = fmt.Sprintf("%d", *booking.RoomNumber)
		}
		pending := ""
		if booking.PendingSync {
			pending = "yes"
		}

		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), booking.GuestName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), booking.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), room)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), booking.Status)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), pending)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), booking.StartTime.Format("2006-01-02"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), booking.EndTime.Format("2006-01-02"))

		if styleID, err := rowStyle(f, booking); err == nil {
			_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("G%d", row), styleID)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 25)
	_ = f.SetColWidth(sheetName, "B", "B", 20)
	_ = f.SetColWidth(sheetName, "C", "E", 12)
	_ = f.SetColWidth(sheetName, "F", "G", 14)

	_ = f.DeleteSheet("Sheet1")

	return f.Write(w)
}

func rowStyle(f *excelize.File, booking models.MergedBooking) (int, error) {
	fill := "#FFFFFF"
	switch {
	case booking.PendingSync:
		fill = "#FFEB9C"
	case booking.Status == models.StatusCheckedIn:
		fill = "#C6EFCE"
	case booking.Status == models.StatusCancelled:
		fill = "#FFC7CE"
	}
	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{fill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "top"},
	})
}
