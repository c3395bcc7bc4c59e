package export

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/sk-sanagustin/yep-id/internal/attendance"
	"github.com/sk-sanagustin/yep-id/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	RecordsSheet = "Attendance Records"
	InfoSheet    = "Event Information"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var recordColumns = []struct {
	header string
	width  float64
}{
	{"#", 8},
	{"Name", 30},
	{"ID", 15},
	{"Email", 35},
	{"Phone", 20},
	{"Points Earned", 15},
	{"Attendance Date", 18},
	{"Attendance Time", 18},
}

// AttendanceWorkbook renders an event's attendance as a workbook with the
// records, oldest scan first, and a sheet describing the event. Timestamps
// are shown in now's location.
func AttendanceWorkbook(event models.Event, rows []attendance.EventAttendee, now time.Time) (*excelize.File, error) {
	rows = slices.Clone(rows)
	slices.SortStableFunc(rows, func(a, b attendance.EventAttendee) int {
		return cmp.Compare(a.AttendedAt.UnixNano(), b.AttendedAt.UnixNano())
	})

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), RecordsSheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := writeRecords(f, rows, now.Location()); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeInfo(f, event, len(rows), now); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

func writeRecords(f *excelize.File, rows []attendance.EventAttendee, loc *time.Location) error {
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 12},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"002E6A"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	titles := make([]any, len(recordColumns))
	for i, c := range recordColumns {
		titles[i] = c.header
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(RecordsSheet, col, col, c.width); err != nil {
			return err
		}
	}
	if err := f.SetSheetRow(RecordsSheet, "A1", &titles); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(recordColumns), 1)
	if err := f.SetCellStyle(RecordsSheet, "A1", last, header); err != nil {
		return err
	}

	for i, r := range rows {
		at := r.AttendedAt.In(loc)
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			i + 1,
			orDefault(r.Name, "Unknown"),
			orDefault(r.DisplayID, "N/A"),
			orDefault(r.Email, "Unknown"),
			orDefault(r.Phone, "N/A"),
			r.PointsEarned,
			at.Format(time.DateOnly),
			at.Format(time.TimeOnly),
		}
		if err := f.SetSheetRow(RecordsSheet, cell, &values); err != nil {
			return err
		}
	}

	return nil
}

func writeInfo(f *excelize.File, event models.Event, total int, now time.Time) error {
	if _, err := f.NewSheet(InfoSheet); err != nil {
		return err
	}

	info := [][]any{
		{"Event Name", orDefault(event.Name, "N/A")},
		{"Year", orDefault(event.Year, "N/A")},
		{"Event Date", orDefault(event.Date, "N/A")},
		{"Event Time", orDefault(event.Time, "N/A")},
		{"Description", orDefault(event.Description, "N/A")},
		{"Total Attendance", total},
		{"Export Date", now.Format(time.DateTime)},
	}
	for i, row := range info {
		if err := f.SetSheetRow(InfoSheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(InfoSheet, "A", "A", 20); err != nil {
		return err
	}
	return f.SetColWidth(InfoSheet, "B", "B", 40)
}

// Filename builds the download name, e.g. Attendance_Clean-up Drive_2024_20240615.xlsx.
func Filename(event models.Event, now time.Time) string {
	name := strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			return r
		}
		return -1
	}, event.Name))
	if name == "" {
		name = "Event"
	}
	return fmt.Sprintf("Attendance_%s_%s_%s.xlsx", name, event.Year, now.Format("20060102"))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
