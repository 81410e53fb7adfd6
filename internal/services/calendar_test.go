package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func writeCalendarWorkbook(t *testing.T, entries map[string][][2]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	first := true
	for sheet, rows := range entries {
		if first {
			f.SetSheetName(f.GetSheetName(0), sheet)
			first = false
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				t.Fatalf("new sheet: %v", err)
			}
		}
		for r, row := range rows {
			f.SetCellValue(sheet, cellName(t, 1, r+1), row[0])
			f.SetCellValue(sheet, cellName(t, 2, r+1), row[1])
		}
	}

	path := filepath.Join(t.TempDir(), "calendario_leitura.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func cellName(t *testing.T, col, row int) string {
	t.Helper()
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		t.Fatalf("cell name: %v", err)
	}
	return name
}

func TestReadingCalendar_DueDate(t *testing.T) {
	path := writeCalendarWorkbook(t, map[string][][2]string{
		"Aug-26": {
			{"7", "13/08/2026"},
			{"12", "20/08/2026"},
			{"99", "25/08/2026"}, // outside 01..18, ignored
		},
	})
	c := NewReadingCalendar(path)

	due := c.DueDate(2026, time.August, "07")
	if due == nil {
		t.Fatal("reason 07 should have a due date")
	}
	// 2026-08-13 is a Thursday, no roll needed.
	if !due.Equal(time.Date(2026, time.August, 13, 0, 0, 0, 0, time.Local)) {
		t.Errorf("DueDate = %v, expected 2026-08-13", due)
	}

	if c.DueDate(2026, time.August, "99") != nil {
		t.Error("reasons outside the taxonomy must not load")
	}
	if c.DueDate(2026, time.September, "07") != nil {
		t.Error("months without a sheet have no due dates")
	}
	if c.DueDate(2026, time.August, "01") != nil {
		t.Error("reasons without a row have no due dates")
	}
}

func TestReadingCalendar_RollsToNextBusinessDay(t *testing.T) {
	// 2026-08-15 is a Saturday; the due date rolls to Monday the 17th.
	path := writeCalendarWorkbook(t, map[string][][2]string{
		"Aug-26": {{"3", "15/08/2026"}},
	})
	c := NewReadingCalendar(path)

	due := c.DueDate(2026, time.August, "03")
	if due == nil {
		t.Fatal("reason 03 should have a due date")
	}
	if due.Weekday() != time.Monday {
		t.Errorf("rolled weekday = %v, expected Monday", due.Weekday())
	}
	if due.Day() != 17 {
		t.Errorf("rolled day = %d, expected 17", due.Day())
	}
}

func TestReadingCalendar_MissingWorkbook(t *testing.T) {
	c := NewReadingCalendar(filepath.Join(t.TempDir(), "inexistente.xlsx"))
	if c.DueDate(2026, time.August, "07") != nil {
		t.Error("missing workbook yields no due dates, not a panic")
	}
}

func TestReadingCalendar_ReloadsOnChange(t *testing.T) {
	path := writeCalendarWorkbook(t, map[string][][2]string{
		"Aug-26": {{"7", "13/08/2026"}},
	})
	c := NewReadingCalendar(path)

	if c.DueDate(2026, time.August, "07") == nil {
		t.Fatal("initial load failed")
	}

	// Replace the workbook with a newer one carrying a different date.
	updated := writeCalendarWorkbook(t, map[string][][2]string{
		"Aug-26": {{"7", "14/08/2026"}},
	})
	data, err := os.ReadFile(updated)
	if err != nil {
		t.Fatalf("read updated workbook: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("overwrite workbook: %v", err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("bump mtime: %v", err)
	}

	due := c.DueDate(2026, time.August, "07")
	if due == nil {
		t.Fatal("reload failed")
	}
	if due.Day() != 14 {
		t.Errorf("reloaded due day = %d, expected 14", due.Day())
	}
}

func TestReadingCalendar_IsBusinessDay(t *testing.T) {
	c := NewReadingCalendar("unused.xlsx")

	if c.IsBusinessDay(time.Date(2026, time.August, 15, 0, 0, 0, 0, time.Local)) {
		t.Error("saturday is not a business day")
	}
	if !c.IsBusinessDay(time.Date(2026, time.August, 17, 0, 0, 0, 0, time.Local)) {
		t.Error("monday should be a business day")
	}
	// Tiradentes, a national holiday.
	if c.IsBusinessDay(time.Date(2026, time.April, 21, 0, 0, 0, 0, time.Local)) {
		t.Error("april 21st is a national holiday")
	}
}
