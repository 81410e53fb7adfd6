package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/br"
	"github.com/xuri/excelize/v2"
)

// ReadingCalendar resolves the due date for a delay reason in a
// given month. Dates come from a workbook with one sheet per month
// (sheet names in "Jan-06" form, reason code in column A, due date
// in column B). The workbook is re-read when its mtime changes.
type ReadingCalendar struct {
	path string

	mu       sync.Mutex
	loadedAt time.Time
	dueDates map[string]time.Time // "2006-01|07" -> due date

	business *cal.BusinessCalendar
}

func NewReadingCalendar(path string) *ReadingCalendar {
	business := cal.NewBusinessCalendar()
	business.Name = "Brazil"
	business.AddHoliday(br.Holidays...)

	return &ReadingCalendar{
		path:     path,
		dueDates: make(map[string]time.Time),
		business: business,
	}
}

func dueDateKey(year int, month time.Month, reason string) string {
	return fmt.Sprintf("%04d-%02d|%s", year, int(month), reason)
}

// DueDate returns the due date for (year, month, reason), rolled
// forward to the next business day when it lands on a holiday or
// weekend. Nil when the calendar has no entry.
func (c *ReadingCalendar) DueDate(year int, month time.Month, reason string) *time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.reloadLocked(); err != nil {
		return nil
	}

	due, ok := c.dueDates[dueDateKey(year, month, reason)]
	if !ok {
		return nil
	}
	for !c.business.IsWorkday(due) {
		due = due.AddDate(0, 0, 1)
	}
	return &due
}

// IsBusinessDay reports whether t is a working day in Brazil.
func (c *ReadingCalendar) IsBusinessDay(t time.Time) bool {
	return c.business.IsWorkday(t)
}

// reloadLocked re-reads the workbook when the file changed on disk.
// A missing workbook is not an error; the calendar is simply empty.
func (c *ReadingCalendar) reloadLocked() error {
	info, err := os.Stat(c.path)
	if err != nil {
		return err
	}
	if !info.ModTime().After(c.loadedAt) {
		return nil
	}

	f, err := excelize.OpenFile(c.path)
	if err != nil {
		return err
	}
	defer f.Close()

	dueDates := make(map[string]time.Time)
	for _, sheet := range f.GetSheetList() {
		monthStart, err := time.Parse("Jan-06", strings.TrimSpace(sheet))
		if err != nil {
			continue
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			reasonNum, err := strconv.Atoi(cell(row, 0))
			if err != nil || reasonNum < 1 || reasonNum > 18 {
				continue
			}
			due := coerceDate(cell(row, 1))
			if due == nil {
				continue
			}
			reason := fmt.Sprintf("%02d", reasonNum)
			dueDates[dueDateKey(monthStart.Year(), monthStart.Month(), reason)] = *due
		}
	}

	c.dueDates = dueDates
	c.loadedAt = info.ModTime()
	return nil
}
