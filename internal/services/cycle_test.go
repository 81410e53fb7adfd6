package services

import (
	"testing"
	"time"
)

func date(year int, month time.Month) time.Time {
	return time.Date(year, month, 15, 12, 0, 0, 0, time.Local)
}

func TestCycleForMonth(t *testing.T) {
	tests := []struct {
		month    time.Month
		expected string
	}{
		{time.January, Cycle97},
		{time.February, Cycle98},
		{time.March, Cycle99},
		{time.April, Cycle97},
		{time.May, Cycle98},
		{time.June, Cycle99},
		{time.July, Cycle97},
		{time.August, Cycle98},
		{time.September, Cycle99},
		{time.October, Cycle97},
		{time.November, Cycle98},
		{time.December, Cycle99},
	}

	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			if got := CycleForMonth(tt.month); got != tt.expected {
				t.Errorf("CycleForMonth(%v) = %q, expected %q", tt.month, got, tt.expected)
			}
		})
	}
}

func TestClassifyCycle_SharedSuffixFollowsMonth(t *testing.T) {
	// Urban suffix 01 belongs to every cycle, so the reference month decides.
	tests := []struct {
		month    time.Month
		expected string
	}{
		{time.January, Cycle97},
		{time.February, Cycle98},
		{time.March, Cycle99},
	}
	for _, tt := range tests {
		if got := ClassifyCycle("05101001", date(2026, tt.month)); got != tt.expected {
			t.Errorf("ClassifyCycle(urban, %v) = %q, expected %q", tt.month, got, tt.expected)
		}
	}
}

func TestClassifyCycle_RuralFollowsMonth(t *testing.T) {
	if got := ClassifyCycle("05101096", date(2026, time.May)); got != Cycle98 {
		t.Errorf("ClassifyCycle(rural, May) = %q, expected %q", got, Cycle98)
	}
}

func TestClassifyCycle_ExclusiveSuffixIgnoresMonth(t *testing.T) {
	tests := []struct {
		name     string
		locality string
		expected string
	}{
		{"own number 97", "05101097", Cycle97},
		{"own number 98", "05101098", Cycle98},
		{"own number 99", "05101099", Cycle99},
		{"wrap 90 to 97", "05101090", Cycle97},
		{"wrap 91 to 97", "05101091", Cycle97},
		{"wrap 92 to 98", "05101092", Cycle98},
		{"wrap 93 to 98", "05101093", Cycle98},
		{"wrap 89 to 99", "05101089", Cycle99},
		{"wrap 94 to 99", "05101094", Cycle99},
	}

	// Reference month picks cycle 97, which must not override
	// exclusive membership.
	ref := date(2026, time.January)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyCycle(tt.locality, ref); got != tt.expected {
				t.Errorf("ClassifyCycle(%q) = %q, expected %q", tt.locality, got, tt.expected)
			}
		})
	}
}

func TestClassifyCycle_UnknownSuffix(t *testing.T) {
	tests := []struct {
		name     string
		locality string
	}{
		{"suffix 95 belongs to no cycle", "05101095"},
		{"suffix 00 belongs to no cycle", "05101000"},
		{"too short", "0"},
		{"not numeric", "051010xx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyCycle(tt.locality, date(2026, time.January)); got != "" {
				t.Errorf("ClassifyCycle(%q) = %q, expected empty", tt.locality, got)
			}
		})
	}
}

func TestIsCycleActive(t *testing.T) {
	// January focuses cycle 97: its exclusive suffixes are active,
	// cycle 99's are not.
	ref := date(2026, time.January)

	if !IsCycleActive("05101001", ref) {
		t.Error("urban suffix should be active in every month")
	}
	if !IsCycleActive("05101090", ref) {
		t.Error("wrap suffix 90 should be active in a cycle 97 month")
	}
	if IsCycleActive("05101089", ref) {
		t.Error("wrap suffix 89 should not be active in a cycle 97 month")
	}
	if IsCycleActive("05101095", ref) {
		t.Error("unknown suffix should never be active")
	}
}
