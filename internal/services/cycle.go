package services

import (
	"strconv"
	"time"
)

// Billing cycles. Each month is under the operational focus of
// exactly one cycle, repeating on a three month rhythm.
const (
	Cycle97 = "97"
	Cycle98 = "98"
	Cycle99 = "99"
)

// Cycles lists the three billing cycles in rotation order.
var Cycles = []string{Cycle97, Cycle98, Cycle99}

// cycleExtras enumerates the high outlier suffixes that belong to a
// single cycle. The wrap sets are a closed business rule and must
// not be inferred from ranges.
var cycleExtras = map[string][]int{
	Cycle97: {90, 91},
	Cycle98: {92, 93},
	Cycle99: {89, 94},
}

// cycleMembers[cycle] is the full suffix membership set: urban
// localities 01..88 belong to every cycle, rural 96 belongs to every
// cycle, plus the cycle's own number and its wrap extras.
var cycleMembers = buildCycleMembers()

func buildCycleMembers() map[string]map[int]bool {
	members := make(map[string]map[int]bool, len(Cycles))
	for _, c := range Cycles {
		set := make(map[int]bool, 92)
		for i := 1; i <= 88; i++ {
			set[i] = true
		}
		set[96] = true
		own, _ := strconv.Atoi(c)
		set[own] = true
		for _, extra := range cycleExtras[c] {
			set[extra] = true
		}
		members[c] = set
	}
	return members
}

// CycleForMonth returns the cycle under operational focus for the
// given month: Jan/Apr/Jul/Oct are cycle 97, Feb/May/Aug/Nov are 98,
// Mar/Jun/Sep/Dec are 99.
func CycleForMonth(month time.Month) string {
	switch (int(month) - 1) % 3 {
	case 0:
		return Cycle97
	case 1:
		return Cycle98
	default:
		return Cycle99
	}
}

// citySuffix extracts the numeric two digit suffix of a locality
// code. Returns -1 when the code is too short or not numeric.
func citySuffix(localityCode string) int {
	if len(localityCode) < 2 {
		return -1
	}
	n, err := strconv.Atoi(localityCode[len(localityCode)-2:])
	if err != nil {
		return -1
	}
	return n
}

// ClassifyCycle maps a locality code and a reference date to a
// billing cycle. Shared suffixes (urban 01..88 and rural 96) take
// the reference month's cycle; exclusive suffixes take the one cycle
// that owns them regardless of month. An unknown suffix yields the
// empty string, never an error, so the record is kept and surfaced
// rather than dropped.
func ClassifyCycle(localityCode string, ref time.Time) string {
	suffix := citySuffix(localityCode)
	if suffix < 0 {
		return ""
	}

	current := CycleForMonth(ref.Month())
	if cycleMembers[current][suffix] {
		return current
	}
	for _, c := range Cycles {
		if cycleMembers[c][suffix] {
			return c
		}
	}
	return ""
}

// IsCycleActive reports whether the locality's suffix is a member of
// the cycle under focus for the reference month. This gates the
// "current cycle" views without excluding historical data.
func IsCycleActive(localityCode string, ref time.Time) bool {
	suffix := citySuffix(localityCode)
	if suffix < 0 {
		return false
	}
	return cycleMembers[CycleForMonth(ref.Month())][suffix]
}
