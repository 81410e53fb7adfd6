package services

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// SchemaError marks a structurally unusable report file. Nothing
// from the batch is persisted when a SchemaError is raised.
type SchemaError struct {
	Detail string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("report schema error: %s", e.Detail)
}

// Reading report positional layout
const (
	colReadingLocality     = 0
	colReadingInstallation = 4
	colReadingRegistration = 9
	colReadingAddress      = 10
	colReadingDueDate      = 26
)

// Gateway report positional layout
const (
	colGatewayServiceType = 1
	colGatewayPlanned     = 3
	colGatewayNotExecuted = 16
	colGatewayImpediments = 23
	colGatewayReread1     = 49
	colGatewayReread2     = 50
	colGatewayReread3     = 52
)

const contractSetPrefix = "Conjunto de Contrato:"

var (
	localityPattern     = regexp.MustCompile(`^\d{8}$`)
	installationPattern = regexp.MustCompile(`^\d{10}$`)
	dueDatePattern      = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	localityInLabel     = regexp.MustCompile(`\d{8}`)
)

// ParsedReadingRow is one normalized service order from a reading report.
type ParsedReadingRow struct {
	LocalityCode string
	Installation string
	Registration string
	Address      string
	DueDate      *time.Time
}

// ReadingParse is the outcome of parsing a reading report.
type ReadingParse struct {
	Rows      []ParsedReadingRow
	TotalRows int
	Skipped   int
	// Skip reasons by cause, e.g. "missing_locality", "bad_row"
	SkipReasons map[string]int
}

// ParsedGatewayRow is one aggregated execution row from a gateway report.
type ParsedGatewayRow struct {
	LocalityCode string
	ContractSet  string
	ServiceType  string
	Planned      int
	NotExecuted  int
	Impediments  int
	Rereadings   int
}

// GatewayParse is the outcome of parsing a gateway report.
type GatewayParse struct {
	Rows        []ParsedGatewayRow
	TotalRows   int
	Skipped     int
	SkipReasons map[string]int
}

// cell returns the trimmed cell at index i, empty when out of range.
// excelize trims trailing empty cells so row widths vary.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// coerceInt parses a numeric cell, tolerating thousand separators
// and decimal notation. Empty or malformed cells coerce to 0.
func coerceInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// coerceDate parses a DD/MM/YYYY cell. Malformed dates coerce to nil.
func coerceDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if !dueDatePattern.MatchString(s) {
		return nil
	}
	t, err := time.ParseInLocation("02/01/2006", s, time.Local)
	if err != nil {
		return nil
	}
	return &t
}

func firstSheetRows(fileBytes []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
	if err != nil {
		return nil, &SchemaError{Detail: fmt.Sprintf("cannot open workbook: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &SchemaError{Detail: "workbook has no sheets"}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &SchemaError{Detail: fmt.Sprintf("cannot read sheet %q: %v", sheets[0], err)}
	}
	return rows, nil
}

// ParseReading turns a raw reading report into normalized service
// order rows. Data rows start at the first row whose locality column
// holds an 8-digit code; rows after that point with a missing or
// malformed locality are skipped and counted, not failed. A sheet
// with no locality column at all is a schema error.
func ParseReading(fileBytes []byte) (*ReadingParse, error) {
	rows, err := firstSheetRows(fileBytes)
	if err != nil {
		return nil, err
	}

	start := -1
	for i, row := range rows {
		if localityPattern.MatchString(cell(row, colReadingLocality)) {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, &SchemaError{Detail: "no locality code column found in reading report"}
	}

	parse := &ReadingParse{SkipReasons: make(map[string]int)}
	for _, row := range rows[start:] {
		if isEmptyRow(row) {
			continue
		}
		parse.TotalRows++

		locality := cell(row, colReadingLocality)
		if !localityPattern.MatchString(locality) {
			parse.Skipped++
			parse.SkipReasons["missing_locality"]++
			continue
		}

		installation := cell(row, colReadingInstallation)
		if !installationPattern.MatchString(installation) {
			installation = ""
		}

		parse.Rows = append(parse.Rows, ParsedReadingRow{
			LocalityCode: locality,
			Installation: installation,
			Registration: cell(row, colReadingRegistration),
			Address:      cell(row, colReadingAddress),
			DueDate:      coerceDate(cell(row, colReadingDueDate)),
		})
	}

	return parse, nil
}

// ParseGateway turns a raw gateway report into aggregated execution
// rows. Rows are grouped under "Conjunto de Contrato:" separators;
// the 8-digit locality code is taken from the group label. Sub-total
// and grand-total rows are skipped without counting.
func ParseGateway(fileBytes []byte) (*GatewayParse, error) {
	rows, err := firstSheetRows(fileBytes)
	if err != nil {
		return nil, err
	}

	parse := &GatewayParse{SkipReasons: make(map[string]int)}

	var contractSet string
	var locality string
	sawGroup := false

	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}

		first := cell(row, 0)
		if strings.HasPrefix(first, contractSetPrefix) {
			sawGroup = true
			contractSet = strings.TrimSpace(strings.TrimPrefix(first, contractSetPrefix))
			locality = localityInLabel.FindString(contractSet)
			continue
		}
		if !sawGroup {
			continue
		}

		if isTotalRow(row) {
			continue
		}

		serviceType := normalizeServiceType(cell(row, colGatewayServiceType))
		if serviceType == "" {
			continue
		}

		parse.TotalRows++
		if locality == "" {
			parse.Skipped++
			parse.SkipReasons["missing_locality"]++
			continue
		}

		parse.Rows = append(parse.Rows, ParsedGatewayRow{
			LocalityCode: locality,
			ContractSet:  contractSet,
			ServiceType:  serviceType,
			Planned:      coerceInt(cell(row, colGatewayPlanned)),
			NotExecuted:  coerceInt(cell(row, colGatewayNotExecuted)),
			Impediments:  coerceInt(cell(row, colGatewayImpediments)),
			Rereadings: coerceInt(cell(row, colGatewayReread1)) +
				coerceInt(cell(row, colGatewayReread2)) +
				coerceInt(cell(row, colGatewayReread3)),
		})
	}

	if !sawGroup {
		return nil, &SchemaError{Detail: "no contract set separator found in gateway report"}
	}

	return parse, nil
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func isTotalRow(row []string) bool {
	for i := 0; i < 3; i++ {
		c := cell(row, i)
		if strings.Contains(c, "Sub-Total") || strings.Contains(c, "Total Geral") {
			return true
		}
	}
	return false
}

func normalizeServiceType(s string) string {
	upper := strings.ToUpper(s)
	switch {
	case strings.Contains(upper, "OSB"):
		return "OSB"
	case strings.Contains(upper, "CNV"):
		return "CNV"
	default:
		return ""
	}
}

// DelayReason extracts the delay reason taxonomy code, the first two
// digits of the locality code. Codes outside the closed 01..18 list
// are returned as-is so they surface in operator views.
func DelayReason(localityCode string) string {
	if len(localityCode) < 2 {
		return ""
	}
	return localityCode[:2]
}
