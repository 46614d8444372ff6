package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mapflow/mapflow/internal/common"
	"github.com/mapflow/mapflow/internal/model"
	"github.com/mapflow/mapflow/internal/normalize"
)

var yearHeader = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// headerWords are first-column cells that mark a header row, not an
// account.
var headerWords = map[string]bool{
	"particulars": true,
	"account":     true,
	"accounts":    true,
	"description": true,
	"name":        true,
}

// ExcelExtractor reads account names and values from a trial-balance
// style workbook: names in the first column, values in the first
// year-labelled (or first numeric) column after it.
type ExcelExtractor struct {
	logger *slog.Logger
	// Sheet overrides the sheet to read; empty means the first sheet.
	Sheet string
}

// NewExcelExtractor creates an Excel account extractor.
func NewExcelExtractor(logger *slog.Logger) *ExcelExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelExtractor{logger: logger}
}

// ExtractAccounts implements AccountExtractor.
func (e *ExcelExtractor) ExtractAccounts(ctx context.Context, path string) (*model.AccountSet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.Warn("failed to close workbook", "path", path, "error", cerr)
		}
	}()

	sheet := e.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", common.ErrBadInput)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	valueCol := findValueColumn(rows)
	if valueCol < 0 {
		return nil, fmt.Errorf("%w: no numeric value column in sheet %q", common.ErrBadInput, sheet)
	}

	accounts := model.NewAccountSet()
	skipped := 0
	for _, row := range rows {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if len(row) == 0 {
			continue
		}

		name := normalize.StripCodePrefix(row[0])
		if name == "" || headerWords[strings.ToLower(name)] {
			continue
		}
		if len(row) <= valueCol {
			continue
		}

		value, ok := parseAmount(row[valueCol])
		if !ok {
			skipped++
			continue
		}
		if value.IsZero() {
			continue
		}

		accounts.Add(name, value)
	}

	e.logger.Info("extracted accounts from workbook",
		"path", path,
		"sheet", sheet,
		"accounts", accounts.Len(),
		"skipped_rows", skipped)

	if accounts.Len() == 0 {
		return nil, common.ErrNoAccounts
	}
	return accounts, nil
}

// findValueColumn picks the column holding account values: the first
// column after the names whose header cell contains a year, else the
// first column with any parseable number.
func findValueColumn(rows [][]string) int {
	for _, row := range rows {
		for col := 1; col < len(row); col++ {
			if yearHeader.MatchString(row[col]) {
				return col
			}
		}
		// Headers live in the first few rows.
		if len(row) > 0 && row[0] != "" {
			break
		}
	}

	for _, row := range rows {
		for col := 1; col < len(row); col++ {
			if _, ok := parseAmount(row[col]); ok {
				return col
			}
		}
	}
	return -1
}

// parseAmount parses a spreadsheet cell as a decimal amount. Thousands
// separators are dropped and accounting-style parentheses negate.
func parseAmount(cell string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(cell)
	if s == "" || s == "-" {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	value, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		value = value.Neg()
	}
	return value, true
}
