// Package sheet turns raw xlsx bytes into ordered sheets of row arrays
// and resolves header cells to canonical field names.
package sheet

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet: an ordered list of raw rows, row 0 = header.
type Sheet struct {
	Name string
	Rows [][]string
}

// Parse decodes xlsx bytes into ordered sheets. Sheet order follows the
// workbook; cell values arrive as display strings, so numeric and
// boolean cells are already coerced to text.
func Parse(data []byte) ([]Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	sheets := make([]Sheet, 0, len(names))
	for _, name := range names {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	}
	return sheets, nil
}

// DataRowCount returns the number of rows across all sheets excluding
// each sheet's header row. Blank rows still count here; the transform
// stage is what skips them. The strategy choice needs this total before
// any record is built.
func DataRowCount(sheets []Sheet) int {
	total := 0
	for _, s := range sheets {
		if n := len(s.Rows); n > 1 {
			total += n - 1
		}
	}
	return total
}

// IsBlankRow reports whether every cell is empty after trimming.
// Blank rows are silently skipped, not recorded as errors.
func IsBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
