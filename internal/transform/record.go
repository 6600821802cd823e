// Package transform builds Rule Records from raw sheet rows and selects
// the processing strategy for a table's volume.
//
// The per-row builder is deliberately defensive: it never fails on
// absent, blank, or oversized input. A migration is literal 1:1: no row
// is merged or dropped because its code collides with another's.
package transform

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"sheetmigrate/internal/sheet"
)

// Record is the 11-field canonical migrated unit.
type Record struct {
	Code               string
	Description        string
	Label              string
	RequirementLevel   string
	Roles              string
	Type               string
	Validations        string
	Variant            string
	MiraklCategoryCode string
	MiraklCategoryName string
	MiraklParentCode   string
}

// fieldCaps holds the per-field rune length caps enforced on every
// stored value regardless of input length.
var fieldCaps = map[string]int{
	"code":                         255,
	"description":                  5000,
	"label":                        1000,
	"requirement_level":            100,
	"roles":                        500,
	"type":                         100,
	"validations":                  5000,
	"variant":                      500,
	"codigo-categoria-mirakl":      255,
	"nome-categoria-mirakl":        1000,
	"parent_code-categoria-mirakl": 255,
}

// Values returns the record's fields in sheet.FieldNames order, ready to
// be appended to a parameterized insert.
func (r Record) Values() []any {
	return []any{
		r.Code,
		r.Description,
		r.Label,
		r.RequirementLevel,
		r.Roles,
		r.Type,
		r.Validations,
		r.Variant,
		r.MiraklCategoryCode,
		r.MiraklCategoryName,
		r.MiraklParentCode,
	}
}

// BuildRecord extracts the 11 canonical fields from a raw row. Fields
// whose column is unmapped or beyond the row's length become empty
// strings. A blank code is replaced with a deterministic auto_row_<n>
// placeholder so the row survives the migration instead of being dropped.
// rowNum is the 1-based position of the row within the table's data rows.
func BuildRecord(row []string, m sheet.Mapping, rowNum int) Record {
	get := func(field string) string {
		idx, ok := m[field]
		if !ok || idx < 0 || idx >= len(row) {
			return ""
		}
		return truncate(cleanCell(row[idx]), fieldCaps[field])
	}

	rec := Record{
		Code:               get("code"),
		Description:        get("description"),
		Label:              get("label"),
		RequirementLevel:   get("requirement_level"),
		Roles:              get("roles"),
		Type:               get("type"),
		Validations:        get("validations"),
		Variant:            get("variant"),
		MiraklCategoryCode: get("codigo-categoria-mirakl"),
		MiraklCategoryName: get("nome-categoria-mirakl"),
		MiraklParentCode:   get("parent_code-categoria-mirakl"),
	}

	if rec.Code == "" {
		rec.Code = fmt.Sprintf("auto_row_%d", rowNum)
	}
	return rec
}

// cleanCell strips line breaks and tabs and collapses internal runs of
// whitespace to a single space.
func cleanCell(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate caps s at max runes. A non-positive max leaves s untouched.
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
