package sheet

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

// canonicalHeader is the well-formed header the rule sheets export.
var canonicalHeader = []string{
	"code", "description", "label", "requirement_level", "roles", "type",
	"validations", "variant", "codigo-categoria-mirakl",
	"nome-categoria-mirakl", "parent_code-categoria-mirakl",
}

func workbookBytes(t *testing.T, sheets map[string][][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			f.SetSheetName(f.GetSheetName(0), name)
			first = false
		} else {
			if _, err := f.NewSheet(name); err != nil {
				t.Fatalf("NewSheet(%q): %v", name, err)
			}
		}
		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			values := make([]interface{}, len(row))
			for j, v := range row {
				values[j] = v
			}
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestParse_SingleSheet(t *testing.T) {
	data := workbookBytes(t, map[string][][]string{
		"Rules": {
			{"code", "description"},
			{"A1", "first rule"},
			{"B2", "second rule"},
		},
	})

	sheets, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(sheets) != 1 {
		t.Fatalf("got %d sheets, want 1", len(sheets))
	}
	if sheets[0].Name != "Rules" {
		t.Errorf("sheet name = %q, want %q", sheets[0].Name, "Rules")
	}
	if len(sheets[0].Rows) != 3 {
		t.Errorf("got %d rows, want 3", len(sheets[0].Rows))
	}
	if sheets[0].Rows[1][0] != "A1" {
		t.Errorf("Rows[1][0] = %q, want %q", sheets[0].Rows[1][0], "A1")
	}
}

func TestParse_Garbage(t *testing.T) {
	if _, err := Parse([]byte("definitely not a zip archive")); err == nil {
		t.Fatal("Parse() expected error for invalid bytes")
	}
}

func TestDataRowCount(t *testing.T) {
	sheets := []Sheet{
		{Name: "a", Rows: [][]string{{"h"}, {"r1"}, {"r2"}}},
		{Name: "b", Rows: [][]string{{"h"}}},
		{Name: "c", Rows: nil},
		{Name: "d", Rows: [][]string{{"h"}, {"r1"}}},
	}
	if got := DataRowCount(sheets); got != 3 {
		t.Errorf("DataRowCount() = %d, want 3", got)
	}
}

func TestIsBlankRow(t *testing.T) {
	tests := []struct {
		row  []string
		want bool
	}{
		{nil, true},
		{[]string{}, true},
		{[]string{"", "  ", "\t"}, true},
		{[]string{"", "x"}, false},
		{[]string{"0"}, false},
	}
	for _, tt := range tests {
		if got := IsBlankRow(tt.row); got != tt.want {
			t.Errorf("IsBlankRow(%v) = %v, want %v", tt.row, got, tt.want)
		}
	}
}

func TestBuildMapping_CanonicalHeader(t *testing.T) {
	m, missing := BuildMapping(canonicalHeader)

	if len(missing) != 0 {
		t.Fatalf("missing fields for canonical header: %v", missing)
	}
	for i, field := range FieldNames {
		if m[field] != i {
			t.Errorf("m[%q] = %d, want %d", field, m[field], i)
		}
	}
}

func TestBuildMapping_MiraklColumnsNotStolenByCode(t *testing.T) {
	// "codigo-categoria-mirakl" contains the code synonym "codigo"; the
	// specific field must claim it before the generic one gets a look.
	header := []string{"codigo-categoria-mirakl", "codigo"}
	m, _ := BuildMapping(header)

	if m["codigo-categoria-mirakl"] != 0 {
		t.Errorf("m[codigo-categoria-mirakl] = %d, want 0", m["codigo-categoria-mirakl"])
	}
	if m["code"] != 1 {
		t.Errorf("m[code] = %d, want 1", m["code"])
	}
}

func TestBuildMapping_PortugueseHeader(t *testing.T) {
	header := []string{"Código", "Descrição", "Rótulo", "Obrigatoriedade", "Perfis", "Tipo", "Validação", "Variante"}
	m, missing := BuildMapping(header)

	want := map[string]int{
		"code":              0,
		"description":       1,
		"label":             2,
		"requirement_level": 3,
		"roles":             4,
		"type":              5,
		"validations":       6,
		"variant":           7,
	}
	for field, idx := range want {
		got, ok := m[field]
		if !ok {
			t.Errorf("field %q not mapped", field)
			continue
		}
		if got != idx {
			t.Errorf("m[%q] = %d, want %d", field, got, idx)
		}
	}

	// The three mirakl columns are absent and must surface as warnings.
	if len(missing) != 3 {
		t.Errorf("missing = %v, want the 3 mirakl fields", missing)
	}
}

func TestBuildMapping_UnmatchedFieldsReported(t *testing.T) {
	m, missing := BuildMapping([]string{"something", "else entirely"})

	if len(m) != 0 {
		t.Errorf("mapping = %v, want empty", m)
	}
	if len(missing) != len(FieldNames) {
		t.Errorf("len(missing) = %d, want %d", len(missing), len(FieldNames))
	}
}

func TestBuildMapping_ColumnClaimedOnce(t *testing.T) {
	// One header cell matching two fields may only be claimed by one.
	header := []string{"tipo de validação"}
	m, _ := BuildMapping(header)

	_, hasType := m["type"]
	_, hasValidations := m["validations"]
	if hasType && hasValidations {
		t.Errorf("single column claimed twice: %v", m)
	}
	if !hasValidations {
		// validations outranks type in the match order
		t.Errorf("m = %v, want validations to claim column 0", m)
	}
}
