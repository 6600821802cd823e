package transform

import "strings"

// Business-rule normalization applied after minimal extraction. The
// direct strategy runs it over the full record set; the streaming
// strategy skips it to preserve throughput on very large tables.

// requirementLevels maps canonical requirement levels to keyword stems
// matched by containment across supported languages.
var requirementLevels = []struct {
	canonical string
	keywords  []string
}{
	{"conditional", []string{"conditional", "condicional"}},
	{"required", []string{"required", "mandatory", "obrigat", "obligator", "requerid"}},
	{"optional", []string{"optional", "opcional", "facultativ"}},
}

// fieldTypes maps canonical field types to keyword stems.
var fieldTypes = []struct {
	canonical string
	keywords  []string
}{
	{"boolean", []string{"boolean", "bool", "booleano", "sim/nao", "yes/no"}},
	{"number", []string{"number", "numero", "número", "numeric", "decimal", "integer"}},
	{"date", []string{"date", "data", "fecha"}},
	{"text", []string{"text", "texto", "string"}},
}

// NormalizeRequirementLevel maps multilingual requirement wording onto
// {required, optional, conditional}. Unmatched values pass through
// unchanged.
func NormalizeRequirementLevel(v string) string {
	lower := strings.ToLower(v)
	for _, level := range requirementLevels {
		for _, kw := range level.keywords {
			if strings.Contains(lower, kw) {
				return level.canonical
			}
		}
	}
	return v
}

// NormalizeType maps multilingual type wording onto
// {text, number, date, boolean}. Unmatched values pass through unchanged.
func NormalizeType(v string) string {
	lower := strings.ToLower(v)
	for _, ft := range fieldTypes {
		for _, kw := range ft.keywords {
			if strings.Contains(lower, kw) {
				return ft.canonical
			}
		}
	}
	return v
}

// Normalize applies business-rule normalization to one record in place.
func Normalize(rec *Record) {
	if rec.RequirementLevel != "" {
		rec.RequirementLevel = NormalizeRequirementLevel(rec.RequirementLevel)
	}
	if rec.Type != "" {
		rec.Type = NormalizeType(rec.Type)
	}
}
