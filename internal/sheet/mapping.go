package sheet

import "strings"

// FieldNames lists the canonical output fields in column order.
var FieldNames = []string{
	"code",
	"description",
	"label",
	"requirement_level",
	"roles",
	"type",
	"validations",
	"variant",
	"codigo-categoria-mirakl",
	"nome-categoria-mirakl",
	"parent_code-categoria-mirakl",
}

// fieldSynonyms maps each canonical field to header synonyms across the
// languages the source documents arrive in (en/pt/es). Matching is
// case-insensitive substring containment.
var fieldSynonyms = map[string][]string{
	"code":                         {"code", "codigo", "código", "cod"},
	"description":                  {"description", "descricao", "descrição", "descripcion", "descripción"},
	"label":                        {"label", "rotulo", "rótulo", "etiqueta"},
	"requirement_level":            {"requirement_level", "requirement", "obrigatoriedade", "obrigatorio", "obrigatório", "obligatorio", "nivel"},
	"roles":                        {"roles", "role", "papeis", "papéis", "perfis", "perfiles"},
	"type":                         {"type", "tipo"},
	"validations":                  {"validations", "validation", "validacao", "validação", "validacion", "validación"},
	"variant":                      {"variant", "variante"},
	"codigo-categoria-mirakl":      {"codigo-categoria-mirakl", "codigo categoria", "código categoria", "category code"},
	"nome-categoria-mirakl":        {"nome-categoria-mirakl", "nome categoria", "nombre categoria", "category name"},
	"parent_code-categoria-mirakl": {"parent_code-categoria-mirakl", "parent_code", "parent code", "codigo pai", "categoria pai"},
}

// matchOrder fixes the order fields claim header columns. The most
// specific fields go first so a generic synonym like "codigo" cannot
// steal the mirakl category columns from their own fields.
var matchOrder = []string{
	"codigo-categoria-mirakl",
	"nome-categoria-mirakl",
	"parent_code-categoria-mirakl",
	"requirement_level",
	"validations",
	"description",
	"variant",
	"label",
	"roles",
	"type",
	"code",
}

// Mapping is a per-sheet table of canonical field -> source column index.
// Fields absent from the map were not found in the header and contribute
// an empty string to every row.
type Mapping map[string]int

// BuildMapping resolves header cells against the synonym dictionary.
// Each field claims at most one column and a claimed column is never
// reused. The second return value lists canonical fields that matched no
// header cell; callers record those as mapping warnings, not failures.
func BuildMapping(header []string) (Mapping, []string) {
	lowered := make([]string, len(header))
	for i, h := range header {
		lowered[i] = strings.ToLower(strings.TrimSpace(h))
	}

	m := make(Mapping, len(FieldNames))
	claimed := make(map[int]bool, len(header))

	for _, field := range matchOrder {
		for i, cell := range lowered {
			if claimed[i] || cell == "" {
				continue
			}
			if containsAny(cell, fieldSynonyms[field]) {
				m[field] = i
				claimed[i] = true
				break
			}
		}
	}

	var missing []string
	for _, field := range FieldNames {
		if _, ok := m[field]; !ok {
			missing = append(missing, field)
		}
	}
	return m, missing
}

func containsAny(cell string, synonyms []string) bool {
	for _, syn := range synonyms {
		if strings.Contains(cell, syn) {
			return true
		}
	}
	return false
}
