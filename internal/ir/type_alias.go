package ir

import "strings"

// typeAliases maps a spelling Postgres accepts on input to the spelling
// format_type actually returns, so a column authored as `int` compares
// equal to one introspected as `integer`.
var typeAliases = map[string]string{
	"decimal": "numeric",
	"int":     "integer",
	"int4":    "integer",
	"int8":    "bigint",
	"int2":    "smallint",
	"bool":    "boolean",
	"float8":  "double precision",
	"float":   "double precision",
	"float4":  "real",
	"varchar": "character varying",
}

// CanonicalTypeName normalizes a data type's alias, recursing into array
// nesting (`int[]` -> `integer[]`). Used by both the differ (to decide
// whether a column's type actually changed) and the generator (to decide
// whether an ALTER COLUMN TYPE is needed).
func CanonicalTypeName(t string) string {
	t = strings.TrimSpace(t)
	suffix := ""
	for strings.HasSuffix(t, "[]") {
		suffix += "[]"
		t = strings.TrimSuffix(t, "[]")
	}
	if alias, ok := typeAliases[strings.ToLower(t)]; ok {
		t = alias
	}
	return t + suffix
}
