package ir

import (
	"fmt"
	"strings"
)

// UnquoteIdent strips a single matched pair of outer double quotes from a
// PostgreSQL identifier, undoubling any embedded `""` escape. Identifiers
// are stored unquoted everywhere inside a DbSchema; only the generator
// re-quotes them on emission.
func UnquoteIdent(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		inner := s[1 : len(s)-1]
		return strings.ReplaceAll(inner, `""`, `"`)
	}
	return s
}

// QuoteIdent double-quotes an identifier for emission, doubling any
// embedded double quote.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuoteQualified double-quotes a schema.name pair for emission.
func QuoteQualified(schema, name string) string {
	if schema == "" {
		return QuoteIdent(name)
	}
	return QuoteIdent(schema) + "." + QuoteIdent(name)
}

// EscapeStringLiteral doubles single quotes for embedding in a SQL string
// literal (used for COMMENT ON text and similar).
func EscapeStringLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// CanonicalKey is the map key every schema-scoped object (table, view,
// enum, composite type, domain, sequence, extension) is stored under: both
// parts double-quoted, so "Public"."Users" and public.users never collide.
func CanonicalKey(schema, name string) string {
	return QuoteQualified(schema, name)
}

// FunctionSignatureKey is the overload-safe key functions are stored under:
// the qualified name followed by its IN/INOUT/VARIADIC argument types in
// order, matching PostgreSQL's own overload resolution.
func FunctionSignatureKey(schema, name string, argTypes []string) string {
	return fmt.Sprintf("%s(%s)", QuoteQualified(schema, name), strings.Join(argTypes, ", "))
}
