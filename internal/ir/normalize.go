package ir

import (
	"regexp"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Kind selects the kind-specific extensions to the canonical form.
type Kind string

const (
	KindGeneric        Kind = "generic"
	KindPolicy         Kind = "policy"
	KindTriggerWhen    Kind = "trigger_when"
	KindView           Kind = "view"
	KindDefault        Kind = "default"
	KindCheck          Kind = "check"
	KindIndexPredicate Kind = "index_predicate"
)

// functionNamespaces are schema prefixes on column-like references that are
// never stripped, because they are Postgres/Supabase function namespaces
// rather than table qualifiers (e.g. auth.uid()).
var functionNamespaces = map[string]bool{
	"auth":       true,
	"cron":       true,
	"net":        true,
	"extensions": true,
	"supabase":   true,
}

func isPgNamespace(s string) bool {
	return strings.HasPrefix(s, "pg_")
}

// redundantCasts lists the casts normalize() strips, longest-first so a
// longer suffix (::interval) is never shadowed by a shorter prefix match
// (::int). Each entry also gets its "[]" array variant.
var redundantCasts = buildRedundantCasts()

func buildRedundantCasts() []string {
	base := []string{
		"character varying", "double precision",
		"timestamptz", "timestamp", "interval", "boolean", "varchar",
		"numeric", "jsonb", "uuid", "date", "time", "float", "real",
		"regclass", "regtype", "regconfig", "bigint", "smallint",
		"integer", "bool", "text", "int",
	}
	var out []string
	for _, b := range base {
		out = append(out, b, b+"[]")
	}
	// Sort longest-first so e.g. "::interval" is matched before "::int".
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if len(out[j]) > len(out[i]) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// dollarTagRe matches a tagged dollar quote ($function$, $body$, ...) that
// is not itself preceded by a '$', so an untagged $$...$$ is left alone.
var dollarTagRe = regexp.MustCompile(`(^|[^$])\$[A-Za-z_][A-Za-z0-9_]*\$`)

// Normalize renders text to its canonical form for the given kind. Every
// pair of SQL fragments PostgreSQL treats as equivalent in that context
// yields equal canonical strings. Normalization never fails: on any
// pathology the best-effort result (possibly the raw input) is returned,
// never an error, so diffing always has something to compare.
func Normalize(kind Kind, text string) string {
	if text == "" {
		return text
	}

	s := text

	if kind == KindView {
		s = tryDeparseSQL(s)
	}

	s = stripLeadingViewPreamble(s, kind)
	s = unquoteIdentifiersOutsideLiterals(s)
	s = lowercaseOutsideLiterals(s)
	s = collapseWhitespace(s)
	s = stripSpacesNearPunctuation(s)
	s = stripRedundantCasts(s)
	s = stripPublicPrefix(s)
	s = stripBalancedOuterParens(s)
	s = strings.TrimSuffix(s, ";")
	s = strings.TrimSpace(s)
	s = normalizeDollarQuoteTags(s)

	switch kind {
	case KindPolicy, KindTriggerWhen:
		s = stripTableQualifiers(s)
		s = rebalanceKeywordParens(s)
	case KindView:
		s = collapseRepeatedParens(s)
	case KindDefault:
		s = stripTerminalCastOnLiteralOrParen(s)
	case KindCheck:
		s = strings.TrimPrefix(s, "check ")
		s = rewriteInAsAnyArray(s)
	}

	return s
}

// tryDeparseSQL attempts the AST-based pass: parse then deparse, yielding a
// parens-minimal rendering. This is additive only — on parse failure the
// original text passes through unchanged, and the subsequent string pass
// is always applied afterward, so the AST pass can never produce a form
// the string pass would reject.
func tryDeparseSQL(s string) string {
	stmt := s
	if !looksLikeStatement(stmt) {
		stmt = "SELECT " + strings.TrimPrefix(strings.TrimSpace(s), "SELECT")
	}
	result, err := pg_query.Parse(stmt)
	if err != nil || len(result.Stmts) == 0 {
		return s
	}
	deparsed, err := pg_query.Deparse(result)
	if err != nil {
		return s
	}
	return deparsed
}

func looksLikeStatement(s string) bool {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, kw := range []string{"SELECT", "CREATE", "WITH"} {
		if strings.HasPrefix(upper, kw) {
			return true
		}
	}
	return false
}

var viewPreambleRe = regexp.MustCompile(`(?i)^\s*CREATE\s+(OR\s+REPLACE\s+)?(MATERIALIZED\s+)?VIEW\s+[^\s]+\s+AS\s+`)

func stripLeadingViewPreamble(s string, kind Kind) string {
	if kind != KindView {
		return s
	}
	return viewPreambleRe.ReplaceAllString(s, "")
}

// unquoteIdentifiersOutsideLiterals removes double quotes around
// identifiers, leaving single-quoted string literal bodies untouched.
// Tracking "inside a string literal" by toggling on every single quote is
// correct even across an escaped '' : two togglings in a row cancel out,
// preserving the right parity on the far side of the escape.
func unquoteIdentifiersOutsideLiterals(s string) string {
	var out strings.Builder
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'':
			inString = !inString
			out.WriteByte(c)
		case c == '"' && !inString:
			// skip the quote character entirely
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

func lowercaseOutsideLiterals(s string) string {
	var out strings.Builder
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\'' {
			inString = !inString
			out.WriteByte(c)
			continue
		}
		if inString {
			out.WriteByte(c)
			continue
		}
		if c >= 'A' && c <= 'Z' {
			out.WriteByte(c + ('a' - 'A'))
		} else {
			out.WriteByte(c)
		}
	}
	return out.String()
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

var spaceNearPunctRe = regexp.MustCompile(`\s*([(),\[\]])\s*`)

func stripSpacesNearPunctuation(s string) string {
	return spaceNearPunctRe.ReplaceAllString(s, "$1")
}

func stripRedundantCasts(s string) string {
	for _, cast := range redundantCasts {
		re := regexp.MustCompile(`::` + regexp.QuoteMeta(cast) + `\b`)
		s = re.ReplaceAllString(s, "")
	}
	return s
}

var publicPrefixRe = regexp.MustCompile(`\bpublic\.`)

func stripPublicPrefix(s string) string {
	return publicPrefixRe.ReplaceAllString(s, "")
}

// stripBalancedOuterParens removes one outer pair of parens that wraps the
// entire expression, if balanced.
func stripBalancedOuterParens(s string) string {
	for {
		if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
			return s
		}
		depth := 0
		wraps := true
		for i, c := range s {
			switch c {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 && i != len(s)-1 {
					wraps = false
				}
			}
		}
		if !wraps {
			return s
		}
		s = s[1 : len(s)-1]
	}
}

func normalizeDollarQuoteTags(s string) string {
	return dollarTagRe.ReplaceAllString(s, "${1}$$$$")
}

var tableQualifierRe = regexp.MustCompile(`\b([a-zA-Z_][a-zA-Z0-9_]*)\.([a-zA-Z_][a-zA-Z0-9_]*)\b`)

// stripTableQualifiers drops `tbl.col` qualifiers on column references,
// preserving qualifiers that name a known function namespace.
func stripTableQualifiers(s string) string {
	return tableQualifierRe.ReplaceAllStringFunc(s, func(m string) string {
		parts := tableQualifierRe.FindStringSubmatch(m)
		prefix, rest := parts[1], parts[2]
		if functionNamespaces[prefix] || isPgNamespace(prefix) {
			return m
		}
		return rest
	})
}

var whereParenRe = regexp.MustCompile(`\b(where|and|or)\(`)

// rebalanceKeywordParens turns "WHERE(", "AND(", "OR(" into "WHERE ",
// "AND ", "OR " by dropping the paren the keyword opened along with its
// matching close, so `WHERE(x)` and `WHERE x` normalize identically.
func rebalanceKeywordParens(s string) string {
	for {
		loc := whereParenRe.FindStringIndex(s)
		if loc == nil {
			return s
		}
		openIdx := loc[1] - 1 // index of the '(' just matched
		depth := 0
		closeIdx := -1
		for i := openIdx; i < len(s); i++ {
			switch s[i] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					closeIdx = i
				}
			}
			if closeIdx != -1 {
				break
			}
		}
		if closeIdx == -1 {
			return s
		}
		s = s[:openIdx] + " " + s[openIdx+1:closeIdx] + s[closeIdx+1:]
	}
}

var repeatedOpenRe = regexp.MustCompile(`\(\(+`)
var repeatedCloseRe = regexp.MustCompile(`\)\)+`)

func collapseRepeatedParens(s string) string {
	for {
		next := repeatedOpenRe.ReplaceAllString(s, "(")
		next = repeatedCloseRe.ReplaceAllString(next, ")")
		if next == s {
			return s
		}
		s = next
	}
}

var literalOrParenCastRe = regexp.MustCompile(`^(\(.*\)|'(?:[^']|'')*'|[-0-9][\w.]*)::[a-z_][a-z0-9_ ]*(\[\])?$`)

// stripTerminalCastOnLiteralOrParen removes a terminal type cast only when
// the value being cast is itself a literal or a parenthesized expression.
func stripTerminalCastOnLiteralOrParen(s string) string {
	m := literalOrParenCastRe.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return m[1]
}

var inListRe = regexp.MustCompile(`(?i)\bin\s*\(([^()]*)\)`)

// rewriteInAsAnyArray drops the outermost difference between `IN (a,b)` and
// PostgreSQL's rewritten `= ANY (ARRAY[a,b])` by canonicalizing both to the
// ANY/ARRAY form.
func rewriteInAsAnyArray(s string) string {
	return inListRe.ReplaceAllString(s, "=any(array[$1])")
}
