package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnquoteIdent(t *testing.T) {
	cases := []struct{ in, want string }{
		{`"users"`, "users"},
		{"users", "users"},
		{`"My Table"`, "My Table"},
		{`"a""b"`, `a"b`},
		{`  "padded"  `, "padded"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, UnquoteIdent(c.in))
	}
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"users"`, QuoteIdent("users"))
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
}

func TestQuoteQualified(t *testing.T) {
	assert.Equal(t, `"public"."users"`, QuoteQualified("public", "users"))
	assert.Equal(t, `"users"`, QuoteQualified("", "users"))
}

func TestEscapeStringLiteral(t *testing.T) {
	assert.Equal(t, `it''s`, EscapeStringLiteral("it's"))
}

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, `"public"."users"`, CanonicalKey("public", "users"))
}

func TestFunctionSignatureKey(t *testing.T) {
	assert.Equal(t, `"public"."add"(integer, integer)`, FunctionSignatureKey("public", "add", []string{"integer", "integer"}))
	assert.Equal(t, `"public"."now"()`, FunctionSignatureKey("public", "now", nil))
}
