package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIdempotent(t *testing.T) {
	cases := []struct {
		kind Kind
		text string
	}{
		{KindGeneric, `"users"."id" = 1`},
		{KindPolicy, `(character_id IN (SELECT id FROM public.characters WHERE user_id = auth.uid()))`},
		{KindDefault, `'active'::text`},
		{KindCheck, `CHECK (status IN ('a','b'))`},
	}
	for _, c := range cases {
		once := Normalize(c.kind, c.text)
		twice := Normalize(c.kind, once)
		assert.Equal(t, once, twice, "normalize should be idempotent for %q", c.text)
	}
}

func TestNormalizeStripsCasesAndWhitespace(t *testing.T) {
	got := Normalize(KindGeneric, `"Users" . "Name"  =   'Bob'`)
	assert.Equal(t, `users . name = 'Bob'`, got)
}

func TestNormalizeStripsRedundantCasts(t *testing.T) {
	assert.Equal(t, "x", Normalize(KindGeneric, "x::text"))
	assert.Equal(t, "x", Normalize(KindGeneric, "x::integer"))
}

func TestNormalizeCastOrderIsSafe(t *testing.T) {
	// ::interval must not be treated as a prefix collision with ::int.
	assert.NotEqual(t, Normalize(KindGeneric, "x::interval"), Normalize(KindGeneric, "x::int"))
	assert.Equal(t, "x", Normalize(KindGeneric, "x::interval"))
	assert.Equal(t, "x", Normalize(KindGeneric, "x::int"))
}

func TestNormalizeOuterParensBalanced(t *testing.T) {
	assert.Equal(t, Normalize(KindGeneric, "x"), Normalize(KindGeneric, "(x)"))
}

func TestNormalizeStripsPublicPrefix(t *testing.T) {
	assert.Equal(t, "users", Normalize(KindGeneric, "public.users"))
	assert.Equal(t, "other.users", Normalize(KindGeneric, "other.users"))
}

func TestNormalizeTriggerWhenStripsTableQualifier(t *testing.T) {
	got := Normalize(KindTriggerWhen, "users.id = 1")
	assert.Equal(t, "id = 1", got)
}

func TestNormalizePreservesFunctionNamespace(t *testing.T) {
	got := Normalize(KindPolicy, "auth.uid() = owner_id")
	assert.Contains(t, got, "auth.uid()")
}

func TestNormalizeDollarQuoteTag(t *testing.T) {
	assert.Equal(t, Normalize(KindGeneric, "$$body$$"), Normalize(KindGeneric, "$function$body$function$"))
}

func TestNormalizeTrailingSemicolon(t *testing.T) {
	assert.Equal(t, Normalize(KindGeneric, "select 1"), Normalize(KindGeneric, "select 1;"))
}

func TestNormalizePolicySubqueryEquivalence(t *testing.T) {
	a := `character_id IN (SELECT id FROM public.characters WHERE user_id = auth.uid())`
	b := `(character_id IN (SELECT characters.id FROM characters WHERE (characters.user_id = auth.uid())))`
	assert.Equal(t, Normalize(KindPolicy, a), Normalize(KindPolicy, b))
}
