package diff

import (
	"sort"
	"strings"

	"github.com/pgschema/pgschema/internal/ir"
)

func dataTypesEqual(a, b string) bool {
	return ir.CanonicalTypeName(a) == ir.CanonicalTypeName(b)
}

func columnsEqual(a, b *ir.Column) bool {
	if !dataTypesEqual(a.DataType, b.DataType) {
		return false
	}
	if a.IsNullable != b.IsNullable {
		return false
	}
	if a.IdentityGeneration != b.IdentityGeneration {
		return false
	}
	if a.Collation != b.Collation {
		return false
	}
	if a.Comment != b.Comment {
		return false
	}
	if a.IsGenerated != b.IsGenerated {
		return false
	}
	if a.IsGenerated {
		return ir.Normalize(ir.KindDefault, a.GenerationExpression) == ir.Normalize(ir.KindDefault, b.GenerationExpression)
	}
	return ir.Normalize(ir.KindDefault, a.ColumnDefault) == ir.Normalize(ir.KindDefault, b.ColumnDefault)
}

func indexEqual(a, b *ir.Index) bool {
	if !stringSlicesEqual(a.Columns, b.Columns) {
		return false
	}
	if a.IsUnique != b.IsUnique || a.IsPrimary != b.IsPrimary {
		return false
	}
	if !strings.EqualFold(string(a.Method), string(b.Method)) {
		return false
	}
	if ir.Normalize(ir.KindIndexPredicate, a.WhereClause) != ir.Normalize(ir.KindIndexPredicate, b.WhereClause) {
		return false
	}
	if len(a.Expressions) != len(b.Expressions) {
		return false
	}
	for i := range a.Expressions {
		if ir.Normalize(ir.KindGeneric, a.Expressions[i]) != ir.Normalize(ir.KindGeneric, b.Expressions[i]) {
			return false
		}
	}
	return true
}

func foreignKeyEqual(a, b *ir.ForeignKey) bool {
	return stringSlicesEqual(a.Columns, b.Columns) &&
		a.ForeignSchema == b.ForeignSchema &&
		a.ForeignTable == b.ForeignTable &&
		stringSlicesEqual(a.ForeignColumns, b.ForeignColumns) &&
		a.OnDelete == b.OnDelete &&
		a.OnUpdate == b.OnUpdate
}

func triggerEqual(a, b *ir.Trigger) bool {
	if a.Timing != b.Timing || a.Orientation != b.Orientation {
		return false
	}
	if !eventSetEqual(a.Events, b.Events) {
		return false
	}
	if normalizeFunctionName(a.Function) != normalizeFunctionName(b.Function) {
		return false
	}
	return ir.Normalize(ir.KindTriggerWhen, a.WhenClause) == ir.Normalize(ir.KindTriggerWhen, b.WhenClause)
}

// eventSetEqual compares trigger events as a set after normalizing
// "UPDATE OF col1,col2" column lists (order-insensitive within the list).
func eventSetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	na := normalizeEvents(a)
	nb := normalizeEvents(b)
	sort.Strings(na)
	sort.Strings(nb)
	return stringSlicesEqual(na, nb)
}

func normalizeEvents(events []string) []string {
	out := make([]string, len(events))
	for i, e := range events {
		const prefix = "UPDATE OF "
		if strings.HasPrefix(e, prefix) {
			cols := strings.Split(strings.TrimPrefix(e, prefix), ",")
			for j := range cols {
				cols[j] = strings.TrimSpace(cols[j])
			}
			sort.Strings(cols)
			out[i] = prefix + strings.Join(cols, ",")
			continue
		}
		out[i] = e
	}
	return out
}

func normalizeFunctionName(name string) string {
	if !strings.Contains(name, ".") {
		return "public." + name
	}
	return name
}

func policyEqual(a, b *ir.Policy) bool {
	if !strings.EqualFold(string(a.Command), string(b.Command)) {
		return false
	}
	ra := append([]string(nil), a.Roles...)
	rb := append([]string(nil), b.Roles...)
	sort.Strings(ra)
	sort.Strings(rb)
	if !stringSlicesEqual(ra, rb) {
		return false
	}
	if ir.Normalize(ir.KindPolicy, a.Using) != ir.Normalize(ir.KindPolicy, b.Using) {
		return false
	}
	return ir.Normalize(ir.KindPolicy, a.WithCheck) == ir.Normalize(ir.KindPolicy, b.WithCheck)
}

func viewEqual(a, b *ir.View) bool {
	if ir.Normalize(ir.KindView, a.Definition) != ir.Normalize(ir.KindView, b.Definition) {
		return false
	}
	if a.IsMaterialized != b.IsMaterialized {
		return false
	}
	if a.CheckOption != b.CheckOption {
		return false
	}
	aw := append([]string(nil), a.WithOptions...)
	bw := append([]string(nil), b.WithOptions...)
	sort.Strings(aw)
	sort.Strings(bw)
	return stringSlicesEqual(aw, bw)
}

func sequenceEqual(a, b *ir.Sequence) bool {
	return a.DataType == b.DataType &&
		a.StartValue == b.StartValue &&
		a.MinValue == b.MinValue &&
		a.MaxValue == b.MaxValue &&
		a.Increment == b.Increment &&
		a.Cycle == b.Cycle &&
		a.CacheSize == b.CacheSize
}

func functionEqual(a, b *ir.Function) bool {
	if ir.Normalize(ir.KindGeneric, a.Body) != ir.Normalize(ir.KindGeneric, b.Body) {
		return false
	}
	if !dataTypesEqual(a.ReturnType, b.ReturnType) {
		return false
	}
	if a.Language != b.Language || a.Volatility != b.Volatility {
		return false
	}
	if a.IsStrict != b.IsStrict || a.SecurityDefiner != b.SecurityDefiner {
		return false
	}
	if !configParamsEqual(a.ConfigParams, b.ConfigParams) {
		return false
	}
	return grantsEqual(a.Grants, b.Grants)
}

func configParamsEqual(a, b []ir.ConfigParam) bool {
	if len(a) != len(b) {
		return false
	}
	am := make(map[string]string, len(a))
	for _, p := range a {
		am[p.Key] = p.Value
	}
	for _, p := range b {
		if am[p.Key] != p.Value {
			return false
		}
	}
	return true
}

func grantsEqual(a, b []ir.Grant) bool {
	if len(a) != len(b) {
		return false
	}
	am := make(map[string]bool, len(a))
	for _, g := range a {
		am[g.Grantee+"|"+g.Privilege] = true
	}
	for _, g := range b {
		if !am[g.Grantee+"|"+g.Privilege] {
			return false
		}
	}
	return true
}

func compositeEqual(a, b *ir.CompositeType) bool {
	if len(a.Attrs) != len(b.Attrs) {
		return false
	}
	for i := range a.Attrs {
		if a.Attrs[i].Name != b.Attrs[i].Name || !dataTypesEqual(a.Attrs[i].DataType, b.Attrs[i].DataType) {
			return false
		}
	}
	return true
}

func domainEqual(a, b *ir.Domain) bool {
	if !dataTypesEqual(a.BaseType, b.BaseType) || a.NotNull != b.NotNull {
		return false
	}
	if ir.Normalize(ir.KindDefault, a.Default) != ir.Normalize(ir.KindDefault, b.Default) {
		return false
	}
	if len(a.Checks) != len(b.Checks) {
		return false
	}
	for i := range a.Checks {
		if a.Checks[i].Name != b.Checks[i].Name {
			return false
		}
	}
	return true
}

func rolesEqual(a, b *ir.Role) bool {
	return a.Superuser == b.Superuser &&
		a.CreateDB == b.CreateDB &&
		a.CreateRole == b.CreateRole &&
		a.Inherit == b.Inherit &&
		a.Login == b.Login &&
		a.Replication == b.Replication &&
		a.BypassRLS == b.BypassRLS &&
		a.ConnectionLimit == b.ConnectionLimit &&
		a.ValidUntil == b.ValidUntil
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
