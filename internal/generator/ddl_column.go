package generator

import (
	"fmt"
	"strings"

	"github.com/pgschema/pgschema/internal/ir"
)

// columnDefSQL renders a column as it appears inside CREATE TABLE ( ... ).
func columnDefSQL(c *ir.Column) string {
	var b strings.Builder
	b.WriteString(ir.QuoteIdent(c.Name))
	b.WriteByte(' ')
	b.WriteString(c.DataType)

	if c.IsIdentity {
		b.WriteString(" GENERATED ")
		if c.IdentityGeneration == ir.IdentityAlways {
			b.WriteString("ALWAYS")
		} else {
			b.WriteString("BY DEFAULT")
		}
		b.WriteString(" AS IDENTITY")
	}
	if c.IsGenerated {
		fmt.Fprintf(&b, " GENERATED ALWAYS AS (%s) STORED", c.GenerationExpression)
	}
	if c.Collation != "" {
		fmt.Fprintf(&b, " COLLATE %s", ir.QuoteIdent(c.Collation))
	}
	if !c.IsNullable {
		b.WriteString(" NOT NULL")
	}
	if c.ColumnDefault != "" && !c.IsGenerated {
		fmt.Fprintf(&b, " DEFAULT %s", c.ColumnDefault)
	}
	return b.String()
}

// addColumnSQL emits ALTER TABLE ... ADD COLUMN for a single column.
func addColumnSQL(tableKey string, c *ir.Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", tableKey, columnDefSQL(c))
}

func dropColumnSQL(tableKey, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", tableKey, ir.QuoteIdent(name))
}

// alterColumnSQL emits ALTER COLUMN clauses for the type, nullability,
// default and (when the target names one) collation differences between
// base and target. Generation-status changes are handled upstream as a
// drop+add by the differ. Identity changes and the removal of a collation
// produce no statement here.
func alterColumnSQL(tableKey string, base, target *ir.Column) []string {
	var out []string
	name := ir.QuoteIdent(target.Name)

	if ir.CanonicalTypeName(base.DataType) != ir.CanonicalTypeName(target.DataType) {
		out = append(out, fmt.Sprintf(
			"ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s;",
			tableKey, name, target.DataType, name, target.DataType,
		))
	}
	if base.IsNullable != target.IsNullable {
		if target.IsNullable {
			out = append(out, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL;", tableKey, name))
		} else {
			out = append(out, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL;", tableKey, name))
		}
	}
	if base.ColumnDefault != target.ColumnDefault {
		if target.ColumnDefault == "" {
			out = append(out, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT;", tableKey, name))
		} else {
			out = append(out, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;", tableKey, name, target.ColumnDefault))
		}
	}
	if base.Collation != target.Collation && target.Collation != "" {
		out = append(out, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DATA TYPE %s COLLATE %s USING %s::%s;",
			tableKey, name, target.DataType, ir.QuoteIdent(target.Collation), name, target.DataType))
	}
	return out
}
