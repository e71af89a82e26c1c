package generator

import (
	"fmt"
	"strings"

	"github.com/pgschema/pgschema/internal/ir"
)

func createEnumSQL(e *ir.Enum) string {
	vals := make([]string, len(e.Values))
	for i, v := range e.Values {
		vals[i] = "'" + ir.EscapeStringLiteral(v) + "'"
	}
	return fmt.Sprintf("CREATE TYPE %s AS ENUM (%s);", qualify(e.Schema, e.Name), strings.Join(vals, ", "))
}

func addEnumValueSQL(e *ir.Enum, value string) string {
	return fmt.Sprintf("ALTER TYPE %s ADD VALUE IF NOT EXISTS '%s';", qualify(e.Schema, e.Name), ir.EscapeStringLiteral(value))
}

func dropEnumSQL(e *ir.Enum) string {
	return fmt.Sprintf("DROP TYPE IF EXISTS %s CASCADE;", qualify(e.Schema, e.Name))
}

func createCompositeSQL(c *ir.CompositeType) string {
	attrs := make([]string, len(c.Attrs))
	for i, a := range c.Attrs {
		attrs[i] = fmt.Sprintf("%s %s", ir.QuoteIdent(a.Name), a.DataType)
	}
	return fmt.Sprintf("CREATE TYPE %s AS (%s);", qualify(c.Schema, c.Name), strings.Join(attrs, ", "))
}

func dropCompositeSQL(c *ir.CompositeType) string {
	return fmt.Sprintf("DROP TYPE IF EXISTS %s CASCADE;", qualify(c.Schema, c.Name))
}

func createDomainSQL(d *ir.Domain) string {
	stmt := fmt.Sprintf("CREATE DOMAIN %s AS %s", qualify(d.Schema, d.Name), d.BaseType)
	if d.Default != "" {
		stmt += " DEFAULT " + d.Default
	}
	if d.NotNull {
		stmt += " NOT NULL"
	}
	for _, chk := range d.Checks {
		stmt += fmt.Sprintf(" CONSTRAINT %s CHECK (%s)", ir.QuoteIdent(chk.Name), chk.Expression)
	}
	return stmt + ";"
}

func dropDomainSQL(d *ir.Domain) string {
	return fmt.Sprintf("DROP DOMAIN IF EXISTS %s CASCADE;", qualify(d.Schema, d.Name))
}

func createSequenceSQL(s *ir.Sequence) string {
	stmt := fmt.Sprintf("CREATE SEQUENCE %s", qualify(s.Schema, s.Name))
	if s.DataType != "" {
		stmt += " AS " + s.DataType
	}
	if s.Increment != "" {
		stmt += " INCREMENT BY " + s.Increment
	}
	if s.MinValue != "" {
		stmt += " MINVALUE " + s.MinValue
	}
	if s.MaxValue != "" {
		stmt += " MAXVALUE " + s.MaxValue
	}
	if s.StartValue != "" {
		stmt += " START WITH " + s.StartValue
	}
	if s.CacheSize != "" {
		stmt += " CACHE " + s.CacheSize
	}
	if s.Cycle {
		stmt += " CYCLE"
	}
	return stmt + ";"
}

func alterSequenceSQL(s *ir.Sequence) string {
	stmt := fmt.Sprintf("ALTER SEQUENCE %s", qualify(s.Schema, s.Name))
	if s.Increment != "" {
		stmt += " INCREMENT BY " + s.Increment
	}
	if s.MinValue != "" {
		stmt += " MINVALUE " + s.MinValue
	}
	if s.MaxValue != "" {
		stmt += " MAXVALUE " + s.MaxValue
	}
	if s.CacheSize != "" {
		stmt += " CACHE " + s.CacheSize
	}
	if s.Cycle {
		stmt += " CYCLE"
	} else {
		stmt += " NO CYCLE"
	}
	return stmt + ";"
}

func dropSequenceSQL(s *ir.Sequence) string {
	return fmt.Sprintf("DROP SEQUENCE IF EXISTS %s CASCADE;", qualify(s.Schema, s.Name))
}

func createFunctionSQL(f *ir.Function) string {
	kind := "FUNCTION"
	if f.IsProcedure {
		kind = "PROCEDURE"
	}
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		arg := ""
		if a.Mode != "" && a.Mode != ir.ParamIn {
			arg += string(a.Mode) + " "
		}
		if a.Name != "" {
			arg += ir.QuoteIdent(a.Name) + " "
		}
		arg += a.Type
		if a.Default != "" {
			arg += " DEFAULT " + a.Default
		}
		args[i] = arg
	}

	stmt := fmt.Sprintf("CREATE OR REPLACE %s %s(%s)", kind, qualify(f.Schema, f.Name), strings.Join(args, ", "))
	if !f.IsProcedure {
		stmt += " RETURNS " + f.ReturnType
	}
	stmt += fmt.Sprintf("\n    LANGUAGE %s", f.Language)
	if f.Volatility != "" {
		stmt += "\n    " + string(f.Volatility)
	}
	if f.IsStrict {
		stmt += "\n    STRICT"
	}
	if f.SecurityDefiner {
		stmt += "\n    SECURITY DEFINER"
	}
	for _, p := range f.ConfigParams {
		stmt += fmt.Sprintf("\n    SET %s = %s", p.Key, p.Value)
	}
	stmt += fmt.Sprintf("\n    AS $$%s$$;", f.Body)
	return stmt
}

func dropFunctionSQL(f *ir.Function) string {
	kind := "FUNCTION"
	if f.IsProcedure {
		kind = "PROCEDURE"
	}
	types := make([]string, 0, len(f.Args))
	for _, a := range f.Args {
		if a.Mode == ir.ParamOut {
			continue
		}
		types = append(types, a.Type)
	}
	return fmt.Sprintf("DROP %s IF EXISTS %s(%s) CASCADE;", kind, qualify(f.Schema, f.Name), strings.Join(types, ", "))
}

func grantExecuteSQL(f *ir.Function, g ir.Grant) string {
	types := make([]string, 0, len(f.Args))
	for _, a := range f.Args {
		if a.Mode == ir.ParamOut {
			continue
		}
		types = append(types, a.Type)
	}
	return fmt.Sprintf("GRANT %s ON FUNCTION %s(%s) TO %s;", g.Privilege, qualify(f.Schema, f.Name), strings.Join(types, ", "), g.Grantee)
}

func createViewSQL(v *ir.View) string {
	kind := "VIEW"
	if v.IsMaterialized {
		kind = "MATERIALIZED VIEW"
	}
	stmt := fmt.Sprintf("CREATE %s %s", kind, qualify(v.Schema, v.Name))
	if len(v.WithOptions) > 0 {
		stmt += fmt.Sprintf(" WITH (%s)", strings.Join(v.WithOptions, ", "))
	}
	stmt += " AS\n" + v.Definition
	if v.CheckOption != ir.CheckOptionNone {
		stmt += fmt.Sprintf("\nWITH %s CHECK OPTION", v.CheckOption)
	}
	return stmt + ";"
}

func dropViewSQL(v *ir.View) string {
	kind := "VIEW"
	if v.IsMaterialized {
		kind = "MATERIALIZED VIEW"
	}
	return fmt.Sprintf("DROP %s IF EXISTS %s CASCADE;", kind, qualify(v.Schema, v.Name))
}

func createExtensionSQL(e *ir.Extension) string {
	stmt := fmt.Sprintf("CREATE EXTENSION IF NOT EXISTS %s", ir.QuoteIdent(e.Name))
	if e.Schema != "" {
		stmt += " WITH SCHEMA " + ir.QuoteIdent(e.Schema)
	}
	if e.Version != "" {
		stmt += " VERSION '" + ir.EscapeStringLiteral(e.Version) + "'"
	}
	return stmt + ";"
}

func dropExtensionSQL(e *ir.Extension) string {
	return fmt.Sprintf("DROP EXTENSION IF EXISTS %s CASCADE;", ir.QuoteIdent(e.Name))
}

func createRoleSQL(r *ir.Role) string {
	var opts []string
	boolOpt := func(flag bool, yes, no string) {
		if flag {
			opts = append(opts, yes)
		} else {
			opts = append(opts, no)
		}
	}
	boolOpt(r.Superuser, "SUPERUSER", "NOSUPERUSER")
	boolOpt(r.CreateDB, "CREATEDB", "NOCREATEDB")
	boolOpt(r.CreateRole, "CREATEROLE", "NOCREATEROLE")
	boolOpt(r.Inherit, "INHERIT", "NOINHERIT")
	boolOpt(r.Login, "LOGIN", "NOLOGIN")
	boolOpt(r.Replication, "REPLICATION", "NOREPLICATION")
	boolOpt(r.BypassRLS, "BYPASSRLS", "NOBYPASSRLS")
	if r.ConnectionLimit != 0 {
		opts = append(opts, fmt.Sprintf("CONNECTION LIMIT %d", r.ConnectionLimit))
	}
	if r.ValidUntil != "" {
		opts = append(opts, fmt.Sprintf("VALID UNTIL '%s'", ir.EscapeStringLiteral(r.ValidUntil)))
	}
	return fmt.Sprintf("CREATE ROLE %s WITH %s;", ir.QuoteIdent(r.Name), strings.Join(opts, " "))
}

func dropRoleSQL(r *ir.Role) string {
	return fmt.Sprintf("DROP ROLE IF EXISTS %s;", ir.QuoteIdent(r.Name))
}
