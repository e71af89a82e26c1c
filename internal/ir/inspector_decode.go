package ir

import (
	"encoding/json"
	"fmt"
)

// flexInt64 decodes a JSON field that may arrive as either a number or a
// decimal string, because sequence bounds (e.g. 9223372036854775807) can
// exceed the safe-integer range once they round-trip through JSON.
type flexInt64 string

func (f *flexInt64) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexInt64(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flexInt64: %w", err)
	}
	*f = flexInt64(n.String())
	return nil
}

type bulkPayload struct {
	Tables           []bulkTable      `json:"tables"`
	Columns          []bulkColumn     `json:"columns"`
	ForeignKeys      []bulkForeignKey `json:"foreign_keys"`
	Indexes          []bulkIndex      `json:"indexes"`
	Triggers         []bulkTrigger    `json:"triggers"`
	Policies         []bulkPolicy     `json:"policies"`
	RLS              []bulkRLS        `json:"rls"`
	CheckConstraints []bulkCheck      `json:"check_constraints"`
	TableComments    []bulkComment    `json:"table_comments"`
}

type bulkTable struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

type bulkColumn struct {
	Schema               string `json:"schema"`
	Table                string `json:"table"`
	Name                 string `json:"name"`
	Position             int    `json:"position"`
	DataType             string `json:"data_type"`
	UDTName              string `json:"udt_name"`
	IsNullable           bool   `json:"is_nullable"`
	ColumnDefault        string `json:"column_default"`
	Collation            string `json:"collation"`
	IsGenerated          bool   `json:"is_generated"`
	GenerationExpression string `json:"generation_expression"`
	IsIdentity           bool   `json:"is_identity"`
	IdentityGeneration   string `json:"identity_generation"`
	Comment              string `json:"comment"`
}

type bulkForeignKey struct {
	Schema          string   `json:"schema"`
	Table           string   `json:"table"`
	Name            string   `json:"name"`
	Columns         []string `json:"columns"`
	ForeignSchema   string   `json:"foreign_schema"`
	ForeignTable    string   `json:"foreign_table"`
	ForeignColumns  []string `json:"foreign_columns"`
	OnDelete        string   `json:"on_delete"`
	OnUpdate        string   `json:"on_update"`
}

type bulkIndex struct {
	Schema           string `json:"schema"`
	Table            string `json:"table"`
	Name             string `json:"name"`
	Definition       string `json:"definition"`
	IsUnique         bool   `json:"is_unique"`
	IsPrimary        bool   `json:"is_primary"`
	Method           string `json:"method"`
	Where            string `json:"where"`
	OwningConstraint string `json:"owning_constraint"`
	Comment          string `json:"comment"`
}

type bulkTrigger struct {
	Schema         string `json:"schema"`
	Table          string `json:"table"`
	Name           string `json:"name"`
	TgType         int16  `json:"tgtype"`
	Definition     string `json:"definition"`
	FunctionSchema string `json:"function_schema"`
	FunctionName   string `json:"function_name"`
	Comment        string `json:"comment"`
}

type bulkPolicy struct {
	Schema    string   `json:"schema"`
	Table     string   `json:"table"`
	Name      string   `json:"name"`
	Command   string   `json:"command"`
	Roles     []string `json:"roles"`
	Using     string   `json:"using"`
	WithCheck string   `json:"with_check"`
}

type bulkRLS struct {
	Schema  string `json:"schema"`
	Table   string `json:"table"`
	Enabled bool   `json:"enabled"`
}

type bulkCheck struct {
	Schema     string `json:"schema"`
	Table      string `json:"table"`
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

type bulkComment struct {
	Schema  string `json:"schema"`
	Table   string `json:"table"`
	Comment string `json:"comment"`
}

// The row structs below are decoded by pgx.RowToStructByNameLax, which
// matches columns to fields via the `db` tag — the `json` tags are for
// the nested array/object columns that decode a second time as JSON.

type enumRow struct {
	Schema    string   `db:"schema"`
	Name      string   `db:"name"`
	Values    []string `db:"values"`
	Comment   string   `db:"comment"`
	Extension string   `db:"extension"`
}

type compositeAttrJSON struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

type compositeRow struct {
	Schema    string              `db:"schema"`
	Name      string              `db:"name"`
	Attrs     []compositeAttrJSON `db:"attrs"`
	Comment   string              `db:"comment"`
	Extension string              `db:"extension"`
}

type domainCheckJSON struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

type domainRow struct {
	Schema    string            `db:"schema"`
	Name      string            `db:"name"`
	BaseType  string            `db:"base_type"`
	NotNull   bool              `db:"not_null"`
	Default   string            `db:"default_value"`
	Checks    []domainCheckJSON `db:"checks"`
	Comment   string            `db:"comment"`
	Extension string            `db:"extension"`
}

type sequenceRow struct {
	Schema     string    `db:"schema"`
	Name       string    `db:"name"`
	DataType   string    `db:"data_type"`
	StartValue flexInt64 `db:"start_value"`
	MinValue   flexInt64 `db:"min_value"`
	MaxValue   flexInt64 `db:"max_value"`
	Increment  flexInt64 `db:"increment"`
	Cycle      bool      `db:"cycle"`
	CacheSize  flexInt64 `db:"cache_size"`
	OwnedBy    string    `db:"owned_by"`
	Extension  string    `db:"extension"`
}

type extensionRow struct {
	Name    string `db:"name"`
	Schema  string `db:"schema"`
	Version string `db:"version"`
}

type functionGrantJSON struct {
	Grantee   string `json:"grantee"`
	Privilege string `json:"privilege"`
}

type functionRow struct {
	Schema          string              `db:"schema"`
	Name            string              `db:"name"`
	Kind            string              `db:"kind"` // 'f' function, 'p' procedure
	ArgumentsText   string              `db:"arguments_text"`
	ReturnType      string              `db:"return_type"`
	Language        string              `db:"language"`
	Body            string              `db:"body"`
	Volatility      string              `db:"volatility"`
	IsStrict        bool                `db:"is_strict"`
	SecurityDefiner bool                `db:"security_definer"`
	ConfigParams    []string            `db:"config_params"`
	Grants          []functionGrantJSON `db:"grants"`
	Extension       string              `db:"extension"`
	Comment         string              `db:"comment"`
}

type roleRow struct {
	Name            string `db:"name"`
	Superuser       bool   `db:"superuser"`
	CreateDB        bool   `db:"createdb"`
	CreateRole      bool   `db:"createrole"`
	Inherit         bool   `db:"inherit"`
	Login           bool   `db:"login"`
	Replication     bool   `db:"replication"`
	BypassRLS       bool   `db:"bypassrls"`
	ConnectionLimit int    `db:"connection_limit"`
	ValidUntil      string `db:"valid_until"`
}

type viewRow struct {
	Schema         string `db:"schema"`
	Name           string `db:"name"`
	Definition     string `db:"definition"`
	IsMaterialized bool   `db:"is_materialized"`
	Comment        string `db:"comment"`
	Extension      string `db:"extension"`
}
