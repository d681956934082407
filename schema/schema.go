// Package schema is the declarative Schema Model & Builder: tables, columns, indexes, foreign keys, and unique constraints,
// described as plain structs instead of reparsed SQL text. Identifier
// comparisons are case-insensitive throughout, normalized the same way
// identifiers are normalized before any per-engine rendering.
package schema

import (
	"strings"

	"github.com/repldef/repldef/porttype"
	"github.com/repldef/repldef/syncerr"
)

// ForeignKeyAction enumerates ON DELETE / ON UPDATE behavior.
type ForeignKeyAction int

const (
	NoAction ForeignKeyAction = iota
	Cascade
	SetNull
	SetDefault
	Restrict
)

// ColumnDefinition is one table column.
type ColumnDefinition struct {
	Name                 string
	Type                 porttype.Type
	Nullable             bool
	Identity             bool
	DefaultLiteralSQL    string
	DefaultExpressionDSL string
}

// Validate enforces the "at most one default field" and "identity requires
// integer" invariants.
func (c ColumnDefinition) Validate() error {
	if c.DefaultLiteralSQL != "" && c.DefaultExpressionDSL != "" {
		return invalidf("column %s: at most one of defaultLiteralSql/defaultExpressionDsl may be set", c.Name)
	}
	if c.Identity && c.Type.Kind != porttype.KindInteger {
		return invalidf("column %s: identity requires an integer type", c.Name)
	}
	return nil
}

// IndexDefinition describes a column or expression index.
// Equality between indexes is by Name, case-insensitive.
type IndexDefinition struct {
	Name        string
	Unique      bool
	Columns     []string
	Expressions []string
}

func (i IndexDefinition) Validate() error {
	if len(i.Columns) > 0 && len(i.Expressions) > 0 {
		return invalidf("index %s: exactly one of columns/expressions must be set", i.Name)
	}
	if len(i.Columns) == 0 && len(i.Expressions) == 0 {
		return invalidf("index %s: must specify columns or expressions", i.Name)
	}
	return nil
}

// ForeignKeyDefinition describes a foreign key.
type ForeignKeyDefinition struct {
	Name                string
	LocalColumns        []string
	ReferencedTable     string
	ReferencedColumns   []string
	OnDelete            ForeignKeyAction
	OnUpdate            ForeignKeyAction
}

// UniqueConstraintDefinition describes a named unique constraint.
type UniqueConstraintDefinition struct {
	Name    string
	Columns []string
}

// PrimaryKeyDefinition is the ordered set of primary-key columns.
type PrimaryKeyDefinition struct {
	Columns []string
}

// TableDefinition is one table. Identifier comparison is
// case-insensitive.
type TableDefinition struct {
	SchemaName       string
	Name             string
	Columns          []ColumnDefinition
	PrimaryKey       *PrimaryKeyDefinition
	Indexes          []IndexDefinition
	ForeignKeys      []ForeignKeyDefinition
	UniqueConstraints []UniqueConstraintDefinition
}

// QualifiedName returns "schema.table", or just "table" if SchemaName is
// empty.
func (t TableDefinition) QualifiedName() string {
	if t.SchemaName == "" {
		return t.Name
	}
	return t.SchemaName + "." + t.Name
}

func (t TableDefinition) Validate() error {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		key := NormalizeIdentifier(c.Name)
		if seen[key] {
			return invalidf("table %s: duplicate column name %s", t.Name, c.Name)
		}
		seen[key] = true
		if err := c.Validate(); err != nil {
			return err
		}
	}
	for _, idx := range t.Indexes {
		if err := idx.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Definition is an ordered set of tables.
// Order is preserved from the Builder because creation order must satisfy
// FK dependencies; the diff package reuses this order when emitting
// creations.
type Definition struct {
	Tables []TableDefinition
}

func (d Definition) Validate() error {
	for _, t := range d.Tables {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Table looks up a table by case-insensitive name; ok is false if absent.
func (d Definition) Table(name string) (TableDefinition, bool) {
	for _, t := range d.Tables {
		if NormalizeIdentifier(t.Name) == NormalizeIdentifier(name) {
			return t, true
		}
	}
	return TableDefinition{}, false
}

// NormalizeIdentifier folds an identifier to its comparison key. All
// identifier comparisons in this module (table names, column names, index
// names, constraint names) go through this single function so that case
// sensitivity policy lives in one place.
func NormalizeIdentifier(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func invalidf(format string, args ...any) error {
	return syncerr.Invalid(format, args...)
}
