package schema

import "github.com/repldef/repldef/porttype"

// Builder assembles a Definition fluently, preserving the order tables are
// added in — the diff package relies on that order for FK-safe creation and
// drop ordering.
type Builder struct {
	def Definition
}

func NewBuilder() *Builder {
	return &Builder{}
}

// TableBuilder assembles one TableDefinition fluently.
type TableBuilder struct {
	parent *Builder
	table  TableDefinition
}

// Table starts a new table definition named name, unqualified (default
// schema).
func (b *Builder) Table(name string) *TableBuilder {
	return &TableBuilder{parent: b, table: TableDefinition{Name: name}}
}

// InSchema sets the table's schema qualifier.
func (tb *TableBuilder) InSchema(schemaName string) *TableBuilder {
	tb.table.SchemaName = schemaName
	return tb
}

// Column appends a nullable, non-identity column with no default.
func (tb *TableBuilder) Column(name string, t porttype.Type) *TableBuilder {
	tb.table.Columns = append(tb.table.Columns, ColumnDefinition{Name: name, Type: t, Nullable: true})
	return tb
}

// NotNullColumn appends a NOT NULL column.
func (tb *TableBuilder) NotNullColumn(name string, t porttype.Type) *TableBuilder {
	tb.table.Columns = append(tb.table.Columns, ColumnDefinition{Name: name, Type: t, Nullable: false})
	return tb
}

// IdentityColumn appends a NOT NULL auto-increment integer column.
func (tb *TableBuilder) IdentityColumn(name string, t porttype.Type) *TableBuilder {
	tb.table.Columns = append(tb.table.Columns, ColumnDefinition{Name: name, Type: t, Nullable: false, Identity: true})
	return tb
}

// ColumnWithDefault appends a column with a literal SQL default.
func (tb *TableBuilder) ColumnWithDefault(name string, t porttype.Type, nullable bool, literalSQL string) *TableBuilder {
	tb.table.Columns = append(tb.table.Columns, ColumnDefinition{
		Name: name, Type: t, Nullable: nullable, DefaultLiteralSQL: literalSQL,
	})
	return tb
}

// ColumnWithDefaultExpr appends a column whose default is expressed in the
// default-expression DSL, translated per-engine at DDL
// generation time.
func (tb *TableBuilder) ColumnWithDefaultExpr(name string, t porttype.Type, nullable bool, dsl string) *TableBuilder {
	tb.table.Columns = append(tb.table.Columns, ColumnDefinition{
		Name: name, Type: t, Nullable: nullable, DefaultExpressionDSL: dsl,
	})
	return tb
}

// PrimaryKey sets the (ordered) primary key columns.
func (tb *TableBuilder) PrimaryKey(columns ...string) *TableBuilder {
	tb.table.PrimaryKey = &PrimaryKeyDefinition{Columns: columns}
	return tb
}

// Index adds a named, non-unique column index.
func (tb *TableBuilder) Index(name string, columns ...string) *TableBuilder {
	tb.table.Indexes = append(tb.table.Indexes, IndexDefinition{Name: name, Columns: columns})
	return tb
}

// UniqueIndex adds a named unique column index.
func (tb *TableBuilder) UniqueIndex(name string, columns ...string) *TableBuilder {
	tb.table.Indexes = append(tb.table.Indexes, IndexDefinition{Name: name, Unique: true, Columns: columns})
	return tb
}

// ExpressionIndex adds a named index over expressions rather than bare
// columns (e.g. a functional index).
func (tb *TableBuilder) ExpressionIndex(name string, expressions ...string) *TableBuilder {
	tb.table.Indexes = append(tb.table.Indexes, IndexDefinition{Name: name, Expressions: expressions})
	return tb
}

// ForeignKey adds a named foreign key.
func (tb *TableBuilder) ForeignKey(name string, localColumns []string, referencedTable string, referencedColumns []string, onDelete, onUpdate ForeignKeyAction) *TableBuilder {
	tb.table.ForeignKeys = append(tb.table.ForeignKeys, ForeignKeyDefinition{
		Name: name, LocalColumns: localColumns, ReferencedTable: referencedTable,
		ReferencedColumns: referencedColumns, OnDelete: onDelete, OnUpdate: onUpdate,
	})
	return tb
}

// UniqueConstraint adds a named unique constraint.
func (tb *TableBuilder) UniqueConstraint(name string, columns ...string) *TableBuilder {
	tb.table.UniqueConstraints = append(tb.table.UniqueConstraints, UniqueConstraintDefinition{Name: name, Columns: columns})
	return tb
}

// Done finishes the table and returns to the parent Builder.
func (tb *TableBuilder) Done() *Builder {
	tb.parent.def.Tables = append(tb.parent.def.Tables, tb.table)
	return tb.parent
}

// Build validates and returns the assembled Definition.
func (b *Builder) Build() (Definition, error) {
	if err := b.def.Validate(); err != nil {
		return Definition{}, err
	}
	return b.def, nil
}
