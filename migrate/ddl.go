// Package migrate is the DDL Generator & Runner: it renders
// diff.Operations into idempotent, per-engine DDL and applies them inside a
// transactional shell, split between DDL construction (Render) and
// execution (Runner.Apply).
package migrate

import (
	"fmt"
	"strings"

	"github.com/repldef/repldef/defaultexpr"
	"github.com/repldef/repldef/diff"
	"github.com/repldef/repldef/porttype"
	"github.com/repldef/repldef/schema"
	"github.com/repldef/repldef/syncerr"
)

// Render returns the idempotent DDL statement for op on engine. "Idempotent"
// here means safe to describe as the single statement that performs the
// change; existence guards (IF NOT EXISTS and friends) are applied where the
// engine supports them in DDL position. MSSQL gets no such clause: Runner
// pre-checks CREATE TABLE there, and every other MSSQL statement runs
// unguarded.
func Render(op diff.Operation, engine porttype.Engine) (string, error) {
	switch op.Kind {
	case diff.CreateTable:
		return renderCreateTable(op.Table, engine)
	case diff.DropTable:
		return renderDropTable(op.Table.QualifiedName(), engine), nil
	case diff.AddColumn:
		return renderAddColumn(op.TableName, op.Column, engine)
	case diff.DropColumn:
		return renderDropColumn(op.TableName, op.ColumnName, engine), nil
	case diff.CreateIndex:
		return renderCreateIndex(op.TableName, op.Index, engine)
	case diff.DropIndex:
		return renderDropIndex(op.TableName, op.IndexName, engine), nil
	case diff.AddForeignKey:
		return renderAddForeignKey(op.TableName, op.ForeignKey, engine)
	case diff.DropForeignKey:
		return renderDropForeignKey(op.TableName, op.ForeignKeyName, engine), nil
	case diff.AddUniqueConstraint:
		return renderAddUniqueConstraint(op.TableName, op.UniqueConstraint, engine)
	case diff.DropUniqueConstraint:
		return renderDropUniqueConstraint(op.TableName, op.UniqueConstraintName, engine), nil
	default:
		return "", syncerr.Invalid("migrate: unknown operation kind %v", op.Kind)
	}
}

// RenderAll renders every op in order, stopping at the first error.
func RenderAll(ops []diff.Operation, engine porttype.Engine) ([]string, error) {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		ddl, err := Render(op, engine)
		if err != nil {
			return nil, err
		}
		out = append(out, ddl)
	}
	return out, nil
}

func renderCreateTable(t schema.TableDefinition, engine porttype.Engine) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s%s (", ifNotExistsClause(engine), quoteTable(t.QualifiedName(), engine))

	var parts []string
	for _, c := range t.Columns {
		colDDL, err := renderColumnDef(c, engine)
		if err != nil {
			return "", err
		}
		parts = append(parts, colDDL)
	}
	if t.PrimaryKey != nil && len(t.PrimaryKey.Columns) > 0 {
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", quoteColumnList(t.PrimaryKey.Columns, engine)))
	}
	for _, uc := range t.UniqueConstraints {
		parts = append(parts, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", quoteIdent(uc.Name, engine), quoteColumnList(uc.Columns, engine)))
	}
	for _, fk := range t.ForeignKeys {
		parts = append(parts, foreignKeyClause(fk, engine))
	}

	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(")")
	return b.String(), nil
}

func renderColumnDef(c schema.ColumnDefinition, engine porttype.Engine) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", quoteIdent(c.Name, engine), c.Type.Render(engine))
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.Identity {
		b.WriteString(" " + identityClause(engine))
	}
	if c.DefaultLiteralSQL != "" {
		fmt.Fprintf(&b, " DEFAULT %s", c.DefaultLiteralSQL)
	} else if c.DefaultExpressionDSL != "" {
		expr, err := defaultexpr.Translate(c.DefaultExpressionDSL, engine)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, " DEFAULT %s", expr)
	}
	return b.String(), nil
}

func identityClause(engine porttype.Engine) string {
	switch engine {
	case porttype.MySQL:
		return "AUTO_INCREMENT"
	case porttype.Postgres:
		return "GENERATED ALWAYS AS IDENTITY"
	case porttype.MSSQL:
		return "IDENTITY(1,1)"
	case porttype.SQLite3:
		return "PRIMARY KEY AUTOINCREMENT"
	default:
		return ""
	}
}

func renderDropTable(qualifiedName string, engine porttype.Engine) string {
	return fmt.Sprintf("DROP TABLE %s%s", ifExistsClause(engine), quoteTable(qualifiedName, engine))
}

func renderAddColumn(table string, c schema.ColumnDefinition, engine porttype.Engine) (string, error) {
	colDDL, err := renderColumnDef(c, engine)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quoteTable(table, engine), colDDL), nil
}

func renderDropColumn(table, column string, engine porttype.Engine) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", quoteTable(table, engine), quoteIdent(column, engine))
}

func renderCreateIndex(table string, idx schema.IndexDefinition, engine porttype.Engine) (string, error) {
	var target string
	switch {
	case len(idx.Columns) > 0:
		target = quoteColumnList(idx.Columns, engine)
	case len(idx.Expressions) > 0:
		target = strings.Join(idx.Expressions, ", ")
	default:
		return "", syncerr.Invalid("migrate: index %s has no columns or expressions", idx.Name)
	}
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s%s ON %s (%s)",
		unique, ifNotExistsClause(engine), quoteIdent(idx.Name, engine), quoteTable(table, engine),
		target), nil
}

func renderDropIndex(table, indexName string, engine porttype.Engine) string {
	switch engine {
	case porttype.MySQL:
		return fmt.Sprintf("DROP INDEX %s ON %s", quoteIdent(indexName, engine), quoteTable(table, engine))
	case porttype.MSSQL:
		return fmt.Sprintf("DROP INDEX %s ON %s", quoteIdent(indexName, engine), quoteTable(table, engine))
	default:
		return fmt.Sprintf("DROP INDEX %s%s", ifExistsClause(engine), quoteIdent(indexName, engine))
	}
}

func renderAddForeignKey(table string, fk schema.ForeignKeyDefinition, engine porttype.Engine) (string, error) {
	if len(fk.LocalColumns) == 0 || len(fk.LocalColumns) != len(fk.ReferencedColumns) {
		return "", syncerr.Invalid("migrate: foreign key %s has mismatched column lists", fk.Name)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD %s", quoteTable(table, engine), foreignKeyClause(fk, engine)), nil
}

func foreignKeyClause(fk schema.ForeignKeyDefinition, engine porttype.Engine) string {
	return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
		quoteIdent(fk.Name, engine), quoteColumnList(fk.LocalColumns, engine),
		quoteTable(fk.ReferencedTable, engine), quoteColumnList(fk.ReferencedColumns, engine),
		renderFKAction(fk.OnDelete), renderFKAction(fk.OnUpdate))
}

func renderFKAction(a schema.ForeignKeyAction) string {
	switch a {
	case schema.Cascade:
		return "CASCADE"
	case schema.SetNull:
		return "SET NULL"
	case schema.SetDefault:
		return "SET DEFAULT"
	case schema.Restrict:
		return "RESTRICT"
	default:
		return "NO ACTION"
	}
}

func renderDropForeignKey(table, name string, engine porttype.Engine) string {
	clause := "CONSTRAINT"
	if engine == porttype.MySQL {
		clause = "FOREIGN KEY"
	}
	return fmt.Sprintf("ALTER TABLE %s DROP %s %s", quoteTable(table, engine), clause, quoteIdent(name, engine))
}

func renderAddUniqueConstraint(table string, uc schema.UniqueConstraintDefinition, engine porttype.Engine) (string, error) {
	if len(uc.Columns) == 0 {
		return "", syncerr.Invalid("migrate: unique constraint %s has no columns", uc.Name)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)",
		quoteTable(table, engine), quoteIdent(uc.Name, engine), quoteColumnList(uc.Columns, engine)), nil
}

func renderDropUniqueConstraint(table, name string, engine porttype.Engine) string {
	clause := "CONSTRAINT"
	if engine == porttype.MySQL {
		clause = "INDEX"
	}
	return fmt.Sprintf("ALTER TABLE %s DROP %s %s", quoteTable(table, engine), clause, quoteIdent(name, engine))
}

// ifNotExistsClause returns "IF NOT EXISTS " where the engine supports it in
// this DDL position. MSSQL does not; Runner guards CREATE TABLE itself with a
// sys.tables existence check before executing, while CREATE INDEX on MSSQL
// has no guard.
func ifNotExistsClause(engine porttype.Engine) string {
	if engine == porttype.MSSQL {
		return ""
	}
	return "IF NOT EXISTS "
}

func ifExistsClause(engine porttype.Engine) string {
	if engine == porttype.MSSQL {
		return ""
	}
	return "IF EXISTS "
}

func quoteIdent(name string, engine porttype.Engine) string {
	switch engine {
	case porttype.MySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	case porttype.MSSQL:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

func quoteTable(qualifiedName string, engine porttype.Engine) string {
	parts := strings.SplitN(qualifiedName, ".", 2)
	for i, p := range parts {
		parts[i] = quoteIdent(p, engine)
	}
	return strings.Join(parts, ".")
}

func quoteColumnList(cols []string, engine porttype.Engine) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c, engine)
	}
	return strings.Join(quoted, ", ")
}
