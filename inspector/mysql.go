package inspector

import (
	"context"
	"strings"

	"github.com/repldef/repldef/enginedb"
	"github.com/repldef/repldef/porttype"
	"github.com/repldef/repldef/schema"
	"github.com/repldef/repldef/util"
)

func inspectMySQL(ctx context.Context, conn *enginedb.Conn) (schema.Definition, error) {
	names, err := tableNames(ctx, conn,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name`)
	if err != nil {
		return schema.Definition{}, err
	}

	var def schema.Definition
	for _, name := range names {
		table, err := inspectMySQLTable(ctx, conn, name)
		if err != nil {
			return schema.Definition{}, err
		}
		def.Tables = append(def.Tables, table)
	}
	return def, nil
}

func inspectMySQLTable(ctx context.Context, conn *enginedb.Conn, name string) (schema.TableDefinition, error) {
	table := schema.TableDefinition{Name: name}

	rows, err := conn.DB().QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable, column_type, column_default, extra
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`, name)
	if err != nil {
		return table, columnErrf(name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var colName, dataType, isNullable, columnType, extra string
		var columnDefault *string
		if err := rows.Scan(&colName, &dataType, &isNullable, &columnType, &columnDefault, &extra); err != nil {
			return table, columnErrf(name, err)
		}
		col := schema.ColumnDefinition{
			Name:     colName,
			Type:     mysqlPortableType(dataType, columnType),
			Nullable: isNullable == "YES",
			Identity: strings.Contains(extra, "auto_increment"),
		}
		if columnDefault != nil {
			col.DefaultLiteralSQL = *columnDefault
		}
		table.Columns = append(table.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return table, columnErrf(name, err)
	}

	pkCols, err := mysqlPrimaryKeyColumns(ctx, conn, name)
	if err != nil {
		return table, err
	}
	if len(pkCols) > 0 {
		table.PrimaryKey = &schema.PrimaryKeyDefinition{Columns: pkCols}
	}

	indexes, err := mysqlIndexes(ctx, conn, name)
	if err != nil {
		return table, err
	}
	table.Indexes = indexes

	fks, err := mysqlForeignKeys(ctx, conn, name)
	if err != nil {
		return table, err
	}
	table.ForeignKeys = fks

	return table, nil
}

func mysqlPrimaryKeyColumns(ctx context.Context, conn *enginedb.Conn, table string) ([]string, error) {
	rows, err := conn.DB().QueryContext(ctx, `
		SELECT column_name FROM information_schema.key_column_usage
		WHERE table_schema = DATABASE() AND table_name = ? AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, columnErrf(table, err)
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, columnErrf(table, err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func mysqlIndexes(ctx context.Context, conn *enginedb.Conn, table string) ([]schema.IndexDefinition, error) {
	rows, err := conn.DB().QueryContext(ctx, `
		SELECT index_name, non_unique, column_name
		FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = ? AND index_name != 'PRIMARY'
		ORDER BY index_name, seq_in_index`, table)
	if err != nil {
		return nil, columnErrf(table, err)
	}
	defer rows.Close()

	order := []string{}
	byName := map[string]*schema.IndexDefinition{}
	for rows.Next() {
		var indexName string
		var nonUnique int
		var columnName string
		if err := rows.Scan(&indexName, &nonUnique, &columnName); err != nil {
			return nil, columnErrf(table, err)
		}
		idx, ok := byName[indexName]
		if !ok {
			idx = &schema.IndexDefinition{Name: indexName, Unique: nonUnique == 0}
			byName[indexName] = idx
			order = append(order, indexName)
		}
		idx.Columns = append(idx.Columns, columnName)
	}
	if err := rows.Err(); err != nil {
		return nil, columnErrf(table, err)
	}

	return util.TransformSlice(order, func(name string) schema.IndexDefinition { return *byName[name] }), nil
}

func mysqlForeignKeys(ctx context.Context, conn *enginedb.Conn, table string) ([]schema.ForeignKeyDefinition, error) {
	rows, err := conn.DB().QueryContext(ctx, `
		SELECT k.constraint_name, k.column_name, k.referenced_table_name, k.referenced_column_name,
		       r.delete_rule, r.update_rule
		FROM information_schema.key_column_usage k
		JOIN information_schema.referential_constraints r
		  ON r.constraint_name = k.constraint_name AND r.constraint_schema = k.table_schema
		WHERE k.table_schema = DATABASE() AND k.table_name = ? AND k.referenced_table_name IS NOT NULL
		ORDER BY k.constraint_name, k.ordinal_position`, table)
	if err != nil {
		return nil, columnErrf(table, err)
	}
	defer rows.Close()

	order := []string{}
	byName := map[string]*schema.ForeignKeyDefinition{}
	for rows.Next() {
		var name, localCol, refTable, refCol, deleteRule, updateRule string
		if err := rows.Scan(&name, &localCol, &refTable, &refCol, &deleteRule, &updateRule); err != nil {
			return nil, columnErrf(table, err)
		}
		fk, ok := byName[name]
		if !ok {
			fk = &schema.ForeignKeyDefinition{
				Name: name, ReferencedTable: refTable,
				OnDelete: parseFKAction(deleteRule), OnUpdate: parseFKAction(updateRule),
			}
			byName[name] = fk
			order = append(order, name)
		}
		fk.LocalColumns = append(fk.LocalColumns, localCol)
		fk.ReferencedColumns = append(fk.ReferencedColumns, refCol)
	}
	if err := rows.Err(); err != nil {
		return nil, columnErrf(table, err)
	}

	return util.TransformSlice(order, func(name string) schema.ForeignKeyDefinition { return *byName[name] }), nil
}

func parseFKAction(rule string) schema.ForeignKeyAction {
	switch strings.ToUpper(rule) {
	case "CASCADE":
		return schema.Cascade
	case "SET NULL":
		return schema.SetNull
	case "SET DEFAULT":
		return schema.SetDefault
	case "RESTRICT":
		return schema.Restrict
	default:
		return schema.NoAction
	}
}

// mysqlPortableType maps MySQL's data_type/column_type back to the closest
// PortableType. This is necessarily lossy (e.g. unsigned width); the
// round-trip only requires diff(inspect(apply(diff(...))), desired) == [],
// not byte-for-byte type equality.
func mysqlPortableType(dataType, columnType string) porttype.Type {
	switch dataType {
	case "tinyint":
		if strings.Contains(columnType, "tinyint(1)") {
			return porttype.Boolean()
		}
		return porttype.Integer(16)
	case "smallint":
		return porttype.Integer(16)
	case "int", "mediumint":
		return porttype.Integer(32)
	case "bigint":
		return porttype.Integer(64)
	case "decimal":
		return porttype.Decimal(18, 2)
	case "float":
		return porttype.Float()
	case "double":
		return porttype.Double()
	case "char":
		return porttype.Char(extractLen(columnType))
	case "varchar":
		return porttype.VarChar(extractLen(columnType))
	case "text", "mediumtext", "longtext":
		return porttype.Text()
	case "binary":
		return porttype.Binary(extractLen(columnType))
	case "varbinary":
		return porttype.VarBinary(extractLen(columnType))
	case "blob", "mediumblob", "longblob":
		return porttype.Blob()
	case "date":
		return porttype.Date()
	case "time":
		return porttype.Time()
	case "datetime":
		return porttype.DateTime()
	case "timestamp":
		return porttype.DateTimeOffset()
	case "json":
		return porttype.Json()
	default:
		return porttype.Text()
	}
}

func extractLen(columnType string) int {
	open := strings.IndexByte(columnType, '(')
	shut := strings.IndexByte(columnType, ')')
	if open < 0 || shut < 0 || shut <= open+1 {
		return 255
	}
	n := 0
	for _, r := range columnType[open+1 : shut] {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	if n == 0 {
		return 255
	}
	return n
}
