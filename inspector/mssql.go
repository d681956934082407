package inspector

import (
	"context"

	"github.com/repldef/repldef/enginedb"
	"github.com/repldef/repldef/porttype"
	"github.com/repldef/repldef/schema"
	"github.com/repldef/repldef/util"
)

func inspectMSSQL(ctx context.Context, conn *enginedb.Conn) (schema.Definition, error) {
	names, err := tableNames(ctx, conn,
		`SELECT t.name FROM sys.tables t ORDER BY t.name`)
	if err != nil {
		return schema.Definition{}, err
	}

	var def schema.Definition
	for _, name := range names {
		table, err := inspectMSSQLTable(ctx, conn, name)
		if err != nil {
			return schema.Definition{}, err
		}
		def.Tables = append(def.Tables, table)
	}
	return def, nil
}

func inspectMSSQLTable(ctx context.Context, conn *enginedb.Conn, name string) (schema.TableDefinition, error) {
	table := schema.TableDefinition{Name: name}

	rows, err := conn.DB().QueryContext(ctx, `
		SELECT c.name, ty.name, c.is_nullable, c.max_length, c.precision, c.scale, c.is_identity,
		       OBJECT_DEFINITION(c.default_object_id)
		FROM sys.columns c
		JOIN sys.types ty ON ty.user_type_id = c.user_type_id
		WHERE c.object_id = OBJECT_ID(?)
		ORDER BY c.column_id`, name)
	if err != nil {
		return table, columnErrf(name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var colName, typeName string
		var nullable, identity bool
		var maxLength int16
		var precision, scale uint8
		var defaultExpr *string
		if err := rows.Scan(&colName, &typeName, &nullable, &maxLength, &precision, &scale, &identity, &defaultExpr); err != nil {
			return table, columnErrf(name, err)
		}
		col := schema.ColumnDefinition{
			Name:     colName,
			Type:     mssqlPortableType(typeName, int(maxLength), int(precision), int(scale)),
			Nullable: nullable,
			Identity: identity,
		}
		if defaultExpr != nil {
			col.DefaultLiteralSQL = *defaultExpr
		}
		table.Columns = append(table.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return table, columnErrf(name, err)
	}

	pkCols, err := mssqlPrimaryKeyColumns(ctx, conn, name)
	if err != nil {
		return table, err
	}
	if len(pkCols) > 0 {
		table.PrimaryKey = &schema.PrimaryKeyDefinition{Columns: pkCols}
	}

	indexes, err := mssqlIndexes(ctx, conn, name)
	if err != nil {
		return table, err
	}
	table.Indexes = indexes

	fks, err := mssqlForeignKeys(ctx, conn, name)
	if err != nil {
		return table, err
	}
	table.ForeignKeys = fks

	return table, nil
}

func mssqlPrimaryKeyColumns(ctx context.Context, conn *enginedb.Conn, table string) ([]string, error) {
	rows, err := conn.DB().QueryContext(ctx, `
		SELECT c.name
		FROM sys.index_columns ic
		JOIN sys.indexes i ON i.object_id = ic.object_id AND i.index_id = ic.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		WHERE ic.object_id = OBJECT_ID(?) AND i.is_primary_key = 1
		ORDER BY ic.key_ordinal`, table)
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

func mssqlIndexes(ctx context.Context, conn *enginedb.Conn, table string) ([]schema.IndexDefinition, error) {
	rows, err := conn.DB().QueryContext(ctx, `
		SELECT i.name, i.is_unique, c.name
		FROM sys.index_columns ic
		JOIN sys.indexes i ON i.object_id = ic.object_id AND i.index_id = ic.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		WHERE ic.object_id = OBJECT_ID(?) AND i.is_primary_key = 0 AND i.name IS NOT NULL
		ORDER BY i.name, ic.key_ordinal`, table)
	if err != nil {
		return nil, columnErrf(table, err)
	}
	defer rows.Close()

	order := []string{}
	byName := map[string]*schema.IndexDefinition{}
	for rows.Next() {
		var indexName string
		var unique bool
		var columnName string
		if err := rows.Scan(&indexName, &unique, &columnName); err != nil {
			return nil, columnErrf(table, err)
		}
		idx, ok := byName[indexName]
		if !ok {
			idx = &schema.IndexDefinition{Name: indexName, Unique: unique}
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

func mssqlForeignKeys(ctx context.Context, conn *enginedb.Conn, table string) ([]schema.ForeignKeyDefinition, error) {
	rows, err := conn.DB().QueryContext(ctx, `
		SELECT fk.name, OBJECT_NAME(fk.referenced_object_id),
		       pc.name, rc.name, fk.delete_referential_action, fk.update_referential_action
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
		JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
		WHERE fk.parent_object_id = OBJECT_ID(?)
		ORDER BY fk.name, fkc.constraint_column_id`, table)
	if err != nil {
		return nil, columnErrf(table, err)
	}
	defer rows.Close()

	order := []string{}
	byName := map[string]*schema.ForeignKeyDefinition{}
	for rows.Next() {
		var name, refTable, localCol, refCol string
		var deleteAction, updateAction uint8
		if err := rows.Scan(&name, &refTable, &localCol, &refCol, &deleteAction, &updateAction); err != nil {
			return nil, columnErrf(table, err)
		}
		fk, ok := byName[name]
		if !ok {
			fk = &schema.ForeignKeyDefinition{
				Name: name, ReferencedTable: refTable,
				OnDelete: parseMSSQLFKAction(deleteAction), OnUpdate: parseMSSQLFKAction(updateAction),
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

func parseMSSQLFKAction(code uint8) schema.ForeignKeyAction {
	switch code {
	case 0:
		return schema.NoAction
	case 1:
		return schema.Cascade
	case 2:
		return schema.SetNull
	case 3:
		return schema.SetDefault
	default:
		return schema.NoAction
	}
}

func mssqlPortableType(typeName string, maxLength, precision, scale int) porttype.Type {
	switch typeName {
	case "bit":
		return porttype.Boolean()
	case "tinyint", "smallint":
		return porttype.Integer(16)
	case "int":
		return porttype.Integer(32)
	case "bigint":
		return porttype.Integer(64)
	case "decimal", "numeric":
		return porttype.Decimal(precision, scale)
	case "money", "smallmoney":
		return porttype.Money()
	case "real":
		return porttype.Float()
	case "float":
		return porttype.Double()
	case "char":
		return porttype.Char(maxLength)
	case "varchar":
		return porttype.VarChar(varcharLen(maxLength))
	case "nchar":
		return porttype.NChar(maxLength / 2)
	case "nvarchar":
		return porttype.NVarChar(varcharLen(maxLength / 2))
	case "text", "ntext":
		return porttype.Text()
	case "binary":
		return porttype.Binary(maxLength)
	case "varbinary":
		return porttype.VarBinary(varcharLen(maxLength))
	case "image":
		return porttype.Blob()
	case "date":
		return porttype.Date()
	case "time":
		return porttype.Time()
	case "datetime", "datetime2", "smalldatetime":
		return porttype.DateTime()
	case "datetimeoffset":
		return porttype.DateTimeOffset()
	case "uniqueidentifier":
		return porttype.Uuid()
	case "xml":
		return porttype.Xml()
	default:
		return porttype.Text()
	}
}

// varcharLen turns sys.columns' max_length of -1 (the MAX sentinel for
// varchar(max)/nvarchar(max)/varbinary(max)) into 0, which Type.N already
// treats as unspecified/max.
func varcharLen(maxLength int) int {
	if maxLength < 0 {
		return 0
	}
	return maxLength
}
