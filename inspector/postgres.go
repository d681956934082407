package inspector

import (
	"context"
	"strings"

	"github.com/repldef/repldef/enginedb"
	"github.com/repldef/repldef/porttype"
	"github.com/repldef/repldef/schema"
	"github.com/repldef/repldef/util"
)

func inspectPostgres(ctx context.Context, conn *enginedb.Conn) (schema.Definition, error) {
	names, err := tableNames(ctx, conn,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = 'public' AND table_type = 'BASE TABLE' ORDER BY table_name`)
	if err != nil {
		return schema.Definition{}, err
	}

	var def schema.Definition
	for _, name := range names {
		table, err := inspectPostgresTable(ctx, conn, name)
		if err != nil {
			return schema.Definition{}, err
		}
		def.Tables = append(def.Tables, table)
	}
	return def, nil
}

func inspectPostgresTable(ctx context.Context, conn *enginedb.Conn, name string) (schema.TableDefinition, error) {
	table := schema.TableDefinition{Name: name}

	rows, err := conn.DB().QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable, character_maximum_length,
		       numeric_precision, numeric_scale, column_default
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, name)
	if err != nil {
		return table, columnErrf(name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var colName, dataType, isNullable string
		var charLen, numPrecision, numScale *int
		var columnDefault *string
		if err := rows.Scan(&colName, &dataType, &isNullable, &charLen, &numPrecision, &numScale, &columnDefault); err != nil {
			return table, columnErrf(name, err)
		}
		col := schema.ColumnDefinition{
			Name:     colName,
			Type:     postgresPortableType(dataType, charLen, numPrecision, numScale),
			Nullable: isNullable == "YES",
		}
		if columnDefault != nil {
			if strings.HasPrefix(*columnDefault, "nextval(") {
				col.Identity = true
			} else {
				col.DefaultLiteralSQL = *columnDefault
			}
		}
		table.Columns = append(table.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return table, columnErrf(name, err)
	}

	pkCols, err := postgresPrimaryKeyColumns(ctx, conn, name)
	if err != nil {
		return table, err
	}
	if len(pkCols) > 0 {
		table.PrimaryKey = &schema.PrimaryKeyDefinition{Columns: pkCols}
	}

	indexes, err := postgresIndexes(ctx, conn, name)
	if err != nil {
		return table, err
	}
	table.Indexes = indexes

	fks, err := postgresForeignKeys(ctx, conn, name)
	if err != nil {
		return table, err
	}
	table.ForeignKeys = fks

	return table, nil
}

func postgresPrimaryKeyColumns(ctx context.Context, conn *enginedb.Conn, table string) ([]string, error) {
	rows, err := conn.DB().QueryContext(ctx, `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE i.indrelid = $1::regclass AND i.indisprimary
		ORDER BY array_position(i.indkey, a.attnum)`, table)
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

func postgresIndexes(ctx context.Context, conn *enginedb.Conn, table string) ([]schema.IndexDefinition, error) {
	rows, err := conn.DB().QueryContext(ctx, `
		SELECT ix.relname, i.indisunique, a.attname
		FROM pg_index i
		JOIN pg_class ix ON ix.oid = i.indexrelid
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE i.indrelid = $1::regclass AND NOT i.indisprimary
		ORDER BY ix.relname, array_position(i.indkey, a.attnum)`, table)
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

func postgresForeignKeys(ctx context.Context, conn *enginedb.Conn, table string) ([]schema.ForeignKeyDefinition, error) {
	rows, err := conn.DB().QueryContext(ctx, `
		SELECT con.conname, con.confrelid::regclass::text,
		       a.attname AS local_col, af.attname AS ref_col,
		       con.confdeltype, con.confupdtype
		FROM pg_constraint con
		JOIN unnest(con.conkey) WITH ORDINALITY AS ck(attnum, ord) ON true
		JOIN unnest(con.confkey) WITH ORDINALITY AS cfk(attnum, ord) ON cfk.ord = ck.ord
		JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = ck.attnum
		JOIN pg_attribute af ON af.attrelid = con.confrelid AND af.attnum = cfk.attnum
		WHERE con.contype = 'f' AND con.conrelid = $1::regclass
		ORDER BY con.conname, ck.ord`, table)
	if err != nil {
		return nil, columnErrf(table, err)
	}
	defer rows.Close()

	order := []string{}
	byName := map[string]*schema.ForeignKeyDefinition{}
	for rows.Next() {
		var name, refTable, localCol, refCol, deleteRule, updateRule string
		if err := rows.Scan(&name, &refTable, &localCol, &refCol, &deleteRule, &updateRule); err != nil {
			return nil, columnErrf(table, err)
		}
		fk, ok := byName[name]
		if !ok {
			fk = &schema.ForeignKeyDefinition{
				Name: name, ReferencedTable: refTable,
				OnDelete: parsePostgresFKAction(deleteRule), OnUpdate: parsePostgresFKAction(updateRule),
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

func parsePostgresFKAction(code string) schema.ForeignKeyAction {
	switch code {
	case "c":
		return schema.Cascade
	case "n":
		return schema.SetNull
	case "d":
		return schema.SetDefault
	case "r":
		return schema.Restrict
	default:
		return schema.NoAction
	}
}

func postgresPortableType(dataType string, charLen, numPrecision, numScale *int) porttype.Type {
	switch dataType {
	case "smallint":
		return porttype.Integer(16)
	case "integer":
		return porttype.Integer(32)
	case "bigint":
		return porttype.Integer(64)
	case "numeric":
		p, s := 18, 2
		if numPrecision != nil {
			p = *numPrecision
		}
		if numScale != nil {
			s = *numScale
		}
		return porttype.Decimal(p, s)
	case "real":
		return porttype.Float()
	case "double precision":
		return porttype.Double()
	case "money":
		return porttype.Money()
	case "boolean":
		return porttype.Boolean()
	case "character":
		return porttype.Char(derefOr(charLen, 1))
	case "character varying":
		return porttype.VarChar(derefOr(charLen, 255))
	case "text":
		return porttype.Text()
	case "bytea":
		return porttype.Blob()
	case "date":
		return porttype.Date()
	case "time without time zone":
		return porttype.Time()
	case "timestamp without time zone":
		return porttype.DateTime()
	case "timestamp with time zone":
		return porttype.DateTimeOffset()
	case "uuid":
		return porttype.Uuid()
	case "json", "jsonb":
		return porttype.Json()
	case "xml":
		return porttype.Xml()
	default:
		return porttype.Text()
	}
}

func derefOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
