package inspector

import (
	"context"
	"strings"

	"github.com/repldef/repldef/enginedb"
	"github.com/repldef/repldef/porttype"
	"github.com/repldef/repldef/schema"
	"github.com/repldef/repldef/util"
)

func inspectSQLite(ctx context.Context, conn *enginedb.Conn) (schema.Definition, error) {
	names, err := tableNames(ctx, conn,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return schema.Definition{}, err
	}

	var def schema.Definition
	for _, name := range names {
		table, err := inspectSQLiteTable(ctx, conn, name)
		if err != nil {
			return schema.Definition{}, err
		}
		def.Tables = append(def.Tables, table)
	}
	return def, nil
}

func inspectSQLiteTable(ctx context.Context, conn *enginedb.Conn, name string) (schema.TableDefinition, error) {
	table := schema.TableDefinition{Name: name}

	rows, err := conn.DB().QueryContext(ctx, `PRAGMA table_info(`+quoteIdent(name)+`)`)
	if err != nil {
		return table, columnErrf(name, err)
	}
	defer rows.Close()

	var pkCols []struct {
		pos  int
		name string
	}
	for rows.Next() {
		var cid int
		var colName, colType string
		var notNull int
		var dfltValue *string
		var pk int
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dfltValue, &pk); err != nil {
			return table, columnErrf(name, err)
		}
		col := schema.ColumnDefinition{
			Name:     colName,
			Type:     sqlitePortableType(colType),
			Nullable: notNull == 0,
			Identity: pk == 1 && strings.EqualFold(colType, "integer"),
		}
		if dfltValue != nil {
			col.DefaultLiteralSQL = *dfltValue
		}
		table.Columns = append(table.Columns, col)
		if pk > 0 {
			pkCols = append(pkCols, struct {
				pos  int
				name string
			}{pk, colName})
		}
	}
	if err := rows.Err(); err != nil {
		return table, columnErrf(name, err)
	}

	if len(pkCols) > 0 {
		cols := make([]string, len(pkCols))
		for _, c := range pkCols {
			cols[c.pos-1] = c.name
		}
		table.PrimaryKey = &schema.PrimaryKeyDefinition{Columns: cols}
	}

	indexes, err := sqliteIndexes(ctx, conn, name)
	if err != nil {
		return table, err
	}
	table.Indexes = indexes

	fks, err := sqliteForeignKeys(ctx, conn, name)
	if err != nil {
		return table, err
	}
	table.ForeignKeys = fks

	return table, nil
}

func sqliteIndexes(ctx context.Context, conn *enginedb.Conn, table string) ([]schema.IndexDefinition, error) {
	rows, err := conn.DB().QueryContext(ctx, `PRAGMA index_list(`+quoteIdent(table)+`)`)
	if err != nil {
		return nil, columnErrf(table, err)
	}
	defer rows.Close()

	type idxMeta struct {
		name   string
		unique bool
	}
	var metas []idxMeta
	for rows.Next() {
		var seq int
		var name string
		var unique int
		var origin, partial string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, columnErrf(table, err)
		}
		if origin == "pk" {
			continue // primary key index, already captured via table_info
		}
		metas = append(metas, idxMeta{name: name, unique: unique == 1})
	}
	if err := rows.Err(); err != nil {
		return nil, columnErrf(table, err)
	}

	out := make([]schema.IndexDefinition, 0, len(metas))
	for _, m := range metas {
		cols, err := sqliteIndexColumns(ctx, conn, m.name)
		if err != nil {
			return nil, err
		}
		out = append(out, schema.IndexDefinition{Name: m.name, Unique: m.unique, Columns: cols})
	}
	return out, nil
}

func sqliteIndexColumns(ctx context.Context, conn *enginedb.Conn, indexName string) ([]string, error) {
	rows, err := conn.DB().QueryContext(ctx, `PRAGMA index_info(`+quoteIdent(indexName)+`)`)
	if err != nil {
		return nil, columnErrf(indexName, err)
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var seqno, cid int
		var name string
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, columnErrf(indexName, err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func sqliteForeignKeys(ctx context.Context, conn *enginedb.Conn, table string) ([]schema.ForeignKeyDefinition, error) {
	rows, err := conn.DB().QueryContext(ctx, `PRAGMA foreign_key_list(`+quoteIdent(table)+`)`)
	if err != nil {
		return nil, columnErrf(table, err)
	}
	defer rows.Close()

	order := []int{}
	byID := map[int]*schema.ForeignKeyDefinition{}
	for rows.Next() {
		var id, seq int
		var refTable, from, to, onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, columnErrf(table, err)
		}
		fk, ok := byID[id]
		if !ok {
			fk = &schema.ForeignKeyDefinition{
				Name:            tableFKName(table, id),
				ReferencedTable: refTable,
				OnDelete:        parseFKAction(onDelete),
				OnUpdate:        parseFKAction(onUpdate),
			}
			byID[id] = fk
			order = append(order, id)
		}
		fk.LocalColumns = append(fk.LocalColumns, from)
		fk.ReferencedColumns = append(fk.ReferencedColumns, to)
	}
	if err := rows.Err(); err != nil {
		return nil, columnErrf(table, err)
	}

	return util.TransformSlice(order, func(id int) schema.ForeignKeyDefinition { return *byID[id] }), nil
}

// tableFKName synthesizes a stable name for an sqlite foreign key, which
// has no name of its own in PRAGMA foreign_key_list. Since diff matches FKs
// by name, a caller round-tripping a schema through sqlite should name its
// FKs consistently with this scheme, or treat sqlite FK diffing as
// best-effort only (documented limitation).
func tableFKName(table string, id int) string {
	return "fk_" + table + "_" + itoa(id)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqlitePortableType(declType string) porttype.Type {
	t := strings.ToLower(declType)
	switch {
	case strings.Contains(t, "int"):
		return porttype.Integer(64)
	case strings.Contains(t, "char"), strings.Contains(t, "clob"), strings.Contains(t, "text"):
		return porttype.Text()
	case strings.Contains(t, "blob"), t == "":
		return porttype.Blob()
	case strings.Contains(t, "real"), strings.Contains(t, "floa"), strings.Contains(t, "doub"):
		return porttype.Double()
	case strings.Contains(t, "bool"):
		return porttype.Boolean()
	default:
		return porttype.Decimal(18, 2)
	}
}
