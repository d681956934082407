// Package inspector is the Schema Inspector: reads the live
// schema from an engine and produces a schema.Definition, the mirror image
// of what migrate.Render expects to apply. Split per engine (mysql,
// postgres, mssql, sqlite3), each populating the same declarative model
// instead of dumping SQL text.
package inspector

import (
	"context"

	"github.com/repldef/repldef/enginedb"
	"github.com/repldef/repldef/porttype"
	"github.com/repldef/repldef/schema"
	"github.com/repldef/repldef/syncerr"
)

// Inspect reads conn's live schema and returns it as a schema.Definition,
// in the comparison shape diff.Diff expects as "current".
func Inspect(ctx context.Context, conn *enginedb.Conn) (schema.Definition, error) {
	switch conn.Engine() {
	case porttype.MySQL:
		return inspectMySQL(ctx, conn)
	case porttype.SQLite3:
		return inspectSQLite(ctx, conn)
	case porttype.Postgres:
		return inspectPostgres(ctx, conn)
	case porttype.MSSQL:
		return inspectMSSQL(ctx, conn)
	default:
		return schema.Definition{}, syncerr.Invalid("inspector: unsupported engine %v", conn.Engine())
	}
}

func tableNames(ctx context.Context, conn *enginedb.Conn, query string, args ...any) ([]string, error) {
	rows, err := conn.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, syncerr.DB(err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, syncerr.DB(err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func columnErrf(table string, err error) error {
	return syncerr.Wrap(syncerr.Database, err, "inspector: reading columns for table %s", table)
}
