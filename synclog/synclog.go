// Package synclog is the Change Log Store: the
// append-only log table plus origin/session/client metadata tables, and the
// DAO that reads and writes them. Table and column names are normative
// so two peers installed by this module interoperate through a
// shared backing store.
package synclog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/repldef/repldef/enginedb"
	"github.com/repldef/repldef/porttype"
	"github.com/repldef/repldef/syncerr"
)

// Operation is the kind of change one log entry records.
type Operation string

const (
	Insert Operation = "insert"
	Update Operation = "update"
	Delete Operation = "delete"
)

// Entry is one SyncLogEntry. Version is assigned by the store at
// insertion and is the unique primary key within that store; sorting by
// Version reproduces causal local order.
type Entry struct {
	Version   int64           `json:"version"`
	TableName string          `json:"table"`
	PKValue   json.RawMessage `json:"pk"`
	Operation Operation       `json:"op"`
	Payload   json.RawMessage `json:"payload"`
	Origin    string          `json:"origin"`
	Timestamp string          `json:"ts"` // RFC3339
}

// State is the SyncState key/value row set: originId,
// lastServerVersion, lastPushVersion.
type State struct {
	OriginID          string
	LastServerVersion int64
	LastPushVersion   int64
}

// Client is a server-side record of a known peer.
type Client struct {
	OriginID         string
	LastSyncVersion  int64
	LastSyncTimestamp time.Time
	CreatedAt        time.Time
}

// DDL for the four metadata tables. Names and columns are
// normative; identifier syntax is engine-specific only for autoincrement
// and quoting.
const (
	tableLog      = "_sync_log"
	tableState    = "_sync_state"
	tableSession  = "_sync_session"
	tableClients  = "_sync_clients"
)

// CreateTablesSQL returns the idempotent DDL statements installing the four
// metadata tables for engine, using each engine's own "IF NOT EXISTS"
// spelling. MSSQL has none, and its statements carry no existence guard:
// on MSSQL they succeed only while the tables and indexes do not exist yet.
func CreateTablesSQL(engine porttype.Engine) []string {
	autoIncrement := autoIncrementClause(engine)
	ifNotExists := "IF NOT EXISTS "
	if engine == porttype.MSSQL {
		// mssql lacks CREATE TABLE IF NOT EXISTS; these statements are
		// returned unguarded.
		ifNotExists = ""
	}

	return []string{
		fmt.Sprintf(`CREATE TABLE %s%s (
  version %s PRIMARY KEY,
  table_name %s NOT NULL,
  pk_value %s NOT NULL,
  operation %s NOT NULL,
  payload %s,
  origin %s NOT NULL,
  timestamp %s NOT NULL
)`, ifNotExists, tableLog, autoIncrement, varchar(engine, 255), jsonType(engine), varchar(engine, 16), jsonType(engine), varchar(engine, 64), varchar(engine, 32)),

		fmt.Sprintf(`CREATE INDEX %sidx_%s_version ON %s (version)`, ifNotExistsIndex(engine), tableLog, tableLog),
		fmt.Sprintf(`CREATE INDEX %sidx_%s_table_version ON %s (table_name, version)`, ifNotExistsIndex(engine), tableLog, tableLog),

		fmt.Sprintf(`CREATE TABLE %s%s (
  %s %s PRIMARY KEY,
  value %s
)`, ifNotExists, tableState, quoteKey(engine), varchar(engine, 64), varchar(engine, 255)),

		fmt.Sprintf(`CREATE TABLE %s%s (
  sync_active %s NOT NULL DEFAULT 0
)`, ifNotExists, tableSession, intType(engine)),

		fmt.Sprintf(`CREATE TABLE %s%s (
  origin_id %s PRIMARY KEY,
  last_sync_version %s NOT NULL DEFAULT 0,
  last_sync_timestamp %s,
  created_at %s
)`, ifNotExists, tableClients, varchar(engine, 64), bigintType(engine), varchar(engine, 32), varchar(engine, 32)),
	}
}

func ifNotExistsIndex(engine porttype.Engine) string {
	if engine == porttype.MSSQL {
		return ""
	}
	return "IF NOT EXISTS "
}

func autoIncrementClause(engine porttype.Engine) string {
	switch engine {
	case porttype.MySQL:
		return "bigint AUTO_INCREMENT"
	case porttype.Postgres:
		return "bigserial"
	case porttype.MSSQL:
		return "bigint IDENTITY(1,1)"
	case porttype.SQLite3:
		return "integer"
	default:
		return "bigint"
	}
}

func varchar(engine porttype.Engine, n int) string {
	return porttype.VarChar(n).Render(engine)
}

func jsonType(engine porttype.Engine) string {
	return porttype.Json().Render(engine)
}

func intType(engine porttype.Engine) string {
	return porttype.Integer(32).Render(engine)
}

func bigintType(engine porttype.Engine) string {
	return porttype.Integer(64).Render(engine)
}

func quoteKey(engine porttype.Engine) string {
	if engine == porttype.MySQL {
		return "`key`"
	}
	return `"key"`
}

// Append writes one log row via conn's *sql.DB or transaction handle,
// assigning Version via the engine's autoincrement/bigserial column. It does
// not consult suppression: callers (trigger-capture code, or a host
// emulating triggers) are expected to check Session.Suppressed() themselves
// before calling Append, so that one user write produces exactly one log
// row, or zero if suppressed.
func Append(ctx context.Context, execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, engine porttype.Engine, e Entry) (int64, error) {
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (table_name, pk_value, operation, payload, origin, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		tableLog)
	query = rebind(engine, query)

	var payload any
	if e.Payload != nil {
		payload = string(e.Payload)
	}

	result, err := execer.ExecContext(ctx, query, e.TableName, string(e.PKValue), string(e.Operation), payload, e.Origin, e.Timestamp)
	if err != nil {
		return 0, syncerr.DB(err)
	}
	if engine == porttype.Postgres {
		// lib/pq doesn't support LastInsertId; callers on Postgres should
		// use AppendReturning instead. Kept as a narrow, named limitation
		// rather than a silent wrong answer.
		return 0, syncerr.Invalid("synclog: use AppendReturning on postgres")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, syncerr.DB(err)
	}
	return id, nil
}

// AppendReturning is the Postgres-flavored Append using RETURNING version.
func AppendReturning(ctx context.Context, conn *enginedb.Conn, e Entry) (int64, error) {
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	var payload any
	if e.Payload != nil {
		payload = string(e.Payload)
	}
	var version int64
	query := fmt.Sprintf(`INSERT INTO %s (table_name, pk_value, operation, payload, origin, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING version`, tableLog)
	err := conn.DB().QueryRowContext(ctx, query, e.TableName, string(e.PKValue), string(e.Operation), payload, e.Origin, e.Timestamp).Scan(&version)
	if err != nil {
		return 0, syncerr.DB(err)
	}
	return version, nil
}

// rebind rewrites "?" placeholders to "$1, $2, ..." for Postgres.
func rebind(engine porttype.Engine, query string) string {
	if engine != porttype.Postgres {
		return query
	}
	n := 0
	out := make([]byte, 0, len(query)+8)
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, []byte(fmt.Sprintf("$%d", n))...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}

// LoadState reads the _sync_state row set. Missing keys default to zero
// values other than OriginID, which callers must initialize on first
// install.
func LoadState(ctx context.Context, conn *enginedb.Conn) (State, error) {
	rows, err := conn.DB().QueryContext(ctx, fmt.Sprintf(`SELECT %s, value FROM %s`, keyCol(conn.Engine()), tableState))
	if err != nil {
		return State{}, syncerr.DB(err)
	}
	defer rows.Close()

	var st State
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return State{}, syncerr.DB(err)
		}
		switch key {
		case "origin_id":
			st.OriginID = value
		case "last_server_version":
			fmt.Sscanf(value, "%d", &st.LastServerVersion)
		case "last_push_version":
			fmt.Sscanf(value, "%d", &st.LastPushVersion)
		}
	}
	return st, rows.Err()
}

func keyCol(engine porttype.Engine) string {
	if engine == porttype.MySQL {
		return "`key`"
	}
	return `"key"`
}

// SaveStateValue upserts one _sync_state key/value pair.
func SaveStateValue(ctx context.Context, conn *enginedb.Conn, key, value string) error {
	var query string
	switch conn.Engine() {
	case porttype.MySQL:
		query = fmt.Sprintf("INSERT INTO %s (`key`, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)", tableState)
	case porttype.Postgres:
		query = fmt.Sprintf(`INSERT INTO %s ("key", value) VALUES ($1, $2) ON CONFLICT ("key") DO UPDATE SET value = EXCLUDED.value`, tableState)
	case porttype.SQLite3:
		query = fmt.Sprintf(`INSERT INTO %s ("key", value) VALUES (?, ?) ON CONFLICT("key") DO UPDATE SET value = excluded.value`, tableState)
	default: // mssql
		query = fmt.Sprintf(`MERGE %s AS target USING (SELECT @p1 AS k, @p2 AS v) AS src ON target."key" = src.k
			WHEN MATCHED THEN UPDATE SET value = src.v
			WHEN NOT MATCHED THEN INSERT ("key", value) VALUES (src.k, src.v);`, tableState)
	}
	if _, err := conn.DB().ExecContext(ctx, query, key, value); err != nil {
		return syncerr.DB(err)
	}
	return nil
}

// UpsertClient records contact from a peer.
func UpsertClient(ctx context.Context, conn *enginedb.Conn, c Client) error {
	var query string
	switch conn.Engine() {
	case porttype.MySQL:
		query = fmt.Sprintf(`INSERT INTO %s (origin_id, last_sync_version, last_sync_timestamp, created_at)
			VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE last_sync_version = VALUES(last_sync_version), last_sync_timestamp = VALUES(last_sync_timestamp)`, tableClients)
	case porttype.Postgres:
		query = fmt.Sprintf(`INSERT INTO %s (origin_id, last_sync_version, last_sync_timestamp, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (origin_id) DO UPDATE SET last_sync_version = EXCLUDED.last_sync_version, last_sync_timestamp = EXCLUDED.last_sync_timestamp`, tableClients)
	default:
		query = fmt.Sprintf(`INSERT INTO %s (origin_id, last_sync_version, last_sync_timestamp, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(origin_id) DO UPDATE SET last_sync_version = excluded.last_sync_version, last_sync_timestamp = excluded.last_sync_timestamp`, tableClients)
	}
	ts := c.LastSyncTimestamp.UTC().Format(time.RFC3339)
	created := c.CreatedAt.UTC().Format(time.RFC3339)
	if _, err := conn.DB().ExecContext(ctx, query, c.OriginID, c.LastSyncVersion, ts, created); err != nil {
		return syncerr.DB(err)
	}
	return nil
}

// ListClients returns every known peer.
func ListClients(ctx context.Context, conn *enginedb.Conn) ([]Client, error) {
	rows, err := conn.DB().QueryContext(ctx, fmt.Sprintf(`SELECT origin_id, last_sync_version, last_sync_timestamp, created_at FROM %s`, tableClients))
	if err != nil {
		return nil, syncerr.DB(err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		var c Client
		var ts, created string
		if err := rows.Scan(&c.OriginID, &c.LastSyncVersion, &ts, &created); err != nil {
			return nil, syncerr.DB(err)
		}
		c.LastSyncTimestamp, _ = time.Parse(time.RFC3339, ts)
		c.CreatedAt, _ = time.Parse(time.RFC3339, created)
		clients = append(clients, c)
	}
	return clients, rows.Err()
}
