// Package enginedb wraps database/sql connections per engine (mysql,
// postgres, mssql, sqlite3). It never deals with DDL construction (that's
// migrate) — only connection shape, transactions, and wiring the
// trigger-suppression session.
package enginedb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/repldef/repldef/porttype"
	"github.com/repldef/repldef/suppress"
)

// Config is the connection-shape configuration for one engine endpoint,
// mirroring the split between connection config and behavior config in the
// teacher's database.Config / database.GeneratorConfig.
type Config struct {
	Engine   porttype.Engine
	DSN      string
	DBName   string
	User     string
	Password string
	Host     string
	Port     int
}

// Conn is one open connection to a SQL engine, carrying its own
// suppression session.
type Conn struct {
	engine  porttype.Engine
	db      *sql.DB
	session *suppress.Session
}

func Open(cfg Config) (*Conn, error) {
	driverName, dsn, err := driverFor(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("enginedb: open %s: %w", driverName, err)
	}
	return &Conn{engine: cfg.Engine, db: db, session: suppress.NewSession()}, nil
}

func driverFor(cfg Config) (driverName, dsn string, err error) {
	switch cfg.Engine {
	case porttype.MySQL:
		return "mysql", mysqlDSN(cfg), nil
	case porttype.Postgres:
		return "postgres", postgresDSN(cfg), nil
	case porttype.MSSQL:
		return "sqlserver", mssqlDSN(cfg), nil
	case porttype.SQLite3:
		return "sqlite", cfg.DSN, nil
	default:
		return "", "", fmt.Errorf("enginedb: unsupported engine %v", cfg.Engine)
	}
}

func mysqlDSN(cfg Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
}

func postgresDSN(cfg Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)
}

func mssqlDSN(cfg Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
}

// Engine returns this connection's target engine, used by migrate/inspector
// to select per-engine rendering.
func (c *Conn) Engine() porttype.Engine { return c.engine }

// DB returns the underlying *sql.DB for callers that need raw access
// (inspector queries, migrate.Runner's transactional shell).
func (c *Conn) DB() *sql.DB { return c.db }

// Session returns this connection's trigger-suppression session.
func (c *Conn) Session() *suppress.Session { return c.session }

func (c *Conn) Close() error { return c.db.Close() }

// WithSuppression runs fn with suppression engaged on this connection for
// its duration, releasing it on every exit path via defer.
func (c *Conn) WithSuppression(ctx context.Context, fn func(ctx context.Context) error) error {
	c.session.Enable()
	defer c.session.Disable()
	return fn(ctx)
}
