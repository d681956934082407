package migrate

import (
	"context"
	"strings"

	"github.com/repldef/repldef/diff"
	"github.com/repldef/repldef/enginedb"
	"github.com/repldef/repldef/porttype"
	"github.com/repldef/repldef/repllog"
	"github.com/repldef/repldef/syncerr"
)

// Options gates destructive DDL, raising a typed error instead of silently
// skipping a DROP-kind operation.
type Options struct {
	AllowDestructive bool
	Logger           repllog.Logger
}

// StepResult is reported to an optional per-statement callback so a caller
// (the CLI, or a higher-level migration orchestrator) can show progress.
type StepResult struct {
	Operation diff.Operation
	DDL       string
	Err       error
}

// Runner applies diff.Operations to a live connection, rendering each to DDL
// via Render and executing the whole set inside one transaction where the
// engine allows it. MSSQL DDL is not always transactional across
// statements in the same way Postgres/MySQL/SQLite3 are, so each MSSQL
// statement commits independently to avoid assuming guarantees the driver
// can't give.
type Runner struct {
	Conn    *enginedb.Conn
	Options Options
}

// Apply renders ops and executes them against r.Conn. Destructive operations
// are rejected up front (before anything runs) unless Options.AllowDestructive
// is set, so a caller never ends up with a half-applied migration due to a
// drop it didn't authorize.
func (r *Runner) Apply(ctx context.Context, ops []diff.Operation, onStep func(StepResult)) error {
	if !r.Options.AllowDestructive {
		for _, op := range ops {
			if op.Kind.Destructive() {
				return syncerr.Wrap(syncerr.Destructive, nil,
					"migrate: operation %s on %s requires AllowDestructive", op.Kind, op.TableName)
			}
		}
	}

	engine := r.Conn.Engine()
	logger := r.Options.Logger
	if logger == nil {
		logger = repllog.Default()
	}

	if engine == porttype.MSSQL {
		return r.applyPerStatement(ctx, ops, engine, logger, onStep)
	}
	return r.applyTransactional(ctx, ops, engine, logger, onStep)
}

func (r *Runner) applyTransactional(ctx context.Context, ops []diff.Operation, engine porttype.Engine, logger repllog.Logger, onStep func(StepResult)) error {
	tx, err := r.Conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return syncerr.DB(err)
	}

	for _, op := range ops {
		ddl, err := Render(op, engine)
		if err != nil {
			tx.Rollback()
			return err
		}
		logger.Printf("migrate: %s", ddl)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			wrapped := syncerr.DB(err)
			if onStep != nil {
				onStep(StepResult{Operation: op, DDL: ddl, Err: wrapped})
			}
			tx.Rollback()
			return wrapped
		}
		if onStep != nil {
			onStep(StepResult{Operation: op, DDL: ddl})
		}
	}

	if err := tx.Commit(); err != nil {
		return syncerr.DB(err)
	}
	return nil
}

func (r *Runner) applyPerStatement(ctx context.Context, ops []diff.Operation, engine porttype.Engine, logger repllog.Logger, onStep func(StepResult)) error {
	for _, op := range ops {
		ddl, err := Render(op, engine)
		if err != nil {
			return err
		}
		if op.Kind == diff.CreateTable && r.mssqlTableExists(ctx, op.Table.QualifiedName()) {
			ddl = ""
		}
		if ddl == "" {
			continue
		}
		logger.Printf("migrate: %s", ddl)
		_, err = r.Conn.DB().ExecContext(ctx, ddl)
		if onStep != nil {
			onStep(StepResult{Operation: op, DDL: ddl, Err: wrapIfErr(err)})
		}
		if err != nil {
			return syncerr.DB(err)
		}
	}
	return nil
}

func wrapIfErr(err error) error {
	if err == nil {
		return nil
	}
	return syncerr.DB(err)
}

// mssqlTableExists guards CREATE TABLE on an engine that has no
// IF NOT EXISTS clause in this position.
func (r *Runner) mssqlTableExists(ctx context.Context, qualifiedName string) bool {
	name := qualifiedName
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	row := r.Conn.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM sys.tables WHERE name = @p1`, name)
	var count int
	if err := row.Scan(&count); err != nil {
		return false
	}
	return count > 0
}
