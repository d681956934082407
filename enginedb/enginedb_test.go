package enginedb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repldef/repldef/porttype"
	"github.com/repldef/repldef/suppress"
)

func TestMySQLDSNBuildsFromFields(t *testing.T) {
	cfg := Config{Engine: porttype.MySQL, User: "root", Password: "pw", Host: "db", Port: 3306, DBName: "app"}
	assert.Equal(t, "root:pw@tcp(db:3306)/app?parseTime=true&multiStatements=true", mysqlDSN(cfg))
}

func TestMySQLDSNPrefersExplicitDSN(t *testing.T) {
	cfg := Config{Engine: porttype.MySQL, DSN: "root:pw@tcp(custom:1234)/app"}
	assert.Equal(t, "root:pw@tcp(custom:1234)/app", mysqlDSN(cfg))
}

func TestPostgresDSNBuildsFromFields(t *testing.T) {
	cfg := Config{User: "app", Password: "pw", Host: "db", Port: 5432, DBName: "app"}
	assert.Equal(t, "host=db port=5432 user=app password=pw dbname=app sslmode=disable", postgresDSN(cfg))
}

func TestMSSQLDSNBuildsFromFields(t *testing.T) {
	cfg := Config{User: "sa", Password: "pw", Host: "db", Port: 1433, DBName: "app"}
	assert.Equal(t, "sqlserver://sa:pw@db:1433?database=app", mssqlDSN(cfg))
}

func TestDriverForUnsupportedEngine(t *testing.T) {
	_, _, err := driverFor(Config{Engine: porttype.Engine(99)})
	require.Error(t, err)
}

func TestOpenRejectsUnsupportedEngine(t *testing.T) {
	_, err := Open(Config{Engine: porttype.Engine(99)})
	require.Error(t, err)
}

func TestWithSuppressionReleasesEvenOnError(t *testing.T) {
	conn := &Conn{engine: porttype.SQLite3, session: suppress.NewSession()}
	err := conn.WithSuppression(context.Background(), func(ctx context.Context) error {
		assert.True(t, conn.Session().Suppressed())
		return errors.New("boom")
	})
	assert.Error(t, err)
	assert.False(t, conn.Session().Suppressed())
}
