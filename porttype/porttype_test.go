package porttype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntegerWidthBoundaries(t *testing.T) {
	assert.Equal(t, "smallint", Integer(16).Render(MySQL))
	assert.Equal(t, "int", Integer(32).Render(MySQL))
	assert.Equal(t, "bigint", Integer(64).Render(MySQL))

	assert.Equal(t, "smallint", Integer(16).Render(Postgres))
	assert.Equal(t, "integer", Integer(32).Render(Postgres))
	assert.Equal(t, "bigint", Integer(64).Render(Postgres))
}

func TestDecimalRendersPerEngine(t *testing.T) {
	d := Decimal(10, 2)
	assert.Equal(t, "decimal(10,2)", d.Render(MySQL))
	assert.Equal(t, "numeric(10,2)", d.Render(Postgres))
	assert.Equal(t, "decimal(10,2)", d.Render(MSSQL))
	assert.Equal(t, "numeric", d.Render(SQLite3))
}

func TestMSSQLUnspecifiedLengthRendersMax(t *testing.T) {
	assert.Equal(t, "varchar(max)", VarChar(0).Render(MSSQL))
	assert.Equal(t, "nvarchar(max)", NVarChar(0).Render(MSSQL))
	assert.Equal(t, "varbinary(max)", VarBinary(0).Render(MSSQL))
}

func TestMSSQLSizedVarCharRendersLength(t *testing.T) {
	assert.Equal(t, "varchar(255)", VarChar(255).Render(MSSQL))
	assert.Equal(t, "nvarchar(100)", NVarChar(100).Render(MSSQL))
	assert.Equal(t, "varbinary(16)", VarBinary(16).Render(MSSQL))
}

func TestEveryKindRendersOnEveryEngine(t *testing.T) {
	kinds := []Type{
		Integer(32), Decimal(10, 2), Float(), Double(), Money(), Boolean(),
		Char(10), VarChar(10), NChar(10), NVarChar(10), Text(),
		Binary(10), VarBinary(10), Blob(), Date(), Time(), DateTime(),
		DateTimeOffset(), Uuid(), Json(), Xml(),
	}
	engines := []Engine{MySQL, Postgres, MSSQL, SQLite3}
	for _, k := range kinds {
		for _, e := range engines {
			assert.NotPanics(t, func() { k.Render(e) })
		}
	}
}

func TestEngineString(t *testing.T) {
	assert.Equal(t, "mysql", MySQL.String())
	assert.Equal(t, "postgres", Postgres.String())
	assert.Equal(t, "mssql", MSSQL.String())
	assert.Equal(t, "sqlite3", SQLite3.String())
}
