package defaultexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repldef/repldef/porttype"
)

func TestTranslateEmptyIsInvalid(t *testing.T) {
	_, err := Translate("   ", porttype.MySQL)
	require.Error(t, err)
}

func TestTranslateNow(t *testing.T) {
	out, err := Translate("now()", porttype.MySQL)
	require.NoError(t, err)
	assert.Equal(t, "CURRENT_TIMESTAMP", out)

	out, err = Translate("NOW()", porttype.MSSQL)
	require.NoError(t, err)
	assert.Equal(t, "SYSDATETIME()", out)
}

func TestTranslateUUIDPerEngine(t *testing.T) {
	cases := map[porttype.Engine]string{
		porttype.MySQL:    "(UUID())",
		porttype.Postgres: "gen_random_uuid()",
		porttype.MSSQL:    "NEWID()",
		porttype.SQLite3:  "(lower(hex(randomblob(16))))",
	}
	for engine, want := range cases {
		out, err := Translate("gen_uuid()", engine)
		require.NoError(t, err)
		assert.Equal(t, want, out)
	}
}

func TestTranslateBoolPerEngine(t *testing.T) {
	out, err := Translate("true", porttype.MySQL)
	require.NoError(t, err)
	assert.Equal(t, "1", out)

	out, err = Translate("false", porttype.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "false", out)
}

func TestTranslateNumericLiteralPassesThrough(t *testing.T) {
	out, err := Translate("-3.5", porttype.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "-3.5", out)
}

func TestTranslateStringLiteralIsLowercased(t *testing.T) {
	out, err := Translate("'Pending'", porttype.MySQL)
	require.NoError(t, err)
	assert.Equal(t, "'pending'", out)
}

func TestTranslateSubstringPerEngine(t *testing.T) {
	out, err := Translate("substring(name, 1, 3)", porttype.MySQL)
	require.NoError(t, err)
	assert.Equal(t, "substr(name,1,3)", out)

	out, err = Translate("substring(name, 1, 3)", porttype.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "substring(name from 1 for 3)", out)
}

func TestTranslateConcatPerEngine(t *testing.T) {
	out, err := Translate("concat(a, b)", porttype.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "a || b", out)

	out, err = Translate("concat(a, b)", porttype.MySQL)
	require.NoError(t, err)
	assert.Equal(t, "concat(a, b)", out)
}

func TestTranslateUnknownFunctionPassesThroughUnmodified(t *testing.T) {
	out, err := Translate("nextval('seq')", porttype.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "nextval('seq')", out)
}
