package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repldef/repldef/porttype"
)

func TestColumnValidateRejectsTwoDefaults(t *testing.T) {
	c := ColumnDefinition{Name: "x", Type: porttype.Integer(32), DefaultLiteralSQL: "0", DefaultExpressionDSL: "now()"}
	require.Error(t, c.Validate())
}

func TestColumnValidateRejectsNonIntegerIdentity(t *testing.T) {
	c := ColumnDefinition{Name: "x", Type: porttype.Text(), Identity: true}
	require.Error(t, c.Validate())
}

func TestIndexValidateRequiresColumnsOrExpressions(t *testing.T) {
	require.Error(t, IndexDefinition{Name: "idx"}.Validate())
	require.Error(t, IndexDefinition{Name: "idx", Columns: []string{"a"}, Expressions: []string{"lower(a)"}}.Validate())
	require.NoError(t, IndexDefinition{Name: "idx", Columns: []string{"a"}}.Validate())
}

func TestTableValidateRejectsDuplicateColumnsCaseInsensitively(t *testing.T) {
	tbl := TableDefinition{
		Name: "users",
		Columns: []ColumnDefinition{
			{Name: "ID", Type: porttype.Integer(32)},
			{Name: "id", Type: porttype.Integer(32)},
		},
	}
	require.Error(t, tbl.Validate())
}

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "users", TableDefinition{Name: "users"}.QualifiedName())
	assert.Equal(t, "app.users", TableDefinition{SchemaName: "app", Name: "users"}.QualifiedName())
}

func TestDefinitionTableLookupCaseInsensitive(t *testing.T) {
	def := Definition{Tables: []TableDefinition{{Name: "Users"}}}
	tbl, ok := def.Table("users")
	require.True(t, ok)
	assert.Equal(t, "Users", tbl.Name)

	_, ok = def.Table("missing")
	assert.False(t, ok)
}

func TestBuilderRoundTrip(t *testing.T) {
	def, err := NewBuilder().
		Table("users").
		IdentityColumn("id", porttype.Integer(64)).
		NotNullColumn("email", porttype.VarChar(255)).
		PrimaryKey("id").
		UniqueIndex("users_email_idx", "email").
		Done().
		Table("posts").
		IdentityColumn("id", porttype.Integer(64)).
		NotNullColumn("user_id", porttype.Integer(64)).
		PrimaryKey("id").
		ForeignKey("posts_user_fk", []string{"user_id"}, "users", []string{"id"}, Cascade, NoAction).
		Done().
		Build()
	require.NoError(t, err)
	require.Len(t, def.Tables, 2)
	assert.Equal(t, "users", def.Tables[0].Name)
	assert.Equal(t, "posts", def.Tables[1].Name)
	require.Len(t, def.Tables[1].ForeignKeys, 1)
	assert.Equal(t, "users", def.Tables[1].ForeignKeys[0].ReferencedTable)
}

func TestBuilderBuildPropagatesValidationError(t *testing.T) {
	_, err := NewBuilder().
		Table("bad").
		Column("dup", porttype.Integer(32)).
		Column("dup", porttype.Integer(32)).
		Done().
		Build()
	require.Error(t, err)
}
