package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repldef/repldef/porttype"
	"github.com/repldef/repldef/schema"
)

func buildUsers() schema.Definition {
	def, err := schema.NewBuilder().
		Table("users").
		IdentityColumn("id", porttype.Integer(64)).
		NotNullColumn("email", porttype.VarChar(255)).
		PrimaryKey("id").
		Done().
		Build()
	if err != nil {
		panic(err)
	}
	return def
}

func TestDiffCreateTableWhenMissing(t *testing.T) {
	current := schema.Definition{}
	desired := buildUsers()

	ops, err := Diff(current, desired, Policy{})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, CreateTable, ops[0].Kind)
	assert.Equal(t, "users", ops[0].Table.Name)
}

func TestDiffAddColumnIsAdditive(t *testing.T) {
	current := buildUsers()
	desired, err := schema.NewBuilder().
		Table("users").
		IdentityColumn("id", porttype.Integer(64)).
		NotNullColumn("email", porttype.VarChar(255)).
		Column("nickname", porttype.VarChar(50)).
		PrimaryKey("id").
		Done().
		Build()
	require.NoError(t, err)

	ops, err := Diff(current, desired, Policy{})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, AddColumn, ops[0].Kind)
	assert.Equal(t, "nickname", ops[0].Column.Name)
}

func TestDiffDropColumnSuppressedWithoutDestructivePolicy(t *testing.T) {
	current, err := schema.NewBuilder().
		Table("users").
		IdentityColumn("id", porttype.Integer(64)).
		Column("legacy", porttype.VarChar(50)).
		PrimaryKey("id").
		Done().
		Build()
	require.NoError(t, err)
	desired, err := schema.NewBuilder().
		Table("users").
		IdentityColumn("id", porttype.Integer(64)).
		PrimaryKey("id").
		Done().
		Build()
	require.NoError(t, err)

	ops, err := Diff(current, desired, Policy{AllowDestructive: false})
	require.NoError(t, err)
	assert.Empty(t, ops)

	ops, err = Diff(current, desired, Policy{AllowDestructive: true})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, DropColumn, ops[0].Kind)
	assert.Equal(t, "legacy", ops[0].ColumnName)
}

func TestDiffDropTableRequiresDestructivePolicy(t *testing.T) {
	current := buildUsers()
	desired := schema.Definition{}

	ops, err := Diff(current, desired, Policy{})
	require.NoError(t, err)
	assert.Empty(t, ops)

	ops, err = Diff(current, desired, Policy{AllowDestructive: true})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, DropTable, ops[0].Kind)
}

func TestDiffIsCaseInsensitiveByName(t *testing.T) {
	current := buildUsers()
	desired, err := schema.NewBuilder().
		Table("USERS").
		IdentityColumn("ID", porttype.Integer(64)).
		NotNullColumn("Email", porttype.VarChar(255)).
		PrimaryKey("id").
		Done().
		Build()
	require.NoError(t, err)

	ops, err := Diff(current, desired, Policy{})
	require.NoError(t, err)
	assert.Empty(t, ops)
}

func TestKindDestructive(t *testing.T) {
	assert.True(t, DropTable.Destructive())
	assert.True(t, DropColumn.Destructive())
	assert.False(t, CreateTable.Destructive())
	assert.False(t, AddColumn.Destructive())
}

func TestDiffCreateTableEmitsIndexesForNewTable(t *testing.T) {
	current := schema.Definition{}
	desired, err := schema.NewBuilder().
		Table("users").
		IdentityColumn("id", porttype.Integer(64)).
		NotNullColumn("email", porttype.VarChar(255)).
		PrimaryKey("id").
		UniqueIndex("idx_users_email", "email").
		Done().
		Build()
	require.NoError(t, err)

	ops, err := Diff(current, desired, Policy{})
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, CreateTable, ops[0].Kind)
	assert.Equal(t, CreateIndex, ops[1].Kind)
	assert.Equal(t, "idx_users_email", ops[1].Index.Name)
	assert.Equal(t, "users", ops[1].TableName)
}

func TestDiffGroupsAdditiveOpsByKindAcrossTables(t *testing.T) {
	// "posts" already exists and gains a foreign key to "users", a table
	// that does not exist yet and is declared after "posts" in desired
	// order. The AddForeignKey op must still be emitted after every
	// CreateTable, not interleaved per-table, so it never runs before the
	// table it references exists.
	current, err := schema.NewBuilder().
		Table("posts").
		IdentityColumn("id", porttype.Integer(64)).
		NotNullColumn("user_id", porttype.Integer(64)).
		PrimaryKey("id").
		Done().
		Build()
	require.NoError(t, err)

	desired, err := schema.NewBuilder().
		Table("posts").
		IdentityColumn("id", porttype.Integer(64)).
		NotNullColumn("user_id", porttype.Integer(64)).
		PrimaryKey("id").
		ForeignKey("fk_posts_user", []string{"user_id"}, "users", []string{"id"}, schema.Cascade, schema.NoAction).
		Done().
		Table("users").
		IdentityColumn("id", porttype.Integer(64)).
		PrimaryKey("id").
		Done().
		Build()
	require.NoError(t, err)

	ops, err := Diff(current, desired, Policy{})
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, CreateTable, ops[0].Kind)
	assert.Equal(t, "users", ops[0].Table.Name)
	assert.Equal(t, AddForeignKey, ops[1].Kind)
	assert.Equal(t, "posts", ops[1].TableName)
}

func TestDiffDropTableOrdersChildBeforeParent(t *testing.T) {
	// "posts" holds a foreign key to "users"; dropping both must drop
	// "posts" first regardless of current's declaration order.
	current, err := schema.NewBuilder().
		Table("users").
		IdentityColumn("id", porttype.Integer(64)).
		PrimaryKey("id").
		Done().
		Table("posts").
		IdentityColumn("id", porttype.Integer(64)).
		NotNullColumn("user_id", porttype.Integer(64)).
		PrimaryKey("id").
		ForeignKey("fk_posts_user", []string{"user_id"}, "users", []string{"id"}, schema.Cascade, schema.NoAction).
		Done().
		Build()
	require.NoError(t, err)
	desired := schema.Definition{}

	ops, err := Diff(current, desired, Policy{AllowDestructive: true})
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, DropTable, ops[0].Kind)
	assert.Equal(t, "posts", ops[0].Table.Name)
	assert.Equal(t, DropTable, ops[1].Kind)
	assert.Equal(t, "users", ops[1].Table.Name)
}

func TestDiffNoopWhenIdentical(t *testing.T) {
	current := buildUsers()
	desired := buildUsers()
	ops, err := Diff(current, desired, Policy{AllowDestructive: true})
	require.NoError(t, err)
	assert.Empty(t, ops)
}
