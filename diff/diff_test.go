package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/declmig/declmig/actions"
	"github.com/declmig/declmig/replay"
	"github.com/declmig/declmig/schema"
)

func apply(t *testing.T, s schema.Schema, plan []actions.Action) schema.Schema {
	t.Helper()
	var err error
	for _, a := range plan {
		s, err = replay.Apply(s, a)
		require.NoError(t, err, a.String())
	}
	return s
}

func usersModel() schema.Model {
	return schema.Model{Tables: []schema.Table{
		{
			Name: "users",
			Fields: []schema.Field{
				{Name: "id", Options: schema.Options{schema.OptType: "uuid", schema.OptPrimaryKey: true}},
				{Name: "email", Options: schema.Options{
					schema.OptType: []any{"varchar", int64(255)},
					schema.OptNull: false,
				}},
			},
		},
	}}
}

func TestCreateTableFromEmpty(t *testing.T) {
	plan, err := Compute(schema.Schema{}, usersModel())
	require.NoError(t, err)

	require.Len(t, plan, 1)
	a := plan[0]
	assert.Equal(t, actions.CreateTable, a.Kind)
	assert.Equal(t, "users", a.Model)
	require.Len(t, a.Fields, 2)
	assert.Equal(t, "id", a.Fields[0].Name)
	assert.Equal(t, "email", a.Fields[1].Name)
}

func TestAlterColumnDelta(t *testing.T) {
	model := usersModel()
	current := apply(t, schema.Schema{}, mustCompute(t, schema.Schema{}, model))

	// email loses null:false and gains unique:true.
	model.Tables[0].Fields[1].Options = schema.Options{
		schema.OptType:   []any{"varchar", int64(255)},
		schema.OptUnique: true,
	}

	plan, err := Compute(current, model)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	a := plan[0]
	assert.Equal(t, actions.AlterColumn, a.Kind)
	assert.Equal(t, "email", a.Field)
	assert.Equal(t, schema.Options{schema.OptUnique: true}, a.Changes.ToAdd)
	assert.Equal(t, schema.Options{schema.OptNull: false}, a.Changes.ToDrop)
}

func TestChangedOptionValueRoundTrips(t *testing.T) {
	model := usersModel()
	model.Tables[0].Fields[1].Options[schema.OptType] = []any{"varchar", int64(100)}
	current := apply(t, schema.Schema{}, mustCompute(t, schema.Schema{}, model))

	// email widens from varchar(100) to varchar(255).
	model.Tables[0].Fields[1].Options = schema.Options{
		schema.OptType: []any{"varchar", int64(255)},
		schema.OptNull: false,
	}

	plan, err := Compute(current, model)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	a := plan[0]
	assert.Equal(t, actions.AlterColumn, a.Kind)
	assert.Equal(t, schema.Options{schema.OptType: []any{"varchar", int64(255)}}, a.Changes.ToAdd)
	assert.Equal(t, schema.Options{schema.OptType: []any{"varchar", int64(100)}}, a.Changes.Old)
	assert.Empty(t, a.Changes.ToDrop)

	forward := apply(t, current, plan)
	inverse, err := InversePlan(plan)
	require.NoError(t, err)
	restored := apply(t, forward, inverse)
	assert.Equal(t, current, restored)
}

func TestEnumTypeBeforeColumn(t *testing.T) {
	accounts := schema.Model{Tables: []schema.Table{
		{
			Name: "accounts",
			Fields: []schema.Field{
				{Name: "id", Options: schema.Options{schema.OptType: "uuid", schema.OptPrimaryKey: true}},
			},
		},
	}}
	current := apply(t, schema.Schema{}, mustCompute(t, schema.Schema{}, accounts))

	accounts.Tables[0].Fields = append(accounts.Tables[0].Fields, schema.Field{
		Name: "status", Options: schema.Options{schema.OptType: []any{"enum", "status"}},
	})
	accounts.Tables[0].Types = []schema.EnumType{
		{Name: "status", Options: schema.Options{schema.OptChoices: []any{"active", "suspended"}}},
	}

	plan, err := Compute(current, accounts)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, actions.CreateType, plan[0].Kind)
	assert.Equal(t, "status", plan[0].TypeName)
	assert.Equal(t, actions.AddColumn, plan[1].Kind)
	assert.Equal(t, "status", plan[1].Field)
}

func TestDropTableBracket(t *testing.T) {
	legacy := schema.Model{Tables: []schema.Table{
		{
			Name: "legacy",
			Fields: []schema.Field{
				{Name: "id", Options: schema.Options{schema.OptType: "serial", schema.OptPrimaryKey: true}},
				{Name: "kind", Options: schema.Options{schema.OptType: []any{"enum", "legacy_kind"}}},
			},
			Indexes: []schema.Index{
				{Name: "legacy_idx", Options: schema.Options{schema.OptFields: []any{"id"}}},
			},
			Types: []schema.EnumType{
				{Name: "legacy_kind", Options: schema.Options{schema.OptChoices: []any{"a", "b"}}},
			},
		},
	}}
	current := apply(t, schema.Schema{}, mustCompute(t, schema.Schema{}, legacy))

	plan, err := Compute(current, schema.Model{})
	require.NoError(t, err)
	require.Len(t, plan, 3)
	assert.Equal(t, actions.DropIndex, plan[0].Kind)
	assert.Equal(t, "legacy_idx", plan[0].Index)
	assert.Equal(t, actions.DropType, plan[1].Kind)
	assert.Equal(t, "legacy_kind", plan[1].TypeName)
	assert.Equal(t, actions.DropTable, plan[2].Kind)
	assert.Equal(t, "legacy", plan[2].Model)
}

func TestDiffIsIdempotent(t *testing.T) {
	model := richModel()
	current := apply(t, schema.Schema{}, mustCompute(t, schema.Schema{}, model))

	plan, err := Compute(current, model)
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestDiffThenApplyConverges(t *testing.T) {
	before := richModel()
	current := apply(t, schema.Schema{}, mustCompute(t, schema.Schema{}, before))

	after := richModel()
	// Reshape: drop a column, add one, change an index, add a table.
	after.Tables[0].Fields = after.Tables[0].Fields[:1]
	after.Tables[1].Fields = append(after.Tables[1].Fields, schema.Field{
		Name: "bio", Options: schema.Options{schema.OptType: "text"},
	})
	after.Tables[1].Indexes[0].Options = schema.Options{
		schema.OptFields: []any{"email", "id"},
	}
	after.Tables = append(after.Tables, schema.Table{
		Name: "teams",
		Fields: []schema.Field{
			{Name: "id", Options: schema.Options{schema.OptType: "uuid", schema.OptPrimaryKey: true}},
		},
	})

	plan, err := Compute(current, after)
	require.NoError(t, err)
	folded := apply(t, current, plan)
	assert.Equal(t, schema.StateOfModel(after), folded)
}

func TestInversePlanRestoresOriginal(t *testing.T) {
	before := richModel()
	current := apply(t, schema.Schema{}, mustCompute(t, schema.Schema{}, before))

	after := richModel()
	after.Tables = after.Tables[1:] // drop the first table entirely
	after.Tables[0].Fields[1].Options = schema.Options{
		schema.OptType:   []any{"varchar", int64(255)},
		schema.OptUnique: true,
	}

	plan, err := Compute(current, after)
	require.NoError(t, err)
	forward := apply(t, current, plan)

	inverse, err := InversePlan(plan)
	require.NoError(t, err)
	restored := apply(t, forward, inverse)
	assert.Equal(t, current, restored)
}

func TestNewTableBracketOrdering(t *testing.T) {
	model := schema.Model{Tables: []schema.Table{
		{
			Name: "accounts",
			Fields: []schema.Field{
				{Name: "id", Options: schema.Options{schema.OptType: "uuid", schema.OptPrimaryKey: true}},
				{Name: "state", Options: schema.Options{schema.OptType: []any{"enum", "account_state"}}},
			},
			Indexes: []schema.Index{
				{Name: "accounts_state_idx", Options: schema.Options{schema.OptFields: []any{"state"}}},
			},
			Types: []schema.EnumType{
				{Name: "account_state", Options: schema.Options{schema.OptChoices: []any{"open", "closed"}}},
			},
		},
	}}

	plan, err := Compute(schema.Schema{}, model)
	require.NoError(t, err)
	require.Len(t, plan, 3)
	assert.Equal(t, actions.CreateType, plan[0].Kind)
	assert.Equal(t, actions.CreateTable, plan[1].Kind)
	assert.Equal(t, actions.CreateIndex, plan[2].Kind)
}

func TestNewTableBeforeForeignKeyReference(t *testing.T) {
	users := usersModel()
	current := apply(t, schema.Schema{}, mustCompute(t, schema.Schema{}, users))

	// teams is declared after users but must be created before the new
	// users.team_id column that references it.
	target := usersModel()
	target.Tables[0].Fields = append(target.Tables[0].Fields, schema.Field{
		Name: "team_id", Options: schema.Options{
			schema.OptType:       "uuid",
			schema.OptForeignKey: "teams/id",
			schema.OptOnDelete:   schema.OnDeleteSetNull,
		},
	})
	target.Tables = append(target.Tables, schema.Table{
		Name: "teams",
		Fields: []schema.Field{
			{Name: "id", Options: schema.Options{schema.OptType: "uuid", schema.OptPrimaryKey: true}},
		},
	})

	plan, err := Compute(current, target)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, actions.CreateTable, plan[0].Kind)
	assert.Equal(t, "teams", plan[0].Model)
	assert.Equal(t, actions.AddColumn, plan[1].Kind)
	assert.Equal(t, "team_id", plan[1].Field)
}

func TestInvalidModelProducesNoPlan(t *testing.T) {
	dup := usersModel()
	dup.Tables = append(dup.Tables, dup.Tables[0])
	_, err := Compute(schema.Schema{}, dup)
	assert.ErrorIs(t, err, schema.ErrModelValidation)

	dangling := usersModel()
	dangling.Tables[0].Fields = append(dangling.Tables[0].Fields, schema.Field{
		Name: "org_id", Options: schema.Options{
			schema.OptType:       "uuid",
			schema.OptForeignKey: "orgs/id",
		},
	})
	_, err = Compute(schema.Schema{}, dangling)
	assert.ErrorIs(t, err, schema.ErrModelValidation)
}

func TestNameConflictAcrossKinds(t *testing.T) {
	withType := schema.Model{Tables: []schema.Table{
		{
			Name: "accounts",
			Fields: []schema.Field{
				{Name: "id", Options: schema.Options{schema.OptType: "uuid", schema.OptPrimaryKey: true}},
				{Name: "state", Options: schema.Options{schema.OptType: []any{"enum", "status"}}},
			},
			Types: []schema.EnumType{
				{Name: "status", Options: schema.Options{schema.OptChoices: []any{"active"}}},
			},
		},
	}}
	current := apply(t, schema.Schema{}, mustCompute(t, schema.Schema{}, withType))

	// The target stops declaring the enum and reuses its name for a column.
	target := schema.Model{Tables: []schema.Table{
		{
			Name: "accounts",
			Fields: []schema.Field{
				{Name: "id", Options: schema.Options{schema.OptType: "uuid", schema.OptPrimaryKey: true}},
				{Name: "status", Options: schema.Options{schema.OptType: "text"}},
			},
		},
	}}
	_, err := Compute(current, target)
	assert.ErrorIs(t, err, schema.ErrNameConflict)
}

func mustCompute(t *testing.T, current schema.Schema, target schema.Model) []actions.Action {
	t.Helper()
	plan, err := Compute(current, target)
	require.NoError(t, err)
	return plan
}

// richModel covers tables, enum types, indexes and a foreign key.
func richModel() schema.Model {
	return schema.Model{Tables: []schema.Table{
		{
			Name: "sessions",
			Fields: []schema.Field{
				{Name: "id", Options: schema.Options{schema.OptType: "uuid", schema.OptPrimaryKey: true}},
				{Name: "user_id", Options: schema.Options{
					schema.OptType:       "uuid",
					schema.OptForeignKey: "users/id",
					schema.OptOnDelete:   schema.OnDeleteCascade,
				}},
			},
		},
		{
			Name: "users",
			Fields: []schema.Field{
				{Name: "id", Options: schema.Options{schema.OptType: "uuid", schema.OptPrimaryKey: true}},
				{Name: "email", Options: schema.Options{
					schema.OptType: []any{"varchar", int64(255)},
					schema.OptNull: false,
				}},
				{Name: "role", Options: schema.Options{schema.OptType: []any{"enum", "user_role"}}},
			},
			Indexes: []schema.Index{
				{Name: "users_email_idx", Options: schema.Options{
					schema.OptFields: []any{"email"},
					schema.OptUnique: true,
				}},
			},
			Types: []schema.EnumType{
				{Name: "user_role", Options: schema.Options{
					schema.OptChoices: []any{"admin", "member"},
				}},
			},
		},
	}}
}
