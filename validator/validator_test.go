package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/declmig/declmig/schema"
)

func validModel() schema.Model {
	return schema.Model{Tables: []schema.Table{
		{
			Name: "teams",
			Fields: []schema.Field{
				{Name: "id", Options: schema.Options{schema.OptType: "uuid", schema.OptPrimaryKey: true}},
			},
		},
		{
			Name: "accounts",
			Fields: []schema.Field{
				{Name: "id", Options: schema.Options{schema.OptType: "uuid", schema.OptPrimaryKey: true}},
				{Name: "state", Options: schema.Options{schema.OptType: []any{"enum", "status"}}},
				{Name: "age", Options: schema.Options{
					schema.OptType:  "integer",
					schema.OptCheck: []any{">=", "age", int64(0)},
				}},
				{Name: "team_id", Options: schema.Options{
					schema.OptType:       "uuid",
					schema.OptForeignKey: "teams/id",
					schema.OptOnDelete:   schema.OnDeleteCascade,
				}},
			},
			Indexes: []schema.Index{
				{Name: "accounts_state_idx", Options: schema.Options{schema.OptFields: []any{"state"}}},
			},
			Types: []schema.EnumType{
				{Name: "status", Options: schema.Options{schema.OptChoices: []any{"active", "suspended"}}},
			},
		},
	}}
}

func findings(t *testing.T, m schema.Model) []Issue {
	t.Helper()
	err := ValidateModel(m)
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrModelValidation)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	require.NotEmpty(t, verr.Issues)
	return verr.Issues
}

func messages(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.String()
	}
	return out
}

func TestValidModelPasses(t *testing.T) {
	require.NoError(t, ValidateModel(validModel()))
}

func TestDuplicateDeclarations(t *testing.T) {
	m := validModel()
	m.Tables = append(m.Tables, schema.Table{Name: "teams", Fields: m.Tables[0].Fields})
	assert.Contains(t, messages(findings(t, m)), "teams: table declared twice")

	m = validModel()
	m.Tables[1].Fields = append(m.Tables[1].Fields, m.Tables[1].Fields[0])
	assert.Contains(t, messages(findings(t, m)), "accounts.id: field declared twice")

	m = validModel()
	m.Tables[1].Indexes = append(m.Tables[1].Indexes, m.Tables[1].Indexes[0])
	assert.Contains(t, messages(findings(t, m)), "accounts.accounts_state_idx: index declared twice")

	m = validModel()
	m.Tables[1].Types = append(m.Tables[1].Types, m.Tables[1].Types[0])
	assert.Contains(t, messages(findings(t, m)), "accounts.status: enum type declared twice")
}

func TestCrossKindNameCollision(t *testing.T) {
	m := validModel()
	m.Tables[1].Indexes = append(m.Tables[1].Indexes, schema.Index{
		Name:    "state",
		Options: schema.Options{schema.OptFields: []any{"state"}},
	})
	assert.Contains(t, messages(findings(t, m)),
		`accounts: name "state" used as both column and index`)
}

func TestUndeclaredEnumType(t *testing.T) {
	m := validModel()
	m.Tables[1].Types = nil
	got := messages(findings(t, m))
	assert.Contains(t, got, `accounts.state: references undeclared enum type "status"`)
}

func TestForeignKeyTargets(t *testing.T) {
	m := validModel()
	m.Tables[1].Fields[3].Options[schema.OptForeignKey] = "nowhere/id"
	assert.Contains(t, messages(findings(t, m)),
		`accounts.team_id: foreign key references unknown table "nowhere"`)

	m = validModel()
	m.Tables[1].Fields[3].Options[schema.OptForeignKey] = "teams/uuid"
	assert.Contains(t, messages(findings(t, m)),
		`accounts.team_id: foreign key references unknown column "teams"."uuid"`)

	m = validModel()
	m.Tables[1].Fields[3].Options[schema.OptForeignKey] = "teams.id"
	assert.Contains(t, messages(findings(t, m)),
		`accounts.team_id: foreign key must be of the form "table/column"`)
}

func TestOnDeleteCoherence(t *testing.T) {
	m := validModel()
	delete(m.Tables[1].Fields[3].Options, schema.OptForeignKey)
	assert.Contains(t, messages(findings(t, m)), "accounts.team_id: on-delete without a foreign key")

	m = validModel()
	m.Tables[1].Fields[3].Options[schema.OptOnDelete] = "obliterate"
	assert.Contains(t, messages(findings(t, m)), "accounts.team_id: unknown on-delete action obliterate")
}

func TestCheckExpressions(t *testing.T) {
	m := validModel()
	m.Tables[1].Fields[2].Options[schema.OptCheck] = []any{"between", "age", int64(0), int64(150)}
	issues := findings(t, m)
	require.Len(t, issues, 1)
	assert.Equal(t, "accounts", issues[0].Table)
	assert.Equal(t, "age", issues[0].Column)

	m = validModel()
	m.Tables[1].Fields[2].Options[schema.OptCheck] = []any{">", "age"}
	issues = findings(t, m)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "two operands")
}

func TestDuplicateTypeAcrossTables(t *testing.T) {
	m := validModel()
	m.Tables[0].Types = []schema.EnumType{
		{Name: "status", Options: schema.Options{schema.OptChoices: []any{"open"}}},
	}
	assert.Contains(t, messages(findings(t, m)),
		`accounts.status: enum type already declared in table "teams"`)
}

func TestCheckMisspelledColumn(t *testing.T) {
	m := validModel()
	m.Tables[1].Fields[2].Options[schema.OptCheck] = []any{">=", "agee", int64(0)}
	issues := findings(t, m)
	require.Len(t, issues, 1)
	assert.Equal(t, "accounts", issues[0].Table)
	assert.Equal(t, "age", issues[0].Column)
	assert.Contains(t, issues[0].Message, "references no declared column")
}

func TestIndexColumns(t *testing.T) {
	m := validModel()
	m.Tables[1].Indexes[0].Options[schema.OptFields] = []any{"nope"}
	assert.Contains(t, messages(findings(t, m)),
		`accounts.accounts_state_idx: index covers unknown column "nope"`)

	m = validModel()
	m.Tables[1].Indexes[0].Options = schema.Options{}
	assert.Contains(t, messages(findings(t, m)), "accounts.accounts_state_idx: index declares no fields")
}

func TestEnumChoices(t *testing.T) {
	m := validModel()
	m.Tables[1].Types[0].Options = schema.Options{schema.OptChoices: []any{}}
	assert.Contains(t, messages(findings(t, m)), "accounts.status: enum choices must be a non-empty list")

	m = validModel()
	m.Tables[1].Types[0].Options = schema.Options{schema.OptChoices: []any{"active", "active"}}
	assert.Contains(t, messages(findings(t, m)), `accounts.status: enum choice "active" repeated`)
}

func TestEmptyTable(t *testing.T) {
	m := schema.Model{Tables: []schema.Table{{Name: "ghost"}}}
	assert.Contains(t, messages(findings(t, m)), "ghost: table declares no fields")
}

func TestErrorAggregation(t *testing.T) {
	m := validModel()
	m.Tables[1].Types = nil
	m.Tables[1].Fields[3].Options[schema.OptForeignKey] = "nowhere/id"

	err := ValidateModel(m)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Issues, 2)
	assert.Contains(t, err.Error(), "and 1 more")
	assert.Contains(t, verr.Summary(), "\n")
}
