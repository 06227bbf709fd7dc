package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateOf(t *testing.T) {
	tbl := Table{
		Name: "accounts",
		Fields: []Field{
			{Name: "id", Options: Options{OptType: "uuid", OptPrimaryKey: true}},
			{Name: "balance", Options: Options{OptType: []any{"decimal", 15, 2}}},
		},
		Indexes: []Index{
			{Name: "accounts_id_idx", Options: Options{OptFields: []any{"id"}}},
		},
		Types: []EnumType{
			{Name: "status", Options: Options{OptChoices: []any{"active"}}},
		},
	}
	ts := StateOf(tbl)

	require.Len(t, ts.Fields, 2)
	// Values come out normalized, so folded and projected states compare
	// equal with DeepEqual.
	assert.Equal(t, Options{OptType: []any{"decimal", int64(15), int64(2)}}, ts.Fields["balance"])
	assert.Equal(t, map[string]Options{
		"accounts_id_idx": {OptFields: []any{"id"}},
	}, ts.Indexes)
	assert.Equal(t, map[string]Options{
		"status": {OptChoices: []any{"active"}},
	}, ts.Types)
}

func TestStateOfOmitsEmptySections(t *testing.T) {
	ts := StateOf(Table{
		Name:   "notes",
		Fields: []Field{{Name: "body", Options: Options{OptType: "text"}}},
	})
	assert.Nil(t, ts.Indexes)
	assert.Nil(t, ts.Types)
}

func TestStateOfModel(t *testing.T) {
	m := Model{Tables: []Table{
		{Name: "a", Fields: []Field{{Name: "id", Options: Options{OptType: "uuid"}}}},
		{Name: "b", Fields: []Field{{Name: "id", Options: Options{OptType: "uuid"}}}},
	}}
	s := StateOfModel(m)
	assert.Equal(t, []string{"a", "b"}, s.TableNames())

	empty := StateOfModel(Model{})
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSchemaCloneIsDeep(t *testing.T) {
	s := Schema{
		"accounts": {
			Fields:  map[string]Options{"id": {OptType: "uuid"}},
			Indexes: map[string]Options{"accounts_id_idx": {OptFields: []any{"id"}}},
		},
	}
	c := s.Clone()
	c["accounts"].Fields["id"][OptType] = "text"
	c["accounts"].Indexes["accounts_id_idx"][OptFields].([]any)[0] = "other"

	assert.Equal(t, "uuid", s["accounts"].Fields["id"][OptType])
	assert.Equal(t, "id", s["accounts"].Indexes["accounts_id_idx"][OptFields].([]any)[0])
	assert.Nil(t, c["accounts"].Types)
}

func TestHasType(t *testing.T) {
	s := Schema{
		"accounts": {
			Fields: map[string]Options{"id": {OptType: "uuid"}},
			Types:  map[string]Options{"status": {OptChoices: []any{"active"}}},
		},
		"teams": {Fields: map[string]Options{"id": {OptType: "uuid"}}},
	}
	assert.True(t, s.HasType("status"))
	assert.False(t, s.HasType("mood"))
}
