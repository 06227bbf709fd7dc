package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var checkColumns = map[string]bool{"age": true, "score": true}

func TestValidateCheck(t *testing.T) {
	valid := []any{
		[]any{">", "age", int64(18)},
		[]any{"!=", "age", "score"},
		[]any{"and", []any{">=", "age", int64(0)}, []any{"<=", "age", int64(150)}},
		[]any{"or", []any{"=", "score", int64(0)}, []any{"and", []any{">", "age", int64(1)}, []any{"<", "age", int64(9)}}},
		[]any{"=", "age", "unknown"}, // one column, one string literal
	}
	for _, expr := range valid {
		assert.NoError(t, ValidateCheck(expr, checkColumns), "%v", expr)
	}

	invalid := []struct {
		expr any
		msg  string
	}{
		{"age > 18", "must be a non-empty list"},
		{[]any{}, "must be a non-empty list"},
		{[]any{int64(1), "age"}, "operator must be a string"},
		{[]any{"between", "age", int64(0), int64(9)}, "unknown check operator"},
		{[]any{">", "age"}, "exactly two operands"},
		{[]any{">", "age", int64(1), int64(2)}, "exactly two operands"},
		{[]any{"and", []any{">", "age", int64(0)}}, "at least two operands"},
		{[]any{">", "age", map[string]any{}}, "unsupported check operand"},
		{[]any{">", "agee", int64(18)}, "references no declared column"},
		{[]any{"=", "status", "active"}, "references no declared column"},
		{[]any{">", int64(1), int64(0)}, "references no declared column"},
	}
	for _, tt := range invalid {
		err := ValidateCheck(tt.expr, checkColumns)
		require.Error(t, err, "%v", tt.expr)
		assert.Contains(t, err.Error(), tt.msg)
	}
}

func TestRenderCheck(t *testing.T) {
	tests := []struct {
		name string
		expr any
		want string
	}{
		{"comparison", []any{">", "age", int64(18)}, `"age" > 18`},
		{"not equal", []any{"!=", "age", "score"}, `"age" <> "score"`},
		{"string literal", []any{"=", "age", "unknown"}, `"age" = 'unknown'`},
		{
			"conjunction",
			[]any{"and", []any{">=", "age", int64(0)}, []any{"<=", "age", int64(150)}},
			`("age" >= 0) AND ("age" <= 150)`,
		},
		{
			"nested",
			[]any{"or", []any{"=", "score", int64(0)}, []any{">", "age", int64(21)}},
			`("score" = 0) OR ("age" > 21)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderCheck(tt.expr, checkColumns)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
