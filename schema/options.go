package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Options is the option map attached to a column, index or enum type.
// Values are kept in JSON-normalized form (bool, string, int64, float64,
// []any, map[string]any) so that a schema folded in memory compares equal
// to the same schema after a serialization round trip.
type Options map[string]any

// Canonical column option keys.
const (
	OptType       = "type"
	OptPrimaryKey = "primary-key"
	OptNull       = "null"
	OptUnique     = "unique"
	OptDefault    = "default"
	OptForeignKey = "foreign-key"
	OptOnDelete   = "on-delete"
	OptCheck      = "check"
)

// Canonical index option keys.
const (
	OptFields = "fields"
	OptMethod = "method"
)

// Canonical enum type option keys.
const (
	OptChoices = "choices"
)

// On-delete referential actions accepted for OptOnDelete.
const (
	OnDeleteCascade  = "cascade"
	OnDeleteSetNull  = "set-null"
	OnDeleteRestrict = "restrict"
)

// Clone returns a deep copy. A nil receiver clones to nil.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// Equal reports whether two option maps are equal. Empty and nil maps are
// equivalent.
func (o Options) Equal(other Options) bool {
	if len(o) == 0 && len(other) == 0 {
		return true
	}
	return reflect.DeepEqual(map[string]any(o), map[string]any(other))
}

// Normalize rewrites the option values into JSON-normalized form, in
// particular collapsing the int/int64/float64 zoo produced by Go literals
// and JSON decoding into int64 where the value is integral.
func (o Options) Normalize() Options {
	if o == nil {
		return nil
	}
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = NormalizeValue(v)
	}
	return out
}

// NormalizeValue normalizes a single option value. See Options.Normalize.
func NormalizeValue(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case float64:
		if v == float64(int64(v)) {
			return int64(v)
		}
		return v
	case float32:
		return NormalizeValue(float64(v))
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = NormalizeValue(e)
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = NormalizeValue(e)
		}
		return out
	case Options:
		return map[string]any(v.Normalize())
	default:
		return v
	}
}

// ForeignKeyRef splits an OptForeignKey value of the form "table/column".
// ok is false when the option is absent or not in that form.
func (o Options) ForeignKeyRef() (table, column string, ok bool) {
	raw, present := o[OptForeignKey]
	if !present {
		return "", "", false
	}
	ref, isStr := raw.(string)
	if !isStr {
		return "", "", false
	}
	table, column, ok = strings.Cut(ref, "/")
	if !ok || table == "" || column == "" {
		return "", "", false
	}
	return table, column, true
}

// EnumRef returns the enum type name when the column type is enum(X).
func (o Options) EnumRef() (string, bool) {
	ft, err := ParseFieldType(o)
	if err != nil || ft.Base != TypeEnum {
		return "", false
	}
	return ft.Enum, true
}

// FieldType is the parsed form of a column's OptType value.
type FieldType struct {
	Base BaseType
	Args []int64 // varchar length, or decimal precision/scale
	Enum string  // enum type name when Base == TypeEnum
}

// BaseType enumerates the primitive column types.
type BaseType string

const (
	TypeUUID        BaseType = "uuid"
	TypeText        BaseType = "text"
	TypeVarchar     BaseType = "varchar"
	TypeInteger     BaseType = "integer"
	TypeBigint      BaseType = "bigint"
	TypeSmallint    BaseType = "smallint"
	TypeSerial      BaseType = "serial"
	TypeDecimal     BaseType = "decimal"
	TypeNumeric     BaseType = "numeric"
	TypeReal        BaseType = "real"
	TypeDouble      BaseType = "double-precision"
	TypeBoolean     BaseType = "boolean"
	TypeDate        BaseType = "date"
	TypeTime        BaseType = "time"
	TypeTimestamp   BaseType = "timestamp"
	TypeTimestamptz BaseType = "timestamptz"
	TypeJSONB       BaseType = "jsonb"
	TypeBytea       BaseType = "bytea"
	TypeEnum        BaseType = "enum"
)

var baseTypes = map[BaseType]bool{
	TypeUUID: true, TypeText: true, TypeVarchar: true, TypeInteger: true,
	TypeBigint: true, TypeSmallint: true, TypeSerial: true, TypeDecimal: true,
	TypeNumeric: true, TypeReal: true, TypeDouble: true, TypeBoolean: true,
	TypeDate: true, TypeTime: true, TypeTimestamp: true, TypeTimestamptz: true,
	TypeJSONB: true, TypeBytea: true, TypeEnum: true,
}

// ParseFieldType parses the OptType value of a column's options. The wire
// form is either a plain string ("uuid") or a parameterized form encoded as
// a list: ["varchar", 255], ["decimal", 15, 2], ["enum", "status"].
func ParseFieldType(o Options) (FieldType, error) {
	raw, ok := o[OptType]
	if !ok {
		return FieldType{}, fmt.Errorf("missing %q option", OptType)
	}
	return ParseType(raw)
}

// ParseType parses a single type value. See ParseFieldType.
func ParseType(raw any) (FieldType, error) {
	switch v := raw.(type) {
	case string:
		bt := BaseType(v)
		if !baseTypes[bt] {
			return FieldType{}, fmt.Errorf("unknown type %q", v)
		}
		if bt == TypeEnum {
			return FieldType{}, fmt.Errorf("enum type requires a type name")
		}
		return FieldType{Base: bt}, nil
	case []any:
		if len(v) < 2 {
			return FieldType{}, fmt.Errorf("parameterized type needs at least one argument")
		}
		head, ok := v[0].(string)
		if !ok {
			return FieldType{}, fmt.Errorf("parameterized type head must be a string")
		}
		bt := BaseType(head)
		switch bt {
		case TypeEnum:
			name, ok := v[1].(string)
			if !ok || len(v) != 2 {
				return FieldType{}, fmt.Errorf("enum type takes exactly one name argument")
			}
			return FieldType{Base: TypeEnum, Enum: name}, nil
		case TypeVarchar, TypeDecimal, TypeNumeric:
			args := make([]int64, 0, len(v)-1)
			for _, a := range v[1:] {
				n, ok := NormalizeValue(a).(int64)
				if !ok {
					return FieldType{}, fmt.Errorf("type %q argument must be an integer, got %v", head, a)
				}
				args = append(args, n)
			}
			return FieldType{Base: bt, Args: args}, nil
		default:
			if !baseTypes[bt] {
				return FieldType{}, fmt.Errorf("unknown type %q", head)
			}
			return FieldType{}, fmt.Errorf("type %q takes no arguments", head)
		}
	default:
		return FieldType{}, fmt.Errorf("type must be a string or a parameterized list, got %T", raw)
	}
}

// Encode returns the wire form of the field type (string or []any).
func (ft FieldType) Encode() any {
	if ft.Enum != "" {
		return []any{string(TypeEnum), ft.Enum}
	}
	if len(ft.Args) == 0 {
		return string(ft.Base)
	}
	out := []any{string(ft.Base)}
	for _, a := range ft.Args {
		out = append(out, a)
	}
	return out
}

// SQL renders the field type as a Postgres type expression.
func (ft FieldType) SQL() string {
	switch {
	case ft.Enum != "":
		return quoteIdent(ft.Enum)
	case len(ft.Args) > 0:
		parts := make([]string, len(ft.Args))
		for i, a := range ft.Args {
			parts[i] = fmt.Sprintf("%d", a)
		}
		return fmt.Sprintf("%s(%s)", sqlBaseType(ft.Base), strings.Join(parts, ", "))
	default:
		return sqlBaseType(ft.Base)
	}
}

func sqlBaseType(bt BaseType) string {
	switch bt {
	case TypeDouble:
		return "double precision"
	default:
		return string(bt)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
