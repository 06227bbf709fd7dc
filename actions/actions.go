package actions

import (
	"fmt"

	"github.com/declmig/declmig/schema"
)

// Kind tags one of the closed set of schema-change operations.
type Kind string

const (
	CreateTable Kind = "create-table"
	DropTable   Kind = "drop-table"
	AddColumn   Kind = "add-column"
	AlterColumn Kind = "alter-column"
	DropColumn  Kind = "drop-column"
	CreateIndex Kind = "create-index"
	AlterIndex  Kind = "alter-index"
	DropIndex   Kind = "drop-index"
	CreateType  Kind = "create-type"
	AlterType   Kind = "alter-type"
	DropType    Kind = "drop-type"
)

// Changes carries an alter-column delta. ToAdd holds options to merge in;
// ToDrop holds the options removed, keyed by name with their prior values.
// Old records the prior value of every ToAdd key that was already present
// with a different value, so inversion never has to guess: a key found in
// Old swaps back to that value, a key absent from Old was new and gets
// dropped. The fold reads ToAdd's entries and ToDrop's keys; Old is
// consumed only by Invert.
type Changes struct {
	ToAdd  schema.Options `json:"to-add,omitempty"`
	ToDrop schema.Options `json:"to-drop,omitempty"`
	Old    schema.Options `json:"old,omitempty"`
}

// Action is one atomic, reversible schema operation. A single struct with a
// Kind tag and optional payload fields; Validate checks that exactly the
// fields the kind needs are present.
//
// Destructive kinds carry what they removed (drop-column/index/type carry
// the prior Options, drop-table the prior field list, alter-index and
// alter-type the prior OldOptions): applying the action ignores that
// payload, inverting it consumes it.
type Action struct {
	Kind     Kind           `json:"action"`
	Model    string         `json:"model"`
	Field    string         `json:"field,omitempty"`
	Index    string         `json:"index,omitempty"`
	TypeName string         `json:"type,omitempty"`

	Fields     []schema.Field `json:"fields,omitempty"`
	Options    schema.Options `json:"options,omitempty"`
	OldOptions schema.Options `json:"old-options,omitempty"`
	Changes    *Changes       `json:"changes,omitempty"`
}

var kinds = map[Kind]bool{
	CreateTable: true, DropTable: true,
	AddColumn: true, AlterColumn: true, DropColumn: true,
	CreateIndex: true, AlterIndex: true, DropIndex: true,
	CreateType: true, AlterType: true, DropType: true,
}

// Validate performs the structural shape check of an action record. Any
// failure wraps schema.ErrMalformedAction.
func (a Action) Validate() error {
	if !kinds[a.Kind] {
		return malformed(a, "unknown action kind %q", a.Kind)
	}
	if a.Model == "" {
		return malformed(a, "missing model name")
	}
	switch a.Kind {
	case CreateTable:
		if len(a.Fields) == 0 {
			return malformed(a, "create-table requires at least one field")
		}
		seen := map[string]bool{}
		for _, f := range a.Fields {
			if f.Name == "" {
				return malformed(a, "create-table field with empty name")
			}
			if seen[f.Name] {
				return malformed(a, "create-table repeats field %q", f.Name)
			}
			seen[f.Name] = true
			if _, err := schema.ParseFieldType(f.Options); err != nil {
				return malformed(a, "field %q: %v", f.Name, err)
			}
		}
	case DropTable:
		// Fields payload (the dropped definition) is optional; only
		// inversion needs it.
	case AddColumn:
		if a.Field == "" {
			return malformed(a, "add-column requires a field name")
		}
		if _, err := schema.ParseFieldType(a.Options); err != nil {
			return malformed(a, "field %q: %v", a.Field, err)
		}
	case AlterColumn:
		if a.Field == "" {
			return malformed(a, "alter-column requires a field name")
		}
		if a.Changes == nil || (len(a.Changes.ToAdd) == 0 && len(a.Changes.ToDrop) == 0) {
			return malformed(a, "alter-column requires a non-empty changes payload")
		}
		for k := range a.Changes.ToAdd {
			if _, dropped := a.Changes.ToDrop[k]; dropped {
				return malformed(a, "alter-column changes both add and drop %q", k)
			}
		}
		for k := range a.Changes.Old {
			if _, set := a.Changes.ToAdd[k]; !set {
				return malformed(a, "alter-column records a prior value for %q without setting it", k)
			}
		}
	case DropColumn:
		if a.Field == "" {
			return malformed(a, "drop-column requires a field name")
		}
	case CreateIndex, AlterIndex:
		if a.Index == "" {
			return malformed(a, "%s requires an index name", a.Kind)
		}
		if err := validateIndexOptions(a.Options); err != nil {
			return malformed(a, "index %q: %v", a.Index, err)
		}
	case DropIndex:
		if a.Index == "" {
			return malformed(a, "drop-index requires an index name")
		}
	case CreateType, AlterType:
		if a.TypeName == "" {
			return malformed(a, "%s requires a type name", a.Kind)
		}
		if err := validateTypeOptions(a.Options); err != nil {
			return malformed(a, "type %q: %v", a.TypeName, err)
		}
	case DropType:
		if a.TypeName == "" {
			return malformed(a, "drop-type requires a type name")
		}
	}
	return nil
}

func validateIndexOptions(o schema.Options) error {
	raw, ok := o[schema.OptFields]
	if !ok {
		return fmt.Errorf("missing %q option", schema.OptFields)
	}
	fields, ok := raw.([]any)
	if !ok || len(fields) == 0 {
		return fmt.Errorf("%q must be a non-empty list", schema.OptFields)
	}
	for _, f := range fields {
		if _, ok := f.(string); !ok {
			return fmt.Errorf("index field names must be strings, got %T", f)
		}
	}
	if m, ok := o[schema.OptMethod]; ok {
		if _, isStr := m.(string); !isStr {
			return fmt.Errorf("%q must be a string", schema.OptMethod)
		}
	}
	return nil
}

func validateTypeOptions(o schema.Options) error {
	raw, ok := o[schema.OptChoices]
	if !ok {
		return fmt.Errorf("missing %q option", schema.OptChoices)
	}
	choices, ok := raw.([]any)
	if !ok || len(choices) == 0 {
		return fmt.Errorf("%q must be a non-empty list", schema.OptChoices)
	}
	for _, c := range choices {
		if _, ok := c.(string); !ok {
			return fmt.Errorf("enum choices must be strings, got %T", c)
		}
	}
	return nil
}

func malformed(a Action, format string, args ...any) error {
	return fmt.Errorf("%w: %s on %q: %s",
		schema.ErrMalformedAction, a.Kind, a.Model, fmt.Sprintf(format, args...))
}

// String renders a short human-readable form used by CLI listings.
func (a Action) String() string {
	switch a.Kind {
	case CreateTable, DropTable:
		return fmt.Sprintf("%s %s", a.Kind, a.Model)
	case AddColumn, AlterColumn, DropColumn:
		return fmt.Sprintf("%s %s.%s", a.Kind, a.Model, a.Field)
	case CreateIndex, AlterIndex, DropIndex:
		return fmt.Sprintf("%s %s.%s", a.Kind, a.Model, a.Index)
	default:
		return fmt.Sprintf("%s %s.%s", a.Kind, a.Model, a.TypeName)
	}
}

// Normalize returns a copy with all option payloads in JSON-normalized
// form. Decoded and hand-built actions normalize to the same value.
func (a Action) Normalize() Action {
	out := a
	out.Options = a.Options.Normalize()
	out.OldOptions = a.OldOptions.Normalize()
	if a.Fields != nil {
		out.Fields = make([]schema.Field, len(a.Fields))
		for i, f := range a.Fields {
			out.Fields[i] = schema.Field{Name: f.Name, Options: f.Options.Normalize()}
		}
	}
	if a.Changes != nil {
		out.Changes = &Changes{
			ToAdd:  a.Changes.ToAdd.Normalize(),
			ToDrop: a.Changes.ToDrop.Normalize(),
			Old:    a.Changes.Old.Normalize(),
		}
	}
	return out
}
