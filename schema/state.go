package schema

import "sort"

// Schema is the reconstructed in-memory schema: table name to table state.
// It is a pure fold result over the migration history and is never mutated
// in place; every fold step returns a fresh value.
type Schema map[string]TableState

// TableState is the reconstructed state of one table. The Indexes and
// Types maps are omitted (nil) while empty: the fold removes the key once
// the last index or type is dropped, and all readers treat nil and absent
// identically, so the two shapes are indistinguishable.
type TableState struct {
	Fields  map[string]Options `json:"fields"`
	Indexes map[string]Options `json:"indexes,omitempty"`
	Types   map[string]Options `json:"types,omitempty"`
}

// Clone deep-copies the schema.
func (s Schema) Clone() Schema {
	out := make(Schema, len(s))
	for name, ts := range s {
		out[name] = ts.Clone()
	}
	return out
}

// Clone deep-copies the table state.
func (ts TableState) Clone() TableState {
	return TableState{
		Fields:  cloneOptionsMap(ts.Fields),
		Indexes: cloneOptionsMap(ts.Indexes),
		Types:   cloneOptionsMap(ts.Types),
	}
}

func cloneOptionsMap(m map[string]Options) map[string]Options {
	if m == nil {
		return nil
	}
	out := make(map[string]Options, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// TableNames returns the schema's table names in sorted order.
func (s Schema) TableNames() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasType reports whether any table in the schema declares the enum type.
func (s Schema) HasType(name string) bool {
	for _, ts := range s {
		if _, ok := ts.Types[name]; ok {
			return true
		}
	}
	return false
}

// StateOf projects a declared table into its reconstructed-schema shape:
// ordered field/index/type lists become name-keyed option maps, and empty
// index/type sets produce no map at all (matching the fold's minimization
// rules, so diff-then-apply lands on exactly this value).
func StateOf(t Table) TableState {
	ts := TableState{Fields: make(map[string]Options, len(t.Fields))}
	for _, f := range t.Fields {
		ts.Fields[f.Name] = f.Options.Normalize()
	}
	if len(t.Indexes) > 0 {
		ts.Indexes = make(map[string]Options, len(t.Indexes))
		for _, ix := range t.Indexes {
			ts.Indexes[ix.Name] = ix.Options.Normalize()
		}
	}
	if len(t.Types) > 0 {
		ts.Types = make(map[string]Options, len(t.Types))
		for _, et := range t.Types {
			ts.Types[et.Name] = et.Options.Normalize()
		}
	}
	return ts
}

// StateOfModel projects a whole model into reconstructed-schema shape.
func StateOfModel(m Model) Schema {
	out := make(Schema, len(m.Tables))
	for _, t := range m.Tables {
		out[t.Name] = StateOf(t)
	}
	return out
}
