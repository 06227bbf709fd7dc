// Package replay reconstructs the current database schema by folding the
// recorded migration actions, in order, onto an empty schema. The fold is
// pure: each step returns a fresh schema value and the inputs are never
// mutated.
package replay

import (
	"fmt"

	"github.com/declmig/declmig/actions"
	"github.com/declmig/declmig/schema"
)

// Replay left-folds the action sequence onto the empty schema and then
// validates the result structurally (foreign-key targets, enum references).
// Any failure aborts the whole reconstruction; there is no partial result.
func Replay(as []actions.Action) (schema.Schema, error) {
	s := schema.Schema{}
	for i, a := range as {
		next, err := Apply(s, a)
		if err != nil {
			return nil, fmt.Errorf("action %d (%s): %w", i, a, err)
		}
		s = next
	}
	if err := ValidateState(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply folds one action onto the schema, dispatching on its kind. The
// input schema is not modified.
//
// Enum types are staged under their table's entry before the table itself
// is created (a table entry with a nil Fields map is a staging entry, not a
// table), so a plan may order create-type ahead of its create-table the way
// the emitted DDL must. Apply checks only the structural preconditions of
// each step (create-on-existing, operate-on-missing); enum references and
// foreign keys are checked after the whole fold, since a reference is valid
// as long as the resulting schema satisfies it and per-step checks would
// make legal action orderings uninvertible.
func Apply(s schema.Schema, a actions.Action) (schema.Schema, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	out := s.Clone()
	switch a.Kind {
	case actions.CreateTable:
		ts := out[a.Model]
		if ts.Fields != nil {
			return nil, fmt.Errorf("%w: %q", schema.ErrDuplicateTable, a.Model)
		}
		ts.Fields = make(map[string]schema.Options, len(a.Fields))
		for _, f := range a.Fields {
			ts.Fields[f.Name] = f.Options.Normalize()
		}
		out[a.Model] = ts

	case actions.DropTable:
		ts, err := tableOf(out, a.Model)
		if err != nil {
			return nil, err
		}
		// Indexes go first; a drop-table that would take live indexes with
		// it is an ordering bug in the plan. Types outlive the table the
		// same way they may precede it: they stay staged until their own
		// drop-type actions arrive.
		if len(ts.Indexes) > 0 {
			return nil, fmt.Errorf("drop table %q: indexes still present, drop them first", a.Model)
		}
		if len(ts.Types) > 0 {
			ts.Fields = nil
			out[a.Model] = ts
		} else {
			delete(out, a.Model)
		}

	case actions.AddColumn:
		ts, err := tableOf(out, a.Model)
		if err != nil {
			return nil, err
		}
		if _, exists := ts.Fields[a.Field]; exists {
			return nil, fmt.Errorf("%w: %q.%q", schema.ErrDuplicateField, a.Model, a.Field)
		}
		ts.Fields[a.Field] = a.Options.Normalize()
		out[a.Model] = ts

	case actions.AlterColumn:
		ts, err := tableOf(out, a.Model)
		if err != nil {
			return nil, err
		}
		opts, exists := ts.Fields[a.Field]
		if !exists {
			return nil, fmt.Errorf("%w: %q.%q", schema.ErrUnknownField, a.Model, a.Field)
		}
		merged := opts.Clone()
		if merged == nil {
			merged = schema.Options{}
		}
		for k, v := range a.Changes.ToAdd.Normalize() {
			merged[k] = v
		}
		for k := range a.Changes.ToDrop {
			delete(merged, k)
		}
		ts.Fields[a.Field] = merged
		out[a.Model] = ts

	case actions.DropColumn:
		ts, err := tableOf(out, a.Model)
		if err != nil {
			return nil, err
		}
		if _, exists := ts.Fields[a.Field]; !exists {
			return nil, fmt.Errorf("%w: %q.%q", schema.ErrUnknownField, a.Model, a.Field)
		}
		// The table keeps an empty fields map when its last column goes;
		// dropping a column never implies dropping the table.
		delete(ts.Fields, a.Field)
		out[a.Model] = ts

	case actions.CreateIndex, actions.AlterIndex:
		ts, err := tableOf(out, a.Model)
		if err != nil {
			return nil, err
		}
		_, exists := ts.Indexes[a.Index]
		if a.Kind == actions.CreateIndex && exists {
			return nil, fmt.Errorf("%w: %q.%q", schema.ErrDuplicateIndex, a.Model, a.Index)
		}
		if a.Kind == actions.AlterIndex && !exists {
			return nil, fmt.Errorf("%w: %q.%q", schema.ErrUnknownIndex, a.Model, a.Index)
		}
		if ts.Indexes == nil {
			ts.Indexes = map[string]schema.Options{}
		}
		// Alter replaces wholesale, same as create.
		ts.Indexes[a.Index] = a.Options.Normalize()
		out[a.Model] = ts

	case actions.DropIndex:
		ts, err := tableOf(out, a.Model)
		if err != nil {
			return nil, err
		}
		if _, exists := ts.Indexes[a.Index]; !exists {
			return nil, fmt.Errorf("%w: %q.%q", schema.ErrUnknownIndex, a.Model, a.Index)
		}
		delete(ts.Indexes, a.Index)
		if len(ts.Indexes) == 0 {
			ts.Indexes = nil
		}
		out[a.Model] = ts

	case actions.CreateType, actions.AlterType:
		ts := out[a.Model]
		_, exists := ts.Types[a.TypeName]
		if a.Kind == actions.CreateType && exists {
			return nil, fmt.Errorf("%w: %q.%q", schema.ErrDuplicateType, a.Model, a.TypeName)
		}
		if a.Kind == actions.AlterType && !exists {
			return nil, fmt.Errorf("%w: %q.%q", schema.ErrUnknownType, a.Model, a.TypeName)
		}
		if ts.Types == nil {
			ts.Types = map[string]schema.Options{}
		}
		ts.Types[a.TypeName] = a.Options.Normalize()
		out[a.Model] = ts

	case actions.DropType:
		ts, exists := out[a.Model]
		if !exists {
			return nil, fmt.Errorf("%w: %q", schema.ErrUnknownTable, a.Model)
		}
		if _, ok := ts.Types[a.TypeName]; !ok {
			return nil, fmt.Errorf("%w: %q.%q", schema.ErrUnknownType, a.Model, a.TypeName)
		}
		delete(ts.Types, a.TypeName)
		if len(ts.Types) == 0 {
			ts.Types = nil
		}
		if ts.Fields == nil && ts.Indexes == nil && ts.Types == nil {
			// A staging entry that lost its last type disappears.
			delete(out, a.Model)
		} else {
			out[a.Model] = ts
		}

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", schema.ErrMalformedAction, a.Kind)
	}
	return out, nil
}

// tableOf resolves a created table (staging entries holding only types do
// not count).
func tableOf(s schema.Schema, model string) (schema.TableState, error) {
	ts, exists := s[model]
	if !exists || ts.Fields == nil {
		return schema.TableState{}, fmt.Errorf("%w: %q", schema.ErrUnknownTable, model)
	}
	return ts, nil
}
