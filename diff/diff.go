// Package diff compiles the difference between the reconstructed current
// schema and a declarative target model into an ordered, reversible action
// plan.
//
// Emission is phased so the plan is dependency-safe: everything a later
// action may reference exists before the reference, and nothing is dropped
// while something still points at it.
//
//  1. New tables, in target declaration order: create-type (types before
//     the columns that use them), create-table, create-index.
//  2. Shared tables, in target declaration order: type creates/alters,
//     column adds/alters, index creates/alters, then index drops, column
//     drops, type drops.
//  3. Removed tables, in sorted-name order: drop-index, drop-type,
//     drop-table (reverse of the creation bracket).
package diff

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/declmig/declmig/actions"
	"github.com/declmig/declmig/replay"
	"github.com/declmig/declmig/schema"
	"github.com/declmig/declmig/validator"
)

// Compute returns the ordered action list transforming current into the
// target model's schema. The model is validated first; an invalid model
// produces no partial plan. The finished plan is verified by replaying it
// onto current before it is returned.
func Compute(current schema.Schema, target schema.Model) ([]actions.Action, error) {
	if err := validator.ValidateModel(target); err != nil {
		return nil, err
	}

	var plan []actions.Action

	// Phase 1: new tables.
	for _, t := range target.Tables {
		if tableExists(current, t.Name) {
			continue
		}
		if err := checkFreshTable(current, t); err != nil {
			return nil, err
		}
		for _, et := range t.Types {
			plan = append(plan, actions.Action{
				Kind: actions.CreateType, Model: t.Name,
				TypeName: et.Name, Options: et.Options.Normalize(),
			})
		}
		plan = append(plan, actions.Action{
			Kind: actions.CreateTable, Model: t.Name, Fields: normalizeFields(t.Fields),
		})
		for _, ix := range t.Indexes {
			plan = append(plan, actions.Action{
				Kind: actions.CreateIndex, Model: t.Name,
				Index: ix.Name, Options: ix.Options.Normalize(),
			})
		}
	}

	// Phase 2: shared tables.
	for _, t := range target.Tables {
		if !tableExists(current, t.Name) {
			continue
		}
		tablePlan, err := diffTable(current[t.Name], t)
		if err != nil {
			return nil, err
		}
		plan = append(plan, tablePlan...)
	}

	// Phase 3: removed tables.
	for _, name := range current.TableNames() {
		if _, keep := target.Lookup(name); keep {
			continue
		}
		plan = append(plan, dropTable(name, current[name])...)
	}

	if err := verify(current, target, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// InversePlan inverts each action and reverses the order, producing the
// down-migration for a computed plan.
func InversePlan(plan []actions.Action) ([]actions.Action, error) {
	return actions.InvertAll(plan)
}

func tableExists(s schema.Schema, name string) bool {
	ts, ok := s[name]
	return ok && ts.Fields != nil
}

// checkFreshTable rejects a new table whose declared names collide with an
// existing object of a different kind (a staged type entry left in the
// schema, for example).
func checkFreshTable(current schema.Schema, t schema.Table) error {
	for _, et := range t.Types {
		if current.HasType(et.Name) {
			return fmt.Errorf("%w: enum type %q already exists", schema.ErrNameConflict, et.Name)
		}
	}
	return nil
}

func normalizeFields(fields []schema.Field) []schema.Field {
	out := make([]schema.Field, len(fields))
	for i, f := range fields {
		out[i] = schema.Field{Name: f.Name, Options: f.Options.Normalize()}
	}
	return out
}

// diffTable produces the change bracket for a table present on both sides:
// creates in dependency order (types, columns, indexes), then drops in
// reverse dependency order (indexes, columns, types).
func diffTable(cur schema.TableState, t schema.Table) ([]actions.Action, error) {
	var creates, drops []actions.Action

	// Types.
	targetTypes := map[string]bool{}
	for _, et := range t.Types {
		targetTypes[et.Name] = true
		opts := et.Options.Normalize()
		old, exists := cur.Types[et.Name]
		switch {
		case !exists:
			if _, clash := cur.Fields[et.Name]; clash {
				return nil, nameConflict(t.Name, et.Name, "column", "type")
			}
			if _, clash := cur.Indexes[et.Name]; clash {
				return nil, nameConflict(t.Name, et.Name, "index", "type")
			}
			creates = append(creates, actions.Action{
				Kind: actions.CreateType, Model: t.Name, TypeName: et.Name, Options: opts,
			})
		case !old.Equal(opts):
			creates = append(creates, actions.Action{
				Kind: actions.AlterType, Model: t.Name, TypeName: et.Name,
				Options: opts, OldOptions: old.Clone(),
			})
		}
	}

	// Columns.
	targetFields := map[string]bool{}
	for _, f := range t.Fields {
		targetFields[f.Name] = true
		opts := f.Options.Normalize()
		old, exists := cur.Fields[f.Name]
		switch {
		case !exists:
			if _, clash := cur.Indexes[f.Name]; clash {
				return nil, nameConflict(t.Name, f.Name, "index", "column")
			}
			if _, clash := cur.Types[f.Name]; clash {
				return nil, nameConflict(t.Name, f.Name, "type", "column")
			}
			creates = append(creates, actions.Action{
				Kind: actions.AddColumn, Model: t.Name, Field: f.Name, Options: opts,
			})
		default:
			if changes := optionChanges(old, opts); changes != nil {
				creates = append(creates, actions.Action{
					Kind: actions.AlterColumn, Model: t.Name, Field: f.Name, Changes: changes,
				})
			}
		}
	}

	// Indexes.
	targetIndexes := map[string]bool{}
	for _, ix := range t.Indexes {
		targetIndexes[ix.Name] = true
		opts := ix.Options.Normalize()
		old, exists := cur.Indexes[ix.Name]
		switch {
		case !exists:
			if _, clash := cur.Fields[ix.Name]; clash {
				return nil, nameConflict(t.Name, ix.Name, "column", "index")
			}
			if _, clash := cur.Types[ix.Name]; clash {
				return nil, nameConflict(t.Name, ix.Name, "type", "index")
			}
			creates = append(creates, actions.Action{
				Kind: actions.CreateIndex, Model: t.Name, Index: ix.Name, Options: opts,
			})
		case !old.Equal(opts):
			creates = append(creates, actions.Action{
				Kind: actions.AlterIndex, Model: t.Name, Index: ix.Name,
				Options: opts, OldOptions: old.Clone(),
			})
		}
	}

	// Drops, reverse bracket: indexes, columns, types. Sorted names keep
	// the plan deterministic (the current side is a map).
	for _, name := range sortedKeys(cur.Indexes) {
		if !targetIndexes[name] {
			drops = append(drops, actions.Action{
				Kind: actions.DropIndex, Model: t.Name, Index: name,
				Options: cur.Indexes[name].Clone(),
			})
		}
	}
	for _, name := range sortedKeys(cur.Fields) {
		if !targetFields[name] {
			drops = append(drops, actions.Action{
				Kind: actions.DropColumn, Model: t.Name, Field: name,
				Options: cur.Fields[name].Clone(),
			})
		}
	}
	for _, name := range sortedKeys(cur.Types) {
		if !targetTypes[name] {
			drops = append(drops, actions.Action{
				Kind: actions.DropType, Model: t.Name, TypeName: name,
				Options: cur.Types[name].Clone(),
			})
		}
	}

	return append(creates, drops...), nil
}

// dropTable emits the removal bracket for one table: indexes, then local
// types, then the table itself (carrying its field list for inversion).
func dropTable(name string, ts schema.TableState) []actions.Action {
	var out []actions.Action
	for _, ix := range sortedKeys(ts.Indexes) {
		out = append(out, actions.Action{
			Kind: actions.DropIndex, Model: name, Index: ix,
			Options: ts.Indexes[ix].Clone(),
		})
	}
	for _, tn := range sortedKeys(ts.Types) {
		out = append(out, actions.Action{
			Kind: actions.DropType, Model: name, TypeName: tn,
			Options: ts.Types[tn].Clone(),
		})
	}
	fields := make([]schema.Field, 0, len(ts.Fields))
	for _, fn := range sortedKeys(ts.Fields) {
		fields = append(fields, schema.Field{Name: fn, Options: ts.Fields[fn].Clone()})
	}
	out = append(out, actions.Action{Kind: actions.DropTable, Model: name, Fields: fields})
	return out
}

// optionChanges computes the alter-column delta between two option maps.
// ToAdd carries keys whose value changed or is new; keys that merely
// changed also record their prior value in Old. ToDrop carries the keys
// (with their prior values) present before and absent now. Equal keys
// appear in nothing. nil means no change.
func optionChanges(old, new schema.Options) *actions.Changes {
	toAdd := schema.Options{}
	toDrop := schema.Options{}
	prior := schema.Options{}
	for k, v := range new {
		prev, exists := old[k]
		if !exists || !reflect.DeepEqual(prev, v) {
			toAdd[k] = v
			if exists {
				prior[k] = prev
			}
		}
	}
	for k, v := range old {
		if _, keep := new[k]; !keep {
			toDrop[k] = v
		}
	}
	if len(toAdd) == 0 && len(toDrop) == 0 {
		return nil
	}
	ch := &actions.Changes{}
	if len(toAdd) > 0 {
		ch.ToAdd = toAdd.Clone()
	}
	if len(toDrop) > 0 {
		ch.ToDrop = toDrop.Clone()
	}
	if len(prior) > 0 {
		ch.Old = prior.Clone()
	}
	return ch
}

func sortedKeys(m map[string]schema.Options) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// verify replays the plan onto current and checks it lands exactly on the
// target's schema shape. A mismatch is a compiler bug surfaced here rather
// than in a generated migration.
func verify(current schema.Schema, target schema.Model, plan []actions.Action) error {
	folded := current.Clone()
	var err error
	for _, a := range plan {
		folded, err = replay.Apply(folded, a)
		if err != nil {
			return fmt.Errorf("computed plan does not apply: %w", err)
		}
	}
	want := schema.StateOfModel(target)
	if !reflect.DeepEqual(folded, want) {
		return fmt.Errorf("computed plan does not converge on the target model")
	}
	return nil
}

func nameConflict(table, name, existing, requested string) error {
	return fmt.Errorf("%w: %q.%q already exists as a %s, requested as a %s",
		schema.ErrNameConflict, table, name, existing, requested)
}
