package actions

import (
	"fmt"

	"github.com/declmig/declmig/schema"
)

// Invert returns the semantic inverse of an action: applying the action and
// then its inverse restores the schema the action was applied to. The
// destructive kinds rely on their prior-definition payloads; an inversion
// that would need information the action does not carry fails rather than
// guessing.
func Invert(a Action) (Action, error) {
	if err := a.Validate(); err != nil {
		return Action{}, err
	}
	switch a.Kind {
	case CreateTable:
		return Action{Kind: DropTable, Model: a.Model, Fields: a.Fields}, nil
	case DropTable:
		if len(a.Fields) == 0 {
			return Action{}, fmt.Errorf("invert drop-table %q: action carries no field definitions", a.Model)
		}
		return Action{Kind: CreateTable, Model: a.Model, Fields: a.Fields}, nil
	case AddColumn:
		return Action{Kind: DropColumn, Model: a.Model, Field: a.Field, Options: a.Options}, nil
	case DropColumn:
		if len(a.Options) == 0 {
			return Action{}, fmt.Errorf("invert drop-column %q.%q: action carries no prior options", a.Model, a.Field)
		}
		return Action{Kind: AddColumn, Model: a.Model, Field: a.Field, Options: a.Options}, nil
	case AlterColumn:
		// Dropped keys come back via ToAdd; set keys either revert to
		// their recorded prior value or, when they were new, get dropped.
		toAdd := a.Changes.ToDrop.Clone()
		if toAdd == nil {
			toAdd = schema.Options{}
		}
		toDrop := schema.Options{}
		old := schema.Options{}
		for k, v := range a.Changes.ToAdd {
			if prior, changed := a.Changes.Old[k]; changed {
				toAdd[k] = prior
				old[k] = v
			} else {
				toDrop[k] = v
			}
		}
		ch := &Changes{}
		if len(toAdd) > 0 {
			ch.ToAdd = toAdd.Clone()
		}
		if len(toDrop) > 0 {
			ch.ToDrop = toDrop.Clone()
		}
		if len(old) > 0 {
			ch.Old = old.Clone()
		}
		return Action{Kind: AlterColumn, Model: a.Model, Field: a.Field, Changes: ch}, nil
	case CreateIndex:
		return Action{Kind: DropIndex, Model: a.Model, Index: a.Index, Options: a.Options}, nil
	case DropIndex:
		if len(a.Options) == 0 {
			return Action{}, fmt.Errorf("invert drop-index %q.%q: action carries no prior options", a.Model, a.Index)
		}
		return Action{Kind: CreateIndex, Model: a.Model, Index: a.Index, Options: a.Options}, nil
	case AlterIndex:
		if len(a.OldOptions) == 0 {
			return Action{}, fmt.Errorf("invert alter-index %q.%q: action carries no prior options", a.Model, a.Index)
		}
		return Action{Kind: AlterIndex, Model: a.Model, Index: a.Index,
			Options: a.OldOptions, OldOptions: a.Options}, nil
	case CreateType:
		return Action{Kind: DropType, Model: a.Model, TypeName: a.TypeName, Options: a.Options}, nil
	case DropType:
		if len(a.Options) == 0 {
			return Action{}, fmt.Errorf("invert drop-type %q.%q: action carries no prior options", a.Model, a.TypeName)
		}
		return Action{Kind: CreateType, Model: a.Model, TypeName: a.TypeName, Options: a.Options}, nil
	case AlterType:
		if len(a.OldOptions) == 0 {
			return Action{}, fmt.Errorf("invert alter-type %q.%q: action carries no prior options", a.Model, a.TypeName)
		}
		return Action{Kind: AlterType, Model: a.Model, TypeName: a.TypeName,
			Options: a.OldOptions, OldOptions: a.Options}, nil
	default:
		return Action{}, fmt.Errorf("invert: unknown action kind %q", a.Kind)
	}
}

// InvertAll inverts each action and reverses the overall order, producing
// the down-migration for a plan.
func InvertAll(plan []Action) ([]Action, error) {
	out := make([]Action, 0, len(plan))
	for i := len(plan) - 1; i >= 0; i-- {
		inv, err := Invert(plan[i])
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}
