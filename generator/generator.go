// Package generator renders an action plan as Postgres DDL. Rendering is
// purely syntactic: dependency ordering is the diff compiler's job and the
// statements come out in plan order.
package generator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/declmig/declmig/actions"
	"github.com/declmig/declmig/schema"
)

// UpSQL renders each action of the plan, in order, as one or more SQL
// statements.
func UpSQL(plan []actions.Action) ([]string, error) {
	var stmts []string
	for _, a := range plan {
		s, err := render(a)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a, err)
		}
		stmts = append(stmts, s...)
	}
	return stmts, nil
}

// DownSQL renders the inverse of the plan: every action inverted, overall
// order reversed.
func DownSQL(plan []actions.Action) ([]string, error) {
	inverse, err := actions.InvertAll(plan)
	if err != nil {
		return nil, err
	}
	return UpSQL(inverse)
}

func render(a actions.Action) ([]string, error) {
	switch a.Kind {
	case actions.CreateTable:
		return renderCreateTable(a)
	case actions.DropTable:
		return []string{fmt.Sprintf(`DROP TABLE %s;`, ident(a.Model))}, nil
	case actions.AddColumn:
		def, err := columnDef(a.Model, a.Field, a.Options, nil)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s;`, ident(a.Model), def)}, nil
	case actions.DropColumn:
		return []string{fmt.Sprintf(`ALTER TABLE %s DROP COLUMN %s;`, ident(a.Model), ident(a.Field))}, nil
	case actions.AlterColumn:
		return renderAlterColumn(a)
	case actions.CreateIndex:
		return renderCreateIndex(a.Model, a.Index, a.Options)
	case actions.DropIndex:
		return []string{fmt.Sprintf(`DROP INDEX %s;`, ident(a.Index))}, nil
	case actions.AlterIndex:
		// Postgres cannot redefine an index in place.
		drop := fmt.Sprintf(`DROP INDEX %s;`, ident(a.Index))
		create, err := renderCreateIndex(a.Model, a.Index, a.Options)
		if err != nil {
			return nil, err
		}
		return append([]string{drop}, create...), nil
	case actions.CreateType:
		choices, err := enumChoices(a.Options)
		if err != nil {
			return nil, err
		}
		quoted := make([]string, len(choices))
		for i, c := range choices {
			quoted[i] = literal(c)
		}
		return []string{fmt.Sprintf(`CREATE TYPE %s AS ENUM (%s);`,
			ident(a.TypeName), strings.Join(quoted, ", "))}, nil
	case actions.AlterType:
		return renderAlterType(a)
	case actions.DropType:
		// CASCADE: a dropped table's removal bracket orders the type drop
		// ahead of the table drop, so the dependent column may still exist
		// when this statement runs.
		return []string{fmt.Sprintf(`DROP TYPE %s CASCADE;`, ident(a.TypeName))}, nil
	default:
		return nil, fmt.Errorf("unsupported action kind %q", a.Kind)
	}
}

func renderCreateTable(a actions.Action) ([]string, error) {
	defs := make([]string, 0, len(a.Fields))
	columns := map[string]bool{}
	for _, f := range a.Fields {
		columns[f.Name] = true
	}
	for _, f := range a.Fields {
		def, err := columnDef(a.Model, f.Name, f.Options, columns)
		if err != nil {
			return nil, err
		}
		defs = append(defs, "  "+def)
	}
	return []string{fmt.Sprintf("CREATE TABLE %s (\n%s\n);", ident(a.Model), strings.Join(defs, ",\n"))}, nil
}

func columnDef(table, name string, opts schema.Options, columns map[string]bool) (string, error) {
	ft, err := schema.ParseFieldType(opts)
	if err != nil {
		return "", fmt.Errorf("column %q: %v", name, err)
	}
	var b strings.Builder
	b.WriteString(ident(name))
	b.WriteString(" ")
	b.WriteString(ft.SQL())
	if truthy(opts[schema.OptPrimaryKey]) {
		b.WriteString(" PRIMARY KEY")
	}
	if v, present := opts[schema.OptNull]; present && !truthy(v) {
		b.WriteString(" NOT NULL")
	}
	if truthy(opts[schema.OptUnique]) {
		b.WriteString(" UNIQUE")
	}
	if v, present := opts[schema.OptDefault]; present {
		b.WriteString(" DEFAULT ")
		b.WriteString(defaultExpr(v))
	}
	if refTable, refColumn, ok := opts.ForeignKeyRef(); ok {
		fmt.Fprintf(&b, " REFERENCES %s (%s)", ident(refTable), ident(refColumn))
		if od, present := opts[schema.OptOnDelete]; present {
			fmt.Fprintf(&b, " ON DELETE %s", onDeleteSQL(od))
		}
	}
	if expr, present := opts[schema.OptCheck]; present {
		if columns == nil {
			columns = map[string]bool{name: true}
		}
		rendered, err := schema.RenderCheck(schema.NormalizeValue(expr), columns)
		if err != nil {
			return "", fmt.Errorf("column %q check: %v", name, err)
		}
		fmt.Fprintf(&b, " CHECK (%s)", rendered)
	}
	return b.String(), nil
}

// renderAlterColumn emits one ALTER statement per changed option, keys in
// a fixed order so output is deterministic.
func renderAlterColumn(a actions.Action) ([]string, error) {
	var stmts []string
	tbl, col := ident(a.Model), ident(a.Field)
	alter := func(format string, args ...any) {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s %s;", tbl, fmt.Sprintf(format, args...)))
	}

	order := []string{
		schema.OptType, schema.OptDefault, schema.OptNull,
		schema.OptUnique, schema.OptPrimaryKey,
		schema.OptForeignKey, schema.OptOnDelete, schema.OptCheck,
	}
	handled := map[string]bool{}
	for _, k := range order {
		handled[k] = true
	}
	for k := range a.Changes.ToAdd {
		if !handled[k] {
			return nil, fmt.Errorf("cannot alter option %q", k)
		}
	}
	for k := range a.Changes.ToDrop {
		if !handled[k] {
			return nil, fmt.Errorf("cannot alter option %q", k)
		}
	}

	for _, k := range order {
		v, added := a.Changes.ToAdd[k]
		_, dropped := a.Changes.ToDrop[k]
		if !added && !dropped {
			continue
		}
		switch k {
		case schema.OptType:
			if !added {
				return nil, fmt.Errorf("a column cannot lose its type")
			}
			ft, err := schema.ParseType(v)
			if err != nil {
				return nil, err
			}
			alter("ALTER COLUMN %s TYPE %s", col, ft.SQL())
		case schema.OptDefault:
			if added {
				alter("ALTER COLUMN %s SET DEFAULT %s", col, defaultExpr(v))
			} else {
				alter("ALTER COLUMN %s DROP DEFAULT", col)
			}
		case schema.OptNull:
			// null defaults to true; setting null:false is the only way a
			// column becomes NOT NULL.
			if added && !truthy(v) {
				alter("ALTER COLUMN %s SET NOT NULL", col)
			} else {
				alter("ALTER COLUMN %s DROP NOT NULL", col)
			}
		case schema.OptUnique:
			if added && truthy(v) {
				alter("ADD CONSTRAINT %s UNIQUE (%s)", constraint(a.Model, a.Field, "key"), col)
			} else {
				alter("DROP CONSTRAINT %s", constraint(a.Model, a.Field, "key"))
			}
		case schema.OptPrimaryKey:
			if added && truthy(v) {
				alter("ADD PRIMARY KEY (%s)", col)
			} else {
				alter("DROP CONSTRAINT %s", constraint(a.Model, "", "pkey"))
			}
		case schema.OptForeignKey:
			if dropped {
				alter("DROP CONSTRAINT %s", constraint(a.Model, a.Field, "fkey"))
			}
			if added {
				ref, _ := v.(string)
				refTable, refColumn, ok := strings.Cut(ref, "/")
				if !ok {
					return nil, fmt.Errorf("foreign key must be \"table/column\", got %v", v)
				}
				clause := fmt.Sprintf("ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
					constraint(a.Model, a.Field, "fkey"), col, ident(refTable), ident(refColumn))
				if od, present := a.Changes.ToAdd[schema.OptOnDelete]; present {
					clause += " ON DELETE " + onDeleteSQL(od)
				}
				alter("%s", clause)
			}
		case schema.OptOnDelete:
			// Folded into the foreign-key constraint; a standalone
			// on-delete change recreates it.
			if _, fkChanged := a.Changes.ToAdd[schema.OptForeignKey]; fkChanged {
				continue
			}
			if _, fkDropped := a.Changes.ToDrop[schema.OptForeignKey]; fkDropped {
				continue
			}
			return nil, fmt.Errorf("on-delete cannot change without its foreign key")
		case schema.OptCheck:
			if dropped {
				alter("DROP CONSTRAINT %s", constraint(a.Model, a.Field, "check"))
			}
			if added {
				rendered, err := schema.RenderCheck(schema.NormalizeValue(v), map[string]bool{a.Field: true})
				if err != nil {
					return nil, err
				}
				alter("ADD CONSTRAINT %s CHECK (%s)", constraint(a.Model, a.Field, "check"), rendered)
			}
		}
	}
	return stmts, nil
}

func renderCreateIndex(table, name string, opts schema.Options) ([]string, error) {
	raw, present := opts[schema.OptFields]
	if !present {
		return nil, fmt.Errorf("index %q has no fields", name)
	}
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("index %q fields must be a non-empty list", name)
	}
	cols := make([]string, len(list))
	for i, f := range list {
		s, ok := f.(string)
		if !ok {
			return nil, fmt.Errorf("index %q field names must be strings", name)
		}
		cols[i] = ident(s)
	}
	unique := ""
	if truthy(opts[schema.OptUnique]) {
		unique = "UNIQUE "
	}
	using := ""
	if m, present := opts[schema.OptMethod]; present {
		using = fmt.Sprintf(" USING %s", m)
	}
	return []string{fmt.Sprintf(`CREATE %sINDEX %s ON %s%s (%s);`,
		unique, ident(name), ident(table), using, strings.Join(cols, ", "))}, nil
}

// renderAlterType supports the one enum change Postgres can do in place:
// appending values. Removing or reordering choices has no safe DDL
// counterpart and is rejected.
func renderAlterType(a actions.Action) ([]string, error) {
	oldChoices, err := enumChoices(a.OldOptions)
	if err != nil {
		return nil, fmt.Errorf("old options: %v", err)
	}
	newChoices, err := enumChoices(a.Options)
	if err != nil {
		return nil, err
	}
	if len(newChoices) < len(oldChoices) ||
		!reflect.DeepEqual(oldChoices, newChoices[:len(oldChoices)]) {
		return nil, fmt.Errorf("enum %q: only appending choices is supported in SQL", a.TypeName)
	}
	var stmts []string
	for _, c := range newChoices[len(oldChoices):] {
		stmts = append(stmts, fmt.Sprintf(`ALTER TYPE %s ADD VALUE %s;`, ident(a.TypeName), literal(c)))
	}
	return stmts, nil
}

func enumChoices(o schema.Options) ([]string, error) {
	raw, present := o[schema.OptChoices]
	if !present {
		return nil, fmt.Errorf("enum type has no choices")
	}
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("enum choices must be a non-empty list")
	}
	out := make([]string, len(list))
	for i, c := range list {
		s, ok := c.(string)
		if !ok {
			return nil, fmt.Errorf("enum choices must be strings")
		}
		out[i] = s
	}
	return out, nil
}

// defaultExpr renders a default value. A map {"sql": "..."} passes the raw
// expression through; everything else is a literal.
func defaultExpr(v any) string {
	switch v := v.(type) {
	case map[string]any:
		if expr, ok := v["sql"].(string); ok {
			return expr
		}
		return literal(fmt.Sprintf("%v", v))
	case string:
		return literal(v)
	case bool:
		return fmt.Sprintf("%t", v)
	case int64, int, float64:
		return fmt.Sprintf("%v", v)
	default:
		return literal(fmt.Sprintf("%v", v))
	}
}

func onDeleteSQL(v any) string {
	switch v {
	case schema.OnDeleteSetNull:
		return "SET NULL"
	case schema.OnDeleteRestrict:
		return "RESTRICT"
	default:
		return "CASCADE"
	}
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func ident(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func constraint(table, column, suffix string) string {
	if column == "" {
		return ident(table + "_" + suffix)
	}
	return ident(table + "_" + column + "_" + suffix)
}
