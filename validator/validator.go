// Package validator checks a declarative model structurally, before any
// diffing happens and without touching a database.
package validator

import (
	"fmt"
	"strings"

	"github.com/declmig/declmig/schema"
)

// Issue is one validation finding with enough context to locate the
// offending declaration.
type Issue struct {
	Table   string `json:"table,omitempty"`
	Column  string `json:"column,omitempty"`
	Index   string `json:"index,omitempty"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	loc := i.Table
	switch {
	case i.Column != "":
		loc += "." + i.Column
	case i.Index != "":
		loc += "." + i.Index
	case i.Type != "":
		loc += "." + i.Type
	}
	if loc == "" {
		return i.Message
	}
	return loc + ": " + i.Message
}

// Error aggregates all findings for one model. It wraps
// schema.ErrModelValidation and reports the first offender in its message.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("%v: %s", schema.ErrModelValidation, e.Issues[0])
	}
	return fmt.Sprintf("%v: %s (and %d more)", schema.ErrModelValidation, e.Issues[0], len(e.Issues)-1)
}

func (e *Error) Unwrap() error { return schema.ErrModelValidation }

// Summary lists every finding, one per line.
func (e *Error) Summary() string {
	lines := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		lines[i] = issue.String()
	}
	return strings.Join(lines, "\n")
}

// ValidateModel checks the model as a whole: table/field/index/type
// declarations, cross-kind name collisions, enum references and foreign
// keys. All findings are collected; the returned error is nil only when
// there are none.
func ValidateModel(m schema.Model) error {
	var issues []Issue
	add := func(i Issue) { issues = append(issues, i) }

	// Enum types are declared under a table but CREATE TYPE is global, so
	// the same name in two tables would collide in the emitted DDL.
	declaredTypes := map[string]bool{}
	typeOwner := map[string]string{}
	for _, t := range m.Tables {
		for _, et := range t.Types {
			if et.Name == "" {
				continue
			}
			if owner, taken := typeOwner[et.Name]; taken && owner != t.Name {
				add(Issue{Table: t.Name, Type: et.Name,
					Message: fmt.Sprintf("enum type already declared in table %q", owner)})
				continue
			}
			typeOwner[et.Name] = t.Name
			declaredTypes[et.Name] = true
		}
	}

	seenTables := map[string]bool{}
	for _, t := range m.Tables {
		if t.Name == "" {
			add(Issue{Message: "table with empty name"})
			continue
		}
		if seenTables[t.Name] {
			add(Issue{Table: t.Name, Message: "table declared twice"})
			continue
		}
		seenTables[t.Name] = true
		issues = append(issues, validateTable(t, m, declaredTypes)...)
	}

	if len(issues) > 0 {
		return &Error{Issues: issues}
	}
	return nil
}

func validateTable(t schema.Table, m schema.Model, declaredTypes map[string]bool) []Issue {
	var issues []Issue
	add := func(i Issue) { issues = append(issues, i) }

	if len(t.Fields) == 0 {
		add(Issue{Table: t.Name, Message: "table declares no fields"})
	}

	// Cross-kind name collisions within the table.
	kindOf := map[string]string{}
	claim := func(name, kind string) bool {
		if prev, taken := kindOf[name]; taken && prev != kind {
			add(Issue{Table: t.Name, Message: fmt.Sprintf("name %q used as both %s and %s", name, prev, kind)})
			return false
		}
		kindOf[name] = kind
		return true
	}

	columns := map[string]bool{}
	for _, f := range t.Fields {
		if f.Name == "" {
			add(Issue{Table: t.Name, Message: "field with empty name"})
			continue
		}
		if columns[f.Name] {
			add(Issue{Table: t.Name, Column: f.Name, Message: "field declared twice"})
			continue
		}
		columns[f.Name] = true
		claim(f.Name, "column")
		issues = append(issues, validateField(t, f, m, declaredTypes)...)
	}

	seenIdx := map[string]bool{}
	for _, ix := range t.Indexes {
		if ix.Name == "" {
			add(Issue{Table: t.Name, Message: "index with empty name"})
			continue
		}
		if seenIdx[ix.Name] {
			add(Issue{Table: t.Name, Index: ix.Name, Message: "index declared twice"})
			continue
		}
		seenIdx[ix.Name] = true
		claim(ix.Name, "index")
		issues = append(issues, validateIndex(t, ix, columns)...)
	}

	seenTypes := map[string]bool{}
	for _, et := range t.Types {
		if et.Name == "" {
			add(Issue{Table: t.Name, Message: "enum type with empty name"})
			continue
		}
		if seenTypes[et.Name] {
			add(Issue{Table: t.Name, Type: et.Name, Message: "enum type declared twice"})
			continue
		}
		seenTypes[et.Name] = true
		claim(et.Name, "type")
		if err := validateChoices(et.Options); err != nil {
			add(Issue{Table: t.Name, Type: et.Name, Message: err.Error()})
		}
	}

	return issues
}

func validateField(t schema.Table, f schema.Field, m schema.Model, declaredTypes map[string]bool) []Issue {
	var issues []Issue
	add := func(msg string) {
		issues = append(issues, Issue{Table: t.Name, Column: f.Name, Message: msg})
	}

	ft, err := schema.ParseFieldType(f.Options)
	if err != nil {
		add(err.Error())
		return issues
	}
	if ft.Base == schema.TypeEnum && !declaredTypes[ft.Enum] {
		add(fmt.Sprintf("references undeclared enum type %q", ft.Enum))
	}

	if refTable, refColumn, ok := f.Options.ForeignKeyRef(); ok {
		target, exists := m.Lookup(refTable)
		if !exists {
			add(fmt.Sprintf("foreign key references unknown table %q", refTable))
		} else if _, exists := target.Lookup(refColumn); !exists {
			add(fmt.Sprintf("foreign key references unknown column %q.%q", refTable, refColumn))
		}
	} else if _, present := f.Options[schema.OptForeignKey]; present {
		add(`foreign key must be of the form "table/column"`)
	}

	if onDelete, present := f.Options[schema.OptOnDelete]; present {
		if _, hasFK := f.Options[schema.OptForeignKey]; !hasFK {
			add("on-delete without a foreign key")
		}
		switch onDelete {
		case schema.OnDeleteCascade, schema.OnDeleteSetNull, schema.OnDeleteRestrict:
		default:
			add(fmt.Sprintf("unknown on-delete action %v", onDelete))
		}
	}

	if expr, present := f.Options[schema.OptCheck]; present {
		cols := map[string]bool{}
		for _, name := range t.FieldNames() {
			cols[name] = true
		}
		if err := schema.ValidateCheck(schema.NormalizeValue(expr), cols); err != nil {
			add(err.Error())
		}
	}

	return issues
}

func validateIndex(t schema.Table, ix schema.Index, columns map[string]bool) []Issue {
	var issues []Issue
	add := func(msg string) {
		issues = append(issues, Issue{Table: t.Name, Index: ix.Name, Message: msg})
	}

	raw, present := ix.Options[schema.OptFields]
	if !present {
		add("index declares no fields")
		return issues
	}
	fields, ok := schema.NormalizeValue(raw).([]any)
	if !ok || len(fields) == 0 {
		add("index fields must be a non-empty list")
		return issues
	}
	for _, f := range fields {
		name, ok := f.(string)
		if !ok {
			add(fmt.Sprintf("index field names must be strings, got %T", f))
			continue
		}
		if !columns[name] {
			add(fmt.Sprintf("index covers unknown column %q", name))
		}
	}
	return issues
}

func validateChoices(o schema.Options) error {
	raw, present := o[schema.OptChoices]
	if !present {
		return fmt.Errorf("enum type declares no choices")
	}
	choices, ok := schema.NormalizeValue(raw).([]any)
	if !ok || len(choices) == 0 {
		return fmt.Errorf("enum choices must be a non-empty list")
	}
	seen := map[string]bool{}
	for _, c := range choices {
		s, ok := c.(string)
		if !ok {
			return fmt.Errorf("enum choices must be strings, got %T", c)
		}
		if seen[s] {
			return fmt.Errorf("enum choice %q repeated", s)
		}
		seen[s] = true
	}
	return nil
}
