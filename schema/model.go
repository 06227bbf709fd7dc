package schema

// Model is the user-authored declarative schema: the desired end state of
// the database, as an ordered list of table definitions. Declaration order
// is significant: the diff compiler uses it as the deterministic tie-break
// when several independent changes are eligible at the same step.
type Model struct {
	Tables []Table
}

// Table declares one table: its columns in order, plus any table-scoped
// indexes and enum types.
type Table struct {
	Name    string
	Fields  []Field
	Indexes []Index
	Types   []EnumType
}

// Field is a named column with its options map (see options.go for the
// canonical keys).
type Field struct {
	Name    string  `json:"name"`
	Options Options `json:"options"`
}

// Index is a named index definition. Options carry "fields", "method" and
// "unique".
type Index struct {
	Name    string
	Options Options
}

// EnumType is a table-scoped enum type. Options carry "choices", the
// ordered list of allowed string values.
type EnumType struct {
	Name    string
	Options Options
}

// Lookup returns the table with the given name, if declared.
func (m Model) Lookup(name string) (Table, bool) {
	for _, t := range m.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// FieldNames returns the declared column names in order.
func (t Table) FieldNames() []string {
	names := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Lookup returns the field with the given name, if declared.
func (t Table) Lookup(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
