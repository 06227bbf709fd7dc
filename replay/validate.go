package replay

import (
	"fmt"
	"sort"

	"github.com/declmig/declmig/schema"
)

// ValidateState checks a reconstructed schema structurally: every column's
// type parses, every enum reference resolves, and every foreign key points
// at an existing table and column. Tables and fields are visited in sorted
// order so the first offender reported is deterministic.
func ValidateState(s schema.Schema) error {
	for _, table := range s.TableNames() {
		ts := s[table]
		if ts.Fields == nil {
			return fmt.Errorf("%w: table %q declares types but was never created", schema.ErrUnknownTable, table)
		}
		fields := make([]string, 0, len(ts.Fields))
		for name := range ts.Fields {
			fields = append(fields, name)
		}
		sort.Strings(fields)
		for _, field := range fields {
			opts := ts.Fields[field]
			ft, err := schema.ParseFieldType(opts)
			if err != nil {
				return fmt.Errorf("%w: %q.%q: %v", schema.ErrMalformedAction, table, field, err)
			}
			if ft.Base == schema.TypeEnum && !s.HasType(ft.Enum) {
				return fmt.Errorf("%w: %q.%q references enum %q", schema.ErrUnknownType, table, field, ft.Enum)
			}
			if refTable, refColumn, ok := opts.ForeignKeyRef(); ok {
				target, exists := s[refTable]
				if !exists || target.Fields == nil {
					return fmt.Errorf("%w: %q.%q references %s/%s", schema.ErrDanglingForeignKey, table, field, refTable, refColumn)
				}
				if _, exists := target.Fields[refColumn]; !exists {
					return fmt.Errorf("%w: %q.%q references %s/%s", schema.ErrDanglingForeignKey, table, field, refTable, refColumn)
				}
			} else if _, present := opts[schema.OptForeignKey]; present {
				return fmt.Errorf("%w: %q.%q foreign key must be \"table/column\"", schema.ErrMalformedAction, table, field)
			}
		}
	}
	return nil
}
