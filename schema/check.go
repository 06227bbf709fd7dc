package schema

import (
	"fmt"
	"strings"
)

// Check constraints are carried as a small prefix expression AST encoded as
// a list: [op, operand...]. Operands are field names (strings), literals
// (numbers, quoted strings are not distinguished from field names at this
// level; a string operand matching a declared column renders bare, anything
// else renders as a literal) or nested expressions.
//
//	[">", "age", 18]             -> CHECK ("age" > 18)
//	["and", [">", "a", 0], ...]  -> CHECK (("a" > 0) AND (...))

var checkComparisons = map[string]string{
	">": ">", ">=": ">=", "<": "<", "<=": "<=", "=": "=", "!=": "<>",
}

var checkConnectives = map[string]string{
	"and": "AND", "or": "OR",
}

// ValidateCheck verifies the shape of a check expression against the set of
// column names it may reference.
func ValidateCheck(expr any, columns map[string]bool) error {
	list, ok := expr.([]any)
	if !ok || len(list) == 0 {
		return fmt.Errorf("check expression must be a non-empty list")
	}
	op, ok := list[0].(string)
	if !ok {
		return fmt.Errorf("check operator must be a string")
	}
	switch {
	case checkComparisons[op] != "":
		if len(list) != 3 {
			return fmt.Errorf("check operator %q takes exactly two operands", op)
		}
		refsColumn := false
		for _, operand := range list[1:] {
			if err := validateCheckOperand(operand, columns); err != nil {
				return err
			}
			switch v := operand.(type) {
			case string:
				if columns[v] {
					refsColumn = true
				}
			case []any:
				refsColumn = true
			}
		}
		// A comparison of two literals is either a constant or a typo in
		// a column name; both mean the constraint is not what was meant.
		if !refsColumn {
			return fmt.Errorf("check comparison %q references no declared column", op)
		}
		return nil
	case checkConnectives[op] != "":
		if len(list) < 3 {
			return fmt.Errorf("check operator %q takes at least two operands", op)
		}
		for _, sub := range list[1:] {
			if err := ValidateCheck(sub, columns); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown check operator %q", op)
	}
}

func validateCheckOperand(operand any, columns map[string]bool) error {
	switch v := operand.(type) {
	case string, int64, int, float64, bool:
		return nil
	case []any:
		return ValidateCheck(v, columns)
	default:
		return fmt.Errorf("unsupported check operand %T", operand)
	}
}

// RenderCheck renders a validated check expression as a SQL boolean
// expression (without the CHECK keyword). columns decides whether a string
// operand is an identifier or a string literal.
func RenderCheck(expr any, columns map[string]bool) (string, error) {
	list, ok := expr.([]any)
	if !ok || len(list) == 0 {
		return "", fmt.Errorf("check expression must be a non-empty list")
	}
	op, _ := list[0].(string)
	if sql := checkComparisons[op]; sql != "" {
		lhs, err := renderCheckOperand(list[1], columns)
		if err != nil {
			return "", err
		}
		rhs, err := renderCheckOperand(list[2], columns)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", lhs, sql, rhs), nil
	}
	if sql := checkConnectives[op]; sql != "" {
		parts := make([]string, 0, len(list)-1)
		for _, sub := range list[1:] {
			rendered, err := RenderCheck(sub, columns)
			if err != nil {
				return "", err
			}
			parts = append(parts, "("+rendered+")")
		}
		return strings.Join(parts, " "+sql+" "), nil
	}
	return "", fmt.Errorf("unknown check operator %q", op)
}

func renderCheckOperand(operand any, columns map[string]bool) (string, error) {
	switch v := operand.(type) {
	case string:
		if columns[v] {
			return quoteIdent(v), nil
		}
		return "'" + strings.ReplaceAll(v, "'", "''") + "'", nil
	case int64:
		return fmt.Sprintf("%d", v), nil
	case int:
		return fmt.Sprintf("%d", v), nil
	case float64:
		return fmt.Sprintf("%v", v), nil
	case bool:
		return fmt.Sprintf("%t", v), nil
	case []any:
		rendered, err := RenderCheck(v, columns)
		if err != nil {
			return "", err
		}
		return "(" + rendered + ")", nil
	default:
		return "", fmt.Errorf("unsupported check operand %T", operand)
	}
}
