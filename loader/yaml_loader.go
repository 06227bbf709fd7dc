// Package loader reads the user-authored YAML model document.
package loader

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/declmig/declmig/schema"
)

type yamlFile struct {
	Tables []yamlTable `yaml:"tables"`
}

type yamlTable struct {
	Name    string      `yaml:"name"`
	Fields  []yamlField `yaml:"fields"`
	Indexes []yamlIndex `yaml:"indexes"`
	Types   []yamlType  `yaml:"types"`
}

type yamlField struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	PrimaryKey *bool  `yaml:"primary-key"`
	Null       *bool  `yaml:"null"`
	Unique     *bool  `yaml:"unique"`
	Default    any    `yaml:"default"`
	ForeignKey string `yaml:"foreign-key"`
	OnDelete   string `yaml:"on-delete"`
	Check      any    `yaml:"check"`
}

// UnmarshalYAML recovers the "null" option: YAML resolves a bare null key
// to the null scalar rather than the string "null", so the struct tag
// alone never matches it.
func (f *yamlField) UnmarshalYAML(node *yaml.Node) error {
	type plain yamlField
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k := node.Content[i]
		if k.Tag == "!!null" && k.Value == "null" {
			if err := node.Content[i+1].Decode(&p.Null); err != nil {
				return err
			}
		}
	}
	*f = yamlField(p)
	return nil
}

type yamlIndex struct {
	Name   string   `yaml:"name"`
	Fields []string `yaml:"fields"`
	Method string   `yaml:"method"`
	Unique *bool    `yaml:"unique"`
}

type yamlType struct {
	Name    string   `yaml:"name"`
	Choices []string `yaml:"choices"`
}

// Load reads and parses a model file. The result is shaped but not
// validated; validator.ValidateModel owns the semantic checks.
func Load(path string) (schema.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Model{}, fmt.Errorf("reading model file: %w", err)
	}
	return Parse(data)
}

// Parse parses a model document.
func Parse(data []byte) (schema.Model, error) {
	var yf yamlFile
	if err := yaml.Unmarshal(data, &yf); err != nil {
		return schema.Model{}, fmt.Errorf("unmarshalling model YAML: %w", err)
	}

	var m schema.Model
	for _, yt := range yf.Tables {
		t := schema.Table{Name: yt.Name}
		for _, yfield := range yt.Fields {
			opts, err := fieldOptions(yfield)
			if err != nil {
				return schema.Model{}, fmt.Errorf("table %q, field %q: %w", yt.Name, yfield.Name, err)
			}
			t.Fields = append(t.Fields, schema.Field{Name: yfield.Name, Options: opts})
		}
		for _, yix := range yt.Indexes {
			t.Indexes = append(t.Indexes, schema.Index{Name: yix.Name, Options: indexOptions(yix)})
		}
		for _, ytype := range yt.Types {
			choices := make([]any, len(ytype.Choices))
			for i, c := range ytype.Choices {
				choices[i] = c
			}
			t.Types = append(t.Types, schema.EnumType{
				Name:    ytype.Name,
				Options: schema.Options{schema.OptChoices: choices},
			})
		}
		m.Tables = append(m.Tables, t)
	}
	return m, nil
}

func fieldOptions(yf yamlField) (schema.Options, error) {
	opts := schema.Options{}
	ft, err := parseTypeExpr(yf.Type)
	if err != nil {
		return nil, err
	}
	opts[schema.OptType] = ft
	if yf.PrimaryKey != nil && *yf.PrimaryKey {
		opts[schema.OptPrimaryKey] = true
	}
	if yf.Null != nil && !*yf.Null {
		opts[schema.OptNull] = false
	}
	if yf.Unique != nil && *yf.Unique {
		opts[schema.OptUnique] = true
	}
	if yf.Default != nil {
		opts[schema.OptDefault] = schema.NormalizeValue(yf.Default)
	}
	if yf.ForeignKey != "" {
		opts[schema.OptForeignKey] = yf.ForeignKey
	}
	if yf.OnDelete != "" {
		opts[schema.OptOnDelete] = yf.OnDelete
	}
	if yf.Check != nil {
		opts[schema.OptCheck] = schema.NormalizeValue(yf.Check)
	}
	return opts.Normalize(), nil
}

func indexOptions(yix yamlIndex) schema.Options {
	fields := make([]any, len(yix.Fields))
	for i, f := range yix.Fields {
		fields[i] = f
	}
	opts := schema.Options{schema.OptFields: fields}
	if yix.Method != "" {
		opts[schema.OptMethod] = yix.Method
	}
	if yix.Unique != nil && *yix.Unique {
		opts[schema.OptUnique] = true
	}
	return opts
}

var typeExprPattern = regexp.MustCompile(`^([a-z-]+)\(([^)]*)\)$`)

// parseTypeExpr turns the YAML shorthand ("uuid", "varchar(255)",
// "decimal(15,2)", "enum(status)") into the wire form consumed by
// schema.ParseType.
func parseTypeExpr(expr string) (any, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("missing type")
	}
	m := typeExprPattern.FindStringSubmatch(expr)
	if m == nil {
		if _, err := schema.ParseType(expr); err != nil {
			return nil, err
		}
		return expr, nil
	}
	head := m[1]
	out := []any{head}
	if head == string(schema.TypeEnum) {
		out = append(out, strings.TrimSpace(m[2]))
	} else {
		for _, arg := range strings.Split(m[2], ",") {
			n, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("type %q: argument %q is not an integer", expr, arg)
			}
			out = append(out, n)
		}
	}
	if _, err := schema.ParseType(out); err != nil {
		return nil, err
	}
	return out, nil
}
