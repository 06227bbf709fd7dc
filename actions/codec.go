package actions

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/declmig/declmig/schema"
)

// Decode parses a JSON array of action records, the on-disk form of one
// migration file. Every record is shape-checked and normalized at this
// boundary; a record that fails validation is rejected here, never deeper
// in the fold.
func Decode(data []byte) ([]Action, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []Action
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrMalformedAction, err)
	}
	out := make([]Action, 0, len(raw))
	for i, a := range raw {
		a = a.Normalize()
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Encode serializes an action list as indented JSON, validating each
// record first.
func Encode(as []Action) ([]byte, error) {
	for i, a := range as {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(as); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
