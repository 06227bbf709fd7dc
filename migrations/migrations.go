// Package migrations manages the on-disk migration history: numbered,
// immutable JSON files, each holding one generated action list. Files are
// never rewritten once committed; regeneration is the one explicit
// exception and prunes the non-base portion of the history wholesale.
package migrations

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/declmig/declmig/actions"
	"github.com/declmig/declmig/schema"
)

// File is one migration file in the history.
type File struct {
	Number  int
	Name    string // file name, NNNN_slug.json
	Path    string
	Actions []actions.Action
}

var fileNamePattern = regexp.MustCompile(`^(\d{4})_([a-z0-9_]+)\.json$`)

// List returns the migration files in number order, without reading their
// contents. A missing directory is an empty history; any other directory
// error is SourceUnavailable. Gaps or duplicate numbers in the sequence are
// SourceUnavailable as well: the history is append-only and contiguous.
func List(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrSourceUnavailable, err)
	}
	var files []File
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := fileNamePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		var n int
		fmt.Sscanf(m[1], "%d", &n)
		files = append(files, File{Number: n, Name: e.Name(), Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Number < files[j].Number })
	for i, f := range files {
		if f.Number != i+1 {
			return nil, fmt.Errorf("%w: migration numbering broken at %q (expected %04d)",
				schema.ErrSourceUnavailable, f.Name, i+1)
		}
	}
	return files, nil
}

// Read loads and decodes one migration file.
func Read(path string) ([]actions.Action, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrSourceUnavailable, err)
	}
	as, err := actions.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return as, nil
}

// ReadAll loads the whole history and returns it both per-file and
// flattened in file-then-position order, ready for replay.
func ReadAll(dir string) ([]File, []actions.Action, error) {
	files, err := List(dir)
	if err != nil {
		return nil, nil, err
	}
	var flat []actions.Action
	for i := range files {
		as, err := Read(files[i].Path)
		if err != nil {
			return nil, nil, err
		}
		files[i].Actions = as
		flat = append(flat, as...)
	}
	return files, flat, nil
}

// Write persists a new migration at the next number in the sequence,
// deriving the file's slug from its leading action. The file is written to
// a temporary name and renamed into place so readers never observe a
// half-written action list.
func Write(dir string, plan []actions.Action) (string, error) {
	if len(plan) == 0 {
		return "", fmt.Errorf("refusing to write an empty migration")
	}
	files, err := List(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrSourceUnavailable, err)
	}
	name := fmt.Sprintf("%04d_%s.json", len(files)+1, slug(plan[0]))
	data, err := actions.Encode(plan)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, ".migration-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrSourceUnavailable, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: %v", schema.ErrSourceUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrSourceUnavailable, err)
	}
	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrSourceUnavailable, err)
	}
	return name, nil
}

// Regenerate prunes every migration after the base (first) file and writes
// a single consolidated migration from the base schema to the given plan.
// The base file is never touched. An empty plan just prunes.
func Regenerate(dir string, plan []actions.Action) (string, error) {
	files, err := List(dir)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w: no base migration to regenerate from", schema.ErrSourceUnavailable)
	}
	for _, f := range files[1:] {
		if err := os.Remove(f.Path); err != nil {
			return "", fmt.Errorf("%w: %v", schema.ErrSourceUnavailable, err)
		}
	}
	if len(plan) == 0 {
		return "", nil
	}
	return Write(dir, plan)
}

func slug(a actions.Action) string {
	parts := []string{strings.ReplaceAll(string(a.Kind), "-", "_"), sanitize(a.Model)}
	switch {
	case a.Field != "":
		parts = append(parts, sanitize(a.Field))
	case a.Index != "":
		parts = append(parts, sanitize(a.Index))
	case a.TypeName != "":
		parts = append(parts, sanitize(a.TypeName))
	}
	s := strings.Join(parts, "_")
	if len(s) > 60 {
		s = s[:60]
	}
	return strings.Trim(s, "_")
}

var sanitizePattern = regexp.MustCompile(`[^a-z0-9_]+`)

func sanitize(s string) string {
	return sanitizePattern.ReplaceAllString(strings.ToLower(s), "_")
}
