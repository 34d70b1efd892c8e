package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyDocument is returned for blank schema files.
var ErrEmptyDocument = errors.New("schema: document is empty")

// Document pairs a parsed form with the file it came from.
type Document struct {
	Source string
	Form   Form
}

// LoadFile reads and parses a JSON or YAML form file.
func LoadFile(path string) (Form, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Form{}, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// LoadFS reads and parses name from fsys.
func LoadFS(fsys fs.FS, name string) (Form, error) {
	if fsys == nil {
		return Form{}, errors.New("schema: filesystem is required")
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Form{}, fmt.Errorf("schema: read %s: %w", name, err)
	}
	return Parse(data, name)
}

// LoadDir parses every schema file found in fsys, sorted by path.
func LoadDir(fsys fs.FS) ([]Document, error) {
	if fsys == nil {
		return nil, nil
	}
	var docs []Document
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !IsSchemaFile(path) {
			return nil
		}
		form, err := LoadFS(fsys, path)
		if err != nil {
			return err
		}
		docs = append(docs, Document{Source: path, Form: form})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Source < docs[j].Source })
	return docs, nil
}

// Parse decodes a form document. JSON is tried first, then YAML. source names
// the document in errors and provides the form id when the document has none.
func Parse(data []byte, source string) (Form, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Form{}, fmt.Errorf("%w: %s", ErrEmptyDocument, source)
	}

	var form Form
	if err := json.Unmarshal(data, &form); err != nil {
		form = Form{}
		if yamlErr := yaml.Unmarshal(data, &form); yamlErr != nil {
			return Form{}, fmt.Errorf("schema: parse %s: %w", source, yamlErr)
		}
	}

	if strings.TrimSpace(form.ID) == "" && source != "" {
		base := filepath.Base(source)
		form.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	normalise(&form)
	return form, nil
}

// IsSchemaFile reports whether path has a JSON or YAML extension.
func IsSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func normalise(form *Form) {
	form.ID = strings.TrimSpace(form.ID)
	for i := range form.Controls {
		normaliseControl(&form.Controls[i])
	}
}

func normaliseControl(c *Control) {
	c.Name = strings.TrimSpace(c.Name)
	c.Kind = Kind(strings.ToLower(strings.TrimSpace(string(c.Kind))))
	c.Type = FieldType(strings.ToLower(strings.TrimSpace(string(c.Type))))
	c.UpdateOn = strings.ToLower(strings.TrimSpace(c.UpdateOn))
	for i := range c.Rules {
		c.Rules[i].Kind = strings.TrimSpace(c.Rules[i].Kind)
	}
	for i := range c.Controls {
		normaliseControl(&c.Controls[i])
	}
	if c.Item != nil {
		normaliseControl(c.Item)
	}
}
