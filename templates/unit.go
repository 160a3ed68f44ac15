package templates

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
)

const (
	namesField     = "template_names"
	templatesField = "templates"
	unitExt        = ".json"
)

var (
	errNotObject       = errors.New("expected a JSON object")
	errTrailingData    = errors.New("unexpected data after the top-level object")
	errNoTriggerNames  = errors.New("template_names has no usable entries")
	errSnippetNotText  = errors.New("snippet is not a string")
	errTemplatesNotObj = errors.New("templates is not an object")
)

// field is one top-level member of a structured unit, kept raw so members
// this package does not interpret survive a rewrite untouched.
type field struct {
	key   string
	value json.RawMessage
}

// unit is the parsed form of one template file.
type unit struct {
	path         string
	schema       Schema
	fields       []field
	triggerNames []string
	entries      []Entry
}

// unitName is the base identifier of a unit: its file name without ".json".
func unitName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), unitExt)
}

// parseUnit decides the schema of data once. A document with both
// "template_names" and "templates" is structured; anything else must be a
// flat keyword→snippet object and is treated as legacy. Comments and
// trailing commas are tolerated.
func parseUnit(path string, data []byte) (*unit, error) {
	stripped := jsonc.ToJSON(data)
	fields, err := decodeObject(stripped)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	u := &unit{path: path, fields: fields}
	names, hasNames := lookupField(fields, namesField)
	tmpl, hasTemplates := lookupField(fields, templatesField)

	if hasNames && hasTemplates {
		var raw []string
		if err := json.Unmarshal(names, &raw); err != nil {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("%s: %w", namesField, err)}
		}
		for _, name := range raw {
			if n := Normalize(name); n != "" {
				u.triggerNames = append(u.triggerNames, n)
			}
		}
		if len(u.triggerNames) == 0 {
			return nil, &ParseError{Path: path, Err: errNoTriggerNames}
		}
		entries, err := decodeEntries(tmpl)
		if err != nil {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("%s: %w", templatesField, err)}
		}
		u.schema = SchemaStructured
		u.entries = entries
		return u, nil
	}

	entries, err := decodeEntries(stripped)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	name := Normalize(unitName(path))
	if name == "" {
		return nil, &ParseError{Path: path, Err: errNoTriggerNames}
	}
	u.schema = SchemaLegacy
	u.triggerNames = []string{name}
	u.entries = entries
	return u, nil
}

func lookupField(fields []field, key string) (json.RawMessage, bool) {
	var (
		value json.RawMessage
		found bool
	)
	// Last occurrence wins, as with encoding/json.
	for _, f := range fields {
		if f.key == key {
			value, found = f.value, true
		}
	}
	return value, found
}

// decodeObject reads a JSON object preserving member order.
func decodeObject(data []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errNotObject
	}

	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errNotObject
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		fields = append(fields, field{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return fields, nil
}

func decodeEntries(data []byte) ([]Entry, error) {
	fields, err := decodeObject(data)
	if err != nil {
		if errors.Is(err, errNotObject) {
			return nil, errTemplatesNotObj
		}
		return nil, err
	}
	entries := make([]Entry, 0, len(fields))
	for _, f := range fields {
		var snippet string
		if err := json.Unmarshal(f.value, &snippet); err != nil {
			return nil, fmt.Errorf("%q: %w", f.key, errSnippetNotText)
		}
		entries = append(entries, Entry{Key: f.key, Snippet: snippet})
	}
	return entries, nil
}

// lookup finds an entry by case-insensitive key.
func (u *unit) lookup(key string) (Entry, bool) {
	folded := strings.ToLower(key)
	for _, e := range u.entries {
		if strings.ToLower(e.Key) == folded {
			return e, true
		}
	}
	return Entry{}, false
}

// collection returns a copy that callers may keep or modify.
func (u *unit) collection() *Collection {
	names := make([]string, len(u.triggerNames))
	copy(names, u.triggerNames)
	entries := make([]Entry, len(u.entries))
	copy(entries, u.entries)
	return &Collection{
		Name:         unitName(u.path),
		TriggerNames: names,
		Entries:      entries,
		Schema:       u.schema,
		handle:       Handle{path: u.path},
	}
}

// encode renders the unit with four-space indentation. Structured units keep
// every top-level member in its original order with only "templates"
// replaced; legacy units are written back as a flat object.
func (u *unit) encode() ([]byte, error) {
	templates, err := encodeEntries(u.entries)
	if err != nil {
		return nil, err
	}

	var compact bytes.Buffer
	if u.schema == SchemaLegacy {
		compact.Write(templates)
	} else {
		compact.WriteByte('{')
		for i, f := range u.fields {
			if i > 0 {
				compact.WriteByte(',')
			}
			key, err := marshalText(f.key)
			if err != nil {
				return nil, err
			}
			compact.Write(key)
			compact.WriteByte(':')
			if f.key == templatesField {
				compact.Write(templates)
			} else {
				compact.Write(f.value)
			}
		}
		compact.WriteByte('}')
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "    "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func encodeEntries(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalText(e.Key)
		if err != nil {
			return nil, err
		}
		value, err := marshalText(e.Snippet)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalText encodes s as a JSON string without HTML escaping, leaving
// non-ASCII characters literal.
func marshalText(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
