package templates

import "strings"

// Schema records which on-disk layout a unit was read from. It is decided
// once at parse time and preserved when the unit is written back.
type Schema int

const (
	// SchemaStructured units carry "template_names" and "templates" keys.
	SchemaStructured Schema = iota
	// SchemaLegacy units are a bare keyword→snippet object whose only
	// trigger name is the file's base name.
	SchemaLegacy
)

func (s Schema) String() string {
	if s == SchemaLegacy {
		return "legacy"
	}
	return "structured"
}

// Entry is one keyword→snippet pair.
type Entry struct {
	Key     string `json:"key" yaml:"key"`
	Snippet string `json:"snippet" yaml:"snippet"`
}

// Handle identifies the persisted unit backing a Collection. The zero value
// refers to no unit.
type Handle struct {
	path string
}

// Path returns the file backing the collection.
func (h Handle) Path() string { return h.path }

// IsZero reports whether h refers to no unit.
func (h Handle) IsZero() bool { return h.path == "" }

// Collection is a snapshot of one template unit. Entries keep the order in
// which they appear on disk.
type Collection struct {
	Name         string   `json:"name" yaml:"name"`
	TriggerNames []string `json:"trigger_names" yaml:"trigger_names"`
	Entries      []Entry  `json:"entries" yaml:"entries"`
	Schema       Schema   `json:"-" yaml:"-"`

	handle Handle
}

// Handle returns the handle used to append entries to this collection.
func (c *Collection) Handle() Handle { return c.handle }

// Lookup finds the entry whose key equals key case-insensitively.
func (c *Collection) Lookup(key string) (Entry, bool) {
	folded := strings.ToLower(key)
	for _, e := range c.Entries {
		if strings.ToLower(e.Key) == folded {
			return e, true
		}
	}
	return Entry{}, false
}

// Keys returns the keywords in collection order.
func (c *Collection) Keys() []string {
	keys := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Matches reports whether any trigger name occurs in the normalized title.
func (c *Collection) Matches(normalizedTitle string) bool {
	for _, name := range c.TriggerNames {
		if strings.Contains(normalizedTitle, name) {
			return true
		}
	}
	return false
}

// Normalize lower-cases and trims a window title or trigger name.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
