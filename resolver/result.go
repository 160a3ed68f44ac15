package resolver

import "fmt"

// Kind classifies a MatchResult.
type Kind int

const (
	NoCollection Kind = iota
	NoMatch
	ExactMatch
	UniquePrefixMatch
	AmbiguousMatch
)

var kindNames = [...]string{
	NoCollection:      "no_collection",
	NoMatch:           "no_match",
	ExactMatch:        "exact",
	UniquePrefixMatch: "unique_prefix",
	AmbiguousMatch:    "ambiguous",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown match kind %q", text)
}

// Result is the outcome of matching one fragment against a collection.
// Key and Snippet are set for ExactMatch and UniquePrefixMatch; Candidates
// for AmbiguousMatch, in collection order.
type Result struct {
	Kind       Kind     `json:"kind"`
	Fragment   string   `json:"fragment"`
	Key        string   `json:"key,omitempty"`
	Snippet    string   `json:"snippet,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
}

// Resolve returns the snippet to insert. Only exact and unique-prefix
// matches yield text; for every other kind the caller must not insert.
func Resolve(r Result) (string, bool) {
	switch r.Kind {
	case ExactMatch, UniquePrefixMatch:
		return r.Snippet, true
	default:
		return "", false
	}
}

// Preview is the live text shown while the user types.
func (r Result) Preview() string {
	switch r.Kind {
	case ExactMatch, UniquePrefixMatch:
		return r.Snippet
	case AmbiguousMatch:
		return "Multiple matches..."
	case NoCollection:
		return "No template found for this window"
	default:
		if r.Fragment == "" {
			return ""
		}
		return "No match found"
	}
}

// CommitMessage explains why a commit of r was refused. It is empty when r
// resolves.
func CommitMessage(r Result) string {
	switch r.Kind {
	case ExactMatch, UniquePrefixMatch:
		return ""
	case AmbiguousMatch:
		return "Multiple matches found"
	case NoCollection:
		return "No template found for this window"
	default:
		if r.Fragment == "" {
			return "Enter a keyword"
		}
		return "No match found"
	}
}
