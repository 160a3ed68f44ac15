package resolver

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"text-expander/templates"
)

func collection(keys ...string) *templates.Collection {
	c := &templates.Collection{Name: "test", TriggerNames: []string{"test"}}
	for _, k := range keys {
		c.Entries = append(c.Entries, templates.Entry{Key: k, Snippet: "<" + k + ">"})
	}
	return c
}

func TestMatch(t *testing.T) {
	cases := []struct {
		name     string
		keys     []string
		fragment string
		want     Result
	}{
		{
			name:     "exact beats prefix",
			keys:     []string{"sig", "signature"},
			fragment: "sig",
			want:     Result{Kind: ExactMatch, Fragment: "sig", Key: "sig", Snippet: "<sig>"},
		},
		{
			name:     "exact is case-insensitive and keeps key case",
			keys:     []string{"Sig", "signature"},
			fragment: "SIG",
			want:     Result{Kind: ExactMatch, Fragment: "SIG", Key: "Sig", Snippet: "<Sig>"},
		},
		{
			name:     "unique prefix",
			keys:     []string{"addr", "sig"},
			fragment: "ad",
			want:     Result{Kind: UniquePrefixMatch, Fragment: "ad", Key: "addr", Snippet: "<addr>"},
		},
		{
			name:     "ambiguous prefix",
			keys:     []string{"hello", "help", "hi"},
			fragment: "he",
			want:     Result{Kind: AmbiguousMatch, Fragment: "he", Candidates: []string{"hello", "help"}},
		},
		{
			name:     "differing prefixes are not ambiguous",
			keys:     []string{"ho", "hi"},
			fragment: "hi",
			want:     Result{Kind: ExactMatch, Fragment: "hi", Key: "hi", Snippet: "<hi>"},
		},
		{
			name:     "no match",
			keys:     []string{"addr"},
			fragment: "zz",
			want:     Result{Kind: NoMatch, Fragment: "zz"},
		},
		{
			name:     "empty fragment is no match",
			keys:     []string{"a", "b"},
			fragment: "",
			want:     Result{Kind: NoMatch},
		},
		{
			name:     "two keys equal under folding are ambiguous",
			keys:     []string{"Sig", "sig"},
			fragment: "sig",
			want:     Result{Kind: AmbiguousMatch, Fragment: "sig", Candidates: []string{"Sig", "sig"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Match(collection(tc.keys...), tc.fragment)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMatchNoCollection(t *testing.T) {
	got := Match(nil, "")
	assert.Equal(t, NoCollection, got.Kind)
	got = Match(nil, "abc")
	assert.Equal(t, NoCollection, got.Kind)
}

func TestResolve(t *testing.T) {
	text, ok := Resolve(Result{Kind: ExactMatch, Snippet: "x"})
	assert.True(t, ok)
	assert.Equal(t, "x", text)

	text, ok = Resolve(Result{Kind: UniquePrefixMatch, Snippet: "y"})
	assert.True(t, ok)
	assert.Equal(t, "y", text)

	for _, k := range []Kind{NoCollection, NoMatch, AmbiguousMatch} {
		_, ok := Resolve(Result{Kind: k, Snippet: "ignored"})
		assert.False(t, ok, k.String())
	}
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "", Result{Kind: NoMatch}.Preview())
	assert.Equal(t, "No match found", Result{Kind: NoMatch, Fragment: "q"}.Preview())
	assert.Equal(t, "Multiple matches...", Result{Kind: AmbiguousMatch}.Preview())
	assert.Equal(t, "text", Result{Kind: UniquePrefixMatch, Snippet: "text"}.Preview())

	assert.Equal(t, "Enter a keyword", CommitMessage(Result{Kind: NoMatch}))
	assert.Equal(t, "No match found", CommitMessage(Result{Kind: NoMatch, Fragment: "q"}))
	assert.Equal(t, "Multiple matches found", CommitMessage(Result{Kind: AmbiguousMatch}))
	assert.Equal(t, "", CommitMessage(Result{Kind: ExactMatch}))
}

func TestKindJSON(t *testing.T) {
	data, err := json.Marshal(Result{Kind: UniquePrefixMatch, Fragment: "ad", Key: "addr", Snippet: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"unique_prefix","fragment":"ad","key":"addr","snippet":"x"}`, string(data))

	var r Result
	require.NoError(t, json.Unmarshal(data, &r))
	assert.Equal(t, UniquePrefixMatch, r.Kind)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"bogus"}`), &r))
}

func TestQueryEndToEnd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mail.json"),
		[]byte(`{"template_names":["mail"],"templates":{"addr":"123 Main St"}}`), 0o644))
	store, err := templates.NewStore(dir)
	require.NoError(t, err)
	r := New(store, nil)

	got, err := r.Query("Mail — Compose", "ad")
	require.NoError(t, err)
	assert.Equal(t, Result{Kind: UniquePrefixMatch, Fragment: "ad", Key: "addr", Snippet: "123 Main St"}, got)

	got, err = r.Query("Terminal", "ad")
	require.NoError(t, err)
	assert.Equal(t, NoCollection, got.Kind)
}

type failingFinder struct{ err error }

func (f failingFinder) Find(string) (*templates.Collection, error) { return nil, f.err }

func TestQueryPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(failingFinder{err: boom}, nil).Query("x", "y")
	assert.ErrorIs(t, err, boom)
}
