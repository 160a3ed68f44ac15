package api_test

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"text-expander/session"
	"text-expander/templates"
)

func TestListCollections(t *testing.T) {
	env := newTestEnv(t, session.PolicyReject)
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "slack.json"), []byte(`{"brb":"be right back"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "broken.json"), []byte(`{`), 0o644))

	resp := env.do(t, http.MethodGet, "/api/collections", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var collections []templates.Collection
	decode(t, resp, &collections)

	require.Len(t, collections, 2)
	assert.Equal(t, "mail", collections[0].Name)
	assert.Equal(t, "slack", collections[1].Name)
	assert.Equal(t, []string{"slack"}, collections[1].TriggerNames)
}

func TestMatchEndpoint(t *testing.T) {
	env := newTestEnv(t, session.PolicyReject)

	q := url.Values{"title": {"Mail — Compose"}, "fragment": {"ad"}}
	resp := env.do(t, http.MethodGet, "/api/match?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Result struct {
			Kind    string `json:"kind"`
			Key     string `json:"key"`
			Snippet string `json:"snippet"`
		} `json:"result"`
		Preview string `json:"preview"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "unique_prefix", body.Result.Kind)
	assert.Equal(t, "addr", body.Result.Key)
	assert.Equal(t, "123 Main St", body.Preview)

	q = url.Values{"title": {"Terminal"}, "fragment": {"ad"}}
	resp = env.do(t, http.MethodGet, "/api/match?"+q.Encode(), nil)
	decode(t, resp, &body)
	assert.Equal(t, "no_collection", body.Result.Kind)
}

func TestHotkeys(t *testing.T) {
	env := newTestEnv(t, session.PolicyReject)
	resp := env.do(t, http.MethodGet, "/api/hotkeys", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var hk map[string]string
	decode(t, resp, &hk)
	assert.Equal(t, map[string]string{"resolve": "ctrl+alt+i", "add": "ctrl+i"}, hk)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, session.PolicyReject)
	env.do(t, http.MethodGet, "/api/match?title=mail&fragment=addr", nil)

	resp := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `texpand_lookups_total{outcome="exact"}`)
}
