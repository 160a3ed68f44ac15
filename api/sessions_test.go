package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"text-expander/api"
	"text-expander/config"
	"text-expander/desktop"
	"text-expander/session"
	"text-expander/templates"
)

const mailUnit = `{"template_names":["mail"],"templates":{"addr":"123 Main St","hello":"Hello!","help":"Help?"}}`

type testEnv struct {
	srv      *httptest.Server
	manager  *session.Manager
	inserter *desktop.RecordingInserter
	dir      string
}

func newTestEnv(t *testing.T, policy session.Policy) *testEnv {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mail.json"), []byte(mailUnit), 0o644))
	store, err := templates.NewStore(dir)
	require.NoError(t, err)

	ins := &desktop.RecordingInserter{}
	mgr := session.NewManager(store, desktop.StaticWindow("Mail — Inbox"), ins, session.Options{Policy: policy})
	hotkeys := config.Hotkeys{Resolve: "ctrl+alt+i", Add: "ctrl+i"}
	srv := httptest.NewServer(api.RegisterRoutes(mgr, store, hotkeys, nil))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, manager: mgr, inserter: ins, dir: dir}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (e *testEnv) open(t *testing.T, kind, title string) session.View {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/sessions", map[string]string{"kind": kind, "window_title": title})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var v session.View
	decode(t, resp, &v)
	return v
}

func TestListSessionsEmpty(t *testing.T) {
	env := newTestEnv(t, session.PolicyReject)
	resp := env.do(t, http.MethodGet, "/api/sessions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var sessions []session.View
	decode(t, resp, &sessions)
	assert.Empty(t, sessions)
}

func TestCreateResolveSession(t *testing.T) {
	env := newTestEnv(t, session.PolicyReject)
	v := env.open(t, "resolve", "Mail — Compose")

	assert.NotEmpty(t, v.ID)
	assert.Equal(t, session.KindResolve, v.Kind)
	assert.Equal(t, "mail", v.Collection)
	assert.Equal(t, "Active template for: mail", v.Label)

	resp := env.do(t, http.MethodGet, "/api/sessions", nil)
	var sessions []session.View
	decode(t, resp, &sessions)
	require.Len(t, sessions, 1)
	assert.Equal(t, v.ID, sessions[0].ID)
}

func TestCreateSessionUsesActiveWindow(t *testing.T) {
	env := newTestEnv(t, session.PolicyReject)
	v := env.open(t, "resolve", "")
	assert.Equal(t, "Mail — Inbox", v.WindowTitle)
}

func TestCreateSessionBadRequests(t *testing.T) {
	env := newTestEnv(t, session.PolicyReject)

	resp, err := http.Post(env.srv.URL+"/api/sessions", "application/json", strings.NewReader("not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp2 := env.do(t, http.MethodPost, "/api/sessions", map[string]string{"kind": "delete"})
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestCreateSessionConflictUnderRejectPolicy(t *testing.T) {
	env := newTestEnv(t, session.PolicyReject)
	env.open(t, "resolve", "mail")

	resp := env.do(t, http.MethodPost, "/api/sessions", map[string]string{"kind": "add", "window_title": "mail"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateAddSessionWithoutCollection(t *testing.T) {
	env := newTestEnv(t, session.PolicyReject)
	resp := env.do(t, http.MethodPost, "/api/sessions", map[string]string{"kind": "add", "window_title": "Terminal"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFragmentAndCommit(t *testing.T) {
	env := newTestEnv(t, session.PolicyReject)
	v := env.open(t, "resolve", "Mail — Compose")

	resp := env.do(t, http.MethodPut, "/api/sessions/"+v.ID+"/fragment", map[string]string{"fragment": "he"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Result struct {
			Kind       string   `json:"kind"`
			Candidates []string `json:"candidates"`
		} `json:"result"`
		Preview string `json:"preview"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "ambiguous", body.Result.Kind)
	assert.Equal(t, []string{"hello", "help"}, body.Result.Candidates)
	assert.Equal(t, "Multiple matches...", body.Preview)

	resp = env.do(t, http.MethodPost, "/api/sessions/"+v.ID+"/commit", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Empty(t, env.inserter.Texts())

	resp = env.do(t, http.MethodPut, "/api/sessions/"+v.ID+"/fragment", map[string]string{"fragment": "ad"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/sessions/"+v.ID+"/commit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var committed map[string]string
	decode(t, resp, &committed)
	assert.Equal(t, "123 Main St", committed["text"])
	assert.Equal(t, []string{"123 Main St"}, env.inserter.Texts())

	// Commit ends the session.
	resp = env.do(t, http.MethodPost, "/api/sessions/"+v.ID+"/commit", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddEntries(t *testing.T) {
	env := newTestEnv(t, session.PolicyReject)
	v := env.open(t, "add", "Mail — Compose")
	path := "/api/sessions/" + v.ID + "/entries"

	resp := env.do(t, http.MethodPost, path, map[string]string{"key": "ADDR", "snippet": "456 Oak Ave"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodPost, path, map[string]string{"key": "sig", "snippet": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, path, map[string]string{"key": "sig", "snippet": "Best, J."})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var c templates.Collection
	decode(t, resp, &c)
	assert.Equal(t, []string{"addr", "hello", "help", "sig"}, c.Keys())

	// Fragment updates are not part of an add session.
	resp = env.do(t, http.MethodPut, "/api/sessions/"+v.ID+"/fragment", map[string]string{"fragment": "a"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCloseSession(t *testing.T) {
	env := newTestEnv(t, session.PolicyReject)
	v := env.open(t, "add", "mail")
	before, err := os.ReadFile(filepath.Join(env.dir, "mail.json"))
	require.NoError(t, err)

	resp := env.do(t, http.MethodDelete, "/api/sessions/"+v.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_, ok := env.manager.Get(v.ID)
	assert.False(t, ok)

	after, err := os.ReadFile(filepath.Join(env.dir, "mail.json"))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	resp = env.do(t, http.MethodDelete, "/api/sessions/"+v.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUnknownSession(t *testing.T) {
	env := newTestEnv(t, session.PolicyReject)
	resp := env.do(t, http.MethodPut, "/api/sessions/nope/fragment", map[string]string{"fragment": "a"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
