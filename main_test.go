package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"text-expander/config"
	"text-expander/desktop"
	"text-expander/templates"
)

func TestRunList(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mail.json"),
		[]byte(`{"template_names":["mail"],"templates":{"addr":"123 Main St"}}`), 0o644))
	store, err := templates.NewStore(dir)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runList(store, "yaml", &out))
	var decoded []templates.Collection
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "mail", decoded[0].Name)
	assert.Equal(t, []templates.Entry{{Key: "addr", Snippet: "123 Main St"}}, decoded[0].Entries)

	out.Reset()
	require.NoError(t, runList(store, "json", &out))
	assert.Contains(t, out.String(), `"snippet": "123 Main St"`)

	assert.Error(t, runList(store, "toml", &out))
}

func TestRunUnknownCommand(t *testing.T) {
	assert.Error(t, run([]string{"frobnicate"}))
}

func TestRunListCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slack.json"), []byte(`{"brb":"be right back"}`), 0o644))
	err := run([]string{"list", "--templates-dir", dir, "--env-file", "", "--format", "json", "--log-level", "error"})
	assert.NoError(t, err)
}

func TestNewInserterRecordsTargetForExpand(t *testing.T) {
	cfg := &config.Config{
		PasteCommand:    "xdotool key ctrl+v",
		WindowIDCommand: "echo 4194307",
		FocusCommand:    "xdotool windowactivate --sync {window}",
	}
	ctx := context.Background()

	ins, ok := newInserter(ctx, cfg, "expand", false, nil, zap.NewNop()).(desktop.ClipboardInserter)
	require.True(t, ok)
	assert.Equal(t, []string{"xdotool", "windowactivate", "--sync", "4194307"}, ins.FocusCommand)
	assert.Equal(t, []string{"xdotool", "key", "ctrl+v"}, ins.PasteCommand)

	ins, ok = newInserter(ctx, cfg, "serve", false, nil, zap.NewNop()).(desktop.ClipboardInserter)
	require.True(t, ok)
	assert.Empty(t, ins.FocusCommand, "the host never steals focus")

	cfg.WindowIDCommand = "false"
	ins, ok = newInserter(ctx, cfg, "expand", false, nil, zap.NewNop()).(desktop.ClipboardInserter)
	require.True(t, ok)
	assert.Empty(t, ins.FocusCommand)

	var out bytes.Buffer
	_, ok = newInserter(ctx, cfg, "expand", true, &out, zap.NewNop()).(desktop.WriterInserter)
	assert.True(t, ok)
}
