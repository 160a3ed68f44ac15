// Package desktop provides the OS-facing collaborators the expander needs:
// a source for the active window title and a target that receives the
// resolved snippet. Real implementations shell out to user-configured
// commands and the system clipboard; the static and recording variants
// stand in for them in tests and headless runs.
package desktop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"
)

// WindowSource reports the title of the window that currently has focus.
type WindowSource interface {
	ActiveWindowTitle(ctx context.Context) (string, error)
}

// Inserter delivers snippet text to whatever application has focus.
type Inserter interface {
	Insert(ctx context.Context, text string) error
}

var errNoCommand = errors.New("no command configured")

// WindowPlaceholder stands for a window id in configured commands.
const WindowPlaceholder = "{window}"

// SplitCommand splits a configured command line on whitespace.
func SplitCommand(line string) []string {
	return strings.Fields(line)
}

// WithWindow returns argv with every WindowPlaceholder replaced by id.
func WithWindow(argv []string, id string) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = strings.ReplaceAll(arg, WindowPlaceholder, id)
	}
	return out
}

// CommandOutput runs argv and returns its trimmed stdout.
func CommandOutput(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", errNoCommand
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %q: %w: %s", argv[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// CommandWindow runs a command and reads the title from its stdout, e.g.
// "xdotool getactivewindow getwindowname".
type CommandWindow struct {
	Command []string
}

func (w CommandWindow) ActiveWindowTitle(ctx context.Context) (string, error) {
	title, err := CommandOutput(ctx, w.Command)
	if err != nil {
		return "", fmt.Errorf("reading window title: %w", err)
	}
	return title, nil
}

// StaticWindow always reports the same title.
type StaticWindow string

func (w StaticWindow) ActiveWindowTitle(context.Context) (string, error) {
	return string(w), nil
}

// ClipboardInserter copies text to the system clipboard and then runs an
// optional paste command such as "xdotool key --clearmodifiers ctrl+v".
// FocusCommand, when set, runs first to hand focus back to the target
// window, e.g. after a terminal picker took it.
type ClipboardInserter struct {
	FocusCommand []string
	PasteCommand []string
	Logger       *zap.Logger

	// write replaces the clipboard in tests.
	write func(string) error
}

func (c ClipboardInserter) Insert(ctx context.Context, text string) error {
	write := c.write
	if write == nil {
		write = clipboard.WriteAll
	}
	if err := write(text); err != nil {
		return fmt.Errorf("copying to clipboard: %w", err)
	}
	if len(c.FocusCommand) > 0 {
		if _, err := CommandOutput(ctx, c.FocusCommand); err != nil {
			return fmt.Errorf("focusing target window: %w", err)
		}
	}
	if len(c.PasteCommand) == 0 {
		return nil
	}
	if _, err := CommandOutput(ctx, c.PasteCommand); err != nil {
		return fmt.Errorf("pasting: %w", err)
	}
	if c.Logger != nil {
		c.Logger.Debug("snippet pasted", zap.Int("bytes", len(text)))
	}
	return nil
}

// WriterInserter writes the snippet to W, for `expand --print`.
type WriterInserter struct {
	W io.Writer
}

func (w WriterInserter) Insert(_ context.Context, text string) error {
	_, err := io.WriteString(w.W, text)
	return err
}

// RecordingInserter remembers every inserted text.
type RecordingInserter struct {
	mu    sync.Mutex
	texts []string
	Err   error
}

func (r *RecordingInserter) Insert(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.texts = append(r.texts, text)
	return nil
}

// Texts returns a copy of what has been inserted so far.
func (r *RecordingInserter) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.texts))
	copy(out, r.texts)
	return out
}
