// text-expander resolves short keywords into text snippets for the focused
// application. Template collections are JSON files whose trigger names are
// matched against the active window title.
//
// Usage:
//
//	text-expander [serve] [flags]     run the HTTP host hotkey daemons call
//	text-expander expand [flags]      pick a keyword in the terminal and insert it
//	text-expander add [flags]         add keyword/snippet pairs for the window
//	text-expander list [flags]        print the template collections
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"text-expander/api"
	"text-expander/config"
	"text-expander/desktop"
	"text-expander/logging"
	"text-expander/session"
	"text-expander/templates"
	"text-expander/tui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	command := "serve"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	fs := config.NewFlagSet("text-expander " + command)
	var (
		title     string
		printOnly bool
		format    string
	)
	switch command {
	case "serve":
	case "expand":
		fs.StringVar(&title, "title", "", "window title (default: ask the window command)")
		fs.BoolVar(&printOnly, "print", false, "print the snippet instead of pasting it")
	case "add":
		fs.StringVar(&title, "title", "", "window title (default: ask the window command)")
	case "list":
		fs.StringVar(&format, "format", "yaml", "output format (yaml, json)")
	default:
		return fmt.Errorf("unknown command %q (want serve, expand, add or list)", command)
	}

	cfg, err := config.Load(fs, args)
	if err != nil {
		return err
	}
	if help, _ := fs.GetBool("help"); help {
		fmt.Fprintf(os.Stderr, "Usage: text-expander %s [flags]\n\nFlags:\n", command)
		fs.SetOutput(os.Stderr)
		fs.PrintDefaults()
		return nil
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := templates.NewStore(cfg.TemplatesDir,
		templates.WithLogger(logger),
		templates.WithCacheSize(cfg.CacheSize),
	)
	if err != nil {
		return err
	}
	if cfg.CreateTemplatesDir {
		if err := store.EnsureDir(); err != nil {
			return err
		}
	}

	window := desktop.CommandWindow{Command: desktop.SplitCommand(cfg.WindowCommand)}
	inserter := newInserter(context.Background(), cfg, command, printOnly, os.Stdout, logger)
	manager := session.NewManager(store, window, inserter, session.Options{
		Policy:      cfg.Policy(),
		IdleTimeout: cfg.SessionIdleTimeout,
		Logger:      logger,
	})

	switch command {
	case "expand":
		return runExpand(manager, title)
	case "add":
		return runAdd(manager, title)
	case "list":
		return runList(store, format, os.Stdout)
	default:
		return serve(cfg, manager, store, logger)
	}
}

// newInserter picks where committed snippets go. expand runs its picker in
// a terminal that takes focus, so the window focused at startup is recorded
// now and refocused before pasting.
func newInserter(ctx context.Context, cfg *config.Config, command string, printOnly bool, stdout io.Writer, logger *zap.Logger) desktop.Inserter {
	if printOnly {
		return desktop.WriterInserter{W: stdout}
	}
	ins := desktop.ClipboardInserter{
		PasteCommand: desktop.SplitCommand(cfg.PasteCommand),
		Logger:       logger,
	}
	if command != "expand" || cfg.FocusCommand == "" {
		return ins
	}
	id, err := desktop.CommandOutput(ctx, desktop.SplitCommand(cfg.WindowIDCommand))
	if err != nil || id == "" {
		logger.Warn("could not record the target window; pasting into whatever has focus", zap.Error(err))
		return ins
	}
	ins.FocusCommand = desktop.WithWindow(desktop.SplitCommand(cfg.FocusCommand), id)
	return ins
}

func serve(cfg *config.Config, manager *session.Manager, store *templates.Store, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go manager.RunReaper(ctx, time.Minute)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.RegisterRoutes(manager, store, cfg.Hotkeys(), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("text-expander listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("templates_dir", store.Dir()),
			zap.String("resolve_hotkey", cfg.ResolveHotkey),
			zap.String("add_hotkey", cfg.AddHotkey),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runExpand(manager *session.Manager, title string) error {
	ctx := context.Background()
	s, err := manager.OpenResolve(ctx, title)
	if err != nil {
		return err
	}
	defer func() { _ = manager.Close(s.ID) }()

	final, err := tea.NewProgram(tui.NewPicker(s), tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if picker, ok := final.(tui.Picker); !ok || !picker.Accepted() {
		return nil
	}
	_, err = s.Commit(ctx)
	return err
}

func runAdd(manager *session.Manager, title string) error {
	s, err := manager.OpenAdd(context.Background(), title)
	if err != nil {
		return err
	}
	defer func() { _ = manager.Close(s.ID) }()

	final, err := tea.NewProgram(tui.NewForm(s), tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if form, ok := final.(tui.Form); ok && len(form.Saved()) > 0 {
		fmt.Fprintf(os.Stderr, "added %d entr%s to %s\n", len(form.Saved()), plural(len(form.Saved())), s.Collection().Name)
	}
	return nil
}

func runList(store *templates.Store, format string, w io.Writer) error {
	collections, err := store.List()
	if err != nil {
		return err
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(collections)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(collections); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
