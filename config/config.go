// Package config loads process configuration. Values are layered, lowest
// precedence first: built-in defaults, an optional YAML file, a .env file,
// TEXPAND_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"text-expander/session"
)

const envPrefix = "TEXPAND"

// Config is the resolved configuration.
type Config struct {
	TemplatesDir       string        `mapstructure:"templates_dir"`
	CreateTemplatesDir bool          `mapstructure:"create_templates_dir"`
	ListenAddr         string        `mapstructure:"listen_addr"`
	LogLevel           string        `mapstructure:"log_level"`
	LogFormat          string        `mapstructure:"log_format"`
	CacheSize          int           `mapstructure:"cache_size"`
	SessionPolicy      string        `mapstructure:"session_policy"`
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
	WindowCommand      string        `mapstructure:"window_command"`
	PasteCommand       string        `mapstructure:"paste_command"`
	WindowIDCommand    string        `mapstructure:"window_id_command"`
	FocusCommand       string        `mapstructure:"focus_command"`
	ResolveHotkey      string        `mapstructure:"resolve_hotkey"`
	AddHotkey          string        `mapstructure:"add_hotkey"`
}

// Hotkeys are the bindings an external hotkey daemon should register.
type Hotkeys struct {
	Resolve string `json:"resolve"`
	Add     string `json:"add"`
}

// Hotkeys returns the configured bindings.
func (c *Config) Hotkeys() Hotkeys {
	return Hotkeys{Resolve: c.ResolveHotkey, Add: c.AddHotkey}
}

// Policy returns the validated session policy.
func (c *Config) Policy() session.Policy {
	p, _ := session.ParsePolicy(c.SessionPolicy)
	return p
}

var defaults = map[string]any{
	"templates_dir":        "templates",
	"create_templates_dir": true,
	"listen_addr":          ":8080",
	"log_level":            "info",
	"log_format":           "console",
	"cache_size":           64,
	"session_policy":       string(session.PolicyReject),
	"session_idle_timeout": 10 * time.Minute,
	"window_command":       "xdotool getactivewindow getwindowname",
	"paste_command":        "xdotool key --clearmodifiers ctrl+v",
	"window_id_command":    "xdotool getactivewindow",
	"focus_command":        "xdotool windowactivate --sync {window}",
	"resolve_hotkey":       "ctrl+alt+i",
	"add_hotkey":           "ctrl+i",
}

// flagNames maps config keys to their flag spelling.
var flagNames = map[string]string{
	"templates_dir":        "templates-dir",
	"create_templates_dir": "create-templates-dir",
	"listen_addr":          "listen",
	"log_level":            "log-level",
	"log_format":           "log-format",
	"cache_size":           "cache-size",
	"session_policy":       "session-policy",
	"session_idle_timeout": "session-idle-timeout",
	"window_command":       "window-command",
	"paste_command":        "paste-command",
	"window_id_command":    "window-id-command",
	"focus_command":        "focus-command",
}

// NewFlagSet returns a flag set carrying the shared configuration flags.
// Callers add their own command-specific flags before Load.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML config file")
	fs.String("env-file", ".env", "dotenv file to load (ignored when missing)")
	fs.String(flagNames["templates_dir"], "templates", "directory holding template units (*.json)")
	fs.Bool(flagNames["create_templates_dir"], true, "create the templates directory if missing")
	fs.String(flagNames["listen_addr"], ":8080", "HTTP listen address")
	fs.String(flagNames["log_level"], "info", "log level (debug, info, warn, error)")
	fs.String(flagNames["log_format"], "console", "log format (console, json)")
	fs.Int(flagNames["cache_size"], 64, "parsed-unit cache entries (0 disables)")
	fs.String(flagNames["session_policy"], string(session.PolicyReject), "re-trigger policy while a session is open (reject, independent)")
	fs.Duration(flagNames["session_idle_timeout"], 10*time.Minute, "close sessions idle for this long")
	fs.String(flagNames["window_command"], "xdotool getactivewindow getwindowname", "command printing the active window title")
	fs.String(flagNames["paste_command"], "xdotool key --clearmodifiers ctrl+v", "command run after copying a snippet (empty to skip)")
	fs.String(flagNames["window_id_command"], "xdotool getactivewindow", "command printing the active window id, captured before expand opens its picker")
	fs.String(flagNames["focus_command"], "xdotool windowactivate --sync {window}", "command refocusing the captured window before expand pastes ({window} is the id)")
	fs.BoolP("help", "h", false, "show help")
	return fs
}

// Load parses args into fs and resolves the layered configuration.
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	envFile, _ := fs.GetString("env-file")
	if envFile != "" {
		// A missing .env is normal; anything else is worth reporting.
		if err := godotenv.Load(envFile); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, name := range flagNames {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("binding flag %s: %w", name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the process cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.TemplatesDir) == "" {
		errs = append(errs, errors.New("templates_dir must not be empty"))
	}
	if _, err := session.ParsePolicy(c.SessionPolicy); err != nil {
		errs = append(errs, err)
	}
	if c.SessionIdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("session_idle_timeout must be positive, got %s", c.SessionIdleTimeout))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache_size must not be negative, got %d", c.CacheSize))
	}
	return errors.Join(errs...)
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
