// Package config defines the server configuration and loads it from TOML or YAML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	tracerr "github.com/xplshn/tracerr2"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every error returned from Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultPort is the listen port used when none is configured.
const DefaultPort = 8000

// Config holds everything needed to run the file server.
// Zero durations disable the corresponding timeout.
type Config struct {
	// Root is the directory served at "/".
	Root string `toml:"root" yaml:"root"`
	// Host is the listen host. Empty listens on all interfaces.
	Host string `toml:"host" yaml:"host"`
	// Port is the TCP listen port. 0 picks a free port.
	Port int `toml:"port" yaml:"port"`

	// StrictMethods restricts requests to GET and HEAD; other methods get 405.
	// When false every method is treated as a read.
	StrictMethods bool `toml:"strict_methods" yaml:"strict_methods"`
	// Readme is a file name rendered as Markdown below directory listings
	// (e.g. "README.md"). Empty disables it.
	Readme string `toml:"readme" yaml:"readme"`
	// MaxConns caps simultaneously accepted connections. 0 means unlimited.
	MaxConns int `toml:"max_conns" yaml:"max_conns"`

	ReadHeaderTimeout time.Duration `toml:"read_header_timeout" yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout      time.Duration `toml:"write_timeout" yaml:"write_timeout"`
	IdleTimeout       time.Duration `toml:"idle_timeout" yaml:"idle_timeout"`
	// ShutdownTimeout bounds how long in-flight requests may run after a stop signal.
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" yaml:"log_level"`
	// LogFormat is text or json.
	LogFormat string `toml:"log_format" yaml:"log_format"`
}

// Default returns the configuration used when no file or flag overrides a value.
func Default() Config {
	return Config{
		Root:              ".",
		Port:              DefaultPort,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ShutdownTimeout:   10 * time.Second,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// envPattern matches {{ env.NAME }} placeholders in configuration files.
var envPattern = regexp.MustCompile(`\{\{\s*env\.(\w+)\s*\}\}`)

// expandEnv replaces {{ env.NAME }} placeholders with environment values.
// An unset or empty variable is an error.
func expandEnv(data []byte) ([]byte, error) {
	var firstErr error
	out := envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		if firstErr != nil {
			return nil
		}
		name := string(envPattern.FindSubmatch(match)[1])
		value := os.Getenv(name)
		if value == "" {
			firstErr = fmt.Errorf("environment variable '%s' not set or is empty", name)
			return nil
		}
		return []byte(value)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Load reads the configuration file at path on top of Default.
// The format is chosen by extension: .toml, .yaml or .yml.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, tracerr.Wrapf(err, "error reading config file %s", path)
	}

	data, err = expandEnv(data)
	if err != nil {
		return cfg, tracerr.Wrapf(err, "error processing env vars in %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, tracerr.Wrapf(err, "error parsing TOML file %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, tracerr.Wrapf(err, "error parsing YAML file %s", path)
		}
	default:
		return cfg, tracerr.Wrapf(ErrInvalidConfig, "unsupported config file extension %q", ext)
	}
	return cfg, nil
}

// Validate checks that the configuration can be served.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("%w: max_conns must not be negative", ErrInvalidConfig)
	}
	if c.Root == "" {
		return fmt.Errorf("%w: root is empty", ErrInvalidConfig)
	}
	info, err := os.Stat(c.Root)
	if err != nil {
		return fmt.Errorf("%w: root: %w", ErrInvalidConfig, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: root %s is not a directory", ErrInvalidConfig, c.Root)
	}
	if strings.ContainsAny(c.Readme, `/\`) {
		return fmt.Errorf("%w: readme must be a plain file name", ErrInvalidConfig)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NewLogger builds the slog logger described by LogLevel and LogFormat.
// Call Validate first; unknown values fall back to info level and text output.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, s)
	}
	return level, nil
}
