package main

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/f4ah6o/fileserve-go/internal/config"
)

// runArgs runs the CLI with args and returns the configuration it would serve.
func runArgs(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	var got config.Config
	cmd := newCommand(func(_ context.Context, cfg config.Config) error {
		got = cfg
		return nil
	})
	err := cmd.Run(context.Background(), append([]string{"fileserve"}, args...))
	return got, err
}

func TestFlags(t *testing.T) {
	root := t.TempDir()

	cfg, err := runArgs(t, "--root", root, "--port", "9001", "--strict-methods", "--readme", "README.md", "--max-conns", "8", "--write-timeout", "45s", "--log-format", "json")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if cfg.Root != root || cfg.Port != 9001 {
		t.Errorf("root/port = %s/%d, want %s/9001", cfg.Root, cfg.Port, root)
	}
	if !cfg.StrictMethods || cfg.Readme != "README.md" || cfg.MaxConns != 8 {
		t.Errorf("unexpected options: %+v", cfg)
	}
	if cfg.WriteTimeout != 45*time.Second {
		t.Errorf("WriteTimeout = %v, want 45s", cfg.WriteTimeout)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
	// Unset flags keep the defaults.
	if cfg.ShutdownTimeout != config.Default().ShutdownTimeout || cfg.LogLevel != "info" {
		t.Errorf("defaults not kept: %+v", cfg)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := runArgs(t)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if cfg != config.Default() {
		t.Errorf("config = %+v, want defaults %+v", cfg, config.Default())
	}
}

func TestConfigFileAndOverrides(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	path := filepath.Join(t.TempDir(), "fileserve.toml")
	content := "root = \"" + filepath.ToSlash(root) + "\"\nport = 9100\nreadme = \"INDEX.md\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := runArgs(t, "--config", path)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if cfg.Port != 9100 || cfg.Readme != "INDEX.md" {
		t.Errorf("file values not applied: %+v", cfg)
	}

	cfg, err = runArgs(t, "--config", path, "--root", other, "--port", "9200")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if cfg.Root != other || cfg.Port != 9200 {
		t.Errorf("flags did not override file: %+v", cfg)
	}
	if cfg.Readme != "INDEX.md" {
		t.Errorf("Readme = %q, want value from file", cfg.Readme)
	}
}

func TestEnvVars(t *testing.T) {
	root := t.TempDir()
	t.Setenv("FILESERVE_ROOT", root)
	t.Setenv("FILESERVE_PORT", "9300")

	cfg, err := runArgs(t)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if cfg.Root != root || cfg.Port != 9300 {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestInvalidConfig(t *testing.T) {
	_, err := runArgs(t, "--root", filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("Run() error = %v, want ErrInvalidConfig", err)
	}

	if _, err := runArgs(t, "--config", filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Run() should fail for a missing config file")
	}
}

func TestDisplayAddr(t *testing.T) {
	tests := []struct {
		name string
		addr net.Addr
		want string
	}{
		{name: "IPv6 wildcard", addr: &net.TCPAddr{IP: net.IPv6unspecified, Port: 8000}, want: "localhost:8000"},
		{name: "IPv4 wildcard", addr: &net.TCPAddr{IP: net.IPv4zero, Port: 8000}, want: "localhost:8000"},
		{name: "Loopback", addr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}, want: "127.0.0.1:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := displayAddr(tt.addr); got != tt.want {
				t.Errorf("displayAddr(%v) = %q, want %q", tt.addr, got, tt.want)
			}
		})
	}
}
