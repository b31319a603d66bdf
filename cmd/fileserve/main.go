// Command fileserve serves a directory over HTTP with byte-range support and directory listings.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
	tracerr "github.com/xplshn/tracerr2"

	"github.com/f4ah6o/fileserve-go/internal/config"
	"github.com/f4ah6o/fileserve-go/internal/server"
)

var version = "dev"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(serve).Run(ctx, os.Args); err != nil {
		if e, ok := err.(*tracerr.Error); ok {
			e.Print()
		} else {
			slog.Error("fileserve failed", "error", err)
		}
		stop()
		os.Exit(1)
	}
}

// newCommand builds the CLI. run receives the validated configuration.
func newCommand(run func(context.Context, config.Config) error) *cli.Command {
	def := config.Default()
	return &cli.Command{
		Name:    "fileserve",
		Usage:   "Serve a directory over HTTP with byte ranges and directory listings",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to a .toml or .yaml config file", Sources: cli.EnvVars("FILESERVE_CONFIG")},
			&cli.StringFlag{Name: "root", Aliases: []string{"dir"}, Value: def.Root, Usage: "Directory to serve", Sources: cli.EnvVars("FILESERVE_ROOT")},
			&cli.StringFlag{Name: "host", Usage: "Host to listen on (empty for all interfaces)", Sources: cli.EnvVars("FILESERVE_HOST")},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: def.Port, Usage: "Port to serve on", Sources: cli.EnvVars("FILESERVE_PORT")},
			&cli.BoolFlag{Name: "strict-methods", Usage: "Answer methods other than GET and HEAD with 405", Sources: cli.EnvVars("FILESERVE_STRICT_METHODS")},
			&cli.StringFlag{Name: "readme", Usage: "File rendered as Markdown below directory listings, e.g. README.md", Sources: cli.EnvVars("FILESERVE_README")},
			&cli.IntFlag{Name: "max-conns", Usage: "Maximum simultaneous connections (0 for unlimited)", Sources: cli.EnvVars("FILESERVE_MAX_CONNS")},
			&cli.DurationFlag{Name: "write-timeout", Usage: "Maximum time to write a response (0 for none)", Sources: cli.EnvVars("FILESERVE_WRITE_TIMEOUT")},
			&cli.DurationFlag{Name: "shutdown-timeout", Value: def.ShutdownTimeout, Usage: "Grace period for in-flight requests on shutdown", Sources: cli.EnvVars("FILESERVE_SHUTDOWN_TIMEOUT")},
			&cli.StringFlag{Name: "log-level", Value: def.LogLevel, Usage: "debug, info, warn or error", Sources: cli.EnvVars("FILESERVE_LOG_LEVEL")},
			&cli.StringFlag{Name: "log-format", Value: def.LogFormat, Usage: "text or json", Sources: cli.EnvVars("FILESERVE_LOG_FORMAT")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(ctx, cfg)
		},
	}
}

// loadConfig starts from the config file, if any, and applies explicitly set flags on top.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg := config.Default()
	if path := cmd.String("config"); path != "" {
		slog.Info("loading configuration file", "path", path)
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if cmd.IsSet("root") {
		cfg.Root = cmd.String("root")
	}
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}
	if cmd.IsSet("strict-methods") {
		cfg.StrictMethods = cmd.Bool("strict-methods")
	}
	if cmd.IsSet("readme") {
		cfg.Readme = cmd.String("readme")
	}
	if cmd.IsSet("max-conns") {
		cfg.MaxConns = cmd.Int("max-conns")
	}
	if cmd.IsSet("write-timeout") {
		cfg.WriteTimeout = cmd.Duration("write-timeout")
	}
	if cmd.IsSet("shutdown-timeout") {
		cfg.ShutdownTimeout = cmd.Duration("shutdown-timeout")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.LogFormat = cmd.String("log-format")
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}
	ln, err := srv.Listen()
	if err != nil {
		return err
	}

	color.New(color.FgCyan, color.Bold).Printf("🌐 Serving %s at http://%s\n", srv.Root(), displayAddr(ln.Addr()))
	fmt.Println("Press Ctrl+C to stop")

	return srv.Serve(ctx, ln)
}

// displayAddr turns a wildcard listen address into one a browser can open.
func displayAddr(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok && tcp.IP.IsUnspecified() {
		return fmt.Sprintf("localhost:%d", tcp.Port)
	}
	return addr.String()
}
