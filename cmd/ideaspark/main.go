package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"ideaspark/internal/config"
	"ideaspark/internal/gateway"
	"ideaspark/internal/logging"
	"ideaspark/internal/stage"
	"ideaspark/internal/storage"
	"ideaspark/internal/tui"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	var (
		configPath string
		serviceURL string
	)
	flag.StringVar(&configPath, "config", "", "Path to config JSON/JSONC")
	flag.StringVar(&serviceURL, "service", "", "IdeaSpark service base URL override")
	flag.Usage = func() {
		printCommands(flag.CommandLine.Output())
		fmt.Fprintln(flag.CommandLine.Output(), "flags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	_ = godotenv.Load()

	command := strings.TrimSpace(flag.Arg(0))
	if command == "init" {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "resolve cwd failed: %v\n", err)
			os.Exit(1)
		}
		if err := runInit(cwd, serviceURL, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "init failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if strings.TrimSpace(serviceURL) != "" {
		cfg.Service.BaseURL = strings.TrimRight(strings.TrimSpace(serviceURL), "/")
	}

	logger, logCloser, err := logging.SetupFile(cfg.Log.Level, cfg.LogPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logging failed: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	store, err := storage.NewSQLiteStore(cfg.DBPath(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init storage failed: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctl := newController(cfg, store, logger)
	exportDir, err := resolveExportDir(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve export dir failed: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := dispatch(ctx, command, ctl, exportDir, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", commandName(command), err)
		stop()
		os.Exit(1)
	}
}

func newController(cfg config.Config, store storage.Store, logger zerolog.Logger) *stage.Controller {
	timeout := time.Duration(cfg.Service.TimeoutMS) * time.Millisecond
	gw := gateway.NewHTTP(cfg.Service.BaseURL, timeout,
		gateway.WithMalformedHook(func(e gateway.MalformedResponseError) {
			logger.Warn().Str("op", e.Op).Str("field", e.Field).Msg("service response missing field")
		}),
	)
	logger.Info().Str("service", gw.BaseURL()).Str("db", cfg.DBPath()).Msg("ideaspark starting")
	return stage.New(store, gw,
		stage.WithLogger(logger),
		stage.WithCallTimeout(timeout),
	)
}

func dispatch(ctx context.Context, command string, ctl *stage.Controller, exportDir string, out io.Writer) error {
	switch command {
	case "":
		return tui.Run(ctl, exportDir)
	case "configure":
		in, inErr := newLineInput()
		if inErr != nil {
			fmt.Fprintf(os.Stderr, "line editor unavailable, fallback to basic input: %v\n", inErr)
		}
		defer in.Close()
		return runConfigure(ctx, in, ctl, os.Getenv, out)
	case "status":
		runStatus(ctl, out)
		return nil
	case "export":
		return runExport(ctl, exportDir, out)
	case "reset":
		return runReset(ctl, out)
	case "help":
		printCommands(out)
		return nil
	default:
		printCommands(os.Stderr)
		return fmt.Errorf("%w: %q", errUnknownCommand, command)
	}
}

func commandName(command string) string {
	if command == "" {
		return "ideaspark"
	}
	return command
}

// resolveExportDir uses storage.export_dir when set, otherwise the working
// directory.
func resolveExportDir(cfg config.Config) (string, error) {
	dir := strings.TrimSpace(cfg.Storage.ExportDir)
	if dir == "" {
		return os.Getwd()
	}
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	return filepath.Abs(dir)
}
