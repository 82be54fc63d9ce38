package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"dashwatch/internal/config"
	"dashwatch/internal/logging"
	"dashwatch/internal/watcher"
)

const usage = `dashwatch - live bot/system status from a dashboard

Usage:
  dashwatch run --config <path> [--mode stream|poll] [--url <dashboard url>]
  dashwatch status --config <path> [--url <dashboard url>]
  dashwatch config init --config <path> [--url <dashboard url>]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd := os.Args[1]
	switch cmd {
	case "-h", "--help", "help":
		fmt.Print(usage)
	case "run":
		handleRun(os.Args[2:])
	case "status":
		handleStatus(os.Args[2:])
	case "config":
		handleConfig(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func handleRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	mode := fs.String("mode", "", "stream or poll")
	url := fs.String("url", "", "dashboard URL")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	override(&cfg, *url, *mode)
	if err := config.Validate(cfg); err != nil {
		fatal(err)
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fatal(err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("watching dashboard", slog.String("url", cfg.Dashboard.URL), slog.String("mode", cfg.Mode))
	fatal(watcher.Run(ctx, cfg, logger, os.Stdout))
}

func handleStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	url := fs.String("url", "", "dashboard URL")
	_ = fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	override(&cfg, *url, "")

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fatal(err)
	}
	w, err := watcher.New(cfg, logger, os.Stdout)
	if err != nil {
		fatal(err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	fatal(w.Once(ctx))
}

func handleConfig(args []string) {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, "config subcommand required\n")
		os.Exit(2)
	}
	switch args[0] {
	case "init":
		configInit(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown config subcommand %q\n", args[0])
		os.Exit(2)
	}
}

func configInit(args []string) {
	fs := flag.NewFlagSet("config init", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config")
	url := fs.String("url", "", "dashboard URL")
	_ = fs.Parse(args)

	if *configPath == "" {
		fatal(errors.New("--config is required"))
	}
	if _, err := os.Stat(*configPath); err == nil {
		fatal(fmt.Errorf("%s already exists", *configPath))
	}

	cfg := config.Default()
	override(&cfg, *url, "")
	if err := config.Validate(cfg); err != nil {
		fatal(err)
	}
	if err := config.Save(*configPath, cfg); err != nil {
		fatal(err)
	}
	fmt.Printf("wrote %s\n", *configPath)
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func override(cfg *config.Config, url, mode string) {
	if url != "" {
		cfg.Dashboard.URL = url
	}
	if mode != "" {
		cfg.Mode = mode
	}
	config.ApplyDefaults(cfg)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()
	return ctx, cancel
}

func fatal(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
