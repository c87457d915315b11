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

	"trainer/app"
	"trainer/hal"
	"trainer/internal/buildinfo"
	"trainer/internal/config"
	"trainer/internal/dashboard"
	"trainer/internal/logging"
)

func main() {
	var (
		cfgPath  string
		logFile  string
		level    logging.LevelFlag
		headless hal.HeadlessConfig
		tui      bool
		version  bool
	)
	flag.StringVar(&cfgPath, "config", "", "Path to a YAML config file.")
	flag.StringVar(&logFile, "logfile", "", "Write rotated JSON logs to this file.")
	flag.Var(&level, "loglevel", "Log level: debug, info, warn or error.")
	flag.BoolVar(&headless.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&headless.Hz, "hz", 60, "Tick rate in headless and dashboard mode.")
	flag.Uint64Var(&headless.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	flag.BoolVar(&tui, "tui", false, "Run headless with a terminal dashboard.")
	flag.BoolVar(&version, "version", false, "Print the version and exit.")
	flag.Parse()

	if version {
		fmt.Println(buildinfo.String())
		return
	}
	if err := run(cfgPath, logFile, level, headless, tui); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfgPath, logFile string, level logging.LevelFlag, headless hal.HeadlessConfig, tui bool) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	opts := logging.Options{
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	}
	if logFile != "" {
		opts.File = logFile
	}
	if level.Given {
		opts.Level = level.Value
	} else if opts.Level, err = logging.ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	if !tui {
		opts.Console = os.Stderr
	}
	log, closer := logging.New(opts)
	defer closer.Close()
	slog.SetDefault(log)
	log.Info("starting", "build", buildinfo.String(), "config", cfgPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ready := make(chan *app.App, 1)
	newApp := func(h hal.HAL) (hal.App, error) {
		a, err := app.New(h, app.Options{Config: cfg, Logger: log})
		if err != nil {
			return nil, err
		}
		if err := a.Start(ctx); err != nil {
			_ = a.Stop()
			return nil, err
		}
		ready <- a
		return a, nil
	}
	stopApp := func() {
		select {
		case a := <-ready:
			_ = a.Stop()
		default:
		}
	}

	switch {
	case tui:
		return runDashboard(ctx, cfg.Window.Title+" "+buildinfo.Short(), newApp, headless)
	case headless.Enabled:
		err = hal.RunHeadless(ctx, newApp, headless)
	default:
		err = hal.RunWindow(ctx, hal.WindowConfig{
			Title:  cfg.Window.Title,
			Width:  cfg.Window.Width,
			Height: cfg.Window.Height,
			TPS:    cfg.Window.TPS,
		}, newApp)
	}
	stopApp()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runDashboard steps the app on the headless host and shows the terminal
// dashboard in the foreground.
func runDashboard(ctx context.Context, title string, newApp func(hal.HAL) (hal.App, error), cfg hal.HeadlessConfig) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg.Ticks = 0
	started := make(chan *app.App, 1)
	errc := make(chan error, 1)
	go func() {
		errc <- hal.RunHeadless(ctx, func(h hal.HAL) (hal.App, error) {
			a, err := newApp(h)
			if err == nil {
				started <- a.(*app.App)
			}
			return a, err
		}, cfg)
	}()

	var a *app.App
	select {
	case a = <-started:
	case err := <-errc:
		return err
	}
	err := dashboard.Run(ctx, a, title)
	cancel()
	if herr := <-errc; herr != nil && !errors.Is(herr, context.Canceled) && err == nil {
		err = herr
	}
	_ = a.Stop()
	return err
}
