package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"scalpbot/internal/app"
	brcfg "scalpbot/internal/config"
	"scalpbot/internal/logger"
)

func main() {
	defaultPath := os.Getenv("SCALPBOT_CONFIG")
	if defaultPath == "" {
		defaultPath = "configs/config.yaml"
	}
	cfgPath := pflag.StringP("config", "c", defaultPath, "path to the config file")
	live := pflag.Bool("live", false, "trade against the configured exchange instead of replaying history")
	pflag.Parse()

	cfg, err := brcfg.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger.SetFormat(cfg.App.LogFormat, os.Stdout)
	logger.SetLevel(cfg.App.LogLevel)

	mode := app.ModeBacktest
	if *live {
		mode = app.ModeLive
	}
	logger.Infof("config loaded from %s (mode=%s)", *cfgPath, mode)

	a, err := app.NewApp(cfg, mode)
	if err != nil {
		log.Fatalf("init app: %v", err)
	}
	if mode == app.ModeLive {
		if err := a.WatchConfig(*cfgPath); err != nil {
			logger.Warnf("config watch disabled: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("run: %v", err)
	}
}
