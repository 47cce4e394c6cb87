package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"productivityTracker/internal/app"
	"productivityTracker/internal/config"
	"productivityTracker/internal/logger"

	gfshutdown "github.com/gelmium/graceful-shutdown"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading config:", err)
		os.Exit(1)
	}

	application := app.New(cfg)
	if err := application.Init(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "starting application:", err)
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		err := application.Run(ctx)
		done <- err
		if err != nil {
			logger.Error("App: server stopped unexpectedly", err)
			// Hand control to the signal-driven shutdown below.
			if p, findErr := os.FindProcess(os.Getpid()); findErr == nil {
				_ = p.Signal(os.Interrupt)
			}
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				stop()
				select {
				case err := <-done:
					return err
				case <-ctx.Done():
					return ctx.Err()
				}
			},
		},
	)

	os.Exit(<-wait)
}
