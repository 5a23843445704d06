package main

import (
	"context"
	"errors"
	"github.com/ingluisfelipemunoz/turnqueue/app"
	"github.com/ingluisfelipemunoz/turnqueue/internal/telemetry"
	"github.com/ingluisfelipemunoz/turnqueue/types/config"
	"golang.org/x/sync/errgroup"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err.Error())
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Setup(ctx, "turnqueue", cfg.Instance, cfg.TracingEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			log.Printf("tracing shutdown error: %s", err.Error())
		}
	}()

	container, err := app.NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Printf("container close error: %s", err.Error())
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return container.TurnProcessor.Start(gctx) })
	g.Go(func() error { return container.Scheduler.Start(gctx) })
	g.Go(func() error { return container.RouteHandler.Serve(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Println("turnqueue stopped")
	return nil
}
