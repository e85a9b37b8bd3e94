package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/narrative-engine/internal/catalog"
	"github.com/DoyleJ11/narrative-engine/internal/config"
	"github.com/DoyleJ11/narrative-engine/internal/engine"
	"github.com/DoyleJ11/narrative-engine/internal/httpapi"
	"github.com/DoyleJ11/narrative-engine/internal/hub"
	"github.com/DoyleJ11/narrative-engine/internal/logging"
	"github.com/DoyleJ11/narrative-engine/internal/narrative"
	"github.com/DoyleJ11/narrative-engine/internal/observability"
	"github.com/DoyleJ11/narrative-engine/internal/reveal"
	"github.com/DoyleJ11/narrative-engine/internal/ws"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	devOrigins := flag.Bool("dev-origins", false, "accept websocket connections from localhost origins")
	flag.Parse()

	if err := run(*envFile, *devOrigins); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(envFile string, devOrigins bool) (err error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer func() {
		// Sync fails on terminals; only report it alongside a real error.
		if syncErr := logger.Sync(); err != nil {
			err = multierr.Append(err, syncErr)
		}
	}()

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	policy, err := engine.ParseResumePolicy(cfg.ResumePolicy)
	if err != nil {
		return err
	}
	observability.RegisterMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The hub outlives the signal context so it can be drained in order.
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	h := hub.NewHub(hubCtx, hub.Config{
		Session: narrative.Config{
			Catalog:       cat,
			ResumePolicy:  policy,
			FrameInterval: cfg.FrameInterval,
			Typewriter: reveal.TypewriterConfig{
				Interval: cfg.TypeInterval,
				Jitter:   cfg.TypeJitter,
				Steady:   cfg.TypeJitter == 0,
			},
		},
		Logger: logger.Named("hub"),
	})

	wsOpts := ws.Options{OutboxSize: cfg.OutboxSize}
	if devOrigins {
		wsOpts.OriginPatterns = []string{"localhost:*", "127.0.0.1:*"}
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:     h,
			Catalog: cat,
			Logger:  logger,
			WS:      wsOpts,
		}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Strings("experiences", cat.Names()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		var errs error
		errs = multierr.Append(errs, srv.Shutdown(shutdownCtx))

		done := make(chan struct{})
		h.Inbox() <- hub.ShutdownHub{Done: done}
		select {
		case <-done:
		case <-shutdownCtx.Done():
			errs = multierr.Append(errs, fmt.Errorf("hub shutdown: %w", shutdownCtx.Err()))
		}
		return errs
	})

	return g.Wait()
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}
