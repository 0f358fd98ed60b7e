package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/tailored-agentic-units/kernelhub/api"
	"github.com/tailored-agentic-units/kernelhub/config"
	"github.com/tailored-agentic-units/kernelhub/jupyter"
	"github.com/tailored-agentic-units/kernelhub/kernel"
	"github.com/tailored-agentic-units/kernelhub/observability"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to a JSON or YAML config file")
		jupyterURL  = flag.String("jupyter-url", "", "Jupyter Server base URL (overrides config)")
		token       = flag.String("token", "", "Jupyter Server token (overrides config; defaults to $JUPYTER_TOKEN)")
		addr        = flag.String("addr", "", "RPC and metrics listen address (overrides config)")
		settleDelay = flag.Duration("settle-delay", 0, "Delay before attaching to a new kernel (overrides config)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}

	if *token == "" {
		*token = os.Getenv("JUPYTER_TOKEN")
	}
	cfg.Merge(&config.Config{
		Tracker: config.TrackerConfig{SettleDelay: config.Duration(*settleDelay)},
		Jupyter: config.JupyterConfig{URL: *jupyterURL, Token: *token},
		Server:  config.ServerConfig{Addr: *addr},
	})

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	cfg.Jupyter.Logger = logger
	cfg.Server.Logger = logger

	if err := run(cfg, logger); err != nil {
		log.Fatalf("kernelhub failed: %v", err)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics, err := observability.NewPrometheusObserver("kernelhub", prometheus.DefaultRegisterer, observability.GaugeSpec{
		Name: "kernels",
		Help: "Kernels currently tracked.",
		Inc:  kernel.EventKernelAdded,
		Dec:  kernel.EventKernelDeleted,
	})
	if err != nil {
		return err
	}
	observability.RegisterObserver("slog", observability.NewSlogObserver(logger))
	observability.RegisterObserver("prometheus", metrics)

	client, err := jupyter.New(cfg.Jupyter)
	if err != nil {
		return err
	}

	manager, err := kernel.New(ctx, cfg.Tracker,
		kernel.WithTransport(client),
		kernel.WithProcessManager(client),
	)
	if err != nil {
		return err
	}
	defer manager.Close()

	mux := http.NewServeMux()
	path, handler := api.NewHandler(manager, cfg.Server.Logger, api.WithProcesses(client))
	mux.Handle(path, handler)
	mux.Handle(cfg.Server.MetricsPath, promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	watcher := jupyter.NewWatcher(client, manager.Kernels(), manager, cfg.Jupyter.PollInterval.Std())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("kernelhub listening",
			slog.String("addr", cfg.Server.Addr),
			slog.String("jupyter", cfg.Jupyter.URL),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return watcher.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
		defer cancel()
		logger.Info("kernelhub shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
