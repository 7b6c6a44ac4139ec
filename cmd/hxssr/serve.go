package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/pthm/hxssr"
	"github.com/pthm/hxssr/internal/demo"
	"github.com/pthm/hxssr/lib/config"
	"github.com/pthm/hxssr/lib/metrics"
	"github.com/pthm/hxssr/lib/reload"
	"github.com/pthm/hxssr/lib/supervisor"
	"github.com/pthm/hxssr/lib/watch"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Serve the demo application with live reload",
		Long: `Serve the demo application.

With reload enabled, changes under the watched paths run the build command
(if any) and then hand the listening socket to a fresh copy of this binary.
SIGHUP triggers the same handoff by hand. SIGINT and SIGTERM drain and exit.

Examples:
  hxssr serve
  hxssr serve --addr :8080 --build "go build -o ./bin/hxssr ./cmd/hxssr"
  hxssr serve --no-reload`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("addr", ":3000", "address to listen on")
	cmd.Flags().String("base-url", "", "public base URL when behind a proxy")
	cmd.Flags().Duration("grace", supervisor.DefaultGrace, "drain period for in-flight requests")
	cmd.Flags().Bool("no-reload", false, "disable live reload and file watching")
	cmd.Flags().StringSlice("watch", []string{"."}, "paths to watch")
	cmd.Flags().String("build", "", "command to run before each handoff")
	cmd.Flags().Bool("metrics", true, "serve prometheus metrics")

	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("server.base_url", cmd.Flags().Lookup("base-url"))
	_ = v.BindPFlag("server.grace", cmd.Flags().Lookup("grace"))
	_ = v.BindPFlag("watch.paths", cmd.Flags().Lookup("watch"))
	_ = v.BindPFlag("watch.build", cmd.Flags().Lookup("build"))
	_ = v.BindPFlag("metrics.enabled", cmd.Flags().Lookup("metrics"))
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if noReload, _ := cmd.Flags().GetBool("no-reload"); noReload {
			v.Set("reload.enabled", false)
		}
	}
	return cmd
}

// app is everything runServe wires together, split out so it can be
// built without a socket.
type app struct {
	channel *reload.Channel
	hub     *reload.Hub
	metrics *metrics.Metrics
	engine  *hxssr.Engine
	handler http.Handler
}

func newApp(cfg *config.Config, logger *slog.Logger, reg *metrics.Metrics) *app {
	a := &app{
		channel: reload.Process(),
		metrics: reg,
	}
	a.hub = reload.NewHub(a.channel, reload.WithHubLogger(logger))
	if a.metrics != nil {
		a.metrics.TrackGeneration(a.channel)
	}

	opts := []hxssr.EngineOption{
		hxssr.WithChannel(a.channel),
		hxssr.WithLogger(logger),
		hxssr.WithMetrics(a.metrics),
	}
	if cfg.Reload.Enabled {
		opts = append(opts, hxssr.WithDevMode(cfg.Reload.Path), hxssr.WithHub(a.hub))
	}
	a.engine = hxssr.NewEngine(demo.Fragments(), opts...)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.engine.Middleware)
	if cfg.Metrics.Enabled && a.metrics != nil {
		r.Handle(cfg.Metrics.Path, a.metrics.Handler())
	}
	demo.Routes(r, a.engine, demo.NewSampleStore())
	a.handler = r
	return a
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reg *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg = metrics.New(metrics.WithNamespace(cfg.Metrics.Namespace))
	}
	a := newApp(cfg, logger, reg)

	handle, err := supervisor.Inherit()
	if err != nil {
		return err
	}
	if handle == nil {
		if handle, err = supervisor.Listen(ctx, cfg.Server.Addr); err != nil {
			return fmt.Errorf("failed to get a TCP listener: %w", err)
		}
	}
	resume, err := supervisor.ResumeFromEnv()
	if err != nil {
		handle.Close()
		return err
	}

	var opts hxssr.Options
	if cfg.Server.BaseURL != "" {
		if opts.BaseURL, err = hxssr.ParseBaseURL(cfg.Server.BaseURL); err != nil {
			handle.Close()
			return &hxssr.OptionsError{Var: "server.base_url", Value: cfg.Server.BaseURL, Err: err}
		}
	} else {
		logger.Warn("base URL not set: it will be determined from the TCP listener address")
	}

	supCfg := supervisor.Config{
		Channel:           a.channel,
		Resume:            resume,
		Grace:             cfg.Server.Grace,
		ReadyTimeout:      cfg.Server.ReadyTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		Logger:            logger,
	}
	if a.metrics != nil {
		supCfg.Observer = a.metrics
	}
	if cfg.Reload.Enabled {
		supCfg.Hub = a.hub
		supCfg.Spawner = &supervisor.ProcessSpawner{}
	}

	srv := hxssr.NewServer(handle, a.handler).
		WithOptions(opts).
		WithLogger(logger).
		WithSupervisor(supCfg)
	sup := srv.Supervisor()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Serve returns nil after a handoff; stop the watcher too.
		defer cancel()
		return srv.Serve(gctx)
	})

	if cfg.Reload.Enabled {
		supervisor.NotifyHandoff(gctx, sup, logger)

		w, err := newWatcher(cfg.Watch, logger)
		if err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
		builder := &watch.Builder{
			Command: cfg.Watch.Build,
			Timeout: cfg.Watch.BuildTimeout,
			Logger:  logger,
		}
		w.AddHandler(watch.HandoffTrigger(gctx, builder, sup, logger))

		g.Go(func() error {
			w.Start(gctx)
			<-gctx.Done()
			return w.Stop()
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newWatcher(cfg config.WatchConfig, logger *slog.Logger) (*watch.Watcher, error) {
	w, err := watch.New(cfg.Debounce, watch.WithLogger(logger), watch.WithIgnoreDirs(cfg.Ignore...))
	if err != nil {
		return nil, err
	}
	w.AddFilter(watch.ExtensionFilter(cfg.Extensions...))
	w.AddFilter(watch.NoTestFilter)
	w.AddFilter(watch.NoGeneratedFilter)
	w.AddFilter(watch.NoHiddenFilter)

	for _, p := range cfg.Paths {
		if err := w.AddRecursive(p); err != nil {
			w.Stop()
			return nil, fmt.Errorf("watching %s: %w", p, err)
		}
	}
	logger.Info("watching for changes", "paths", cfg.Paths, "extensions", cfg.Extensions)
	return w, nil
}
