package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geotarget/internal/api"
	"github.com/sells-group/geotarget/internal/config"
	"github.com/sells-group/geotarget/internal/metrics"
	"github.com/sells-group/geotarget/internal/validate"
)

const (
	sweepInterval   = 5 * time.Minute
	shutdownTimeout = 15 * time.Second
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the location search and geo-targeting API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		return runServe(ctx, cfg)
	},
}

// buildServer wires the API from configuration. The returned cleanup
// releases the index and session backends.
func buildServer(ctx context.Context, c *config.Config, reg *prometheus.Registry) (*api.Server, *sessionStore, func(), error) {
	h, err := openIndex(ctx, c)
	if err != nil {
		return nil, nil, nil, err
	}

	sessions, err := initSessions(ctx, c)
	if err != nil {
		h.Close()
		return nil, nil, nil, err
	}
	cleanup := func() {
		sessions.close()
		h.Close()
	}

	reconciler, err := initReconciler(c, h.Index)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	if reconciler == nil {
		zap.L().Warn("ad platform not configured; geo-target updates are disabled")
	}

	m := metrics.New(reg)
	n, err := h.Index.Count(ctx)
	if err != nil {
		cleanup()
		return nil, nil, nil, eris.Wrap(err, "count index rows")
	}
	m.SetIndexRows(n)
	zap.L().Info("address index ready",
		zap.String("driver", c.Store.Driver),
		zap.Int("rows", n),
	)

	srv := api.NewServer(api.Deps{
		Index:       h.Index,
		Search:      newEngine(c, h.Index),
		Validator:   validate.New(h.Index),
		Reconciler:  reconciler,
		Sessions:    sessions,
		Metrics:     m,
		Gatherer:    reg,
		CORSOrigins: c.Server.CORSOrigins,
	})
	return srv, sessions, cleanup, nil
}

func runServe(ctx context.Context, c *config.Config) error {
	if err := c.Validate("serve"); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, sessions, cleanup, err := buildServer(ctx, c, reg)
	if err != nil {
		return err
	}
	defer cleanup()

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("starting server", zap.Int("port", c.Server.Port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return eris.Wrap(httpSrv.Shutdown(shutdownCtx), "server shutdown")
	})

	if sessions.sweep != nil {
		g.Go(func() error {
			sweepSessions(gctx, sessions.sweep, sweepInterval)
			return nil
		})
	}

	return g.Wait()
}

// sweepSessions evicts expired sessions every interval until ctx ends.
func sweepSessions(ctx context.Context, sweep func() int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sweep(); n > 0 {
				zap.L().Debug("expired sessions evicted", zap.Int("count", n))
			}
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
